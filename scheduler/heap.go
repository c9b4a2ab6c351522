package scheduler

// queueItem wraps a ScheduledTask with a monotonic sequence number so FIFO
// order is preserved among tasks of equal priority.
type queueItem struct {
	task ScheduledTask
	seq  uint64
}

// taskHeap orders queueItems by seq ascending (submission order) under FIFO,
// or by Priority descending then seq ascending under Priority/AIAssisted —
// the scheduler's configured policy decides which comparison byPriority
// uses, so FIFO never lets priority reorder dispatch (§4.5).
type taskHeap struct {
	items      []queueItem
	byPriority bool
}

func (h *taskHeap) Len() int { return len(h.items) }

func (h *taskHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if h.byPriority && a.task.Priority != b.task.Priority {
		return a.task.Priority > b.task.Priority
	}
	return a.seq < b.seq
}

func (h *taskHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *taskHeap) Push(x any) {
	h.items = append(h.items, x.(queueItem))
}

func (h *taskHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
