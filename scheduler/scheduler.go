// Package scheduler implements the Scheduler (C5): admitted-work queues,
// concurrency caps, and dispatch to the Isolation Executor.
//
// The per-subject token bucket is grounded on the teacher's adaptive rate
// limiter (it wraps golang.org/x/time/rate the same way), simplified to a
// fixed budget per subject rather than an AIMD-adjusted one, since the
// Scheduler's rate limiting is a deterministic admission control, not a
// downstream-provider feedback loop.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lion.run/lion/errkind"
	"lion.run/lion/ids"
)

type (
	// Policy selects dispatch ordering.
	Policy string

	// ScheduledTask is one admitted unit of work awaiting dispatch.
	ScheduledTask struct {
		TaskID         ids.TaskID
		Priority       uint8
		SubmittedAt    time.Time
		PayloadRef     []byte
		CallerPluginID ids.PluginID
		Category       string
		Subject        string
	}

	// CancelResult reports the outcome of a cancellation request.
	CancelResult string
)

const (
	// FIFO dispatches strictly in submission order.
	FIFO Policy = "fifo"
	// Priority dispatches higher-priority tasks first, FIFO tiebreak.
	Priority Policy = "priority"
	// AIAssisted defers ordering decisions to an external Advisor.
	AIAssisted Policy = "ai_assisted"
)

const (
	CancelOK         CancelResult = "cancelled"
	CancelNotFound   CancelResult = "not_found"
	CancelAlreadyRun CancelResult = "already_dispatched"
)

// ErrBusy is returned by Submit when the relevant concurrency cap is
// saturated and the caller did not opt into blocking.
var ErrBusy = errors.New("scheduler: busy")

// ErrRateLimited is returned by Submit when a subject's token bucket is
// exhausted beyond the configured max wait.
var ErrRateLimited = errors.New("scheduler: rate limited")

// Advisor supplies external dispatch-order hints for the AIAssisted policy.
// Score is called once per candidate task in the current ready set; the
// scheduler dispatches the highest-scored task first, FIFO on ties. A nil
// Advisor degrades AIAssisted to Priority ordering.
type Advisor interface {
	Score(ctx context.Context, t ScheduledTask) float64
}

// Sink is where the scheduler hands off a dispatched task. Execute blocks
// until the task's execution finishes or ctx is cancelled; a non-nil error
// fails that one dispatch without stopping the scheduler's run loop.
type Sink interface {
	Execute(ctx context.Context, t ScheduledTask) error
}

// Limits bounds concurrency and throughput.
type Limits struct {
	// MaxInFlight caps total concurrently dispatched tasks. Zero means
	// unbounded.
	MaxInFlight int
	// MaxInFlightByCategory caps concurrency per Category; absent categories
	// are unbounded (subject only to MaxInFlight).
	MaxInFlightByCategory map[string]int
	// RatePerSubject is the sustained tokens/sec per Subject; zero disables
	// rate limiting.
	RatePerSubject rate.Limit
	// BurstPerSubject is the token bucket capacity per Subject.
	BurstPerSubject int
	// MaxRateWait bounds how long Submit blocks waiting for rate-limit
	// quota before failing with ErrRateLimited.
	MaxRateWait time.Duration
}

// Scheduler is the Scheduler (C5).
type Scheduler struct {
	mu                 sync.Mutex
	policy             Policy
	advisor            Advisor
	limits             Limits
	queue              taskHeap
	cancelled          map[ids.TaskID]struct{}
	dispatched         map[ids.TaskID]struct{}
	inFlight           int
	inFlightByCategory map[string]int
	limiters           map[string]*rate.Limiter
	notify             chan struct{}
	seq                uint64
}

// New constructs a Scheduler with the given dispatch Policy and Limits.
func New(policy Policy, advisor Advisor, limits Limits) *Scheduler {
	s := &Scheduler{
		policy:             policy,
		advisor:            advisor,
		limits:             limits,
		cancelled:          make(map[ids.TaskID]struct{}),
		dispatched:         make(map[ids.TaskID]struct{}),
		inFlightByCategory: make(map[string]int),
		limiters:           make(map[string]*rate.Limiter),
		notify:             make(chan struct{}, 1),
	}
	s.queue.byPriority = policy != FIFO
	heap.Init(&s.queue)
	return s
}

// Submit enqueues t. If block is false and the applicable concurrency cap is
// already saturated, Submit returns ErrBusy immediately rather than
// enqueueing; callers that want to wait for capacity should set block=true.
// Rate limiting, when configured for t.Subject, is always honored (deferred
// up to Limits.MaxRateWait, then ErrRateLimited) regardless of block.
func (s *Scheduler) Submit(ctx context.Context, t ScheduledTask, block bool) (ids.TaskID, error) {
	if t.TaskID.IsNil() {
		t.TaskID = ids.NewTaskID()
	}
	if t.SubmittedAt.IsZero() {
		t.SubmittedAt = time.Now()
	}

	if lim := s.limiterFor(t.Subject); lim != nil {
		waitCtx := ctx
		var cancel context.CancelFunc
		if s.limits.MaxRateWait > 0 {
			waitCtx, cancel = context.WithTimeout(ctx, s.limits.MaxRateWait)
			defer cancel()
		}
		if err := lim.Wait(waitCtx); err != nil {
			return ids.TaskID(ids.Nil), ErrRateLimited
		}
	}

	s.mu.Lock()
	if !block && s.saturated(t.Category) {
		s.mu.Unlock()
		return ids.TaskID(ids.Nil), ErrBusy
	}
	heap.Push(&s.queue, queueItem{task: t, seq: s.nextSeq()})
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return t.TaskID, nil
}

// Cancel marks t as cancelled. A task still queued never starts (§4.5:
// "a cancelled task never starts"); a task already dispatched is reported
// CancelAlreadyRun — the caller must separately signal the executor.
// Cancelling an already-cancelled or not-yet-submitted task id is
// idempotent: it returns CancelNotFound rather than erroring.
func (s *Scheduler) Cancel(taskID ids.TaskID) CancelResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dispatched[taskID]; ok {
		return CancelAlreadyRun
	}
	for i := range s.queue.items {
		if s.queue.items[i].task.TaskID == taskID {
			s.cancelled[taskID] = struct{}{}
			heap.Remove(&s.queue, i)
			return CancelOK
		}
	}
	return CancelNotFound
}

// Run drains the queue and hands each runnable task to sink, honoring
// concurrency caps and dispatch Policy, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.notify:
		}

		for {
			t, ok := s.next(ctx)
			if !ok {
				break
			}
			go func(t ScheduledTask) {
				err := sink.Execute(ctx, t)
				s.mu.Lock()
				delete(s.dispatched, t.TaskID)
				s.inFlight--
				s.inFlightByCategory[t.Category]--
				s.mu.Unlock()
				select {
				case s.notify <- struct{}{}:
				default:
				}
				_ = err // executor failures become Failed events at the executor boundary
			}(t)
		}
	}
}

// next pops and returns the highest-priority runnable task not blocked by a
// saturated concurrency cap. ok is false when nothing is both queued and
// runnable right now.
func (s *Scheduler) next(ctx context.Context) (ScheduledTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy == AIAssisted && s.advisor != nil {
		s.reorderByAdvisor(ctx)
	}

	for s.queue.Len() > 0 {
		item := s.queue.items[0]
		if _, cancelled := s.cancelled[item.task.TaskID]; cancelled {
			heap.Pop(&s.queue)
			continue
		}
		if s.saturated(item.task.Category) {
			return ScheduledTask{}, false
		}
		heap.Pop(&s.queue)
		s.inFlight++
		s.inFlightByCategory[item.task.Category]++
		s.dispatched[item.task.TaskID] = struct{}{}
		return item.task, true
	}
	return ScheduledTask{}, false
}

func (s *Scheduler) reorderByAdvisor(ctx context.Context) {
	best := -1
	var bestScore float64
	for i := range s.queue.items {
		score := s.advisor.Score(ctx, s.queue.items[i].task)
		if best == -1 || score > bestScore {
			best, bestScore = i, score
		}
	}
	if best > 0 {
		s.queue.items[0], s.queue.items[best] = s.queue.items[best], s.queue.items[0]
		heap.Fix(&s.queue, 0)
	}
}

func (s *Scheduler) saturated(category string) bool {
	if s.limits.MaxInFlight > 0 && s.inFlight >= s.limits.MaxInFlight {
		return true
	}
	if cap, ok := s.limits.MaxInFlightByCategory[category]; ok && s.inFlightByCategory[category] >= cap {
		return true
	}
	return false
}

func (s *Scheduler) limiterFor(subject string) *rate.Limiter {
	if subject == "" || s.limits.RatePerSubject <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.limiters[subject]
	if !ok {
		lim = rate.NewLimiter(s.limits.RatePerSubject, s.limits.BurstPerSubject)
		s.limiters[subject] = lim
	}
	return lim
}

// nextSeq returns this Scheduler's next monotonically increasing sequence
// number. Callers hold s.mu (Submit does), so no separate lock is needed
// here; the counter is scoped to the instance rather than shared package
// state so concurrent Schedulers never race on it.
func (s *Scheduler) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// RateLimitedError wraps ErrRateLimited with context, satisfying the
// errkind.Kind taxonomy at the kernel boundary (§7: "Resource errors").
func RateLimitedError(subject string) *errkind.Error {
	return errkind.New(errkind.KindResourceExceeded, "rate limit exceeded for subject "+subject)
}

// BusyError wraps ErrBusy the same way.
func BusyError(category string) *errkind.Error {
	return errkind.New(errkind.KindResourceExceeded, "scheduler saturated for category "+category)
}
