package executor

import (
	"context"
	"errors"
)

// WasmInstance is a lifecycle-only stub. No WASM runtime library appears
// anywhere in the retrieved dependency corpus, so actually instantiating a
// module is out of scope here; this type exists so callers can select
// KindWasm and get a well-defined "not available" failure instead of a
// missing case in a switch.
type WasmInstance struct{}

// NewWasmInstance constructs a WasmInstance. Real embedding (wazero,
// wasmtime-go, or similar) is left to a future iteration.
func NewWasmInstance() *WasmInstance { return &WasmInstance{} }

func (*WasmInstance) Kind() Kind { return KindWasm }

func (*WasmInstance) Execute(ctx context.Context, req Request) (<-chan ExecutionEvent, error) {
	out := make(chan ExecutionEvent, 2)
	out <- ExecutionEvent{Kind: EventStarted}
	out <- ExecutionEvent{Kind: EventFailed, Reason: FailureInternalError, Err: errors.New("executor: wasm sandbox not available")}
	close(out)
	return out, nil
}
