package pipeline

import (
	"context"
	"sync"
)

// CallbackType names a point in a run where callbacks execute.
type CallbackType string

const (
	// CallbackBeforeStage fires after the stage context is built and before
	// the model call. Returning an error halts the run at that stage.
	CallbackBeforeStage CallbackType = "before_stage"
	// CallbackAfterStage fires with the State that includes the new output.
	CallbackAfterStage CallbackType = "after_stage"
	// CallbackOnError fires once with the halted State.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext carries the run snapshot a callback observes.
type CallbackContext struct {
	RunID        string
	Stage        Stage
	CallbackType CallbackType
	// State is the run record at the time the callback fires.
	State State
	// Context is the rendered stage message (before_stage only).
	Context string
	// Err is set for on_error.
	Err error
}

// Callback is a run lifecycle hook.
type Callback interface {
	Type() CallbackType
	Execute(ctx context.Context, cbCtx *CallbackContext) error
}

// FunctionCallback adapts a function to Callback.
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, cbCtx *CallbackContext) error
}

// NewFunctionCallback creates a function-based callback.
//
// Example:
//
//	cb := pipeline.NewFunctionCallback(pipeline.CallbackAfterStage,
//	    func(ctx context.Context, c *pipeline.CallbackContext) error {
//	        return store.Save(ctx, c.State)
//	    },
//	)
func NewFunctionCallback(callbackType CallbackType, fn func(ctx context.Context, cbCtx *CallbackContext) error) *FunctionCallback {
	return &FunctionCallback{callbackType: callbackType, fn: fn}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute calls the wrapped function.
func (c *FunctionCallback) Execute(ctx context.Context, cbCtx *CallbackContext) error {
	return c.fn(ctx, cbCtx)
}

// CallbackManager holds callbacks by type and runs them in registration
// order. It is safe for concurrent registration and execution.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{callbacks: make(map[CallbackType][]Callback)}
}

// RegisterCallback appends callback to its type's list.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	t := callback.Type()
	cm.callbacks[t] = append(cm.callbacks[t], callback)
}

// ExecuteCallbacks runs every callback of the given type and stops at the
// first error.
func (cm *CallbackManager) ExecuteCallbacks(ctx context.Context, callbackType CallbackType, cbCtx *CallbackContext) error {
	cm.mu.RLock()
	callbacks := append([]Callback(nil), cm.callbacks[callbackType]...)
	cm.mu.RUnlock()

	cbCtx.CallbackType = callbackType
	for _, cb := range callbacks {
		if err := cb.Execute(ctx, cbCtx); err != nil {
			return err
		}
	}
	return nil
}
