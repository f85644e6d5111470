package reactive

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	ErrReadonlyComputed = errors.New("reactive: computed value is readonly")
	ErrNoActiveEffect   = errors.New("reactive: onInvalidate called outside a running effect")
	ErrNotObservable    = errors.New("reactive: value cannot be made reactive")
	ErrUnknownKey       = errors.New("reactive: unknown key")
	ErrTypeMismatch     = errors.New("reactive: value type mismatch")
	ErrComputedCycle    = errors.New("reactive: cycle detected while evaluating computed")
)

// PanicError wraps a value recovered from a panicking effect, teardown or
// subscriber.
type PanicError struct {
	Op         string
	Value      any
	StackTrace string
}

// NewPanicError captures the current stack for a value recovered during op.
func NewPanicError(op string, v any) *PanicError {
	return &PanicError{
		Op:         op,
		Value:      v,
		StackTrace: string(debug.Stack()),
	}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// EffectError is reported when a re-run of an effect fails.
type EffectError struct {
	Effect string
	Err    error
}

func (e *EffectError) Error() string {
	return fmt.Sprintf("effect %s: %v", e.Effect, e.Err)
}

func (e *EffectError) Unwrap() error {
	return e.Err
}
