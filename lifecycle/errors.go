package lifecycle

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

var (
	ErrNoActiveContext  = errors.New("lifecycle: no active context")
	ErrNotInSetup       = errors.New("lifecycle: hooks can only be registered during setup")
	ErrDestroyedContext = errors.New("lifecycle: context is destroyed")
	ErrAlreadyConnected = errors.New("lifecycle: context is already connected")
	ErrNotConnected     = errors.New("lifecycle: context is not connected")
	ErrNoInjector       = errors.New("lifecycle: context has no injector")
	ErrInvalidPhase     = errors.New("lifecycle: invalid phase")
	ErrFlushLimit       = errors.New("lifecycle: effects kept invalidating each other during flush")
	ErrUnknownField     = errors.New("host has no such field")
	ErrUnsettableField  = errors.New("field is not settable")
	ErrInvalidHost      = errors.New("host must be a non-nil pointer to struct")
)

// BindingError reports a setup value that could not be put on the host.
type BindingError struct {
	Field string
	Host  reflect.Type
	Err   error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("lifecycle: cannot bind %q on %v: %v", e.Field, e.Host, e.Err)
}

func (e *BindingError) Unwrap() error {
	return e.Err
}

// HookError is reported to the system error sink when a hook body fails.
type HookError struct {
	Context uuid.UUID
	Phase   Phase
	Hook    string
	Err     error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("lifecycle: %s hook %s of %s: %v", e.Phase, e.Hook, e.Context, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}
