package reactive

import "fmt"

const valueKey = "value"

// Ref is a single-value reactive cell.
type Ref[T comparable] struct {
	Observable
	rs    *ReactiveSystem
	value T
}

func (r *Ref[T]) isSignalAware() {}

func NewRef[T comparable](rs *ReactiveSystem, initialValue T) *Ref[T] {
	return &Ref[T]{
		rs:    rs,
		value: initialValue,
	}
}

// RefFrom turns a readable into a ref without nesting: a *Ref[T] comes back
// as is, anything else seeds a new ref with its current value.
func RefFrom[T comparable](rs *ReactiveSystem, src Readable[T]) *Ref[T] {
	if r, ok := src.(*Ref[T]); ok {
		return r
	}
	return NewRef(rs, src.Peek())
}

func (r *Ref[T]) Value() T {
	r.rs.Track(r, valueKey)
	return r.value
}

func (r *Ref[T]) Peek() T {
	return r.value
}

// SetValue stores v and notifies dependents. Writing a value equal to the
// current one is a no-op.
func (r *Ref[T]) SetValue(v T) {
	if r.value == v {
		return
	}
	r.value = v
	r.rs.Trigger(r, valueKey)
}

// Update replaces the value with fn applied to the current one.
func (r *Ref[T]) Update(fn func(old T) T) {
	r.SetValue(fn(r.value))
}

func (r *Ref[T]) AnyValue() any {
	return r.Value()
}

func (r *Ref[T]) PeekAny() any {
	return r.value
}

func (r *Ref[T]) SetAnyValue(v any) error {
	if v == nil {
		var zero T
		r.SetValue(zero)
		return nil
	}
	t, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: cannot assign %T to Ref[%T]", ErrTypeMismatch, v, r.value)
	}
	r.SetValue(t)
	return nil
}

func (r *Ref[T]) Writable() bool {
	return true
}

func (r *Ref[T]) String() string {
	return fmt.Sprintf("Ref(%v)", r.value)
}

// IsRef reports whether v is a ref or a computed ref.
func IsRef(v any) bool {
	_, ok := v.(AnyRef)
	return ok
}

// Unref returns the current value of a ref, or v itself when it is a plain T.
func Unref[T any](v any) T {
	switch x := v.(type) {
	case Readable[T]:
		return x.Value()
	case T:
		return x
	}
	var zero T
	return zero
}
