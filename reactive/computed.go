package reactive

import "fmt"

// ComputedRef is a lazily evaluated, memoized derived cell. Invalidation only
// marks it stale; the getter runs again on the next read, and only when one
// of the sources it read last time actually moved.
type ComputedRef[T comparable] struct {
	baseSubscriber

	rs        *ReactiveSystem
	dep       *Dep
	value     T
	evaluated bool
	getter    func(oldValue T) T
	setter    func(newValue T)
}

func (c *ComputedRef[T]) isSignalAware() {}

// Computed creates a read-only computed ref.
func Computed[T comparable](rs *ReactiveSystem, getter func(oldValue T) T) *ComputedRef[T] {
	c := &ComputedRef[T]{
		rs:     rs,
		getter: getter,
		baseSubscriber: baseSubscriber{
			_flags: fComputed | fStale,
		},
	}
	c.dep = &Dep{key: valueKey, computed: c}
	return c
}

// WritableComputed creates a computed ref whose SetValue forwards to setter.
func WritableComputed[T comparable](rs *ReactiveSystem, getter func(oldValue T) T, setter func(newValue T)) *ComputedRef[T] {
	c := Computed(rs, getter)
	c.setter = setter
	return c
}

func (c *ComputedRef[T]) depFor(key string, create bool) *Dep {
	if key == valueKey {
		return c.dep
	}
	return nil
}

func (c *ComputedRef[T]) Value() T {
	c.refresh()
	c.rs.track(c.dep)
	return c.value
}

func (c *ComputedRef[T]) Peek() T {
	c.refresh()
	return c.value
}

// SetValue hands v to the setter. The computed itself is left as it is; if
// the setter moved a source, the next read recomputes.
func (c *ComputedRef[T]) SetValue(v T) error {
	if c.setter == nil {
		return ErrReadonlyComputed
	}
	c.rs.Untracked(func() {
		c.setter(v)
	})
	return nil
}

func (c *ComputedRef[T]) AnyValue() any {
	return c.Value()
}

func (c *ComputedRef[T]) PeekAny() any {
	return c.Peek()
}

func (c *ComputedRef[T]) SetAnyValue(v any) error {
	if c.setter == nil {
		return ErrReadonlyComputed
	}
	if v == nil {
		var zero T
		return c.SetValue(zero)
	}
	t, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: cannot assign %T to Computed[%T]", ErrTypeMismatch, v, c.value)
	}
	return c.SetValue(t)
}

func (c *ComputedRef[T]) Writable() bool {
	return c.setter != nil
}

// Stale reports whether the next read has to consult the sources.
func (c *ComputedRef[T]) Stale() bool {
	return c.flags()&fStale != 0
}

// notify marks the computed stale and tells its own dependents that it may
// have changed, without bumping its version.
func (c *ComputedRef[T]) notify() {
	c.setFlags(c.flags() | fStale)
	c.rs.trigger(c.dep, false)
}

func (c *ComputedRef[T]) refresh() {
	flags := c.flags()
	if flags&fStale == 0 {
		return
	}
	if flags&fTracking != 0 {
		panic(ErrComputedCycle)
	}
	if c.evaluated && !c.sourcesChanged() {
		c.setFlags(c.flags() &^ fStale)
		c.resubscribe(c)
		return
	}
	c.evaluate()
}

// sourcesChanged brings stale computed sources up to date in read order and
// stops at the first source whose version differs from the one recorded.
func (c *ComputedRef[T]) sourcesChanged() bool {
	for _, s := range c.sources {
		if s.dep.computed != nil {
			s.dep.computed.refresh()
		}
		if s.dep.version != s.version {
			return true
		}
	}
	return false
}

func (c *ComputedRef[T]) evaluate() {
	c.unsubscribe(c)

	prevSub := c.rs.activeSub
	c.rs.activeSub = c
	c.setFlags(c.flags() | fTracking)
	ok := false
	defer func() {
		c.rs.activeSub = prevSub
		flags := c.flags() &^ fTracking
		if ok {
			flags &^= fStale
		}
		c.setFlags(flags)
	}()

	oldValue := c.value
	newValue := c.getter(oldValue)
	if !c.evaluated || oldValue != newValue {
		c.value = newValue
		c.dep.version++
	}
	c.evaluated = true
	ok = true
}
