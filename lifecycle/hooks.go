package lifecycle

import "github.com/delaneyj/hookparty/reactive"

// OnHook registers fn for p on the context whose setup is running. Hooks are
// registered once and run on every entry into p.
func (rt *Runtime) OnHook(p Phase, fn HookFunc) error {
	return rt.onHook(p, "", fn)
}

func (rt *Runtime) onHook(p Phase, name string, fn HookFunc) error {
	c, err := rt.ActiveContext()
	if err != nil {
		return err
	}
	if !rt.inSetup {
		return ErrNotInSetup
	}
	return c.AddHook(p, name, fn)
}

// OnChangesHook runs fn with the change set of every Changes phase.
func (rt *Runtime) OnChangesHook(fn func(changes ChangeSet) error) error {
	c, err := rt.ActiveContext()
	if err != nil {
		return err
	}
	return rt.onHook(PhaseChanges, "", func(reactive.OnInvalidateFunc) error {
		return fn(c.Changes())
	})
}

func (rt *Runtime) OnInitHook(fn HookFunc) error          { return rt.OnHook(PhaseInit, fn) }
func (rt *Runtime) DoCheck(fn HookFunc) error             { return rt.OnHook(PhaseCheck, fn) }
func (rt *Runtime) AfterContentInit(fn HookFunc) error    { return rt.OnHook(PhaseContentInit, fn) }
func (rt *Runtime) AfterContentChecked(fn HookFunc) error { return rt.OnHook(PhaseContentChecked, fn) }
func (rt *Runtime) AfterViewInit(fn HookFunc) error       { return rt.OnHook(PhaseViewInit, fn) }
func (rt *Runtime) AfterViewChecked(fn HookFunc) error    { return rt.OnHook(PhaseViewChecked, fn) }

// OnDestroyHook runs fn once when the context is destroyed.
func (rt *Runtime) OnDestroyHook(fn func()) error {
	return rt.OnHook(PhaseDestroy, func(reactive.OnInvalidateFunc) error {
		fn()
		return nil
	})
}
