// Package lifecycle connects reactive effects to the phases of a host
// component: it owns the per-instance hook tables, runs deferred effect
// restarts at the pre and post flush points, and tears everything down on
// destroy.
package lifecycle

import (
	"fmt"
	"sync/atomic"

	"github.com/delaneyj/hookparty/reactive"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// HookFunc is the body of a phase hook. It runs as an effect scoped to the
// context; onInvalidate registers teardown for this run only.
type HookFunc = reactive.EffectFunc

type hook struct {
	name string
	fn   HookFunc
}

// SimpleChange is one input change delivered with the Changes phase.
type SimpleChange struct {
	Previous    any
	Current     any
	FirstChange bool
}

func (c SimpleChange) IsFirstChange() bool {
	return c.FirstChange
}

// ChangeSet maps input names to their change.
type ChangeSet map[string]SimpleChange

// Context is the reactive state of one host instance. It is the scope of
// every effect created during its setup and hooks.
type Context struct {
	rt       *Runtime
	id       uuid.UUID
	host     any
	injector Injector

	hooks  [phaseCount][]hook
	runs   [phaseCount][]*reactive.EffectRunner
	pre    *effectQueue
	post   *effectQueue
	live   *effectQueue
	phase  Phase
	visits [phaseCount]int

	changes ChangeSet

	connected  bool
	destroying bool
	// read by deferred dirty marks, which may run on another goroutine
	destroyed atomic.Bool
}

var _ reactive.Scope = (*Context)(nil)

func (c *Context) ID() uuid.UUID {
	return c.id
}

// Host returns the host instance the context was created for.
func (c *Context) Host() any {
	return c.host
}

func (c *Context) Injector() Injector {
	return c.injector
}

// Phase returns the last phase entered.
func (c *Context) Phase() Phase {
	return c.phase
}

// Visits returns how many times p has been entered.
func (c *Context) Visits(p Phase) int {
	if !p.Valid() {
		return 0
	}
	return c.visits[p]
}

// Changes returns the change set of the latest Changes phase.
func (c *Context) Changes() ChangeSet {
	return c.changes
}

func (c *Context) Connected() bool {
	return c.connected
}

func (c *Context) Destroyed() bool {
	return c.destroyed.Load()
}

// Effects returns the number of live effects owned by the context.
func (c *Context) Effects() int {
	return c.live.Len()
}

// Hooks returns the number of hooks registered for p.
func (c *Context) Hooks(p Phase) int {
	if !p.Valid() {
		return 0
	}
	return len(c.hooks[p])
}

// Pending returns how many effects wait for the given flush point.
func (c *Context) Pending(mode reactive.FlushMode) int {
	if mode == reactive.FlushPost {
		return c.post.Len()
	}
	return c.pre.Len()
}

func (c *Context) String() string {
	return fmt.Sprintf("Context(%s)", c.id)
}

// AddHook appends fn to the hooks of p. Registering on a destroyed context
// fails with ErrDestroyedContext.
func (c *Context) AddHook(p Phase, name string, fn HookFunc) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPhase, uint8(p))
	}
	if c.destroying || c.destroyed.Load() {
		return ErrDestroyedContext
	}
	if name == "" {
		name = fmt.Sprintf("%s#%d", p, len(c.hooks[p]))
	}
	c.hooks[p] = append(c.hooks[p], hook{name: name, fn: fn})
	return nil
}

func (c *Context) prependHook(p Phase, name string, fn HookFunc) {
	c.hooks[p] = append([]hook{{name: name, fn: fn}}, c.hooks[p]...)
}

// Adopt implements reactive.Scope.
func (c *Context) Adopt(e *reactive.EffectRunner) error {
	if c.destroyed.Load() {
		return ErrDestroyedContext
	}
	c.live.push(e)
	return nil
}

// Schedule implements reactive.Scope. The host is marked dirty so a check
// cycle comes around to flush the effect.
func (c *Context) Schedule(e *reactive.EffectRunner) {
	if c.destroying || c.destroyed.Load() {
		return
	}
	q := c.pre
	if e.Flush() == reactive.FlushPost {
		q = c.post
	}
	if q.push(e) {
		c.rt.markDirty(c)
	}
}

// Release implements reactive.Scope.
func (c *Context) Release(e *reactive.EffectRunner) {
	c.live.remove(e)
	c.pre.remove(e)
	c.post.remove(e)
}

// Destroying implements reactive.Scope.
func (c *Context) Destroying() bool {
	return c.destroying || c.destroyed.Load()
}

// flush restarts queued effects until the queue stays empty. Restarts that
// invalidate other effects of the same flush point are picked up by the next
// pass.
func (c *Context) flush(q *effectQueue, p Phase) {
	for pass := 0; q.Len() > 0; pass++ {
		if pass == maxFlushPasses {
			dropped := q.take()
			c.rt.rs.Report(dropped[0], fmt.Errorf("%w: %s of %s", ErrFlushLimit, p, c.id))
			return
		}
		for _, e := range q.take() {
			e.Restart()
		}
	}
}

// invalidate stops the runs left over from the previous visit of p.
func (c *Context) invalidate(p Phase) {
	runs := c.runs[p]
	c.runs[p] = nil
	for _, e := range runs {
		if err := e.Stop(); err != nil {
			c.rt.rs.Report(e, err)
		}
	}
}

// runHooks runs every hook of p in registration order. A failing hook is
// reported and the remaining hooks still run.
func (c *Context) runHooks(p Phase) {
	hooks := c.hooks[p]
	for _, h := range hooks {
		if c.destroyed.Load() {
			return
		}
		name := fmt.Sprintf("%s/%s", c.id, h.name)
		e, err := reactive.CreateEffect(c.rt.rs, recoverHook(name, h.fn),
			reactive.WithScope(c),
			reactive.WithName(name),
			reactive.WithScheduler(c.hookInvalidated),
		)
		if e != nil {
			c.runs[p] = append(c.runs[p], e)
		}
		if err != nil {
			c.rt.rs.Report(e, &HookError{Context: c.id, Phase: p, Hook: h.name, Err: err})
		}
	}
}

// recoverHook turns a panic in fn into the error of the run, so one hook
// cannot abort the phase for the others.
func recoverHook(name string, fn HookFunc) HookFunc {
	return func(onInvalidate reactive.OnInvalidateFunc) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = reactive.NewPanicError(name, r)
			}
		}()
		return fn(onInvalidate)
	}
}

// hookInvalidated is the scheduler of hook runs: their teardowns have already
// run, and instead of restarting the host is told to come around again.
func (c *Context) hookInvalidated(*reactive.EffectRunner) {
	c.rt.markDirty(c)
}

// stopAll stops every live effect in creation order and aggregates the
// teardown failures.
func (c *Context) stopAll() error {
	var result *multierror.Error
	for _, e := range c.live.take() {
		if err := e.Stop(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	c.pre.take()
	c.post.take()
	for p := range c.runs {
		c.runs[p] = nil
	}
	return result.ErrorOrNil()
}
