package lifecycle

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/hookparty/reactive"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

const maxFlushPasses = 100

// DirtyStrategy picks which ChangeDetector call makes a mutation visible.
type DirtyStrategy uint8

const (
	// DirtyMark asks the host to check the instance on its next cycle.
	DirtyMark DirtyStrategy = iota
	// DirtyDetect runs change detection for the instance right away.
	DirtyDetect
)

func (s DirtyStrategy) String() string {
	switch s {
	case DirtyMark:
		return "mark"
	case DirtyDetect:
		return "detect"
	default:
		return fmt.Sprintf("DirtyStrategy(%d)", uint8(s))
	}
}

// ChangeDetector is the host's dirty-marking sink.
type ChangeDetector interface {
	MarkDirty(c *Context)
	DetectChanges(c *Context)
}

// SetupFunc builds the reactive state of a host instance. It runs once, with
// its context active, and may register hooks and create effects.
type SetupFunc func(c *Context) (Bindings, error)

// Runtime feeds host phase events into the reactive system. It holds the
// active context slot, which every entry point restores on exit.
type Runtime struct {
	rs       *reactive.ReactiveSystem
	log      logr.Logger
	detector ChangeDetector
	strategy DirtyStrategy
	deferFn  func(func())
	deferred mapset.Set[*Context]

	active      *Context
	activePhase Phase
	inSetup     bool
}

type Option func(*Runtime)

func WithLogger(l logr.Logger) Option {
	return func(rt *Runtime) {
		rt.log = l
	}
}

func WithChangeDetector(d ChangeDetector) Option {
	return func(rt *Runtime) {
		rt.detector = d
	}
}

func WithDirtyStrategy(s DirtyStrategy) Option {
	return func(rt *Runtime) {
		rt.strategy = s
	}
}

// WithDeferredDirty delays dirty marking through schedule, for hosts where
// marking synchronously would re-enter their own change detection. Marks for
// the same context are coalesced until the scheduled call runs.
// schedule may run the callback on another goroutine. The callback only
// checks whether the context was destroyed and then calls the
// ChangeDetector, which must be safe to call from there.
func WithDeferredDirty(schedule func(func())) Option {
	return func(rt *Runtime) {
		rt.deferFn = schedule
	}
}

func New(rs *reactive.ReactiveSystem, opts ...Option) *Runtime {
	rt := &Runtime{
		rs:       rs,
		log:      rs.Logger(),
		deferred: mapset.NewSet[*Context](),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// System returns the reactive system the runtime drives.
func (rt *Runtime) System() *reactive.ReactiveSystem {
	return rt.rs
}

// NewContext creates the context of one host instance. host is where setup
// bindings are written and may be nil when setup returns none.
func (rt *Runtime) NewContext(host any, injector Injector) *Context {
	return &Context{
		rt:       rt,
		id:       uuid.New(),
		host:     host,
		injector: injector,
		pre:      newEffectQueue(),
		post:     newEffectQueue(),
		live:     newEffectQueue(),
	}
}

// ActiveContext returns the context whose setup or hook is running.
func (rt *Runtime) ActiveContext() (*Context, error) {
	if rt.active == nil {
		return nil, ErrNoActiveContext
	}
	return rt.active, nil
}

// ActivePhase returns the phase being entered, if any context is active.
func (rt *Runtime) ActivePhase() (Phase, bool) {
	return rt.activePhase, rt.active != nil
}

func (rt *Runtime) activate(c *Context, p Phase, setup bool) (restore func()) {
	prev, prevPhase, prevSetup := rt.active, rt.activePhase, rt.inSetup
	rt.active, rt.activePhase, rt.inSetup = c, p, setup
	return func() {
		rt.active, rt.activePhase, rt.inSetup = prev, prevPhase, prevSetup
	}
}

func (rt *Runtime) markDirty(c *Context) {
	if rt.detector == nil || c.destroying || c.destroyed.Load() {
		return
	}
	if rt.deferFn == nil {
		rt.dirty(c)
		return
	}
	if !rt.deferred.Add(c) {
		return
	}
	rt.deferFn(func() {
		rt.deferred.Remove(c)
		if !c.destroyed.Load() {
			rt.dirty(c)
		}
	})
}

func (rt *Runtime) dirty(c *Context) {
	rt.log.V(2).Info("dirty", "context", c.id, "strategy", rt.strategy.String())
	switch rt.strategy {
	case DirtyDetect:
		rt.detector.DetectChanges(c)
	default:
		rt.detector.MarkDirty(c)
	}
}

// OnConnect runs setup for c and binds what it returns onto the host. It must
// be the first phase of a context. A failing setup stops every effect it
// created and leaves the context unconnected.
func (rt *Runtime) OnConnect(c *Context, setup SetupFunc) error {
	if c.destroyed.Load() {
		return ErrDestroyedContext
	}
	if c.connected {
		return ErrAlreadyConnected
	}
	rt.log.V(1).Info("phase enter", "context", c.id, "phase", PhaseConnect.String())
	c.phase = PhaseConnect
	c.visits[PhaseConnect]++

	err := func() error {
		restore := rt.activate(c, PhaseConnect, true)
		defer restore()
		return rt.rs.RunInScope(c, func() error {
			if setup == nil {
				return nil
			}
			bindings, err := setup(c)
			if err != nil {
				return err
			}
			return rt.bind(c, bindings)
		})
	}()
	if err != nil {
		if stopErr := c.stopAll(); stopErr != nil {
			rt.rs.Report(nil, stopErr)
		}
		for p := range c.hooks {
			c.hooks[p] = nil
		}
		return fmt.Errorf("lifecycle: setup of %s: %w", c.id, err)
	}
	c.connected = true
	rt.enter(c, PhaseConnect)
	return nil
}

// OnChanges records changes and enters the Changes phase.
func (rt *Runtime) OnChanges(c *Context, changes ChangeSet) error {
	if err := rt.check(c); err != nil {
		return err
	}
	c.changes = changes
	c.visits[PhaseChanges]++
	rt.enter(c, PhaseChanges)
	return nil
}

func (rt *Runtime) OnInit(c *Context) error           { return rt.Enter(c, PhaseInit) }
func (rt *Runtime) OnCheck(c *Context) error          { return rt.Enter(c, PhaseCheck) }
func (rt *Runtime) OnContentInit(c *Context) error    { return rt.Enter(c, PhaseContentInit) }
func (rt *Runtime) OnContentChecked(c *Context) error { return rt.Enter(c, PhaseContentChecked) }
func (rt *Runtime) OnViewInit(c *Context) error       { return rt.Enter(c, PhaseViewInit) }
func (rt *Runtime) OnViewChecked(c *Context) error    { return rt.Enter(c, PhaseViewChecked) }

// Enter feeds one phase event for c. Connect, Changes and Destroy have their
// own entry points since they carry extra state.
func (rt *Runtime) Enter(c *Context, p Phase) error {
	switch p {
	case PhaseConnect:
		return rt.OnConnect(c, nil)
	case PhaseChanges:
		return rt.OnChanges(c, nil)
	case PhaseDestroy:
		return rt.OnDestroy(c)
	}
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPhase, uint8(p))
	}
	if err := rt.check(c); err != nil {
		return err
	}
	c.visits[p]++
	rt.enter(c, p)
	return nil
}

func (rt *Runtime) check(c *Context) error {
	if c.destroyed.Load() || c.destroying {
		return ErrDestroyedContext
	}
	if !c.connected {
		return ErrNotConnected
	}
	return nil
}

// enter flushes the pre queue on Check, stops the runs of the previous visit
// to p, runs the hooks of p and flushes the post queue on ViewChecked.
func (rt *Runtime) enter(c *Context, p Phase) {
	if p != PhaseConnect {
		rt.log.V(1).Info("phase enter", "context", c.id, "phase", p.String())
	}
	c.phase = p

	restore := rt.activate(c, p, false)
	defer restore()

	if p == PhaseCheck {
		rt.rs.Flush(reactive.FlushPre)
		c.flush(c.pre, p)
	}
	c.invalidate(p)
	_ = rt.rs.RunInScope(c, func() error {
		c.runHooks(p)
		return nil
	})
	if p == PhaseViewChecked {
		c.flush(c.post, p)
		rt.rs.Flush(reactive.FlushPost)
	}
}

// OnDestroy runs the Destroy hooks, then stops every effect the context still
// owns. The context is destroyed afterwards even when teardowns failed; their
// failures are returned together.
func (rt *Runtime) OnDestroy(c *Context) error {
	if c.destroyed.Load() || c.destroying {
		return ErrDestroyedContext
	}
	rt.log.V(1).Info("phase enter", "context", c.id, "phase", PhaseDestroy.String())
	c.phase = PhaseDestroy
	c.visits[PhaseDestroy]++
	c.destroying = true

	func() {
		restore := rt.activate(c, PhaseDestroy, false)
		defer restore()
		_ = rt.rs.RunInScope(c, func() error {
			c.runHooks(PhaseDestroy)
			return nil
		})
	}()

	err := c.stopAll()
	c.destroyed.Store(true)
	c.destroying = false
	for p := range c.hooks {
		c.hooks[p] = nil
	}
	rt.deferred.Remove(c)
	return err
}

// Mount drives the first pass of a host instance: Connect, Changes when
// changes is not empty, then Init through ViewChecked.
func (rt *Runtime) Mount(c *Context, setup SetupFunc, changes ChangeSet) error {
	if err := rt.OnConnect(c, setup); err != nil {
		return err
	}
	if len(changes) > 0 {
		if err := rt.OnChanges(c, changes); err != nil {
			return err
		}
	}
	for _, p := range []Phase{PhaseInit, PhaseCheck, PhaseContentInit, PhaseContentChecked, PhaseViewInit, PhaseViewChecked} {
		if err := rt.Enter(c, p); err != nil {
			return err
		}
	}
	return nil
}

// Cycle drives one change detection pass of a mounted instance.
func (rt *Runtime) Cycle(c *Context, changes ChangeSet) error {
	if len(changes) > 0 {
		if err := rt.OnChanges(c, changes); err != nil {
			return err
		}
	}
	for _, p := range []Phase{PhaseCheck, PhaseContentChecked, PhaseViewChecked} {
		if err := rt.Enter(c, p); err != nil {
			return err
		}
	}
	return nil
}
