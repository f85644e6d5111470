package reactive

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// FlushMode controls when an invalidated effect restarts.
type FlushMode uint8

const (
	// FlushPre restarts at the next pre-flush point (before the host checks).
	FlushPre FlushMode = iota
	// FlushPost restarts at the next post-flush point (after the host view
	// has been checked).
	FlushPost
	// FlushSync restarts as soon as the triggering write has propagated.
	FlushSync
)

func (m FlushMode) String() string {
	switch m {
	case FlushPre:
		return "pre"
	case FlushPost:
		return "post"
	case FlushSync:
		return "sync"
	default:
		return fmt.Sprintf("FlushMode(%d)", uint8(m))
	}
}

// EffectState is the observable lifecycle of an effect.
type EffectState uint8

const (
	EffectCreated EffectState = iota
	EffectRunning
	EffectIdle
	EffectInvalidated
	EffectStopped
)

func (s EffectState) String() string {
	switch s {
	case EffectCreated:
		return "created"
	case EffectRunning:
		return "running"
	case EffectIdle:
		return "idle"
	case EffectInvalidated:
		return "invalidated"
	case EffectStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// OnInvalidateFunc registers a teardown for the current run of an effect.
type OnInvalidateFunc func(teardown func())

// EffectFunc is the body of an effect.
type EffectFunc func(onInvalidate OnInvalidateFunc) error

// Scope receives effects created while it is active. Lifecycle contexts
// implement it to own deferred restarts and teardown on destroy.
type Scope interface {
	// Adopt attaches a new effect. An error aborts effect creation.
	Adopt(e *EffectRunner) error
	// Schedule queues a deferred restart for e's flush mode. Scheduling an
	// already queued effect is a no-op.
	Schedule(e *EffectRunner)
	// Release forgets e, dropping it from any pending queue.
	Release(e *EffectRunner)
	// Destroying reports whether the scope is being torn down, in which case
	// sync effects stop restarting.
	Destroying() bool
}

type effectConfig struct {
	flush     FlushMode
	scope     Scope
	hasScope  bool
	scheduler func(*EffectRunner)
	name      string
	immediate bool
}

// EffectOption configures CreateEffect and the watch helpers.
type EffectOption func(*effectConfig)

func WithFlush(mode FlushMode) EffectOption {
	return func(cfg *effectConfig) {
		cfg.flush = mode
	}
}

// WithScope attaches the effect to scope instead of the active one. A nil
// scope detaches it from any scope.
func WithScope(scope Scope) EffectOption {
	return func(cfg *effectConfig) {
		cfg.scope = scope
		cfg.hasScope = true
	}
}

// WithScheduler replaces the restart policy: after its teardowns run, an
// invalidated effect is handed to fn instead of being restarted.
func WithScheduler(fn func(*EffectRunner)) EffectOption {
	return func(cfg *effectConfig) {
		cfg.scheduler = fn
	}
}

func WithName(name string) EffectOption {
	return func(cfg *effectConfig) {
		cfg.name = name
	}
}

// Immediate makes a watcher fire its callback on the subscribing run too.
func Immediate() EffectOption {
	return func(cfg *effectConfig) {
		cfg.immediate = true
	}
}

func newEffectConfig(opts []EffectOption) *effectConfig {
	cfg := &effectConfig{flush: FlushPre}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// EffectRunner is a re-runnable unit of work with teardowns.
type EffectRunner struct {
	baseSubscriber

	rs        *ReactiveSystem
	id        uint64
	name      string
	fn        EffectFunc
	flush     FlushMode
	scope     Scope
	scheduler func(*EffectRunner)
	teardowns []func()
	state     EffectState
	runs      int

	// effects created while this one's body was running
	parent   *EffectRunner
	children []*EffectRunner
}

func (e *EffectRunner) isSignalAware() {}

// CreateEffect runs fn once inside a fresh tracking scope and keeps it
// subscribed to what it read. The error of that first run is returned to the
// caller; the runner is returned even then, still subscribed to anything read
// before the failure. An effect created from the body of another effect is
// stopped when that parent is invalidated or stopped.
func CreateEffect(rs *ReactiveSystem, fn EffectFunc, opts ...EffectOption) (*EffectRunner, error) {
	cfg := newEffectConfig(opts)
	e := &EffectRunner{
		rs:        rs,
		id:        rs.id(),
		name:      cfg.name,
		fn:        fn,
		flush:     cfg.flush,
		scheduler: cfg.scheduler,
		baseSubscriber: baseSubscriber{
			_flags: fEffect,
		},
	}
	if cfg.hasScope {
		e.scope = cfg.scope
	} else {
		e.scope = rs.activeScope
	}
	if e.name == "" {
		e.name = fmt.Sprintf("effect#%d", e.id)
	}
	if e.scope != nil {
		if err := e.scope.Adopt(e); err != nil {
			e.state = EffectStopped
			e.setFlags(e.flags() | fStopped)
			return nil, err
		}
	}
	if parent := rs.activeEffect; parent != nil && !parent.Stopped() {
		e.parent = parent
		parent.children = append(parent.children, e)
	}
	return e, rs.runEffect(e)
}

// WatchEffect is CreateEffect under its conventional name.
func WatchEffect(rs *ReactiveSystem, fn EffectFunc, opts ...EffectOption) (*EffectRunner, error) {
	return CreateEffect(rs, fn, opts...)
}

// OnInvalidate registers teardown on the effect whose body is running.
func (rs *ReactiveSystem) OnInvalidate(teardown func()) error {
	if rs.activeEffect == nil {
		return ErrNoActiveEffect
	}
	rs.activeEffect.onInvalidate(teardown)
	return nil
}

func (e *EffectRunner) ID() uint64 {
	return e.id
}

func (e *EffectRunner) Name() string {
	return e.name
}

func (e *EffectRunner) String() string {
	return e.name
}

func (e *EffectRunner) Flush() FlushMode {
	return e.flush
}

func (e *EffectRunner) State() EffectState {
	return e.state
}

// Runs returns how many times the body has started.
func (e *EffectRunner) Runs() int {
	return e.runs
}

func (e *EffectRunner) Stopped() bool {
	return e.flags()&fStopped != 0
}

func (e *EffectRunner) onInvalidate(teardown func()) {
	if teardown == nil {
		return
	}
	if e.Stopped() {
		teardown()
		return
	}
	e.teardowns = append(e.teardowns, teardown)
}

// runTeardowns empties the teardown set and runs every callback in
// registration order. Each callback is guarded on its own.
func (e *EffectRunner) runTeardowns() error {
	if len(e.teardowns) == 0 {
		return nil
	}
	teardowns := e.teardowns
	e.teardowns = nil

	var result *multierror.Error
	for _, teardown := range teardowns {
		if err := guard(fmt.Sprintf("%s teardown", e.name), teardown); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// cleanup stops the effects created by the previous run, in creation order, then
// runs its teardowns.
func (e *EffectRunner) cleanup() error {
	var result *multierror.Error
	if len(e.children) > 0 {
		children := e.children
		e.children = nil
		for _, child := range children {
			child.parent = nil
			if err := child.Stop(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	if err := e.runTeardowns(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (e *EffectRunner) dropChild(child *EffectRunner) {
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}

// Children returns how many effects created by the current run are alive.
func (e *EffectRunner) Children() int {
	return len(e.children)
}

func guard(op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(op, r)
		}
	}()
	fn()
	return nil
}

// notify is the dependency-change path of stop(done=false): teardowns run
// now, the restart happens now or later depending on the flush mode.
func (e *EffectRunner) notify() {
	if e.Stopped() {
		return
	}
	e.state = EffectInvalidated
	if err := e.cleanup(); err != nil {
		e.rs.Report(e, err)
	}
	if e.Stopped() {
		return
	}

	switch {
	case e.scheduler != nil:
		e.scheduler(e)
	case e.flush == FlushSync:
		if e.scope != nil && e.scope.Destroying() {
			return
		}
		e.rs.queueSync(e)
	case e.scope != nil:
		e.scope.Schedule(e)
	default:
		e.rs.queuePending(e)
	}
}

// Restart re-runs a stopped-for-invalidation effect. Failures are reported to
// the error sink rather than returned, since restarts happen away from the
// code that caused them.
func (e *EffectRunner) Restart() {
	if e.Stopped() {
		return
	}
	e.rs.log.V(2).Info("effect restart", "effect", e.name, "flush", e.flush.String())
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = NewPanicError(e.name, r)
			}
		}()
		return e.rs.runEffect(e)
	}()
	if err == nil {
		return
	}
	if pe, ok := err.(*PanicError); ok {
		e.rs.Report(e, pe)
		return
	}
	e.rs.Report(e, &EffectError{Effect: e.name, Err: err})
}

// Run re-runs the effect now and returns the body's error.
func (e *EffectRunner) Run() error {
	if e.Stopped() {
		return nil
	}
	return e.rs.runEffect(e)
}

func (rs *ReactiveSystem) runEffect(e *EffectRunner) error {
	if err := e.cleanup(); err != nil {
		rs.Report(e, err)
	}
	e.unsubscribe(e)

	prevSub, prevEffect := rs.activeSub, rs.activeEffect
	rs.activeSub, rs.activeEffect = e, e
	e.setFlags(e.flags() | fTracking)
	e.state = EffectRunning
	e.runs++
	defer func() {
		e.setFlags(e.flags() &^ fTracking)
		rs.activeSub, rs.activeEffect = prevSub, prevEffect
		if !e.Stopped() {
			e.state = EffectIdle
		}
	}()

	return e.fn(e.onInvalidate)
}

// Stop permanently stops the effect: child effects are stopped, pending
// teardowns run, subscriptions are dropped and any queued restart is
// cancelled. It is safe to call from inside
// the effect's own body or teardown, and calling it again is a no-op. The
// returned error aggregates panicking teardowns.
func (e *EffectRunner) Stop() error {
	if e.Stopped() {
		return nil
	}
	e.setFlags(e.flags() | fStopped)
	e.state = EffectStopped
	err := e.cleanup()
	e.unsubscribe(e)
	if e.parent != nil {
		e.parent.dropChild(e)
		e.parent = nil
	}

	if e.flags()&fQueued != 0 && e.scope == nil {
		e.rs.dropPending(e)
	}
	if e.scope != nil {
		e.scope.Release(e)
	}
	return err
}
