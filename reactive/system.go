package reactive

import (
	"reflect"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-logr/logr"
)

// OnErrorFunc receives errors that cannot be returned to a caller, such as a
// failing effect re-run or a panicking subscriber.
type OnErrorFunc func(from SignalAware, err error)

// ReactiveSystem owns the tracking slots of one synchronous call stack: the
// active subscriber, the active effect and the active scope. Every entry point
// that swaps a slot restores the previous value on exit.
type ReactiveSystem struct {
	batchDepth    int
	activeSub     subscriber
	activeEffect  *EffectRunner
	activeScope   Scope
	pauseStack    []subscriber
	queuedEffects []*EffectRunner
	flushing      bool
	pending       [2][]*EffectRunner

	onError  OnErrorFunc
	log      logr.Logger
	proxies  *proxyCache
	rawTypes mapset.Set[reflect.Type]
	nextID   uint64
}

// SystemOption configures a ReactiveSystem.
type SystemOption func(*ReactiveSystem)

// WithLogger sets the logger used for trace output and for errors reported
// while no error sink is installed.
func WithLogger(l logr.Logger) SystemOption {
	return func(rs *ReactiveSystem) {
		rs.log = l
	}
}

func CreateReactiveSystem(onError OnErrorFunc, opts ...SystemOption) *ReactiveSystem {
	rs := &ReactiveSystem{
		onError:  onError,
		log:      logr.Discard(),
		proxies:  newProxyCache(),
		rawTypes: defaultRawTypes(),
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// Logger returns the system logger.
func (rs *ReactiveSystem) Logger() logr.Logger {
	return rs.log
}

// Report routes err to the error sink. Without a sink the error is logged.
func (rs *ReactiveSystem) Report(from SignalAware, err error) {
	if err == nil {
		return
	}
	if rs.onError != nil {
		rs.onError(from, err)
		return
	}
	rs.log.Error(err, "unhandled reactive error")
}

func (rs *ReactiveSystem) StartBatch() {
	rs.batchDepth++
}

func (rs *ReactiveSystem) EndBatch() {
	rs.batchDepth--
	if rs.batchDepth == 0 {
		rs.processEffectNotifications()
	}
}

// Batch defers sync effect restarts until cb returns.
func (rs *ReactiveSystem) Batch(cb func()) {
	rs.StartBatch()
	defer rs.EndBatch()
	cb()
}

func (rs *ReactiveSystem) PauseTracking() {
	rs.pauseStack = append(rs.pauseStack, rs.activeSub)
	rs.activeSub = nil
}

func (rs *ReactiveSystem) ResumeTracking() {
	lastIdx := len(rs.pauseStack) - 1
	rs.activeSub = rs.pauseStack[lastIdx]
	rs.pauseStack = rs.pauseStack[:lastIdx]
}

// Untracked runs fn without recording dependencies for the active computation.
func (rs *ReactiveSystem) Untracked(fn func()) {
	rs.PauseTracking()
	defer rs.ResumeTracking()
	fn()
}

// Tracking reports whether a computation is currently collecting dependencies.
func (rs *ReactiveSystem) Tracking() bool {
	return rs.activeSub != nil
}

// ActiveScope returns the scope new effects are attached to, if any.
func (rs *ReactiveSystem) ActiveScope() Scope {
	return rs.activeScope
}

// RunInScope runs fn with scope as the active scope.
func (rs *ReactiveSystem) RunInScope(scope Scope, fn func() error) error {
	prev := rs.activeScope
	rs.activeScope = scope
	defer func() {
		rs.activeScope = prev
	}()
	return fn()
}

func (rs *ReactiveSystem) id() uint64 {
	rs.nextID++
	return rs.nextID
}

// queueSync appends e to the sync restart queue. The queue drains when the
// outermost batch ends, or right away when no batch is open.
func (rs *ReactiveSystem) queueSync(e *EffectRunner) {
	if e.flags()&fQueued != 0 {
		return
	}
	e.setFlags(e.flags() | fQueued)
	rs.queuedEffects = append(rs.queuedEffects, e)
	if rs.batchDepth == 0 {
		rs.processEffectNotifications()
	}
}

// Drains the sync restart queue in the order effects were invalidated.
// Restarts that trigger further invalidations append to the same queue, so
// nested drains are folded into the running one.
func (rs *ReactiveSystem) processEffectNotifications() {
	if rs.flushing {
		return
	}
	rs.flushing = true
	defer func() {
		rs.flushing = false
	}()

	for len(rs.queuedEffects) > 0 {
		effect := rs.queuedEffects[0]
		rs.queuedEffects[0] = nil
		rs.queuedEffects = rs.queuedEffects[1:]
		effect.setFlags(effect.flags() &^ fQueued)
		effect.Restart()
	}
	rs.queuedEffects = nil
}

func pendingIndex(mode FlushMode) int {
	if mode == FlushPost {
		return 1
	}
	return 0
}

// queuePending holds a deferred restart for an effect created outside any
// scope until Flush is called for its mode.
func (rs *ReactiveSystem) queuePending(e *EffectRunner) {
	if e.flags()&fQueued != 0 {
		return
	}
	e.setFlags(e.flags() | fQueued)
	idx := pendingIndex(e.flush)
	rs.pending[idx] = append(rs.pending[idx], e)
}

func (rs *ReactiveSystem) dropPending(e *EffectRunner) {
	idx := pendingIndex(e.flush)
	q := rs.pending[idx]
	for i, p := range q {
		if p == e {
			rs.pending[idx] = append(q[:i], q[i+1:]...)
			e.setFlags(e.flags() &^ fQueued)
			return
		}
	}
}

// Flush restarts every unscoped effect waiting on mode, in invalidation order.
// Effects invalidated during the flush are picked up by the same call.
func (rs *ReactiveSystem) Flush(mode FlushMode) {
	idx := pendingIndex(mode)
	for len(rs.pending[idx]) > 0 {
		e := rs.pending[idx][0]
		rs.pending[idx] = rs.pending[idx][1:]
		e.setFlags(e.flags() &^ fQueued)
		e.Restart()
	}
	rs.pending[idx] = nil
}

// Pending returns how many unscoped effects wait on mode.
func (rs *ReactiveSystem) Pending(mode FlushMode) int {
	return len(rs.pending[pendingIndex(mode)])
}
