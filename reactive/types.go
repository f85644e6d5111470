package reactive

type subscriberFlags uint16

const (
	fComputed subscriberFlags = 1 << iota
	fEffect
	fTracking
	fStale
	fQueued
	fStopped
)

// SignalAware is implemented by every node the system can report errors from.
type SignalAware interface {
	isSignalAware()
}

// Readable is a typed reactive source.
type Readable[T any] interface {
	// Value reads the current value and records a dependency on it.
	Value() T
	// Peek reads the current value without recording a dependency.
	Peek() T
}

// AnyRef is the untyped view over refs and computed refs used by code that
// only knows values at runtime, such as the host binding layer.
type AnyRef interface {
	SignalAware
	AnyValue() any
	PeekAny() any
	SetAnyValue(v any) error
	Writable() bool
}

type subscriber interface {
	SignalAware
	flags() subscriberFlags
	setFlags(subscriberFlags)
	base() *baseSubscriber
	notify()
}

type source struct {
	dep     *Dep
	version uint64
}

type baseSubscriber struct {
	_flags  subscriberFlags
	sources []source
}

func (b *baseSubscriber) flags() subscriberFlags {
	return b._flags
}

func (b *baseSubscriber) setFlags(f subscriberFlags) {
	b._flags = f
}

func (b *baseSubscriber) base() *baseSubscriber {
	return b
}

// record remembers dep as a source for the current run. It reports false when
// dep was already recorded.
func (b *baseSubscriber) record(dep *Dep) bool {
	for _, s := range b.sources {
		if s.dep == dep {
			return false
		}
	}
	b.sources = append(b.sources, source{dep: dep, version: dep.version})
	return true
}

// unsubscribe detaches sub from every recorded source and forgets them.
func (b *baseSubscriber) unsubscribe(sub subscriber) {
	for _, s := range b.sources {
		s.dep.remove(sub)
	}
	b.sources = b.sources[:0]
}

// resubscribe re-attaches sub to every recorded source. Used when a stale
// computed proves to be unchanged and skips its recompute.
func (b *baseSubscriber) resubscribe(sub subscriber) {
	for _, s := range b.sources {
		s.dep.add(sub)
	}
}
