package reactive

// WatchCallback receives the new and previous value of a watched source.
type WatchCallback[T any] func(newValue, oldValue T, onInvalidate OnInvalidateFunc) error

// AnySource is an untyped reactive source for WatchMany.
type AnySource interface {
	AnyValue() any
}

// watchSources drives every watcher. read runs inside the tracking scope,
// records the new values and returns whether any moved along with the call
// that fires the user callback. The callback runs untracked, and never on the
// subscribing run unless Immediate was given.
func watchSources(rs *ReactiveSystem, read func() (changed bool, fire func(OnInvalidateFunc) error), opts []EffectOption) (*EffectRunner, error) {
	cfg := newEffectConfig(opts)
	first := true
	return CreateEffect(rs, func(onInvalidate OnInvalidateFunc) error {
		changed, fire := read()
		subscribing := first
		first = false
		if subscribing && !cfg.immediate {
			return nil
		}
		if !subscribing && !changed {
			return nil
		}

		var err error
		rs.Untracked(func() {
			err = fire(onInvalidate)
		})
		return err
	}, opts...)
}

// Watch calls cb with (new, old) each time source changes after the call to
// Watch. Stopping the returned runner unsubscribes it. source is any ref or
// computed ref, passed as is.
func Watch[T comparable, S Readable[T]](rs *ReactiveSystem, source S, cb WatchCallback[T], opts ...EffectOption) (*EffectRunner, error) {
	var last T
	return watchSources(rs, func() (bool, func(OnInvalidateFunc) error) {
		next := source.Value()
		prev := last
		last = next
		return next != prev, func(onInvalidate OnInvalidateFunc) error {
			return cb(next, prev, onInvalidate)
		}
	}, opts)
}

// WatchMany watches several untyped sources at once. cb receives fresh slices
// on every call.
func WatchMany(rs *ReactiveSystem, sources []AnySource, cb WatchCallback[[]any], opts ...EffectOption) (*EffectRunner, error) {
	last := make([]any, len(sources))
	return watchSources(rs, func() (bool, func(OnInvalidateFunc) error) {
		next := make([]any, len(sources))
		changed := false
		for i, src := range sources {
			next[i] = src.AnyValue()
			if !SameValue(next[i], last[i]) {
				changed = true
			}
		}
		prev := last
		last = next
		return changed, func(onInvalidate OnInvalidateFunc) error {
			return cb(append([]any(nil), next...), prev, onInvalidate)
		}
	}, opts)
}
