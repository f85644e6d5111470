package reactive

import (
	"fmt"
	"math/big"
	"reflect"
	"regexp"
	"runtime"
	"sort"
	"sync"
	"time"
	"weak"

	mapset "github.com/deckarep/golang-set/v2"
)

const iterateKey = "\x00iterate"

// Frozen lets a type opt out of being wrapped by Reactive and Wrap.
type Frozen interface {
	Frozen() bool
}

// Object is a reactive proxy over a pointer to struct or a map with string
// keys. Reads through Get record a dependency on (raw, key); writes through
// Set trigger it when the stored value actually changes. Go has no property
// interception, so only access through the proxy is observed.
type Object struct {
	deps    *Observable
	rs      *ReactiveSystem
	raw     reflect.Value
	shallow bool
}

func (o *Object) isSignalAware() {}

func (o *Object) depFor(key string, create bool) *Dep {
	return o.deps.depFor(key, create)
}

// Reactive returns the deep proxy for raw. Wrapping the same raw value again,
// or wrapping a proxy, returns the existing proxy.
func Reactive(rs *ReactiveSystem, raw any) (*Object, error) {
	return rs.wrap(raw, false)
}

// ShallowReactive is Reactive without wrapping nested objects on read.
func ShallowReactive(rs *ReactiveSystem, raw any) (*Object, error) {
	return rs.wrap(raw, true)
}

// Wrap returns the deep proxy for v when v can be observed, and v itself
// otherwise. Scalars, refs, effects, frozen values and registered raw types
// pass through unchanged.
func Wrap(rs *ReactiveSystem, v any) any {
	if o, ok := v.(*Object); ok {
		return o
	}
	if _, ok := rs.observable(v); !ok {
		return v
	}
	o, _ := rs.wrap(v, false)
	return o
}

// ToRaw returns the value behind a proxy, or v itself.
func ToRaw(v any) any {
	if o, ok := v.(*Object); ok {
		return o.Raw()
	}
	return v
}

// MarkRaw registers T as a type that is never wrapped.
func MarkRaw[T any](rs *ReactiveSystem) {
	rs.rawTypes.Add(reflect.TypeFor[T]())
}

func defaultRawTypes() mapset.Set[reflect.Type] {
	return mapset.NewThreadUnsafeSet(
		reflect.TypeFor[time.Time](),
		reflect.TypeFor[time.Location](),
		reflect.TypeFor[regexp.Regexp](),
		reflect.TypeFor[big.Int](),
		reflect.TypeFor[big.Float](),
		reflect.TypeFor[big.Rat](),
		reflect.TypeFor[sync.Mutex](),
		reflect.TypeFor[sync.RWMutex](),
		reflect.TypeFor[sync.WaitGroup](),
		reflect.TypeFor[sync.Once](),
		reflect.TypeFor[reflect.Value](),
	)
}

func (rs *ReactiveSystem) observable(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	if _, ok := v.(SignalAware); ok {
		return reflect.Value{}, false
	}
	if f, ok := v.(Frozen); ok && f.Frozen() {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	if rs.rawTypes.Contains(rv.Type()) {
		return reflect.Value{}, false
	}
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		elem := rv.Type().Elem()
		if elem.Kind() != reflect.Struct || elem.Size() == 0 || rs.rawTypes.Contains(elem) {
			return reflect.Value{}, false
		}
		return rv, true
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		return rv, true
	}
	return reflect.Value{}, false
}

func (rs *ReactiveSystem) wrap(v any, shallow bool) (*Object, error) {
	if o, ok := v.(*Object); ok {
		return o, nil
	}
	rv, ok := rs.observable(v)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotObservable, v)
	}

	key := proxyKey{addr: uintptr(rv.UnsafePointer()), typ: rv.Type()}
	mode := modeOf(shallow)
	if o := rs.proxies.lookup(key, mode); o != nil {
		return o, nil
	}

	deps := &Observable{}
	if sibling := rs.proxies.lookup(key, 1-mode); sibling != nil {
		deps = sibling.deps
	}
	o := &Object{
		deps:    deps,
		rs:      rs,
		raw:     rv,
		shallow: shallow,
	}
	rs.proxies.store(key, mode, o)
	return o, nil
}

// Raw returns the wrapped pointer or map.
func (o *Object) Raw() any {
	return o.raw.Interface()
}

func (o *Object) IsShallow() bool {
	return o.shallow
}

func (o *Object) isMap() bool {
	return o.raw.Kind() == reflect.Map
}

func (o *Object) field(key string) (reflect.Value, bool) {
	sf, ok := o.raw.Type().Elem().FieldByName(key)
	if !ok || !sf.IsExported() {
		return reflect.Value{}, false
	}
	return o.raw.Elem().FieldByIndex(sf.Index), true
}

func (o *Object) mapKey(key string) reflect.Value {
	return reflect.ValueOf(key).Convert(o.raw.Type().Key())
}

// Get reads key and records the dependency. Deep proxies unwrap refs stored
// in the raw value and wrap nested objects.
func (o *Object) Get(key string) any {
	o.rs.Track(o, key)

	var v reflect.Value
	if o.isMap() {
		v = o.raw.MapIndex(o.mapKey(key))
	} else {
		f, ok := o.field(key)
		if !ok {
			return nil
		}
		v = f
	}
	if !v.IsValid() {
		return nil
	}

	out := v.Interface()
	if o.shallow {
		return out
	}
	if ref, ok := out.(AnyRef); ok {
		return ref.AnyValue()
	}
	return Wrap(o.rs, out)
}

// Field reads key through o and asserts it to V.
func Field[V any](o *Object, key string) V {
	v, _ := o.Get(key).(V)
	return v
}

// Set writes key. Writing a value identical to the stored one does not
// trigger. On deep proxies, writing a plain value over a stored ref writes
// through to the ref.
func (o *Object) Set(key string, v any) error {
	v = ToRaw(v)

	if o.isMap() {
		mk := o.mapKey(key)
		old := o.raw.MapIndex(mk)
		if old.IsValid() && !o.shallow {
			if ref, ok := old.Interface().(AnyRef); ok && !IsRef(v) {
				return ref.SetAnyValue(v)
			}
		}
		nv, err := assignable(v, o.raw.Type().Elem())
		if err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
		if old.IsValid() && SameValue(old.Interface(), nv.Interface()) {
			return nil
		}
		o.raw.SetMapIndex(mk, nv)
		o.rs.Batch(func() {
			o.rs.Trigger(o, key)
			if !old.IsValid() {
				o.rs.Trigger(o, iterateKey)
			}
		})
		return nil
	}

	f, ok := o.field(key)
	if !ok {
		return fmt.Errorf("%w: %q on %s", ErrUnknownKey, key, o.raw.Type())
	}
	old := f.Interface()
	if !o.shallow {
		if ref, ok := old.(AnyRef); ok && !IsRef(v) {
			return ref.SetAnyValue(v)
		}
	}
	nv, err := assignable(v, f.Type())
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	if SameValue(old, nv.Interface()) {
		return nil
	}
	f.Set(nv)
	o.rs.Trigger(o, key)
	return nil
}

// Has reports whether key exists and records the dependency.
func (o *Object) Has(key string) bool {
	o.rs.Track(o, key)
	if o.isMap() {
		return o.raw.MapIndex(o.mapKey(key)).IsValid()
	}
	_, ok := o.field(key)
	return ok
}

// Delete removes key from a map proxy. Struct fields cannot be deleted.
func (o *Object) Delete(key string) (bool, error) {
	if !o.isMap() {
		return false, fmt.Errorf("%w: cannot delete field %q of %s", ErrUnknownKey, key, o.raw.Type())
	}
	mk := o.mapKey(key)
	if !o.raw.MapIndex(mk).IsValid() {
		return false, nil
	}
	o.raw.SetMapIndex(mk, reflect.Value{})
	o.rs.Batch(func() {
		o.rs.Trigger(o, key)
		o.rs.Trigger(o, iterateKey)
	})
	return true, nil
}

// Keys lists exported field names in declaration order, or map keys sorted,
// and records a dependency on the key set.
func (o *Object) Keys() []string {
	o.rs.Track(o, iterateKey)
	if o.isMap() {
		keys := make([]string, 0, o.raw.Len())
		iter := o.raw.MapRange()
		for iter.Next() {
			keys = append(keys, iter.Key().String())
		}
		sort.Strings(keys)
		return keys
	}
	t := o.raw.Type().Elem()
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if sf := t.Field(i); sf.IsExported() {
			keys = append(keys, sf.Name)
		}
	}
	return keys
}

func (o *Object) String() string {
	return fmt.Sprintf("Reactive(%s)", o.raw.Type())
}

func assignable(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("%w: nil is not a %s", ErrTypeMismatch, t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Kind() == t.Kind() && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s is not a %s", ErrTypeMismatch, rv.Type(), t)
}

// SameValue reports whether a and b are the same value for change detection:
// equal comparable values, or the same backing store for slices, maps and
// funcs.
func SameValue(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		defer func() {
			if recover() != nil {
				same = false
			}
		}()
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Slice:
		return va.Len() == vb.Len() && va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Map, reflect.Func:
		return va.UnsafePointer() == vb.UnsafePointer()
	}
	return false
}

type proxyMode int

const (
	deepMode proxyMode = iota
	shallowMode
)

func modeOf(shallow bool) proxyMode {
	if shallow {
		return shallowMode
	}
	return deepMode
}

type proxyKey struct {
	addr uintptr
	typ  reflect.Type
}

type proxyEntry struct {
	proxies [2]weak.Pointer[Object]
}

type evictArg struct {
	key  proxyKey
	mode proxyMode
}

// proxyCache maps raw values to their proxies without keeping either alive.
// A live proxy holds its raw value, so an entry whose proxy is still
// reachable can never point at a recycled address. Entries are evicted by a
// cleanup attached to the proxy, which runs on another goroutine.
type proxyCache struct {
	mu      sync.Mutex
	entries map[proxyKey]*proxyEntry
}

func newProxyCache() *proxyCache {
	return &proxyCache{entries: make(map[proxyKey]*proxyEntry)}
}

func (pc *proxyCache) lookup(key proxyKey, mode proxyMode) *Object {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	e, ok := pc.entries[key]
	if !ok {
		return nil
	}
	return e.proxies[mode].Value()
}

func (pc *proxyCache) store(key proxyKey, mode proxyMode, o *Object) {
	pc.mu.Lock()
	e, ok := pc.entries[key]
	if !ok {
		e = &proxyEntry{}
		pc.entries[key] = e
	}
	e.proxies[mode] = weak.Make(o)
	pc.mu.Unlock()

	runtime.AddCleanup(o, pc.evict, evictArg{key: key, mode: mode})
}

func (pc *proxyCache) evict(arg evictArg) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	e, ok := pc.entries[arg.key]
	if !ok {
		return
	}
	if e.proxies[arg.mode].Value() == nil {
		e.proxies[arg.mode] = weak.Pointer[Object]{}
	}
	if e.proxies[deepMode].Value() == nil && e.proxies[shallowMode].Value() == nil {
		delete(pc.entries, arg.key)
	}
}

// Len returns the number of raw values with a live proxy.
func (pc *proxyCache) Len() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.entries)
}
