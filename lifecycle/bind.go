package lifecycle

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/delaneyj/hookparty/reactive"
	"github.com/go-viper/mapstructure/v2"
)

// bindTag overrides the binding name of a host field.
const bindTag = "hook"

// Bindings is what setup exposes to the host, keyed by field name or by the
// `hook` tag of the field.
type Bindings map[string]any

// bind puts each binding on the host. Refs stay synchronized both ways for
// the life of the context. Plain values are assigned once, decoded into the
// field's type when they do not already have it.
func (rt *Runtime) bind(c *Context, b Bindings) error {
	if len(b) == 0 {
		return nil
	}
	hostType := reflect.TypeOf(c.host)
	hv := reflect.ValueOf(c.host)
	if hv.Kind() != reflect.Pointer || hv.IsNil() || hv.Elem().Kind() != reflect.Struct {
		return &BindingError{Host: hostType, Err: ErrInvalidHost}
	}

	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := b[key]
		field, sf, err := hostField(hv.Elem(), key)
		if err != nil {
			return &BindingError{Field: key, Host: hostType, Err: err}
		}
		ref, isRef := v.(reactive.AnyRef)
		switch {
		case v == nil || reflect.TypeOf(v).AssignableTo(sf.Type):
			err = setField(field, v)
		case isRef:
			if err := rt.bindRef(c, key, field, ref); err != nil {
				return err
			}
		default:
			err = decodeField(c.host, sf, v)
		}
		if err != nil {
			return &BindingError{Field: key, Host: hostType, Err: err}
		}
	}
	return nil
}

// bindRef mirrors ref into field with a sync effect, so the field is current
// before the host reads it, and for writable refs registers a Check hook that
// copies host-side writes of the field back into ref.
func (rt *Runtime) bindRef(c *Context, key string, field reflect.Value, ref reactive.AnyRef) error {
	hostType := reflect.TypeOf(c.host)
	if err := canHold(field.Type(), ref.PeekAny()); err != nil {
		return &BindingError{Field: key, Host: hostType, Err: err}
	}

	first := true
	_, err := reactive.CreateEffect(rt.rs, func(reactive.OnInvalidateFunc) error {
		if err := setField(field, ref.AnyValue()); err != nil {
			return &BindingError{Field: key, Host: hostType, Err: err}
		}
		if !first {
			rt.markDirty(c)
		}
		first = false
		return nil
	},
		reactive.WithFlush(reactive.FlushSync),
		reactive.WithScope(c),
		reactive.WithName("bind "+key),
	)
	if err != nil {
		return err
	}

	if !ref.Writable() {
		return nil
	}
	c.prependHook(PhaseCheck, "sync "+key, func(reactive.OnInvalidateFunc) error {
		current := field.Interface()
		if reactive.SameValue(current, ref.PeekAny()) {
			return nil
		}
		return ref.SetAnyValue(current)
	})
	return nil
}

// hostField finds the exported field bound to key: a field whose `hook` tag
// names key, or else the field called key.
func hostField(host reflect.Value, key string) (reflect.Value, reflect.StructField, error) {
	t := host.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if name, _, _ := strings.Cut(sf.Tag.Get(bindTag), ","); name == key {
			return host.Field(i), sf, nil
		}
	}
	sf, ok := t.FieldByName(key)
	if !ok {
		return reflect.Value{}, reflect.StructField{}, ErrUnknownField
	}
	if !sf.IsExported() {
		return reflect.Value{}, reflect.StructField{}, ErrUnsettableField
	}
	if name, _, _ := strings.Cut(sf.Tag.Get(bindTag), ","); name != "" && name != key {
		return reflect.Value{}, reflect.StructField{}, fmt.Errorf("%w: field %s is bound as %q", ErrUnknownField, sf.Name, name)
	}
	f := host.FieldByIndex(sf.Index)
	if !f.CanSet() {
		return reflect.Value{}, reflect.StructField{}, ErrUnsettableField
	}
	return f, sf, nil
}

// decodeField decodes v into the single field sf of host.
func decodeField(host any, sf reflect.StructField, v any) error {
	key := sf.Name
	if name, _, _ := strings.Cut(sf.Tag.Get(bindTag), ","); name != "" {
		key = name
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     bindTag,
		ErrorUnused: true,
		Result:      host,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any{key: v})
}

func canHold(t reflect.Type, v any) error {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return nil
		}
		return fmt.Errorf("%w: nil is not a %s", reactive.ErrTypeMismatch, t)
	}
	vt := reflect.TypeOf(v)
	if vt.AssignableTo(t) || (vt.Kind() == t.Kind() && vt.ConvertibleTo(t)) {
		return nil
	}
	return fmt.Errorf("%w: %s is not a %s", reactive.ErrTypeMismatch, vt, t)
}

func setField(field reflect.Value, v any) error {
	if err := canHold(field.Type(), v); err != nil {
		return err
	}
	if v == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(field.Type()) {
		rv = rv.Convert(field.Type())
	}
	field.Set(rv)
	return nil
}
