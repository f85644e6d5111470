package reactive_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/delaneyj/hookparty/reactive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City string
	Zip  string
}

type user struct {
	Name    string
	Age     int
	Address *address
	Tags    []string
	Score   *reactive.Ref[int]
	secret  string
}

type frozenConfig struct {
	Value string
}

func (frozenConfig) Frozen() bool { return true }

type handle struct {
	ID int
}

func TestReactiveIdentityIsStable(t *testing.T) {
	rs := newSystem(t)

	u := &user{Name: "ada"}
	p1, err := reactive.Reactive(rs, u)
	require.NoError(t, err)
	p2, err := reactive.Reactive(rs, u)
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	p3, err := reactive.Reactive(rs, p1)
	require.NoError(t, err)
	assert.Same(t, p1, p3, "wrapping a proxy returns it")
	assert.Same(t, p1, reactive.Wrap(rs, p1))
	assert.Same(t, u, p1.Raw())
	assert.Same(t, u, reactive.ToRaw(p1))

	other, err := reactive.Reactive(rs, &user{Name: "ada"})
	require.NoError(t, err)
	assert.NotSame(t, p1, other)
}

func TestShallowAndDeepProxiesShareDependencies(t *testing.T) {
	rs := newSystem(t)

	u := &user{Name: "ada"}
	deep, err := reactive.Reactive(rs, u)
	require.NoError(t, err)
	shallow, err := reactive.ShallowReactive(rs, u)
	require.NoError(t, err)
	assert.NotSame(t, deep, shallow)
	assert.True(t, shallow.IsShallow())
	assert.False(t, deep.IsShallow())

	var seen string
	_, err = reactive.CreateEffect(rs, func(reactive.OnInvalidateFunc) error {
		seen, _ = shallow.Get("Name").(string)
		return nil
	}, reactive.WithFlush(reactive.FlushSync))
	require.NoError(t, err)

	require.NoError(t, deep.Set("Name", "grace"))
	assert.Equal(t, "grace", seen)
}

func TestUnobservableValuesPassThrough(t *testing.T) {
	rs := newSystem(t)

	for name, v := range map[string]any{
		"int":        42,
		"string":     "s",
		"struct":     address{City: "x"},
		"nil map":    map[string]int(nil),
		"int keys":   map[int]string{1: "a"},
		"time":       &time.Time{},
		"big int":    big.NewInt(3),
		"frozen":     &frozenConfig{},
		"nil":        nil,
		"ref":        reactive.NewRef(rs, 1),
		"nil struct": (*user)(nil),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := reactive.Reactive(rs, v)
			assert.ErrorIs(t, err, reactive.ErrNotObservable)
			assert.Equal(t, v, reactive.Wrap(rs, v))
		})
	}
}

func TestMarkRaw(t *testing.T) {
	rs := newSystem(t)

	h := &handle{ID: 1}
	_, err := reactive.Reactive(rs, h)
	require.NoError(t, err)

	reactive.MarkRaw[handle](rs)
	_, err = reactive.Reactive(rs, &handle{ID: 2})
	assert.ErrorIs(t, err, reactive.ErrNotObservable)
}

func TestObjectGetSetTracks(t *testing.T) {
	rs := newSystem(t)

	p, err := reactive.Reactive(rs, &user{Name: "ada", Age: 36})
	require.NoError(t, err)

	runs := 0
	var age int
	_, err = reactive.CreateEffect(rs, func(reactive.OnInvalidateFunc) error {
		runs++
		age = reactive.Field[int](p, "Age")
		return nil
	}, reactive.WithFlush(reactive.FlushSync))
	require.NoError(t, err)

	require.NoError(t, p.Set("Age", 36))
	assert.Equal(t, 1, runs, "same value does not trigger")

	require.NoError(t, p.Set("Name", "grace"))
	assert.Equal(t, 1, runs, "untracked key does not trigger")

	require.NoError(t, p.Set("Age", 37))
	assert.Equal(t, 2, runs)
	assert.Equal(t, 37, age)
}

func TestObjectSetErrors(t *testing.T) {
	rs := newSystem(t)

	p, err := reactive.Reactive(rs, &user{})
	require.NoError(t, err)

	assert.ErrorIs(t, p.Set("Missing", 1), reactive.ErrUnknownKey)
	assert.ErrorIs(t, p.Set("secret", "x"), reactive.ErrUnknownKey)
	assert.ErrorIs(t, p.Set("Age", "old"), reactive.ErrTypeMismatch)
	assert.ErrorIs(t, p.Set("Age", nil), reactive.ErrTypeMismatch)
	assert.NoError(t, p.Set("Address", nil))

	_, err = p.Delete("Age")
	assert.ErrorIs(t, err, reactive.ErrUnknownKey)
	assert.Nil(t, p.Get("Missing"))
	assert.False(t, p.Has("secret"))
	assert.True(t, p.Has("Age"))
}

func TestDeepProxyWrapsNestedObjects(t *testing.T) {
	rs := newSystem(t)

	u := &user{Address: &address{City: "London"}}
	p, err := reactive.Reactive(rs, u)
	require.NoError(t, err)

	addr, ok := p.Get("Address").(*reactive.Object)
	require.True(t, ok)
	assert.Same(t, addr, p.Get("Address"), "nested proxies are stable too")

	var city string
	_, err = reactive.CreateEffect(rs, func(reactive.OnInvalidateFunc) error {
		city = reactive.Field[string](reactive.Field[*reactive.Object](p, "Address"), "City")
		return nil
	}, reactive.WithFlush(reactive.FlushSync))
	require.NoError(t, err)

	require.NoError(t, addr.Set("City", "Paris"))
	assert.Equal(t, "Paris", city)
	assert.Equal(t, "Paris", u.Address.City)

	require.NoError(t, p.Set("Address", &address{City: "Rome"}))
	assert.Equal(t, "Rome", city)

	shallow, err := reactive.ShallowReactive(rs, u)
	require.NoError(t, err)
	_, isProxy := shallow.Get("Address").(*reactive.Object)
	assert.False(t, isProxy)
}

func TestDeepProxyUnwrapsRefs(t *testing.T) {
	rs := newSystem(t)

	score := reactive.NewRef(rs, 1)
	p, err := reactive.Reactive(rs, &user{Score: score})
	require.NoError(t, err)

	var seen int
	_, err = reactive.CreateEffect(rs, func(reactive.OnInvalidateFunc) error {
		seen = reactive.Field[int](p, "Score")
		return nil
	}, reactive.WithFlush(reactive.FlushSync))
	require.NoError(t, err)

	score.SetValue(2)
	assert.Equal(t, 2, seen)

	require.NoError(t, p.Set("Score", 5))
	assert.Equal(t, 5, score.Peek())
	assert.Equal(t, 5, seen)

	shallow, err := reactive.ShallowReactive(rs, p.Raw())
	require.NoError(t, err)
	assert.Same(t, score, shallow.Get("Score"))
}

func TestSliceFieldsCompareByBackingArray(t *testing.T) {
	rs := newSystem(t)

	tags := []string{"a"}
	p, err := reactive.Reactive(rs, &user{Tags: tags})
	require.NoError(t, err)

	runs := 0
	_, err = reactive.CreateEffect(rs, func(reactive.OnInvalidateFunc) error {
		runs++
		p.Get("Tags")
		return nil
	}, reactive.WithFlush(reactive.FlushSync))
	require.NoError(t, err)

	require.NoError(t, p.Set("Tags", tags))
	assert.Equal(t, 1, runs)
	require.NoError(t, p.Set("Tags", append(tags, "b")))
	assert.Equal(t, 2, runs)
}

func TestMapProxy(t *testing.T) {
	rs := newSystem(t)

	m := map[string]int{"a": 1}
	p, err := reactive.Reactive(rs, m)
	require.NoError(t, err)

	keyRuns, valueRuns := 0, 0
	var keys []string
	_, err = reactive.CreateEffect(rs, func(reactive.OnInvalidateFunc) error {
		keyRuns++
		keys = p.Keys()
		return nil
	}, reactive.WithFlush(reactive.FlushSync))
	require.NoError(t, err)
	_, err = reactive.CreateEffect(rs, func(reactive.OnInvalidateFunc) error {
		valueRuns++
		p.Get("a")
		return nil
	}, reactive.WithFlush(reactive.FlushSync))
	require.NoError(t, err)

	require.NoError(t, p.Set("a", 2))
	assert.Equal(t, 1, keyRuns, "changing a value keeps the key set")
	assert.Equal(t, 2, valueRuns)

	require.NoError(t, p.Set("b", 3))
	assert.Equal(t, 2, keyRuns)
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, 3, m["b"])

	deleted, err := p.Delete("a")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 3, keyRuns)
	assert.Equal(t, 3, valueRuns)
	assert.Equal(t, []string{"b"}, keys)
	assert.Nil(t, p.Get("a"))

	deleted, err = p.Delete("a")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, 3, keyRuns)
}

func TestStructKeys(t *testing.T) {
	rs := newSystem(t)

	p, err := reactive.Reactive(rs, &address{})
	require.NoError(t, err)
	assert.Equal(t, []string{"City", "Zip"}, p.Keys())
	assert.Equal(t, "Reactive(*reactive_test.address)", p.String())
}

func TestSameValue(t *testing.T) {
	s := []int{1, 2}
	m := map[string]int{}
	fn := func() {}

	assert.True(t, reactive.SameValue(1, 1))
	assert.False(t, reactive.SameValue(1, int64(1)))
	assert.True(t, reactive.SameValue(nil, nil))
	assert.False(t, reactive.SameValue(nil, 0))
	assert.True(t, reactive.SameValue(s, s))
	assert.False(t, reactive.SameValue(s, s[:1]))
	assert.False(t, reactive.SameValue(s, []int{1, 2}))
	assert.True(t, reactive.SameValue(m, m))
	assert.False(t, reactive.SameValue(m, map[string]int{}))
	assert.True(t, reactive.SameValue(fn, fn))
	assert.False(t, reactive.SameValue(any([]any{1}), any([]any{1})))
	assert.False(t, reactive.SameValue(struct{ F any }{F: []int{}}, struct{ F any }{F: []int{}}))
}
