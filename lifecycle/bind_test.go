package lifecycle_test

import (
	"reflect"
	"testing"

	"github.com/delaneyj/hookparty/lifecycle"
	"github.com/delaneyj/hookparty/reactive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileHost struct {
	Name     string
	Age      int
	Label    string `hook:"label"`
	Greeting string
	Counter  *reactive.Ref[int]
	Score    int64
	Address  address
	internal int
}

type address struct {
	City string
	Zip  string
}

func TestBindRefsAndPlainValues(t *testing.T) {
	det := &mockDetector{}
	_, rt := newRuntime(t, lifecycle.WithChangeDetector(det))
	rs := rt.System()

	host := &profileHost{}
	c := rt.NewContext(host, nil)
	det.On("MarkDirty", c).Return()

	name := reactive.NewRef(rs, "ada")
	counter := reactive.NewRef(rs, 0)
	greeting := reactive.Computed(rs, func(string) string { return "hello " + name.Value() })
	require.NoError(t, rt.OnConnect(c, func(c *lifecycle.Context) (lifecycle.Bindings, error) {
		return lifecycle.Bindings{
			"Name":     name,
			"Age":      36,
			"label":    "engineer",
			"Greeting": greeting,
			"Counter":  counter,
		}, nil
	}))

	assert.Equal(t, "ada", host.Name)
	assert.Equal(t, 36, host.Age)
	assert.Equal(t, "engineer", host.Label)
	assert.Equal(t, "hello ada", host.Greeting)
	assert.Same(t, counter, host.Counter, "a ref bound to a field of its own type is stored as is")
	det.AssertNotCalled(t, "MarkDirty", c)

	name.SetValue("grace")
	assert.Equal(t, "grace", host.Name, "ref writes reach the host before any phase")
	assert.Equal(t, "hello grace", host.Greeting)
	det.AssertCalled(t, "MarkDirty", c)

	host.Name = "hopper"
	assert.Equal(t, "grace", name.Peek())
	require.NoError(t, rt.OnCheck(c))
	assert.Equal(t, "hopper", name.Peek(), "host writes reach the ref on Check")
	assert.Equal(t, "hello hopper", host.Greeting)
}

func TestBindCheckHookRunsBeforeUserHooks(t *testing.T) {
	_, rt := newRuntime(t)
	rs := rt.System()

	host := &profileHost{}
	c := rt.NewContext(host, nil)

	name := reactive.NewRef(rs, "ada")
	var seen []string
	require.NoError(t, rt.OnConnect(c, func(c *lifecycle.Context) (lifecycle.Bindings, error) {
		if err := rt.DoCheck(func(reactive.OnInvalidateFunc) error {
			seen = append(seen, name.Peek())
			return nil
		}); err != nil {
			return nil, err
		}
		return lifecycle.Bindings{"Name": name}, nil
	}))

	host.Name = "grace"
	require.NoError(t, rt.OnCheck(c))
	assert.Equal(t, []string{"grace"}, seen)
	assert.Equal(t, 2, c.Hooks(lifecycle.PhaseCheck))
}

func TestBindingErrors(t *testing.T) {
	hostType := reflect.TypeOf(&profileHost{})

	for _, tc := range []struct {
		name     string
		bindings func(rs *reactive.ReactiveSystem) lifecycle.Bindings
		field    string
		err      error
	}{
		{
			name:     "unknown field",
			bindings: func(*reactive.ReactiveSystem) lifecycle.Bindings { return lifecycle.Bindings{"Missing": 1} },
			field:    "Missing",
			err:      lifecycle.ErrUnknownField,
		},
		{
			name:     "unexported field",
			bindings: func(*reactive.ReactiveSystem) lifecycle.Bindings { return lifecycle.Bindings{"internal": 1} },
			field:    "internal",
			err:      lifecycle.ErrUnsettableField,
		},
		{
			name:     "tagged field by Go name",
			bindings: func(*reactive.ReactiveSystem) lifecycle.Bindings { return lifecycle.Bindings{"Label": "x"} },
			field:    "Label",
			err:      lifecycle.ErrUnknownField,
		},
		{
			name: "ref of wrong type",
			bindings: func(rs *reactive.ReactiveSystem) lifecycle.Bindings {
				return lifecycle.Bindings{"Age": reactive.NewRef(rs, "old")}
			},
			field: "Age",
			err:   reactive.ErrTypeMismatch,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, rt := newRuntime(t)
			c := rt.NewContext(&profileHost{}, nil)

			err := rt.OnConnect(c, func(c *lifecycle.Context) (lifecycle.Bindings, error) {
				return tc.bindings(rt.System()), nil
			})
			require.Error(t, err)
			var bindErr *lifecycle.BindingError
			require.ErrorAs(t, err, &bindErr)
			assert.Equal(t, tc.field, bindErr.Field)
			assert.Equal(t, hostType, bindErr.Host)
			assert.ErrorIs(t, err, tc.err)
			assert.Contains(t, err.Error(), tc.field)
			assert.Contains(t, err.Error(), "profileHost")
			assert.False(t, c.Connected())
		})
	}
}

func TestBindDecodesPlainValues(t *testing.T) {
	_, rt := newRuntime(t)
	host := &profileHost{}
	c := rt.NewContext(host, nil)

	require.NoError(t, rt.OnConnect(c, func(c *lifecycle.Context) (lifecycle.Bindings, error) {
		return lifecycle.Bindings{
			"Score":   7,
			"Address": map[string]any{"City": "Paris", "Zip": "75001"},
		}, nil
	}))
	assert.Equal(t, int64(7), host.Score)
	assert.Equal(t, address{City: "Paris", Zip: "75001"}, host.Address)
}

func TestBindPlainValueOfWrongType(t *testing.T) {
	_, rt := newRuntime(t)
	c := rt.NewContext(&profileHost{}, nil)

	err := rt.OnConnect(c, func(c *lifecycle.Context) (lifecycle.Bindings, error) {
		return lifecycle.Bindings{"Age": "thirty"}, nil
	})
	var bindErr *lifecycle.BindingError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, "Age", bindErr.Field)
}

func TestBindNeedsStructPointerHost(t *testing.T) {
	_, rt := newRuntime(t)
	c := rt.NewContext(nil, nil)

	err := rt.OnConnect(c, func(c *lifecycle.Context) (lifecycle.Bindings, error) {
		return lifecycle.Bindings{"Name": "x"}, nil
	})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidHost)
}
