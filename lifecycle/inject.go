package lifecycle

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/delaneyj/hookparty/reactive"
)

// Token identifies an injectable value. Tokens with the same name are equal.
type Token struct {
	name string
	id   uint64
}

func NewToken(name string) Token {
	return Token{name: name, id: xxhash.Sum64String(name)}
}

func (t Token) Name() string {
	return t.name
}

func (t Token) ID() uint64 {
	return t.id
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s)", t.name)
}

// InjectFlags select the lookup rules of the host injector. They are passed
// through untouched.
type InjectFlags uint8

const (
	InjectDefault InjectFlags = 0
	InjectSelf    InjectFlags = 1 << (iota - 1)
	InjectHost
	InjectSkipSelf
	InjectOptional
)

func (f InjectFlags) String() string {
	if f == InjectDefault {
		return "default"
	}
	names := []string{"self", "host", "skipSelf", "optional"}
	s := ""
	for i, name := range names {
		if f&(1<<i) == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += name
	}
	return s
}

// Injector is the host's dependency lookup.
type Injector interface {
	Get(token Token, flags InjectFlags) (any, error)
}

// InjectorFunc adapts a function to Injector.
type InjectorFunc func(token Token, flags InjectFlags) (any, error)

func (f InjectorFunc) Get(token Token, flags InjectFlags) (any, error) {
	return f(token, flags)
}

// Inject resolves token against the injector of the active context.
func (rt *Runtime) Inject(token Token, flags InjectFlags) (any, error) {
	c, err := rt.ActiveContext()
	if err != nil {
		return nil, err
	}
	if c.injector == nil {
		if flags&InjectOptional != 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: resolving %s", ErrNoInjector, token)
	}
	return c.injector.Get(token, flags)
}

// InjectAs is Inject with the result asserted to T. A missing optional value
// yields the zero T.
func InjectAs[T any](rt *Runtime, token Token, flags InjectFlags) (T, error) {
	var zero T
	v, err := rt.Inject(token, flags)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s resolved to %T, want %T", reactive.ErrTypeMismatch, token, v, zero)
	}
	return t, nil
}
