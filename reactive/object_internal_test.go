package reactive

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyCacheDropsCollectedProxies(t *testing.T) {
	rs := CreateReactiveSystem(nil)

	func() {
		p, err := Reactive(rs, &struct{ A int }{A: 1})
		require.NoError(t, err)
		require.NotNil(t, p)
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()
		return rs.proxies.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestProxyCacheKeepsLiveProxies(t *testing.T) {
	rs := CreateReactiveSystem(nil)

	raw := &struct{ A int }{A: 1}
	p, err := Reactive(rs, raw)
	require.NoError(t, err)

	runtime.GC()
	runtime.GC()
	again, err := Reactive(rs, raw)
	require.NoError(t, err)
	assert.Same(t, p, again)
	assert.Equal(t, 1, rs.proxies.Len())
	runtime.KeepAlive(p)
}
