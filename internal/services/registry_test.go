package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterSupersedes(t *testing.T) {
	r := NewConnRegistry()
	first := &fakeChannel{}
	second := &fakeChannel{}

	r.Register("u1", first)
	r.Register("u1", second)

	assert.True(t, first.Closed())
	assert.False(t, second.Closed())
	assert.Equal(t, 1, r.Count())

	// the stale connection's teardown must not evict its replacement
	assert.False(t, r.Release("u1", first))
	assert.True(t, r.IsOnline("u1"))

	require.NoError(t, r.Send("u1", WSMessage{Type: "ping"}))
	assert.Equal(t, 1, second.Sent())
	assert.Equal(t, 0, first.Sent())

	assert.True(t, r.Release("u1", second))
	assert.False(t, r.IsOnline("u1"))
}

func TestRegistrySend(t *testing.T) {
	r := NewConnRegistry()

	err := r.Send("nobody", WSMessage{Type: "notification"})
	assert.ErrorIs(t, err, ErrNotConnected)

	broken := &fakeChannel{fail: true}
	r.Register("u1", broken)
	err = r.Send("u1", WSMessage{Type: "notification"})
	assert.Error(t, err)
	assert.False(t, r.IsOnline("u1"))
	assert.True(t, broken.Closed())
}

func TestRegistryUnregisterAndCloseAll(t *testing.T) {
	r := NewConnRegistry()
	a, b := &fakeChannel{}, &fakeChannel{}
	r.Register("a", a)
	r.Register("b", b)

	r.Unregister("a")
	assert.True(t, a.Closed())
	assert.Equal(t, 1, r.Count())

	r.CloseAll()
	assert.True(t, b.Closed())
	assert.Equal(t, 0, r.Count())
}

func TestRegistryConcurrentUsers(t *testing.T) {
	r := NewConnRegistry()
	const users = 200

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", i)
			ch := &fakeChannel{}
			r.Register(id, ch)
			assert.NoError(t, r.Send(id, WSMessage{Type: "notification"}))
			if i%2 == 0 {
				r.Release(id, ch)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, users/2, r.Count())
}
