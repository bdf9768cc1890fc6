package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/vspace/internal/app/notify"
)

func TestRegistryPublishOrder(t *testing.T) {
	var r notify.Registry[int]
	var got []string
	r.Subscribe(func(v int) { got = append(got, "a") })
	r.Subscribe(func(v int) { got = append(got, "b") })

	r.Publish(1)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestRegistryUnsubscribeByToken(t *testing.T) {
	var r notify.Registry[int]
	calls := 0
	fn := func(int) { calls++ }
	first := r.Subscribe(fn)
	r.Subscribe(fn)

	require.True(t, r.Unsubscribe(first))
	assert.False(t, r.Unsubscribe(first), "token is single use")
	r.Publish(1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryListenerMayUnsubscribeItself(t *testing.T) {
	var r notify.Registry[int]
	var tok notify.Token
	calls := 0
	tok = r.Subscribe(func(int) {
		calls++
		r.Unsubscribe(tok)
	})

	r.Publish(1)
	r.Publish(2)
	assert.Equal(t, 1, calls)
}

func TestTopicsRouteByKey(t *testing.T) {
	var topics notify.Topics[string, int]
	var a, b []int
	tokA := topics.Subscribe("a", func(v int) { a = append(a, v) })
	topics.Subscribe("b", func(v int) { b = append(b, v) })

	topics.Publish("a", 1)
	topics.Publish("b", 2)
	topics.Publish("missing", 3)
	require.True(t, topics.Unsubscribe(tokA))
	topics.Publish("a", 4)

	assert.Equal(t, []int{1}, a)
	assert.Equal(t, []int{2}, b)
	assert.Equal(t, 0, topics.Len("a"))

	topics.Clear()
	assert.Equal(t, 0, topics.Len("b"))
}

func TestStateUpdatePublishesOnlyChanges(t *testing.T) {
	s := notify.NewState(1)
	var seen []int
	tok := s.Subscribe(func(v int) { seen = append(seen, v) })

	assert.True(t, s.Update(func(cur int) (int, bool) { return cur + 1, true }))
	assert.False(t, s.Update(func(cur int) (int, bool) { return cur, false }))
	s.Set(10)
	assert.Equal(t, 10, s.Load())
	assert.Equal(t, []int{2, 10}, seen)

	assert.True(t, s.Unsubscribe(tok))
	s.Set(11)
	assert.Equal(t, []int{2, 10}, seen)
}
