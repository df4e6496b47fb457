package notify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignalEmit(t *testing.T) {
	t.Run("handlers are called in connection order", func(t *testing.T) {
		var s Signal[int]
		var calls []string

		s.Connect(func(v int) { calls = append(calls, "a") })
		s.Connect(func(v int) { calls = append(calls, "b") })
		s.Connect(func(v int) { calls = append(calls, "c") })

		s.Emit(42)
		require.Equal(t, []string{"a", "b", "c"}, calls)
	})

	t.Run("disconnected handler is not called", func(t *testing.T) {
		var s Signal[int]
		var got []int

		disconnect := s.Connect(func(v int) { got = append(got, v) })
		s.Emit(1)
		disconnect()
		disconnect()
		s.Emit(2)

		require.Equal(t, []int{1}, got)
		require.Zero(t, s.Len())
	})

	t.Run("handler can disconnect itself while emitting", func(t *testing.T) {
		var s Signal[struct{}]
		var count int

		var disconnect func()
		disconnect = s.Connect(func(struct{}) {
			count++
			disconnect()
		})

		s.Emit(struct{}{})
		s.Emit(struct{}{})
		require.Equal(t, 1, count)
	})

	t.Run("handler disconnected by an earlier handler is not called", func(t *testing.T) {
		var s Event
		var calls []string

		var disconnectB func()
		s.Connect(func(struct{}) {
			calls = append(calls, "a")
			disconnectB()
		})
		disconnectB = s.Connect(func(struct{}) { calls = append(calls, "b") })
		s.Connect(func(struct{}) { calls = append(calls, "c") })

		Fire(&s)
		require.Equal(t, []string{"a", "c"}, calls)
		require.Equal(t, 2, s.Len())
	})

	t.Run("handler connected while emitting is called from the next emission", func(t *testing.T) {
		var s Event
		var count int

		var connected bool
		s.Connect(func(struct{}) {
			if !connected {
				connected = true
				s.Connect(func(struct{}) { count++ })
			}
		})

		Fire(&s)
		require.Zero(t, count)
		Fire(&s)
		require.Equal(t, 1, count)
	})
}

func TestConnectionsDisconnectAll(t *testing.T) {
	var a, b Event
	var c Connections
	var count int

	c.Add(
		a.Connect(func(struct{}) { count++ }),
		b.Connect(func(struct{}) { count++ }),
	)
	require.Equal(t, 2, c.Len())

	Fire(&a)
	Fire(&b)
	require.Equal(t, 2, count)

	c.DisconnectAll()
	require.Zero(t, c.Len())

	Fire(&a)
	Fire(&b)
	require.Equal(t, 2, count)
	require.Zero(t, a.Len())
	require.Zero(t, b.Len())
}

func TestList(t *testing.T) {
	t.Run("append and remove emit rows", func(t *testing.T) {
		l := NewList("a")

		var added, removed []Row[string]
		l.Added.Connect(func(r Row[string]) { added = append(added, r) })
		l.Removed.Connect(func(r Row[string]) { removed = append(removed, r) })

		l.Append("b")
		require.Equal(t, []Row[string]{{Index: 1, Value: "b"}}, added)

		require.True(t, l.RemoveAt(0))
		require.False(t, l.RemoveAt(4))
		require.Equal(t, []Row[string]{{Index: 0, Value: "a"}}, removed)
		require.Equal(t, []string{"b"}, l.Items())
	})

	t.Run("at out of range", func(t *testing.T) {
		l := NewList(1, 2)

		v, ok := l.At(1)
		require.True(t, ok)
		require.Equal(t, 2, v)

		_, ok = l.At(-1)
		require.False(t, ok)
		_, ok = l.At(2)
		require.False(t, ok)
	})

	t.Run("remove func", func(t *testing.T) {
		l := NewList(1, 2, 3)
		require.True(t, l.RemoveFunc(func(v int) bool { return v == 2 }))
		require.False(t, l.RemoveFunc(func(v int) bool { return v == 7 }))
		require.Equal(t, []int{1, 3}, l.Items())
	})

	t.Run("on change", func(t *testing.T) {
		l := NewList[int]()
		var changes int
		disconnect := l.OnChange(func() { changes++ })

		l.Append(1)
		l.Set(0, 2)
		l.Touch(0)
		l.Replace([]int{4, 5})
		l.RemoveAt(0)
		require.Equal(t, 5, changes)

		disconnect()
		l.Append(6)
		require.Equal(t, 5, changes)
	})
}
