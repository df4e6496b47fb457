package eventloop

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	l := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)

	t.Cleanup(func() {
		cancel()
		l.Close()
	})
	return l
}

func TestLoopRunsInPostingOrder(t *testing.T) {
	l := startLoop(t)

	var order []int
	for i := 0; i < 10; i++ {
		i := i
		require.True(t, l.Post(func() { order = append(order, i) }))
	}

	var got []int
	err := l.Call(context.Background(), func() {
		got = append(got, order...)
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestLoopRecoversFromPanic(t *testing.T) {
	l := startLoop(t)

	l.Post(func() { panic("ted") })

	var called bool
	err := l.Call(context.Background(), func() { called = true })
	require.NoError(t, err)
	require.True(t, called)
}

func TestLoopClosed(t *testing.T) {
	l := New(1)
	l.Close()

	require.False(t, l.Post(func() {}))
	require.Error(t, l.Call(context.Background(), func() {}))
}

func TestAsync(t *testing.T) {
	l := startLoop(t)
	results := make(chan int, 1)

	Async(context.Background(), l, func(ctx context.Context) int {
		return 21 * 2
	}, func(v int) {
		results <- v
	})

	select {
	case v := <-results:
		require.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("async continuation was not called")
	}
}

func TestRequests(t *testing.T) {
	t.Run("take returns the request once", func(t *testing.T) {
		var r Requests[string]

		id := r.Add("ted")
		require.Equal(t, 1, r.Len())

		v, ok := r.Get(id)
		require.True(t, ok)
		require.Equal(t, "ted", v)

		v, ok = r.Take(id)
		require.True(t, ok)
		require.Equal(t, "ted", v)

		_, ok = r.Take(id)
		require.False(t, ok)
	})

	t.Run("canceled request is stale", func(t *testing.T) {
		var r Requests[string]

		id := r.Add("ted")
		require.True(t, r.Cancel(id))
		require.False(t, r.Cancel(id))

		_, ok := r.Take(id)
		require.False(t, ok)
	})

	t.Run("unknown id", func(t *testing.T) {
		var r Requests[int]

		_, ok := r.Take(uuid.New())
		require.False(t, ok)
	})

	t.Run("cancel func", func(t *testing.T) {
		var r Requests[int]
		r.Add(1)
		r.Add(2)
		r.Add(3)

		n := r.CancelFunc(func(v int) bool { return v >= 2 })
		require.Equal(t, 2, n)
		require.Equal(t, 1, r.Len())
	})

	t.Run("any", func(t *testing.T) {
		var r Requests[int]
		require.False(t, r.Any(func(int) bool { return true }))

		id := r.Add(1)
		r.Add(2)
		require.True(t, r.Any(func(v int) bool { return v == 1 }))
		require.False(t, r.Any(func(v int) bool { return v == 3 }))

		r.Take(id)
		require.False(t, r.Any(func(v int) bool { return v == 1 }))
	})
}
