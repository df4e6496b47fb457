// Package eventloop implements the single cooperative loop on which every tool
// mutates its state, and the helpers used to hand long running work to
// goroutines and bring the result back to the loop.
package eventloop

import (
	"context"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	defaultQueueSize = 256
)

// Dispatcher is the interface to post work on a loop.
type Dispatcher interface {
	// Post schedules f to run on the loop. It returns false when the loop is
	// closed and f will never run.
	Post(f func()) bool
}

// Loop runs posted functions one at a time, in posting order.
type Loop struct {
	queue     chan func()
	closed    chan struct{}
	closeOnce sync.Once
	tasks     sync.WaitGroup
}

// New creates a loop with the given queue size. A size of 0 uses a default
// size.
func New(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	return &Loop{
		queue:  make(chan func(), queueSize),
		closed: make(chan struct{}),
	}
}

// Post schedules f to run on the loop.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.closed:
		return false
	default:
	}

	select {
	case l.queue <- f:
		return true
	case <-l.closed:
		return false
	}
}

// Call runs f on the loop and waits for it to return. It is how code living
// outside the loop, such as HTTP handlers, reads and mutates tool state.
func (l *Loop) Call(ctx context.Context, f func()) error {
	done := make(chan struct{})

	if !l.Post(func() {
		defer close(done)
		f()
	}) {
		return errors.New("event loop is closed")
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closed:
		return errors.New("event loop is closed")
	}
}

// Run processes posted functions until ctx is canceled or the loop is
// closed.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case <-l.closed:
			return

		case f := <-l.queue:
			l.run(f)
		}
	}
}

func (l *Loop) run(f func()) {
	defer func() {
		if r := recover(); r != nil {
			logs.Warn(errors.Newf("event loop handler panicked").
				WithTag("panic", r))
		}
	}()

	f()
}

// Close stops the loop and waits for the tasks started with Async to
// return. Continuations of those tasks are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.closed)
	})
	l.tasks.Wait()
}

// Async runs work in a new goroutine and posts done with its result on the
// loop.
func Async[R any](ctx context.Context, l *Loop, work func(context.Context) R, done func(R)) {
	l.tasks.Add(1)

	go func() {
		defer l.tasks.Done()

		res := work(ctx)
		l.Post(func() {
			done(res)
		})
	}()
}
