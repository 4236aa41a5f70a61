package export

import (
	"errors"
	"sync"
	"time"
)

var ErrTimeout = errors.New("export timed out")

// Future is the single completion point of an asynchronous export.
type Future[T any] struct {
	val  T
	once sync.Once
	done chan struct{}
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func completed[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.complete(v)
	return f
}

func (f *Future[T]) complete(v T) {
	f.once.Do(func() {
		f.val = v
		close(f.done)
	})
}

// Await blocks until the future completes.
func (f *Future[T]) Await() T {
	<-f.done
	return f.val
}

func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	select {
	case <-f.done:
		return f.val, nil
	case <-time.After(timeout):
		var zero T
		return zero, ErrTimeout
	}
}

func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Then runs fn with the value once the future completes, on its own goroutine.
// Already-completed futures run fn synchronously.
func (f *Future[T]) Then(fn func(T)) {
	if f.IsComplete() {
		fn(f.val)
		return
	}
	go func() {
		fn(f.Await())
	}()
}

func chain[T, U any](f *Future[T], fn func(T) U) *Future[U] {
	out := newFuture[U]()
	go func() {
		out.complete(fn(f.Await()))
	}()
	return out
}
