// Package cq implements a simple concurrent queue.
package cq

import "sync"

// Queue collects values added from any goroutine until they are
// drained in bulk by a single consumer. Notify, if not nil, is called
// after every Add, outside of the queue's lock.
type Queue[T any] struct {
	m      sync.Mutex
	s      []T
	notify func()
}

func New[T any](notify func()) *Queue[T] {
	return &Queue[T]{notify: notify}
}

func (q *Queue[T]) Add(v T) {
	q.m.Lock()
	q.s = append(q.s, v)
	q.m.Unlock()

	if q.notify != nil {
		q.notify()
	}
}

// Get removes and returns everything currently in the queue.
func (q *Queue[T]) Get() []T {
	q.m.Lock()
	defer q.m.Unlock()

	s := q.s
	q.s = nil
	return s
}

// Flush runs every function in queue and collects the errors that
// they return.
func Flush(queue []func() error) (errs []error) {
	for _, ev := range queue {
		err := ev()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
