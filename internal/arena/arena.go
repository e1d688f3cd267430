// Package arena provides slot storage addressed by generation-checked
// handles. A handle to a removed value never resolves again, even if
// its slot has been reused.
package arena

import (
	"fmt"
	"iter"
)

// Handle refers to a value stored in an Arena. The zero Handle is
// never valid.
type Handle struct {
	index uint32
	gen   uint32
}

// Valid reports whether h was ever returned by Insert. It does not
// mean that the value is still alive.
func (h Handle) Valid() bool {
	return h.gen != 0
}

func (h Handle) String() string {
	if !h.Valid() {
		return "nil"
	}
	return fmt.Sprintf("%d#%d", h.index, h.gen)
}

type slot[T any] struct {
	gen   uint32
	alive bool
	val   T
}

// Arena stores values of type T.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	n     int
}

// Insert stores v and returns a handle to it.
func (a *Arena[T]) Insert(v T) Handle {
	var index uint32
	if len(a.free) > 0 {
		index = a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
	} else {
		index = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}

	s := &a.slots[index]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.alive = true
	s.val = v
	a.n++

	return Handle{index: index, gen: s.gen}
}

func (a *Arena[T]) slot(h Handle) *slot[T] {
	if !h.Valid() || int(h.index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.index]
	if !s.alive || s.gen != h.gen {
		return nil
	}
	return s
}

// Get returns a pointer to the value that h refers to. The pointer is
// only valid until the next call to Insert.
func (a *Arena[T]) Get(h Handle) (*T, bool) {
	s := a.slot(h)
	if s == nil {
		return nil, false
	}
	return &s.val, true
}

// Contains reports whether h still refers to a live value.
func (a *Arena[T]) Contains(h Handle) bool {
	return a.slot(h) != nil
}

// Remove deletes the value that h refers to and returns it. It is a
// no-op for stale handles.
func (a *Arena[T]) Remove(h Handle) (v T, ok bool) {
	s := a.slot(h)
	if s == nil {
		return v, false
	}

	v = s.val
	var zero T
	s.val = zero
	s.alive = false
	a.free = append(a.free, h.index)
	a.n--
	return v, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.n
}

// All yields every live value along with its handle, in slot order.
func (a *Arena[T]) All() iter.Seq2[Handle, *T] {
	return func(yield func(Handle, *T) bool) {
		for i := range a.slots {
			s := &a.slots[i]
			if !s.alive {
				continue
			}
			if !yield(Handle{index: uint32(i), gen: s.gen}, &s.val) {
				return
			}
		}
	}
}
