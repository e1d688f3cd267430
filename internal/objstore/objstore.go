// Package objstore tracks objects by Wayland object ID on the side of
// the connection that allocates IDs.
package objstore

// Store maps IDs to objects. IDs are handed out from start upwards and
// reused once they have been deleted.
type Store[T any] struct {
	objects map[uint32]T
	nextID  uint32
	free    []uint32
}

func New[T any](start uint32) *Store[T] {
	return &Store[T]{
		objects: make(map[uint32]T),
		nextID:  start,
	}
}

// Add stores obj under a newly allocated ID and returns the ID.
func (s *Store[T]) Add(obj T) uint32 {
	var id uint32
	if len(s.free) > 0 {
		id = s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
	} else {
		id = s.nextID
		s.nextID++
	}

	s.objects[id] = obj
	return id
}

// Set stores obj under an ID that was allocated elsewhere.
func (s *Store[T]) Set(id uint32, obj T) {
	s.objects[id] = obj
}

func (s *Store[T]) Get(id uint32) (T, bool) {
	obj, ok := s.objects[id]
	return obj, ok
}

// Delete removes the object with the given ID and makes the ID
// available to Add again.
func (s *Store[T]) Delete(id uint32) (T, bool) {
	obj, ok := s.objects[id]
	if !ok {
		return obj, false
	}
	delete(s.objects, id)
	if id < s.nextID {
		s.free = append(s.free, id)
	}
	return obj, true
}

func (s *Store[T]) Len() int {
	return len(s.objects)
}
