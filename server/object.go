package server

import (
	"fmt"

	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/protocol"
)

// firstServerID is the first object ID in the range that the server
// allocates for objects it creates itself.
const firstServerID = 0xFF000000

// Object is a live protocol object. Kind tags which interface it
// implements, and Handle, if valid, refers to the compositor state
// that backs it.
type Object struct {
	ID      uint32
	Kind    protocol.Kind
	Version uint32
	Handle  arena.Handle

	client *Client
	seq    uint64
	dead   bool
}

// Client returns the client that owns the object.
func (obj *Object) Client() *Client {
	return obj.client
}

// Alive reports whether the object has not been deleted.
func (obj *Object) Alive() bool {
	return obj != nil && !obj.dead
}

func (obj *Object) String() string {
	return fmt.Sprintf("%v@%v", obj.Kind, obj.ID)
}
