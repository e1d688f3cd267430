package wl

import (
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/wire"
	"golang.org/x/exp/maps"
)

type Display struct {
	object

	// OnError is called when the server reports a fatal protocol
	// error. The error is also returned by Client.Err afterwards.
	OnError func(err *wire.ProtocolError)
}

// Sync asks the server to call done once it has processed every
// request sent before it.
func (d *Display) Sync(done func(data uint32)) *Callback {
	cb := Callback{OnDone: done}
	d.client.register(&cb, protocol.KindCallback, 1)

	msg := d.request(protocol.DisplaySync)
	msg.WriteUint(cb.id)
	d.send(msg)
	return &cb
}

// GetRegistry creates a registry. Globals are announced on it as
// events arrive.
func (d *Display) GetRegistry() *Registry {
	r := Registry{globals: make(map[uint32]Global)}
	d.client.register(&r, protocol.KindRegistry, 1)

	msg := d.request(protocol.DisplayGetRegistry)
	msg.WriteUint(r.id)
	d.send(msg)
	return &r
}

func (d *Display) dispatch(msg *wire.MessageBuffer) {
	c := d.client
	switch msg.Op() {
	case protocol.EvDisplayError:
		perr := wire.ProtocolError{
			ObjectID: msg.ReadObject(),
			Code:     msg.ReadUint(),
			Message:  msg.ReadString(),
		}
		if c.err == nil {
			c.err = &perr
		}
		if d.OnError != nil {
			d.OnError(&perr)
		}

	case protocol.EvDisplayDeleteId:
		id := msg.ReadUint()
		p, ok := c.objects.Delete(id)
		if ok {
			p.base().dead = true
		}
	}
}

// Global is an entry in the registry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

type Registry struct {
	object
	globals map[uint32]Global

	OnGlobal       func(g Global)
	OnGlobalRemove func(name uint32)
}

// Globals returns a copy of the currently advertised globals, keyed by
// name.
func (r *Registry) Globals() map[uint32]Global {
	return maps.Clone(r.globals)
}

// Find returns the first advertised global with the given interface.
func (r *Registry) Find(iface string) (Global, bool) {
	var found Global
	for _, g := range r.globals {
		if g.Interface == iface && (found.Name == 0 || g.Name < found.Name) {
			found = g
		}
	}
	return found, found.Name != 0
}

func (r *Registry) dispatch(msg *wire.MessageBuffer) {
	switch msg.Op() {
	case protocol.EvRegistryGlobal:
		g := Global{
			Name:      msg.ReadUint(),
			Interface: msg.ReadString(),
			Version:   msg.ReadUint(),
		}
		r.globals[g.Name] = g
		if r.OnGlobal != nil {
			r.OnGlobal(g)
		}

	case protocol.EvRegistryGlobalRemove:
		name := msg.ReadUint()
		delete(r.globals, name)
		if r.OnGlobalRemove != nil {
			r.OnGlobalRemove(name)
		}
	}
}

// Bind binds global g at the lower of version and the advertised
// version.
func Bind[T any, P interface {
	*T
	proxy
}](r *Registry, g Global, version uint32) P {
	kind, _ := protocol.Lookup(g.Interface)
	version = min(version, g.Version)

	p := P(new(T))
	r.client.register(p, kind, version)

	msg := r.request(protocol.RegistryBind)
	msg.WriteUint(g.Name)
	msg.WriteNewID(wire.NewID{Interface: g.Interface, Version: version, ID: p.base().id})
	r.send(msg)
	return p
}

type Callback struct {
	object
	OnDone func(data uint32)
}

func (cb *Callback) dispatch(msg *wire.MessageBuffer) {
	if msg.Op() != protocol.EvCallbackDone {
		return
	}
	data := msg.ReadUint()
	if cb.OnDone != nil {
		cb.OnDone(data)
	}
}

// Object is a proxy for an interface that has no dedicated type in
// this package. Requests are built and sent by hand.
type Object struct {
	object
	OnEvent func(msg *wire.MessageBuffer)
}

// NewObject allocates an ID for an object of the given kind. The
// caller is responsible for sending the request that creates it.
func (c *Client) NewObject(kind protocol.Kind, version uint32) *Object {
	var obj Object
	c.register(&obj, kind, version)
	return &obj
}

// Request starts building a request on the object.
func (obj *Object) Request(op uint16) *wire.MessageBuilder {
	return obj.request(op)
}

// Send queues a request built with Request.
func (obj *Object) Send(msg *wire.MessageBuilder) {
	obj.send(msg)
}

// Destroy sends the destructor request with the given opcode.
func (obj *Object) Destroy(op uint16) {
	obj.destroy(op)
}

func (obj *Object) dispatch(msg *wire.MessageBuffer) {
	if obj.OnEvent != nil {
		obj.OnEvent(msg)
	}
}
