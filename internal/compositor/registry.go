package compositor

import (
	"iter"

	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/shm"
	"deedles.dev/wlt/wire"
)

// global is one entry of the registry.
type global struct {
	name   uint32
	kind   protocol.Kind
	output *Output
}

func (s *State) addGlobals() {
	for _, kind := range [...]protocol.Kind{
		protocol.KindCompositor,
		protocol.KindSubcompositor,
		protocol.KindShm,
		protocol.KindSeat,
		protocol.KindDataDeviceManager,
		protocol.KindXdgWmBase,
		protocol.KindDecorationManager,
		protocol.KindXdgOutputManager,
		protocol.KindLayerShell,
		protocol.KindScreencopyManager,
		protocol.KindOutputManager,
		protocol.KindDmabuf,
	} {
		s.addGlobal(kind, nil)
	}
}

func (s *State) addGlobal(kind protocol.Kind, o *Output) {
	var name uint32 = 1
	if len(s.globals) > 0 {
		name = s.globals[len(s.globals)-1].name + 1
	}
	g := global{name: name, kind: kind, output: o}
	s.globals = append(s.globals, g)

	for c := range s.clients() {
		for _, reg := range data(c).registries {
			s.sendGlobal(c, reg, g)
		}
	}
}

func (s *State) sendGlobal(c *server.Client, reg *server.Object, g global) {
	iface := g.kind.Interface()
	ev := c.Event(reg, protocol.EvRegistryGlobal)
	ev.WriteUint(g.name)
	ev.WriteString(iface.Name)
	ev.WriteUint(iface.Version)
	c.Send(ev)
}

func (s *State) advertise(c *server.Client, reg *server.Object) {
	for _, g := range s.globals {
		s.sendGlobal(c, reg, g)
	}
}

func (s *State) findGlobal(name uint32) (global, bool) {
	for _, g := range s.globals {
		if g.name == name {
			return g, true
		}
	}
	return global{}, false
}

func (s *State) registryRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	name := msg.ReadUint()
	nid := msg.ReadNewID()
	if err := msg.Err(); err != nil {
		return err
	}

	g, ok := s.findGlobal(name)
	if !ok {
		return wire.Errorf(obj.ID, protocol.DisplayErrorInvalidObject, "no global %v", name)
	}
	iface := g.kind.Interface()
	if nid.Interface != iface.Name {
		return wire.Errorf(obj.ID, protocol.DisplayErrorInvalidObject, "global %v is %v, not %v", name, iface.Name, nid.Interface)
	}
	if nid.Version == 0 || nid.Version > iface.Version {
		return wire.Errorf(obj.ID, protocol.DisplayErrorInvalidObject, "invalid version %v of %v", nid.Version, iface.Name)
	}

	bound, err := c.NewObject(nid.ID, g.kind, nid.Version)
	if err != nil {
		return err
	}
	s.bind(c, bound, g)
	return nil
}

// bind sends the initial events of a newly bound global.
func (s *State) bind(c *server.Client, obj *server.Object, g global) {
	cd := data(c)
	switch g.kind {
	case protocol.KindShm:
		for _, f := range shm.Formats {
			ev := c.Event(obj, protocol.EvShmFormat)
			ev.WriteUint(uint32(f))
			c.Send(ev)
		}
	case protocol.KindSeat:
		s.seat.bind(c, obj)
	case protocol.KindOutput:
		g.output.bind(c, obj)
	case protocol.KindXdgWmBase:
		cd.wmBases = append(cd.wmBases, obj)
	case protocol.KindOutputManager:
		cd.managers = append(cd.managers, obj)
		s.sendHeads(c, obj)
	case protocol.KindDmabuf:
		s.sendDmabufFormats(c, obj)
	}
}

func (s *State) clients() iter.Seq[*server.Client] {
	return s.server.All()
}
