package compositor

import (
	"slices"

	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/wire"
)

// DataSource is a wl_data_source.
type DataSource struct {
	obj     *server.Object
	handle  arena.Handle
	mimes   []string
	actions uint32
	used    bool
}

// DataOffer is a wl_data_offer of the selection.
type DataOffer struct {
	obj    *server.Object
	source arena.Handle
}

func (s *State) dataDeviceManagerRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case protocol.DataDeviceManagerCreateDataSource:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		sobj, err := c.NewObject(id, protocol.KindDataSource, obj.Version)
		if err != nil {
			return err
		}
		src := DataSource{obj: sobj}
		src.handle = s.sources.Insert(&src)
		sobj.Handle = src.handle

	case protocol.DataDeviceManagerGetDataDevice:
		id := msg.ReadUint()
		msg.ReadObject() // seat
		if err := msg.Err(); err != nil {
			return err
		}
		dev, err := c.NewObject(id, protocol.KindDataDevice, obj.Version)
		if err != nil {
			return err
		}
		cd := data(c)
		cd.dataDevices = append(cd.dataDevices, dev)
		if s.seat.focusClient() == c {
			s.sendSelection(dev)
		}
	}
	return nil
}

func (s *State) dataDeviceRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case protocol.DataDeviceStartDrag:
		sid := msg.ReadObject()
		msg.ReadObject() // origin
		icon := msg.ReadObject()
		msg.ReadUint() // serial
		if err := msg.Err(); err != nil {
			return err
		}
		if icon != 0 {
			surf, _ := s.surfaceArg(c, icon)
			if surf != nil && !surf.setRole(roleDragIcon) {
				return wire.Errorf(obj.ID, protocol.DataDeviceErrorRole, "surface already has role %v", surf.role)
			}
		}

		// Drag and drop isn't supported. The drag ends right away.
		if src := s.sourceArg(c, sid); src != nil {
			src.used = true
			c.Send(c.Event(src.obj, protocol.EvDataSourceCancelled))
		}

	case protocol.DataDeviceSetSelection:
		sid := msg.ReadObject()
		msg.ReadUint() // serial
		if err := msg.Err(); err != nil {
			return err
		}

		var src *DataSource
		if sid != 0 {
			src = s.sourceArg(c, sid)
			if src == nil {
				return nil
			}
			if src.used {
				return wire.Errorf(src.obj.ID, protocol.DataSourceErrorInvalidSource, "%v was already used", src.obj)
			}
		}
		if s.seat.focusClient() != c {
			c.Log().Debug("ignoring selection from unfocused client")
			if src != nil {
				src.used = true
				c.Send(c.Event(src.obj, protocol.EvDataSourceCancelled))
			}
			return nil
		}
		s.setSelection(src)

	case protocol.DataDeviceRelease:
		s.destroy(c, obj)
	}
	return nil
}

func (s *State) sourceArg(c *server.Client, id uint32) *DataSource {
	obj := c.Object(id)
	if obj == nil || obj.Kind != protocol.KindDataSource {
		return nil
	}
	return lookup(&s.sources, obj.Handle)
}

// setSelection replaces the selection with src, which may be nil.
func (s *State) setSelection(src *DataSource) {
	if old := lookup(&s.sources, s.selection); old != nil && old != src {
		c := old.obj.Client()
		c.Send(c.Event(old.obj, protocol.EvDataSourceCancelled))
	}

	s.selection = arena.Handle{}
	if src != nil {
		src.used = true
		s.selection = src.handle
		s.log.WithField("mimes", src.mimes).Debug("selection set")
	}

	if c := s.seat.focusClient(); c != nil {
		s.offerSelection(c)
	}
}

// offerSelection sends the current selection to every data device of
// c.
func (s *State) offerSelection(c *server.Client) {
	for _, dev := range data(c).dataDevices {
		s.sendSelection(dev)
	}
}

func (s *State) sendSelection(dev *server.Object) {
	c := dev.Client()
	src := lookup(&s.sources, s.selection)
	if src == nil {
		ev := c.Event(dev, protocol.EvDataDeviceSelection)
		ev.WriteObject(0)
		c.Send(ev)
		return
	}

	offer := c.NewServerObject(protocol.KindDataOffer, dev.Version)
	offer.Handle = s.offers.Insert(&DataOffer{obj: offer, source: src.handle})

	ev := c.Event(dev, protocol.EvDataDeviceDataOffer)
	ev.WriteObject(offer.ID)
	c.Send(ev)
	for _, mime := range src.mimes {
		ev := c.Event(offer, protocol.EvDataOfferOffer)
		ev.WriteString(mime)
		c.Send(ev)
	}

	ev = c.Event(dev, protocol.EvDataDeviceSelection)
	ev.WriteObject(offer.ID)
	c.Send(ev)
}

func (s *State) dataSourceRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	src := lookup(&s.sources, obj.Handle)

	switch msg.Op() {
	case protocol.DataSourceOffer:
		mime := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		if src != nil && !slices.Contains(src.mimes, mime) {
			src.mimes = append(src.mimes, mime)
		}

	case protocol.DataSourceSetActions:
		actions := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if actions&^uint32(protocol.DndActionCopy|protocol.DndActionMove|protocol.DndActionAsk) != 0 {
			return wire.Errorf(obj.ID, protocol.DataSourceErrorInvalidActionMask, "invalid actions %#x", actions)
		}
		if src != nil {
			if src.used {
				return wire.Errorf(obj.ID, protocol.DataSourceErrorInvalidSource, "actions set on a used source")
			}
			src.actions = actions
		}

	case protocol.DataSourceDestroy:
		s.destroy(c, obj)
	}
	return nil
}

func (s *State) destroyDataSource(h arena.Handle) {
	if _, ok := s.sources.Remove(h); !ok {
		return
	}
	if s.selection == h {
		s.setSelection(nil)
	}
}

func (s *State) dataOfferRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	offer := lookup(&s.offers, obj.Handle)

	switch msg.Op() {
	case protocol.DataOfferAccept:
		msg.ReadUint()
		msg.ReadString()
		return msg.Err()

	case protocol.DataOfferReceive:
		mime := msg.ReadString()
		file := msg.ReadFile()
		if err := msg.Err(); err != nil {
			if file != nil {
				file.Close()
			}
			return err
		}
		defer file.Close()

		if offer == nil || offer.source != s.selection {
			return nil
		}
		src := lookup(&s.sources, offer.source)
		if src == nil || !src.obj.Alive() {
			return nil
		}
		sc := src.obj.Client()
		ev := sc.Event(src.obj, protocol.EvDataSourceSend)
		ev.WriteString(mime)
		ev.WriteFile(file)
		sc.Send(ev)

	case protocol.DataOfferFinish:
		return wire.Errorf(obj.ID, protocol.DataOfferErrorInvalidFinish, "finish on a selection offer")

	case protocol.DataOfferSetActions:
		msg.ReadUint()
		msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		return wire.Errorf(obj.ID, protocol.DataOfferErrorInvalidOffer, "set_actions on a selection offer")

	case protocol.DataOfferDestroy:
		s.destroy(c, obj)
	}
	return nil
}
