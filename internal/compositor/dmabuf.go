package compositor

import (
	"encoding/binary"
	"errors"

	"deedles.dev/wlt/internal/dmabuf"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/wire"
	"golang.org/x/sys/unix"
)

// renderNode is the device advertised in dma-buf feedback.
const renderNode = "/dev/dri/renderD128"

// sendDmabufFormats advertises the importable formats to a
// zwp_linux_dmabuf_v1 bound with a version that still uses the
// format and modifier events.
func (s *State) sendDmabufFormats(c *server.Client, obj *server.Object) {
	if obj.Version >= 4 {
		return
	}
	for _, f := range s.formats.Formats {
		if obj.Version < 3 {
			ev := c.Event(obj, protocol.EvDmabufFormat)
			ev.WriteUint(f.Fourcc)
			c.Send(ev)
			continue
		}
		ev := c.Event(obj, protocol.EvDmabufModifier)
		ev.WriteUint(f.Fourcc)
		ev.WriteUint(uint32(f.Modifier >> 32))
		ev.WriteUint(uint32(f.Modifier))
		c.Send(ev)
	}
}

// device returns the dev_t of the render node in the form that
// feedback events carry it.
func device() []byte {
	var st unix.Stat_t
	var dev uint64
	if err := unix.Stat(renderNode, &st); err == nil {
		dev = st.Rdev
	}
	return binary.NativeEndian.AppendUint64(nil, dev)
}

func (s *State) sendFeedback(c *server.Client, obj *server.Object) {
	dev := device()

	ev := c.Event(obj, protocol.EvDmabufFeedbackFormatTable)
	ev.WriteFile(s.formats.File())
	ev.WriteUint(s.formats.Size())
	c.Send(ev)

	ev = c.Event(obj, protocol.EvDmabufFeedbackMainDevice)
	ev.WriteArray(dev)
	c.Send(ev)

	ev = c.Event(obj, protocol.EvDmabufFeedbackTrancheTargetDevice)
	ev.WriteArray(dev)
	c.Send(ev)

	ev = c.Event(obj, protocol.EvDmabufFeedbackTrancheFormats)
	ev.WriteArray(s.formats.Indices())
	c.Send(ev)

	ev = c.Event(obj, protocol.EvDmabufFeedbackTrancheFlags)
	ev.WriteUint(0)
	c.Send(ev)

	c.Send(c.Event(obj, protocol.EvDmabufFeedbackTrancheDone))
	c.Send(c.Event(obj, protocol.EvDmabufFeedbackDone))
}

func (s *State) dmabufRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case protocol.DmabufDestroy:
		s.destroy(c, obj)

	case protocol.DmabufCreateParams:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		pobj, err := c.NewObject(id, protocol.KindDmabufParams, obj.Version)
		if err != nil {
			return err
		}
		pobj.Handle = s.params.Insert(new(dmabuf.Params))

	case protocol.DmabufGetDefaultFeedback, protocol.DmabufGetSurfaceFeedback:
		id := msg.ReadUint()
		if msg.Op() == protocol.DmabufGetSurfaceFeedback {
			msg.ReadObject()
		}
		if err := msg.Err(); err != nil {
			return err
		}
		fobj, err := c.NewObject(id, protocol.KindDmabufFeedback, obj.Version)
		if err != nil {
			return err
		}
		s.sendFeedback(c, fobj)
	}
	return nil
}

func (s *State) paramsRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case protocol.DmabufParamsDestroy:
		s.destroy(c, obj)

	case protocol.DmabufParamsAdd:
		file := msg.ReadFile()
		idx := msg.ReadUint()
		offset := msg.ReadUint()
		stride := msg.ReadUint()
		hi, lo := msg.ReadUint(), msg.ReadUint()
		if err := msg.Err(); err != nil {
			if file != nil {
				file.Close()
			}
			return err
		}

		p := lookup(&s.params, obj.Handle)
		if p == nil {
			file.Close()
			return wire.Errorf(obj.ID, protocol.DmabufParamsErrorAlreadyUsed, "params already used")
		}
		err := p.Add(idx, dmabuf.Plane{
			File:     file,
			Offset:   offset,
			Stride:   stride,
			Modifier: uint64(hi)<<32 | uint64(lo),
		})
		switch {
		case errors.Is(err, dmabuf.ErrUsed):
			return wire.Errorf(obj.ID, protocol.DmabufParamsErrorAlreadyUsed, "params already used")
		case errors.Is(err, dmabuf.ErrPlaneIndex):
			return wire.Errorf(obj.ID, protocol.DmabufParamsErrorPlaneIdx, "%v", err)
		case errors.Is(err, dmabuf.ErrPlaneSet):
			return wire.Errorf(obj.ID, protocol.DmabufParamsErrorPlaneSet, "%v", err)
		}

	case protocol.DmabufParamsCreate, protocol.DmabufParamsCreateImmed:
		var id uint32
		immed := msg.Op() == protocol.DmabufParamsCreateImmed
		if immed {
			id = msg.ReadUint()
		}
		width, height := msg.ReadInt(), msg.ReadInt()
		format := msg.ReadUint()
		msg.ReadUint() // flags
		if err := msg.Err(); err != nil {
			return err
		}

		p := lookup(&s.params, obj.Handle)
		if p == nil {
			return wire.Errorf(obj.ID, protocol.DmabufParamsErrorAlreadyUsed, "params already used")
		}
		dma, err := dmabuf.Import(p, width, height, format)
		switch {
		case errors.Is(err, dmabuf.ErrUsed):
			return wire.Errorf(obj.ID, protocol.DmabufParamsErrorAlreadyUsed, "params already used")
		case errors.Is(err, dmabuf.ErrIncomplete):
			return wire.Errorf(obj.ID, protocol.DmabufParamsErrorIncomplete, "%v", err)
		case width <= 0 || height <= 0:
			return wire.Errorf(obj.ID, protocol.DmabufParamsErrorInvalidDimensions, "invalid size %vx%v", width, height)
		}
		if err != nil {
			c.Log().WithError(err).Debug("dma-buf import failed")
		}

		if !immed {
			if err != nil {
				c.Send(c.Event(obj, protocol.EvDmabufParamsFailed))
				return nil
			}
			bobj := c.NewServerObject(protocol.KindBuffer, 1)
			s.registerBuffer(bobj, &Buffer{dma: dma})
			ev := c.Event(obj, protocol.EvDmabufParamsCreated)
			ev.WriteObject(bobj.ID)
			c.Send(ev)
			return nil
		}

		// A buffer from create_immed exists either way. One that
		// couldn't be imported is rejected when it's committed.
		return s.newBuffer(c, id, &Buffer{dma: dma, err: err})
	}
	return nil
}
