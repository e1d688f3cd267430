package wl

import (
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/wire"
)

// OutputInfo accumulates the properties of an output. It is complete
// once the output's done event has arrived.
type OutputInfo struct {
	X, Y          int32
	PhysicalW     int32
	PhysicalH     int32
	Make, Model   string
	Width, Height int32
	RefreshMHz    int32
	Scale         int32
	Name          string
	Description   string
}

type Output struct {
	object
	pending OutputInfo
	info    OutputInfo

	OnDone func(info OutputInfo)
}

// Info returns the properties as of the last done event.
func (out *Output) Info() OutputInfo {
	return out.info
}

func (out *Output) dispatch(msg *wire.MessageBuffer) {
	p := &out.pending
	switch msg.Op() {
	case protocol.EvOutputGeometry:
		p.X, p.Y = msg.ReadInt(), msg.ReadInt()
		p.PhysicalW, p.PhysicalH = msg.ReadInt(), msg.ReadInt()
		msg.ReadInt()
		p.Make, p.Model = msg.ReadString(), msg.ReadString()
		msg.ReadInt()
	case protocol.EvOutputMode:
		flags := msg.ReadUint()
		w, h, refresh := msg.ReadInt(), msg.ReadInt(), msg.ReadInt()
		if flags&protocol.OutputModeCurrent != 0 {
			p.Width, p.Height, p.RefreshMHz = w, h, refresh
		}
	case protocol.EvOutputScale:
		p.Scale = msg.ReadInt()
	case protocol.EvOutputName:
		p.Name = msg.ReadString()
	case protocol.EvOutputDescription:
		p.Description = msg.ReadString()
	case protocol.EvOutputDone:
		out.info = out.pending
		if out.OnDone != nil {
			out.OnDone(out.info)
		}
	}
}

func (out *Output) Release() {
	out.destroy(protocol.OutputRelease)
}
