package wl

import (
	"os"

	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/wire"
)

type Seat struct {
	object
	caps uint32
	name string

	OnCapabilities func(caps uint32)
}

func (seat *Seat) dispatch(msg *wire.MessageBuffer) {
	switch msg.Op() {
	case protocol.EvSeatCapabilities:
		seat.caps = msg.ReadUint()
		if seat.OnCapabilities != nil {
			seat.OnCapabilities(seat.caps)
		}
	case protocol.EvSeatName:
		seat.name = msg.ReadString()
	}
}

// Capabilities returns the last advertised capability bitmask.
func (seat *Seat) Capabilities() uint32 {
	return seat.caps
}

func (seat *Seat) Name() string {
	return seat.name
}

func (seat *Seat) GetPointer() *Pointer {
	var p Pointer
	seat.client.register(&p, protocol.KindPointer, seat.version)

	msg := seat.request(protocol.SeatGetPointer)
	msg.WriteUint(p.id)
	seat.send(msg)
	return &p
}

func (seat *Seat) GetKeyboard() *Keyboard {
	var kb Keyboard
	seat.client.register(&kb, protocol.KindKeyboard, seat.version)

	msg := seat.request(protocol.SeatGetKeyboard)
	msg.WriteUint(kb.id)
	seat.send(msg)
	return &kb
}

func (seat *Seat) Release() {
	seat.destroy(protocol.SeatRelease)
}

// PointerListener receives wl_pointer events. Nil fields are skipped.
type PointerListener struct {
	Enter        func(serial, surface uint32, x, y float64)
	Leave        func(serial, surface uint32)
	Motion       func(time uint32, x, y float64)
	Button       func(serial, time, button, state uint32)
	Axis         func(time, axis uint32, value float64)
	Frame        func()
	AxisSource   func(source uint32)
	AxisStop     func(time, axis uint32)
	AxisDiscrete func(axis uint32, discrete int32)
}

type Pointer struct {
	object
	Listener PointerListener
}

func (p *Pointer) dispatch(msg *wire.MessageBuffer) {
	lis := &p.Listener
	switch msg.Op() {
	case protocol.EvPointerEnter:
		serial, surface := msg.ReadUint(), msg.ReadObject()
		x, y := msg.ReadFixed(), msg.ReadFixed()
		if lis.Enter != nil {
			lis.Enter(serial, surface, x.Float(), y.Float())
		}
	case protocol.EvPointerLeave:
		serial, surface := msg.ReadUint(), msg.ReadObject()
		if lis.Leave != nil {
			lis.Leave(serial, surface)
		}
	case protocol.EvPointerMotion:
		time := msg.ReadUint()
		x, y := msg.ReadFixed(), msg.ReadFixed()
		if lis.Motion != nil {
			lis.Motion(time, x.Float(), y.Float())
		}
	case protocol.EvPointerButton:
		serial, time, button, state := msg.ReadUint(), msg.ReadUint(), msg.ReadUint(), msg.ReadUint()
		if lis.Button != nil {
			lis.Button(serial, time, button, state)
		}
	case protocol.EvPointerAxis:
		time, axis, value := msg.ReadUint(), msg.ReadUint(), msg.ReadFixed()
		if lis.Axis != nil {
			lis.Axis(time, axis, value.Float())
		}
	case protocol.EvPointerFrame:
		if lis.Frame != nil {
			lis.Frame()
		}
	case protocol.EvPointerAxisSource:
		source := msg.ReadUint()
		if lis.AxisSource != nil {
			lis.AxisSource(source)
		}
	case protocol.EvPointerAxisStop:
		time, axis := msg.ReadUint(), msg.ReadUint()
		if lis.AxisStop != nil {
			lis.AxisStop(time, axis)
		}
	case protocol.EvPointerAxisDiscrete:
		axis, discrete := msg.ReadUint(), msg.ReadInt()
		if lis.AxisDiscrete != nil {
			lis.AxisDiscrete(axis, discrete)
		}
	}
}

// SetCursor sets the pointer image. A nil surface hides the cursor.
func (p *Pointer) SetCursor(serial uint32, surface *Surface, hotspotX, hotspotY int32) {
	var id uint32
	if surface != nil {
		id = surface.id
	}

	msg := p.request(protocol.PointerSetCursor)
	msg.WriteUint(serial)
	msg.WriteObject(id)
	msg.WriteInt(hotspotX)
	msg.WriteInt(hotspotY)
	p.send(msg)
}

func (p *Pointer) Release() {
	p.destroy(protocol.PointerRelease)
}

// KeyboardListener receives wl_keyboard events. Nil fields are
// skipped. The keymap file belongs to the listener, and is closed
// after Keymap returns if there is no listener.
type KeyboardListener struct {
	Keymap     func(format uint32, file *os.File, size uint32)
	Enter      func(serial, surface uint32, keys []uint32)
	Leave      func(serial, surface uint32)
	Key        func(serial, time, key, state uint32)
	Modifiers  func(serial, depressed, latched, locked, group uint32)
	RepeatInfo func(rate, delay int32)
}

type Keyboard struct {
	object
	Listener KeyboardListener
}

func (kb *Keyboard) dispatch(msg *wire.MessageBuffer) {
	lis := &kb.Listener
	switch msg.Op() {
	case protocol.EvKeyboardKeymap:
		format := msg.ReadUint()
		file := msg.ReadFile()
		size := msg.ReadUint()
		if lis.Keymap != nil && file != nil {
			lis.Keymap(format, file, size)
			return
		}
		if file != nil {
			file.Close()
		}
	case protocol.EvKeyboardEnter:
		serial, surface := msg.ReadUint(), msg.ReadObject()
		keys := readKeys(msg.ReadArray())
		if lis.Enter != nil {
			lis.Enter(serial, surface, keys)
		}
	case protocol.EvKeyboardLeave:
		serial, surface := msg.ReadUint(), msg.ReadObject()
		if lis.Leave != nil {
			lis.Leave(serial, surface)
		}
	case protocol.EvKeyboardKey:
		serial, time, key, state := msg.ReadUint(), msg.ReadUint(), msg.ReadUint(), msg.ReadUint()
		if lis.Key != nil {
			lis.Key(serial, time, key, state)
		}
	case protocol.EvKeyboardModifiers:
		serial, dep, lat, lock, group := msg.ReadUint(), msg.ReadUint(), msg.ReadUint(), msg.ReadUint(), msg.ReadUint()
		if lis.Modifiers != nil {
			lis.Modifiers(serial, dep, lat, lock, group)
		}
	case protocol.EvKeyboardRepeatInfo:
		rate, delay := msg.ReadInt(), msg.ReadInt()
		if lis.RepeatInfo != nil {
			lis.RepeatInfo(rate, delay)
		}
	}
}

func readKeys(data []byte) []uint32 {
	keys := make([]uint32, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		keys = append(keys, uint32(data[i])|uint32(data[i+1])<<8|uint32(data[i+2])<<16|uint32(data[i+3])<<24)
	}
	return keys
}

func (kb *Keyboard) Release() {
	kb.destroy(protocol.KeyboardRelease)
}
