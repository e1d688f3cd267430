package xkb

import "deedles.dev/wlt/internal/set"

// Modifier masks, matching the real modifiers of the built-in keymap.
const (
	ModShift   uint32 = 1 << 0
	ModLock    uint32 = 1 << 1
	ModControl uint32 = 1 << 2
	ModAlt     uint32 = 1 << 3
	ModNumLock uint32 = 1 << 4
	ModSuper   uint32 = 1 << 6
)

// evdev keycodes of the modifier keys.
const (
	keyLeftCtrl   = 29
	keyLeftShift  = 42
	keyRightShift = 54
	keyLeftAlt    = 56
	keyCapsLock   = 58
	keyNumLock    = 69
	keyRightCtrl  = 97
	keyRightAlt   = 100
	keyLeftMeta   = 125
	keyRightMeta  = 126
)

var modifierKeys = map[uint32]uint32{
	keyLeftCtrl:   ModControl,
	keyRightCtrl:  ModControl,
	keyLeftShift:  ModShift,
	keyRightShift: ModShift,
	keyLeftAlt:    ModAlt,
	keyRightAlt:   ModAlt,
	keyLeftMeta:   ModSuper,
	keyRightMeta:  ModSuper,
}

// Modifiers is the serialized modifier state sent to clients.
type Modifiers struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// State tracks pressed keys and the resulting modifier state.
type State struct {
	pressed set.Set[uint32]
	locked  uint32
}

func NewState() *State {
	return &State{pressed: make(set.Set[uint32])}
}

// Update records a key press or release and reports whether the
// modifier state changed as a result.
func (s *State) Update(code uint32, pressed bool) bool {
	before := s.Modifiers()

	if pressed {
		if s.pressed.Has(code) {
			return false
		}
		s.pressed.Add(code)
		switch code {
		case keyCapsLock:
			s.locked ^= ModLock
		case keyNumLock:
			s.locked ^= ModNumLock
		}
	} else {
		s.pressed.Delete(code)
	}

	return s.Modifiers() != before
}

// Pressed returns every currently pressed keycode.
func (s *State) Pressed() []uint32 {
	keys := make([]uint32, 0, s.pressed.Len())
	for k := range s.pressed.All() {
		keys = append(keys, k)
	}
	return keys
}

// IsPressed reports whether code is held down.
func (s *State) IsPressed(code uint32) bool {
	return s.pressed.Has(code)
}

// Modifiers returns the current modifier state.
func (s *State) Modifiers() Modifiers {
	var depressed uint32
	for k := range s.pressed.All() {
		depressed |= modifierKeys[k]
	}
	return Modifiers{Depressed: depressed, Locked: s.locked}
}

// Effective returns every active modifier, latched and locked ones
// included.
func (s *State) Effective() uint32 {
	m := s.Modifiers()
	return m.Depressed | m.Latched | m.Locked
}

// Keysym translates code with the current modifiers in the built-in
// US layout.
func (s *State) Keysym(code uint32) Keysym {
	return Translate(code, s.Effective())
}

// Translate returns the keysym that code produces with mods active.
// Shift selects the second level, and Caps Lock does so for letters
// only.
func Translate(code uint32, mods uint32) Keysym {
	syms, ok := usKeys[code]
	if !ok {
		return 0
	}

	level := 0
	if mods&ModShift != 0 {
		level = 1
	}
	if mods&ModLock != 0 && isLetter(syms[0]) {
		level ^= 1
	}
	return syms[level]
}

// BaseKeysym returns the unshifted keysym of code.
func BaseKeysym(code uint32) Keysym {
	return usKeys[code][0]
}

func isLetter(sym Keysym) bool {
	return sym >= 'a' && sym <= 'z'
}
