package xkb

import (
	"fmt"
	"strings"
)

// Keysym is an X11 keysym value.
type Keysym uint32

const (
	KeyReturn    Keysym = 0xff0d
	KeyEscape    Keysym = 0xff1b
	KeySpace     Keysym = 0x20
	KeyShiftL    Keysym = 0xffe1
	KeyShiftR    Keysym = 0xffe2
	KeyControlL  Keysym = 0xffe3
	KeyControlR  Keysym = 0xffe4
	KeyCapsLock  Keysym = 0xffe5
	KeyAltL      Keysym = 0xffe9
	KeyAltR      Keysym = 0xffea
	KeySuperL    Keysym = 0xffeb
	KeySuperR    Keysym = 0xffec
	KeyNumLock   Keysym = 0xff7f
	KeyTab       Keysym = 0xff09
)

var keysymAliases = map[string]string{
	"enter":     "Return",
	"esc":       "Escape",
	"backspace": "BackSpace",
	"pageup":    "Prior",
	"page_up":   "Prior",
	"pagedown":  "Next",
	"page_down": "Next",
	"del":       "Delete",
	"ins":       "Insert",
	"print":     "Print",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
}

var lowerNames = func() map[string]Keysym {
	m := make(map[string]Keysym, len(keysymNames))
	for name, sym := range keysymNames {
		lower := strings.ToLower(name)
		if _, ok := m[lower]; ok && name != lower {
			continue
		}
		m[lower] = sym
	}
	return m
}()

// KeysymFromName looks up a keysym by its X11 name. The lookup is
// exact first and then case-insensitive, so "return" finds Return but
// "A" still finds the capital letter.
func KeysymFromName(name string) (Keysym, bool) {
	if sym, ok := keysymNames[name]; ok {
		return sym, true
	}
	if alias, ok := keysymAliases[strings.ToLower(name)]; ok {
		return keysymNames[alias], true
	}
	sym, ok := lowerNames[strings.ToLower(name)]
	return sym, ok
}

// Name returns the X11 name of sym.
func (sym Keysym) Name() string {
	for name, s := range keysymNames {
		if s == sym && (len(name) != 1 || name[0] == byte(sym)) {
			return name
		}
	}
	return fmt.Sprintf("0x%x", uint32(sym))
}

func (sym Keysym) String() string {
	return sym.Name()
}

// Lower maps upper-case Latin letters to lower case and leaves every
// other keysym alone.
func (sym Keysym) Lower() Keysym {
	if sym >= 'A' && sym <= 'Z' {
		return sym + ('a' - 'A')
	}
	return sym
}
