package config

import (
	"fmt"
	"strconv"
	"strings"

	"deedles.dev/wlt/internal/xkb"
)

// ModMask is the set of modifiers that keybinds match against. Lock
// and NumLock never affect matching.
const ModMask = xkb.ModShift | xkb.ModControl | xkb.ModAlt | xkb.ModSuper

// Keybind is a parsed key combination.
type Keybind struct {
	Mods uint32
	Sym  xkb.Keysym
}

// Matches reports whether pressing sym with mods active triggers b.
// Sym should be the unshifted keysym of the pressed key.
func (b Keybind) Matches(mods uint32, sym xkb.Keysym) bool {
	return mods&ModMask == b.Mods && sym.Lower() == b.Sym
}

func (b Keybind) String() string {
	var parts []string
	for _, m := range [...]struct {
		mask uint32
		name string
	}{
		{xkb.ModControl, "ctrl"},
		{xkb.ModAlt, "alt"},
		{xkb.ModSuper, "super"},
		{xkb.ModShift, "shift"},
	} {
		if b.Mods&m.mask != 0 {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(append(parts, b.Sym.Name()), "+")
}

func modifier(name string) (uint32, bool) {
	switch strings.ToLower(name) {
	case "ctrl", "control":
		return xkb.ModControl, true
	case "alt", "mod1":
		return xkb.ModAlt, true
	case "shift":
		return xkb.ModShift, true
	case "super", "mod4", "logo", "win", "meta":
		return xkb.ModSuper, true
	}
	return 0, false
}

// Mod returns the modifier that "mod" stands for. Unknown names mean
// alt.
func (k Keybinds) Mod() uint32 {
	m, ok := modifier(k.ModKey)
	if !ok {
		return xkb.ModAlt
	}
	return m
}

// ParseKeybind parses a combination such as "mod+shift+Return". The
// "mod" modifier stands for mod.
func ParseKeybind(s string, mod uint32) (Keybind, error) {
	parts := strings.Split(s, "+")
	if len(parts) == 0 || strings.TrimSpace(parts[len(parts)-1]) == "" {
		return Keybind{}, fmt.Errorf("keybind %q: missing key", s)
	}

	var b Keybind
	for _, part := range parts[:len(parts)-1] {
		part = strings.TrimSpace(part)
		if strings.EqualFold(part, "mod") {
			b.Mods |= mod
			continue
		}
		m, ok := modifier(part)
		if !ok {
			return Keybind{}, fmt.Errorf("keybind %q: unknown modifier %q", s, part)
		}
		b.Mods |= m
	}

	key := strings.TrimSpace(parts[len(parts)-1])
	sym, ok := xkb.KeysymFromName(key)
	if !ok {
		return Keybind{}, fmt.Errorf("keybind %q: unknown key %q", s, key)
	}
	b.Sym = sym.Lower()

	return b, nil
}

// Binding is a keybind along with the action that it triggers.
type Binding struct {
	Keybind Keybind
	Action  Action
}

// DefaultBinds is the built-in bind list. Entries in the config file
// with the same key replace these.
func DefaultBinds() []Bind {
	binds := []Bind{
		{"ctrl+alt+q", "exit"},
		{"mod+Return", "exec foot"},
		{"mod+d", "exec fuzzel"},
		{"mod+j", "focus next"},
		{"mod+k", "focus prev"},
		{"mod+h", "focus left"},
		{"mod+l", "focus right"},
		{"mod+shift+j", "move next"},
		{"mod+shift+k", "move prev"},
		{"mod+shift+q", "close"},
		{"mod+f", "fullscreen toggle"},
		{"mod+shift+space", "floating toggle"},
	}
	for i := 1; i <= 9; i++ {
		n := strconv.Itoa(i)
		binds = append(binds, Bind{"mod+" + n, "workspace " + n})
	}
	for i := 1; i <= 9; i++ {
		n := strconv.Itoa(i)
		binds = append(binds, Bind{"mod+shift+" + n, "move_to_workspace " + n})
	}
	return append(binds, Bind{"mod+shift+c", "reload"})
}

// Bindings parses the default binds merged with the configured ones.
// Binds that fail to parse are skipped and reported in errs.
func (k Keybinds) Bindings() (bindings []Binding, errs []error) {
	mod := k.Mod()

	index := make(map[Keybind]int)
	add := func(b Bind) {
		kb, err := ParseKeybind(b.Key, mod)
		if err != nil {
			errs = append(errs, err)
			return
		}
		action, err := ParseAction(b.Action)
		if err != nil {
			errs = append(errs, fmt.Errorf("keybind %q: %w", b.Key, err))
			return
		}

		if i, ok := index[kb]; ok {
			bindings[i].Action = action
			return
		}
		index[kb] = len(bindings)
		bindings = append(bindings, Binding{Keybind: kb, Action: action})
	}

	for _, b := range DefaultBinds() {
		add(b)
	}
	for _, b := range k.Bind {
		add(b)
	}

	return bindings, errs
}
