package xkb_test

import (
	"io"
	"strings"
	"testing"

	"deedles.dev/wlt/internal/xkb"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		code uint32
		mods uint32
		want xkb.Keysym
	}{
		{"a", 30, 0, 'a'},
		{"A", 30, xkb.ModShift, 'A'},
		{"CapsA", 30, xkb.ModLock, 'A'},
		{"CapsShiftA", 30, xkb.ModLock | xkb.ModShift, 'a'},
		{"1", 2, 0, '1'},
		{"Exclam", 2, xkb.ModShift, '!'},
		{"CapsDigit", 2, xkb.ModLock, '1'},
		{"Return", 28, xkb.ModAlt, xkb.KeyReturn},
		{"Unknown", 999, 0, 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := xkb.Translate(test.code, test.mods); got != test.want {
				t.Fatalf("got %v, want %v", got, test.want)
			}
		})
	}
}

func TestState(t *testing.T) {
	s := xkb.NewState()

	if !s.Update(42, true) {
		t.Fatal("pressing shift did not change modifiers")
	}
	if s.Modifiers().Depressed != xkb.ModShift {
		t.Fatalf("depressed = %#x", s.Modifiers().Depressed)
	}
	if s.Update(30, true) {
		t.Fatal("pressing a letter changed modifiers")
	}
	if s.Keysym(30) != 'A' {
		t.Fatalf("shift+a = %v", s.Keysym(30))
	}
	s.Update(42, false)
	s.Update(30, false)

	s.Update(58, true)
	s.Update(58, false)
	if s.Modifiers().Locked != xkb.ModLock {
		t.Fatalf("caps lock not locked: %+v", s.Modifiers())
	}
	s.Update(58, true)
	if s.Modifiers().Locked != 0 {
		t.Fatal("caps lock did not toggle off")
	}
}

func TestKeysymFromName(t *testing.T) {
	tests := []struct {
		name string
		want xkb.Keysym
	}{
		{"Return", xkb.KeyReturn},
		{"return", xkb.KeyReturn},
		{"enter", xkb.KeyReturn},
		{"space", xkb.KeySpace},
		{"q", 'q'},
		{"Q", 'Q'},
		{"F12", 0xffc9},
		{"XF86AudioRaiseVolume", 0x1008ff13},
	}
	for _, test := range tests {
		got, ok := xkb.KeysymFromName(test.name)
		if !ok || got != test.want {
			t.Errorf("KeysymFromName(%q) = %v, %v", test.name, got, ok)
		}
	}
	if _, ok := xkb.KeysymFromName("NoSuchKey"); ok {
		t.Error("unknown name resolved")
	}
}

func TestKeymapFile(t *testing.T) {
	k := xkb.Builtin()
	defer k.Close()

	file, size, err := k.File()
	if err != nil {
		t.Fatal(err)
	}
	data := make([]byte, size)
	if _, err := file.ReadAt(data, 0); err != nil && err != io.EOF {
		t.Fatal(err)
	}
	if data[len(data)-1] != 0 {
		t.Fatal("keymap not NUL-terminated")
	}
	if !strings.HasPrefix(string(data), "xkb_keymap {") {
		t.Fatal("unexpected keymap contents")
	}
	if _, err := file.WriteAt([]byte("x"), 0); err == nil {
		t.Fatal("sealed keymap is writable")
	}
}
