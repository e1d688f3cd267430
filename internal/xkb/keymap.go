// Package xkb supplies the keyboard keymap that the compositor hands
// to clients and does the keysym translation needed to match
// keybinds.
package xkb

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"
)

//go:embed us.xkb
var usKeymap string

// Names selects a keymap by its RMLVO components.
type Names struct {
	Model   string
	Layout  string
	Variant string
	Options string
}

func (n Names) builtin() bool {
	return (n.Layout == "" || n.Layout == "us") && n.Variant == "" && n.Options == ""
}

// Keymap is a compiled keymap in XKB text format.
type Keymap struct {
	Names Names
	Text  string

	file *os.File
	size uint32
}

// Builtin returns the embedded US keymap.
func Builtin() *Keymap {
	return &Keymap{Names: Names{Model: "pc105", Layout: "us"}, Text: usKeymap}
}

// Compile builds the keymap for names. The built-in US keymap is used
// directly when it matches. Anything else is compiled by xkbcli, and
// if that fails the built-in keymap is returned along with the error.
func Compile(names Names) (*Keymap, error) {
	if names.builtin() {
		return Builtin(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	args := []string{"compile-keymap"}
	for _, a := range [...]struct{ flag, val string }{
		{"--model", names.Model},
		{"--layout", names.Layout},
		{"--variant", names.Variant},
		{"--options", names.Options},
	} {
		if a.val != "" {
			args = append(args, a.flag, a.val)
		}
	}

	out, err := exec.CommandContext(ctx, "xkbcli", args...).Output()
	if err != nil {
		var eerr *exec.ExitError
		if errors.As(err, &eerr) && len(eerr.Stderr) > 0 {
			err = fmt.Errorf("%w: %s", err, eerr.Stderr)
		}
		return Builtin(), fmt.Errorf("compile keymap %+v: %w", names, err)
	}
	if len(out) == 0 {
		return Builtin(), fmt.Errorf("compile keymap %+v: empty output", names)
	}

	return &Keymap{Names: names, Text: string(out)}, nil
}

// File returns a sealed memfd containing the keymap text followed by
// a NUL byte, and the size to advertise with it. The file is created
// on first use and owned by the Keymap.
func (k *Keymap) File() (*os.File, uint32, error) {
	if k.file != nil {
		return k.file, k.size, nil
	}

	fd, err := unix.MemfdCreate("wlt-keymap", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, 0, fmt.Errorf("create memfd: %w", err)
	}
	file := os.NewFile(uintptr(fd), "wlt-keymap")

	data := append([]byte(k.Text), 0)
	_, err = file.Write(data)
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("write keymap: %w", err)
	}

	_, err = unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK|unix.F_SEAL_GROW|unix.F_SEAL_WRITE|unix.F_SEAL_SEAL)
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("seal keymap: %w", err)
	}

	k.file = file
	k.size = uint32(len(data))
	return k.file, k.size, nil
}

// Close releases the keymap's file.
func (k *Keymap) Close() error {
	if k.file == nil {
		return nil
	}
	err := k.file.Close()
	k.file = nil
	return err
}
