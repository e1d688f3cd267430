package dmabuf

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"testing"

	"deedles.dev/wlt/shm"
	"golang.org/x/sys/unix"
)

func memfd(t *testing.T, data []byte) *os.File {
	t.Helper()
	fd, err := unix.MemfdCreate("test", unix.MFD_CLOEXEC)
	if err != nil {
		t.Fatal(err)
	}
	f := os.NewFile(uintptr(fd), "test")
	_, err = f.Write(data)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestTable(t *testing.T) {
	table, err := NewTable(Formats())
	if err != nil {
		t.Fatal(err)
	}
	defer table.Close()

	if table.Size() != uint32(16*len(shm.Formats)) {
		t.Fatalf("size = %v", table.Size())
	}

	data := make([]byte, table.Size())
	_, err = table.File().ReadAt(data, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatal(err)
	}
	if got := binary.NativeEndian.Uint32(data[0:4]); got != shm.ARGB8888.DRM() {
		t.Errorf("first format = %#x", got)
	}
	if got := binary.NativeEndian.Uint64(data[8:16]); got != ModifierLinear {
		t.Errorf("first modifier = %#x", got)
	}
	if len(table.Indices()) != 2*len(shm.Formats) {
		t.Errorf("indices = %v", table.Indices())
	}
	if !table.Supports(Format{Fourcc: shm.XRGB8888.DRM()}) {
		t.Error("XRGB8888 not supported")
	}
}

func TestParams(t *testing.T) {
	tests := []struct {
		name   string
		planes []uint32
		want   error
	}{
		{"Index", []uint32{4}, ErrPlaneIndex},
		{"Twice", []uint32{0, 0}, ErrPlaneSet},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var p Params
			defer p.Close()

			var err error
			for _, idx := range test.planes {
				err = p.Add(idx, Plane{File: memfd(t, nil)})
			}
			if !errors.Is(err, test.want) {
				t.Errorf("got %v, want %v", err, test.want)
			}
		})
	}

	t.Run("Gap", func(t *testing.T) {
		var p Params
		defer p.Close()
		p.Add(1, Plane{File: memfd(t, nil)})
		_, err := p.Planes()
		if !errors.Is(err, ErrIncomplete) {
			t.Errorf("got %v", err)
		}
	})
}

func TestImport(t *testing.T) {
	pix := make([]byte, 2*2*4)
	for i := range pix {
		pix[i] = byte(i)
	}

	var p Params
	err := p.Add(0, Plane{File: memfd(t, pix), Stride: 8})
	if err != nil {
		t.Fatal(err)
	}
	buf, err := Import(&p, 2, 2, shm.XRGB8888.DRM())
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Close()

	if buf.Format() != shm.XRGB8888 {
		t.Errorf("format = %v", buf.Format())
	}
	var got []byte
	err = buf.Read(func(data []byte, stride int) {
		got = append(got, data[stride:stride+4]...)
	})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 8 || got[3] != 11 {
		t.Errorf("second row = %v", got)
	}

	_, err = Import(&p, 2, 2, shm.XRGB8888.DRM())
	if !errors.Is(err, ErrUsed) {
		t.Errorf("reuse: %v", err)
	}

	tests := []struct {
		name   string
		plane  Plane
		w, h   int32
		fourcc uint32
	}{
		{"Modifier", Plane{Stride: 8, Modifier: 1}, 2, 2, shm.XRGB8888.DRM()},
		{"Format", Plane{Stride: 8}, 2, 2, 0x3231564e},
		{"Stride", Plane{Stride: 4}, 2, 2, shm.XRGB8888.DRM()},
		{"Short", Plane{Stride: 8}, 2, 4, shm.XRGB8888.DRM()},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var p Params
			test.plane.File = memfd(t, pix)
			p.Add(0, test.plane)
			_, err := Import(&p, test.w, test.h, test.fourcc)
			if !errors.Is(err, ErrUnsupported) {
				t.Errorf("got %v", err)
			}
		})
	}
}
