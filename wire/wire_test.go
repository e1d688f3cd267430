package wire_test

import (
	"errors"
	"io"
	"os"
	"testing"

	"deedles.dev/wlt/internal/bin"
	"deedles.dev/wlt/wire"
	"golang.org/x/sys/unix"
)

func pair(t *testing.T) (*wire.Conn, *wire.Conn) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatal(err)
	}
	a, err := wire.NewConn(fds[0])
	if err != nil {
		t.Fatal(err)
	}
	b, err := wire.NewConn(fds[1])
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestRoundTrip(t *testing.T) {
	a, b := pair(t)

	tmp, err := os.CreateTemp(t.TempDir(), "fd")
	if err != nil {
		t.Fatal(err)
	}
	defer tmp.Close()
	tmp.WriteString("payload")

	msg := wire.NewMessage(3, 7)
	msg.WriteInt(-5)
	msg.WriteUint(42)
	msg.WriteFixed(wire.FixedFloat(1.5))
	msg.WriteString("hello")
	msg.WriteString("")
	msg.WriteArray([]byte{1, 2, 3})
	msg.WriteFile(tmp)
	msg.WriteNewID(wire.NewID{Interface: "wl_output", Version: 4, ID: 9})
	if err := msg.Build(a); err != nil {
		t.Fatal(err)
	}
	if err := a.Flush(); err != nil {
		t.Fatal(err)
	}

	if err := b.Fill(); err != nil {
		t.Fatal(err)
	}
	r, err := b.Next()
	if err != nil {
		t.Fatal(err)
	}
	if r == nil {
		t.Fatal("no message")
	}

	if r.Sender() != 3 || r.Op() != 7 {
		t.Errorf("header = %v/%v", r.Sender(), r.Op())
	}
	if v := r.ReadInt(); v != -5 {
		t.Errorf("int = %v", v)
	}
	if v := r.ReadUint(); v != 42 {
		t.Errorf("uint = %v", v)
	}
	if v := r.ReadFixed(); v.Float() != 1.5 {
		t.Errorf("fixed = %v", v)
	}
	if v := r.ReadString(); v != "hello" {
		t.Errorf("string = %q", v)
	}
	if v := r.ReadString(); v != "" {
		t.Errorf("null string = %q", v)
	}
	if v := r.ReadArray(); len(v) != 3 || v[2] != 3 {
		t.Errorf("array = %v", v)
	}
	f := r.ReadFile()
	if f == nil {
		t.Fatal("no file")
	}
	defer f.Close()
	buf := make([]byte, 7)
	if _, err := f.ReadAt(buf, 0); err != nil || string(buf) != "payload" {
		t.Errorf("file contents = %q, %v", buf, err)
	}
	if v := r.ReadNewID(); v.Interface != "wl_output" || v.Version != 4 || v.ID != 9 {
		t.Errorf("new_id = %+v", v)
	}
	if err := r.Err(); err != nil {
		t.Fatal(err)
	}
}

func TestPartialMessage(t *testing.T) {
	a, b := pair(t)

	var raw []byte
	raw = bin.Append(raw, uint32(1), uint32(16<<16|2), uint32(5))
	unix.Write(a.Fd(), raw)

	b.Fill()
	r, err := b.Next()
	if err != nil || r != nil {
		t.Fatalf("incomplete message returned %v, %v", r, err)
	}

	unix.Write(a.Fd(), bin.Append(nil, uint32(6)))
	b.Fill()
	r, err = b.Next()
	if err != nil || r == nil {
		t.Fatalf("complete message returned %v, %v", r, err)
	}
	if r.ReadUint() != 5 || r.ReadUint() != 6 {
		t.Fatal("wrong arguments")
	}
}

func TestMalformed(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		read func(*wire.MessageBuffer)
	}{
		{
			name: "NotNullTerminated",
			body: append(bin.Append(nil, uint32(4)), 'a', 'b', 'c', 'd'),
			read: func(r *wire.MessageBuffer) { r.ReadString() },
		},
		{
			name: "StringOverrun",
			body: append(bin.Append(nil, uint32(40)), 'a', 'b', 'c', 0),
			read: func(r *wire.MessageBuffer) { r.ReadString() },
		},
		{
			name: "MissingFD",
			body: nil,
			read: func(r *wire.MessageBuffer) { r.ReadFile() },
		},
		{
			name: "Short",
			body: nil,
			read: func(r *wire.MessageBuffer) { r.ReadUint() },
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a, b := pair(t)

			raw := bin.Append(nil, uint32(2), uint32((8+len(test.body))<<16))
			unix.Write(a.Fd(), append(raw, test.body...))
			b.Fill()
			r, err := b.Next()
			if err != nil || r == nil {
				t.Fatalf("Next() = %v, %v", r, err)
			}
			test.read(r)

			var perr *wire.ProtocolError
			if !errors.As(r.Err(), &perr) {
				t.Fatalf("Err() = %v, want ProtocolError", r.Err())
			}
			if perr.ObjectID != 2 {
				t.Errorf("error object = %v", perr.ObjectID)
			}
		})
	}
}

func TestInvalidSize(t *testing.T) {
	a, b := pair(t)
	unix.Write(a.Fd(), bin.Append(nil, uint32(1), uint32(6<<16)))
	b.Fill()
	_, err := b.Next()
	var perr *wire.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("Next() error = %v", err)
	}
}

func TestEOF(t *testing.T) {
	a, b := pair(t)
	a.Close()
	if err := b.Fill(); !errors.Is(err, io.EOF) {
		t.Fatalf("Fill() = %v, want EOF", err)
	}
}

func TestFixed(t *testing.T) {
	tests := []struct {
		in   float64
		i    int
		back float64
	}{
		{0, 0, 0},
		{1.5, 1, 1.5},
		{-1.5, -1, -1.5},
		{100.25, 100, 100.25},
		{-0.00390625, 0, -0.00390625},
	}
	for _, test := range tests {
		f := wire.FixedFloat(test.in)
		if f.Int() != test.i {
			t.Errorf("FixedFloat(%v).Int() = %v, want %v", test.in, f.Int(), test.i)
		}
		if f.Float() != test.back {
			t.Errorf("FixedFloat(%v).Float() = %v", test.in, f.Float())
		}
	}
	if wire.FixedInt(-3).Float() != -3 {
		t.Error("FixedInt(-3) wrong")
	}
}
