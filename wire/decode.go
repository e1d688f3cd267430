package wire

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"deedles.dev/wlt/internal/bin"
)

// MessageBuffer holds message data that has been read from the socket
// but not yet decoded. Decoding errors are sticky: after the first
// one, every read returns a zero value and Err reports the error.
type MessageBuffer struct {
	conn   *Conn
	sender uint32
	op     uint16
	size   uint16
	data   []byte
	err    error
	args   []any
}

func newMessageBuffer(c *Conn, sender uint32, op, size uint16, data []byte) *MessageBuffer {
	return &MessageBuffer{
		conn:   c,
		sender: sender,
		op:     op,
		size:   size,
		data:   data,
	}
}

// NewID is an untyped new_id argument, which carries the interface
// and version of the object being created along with its ID.
type NewID struct {
	Interface string
	Version   uint32
	ID        uint32
}

// Sender is the object ID of the sender of the message.
func (r *MessageBuffer) Sender() uint32 {
	return r.sender
}

// Op is the opcode of the message.
func (r *MessageBuffer) Op() uint16 {
	return r.op
}

// Size is the total size of the message, including the 8 byte header.
func (r *MessageBuffer) Size() uint16 {
	return r.size
}

// Err returns the first decoding error, wrapped as a ProtocolError
// against the sender.
func (r *MessageBuffer) Err() error {
	if r.err == nil {
		return nil
	}
	var perr *ProtocolError
	if errors.As(r.err, &perr) {
		return perr
	}
	return Errorf(r.sender, 1, "decode opcode %v: %v", r.op, r.err)
}

func (r *MessageBuffer) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *MessageBuffer) word() (w [4]byte) {
	if r.err != nil {
		return w
	}
	if len(r.data) < 4 {
		r.fail(errors.New("message too short"))
		return w
	}
	w = [4]byte(r.data[:4])
	r.data = r.data[4:]
	return w
}

func (r *MessageBuffer) ReadInt() int32 {
	v := bin.Value[int32](r.word())
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadUint() uint32 {
	v := bin.Value[uint32](r.word())
	r.args = append(r.args, v)
	return v
}

// ReadObject reads an object ID. Zero means null.
func (r *MessageBuffer) ReadObject() uint32 {
	return r.ReadUint()
}

func (r *MessageBuffer) ReadFixed() Fixed {
	v := bin.Value[Fixed](r.word())
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadNewID() NewID {
	return NewID{
		Interface: r.ReadString(),
		Version:   r.ReadUint(),
		ID:        r.ReadUint(),
	}
}

func (r *MessageBuffer) bytes(n uint32) []byte {
	if r.err != nil {
		return nil
	}
	padded := n + padding(n)
	if uint32(len(r.data)) < padded {
		r.fail(errors.New("argument overruns message"))
		return nil
	}
	v := r.data[:n]
	r.data = r.data[padded:]
	return v
}

// ReadString reads a string argument. A null string is returned as
// the empty string.
func (r *MessageBuffer) ReadString() string {
	length := bin.Value[uint32](r.word())
	if r.err != nil || length == 0 {
		return ""
	}

	v := r.bytes(length)
	if r.err != nil {
		return ""
	}
	if v[length-1] != 0 {
		r.fail(errors.New("string is not null-terminated"))
		return ""
	}

	str := string(v[:length-1])
	r.args = append(r.args, str)
	return str
}

func (r *MessageBuffer) ReadArray() []byte {
	length := bin.Value[uint32](r.word())
	v := r.bytes(length)
	if r.err != nil {
		return nil
	}

	r.args = append(r.args, v)
	return v
}

// ReadFile takes the next file descriptor that arrived on the
// connection. The caller owns the returned file.
func (r *MessageBuffer) ReadFile() *os.File {
	if r.err != nil {
		return nil
	}

	fd, ok := r.conn.popFD()
	if !ok {
		r.fail(errors.New("no more file descriptors"))
		return nil
	}

	f := os.NewFile(uintptr(fd), "")
	r.args = append(r.args, f)
	return f
}

// Debug formats the decoded arguments as a call to method on the
// object described by sender.
func (r *MessageBuffer) Debug(sender, method string) string {
	return fmt.Sprintf("%v.%v(%v)", sender, method, formatArgs(r.args))
}

func formatArgs(vals []any) string {
	args := make([]string, 0, len(vals))
	for _, arg := range vals {
		switch arg := arg.(type) {
		case string:
			args = append(args, strconv.Quote(arg))
		case *os.File:
			args = append(args, "fd "+fmt.Sprint(arg.Fd()))
		case []byte:
			args = append(args, fmt.Sprintf("array[%v]", len(arg)))
		default:
			args = append(args, fmt.Sprint(arg))
		}
	}
	return strings.Join(args, ", ")
}

func padding(l uint32) uint32 {
	return (4 - (l % 4)) % 4
}
