package wire

import (
	"fmt"
	"os"

	"deedles.dev/wlt/internal/bin"
	"golang.org/x/sys/unix"
)

// MessageBuilder is a message that is under construction.
type MessageBuilder struct {
	// Method is the name of the method being called. It is included
	// purely for debugging purposes.
	Method string

	args   []any
	sender uint32
	op     uint16
	data   []byte
	fds    []int
	err    error
}

func NewMessage(sender uint32, op uint16) *MessageBuilder {
	return &MessageBuilder{
		sender: sender,
		op:     op,
		data:   make([]byte, headerSize, 32),
	}
}

func (mb *MessageBuilder) Sender() uint32 {
	return mb.sender
}

func (mb *MessageBuilder) Op() uint16 {
	return mb.op
}

func (mb *MessageBuilder) WriteInt(v int32) {
	mb.data = bin.Append(mb.data, v)
	mb.args = append(mb.args, v)
}

func (mb *MessageBuilder) WriteUint(v uint32) {
	mb.data = bin.Append(mb.data, v)
	mb.args = append(mb.args, v)
}

// WriteObject writes an object ID. Zero means null.
func (mb *MessageBuilder) WriteObject(id uint32) {
	mb.WriteUint(id)
}

func (mb *MessageBuilder) WriteNewID(v NewID) {
	mb.WriteString(v.Interface)
	mb.WriteUint(v.Version)
	mb.WriteUint(v.ID)
}

func (mb *MessageBuilder) WriteFixed(v Fixed) {
	mb.data = bin.Append(mb.data, v)
	mb.args = append(mb.args, v)
}

func (mb *MessageBuilder) WriteString(v string) {
	length := uint32(len(v) + 1)
	mb.data = bin.Append(mb.data, length)
	mb.data = append(mb.data, v...)
	mb.data = append(mb.data, 0)
	for i := uint32(0); i < padding(length); i++ {
		mb.data = append(mb.data, 0)
	}
	mb.args = append(mb.args, v)
}

func (mb *MessageBuilder) WriteArray(v []byte) {
	length := uint32(len(v))
	mb.data = bin.Append(mb.data, length)
	mb.data = append(mb.data, v...)
	for i := uint32(0); i < padding(length); i++ {
		mb.data = append(mb.data, 0)
	}
	mb.args = append(mb.args, v)
}

// WriteFile queues a duplicate of v's descriptor to be sent with the
// message. The caller keeps ownership of v.
func (mb *MessageBuilder) WriteFile(v *os.File) {
	mb.WriteFD(int(v.Fd()))
}

// WriteFD queues a duplicate of fd to be sent with the message.
func (mb *MessageBuilder) WriteFD(fd int) {
	if mb.err != nil {
		return
	}

	dup, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		mb.err = fmt.Errorf("dup fd %v: %w", fd, err)
		return
	}
	mb.fds = append(mb.fds, dup)
	mb.args = append(mb.args, os.NewFile(uintptr(dup), ""))
}

// Build finishes the message and queues it on c. The MessageBuilder
// should not be used again after this method is called.
func (mb *MessageBuilder) Build(c *Conn) error {
	if mb.err != nil {
		mb.discard()
		return mb.err
	}
	if len(mb.data) > MaxMessageSize {
		mb.discard()
		return fmt.Errorf("message size %v exceeds maximum", len(mb.data))
	}

	length := uint32(len(mb.data))
	copy(mb.data[0:4], bin.Append(nil, mb.sender))
	copy(mb.data[4:8], bin.Append(nil, (length<<16)|uint32(mb.op)))

	err := c.queue(mb.data, mb.fds)
	mb.fds = nil
	return err
}

func (mb *MessageBuilder) discard() {
	for _, fd := range mb.fds {
		unix.Close(fd)
	}
	mb.fds = nil
}

// Debug formats the message as a call to its method on the object
// described by sender.
func (mb *MessageBuilder) Debug(sender string) string {
	return fmt.Sprintf("%v.%v(%v)", sender, mb.Method, formatArgs(mb.args))
}
