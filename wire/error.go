package wire

import (
	"errors"
	"fmt"
)

// ErrWouldBlock is returned by Conn.Flush when the socket's send
// buffer is full. The remaining data stays queued.
var ErrWouldBlock = errors.New("connection would block")

// ErrBufferFull is returned when a peer stops reading and the amount
// of queued outgoing data grows past what the connection will hold.
var ErrBufferFull = errors.New("outgoing buffer full")

// ProtocolError is a fatal error caused by a peer violating the
// protocol. Servers report it with wl_display.error and then
// disconnect the peer.
type ProtocolError struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

// Errorf returns a ProtocolError for the object with the given id.
func Errorf(id uint32, code uint32, format string, args ...any) *ProtocolError {
	return &ProtocolError{
		ObjectID: id,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
}

func (err *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on object %v (code %v): %v", err.ObjectID, err.Code, err.Message)
}

// UnknownOpError is returned when a message's opcode is not defined
// for the interface of the object it was sent to.
type UnknownOpError struct {
	Interface string
	Op        uint16
}

func (err UnknownOpError) Error() string {
	return fmt.Sprintf("unknown opcode %v for interface %v", err.Op, err.Interface)
}

// UnknownSenderIDError is returned when a message is addressed to an
// object ID that does not exist.
type UnknownSenderIDError struct {
	ID uint32
}

func (err UnknownSenderIDError) Error() string {
	return fmt.Sprintf("unknown object %v", err.ID)
}
