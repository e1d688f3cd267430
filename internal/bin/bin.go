// Package bin contains utilities for dealing with binary
// representations in host byte order, which is what the Wayland wire
// protocol uses.
package bin

import (
	"encoding/binary"
	"io"
)

// Word is any type that is transmitted as a single 32-bit word.
type Word interface {
	~int32 | ~uint32
}

func Bytes[T Word](v T) (data [4]byte) {
	binary.NativeEndian.PutUint32(data[:], uint32(v))
	return data
}

func Value[T Word](data [4]byte) T {
	return T(binary.NativeEndian.Uint32(data[:]))
}

func Read[T Word](r io.Reader) (T, error) {
	var data [4]byte
	_, err := io.ReadFull(r, data[:])
	if err != nil {
		return 0, err
	}

	return Value[T](data), nil
}

func Write[T Word](w io.Writer, v T) error {
	data := Bytes(v)
	n, err := w.Write(data[:])
	if (err == nil) && (n < len(data)) {
		return io.ErrShortWrite
	}
	return err
}

// Append appends the words in vals to buf.
func Append[T Word](buf []byte, vals ...T) []byte {
	for _, v := range vals {
		buf = binary.NativeEndian.AppendUint32(buf, uint32(v))
	}
	return buf
}

// Append16 appends 16-bit values to buf. The dma-buf feedback
// protocol uses arrays of them as format table indices.
func Append16(buf []byte, vals ...uint16) []byte {
	for _, v := range vals {
		buf = binary.NativeEndian.AppendUint16(buf, v)
	}
	return buf
}

// Append64 appends 64-bit values to buf.
func Append64(buf []byte, vals ...uint64) []byte {
	for _, v := range vals {
		buf = binary.NativeEndian.AppendUint64(buf, v)
	}
	return buf
}
