// Package ioctl encodes Linux ioctl request numbers and issues them.
package ioctl

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	none  = 0
	write = 1
	read  = 2

	nrShift   = 0
	typeShift = 8
	sizeShift = 16
	dirShift  = 30
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<dirShift | size<<sizeShift | typ<<typeShift | nr<<nrShift
}

// IO is _IO(typ, nr).
func IO(typ, nr uintptr) uintptr {
	return ioc(none, typ, nr, 0)
}

// IOR is _IOR(typ, nr, size).
func IOR(typ, nr, size uintptr) uintptr {
	return ioc(read, typ, nr, size)
}

// IOW is _IOW(typ, nr, size).
func IOW(typ, nr, size uintptr) uintptr {
	return ioc(write, typ, nr, size)
}

// IOWR is _IOWR(typ, nr, size).
func IOWR(typ, nr, size uintptr) uintptr {
	return ioc(read|write, typ, nr, size)
}

// Ioctl performs req on fd with arg, retrying on EINTR and EAGAIN
// like drmIoctl does.
func Ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
		switch errno {
		case 0:
			return nil
		case unix.EINTR, unix.EAGAIN:
			continue
		}
		return errno
	}
}

// Int performs req on fd with an integer argument.
func Int(fd int, req uintptr, v uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, v)
	if errno != 0 {
		return errno
	}
	return nil
}

// IsNotSupported reports whether err means that the device does not
// implement the request.
func IsNotSupported(err error) bool {
	return errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EOPNOTSUPP)
}
