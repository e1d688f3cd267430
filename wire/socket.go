package wire

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"deedles.dev/wlt/internal/set"
	"github.com/adrg/xdg"
	"golang.org/x/sys/unix"
)

// SocketPath determines the path to the Wayland Unix domain socket
// based on the contents of the $WAYLAND_DISPLAY environment variable.
// It does not attempt to determine if the value corresponds to an
// actual socket.
func SocketPath() string {
	v, ok := os.LookupEnv("WAYLAND_DISPLAY")
	if !ok {
		v = "wayland-0"
	}
	if filepath.IsAbs(v) {
		return v
	}

	return filepath.Join(xdg.RuntimeDir, v)
}

// NewSocketName returns the lowest numbered wayland-N name that is not
// already present in the runtime directory.
func NewSocketName() (string, error) {
	entries, err := os.ReadDir(xdg.RuntimeDir)
	if err != nil {
		return "", err
	}

	names := make(set.Set[int], len(entries))
	for _, ent := range entries {
		after, ok := strings.CutPrefix(ent.Name(), "wayland-")
		if !ok {
			continue
		}
		after = strings.TrimSuffix(after, ".lock")
		n, err := strconv.ParseInt(after, 10, 0)
		if err != nil {
			continue
		}
		names.Add(int(n))
	}

	var num int
	for names.Has(num) {
		num++
	}

	return fmt.Sprintf("wayland-%v", num), nil
}

// Listener is a listening Wayland socket guarded by a lock file.
type Listener struct {
	fd   int
	lock int
	path string
	name string
}

// Listen creates a listening socket called name in the runtime
// directory. If name is empty, one is picked with NewSocketName. A
// socket left behind by a process that no longer holds its lock file
// is replaced.
func Listen(name string) (*Listener, error) {
	if name == "" {
		n, err := NewSocketName()
		if err != nil {
			return nil, fmt.Errorf("pick socket name: %w", err)
		}
		name = n
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(xdg.RuntimeDir, name)
	}

	lock, err := unix.Open(path+".lock", unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0o660)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	err = unix.Flock(lock, unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		unix.Close(lock)
		return nil, fmt.Errorf("socket %q is in use: %w", path, err)
	}

	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		unix.Close(lock)
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	fd, err := listenUnix(path)
	if err != nil {
		unix.Close(lock)
		return nil, err
	}

	return &Listener{fd: fd, lock: lock, path: path, name: filepath.Base(path)}, nil
}

func listenUnix(path string) (int, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("create socket: %w", err)
	}
	err = unix.Bind(fd, &unix.SockaddrUnix{Name: path})
	if err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind %q: %w", path, err)
	}
	err = unix.Listen(fd, 128)
	if err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen on %q: %w", path, err)
	}
	return fd, nil
}

// ListenUnix creates a plain non-blocking listening Unix socket at
// path, replacing any file already there.
func ListenUnix(path string) (int, error) {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return -1, fmt.Errorf("remove stale socket: %w", err)
	}
	return listenUnix(path)
}

func (lis *Listener) Fd() int {
	return lis.fd
}

// Name returns the socket's name, suitable for WAYLAND_DISPLAY.
func (lis *Listener) Name() string {
	return lis.name
}

func (lis *Listener) Path() string {
	return lis.path
}

// Credentials identify the process on the other end of a connection.
type Credentials struct {
	PID int32
	UID uint32
	GID uint32
}

// Accept accepts a pending connection. It returns nil and no error if
// there is none.
func (lis *Listener) Accept() (*Conn, Credentials, error) {
	return Accept(lis.fd)
}

// Accept accepts a pending connection on the listening socket fd.
func Accept(fd int) (*Conn, Credentials, error) {
	nfd, _, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return nil, Credentials{}, nil
		}
		return nil, Credentials{}, fmt.Errorf("accept: %w", err)
	}

	var creds Credentials
	ucred, err := unix.GetsockoptUcred(nfd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	if err == nil {
		creds = Credentials{PID: ucred.Pid, UID: ucred.Uid, GID: ucred.Gid}
	}

	c, err := NewConn(nfd)
	if err != nil {
		unix.Close(nfd)
		return nil, creds, err
	}
	return c, creds, nil
}

// Close stops listening and removes the socket and its lock file.
func (lis *Listener) Close() error {
	if lis.fd < 0 {
		return nil
	}
	err := unix.Close(lis.fd)
	lis.fd = -1
	os.Remove(lis.path)
	os.Remove(lis.path + ".lock")
	unix.Close(lis.lock)
	return err
}

// Dial opens a connection to the Wayland socket based on the current
// environment. It follows the procedure outlined at
// https://wayland-book.com/protocol-design/wire-protocol.html#transports
func Dial() (*Conn, error) {
	if v, ok := os.LookupEnv("WAYLAND_SOCKET"); ok {
		fd, err := strconv.ParseInt(v, 10, 0)
		if err != nil {
			return nil, fmt.Errorf("parse WAYLAND_SOCKET fd: %w", err)
		}
		os.Unsetenv("WAYLAND_SOCKET")
		unix.CloseOnExec(int(fd))
		return NewConn(int(fd))
	}

	return DialPath(SocketPath())
}

// DialPath connects to the Unix socket at path.
func DialPath(path string) (*Conn, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("create socket: %w", err)
	}
	err = unix.Connect(fd, &unix.SockaddrUnix{Name: path})
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connect to %q: %w", path, err)
	}
	return NewConn(fd)
}
