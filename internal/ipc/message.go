// Package ipc serves read-only compositor state to status bars and
// other tools. Every message is a 4-byte little-endian length followed
// by that many bytes of JSON.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// MaxMessageSize bounds the JSON payload of a single message.
const MaxMessageSize = 1 << 20

// Message types.
const (
	TypeGetState  = "get_state"
	TypeSubscribe = "subscribe"

	TypeState     = "state"
	TypeWorkspace = "workspace"
	TypeFocus     = "focus"
	TypeTitle     = "title"
	TypeError     = "error"
)

// Workspace describes one workspace. IDs start at 1.
type Workspace struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	WindowCount int    `json:"window_count"`
	Urgent      bool   `json:"urgent"`
	Active      bool   `json:"active"`
}

// State is a snapshot of everything a status bar shows.
type State struct {
	Workspaces      []Workspace `json:"workspaces"`
	ActiveWorkspace int         `json:"active_workspace"`
	FocusedWindow   string      `json:"focused_window"`
}

// Message is both the request and the event format. Which fields are
// set depends on Type: state carries everything, workspace carries the
// workspace list and the active workspace, and focus and title carry
// the focused window's title.
type Message struct {
	Type            string      `json:"type"`
	Workspaces      []Workspace `json:"workspaces,omitempty"`
	ActiveWorkspace int         `json:"active_workspace,omitempty"`
	FocusedWindow   *string     `json:"focused_window,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// StateMessage wraps s in a state message.
func StateMessage(s State) Message {
	return Message{
		Type:            TypeState,
		Workspaces:      s.Workspaces,
		ActiveWorkspace: s.ActiveWorkspace,
		FocusedWindow:   &s.FocusedWindow,
	}
}

// Encode returns msg framed for the wire.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %v message: %w", msg.Type, err)
	}
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("%v message is %v bytes", msg.Type, len(data))
	}

	frame := make([]byte, 4, 4+len(data))
	binary.LittleEndian.PutUint32(frame, uint32(len(data)))
	return append(frame, data...), nil
}

// Write writes one framed message to w.
func Write(w io.Writer, msg Message) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// Read reads one framed message from r.
func Read(r io.Reader) (Message, error) {
	var head [4]byte
	_, err := io.ReadFull(r, head[:])
	if err != nil {
		return Message{}, err
	}
	size := binary.LittleEndian.Uint32(head[:])
	if size > MaxMessageSize {
		return Message{}, fmt.Errorf("message of %v bytes is too large", size)
	}

	data := make([]byte, size)
	_, err = io.ReadFull(r, data)
	if err != nil {
		return Message{}, fmt.Errorf("read message body: %w", err)
	}

	var msg Message
	err = json.Unmarshal(data, &msg)
	if err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}

// split extracts the first complete frame from buf. It returns nil if
// there isn't one yet.
func split(buf []byte) (payload, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, buf, nil
	}
	size := binary.LittleEndian.Uint32(buf)
	if size > MaxMessageSize {
		return nil, nil, fmt.Errorf("message of %v bytes is too large", size)
	}
	if len(buf) < 4+int(size) {
		return nil, buf, nil
	}
	return buf[4 : 4+size], buf[4+size:], nil
}

// SocketPath returns where the IPC socket lives: wlt.sock in the XDG
// runtime directory, or /tmp/wlt-<uid>.sock if there is none.
func SocketPath() string {
	if dir := xdg.RuntimeDir; dir != "" {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return filepath.Join(dir, "wlt.sock")
		}
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("wlt-%v.sock", os.Getuid()))
}
