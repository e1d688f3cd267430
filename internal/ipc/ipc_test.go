package ipc_test

import (
	"bytes"
	"net"
	"path/filepath"
	"testing"
	"time"

	"deedles.dev/wlt/internal/ipc"
	"deedles.dev/wlt/internal/loop"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func testState() ipc.State {
	return ipc.State{
		Workspaces: []ipc.Workspace{
			{ID: 1, Name: "1", WindowCount: 2, Active: true},
			{ID: 2, Name: "2"},
		},
		ActiveWorkspace: 1,
		FocusedWindow:   "terminal",
	}
}

func serve(t *testing.T) (*loop.Loop, *ipc.Server) {
	t.Helper()

	l, err := loop.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })

	s, err := ipc.NewServer(l, filepath.Join(t.TempDir(), "wlt.sock"), testState)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	return l, s
}

// pump dispatches l until done is closed.
func pump(t *testing.T, l *loop.Loop, done <-chan struct{}, step func()) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		select {
		case <-done:
			return
		default:
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out")
		}
		err := l.Dispatch(10 * time.Millisecond)
		if err != nil {
			t.Fatal(err)
		}
		if step != nil {
			step()
		}
	}
}

func TestFraming(t *testing.T) {
	var buf bytes.Buffer
	err := ipc.Write(&buf, ipc.Message{Type: ipc.TypeGetState})
	if err != nil {
		t.Fatal(err)
	}
	if got := buf.Bytes()[:4]; !bytes.Equal(got, []byte{20, 0, 0, 0}) {
		t.Errorf("length prefix = %v", got)
	}

	msg, err := ipc.Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != ipc.TypeGetState {
		t.Errorf("type = %q", msg.Type)
	}

	_, err = ipc.Read(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0x7F}))
	if err == nil {
		t.Error("oversized frame accepted")
	}
}

func TestGetState(t *testing.T) {
	l, s := serve(t)

	done := make(chan struct{})
	var state ipc.State
	var err error
	go func() {
		defer close(done)
		var c *ipc.Client
		c, err = ipc.Dial(s.Path())
		if err != nil {
			return
		}
		defer c.Close()
		state, err = c.GetState()
	}()
	pump(t, l, done, nil)

	if err != nil {
		t.Fatal(err)
	}
	want := testState()
	if state.ActiveWorkspace != want.ActiveWorkspace || state.FocusedWindow != want.FocusedWindow {
		t.Errorf("state = %+v", state)
	}
	if len(state.Workspaces) != 2 || state.Workspaces[0] != want.Workspaces[0] {
		t.Errorf("workspaces = %+v", state.Workspaces)
	}
}

func TestUnknownRequest(t *testing.T) {
	l, s := serve(t)

	done := make(chan struct{})
	var msg ipc.Message
	var err error
	go func() {
		defer close(done)
		var c net.Conn
		c, err = net.Dial("unix", s.Path())
		if err != nil {
			return
		}
		defer c.Close()

		err = ipc.Write(c, ipc.Message{Type: "reload"})
		if err != nil {
			return
		}
		msg, err = ipc.Read(c)
	}()
	pump(t, l, done, nil)

	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != ipc.TypeError || msg.Error == "" {
		t.Errorf("reply = %+v", msg)
	}
}

func TestSubscribe(t *testing.T) {
	l, s := serve(t)

	done := make(chan struct{})
	var events []ipc.Message
	var err error
	go func() {
		defer close(done)
		var c *ipc.Client
		c, err = ipc.Dial(s.Path())
		if err != nil {
			return
		}
		defer c.Close()
		err = c.Subscribe(func(msg ipc.Message) bool {
			events = append(events, msg)
			return len(events) < 2
		})
	}()

	published := false
	pump(t, l, done, func() {
		if !published && s.Subscribers() == 1 {
			s.Publish(ipc.Message{
				Type:            ipc.TypeWorkspace,
				Workspaces:      testState().Workspaces,
				ActiveWorkspace: 2,
			})
			published = true
		}
	})

	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %v events", len(events))
	}
	if events[0].Type != ipc.TypeState {
		t.Errorf("first event = %q", events[0].Type)
	}
	if events[1].Type != ipc.TypeWorkspace || events[1].ActiveWorkspace != 2 {
		t.Errorf("second event = %+v", events[1])
	}
}

func TestStalledClientDropped(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	l, s := serve(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c, err := net.Dial("unix", s.Path())
		if err != nil {
			return
		}
		defer c.Close()

		var req bytes.Buffer
		ipc.Write(&req, ipc.Message{Type: ipc.TypeGetState})
		batch := bytes.Repeat(req.Bytes(), 1000)

		// Never read, so replies pile up until the server gives up.
		for {
			_, err := c.Write(batch)
			if err != nil {
				return
			}
		}
	}()
	pump(t, l, done, nil)

	var drops int
	for _, e := range hook.AllEntries() {
		if e.Message == "IPC client is not reading, disconnecting" {
			drops++
		}
	}
	if drops != 1 {
		t.Errorf("connection dropped %v times", drops)
	}
}
