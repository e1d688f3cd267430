package session

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"syscall"
	"testing"
	"time"
	"unsafe"

	"github.com/sirupsen/logrus"
)

func TestVTModeLayout(t *testing.T) {
	if size := unsafe.Sizeof(vtMode{}); size != 8 {
		t.Errorf("vt_mode is %v bytes, want 8", size)
	}
	if size := unsafe.Sizeof(vtState{}); size != 6 {
		t.Errorf("vt_stat is %v bytes, want 6", size)
	}
}

func TestActiveTTY(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     string
		vt       int
		err      bool
	}{
		{name: "Numbered", contents: "tty3\n", want: "tty3", vt: 3},
		{name: "Serial", contents: "ttyS0\n", want: "ttyS0", vt: 7},
		{name: "NotATTY", contents: "console\n", err: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "active")
			err := os.WriteFile(path, []byte(test.contents), 0o644)
			if err != nil {
				t.Fatal(err)
			}

			name, err := activeTTY(path)
			if (err != nil) != test.err {
				t.Fatalf("err = %v", err)
			}
			if test.err {
				return
			}
			if name != test.want {
				t.Errorf("name = %q, want %q", name, test.want)
			}
			if vt := vtNumber(name, 7); vt != test.vt {
				t.Errorf("vt = %v, want %v", vt, test.vt)
			}
		})
	}
}

type recorder struct {
	log *[]string
}

func (r recorder) Pause() error {
	*r.log = append(*r.log, "pause")
	return nil
}

func (r recorder) Resume() error {
	*r.log = append(*r.log, "resume")
	return nil
}

func TestSwitching(t *testing.T) {
	var log []string
	s := Session{
		handler: recorder{&log},
		active:  true,
		ctl: func(req, arg uintptr) error {
			log = append(log, fmt.Sprintf("ioctl %#x %v", req, arg))
			return nil
		},
		log: logrus.WithField("component", "session"),
	}

	s.signaled(releaseSignal)
	if s.Active() {
		t.Error("session active after release")
	}
	s.signaled(releaseSignal)
	s.signaled(acquireSignal)
	if !s.Active() {
		t.Error("session inactive after acquire")
	}

	want := []string{
		"pause",
		"ioctl 0x5605 1",
		"ioctl 0x5605 2",
		"resume",
	}
	if !slices.Equal(log, want) {
		t.Errorf("got %q\nwant %q", log, want)
	}
}

func spawn(t *testing.T, ignoreTerm bool) (*exec.Cmd, chan struct{}) {
	t.Helper()

	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no shell available")
	}

	script := "exec sleep 30"
	if ignoreTerm {
		script = "trap '' TERM; sleep 30; sleep 30"
	}
	c := exec.Command(sh, "-c", script)
	c.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	err = c.Start()
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()
	return c, done
}

func TestTerminate(t *testing.T) {
	tests := []struct {
		name       string
		ignoreTerm bool
	}{
		{name: "Term"},
		{name: "Kill", ignoreTerm: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var children Children
			c, done := spawn(t, test.ignoreTerm)
			children.Add(c.Process)
			go func() {
				<-done
				children.Remove(c.Process.Pid)
			}()
			if n := children.Len(); n != 1 {
				t.Fatalf("tracking %v children", n)
			}

			children.Terminate(100 * time.Millisecond)

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				c.Process.Kill()
				t.Fatal("child survived Terminate")
			}
		})
	}
}

func TestTerminateNothing(t *testing.T) {
	var children Children
	start := time.Now()
	children.Terminate(time.Second)
	if d := time.Since(start); d > 100*time.Millisecond {
		t.Errorf("Terminate waited %v with no children", d)
	}
}
