package session

import (
	"errors"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Children tracks the processes that the compositor started so that
// they can be stopped when it exits. Each child is expected to lead
// its own process group.
//
// The zero value is ready to use.
type Children struct {
	m     sync.Mutex
	procs map[int]*os.Process
}

// Add starts tracking p.
func (c *Children) Add(p *os.Process) {
	c.m.Lock()
	defer c.m.Unlock()

	if c.procs == nil {
		c.procs = make(map[int]*os.Process)
	}
	c.procs[p.Pid] = p
}

// Remove stops tracking the process with the given pid, usually
// because it has been reaped.
func (c *Children) Remove(pid int) {
	c.m.Lock()
	defer c.m.Unlock()

	delete(c.procs, pid)
}

// Len returns the number of tracked processes.
func (c *Children) Len() int {
	c.m.Lock()
	defer c.m.Unlock()

	return len(c.procs)
}

func (c *Children) signal(sig unix.Signal) {
	c.m.Lock()
	defer c.m.Unlock()

	for pid := range c.procs {
		err := unix.Kill(-pid, sig)
		if errors.Is(err, unix.ESRCH) {
			delete(c.procs, pid)
		}
	}
}

// Terminate sends SIGTERM to the process group of every tracked
// child and gives them grace to exit. Whatever is still tracked
// afterwards is killed.
func (c *Children) Terminate(grace time.Duration) {
	if c.Len() == 0 {
		return
	}

	c.signal(unix.SIGTERM)
	deadline := time.Now().Add(grace)
	for c.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	c.signal(unix.SIGKILL)
}
