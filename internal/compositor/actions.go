package compositor

import (
	"image"
	"os"
	"os/exec"
	"syscall"

	"deedles.dev/wlt/cursor"
	"deedles.dev/wlt/internal/config"
	"deedles.dev/wlt/internal/layout"
	"deedles.dev/wlt/internal/xkb"
	"github.com/sirupsen/logrus"
)

// floatStep is how far move actions push a floating window.
const floatStep = 32

func (s *State) matchBinding(mods uint32, sym xkb.Keysym) (config.Binding, bool) {
	for _, b := range s.bindings {
		if b.Keybind.Matches(mods, sym) {
			return b, true
		}
	}
	return config.Binding{}, false
}

func treeDirection(d config.Direction) (layout.Direction, bool) {
	switch d {
	case config.DirLeft:
		return layout.Left, true
	case config.DirRight:
		return layout.Right, true
	case config.DirUp:
		return layout.Up, true
	case config.DirDown:
		return layout.Down, true
	}
	return 0, false
}

// target returns the window next to w in direction d.
func (s *State) target(w *Window, d config.Direction) *Window {
	switch d {
	case config.DirNext:
		return s.relative(w, 1, 0, true)
	case config.DirPrev:
		return s.relative(w, -1, 0, true)
	}
	td, ok := treeDirection(d)
	if !ok {
		return nil
	}
	return s.relative(w, 0, td, false)
}

func (s *State) runAction(a config.Action) {
	w := s.focusedWindow()
	ws := s.activeWorkspace()

	switch a.Kind {
	case config.ActionExit:
		s.log.Info("exit requested")
		s.Exit(nil)

	case config.ActionReload:
		s.reload()

	case config.ActionExec, config.ActionSpawn:
		err := s.spawn(a.Command)
		if err != nil {
			s.log.WithError(err).WithField("command", a.Command).Error("exec failed")
		}

	case config.ActionClose:
		if w != nil {
			s.closeWindow(w)
		}

	case config.ActionKill:
		if w != nil {
			c := w.obj.Client()
			c.Log().Info("killing client")
			c.Destroy()
		}

	case config.ActionFocus:
		if w == nil {
			s.focusWindow(s.topWindow(ws))
			return
		}
		if t := s.target(w, a.Dir); t != nil {
			s.focusWindow(t)
		}

	case config.ActionMove, config.ActionSwap:
		if w == nil {
			return
		}
		if w.floating && a.Kind == config.ActionMove {
			s.nudge(w, a.Dir)
			return
		}
		t := s.target(w, a.Dir)
		if t == nil || t.floating || w.floating {
			return
		}
		ws.tree.Swap(w.handle, t.handle)
		s.arrange(ws)

	case config.ActionFullscreen:
		if w != nil {
			s.setFullscreen(w, a.Toggle.Apply(w.fullscreen))
		}

	case config.ActionFloating:
		if w != nil {
			s.setFloating(w, a.Toggle.Apply(w.floating))
		}

	case config.ActionMaximize:
		if w != nil {
			s.setMaximized(w, a.Toggle.Apply(w.maximized))
		}

	case config.ActionResize:
		if w != nil {
			s.resizeWindow(w, a.Dir, a.Amount)
		}

	case config.ActionWorkspace:
		s.switchWorkspace(s.resolveWorkspace(a.Target))

	case config.ActionMoveToWorkspace, config.ActionMoveToWorkspaceSilent:
		if w != nil {
			s.moveToWorkspace(w, s.resolveWorkspace(a.Target), a.Kind == config.ActionMoveToWorkspace)
		}

	case config.ActionSplitH:
		ws.tree.SetNextSplit(layout.Horizontal)

	case config.ActionSplitV:
		ws.tree.SetNextSplit(layout.Vertical)

	case config.ActionSplitToggle:
		if w != nil && ws.tree.ToggleSplit(w.handle) {
			s.arrange(ws)
		}

	case config.ActionCursorTheme:
		s.setCursorTheme(a.Theme, a.Size)
	}
}

func (s *State) resolveWorkspace(t config.WorkspaceTarget) int {
	return t.Resolve(s.active, len(s.workspaces), func(i int) bool {
		return s.workspaces[i].Empty()
	})
}

// nudge moves a floating window a step in direction d.
func (s *State) nudge(w *Window, d config.Direction) {
	var delta image.Point
	switch d {
	case config.DirLeft:
		delta.X = -floatStep
	case config.DirRight:
		delta.X = floatStep
	case config.DirUp:
		delta.Y = -floatStep
	case config.DirDown:
		delta.Y = floatStep
	default:
		return
	}
	w.float = w.frame.Add(delta)
	s.placeWindow(w, w.float)
}

// resizeWindow grows or shrinks w by amount pixels. Right and down
// grow, left and up shrink.
func (s *State) resizeWindow(w *Window, d config.Direction, amount int) {
	var delta image.Point
	switch d {
	case config.DirLeft:
		delta.X = -amount
	case config.DirRight:
		delta.X = amount
	case config.DirUp:
		delta.Y = -amount
	case config.DirDown:
		delta.Y = amount
	case config.DirGrow:
		delta = image.Pt(amount, amount)
	case config.DirShrink:
		delta = image.Pt(-amount, -amount)
	}

	if w.fullscreen || w.maximized {
		return
	}
	if w.floating {
		frame := w.frame
		frame.Max = frame.Max.Add(delta)
		if frame.Dx() < 1 || frame.Dy() < 1 {
			return
		}
		w.float = frame
		s.placeWindow(w, frame)
		return
	}

	ws := s.workspaces[w.workspace]
	changed := false
	if delta.X != 0 {
		changed = ws.tree.Resize(w.handle, layout.Horizontal, delta.X, s.tileArea()) || changed
	}
	if delta.Y != 0 {
		changed = ws.tree.Resize(w.handle, layout.Vertical, delta.Y, s.tileArea()) || changed
	}
	if changed {
		s.arrange(ws)
	}
}

// reload re-reads the config file. Only the settings that can change
// at runtime are taken. A config that can't be read leaves everything
// as it was.
func (s *State) reload() {
	cfg, err := config.Load(s.cfg.Path, nil)
	if err != nil {
		s.log.WithError(err).Error("reload config")
		return
	}

	old := s.cfg
	cfg.Path = old.Path
	cfg.Display = old.Display
	cfg.Workspaces = old.Workspaces
	cfg.Log = old.Log
	cfg.Keyboard.Layout = old.Keyboard.Layout
	cfg.Keyboard.Model = old.Keyboard.Model
	cfg.Keyboard.Variant = old.Keyboard.Variant
	cfg.Keyboard.Options = old.Keyboard.Options

	s.applyConfig(cfg)
	s.seat.loadCursor()
	for c := range s.clients() {
		for _, kb := range data(c).keyboards {
			s.seat.sendRepeatInfo(kb)
		}
	}

	s.arrangeAll()
	s.damageOutputs()
	s.log.WithField("path", cfg.Path).Info("config reloaded")
}

func (s *State) setCursorTheme(name string, size int) {
	if size <= 0 {
		size = s.cfg.Cursor.Size
	}
	theme, err := cursor.LoadTheme(name, size)
	if err != nil {
		s.log.WithError(err).WithField("theme", name).Warn("load cursor theme")
	}
	s.theme = theme
	s.cfg.Cursor.Theme, s.cfg.Cursor.Size = name, size
	s.seat.loadCursor()
}

// exec runs cmd with sh in a new session. The child is reaped in the
// background and terminated with the compositor if still running.
func (s *State) exec(cmd string) error {
	c := exec.Command("/bin/sh", "-c", cmd)
	c.Stdin = nil
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if s.listener != nil {
		c.Env = append(os.Environ(), "WAYLAND_DISPLAY="+s.listener.Name())
	}

	err := c.Start()
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"command": cmd,
		"pid":     c.Process.Pid,
	}).Info("spawned")

	s.children.Add(c.Process)
	go func() {
		c.Wait()
		s.children.Remove(c.Process.Pid)
	}()
	return nil
}
