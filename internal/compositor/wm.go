package compositor

import (
	"image"
	"slices"
	"strconv"

	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/internal/layout"
	"github.com/sirupsen/logrus"
)

// Workspace is a set of windows that are shown together.
type Workspace struct {
	index int
	name  string

	tree layout.Tree[arena.Handle]

	// floating windows, bottom to top.
	floating []arena.Handle

	// windows in the order they were added.
	windows []arena.Handle

	focused arena.Handle
}

func (ws *Workspace) Empty() bool {
	return len(ws.windows) == 0
}

func (s *State) initWorkspaces(n int) {
	n = max(n, 1)
	s.workspaces = make([]*Workspace, n)
	for i := range s.workspaces {
		s.workspaces[i] = &Workspace{index: i, name: strconv.Itoa(i + 1)}
	}
	s.active = 0
}

func (s *State) activeWorkspace() *Workspace {
	return s.workspaces[s.active]
}

// primary returns the output that workspaces are shown on.
func (s *State) primary() *Output {
	return s.outputs[0]
}

// workArea returns the area of the primary output left over by layer
// surfaces' exclusive zones.
func (s *State) workArea() image.Rectangle {
	return s.primary().out.UsableArea()
}

func (s *State) gap() int {
	return max(s.cfg.Appearance.Gap, 0)
}

// tileArea is the area that the tiling tree is arranged in. Together
// with the gap around every cell, it leaves an even gap between
// windows and around the edge of the work area.
func (s *State) tileArea() image.Rectangle {
	return s.workArea().Inset(s.gap() / 2)
}

func (s *State) tileFrame(cell image.Rectangle) image.Rectangle {
	if cell.Empty() {
		return cell
	}
	return cell.Inset(s.gap() / 2)
}

func (s *State) windowVisible(w *Window) bool {
	return w.mapped && w.workspace == s.active
}

// windowBounds returns everything that w covers on screen.
func (s *State) windowBounds(w *Window) image.Rectangle {
	r := w.frame
	if surf := lookup(&s.surfaces, w.surface); surf != nil {
		r = r.Union(s.treeBounds(surf, w.surfaceOrigin(s)))
	}
	return r
}

func (s *State) damageWindow(w *Window) {
	if s.windowVisible(w) {
		s.damageRect(s.windowBounds(w))
	}
}

func (s *State) mapWindow(w *Window) {
	ws := s.activeWorkspace()
	w.mapped = true
	w.workspace = ws.index
	ws.windows = append(ws.windows, w.handle)

	if w.wantsFloat() {
		w.floating = true
	}
	if w.floating {
		w.float = s.floatFrame(w)
		ws.floating = append(ws.floating, w.handle)
	} else {
		ws.tree.Insert(w.handle, ws.focused, s.tileArea())
	}

	s.log.WithFields(logrus.Fields{
		"window":    w.obj,
		"title":     w.title,
		"workspace": ws.name,
	}).Debug("window mapped")

	s.arrange(ws)
	s.damageWindow(w)
	s.focusWindow(w)
	s.publishWorkspaces()
}

// floatFrame returns a frame of the window's own size centered in the
// work area.
func (s *State) floatFrame(w *Window) image.Rectangle {
	if !w.float.Empty() {
		return w.float
	}

	size := w.size
	if size.X <= 0 || size.Y <= 0 {
		if xs := lookup(&s.xdgSurfaces, w.xdg); xs != nil {
			size = s.xdgGeometry(xs).Size()
		}
	}
	area := s.workArea()
	content := image.Rectangle{Max: size}
	frame := content
	if w.ssd {
		frame = s.decor.Frame(content)
	}
	center := area.Min.Add(area.Size().Div(2)).Sub(frame.Size().Div(2))
	return frame.Sub(frame.Min).Add(center)
}

func (s *State) unmapWindow(w *Window) {
	if !w.mapped {
		return
	}
	s.damageWindow(w)

	ws := s.workspaces[w.workspace]
	s.detachWindow(ws, w)
	w.mapped = false
	w.workspace = -1
	s.seat.windowGone(w)

	if ws.focused == w.handle {
		ws.focused = arena.Handle{}
		if ws.index == s.active {
			s.focusWindow(s.topWindow(ws))
		}
	}

	s.arrange(ws)
	s.publishWorkspaces()
}

// detachWindow removes w from every list of ws.
func (s *State) detachWindow(ws *Workspace, w *Window) {
	match := func(h arena.Handle) bool { return h == w.handle }
	ws.tree.Remove(w.handle)
	ws.floating = slices.DeleteFunc(ws.floating, match)
	ws.windows = slices.DeleteFunc(ws.windows, match)
}

// topWindow returns the window of ws that should get focus when the
// focused one goes away.
func (s *State) topWindow(ws *Workspace) *Window {
	stack := s.stacking(ws)
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// stacking returns the windows of ws bottom to top: tiled, then
// floating, then fullscreen.
func (s *State) stacking(ws *Workspace) []*Window {
	var tiled, floating, fullscreen []*Window
	add := func(h arena.Handle) {
		w := lookup(&s.windows, h)
		switch {
		case w == nil:
		case w.fullscreen:
			fullscreen = append(fullscreen, w)
		case w.floating:
			floating = append(floating, w)
		default:
			tiled = append(tiled, w)
		}
	}
	for _, h := range ws.tree.Leaves() {
		add(h)
	}
	for _, h := range ws.floating {
		add(h)
	}
	return slices.Concat(tiled, floating, fullscreen)
}

// fullscreenWindow returns the fullscreen window on the active
// workspace, if there is one.
func (s *State) fullscreenWindow() *Window {
	stack := s.stacking(s.activeWorkspace())
	if len(stack) > 0 && stack[len(stack)-1].fullscreen {
		return stack[len(stack)-1]
	}
	return nil
}

// arrange places every window of ws and configures the ones whose
// size changed.
func (s *State) arrange(ws *Workspace) {
	cells := ws.tree.Arrange(s.tileArea())
	for _, h := range ws.windows {
		w := lookup(&s.windows, h)
		if w == nil {
			continue
		}

		var frame image.Rectangle
		switch {
		case w.fullscreen:
			frame = s.primary().out.Bounds()
		case w.maximized:
			frame = s.workArea()
		case w.floating:
			frame = w.float
		default:
			frame = s.tileFrame(cells[h])
		}
		s.placeWindow(w, frame)
	}
}

func (s *State) arrangeAll() {
	for _, ws := range s.workspaces {
		s.arrange(ws)
	}
}

func (s *State) placeWindow(w *Window, frame image.Rectangle) {
	if frame != w.frame {
		s.damageWindow(w)
		w.frame = frame
		s.damageWindow(w)
	}
	s.configureWindow(w)
}

// TiledFrames returns the frames of the tiled windows of the active
// workspace.
func (s *State) TiledFrames() []image.Rectangle {
	var frames []image.Rectangle
	for _, w := range s.stacking(s.activeWorkspace()) {
		if !w.floating && !w.fullscreen && !w.maximized {
			frames = append(frames, w.frame)
		}
	}
	return frames
}

// focusWindow gives w keyboard focus and raises it. A nil w clears
// the focus.
func (s *State) focusWindow(w *Window) {
	prev := s.seat.focusedWindow()

	if w != nil {
		ws := s.workspaces[w.workspace]
		ws.focused = w.handle
		if w.floating {
			ws.floating = slices.DeleteFunc(ws.floating, func(h arena.Handle) bool { return h == w.handle })
			ws.floating = append(ws.floating, w.handle)
			s.damageWindow(w)
		}
	}

	if s.seat.layerGrab() {
		return
	}

	var surf *Surface
	if w != nil {
		surf = lookup(&s.surfaces, w.surface)
	}
	s.seat.setFocus(surf)

	if prev == w {
		return
	}
	for _, fw := range [...]*Window{prev, w} {
		if fw == nil || !fw.mapped {
			continue
		}
		s.configureWindow(fw)
		if fw.ssd {
			s.damageRect(fw.frame)
		}
	}
	s.publishFocus()
}

// focusedWindow returns the focused window of the active workspace.
func (s *State) focusedWindow() *Window {
	return lookup(&s.windows, s.activeWorkspace().focused)
}

// focusOrder is the order that next and prev cycle through.
func (s *State) focusOrder(ws *Workspace) []arena.Handle {
	return append(ws.tree.Leaves(), ws.floating...)
}

// relative returns the window next to w in direction dir, for focus
// and move actions.
func (s *State) relative(w *Window, dir int, tree layout.Direction, cycle bool) *Window {
	ws := s.workspaces[w.workspace]
	if !cycle {
		h, ok := ws.tree.Neighbor(w.handle, tree, s.tileArea())
		if !ok {
			return nil
		}
		return lookup(&s.windows, h)
	}

	order := s.focusOrder(ws)
	i := slices.Index(order, w.handle)
	if i < 0 || len(order) < 2 {
		return nil
	}
	i = (i + dir + len(order)) % len(order)
	return lookup(&s.windows, order[i])
}

func (s *State) setFloating(w *Window, on bool) {
	if w.floating == on {
		return
	}
	if !w.mapped {
		w.floating = on
		return
	}

	ws := s.workspaces[w.workspace]
	s.damageWindow(w)
	w.floating = on
	if on {
		if w.float.Empty() {
			w.float = w.frame
		}
		ws.tree.Remove(w.handle)
		ws.floating = append(ws.floating, w.handle)
	} else {
		w.float = w.frame
		ws.floating = slices.DeleteFunc(ws.floating, func(h arena.Handle) bool { return h == w.handle })
		ws.tree.Insert(w.handle, s.tiledFocus(ws), s.tileArea())
	}
	s.arrange(ws)
}

// tiledFocus returns the most suitable leaf to split when a window
// joins the tree of ws.
func (s *State) tiledFocus(ws *Workspace) arena.Handle {
	if ws.tree.Contains(ws.focused) {
		return ws.focused
	}
	return arena.Handle{}
}

func (s *State) setFullscreen(w *Window, on bool) {
	if w.fullscreen == on {
		return
	}
	w.fullscreen = on
	if !w.mapped {
		w.frame = s.initialFrame(w)
		return
	}
	s.damageOutputs()
	s.arrange(s.workspaces[w.workspace])
	s.damageOutputs()
}

func (s *State) setMaximized(w *Window, on bool) {
	if w.maximized == on {
		return
	}
	w.maximized = on
	if !w.mapped {
		w.frame = s.initialFrame(w)
		return
	}
	s.arrange(s.workspaces[w.workspace])
}

// switchWorkspace makes workspace i active.
func (s *State) switchWorkspace(i int) {
	if i < 0 || i >= len(s.workspaces) || i == s.active {
		return
	}
	s.seat.cancelGrab()
	s.active = i
	ws := s.activeWorkspace()
	s.arrange(ws)
	s.damageOutputs()
	s.focusWindow(lookup(&s.windows, ws.focused))
	s.seat.refocusPointer()
	s.publishWorkspaces()
}

// moveToWorkspace moves w to workspace i. If follow is set, the
// workspace is switched to as well.
func (s *State) moveToWorkspace(w *Window, i int, follow bool) {
	if !w.mapped || i < 0 || i >= len(s.workspaces) || i == w.workspace {
		return
	}

	from := s.workspaces[w.workspace]
	to := s.workspaces[i]
	s.damageWindow(w)
	s.detachWindow(from, w)
	if from.focused == w.handle {
		from.focused = arena.Handle{}
	}

	w.workspace = i
	to.windows = append(to.windows, w.handle)
	if w.floating {
		to.floating = append(to.floating, w.handle)
	} else {
		to.tree.Insert(w.handle, s.tiledFocus(to), s.tileArea())
	}
	to.focused = w.handle

	s.arrange(from)
	s.arrange(to)

	if follow {
		s.switchWorkspace(i)
		s.focusWindow(w)
		return
	}
	if from.index == s.active {
		s.focusWindow(s.topWindow(from))
	}
	s.publishWorkspaces()
}

// relayout is called when the work area changes.
func (s *State) relayout() {
	s.arrangeAll()
	s.damageOutputs()
}
