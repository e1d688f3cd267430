package compositor

import (
	"errors"
	"image"
	"image/color"
	"time"

	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/internal/backend"
	"deedles.dev/wlt/internal/output"
	"deedles.dev/wlt/internal/region"
	"deedles.dev/wlt/internal/render"
	"github.com/sirupsen/logrus"
)

var black = color.NRGBA{A: 0xFF}

// visit calls f for every root surface shown on o, bottom to top. w
// is set for the surfaces of windows and nil for everything else,
// including windows' popups.
func (s *State) visit(o *Output, f func(surf *Surface, w *Window)) {
	var popups func(h arena.Handle)
	popups = func(h arena.Handle) {
		for _, p := range s.popupsOf(h) {
			surf := lookup(&s.surfaces, p.surface)
			if surf == nil {
				continue
			}
			f(surf, nil)
			popups(p.surface)
		}
	}

	layer := func(i int) {
		for _, h := range o.layers[i] {
			l := lookup(&s.layers, h)
			if l == nil || !l.mapped || !s.layerVisible(l) {
				continue
			}
			surf := lookup(&s.surfaces, l.surface)
			if surf == nil {
				continue
			}
			f(surf, nil)
		}
	}
	layerPopups := func(i int) {
		for _, h := range o.layers[i] {
			l := lookup(&s.layers, h)
			if l != nil && l.mapped && s.layerVisible(l) {
				popups(l.surface)
			}
		}
	}

	layer(0)
	layer(1)
	if o == s.primary() {
		for _, w := range s.stacking(s.activeWorkspace()) {
			surf := lookup(&s.surfaces, w.surface)
			if surf == nil || !w.mapped {
				continue
			}
			f(surf, w)
			popups(w.surface)
		}
	}
	layerPopups(0)
	layerPopups(1)
	layer(2)
	layerPopups(2)
	layer(3)
	layerPopups(3)
}

// roots returns the root surfaces shown on o, bottom to top.
func (s *State) roots(o *Output) []*Surface {
	var roots []*Surface
	s.visit(o, func(surf *Surface, w *Window) {
		roots = append(roots, surf)
	})
	return roots
}

// scene builds everything that o shows, in output coordinates.
func (s *State) scene(o *Output) *render.Scene {
	bounds := o.out.Bounds()
	sc := render.Scene{Background: s.palette.BackgroundDark}

	surfaces := func(root *Surface, origin image.Point, clip image.Rectangle) {
		s.walkTree(root, origin, func(surf *Surface, pos image.Point) {
			e, ok := surfaceElement(surf, pos, clip)
			if !ok {
				return
			}
			e.Rect = e.Rect.Sub(bounds.Min)
			e.Opaque = e.Opaque.Translate(bounds.Min.Mul(-1))
			sc.Elements = append(sc.Elements, e)
		})
	}

	focused := s.seat.focusedWindow()
	s.visit(o, func(root *Surface, w *Window) {
		origin, ok := s.surfaceOrigin(root)
		if !ok {
			return
		}
		if w == nil {
			surfaces(root, origin, bounds)
			return
		}

		content := w.content(s)
		if w.ssd && !w.fullscreen {
			for _, e := range s.decor.Elements(content, w.title, w == focused) {
				e.Rect = e.Rect.Sub(bounds.Min)
				sc.Elements = append(sc.Elements, e)
			}
		}

		clip := bounds
		if !w.floating {
			clip = content.Intersect(bounds)
			backdrop := s.palette.BackgroundLight
			if w.fullscreen {
				backdrop = black
			}
			if !s.covers(root, origin, content) {
				sc.Elements = append(sc.Elements, render.Element{
					Kind:  render.Solid,
					Rect:  clip.Sub(bounds.Min),
					Color: backdrop,
				})
			}
		}
		surfaces(root, origin, clip)
	})

	if e, ok := s.cursorElement(o); ok {
		sc.Cursor = &e
	}

	if s.cfg.Debug.Profiler && o == s.primary() {
		sc.Elements = append(sc.Elements, s.profiler.Element())
	}

	return &sc
}

// covers reports whether the window surface root fills content on
// its own.
func (s *State) covers(root *Surface, origin image.Point, content image.Rectangle) bool {
	r := image.Rectangle{Min: origin, Max: origin.Add(root.Size())}
	return content.In(r)
}

// surfaceElement returns the element that draws surf at pos, in
// global coordinates, cut down to clip.
func surfaceElement(surf *Surface, pos image.Point, clip image.Rectangle) (render.Element, bool) {
	b := surf.current.buffer
	if b == nil || b.freed {
		return render.Element{}, false
	}

	size := surf.Size()
	full := image.Rectangle{Min: pos, Max: pos.Add(size)}
	rect := full.Intersect(clip)
	if rect.Empty() {
		return render.Element{}, false
	}

	src := b.source(surf.current.transform)
	e := render.Element{
		Kind:   render.Surface,
		Rect:   rect,
		Source: src,
		Opaque: surf.current.opaque.Translate(pos).Intersect(rect),
	}
	if rect != full {
		bsize := src.Size()
		scale := func(v, from, to int) int {
			if from == 0 {
				return 0
			}
			return v * to / from
		}
		local := rect.Sub(pos)
		e.Crop = image.Rect(
			scale(local.Min.X, size.X, bsize.X),
			scale(local.Min.Y, size.Y, bsize.Y),
			scale(local.Max.X, size.X, bsize.X),
			scale(local.Max.Y, size.Y, bsize.Y),
		)
	}
	return e, true
}

// cursorElement returns the cursor as drawn on o.
func (s *State) cursorElement(o *Output) (render.Element, bool) {
	seat := &s.seat
	bounds := o.out.Bounds()
	if seat.cursorHidden || !seat.pos.In(bounds) {
		return render.Element{}, false
	}

	if surf := lookup(&s.surfaces, seat.cursor); surf != nil {
		origin := seat.pos.Sub(surf.hotspot)
		e, ok := surfaceElement(surf, origin, bounds)
		if !ok {
			return render.Element{}, false
		}
		e.Rect = e.Rect.Sub(bounds.Min)
		e.Opaque = region.Region{}
		return e, true
	}

	if seat.image == nil {
		return render.Element{}, false
	}
	r := s.cursorRect().Sub(bounds.Min)
	return render.Element{
		Kind:  render.Picture,
		Rect:  r,
		Image: seat.image.Image,
	}, true
}

// render draws and presents a frame for o. A renderer that lost its
// device gets one retry, possibly with a different backend.
func (s *State) render(o *Output) {
	err := s.renderOnce(o)
	if err != nil && s.renderer.Handle(err) {
		s.log.WithField("renderer", s.renderer.Backend().Name()).Warn("retrying frame")
		o.damage.AddFull()
		err = s.renderOnce(o)
	}

	switch {
	case err == nil:
	case errors.Is(err, output.ErrFlipPending):
		o.sched.Schedule()
	case errors.Is(err, backend.ErrPaused):
		// Resized restarts frames on resume.
	default:
		o.log.WithError(err).Error("render frame")
	}
}

// wantsFrame reports whether o has anything to draw or anyone waiting
// for it to draw.
func (s *State) wantsFrame(o *Output) bool {
	if o.damage.Pending() || s.capturePending(o) {
		return true
	}
	waiting := false
	s.visit(o, func(root *Surface, w *Window) {
		if waiting {
			return
		}
		origin, ok := s.surfaceOrigin(root)
		if !ok {
			return
		}
		s.walkTree(root, origin, func(surf *Surface, pos image.Point) {
			waiting = waiting || len(surf.frames) > 0
		})
	})
	return waiting
}

func (s *State) renderOnce(o *Output) error {
	if o.out.InFlight() {
		return output.ErrFlipPending
	}
	if !s.wantsFrame(o) {
		return nil
	}

	start := time.Now()
	r := s.renderer.Backend()
	target, err := r.BeginFrame(o.display)
	if err != nil {
		return err
	}

	sc := s.scene(o)
	if s.cfg.Debug.Profiler && o == s.primary() {
		o.damage.Add(sc.Elements[len(sc.Elements)-1].Rect)
	}
	sc.Damage = o.damage.Region(target.Age)

	err = r.Composite(sc, target)
	if err != nil {
		return err
	}
	s.copyCaptures(o, target, sc.Damage)

	err = r.Present(o.out, target)
	if err != nil {
		return err
	}
	if s.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		o.log.WithFields(logrus.Fields{
			"elements": len(sc.Elements),
			"damage":   o.damage.Rects(),
			"full":     o.damage.Full(),
			"age":      target.Age,
		}).Trace("frame submitted")
	}
	o.damage.Commit()

	s.holdFrame(o, sc)
	s.profiler.Record(start, time.Now())
	return nil
}

// holdFrame keeps what a submitted frame used until it is presented:
// the buffers that it read and the frame callbacks of the surfaces it
// showed.
func (s *State) holdFrame(o *Output, sc *render.Scene) {
	add := func(e *render.Element) {
		src := e.Source
		if t, ok := src.(*render.Transformed); ok {
			src = t.Source()
		}
		b, ok := src.(*Buffer)
		if !ok {
			return
		}
		b.inFlight++
		o.buffers = append(o.buffers, b)
	}
	for i := range sc.Elements {
		add(&sc.Elements[i])
	}
	if sc.Cursor != nil {
		add(sc.Cursor)
	}

	take := func(surf *Surface, pos image.Point) {
		o.frames = append(o.frames, surf.frames...)
		surf.frames = nil
	}
	s.visit(o, func(root *Surface, w *Window) {
		if origin, ok := s.surfaceOrigin(root); ok {
			s.walkTree(root, origin, take)
		}
	})
	if surf := lookup(&s.surfaces, s.seat.cursor); surf != nil && s.seat.pos.In(o.out.Bounds()) {
		s.walkTree(surf, image.Point{}, take)
	}
}

// presented finishes the frame that o displayed at t.
func (s *State) presented(o *Output, t time.Time) {
	ms := uint32(t.UnixMilli())
	frames := o.frames
	o.frames = nil
	for _, cb := range frames {
		s.callbackDone(cb, ms)
	}

	buffers := o.buffers
	o.buffers = nil
	for _, b := range buffers {
		b.inFlight--
		s.maybeRelease(b)
	}
	s.sweep()

	s.finishCaptures(o, t)
	o.sched.Presented(t)
}
