package compositor

import (
	"image"
	"time"

	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/internal/backend"
	"deedles.dev/wlt/internal/output"
	"deedles.dev/wlt/internal/region"
	"deedles.dev/wlt/internal/render/damage"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/wire"
	"github.com/sirupsen/logrus"
)

// Output is a display along with everything the compositor keeps for
// it.
type Output struct {
	display backend.Display
	out     *output.Output
	sched   *output.Scheduler
	damage  *damage.Tracker
	log     *logrus.Entry

	resources  []*server.Object
	xdgOutputs []*server.Object

	// layers are the layer surfaces on the output, by layer, in the
	// order that they were created.
	layers [4][]arena.Handle

	// frames and buffers belong to the frame in flight. They are
	// released once it has been presented.
	frames  []*server.Object
	buffers []*Buffer

	captures []arena.Handle
}

func (s *State) addOutput(d backend.Display) error {
	out := d.Output()
	o := Output{
		display: d,
		out:     out,
		log:     s.log.WithField("output", out.Name),
	}

	var spec *output.ModeSpec
	if m := s.cfg.Display.Mode; m != "" && m != "auto" {
		parsed, err := output.ParseMode(m)
		if err != nil {
			o.log.WithError(err).Warn("ignoring configured mode")
		}
		spec = parsed
	}
	if mode, ok := output.SelectMode(out.Modes, spec); ok && mode != out.Mode {
		err := d.SetMode(mode)
		if err != nil {
			o.log.WithError(err).WithField("mode", mode).Warn("set mode")
		}
	}
	out.VRR = s.cfg.Display.VRR && out.Mode.VRRMax > 0

	if n := len(s.outputs); n > 0 {
		prev := s.outputs[n-1].out.Bounds()
		out.Position = image.Pt(prev.Max.X, prev.Min.Y)
	}

	o.damage = damage.New(image.Rectangle{Max: out.Mode.Size()})
	sched, err := output.NewScheduler(s.loop, out, func() { s.render(&o) })
	if err != nil {
		return err
	}
	o.sched = sched

	s.outputs = append(s.outputs, &o)
	o.log.WithFields(logrus.Fields{
		"mode":     out.Mode,
		"position": out.Position,
		"vrr":      out.VRR,
	}).Info("output added")

	s.addGlobal(protocol.KindOutput, &o)
	o.sched.Schedule()
	return nil
}

func (o *Output) bind(c *server.Client, obj *server.Object) {
	o.resources = append(o.resources, obj)
	o.sendInfo(c, obj)
}

// sendInfo describes o to a wl_output.
func (o *Output) sendInfo(c *server.Client, obj *server.Object) {
	out := o.out

	ev := c.Event(obj, protocol.EvOutputGeometry)
	ev.WriteInt(int32(out.Position.X))
	ev.WriteInt(int32(out.Position.Y))
	ev.WriteInt(int32(out.PhysicalSize.X))
	ev.WriteInt(int32(out.PhysicalSize.Y))
	ev.WriteInt(protocol.OutputSubpixelUnknown)
	ev.WriteString(out.Make)
	ev.WriteString(out.Model)
	ev.WriteInt(int32(out.Transform))
	c.Send(ev)

	flags := uint32(protocol.OutputModeCurrent)
	if out.Mode.Preferred {
		flags |= protocol.OutputModePreferred
	}
	ev = c.Event(obj, protocol.EvOutputMode)
	ev.WriteUint(flags)
	ev.WriteInt(int32(out.Mode.Width))
	ev.WriteInt(int32(out.Mode.Height))
	ev.WriteInt(int32(out.Mode.RefreshMHz))
	c.Send(ev)

	if obj.Version >= 2 {
		ev := c.Event(obj, protocol.EvOutputScale)
		ev.WriteInt(int32(max(out.Scale, 1)))
		c.Send(ev)
	}
	if obj.Version >= 4 {
		ev := c.Event(obj, protocol.EvOutputName)
		ev.WriteString(out.Name)
		c.Send(ev)

		ev = c.Event(obj, protocol.EvOutputDescription)
		ev.WriteString(out.Description)
		c.Send(ev)
	}
	if obj.Version >= 2 {
		c.Send(c.Event(obj, protocol.EvOutputDone))
	}
}

// outputFor returns the output of d.
func (s *State) outputFor(d backend.Display) *Output {
	for _, o := range s.outputs {
		if o.display == d {
			return o
		}
	}
	return nil
}

// outputOf returns the output that a wl_output refers to.
func (s *State) outputOf(obj *server.Object) *Output {
	for _, o := range s.outputs {
		for _, r := range o.resources {
			if r == obj {
				return o
			}
		}
	}
	return nil
}

// outputAt returns the output containing p.
func (s *State) outputAt(p image.Point) *Output {
	for _, o := range s.outputs {
		if p.In(o.out.Bounds()) {
			return o
		}
	}
	return nil
}

// layoutBounds returns the area covered by every output.
func (s *State) layoutBounds() image.Rectangle {
	var r image.Rectangle
	for _, o := range s.outputs {
		r = r.Union(o.out.Bounds())
	}
	return r
}

// damageRect damages r, in global coordinates, on every output that
// shows part of it.
func (s *State) damageRect(r image.Rectangle) {
	if r.Empty() {
		return
	}
	for _, o := range s.outputs {
		b := o.out.Bounds()
		if !b.Overlaps(r) {
			continue
		}
		o.damage.Add(r.Intersect(b).Sub(b.Min))
		o.sched.Schedule()
	}
}

func (s *State) damageRegion(reg region.Region) {
	for _, r := range reg.Rects() {
		s.damageRect(r)
	}
}

// damageOutputs damages every output entirely.
func (s *State) damageOutputs() {
	for _, o := range s.outputs {
		o.damage.AddFull()
		o.sched.Schedule()
	}
}

// damageCursor damages where the cursor was and where it is now.
func (s *State) damageCursor(old image.Rectangle) {
	cur := s.cursorRect()
	for _, o := range s.outputs {
		b := o.out.Bounds()
		if !b.Overlaps(old) && !b.Overlaps(cur) {
			continue
		}
		o.damage.AddCursor(old.Sub(b.Min), cur.Sub(b.Min))
		o.sched.Schedule()
	}
}

// scheduleAll requests a frame on every output.
func (s *State) scheduleAll() {
	for _, o := range s.outputs {
		o.sched.Schedule()
	}
}

// Presented implements backend.Sink.
func (s *State) Presented(d backend.Display, t time.Time) {
	o := s.outputFor(d)
	if o == nil {
		return
	}
	s.presented(o, t)
}

// Resized implements backend.Sink.
func (s *State) Resized(d backend.Display) {
	o := s.outputFor(d)
	if o == nil {
		return
	}
	o.log.WithField("mode", o.out.Mode).Info("output resized")

	o.damage.Resize(image.Rectangle{Max: o.out.Mode.Size()})
	s.arrangeLayers(o)
	if o == s.primary() {
		s.relayout()
	}
	s.sendOutputChange(o)
	o.sched.Schedule()
}

// sendOutputChange tells every client about o's new state.
func (s *State) sendOutputChange(o *Output) {
	for _, r := range o.resources {
		o.sendInfo(r.Client(), r)
	}
	live := o.xdgOutputs[:0]
	for _, x := range o.xdgOutputs {
		if x.Alive() {
			s.sendXdgOutput(o, x)
			live = append(live, x)
		}
	}
	o.xdgOutputs = live
	for c := range s.clients() {
		for _, mgr := range data(c).managers {
			s.sendHeads(c, mgr)
		}
	}
}

// Closed implements backend.Sink.
func (s *State) Closed(err error) {
	s.log.WithError(err).Error("backend closed")
	s.Exit(err)
}

func (s *State) xdgOutputManagerRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case protocol.XdgOutputManagerDestroy:
		s.destroy(c, obj)

	case protocol.XdgOutputManagerGetXdgOutput:
		id := msg.ReadUint()
		oid := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		xobj, err := c.NewObject(id, protocol.KindXdgOutput, obj.Version)
		if err != nil {
			return err
		}
		o := s.outputOf(c.Object(oid))
		if o == nil {
			return nil
		}
		o.xdgOutputs = append(o.xdgOutputs, xobj)
		s.sendXdgOutput(o, xobj)
	}
	return nil
}

func (s *State) sendXdgOutput(o *Output, obj *server.Object) {
	c := obj.Client()
	b := o.out.Bounds()

	ev := c.Event(obj, protocol.EvXdgOutputLogicalPosition)
	ev.WriteInt(int32(b.Min.X))
	ev.WriteInt(int32(b.Min.Y))
	c.Send(ev)

	ev = c.Event(obj, protocol.EvXdgOutputLogicalSize)
	ev.WriteInt(int32(b.Dx()))
	ev.WriteInt(int32(b.Dy()))
	c.Send(ev)

	if obj.Version >= 2 {
		ev := c.Event(obj, protocol.EvXdgOutputName)
		ev.WriteString(o.out.Name)
		c.Send(ev)

		ev = c.Event(obj, protocol.EvXdgOutputDescription)
		ev.WriteString(o.out.Description)
		c.Send(ev)
	}

	if obj.Version < 3 {
		c.Send(c.Event(obj, protocol.EvXdgOutputDone))
		return
	}
	for _, r := range o.resources {
		if r.Client() == c && r.Version >= 2 {
			c.Send(c.Event(r, protocol.EvOutputDone))
		}
	}
}

// outputConfig is a zwlr_output_configuration_v1. Output
// configuration is read-only, so every one of them fails.
type outputConfig struct {
	serial uint32
	heads  []uint32
	used   bool
}

// sendHeads advertises every output to an output manager.
func (s *State) sendHeads(c *server.Client, mgr *server.Object) {
	for _, o := range s.outputs {
		out := o.out
		head := c.NewServerObject(protocol.KindOutputHead, mgr.Version)
		ev := c.Event(mgr, protocol.EvOutputManagerHead)
		ev.WriteObject(head.ID)
		c.Send(ev)

		ev = c.Event(head, protocol.EvOutputHeadName)
		ev.WriteString(out.Name)
		c.Send(ev)

		ev = c.Event(head, protocol.EvOutputHeadDescription)
		ev.WriteString(out.Description)
		c.Send(ev)

		if out.PhysicalSize.X > 0 && out.PhysicalSize.Y > 0 {
			ev = c.Event(head, protocol.EvOutputHeadPhysicalSize)
			ev.WriteInt(int32(out.PhysicalSize.X))
			ev.WriteInt(int32(out.PhysicalSize.Y))
			c.Send(ev)
		}

		var current *server.Object
		for _, m := range out.Modes {
			mode := c.NewServerObject(protocol.KindOutputMode, mgr.Version)
			ev = c.Event(head, protocol.EvOutputHeadMode)
			ev.WriteObject(mode.ID)
			c.Send(ev)

			ev = c.Event(mode, protocol.EvOutputModeSize)
			ev.WriteInt(int32(m.Width))
			ev.WriteInt(int32(m.Height))
			c.Send(ev)

			ev = c.Event(mode, protocol.EvOutputModeRefresh)
			ev.WriteInt(int32(m.RefreshMHz))
			c.Send(ev)

			if m.Preferred {
				c.Send(c.Event(mode, protocol.EvOutputModePreferred))
			}
			if m == out.Mode {
				current = mode
			}
		}

		ev = c.Event(head, protocol.EvOutputHeadEnabled)
		ev.WriteInt(1)
		c.Send(ev)

		if current != nil {
			ev = c.Event(head, protocol.EvOutputHeadCurrentMode)
			ev.WriteObject(current.ID)
			c.Send(ev)
		}

		ev = c.Event(head, protocol.EvOutputHeadPosition)
		ev.WriteInt(int32(out.Position.X))
		ev.WriteInt(int32(out.Position.Y))
		c.Send(ev)

		ev = c.Event(head, protocol.EvOutputHeadTransform)
		ev.WriteInt(int32(out.Transform))
		c.Send(ev)

		ev = c.Event(head, protocol.EvOutputHeadScale)
		ev.WriteFixed(wire.FixedInt(max(out.Scale, 1)))
		c.Send(ev)

		if mgr.Version >= 2 {
			ev = c.Event(head, protocol.EvOutputHeadMake)
			ev.WriteString(out.Make)
			c.Send(ev)

			ev = c.Event(head, protocol.EvOutputHeadModel)
			ev.WriteString(out.Model)
			c.Send(ev)
		}
		if mgr.Version >= 4 {
			var vrr uint32
			if out.VRR {
				vrr = 1
			}
			ev = c.Event(head, protocol.EvOutputHeadAdaptiveSync)
			ev.WriteUint(vrr)
			c.Send(ev)
		}
	}

	s.headSerial = s.nextSerial()
	ev := c.Event(mgr, protocol.EvOutputManagerDone)
	ev.WriteUint(s.headSerial)
	c.Send(ev)
}

func (s *State) outputManagerRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case protocol.OutputManagerCreateConfiguration:
		id := msg.ReadUint()
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		cobj, err := c.NewObject(id, protocol.KindOutputConfiguration, obj.Version)
		if err != nil {
			return err
		}
		cobj.Handle = s.configs.Insert(&outputConfig{serial: serial})

	case protocol.OutputManagerStop:
		c.Send(c.Event(obj, protocol.EvOutputManagerFinished))
		s.destroy(c, obj)
	}
	return nil
}

func (s *State) outputConfigRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	cfg := lookup(&s.configs, obj.Handle)
	if cfg == nil {
		if msg.Op() == protocol.OutputConfigurationDestroy {
			s.destroy(c, obj)
		}
		return nil
	}

	switch msg.Op() {
	case protocol.OutputConfigurationEnableHead, protocol.OutputConfigurationDisableHead:
		var id uint32
		if msg.Op() == protocol.OutputConfigurationEnableHead {
			id = msg.ReadUint()
		}
		head := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		if cfg.used {
			return wire.Errorf(obj.ID, protocol.OutputConfigurationErrorAlreadyUsed, "configuration already used")
		}
		for _, h := range cfg.heads {
			if h == head {
				return wire.Errorf(obj.ID, protocol.OutputConfigurationErrorAlreadyConfiguredHead, "head %v already configured", head)
			}
		}
		cfg.heads = append(cfg.heads, head)
		if id != 0 {
			_, err := c.NewObject(id, protocol.KindOutputConfigurationHead, obj.Version)
			if err != nil {
				return err
			}
		}

	case protocol.OutputConfigurationApply, protocol.OutputConfigurationTest:
		if cfg.used {
			return wire.Errorf(obj.ID, protocol.OutputConfigurationErrorAlreadyUsed, "configuration already used")
		}
		cfg.used = true

		result := uint16(protocol.EvOutputConfigurationFailed)
		if cfg.serial != s.headSerial {
			result = protocol.EvOutputConfigurationCancelled
		}
		c.Send(c.Event(obj, result))

	case protocol.OutputConfigurationDestroy:
		s.destroy(c, obj)
	}
	return nil
}
