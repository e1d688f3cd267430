// Package compositor implements the protocol, window management and
// frame pipeline of the compositor. Everything in it runs on a single
// loop.Loop and is reached through one State.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"deedles.dev/wlt/cursor"
	"deedles.dev/wlt/internal/arena"
	"deedles.dev/wlt/internal/backend"
	"deedles.dev/wlt/internal/config"
	"deedles.dev/wlt/internal/dmabuf"
	"deedles.dev/wlt/internal/ipc"
	"deedles.dev/wlt/internal/loop"
	"deedles.dev/wlt/internal/region"
	"deedles.dev/wlt/internal/render"
	"deedles.dev/wlt/internal/session"
	"deedles.dev/wlt/internal/xkb"
	"deedles.dev/wlt/protocol"
	"deedles.dev/wlt/server"
	"deedles.dev/wlt/shm"
	"deedles.dev/wlt/wire"
	"github.com/sirupsen/logrus"
)

// pingInterval is how often focused clients are checked for
// liveness.
const pingInterval = 10 * time.Second

// childGrace is how long spawned programs get to exit after SIGTERM
// when the compositor shuts down.
const childGrace = 100 * time.Millisecond

// Options configure a State.
type Options struct {
	Config  *config.Config
	Loop    *loop.Loop
	Backend backend.Backend

	// Listener, if not nil, is the socket that clients connect to.
	Listener *wire.Listener

	// IPCPath is where the IPC socket is created. If it is empty, no
	// IPC server is started.
	IPCPath string

	// Renderer overrides backend selection. If it is nil, the GPU is
	// tried according to the config.
	Renderer *render.Selector

	// Spawn runs exec actions. It defaults to starting the command
	// with sh -c.
	Spawn func(cmd string) error
}

// State is the whole compositor.
type State struct {
	cfg      *config.Config
	loop     *loop.Loop
	backend  backend.Backend
	server   *server.Server
	listener *wire.Listener
	ipc      *ipc.Server
	renderer *render.Selector
	decor    *render.Decorator
	profiler *render.Profiler
	palette  config.Palette
	bindings []config.Binding
	keymap   *xkb.Keymap
	theme    *cursor.Theme
	formats  *dmabuf.Table
	ping     *loop.Timer
	spawn    func(string) error
	children session.Children

	globals []global

	surfaces    arena.Arena[*Surface]
	subsurfaces arena.Arena[*Subsurface]
	buffers     arena.Arena[*Buffer]
	regions     arena.Arena[*region.Region]
	pools       arena.Arena[*shm.Pool]
	xdgSurfaces arena.Arena[*XdgSurface]
	windows     arena.Arena[*Window]
	popups      arena.Arena[*Popup]
	positioners arena.Arena[*Positioner]
	layers      arena.Arena[*LayerSurface]
	sources     arena.Arena[*DataSource]
	offers      arena.Arena[*DataOffer]
	params      arena.Arena[*dmabuf.Params]
	captures    arena.Arena[*Capture]
	configs     arena.Arena[*outputConfig]

	outputs    []*Output
	workspaces []*Workspace
	active     int
	seat       Seat
	selection  arena.Handle

	// condemned buffers were destroyed while a frame was still reading
	// them. They are freed once every such frame has been presented.
	condemned []*Buffer

	serial     uint32
	headSerial uint32
	err        error
	log        *logrus.Entry
}

// clientData is the per-client state kept in server.Client.Data.
type clientData struct {
	registries  []*server.Object
	pointers    []*server.Object
	keyboards   []*server.Object
	dataDevices []*server.Object
	wmBases     []*server.Object
	managers    []*server.Object

	pingSerial   uint32
	pingSent     time.Time
	unresponsive bool
}

func data(c *server.Client) *clientData {
	cd, _ := c.Data.(*clientData)
	if cd == nil {
		cd = new(clientData)
		c.Data = cd
	}
	return cd
}

func without(objs []*server.Object, obj *server.Object) []*server.Object {
	return slices.DeleteFunc(objs, func(o *server.Object) bool { return o == obj })
}

// lookup returns the value that h refers to in a, or nil.
func lookup[T any](a *arena.Arena[*T], h arena.Handle) *T {
	v, ok := a.Get(h)
	if !ok {
		return nil
	}
	return *v
}

// New creates the compositor. The backend must not have been started
// yet. The State owns the backend and the listener from then on, and
// they are closed if New fails.
func New(opts Options) (_ *State, err error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Loop == nil || opts.Backend == nil {
		return nil, errors.New("compositor needs a loop and a backend")
	}

	s := State{
		cfg:      cfg,
		loop:     opts.Loop,
		backend:  opts.Backend,
		listener: opts.Listener,
		renderer: opts.Renderer,
		spawn:    opts.Spawn,
		profiler: new(render.Profiler),
		log:      logrus.WithField("component", "compositor"),
	}
	if s.spawn == nil {
		s.spawn = s.exec
	}
	if s.renderer == nil {
		s.renderer = render.Select(cfg.Display.GPU)
	}
	defer func() {
		if err != nil {
			s.release()
		}
	}()
	s.log.WithField("renderer", s.renderer.Backend().Name()).Info("renderer selected")

	s.applyConfig(cfg)
	s.seat.init(&s)

	keymap, err := xkb.Compile(xkb.Names{
		Model:   cfg.Keyboard.Model,
		Layout:  cfg.Keyboard.Layout,
		Variant: cfg.Keyboard.Variant,
		Options: cfg.Keyboard.Options,
	})
	if err != nil {
		s.log.WithError(err).Warn("falling back to the built-in keymap")
	}
	s.keymap = keymap

	s.formats, err = dmabuf.NewTable(dmabuf.Formats())
	if err != nil {
		return nil, fmt.Errorf("create dma-buf format table: %w", err)
	}

	s.server, err = server.New(s.loop, s.listener, &s)
	if err != nil {
		return nil, err
	}

	err = s.backend.Start(s.loop, &s)
	if err != nil {
		return nil, fmt.Errorf("start %v backend: %w", s.backend.Name(), err)
	}

	displays := s.backend.Displays()
	if len(displays) == 0 {
		return nil, fmt.Errorf("%v backend has no displays", s.backend.Name())
	}
	for _, d := range displays {
		err := s.addOutput(d)
		if err != nil {
			return nil, err
		}
	}

	s.initWorkspaces(cfg.Workspaces.Count)
	s.addGlobals()

	s.ping, err = s.loop.AddTimer(s.pingClients)
	if err != nil {
		return nil, err
	}
	s.ping.Reset(pingInterval)

	if opts.IPCPath != "" {
		s.ipc, err = ipc.NewServer(s.loop, opts.IPCPath, s.ipcState)
		if err != nil {
			s.log.WithError(err).Error("IPC unavailable")
		}
	}

	return &s, nil
}

// applyConfig takes the parts of cfg that can change at runtime.
func (s *State) applyConfig(cfg *config.Config) {
	s.cfg = cfg

	palette, err := cfg.Appearance.Palette()
	if err != nil {
		s.log.WithError(err).Warn("invalid colors in config")
	}
	s.palette = palette

	style := render.Style{
		TitleHeight:     cfg.Appearance.TitleBarHeight,
		BorderWidth:     cfg.Appearance.BorderWidth,
		TitleFocused:    palette.TitleFocused,
		TitleUnfocused:  palette.TitleUnfocused,
		BorderFocused:   palette.BorderFocused,
		BorderUnfocused: palette.BorderUnfocused,
		TitleText:       palette.TitleText,
	}
	if s.decor == nil {
		s.decor = render.NewDecorator(style)
	} else {
		s.decor.SetStyle(style)
	}

	bindings, errs := cfg.Keybinds.Bindings()
	for _, err := range errs {
		s.log.WithError(err).Warn("ignoring keybind")
	}
	s.bindings = bindings

	theme, err := cursor.LoadTheme(cfg.Cursor.Theme, cfg.Cursor.Size)
	if err != nil {
		s.log.WithError(err).Warn("load cursor theme")
	}
	s.theme = theme
}

// Server returns the protocol server, for adding clients directly.
func (s *State) Server() *server.Server {
	return s.server
}

// Run runs the loop until the compositor exits or ctx is canceled.
// It returns nil after a requested exit.
func (s *State) Run(ctx context.Context) error {
	s.log.WithField("backend", s.backend.Name()).Info("running")
	err := s.loop.Run(ctx)
	if s.err != nil {
		return s.err
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Exit stops the loop. err is returned from Run.
func (s *State) Exit(err error) {
	if err != nil && s.err == nil {
		s.err = err
	}
	s.loop.Stop()
}

// Close disconnects every client and releases everything.
func (s *State) Close() error {
	s.children.Terminate(childGrace)

	return s.release()
}

// release frees everything that New acquired. It copes with New
// having failed part way through.
func (s *State) release() error {
	var errs []error
	if s.server != nil {
		errs = append(errs, s.server.Close())
	} else if s.listener != nil {
		errs = append(errs, s.listener.Close())
	}
	if s.ipc != nil {
		errs = append(errs, s.ipc.Close())
	}
	if s.ping != nil {
		s.ping.Close()
	}
	for _, o := range s.outputs {
		o.sched.Close()
	}
	for _, b := range s.condemned {
		b.free(s)
	}
	s.condemned = nil
	errs = append(errs,
		s.backend.Close(),
		s.renderer.Backend().Close(),
	)
	if s.formats != nil {
		errs = append(errs, s.formats.Close())
	}
	if s.keymap != nil {
		errs = append(errs, s.keymap.Close())
	}
	return errors.Join(errs...)
}

func (s *State) nextSerial() uint32 {
	s.serial++
	return s.serial
}

// Connected implements server.Handler.
func (s *State) Connected(c *server.Client) {
	c.Data = new(clientData)
}

// Dispatch implements server.Handler by routing each request on the
// kind of the object it was sent to.
func (s *State) Dispatch(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	switch obj.Kind {
	case protocol.KindDisplay:
		return s.displayRequest(c, obj, msg)
	case protocol.KindRegistry:
		return s.registryRequest(c, obj, msg)
	case protocol.KindCompositor:
		return s.compositorRequest(c, obj, msg)
	case protocol.KindSubcompositor:
		return s.subcompositorRequest(c, obj, msg)
	case protocol.KindSubsurface:
		return s.subsurfaceRequest(c, obj, msg)
	case protocol.KindSurface:
		return s.surfaceRequest(c, obj, msg)
	case protocol.KindRegion:
		return s.regionRequest(c, obj, msg)
	case protocol.KindShm:
		return s.shmRequest(c, obj, msg)
	case protocol.KindShmPool:
		return s.poolRequest(c, obj, msg)
	case protocol.KindBuffer:
		return s.bufferRequest(c, obj, msg)
	case protocol.KindSeat:
		return s.seatRequest(c, obj, msg)
	case protocol.KindPointer:
		return s.pointerRequest(c, obj, msg)
	case protocol.KindKeyboard, protocol.KindTouch:
		s.destroy(c, obj)
		return nil
	case protocol.KindOutput:
		s.destroy(c, obj)
		return nil
	case protocol.KindDataDeviceManager:
		return s.dataDeviceManagerRequest(c, obj, msg)
	case protocol.KindDataDevice:
		return s.dataDeviceRequest(c, obj, msg)
	case protocol.KindDataSource:
		return s.dataSourceRequest(c, obj, msg)
	case protocol.KindDataOffer:
		return s.dataOfferRequest(c, obj, msg)
	case protocol.KindXdgWmBase:
		return s.wmBaseRequest(c, obj, msg)
	case protocol.KindXdgPositioner:
		return s.positionerRequest(c, obj, msg)
	case protocol.KindXdgSurface:
		return s.xdgSurfaceRequest(c, obj, msg)
	case protocol.KindXdgToplevel:
		return s.toplevelRequest(c, obj, msg)
	case protocol.KindXdgPopup:
		return s.popupRequest(c, obj, msg)
	case protocol.KindDecorationManager:
		return s.decorationManagerRequest(c, obj, msg)
	case protocol.KindToplevelDecoration:
		return s.decorationRequest(c, obj, msg)
	case protocol.KindXdgOutputManager:
		return s.xdgOutputManagerRequest(c, obj, msg)
	case protocol.KindXdgOutput:
		s.destroy(c, obj)
		return nil
	case protocol.KindLayerShell:
		return s.layerShellRequest(c, obj, msg)
	case protocol.KindLayerSurface:
		return s.layerSurfaceRequest(c, obj, msg)
	case protocol.KindScreencopyManager:
		return s.screencopyManagerRequest(c, obj, msg)
	case protocol.KindScreencopyFrame:
		return s.captureRequest(c, obj, msg)
	case protocol.KindOutputManager:
		return s.outputManagerRequest(c, obj, msg)
	case protocol.KindOutputHead, protocol.KindOutputMode:
		s.destroy(c, obj)
		return nil
	case protocol.KindOutputConfiguration:
		return s.outputConfigRequest(c, obj, msg)
	case protocol.KindOutputConfigurationHead:
		return nil
	case protocol.KindDmabuf:
		return s.dmabufRequest(c, obj, msg)
	case protocol.KindDmabufParams:
		return s.paramsRequest(c, obj, msg)
	case protocol.KindDmabufFeedback:
		s.destroy(c, obj)
		return nil
	}

	return wire.Errorf(obj.ID, protocol.DisplayErrorImplementation, "%v is not implemented", obj.Kind)
}

// destroy handles a destructor request: the object's state is torn
// down and its ID freed.
func (s *State) destroy(c *server.Client, obj *server.Object) {
	s.cleanup(c, obj)
	c.Delete(obj)
}

// Destroyed implements server.Handler.
func (s *State) Destroyed(c *server.Client, obj *server.Object) {
	s.cleanup(c, obj)
}

// cleanup releases whatever compositor state obj refers to.
func (s *State) cleanup(c *server.Client, obj *server.Object) {
	cd := data(c)
	switch obj.Kind {
	case protocol.KindRegistry:
		cd.registries = without(cd.registries, obj)
	case protocol.KindSurface:
		s.destroySurface(obj.Handle)
	case protocol.KindSubsurface:
		s.destroySubsurface(obj.Handle)
	case protocol.KindRegion:
		s.regions.Remove(obj.Handle)
	case protocol.KindShmPool:
		if pool, ok := s.pools.Remove(obj.Handle); ok {
			pool.Close()
		}
	case protocol.KindBuffer:
		s.destroyBuffer(obj.Handle)
	case protocol.KindPointer:
		cd.pointers = without(cd.pointers, obj)
	case protocol.KindKeyboard:
		cd.keyboards = without(cd.keyboards, obj)
	case protocol.KindOutput:
		for _, o := range s.outputs {
			o.resources = without(o.resources, obj)
		}
	case protocol.KindDataDevice:
		cd.dataDevices = without(cd.dataDevices, obj)
	case protocol.KindDataSource:
		s.destroyDataSource(obj.Handle)
	case protocol.KindDataOffer:
		s.offers.Remove(obj.Handle)
	case protocol.KindXdgWmBase:
		cd.wmBases = without(cd.wmBases, obj)
	case protocol.KindXdgPositioner:
		s.positioners.Remove(obj.Handle)
	case protocol.KindXdgSurface:
		s.destroyXdgSurface(obj.Handle)
	case protocol.KindXdgToplevel:
		s.destroyToplevel(obj.Handle)
	case protocol.KindXdgPopup:
		s.destroyPopup(obj.Handle)
	case protocol.KindToplevelDecoration:
		if w := lookup(&s.windows, obj.Handle); w != nil && w.decoration == obj {
			w.decoration = nil
		}
	case protocol.KindLayerSurface:
		s.destroyLayer(obj.Handle)
	case protocol.KindScreencopyFrame:
		s.destroyCapture(obj.Handle)
	case protocol.KindOutputManager:
		cd.managers = without(cd.managers, obj)
	case protocol.KindOutputConfiguration:
		s.configs.Remove(obj.Handle)
	case protocol.KindDmabufParams:
		if p, ok := s.params.Remove(obj.Handle); ok {
			p.Close()
		}
	}
}

// Disconnected implements server.Handler.
func (s *State) Disconnected(c *server.Client) {
	s.seat.clientGone(c)
}

func (s *State) displayRequest(c *server.Client, obj *server.Object, msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case protocol.DisplaySync:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		cb, err := c.NewObject(id, protocol.KindCallback, 1)
		if err != nil {
			return err
		}
		s.callbackDone(cb, s.serial)

	case protocol.DisplayGetRegistry:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		reg, err := c.NewObject(id, protocol.KindRegistry, 1)
		if err != nil {
			return err
		}
		cd := data(c)
		cd.registries = append(cd.registries, reg)
		s.advertise(c, reg)
	}
	return nil
}

// callbackDone fires a wl_callback and frees it.
func (s *State) callbackDone(cb *server.Object, v uint32) {
	if !cb.Alive() {
		return
	}
	c := cb.Client()
	ev := c.Event(cb, protocol.EvCallbackDone)
	ev.WriteUint(v)
	c.Send(ev)
	c.Delete(cb)
}
