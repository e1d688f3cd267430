package render

import (
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"deedles.dev/wlt/internal/output"
	"deedles.dev/wlt/internal/region"
	"deedles.dev/wlt/shm"
	"deedles.dev/wlt/shm/shmimage"
)

type memScreen struct {
	img   *shmimage.ARGB8888
	flips int
}

func newMemScreen(w, h int) *memScreen {
	img := shmimage.NewARGB8888(image.Rect(0, 0, w, h))
	img.Opaque = true
	return &memScreen{img: img}
}

func (s *memScreen) Buffer() (*shmimage.ARGB8888, int, error) {
	return s.img, 1, nil
}

func (s *memScreen) Flip() error {
	s.flips++
	return nil
}

type memSource struct {
	size   image.Point
	format shm.Format
	pix    []byte
	reads  int
}

func newMemSource(w, h int, format shm.Format, px [4]byte) *memSource {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		copy(pix[i:], px[:])
	}
	return &memSource{size: image.Pt(w, h), format: format, pix: pix}
}

func (s *memSource) Size() image.Point  { return s.size }
func (s *memSource) Format() shm.Format { return s.format }
func (s *memSource) Serial() uint64     { return 1 }

func (s *memSource) Read(f func([]byte, int)) error {
	s.reads++
	f(s.pix, s.size.X*4)
	return nil
}

func argb(r, g, b uint8) shmimage.ARGB8888Color {
	return shmimage.NewARGB8888Color(r, g, b, 0xFF)
}

func composite(t *testing.T, screen *memScreen, scene *Scene) {
	t.Helper()

	sw := NewSoftware()
	target, err := sw.BeginFrame(screen)
	if err != nil {
		t.Fatal(err)
	}
	err = sw.Composite(scene, target)
	if err != nil {
		t.Fatal(err)
	}
}

var blue = color.NRGBA{0, 0, 0xFF, 0xFF}

func TestSoftwareComposite(t *testing.T) {
	screen := newMemScreen(4, 4)
	red := newMemSource(2, 2, shm.XRGB8888, [4]byte{0, 0, 0xFF, 0})
	half := newMemSource(1, 1, shm.ARGB8888, [4]byte{0, 0, 0x80, 0x80})
	abgr := newMemSource(1, 1, shm.XBGR8888, [4]byte{0x10, 0x20, 0x30, 0})

	composite(t, screen, &Scene{
		Background: blue,
		Damage:     region.Rect(screen.img.Rect),
		Elements: []Element{
			{Kind: Surface, Rect: image.Rect(1, 1, 3, 3), Source: red},
			{Kind: Surface, Rect: image.Rect(3, 3, 4, 4), Source: half},
			{Kind: Surface, Rect: image.Rect(0, 3, 1, 4), Source: abgr},
		},
	})

	tests := []struct {
		x, y int
		want shmimage.ARGB8888Color
	}{
		{0, 0, argb(0, 0, 0xFF)},
		{1, 1, argb(0xFF, 0, 0)},
		{2, 2, argb(0xFF, 0, 0)},
		{3, 0, argb(0, 0, 0xFF)},
		{3, 3, argb(0x80, 0, 0x7F)},
		{0, 3, argb(0x10, 0x20, 0x30)},
	}
	for _, test := range tests {
		if got := screen.img.ARGB8888At(test.x, test.y); got != test.want {
			t.Errorf("(%v, %v) = %#08x, want %#08x", test.x, test.y, uint32(got), uint32(test.want))
		}
	}
}

func TestSoftwareScale(t *testing.T) {
	screen := newMemScreen(4, 4)
	green := newMemSource(1, 1, shm.ARGB8888, [4]byte{0, 0xFF, 0, 0xFF})

	composite(t, screen, &Scene{
		Damage:   region.Rect(screen.img.Rect),
		Elements: []Element{{Kind: Surface, Rect: image.Rect(0, 0, 2, 2), Source: green}},
	})

	for y := range 2 {
		for x := range 2 {
			if got := screen.img.ARGB8888At(x, y); got != argb(0, 0xFF, 0) {
				t.Errorf("(%v, %v) = %#08x", x, y, uint32(got))
			}
		}
	}
	if got := screen.img.ARGB8888At(3, 3); got != argb(0, 0, 0) {
		t.Errorf("background = %#08x", uint32(got))
	}
}

func TestSoftwareDamage(t *testing.T) {
	screen := newMemScreen(4, 4)
	fill(screen.img, screen.img.Rect, argb(0, 0xFF, 0))

	composite(t, screen, &Scene{
		Background: blue,
		Damage:     region.Rect(image.Rect(0, 0, 1, 1)),
	})

	if got := screen.img.ARGB8888At(0, 0); got != argb(0, 0, 0xFF) {
		t.Errorf("damaged pixel = %#08x", uint32(got))
	}
	if got := screen.img.ARGB8888At(1, 1); got != argb(0, 0xFF, 0) {
		t.Errorf("undamaged pixel changed to %#08x", uint32(got))
	}
}

func TestSoftwareOcclusion(t *testing.T) {
	screen := newMemScreen(4, 4)
	hidden := newMemSource(2, 2, shm.ARGB8888, [4]byte{0xFF, 0xFF, 0xFF, 0xFF})
	shown := newMemSource(2, 2, shm.ARGB8888, [4]byte{0xFF, 0xFF, 0xFF, 0xFF})

	composite(t, screen, &Scene{
		Damage: region.Rect(screen.img.Rect),
		Elements: []Element{
			{Kind: Surface, Rect: image.Rect(0, 0, 2, 2), Source: hidden},
			{Kind: Surface, Rect: image.Rect(2, 2, 4, 4), Source: shown},
			{Kind: Solid, Rect: image.Rect(0, 0, 2, 2), Color: blue},
		},
	})

	if hidden.reads != 0 {
		t.Error("fully occluded surface was read")
	}
	if shown.reads != 1 {
		t.Errorf("visible surface read %v times", shown.reads)
	}
	if got := screen.img.ARGB8888At(0, 0); got != argb(0, 0, 0xFF) {
		t.Errorf("occluder not drawn: %#08x", uint32(got))
	}
}

func TestPresentGuard(t *testing.T) {
	screen := newMemScreen(4, 4)
	out := output.Output{Name: "mem"}
	sw := NewSoftware()

	target, err := sw.BeginFrame(screen)
	if err != nil {
		t.Fatal(err)
	}
	if err := sw.Present(&out, target); err != nil {
		t.Fatal(err)
	}
	if err := sw.Present(&out, target); !errors.Is(err, output.ErrFlipPending) {
		t.Fatalf("second present: %v", err)
	}
	if screen.flips != 1 {
		t.Fatalf("flipped %v times", screen.flips)
	}
}

type fakeBackend struct {
	Software
	closed    bool
	forgotten []Source
}

func (b *fakeBackend) Forget(src Source) {
	b.forgotten = append(b.forgotten, src)
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Close() error {
	b.closed = true
	return nil
}

func TestSelectNoAccelerator(t *testing.T) {
	s := Select(true)
	if !s.Software() || s.Backend().Name() != "software" {
		t.Fatalf("selected %v", s.Backend().Name())
	}
	if !errors.Is(s.Reason(), ErrNoAccelerator) {
		t.Fatalf("reason = %v", s.Reason())
	}
}

func TestSelectDisabled(t *testing.T) {
	s := selectWith(false, func() (Backend, error) {
		t.Fatal("GPU initialized while disabled")
		return nil, nil
	})
	if !s.Software() {
		t.Fatal("GPU selected while disabled")
	}
}

func TestSelectDeviceLost(t *testing.T) {
	var inits int
	var last *fakeBackend
	s := selectWith(true, func() (Backend, error) {
		inits++
		last = &fakeBackend{}
		return last, nil
	})
	if s.Software() {
		t.Fatal("fake GPU not selected")
	}

	if s.Handle(errors.New("something else")) {
		t.Fatal("reacted to an unrelated error")
	}

	first := last
	if !s.Handle(ErrDeviceLost) {
		t.Fatal("device loss ignored")
	}
	if !first.closed || inits != 2 || s.Software() {
		t.Fatalf("not reinitialized: closed=%v inits=%v", first.closed, inits)
	}

	if !s.Handle(ErrDeviceLost) || !s.Software() {
		t.Fatal("second loss did not fall back to software")
	}
	if inits != 2 {
		t.Fatal("GPU reinitialized after a second loss")
	}
	if s.Handle(ErrDeviceLost) {
		t.Fatal("software backend reacted to device loss")
	}
}

func TestSelectReinitFails(t *testing.T) {
	var inits int
	s := selectWith(true, func() (Backend, error) {
		inits++
		if inits > 1 {
			return nil, errors.New("still broken")
		}
		return &fakeBackend{}, nil
	})

	s.Handle(ErrDeviceLost)
	if !s.Software() {
		t.Fatal("failed reinit did not fall back")
	}
}

func TestDecorator(t *testing.T) {
	d := NewDecorator(Style{
		TitleHeight:     20,
		BorderWidth:     2,
		TitleFocused:    color.NRGBA{1, 1, 1, 0xFF},
		TitleUnfocused:  color.NRGBA{2, 2, 2, 0xFF},
		BorderFocused:   color.NRGBA{3, 3, 3, 0xFF},
		BorderUnfocused: color.NRGBA{4, 4, 4, 0xFF},
		TitleText:       color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF},
	})

	cell := image.Rect(0, 0, 400, 300)
	content := d.Content(cell)
	if content != image.Rect(2, 22, 398, 298) {
		t.Fatalf("content = %v", content)
	}
	if d.Frame(content) != cell {
		t.Fatalf("frame = %v", d.Frame(content))
	}

	elems := d.Elements(content, "terminal", true)
	if len(elems) != 6 {
		t.Fatalf("got %v elements", len(elems))
	}
	var covered int
	for _, e := range elems[:5] {
		if !e.Rect.In(cell) || e.Rect.Overlaps(content) {
			t.Errorf("decoration %v outside the frame", e.Rect)
		}
		covered += e.Rect.Dx() * e.Rect.Dy()
	}
	if want := cell.Dx()*cell.Dy() - content.Dx()*content.Dy(); covered != want {
		t.Errorf("decorations cover %v pixels, want %v", covered, want)
	}
	if elems[0].Color != d.Style.BorderFocused || elems[4].Color != d.Style.TitleFocused {
		t.Error("focused colors not used")
	}
	if elems[5].Kind != Picture || !elems[5].Rect.In(elems[4].Rect) {
		t.Errorf("title text at %v", elems[5].Rect)
	}

	if d.Elements(content, "terminal", false)[0].Color != d.Style.BorderUnfocused {
		t.Error("unfocused colors not used")
	}
}

func TestFitText(t *testing.T) {
	if got := fitText("short", 100); got != "short" {
		t.Errorf("short title changed to %q", got)
	}
	got := fitText("a rather long window title", 70)
	if len(got) != 10 || got[7:] != "..." {
		t.Errorf("long title = %q", got)
	}
}

func TestProfiler(t *testing.T) {
	var p Profiler
	start := time.Unix(0, 0)
	for i := range 10 {
		s := start.Add(time.Duration(i) * 16 * time.Millisecond)
		p.Record(s, s.Add(2*time.Millisecond))
	}

	_, render, _ := p.Stats()
	if render != 2*time.Millisecond {
		t.Errorf("render = %v", render)
	}

	e := p.Element()
	if e.Kind != Picture || e.Rect.Min != image.Pt(8, 8) || e.Rect.Empty() {
		t.Errorf("overlay element = %+v", e.Rect)
	}
}

func TestSelectForget(t *testing.T) {
	var fake *fakeBackend
	s := selectWith(true, func() (Backend, error) {
		fake = &fakeBackend{}
		return fake, nil
	})

	src := newMemSource(2, 2, shm.ARGB8888, [4]byte{})
	s.Forget(src)
	if len(fake.forgotten) != 1 || fake.forgotten[0] != src {
		t.Fatalf("forgotten = %v", fake.forgotten)
	}

	s.Fallback(errors.New("test"))
	s.Forget(src)
	if len(fake.forgotten) != 1 {
		t.Fatal("forgot through a closed backend")
	}
}

func TestGPUForget(t *testing.T) {
	kept := newMemSource(2, 2, shm.ARGB8888, [4]byte{})
	gone := newMemSource(2, 2, shm.ARGB8888, [4]byte{})
	g := GPU{textures: map[Source]*texture{
		kept: {serial: 1},
		gone: {serial: 1},
	}}

	g.Forget(gone)
	if _, ok := g.textures[gone]; ok {
		t.Error("texture of forgotten source still cached")
	}
	if _, ok := g.textures[kept]; !ok {
		t.Error("unrelated texture dropped")
	}
}
