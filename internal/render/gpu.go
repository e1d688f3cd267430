package render

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"deedles.dev/wlt/internal/output"
	"deedles.dev/wlt/shm"
	"github.com/gogpu/gg"
	"github.com/sirupsen/logrus"
)

// ErrNoAccelerator is returned by NewGPU when no GPU accelerator has
// been registered with gg.
var ErrNoAccelerator = errors.New("no GPU accelerator registered")

type texture struct {
	serial uint64
	buf    *gg.ImageBuf
	used   uint64
}

// GPU is a backend that composites with gg's GPU accelerator. Client
// buffers are uploaded into cached textures that are replaced
// whenever the buffer's serial changes.
type GPU struct {
	log *logrus.Entry

	ctx      *gg.Context
	frame    uint64
	textures map[Source]*texture
	pictures map[image.Image]*texture
}

// NewGPU initializes the GPU backend. It fails if no accelerator is
// available.
func NewGPU() (*GPU, error) {
	accel := gg.Accelerator()
	if accel == nil {
		return nil, ErrNoAccelerator
	}

	log := logrus.WithFields(logrus.Fields{"component": "render", "backend": "gpu"})
	w := logrus.StandardLogger().WriterLevel(logrus.DebugLevel)
	gg.SetLogger(slog.New(slog.NewTextHandler(w, nil)))

	log.WithField("accelerator", accel.Name()).Info("GPU renderer initialized")

	return &GPU{
		log:      log,
		textures: make(map[Source]*texture),
		pictures: make(map[image.Image]*texture),
	}, nil
}

func (g *GPU) Name() string {
	return "gpu"
}

func (g *GPU) BeginFrame(screen Screen) (*Target, error) {
	t, err := NewTarget(screen)
	if err != nil {
		return nil, err
	}

	size := t.Image.Rect.Size()
	if g.ctx == nil || g.ctx.Width() != size.X || g.ctx.Height() != size.Y {
		if g.ctx != nil {
			g.ctx.Close()
		}
		g.ctx = gg.NewContext(size.X, size.Y)
	}

	return t, nil
}

// Composite redraws all of scene. The GPU path does not use damage.
func (g *GPU) Composite(scene *Scene, t *Target) error {
	if gg.Accelerator() == nil {
		return ErrDeviceLost
	}
	g.frame++

	ctx := g.ctx
	ctx.ClearWithColor(gg.FromColor(scene.Background))

	for _, e := range scene.all() {
		switch e.Kind {
		case Solid:
			r := e.Rect
			ctx.SetColor(e.Color)
			ctx.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
			err := ctx.Fill()
			if err != nil {
				return fmt.Errorf("%w: fill: %v", ErrDeviceLost, err)
			}

		case Surface:
			tex, err := g.upload(e.Source)
			if err != nil {
				g.log.WithError(err).Warn("upload surface buffer")
				continue
			}
			g.drawTexture(tex, &e, e.crop())

		case Picture:
			tex := g.picture(e.Image)
			g.drawTexture(tex, &e, e.Image.Bounds().Sub(e.Image.Bounds().Min))
		}
	}

	err := ctx.FlushGPU()
	if err != nil {
		return fmt.Errorf("%w: flush: %v", ErrDeviceLost, err)
	}

	g.readback(t)
	g.evict()
	return nil
}

func (g *GPU) drawTexture(tex *texture, e *Element, sr image.Rectangle) {
	tex.used = g.frame
	g.ctx.DrawImageEx(tex.buf, gg.DrawImageOptions{
		X:             float64(e.Rect.Min.X),
		Y:             float64(e.Rect.Min.Y),
		DstWidth:      float64(e.Rect.Dx()),
		DstHeight:     float64(e.Rect.Dy()),
		SrcRect:       &sr,
		Interpolation: gg.InterpBilinear,
		Opacity:       e.opacity(),
		BlendMode:     gg.BlendNormal,
	})
}

// upload returns the texture for src, copying the buffer's contents
// if they changed since the last upload.
func (g *GPU) upload(src Source) (*texture, error) {
	tex, ok := g.textures[src]
	if ok && tex.serial == src.Serial() {
		return tex, nil
	}

	size := src.Size()
	if !ok || tex.buf.Width() != size.X || tex.buf.Height() != size.Y {
		buf, err := gg.NewImageBuf(size.X, size.Y, gg.FormatBGRAPremul)
		if err != nil {
			return nil, fmt.Errorf("create texture: %w", err)
		}
		tex = &texture{buf: buf}
		g.textures[src] = tex
	}

	format := src.Format()
	err := src.Read(func(pix []byte, stride int) {
		copyTexture(tex.buf.Data(), tex.buf.Stride(), pix, stride, size, format)
	})
	if err != nil {
		delete(g.textures, src)
		return nil, err
	}
	tex.buf.InvalidatePremulCache()
	tex.serial = src.Serial()

	return tex, nil
}

// copyTexture converts client pixels into BGRA texture memory, which
// is the byte order of little-endian ARGB8888.
func copyTexture(dst []byte, dstStride int, src []byte, srcStride int, size image.Point, format shm.Format) {
	w := size.X * 4
	for y := 0; y < size.Y; y++ {
		drow := dst[y*dstStride : y*dstStride+w]
		srow := src[y*srcStride : y*srcStride+w]
		copy(drow, srow)

		if format.BGR() {
			for x := 0; x < w; x += 4 {
				drow[x], drow[x+2] = drow[x+2], drow[x]
			}
		}
		if format.Opaque() {
			for x := 3; x < w; x += 4 {
				drow[x] = 0xFF
			}
		}
	}
}

func (g *GPU) picture(img image.Image) *texture {
	tex, ok := g.pictures[img]
	if !ok {
		tex = &texture{buf: gg.ImageBufFromImage(img)}
		g.pictures[img] = tex
	}
	return tex
}

// readback copies the rendered frame into the target buffer. The
// context's pixmap is RGBA and the target is XRGB8888.
func (g *GPU) readback(t *Target) {
	pm := g.ctx.ResizeTarget()
	src := pm.Data()
	dst := t.Image

	w := pm.Width()
	for y := 0; y < pm.Height(); y++ {
		si := y * w * 4
		di := dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+y)
		srow := src[si : si+w*4]
		drow := dst.Pix[di : di+w*4]
		for x := 0; x < len(srow); x += 4 {
			drow[x+0] = srow[x+2]
			drow[x+1] = srow[x+1]
			drow[x+2] = srow[x+0]
			drow[x+3] = 0xFF
		}
	}
}

func (g *GPU) evict() {
	for src, tex := range g.textures {
		if tex.used != g.frame {
			delete(g.textures, src)
		}
	}
	for img, tex := range g.pictures {
		if tex.used != g.frame {
			delete(g.pictures, img)
		}
	}
}

// Forget drops the cached texture of src.
func (g *GPU) Forget(src Source) {
	delete(g.textures, src)
}

func (g *GPU) Present(out *output.Output, t *Target) error {
	return present(out, t)
}

func (g *GPU) Close() error {
	clear(g.textures)
	clear(g.pictures)
	if g.ctx == nil {
		return nil
	}
	return g.ctx.Close()
}
