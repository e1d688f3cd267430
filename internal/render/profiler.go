package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"
)

const profilerSamples = 60

// Profiler keeps frame timing statistics and draws them as an
// overlay in the top-left corner of an output.
type Profiler struct {
	frames  [profilerSamples]time.Duration
	renders [profilerSamples]time.Duration
	n       int
	last    time.Time

	overlay *image.RGBA
	dirty   bool
}

// Record adds a frame that started rendering at start and finished at
// done.
func (p *Profiler) Record(start, done time.Time) {
	i := p.n % profilerSamples
	if !p.last.IsZero() {
		p.frames[i] = start.Sub(p.last)
	}
	p.renders[i] = done.Sub(start)
	p.last = start
	p.n++
	p.dirty = true
}

func average(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range samples {
		sum += s
	}
	return sum / time.Duration(len(samples))
}

// Stats returns the average frame interval and render time and the
// resulting frame rate.
func (p *Profiler) Stats() (frame, render time.Duration, fps float64) {
	n := min(p.n, profilerSamples)
	frame = average(p.frames[:n])
	render = average(p.renders[:n])
	if frame > 0 {
		fps = float64(time.Second) / float64(frame)
	}
	return frame, render, fps
}

// Element returns the overlay to add to the scene.
func (p *Profiler) Element() Element {
	if p.overlay == nil || p.dirty {
		p.overlay = p.draw()
		p.dirty = false
	}

	min := image.Pt(8, 8)
	return Element{
		Kind:  Picture,
		Rect:  image.Rectangle{Min: min, Max: min.Add(p.overlay.Rect.Size())},
		Image: p.overlay,
	}
}

func (p *Profiler) draw() *image.RGBA {
	frame, render, fps := p.Stats()
	text := renderText(
		fmt.Sprintf("frame  %6.2fms", float64(frame)/float64(time.Millisecond)),
		color.NRGBA{0xE0, 0xE0, 0xE0, 0xFF},
		fmt.Sprintf("render %6.2fms", float64(render)/float64(time.Millisecond)),
		fmt.Sprintf("fps    %6.1f", fps),
	)

	const pad = 4
	size := text.Rect.Size().Add(image.Pt(2*pad, 2*pad))
	img := fillImage(size, color.NRGBA{0, 0, 0, 0xC0})
	draw.Draw(img, text.Rect.Add(image.Pt(pad, pad)), text, image.Point{}, draw.Over)
	return img
}
