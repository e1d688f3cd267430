package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Style is the look of server-side decorations.
type Style struct {
	TitleHeight int
	BorderWidth int

	TitleFocused    color.NRGBA
	TitleUnfocused  color.NRGBA
	BorderFocused   color.NRGBA
	BorderUnfocused color.NRGBA
	TitleText       color.NRGBA
}

type titleKey struct {
	text  string
	color color.NRGBA
	width int
}

const maxTitleCache = 256

// Decorator draws title bars and borders around windows.
type Decorator struct {
	Style Style

	titles map[titleKey]*image.RGBA
}

func NewDecorator(style Style) *Decorator {
	return &Decorator{
		Style:  style,
		titles: make(map[titleKey]*image.RGBA),
	}
}

// SetStyle changes the decoration style, dropping cached titles.
func (d *Decorator) SetStyle(style Style) {
	d.Style = style
	clear(d.titles)
}

// Content returns the part of the cell r left for the window's
// contents once the border and title bar have been drawn.
func (d *Decorator) Content(r image.Rectangle) image.Rectangle {
	b, th := d.Style.BorderWidth, d.Style.TitleHeight
	c := image.Rect(r.Min.X+b, r.Min.Y+b+th, r.Max.X-b, r.Max.Y-b)
	if c.Dx() < 1 {
		c.Max.X = c.Min.X + 1
	}
	if c.Dy() < 1 {
		c.Max.Y = c.Min.Y + 1
	}
	return c
}

// Frame returns the outer rectangle of decorations around content.
func (d *Decorator) Frame(content image.Rectangle) image.Rectangle {
	b, th := d.Style.BorderWidth, d.Style.TitleHeight
	return image.Rect(content.Min.X-b, content.Min.Y-b-th, content.Max.X+b, content.Max.Y+b)
}

// Elements returns the elements that decorate a window whose contents
// occupy content, back to front.
func (d *Decorator) Elements(content image.Rectangle, title string, focused bool) []Element {
	s := d.Style
	outer := d.Frame(content)

	border, bar := s.BorderUnfocused, s.TitleUnfocused
	if focused {
		border, bar = s.BorderFocused, s.TitleFocused
	}

	var elems []Element
	if b := s.BorderWidth; b > 0 {
		for _, r := range [...]image.Rectangle{
			image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, outer.Min.Y+b),
			image.Rect(outer.Min.X, outer.Max.Y-b, outer.Max.X, outer.Max.Y),
			image.Rect(outer.Min.X, outer.Min.Y+b, outer.Min.X+b, outer.Max.Y-b),
			image.Rect(outer.Max.X-b, outer.Min.Y+b, outer.Max.X, outer.Max.Y-b),
		} {
			elems = append(elems, Element{Kind: Solid, Rect: r, Color: border})
		}
	}

	if s.TitleHeight <= 0 {
		return elems
	}

	barRect := image.Rect(content.Min.X, content.Min.Y-s.TitleHeight, content.Max.X, content.Min.Y)
	elems = append(elems, Element{Kind: Solid, Rect: barRect, Color: bar})

	const pad = 6
	text := d.title(title, barRect.Dx()-2*pad)
	if text != nil {
		size := text.Bounds().Size()
		min := image.Pt(barRect.Min.X+pad, barRect.Min.Y+(barRect.Dy()-size.Y)/2)
		elems = append(elems, Element{
			Kind:  Picture,
			Rect:  image.Rectangle{Min: min, Max: min.Add(size)}.Intersect(barRect),
			Image: text,
		})
	}

	return elems
}

// title renders text, shortened to fit in width pixels.
func (d *Decorator) title(text string, width int) *image.RGBA {
	if text == "" || width <= 0 {
		return nil
	}

	key := titleKey{text: text, color: d.Style.TitleText, width: width}
	if img, ok := d.titles[key]; ok {
		return img
	}

	img := renderText(fitText(text, width), d.Style.TitleText)
	if len(d.titles) >= maxTitleCache {
		clear(d.titles)
	}
	d.titles[key] = img
	return img
}

var face = basicfont.Face7x13

func fitText(text string, width int) string {
	if font.MeasureString(face, text).Ceil() <= width {
		return text
	}

	const ellipsis = "..."
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		s := string(runes) + ellipsis
		if font.MeasureString(face, s).Ceil() <= width {
			return s
		}
	}
	return ""
}

// renderText draws lines of text onto a transparent image just large
// enough to hold them.
func renderText(text string, c color.NRGBA, lines ...string) *image.RGBA {
	lines = append([]string{text}, lines...)

	var width int
	for _, line := range lines {
		width = max(width, font.MeasureString(face, line).Ceil())
	}
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()

	img := image.NewRGBA(image.Rect(0, 0, max(width, 1), lineHeight*len(lines)))
	dr := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
	}
	for i, line := range lines {
		dr.Dot = fixed.Point26_6{
			X: 0,
			Y: fixed.I(i*lineHeight) + metrics.Ascent,
		}
		dr.DrawString(line)
	}
	return img
}

// fillImage returns a solid image of the given size, used as a panel
// behind overlay text.
func fillImage(size image.Point, c color.NRGBA) *image.RGBA {
	img := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(img, img.Rect, image.NewUniform(c), image.Point{}, draw.Src)
	return img
}
