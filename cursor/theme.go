// Package cursor loads Xcursor themes.
package cursor

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"deedles.dev/wlt/shm/shmimage"
	"github.com/adrg/xdg"
)

// libraryPaths returns the directories that themes are searched for
// in, honoring XCURSOR_PATH.
func libraryPaths() []string {
	if v, ok := os.LookupEnv("XCURSOR_PATH"); ok {
		return filepath.SplitList(v)
	}

	paths := []string{filepath.Join(xdg.DataHome, "icons"), filepath.Join(xdg.Home, ".icons")}
	for _, dir := range xdg.DataDirs {
		paths = append(paths, filepath.Join(dir, "icons"))
	}
	return append(paths, "/usr/share/pixmaps", "/usr/share/cursors/xorg-x11")
}

type Cursor struct {
	Comments []*Comment
	Frames   []*Image
}

// Frame returns the frame to show at time t of the animation.
func (c *Cursor) Frame(t time.Duration) *Image {
	if len(c.Frames) == 1 {
		return c.Frames[0]
	}

	var total time.Duration
	for _, f := range c.Frames {
		total += f.Delay
	}
	if total <= 0 {
		return c.Frames[0]
	}

	t %= total
	for _, f := range c.Frames {
		if t < f.Delay {
			return f
		}
		t -= f.Delay
	}
	return c.Frames[len(c.Frames)-1]
}

type Comment struct {
	Subtype CommentSubtype
	Version uint32
	Comment string
}

type CommentSubtype uint32

const (
	CommentSubtypeCopyright CommentSubtype = 1 + iota
	CommentSubtypeLicense
	CommentSubtypeOther
)

type Image struct {
	Version     int
	NominalSize int
	XHot        int
	YHot        int
	Delay       time.Duration
	Image       *shmimage.ARGB8888
}

// Theme is a cursor theme. Cursors are loaded the first time they are
// asked for.
type Theme struct {
	Name string
	Size int

	dirs    []string
	cursors map[string]*Cursor
}

// LoadTheme finds the theme called name and every theme it inherits
// from. A theme that can't be found at all is not an error: its
// cursors all fall back to the built-in ones.
func LoadTheme(name string, size int) (*Theme, error) {
	if name == "" {
		name = "default"
	}
	if size <= 0 {
		size = 24
	}

	t := Theme{
		Name:    name,
		Size:    size,
		cursors: make(map[string]*Cursor),
	}
	return &t, t.load(name, make(map[string]bool))
}

func (t *Theme) load(theme string, seen map[string]bool) error {
	if seen[theme] {
		return nil
	}
	seen[theme] = true

	for _, path := range libraryPaths() {
		base := filepath.Join(path, theme)
		dir := filepath.Join(base, "cursors")
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			t.dirs = append(t.dirs, dir)
		}

		inherits, err := loadInherits(filepath.Join(base, "index.theme"))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load inherited themes: %w", err)
		}
		for _, theme := range inherits {
			err := t.load(theme, seen)
			if err != nil {
				return fmt.Errorf("load inherited theme %q: %w", theme, err)
			}
		}
	}

	return nil
}

// Found reports whether any directory of the theme exists.
func (t *Theme) Found() bool {
	return len(t.dirs) > 0
}

// Cursor returns the cursor called name. If the theme doesn't have it,
// the built-in arrow is returned along with the error.
func (t *Theme) Cursor(name string) (*Cursor, error) {
	if c, ok := t.cursors[name]; ok {
		return c, nil
	}

	for _, dir := range t.dirs {
		path := filepath.Join(dir, name)
		c, err := DecodeFile(path, t.Size)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Default(), fmt.Errorf("load %q: %w", path, err)
		}

		t.cursors[name] = c
		return c, nil
	}

	return Default(), fmt.Errorf("cursor %q not found in theme %q", name, t.Name)
}

func loadInherits(index string) (inherits []string, err error) {
	file, err := os.Open(index)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	s := bufio.NewScanner(file)
	for s.Scan() {
		line := s.Text()
		if !strings.HasPrefix(line, "Inherits") {
			continue
		}

		_, after, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		inherits = strings.FieldsFunc(after, func(c rune) bool {
			return (c == ':') || (c == ',') || (c == ';')
		})
		for i, v := range inherits {
			inherits[i] = strings.TrimSpace(v)
		}

		break
	}
	if err := s.Err(); err != nil {
		return inherits, fmt.Errorf("scan: %w", err)
	}

	return inherits, nil
}
