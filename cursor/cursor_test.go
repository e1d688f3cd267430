package cursor_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"deedles.dev/wlt/cursor"
)

type testImage struct {
	nominal, w, h, xhot, yhot uint32
	pixel                     uint32
}

// xcursorFile encodes images as an Xcursor file.
func xcursorFile(images ...testImage) []byte {
	var buf bytes.Buffer
	put := func(vs ...uint32) {
		for _, v := range vs {
			binary.Write(&buf, binary.LittleEndian, v)
		}
	}

	put(0x72756358, 16, 0x10000, uint32(len(images)))

	pos := uint32(16 + 12*len(images))
	for _, img := range images {
		put(0xfffd0002, img.nominal, pos)
		pos += 36 + 4*img.w*img.h
	}
	for _, img := range images {
		put(36, 0xfffd0002, img.nominal, 1, img.w, img.h, img.xhot, img.yhot, 50)
		for range img.w * img.h {
			put(img.pixel)
		}
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	data := xcursorFile(
		testImage{nominal: 16, w: 16, h: 16, xhot: 1, yhot: 2, pixel: 0xFF000000},
		testImage{nominal: 32, w: 32, h: 32, xhot: 3, yhot: 4, pixel: 0xFFFFFFFF},
	)

	tests := []struct {
		size    int
		nominal int
		xhot    int
	}{
		{size: 16, nominal: 16, xhot: 1},
		{size: 20, nominal: 16, xhot: 1},
		{size: 30, nominal: 32, xhot: 3},
		{size: 64, nominal: 32, xhot: 3},
	}
	for _, test := range tests {
		c, err := cursor.Decode(bytes.NewReader(data), test.size)
		if err != nil {
			t.Fatalf("size %v: %v", test.size, err)
		}
		if len(c.Frames) != 1 {
			t.Fatalf("size %v: %v frames", test.size, len(c.Frames))
		}
		f := c.Frames[0]
		if f.NominalSize != test.nominal || f.XHot != test.xhot {
			t.Errorf("size %v: got nominal %v, hotspot x %v", test.size, f.NominalSize, f.XHot)
		}
		if got := f.Image.Rect.Dx(); got != test.nominal {
			t.Errorf("size %v: width %v", test.size, got)
		}
	}
}

func TestDecodeBadMagic(t *testing.T) {
	_, err := cursor.Decode(bytes.NewReader([]byte("not a cursor file")), 24)
	if err != cursor.ErrBadMagic {
		t.Errorf("got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := xcursorFile(testImage{nominal: 8, w: 8, h: 8, pixel: 0xFF000000})
	_, err := cursor.Decode(bytes.NewReader(data[:len(data)-10]), 8)
	if err == nil {
		t.Error("truncated file decoded")
	}
}

func TestTheme(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XCURSOR_PATH", root)

	base := filepath.Join(root, "base", "cursors")
	child := filepath.Join(root, "child")
	for _, dir := range []string{base, filepath.Join(child, "cursors")} {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			t.Fatal(err)
		}
	}
	err := os.WriteFile(filepath.Join(base, "left_ptr"), xcursorFile(testImage{nominal: 24, w: 24, h: 24, pixel: 0xFF000000}), 0644)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(filepath.Join(child, "index.theme"), []byte("[Icon Theme]\nInherits=base\n"), 0644)
	if err != nil {
		t.Fatal(err)
	}

	theme, err := cursor.LoadTheme("child", 24)
	if err != nil {
		t.Fatal(err)
	}
	if !theme.Found() {
		t.Fatal("theme not found")
	}

	c, err := theme.Cursor("left_ptr")
	if err != nil {
		t.Fatal(err)
	}
	if c.Frames[0].NominalSize != 24 {
		t.Errorf("nominal size %v", c.Frames[0].NominalSize)
	}

	c, err = theme.Cursor("missing")
	if err == nil {
		t.Error("missing cursor found")
	}
	if c != cursor.Default() {
		t.Error("missing cursor did not fall back to the default")
	}
}

func TestDefault(t *testing.T) {
	c := cursor.Default()
	img := c.Frame(0).Image
	if img.Rect.Empty() {
		t.Fatal("empty default cursor")
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0xFFFF {
		t.Errorf("tip alpha = %#x", a)
	}
}
