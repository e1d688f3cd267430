package render

import (
	"image"
	"slices"
	"testing"

	"deedles.dev/wlt/shm"
)

func TestTransformed(t *testing.T) {
	// 3x2 buffer whose first channel numbers its pixels.
	src := newMemSource(3, 2, shm.ARGB8888, [4]byte{})
	for i := 0; i < 6; i++ {
		src.pix[i*4] = byte(i)
	}

	tests := []struct {
		name      string
		transform int32
		size      image.Point
		want      []byte
	}{
		{name: "90", transform: 1, size: image.Pt(2, 3), want: []byte{3, 0, 4, 1, 5, 2}},
		{name: "180", transform: 2, size: image.Pt(3, 2), want: []byte{5, 4, 3, 2, 1, 0}},
		{name: "270", transform: 3, size: image.Pt(2, 3), want: []byte{2, 5, 1, 4, 0, 3}},
		{name: "Flipped", transform: 4, size: image.Pt(3, 2), want: []byte{2, 1, 0, 5, 4, 3}},
		{name: "Flipped90", transform: 5, size: image.Pt(2, 3), want: []byte{0, 3, 1, 4, 2, 5}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tr := NewTransformed(src, test.transform)
			if size := tr.Size(); size != test.size {
				t.Fatalf("size = %v, want %v", size, test.size)
			}

			var got []byte
			err := tr.Read(func(pix []byte, stride int) {
				for y := 0; y < test.size.Y; y++ {
					for x := 0; x < test.size.X; x++ {
						got = append(got, pix[y*stride+x*4])
					}
				}
			})
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(got, test.want) {
				t.Errorf("got %v, want %v", got, test.want)
			}
		})
	}
}

func TestTransformedCache(t *testing.T) {
	src := newMemSource(4, 2, shm.ARGB8888, [4]byte{1, 2, 3, 4})
	tr := NewTransformed(src, 1)

	for range 3 {
		err := tr.Read(func([]byte, int) {})
		if err != nil {
			t.Fatal(err)
		}
	}
	if src.reads != 1 {
		t.Errorf("source read %v times for an unchanged serial", src.reads)
	}
}
