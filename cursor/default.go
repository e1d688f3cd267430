package cursor

import (
	"image"
	"sync"

	"deedles.dev/wlt/shm/shmimage"
)

// arrow is a 12x19 left pointer. '#' is black, '.' is white.
var arrow = [...]string{
	"#           ",
	"##          ",
	"#.#         ",
	"#..#        ",
	"#...#       ",
	"#....#      ",
	"#.....#     ",
	"#......#    ",
	"#.......#   ",
	"#........#  ",
	"#.........# ",
	"#......#####",
	"#...#..#    ",
	"#..# #..#   ",
	"#.#  #..#   ",
	"##    #..#  ",
	"#     #..#  ",
	"       #..# ",
	"       ###  ",
}

var defaultCursor = sync.OnceValue(func() *Cursor {
	img := shmimage.NewARGB8888(image.Rect(0, 0, len(arrow[0]), len(arrow)))
	for y, row := range arrow {
		for x, c := range row {
			switch c {
			case '#':
				img.Set(x, y, shmimage.NewARGB8888Color(0, 0, 0, 0xFF))
			case '.':
				img.Set(x, y, shmimage.NewARGB8888Color(0xFF, 0xFF, 0xFF, 0xFF))
			}
		}
	}

	return &Cursor{
		Frames: []*Image{{NominalSize: len(arrow), Image: img}},
	}
})

// Default returns the built-in arrow cursor, used when no theme
// provides one.
func Default() *Cursor {
	return defaultCursor()
}
