package shm_test

import (
	"errors"
	"os"
	"testing"

	"deedles.dev/wlt/shm"
)

func TestValidateBuffer(t *testing.T) {
	tests := []struct {
		name                          string
		offset, width, height, stride int32
		format                        shm.Format
		pool                          int
		ok                            bool
	}{
		{"Exact", 0, 100, 100, 400, shm.ARGB8888, 40000, true},
		{"PaddedStride", 0, 100, 100, 512, shm.XRGB8888, 51200, true},
		{"StrideTooSmall", 0, 100, 100, 300, shm.ARGB8888, 40000, false},
		{"Overrun", 4, 100, 100, 400, shm.ARGB8888, 40000, false},
		{"ZeroWidth", 0, 0, 100, 400, shm.ARGB8888, 40000, false},
		{"NegativeOffset", -4, 10, 10, 40, shm.ARGB8888, 40000, false},
		{"BadFormat", 0, 10, 10, 40, shm.Format(0xdead), 400, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := shm.ValidateBuffer(test.offset, test.width, test.height, test.stride, test.format, test.pool)
			if test.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !test.ok && !errors.Is(err, shm.ErrInvalidBuffer) {
				t.Fatalf("err = %v, want ErrInvalidBuffer", err)
			}
		})
	}
}

func TestPool(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "pool")
	if err != nil {
		t.Fatal(err)
	}
	file.Truncate(8192)
	file.WriteAt([]byte{1, 2, 3, 4}, 0)

	pool, err := shm.NewPool(file, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if pool.Bytes()[3] != 4 {
		t.Fatalf("mapped data = %v", pool.Bytes()[:4])
	}
	if !pool.Writable() {
		t.Error("read-write file mapped read-only")
	}

	if err := pool.Resize(2048); err == nil {
		t.Error("pool shrank")
	}
	if err := pool.Resize(8192); err != nil {
		t.Fatal(err)
	}
	if pool.Size() != 8192 {
		t.Fatalf("size = %v", pool.Size())
	}

	pool.Ref()
	pool.Close()
	if pool.Bytes() == nil {
		t.Fatal("pool unmapped while referenced")
	}
	pool.Unref()
	if pool.Bytes() != nil {
		t.Fatal("pool still mapped")
	}
}

func TestPoolLargerThanFile(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "pool")
	if err != nil {
		t.Fatal(err)
	}
	file.Truncate(100)

	if _, err := shm.NewPool(file, 4096); err == nil {
		t.Fatal("pool larger than its file was accepted")
	}
}
