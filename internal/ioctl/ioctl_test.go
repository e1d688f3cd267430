package ioctl

import "testing"

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"DRM_IOCTL_SET_MASTER", IO('d', 0x1e), 0x641e},
		{"DRM_IOCTL_MODE_GETRESOURCES", IOWR('d', 0xA0, 64), 0xc04064a0},
		{"EVIOCGRAB", IOW('E', 0x90, 4), 0x40044590},
		{"EVIOCGNAME(256)", IOR('E', 0x06, 256), 0x81004506},
		{"DMA_BUF_IOCTL_SYNC", IOW('b', 0, 8), 0x40086200},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.got != test.want {
				t.Errorf("got %#x, want %#x", test.got, test.want)
			}
		})
	}
}
