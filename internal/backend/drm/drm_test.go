package drm

import (
	"testing"
	"time"
	"unsafe"

	"deedles.dev/wlt/internal/backend"
)

func TestRefresh(t *testing.T) {
	tests := []struct {
		name string
		mode modeInfo
		want int
	}{
		{"1080p60", modeInfo{Clock: 148500, HTotal: 2200, VTotal: 1125, VRefresh: 60}, 60000},
		{"1080p59.94", modeInfo{Clock: 148352, HTotal: 2200, VTotal: 1125, VRefresh: 60}, 59940},
		{"no timings", modeInfo{VRefresh: 75}, 75000},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.mode.refreshMHz(); got != test.want {
				t.Errorf("got %v, want %v", got, test.want)
			}
		})
	}
}

func TestConnectorName(t *testing.T) {
	if got := connectorName(11, 1); got != "HDMI-A-1" {
		t.Errorf("got %q", got)
	}
	if got := connectorName(999, 2); got != "Unknown-2" {
		t.Errorf("got %q", got)
	}
}

func TestStructSizes(t *testing.T) {
	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"drm_mode_modeinfo", unsafe.Sizeof(modeInfo{}), 68},
		{"drm_mode_crtc", unsafe.Sizeof(modeCRTC{}), 104},
		{"drm_mode_get_connector", unsafe.Sizeof(getConnector{}), 80},
		{"drm_mode_card_res", unsafe.Sizeof(cardRes{}), 64},
		{"drm_mode_get_property", unsafe.Sizeof(getProperty{}), 64},
		{"drm_mode_obj_get_properties", unsafe.Sizeof(objGetProperties{}), 32},
		{"drm_mode_create_dumb", unsafe.Sizeof(createDumb{}), 32},
		{"drm_event_vblank", unsafe.Sizeof(eventVblank{}), 32},
	}
	for _, test := range tests {
		if test.got != test.want {
			t.Errorf("%v: size %v, want %v", test.name, test.got, test.want)
		}
	}
}

type flipSink struct {
	backend.Sink
	presented []backend.Display
}

func (s *flipSink) Presented(d backend.Display, _ time.Time) {
	s.presented = append(s.presented, d)
}

func TestHandleEvents(t *testing.T) {
	var sink flipSink
	b := Backend{sink: &sink}
	d0 := Display{backend: &b}
	d1 := Display{backend: &b, pending: true}
	b.displays = []*Display{&d0, &d1}

	ev := eventVblank{
		eventHeader: eventHeader{Type: eventFlipComplete, Length: uint32(unsafe.Sizeof(eventVblank{}))},
		UserData:    1,
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(&ev)), unsafe.Sizeof(ev))
	b.handleEvents(append(data, 0, 0, 0))

	if len(sink.presented) != 1 || sink.presented[0] != &d1 {
		t.Fatalf("presented = %v", sink.presented)
	}
	if d1.pending || d1.back != 1 || d1.flipped != 1 {
		t.Errorf("pending = %v, back = %v, flipped = %v", d1.pending, d1.back, d1.flipped)
	}
}
