package protocol_test

import (
	"testing"

	"deedles.dev/wlt/protocol"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		kind    protocol.Kind
		version uint32
	}{
		{"wl_compositor", protocol.KindCompositor, 6},
		{"wl_seat", protocol.KindSeat, 7},
		{"xdg_wm_base", protocol.KindXdgWmBase, 5},
		{"zwlr_layer_shell_v1", protocol.KindLayerShell, 4},
		{"zwp_linux_dmabuf_v1", protocol.KindDmabuf, 4},
	}
	for _, test := range tests {
		k, ok := protocol.Lookup(test.name)
		if !ok || k != test.kind {
			t.Errorf("Lookup(%q) = %v, %v", test.name, k, ok)
			continue
		}
		if v := k.Interface().Version; v != test.version {
			t.Errorf("%v version = %v, want %v", k, v, test.version)
		}
	}

	if _, ok := protocol.Lookup("wl_shell"); ok {
		t.Error("unimplemented interface found")
	}
}

func TestOpcodesMatchTable(t *testing.T) {
	iface := protocol.KindSurface.Interface()
	if name, _ := iface.Request(protocol.SurfaceCommit); name != "commit" {
		t.Errorf("SurfaceCommit names %q", name)
	}
	if _, ok := iface.Request(99); ok {
		t.Error("out of range opcode accepted")
	}
	if name := protocol.KindXdgToplevel.Interface().Event(protocol.EvXdgToplevelWmCapabilities); name != "wm_capabilities" {
		t.Errorf("EvXdgToplevelWmCapabilities names %q", name)
	}
}
