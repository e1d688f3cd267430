package compositor

import (
	"encoding/binary"
	"image"
	"slices"
	"testing"

	"deedles.dev/wlt/protocol"
)

const (
	anchorT = protocol.LayerAnchorTop
	anchorB = protocol.LayerAnchorBottom
	anchorL = protocol.LayerAnchorLeft
	anchorR = protocol.LayerAnchorRight
)

func TestExclusiveEdge(t *testing.T) {
	tests := []struct {
		anchor uint32
		edge   uint32
	}{
		{anchorT, anchorT},
		{anchorT | anchorL | anchorR, anchorT},
		{anchorB | anchorL | anchorR, anchorB},
		{anchorL | anchorT | anchorB, anchorL},
		{anchorR, anchorR},
		{anchorL | anchorR, 0},
		{anchorT | anchorB | anchorL | anchorR, 0},
		{anchorT | anchorL, 0},
		{0, 0},
	}
	for _, test := range tests {
		edge := exclusiveEdge(test.anchor)
		if edge != test.edge {
			t.Errorf("anchor %#x: edge = %#x, want %#x", test.anchor, edge, test.edge)
		}
	}
}

func TestPlaceLayer(t *testing.T) {
	bounds := image.Rect(0, 0, 1000, 800)

	tests := []struct {
		name string
		st   layerState
		r    image.Rectangle
	}{
		{
			name: "Panel",
			st:   layerState{anchor: anchorT | anchorL | anchorR, size: image.Pt(0, 30)},
			r:    image.Rect(0, 0, 1000, 30),
		},
		{
			name: "PanelMargins",
			st: layerState{
				anchor: anchorT | anchorL | anchorR,
				size:   image.Pt(0, 30),
				margin: [4]int{5, 10, 0, 10},
			},
			r: image.Rect(10, 5, 990, 35),
		},
		{
			name: "Corner",
			st: layerState{
				anchor: anchorB | anchorR,
				size:   image.Pt(100, 50),
				margin: [4]int{0, 4, 6, 0},
			},
			r: image.Rect(896, 744, 996, 794),
		},
		{
			name: "Centered",
			st:   layerState{size: image.Pt(200, 100)},
			r:    image.Rect(400, 350, 600, 450),
		},
		{
			name: "CenteredBetweenAnchors",
			st:   layerState{anchor: anchorL | anchorR, size: image.Pt(200, 100)},
			r:    image.Rect(400, 350, 600, 450),
		},
		{
			name: "Fill",
			st: layerState{
				anchor: anchorT | anchorB | anchorL | anchorR,
				margin: [4]int{1, 2, 3, 4},
			},
			r: image.Rect(4, 1, 998, 797),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := placeLayer(test.st, bounds)
			if r != test.r {
				t.Fatalf("got %v, want %v", r, test.r)
			}
		})
	}
}

func TestReserve(t *testing.T) {
	usable := image.Rect(0, 0, 1000, 800)

	tests := []struct {
		name string
		st   layerState
		r    image.Rectangle
	}{
		{
			name: "Top",
			st:   layerState{anchor: anchorT | anchorL | anchorR, exclusive: 30, margin: [4]int{5, 0, 0, 0}},
			r:    image.Rect(0, 35, 1000, 800),
		},
		{
			name: "Bottom",
			st:   layerState{anchor: anchorB, exclusive: 20},
			r:    image.Rect(0, 0, 1000, 780),
		},
		{
			name: "Left",
			st:   layerState{anchor: anchorL | anchorT | anchorB, exclusive: 48, margin: [4]int{0, 0, 0, 2}},
			r:    image.Rect(50, 0, 1000, 800),
		},
		{
			name: "Right",
			st:   layerState{anchor: anchorR, exclusive: 10},
			r:    image.Rect(0, 0, 990, 800),
		},
		{
			name: "NoEdge",
			st:   layerState{anchor: anchorL | anchorR, exclusive: 30},
			r:    usable,
		},
		{
			name: "Zero",
			st:   layerState{anchor: anchorT, exclusive: 0},
			r:    usable,
		},
		{
			name: "Negative",
			st:   layerState{anchor: anchorT, exclusive: -1},
			r:    usable,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := reserve(usable, test.st)
			if r != test.r {
				t.Fatalf("got %v, want %v", r, test.r)
			}
		})
	}
}

func decodeStates(buf []byte) []uint32 {
	var states []uint32
	for len(buf) >= 4 {
		states = append(states, binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
	}
	return states
}

func TestWindowStates(t *testing.T) {
	tests := []struct {
		name    string
		st      windowStates
		version uint32
		states  []uint32
	}{
		{name: "None", version: 6},
		{
			name:    "Activated",
			st:      windowStates{activated: true, maximized: true},
			version: 1,
			states:  []uint32{protocol.StateMaximized, protocol.StateActivated},
		},
		{
			name:    "TiledOld",
			st:      windowStates{tiled: true},
			version: 1,
		},
		{
			name:    "Tiled",
			st:      windowStates{tiled: true, activated: true},
			version: 2,
			states: []uint32{
				protocol.StateActivated,
				protocol.StateTiledLeft,
				protocol.StateTiledRight,
				protocol.StateTiledTop,
				protocol.StateTiledBottom,
			},
		},
		{
			name:    "Fullscreen",
			st:      windowStates{fullscreen: true, resizing: true},
			version: 6,
			states:  []uint32{protocol.StateFullscreen, protocol.StateResizing},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			states := decodeStates(test.st.encode(test.version))
			if !slices.Equal(states, test.states) {
				t.Fatalf("got %v, want %v", states, test.states)
			}
		})
	}
}

func TestPositioner(t *testing.T) {
	tests := []struct {
		name   string
		p      Positioner
		bounds image.Rectangle
		r      image.Rectangle
	}{
		{
			name: "Unconstrained",
			p: Positioner{
				size:       image.Pt(100, 50),
				anchorRect: image.Rect(10, 10, 30, 30),
				anchor:     protocol.AnchorBottomRight,
				gravity:    protocol.AnchorBottomRight,
			},
			bounds: image.Rect(0, 0, 1000, 1000),
			r:      image.Rect(30, 30, 130, 80),
		},
		{
			name: "Offset",
			p: Positioner{
				size:       image.Pt(100, 50),
				anchorRect: image.Rect(10, 10, 30, 30),
				anchor:     protocol.AnchorBottomRight,
				gravity:    protocol.AnchorBottomRight,
				offset:     image.Pt(5, -5),
			},
			bounds: image.Rect(0, 0, 1000, 1000),
			r:      image.Rect(35, 25, 135, 75),
		},
		{
			name: "Centered",
			p: Positioner{
				size:       image.Pt(10, 10),
				anchorRect: image.Rect(0, 0, 40, 40),
			},
			r: image.Rect(15, 15, 25, 25),
		},
		{
			name: "FlipX",
			p: Positioner{
				size:       image.Pt(50, 20),
				anchorRect: image.Rect(60, 40, 80, 60),
				anchor:     protocol.AnchorRight,
				gravity:    protocol.AnchorRight,
				adjust:     protocol.ConstraintAdjustmentFlipX,
			},
			bounds: image.Rect(0, 0, 120, 100),
			r:      image.Rect(10, 40, 60, 60),
		},
		{
			name: "SlideX",
			p: Positioner{
				size:       image.Pt(100, 50),
				anchorRect: image.Rect(10, 10, 30, 30),
				anchor:     protocol.AnchorBottomRight,
				gravity:    protocol.AnchorBottomRight,
				adjust:     protocol.ConstraintAdjustmentFlipX | protocol.ConstraintAdjustmentSlideX,
			},
			bounds: image.Rect(0, 0, 100, 100),
			r:      image.Rect(0, 30, 100, 80),
		},
		{
			name: "ResizeX",
			p: Positioner{
				size:       image.Pt(50, 20),
				anchorRect: image.Rect(60, 40, 80, 60),
				anchor:     protocol.AnchorRight,
				gravity:    protocol.AnchorRight,
				adjust:     protocol.ConstraintAdjustmentResizeX,
			},
			bounds: image.Rect(0, 0, 120, 100),
			r:      image.Rect(80, 40, 120, 60),
		},
		{
			name: "NoAdjustment",
			p: Positioner{
				size:       image.Pt(50, 20),
				anchorRect: image.Rect(60, 40, 80, 60),
				anchor:     protocol.AnchorRight,
				gravity:    protocol.AnchorRight,
			},
			bounds: image.Rect(0, 0, 120, 100),
			r:      image.Rect(80, 40, 130, 60),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := test.p.Position(test.bounds)
			if r != test.r {
				t.Fatalf("got %v, want %v", r, test.r)
			}
		})
	}
}
