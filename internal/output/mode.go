package output

import (
	"fmt"
	"image"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Mode is a display mode.
type Mode struct {
	Width, Height int

	// RefreshMHz is the refresh rate in millihertz.
	RefreshMHz int

	Preferred bool

	// VRRMin and VRRMax bound the refresh rate in millihertz when
	// variable refresh is enabled. They are zero if the display does
	// not support it.
	VRRMin, VRRMax int
}

func (m Mode) Size() image.Point {
	return image.Pt(m.Width, m.Height)
}

// RefreshHz returns the refresh rate rounded to the nearest hertz.
func (m Mode) RefreshHz() int {
	return (m.RefreshMHz + 500) / 1000
}

// Interval returns the duration of one refresh cycle.
func (m Mode) Interval() time.Duration {
	if m.RefreshMHz <= 0 {
		return time.Second / 60
	}
	return time.Duration(int64(time.Second) * 1000 / int64(m.RefreshMHz))
}

// MinInterval returns the shortest time allowed between two frames.
// Without variable refresh support it is the same as Interval.
func (m Mode) MinInterval() time.Duration {
	if m.VRRMax <= 0 {
		return m.Interval()
	}
	return time.Duration(int64(time.Second) * 1000 / int64(m.VRRMax))
}

func (m Mode) String() string {
	return fmt.Sprintf("%vx%v@%v.%03d", m.Width, m.Height, m.RefreshMHz/1000, m.RefreshMHz%1000)
}

// ModeSpec is a user-requested mode. A zero Refresh matches any
// refresh rate.
type ModeSpec struct {
	Width, Height int

	// Refresh is in hertz.
	Refresh int
}

// ParseMode parses "WxH" or "WxH@R", with an optional "Hz" suffix on
// R. The string "auto" and the empty string return nil.
func ParseMode(s string) (*ModeSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return nil, nil
	}

	res, refresh, hasRefresh := strings.Cut(s, "@")
	ws, hs, ok := strings.Cut(res, "x")
	if !ok {
		return nil, fmt.Errorf("invalid mode %q", s)
	}

	var spec ModeSpec
	var err error
	spec.Width, err = strconv.Atoi(ws)
	if err != nil || spec.Width <= 0 {
		return nil, fmt.Errorf("invalid mode width in %q", s)
	}
	spec.Height, err = strconv.Atoi(hs)
	if err != nil || spec.Height <= 0 {
		return nil, fmt.Errorf("invalid mode height in %q", s)
	}

	if hasRefresh {
		r, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(refresh), "Hz"), 64)
		if err != nil || r <= 0 {
			return nil, fmt.Errorf("invalid mode refresh in %q", s)
		}
		spec.Refresh = int(r + 0.5)
	}

	return &spec, nil
}

func (spec ModeSpec) matches(m Mode) bool {
	if m.Width != spec.Width || m.Height != spec.Height {
		return false
	}
	return spec.Refresh == 0 || m.RefreshHz() == spec.Refresh
}

// SelectMode chooses a mode from modes. A mode matching override wins,
// then the highest refresh rate at the preferred resolution, and
// finally the largest mode. It returns false if modes is empty.
func SelectMode(modes []Mode, override *ModeSpec) (Mode, bool) {
	if len(modes) == 0 {
		return Mode{}, false
	}

	if override != nil {
		if m, ok := best(modes, override.matches); ok {
			return m, true
		}
	}

	i := slices.IndexFunc(modes, func(m Mode) bool { return m.Preferred })
	if i >= 0 {
		size := modes[i].Size()
		return best(modes, func(m Mode) bool { return m.Size() == size })
	}

	return best(modes, func(Mode) bool { return true })
}

// best returns the largest mode that satisfies f, breaking ties by
// refresh rate.
func best(modes []Mode, f func(Mode) bool) (m Mode, ok bool) {
	for _, c := range modes {
		if !f(c) {
			continue
		}
		if !ok || better(c, m) {
			m, ok = c, true
		}
	}
	return m, ok
}

func better(a, b Mode) bool {
	aa, ba := a.Width*a.Height, b.Width*b.Height
	if aa != ba {
		return aa > ba
	}
	return a.RefreshMHz > b.RefreshMHz
}
