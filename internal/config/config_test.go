package config_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"deedles.dev/wlt/internal/config"
	"deedles.dev/wlt/internal/xkb"
	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	err := os.WriteFile(path, []byte(data), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissing(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"), nil)
	if err == nil {
		t.Fatal("explicit missing path did not fail")
	}
	if cfg.Appearance.TitleBarHeight != 24 {
		t.Fatalf("defaults not returned: %+v", cfg.Appearance)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, "[appearance]\ntitle_bar_height = \n")

	cfg, err := config.Load(path, nil)
	var serr *config.SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected syntax error, got %v", err)
	}
	if serr.Line < 1 {
		t.Errorf("line = %v", serr.Line)
	}
	if !reflect.DeepEqual(cfg, config.Default()) {
		t.Fatalf("malformed config did not produce defaults: %+v", cfg)
	}
}

func TestLoadPartial(t *testing.T) {
	path := writeConfig(t, `
[appearance]
gap = 8
border_focused = "#FF0000"

[display]
vsync = false

[keybinds]
mod_key = "super"

[[keybinds.bind]]
key = "mod+Return"
action = "exec alacritty"

[unknown]
whatever = 1
`)

	cfg, err := config.Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != path {
		t.Errorf("path = %q", cfg.Path)
	}
	if cfg.Appearance.Gap != 8 {
		t.Errorf("gap = %v", cfg.Appearance.Gap)
	}
	if cfg.Appearance.BorderFocused != "#FF0000" {
		t.Errorf("border_focused = %q", cfg.Appearance.BorderFocused)
	}
	if cfg.Appearance.TitleBarHeight != 24 {
		t.Errorf("title_bar_height = %v", cfg.Appearance.TitleBarHeight)
	}
	if cfg.Display.VSync {
		t.Error("vsync not overridden")
	}
	if !cfg.Display.GPU {
		t.Error("gpu default lost")
	}
	if cfg.Workspaces.Count != 9 {
		t.Errorf("workspaces = %v", cfg.Workspaces.Count)
	}
	if len(cfg.Keybinds.Bind) != 1 || cfg.Keybinds.Bind[0].Action != "exec alacritty" {
		t.Fatalf("binds = %+v", cfg.Keybinds.Bind)
	}

	bindings, errs := cfg.Keybinds.Bindings()
	if len(errs) != 0 {
		t.Fatal(errs)
	}
	want := config.Keybind{Mods: xkb.ModSuper, Sym: xkb.KeyReturn}
	var found bool
	for _, b := range bindings {
		if b.Keybind == want {
			found = true
			if b.Action.Command != "alacritty" {
				t.Errorf("override not applied: %+v", b.Action)
			}
		}
	}
	if !found {
		t.Fatal("mod+Return not bound")
	}
	if len(bindings) != len(config.DefaultBinds()) {
		t.Errorf("override added a bind: %v != %v", len(bindings), len(config.DefaultBinds()))
	}
}

func TestLoadEnvAndFlags(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = \"warn\"\n")
	t.Setenv("WLT_DISPLAY_VRR", "true")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.String("log-format", "text", "")
	err := flags.Parse([]string{"--log-format", "json"})
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path, flags)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Display.VRR {
		t.Error("env override not applied")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %q", cfg.Log.Format)
	}
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	err := config.Dump(&buf, config.Default())
	if err != nil {
		t.Fatal(err)
	}

	path := writeConfig(t, buf.String())
	cfg, err := config.Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Path = ""
	if !reflect.DeepEqual(cfg, config.Default()) {
		t.Fatalf("dumped config does not load back:\n%v", buf.String())
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want [4]uint8
		err  bool
	}{
		{in: "#1A1A2E", want: [4]uint8{0x1A, 0x1A, 0x2E, 0xFF}},
		{in: "#4a9eff80", want: [4]uint8{0x4A, 0x9E, 0xFF, 0x80}},
		{in: "1A1A2E", err: true},
		{in: "#12345", err: true},
		{in: "#GGGGGG", err: true},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			c, err := config.ParseColor(test.in)
			if test.err {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := [4]uint8{c.R, c.G, c.B, c.A}; got != test.want {
				t.Fatalf("got %v, want %v", got, test.want)
			}
		})
	}
}

func TestParseKeybind(t *testing.T) {
	tests := []struct {
		in   string
		want config.Keybind
		err  bool
	}{
		{in: "mod+Return", want: config.Keybind{Mods: xkb.ModAlt, Sym: xkb.KeyReturn}},
		{in: "ctrl+alt+q", want: config.Keybind{Mods: xkb.ModControl | xkb.ModAlt, Sym: 'q'}},
		{in: "mod+shift+Q", want: config.Keybind{Mods: xkb.ModAlt | xkb.ModShift, Sym: 'q'}},
		{in: "super+space", want: config.Keybind{Mods: xkb.ModSuper, Sym: xkb.KeySpace}},
		{in: "mod+shift+1", want: config.Keybind{Mods: xkb.ModAlt | xkb.ModShift, Sym: '1'}},
		{in: "hyper+a", err: true},
		{in: "mod+", err: true},
		{in: "mod+nokey", err: true},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			got, err := config.ParseKeybind(test.in, xkb.ModAlt)
			if test.err {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != test.want {
				t.Fatalf("got %v, want %v", got, test.want)
			}
		})
	}
}

func TestKeybindMatches(t *testing.T) {
	b, err := config.ParseKeybind("mod+shift+j", xkb.ModSuper)
	if err != nil {
		t.Fatal(err)
	}
	if !b.Matches(xkb.ModSuper|xkb.ModShift|xkb.ModNumLock, 'j') {
		t.Error("NumLock prevented a match")
	}
	if b.Matches(xkb.ModSuper, 'j') {
		t.Error("matched without shift")
	}
	if b.Matches(xkb.ModSuper|xkb.ModShift|xkb.ModControl, 'j') {
		t.Error("matched with an extra modifier")
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in   string
		want config.Action
		err  bool
	}{
		{in: "exit", want: config.Action{Kind: config.ActionExit}},
		{in: "exec foot --server", want: config.Action{Kind: config.ActionExec, Command: "foot --server"}},
		{in: "spawn fuzzel", want: config.Action{Kind: config.ActionSpawn, Command: "fuzzel"}},
		{in: "focus", want: config.Action{Kind: config.ActionFocus, Dir: config.DirNext}},
		{in: "focus left", want: config.Action{Kind: config.ActionFocus, Dir: config.DirLeft}},
		{in: "move prev", want: config.Action{Kind: config.ActionMove, Dir: config.DirPrev}},
		{in: "swap_window d", want: config.Action{Kind: config.ActionSwap, Dir: config.DirDown}},
		{in: "fullscreen", want: config.Action{Kind: config.ActionFullscreen, Toggle: config.Toggled}},
		{in: "togglefloating", want: config.Action{Kind: config.ActionFloating, Toggle: config.Toggled}},
		{in: "maximize off", want: config.Action{Kind: config.ActionMaximize, Toggle: config.Off}},
		{in: "resize grow", want: config.Action{Kind: config.ActionResize, Dir: config.DirGrow, Amount: 10}},
		{in: "resize left 40", want: config.Action{Kind: config.ActionResize, Dir: config.DirLeft, Amount: 40}},
		{in: "workspace 3", want: config.Action{Kind: config.ActionWorkspace, Target: config.WorkspaceTarget{Kind: config.TargetNumber, Number: 3}}},
		{in: "workspace empty", want: config.Action{Kind: config.ActionWorkspace, Target: config.WorkspaceTarget{Kind: config.TargetEmpty}}},
		{in: "move_to_workspace next", want: config.Action{Kind: config.ActionMoveToWorkspace, Target: config.WorkspaceTarget{Kind: config.TargetNext}}},
		{in: "move_to_workspace_silent 2", want: config.Action{Kind: config.ActionMoveToWorkspaceSilent, Target: config.WorkspaceTarget{Kind: config.TargetNumber, Number: 2}}},
		{in: "splitv", want: config.Action{Kind: config.ActionSplitV}},
		{in: "cursor_theme Adwaita 32", want: config.Action{Kind: config.ActionCursorTheme, Theme: "Adwaita", Size: 32}},
		{in: "exec", err: true},
		{in: "focus sideways", err: true},
		{in: "resize next", err: true},
		{in: "workspace 0", err: true},
		{in: "fullscreen maybe", err: true},
		{in: "dance", err: true},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			got, err := config.ParseAction(test.in)
			if test.err {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != test.want {
				t.Fatalf("got %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestWorkspaceTargetResolve(t *testing.T) {
	empty := func(i int) bool { return i == 4 }
	tests := []struct {
		target string
		active int
		want   int
	}{
		{"3", 0, 2},
		{"12", 0, -1},
		{"next", 8, 0},
		{"prev", 0, 8},
		{"first", 5, 0},
		{"last", 0, 8},
		{"empty", 0, 4},
	}
	for _, test := range tests {
		a, err := config.ParseAction("workspace " + test.target)
		if err != nil {
			t.Fatal(err)
		}
		if got := a.Target.Resolve(test.active, 9, empty); got != test.want {
			t.Errorf("%v from %v: got %v, want %v", test.target, test.active, got, test.want)
		}
	}
}

func TestDefaultBindsParse(t *testing.T) {
	bindings, errs := config.Default().Keybinds.Bindings()
	if len(errs) != 0 {
		t.Fatal(errs)
	}
	for _, b := range bindings {
		if strings.Contains(b.Keybind.String(), "0x") {
			t.Errorf("bind with unnamed keysym: %v", b.Keybind)
		}
	}
}
