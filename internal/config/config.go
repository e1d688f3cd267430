// Package config loads the compositor's TOML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// RelPath is the location of the configuration file relative to
	// each XDG config directory.
	RelPath = "wlt/config.toml"

	// SystemPath is checked after every XDG config directory.
	SystemPath = "/etc/wlt/config.toml"
)

type Config struct {
	Appearance Appearance `mapstructure:"appearance" toml:"appearance"`
	Display    Display    `mapstructure:"display" toml:"display"`
	Keyboard   Keyboard   `mapstructure:"keyboard" toml:"keyboard"`
	Cursor     Cursor     `mapstructure:"cursor" toml:"cursor"`
	Keybinds   Keybinds   `mapstructure:"keybinds" toml:"keybinds"`
	Workspaces Workspaces `mapstructure:"workspaces" toml:"workspaces"`
	Debug      Debug      `mapstructure:"debug" toml:"debug"`
	Log        Log        `mapstructure:"log" toml:"log"`

	// Path is the file that the config was loaded from, if any.
	Path string `mapstructure:"-" toml:"-"`
}

type Appearance struct {
	TitleBarHeight  int    `mapstructure:"title_bar_height" toml:"title_bar_height"`
	BorderWidth     int    `mapstructure:"border_width" toml:"border_width"`
	Gap             int    `mapstructure:"gap" toml:"gap"`
	BackgroundDark  string `mapstructure:"background_dark" toml:"background_dark"`
	BackgroundLight string `mapstructure:"background_light" toml:"background_light"`
	TitleFocused    string `mapstructure:"title_focused" toml:"title_focused"`
	TitleUnfocused  string `mapstructure:"title_unfocused" toml:"title_unfocused"`
	BorderFocused   string `mapstructure:"border_focused" toml:"border_focused"`
	BorderUnfocused string `mapstructure:"border_unfocused" toml:"border_unfocused"`
	TitleText       string `mapstructure:"title_text" toml:"title_text"`
}

type Display struct {
	Device string `mapstructure:"device" toml:"device"`
	Mode   string `mapstructure:"mode" toml:"mode"`
	VSync  bool   `mapstructure:"vsync" toml:"vsync"`
	VRR    bool   `mapstructure:"vrr" toml:"vrr"`
	GPU    bool   `mapstructure:"gpu" toml:"gpu"`
}

// DevicePath returns the configured DRM device, or an empty string
// if the device should be detected.
func (d Display) DevicePath() string {
	if d.Device == "auto" {
		return ""
	}
	return d.Device
}

type Keyboard struct {
	Layout      string `mapstructure:"layout" toml:"layout"`
	Model       string `mapstructure:"model" toml:"model"`
	Variant     string `mapstructure:"variant" toml:"variant"`
	Options     string `mapstructure:"options" toml:"options"`
	RepeatRate  int    `mapstructure:"repeat_rate" toml:"repeat_rate"`
	RepeatDelay int    `mapstructure:"repeat_delay" toml:"repeat_delay"`
}

type Cursor struct {
	Theme string `mapstructure:"theme" toml:"theme"`
	Size  int    `mapstructure:"size" toml:"size"`
}

type Keybinds struct {
	ModKey string `mapstructure:"mod_key" toml:"mod_key"`
	Bind   []Bind `mapstructure:"bind" toml:"bind,omitempty"`
}

// Bind maps a key combination to an action string.
type Bind struct {
	Key    string `mapstructure:"key" toml:"key"`
	Action string `mapstructure:"action" toml:"action"`
}

type Workspaces struct {
	Count int `mapstructure:"count" toml:"count"`
}

type Debug struct {
	Profiler bool `mapstructure:"profiler" toml:"profiler"`
}

type Log struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Appearance: Appearance{
			TitleBarHeight:  24,
			BorderWidth:     1,
			Gap:             0,
			BackgroundDark:  "#1A1A2E",
			BackgroundLight: "#16213E",
			TitleFocused:    "#2D5A88",
			TitleUnfocused:  "#3C3C3C",
			BorderFocused:   "#4A9EFF",
			BorderUnfocused: "#505050",
			TitleText:       "#E0E0E0",
		},
		Display: Display{
			Device: "auto",
			Mode:   "auto",
			VSync:  true,
			GPU:    true,
		},
		Keyboard: Keyboard{
			Layout:      "us",
			Model:       "pc105",
			RepeatRate:  25,
			RepeatDelay: 600,
		},
		Cursor: Cursor{
			Theme: "default",
			Size:  24,
		},
		Keybinds: Keybinds{
			ModKey: "alt",
		},
		Workspaces: Workspaces{
			Count: 9,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Find returns the first configuration file in the search path, or
// an empty string if there is none.
func Find() string {
	path, err := xdg.SearchConfigFile(RelPath)
	if err == nil {
		return path
	}
	if _, err := os.Stat(SystemPath); err == nil {
		return SystemPath
	}
	return ""
}

// SyntaxError is returned when the configuration file is not valid
// TOML.
type SyntaxError struct {
	Path      string
	Line, Col int
	Err       error
}

func (err *SyntaxError) Error() string {
	return fmt.Sprintf("%v:%v:%v: %v", err.Path, err.Line, err.Col, err.Err)
}

func (err *SyntaxError) Unwrap() error {
	return err.Err
}

// Load reads the configuration at path, or the first one found in the
// search path if path is empty. A missing file is not an error. Flags,
// if not nil, override file values for every flag that has a matching
// key, and WLT_ environment variables override both.
//
// If the file can't be used, Load returns the defaults along with the
// error so that the caller can log it and carry on.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = Find()
	}

	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				path, data = "", nil
			} else {
				return Default(), fmt.Errorf("read config: %w", err)
			}
		}
	}

	err := validate(path, data)
	if err != nil {
		return Default(), err
	}

	v := newViper()
	if flags != nil {
		bindFlags(v, flags)
	}
	if data != nil {
		err := v.ReadConfig(bytes.NewReader(data))
		if err != nil {
			return Default(), fmt.Errorf("read config %v: %w", path, err)
		}
	}

	cfg := new(Config)
	err = v.Unmarshal(cfg)
	if err != nil {
		return Default(), fmt.Errorf("decode config %v: %w", path, err)
	}
	cfg.Path = path
	cfg.clamp()

	return cfg, nil
}

func validate(path string, data []byte) error {
	if data == nil {
		return nil
	}

	var m map[string]any
	err := toml.Unmarshal(data, &m)
	if err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			line, col := derr.Position()
			return &SyntaxError{Path: path, Line: line, Col: col, Err: err}
		}
		return fmt.Errorf("parse config %v: %w", path, err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("WLT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range defaults() {
		v.SetDefault(key, val)
	}

	return v
}

// defaults flattens Default into dotted viper keys by way of its TOML
// encoding, so that the struct literal stays the only source of
// default values.
func defaults() map[string]any {
	data, err := toml.Marshal(Default())
	if err != nil {
		panic(fmt.Errorf("encode defaults: %w", err))
	}

	var m map[string]any
	err = toml.Unmarshal(data, &m)
	if err != nil {
		panic(fmt.Errorf("decode defaults: %w", err))
	}

	flat := make(map[string]any)
	for section, vals := range m {
		vals, ok := vals.(map[string]any)
		if !ok {
			continue
		}
		for key, val := range vals {
			flat[section+"."+key] = val
		}
	}
	return flat
}

var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		v.BindPFlag(key, flag)
	}
}

func (cfg *Config) clamp() {
	if cfg.Workspaces.Count < 1 {
		cfg.Workspaces.Count = 1
	}
	cfg.Appearance.TitleBarHeight = max(cfg.Appearance.TitleBarHeight, 0)
	cfg.Appearance.BorderWidth = max(cfg.Appearance.BorderWidth, 0)
	cfg.Appearance.Gap = max(cfg.Appearance.Gap, 0)
	if cfg.Cursor.Size <= 0 {
		cfg.Cursor.Size = 24
	}
	if cfg.Keyboard.RepeatRate < 0 {
		cfg.Keyboard.RepeatRate = 0
	}
	if cfg.Keyboard.RepeatDelay < 0 {
		cfg.Keyboard.RepeatDelay = 0
	}
}

// Dump writes cfg to w as TOML.
func Dump(w io.Writer, cfg *Config) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(cfg)
}

// WriteDefault writes the default configuration to path, creating
// parent directories as needed.
func WriteDefault(path string) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var buf bytes.Buffer
	err = Dump(&buf, Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ParseColor parses "#RRGGBB" or "#RRGGBBAA".
func ParseColor(s string) (color.NRGBA, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || (len(hex) != 6 && len(hex) != 8) {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xFF
	}

	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// Palette is the parsed set of appearance colors.
type Palette struct {
	BackgroundDark  color.NRGBA
	BackgroundLight color.NRGBA
	TitleFocused    color.NRGBA
	TitleUnfocused  color.NRGBA
	BorderFocused   color.NRGBA
	BorderUnfocused color.NRGBA
	TitleText       color.NRGBA
}

// Palette parses every color in a. Colors that fail to parse are
// replaced by their defaults and reported together in the returned
// error.
func (a Appearance) Palette() (Palette, error) {
	def := Default().Appearance

	var errs []error
	parse := func(s, fallback string) color.NRGBA {
		c, err := ParseColor(s)
		if err != nil {
			errs = append(errs, err)
			c, _ = ParseColor(fallback)
		}
		return c
	}

	p := Palette{
		BackgroundDark:  parse(a.BackgroundDark, def.BackgroundDark),
		BackgroundLight: parse(a.BackgroundLight, def.BackgroundLight),
		TitleFocused:    parse(a.TitleFocused, def.TitleFocused),
		TitleUnfocused:  parse(a.TitleUnfocused, def.TitleUnfocused),
		BorderFocused:   parse(a.BorderFocused, def.BorderFocused),
		BorderUnfocused: parse(a.BorderUnfocused, def.BorderUnfocused),
		TitleText:       parse(a.TitleText, def.TitleText),
	}
	return p, errors.Join(errs...)
}
