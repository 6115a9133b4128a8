package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/alefaraci/GoTPF/tpf"
)

type EncodeConfig struct {
	Mode       string `toml:"mode"`
	Background string `toml:"background"`
	Version    int    `toml:"version"` // 0 = bare "WxH" header
}

type DecodeConfig struct {
	Fill string `toml:"fill"`
}

type ExportConfig struct {
	JPEGQuality    int `toml:"jpeg_quality"`
	TurdSize       int `toml:"turd_size"` // traced speckles up to this area are dropped
	MaxTraceColors int `toml:"max_trace_colors"`
}

type WatchConfig struct {
	Sources      []string `toml:"sources"`
	Location     string   `toml:"location"`
	PollInterval int      `toml:"poll_interval"` // seconds, 0 = default (5s)
}

func (w WatchConfig) PollDuration() time.Duration {
	if w.PollInterval > 0 {
		return time.Duration(w.PollInterval) * time.Second
	}
	return 5 * time.Second
}

func (w WatchConfig) InputDirs() []string {
	var dirs []string
	for _, d := range w.Sources {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

type Config struct {
	Encode EncodeConfig `toml:"encode"`
	Decode DecodeConfig `toml:"decode"`
	Export ExportConfig `toml:"export"`
	Watch  WatchConfig  `toml:"watch"`
}

func defaultConfig() *Config {
	return &Config{
		Encode: EncodeConfig{
			Mode:       tpf.RunLength.String(),
			Background: "#FFFFFF",
			Version:    tpf.Version1,
		},
		Decode: DecodeConfig{
			Fill: "#FFFFFF",
		},
		Export: ExportConfig{
			JPEGQuality:    90,
			TurdSize:       0,
			MaxTraceColors: 64,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.Encoder(); err != nil {
		return err
	}
	if _, err := c.Decoder(); err != nil {
		return err
	}
	if q := c.Export.JPEGQuality; q < 1 || q > 100 {
		return fmt.Errorf("export.jpeg_quality %d out of range 1-100", q)
	}
	if c.Export.TurdSize < 0 {
		return fmt.Errorf("export.turd_size must not be negative")
	}
	if c.Export.MaxTraceColors < 1 {
		return fmt.Errorf("export.max_trace_colors must be positive")
	}
	return nil
}

// Encoder builds the TPF encoder described by the [encode] section.
func (c *Config) Encoder() (*tpf.Encoder, error) {
	mode, err := tpf.ParseMode(c.Encode.Mode)
	if err != nil {
		return nil, fmt.Errorf("encode.mode: %w", err)
	}
	bg, err := parseHexColor(c.Encode.Background)
	if err != nil {
		return nil, fmt.Errorf("encode.background: %w", err)
	}
	if c.Encode.Version != 0 && c.Encode.Version != tpf.Version1 {
		return nil, fmt.Errorf("encode.version: %w: %d", tpf.ErrUnsupportedVersion, c.Encode.Version)
	}
	return &tpf.Encoder{Mode: mode, Background: bg, Version: c.Encode.Version}, nil
}

// Decoder builds the TPF decoder described by the [decode] section.
func (c *Config) Decoder() (*tpf.Decoder, error) {
	fill, err := parseHexColor(c.Decode.Fill)
	if err != nil {
		return nil, fmt.Errorf("decode.fill: %w", err)
	}
	return &tpf.Decoder{Fill: &fill}, nil
}

func parseHexColor(hex string) (tpf.Color, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return tpf.Color{}, fmt.Errorf("invalid hex color: #%s (expected 6 hex digits)", hex)
	}
	var rgb [3]uint8
	for i := range 3 {
		val, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return tpf.Color{}, fmt.Errorf("invalid hex color: #%s: %w", hex, err)
		}
		rgb[i] = uint8(val)
	}
	return tpf.Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}

func hexColor(c tpf.Color) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
