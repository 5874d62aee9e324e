package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/rendertext/canvas"
	"github.com/gogpu/rendertext/segment"
)

// Config is the settings file format. Command line flags that are set
// explicitly override it.
type Config struct {
	Fonts       []string `yaml:"fonts"`
	Size        float64  `yaml:"size"`
	Color       string   `yaml:"color"`
	Background  string   `yaml:"background"`
	Width       int      `yaml:"width"`
	Height      int      `yaml:"height"`
	Padding     int      `yaml:"padding"`
	Hinting     *bool    `yaml:"hinting"`
	Direction   string   `yaml:"direction"`
	Language    string   `yaml:"language"`
	CacheBudget int64    `yaml:"cache_budget"`
	Placeholder struct {
		Font string `yaml:"font"`
		Rune string `yaml:"rune"`
	} `yaml:"placeholder"`
	Output string `yaml:"output"`
}

func defaultConfig() Config {
	return Config{
		Size:    24,
		Color:   "#000000",
		Padding: 4,
		Output:  "text.png",
	}
}

// loadConfig reads path over the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

var errBadColor = errors.New("color must be #rrggbb or #rrggbbaa")

// parseColor accepts #rrggbb and #rrggbbaa. An empty string is transparent.
func parseColor(s string) (canvas.Color, error) {
	if s == "" {
		return canvas.Transparent, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return canvas.Color{}, fmt.Errorf("%q: %w", s, errBadColor)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return canvas.Color{}, fmt.Errorf("%q: %w", s, errBadColor)
	}
	return canvas.Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseDirection(s string) (segment.Direction, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return segment.DirectionAuto, nil
	case "ltr":
		return segment.DirectionLTR, nil
	case "rtl":
		return segment.DirectionRTL, nil
	}
	return segment.DirectionAuto, fmt.Errorf("direction %q: want auto, ltr or rtl", s)
}

// parseRune accepts a single character or U+XXXX notation.
func parseRune(s string) (rune, error) {
	if rs := []rune(s); len(rs) == 1 {
		return rs[0], nil
	}
	if hex, ok := strings.CutPrefix(strings.ToUpper(s), "U+"); ok {
		v, err := strconv.ParseUint(hex, 16, 32)
		if err == nil && v <= 0x10FFFF {
			return rune(v), nil
		}
	}
	return 0, fmt.Errorf("rune %q: want one character or U+XXXX", s)
}
