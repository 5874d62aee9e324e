// Command rendertext renders a line of text to a PNG file.
//
//	rendertext -f DejaVuSans.ttf -f NotoColorEmoji.ttf -s 32 -o hello.png "Hello, world"
package main

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/gogpu/rendertext"
	"github.com/gogpu/rendertext/canvas"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("rendertext", pflag.ContinueOnError)
	var (
		configPath  = flags.String("config", "", "YAML settings file")
		fonts       = flags.StringArrayP("font", "f", nil, "Font file or name, repeatable; order is the fallback chain")
		size        = flags.Float64P("size", "s", 24, "Font size in pixels")
		color       = flags.StringP("color", "c", "#000000", "Text colour, #rrggbb or #rrggbbaa")
		background  = flags.String("background", "", "Background colour (default transparent)")
		width       = flags.Int("width", 0, "Image width, 0 to fit the text")
		height      = flags.Int("height", 0, "Image height, 0 to fit the text")
		padding     = flags.Int("padding", 4, "Margin around fitted text")
		output      = flags.StringP("output", "o", "text.png", "Output PNG file")
		noHinting   = flags.Bool("no-hinting", false, "Disable grid fitting")
		direction   = flags.String("direction", "auto", "Paragraph direction: auto, ltr or rtl")
		lang        = flags.String("language", "", "BCP 47 language tag")
		cacheBudget = flags.Int64("cache-budget", 0, "Glyph cache budget in bytes")
		placeholder = flags.String("placeholder", "", "Placeholder as FONT:RUNE, e.g. DejaVuSans.ttf:U+FFFD")
		debug       = flags.Bool("debug", false, "Log pipeline stages")
	)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		pterm.Error.Println(err)
		return 2
	}

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			pterm.Error.Println(err)
			return 1
		}
	}
	changed := flags.Changed
	if changed("font") || len(cfg.Fonts) == 0 {
		cfg.Fonts = *fonts
	}
	if changed("size") {
		cfg.Size = *size
	}
	if changed("color") {
		cfg.Color = *color
	}
	if changed("background") {
		cfg.Background = *background
	}
	if changed("width") {
		cfg.Width = *width
	}
	if changed("height") {
		cfg.Height = *height
	}
	if changed("padding") {
		cfg.Padding = *padding
	}
	if changed("output") {
		cfg.Output = *output
	}
	if changed("no-hinting") {
		on := !*noHinting
		cfg.Hinting = &on
	}
	if changed("direction") {
		cfg.Direction = *direction
	}
	if changed("language") {
		cfg.Language = *lang
	}
	if changed("cache-budget") {
		cfg.CacheBudget = *cacheBudget
	}
	if changed("placeholder") {
		f, r, ok := strings.Cut(*placeholder, ":")
		if !ok {
			pterm.Error.Println("--placeholder wants FONT:RUNE")
			return 2
		}
		cfg.Placeholder.Font, cfg.Placeholder.Rune = f, r
	}

	if *debug {
		logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelDebug)
		rendertext.SetLogger(slog.New(pterm.NewSlogHandler(logger)))
	}

	text := strings.Join(flags.Args(), " ")
	if text == "" {
		pterm.Error.Println("no text given")
		flags.PrintDefaults()
		return 2
	}
	if len(cfg.Fonts) == 0 {
		pterm.Error.Println("no fonts given, use --font")
		return 2
	}

	if err := render(text, cfg); err != nil {
		pterm.Error.Println(err)
		return 1
	}
	return 0
}

func render(text string, cfg Config) error {
	opts, err := options(cfg)
	if err != nil {
		return err
	}
	r, err := rendertext.New(opts...)
	if err != nil {
		return err
	}
	defer r.Close()
	for _, err := range r.LoadErrors() {
		pterm.Warning.Println(err)
	}

	bg, err := parseColor(cfg.Background)
	if err != nil {
		return err
	}
	w, h, origin, err := layout(r, text, cfg)
	if err != nil {
		return err
	}
	dst := canvas.New(w, h, canvas.FormatRGBA)
	dst.Fill(bg)

	res, err := r.Render(text, dst, origin)
	if err != nil {
		return err
	}
	if res.Partial() {
		report(text, res)
	}

	if err := writePNG(cfg.Output, dst); err != nil {
		return err
	}
	pterm.Success.Printfln("wrote %s (%dx%d, %d glyphs)", cfg.Output, w, h, res.Glyphs)
	return nil
}

func options(cfg Config) ([]rendertext.Option, error) {
	col, err := parseColor(cfg.Color)
	if err != nil {
		return nil, err
	}
	dir, err := parseDirection(cfg.Direction)
	if err != nil {
		return nil, err
	}
	opts := []rendertext.Option{
		rendertext.WithFontChain(cfg.Fonts...),
		rendertext.WithSize(cfg.Size),
		rendertext.WithColor(col),
		rendertext.WithBaseDirection(dir),
	}
	if cfg.Hinting != nil {
		opts = append(opts, rendertext.WithHinting(*cfg.Hinting))
	}
	if cfg.Language != "" {
		opts = append(opts, rendertext.WithLanguage(cfg.Language))
	}
	if cfg.CacheBudget > 0 {
		opts = append(opts, rendertext.WithCacheBudget(cfg.CacheBudget))
	}
	if cfg.Placeholder.Font != "" {
		pr, err := parseRune(cfg.Placeholder.Rune)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rendertext.WithPlaceholder(cfg.Placeholder.Font, pr))
	}
	return opts, nil
}

// layout picks the image size and the baseline origin. Missing dimensions
// are fitted to the measured ink with padding on every side.
func layout(r *rendertext.Renderer, text string, cfg Config) (w, h int, origin image.Point, err error) {
	pad := max(cfg.Padding, 0)
	origin = image.Pt(pad, pad+int(math.Ceil(cfg.Size)))
	if cfg.Width > 0 && cfg.Height > 0 {
		return cfg.Width, cfg.Height, origin, nil
	}

	m, err := r.Measure(text)
	if err != nil {
		return 0, 0, origin, err
	}
	ink := m.Bounds.Union(image.Rect(0, 0, int(math.Ceil(m.Advance)), 1))
	w, h = cfg.Width, cfg.Height
	if w <= 0 {
		origin.X = pad - min(ink.Min.X, 0)
		w = ink.Dx() + 2*pad
	}
	if h <= 0 {
		origin.Y = pad - ink.Min.Y
		h = ink.Dy() + 2*pad
	}
	return w, h, origin, nil
}

func report(text string, res rendertext.Result) {
	data := pterm.TableData{{"Cluster", "Bytes", "Text", "Reason"}}
	for _, d := range res.Degraded {
		data = append(data, []string{
			fmt.Sprint(d.Cluster),
			fmt.Sprintf("%d-%d", d.ByteStart, d.ByteEnd),
			fmt.Sprintf("%+q", text[d.ByteStart:d.ByteEnd]),
			d.Err.Error(),
		})
	}
	pterm.Warning.Printfln("%d of %d clusters drawn as placeholders", len(res.Degraded), res.Clusters)
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func writePNG(path string, c *canvas.Canvas) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, c.ToNRGBA()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
