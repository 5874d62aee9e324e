// Package rendertext draws Unicode text into caller-owned RGBA buffers.
//
// A render call runs a fixed pipeline:
//
//	segment → shape → fallback → rasterize (cached) → composite
//
// Text is split into grapheme clusters and runs of one script and bidi
// level, each run is shaped with the first font of the chain, clusters that
// font cannot render are resolved against the rest of the chain, and the
// resulting glyphs are rasterized through a process-wide glyph cache and
// blended into the canvas. Clusters no font can render are drawn as a
// placeholder box and reported in Result.Degraded; they never fail the
// call.
//
// # Quick Start
//
//	dst := canvas.New(320, 48, canvas.FormatRGBA)
//	res, err := rendertext.Render("Hello, мир", []string{"DejaVuSans.ttf"},
//		24, canvas.Black, dst, image.Pt(4, 32))
//	if err != nil {
//		return err
//	}
//	if res.Partial() {
//		log.Printf("%d clusters drawn as placeholders", len(res.Degraded))
//	}
//
// For repeated rendering create a Renderer once; it keeps its fonts loaded:
//
//	r, err := rendertext.New(
//		rendertext.WithFontChain("NotoSans-Regular.ttf", "NotoColorEmoji.ttf"),
//		rendertext.WithSize(18),
//	)
//	defer r.Close()
//
// # Concurrency
//
// Renderers, the font arena and the glyph cache are safe for concurrent
// use. Each call runs synchronously on the caller's goroutine.
//
// # Logging
//
// The library is silent by default. SetLogger installs a log/slog logger
// for all packages.
package rendertext
