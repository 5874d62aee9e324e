// Package emoji reads colour-glyph tables and classifies emoji codepoints.
//
// Two table families are supported:
//   - COLR v0 with CPAL: a glyph is a stack of outline layers, each painted
//     with a palette colour.
//   - CBDT/CBLC: a glyph is a PNG bitmap stored in one or more size strikes.
//
// The detection helpers answer whether a grapheme cluster should be
// presented as emoji, which steers font fallback toward colour fonts.
package emoji
