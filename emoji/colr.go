package emoji

import (
	"encoding/binary"
	"errors"
	"sort"
)

// COLR/CPAL errors.
var (
	ErrNoColorTable       = errors.New("emoji: font has no COLR/CPAL tables")
	ErrInvalidCOLR        = errors.New("emoji: invalid COLR table")
	ErrInvalidCPAL        = errors.New("emoji: invalid CPAL table")
	ErrUnsupportedVersion = errors.New("emoji: unsupported COLR version")
)

// ForegroundPalette is the palette index meaning "use the text color".
const ForegroundPalette = 0xFFFF

// Color is a CPAL palette entry with straight alpha.
type Color struct {
	R, G, B, A uint8
}

// Layer is one outline glyph of a colour glyph, painted in a single colour.
type Layer struct {
	Glyph        uint16
	PaletteIndex uint16
	Color        Color
}

// Foreground reports whether the layer takes the text color.
func (l Layer) Foreground() bool {
	return l.PaletteIndex == ForegroundPalette
}

type baseGlyph struct {
	glyph      uint16
	firstLayer uint16
	numLayers  uint16
}

// ColorTable is a parsed COLR v0 table together with its CPAL palettes.
// It is immutable and safe for concurrent use.
type ColorTable struct {
	bases    []baseGlyph
	layers   []Layer
	palettes [][]Color
}

// ParseColorTable parses raw COLR and CPAL table bytes. COLR v1 tables are
// accepted for their v0 base glyph list only.
func ParseColorTable(colr, cpal []byte) (*ColorTable, error) {
	if len(colr) == 0 || len(cpal) == 0 {
		return nil, ErrNoColorTable
	}
	t := &ColorTable{}
	if err := t.parseCOLR(colr); err != nil {
		return nil, err
	}
	if err := t.parseCPAL(cpal); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *ColorTable) parseCOLR(data []byte) error {
	if len(data) < 14 {
		return ErrInvalidCOLR
	}
	if v := binary.BigEndian.Uint16(data[0:2]); v > 1 {
		return ErrUnsupportedVersion
	}
	numBases := int(binary.BigEndian.Uint16(data[2:4]))
	baseOff := int(binary.BigEndian.Uint32(data[4:8]))
	layerOff := int(binary.BigEndian.Uint32(data[8:12]))
	numLayers := int(binary.BigEndian.Uint16(data[12:14]))

	if baseOff+numBases*6 > len(data) || layerOff+numLayers*4 > len(data) {
		return ErrInvalidCOLR
	}

	t.bases = make([]baseGlyph, numBases)
	for i := range t.bases {
		p := data[baseOff+i*6:]
		t.bases[i] = baseGlyph{
			glyph:      binary.BigEndian.Uint16(p[0:2]),
			firstLayer: binary.BigEndian.Uint16(p[2:4]),
			numLayers:  binary.BigEndian.Uint16(p[4:6]),
		}
		if int(t.bases[i].firstLayer)+int(t.bases[i].numLayers) > numLayers {
			return ErrInvalidCOLR
		}
	}
	sort.Slice(t.bases, func(i, j int) bool { return t.bases[i].glyph < t.bases[j].glyph })

	t.layers = make([]Layer, numLayers)
	for i := range t.layers {
		p := data[layerOff+i*4:]
		t.layers[i] = Layer{
			Glyph:        binary.BigEndian.Uint16(p[0:2]),
			PaletteIndex: binary.BigEndian.Uint16(p[2:4]),
		}
	}
	return nil
}

func (t *ColorTable) parseCPAL(data []byte) error {
	if len(data) < 12 {
		return ErrInvalidCPAL
	}
	numEntries := int(binary.BigEndian.Uint16(data[2:4]))
	numPalettes := int(binary.BigEndian.Uint16(data[4:6]))
	numRecords := int(binary.BigEndian.Uint16(data[6:8]))
	recordsOff := int(binary.BigEndian.Uint32(data[8:12]))

	if 12+numPalettes*2 > len(data) || recordsOff+numRecords*4 > len(data) {
		return ErrInvalidCPAL
	}

	t.palettes = make([][]Color, numPalettes)
	for i := range t.palettes {
		first := int(binary.BigEndian.Uint16(data[12+i*2:]))
		if first+numEntries > numRecords {
			return ErrInvalidCPAL
		}
		pal := make([]Color, numEntries)
		for j := range pal {
			p := data[recordsOff+(first+j)*4:]
			// Records are stored BGRA.
			pal[j] = Color{B: p[0], G: p[1], R: p[2], A: p[3]}
		}
		t.palettes[i] = pal
	}
	return nil
}

// Has reports whether glyph has colour layers.
func (t *ColorTable) Has(glyph uint16) bool {
	_, ok := t.find(glyph)
	return ok
}

// Layers returns the layers of glyph, bottom to top, with colours resolved
// from the given palette. Foreground layers keep a zero Color.
func (t *ColorTable) Layers(glyph uint16, palette int) ([]Layer, bool) {
	b, ok := t.find(glyph)
	if !ok {
		return nil, false
	}
	var pal []Color
	if palette >= 0 && palette < len(t.palettes) {
		pal = t.palettes[palette]
	}
	out := make([]Layer, b.numLayers)
	copy(out, t.layers[b.firstLayer:int(b.firstLayer)+int(b.numLayers)])
	for i := range out {
		if !out[i].Foreground() && int(out[i].PaletteIndex) < len(pal) {
			out[i].Color = pal[out[i].PaletteIndex]
		}
	}
	return out, true
}

// NumPalettes returns the number of CPAL palettes.
func (t *ColorTable) NumPalettes() int {
	return len(t.palettes)
}

func (t *ColorTable) find(glyph uint16) (baseGlyph, bool) {
	i := sort.Search(len(t.bases), func(i int) bool { return t.bases[i].glyph >= glyph })
	if i < len(t.bases) && t.bases[i].glyph == glyph {
		return t.bases[i], true
	}
	return baseGlyph{}, false
}
