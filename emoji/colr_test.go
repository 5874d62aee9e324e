package emoji

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildCOLR encodes one base glyph (id 10) with two layers.
func buildCOLR() []byte {
	b := make([]byte, 14+6+8)
	binary.BigEndian.PutUint16(b[0:], 0)  // version
	binary.BigEndian.PutUint16(b[2:], 1)  // numBaseGlyphRecords
	binary.BigEndian.PutUint32(b[4:], 14) // baseGlyphRecordsOffset
	binary.BigEndian.PutUint32(b[8:], 20) // layerRecordsOffset
	binary.BigEndian.PutUint16(b[12:], 2) // numLayerRecords

	binary.BigEndian.PutUint16(b[14:], 10)
	binary.BigEndian.PutUint16(b[16:], 0)
	binary.BigEndian.PutUint16(b[18:], 2)

	binary.BigEndian.PutUint16(b[20:], 11)
	binary.BigEndian.PutUint16(b[22:], 0)
	binary.BigEndian.PutUint16(b[24:], 12)
	binary.BigEndian.PutUint16(b[26:], ForegroundPalette)
	return b
}

// buildCPAL encodes one palette with a single red entry.
func buildCPAL() []byte {
	b := make([]byte, 14+4)
	binary.BigEndian.PutUint16(b[0:], 0)
	binary.BigEndian.PutUint16(b[2:], 1)  // numPaletteEntries
	binary.BigEndian.PutUint16(b[4:], 1)  // numPalettes
	binary.BigEndian.PutUint16(b[6:], 1)  // numColorRecords
	binary.BigEndian.PutUint32(b[8:], 14) // colorRecordsArrayOffset
	binary.BigEndian.PutUint16(b[12:], 0) // colorRecordIndices[0]
	copy(b[14:], []byte{0x00, 0x00, 0xFF, 0xFF})
	return b
}

func TestParseColorTable(t *testing.T) {
	ct, err := ParseColorTable(buildCOLR(), buildCPAL())
	if err != nil {
		t.Fatalf("ParseColorTable: %v", err)
	}
	if !ct.Has(10) || ct.Has(11) {
		t.Error("Has reports wrong base glyphs")
	}
	layers, ok := ct.Layers(10, 0)
	if !ok || len(layers) != 2 {
		t.Fatalf("Layers = %v, %v", layers, ok)
	}
	if layers[0].Glyph != 11 || layers[0].Color != (Color{R: 255, A: 255}) {
		t.Errorf("layer 0 = %+v", layers[0])
	}
	if !layers[1].Foreground() {
		t.Errorf("layer 1 should use the foreground color")
	}
	if ct.NumPalettes() != 1 {
		t.Errorf("NumPalettes = %d", ct.NumPalettes())
	}
}

func TestParseColorTableErrors(t *testing.T) {
	if _, err := ParseColorTable(nil, buildCPAL()); !errors.Is(err, ErrNoColorTable) {
		t.Errorf("missing COLR: %v", err)
	}
	if _, err := ParseColorTable(buildCOLR()[:10], buildCPAL()); !errors.Is(err, ErrInvalidCOLR) {
		t.Errorf("short COLR: %v", err)
	}
	if _, err := ParseColorTable(buildCOLR(), buildCPAL()[:15]); !errors.Is(err, ErrInvalidCPAL) {
		t.Errorf("short CPAL: %v", err)
	}
	bad := buildCOLR()
	binary.BigEndian.PutUint16(bad[0:], 2)
	if _, err := ParseColorTable(bad, buildCPAL()); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("version 2: %v", err)
	}
}
