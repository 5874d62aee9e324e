package emoji

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
)

// CBDT/CBLC errors.
var (
	ErrNoBitmapTable     = errors.New("emoji: font has no CBDT/CBLC tables")
	ErrInvalidCBLC       = errors.New("emoji: invalid CBLC table")
	ErrInvalidCBDT       = errors.New("emoji: invalid CBDT table")
	ErrGlyphNotInBitmap  = errors.New("emoji: glyph has no bitmap")
	ErrUnsupportedFormat = errors.New("emoji: unsupported bitmap format")
)

const bitmapSizeRecordLen = 48

// BitmapGlyph is one embedded PNG glyph image with its strike metrics.
// Bearings are in strike pixels, BearingY measured up from the baseline.
type BitmapGlyph struct {
	Glyph    uint16
	PNG      []byte
	Width    int
	Height   int
	BearingX int
	BearingY int
	Advance  int
	PPEM     uint16
}

// Decode decodes the PNG payload.
func (g *BitmapGlyph) Decode() (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(g.PNG))
	if err != nil {
		return nil, fmt.Errorf("emoji: decode glyph %d: %w", g.Glyph, err)
	}
	return img, nil
}

type glyphMetrics struct {
	height, width      uint8
	bearingX, bearingY int8
	advance            uint8
}

// readBigMetrics reads the horizontal part of BigGlyphMetrics (8 bytes).
func readBigMetrics(p []byte) glyphMetrics {
	return glyphMetrics{height: p[0], width: p[1], bearingX: int8(p[2]), bearingY: int8(p[3]), advance: p[4]}
}

// readSmallMetrics reads SmallGlyphMetrics (5 bytes).
func readSmallMetrics(p []byte) glyphMetrics {
	return glyphMetrics{height: p[0], width: p[1], bearingX: int8(p[2]), bearingY: int8(p[3]), advance: p[4]}
}

// glyphLocation is where a glyph's image lives inside CBDT.
type glyphLocation struct {
	offset, length uint32
	imageFormat    uint16
	metrics        *glyphMetrics // shared metrics from index formats 2 and 5
}

type strike struct {
	ppem      uint16
	first     uint16
	last      uint16
	locations map[uint16]glyphLocation
}

// BitmapTable is a parsed CBLC index over its CBDT data. All index
// subtables are decoded up front so lookups never mutate the table.
type BitmapTable struct {
	cbdt    []byte
	strikes []strike
}

// ParseBitmapTable parses raw CBDT and CBLC table bytes.
func ParseBitmapTable(cbdt, cblc []byte) (*BitmapTable, error) {
	if len(cbdt) == 0 || len(cblc) == 0 {
		return nil, ErrNoBitmapTable
	}
	if len(cblc) < 8 {
		return nil, ErrInvalidCBLC
	}
	if major := binary.BigEndian.Uint16(cblc[0:2]); major != 2 && major != 3 {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidCBLC, major)
	}
	numSizes := int(binary.BigEndian.Uint32(cblc[4:8]))
	if 8+numSizes*bitmapSizeRecordLen > len(cblc) {
		return nil, ErrInvalidCBLC
	}

	t := &BitmapTable{cbdt: cbdt, strikes: make([]strike, numSizes)}
	for i := range t.strikes {
		rec := cblc[8+i*bitmapSizeRecordLen:]
		s := &t.strikes[i]
		s.first = binary.BigEndian.Uint16(rec[40:42])
		s.last = binary.BigEndian.Uint16(rec[42:44])
		s.ppem = uint16(rec[44])
		s.locations = make(map[uint16]glyphLocation)

		listOff := int(binary.BigEndian.Uint32(rec[0:4]))
		numSub := int(binary.BigEndian.Uint32(rec[8:12]))
		if listOff+numSub*8 > len(cblc) {
			return nil, ErrInvalidCBLC
		}
		for j := 0; j < numSub; j++ {
			arr := cblc[listOff+j*8:]
			first := binary.BigEndian.Uint16(arr[0:2])
			last := binary.BigEndian.Uint16(arr[2:4])
			off := listOff + int(binary.BigEndian.Uint32(arr[4:8]))
			if last < first {
				return nil, ErrInvalidCBLC
			}
			if err := parseIndexSubtable(cblc, off, first, last, s.locations); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func parseIndexSubtable(data []byte, off int, first, last uint16, into map[uint16]glyphLocation) error {
	if off+8 > len(data) {
		return ErrInvalidCBLC
	}
	indexFormat := binary.BigEndian.Uint16(data[off : off+2])
	imageFormat := binary.BigEndian.Uint16(data[off+2 : off+4])
	base := binary.BigEndian.Uint32(data[off+4 : off+8])
	body := off + 8
	count := int(last) - int(first) + 1

	switch indexFormat {
	case 1, 3:
		width := 4
		if indexFormat == 3 {
			width = 2
		}
		if body+(count+1)*width > len(data) {
			return ErrInvalidCBLC
		}
		at := func(i int) uint32 {
			if width == 4 {
				return binary.BigEndian.Uint32(data[body+i*4:])
			}
			return uint32(binary.BigEndian.Uint16(data[body+i*2:]))
		}
		for i := 0; i < count; i++ {
			start, end := at(i), at(i+1)
			if end <= start {
				continue
			}
			into[first+uint16(i)] = glyphLocation{offset: base + start, length: end - start, imageFormat: imageFormat}
		}
	case 2:
		if body+12 > len(data) {
			return ErrInvalidCBLC
		}
		size := binary.BigEndian.Uint32(data[body : body+4])
		m := readBigMetrics(data[body+4 : body+12])
		for i := 0; i < count; i++ {
			into[first+uint16(i)] = glyphLocation{offset: base + uint32(i)*size, length: size, imageFormat: imageFormat, metrics: &m}
		}
	case 4:
		if body+4 > len(data) {
			return ErrInvalidCBLC
		}
		n := int(binary.BigEndian.Uint32(data[body : body+4]))
		pairs := body + 4
		if pairs+(n+1)*4 > len(data) {
			return ErrInvalidCBLC
		}
		for i := 0; i < n; i++ {
			p := data[pairs+i*4:]
			gid := binary.BigEndian.Uint16(p[0:2])
			start := uint32(binary.BigEndian.Uint16(p[2:4]))
			end := uint32(binary.BigEndian.Uint16(p[6:8]))
			if end > start {
				into[gid] = glyphLocation{offset: base + start, length: end - start, imageFormat: imageFormat}
			}
		}
	case 5:
		if body+16 > len(data) {
			return ErrInvalidCBLC
		}
		size := binary.BigEndian.Uint32(data[body : body+4])
		m := readBigMetrics(data[body+4 : body+12])
		n := int(binary.BigEndian.Uint32(data[body+12 : body+16]))
		ids := body + 16
		if ids+n*2 > len(data) {
			return ErrInvalidCBLC
		}
		for i := 0; i < n; i++ {
			gid := binary.BigEndian.Uint16(data[ids+i*2:])
			into[gid] = glyphLocation{offset: base + uint32(i)*size, length: size, imageFormat: imageFormat, metrics: &m}
		}
	default:
		return fmt.Errorf("%w: index format %d", ErrUnsupportedFormat, indexFormat)
	}
	return nil
}

// PPEMs lists the strike sizes in table order.
func (t *BitmapTable) PPEMs() []uint16 {
	out := make([]uint16, len(t.strikes))
	for i, s := range t.strikes {
		out[i] = s.ppem
	}
	return out
}

// Has reports whether any strike stores a bitmap for glyph.
func (t *BitmapTable) Has(glyph uint16) bool {
	for i := range t.strikes {
		if _, ok := t.strikes[i].locations[glyph]; ok {
			return true
		}
	}
	return false
}

// BestStrike picks the smallest strike at least ppem in size, or the
// largest strike when every strike is smaller. Only strikes holding glyph
// are considered. It returns -1 when none do.
func (t *BitmapTable) BestStrike(glyph, ppem uint16) int {
	best, largest := -1, -1
	for i := range t.strikes {
		s := &t.strikes[i]
		if _, ok := s.locations[glyph]; !ok {
			continue
		}
		if largest < 0 || s.ppem > t.strikes[largest].ppem {
			largest = i
		}
		if s.ppem >= ppem && (best < 0 || s.ppem < t.strikes[best].ppem) {
			best = i
		}
	}
	if best >= 0 {
		return best
	}
	return largest
}

// Glyph extracts glyph from the strike that best fits ppem.
func (t *BitmapTable) Glyph(glyph, ppem uint16) (*BitmapGlyph, error) {
	i := t.BestStrike(glyph, ppem)
	if i < 0 {
		return nil, ErrGlyphNotInBitmap
	}
	s := &t.strikes[i]
	loc := s.locations[glyph]
	end := uint64(loc.offset) + uint64(loc.length)
	if end > uint64(len(t.cbdt)) {
		return nil, ErrInvalidCBDT
	}
	img := t.cbdt[loc.offset:end]

	var m glyphMetrics
	var payload []byte
	switch loc.imageFormat {
	case 17:
		if len(img) < 9 {
			return nil, ErrInvalidCBDT
		}
		m = readSmallMetrics(img[0:5])
		payload = sized(img[5:])
	case 18:
		if len(img) < 12 {
			return nil, ErrInvalidCBDT
		}
		m = readBigMetrics(img[0:8])
		payload = sized(img[8:])
	case 19:
		if loc.metrics == nil {
			return nil, ErrInvalidCBDT
		}
		m = *loc.metrics
		payload = sized(img)
	default:
		return nil, fmt.Errorf("%w: image format %d", ErrUnsupportedFormat, loc.imageFormat)
	}
	if payload == nil {
		return nil, ErrInvalidCBDT
	}

	return &BitmapGlyph{
		Glyph:    glyph,
		PNG:      payload,
		Width:    int(m.width),
		Height:   int(m.height),
		BearingX: int(m.bearingX),
		BearingY: int(m.bearingY),
		Advance:  int(m.advance),
		PPEM:     s.ppem,
	}, nil
}

// sized reads a uint32 length prefix and returns that many bytes, or nil.
func sized(p []byte) []byte {
	if len(p) < 4 {
		return nil
	}
	n := binary.BigEndian.Uint32(p[0:4])
	if uint64(n)+4 > uint64(len(p)) {
		return nil
	}
	return p[4 : 4+n]
}
