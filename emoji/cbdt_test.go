package emoji

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// buildBitmapTables creates one strike per ppem, each holding glyph 5 as a
// format 17 image inside an index format 1 subtable.
func buildBitmapTables(t *testing.T, ppems ...uint8) (cbdt, cblc []byte) {
	t.Helper()
	cbdt = make([]byte, 4) // version header
	binary.BigEndian.PutUint16(cbdt[0:], 3)

	headerLen := 8 + len(ppems)*bitmapSizeRecordLen
	cblc = make([]byte, headerLen)
	binary.BigEndian.PutUint16(cblc[0:], 3)
	binary.BigEndian.PutUint32(cblc[4:], uint32(len(ppems)))

	for i, ppem := range ppems {
		imgOff := len(cbdt)
		data := encodePNG(t, int(ppem), int(ppem))
		img := []byte{ppem, ppem, 0, ppem, ppem}
		img = binary.BigEndian.AppendUint32(img, uint32(len(data)))
		img = append(img, data...)
		cbdt = append(cbdt, img...)

		listOff := len(cblc)
		// IndexSubtableArray: one record, subtable right after it.
		arr := make([]byte, 8)
		binary.BigEndian.PutUint16(arr[0:], 5)
		binary.BigEndian.PutUint16(arr[2:], 5)
		binary.BigEndian.PutUint32(arr[4:], 8)
		sub := make([]byte, 8+8)
		binary.BigEndian.PutUint16(sub[0:], 1)
		binary.BigEndian.PutUint16(sub[2:], 17)
		binary.BigEndian.PutUint32(sub[4:], uint32(imgOff))
		binary.BigEndian.PutUint32(sub[8:], 0)
		binary.BigEndian.PutUint32(sub[12:], uint32(len(img)))
		cblc = append(cblc, arr...)
		cblc = append(cblc, sub...)

		rec := cblc[8+i*bitmapSizeRecordLen:]
		binary.BigEndian.PutUint32(rec[0:], uint32(listOff))
		binary.BigEndian.PutUint32(rec[4:], uint32(len(arr)+len(sub)))
		binary.BigEndian.PutUint32(rec[8:], 1)
		binary.BigEndian.PutUint16(rec[40:], 5)
		binary.BigEndian.PutUint16(rec[42:], 5)
		rec[44], rec[45], rec[46] = ppem, ppem, 32
	}
	return cbdt, cblc
}

func TestParseBitmapTable(t *testing.T) {
	cbdt, cblc := buildBitmapTables(t, 20, 64, 109)
	bt, err := ParseBitmapTable(cbdt, cblc)
	if err != nil {
		t.Fatalf("ParseBitmapTable: %v", err)
	}
	if got := bt.PPEMs(); len(got) != 3 || got[2] != 109 {
		t.Errorf("PPEMs = %v", got)
	}
	if !bt.Has(5) || bt.Has(6) {
		t.Error("Has reports wrong glyphs")
	}
}

func TestBestStrike(t *testing.T) {
	cbdt, cblc := buildBitmapTables(t, 20, 64, 109)
	bt, err := ParseBitmapTable(cbdt, cblc)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		ppem uint16
		want uint16
	}{
		{10, 20},
		{20, 20},
		{21, 64},
		{100, 109},
		{300, 109},
	}
	for _, tt := range tests {
		i := bt.BestStrike(5, tt.ppem)
		if i < 0 || bt.PPEMs()[i] != tt.want {
			t.Errorf("BestStrike(5, %d) picked %d, want ppem %d", tt.ppem, i, tt.want)
		}
	}
	if bt.BestStrike(6, 20) != -1 {
		t.Error("BestStrike for absent glyph should be -1")
	}
}

func TestBitmapGlyphDecode(t *testing.T) {
	cbdt, cblc := buildBitmapTables(t, 32)
	bt, err := ParseBitmapTable(cbdt, cblc)
	if err != nil {
		t.Fatal(err)
	}
	g, err := bt.Glyph(5, 32)
	if err != nil {
		t.Fatalf("Glyph: %v", err)
	}
	if g.Width != 32 || g.Height != 32 || g.BearingY != 32 || g.PPEM != 32 {
		t.Errorf("metrics = %+v", g)
	}
	img, err := g.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 32 {
		t.Errorf("decoded width = %d", img.Bounds().Dx())
	}
	if _, err := bt.Glyph(9, 32); !errors.Is(err, ErrGlyphNotInBitmap) {
		t.Errorf("missing glyph error = %v", err)
	}
}

func TestParseBitmapTableErrors(t *testing.T) {
	if _, err := ParseBitmapTable(nil, nil); !errors.Is(err, ErrNoBitmapTable) {
		t.Errorf("empty tables: %v", err)
	}
	cbdt, cblc := buildBitmapTables(t, 20)
	if _, err := ParseBitmapTable(cbdt, cblc[:20]); !errors.Is(err, ErrInvalidCBLC) {
		t.Errorf("truncated CBLC: %v", err)
	}
}
