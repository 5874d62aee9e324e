package segment

import (
	"slices"
	"testing"

	"github.com/go-text/typesetting/language"
)

func TestSegmentEmpty(t *testing.T) {
	txt := New().SegmentString("")
	if len(txt.Runs) != 0 || len(txt.Clusters) != 0 {
		t.Errorf("empty input gave %d runs, %d clusters", len(txt.Runs), len(txt.Clusters))
	}
	if txt := New().Segment(nil); len(txt.Runs) != 0 {
		t.Errorf("nil rune input gave %d runs", len(txt.Runs))
	}
}

func TestClusterCounts(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"ascii", "Hello", 5},
		{"combining acute", "e\u0301", 1},
		{"two marks", "a\u0301\u0323b", 2},
		{"family zwj", "\U0001F468\u200D\U0001F469\u200D\U0001F467", 1},
		{"flag", "\U0001F1FA\U0001F1F8", 1},
		{"two flags", "\U0001F1FA\U0001F1F8\U0001F1EB\U0001F1F7", 2},
		{"skin tone", "\U0001F44D\U0001F3FD", 1},
		{"crlf", "a\r\nb", 3},
		{"hangul jamo", "\u1100\u1161\u11A8", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(Clusters(tt.text)); got != tt.want {
				t.Errorf("len(Clusters(%q)) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestASCIIOneRun(t *testing.T) {
	txt := New().SegmentString("Hello, World")
	if len(txt.Runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(txt.Runs))
	}
	r := txt.Runs[0]
	if r.Direction != DirectionLTR || r.Script != language.Latin || r.Emoji {
		t.Errorf("run = %+v", r)
	}
	if r.Start != 0 || r.End != 12 || r.ByteEnd != 12 || len(r.Clusters) != 12 {
		t.Errorf("run bounds = [%d,%d) bytes [%d,%d) clusters %d", r.Start, r.End, r.ByteStart, r.ByteEnd, len(r.Clusters))
	}
}

func TestLatinArabicRuns(t *testing.T) {
	txt := New().SegmentString("abc \u0645\u0631\u062D\u0628\u0627")
	if len(txt.Runs) != 2 {
		t.Fatalf("got %d runs, want 2: %+v", len(txt.Runs), txt.Runs)
	}
	if txt.Base != DirectionLTR {
		t.Errorf("Base = %v, want LTR", txt.Base)
	}
	latin, arabic := txt.Runs[0], txt.Runs[1]
	if latin.Script != language.Latin || latin.Direction != DirectionLTR {
		t.Errorf("first run = %v %v", latin.Script, latin.Direction)
	}
	if arabic.Script != language.Arabic || arabic.Direction != DirectionRTL {
		t.Errorf("second run = %v %v", arabic.Script, arabic.Direction)
	}
	if latin.End != 4 || arabic.Start != 4 {
		t.Errorf("boundary at %d/%d, want 4", latin.End, arabic.Start)
	}
	if arabic.ByteStart != 4 || arabic.ByteEnd != 14 {
		t.Errorf("arabic bytes = [%d,%d), want [4,14)", arabic.ByteStart, arabic.ByteEnd)
	}
}

func TestNumbersInsideRTL(t *testing.T) {
	// "abc " + arabic word + " 123 " + arabic word
	text := "abc \u0645\u0631\u062D\u0628\u0627 123 \u0639\u0627\u0644\u0645"
	txt := New().SegmentString(text)
	if len(txt.Runs) != 4 {
		t.Fatalf("got %d runs, want 4: %+v", len(txt.Runs), txt.Runs)
	}

	wantLevels := []int{0, 1, 2, 1}
	for i, r := range txt.Runs {
		if r.Level != wantLevels[i] {
			t.Errorf("run %d %q level = %d, want %d", i, text[r.ByteStart:r.ByteEnd], r.Level, wantLevels[i])
		}
	}
	if got := text[txt.Runs[2].ByteStart:txt.Runs[2].ByteEnd]; got != "123" {
		t.Errorf("number run = %q, want %q", got, "123")
	}
	if txt.Runs[2].Direction != DirectionLTR {
		t.Errorf("number run direction = %v, want LTR", txt.Runs[2].Direction)
	}

	order := VisualOrder(txt.Runs)
	if !slices.Equal(order, []int{0, 3, 2, 1}) {
		t.Fatalf("VisualOrder = %v, want [0 3 2 1]", order)
	}
	var visual []string
	for _, i := range order {
		visual = append(visual, text[txt.Runs[i].ByteStart:txt.Runs[i].ByteEnd])
	}
	want := []string{"abc ", " \u0639\u0627\u0644\u0645", "123", "\u0645\u0631\u062D\u0628\u0627 "}
	if !slices.Equal(visual, want) {
		t.Errorf("visual runs = %q, want %q", visual, want)
	}
}

func TestNumbersInLTRStayAtBaseLevel(t *testing.T) {
	txt := New().SegmentString("abc 123 def")
	if len(txt.Runs) != 1 {
		t.Fatalf("got %d runs, want 1: %+v", len(txt.Runs), txt.Runs)
	}
	if txt.Runs[0].Level != 0 {
		t.Errorf("level = %d, want 0", txt.Runs[0].Level)
	}
}

func TestLeadingCommonStartsOwnRun(t *testing.T) {
	txt := New().SegmentString("123 abc")
	if len(txt.Runs) != 2 {
		t.Fatalf("got %d runs, want 2: %+v", len(txt.Runs), txt.Runs)
	}
	if txt.Runs[0].Script != language.Common || txt.Runs[0].End != 4 {
		t.Errorf("first run = %v [%d,%d), want Common [0,4)", txt.Runs[0].Script, txt.Runs[0].Start, txt.Runs[0].End)
	}
	if txt.Runs[1].Script != language.Latin {
		t.Errorf("second run script = %v, want Latin", txt.Runs[1].Script)
	}
}

func TestCommonFollowsPreviousScript(t *testing.T) {
	txt := New().SegmentString("abc 123")
	if len(txt.Runs) != 1 || txt.Runs[0].Script != language.Latin {
		t.Errorf("runs = %+v, want one Latin run", txt.Runs)
	}
}

func TestRTLBaseVisualOrder(t *testing.T) {
	txt := New().SegmentString("\u0645\u0631\u062D\u0628\u0627 abc")
	if txt.Base != DirectionRTL {
		t.Fatalf("Base = %v, want RTL", txt.Base)
	}
	if len(txt.Runs) != 2 {
		t.Fatalf("got %d runs", len(txt.Runs))
	}
	order := VisualOrder(txt.Runs)
	if order[0] != 1 || order[1] != 0 {
		t.Errorf("VisualOrder = %v, want [1 0]", order)
	}
}

func TestEmojiRunBoundary(t *testing.T) {
	txt := New().SegmentString("hi \U0001F600 there")
	if len(txt.Runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(txt.Runs))
	}
	if txt.Runs[0].Emoji || !txt.Runs[1].Emoji || txt.Runs[2].Emoji {
		t.Errorf("emoji flags = %v %v %v", txt.Runs[0].Emoji, txt.Runs[1].Emoji, txt.Runs[2].Emoji)
	}
}

func TestInvalidUTF8(t *testing.T) {
	txt := New().SegmentString("a\xffb")
	if len(txt.Clusters) != 3 {
		t.Fatalf("got %d clusters, want 3", len(txt.Clusters))
	}
	if !txt.Clusters[1].Invalid || txt.Clusters[0].Invalid {
		t.Errorf("invalid flags wrong: %+v", txt.Clusters)
	}
	if txt.Runes[1] != '\uFFFD' {
		t.Errorf("invalid byte became %U", txt.Runes[1])
	}
	if txt.ByteOffset(2) != 2 || txt.ByteOffset(3) != 3 {
		t.Errorf("byte offsets = %d %d, want 2 3", txt.ByteOffset(2), txt.ByteOffset(3))
	}
}

func TestInvalidRunesIsolated(t *testing.T) {
	in := []rune{'a', 0xD800, 0x0301, 0x110000}
	txt := New().Segment(in)
	if in[1] != 0xD800 {
		t.Error("input slice was modified")
	}
	var invalid int
	for _, c := range txt.Clusters {
		if c.Invalid {
			invalid++
			if c.Len() != 1 {
				t.Errorf("invalid cluster %+v spans more than one rune", c)
			}
		}
	}
	if invalid != 2 {
		t.Errorf("got %d invalid clusters, want 2", invalid)
	}
}

func TestRunsAlignWithClusters(t *testing.T) {
	inputs := []string{
		"Hello, World",
		"abc \u0645\u0631\u062D\u0628\u0627 def",
		"e\u0301\U0001F468\u200D\U0001F469 \u05E9\u05DC\u05D5\u05DD!",
		"\U0001F1FA\U0001F1F8x\u0301\xff",
	}
	seg := New()
	for _, in := range inputs {
		txt := seg.SegmentString(in)
		next := 0
		for _, r := range txt.Runs {
			if len(r.Clusters) == 0 {
				t.Fatalf("%q: run with no clusters", in)
			}
			if r.Start != r.Clusters[0].Start || r.End != r.Clusters[len(r.Clusters)-1].End {
				t.Errorf("%q: run [%d,%d) not aligned to its clusters", in, r.Start, r.End)
			}
			for _, c := range r.Clusters {
				if c.Index != next {
					t.Errorf("%q: cluster %d out of sequence, want %d", in, c.Index, next)
				}
				next++
			}
		}
		if next != len(txt.Clusters) {
			t.Errorf("%q: runs cover %d of %d clusters", in, next, len(txt.Clusters))
		}
		if len(txt.Runs) > 0 && txt.Runs[len(txt.Runs)-1].End != len(txt.Runes) {
			t.Errorf("%q: runs do not reach end of text", in)
		}
	}
}

func TestVisualOrder(t *testing.T) {
	mk := func(levels ...int) []Run {
		runs := make([]Run, len(levels))
		for i, l := range levels {
			runs[i].Level = l
		}
		return runs
	}
	tests := []struct {
		levels []int
		want   []int
	}{
		{nil, []int{}},
		{[]int{0}, []int{0}},
		{[]int{0, 1, 0}, []int{0, 1, 2}},
		{[]int{0, 1, 2, 1, 0}, []int{0, 3, 2, 1, 4}},
		{[]int{1, 2, 1}, []int{2, 1, 0}},
		{[]int{1, 1}, []int{1, 0}},
	}
	for _, tt := range tests {
		got := VisualOrder(mk(tt.levels...))
		if len(got) != len(tt.want) {
			t.Errorf("VisualOrder(%v) = %v, want %v", tt.levels, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("VisualOrder(%v) = %v, want %v", tt.levels, got, tt.want)
				break
			}
		}
	}
}
