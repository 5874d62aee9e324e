package emoji

import "unicode"

// Special codepoints.
const (
	ZWJ             = '\u200D'
	TextSelector    = '\uFE0E'
	EmojiSelector   = '\uFE0F'
	KeycapEnclosing = '\u20E3'
	CancelTag       = '\U000E007F'
)

// IsEmoji reports whether r can be displayed as emoji, either by default or
// when followed by U+FE0F.
func IsEmoji(r rune) bool {
	return IsEmojiPresentation(r) || isTextDefaultEmoji(r)
}

// IsEmojiPresentation reports whether r displays as emoji without a
// variation selector. Outside the pictograph blocks it follows the
// Emoji_Presentation property of Unicode 15.1; within them every code
// point counts.
func IsEmojiPresentation(r rune) bool {
	switch {
	case r >= 0x1F600 && r <= 0x1F64F: // emoticons
		return true
	case r >= 0x1F300 && r <= 0x1F5FF: // misc symbols and pictographs
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // transport and map
		return true
	case r >= 0x1F900 && r <= 0x1FAFF: // supplemental and extended-A/B
		return true
	case IsRegionalIndicator(r), IsEmojiModifier(r):
		return true
	}
	return unicode.Is(emojiPresentation, r)
}

// emojiPresentation lists Emoji_Presentation code points outside the
// pictograph blocks.
var emojiPresentation = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x231A, Hi: 0x231B, Stride: 1},
		{Lo: 0x23E9, Hi: 0x23EC, Stride: 1},
		{Lo: 0x23F0, Hi: 0x23F3, Stride: 3},
		{Lo: 0x25FD, Hi: 0x25FE, Stride: 1},
		{Lo: 0x2614, Hi: 0x2615, Stride: 1},
		{Lo: 0x2648, Hi: 0x2653, Stride: 1},
		{Lo: 0x267F, Hi: 0x2693, Stride: 20},
		{Lo: 0x26A1, Hi: 0x26A1, Stride: 1},
		{Lo: 0x26AA, Hi: 0x26AB, Stride: 1},
		{Lo: 0x26BD, Hi: 0x26BE, Stride: 1},
		{Lo: 0x26C4, Hi: 0x26C5, Stride: 1},
		{Lo: 0x26CE, Hi: 0x26D4, Stride: 6},
		{Lo: 0x26EA, Hi: 0x26EA, Stride: 1},
		{Lo: 0x26F2, Hi: 0x26F3, Stride: 1},
		{Lo: 0x26F5, Hi: 0x26FA, Stride: 5},
		{Lo: 0x26FD, Hi: 0x26FD, Stride: 1},
		{Lo: 0x2705, Hi: 0x2705, Stride: 1},
		{Lo: 0x270A, Hi: 0x270B, Stride: 1},
		{Lo: 0x2728, Hi: 0x2728, Stride: 1},
		{Lo: 0x274C, Hi: 0x274E, Stride: 2},
		{Lo: 0x2753, Hi: 0x2755, Stride: 1},
		{Lo: 0x2757, Hi: 0x2757, Stride: 1},
		{Lo: 0x2795, Hi: 0x2797, Stride: 1},
		{Lo: 0x27B0, Hi: 0x27BF, Stride: 15},
		{Lo: 0x2B1B, Hi: 0x2B1C, Stride: 1},
		{Lo: 0x2B50, Hi: 0x2B55, Stride: 5},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F004, Hi: 0x1F004, Stride: 1},
		{Lo: 0x1F0CF, Hi: 0x1F0CF, Stride: 1},
		{Lo: 0x1F18E, Hi: 0x1F18E, Stride: 1},
		{Lo: 0x1F191, Hi: 0x1F19A, Stride: 1},
		{Lo: 0x1F201, Hi: 0x1F201, Stride: 1},
		{Lo: 0x1F21A, Hi: 0x1F21A, Stride: 1},
		{Lo: 0x1F22F, Hi: 0x1F22F, Stride: 1},
		{Lo: 0x1F232, Hi: 0x1F236, Stride: 1},
		{Lo: 0x1F238, Hi: 0x1F23A, Stride: 1},
		{Lo: 0x1F250, Hi: 0x1F251, Stride: 1},
		{Lo: 0x1F7E0, Hi: 0x1F7EB, Stride: 1},
		{Lo: 0x1F7F0, Hi: 0x1F7F0, Stride: 1},
	},
}

// IsEmojiModifier reports whether r is a Fitzpatrick skin tone modifier.
func IsEmojiModifier(r rune) bool {
	return r >= 0x1F3FB && r <= 0x1F3FF
}

// IsRegionalIndicator reports whether r is a regional indicator letter.
// A pair of them forms a flag.
func IsRegionalIndicator(r rune) bool {
	return r >= 0x1F1E6 && r <= 0x1F1FF
}

// IsTag reports whether r is a tag character used by subdivision flags.
func IsTag(r rune) bool {
	return r >= 0xE0020 && r <= 0xE007F
}

// IsKeycapBase reports whether r can start a keycap sequence.
func IsKeycapBase(r rune) bool {
	return (r >= '0' && r <= '9') || r == '#' || r == '*'
}

// IsComponent reports whether r only modifies or joins emoji.
func IsComponent(r rune) bool {
	return r == ZWJ || r == TextSelector || r == EmojiSelector ||
		r == KeycapEnclosing || IsEmojiModifier(r) || IsTag(r)
}

// IsEmojiCluster reports whether a grapheme cluster should be presented as
// emoji. A trailing U+FE0E forces text presentation and U+FE0F forces emoji.
func IsEmojiCluster(cluster []rune) bool {
	if len(cluster) == 0 {
		return false
	}
	for _, r := range cluster {
		if r == TextSelector {
			return false
		}
	}
	first := cluster[0]
	for _, r := range cluster[1:] {
		switch {
		case r == EmojiSelector && (IsEmoji(first) || IsKeycapBase(first)):
			return true
		case r == KeycapEnclosing && IsKeycapBase(first):
			return true
		case r == ZWJ && IsEmoji(first):
			return true
		}
	}
	return IsEmojiPresentation(first)
}

func isTextDefaultEmoji(r rune) bool {
	switch {
	case r == 0x00A9 || r == 0x00AE || r == 0x203C || r == 0x2049:
		return true
	case r == 0x2122 || r == 0x2139:
		return true
	case r >= 0x2194 && r <= 0x2199, r == 0x21A9 || r == 0x21AA:
		return true
	case r == 0x231A || r == 0x231B || r == 0x2328 || r == 0x23CF:
		return true
	case r >= 0x23E9 && r <= 0x23F3, r >= 0x23F8 && r <= 0x23FA:
		return true
	case r == 0x24C2 || r == 0x25AA || r == 0x25AB || r == 0x25B6 || r == 0x25C0:
		return true
	case r >= 0x25FB && r <= 0x25FE:
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols and dingbats
		return true
	case r == 0x2934 || r == 0x2935:
		return true
	case r >= 0x2B05 && r <= 0x2B07, r == 0x2B1B || r == 0x2B1C:
		return true
	case r == 0x2B50 || r == 0x2B55:
		return true
	case r == 0x3030 || r == 0x303D || r == 0x3297 || r == 0x3299:
		return true
	case r == 0x1F170 || r == 0x1F171 || r == 0x1F17E || r == 0x1F17F:
		return true
	case r == 0x1F202 || r == 0x1F237:
		return true
	}
	return false
}
