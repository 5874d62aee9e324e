package segment

import (
	"golang.org/x/text/unicode/bidi"
)

// firstStrong returns the direction of the first strong character, LTR if
// there is none (UAX #9 rules P2 and P3).
func firstStrong(runes []rune) Direction {
	for _, r := range runes {
		p, _ := bidi.LookupRune(r)
		switch p.Class() {
		case bidi.L:
			return DirectionLTR
		case bidi.R, bidi.AL:
			return DirectionRTL
		}
	}
	return DirectionLTR
}

// bidiLevels assigns an embedding level to every rune. x/text resolves the
// direction of each rune but not its level, so levels are rebuilt from the
// resolved directions with the implicit rules I1 and I2: in a left-to-right
// paragraph right-to-left text is at level 1 and numbers that belong to it
// are at level 2; in a right-to-left paragraph everything left-to-right is
// at level 2.
func bidiLevels(runes []rune, base Direction) []int {
	baseLevel := 0
	if base == DirectionRTL {
		baseLevel = 1
	}
	levels := make([]int, len(runes))
	for i := range levels {
		levels[i] = baseLevel
	}

	def := bidi.LeftToRight
	if base == DirectionRTL {
		def = bidi.RightToLeft
	}
	var p bidi.Paragraph
	if _, err := p.SetString(string(runes), bidi.DefaultDirection(def)); err != nil {
		return levels
	}
	ordering, err := p.Order()
	if err != nil {
		return levels
	}

	rtl := make([]bool, len(runes))
	// Run positions are rune indices, end inclusive.
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		if run.Direction() != bidi.RightToLeft {
			continue
		}
		start, end := run.Pos()
		for j := max(start, 0); j <= end && j < len(rtl); j++ {
			rtl[j] = true
		}
	}

	for i := range levels {
		switch {
		case rtl[i]:
			levels[i] = 1
		case baseLevel == 1:
			levels[i] = 2
		default:
			levels[i] = 0
		}
	}
	if baseLevel == 0 {
		raiseNumbers(runes, levels)
	}
	return levels
}

// raiseNumbers lifts numbers governed by right-to-left text in a
// left-to-right paragraph to level 2. European digits qualify when the last
// strong character before them is right-to-left (rules W2 and W7), Arabic
// digits always. Separators inside such a number and terminators touching
// it follow the digits (W4, W5).
func raiseNumbers(runes []rune, levels []int) {
	classes := make([]bidi.Class, len(runes))
	for i, r := range runes {
		p, _ := bidi.LookupRune(r)
		classes[i] = p.Class()
	}

	strongRTL := false
	for i, c := range classes {
		switch c {
		case bidi.L:
			strongRTL = false
		case bidi.R, bidi.AL:
			strongRTL = true
		case bidi.AN:
			if levels[i] == 0 {
				levels[i] = 2
			}
		case bidi.EN:
			if levels[i] == 0 && strongRTL {
				levels[i] = 2
			}
		}
	}

	raised := func(i int) bool {
		return i >= 0 && i < len(levels) && levels[i] == 2 && (classes[i] == bidi.EN || classes[i] == bidi.AN)
	}
	for i, c := range classes {
		if levels[i] != 0 {
			continue
		}
		switch c {
		case bidi.CS, bidi.ES:
			if raised(i-1) && raised(i+1) {
				levels[i] = 2
			}
		}
	}
	// Terminators spread outwards from a raised digit in both directions.
	for i := range classes {
		if !raised(i) {
			continue
		}
		for j := i - 1; j >= 0 && classes[j] == bidi.ET && levels[j] == 0; j-- {
			levels[j] = 2
		}
		for j := i + 1; j < len(classes) && classes[j] == bidi.ET && levels[j] == 0; j++ {
			levels[j] = 2
		}
	}
}

// VisualOrder returns the indices of runs in left-to-right display order
// by reversing, from the highest level down to the lowest odd level, every
// maximal sequence of runs at or above that level (UAX #9 rule L2).
func VisualOrder(runs []Run) []int {
	order := make([]int, len(runs))
	for i := range order {
		order[i] = i
	}
	if len(runs) == 0 {
		return order
	}

	maxLevel, minOdd := 0, -1
	for _, r := range runs {
		maxLevel = max(maxLevel, r.Level)
		if r.Level%2 == 1 && (minOdd < 0 || r.Level < minOdd) {
			minOdd = r.Level
		}
	}
	if minOdd < 0 {
		return order
	}

	for level := maxLevel; level >= minOdd; level-- {
		for i := 0; i < len(order); {
			if runs[order[i]].Level < level {
				i++
				continue
			}
			j := i
			for j < len(order) && runs[order[j]].Level >= level {
				j++
			}
			for a, b := i, j-1; a < b; a, b = a+1, b-1 {
				order[a], order[b] = order[b], order[a]
			}
			i = j
		}
	}
	return order
}
