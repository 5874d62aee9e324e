package raster

// Divisions is the number of horizontal subpixel positions per pixel.
const Divisions = 4

// Phase is a quantized horizontal subpixel position, 0 to Divisions-1.
type Phase uint8

// Quantize splits a pen position into a whole pixel and a phase. With
// subpixel positioning off it rounds to the nearest pixel and returns
// phase 0.
//
//	Quantize(10.0, true)  == (10, 0)
//	Quantize(10.3, true)  == (10, 1)
//	Quantize(10.99, true) == (10, 3)
//	Quantize(-0.25, true) == (-1, 3)
func Quantize(pos float64, subpixel bool) (int, Phase) {
	if !subpixel {
		if pos < 0 {
			return -int(-pos + 0.5), 0
		}
		return int(pos + 0.5), 0
	}

	whole := int(pos)
	if pos < 0 && pos != float64(whole) {
		whole--
	}
	sub := int((pos - float64(whole)) * Divisions)
	if sub >= Divisions {
		sub = Divisions - 1
	}
	if sub < 0 {
		sub = 0
	}
	return whole, Phase(sub) //nolint:gosec // sub is in [0, Divisions)
}

// Offset returns the fractional pixel offset the phase stands for.
func (p Phase) Offset() float64 {
	return float64(p) / Divisions
}
