// Package blend provides integer alpha-blending math for 8-bit channels.
//
// The div255 family avoids integer division with shifts. These helpers run
// once per channel per covered pixel, so they stay branch-free.
package blend

// div255 returns round(x/255) for x in [0, 255*255].
//
// Formula: (t + (t >> 8)) >> 8 with t = x + 128 (Alvy Ray Smith).
func div255(x uint32) uint32 {
	t := x + 128
	return (t + (t >> 8)) >> 8
}

// MulDiv255 returns round(a*b/255).
func MulDiv255(a, b uint8) uint8 {
	return uint8(div255(uint32(a) * uint32(b)))
}

// Premultiply converts a straight-alpha color to premultiplied form.
func Premultiply(r, g, b, a uint8) (uint8, uint8, uint8, uint8) {
	if a == 255 {
		return r, g, b, a
	}
	return MulDiv255(r, a), MulDiv255(g, a), MulDiv255(b, a), a
}

// Unpremultiply converts a premultiplied color back to straight alpha.
func Unpremultiply(r, g, b, a uint8) (uint8, uint8, uint8, uint8) {
	switch a {
	case 0:
		return 0, 0, 0, 0
	case 255:
		return r, g, b, a
	}
	half := uint32(a) / 2
	return clamp255((uint32(r)*255 + half) / uint32(a)),
		clamp255((uint32(g)*255 + half) / uint32(a)),
		clamp255((uint32(b)*255 + half) / uint32(a)),
		a
}

func clamp255(x uint32) uint8 {
	if x > 255 {
		return 255
	}
	return uint8(x)
}
