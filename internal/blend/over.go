package blend

// SourceOver composites a premultiplied source over a premultiplied
// destination. Formula: S + D * (1 - Sa)
func SourceOver(sr, sg, sb, sa, dr, dg, db, da uint8) (r, g, b, a uint8) {
	if sa == 255 {
		return sr, sg, sb, sa
	}
	if sa == 0 {
		return dr, dg, db, da
	}
	inv := 255 - sa
	return addClamp(sr, MulDiv255(dr, inv)),
		addClamp(sg, MulDiv255(dg, inv)),
		addClamp(sb, MulDiv255(db, inv)),
		addClamp(sa, MulDiv255(da, inv))
}

// SourceOverStraight composites a premultiplied source over a destination
// stored with straight alpha and returns straight alpha.
func SourceOverStraight(sr, sg, sb, sa, dr, dg, db, da uint8) (r, g, b, a uint8) {
	if sa == 0 {
		return dr, dg, db, da
	}
	pr, pg, pb, pa := Premultiply(dr, dg, db, da)
	return Unpremultiply(SourceOver(sr, sg, sb, sa, pr, pg, pb, pa))
}

// Coverage scales a premultiplied color by an 8-bit coverage value.
func Coverage(r, g, b, a, cov uint8) (uint8, uint8, uint8, uint8) {
	if cov == 255 {
		return r, g, b, a
	}
	return MulDiv255(r, cov), MulDiv255(g, cov), MulDiv255(b, cov), MulDiv255(a, cov)
}

func addClamp(a, b uint8) uint8 {
	sum := uint16(a) + uint16(b)
	if sum > 255 {
		return 255
	}
	return uint8(sum)
}
