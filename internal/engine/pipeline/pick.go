package pipeline

// EncodePick packs a surface and vertex id into an RGBA8 texel. RGB holds
// vertex+1 (little endian) and A holds surface+1, so the cleared target
// (all zero) decodes as a miss.
func EncodePick(surfaceID, vertex uint32) [4]uint8 {
	v := vertex + 1
	return [4]uint8{
		uint8(v),
		uint8(v >> 8),
		uint8(v >> 16),
		uint8(surfaceID + 1),
	}
}

// DecodePick reverses EncodePick. ok is false for a miss.
func DecodePick(px [4]uint8) (surfaceID, vertex uint32, ok bool) {
	v := uint32(px[0]) | uint32(px[1])<<8 | uint32(px[2])<<16
	if v == 0 || px[3] == 0 {
		return 0, 0, false
	}
	return uint32(px[3]) - 1, v - 1, true
}
