package gpu

// WriteIndices encodes each particle index as its texel coordinate in a
// texSize-wide texture, x in the low 16 bits and y in the high 16 bits.
// An empty input leaves the buffer untouched and unlocked.
func WriteIndices(buf IndexBuffer, input []uint32, texSize uint32) {
	if len(input) == 0 {
		return
	}

	indices := buf.Lock()
	defer buf.Unlock()

	for i, entry := range input {
		x := entry % texSize
		y := entry / texSize
		indices[i] = (x & 0xFFFF) | (y << 16)
	}
}

// DecodeIndex splits a packed index back into texel coordinates.
func DecodeIndex(packed uint32) (x, y uint32) {
	return packed & 0xFFFF, packed >> 16
}
