package alloc

// FillChunk is the span stamped between stop checks
const FillChunk = 64 << 20

// Fill stamps every byte of buf with b, checking stop between chunks.
// It returns false if stop reported true before the buffer was complete.
func Fill(buf []byte, b byte, stop func() bool) bool {
	if len(buf) == 0 {
		return true
	}

	seed := len(buf)
	if seed > FillChunk {
		seed = FillChunk
	}
	// Stamp the first chunk by doubling, then copy it forward.
	buf[0] = b
	for n := 1; n < seed; n *= 2 {
		copy(buf[n:seed], buf[:n])
	}

	for off := seed; off < len(buf); off += seed {
		if stop != nil && stop() {
			return false
		}
		copy(buf[off:], buf[:seed])
	}
	return true
}

// Verify reports the first index in buf not equal to b, or -1
func Verify(buf []byte, b byte) int {
	for i, v := range buf {
		if v != b {
			return i
		}
	}
	return -1
}
