package jpegls

import "fmt"

// The HP colour transforms decorrelate R, G and B before coding. They are
// exactly reversible modulo 2^bitsPerSample. A fourth component, if any,
// passes through unchanged.

// validateTransform checks that a transform can be applied to a frame.
func validateTransform(c ColorTransformation, bitsPerSample, components int, ilv InterleaveMode) error {
	if c == TransformNone {
		return nil
	}
	if c < TransformNone || c > TransformHP3 {
		return fmt.Errorf("%w: %d", ErrColorTransformNotSupported, c)
	}
	if components != 3 && components != 4 {
		return fmt.Errorf("%w: %s needs 3 or 4 components, have %d", ErrColorTransformNotSupported, c, components)
	}
	if ilv == InterleaveNone {
		return fmt.Errorf("%w: %s needs line or sample interleave", ErrColorTransformNotSupported, c)
	}
	if bitsPerSample != 8 && bitsPerSample != 16 {
		return fmt.Errorf("%w: %s with %d bits per sample", ErrBitDepthForTransformNotSupported, c, bitsPerSample)
	}
	return nil
}

// forward replaces px[0:3] (R, G, B) with the transformed components.
func (c ColorTransformation) forward(px []int, bitsPerSample int) {
	rng := 1 << bitsPerSample
	mask := rng - 1
	r, g, b := px[0], px[1], px[2]
	switch c {
	case TransformHP1:
		px[0] = (r - g + rng/2) & mask
		px[1] = g
		px[2] = (b - g + rng/2) & mask
	case TransformHP2:
		px[0] = (r - g + rng/2) & mask
		px[1] = g
		px[2] = (b - (r+g)>>1 - rng/2) & mask
	case TransformHP3:
		v2 := (b - g + rng/2) & mask
		v3 := (r - g + rng/2) & mask
		px[0] = (g + (v2+v3)>>2 - rng/4) & mask
		px[1] = v2
		px[2] = v3
	}
}

// inverse restores R, G, B in px[0:3].
func (c ColorTransformation) inverse(px []int, bitsPerSample int) {
	rng := 1 << bitsPerSample
	mask := rng - 1
	v1, v2, v3 := px[0], px[1], px[2]
	switch c {
	case TransformHP1:
		px[0] = (v1 + v2 - rng/2) & mask
		px[1] = v2
		px[2] = (v3 + v2 - rng/2) & mask
	case TransformHP2:
		r := (v1 + v2 - rng/2) & mask
		px[0] = r
		px[1] = v2
		px[2] = (v3 + (r+v2)>>1 - rng/2) & mask
	case TransformHP3:
		g := v1 - (v3+v2)>>2 + rng/4
		px[0] = (v3 + g - rng/2) & mask
		px[1] = g & mask
		px[2] = (v2 + g - rng/2) & mask
	}
}
