package jpegls

import (
	"fmt"
	"math/bits"
)

const (
	// DefaultResetValue is the RESET threshold used when no preset overrides it.
	DefaultResetValue = 64

	MinBitsPerSample = 2
	MaxBitsPerSample = 16

	maxNearLossless = 255
)

// Traits holds the coding constants derived from MAXVAL, NEAR and RESET.
// A Traits value is immutable for the lifetime of a scan.
type Traits struct {
	MaxVal int // MAXVAL
	Near   int // NEAR, 0 for lossless
	Range  int // RANGE
	Qbpp   int // bits needed to represent a mapped error value
	Bpp    int // bits per sample
	Limit  int // LIMIT, the longest allowed Golomb codeword
	Reset  int // RESET
}

// DefaultTraits returns the traits of a scan with MAXVAL = 2^bitsPerSample-1.
func DefaultTraits(bitsPerSample, near int) (Traits, error) {
	if bitsPerSample < MinBitsPerSample || bitsPerSample > MaxBitsPerSample {
		return Traits{}, fmt.Errorf("%w: bits per sample %d", ErrInvalidArgument, bitsPerSample)
	}
	return NewTraits(1<<bitsPerSample-1, near, DefaultResetValue)
}

// NewTraits derives the coding constants. A reset of 0 selects DefaultResetValue.
func NewTraits(maxVal, near, reset int) (Traits, error) {
	bpp := max(2, bits.Len(uint(maxVal)))
	if maxVal < 1 || bpp > MaxBitsPerSample {
		return Traits{}, fmt.Errorf("%w: maximum sample value %d", ErrInvalidArgument, maxVal)
	}
	// MaxNearLossless stops at 255, the SOS NEAR field is a single byte
	if near < 0 || near > MaxNearLossless(maxVal) {
		return Traits{}, fmt.Errorf("%w: near lossless %d (maximum sample value %d)", ErrInvalidArgument, near, maxVal)
	}
	if reset == 0 {
		reset = DefaultResetValue
	}
	if reset < 3 || reset > max(255, maxVal) {
		return Traits{}, fmt.Errorf("%w: reset %d", ErrInvalidArgument, reset)
	}

	rng := (maxVal+2*near)/(2*near+1) + 1
	return Traits{
		MaxVal: maxVal,
		Near:   near,
		Range:  rng,
		Qbpp:   bits.Len(uint(rng - 1)),
		Bpp:    bpp,
		Limit:  2 * (bpp + max(8, bpp)),
		Reset:  reset,
	}, nil
}

// MaxNearLossless is the largest NEAR allowed for a maximum sample value.
func MaxNearLossless(maxVal int) int {
	return min(maxNearLossless, maxVal/2)
}

// ModuloRange wraps an error value into [-RANGE/2, RANGE/2).
func (t Traits) ModuloRange(errVal int) int {
	if errVal < 0 {
		errVal += t.Range
	}
	if errVal >= (t.Range+1)/2 {
		errVal -= t.Range
	}
	return errVal
}

// ComputeErrorValue quantizes the prediction residual d = actual - predicted
// by NEAR and folds it into the coder's working range.
func (t Traits) ComputeErrorValue(d int) int {
	return t.ModuloRange(t.quantize(d))
}

// IsNear reports whether two samples are within NEAR of each other.
func (t Traits) IsNear(a, b int) bool {
	return abs(a-b) <= t.Near
}

// CorrectPrediction clamps a prediction into [0, MAXVAL].
func (t Traits) CorrectPrediction(predicted int) int {
	return clip(predicted, 0, t.MaxVal)
}

// ComputeReconstructedSample rebuilds the sample the decoder will see from a
// prediction and a (signed) error value.
func (t Traits) ComputeReconstructedSample(predicted, errVal int) int {
	val := predicted + t.dequantize(errVal)
	if val < -t.Near {
		val += t.Range * (2*t.Near + 1)
	} else if val > t.MaxVal+t.Near {
		val -= t.Range * (2*t.Near + 1)
	}
	return t.CorrectPrediction(val)
}

func (t Traits) quantize(d int) int {
	if d > t.Near {
		return (d + t.Near) / (2*t.Near + 1)
	}
	if d < -t.Near {
		return (d - t.Near) / (2*t.Near + 1)
	}
	return 0
}

func (t Traits) dequantize(errVal int) int {
	return errVal * (2*t.Near + 1)
}
