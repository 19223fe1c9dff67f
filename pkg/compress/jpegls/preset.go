package jpegls

import "fmt"

const (
	defaultThreshold1 = 3
	defaultThreshold2 = 7
	defaultThreshold3 = 21
)

// PresetCodingParameters are the values carried by an LSE type 1 segment.
// A zero field selects the default for that field.
type PresetCodingParameters struct {
	MaximumSampleValue int
	Threshold1         int
	Threshold2         int
	Threshold3         int
	ResetValue         int
}

// ComputeDefaultPreset returns the default thresholds of ISO/IEC 14495-1 C.2.4.1.1.1.
func ComputeDefaultPreset(maxVal, near int) PresetCodingParameters {
	if maxVal >= 128 {
		factor := (min(maxVal, 4095) + 128) / 256
		t1 := clampThreshold(factor*(defaultThreshold1-2)+2+3*near, near+1, maxVal)
		t2 := clampThreshold(factor*(defaultThreshold2-3)+3+5*near, t1, maxVal)
		t3 := clampThreshold(factor*(defaultThreshold3-4)+4+7*near, t2, maxVal)
		return PresetCodingParameters{maxVal, t1, t2, t3, DefaultResetValue}
	}

	factor := 256 / (maxVal + 1)
	t1 := clampThreshold(max(2, defaultThreshold1/factor+3*near), near+1, maxVal)
	t2 := clampThreshold(max(3, defaultThreshold2/factor+5*near), t1, maxVal)
	t3 := clampThreshold(max(4, defaultThreshold3/factor+7*near), t2, maxVal)
	return PresetCodingParameters{maxVal, t1, t2, t3, DefaultResetValue}
}

func clampThreshold(i, j, maxVal int) int {
	if i > maxVal || i < j {
		return j
	}
	return i
}

// IsZero reports whether no field has been set.
func (p PresetCodingParameters) IsZero() bool {
	return p == PresetCodingParameters{}
}

// IsDefault reports whether every set field matches the defaults for
// maxVal and near, so no LSE segment needs to be written.
func (p PresetCodingParameters) IsDefault(maxVal, near int) bool {
	if p.IsZero() {
		return true
	}
	d := ComputeDefaultPreset(maxVal, near)
	same := func(v, def int) bool { return v == 0 || v == def }
	return same(p.MaximumSampleValue, d.MaximumSampleValue) &&
		same(p.Threshold1, d.Threshold1) &&
		same(p.Threshold2, d.Threshold2) &&
		same(p.Threshold3, d.Threshold3) &&
		same(p.ResetValue, d.ResetValue)
}

// Validate checks the parameters against ISO/IEC 14495-1 C.2.4.1.1 for a
// component with the given maximum value and returns them with every
// zero field replaced by its default.
func (p PresetCodingParameters) Validate(maxComponentValue, near int) (PresetCodingParameters, error) {
	invalid := func(field string, v int) (PresetCodingParameters, error) {
		return PresetCodingParameters{}, fmt.Errorf("%w: %s %d", ErrInvalidParameterJpeglsPresetParameters, field, v)
	}

	if p.MaximumSampleValue != 0 && (p.MaximumSampleValue < 1 || p.MaximumSampleValue > maxComponentValue) {
		return invalid("maximum sample value", p.MaximumSampleValue)
	}
	maxVal := maxComponentValue
	if p.MaximumSampleValue != 0 {
		maxVal = p.MaximumSampleValue
	}
	if near < 0 || near > MaxNearLossless(maxVal) {
		return PresetCodingParameters{}, fmt.Errorf("%w: %d (maximum sample value %d)", ErrInvalidParameterNearLossless, near, maxVal)
	}

	d := ComputeDefaultPreset(maxVal, near)
	out := PresetCodingParameters{MaximumSampleValue: maxVal}

	if p.Threshold1 != 0 && (p.Threshold1 < near+1 || p.Threshold1 > maxVal) {
		return invalid("threshold 1", p.Threshold1)
	}
	out.Threshold1 = pick(p.Threshold1, d.Threshold1)

	if p.Threshold2 != 0 && (p.Threshold2 < out.Threshold1 || p.Threshold2 > maxVal) {
		return invalid("threshold 2", p.Threshold2)
	}
	out.Threshold2 = pick(p.Threshold2, d.Threshold2)

	if p.Threshold3 != 0 && (p.Threshold3 < out.Threshold2 || p.Threshold3 > maxVal) {
		return invalid("threshold 3", p.Threshold3)
	}
	out.Threshold3 = pick(p.Threshold3, d.Threshold3)

	if p.ResetValue != 0 && (p.ResetValue < 3 || p.ResetValue > max(255, maxVal)) {
		return invalid("reset value", p.ResetValue)
	}
	out.ResetValue = pick(p.ResetValue, d.ResetValue)
	return out, nil
}

func pick(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}
