package jpegls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDefaultPreset(t *testing.T) {
	tests := []struct {
		maxVal, near int
		t1, t2, t3   int
	}{
		{255, 0, 3, 7, 21},
		{4095, 0, 18, 67, 276},
		{65535, 0, 18, 67, 276},
		{3, 0, 2, 3, 3},
		{255, 3, 12, 22, 42},
	}
	for _, tt := range tests {
		p := ComputeDefaultPreset(tt.maxVal, tt.near)
		assert.Equal(t, PresetCodingParameters{tt.maxVal, tt.t1, tt.t2, tt.t3, DefaultResetValue}, p,
			"maxVal=%d near=%d", tt.maxVal, tt.near)
	}
}

func TestPresetValidate(t *testing.T) {
	filled, err := PresetCodingParameters{}.Validate(255, 0)
	require.NoError(t, err)
	assert.Equal(t, ComputeDefaultPreset(255, 0), filled)

	filled, err = PresetCodingParameters{Threshold1: 5, ResetValue: 32}.Validate(255, 0)
	require.NoError(t, err)
	assert.Equal(t, PresetCodingParameters{255, 5, 7, 21, 32}, filled)

	// a lower MAXVAL changes the default thresholds
	filled, err = PresetCodingParameters{MaximumSampleValue: 1000}.Validate(4095, 0)
	require.NoError(t, err)
	assert.Equal(t, ComputeDefaultPreset(1000, 0), filled)

	bad := []PresetCodingParameters{
		{MaximumSampleValue: 256},
		{Threshold1: 256},
		{Threshold2: 2},
		{Threshold1: 10, Threshold2: 12, Threshold3: 11},
		{ResetValue: 2},
		{ResetValue: 256},
	}
	for _, p := range bad {
		_, err := p.Validate(255, 0)
		assert.ErrorIs(t, err, ErrInvalidParameterJpeglsPresetParameters, "%+v", p)
	}

	_, err = PresetCodingParameters{}.Validate(255, 128)
	assert.ErrorIs(t, err, ErrInvalidParameterNearLossless)
	_, err = PresetCodingParameters{MaximumSampleValue: 9}.Validate(255, 5)
	assert.ErrorIs(t, err, ErrInvalidParameterNearLossless)
}

func TestPresetIsDefault(t *testing.T) {
	assert.True(t, PresetCodingParameters{}.IsZero())
	assert.True(t, PresetCodingParameters{}.IsDefault(255, 0))
	assert.True(t, PresetCodingParameters{Threshold1: 3}.IsDefault(255, 0))
	assert.True(t, ComputeDefaultPreset(4095, 0).IsDefault(4095, 0))
	assert.False(t, PresetCodingParameters{Threshold1: 4}.IsDefault(255, 0))
	assert.False(t, PresetCodingParameters{MaximumSampleValue: 200}.IsDefault(255, 0))
}
