package jpegls

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSamples returns smooth data with noise and flat patches so every
// coding path (regular, run, interruption) is exercised.
func testSamples(width, height, comps, bits int, seed uint64) []uint16 {
	rng := rand.New(rand.NewPCG(seed, 0x5eed))
	maxVal := 1<<bits - 1
	out := make([]uint16, width*height*comps)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for c := 0; c < comps; c++ {
				var v int
				switch {
				case y%7 == 3 || (x > width/2 && y < height/3):
					v = maxVal / (c + 2)
				default:
					v = (x*maxVal/max(1, width-1) + y*3 + c*11) + rng.IntN(max(2, maxVal/16)) - maxVal/32
				}
				out[(y*width+x)*comps+c] = uint16(clip(v, 0, maxVal))
			}
		}
	}
	return out
}

func encodeDecodeScan(t *testing.T, p ScanParams, samples []uint16) []uint16 {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, EncodeScan(&buf, p, samples))
	dst := make([]uint16, len(samples))
	n, err := DecodeScan(buf.Bytes(), p, dst)
	require.NoError(t, err)
	assert.Equal(t, buf.Len(), n)
	return dst
}

func TestEncodeScanConstant(t *testing.T) {
	samples := make([]uint16, 16)
	for i := range samples {
		samples[i] = 128
	}
	p := ScanParams{Width: 4, Height: 4, BitsPerSample: 8, ComponentCount: 1}

	var buf bytes.Buffer
	bw := NewBitWriter(&buf)
	stats, err := encodeScan(bw, p, newBufferLines(samples, 4, 1, 0, 1))
	require.NoError(t, err)
	require.NoError(t, bw.Flush())

	// the first line sits under the zero padding, so it starts with an
	// interruption and regular samples before the runs take over
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0xFD, 0x95, 0x3F, 0xC0}, buf.Bytes())
	assert.Equal(t, scanStats{regular: 4, run: 11, interruptions: 1}, stats)

	dst := make([]uint16, 16)
	dstats, err := decodeScan(NewBitReader(buf.Bytes()), p, newBufferLines(dst, 4, 1, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, stats, dstats)
	assert.Equal(t, samples, dst)
}

func TestEncodeScanLongRun(t *testing.T) {
	p := ScanParams{Width: 1024, Height: 1, BitsPerSample: 8, ComponentCount: 1}
	samples := make([]uint16, 1024)

	var buf bytes.Buffer
	require.NoError(t, EncodeScan(&buf, p, samples))
	// 26 run bits, bit stuffed after each 0xFF
	assert.Equal(t, []byte{0xFF, 0x7F, 0xFF, 0x70}, buf.Bytes())

	dst := make([]uint16, 1024)
	for i := range dst {
		dst[i] = 1
	}
	n, err := DecodeScan(buf.Bytes(), p, dst)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, samples, dst)
}

func TestScanRoundTripBitDepths(t *testing.T) {
	for bits := MinBitsPerSample; bits <= MaxBitsPerSample; bits++ {
		t.Run(fmt.Sprintf("%d bits", bits), func(t *testing.T) {
			p := ScanParams{Width: 37, Height: 23, BitsPerSample: bits, ComponentCount: 1}
			samples := testSamples(p.Width, p.Height, 1, bits, uint64(bits))
			assert.Equal(t, samples, encodeDecodeScan(t, p, samples))
		})
	}
}

func TestScanRoundTripNoise(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	for _, bits := range []int{8, 12, 16} {
		p := ScanParams{Width: 64, Height: 16, BitsPerSample: bits, ComponentCount: 1}
		samples := make([]uint16, p.Width*p.Height)
		for i := range samples {
			samples[i] = uint16(rng.IntN(1 << bits))
		}
		assert.Equal(t, samples, encodeDecodeScan(t, p, samples), "%d bits", bits)
	}
}

func TestScanRoundTripNearLossless(t *testing.T) {
	for _, tc := range []struct{ bits, near int }{{8, 1}, {8, 3}, {8, 10}, {12, 5}, {16, 255}, {2, 1}} {
		t.Run(fmt.Sprintf("%d bits near %d", tc.bits, tc.near), func(t *testing.T) {
			p := ScanParams{Width: 41, Height: 19, BitsPerSample: tc.bits, ComponentCount: 1, NearLossless: tc.near}
			samples := testSamples(p.Width, p.Height, 1, tc.bits, 3)
			got := encodeDecodeScan(t, p, samples)
			for i := range samples {
				require.LessOrEqual(t, abs(int(got[i])-int(samples[i])), tc.near, "sample %d", i)
			}
		})
	}
}

func TestScanRoundTripInterleaved(t *testing.T) {
	for _, ilv := range []InterleaveMode{InterleaveLine, InterleaveSample} {
		for comps := 2; comps <= 4; comps++ {
			for _, near := range []int{0, 2} {
				t.Run(fmt.Sprintf("%s %d components near %d", ilv, comps, near), func(t *testing.T) {
					p := ScanParams{Width: 33, Height: 17, BitsPerSample: 8, ComponentCount: comps, Interleave: ilv, NearLossless: near}
					samples := testSamples(p.Width, p.Height, comps, 8, uint64(comps))
					got := encodeDecodeScan(t, p, samples)
					for i := range samples {
						require.LessOrEqual(t, abs(int(got[i])-int(samples[i])), near, "sample %d", i)
					}
				})
			}
		}
	}
}

func TestScanRoundTripPreset(t *testing.T) {
	p := ScanParams{
		Width: 30, Height: 20, BitsPerSample: 12, ComponentCount: 1,
		Preset: PresetCodingParameters{MaximumSampleValue: 1000, Threshold1: 4, Threshold2: 9, Threshold3: 30, ResetValue: 16},
	}
	samples := testSamples(p.Width, p.Height, 1, 12, 11)
	for i := range samples {
		samples[i] = min(samples[i], 1000)
	}
	assert.Equal(t, samples, encodeDecodeScan(t, p, samples))
}

func TestScanSingleRowAndColumn(t *testing.T) {
	for _, dims := range [][2]int{{1, 1}, {1, 50}, {50, 1}, {2, 2}} {
		p := ScanParams{Width: dims[0], Height: dims[1], BitsPerSample: 8, ComponentCount: 1}
		samples := testSamples(p.Width, p.Height, 1, 8, 5)
		assert.Equal(t, samples, encodeDecodeScan(t, p, samples), "%dx%d", dims[0], dims[1])
	}
}

func TestEncodeScanInvalid(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeScan(&buf, ScanParams{Width: 2, Height: 1, BitsPerSample: 8, ComponentCount: 1}, []uint16{1, 300})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = EncodeScan(&buf, ScanParams{Width: 2, Height: 2, BitsPerSample: 8, ComponentCount: 1}, []uint16{1, 2})
	assert.ErrorIs(t, err, ErrSourceBufferTooSmall)

	tests := []struct {
		p    ScanParams
		want error
	}{
		{ScanParams{Width: 0, Height: 1, BitsPerSample: 8, ComponentCount: 1}, ErrInvalidParameterWidth},
		{ScanParams{Width: 1, Height: 0, BitsPerSample: 8, ComponentCount: 1}, ErrInvalidParameterHeight},
		{ScanParams{Width: 1, Height: 1, BitsPerSample: 17, ComponentCount: 1}, ErrInvalidParameterBitsPerSample},
		{ScanParams{Width: 1, Height: 1, BitsPerSample: 8, ComponentCount: 5, Interleave: InterleaveLine}, ErrInvalidParameterComponentCount},
		{ScanParams{Width: 1, Height: 1, BitsPerSample: 8, ComponentCount: 3}, ErrInvalidParameterInterleaveMode},
		{ScanParams{Width: 1, Height: 1, BitsPerSample: 8, ComponentCount: 1, NearLossless: 128}, ErrInvalidParameterNearLossless},
	}
	for _, tt := range tests {
		_, _, err := tt.p.traits()
		assert.ErrorIs(t, err, tt.want, "%+v", tt.p)
	}
}

func TestDecodeScanTruncated(t *testing.T) {
	p := ScanParams{Width: 64, Height: 16, BitsPerSample: 8, ComponentCount: 1}
	rng := rand.New(rand.NewPCG(1, 2))
	samples := make([]uint16, p.Width*p.Height)
	for i := range samples {
		samples[i] = uint16(rng.IntN(256))
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeScan(&buf, p, samples))

	_, err := DecodeScan(buf.Bytes()[:buf.Len()/2], p, make([]uint16, len(samples)))
	assert.ErrorIs(t, err, ErrSourceBufferTooSmall)

	_, err = DecodeScan(buf.Bytes(), p, make([]uint16, len(samples)-1))
	assert.ErrorIs(t, err, ErrDestinationBufferTooSmall)
}

func TestDecodeScanTrailingData(t *testing.T) {
	p := ScanParams{Width: 4, Height: 4, BitsPerSample: 8, ComponentCount: 1}
	data := []byte{0x00, 0x00, 0x01, 0xFD, 0x95, 0x3F, 0xC0, 0x12, 0x34}
	_, err := DecodeScan(data, p, make([]uint16, 16))
	assert.ErrorIs(t, err, ErrTooMuchEncodedData)
}
