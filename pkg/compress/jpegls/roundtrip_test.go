package jpegls_test

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/jpegs/pkg/compress/jpegls"
)

// TestRoundTrip16 encodes and decodes a 16-bit grayscale image and checks
// every pixel survives.
func TestRoundTrip16(t *testing.T) {
	width, height := 312, 312

	original := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var val uint16
			switch {
			case x < 100 && y < 100:
				val = 0
			case x > 200 && y < 100:
				val = 65535
			default:
				val = uint16((x + y*width) % 65536)
			}
			original.SetGray16(x, y, color.Gray16{Y: val})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpegls.Encode(&buf, original, nil))
	t.Logf("Encoded %dx%d to %d bytes", width, height, buf.Len())

	decoded, err := jpegls.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, original.Bounds(), decoded.Bounds())

	gray, ok := decoded.(*image.Gray16)
	require.True(t, ok, "decoded %T", decoded)
	assert.Equal(t, original.Pix, gray.Pix)
}

// TestRoundTripRowOrder catches row/column transposition.
func TestRoundTripRowOrder(t *testing.T) {
	width, height := 100, 50

	original := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			original.SetGray16(x, y, color.Gray16{Y: uint16((y*1000 + x) % 65536)})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpegls.Encode(&buf, original, nil))
	decoded, err := jpegls.Decode(&buf)
	require.NoError(t, err)

	testCases := []struct {
		x, y    int
		wantVal uint16
	}{
		{0, 0, 0},
		{99, 0, 99},
		{0, 49, 49000 % 65536},
		{50, 25, (25*1000 + 50) % 65536},
	}
	for _, tc := range testCases {
		r, _, _, _ := decoded.At(tc.x, tc.y).RGBA()
		assert.Equal(t, tc.wantVal, uint16(r), "at (%d, %d)", tc.x, tc.y)
	}
}

func TestRoundTripGray8SubImage(t *testing.T) {
	full := image.NewGray(image.Rect(0, 0, 80, 60))
	for i := range full.Pix {
		full.Pix[i] = uint8(i*7 + i/80)
	}
	sub := full.SubImage(image.Rect(10, 5, 70, 45)).(*image.Gray)

	var buf bytes.Buffer
	require.NoError(t, jpegls.Encode(&buf, sub, nil))
	decoded, err := jpegls.Decode(&buf)
	require.NoError(t, err)

	gray := decoded.(*image.Gray)
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			require.Equal(t, sub.GrayAt(10+x, 5+y), gray.GrayAt(x, y), "(%d, %d)", x, y)
		}
	}
}

func rgbFrame(width, height, comps, bits int) *jpegls.Frame {
	f := jpegls.NewFrame(jpegls.FrameInfo{Width: width, Height: height, BitsPerSample: bits, ComponentCount: comps})
	maxVal := 1<<bits - 1
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for c := 0; c < comps; c++ {
				v := (x*(c+1)*maxVal/width + y*maxVal/height/(c+1)) % (maxVal + 1)
				if (x/8+y/8)%3 == 0 {
					v = maxVal / (c + 2)
				}
				f.Samples[(y*width+x)*comps+c] = uint16(v)
			}
		}
	}
	return f
}

func TestRoundTripInterleaveAndTransforms(t *testing.T) {
	modes := []jpegls.InterleaveMode{jpegls.InterleaveNone, jpegls.InterleaveLine, jpegls.InterleaveSample}
	transforms := []jpegls.ColorTransformation{jpegls.TransformNone, jpegls.TransformHP1, jpegls.TransformHP2, jpegls.TransformHP3}
	for _, bits := range []int{8, 16} {
		for _, comps := range []int{3, 4} {
			for _, ilv := range modes {
				for _, ct := range transforms {
					if ilv == jpegls.InterleaveNone && ct != jpegls.TransformNone {
						continue
					}
					t.Run(fmt.Sprintf("%d bits %d components %s %s", bits, comps, ilv, ct), func(t *testing.T) {
						f := rgbFrame(45, 31, comps, bits)
						opts := &jpegls.Options{Interleave: ilv, ColorTransform: ct}

						var buf bytes.Buffer
						require.NoError(t, jpegls.EncodeFrame(&buf, f, opts))
						got, h, err := jpegls.DecodeFrame(buf.Bytes())
						require.NoError(t, err)
						assert.Equal(t, f.Info, got.Info)
						assert.Equal(t, f.Samples, got.Samples)
						assert.Equal(t, ct, h.Transform)
						assert.Equal(t, ilv, h.Interleave)
					})
				}
			}
		}
	}
}

func TestRoundTripRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = uint8(i), uint8(i/3), uint8(255-i), uint8(i/4)
	}

	var buf bytes.Buffer
	require.NoError(t, jpegls.Encode(&buf, img, &jpegls.Options{Interleave: jpegls.InterleaveSample, ColorTransform: jpegls.TransformHP1}))

	cfg, err := jpegls.DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
	assert.Equal(t, 10, cfg.Height)
	assert.Equal(t, color.NRGBAModel, cfg.ColorModel)

	decoded, err := jpegls.Decode(&buf)
	require.NoError(t, err)
	nrgba, ok := decoded.(*image.NRGBA)
	require.True(t, ok, "decoded %T", decoded)
	assert.Equal(t, img.Pix, nrgba.Pix)
}

func TestRoundTripRGB(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = uint8(i), uint8(i>>1), uint8(i>>2), 0xFF
	}
	var buf bytes.Buffer
	require.NoError(t, jpegls.Encode(&buf, img, &jpegls.Options{Interleave: jpegls.InterleaveLine, ColorTransform: jpegls.TransformHP3}))
	decoded, err := jpegls.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, decoded.(*image.RGBA).Pix)
}

func TestRoundTripNearLossless(t *testing.T) {
	const near = 3
	f := rgbFrame(64, 48, 1, 8)
	var buf bytes.Buffer
	require.NoError(t, jpegls.EncodeFrame(&buf, f, &jpegls.Options{Near: near}))

	got, h, err := jpegls.DecodeFrame(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, near, h.NearLossless)
	for i, v := range f.Samples {
		diff := int(got.Samples[i]) - int(v)
		require.True(t, diff >= -near && diff <= near, "sample %d: %d vs %d", i, got.Samples[i], v)
	}
}

func TestRoundTripBitDepths(t *testing.T) {
	for bits := jpegls.MinBitsPerSample; bits <= jpegls.MaxBitsPerSample; bits++ {
		f := rgbFrame(23, 17, 1, bits)
		var buf bytes.Buffer
		require.NoError(t, jpegls.EncodeFrame(&buf, f, nil), "%d bits", bits)
		got, h, err := jpegls.DecodeFrame(buf.Bytes())
		require.NoError(t, err, "%d bits", bits)
		assert.Equal(t, bits, h.Frame.BitsPerSample)
		assert.Equal(t, f.Samples, got.Samples, "%d bits", bits)
	}
}

func TestSpiffHeader(t *testing.T) {
	f := rgbFrame(40, 30, 1, 12)
	var buf bytes.Buffer
	require.NoError(t, jpegls.EncodeFrame(&buf, f, &jpegls.Options{SPIFF: true}))

	h, err := jpegls.ReadHeader(buf.Bytes())
	require.NoError(t, err)
	require.NotNil(t, h.Spiff)
	assert.Equal(t, 40, h.Spiff.Width)
	assert.Equal(t, 30, h.Spiff.Height)
	assert.Equal(t, 12, h.Spiff.BitsPerSample)
	assert.Equal(t, jpegls.SpiffColorSpaceGrayscale, h.Spiff.ColorSpace)

	got, _, err := jpegls.DecodeFrame(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, f.Samples, got.Samples)
}

func TestPresetParameters(t *testing.T) {
	lse := []byte{0xFF, 0xF8}
	f := rgbFrame(40, 30, 1, 8)

	var buf bytes.Buffer
	require.NoError(t, jpegls.EncodeFrame(&buf, f, nil))
	assert.False(t, bytes.Contains(buf.Bytes(), lse))

	// explicitly default values need no segment either
	buf.Reset()
	require.NoError(t, jpegls.EncodeFrame(&buf, f, &jpegls.Options{Preset: jpegls.ComputeDefaultPreset(255, 0)}))
	assert.False(t, bytes.Contains(buf.Bytes(), lse))

	preset := jpegls.PresetCodingParameters{Threshold1: 5, Threshold2: 10, Threshold3: 40, ResetValue: 32}
	buf.Reset()
	require.NoError(t, jpegls.EncodeFrame(&buf, f, &jpegls.Options{Preset: preset}))
	assert.True(t, bytes.Contains(buf.Bytes(), lse))

	got, h, err := jpegls.DecodeFrame(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, preset, h.Preset)
	assert.Equal(t, f.Samples, got.Samples)
}

func TestEncodeToBuffer(t *testing.T) {
	f := rgbFrame(32, 32, 3, 8)
	opts := &jpegls.Options{Interleave: jpegls.InterleaveSample}

	var buf bytes.Buffer
	require.NoError(t, jpegls.EncodeFrame(&buf, f, opts))

	dst := make([]byte, buf.Len()+100)
	n, err := jpegls.EncodeToBuffer(dst, f, opts)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), dst[:n])

	_, err = jpegls.EncodeToBuffer(make([]byte, 10), f, opts)
	assert.ErrorIs(t, err, jpegls.ErrDestinationBufferTooSmall)
}

func TestStreamRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		bits, comps int
		ilv         jpegls.InterleaveMode
	}{
		{8, 1, jpegls.InterleaveNone},
		{12, 1, jpegls.InterleaveNone},
		{8, 3, jpegls.InterleaveNone},
		{16, 3, jpegls.InterleaveLine},
		{8, 4, jpegls.InterleaveSample},
	} {
		t.Run(fmt.Sprintf("%d bits %d components %s", tc.bits, tc.comps, tc.ilv), func(t *testing.T) {
			info := jpegls.FrameInfo{Width: 29, Height: 13, BitsPerSample: tc.bits, ComponentCount: tc.comps}
			bytesPerSample := 1
			if tc.bits > 8 {
				bytesPerSample = 2
			}
			raw := make([]byte, info.Width*info.Height*info.ComponentCount*bytesPerSample)
			for i := range raw {
				raw[i] = byte(i / 5)
				if bytesPerSample == 2 && i%2 == 0 && tc.bits < 16 {
					raw[i] &= byte(1<<(tc.bits-8) - 1)
				}
			}

			var encoded bytes.Buffer
			require.NoError(t, jpegls.EncodeStream(&encoded, bytes.NewReader(raw), info, &jpegls.Options{Interleave: tc.ilv}))

			var decoded bytes.Buffer
			h, err := jpegls.DecodeStream(encoded.Bytes(), &decoded)
			require.NoError(t, err)
			assert.Equal(t, info, h.Frame)
			assert.Equal(t, raw, decoded.Bytes())
		})
	}
}

func TestEncodeInvalidOptions(t *testing.T) {
	f := rgbFrame(8, 8, 3, 12)
	var buf bytes.Buffer

	err := jpegls.EncodeFrame(&buf, f, &jpegls.Options{Interleave: jpegls.InterleaveLine, ColorTransform: jpegls.TransformHP1})
	assert.ErrorIs(t, err, jpegls.ErrBitDepthForTransformNotSupported)

	err = jpegls.EncodeFrame(&buf, f, &jpegls.Options{ColorTransform: jpegls.TransformHP1})
	assert.ErrorIs(t, err, jpegls.ErrColorTransformNotSupported)

	err = jpegls.EncodeFrame(&buf, f, &jpegls.Options{Near: 300})
	assert.ErrorIs(t, err, jpegls.ErrInvalidArgument)

	err = jpegls.EncodeFrame(&buf, f, &jpegls.Options{Preset: jpegls.PresetCodingParameters{Threshold1: 5000}})
	assert.ErrorIs(t, err, jpegls.ErrInvalidParameterJpeglsPresetParameters)

	err = jpegls.Encode(&buf, image.NewGray(image.Rect(0, 0, 0, 4)), nil)
	assert.ErrorIs(t, err, jpegls.ErrInvalidArgument)

	// samples above the declared depth
	err = jpegls.Encode(&buf, image.NewGray16(image.Rect(0, 0, 4, 4)), &jpegls.Options{BitsPerSample: 17})
	assert.ErrorIs(t, err, jpegls.ErrInvalidParameterBitsPerSample)
}
