package dicom

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/jpfielding/jpegs/pkg/compress/jpegls"
)

func element(t *testing.T, tg tag.Tag, v any) *dicom.Element {
	t.Helper()
	e, err := dicom.NewElement(tg, v)
	require.NoError(t, err)
	return e
}

func imageDataset(t *testing.T, syntax Syntax, rows, cols, samples, bits int, pixels dicom.PixelDataInfo) dicom.Dataset {
	return dicom.Dataset{Elements: []*dicom.Element{
		element(t, tag.TransferSyntaxUID, []string{string(syntax)}),
		element(t, tag.Rows, []int{rows}),
		element(t, tag.Columns, []int{cols}),
		element(t, tag.SamplesPerPixel, []int{samples}),
		element(t, tag.BitsAllocated, []int{16}),
		element(t, tag.BitsStored, []int{bits}),
		element(t, tag.PixelData, pixels),
	}}
}

func gradient(width, height, maxVal int) []uint16 {
	s := make([]uint16, width*height)
	for y := range height {
		for x := range width {
			s[y*width+x] = uint16((x*37 + y*11) % (maxVal + 1))
		}
	}
	return s
}

func encodedFrame(t *testing.T, info jpegls.FrameInfo, samples []uint16, near int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpegls.EncodeFrame(&buf, &jpegls.Frame{Info: info, Samples: samples}, &jpegls.Options{Near: near}))
	return buf.Bytes()
}

func TestFramesFromDatasetEncapsulated(t *testing.T) {
	info := jpegls.FrameInfo{Width: 9, Height: 7, BitsPerSample: 12, ComponentCount: 1}
	first := gradient(9, 7, 4095)
	second := make([]uint16, len(first))
	for i := range second {
		second[i] = 4095 - first[i]
	}
	pixels := dicom.PixelDataInfo{IsEncapsulated: true}
	for _, s := range [][]uint16{first, second} {
		pixels.Frames = append(pixels.Frames, &frame.Frame{
			Encapsulated:     true,
			EncapsulatedData: frame.EncapsulatedFrame{Data: encodedFrame(t, info, s, 0)},
		})
	}

	f, err := FramesFromDataset(imageDataset(t, JPEGLSLossless, 7, 9, 1, 12, pixels))
	require.NoError(t, err)
	assert.Equal(t, JPEGLSLossless, f.Syntax)
	assert.Equal(t, 2, f.Len())
	assert.Empty(t, f.Native)
	assert.Equal(t, info, f.FrameInfo())

	for i, want := range [][]uint16{first, second} {
		jf, h, err := f.Decode(i)
		require.NoError(t, err)
		assert.Equal(t, info, h.Frame)
		assert.Equal(t, want, jf.Samples)
	}

	_, _, err = f.Decode(2)
	assert.ErrorIs(t, err, ErrFrameIndex)
	_, err = f.Encode(0, nil)
	assert.ErrorIs(t, err, ErrNotNative)
}

func TestFramesFromDatasetNative(t *testing.T) {
	samples := gradient(5, 4, 255)
	data := make([][]int, len(samples))
	for i, s := range samples {
		data[i] = []int{int(s)}
	}
	pixels := dicom.PixelDataInfo{Frames: []*frame.Frame{{NativeData: frame.NativeFrame{Data: data}}}}

	f, err := FramesFromDataset(imageDataset(t, ExplicitVRLittleEndian, 4, 5, 1, 8, pixels))
	require.NoError(t, err)
	require.Len(t, f.Native, 1)
	assert.Equal(t, samples, f.Native[0])

	_, _, err = f.Decode(0)
	assert.ErrorIs(t, err, ErrNotJPEGLS)

	encoded, err := f.Encode(0, &jpegls.Options{Near: 2})
	require.NoError(t, err)
	jf, h, err := jpegls.DecodeFrame(encoded)
	require.NoError(t, err)
	assert.Equal(t, 2, h.NearLossless)
	for i := range samples {
		assert.InDelta(t, samples[i], jf.Samples[i], 2)
	}

	_, err = f.Encode(1, nil)
	assert.ErrorIs(t, err, ErrFrameIndex)
}

func TestFramesFromDatasetRawItems(t *testing.T) {
	info := jpegls.FrameInfo{Width: 4, Height: 4, BitsPerSample: 8, ComponentCount: 1}
	stream := encodedFrame(t, info, gradient(4, 4, 255), 0)
	ds := dicom.Dataset{Elements: []*dicom.Element{
		element(t, tag.TransferSyntaxUID, []string{string(JPEGLSLossless)}),
		element(t, tag.Rows, []int{4}),
		element(t, tag.Columns, []int{4}),
		element(t, tag.BitsAllocated, []int{8}),
		{Tag: tag.PixelData, Value: mustBytesValue(t, EncapsulateFrames([][]byte{stream}))},
	}}

	f, err := FramesFromDataset(ds)
	require.NoError(t, err)
	assert.Equal(t, 1, f.SamplesPerPixel)
	assert.Equal(t, 8, f.BitsStored)
	require.Len(t, f.Encapsulated, 1)
	jf, _, err := f.Decode(0)
	require.NoError(t, err)
	assert.Equal(t, gradient(4, 4, 255), jf.Samples)
}

func mustBytesValue(t *testing.T, b []byte) dicom.Value {
	t.Helper()
	v, err := dicom.NewValue(b)
	require.NoError(t, err)
	return v
}

func TestFramesFromDatasetNoPixelData(t *testing.T) {
	ds := dicom.Dataset{Elements: []*dicom.Element{
		element(t, tag.Rows, []int{4}),
	}}
	_, err := FramesFromDataset(ds)
	assert.ErrorIs(t, err, ErrNoPixelData)

	empty := imageDataset(t, JPEGLSLossless, 4, 4, 1, 8, dicom.PixelDataInfo{IsEncapsulated: true})
	_, err = FramesFromDataset(empty)
	assert.ErrorIs(t, err, ErrNoPixelData)
}

func TestRecompress(t *testing.T) {
	samples := gradient(6, 3, 1023)
	data := make([][]int, len(samples))
	for i, s := range samples {
		data[i] = []int{int(s)}
	}
	pixels := dicom.PixelDataInfo{Frames: []*frame.Frame{{NativeData: frame.NativeFrame{Data: data}}}}
	ds := imageDataset(t, ExplicitVRLittleEndian, 3, 6, 1, 10, pixels)

	require.NoError(t, Recompress(&ds, &jpegls.Options{Near: 1}))
	assert.Len(t, ds.Elements, 7)

	f, err := FramesFromDataset(ds)
	require.NoError(t, err)
	assert.Equal(t, JPEGLSNearLossless, f.Syntax)
	require.Len(t, f.Encapsulated, 1)
	jf, h, err := f.Decode(0)
	require.NoError(t, err)
	assert.Equal(t, 10, h.Frame.BitsPerSample)
	for i := range samples {
		assert.InDelta(t, samples[i], jf.Samples[i], 1)
	}

	// the items survive a write and parse
	path := filepath.Join(t.TempDir(), "out", "recompressed.dcm")
	require.NoError(t, WriteFile(path, ds))
	back, err := ReadFrames(path)
	require.NoError(t, err)
	assert.Equal(t, JPEGLSNearLossless, back.Syntax)
	require.Len(t, back.Encapsulated, 1)
	assert.Zero(t, len(back.Encapsulated[0])%2)
	jf2, _, err := back.Decode(0)
	require.NoError(t, err)
	assert.Equal(t, jf.Samples, jf2.Samples)

	// already encapsulated
	assert.ErrorIs(t, Recompress(&ds, nil), ErrNotNative)
}
