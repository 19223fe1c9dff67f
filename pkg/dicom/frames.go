package dicom

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/jpfielding/jpegs/pkg/compress/jpegls"
)

var (
	ErrNoPixelData = errors.New("dicom: no pixel data")
	ErrNotJPEGLS   = errors.New("dicom: pixel data is not JPEG-LS")
	ErrNotNative   = errors.New("dicom: pixel data is already encapsulated")
	ErrFrameIndex  = errors.New("dicom: frame index out of range")
)

// Frames is the pixel data of one DICOM instance. Exactly one of
// Encapsulated and Native is filled, depending on the transfer syntax.
type Frames struct {
	Syntax          Syntax
	Rows            int
	Columns         int
	SamplesPerPixel int
	BitsAllocated   int
	BitsStored      int
	Encapsulated    [][]byte   // one codestream per frame
	Native          [][]uint16 // pixel interleaved samples per frame
}

// ReadDataset parses a DICOM file, pixel data included.
func ReadDataset(path string) (dicom.Dataset, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return dicom.Dataset{}, fmt.Errorf("could not parse DICOM: %w", err)
	}
	return ds, nil
}

// ReadFrames parses a DICOM file and collects its pixel data.
func ReadFrames(path string) (*Frames, error) {
	ds, err := ReadDataset(path)
	if err != nil {
		return nil, err
	}
	return FramesFromDataset(ds)
}

// FramesFromDataset collects the pixel data of a parsed dataset.
func FramesFromDataset(ds dicom.Dataset) (*Frames, error) {
	f := &Frames{
		Syntax:          Syntax(stringValue(ds, tag.TransferSyntaxUID)),
		Rows:            intValue(ds, tag.Rows),
		Columns:         intValue(ds, tag.Columns),
		SamplesPerPixel: intValue(ds, tag.SamplesPerPixel),
		BitsAllocated:   intValue(ds, tag.BitsAllocated),
		BitsStored:      intValue(ds, tag.BitsStored),
	}
	if f.SamplesPerPixel == 0 {
		f.SamplesPerPixel = 1
	}
	if f.BitsAllocated == 0 {
		f.BitsAllocated = 8
	}
	if f.BitsStored == 0 {
		f.BitsStored = f.BitsAllocated
	}

	elem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPixelData, err)
	}
	switch v := elem.Value.GetValue().(type) {
	case dicom.PixelDataInfo:
		for _, fr := range v.Frames {
			f.addFrame(fr)
		}
	case []byte:
		if !f.Syntax.IsEncapsulated() {
			return nil, fmt.Errorf("%w: unparsed native pixel data", ErrNoPixelData)
		}
		if f.Encapsulated, err = ExtractFrames(v); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unsupported value %T", ErrNoPixelData, v)
	}
	if f.Len() == 0 {
		return nil, ErrNoPixelData
	}
	slog.Debug("dicom pixel data", "syntax", f.Syntax.Name(), "rows", f.Rows, "columns", f.Columns,
		"samples", f.SamplesPerPixel, "bits", f.BitsStored, "frames", f.Len())
	return f, nil
}

func (f *Frames) addFrame(fr *frame.Frame) {
	if fr.Encapsulated {
		f.Encapsulated = append(f.Encapsulated, fr.EncapsulatedData.Data)
		return
	}
	samples := make([]uint16, 0, len(fr.NativeData.Data)*f.SamplesPerPixel)
	for _, px := range fr.NativeData.Data {
		for _, s := range px {
			samples = append(samples, uint16(s))
		}
	}
	f.Native = append(f.Native, samples)
}

// Len returns the number of frames.
func (f *Frames) Len() int {
	return len(f.Encapsulated) + len(f.Native)
}

// FrameInfo describes one frame the way the codec sees it.
func (f *Frames) FrameInfo() jpegls.FrameInfo {
	return jpegls.FrameInfo{
		Width:          f.Columns,
		Height:         f.Rows,
		BitsPerSample:  f.BitsStored,
		ComponentCount: f.SamplesPerPixel,
	}
}

// Decode decodes encapsulated frame i.
func (f *Frames) Decode(i int) (*jpegls.Frame, *jpegls.Header, error) {
	if !f.Syntax.IsJPEGLS() {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotJPEGLS, f.Syntax.Name())
	}
	if i < 0 || i >= len(f.Encapsulated) {
		return nil, nil, fmt.Errorf("%w: %d of %d", ErrFrameIndex, i, len(f.Encapsulated))
	}
	jf, h, err := jpegls.DecodeFrame(f.Encapsulated[i])
	if err != nil {
		return nil, nil, fmt.Errorf("frame %d: %w", i, err)
	}
	if jf.Info.Width != f.Columns || jf.Info.Height != f.Rows || jf.Info.ComponentCount != f.SamplesPerPixel {
		slog.Warn("jpeg-ls frame disagrees with dataset", "frame", i,
			"width", jf.Info.Width, "height", jf.Info.Height, "components", jf.Info.ComponentCount,
			"columns", f.Columns, "rows", f.Rows, "samples", f.SamplesPerPixel)
	}
	return jf, h, nil
}

// Encode compresses native frame i. Samples above BitsStored are
// rejected by the codec.
func (f *Frames) Encode(i int, opts *jpegls.Options) ([]byte, error) {
	if f.Syntax.IsEncapsulated() {
		return nil, fmt.Errorf("%w: %s", ErrNotNative, f.Syntax.Name())
	}
	if i < 0 || i >= len(f.Native) {
		return nil, fmt.Errorf("%w: %d of %d", ErrFrameIndex, i, len(f.Native))
	}
	var buf bytes.Buffer
	jf := &jpegls.Frame{Info: f.FrameInfo(), Samples: f.Native[i]}
	if err := jpegls.EncodeFrame(&buf, jf, opts); err != nil {
		return nil, fmt.Errorf("frame %d: %w", i, err)
	}
	return buf.Bytes(), nil
}

// Compress encodes every native frame and returns the codestreams.
func (f *Frames) Compress(opts *jpegls.Options) ([][]byte, error) {
	if f.Syntax.IsEncapsulated() {
		return nil, fmt.Errorf("%w: %s", ErrNotNative, f.Syntax.Name())
	}
	out := make([][]byte, 0, len(f.Native))
	for i := range f.Native {
		data, err := f.Encode(i, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// Recompress replaces the native pixel data of ds with JPEG-LS encoded
// frames and updates the transfer syntax to match.
func Recompress(ds *dicom.Dataset, opts *jpegls.Options) error {
	f, err := FramesFromDataset(*ds)
	if err != nil {
		return err
	}
	encoded, err := f.Compress(opts)
	if err != nil {
		return err
	}
	near := 0
	if opts != nil {
		near = opts.Near
	}

	info := dicom.PixelDataInfo{IsEncapsulated: true}
	for _, data := range encoded {
		if len(data)%2 != 0 {
			data = append(data, 0) // items have even length
		}
		info.Frames = append(info.Frames, &frame.Frame{
			Encapsulated:     true,
			EncapsulatedData: frame.EncapsulatedFrame{Data: data},
		})
	}
	pixels, err := dicom.NewElement(tag.PixelData, info)
	if err != nil {
		return fmt.Errorf("could not create pixel data: %w", err)
	}
	// the writer only emits items for undefined length pixel data
	pixels.ValueLength = tag.VLUndefinedLength
	syntax, err := dicom.NewElement(tag.TransferSyntaxUID, []string{string(SyntaxFor(near))})
	if err != nil {
		return fmt.Errorf("could not create transfer syntax: %w", err)
	}
	replaceElement(ds, pixels)
	replaceElement(ds, syntax)
	return nil
}

func replaceElement(ds *dicom.Dataset, elem *dicom.Element) {
	for i, e := range ds.Elements {
		if e.Tag == elem.Tag {
			ds.Elements[i] = elem
			return
		}
	}
	ds.Elements = append(ds.Elements, elem)
}

// WriteFile writes ds to path, creating the parent directory.
func WriteFile(path string, ds dicom.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create output file: %w", err)
	}
	defer file.Close()

	// many real-world files don't follow the VR dictionary strictly
	if err := dicom.Write(file, ds,
		dicom.SkipVRVerification(),
		dicom.SkipValueTypeVerification(),
		dicom.DefaultMissingTransferSyntax(),
	); err != nil {
		return fmt.Errorf("could not write DICOM: %w", err)
	}
	return file.Close()
}

func stringValue(ds dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem.Value == nil {
		return ""
	}
	switch v := elem.Value.GetValue().(type) {
	case []string:
		if len(v) > 0 {
			return strings.TrimRight(v[0], " \x00")
		}
	case string:
		return strings.TrimRight(v, " \x00")
	}
	return ""
}

func intValue(ds dicom.Dataset, t tag.Tag) int {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem.Value == nil {
		return 0
	}
	switch v := elem.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0]
		}
	case int:
		return v
	}
	return 0
}
