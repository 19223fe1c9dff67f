package jpegls

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"slices"
)

// Decode reads JPEG-LS data from r and returns an image.Image. Samples are
// returned unscaled: a 12-bit frame becomes an *image.Gray16 with values
// up to 4095.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, _, err := DecodeFrame(data)
	if err != nil {
		return nil, err
	}
	return f.Image()
}

// DecodeConfig returns the dimensions and colour model of a JPEG-LS stream
// without decoding its scans.
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	h, err := ReadHeader(data)
	if err != nil {
		return image.Config{}, err
	}
	model, err := colorModel(h.Frame)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: model, Width: h.Frame.Width, Height: h.Frame.Height}, nil
}

// DecodeFrame decodes every scan of a JPEG-LS stream into raw samples.
func DecodeFrame(data []byte) (*Frame, *Header, error) {
	d := NewDecoder(data)
	if err := d.readHeader(); err != nil {
		return nil, nil, err
	}
	if err := d.checkCodedSize(); err != nil {
		return nil, nil, err
	}
	f := NewFrame(d.header.Frame)
	comps := f.Info.ComponentCount
	err := d.decodeScans(func(first, count int) lineProcessor {
		return newBufferLines(f.Samples, f.Info.Width, comps, first, count)
	})
	if err != nil {
		return nil, nil, err
	}
	return f, &d.header, nil
}

// DecodeStream decodes data and writes the raw samples to w in the layout
// EncodeStream reads.
func DecodeStream(data []byte, w io.Writer) (*Header, error) {
	d := NewDecoder(data)
	if err := d.readHeader(); err != nil {
		return nil, err
	}
	if err := d.checkCodedSize(); err != nil {
		return nil, err
	}
	dst := newStreamWriterLines(w, d.header.Frame.BitsPerSample)
	if err := d.decodeScans(func(int, int) lineProcessor { return dst }); err != nil {
		return nil, err
	}
	return &d.header, nil
}

// checkCodedSize rejects a frame whose lines cannot fit in the stream. Every
// line of every component codes to at least one bit.
func (d *Decoder) checkCodedSize() error {
	f := d.header.Frame
	if lines := int64(f.Height) * int64(f.ComponentCount); lines > 8*int64(len(d.data)) {
		return fmt.Errorf("%w: %d lines in %d bytes", ErrSourceBufferTooSmall, lines, len(d.data))
	}
	return nil
}

// decodeScans decodes the scan whose SOS has just been read and every scan
// that follows until EOI.
func (d *Decoder) decodeScans(lines func(first, count int) lineProcessor) error {
	h := &d.header
	slog.Debug("jpegls decode",
		"width", h.Frame.Width, "height", h.Frame.Height, "bits", h.Frame.BitsPerSample,
		"components", h.Frame.ComponentCount, "near", h.NearLossless, "interleave", h.Interleave,
		"transform", h.Transform)

	done := make([]bool, h.Frame.ComponentCount)
	for {
		first, err := d.scanComponents(done)
		if err != nil {
			return err
		}
		count := len(d.scan.ComponentIDs)
		params := ScanParams{
			Width:          h.Frame.Width,
			Height:         h.Frame.Height,
			BitsPerSample:  h.Frame.BitsPerSample,
			ComponentCount: count,
			Interleave:     d.scan.ILV,
			NearLossless:   d.scan.Near,
			Preset:         h.Preset,
		}
		lp := lines(first, count)
		if h.Transform != TransformNone {
			if count != h.Frame.ComponentCount {
				return fmt.Errorf("%w: %s over a scan of %d components", ErrColorTransformNotSupported, h.Transform, count)
			}
			if err := validateTransform(h.Transform, h.Frame.BitsPerSample, count, d.scan.ILV); err != nil {
				return err
			}
			lp = newLineProcessor(lp, h.Transform, h.Frame.BitsPerSample, count)
		}

		br := NewBitReader(d.data[d.pos:])
		if _, err := decodeScan(br, params, lp); err != nil {
			return fmt.Errorf("scan of components %v: %w", d.scan.ComponentIDs, err)
		}
		d.pos += br.Position()

		more, err := d.readNextScan()
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	if i := slices.Index(done, false); i >= 0 {
		return fmt.Errorf("%w: component %d has no scan", ErrUnexpectedEndOfImageMarker, h.ComponentIDs[i])
	}
	return nil
}

// scanComponents maps the component ids of the current scan to frame
// component indexes. The components of one scan must be adjacent and in
// frame order; the first index is returned.
func (d *Decoder) scanComponents(done []bool) (int, error) {
	first := -1
	for i, id := range d.scan.ComponentIDs {
		idx := slices.Index(d.header.ComponentIDs, id)
		switch {
		case idx < 0:
			return 0, fmt.Errorf("%w: scan component id %d not in frame", ErrInvalidEncodedData, id)
		case done[idx]:
			return 0, fmt.Errorf("%w: component id %d coded twice", ErrInvalidEncodedData, id)
		case i == 0:
			first = idx
		case idx != first+i:
			return 0, fmt.Errorf("%w: scan components %v out of frame order", ErrParameterValueNotSupported, d.scan.ComponentIDs)
		}
		done[idx] = true
	}
	return first, nil
}

// Image converts the samples to the closest image type: Gray/Gray16 for
// one component, RGBA/RGBA64 for three and NRGBA/NRGBA64 for four.
func (f *Frame) Image() (image.Image, error) {
	info := f.Info
	rect := image.Rect(0, 0, info.Width, info.Height)
	n := info.Width * info.Height
	wide := info.BitsPerSample > 8
	s := f.Samples

	switch info.ComponentCount {
	case 1:
		if !wide {
			img := image.NewGray(rect)
			for i := 0; i < n; i++ {
				img.Pix[i] = uint8(s[i])
			}
			return img, nil
		}
		img := image.NewGray16(rect)
		for i := 0; i < n; i++ {
			img.Pix[2*i] = uint8(s[i] >> 8)
			img.Pix[2*i+1] = uint8(s[i])
		}
		return img, nil
	case 3:
		if !wide {
			img := image.NewRGBA(rect)
			for i := 0; i < n; i++ {
				copy(img.Pix[4*i:], []uint8{uint8(s[3*i]), uint8(s[3*i+1]), uint8(s[3*i+2]), 0xFF})
			}
			return img, nil
		}
		img := image.NewRGBA64(rect)
		for i := 0; i < n; i++ {
			img.SetRGBA64(i%info.Width, i/info.Width, color.RGBA64{R: s[3*i], G: s[3*i+1], B: s[3*i+2], A: 0xFFFF})
		}
		return img, nil
	case 4:
		if !wide {
			img := image.NewNRGBA(rect)
			for i := 0; i < n; i++ {
				copy(img.Pix[4*i:], []uint8{uint8(s[4*i]), uint8(s[4*i+1]), uint8(s[4*i+2]), uint8(s[4*i+3])})
			}
			return img, nil
		}
		img := image.NewNRGBA64(rect)
		for i := 0; i < n; i++ {
			img.SetNRGBA64(i%info.Width, i/info.Width, color.NRGBA64{R: s[4*i], G: s[4*i+1], B: s[4*i+2], A: s[4*i+3]})
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: no image type for %d components", ErrParameterValueNotSupported, info.ComponentCount)
}

func colorModel(info FrameInfo) (color.Model, error) {
	wide := info.BitsPerSample > 8
	switch {
	case info.ComponentCount == 1 && wide:
		return color.Gray16Model, nil
	case info.ComponentCount == 1:
		return color.GrayModel, nil
	case info.ComponentCount == 3 && wide:
		return color.RGBA64Model, nil
	case info.ComponentCount == 3:
		return color.RGBAModel, nil
	case info.ComponentCount == 4 && wide:
		return color.NRGBA64Model, nil
	case info.ComponentCount == 4:
		return color.NRGBAModel, nil
	}
	return nil, fmt.Errorf("%w: no colour model for %d components", ErrParameterValueNotSupported, info.ComponentCount)
}
