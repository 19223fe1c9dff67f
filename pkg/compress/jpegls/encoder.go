package jpegls

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
)

// Options for encoding. A nil *Options encodes losslessly with defaults.
type Options struct {
	Near           int                    // Near-lossless parameter (0 = lossless)
	Interleave     InterleaveMode         // ignored for single component frames
	ColorTransform ColorTransformation    // HP1-3, needs line or sample interleave
	Preset         PresetCodingParameters // zero fields select the defaults
	BitsPerSample  int                    // 0 derives it from the image type
	SPIFF          bool                   // write a SPIFF header after SOI
	SpiffEntries   []SpiffEntry           // directory entries, needs SPIFF
	JFIF           *JfifParameters        // write a JFIF APP0 segment after SOI
}

// Validate checks the options against a frame.
func (o *Options) Validate(f FrameInfo) error {
	if err := f.validate(); err != nil {
		return err
	}
	maxVal := 1<<f.BitsPerSample - 1
	if o.Near < 0 || o.Near > MaxNearLossless(maxVal) {
		return fmt.Errorf("%w: near lossless %d", ErrInvalidArgument, o.Near)
	}
	switch {
	case o.Interleave < InterleaveNone || o.Interleave > InterleaveSample:
		return fmt.Errorf("%w: interleave mode %d", ErrInvalidArgument, o.Interleave)
	case o.Interleave != InterleaveNone && f.ComponentCount == 1:
		return fmt.Errorf("%w: interleave mode %s with a single component", ErrInvalidArgument, o.Interleave)
	case o.Interleave != InterleaveNone && f.ComponentCount > maxScanComponents:
		return fmt.Errorf("%w: interleave mode %s with %d components", ErrInvalidArgument, o.Interleave, f.ComponentCount)
	}
	if _, err := o.Preset.Validate(maxVal, o.Near); err != nil {
		return err
	}
	if err := o.validateFileFormat(); err != nil {
		return err
	}
	return validateTransform(o.ColorTransform, f.BitsPerSample, f.ComponentCount, o.Interleave)
}

// validateFileFormat checks the optional SPIFF and JFIF segments. Both must
// directly follow SOI, so only one of them can be written.
func (o *Options) validateFileFormat() error {
	if o.JFIF != nil {
		if o.SPIFF {
			return fmt.Errorf("%w: a stream holds either a SPIFF or a JFIF header", ErrInvalidArgument)
		}
		if err := o.JFIF.validate(); err != nil {
			return err
		}
	}
	if len(o.SpiffEntries) > 0 && !o.SPIFF {
		return fmt.Errorf("%w: spiff directory entries without a SPIFF header", ErrInvalidArgument)
	}
	for _, entry := range o.SpiffEntries {
		if err := entry.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Frame holds raw samples, pixel interleaved and row major.
type Frame struct {
	Info    FrameInfo
	Samples []uint16
}

// NewFrame allocates the samples for info.
func NewFrame(info FrameInfo) *Frame {
	return &Frame{Info: info, Samples: make([]uint16, info.Width*info.Height*info.ComponentCount)}
}

// Encoder encodes JPEG-LS data.
type Encoder struct {
	bw    *BitWriter
	frame FrameInfo
	opts  Options
}

func newEncoder(w io.Writer, f FrameInfo, opts *Options) (*Encoder, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if f.ComponentCount == 1 {
		o.Interleave = InterleaveNone
	}
	if err := o.Validate(f); err != nil {
		return nil, err
	}
	return &Encoder{bw: NewBitWriter(w), frame: f, opts: o}, nil
}

// Encode writes JPEG-LS data to w for the given image.
func Encode(w io.Writer, img image.Image, opts *Options) error {
	f, err := frameFromImage(img, opts)
	if err != nil {
		return err
	}
	return EncodeFrame(w, f, opts)
}

// EncodeFrame writes a complete JPEG-LS stream for f.
func EncodeFrame(w io.Writer, f *Frame, opts *Options) error {
	e, err := newEncoder(w, f.Info, opts)
	if err != nil {
		return err
	}
	comps := f.Info.ComponentCount
	return e.encode(func(first, count int) lineProcessor {
		return newBufferLines(f.Samples, f.Info.Width, comps, first, count)
	})
}

// EncodeStream encodes raw samples read from r: bytes for depths up to 8
// bits, big endian words above. For InterleaveNone the stream holds one
// component plane after another, otherwise interleaved pixels.
func EncodeStream(w io.Writer, r io.Reader, info FrameInfo, opts *Options) error {
	e, err := newEncoder(w, info, opts)
	if err != nil {
		return err
	}
	src := newStreamReaderLines(r, info.BitsPerSample)
	return e.encode(func(int, int) lineProcessor { return src })
}

// EncodeToBuffer encodes f into dst and returns the number of bytes used.
// It fails with ErrDestinationBufferTooSmall when dst cannot hold the stream.
func EncodeToBuffer(dst []byte, f *Frame, opts *Options) (int, error) {
	fw := &fixedWriter{buf: dst}
	if err := EncodeFrame(fw, f, opts); err != nil {
		return 0, err
	}
	return fw.n, nil
}

type fixedWriter struct {
	buf []byte
	n   int
}

func (w *fixedWriter) Write(p []byte) (int, error) {
	c := copy(w.buf[w.n:], p)
	w.n += c
	if c < len(p) {
		return c, fmt.Errorf("%w: %d bytes", ErrDestinationBufferTooSmall, len(w.buf))
	}
	return c, nil
}

// encode writes the stream; lines returns the line processor for a scan
// covering count components starting at component first.
func (e *Encoder) encode(lines func(first, count int) lineProcessor) error {
	f, o := e.frame, e.opts
	slog.Debug("jpegls encode",
		"width", f.Width, "height", f.Height, "bits", f.BitsPerSample,
		"components", f.ComponentCount, "near", o.Near, "interleave", o.Interleave,
		"transform", o.ColorTransform)

	if err := e.writeMarker(MarkerSOI); err != nil {
		return err
	}
	if o.JFIF != nil {
		if err := e.writeJfif(o.JFIF); err != nil {
			return err
		}
	}
	if o.SPIFF {
		if err := e.writeSpiffHeader(NewSpiffHeader(f), o.SpiffEntries); err != nil {
			return err
		}
	}
	if o.ColorTransform != TransformNone {
		if err := e.writeColorTransform(o.ColorTransform); err != nil {
			return err
		}
	}
	if !o.Preset.IsDefault(1<<f.BitsPerSample-1, o.Near) {
		if err := e.writePresetParameters(o.Preset); err != nil {
			return err
		}
	}
	if err := e.writeStartOfFrame(f); err != nil {
		return err
	}

	params := ScanParams{
		Width:         f.Width,
		Height:        f.Height,
		BitsPerSample: f.BitsPerSample,
		Interleave:    o.Interleave,
		NearLossless:  o.Near,
		Preset:        o.Preset,
	}
	componentID := 1
	var err error
	if o.Interleave == InterleaveNone {
		params.ComponentCount = 1
		for c := 0; c < f.ComponentCount; c++ {
			if componentID, err = e.writeStartOfScan(componentID, 1, o.Near, o.Interleave); err != nil {
				return err
			}
			if _, err := encodeScan(e.bw, params, lines(c, 1)); err != nil {
				return fmt.Errorf("component %d: %w", c, err)
			}
		}
	} else {
		params.ComponentCount = f.ComponentCount
		if _, err = e.writeStartOfScan(componentID, f.ComponentCount, o.Near, o.Interleave); err != nil {
			return err
		}
		lp := newLineProcessor(lines(0, f.ComponentCount), o.ColorTransform, f.BitsPerSample, f.ComponentCount)
		if _, err := encodeScan(e.bw, params, lp); err != nil {
			return err
		}
	}

	if err := e.writeMarker(MarkerEOI); err != nil {
		return err
	}
	return e.bw.w.Flush()
}

// frameFromImage copies the samples of img. Gray images give one
// component, anything else three (RGB) or four (RGBA for non opaque NRGBA).
func frameFromImage(img image.Image, opts *Options) (*Frame, error) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: image dimensions %dx%d", ErrInvalidArgument, width, height)
	}
	bits := 8
	if opts != nil && opts.BitsPerSample != 0 {
		bits = opts.BitsPerSample
	}

	var f *Frame
	switch m := img.(type) {
	case *image.Gray:
		f = NewFrame(FrameInfo{width, height, bits, 1})
		for y := 0; y < height; y++ {
			row := m.Pix[m.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < width; x++ {
				f.Samples[y*width+x] = uint16(row[x])
			}
		}
	case *image.Gray16:
		if opts == nil || opts.BitsPerSample == 0 {
			bits = 16
		}
		f = NewFrame(FrameInfo{width, height, bits, 1})
		for y := 0; y < height; y++ {
			row := m.Pix[m.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < width; x++ {
				f.Samples[y*width+x] = uint16(row[2*x])<<8 | uint16(row[2*x+1])
			}
		}
	case *image.RGBA:
		f = NewFrame(FrameInfo{width, height, bits, 3})
		for y := 0; y < height; y++ {
			row := m.Pix[m.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < width; x++ {
				i := (y*width + x) * 3
				f.Samples[i] = uint16(row[4*x])
				f.Samples[i+1] = uint16(row[4*x+1])
				f.Samples[i+2] = uint16(row[4*x+2])
			}
		}
	case *image.NRGBA:
		comps := 3
		if !m.Opaque() {
			comps = 4
		}
		f = NewFrame(FrameInfo{width, height, bits, comps})
		for y := 0; y < height; y++ {
			row := m.Pix[m.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < width; x++ {
				for c := 0; c < comps; c++ {
					f.Samples[(y*width+x)*comps+c] = uint16(row[4*x+c])
				}
			}
		}
	case *image.RGBA64:
		if opts == nil || opts.BitsPerSample == 0 {
			bits = 16
		}
		f = NewFrame(FrameInfo{width, height, bits, 3})
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := m.RGBA64At(b.Min.X+x, b.Min.Y+y)
				i := (y*width + x) * 3
				f.Samples[i], f.Samples[i+1], f.Samples[i+2] = c.R, c.G, c.B
			}
		}
	default:
		f = NewFrame(FrameInfo{width, height, bits, 3})
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				i := (y*width + x) * 3
				f.Samples[i], f.Samples[i+1], f.Samples[i+2] = uint16(c.R), uint16(c.G), uint16(c.B)
			}
		}
	}
	return f, nil
}
