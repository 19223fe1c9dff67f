package jpegls

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// lineProcessor moves one line of samples between the caller's pixels and
// the scan driver. Lines handed over are pixel interleaved for the
// components of the scan.
type lineProcessor interface {
	newLineRequested(dst []int) error
	newLineDecoded(src []int) error
}

// bufferLines reads and writes lines in a []uint16 holding pixels of
// pixelStride samples. A scan takes count samples per pixel, starting at
// sample first, so a planar scan of an interleaved frame uses count 1.
type bufferLines struct {
	samples     []uint16
	width       int
	pixelStride int
	first       int
	count       int
	pos         int // first sample of the next line
}

func newBufferLines(samples []uint16, width, pixelStride, first, count int) *bufferLines {
	return &bufferLines{samples: samples, width: width, pixelStride: pixelStride, first: first, count: count}
}

func (b *bufferLines) lineLen() int {
	return b.width * b.pixelStride
}

func (b *bufferLines) newLineRequested(dst []int) error {
	if b.pos+b.lineLen() > len(b.samples) {
		return fmt.Errorf("%w: %d samples, need %d", ErrSourceBufferTooSmall, len(b.samples), b.pos+b.lineLen())
	}
	for x := 0; x < b.width; x++ {
		px := b.samples[b.pos+x*b.pixelStride+b.first:]
		for c := 0; c < b.count; c++ {
			dst[x*b.count+c] = int(px[c])
		}
	}
	b.pos += b.lineLen()
	return nil
}

func (b *bufferLines) newLineDecoded(src []int) error {
	if b.pos+b.lineLen() > len(b.samples) {
		return fmt.Errorf("%w: %d samples, need %d", ErrDestinationBufferTooSmall, len(b.samples), b.pos+b.lineLen())
	}
	for x := 0; x < b.width; x++ {
		px := b.samples[b.pos+x*b.pixelStride+b.first:]
		for c := 0; c < b.count; c++ {
			px[c] = uint16(src[x*b.count+c])
		}
	}
	b.pos += b.lineLen()
	return nil
}

// streamLines reads lines from, or writes them to, a raw stream of 8-bit
// samples or big endian 16-bit samples (the PGM/PPM "raw" layout).
type streamLines struct {
	r              io.Reader
	w              io.Writer
	bytesPerSample int
	buf            []byte
}

func newStreamReaderLines(r io.Reader, bitsPerSample int) *streamLines {
	return &streamLines{r: r, bytesPerSample: bytesPerSample(bitsPerSample)}
}

func newStreamWriterLines(w io.Writer, bitsPerSample int) *streamLines {
	return &streamLines{w: w, bytesPerSample: bytesPerSample(bitsPerSample)}
}

func bytesPerSample(bitsPerSample int) int {
	if bitsPerSample > 8 {
		return 2
	}
	return 1
}

func (s *streamLines) buffer(n int) []byte {
	if cap(s.buf) < n*s.bytesPerSample {
		s.buf = make([]byte, n*s.bytesPerSample)
	}
	return s.buf[:n*s.bytesPerSample]
}

func (s *streamLines) newLineRequested(dst []int) error {
	buf := s.buffer(len(dst))
	if _, err := io.ReadFull(s.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %v", ErrSourceBufferTooSmall, err)
		}
		return err
	}
	for i := range dst {
		if s.bytesPerSample == 2 {
			dst[i] = int(binary.BigEndian.Uint16(buf[2*i:]))
		} else {
			dst[i] = int(buf[i])
		}
	}
	return nil
}

func (s *streamLines) newLineDecoded(src []int) error {
	buf := s.buffer(len(src))
	for i, v := range src {
		if s.bytesPerSample == 2 {
			binary.BigEndian.PutUint16(buf[2*i:], uint16(v))
		} else {
			buf[i] = byte(v)
		}
	}
	if _, err := s.w.Write(buf); err != nil {
		if errors.Is(err, io.ErrShortWrite) {
			return fmt.Errorf("%w: %v", ErrDestinationBufferTooSmall, err)
		}
		return err
	}
	return nil
}

// transformedLines applies a colour transform between the caller's RGB(A)
// pixels and the coded components.
type transformedLines struct {
	inner         lineProcessor
	transform     ColorTransformation
	bitsPerSample int
	components    int
}

func (t *transformedLines) newLineRequested(dst []int) error {
	if err := t.inner.newLineRequested(dst); err != nil {
		return err
	}
	for i := 0; i+t.components <= len(dst); i += t.components {
		t.transform.forward(dst[i:i+3], t.bitsPerSample)
	}
	return nil
}

func (t *transformedLines) newLineDecoded(src []int) error {
	for i := 0; i+t.components <= len(src); i += t.components {
		t.transform.inverse(src[i:i+3], t.bitsPerSample)
	}
	return t.inner.newLineDecoded(src)
}

// newLineProcessor wraps lp in a transform when one is set. The variant is
// picked once per scan.
func newLineProcessor(lp lineProcessor, c ColorTransformation, bitsPerSample, components int) lineProcessor {
	if c == TransformNone {
		return lp
	}
	return &transformedLines{inner: lp, transform: c, bitsPerSample: bitsPerSample, components: components}
}
