package jpegls

import (
	"bufio"
	"fmt"
	"io"
)

// BitWriter packs bits MSB first into JPEG-LS entropy coded bytes.
// After a 0xFF byte the next byte carries only seven data bits: its high
// bit is a stuffed zero, so the coded data can never form a marker.
type BitWriter struct {
	w         *bufio.Writer
	bits      uint64 // pending bits, right aligned
	nBits     int
	ffWritten bool
	written   int64 // bits accepted by WriteBits
}

// NewBitWriter creates a new BitWriter.
func NewBitWriter(w io.Writer) *BitWriter {
	var bw *bufio.Writer
	if b, ok := w.(*bufio.Writer); ok {
		bw = b
	} else {
		bw = bufio.NewWriter(w)
	}
	return &BitWriter{w: bw}
}

// WriteBits writes the n (<= 32) low order bits of val.
func (bw *BitWriter) WriteBits(val uint32, n int) error {
	if n == 0 {
		return nil
	}
	bw.bits = bw.bits<<n | uint64(val)&(uint64(1)<<n-1)
	bw.nBits += n
	bw.written += int64(n)
	for {
		width := 8
		if bw.ffWritten {
			width = 7
		}
		if bw.nBits < width {
			return nil
		}
		bw.nBits -= width
		b := byte(bw.bits >> bw.nBits)
		bw.bits &= uint64(1)<<bw.nBits - 1
		if err := bw.w.WriteByte(b); err != nil {
			return err
		}
		bw.ffWritten = b == 0xFF
	}
}

// writeZeros writes n zero bits, n may exceed 32.
func (bw *BitWriter) writeZeros(n int) error {
	for n > 0 {
		c := min(n, 24)
		if err := bw.WriteBits(0, c); err != nil {
			return err
		}
		n -= c
	}
	return nil
}

// EndScan pads the last byte with zero bits. A scan that ends in 0xFF gets
// a trailing zero byte so the next marker is not mistaken for data.
func (bw *BitWriter) EndScan() error {
	if bw.nBits > 0 {
		width := 8
		if bw.ffWritten {
			width = 7
		}
		pad := width - bw.nBits
		if err := bw.WriteBits(0, pad); err != nil {
			return err
		}
		bw.written -= int64(pad)
	}
	if bw.ffWritten {
		if err := bw.w.WriteByte(0); err != nil {
			return err
		}
		bw.ffWritten = false
	}
	return nil
}

// Flush ends the scan and flushes the buffered writer.
func (bw *BitWriter) Flush() error {
	if err := bw.EndScan(); err != nil {
		return err
	}
	return bw.w.Flush()
}

// BitReader reads bits from a JPEG-LS entropy coded segment held in memory.
// It stops at the first marker (0xFF followed by a byte with its high bit
// set) and never consumes it.
type BitReader struct {
	data   []byte
	pos    int    // next byte to load
	cache  uint64 // valid bits, right aligned
	valid  int
	ffRead bool // last loaded byte was 0xFF
}

// NewBitReader creates a BitReader over data.
func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

// fill loads whole bytes until the cache holds more than 56 bits or the
// segment ends.
func (br *BitReader) fill() {
	for br.valid <= 56 && br.pos < len(br.data) {
		b := br.data[br.pos]
		if b == 0xFF && (br.pos+1 == len(br.data) || br.data[br.pos+1]&0x80 != 0) {
			return
		}
		width := 8
		if br.ffRead {
			width = 7
		}
		br.cache = br.cache<<width | uint64(b)&(uint64(1)<<width-1)
		br.valid += width
		br.ffRead = b == 0xFF
		br.pos++
	}
}

// ReadBits reads n bits (up to 32).
func (br *BitReader) ReadBits(n int) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if br.valid < n {
		br.fill()
		if br.valid < n {
			return 0, fmt.Errorf("%w: reading %d bits at byte %d", ErrSourceBufferTooSmall, n, br.pos)
		}
	}
	br.valid -= n
	val := br.cache >> br.valid
	br.cache &= uint64(1)<<br.valid - 1
	return uint32(val), nil
}

// ReadBit reads a single bit.
func (br *BitReader) ReadBit() (bool, error) {
	v, err := br.ReadBits(1)
	return v == 1, err
}

// PeekByte returns the next 8 bits without consuming them, padding with
// zero bits at the end of the segment.
func (br *BitReader) PeekByte() byte {
	if br.valid < 8 {
		br.fill()
		if br.valid < 8 {
			return byte(br.cache << (8 - br.valid))
		}
	}
	return byte(br.cache >> (br.valid - 8))
}

// Skip consumes n bits.
func (br *BitReader) Skip(n int) error {
	_, err := br.ReadBits(n)
	return err
}

// readHighBits counts zero bits up to the terminating one bit. More than
// maxZeros zero bits is invalid data.
func (br *BitReader) readHighBits(maxZeros int) (int, error) {
	count := 0
	for {
		bit, err := br.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit {
			return count, nil
		}
		count++
		if count > maxZeros {
			return 0, fmt.Errorf("%w: golomb prefix longer than %d bits", ErrInvalidEncodedData, maxZeros)
		}
	}
}

// EndScan checks that only padding is left before the next marker.
func (br *BitReader) EndScan() error {
	br.fill()
	if br.valid >= 8 || (br.pos < len(br.data) && br.data[br.pos] != 0xFF) {
		return fmt.Errorf("%w: at byte %d", ErrTooMuchEncodedData, br.pos)
	}
	br.valid = 0
	br.cache = 0
	return nil
}

// Position is the number of bytes consumed so far, including any bytes
// held in the bit cache.
func (br *BitReader) Position() int {
	return br.pos
}
