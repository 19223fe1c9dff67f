package dicom

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Item tags of encapsulated pixel data, as (group<<16 | element).
const (
	itemTag         uint32 = 0xFFFEE000
	seqDelimiterTag uint32 = 0xFFFEE0DD
)

// ErrMalformedItems is returned when encapsulated pixel data is not a
// sequence of items.
var ErrMalformedItems = errors.New("dicom: malformed encapsulated pixel data")

// EncapsulateFrames builds the value of an encapsulated Pixel Data element:
// a Basic Offset Table item, one item per frame padded to even length and
// a sequence delimiter. Single frame data gets an empty offset table.
func EncapsulateFrames(frames [][]byte) []byte {
	var offsets []uint32
	if len(frames) > 1 {
		var off uint32
		for _, f := range frames {
			offsets = append(offsets, off)
			off += 8 + uint32(len(f)+len(f)%2)
		}
	}

	buf := appendItemHeader(nil, itemTag, uint32(4*len(offsets)))
	for _, off := range offsets {
		buf = binary.LittleEndian.AppendUint32(buf, off)
	}
	for _, f := range frames {
		buf = appendItemHeader(buf, itemTag, uint32(len(f)+len(f)%2))
		buf = append(buf, f...)
		if len(f)%2 != 0 {
			buf = append(buf, 0)
		}
	}
	return appendItemHeader(buf, seqDelimiterTag, 0)
}

// tags are written group first, each half little endian
func appendItemHeader(buf []byte, tag, length uint32) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(tag>>16))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(tag))
	return binary.LittleEndian.AppendUint32(buf, length)
}

func readItemHeader(data []byte) (uint32, uint32) {
	tag := uint32(binary.LittleEndian.Uint16(data))<<16 | uint32(binary.LittleEndian.Uint16(data[2:]))
	return tag, binary.LittleEndian.Uint32(data[4:])
}

// ExtractFrames splits the value of an encapsulated Pixel Data element into
// frames. It assumes one fragment per frame, which is what JPEG-LS writers
// produce; the offset table is skipped.
func ExtractFrames(data []byte) ([][]byte, error) {
	var frames [][]byte
	first := true
	for pos := 0; pos < len(data); {
		if pos+8 > len(data) {
			return nil, fmt.Errorf("%w: truncated item header at byte %d", ErrMalformedItems, pos)
		}
		tag, length := readItemHeader(data[pos:])
		pos += 8
		switch {
		case tag == seqDelimiterTag:
			return frames, nil
		case tag != itemTag:
			return nil, fmt.Errorf("%w: tag %08X at byte %d", ErrMalformedItems, tag, pos-8)
		case uint64(pos)+uint64(length) > uint64(len(data)):
			return nil, fmt.Errorf("%w: item of %d bytes at byte %d", ErrMalformedItems, length, pos-8)
		}
		if !first {
			frames = append(frames, data[pos:pos+int(length)])
		}
		first = false
		pos += int(length)
	}
	return frames, nil
}
