package jpegls

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"
)

const (
	jfifMagic      = "JFIF\x00"
	jfifHeaderSize = 14 // segment data size without the thumbnail

	// JfifVersion102 is JFIF 1.02, the version this package writes by default.
	JfifVersion102 = 0x0102
)

// JFIF density units.
const (
	JfifUnitsAspectRatio = 0
	JfifUnitsDotsPerInch = 1
	JfifUnitsDotsPerCm   = 2
)

// JfifParameters is the APP0 segment of the JPEG File Interchange Format.
// Thumbnail holds ThumbnailWidth*ThumbnailHeight packed RGB pixels.
type JfifParameters struct {
	Version         int
	Units           int
	XDensity        int
	YDensity        int
	ThumbnailWidth  int
	ThumbnailHeight int
	Thumbnail       []byte
}

// NewJfifParameters returns a JFIF 1.02 segment with a square pixel aspect.
func NewJfifParameters() *JfifParameters {
	return &JfifParameters{Version: JfifVersion102, Units: JfifUnitsAspectRatio, XDensity: 1, YDensity: 1}
}

func (p *JfifParameters) validate() error {
	switch {
	case p.Version < 0x0100 || p.Version > 0xFFFF:
		return fmt.Errorf("%w: jfif version %04X", ErrInvalidArgument, p.Version)
	case p.Units < JfifUnitsAspectRatio || p.Units > JfifUnitsDotsPerCm:
		return fmt.Errorf("%w: jfif units %d", ErrInvalidArgument, p.Units)
	case p.XDensity < 1 || p.XDensity > 0xFFFF || p.YDensity < 1 || p.YDensity > 0xFFFF:
		return fmt.Errorf("%w: jfif density %dx%d", ErrInvalidArgument, p.XDensity, p.YDensity)
	case p.ThumbnailWidth < 0 || p.ThumbnailWidth > 255 || p.ThumbnailHeight < 0 || p.ThumbnailHeight > 255:
		return fmt.Errorf("%w: jfif thumbnail %dx%d", ErrInvalidArgument, p.ThumbnailWidth, p.ThumbnailHeight)
	case len(p.Thumbnail) != 3*p.ThumbnailWidth*p.ThumbnailHeight:
		return fmt.Errorf("%w: jfif thumbnail of %d bytes for %dx%d", ErrInvalidArgument,
			len(p.Thumbnail), p.ThumbnailWidth, p.ThumbnailHeight)
	case jfifHeaderSize+len(p.Thumbnail)+2 > maxSegmentLength:
		return fmt.Errorf("%w: jfif thumbnail of %d bytes does not fit a segment", ErrInvalidArgument, len(p.Thumbnail))
	}
	return nil
}

func (p *JfifParameters) marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(jfifMagic)
	binary.Write(&buf, binary.BigEndian, uint16(p.Version))
	buf.WriteByte(byte(p.Units))
	binary.Write(&buf, binary.BigEndian, uint16(p.XDensity))
	binary.Write(&buf, binary.BigEndian, uint16(p.YDensity))
	buf.WriteByte(byte(p.ThumbnailWidth))
	buf.WriteByte(byte(p.ThumbnailHeight))
	buf.Write(p.Thumbnail)
	return buf.Bytes()
}

// parseJfif returns nil when data is not a JFIF APP0 segment. A thumbnail
// that does not match its declared size is dropped.
func parseJfif(data []byte) *JfifParameters {
	if len(data) < jfifHeaderSize || string(data[:5]) != jfifMagic {
		return nil
	}
	p := &JfifParameters{
		Version:         int(binary.BigEndian.Uint16(data[5:])),
		Units:           int(data[7]),
		XDensity:        int(binary.BigEndian.Uint16(data[8:])),
		YDensity:        int(binary.BigEndian.Uint16(data[10:])),
		ThumbnailWidth:  int(data[12]),
		ThumbnailHeight: int(data[13]),
	}
	if n := 3 * p.ThumbnailWidth * p.ThumbnailHeight; n > 0 && len(data) == jfifHeaderSize+n {
		p.Thumbnail = slices.Clone(data[jfifHeaderSize:])
	} else {
		p.ThumbnailWidth, p.ThumbnailHeight = 0, 0
	}
	return p
}
