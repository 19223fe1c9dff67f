package jpegls

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// SPIFF (ISO/IEC 10918-3 Annex F) header fields as written in the APP8 segment.
const (
	spiffMagic                = "SPIFF\x00"
	spiffMajorVersion         = 2
	spiffMinorVersion         = 0
	spiffHeaderSize           = 30 // segment data size
	spiffEndOfDirectoryType   = 1
	spiffEndOfDirectorySize   = 6 // entry type + the dummy SOI
	spiffCompressionJpegLS    = 6
	spiffResolutionAspectOnly = 0
)

// SpiffColorSpace is the colour space field of a SPIFF header.
type SpiffColorSpace int

const (
	SpiffColorSpaceNone      SpiffColorSpace = 0
	SpiffColorSpaceYCbCr709  SpiffColorSpace = 1
	SpiffColorSpaceYCbCr601  SpiffColorSpace = 3
	SpiffColorSpaceGrayscale SpiffColorSpace = 8
	SpiffColorSpacePhotoYCC  SpiffColorSpace = 9
	SpiffColorSpaceRGB       SpiffColorSpace = 10
	SpiffColorSpaceCMY       SpiffColorSpace = 11
	SpiffColorSpaceCMYK      SpiffColorSpace = 12
)

// SpiffHeader is the optional SPIFF file header that may follow SOI.
type SpiffHeader struct {
	ProfileID            int
	ComponentCount       int
	Height               int
	Width                int
	ColorSpace           SpiffColorSpace
	BitsPerSample        int
	CompressionType      int
	ResolutionUnits      int
	VerticalResolution   int
	HorizontalResolution int
}

// NewSpiffHeader returns the SPIFF header written for a frame.
func NewSpiffHeader(f FrameInfo) *SpiffHeader {
	cs := SpiffColorSpaceNone
	switch f.ComponentCount {
	case 1:
		cs = SpiffColorSpaceGrayscale
	case 3:
		cs = SpiffColorSpaceRGB
	}
	return &SpiffHeader{
		ComponentCount:       f.ComponentCount,
		Height:               f.Height,
		Width:                f.Width,
		ColorSpace:           cs,
		BitsPerSample:        f.BitsPerSample,
		CompressionType:      spiffCompressionJpegLS,
		ResolutionUnits:      spiffResolutionAspectOnly,
		VerticalResolution:   1,
		HorizontalResolution: 1,
	}
}

func (h *SpiffHeader) marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(spiffMagic)
	buf.WriteByte(spiffMajorVersion)
	buf.WriteByte(spiffMinorVersion)
	buf.WriteByte(byte(h.ProfileID))
	buf.WriteByte(byte(h.ComponentCount))
	binary.Write(&buf, binary.BigEndian, uint32(h.Height))
	binary.Write(&buf, binary.BigEndian, uint32(h.Width))
	buf.WriteByte(byte(h.ColorSpace))
	buf.WriteByte(byte(h.BitsPerSample))
	buf.WriteByte(byte(h.CompressionType))
	buf.WriteByte(byte(h.ResolutionUnits))
	binary.Write(&buf, binary.BigEndian, uint32(h.VerticalResolution))
	binary.Write(&buf, binary.BigEndian, uint32(h.HorizontalResolution))
	return buf.Bytes()
}

// parseSpiffHeader returns nil when data is not a version 2 SPIFF header.
func parseSpiffHeader(data []byte) *SpiffHeader {
	if len(data) != spiffHeaderSize || string(data[:6]) != spiffMagic || data[6] != spiffMajorVersion {
		return nil
	}
	return &SpiffHeader{
		ProfileID:            int(data[8]),
		ComponentCount:       int(data[9]),
		Height:               int(binary.BigEndian.Uint32(data[10:])),
		Width:                int(binary.BigEndian.Uint32(data[14:])),
		ColorSpace:           SpiffColorSpace(data[18]),
		BitsPerSample:        int(data[19]),
		CompressionType:      int(data[20]),
		ResolutionUnits:      int(data[21]),
		VerticalResolution:   int(binary.BigEndian.Uint32(data[22:])),
		HorizontalResolution: int(binary.BigEndian.Uint32(data[26:])),
	}
}

// SpiffEntryTag identifies a SPIFF directory entry (ISO/IEC 10918-3 Table F.5).
type SpiffEntryTag uint32

const (
	SpiffTagTransferCharacteristics SpiffEntryTag = 2
	SpiffTagComponentRegistration   SpiffEntryTag = 3
	SpiffTagImageOrientation        SpiffEntryTag = 4
	SpiffTagThumbnail               SpiffEntryTag = 5
	SpiffTagImageTitle              SpiffEntryTag = 6
	SpiffTagImageDescription        SpiffEntryTag = 7
	SpiffTagTimeStamp               SpiffEntryTag = 8
	SpiffTagVersionIdentifier       SpiffEntryTag = 9
	SpiffTagCreatorIdentification   SpiffEntryTag = 10
	SpiffTagProtectionIndicator     SpiffEntryTag = 11
	SpiffTagCopyrightInformation    SpiffEntryTag = 12
	SpiffTagContactInformation      SpiffEntryTag = 13
	SpiffTagTileIndex               SpiffEntryTag = 14
	SpiffTagScanIndex               SpiffEntryTag = 15
	SpiffTagSetReference            SpiffEntryTag = 16
)

const maxSpiffEntrySize = 65528

// SpiffEntry is a directory entry written between the SPIFF header and the
// end of directory.
type SpiffEntry struct {
	Tag  SpiffEntryTag
	Data []byte
}

func (e SpiffEntry) validate() error {
	switch {
	case e.Tag == spiffEndOfDirectoryType:
		return fmt.Errorf("%w: spiff entry tag %d is the end of directory", ErrInvalidArgument, e.Tag)
	case len(e.Data) > maxSpiffEntrySize:
		return fmt.Errorf("%w: spiff entry of %d bytes", ErrInvalidArgument, len(e.Data))
	}
	return nil
}

func (e SpiffEntry) marshal() []byte {
	return append(binary.BigEndian.AppendUint32(nil, uint32(e.Tag)), e.Data...)
}

// spiffEndOfDirectory is the directory entry that closes the SPIFF header.
// It embeds an SOI marker as recommended by ISO/IEC 14495-1 Annex F.2.
var spiffEndOfDirectory = []byte{0, 0, 0, spiffEndOfDirectoryType, 0xFF, 0xD8}
