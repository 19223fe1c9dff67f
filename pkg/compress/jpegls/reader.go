package jpegls

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"
)

// Header is everything a JPEG-LS stream declares before its first scan.
type Header struct {
	Frame        FrameInfo
	ComponentIDs []int
	Preset       PresetCodingParameters // as signalled, zero fields select defaults
	Transform    ColorTransformation
	Spiff        *SpiffHeader
	SpiffEntries []SpiffEntry // directory entries before the end of directory
	JFIF         *JfifParameters
	NearLossless int            // of the first scan
	Interleave   InterleaveMode // of the first scan
}

type readState int

const (
	stateBeforeStartOfImage readState = iota
	stateHeaderSection
	stateSpiffSection
	stateFrameSection
	stateScanSection
)

// Decoder walks the marker segments of a JPEG-LS stream held in memory.
type Decoder struct {
	data     []byte
	pos      int
	state    readState
	segments int // segments read after SOI
	header   Header
	scan     ScanHeader
	sofFound bool
}

// NewDecoder creates a Decoder over a complete JPEG-LS stream.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// ReadHeader parses the segments up to and including the first SOS.
func ReadHeader(data []byte) (*Header, error) {
	d := NewDecoder(data)
	if err := d.readHeader(); err != nil {
		return nil, err
	}
	return &d.header, nil
}

func (d *Decoder) readByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, fmt.Errorf("%w: at byte %d", ErrSourceBufferTooSmall, d.pos)
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) readWord() (int, error) {
	if d.pos+2 > len(d.data) {
		return 0, fmt.Errorf("%w: at byte %d", ErrSourceBufferTooSmall, d.pos)
	}
	v := int(binary.BigEndian.Uint16(d.data[d.pos:]))
	d.pos += 2
	return v, nil
}

// readMarker reads the next marker, skipping fill bytes.
func (d *Decoder) readMarker() (int, error) {
	b, err := d.readByte()
	if err != nil {
		return 0, err
	}
	if b != MarkerStart {
		return 0, fmt.Errorf("%w: found %02X at byte %d", ErrJpegMarkerStartByteNotFound, b, d.pos-1)
	}
	for {
		b, err = d.readByte()
		if err != nil {
			return 0, err
		}
		if b != MarkerStart {
			return 0xFF00 | int(b), nil
		}
	}
}

// readSegment returns the data of the segment that follows a marker.
func (d *Decoder) readSegment(marker int) ([]byte, error) {
	length, err := d.readWord()
	if err != nil {
		return nil, err
	}
	if length < 2 {
		return nil, fmt.Errorf("%w: %04X length %d", ErrInvalidMarkerSegmentSize, marker, length)
	}
	if d.pos+length-2 > len(d.data) {
		return nil, fmt.Errorf("%w: %04X segment of %d bytes", ErrSourceBufferTooSmall, marker, length)
	}
	seg := d.data[d.pos : d.pos+length-2]
	d.pos += length - 2
	return seg, nil
}

func (d *Decoder) readHeader() error {
	marker, err := d.readMarker()
	if err != nil {
		return err
	}
	if marker != MarkerSOI {
		return fmt.Errorf("%w: found %04X", ErrStartOfImageMarkerNotFound, marker)
	}
	d.state = stateHeaderSection
	return d.readUntilScan()
}

// readUntilScan reads segments up to the next SOS and parses it.
func (d *Decoder) readUntilScan() error {
	for {
		marker, err := d.readMarker()
		if err != nil {
			return err
		}
		switch marker {
		case MarkerSOI:
			return ErrDuplicateStartOfImageMarker
		case MarkerEOI:
			return ErrUnexpectedEndOfImageMarker
		}

		seg, err := d.readSegment(marker)
		if err != nil {
			return err
		}
		d.segments++

		if d.state == stateSpiffSection {
			if err := d.readSpiffDirectoryEntry(marker, seg); err != nil {
				return err
			}
			continue
		}

		switch {
		case marker == MarkerSOS:
			if !d.sofFound {
				return ErrStartOfFrameMarkerNotFound
			}
			return d.readSOS(seg)
		case marker == MarkerSOF55:
			if err := d.readSOF(seg); err != nil {
				return err
			}
		case marker == MarkerSOF57, isOtherStartOfFrame(marker):
			return fmt.Errorf("%w: start of frame %04X", ErrEncodingNotSupported, marker)
		case marker == MarkerLSE:
			if err := d.readLSE(seg); err != nil {
				return err
			}
		case marker == MarkerAPP8:
			d.readAPP8(seg)
		case marker == MarkerAPP0:
			if p := parseJfif(seg); p != nil {
				d.header.JFIF = p
			}
		case marker >= MarkerAPP0 && marker <= MarkerAPP15, marker == MarkerCOM:
			// skipped
		case marker == MarkerDRI, marker == MarkerDNL:
			return fmt.Errorf("%w: marker %04X", ErrParameterValueNotSupported, marker)
		default:
			return fmt.Errorf("%w: %04X", ErrUnknownJpegMarkerFound, marker)
		}
	}
}

func isOtherStartOfFrame(marker int) bool {
	return marker >= MarkerSOF0 && marker <= MarkerSOF15 &&
		marker != MarkerDHT && marker != MarkerJPG && marker != MarkerDAC
}

func (d *Decoder) readAPP8(seg []byte) {
	switch {
	case d.segments == 1 && d.state == stateHeaderSection && bytes.HasPrefix(seg, []byte(spiffMagic)):
		if h := parseSpiffHeader(seg); h != nil {
			d.header.Spiff = h
			d.state = stateSpiffSection
		}
	case len(seg) == 5 && bytes.HasPrefix(seg, []byte("mrfx")):
		d.header.Transform = ColorTransformation(seg[4])
	}
}

func (d *Decoder) readSpiffDirectoryEntry(marker int, seg []byte) error {
	if marker != MarkerAPP8 {
		return fmt.Errorf("%w: found %04X", ErrMissingEndOfSpiffDirectory, marker)
	}
	if len(seg) < 4 {
		return fmt.Errorf("%w: spiff directory entry of %d bytes", ErrInvalidMarkerSegmentSize, len(seg))
	}
	if binary.BigEndian.Uint32(seg) == spiffEndOfDirectoryType {
		if len(seg) != spiffEndOfDirectorySize {
			return fmt.Errorf("%w: spiff end of directory of %d bytes", ErrInvalidMarkerSegmentSize, len(seg))
		}
		d.state = stateFrameSection
		return nil
	}
	d.header.SpiffEntries = append(d.header.SpiffEntries, SpiffEntry{
		Tag:  SpiffEntryTag(binary.BigEndian.Uint32(seg)),
		Data: slices.Clone(seg[4:]),
	})
	return nil
}

func (d *Decoder) readSOF(seg []byte) error {
	if d.sofFound {
		return ErrDuplicateStartOfFrameMarker
	}
	if len(seg) < 6 {
		return fmt.Errorf("%w: start of frame of %d bytes", ErrInvalidMarkerSegmentSize, len(seg))
	}
	f := FrameInfo{
		BitsPerSample:  int(seg[0]),
		Height:         int(binary.BigEndian.Uint16(seg[1:])),
		Width:          int(binary.BigEndian.Uint16(seg[3:])),
		ComponentCount: int(seg[5]),
	}
	switch {
	case f.BitsPerSample < MinBitsPerSample || f.BitsPerSample > MaxBitsPerSample:
		return fmt.Errorf("%w: %d", ErrInvalidParameterBitsPerSample, f.BitsPerSample)
	case f.Height < 1:
		return fmt.Errorf("%w: %d", ErrInvalidParameterHeight, f.Height)
	case f.Width < 1:
		return fmt.Errorf("%w: %d", ErrInvalidParameterWidth, f.Width)
	case f.ComponentCount < 1:
		return fmt.Errorf("%w: %d", ErrInvalidParameterComponentCount, f.ComponentCount)
	}
	if len(seg) != 6+3*f.ComponentCount {
		return fmt.Errorf("%w: start of frame of %d bytes for %d components", ErrInvalidMarkerSegmentSize, len(seg), f.ComponentCount)
	}

	ids := make([]int, 0, f.ComponentCount)
	for i := 0; i < f.ComponentCount; i++ {
		id := int(seg[6+3*i])
		if slices.Contains(ids, id) {
			return fmt.Errorf("%w: %d", ErrDuplicateComponentIDInSOFSegment, id)
		}
		ids = append(ids, id)
	}
	d.header.Frame = f
	d.header.ComponentIDs = ids
	d.sofFound = true
	d.state = stateFrameSection
	return nil
}

func (d *Decoder) readLSE(seg []byte) error {
	if len(seg) < 1 {
		return fmt.Errorf("%w: empty preset parameters segment", ErrInvalidMarkerSegmentSize)
	}
	switch t := int(seg[0]); t {
	case presetTypeCodingParameters:
		if len(seg) != 11 {
			return fmt.Errorf("%w: preset coding parameters of %d bytes", ErrInvalidMarkerSegmentSize, len(seg))
		}
		d.header.Preset = PresetCodingParameters{
			MaximumSampleValue: int(binary.BigEndian.Uint16(seg[1:])),
			Threshold1:         int(binary.BigEndian.Uint16(seg[3:])),
			Threshold2:         int(binary.BigEndian.Uint16(seg[5:])),
			Threshold3:         int(binary.BigEndian.Uint16(seg[7:])),
			ResetValue:         int(binary.BigEndian.Uint16(seg[9:])),
		}
		return nil
	case presetTypeMappingTable, presetTypeMappingTableContinued, presetTypeExtendedWidthAndHeight:
		return fmt.Errorf("%w: preset parameters type %d", ErrParameterValueNotSupported, t)
	case 0x5, 0x6, 0x7, 0x8, 0x9, 0xA, 0xC, 0xD:
		return fmt.Errorf("%w: %d", ErrJpeglsPresetExtendedParameterTypeNotSupported, t)
	default:
		return fmt.Errorf("%w: %d", ErrInvalidJpeglsPresetParameterType, t)
	}
}

func (d *Decoder) readSOS(seg []byte) error {
	if len(seg) < 1 {
		return fmt.Errorf("%w: empty start of scan segment", ErrInvalidMarkerSegmentSize)
	}
	ns := int(seg[0])
	if ns < 1 || ns > maxScanComponents || ns > d.header.Frame.ComponentCount {
		return fmt.Errorf("%w: %d in scan", ErrInvalidParameterComponentCount, ns)
	}
	if len(seg) != 4+2*ns {
		return fmt.Errorf("%w: start of scan of %d bytes for %d components", ErrInvalidMarkerSegmentSize, len(seg), ns)
	}

	scan := ScanHeader{ComponentIDs: make([]int, ns)}
	for i := range ns {
		scan.ComponentIDs[i] = int(seg[1+2*i])
	}
	scan.Near = int(seg[1+2*ns])
	scan.ILV = InterleaveMode(seg[2+2*ns])
	scan.Al = int(seg[3+2*ns] & 0x0F)

	maxVal := 1<<d.header.Frame.BitsPerSample - 1
	if d.header.Preset.MaximumSampleValue != 0 {
		maxVal = d.header.Preset.MaximumSampleValue
	}
	switch {
	case scan.Near > MaxNearLossless(maxVal):
		return fmt.Errorf("%w: %d", ErrInvalidParameterNearLossless, scan.Near)
	case scan.ILV > InterleaveSample || (scan.ILV == InterleaveNone && ns > 1):
		return fmt.Errorf("%w: %d with %d components", ErrInvalidParameterInterleaveMode, scan.ILV, ns)
	case scan.Al != 0:
		return fmt.Errorf("%w: point transform %d", ErrParameterValueNotSupported, scan.Al)
	}
	// a single component scan codes the same way in every mode but sample
	if ns == 1 {
		scan.ILV = InterleaveNone
	}

	if d.state != stateScanSection {
		d.header.NearLossless = scan.Near
		d.header.Interleave = scan.ILV
	}
	d.scan = scan
	d.state = stateScanSection
	return nil
}

// readNextScan reads the segments between two scans. It reports false at
// EOI.
func (d *Decoder) readNextScan() (bool, error) {
	start := d.pos
	marker, err := d.readMarker()
	if err != nil {
		return false, err
	}
	if marker == MarkerEOI {
		return false, nil
	}
	d.pos = start
	if err := d.readUntilScan(); err != nil {
		return false, err
	}
	return true, nil
}
