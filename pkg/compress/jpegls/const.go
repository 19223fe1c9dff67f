package jpegls

import "fmt"

// Markers
const (
	MarkerStart = 0xFF

	MarkerSOF0  = 0xFFC0 // first of the SOFn range
	MarkerSOF15 = 0xFFCF
	MarkerDHT   = 0xFFC4
	MarkerJPG   = 0xFFC8
	MarkerDAC   = 0xFFCC
	MarkerSOI   = 0xFFD8 // Start of Image
	MarkerEOI   = 0xFFD9 // End of Image
	MarkerSOS   = 0xFFDA // Start of Scan
	MarkerDNL   = 0xFFDC
	MarkerDRI   = 0xFFDD // Define Restart Interval
	MarkerAPP0  = 0xFFE0
	MarkerAPP8  = 0xFFE8 // SPIFF header, colour transform
	MarkerAPP15 = 0xFFEF
	MarkerSOF55 = 0xFFF7 // Start of Frame (JPEG-LS)
	MarkerLSE   = 0xFFF8 // JPEG-LS Extension (Parameters)
	MarkerSOF57 = 0xFFF9 // Start of Frame (JPEG-LS extended, 14495-2)
	MarkerCOM   = 0xFFFE
)

// LSE segment types
const (
	presetTypeCodingParameters       = 1
	presetTypeMappingTable           = 2
	presetTypeMappingTableContinued  = 3
	presetTypeExtendedWidthAndHeight = 4
)

// InterleaveMode selects how the components of a frame share scans.
type InterleaveMode int

const (
	InterleaveNone   InterleaveMode = 0 // one scan per component
	InterleaveLine   InterleaveMode = 1 // components alternate line by line
	InterleaveSample InterleaveMode = 2 // components alternate sample by sample
)

func (m InterleaveMode) String() string {
	switch m {
	case InterleaveNone:
		return "none"
	case InterleaveLine:
		return "line"
	case InterleaveSample:
		return "sample"
	}
	return fmt.Sprintf("InterleaveMode(%d)", int(m))
}

// ParseInterleaveMode accepts the names returned by String.
func ParseInterleaveMode(s string) (InterleaveMode, error) {
	for _, m := range []InterleaveMode{InterleaveNone, InterleaveLine, InterleaveSample} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: interleave mode %q", ErrInvalidArgument, s)
}

// ColorTransformation is the HP colour transform signalled by the "mrfx"
// APP8 segment.
type ColorTransformation int

const (
	TransformNone ColorTransformation = 0
	TransformHP1  ColorTransformation = 1
	TransformHP2  ColorTransformation = 2
	TransformHP3  ColorTransformation = 3
)

func (c ColorTransformation) String() string {
	switch c {
	case TransformNone:
		return "none"
	case TransformHP1:
		return "hp1"
	case TransformHP2:
		return "hp2"
	case TransformHP3:
		return "hp3"
	}
	return fmt.Sprintf("ColorTransformation(%d)", int(c))
}

// ParseColorTransformation accepts the names returned by String.
func ParseColorTransformation(s string) (ColorTransformation, error) {
	for _, c := range []ColorTransformation{TransformNone, TransformHP1, TransformHP2, TransformHP3} {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: color transformation %q", ErrInvalidArgument, s)
}

// FrameInfo is what the SOF55 segment describes.
type FrameInfo struct {
	Width          int
	Height         int
	BitsPerSample  int
	ComponentCount int
}

func (f FrameInfo) validate() error {
	switch {
	case f.Width < 1 || f.Width > 0xFFFF:
		return fmt.Errorf("%w: %d", ErrInvalidParameterWidth, f.Width)
	case f.Height < 1 || f.Height > 0xFFFF:
		return fmt.Errorf("%w: %d", ErrInvalidParameterHeight, f.Height)
	case f.BitsPerSample < MinBitsPerSample || f.BitsPerSample > MaxBitsPerSample:
		return fmt.Errorf("%w: %d", ErrInvalidParameterBitsPerSample, f.BitsPerSample)
	case f.ComponentCount < 1 || f.ComponentCount > 255:
		return fmt.Errorf("%w: %d", ErrInvalidParameterComponentCount, f.ComponentCount)
	}
	return nil
}

// ScanHeader is what an SOS segment describes.
type ScanHeader struct {
	ComponentIDs []int
	Near         int            // Near-lossless parameter (0 = lossless)
	ILV          InterleaveMode // Interleave mode
	Al           int            // Point transform, always 0 for JPEG-LS
}
