// Package dicom reads and writes JPEG-LS pixel data held in DICOM files.
package dicom

// Syntax is a DICOM transfer syntax UID.
type Syntax string

const (
	ImplicitVRLittleEndian Syntax = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian Syntax = "1.2.840.10008.1.2.1"
	ExplicitVRBigEndian    Syntax = "1.2.840.10008.1.2.2" // Retired

	JPEGLSLossless     Syntax = "1.2.840.10008.1.2.4.80"
	JPEGLSNearLossless Syntax = "1.2.840.10008.1.2.4.81"
)

// SyntaxFor returns the JPEG-LS transfer syntax for a NEAR value.
func SyntaxFor(near int) Syntax {
	if near == 0 {
		return JPEGLSLossless
	}
	return JPEGLSNearLossless
}

// IsEncapsulated reports whether pixel data is stored as encapsulated items
func (s Syntax) IsEncapsulated() bool {
	switch s {
	case "", ImplicitVRLittleEndian, ExplicitVRLittleEndian, ExplicitVRBigEndian:
		return false
	default:
		return true
	}
}

// IsJPEGLS returns true for both JPEG-LS transfer syntaxes
func (s Syntax) IsJPEGLS() bool {
	return s == JPEGLSLossless || s == JPEGLSNearLossless
}

// Name returns a human-readable name, or the UID itself when unknown
func (s Syntax) Name() string {
	switch s {
	case ImplicitVRLittleEndian:
		return "Implicit VR Little Endian"
	case ExplicitVRLittleEndian:
		return "Explicit VR Little Endian"
	case ExplicitVRBigEndian:
		return "Explicit VR Big Endian (Retired)"
	case JPEGLSLossless:
		return "JPEG-LS Lossless"
	case JPEGLSNearLossless:
		return "JPEG-LS Near-Lossless"
	default:
		return string(s)
	}
}
