package jpegls

import "errors"

// Error kinds reported by the codec. Call sites wrap these with context, so
// test for them with errors.Is.
var (
	ErrInvalidArgument                               = errors.New("jpegls: invalid argument")
	ErrParameterValueNotSupported                    = errors.New("jpegls: parameter value not supported")
	ErrDestinationBufferTooSmall                     = errors.New("jpegls: destination buffer too small")
	ErrSourceBufferTooSmall                          = errors.New("jpegls: source buffer too small")
	ErrInvalidEncodedData                            = errors.New("jpegls: invalid encoded data")
	ErrTooMuchEncodedData                            = errors.New("jpegls: too much encoded data")
	ErrBitDepthForTransformNotSupported              = errors.New("jpegls: bit depth for transform not supported")
	ErrColorTransformNotSupported                    = errors.New("jpegls: color transform not supported")
	ErrEncodingNotSupported                          = errors.New("jpegls: encoding not supported")
	ErrUnknownJpegMarkerFound                        = errors.New("jpegls: unknown jpeg marker found")
	ErrJpegMarkerStartByteNotFound                   = errors.New("jpegls: jpeg marker start byte not found")
	ErrStartOfImageMarkerNotFound                    = errors.New("jpegls: start of image marker not found")
	ErrStartOfFrameMarkerNotFound                    = errors.New("jpegls: start of frame marker not found")
	ErrInvalidMarkerSegmentSize                      = errors.New("jpegls: invalid marker segment size")
	ErrDuplicateStartOfImageMarker                   = errors.New("jpegls: duplicate start of image marker")
	ErrDuplicateStartOfFrameMarker                   = errors.New("jpegls: duplicate start of frame marker")
	ErrDuplicateComponentIDInSOFSegment              = errors.New("jpegls: duplicate component id in start of frame segment")
	ErrUnexpectedEndOfImageMarker                    = errors.New("jpegls: unexpected end of image marker")
	ErrInvalidJpeglsPresetParameterType              = errors.New("jpegls: invalid jpeg-ls preset parameter type")
	ErrJpeglsPresetExtendedParameterTypeNotSupported = errors.New("jpegls: jpeg-ls preset extended parameter type not supported")
	ErrMissingEndOfSpiffDirectory                    = errors.New("jpegls: missing end of spiff directory")

	ErrInvalidParameterWidth                  = errors.New("jpegls: invalid parameter width")
	ErrInvalidParameterHeight                 = errors.New("jpegls: invalid parameter height")
	ErrInvalidParameterComponentCount         = errors.New("jpegls: invalid parameter component count")
	ErrInvalidParameterBitsPerSample          = errors.New("jpegls: invalid parameter bits per sample")
	ErrInvalidParameterInterleaveMode         = errors.New("jpegls: invalid parameter interleave mode")
	ErrInvalidParameterNearLossless           = errors.New("jpegls: invalid parameter near lossless")
	ErrInvalidParameterJpeglsPresetParameters = errors.New("jpegls: invalid parameter jpeg-ls preset parameters")
)
