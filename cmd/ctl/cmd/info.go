package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jpfielding/jpegs/pkg/compress/jpegls"
	"github.com/jpfielding/jpegs/pkg/util"
	"github.com/spf13/cobra"
)

// NewInfoCmd prints the header and sample statistics of a JPEG-LS stream
func NewInfoCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Analyze a JPEG-LS stream",
		Long:  "Parses and displays the marker segments of a JPEG-LS stream, then decodes it and reports per component sample ranges and fingerprints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			insecure, _ := cmd.Flags().GetBool("insecure")
			verbose, _ := cmd.Flags().GetBool("verbose")
			if uri == "" && len(args) > 0 {
				uri = args[0]
			}
			data, err := readInput(ctx, uri, insecure, verbose)
			if err != nil {
				return err
			}
			report, err := analyze(data)
			if err != nil {
				return err
			}
			switch f, _ := cmd.Flags().GetString("format"); f {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			default:
				report.print(cmd.OutOrStdout())
				return nil
			}
		},
	}
	pf := cmd.Flags()
	pf.StringP("uri", "u", "", "JPEG-LS path, URL or - for stdin")
	pf.StringP("format", "f", "text", "output format (text|json)")
	pf.Bool("insecure", false, "skip TLS verification for URL inputs")
	pf.BoolP("verbose", "v", false, "dump HTTP requests and responses")
	return cmd
}

type componentStats struct {
	ID  int `json:"id"`
	Min int `json:"min"`
	Max int `json:"max"`
}

type streamReport struct {
	Bytes       int                           `json:"bytes"`
	MD5         string                        `json:"md5"`
	HeaderID    string                        `json:"header_id"`
	SamplesID   string                        `json:"samples_id,omitempty"`
	Frame       jpegls.FrameInfo              `json:"frame"`
	Near        int                           `json:"near"`
	Interleave  string                        `json:"interleave"`
	Transform   string                        `json:"transform"`
	Preset      jpegls.PresetCodingParameters `json:"preset"`
	Signalled   bool                          `json:"preset_signalled"`
	Spiff       *jpegls.SpiffHeader           `json:"spiff,omitempty"`
	SpiffTags   []jpegls.SpiffEntryTag        `json:"spiff_tags,omitempty"`
	JFIF        *jpegls.JfifParameters        `json:"jfif,omitempty"`
	Components  []componentStats              `json:"components,omitempty"`
	DecodeError string                        `json:"decode_error,omitempty"`
}

// analyze reports on a stream; a header error fails, a scan error is
// reported alongside the header.
func analyze(data []byte) (*streamReport, error) {
	h, err := jpegls.ReadHeader(data)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	maxVal := 1<<h.Frame.BitsPerSample - 1
	if h.Preset.MaximumSampleValue != 0 {
		maxVal = h.Preset.MaximumSampleValue
	}
	preset, err := h.Preset.Validate(maxVal, h.NearLossless)
	if err != nil {
		return nil, err
	}
	r := &streamReport{
		Bytes:      len(data),
		MD5:        util.Md5ThenHex(data),
		HeaderID:   util.HashUUID(h),
		Frame:      h.Frame,
		Near:       h.NearLossless,
		Interleave: h.Interleave.String(),
		Transform:  h.Transform.String(),
		Preset:     preset,
		Signalled:  h.Preset != jpegls.PresetCodingParameters{},
		Spiff:      h.Spiff,
		JFIF:       h.JFIF,
	}
	for _, e := range h.SpiffEntries {
		r.SpiffTags = append(r.SpiffTags, e.Tag)
	}

	f, _, err := jpegls.DecodeFrame(data)
	if err != nil {
		r.DecodeError = err.Error()
		return r, nil
	}
	r.SamplesID = util.SamplesUUID(f.Samples)
	comps := f.Info.ComponentCount
	for c := 0; c < comps; c++ {
		s := componentStats{ID: h.ComponentIDs[c], Min: int(f.Samples[c]), Max: int(f.Samples[c])}
		for i := c; i < len(f.Samples); i += comps {
			s.Min = min(s.Min, int(f.Samples[i]))
			s.Max = max(s.Max, int(f.Samples[i]))
		}
		r.Components = append(r.Components, s)
	}
	return r, nil
}

func (r *streamReport) print(w io.Writer) {
	fmt.Fprintf(w, "Size: %d bytes (md5 %s)\n\n", r.Bytes, r.MD5)
	fmt.Fprintln(w, "=== Frame ===")
	fmt.Fprintf(w, "Width: %d\n", r.Frame.Width)
	fmt.Fprintf(w, "Height: %d\n", r.Frame.Height)
	fmt.Fprintf(w, "BitsPerSample: %d\n", r.Frame.BitsPerSample)
	fmt.Fprintf(w, "Components: %d\n", r.Frame.ComponentCount)
	fmt.Fprintf(w, "Near: %d\n", r.Near)
	fmt.Fprintf(w, "Interleave: %s\n", r.Interleave)
	fmt.Fprintf(w, "Transform: %s\n", r.Transform)
	fmt.Fprintf(w, "Preset: maxval=%d t1=%d t2=%d t3=%d reset=%d (signalled: %v)\n",
		r.Preset.MaximumSampleValue, r.Preset.Threshold1, r.Preset.Threshold2, r.Preset.Threshold3,
		r.Preset.ResetValue, r.Signalled)
	if r.Spiff != nil {
		fmt.Fprintf(w, "SPIFF: profile=%d colorspace=%d compression=%d\n",
			r.Spiff.ProfileID, r.Spiff.ColorSpace, r.Spiff.CompressionType)
		for _, tag := range r.SpiffTags {
			fmt.Fprintf(w, "SPIFF entry: tag=%d\n", tag)
		}
	}
	if r.JFIF != nil {
		fmt.Fprintf(w, "JFIF: version=%d.%02d units=%d density=%dx%d thumbnail=%dx%d\n",
			r.JFIF.Version>>8, r.JFIF.Version&0xFF, r.JFIF.Units, r.JFIF.XDensity, r.JFIF.YDensity,
			r.JFIF.ThumbnailWidth, r.JFIF.ThumbnailHeight)
	}
	fmt.Fprintf(w, "HeaderID: %s\n", r.HeaderID)

	fmt.Fprintln(w, "\n=== Samples ===")
	if r.DecodeError != "" {
		fmt.Fprintf(w, "Decode error: %s\n", r.DecodeError)
		return
	}
	for _, c := range r.Components {
		fmt.Fprintf(w, "Component %d: min=%d, max=%d\n", c.ID, c.Min, c.Max)
	}
	fmt.Fprintf(w, "SamplesID: %s\n", r.SamplesID)
}
