package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jpfielding/jpegs/pkg/compress/jpegls"
	"github.com/spf13/cobra"
)

// NewDecodeCmd decodes a JPEG-LS stream to png/tiff/bmp or raw samples
func NewDecodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "decode a JPEG-LS stream",
		Long:  "Decodes a JPEG-LS stream to png, tiff, bmp or raw samples (bytes up to 8 bits, big endian words above).",
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			out, _ := cmd.Flags().GetString("out")
			outFormat, _ := cmd.Flags().GetString("format")
			insecure, _ := cmd.Flags().GetBool("insecure")
			verbose, _ := cmd.Flags().GetBool("verbose")
			if uri == "" && len(args) > 0 {
				uri = args[0]
			}
			if out == "" {
				return fmt.Errorf("an output path is required, use --out")
			}
			data, err := readInput(ctx, uri, insecure, verbose)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			var info jpegls.FrameInfo
			switch f := format(out, outFormat); f {
			case "raw":
				h, err := jpegls.DecodeStream(data, &buf)
				if err != nil {
					return err
				}
				info = h.Frame
			default:
				jf, _, err := jpegls.DecodeFrame(data)
				if err != nil {
					return err
				}
				info = jf.Info
				img, err := jf.Image()
				if err != nil {
					return err
				}
				if err := writeImage(&buf, img, f); err != nil {
					return err
				}
			}
			slog.InfoContext(ctx, "decoded", "in", uri, "out", out, "width", info.Width, "height", info.Height,
				"bits", info.BitsPerSample, "components", info.ComponentCount)
			return os.WriteFile(out, buf.Bytes(), 0644)
		},
	}
	pf := cmd.Flags()
	pf.StringP("uri", "u", "", "JPEG-LS path, URL or - for stdin")
	pf.StringP("out", "o", "", "output path")
	pf.StringP("format", "f", "", "output format (png|tiff|bmp|raw), defaults to the extension")
	pf.Bool("insecure", false, "skip TLS verification for URL inputs")
	pf.BoolP("verbose", "v", false, "dump HTTP requests and responses")
	return cmd
}
