package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jpfielding/jpegs/pkg/compress/jpegls"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewEncodeCmd compresses png/tiff/bmp images or raw samples to JPEG-LS
func NewEncodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "encode an image as JPEG-LS",
		Long:  "Encodes a png, tiff, bmp or raw sample file as JPEG-LS. Raw input needs --width, --height, --components and --bits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			inFormat, _ := cmd.Flags().GetString("format")
			insecure, _ := cmd.Flags().GetBool("insecure")
			verbose, _ := cmd.Flags().GetBool("verbose")
			if in == "" && len(args) > 0 {
				in = args[0]
			}
			if out == "" {
				return fmt.Errorf("an output path is required, use --out")
			}

			opts, err := encodeOptions(cmd.Flags())
			if err != nil {
				return err
			}
			data, err := readInput(ctx, in, insecure, verbose)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			switch f := format(in, inFormat); f {
			case "raw":
				info, err := rawFrameInfo(cmd.Flags())
				if err != nil {
					return err
				}
				if err := jpegls.EncodeStream(&buf, bytes.NewReader(data), info, opts); err != nil {
					return err
				}
			default:
				img, err := readImage(data, f)
				if err != nil {
					return err
				}
				if err := jpegls.Encode(&buf, img, opts); err != nil {
					return err
				}
			}
			slog.InfoContext(ctx, "encoded", "in", in, "out", out, "bytes", buf.Len(),
				"ratio", fmt.Sprintf("%.2f", float64(len(data))/float64(buf.Len())))
			return os.WriteFile(out, buf.Bytes(), 0644)
		},
	}
	pf := cmd.Flags()
	pf.StringP("in", "i", "", "input path, URL or - for stdin")
	pf.StringP("out", "o", "", "output .jls path")
	pf.StringP("format", "f", "", "input format (png|tiff|bmp|raw), defaults to the extension")
	pf.Bool("insecure", false, "skip TLS verification for URL inputs")
	pf.BoolP("verbose", "v", false, "dump HTTP requests and responses")
	pf.Int("width", 0, "raw input width")
	pf.Int("height", 0, "raw input height")
	pf.Int("components", 1, "raw input components")
	addCodingFlags(cmd)
	return cmd
}

func encodeOptions(fs *pflag.FlagSet) (*jpegls.Options, error) {
	ilvName, _ := fs.GetString("interleave")
	ilv, err := jpegls.ParseInterleaveMode(ilvName)
	if err != nil {
		return nil, err
	}
	transformName, _ := fs.GetString("transform")
	transform, err := jpegls.ParseColorTransformation(transformName)
	if err != nil {
		return nil, err
	}
	opts := &jpegls.Options{Interleave: ilv, ColorTransform: transform}
	opts.Near, _ = fs.GetInt("near")
	opts.BitsPerSample, _ = fs.GetInt("bits")
	opts.SPIFF, _ = fs.GetBool("spiff")
	if jfif, _ := fs.GetBool("jfif"); jfif {
		opts.JFIF = jpegls.NewJfifParameters()
	}
	if title, _ := fs.GetString("title"); title != "" {
		opts.SpiffEntries = append(opts.SpiffEntries, jpegls.SpiffEntry{Tag: jpegls.SpiffTagImageTitle, Data: []byte(title)})
	}
	opts.Preset.Threshold1, _ = fs.GetInt("t1")
	opts.Preset.Threshold2, _ = fs.GetInt("t2")
	opts.Preset.Threshold3, _ = fs.GetInt("t3")
	opts.Preset.ResetValue, _ = fs.GetInt("reset")
	return opts, nil
}

func rawFrameInfo(fs *pflag.FlagSet) (jpegls.FrameInfo, error) {
	var info jpegls.FrameInfo
	info.Width, _ = fs.GetInt("width")
	info.Height, _ = fs.GetInt("height")
	info.ComponentCount, _ = fs.GetInt("components")
	info.BitsPerSample, _ = fs.GetInt("bits")
	if info.Width == 0 || info.Height == 0 || info.BitsPerSample == 0 {
		return info, fmt.Errorf("raw input needs --width, --height and --bits")
	}
	return info, nil
}
