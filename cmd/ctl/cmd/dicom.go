package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jpfielding/jpegs/pkg/compress/jpegls"
	"github.com/jpfielding/jpegs/pkg/dicom"
	"github.com/jpfielding/jpegs/pkg/util"
	"github.com/spf13/cobra"
)

// NewDicomCmd groups the commands working on DICOM pixel data
func NewDicomCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dicom",
		Short: "JPEG-LS pixel data in DICOM files",
		Long:  "Lists, exports and compresses the JPEG-LS frames of DICOM files.",
	}
	cmd.AddCommand(
		newDicomListCmd(ctx),
		newDicomExportCmd(ctx),
		newDicomCompressCmd(ctx),
	)
	return cmd
}

func newDicomListCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "list <file>",
		Short: "list the frames of a DICOM file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := dicom.ReadFrames(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "TransferSyntax: %s (%s)\n", f.Syntax, f.Syntax.Name())
			fmt.Fprintf(w, "Rows: %d\nColumns: %d\nSamplesPerPixel: %d\n", f.Rows, f.Columns, f.SamplesPerPixel)
			fmt.Fprintf(w, "BitsAllocated: %d\nBitsStored: %d\nFrames: %d\n", f.BitsAllocated, f.BitsStored, f.Len())

			for i := range f.Native {
				fmt.Fprintf(w, "\n--- Frame %d ---\nNative samples: %d\nSamplesID: %s\n",
					i, len(f.Native[i]), util.SamplesUUID(f.Native[i]))
			}
			for i, data := range f.Encapsulated {
				fmt.Fprintf(w, "\n--- Frame %d ---\nCompressed size: %d bytes\n", i, len(data))
				if !f.Syntax.IsJPEGLS() {
					continue
				}
				jf, h, err := f.Decode(i)
				if err != nil {
					fmt.Fprintf(w, "Decode error: %v\n", err)
					continue
				}
				fmt.Fprintf(w, "Near: %d, Interleave: %s, Transform: %s\n", h.NearLossless, h.Interleave, h.Transform)
				fmt.Fprintf(w, "Ratio: %.2f\n", float64(len(jf.Samples)*((f.BitsAllocated+7)/8))/float64(len(data)))
				fmt.Fprintf(w, "SamplesID: %s\n", util.SamplesUUID(jf.Samples))
			}
			return nil
		},
	}
}

func newDicomExportCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "export one frame of a DICOM file",
		Long:  "Exports a frame as png, tiff, bmp, raw samples or a .jls codestream. Encapsulated JPEG-LS frames are copied to .jls untouched; native frames are encoded.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, _ := cmd.Flags().GetInt("frame")
			out, _ := cmd.Flags().GetString("out")
			outFormat, _ := cmd.Flags().GetString("format")
			if out == "" {
				return fmt.Errorf("an output path is required, use --out")
			}
			f, err := dicom.ReadFrames(args[0])
			if err != nil {
				return err
			}

			var stream []byte
			if f.Syntax.IsEncapsulated() {
				if index < 0 || index >= len(f.Encapsulated) {
					return fmt.Errorf("frame index %d out of bounds (0-%d)", index, len(f.Encapsulated)-1)
				}
				stream = f.Encapsulated[index]
			} else {
				opts, err := encodeOptions(cmd.Flags())
				if err != nil {
					return err
				}
				if stream, err = f.Encode(index, opts); err != nil {
					return err
				}
			}

			var buf bytes.Buffer
			switch fmtName := format(out, outFormat); fmtName {
			case "jls":
				buf.Write(stream)
			case "raw":
				if _, err := jpegls.DecodeStream(stream, &buf); err != nil {
					return err
				}
			default:
				img, err := jpegls.Decode(bytes.NewReader(stream))
				if err != nil {
					return err
				}
				if err := writeImage(&buf, img, fmtName); err != nil {
					return err
				}
			}
			slog.InfoContext(ctx, "exported frame", "file", args[0], "frame", index, "out", out, "bytes", buf.Len())
			return os.WriteFile(out, buf.Bytes(), 0644)
		},
	}
	pf := cmd.Flags()
	pf.Int("frame", 0, "index of the frame to export")
	pf.StringP("out", "o", "", "output path")
	pf.StringP("format", "f", "", "output format (jls|png|tiff|bmp|raw), defaults to the extension")
	addCodingFlags(cmd)
	return cmd
}

func newDicomCompressCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compress <in> <out>",
		Short: "re-encode native pixel data as JPEG-LS",
		Long:  "Encodes every native frame as JPEG-LS and writes a copy of the file with encapsulated pixel data and a JPEG-LS transfer syntax.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := encodeOptions(cmd.Flags())
			if err != nil {
				return err
			}
			ds, err := dicom.ReadDataset(args[0])
			if err != nil {
				return err
			}
			if items, _ := cmd.Flags().GetString("items"); items != "" {
				f, err := dicom.FramesFromDataset(ds)
				if err != nil {
					return err
				}
				frames, err := f.Compress(opts)
				if err != nil {
					return err
				}
				if err := os.WriteFile(items, dicom.EncapsulateFrames(frames), 0644); err != nil {
					return err
				}
			}
			if err := dicom.Recompress(&ds, opts); err != nil {
				return err
			}
			slog.InfoContext(ctx, "compressed", "in", args[0], "out", args[1], "syntax", dicom.SyntaxFor(opts.Near).Name())
			return dicom.WriteFile(args[1], ds)
		},
	}
	cmd.Flags().String("items", "", "also write the encapsulated pixel data items to this path")
	addCodingFlags(cmd)
	return cmd
}

// addCodingFlags adds the flags encodeOptions reads.
func addCodingFlags(cmd *cobra.Command) {
	pf := cmd.Flags()
	pf.Int("near", 0, "near lossless error bound, 0 is lossless")
	pf.String("interleave", "line", "interleave mode for multi component images (none|line|sample)")
	pf.String("transform", "none", "HP colour transform (none|hp1|hp2|hp3)")
	pf.Int("t1", 0, "threshold 1, 0 for the default")
	pf.Int("t2", 0, "threshold 2, 0 for the default")
	pf.Int("t3", 0, "threshold 3, 0 for the default")
	pf.Int("reset", 0, "context reset interval, 0 for the default")
	pf.Bool("spiff", false, "write a SPIFF header")
	pf.String("title", "", "image title SPIFF directory entry, needs --spiff")
	pf.Bool("jfif", false, "write a JFIF 1.02 header, cannot be combined with --spiff")
	pf.Int("bits", 0, "bits per sample, 0 derives it from the image")
}
