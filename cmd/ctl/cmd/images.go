package cmd

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func readImage(data []byte, format string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format {
	case "png":
		return png.Decode(r)
	case "tiff":
		return tiff.Decode(r)
	case "bmp":
		return bmp.Decode(r)
	}
	return nil, fmt.Errorf("unsupported input format %q (png, tiff, bmp, raw)", format)
}

func writeImage(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("unsupported output format %q (png, tiff, bmp, raw)", format)
}
