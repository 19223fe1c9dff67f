package cmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"strings"
)

// readInput reads a whole input: "-" is stdin, http(s) URLs are fetched and
// anything else (optionally file://) is a local path.
func readInput(ctx context.Context, uri string, insecure, verbose bool) ([]byte, error) {
	uri = strings.TrimPrefix(uri, "file://")
	switch {
	case uri == "":
		return nil, fmt.Errorf("an input is required")
	case uri == "-":
		return io.ReadAll(os.Stdin)
	case strings.HasPrefix(uri, "http"):
		cl := &http.Client{}
		if insecure {
			cl.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := cl.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download: %w", err)
		}
		defer resp.Body.Close()
		if verbose {
			reqDump, _ := httputil.DumpRequest(req, true)
			os.Stderr.Write(reqDump)
			resDump, _ := httputil.DumpResponse(resp, false)
			os.Stderr.Write(resDump)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to download: %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	default:
		slog.DebugContext(ctx, "reading input", "path", uri)
		return os.ReadFile(uri)
	}
}

// format names the image format of a path by its extension.
func format(path, override string) string {
	if override != "" {
		return strings.ToLower(override)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".tif":
		return "tiff"
	case ".bin":
		return "raw"
	case "":
		return ""
	default:
		return ext[1:]
	}
}
