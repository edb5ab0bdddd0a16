package page

// Package page loads source page files and assembles the ordered
// content-part sequence for a single transformation request.

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// SupportedExtensions lists the file extensions the loader accepts.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

// IsSupported reports whether the path has a supported image extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Metadata captures lightweight file and pixel information.
type Metadata struct {
	Path        string
	Format      string
	SizeBytes   int64
	Width       int
	Height      int
	AspectRatio float64
}

// File is a loaded source page: the encoded bytes as they will be sent
// to the service, plus probed metadata.
type File struct {
	Data      []byte
	MediaType string
	Meta      Metadata
}

// DecodeError reports that a source file could not be read or probed.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("page: decoding %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Load reads a page file and probes its dimensions. The encoded bytes
// are kept as-is; use FitWithin to downscale oversized pages.
func Load(path string) (*File, error) {
	if !IsSupported(path) {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("unsupported format %q", filepath.Ext(path))}
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: user-provided page file path is expected
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if cfg.Height == 0 {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("degenerate dimensions %dx%d", cfg.Width, cfg.Height)}
	}

	return &File{
		Data:      data,
		MediaType: mediaType(format),
		Meta: Metadata{
			Path:        path,
			Format:      format,
			SizeBytes:   int64(len(data)),
			Width:       cfg.Width,
			Height:      cfg.Height,
			AspectRatio: float64(cfg.Width) / float64(cfg.Height),
		},
	}, nil
}

// FitWithin downscales the page so neither dimension exceeds maxDim,
// re-encoding as PNG. Pages already within bounds are left untouched.
func (f *File) FitWithin(maxDim int) error {
	if maxDim <= 0 || (f.Meta.Width <= maxDim && f.Meta.Height <= maxDim) {
		return nil
	}

	img, err := imaging.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return &DecodeError{Path: f.Meta.Path, Err: err}
	}

	resized := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return fmt.Errorf("page: re-encoding %s: %w", f.Meta.Path, err)
	}

	b := resized.Bounds()
	f.Data = buf.Bytes()
	f.MediaType = "image/png"
	f.Meta.Format = "png"
	f.Meta.SizeBytes = int64(buf.Len())
	f.Meta.Width = b.Dx()
	f.Meta.Height = b.Dy()
	return nil
}

func mediaType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "bmp":
		return "image/bmp"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
