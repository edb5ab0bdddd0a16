package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/MeKo-Tech/inkshift/internal/page"
	"github.com/MeKo-Tech/inkshift/internal/pdfx"
)

// expandInputs turns CLI arguments into an ordered list of page image
// paths. Directories contribute their images in name order, PDFs are
// extracted page by page into a temp directory (cleaned up via the
// returned function), and plain image files pass through.
func expandInputs(args []string) ([]string, func(), error) {
	var paths []string
	var tempDirs []string
	cleanup := func() {
		for _, d := range tempDirs {
			_ = os.RemoveAll(d)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		switch {
		case info.IsDir():
			dirPaths, err := imagesInDir(arg)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			paths = append(paths, dirPaths...)
		case pdfx.IsPDF(arg):
			tempDir, err := os.MkdirTemp("", "inkshift-pdf-*")
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("creating temp dir: %w", err)
			}
			tempDirs = append(tempDirs, tempDir)
			pdfPages, err := pdfx.ExtractPages(arg, tempDir)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			paths = append(paths, pdfPages...)
		case page.IsSupported(arg):
			paths = append(paths, arg)
		default:
			cleanup()
			return nil, nil, fmt.Errorf("unsupported input %s (expected image, directory or PDF)", arg)
		}
	}

	if len(paths) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("no page images found")
	}
	return paths, cleanup, nil
}

func imagesInDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if page.IsSupported(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
