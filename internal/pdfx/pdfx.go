package pdfx

// Package pdfx turns a PDF chapter into an ordered list of page image
// files, so whole chapters can be fed to a run like loose image files.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ExtractPages extracts every page's embedded images from the PDF into
// destDir and returns their paths ordered by page number. Comic and
// manga PDFs carry one full-page image per page; when a page has
// several, the largest file is kept.
func ExtractPages(filename, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, fmt.Errorf("pdfx: creating extraction dir: %w", err)
	}

	if err := api.ExtractImagesFile(filename, destDir, nil, nil); err != nil {
		return nil, fmt.Errorf("pdfx: extracting images from %s: %w", filename, err)
	}

	paths, err := collectPageImages(destDir)
	if err != nil {
		return nil, fmt.Errorf("pdfx: collecting extracted images: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("pdfx: no page images found in %s", filename)
	}
	return paths, nil
}

// collectPageImages walks dir and returns one image path per page, in
// page order. Filenames follow pdfcpu's page_<num>_... convention.
func collectPageImages(dir string) ([]string, error) {
	type candidate struct {
		path string
		size int64
	}
	byPage := make(map[int]candidate)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		pageNum, err := parsePageFromFilename(info.Name())
		if err != nil {
			return nil // not an extracted page image
		}
		cur, ok := byPage[pageNum]
		if !ok || info.Size() > cur.size {
			byPage[pageNum] = candidate{path: path, size: info.Size()}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pages := make([]int, 0, len(byPage))
	for p := range byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	paths := make([]string, len(pages))
	for i, p := range pages {
		paths[i] = byPage[p].path
	}
	return paths, nil
}

// parsePageFromFilename extracts the page number from a pdfcpu output
// filename like page_3_Im0.png.
func parsePageFromFilename(filename string) (int, error) {
	rest, ok := strings.CutPrefix(filename, "page_")
	if !ok {
		return 0, errors.New("not a page file")
	}

	parts := strings.SplitN(rest, "_", 2)
	num := parts[0]
	if i := strings.IndexByte(num, '.'); i >= 0 {
		num = num[:i]
	}

	pageNum, err := strconv.Atoi(num)
	if err != nil {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}

// IsPDF reports whether the path looks like a PDF file.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
