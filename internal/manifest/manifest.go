package manifest

// Package manifest persists run outputs: transformed page images plus a
// machine-readable summary of what happened to every page.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/inkshift/internal/transform"
)

// Page statuses.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
)

// Page records the outcome of one page.
type Page struct {
	Index     int    `json:"index" yaml:"index"`
	Source    string `json:"source" yaml:"source"`
	Output    string `json:"output,omitempty" yaml:"output,omitempty"`
	MediaType string `json:"media_type,omitempty" yaml:"media_type,omitempty"`
	Status    string `json:"status" yaml:"status"`
}

// Manifest summarizes one run.
type Manifest struct {
	Mode       string    `json:"mode" yaml:"mode"`
	Model      string    `json:"model" yaml:"model"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Pages      []Page    `json:"pages" yaml:"pages"`
}

// Writer accumulates page outcomes and writes them under a directory.
// It is driven from the orchestrator's control goroutine and needs no
// locking.
type Writer struct {
	dir     string
	mode    string
	model   string
	started time.Time
	pages   map[int]Page
	sources []string
}

// NewWriter creates the output directory and a writer for a run over
// the given source files.
func NewWriter(dir, mode, model string, sources []string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("manifest: creating output dir: %w", err)
	}
	return &Writer{
		dir:     dir,
		mode:    mode,
		model:   model,
		started: time.Now(),
		pages:   make(map[int]Page),
		sources: sources,
	}, nil
}

// SavePage writes a completed page image to disk and records it.
func (w *Writer) SavePage(index int, img transform.Image) (string, error) {
	name := fmt.Sprintf("page_%03d%s", index+1, extension(img.MediaType))
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, img.Data, 0o600); err != nil {
		return "", fmt.Errorf("manifest: writing page %d: %w", index, err)
	}
	w.pages[index] = Page{
		Index:     index,
		Source:    w.source(index),
		Output:    name,
		MediaType: img.MediaType,
		Status:    StatusCompleted,
	}
	return path, nil
}

// Finalize marks unrecorded pages as skipped and writes the manifest in
// the given format ("json" or "yaml"), returning its path.
func (w *Writer) Finalize(format string) (string, error) {
	m := Manifest{
		Mode:       w.mode,
		Model:      w.model,
		StartedAt:  w.started,
		FinishedAt: time.Now(),
	}
	for i := range w.sources {
		page, ok := w.pages[i]
		if !ok {
			page = Page{Index: i, Source: w.source(i), Status: StatusSkipped}
		}
		m.Pages = append(m.Pages, page)
	}
	sort.Slice(m.Pages, func(a, b int) bool { return m.Pages[a].Index < m.Pages[b].Index })

	var (
		data []byte
		err  error
		name string
	)
	switch format {
	case "yaml":
		name = "manifest.yaml"
		data, err = yaml.Marshal(m)
	case "json", "":
		name = "manifest.json"
		data, err = json.MarshalIndent(m, "", "  ")
	default:
		return "", fmt.Errorf("manifest: unsupported format %q", format)
	}
	if err != nil {
		return "", fmt.Errorf("manifest: encoding: %w", err)
	}

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("manifest: writing %s: %w", name, err)
	}
	return path, nil
}

func (w *Writer) source(index int) string {
	if index >= 0 && index < len(w.sources) {
		return w.sources[index]
	}
	return ""
}

func extension(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
