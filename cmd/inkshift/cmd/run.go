package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/MeKo-Tech/inkshift/internal/config"
	"github.com/MeKo-Tech/inkshift/internal/manifest"
	"github.com/MeKo-Tech/inkshift/internal/orchestrator"
	"github.com/MeKo-Tech/inkshift/internal/page"
	"github.com/MeKo-Tech/inkshift/internal/plan"
	"github.com/MeKo-Tech/inkshift/internal/transform"
)

// resultStore keeps completed page images in memory so later batches
// can embed them as references. Reads come from concurrent page
// goroutines while the control goroutine writes.
type resultStore struct {
	mu     sync.RWMutex
	images map[int]transform.Image
}

func newResultStore() *resultStore {
	return &resultStore{images: make(map[int]transform.Image)}
}

func (s *resultStore) put(index int, img transform.Image) {
	s.mu.Lock()
	s.images[index] = img
	s.mu.Unlock()
}

func (s *resultStore) resolve(index int) (transform.Image, bool) {
	s.mu.RLock()
	img, ok := s.images[index]
	s.mu.RUnlock()
	return img, ok
}

// saveEvents persists completions as they stream in.
type saveEvents struct {
	store  *resultStore // nil when the mode carries no references
	writer *manifest.Writer
	logger *slog.Logger
}

func (s saveEvents) BatchStarted([]int) {}

func (s saveEvents) PageCompleted(res orchestrator.Result) {
	if s.store != nil {
		s.store.put(res.Index, res.Image)
	}
	if _, err := s.writer.SavePage(res.Index, res.Image); err != nil {
		s.logger.Error("saving page failed", "page", res.Index, "error", err)
	}
}

// runPages wires one full run: input expansion, builder, client,
// orchestrator and output, for either mode.
func runPages(cfg *config.Config, args []string, mode plan.Mode, instruction func(refCount int, meta page.Metadata) string) error {
	if cfg.API.Key == "" {
		return errors.New("no API key configured (set --api-key or INKSHIFT_API_KEY)")
	}

	paths, cleanup, err := expandInputs(args)
	if err != nil {
		return err
	}
	defer cleanup()

	writer, err := manifest.NewWriter(cfg.Output.Dir, mode.String(), cfg.API.Model, paths)
	if err != nil {
		return err
	}

	var store *resultStore
	builder := &page.Builder{
		Paths:        paths,
		MaxDimension: cfg.Batch.MaxDimension,
		Instruction:  instruction,
	}
	if mode == plan.ModeChained {
		store = newResultStore()
		builder.Resolve = store.resolve
	}

	client := transform.NewClient(transform.Config{
		APIKey:  cfg.API.Key,
		Model:   cfg.API.Model,
		BaseURL: cfg.API.BaseURL,
		Logger:  slog.Default(),
	})

	events := orchestrator.MultiEvents{
		saveEvents{store: store, writer: writer, logger: slog.Default()},
	}
	var progress *orchestrator.ConsoleProgress
	if cfg.Output.Progress && !cfg.Output.Quiet {
		progress = orchestrator.NewConsoleProgress(os.Stderr, "", len(paths))
		events = append(events, progress)
	}

	runner := orchestrator.New(client, builder, orchestrator.Config{
		Mode:       mode,
		TotalPages: len(paths),
		MaxWidth:   cfg.Batch.MaxWidth,
		Resolution: cfg.API.Resolution,
		Events:     events,
		Logger:     slog.Default(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := runner.Run(ctx)
	if progress != nil {
		progress.Finish()
	}

	manifestPath, err := writer.Finalize(cfg.Output.Format)
	if err != nil {
		if runErr != nil {
			return runErr
		}
		return err
	}
	if !cfg.Output.Quiet {
		fmt.Fprintf(os.Stdout, "Results written to %s\n", manifestPath)
	}
	return runErr
}
