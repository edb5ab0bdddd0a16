package orchestrator

// Package orchestrator drives sequential batches of concurrent page
// transformation requests. Batches are planned from completion
// counters, pages within a batch run concurrently, and the batch
// boundary is a hard join: no page of batch N+1 starts before every
// page of batch N has settled.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/inkshift/internal/plan"
	"github.com/MeKo-Tech/inkshift/internal/transform"
)

// Result is a successfully transformed page.
type Result struct {
	Index int
	Image transform.Image
}

// Events receives run notifications. Both callbacks fire from the
// orchestrator's single control goroutine, never concurrently;
// implementations must not block indefinitely.
type Events interface {
	// BatchStarted fires once per batch with the page indices about to
	// be dispatched.
	BatchStarted(indices []int)
	// PageCompleted fires as soon as an individual page resolves with
	// an image, without waiting for its batch-mates.
	PageCompleted(res Result)
}

// NopEvents ignores all notifications.
type NopEvents struct{}

func (NopEvents) BatchStarted([]int)   {}
func (NopEvents) PageCompleted(Result) {}

// Submitter sends one assembled request to the transformation service.
type Submitter interface {
	Submit(ctx context.Context, parts []transform.Part, resolution, requestID string) ([]transform.Image, error)
}

// SubmitFunc adapts a function to the Submitter interface.
type SubmitFunc func(ctx context.Context, parts []transform.Part, resolution, requestID string) ([]transform.Image, error)

func (f SubmitFunc) Submit(ctx context.Context, parts []transform.Part, resolution, requestID string) ([]transform.Image, error) {
	return f(ctx, parts, resolution, requestID)
}

// Builder assembles the request parts for one page given the reference
// indices chosen for its batch.
type Builder interface {
	Build(index int, refs []int) ([]transform.Part, error)
}

// BuildFunc adapts a function to the Builder interface.
type BuildFunc func(index int, refs []int) ([]transform.Part, error)

func (f BuildFunc) Build(index int, refs []int) ([]transform.Part, error) {
	return f(index, refs)
}

// Config holds run settings.
type Config struct {
	Mode       plan.Mode
	TotalPages int
	MaxWidth   int
	Resolution string
	Events     Events
	Logger     *slog.Logger
}

// Runner executes one run over a fixed page sequence.
type Runner struct {
	submit  Submitter
	builder Builder
	cfg     Config
	events  Events
	logger  *slog.Logger
}

// New creates a runner. MaxWidth below 1 is raised to 1.
func New(submit Submitter, builder Builder, cfg Config) *Runner {
	if cfg.MaxWidth < 1 {
		cfg.MaxWidth = 1
	}
	events := cfg.Events
	if events == nil {
		events = NopEvents{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{submit: submit, builder: builder, cfg: cfg, events: events, logger: logger}
}

type outcome struct {
	index int
	image transform.Image
	ok    bool
	err   error
}

// Run processes all pages and returns once every page has been
// attempted. In flat mode the first page-level error aborts the run
// after its batch settles; chained mode absorbs page failures as skips
// so a bad page costs only itself and its absence from the reference
// pool.
func (r *Runner) Run(ctx context.Context) error {
	var completed []int
	cursor := 0
	mode := r.cfg.Mode

	for ordinal := 1; cursor < r.cfg.TotalPages; ordinal++ {
		batch := plan.Next(mode, plan.Input{
			TotalPages: r.cfg.TotalPages,
			MaxWidth:   r.cfg.MaxWidth,
			Completed:  completed,
			Ordinal:    ordinal,
			Cursor:     cursor,
		})
		if len(batch.PageIndices) == 0 {
			break
		}

		r.logger.Info("dispatching batch",
			"mode", mode.String(), "batch", batch.Ordinal,
			"pages", len(batch.PageIndices), "first", batch.PageIndices[0],
			"references", len(batch.ReferenceIndices))
		batchesTotal.WithLabelValues(mode.String()).Inc()
		batchWidth.WithLabelValues(mode.String()).Observe(float64(len(batch.PageIndices)))
		r.events.BatchStarted(append([]int(nil), batch.PageIndices...))

		results := make(chan outcome, len(batch.PageIndices))
		for _, idx := range batch.PageIndices {
			go r.processPage(ctx, batch, idx, results)
		}

		// The control goroutine receives completions as they arrive and
		// fires notifications immediately; shared counters are only
		// touched after the join below.
		var done []int
		var firstErr error
		for range batch.PageIndices {
			out := <-results
			pagesAttempted.WithLabelValues(mode.String()).Inc()
			switch {
			case out.err != nil:
				pagesFailed.WithLabelValues(mode.String()).Inc()
				if mode == plan.ModeFlat {
					if firstErr == nil {
						firstErr = fmt.Errorf("page %d: %w", out.index, out.err)
					}
					continue
				}
				r.logger.Warn("page failed, skipping",
					"page", out.index, "batch", batch.Ordinal, "error", out.err)
			case !out.ok:
				pagesSkipped.WithLabelValues(mode.String()).Inc()
				if mode == plan.ModeFlat {
					if firstErr == nil {
						firstErr = fmt.Errorf("page %d: service returned no image", out.index)
					}
					continue
				}
				r.logger.Warn("page produced no image, skipping",
					"page", out.index, "batch", batch.Ordinal)
			default:
				pagesCompleted.WithLabelValues(mode.String()).Inc()
				done = append(done, out.index)
				r.events.PageCompleted(Result{Index: out.index, Image: out.image})
			}
		}

		if firstErr != nil {
			return firstErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		// Completion order within the batch is arbitrary; the registry
		// must stay in page order so reference windows read naturally.
		sort.Ints(done)
		completed = append(completed, done...)
		cursor += len(batch.PageIndices)
	}

	r.logger.Info("run finished",
		"mode", mode.String(), "pages", r.cfg.TotalPages, "completed", len(completed))
	return nil
}

// processPage builds and submits one page request, reporting exactly
// one outcome. It reads shared state only through the batch plan and
// the builder's resolver.
func (r *Runner) processPage(ctx context.Context, batch plan.Batch, index int, results chan<- outcome) {
	start := time.Now()

	parts, err := r.builder.Build(index, batch.ReferenceIndices)
	if err != nil {
		results <- outcome{index: index, err: err}
		return
	}

	requestID := fmt.Sprintf("b%d-p%d-%s", batch.Ordinal, index, uuid.NewString())
	images, err := r.submit.Submit(ctx, parts, r.cfg.Resolution, requestID)
	pageDuration.WithLabelValues(r.cfg.Mode.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		results <- outcome{index: index, err: err}
		return
	}
	if len(images) == 0 {
		results <- outcome{index: index}
		return
	}
	results <- outcome{index: index, image: images[0], ok: true}
}
