package orchestrator

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/inkshift/internal/plan"
	"github.com/MeKo-Tech/inkshift/internal/transform"
)

// recorder captures run notifications. Callbacks fire from the control
// goroutine only, so no locking is needed.
type recorder struct {
	batches [][]int
	pages   []Result
}

func (r *recorder) BatchStarted(indices []int) { r.batches = append(r.batches, indices) }
func (r *recorder) PageCompleted(res Result)   { r.pages = append(r.pages, res) }

func (r *recorder) completedIndices() []int {
	out := make([]int, len(r.pages))
	for i, p := range r.pages {
		out[i] = p.Index
	}
	return out
}

func (r *recorder) batchSizes() []int {
	out := make([]int, len(r.batches))
	for i, b := range r.batches {
		out[i] = len(b)
	}
	return out
}

// hookEvents forwards to a recorder and additionally invokes onPage for
// every completion.
type hookEvents struct {
	*recorder
	onPage func(Result)
}

func (h hookEvents) PageCompleted(res Result) {
	h.recorder.PageCompleted(res)
	if h.onPage != nil {
		h.onPage(res)
	}
}

// refRecorder is a Builder that records the reference window each page
// was built with and tags the request with its page index.
type refRecorder struct {
	mu   sync.Mutex
	refs map[int][]int
}

func newRefRecorder() *refRecorder {
	return &refRecorder{refs: make(map[int][]int)}
}

func (b *refRecorder) Build(index int, refs []int) ([]transform.Part, error) {
	b.mu.Lock()
	b.refs[index] = append([]int(nil), refs...)
	b.mu.Unlock()
	return []transform.Part{transform.TextPart(strconv.Itoa(index))}, nil
}

// pageIndex recovers the page index a request was built for.
func pageIndex(t *testing.T, parts []transform.Part) int {
	t.Helper()
	require.NotEmpty(t, parts)
	idx, err := strconv.Atoi(parts[0].Text)
	require.NoError(t, err)
	return idx
}

func okSubmit(t *testing.T) Submitter {
	return SubmitFunc(func(ctx context.Context, parts []transform.Part, resolution, requestID string) ([]transform.Image, error) {
		idx := pageIndex(t, parts)
		return []transform.Image{{Data: []byte{byte(idx)}, MediaType: "image/png"}}, nil
	})
}

func TestRun_ChainedRampAndReferences(t *testing.T) {
	rec := &recorder{}
	builder := newRefRecorder()
	r := New(okSubmit(t), builder, Config{
		Mode: plan.ModeChained, TotalPages: 12, MaxWidth: 4, Events: rec,
	})

	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []int{1, 1, 2, 4, 4}, rec.batchSizes())
	assert.Len(t, rec.pages, 12)
	assert.ElementsMatch(t, seq(12), rec.completedIndices())

	assert.Empty(t, builder.refs[0], "seed page has no references")
	assert.Equal(t, []int{0}, builder.refs[1])
	assert.Equal(t, []int{0, 1}, builder.refs[2])
	assert.Equal(t, []int{0, 1}, builder.refs[3])
	assert.Equal(t, []int{0, 1, 2, 3}, builder.refs[4], "window capped at max width")
	assert.Equal(t, []int{4, 5, 6, 7}, builder.refs[8])
}

func TestRun_ChainedEmptyResultIsSkip(t *testing.T) {
	rec := &recorder{}
	builder := newRefRecorder()
	submit := SubmitFunc(func(ctx context.Context, parts []transform.Part, resolution, requestID string) ([]transform.Image, error) {
		idx := pageIndex(t, parts)
		if idx == 1 {
			return nil, nil
		}
		return []transform.Image{{Data: []byte{byte(idx)}, MediaType: "image/png"}}, nil
	})
	r := New(submit, builder, Config{
		Mode: plan.ModeChained, TotalPages: 6, MaxWidth: 3, Events: rec,
	})

	require.NoError(t, r.Run(context.Background()), "an empty result must not halt the run")

	assert.NotContains(t, rec.completedIndices(), 1)
	assert.ElementsMatch(t, []int{0, 2, 3, 4, 5}, rec.completedIndices())

	// The failed page consumed its batch slot but never entered the
	// reference pool.
	assert.Equal(t, []int{1, 1, 1, 2, 1}, rec.batchSizes())
	assert.Equal(t, []int{0, 2}, builder.refs[3])
	for _, refs := range builder.refs {
		assert.NotContains(t, refs, 1)
	}
}

func TestRun_ChainedRemoteErrorIsSkip(t *testing.T) {
	rec := &recorder{}
	submit := SubmitFunc(func(ctx context.Context, parts []transform.Part, resolution, requestID string) ([]transform.Image, error) {
		if pageIndex(t, parts) == 2 {
			return nil, &transform.APIError{StatusCode: 500}
		}
		return []transform.Image{{Data: []byte{1}, MediaType: "image/png"}}, nil
	})
	r := New(submit, newRefRecorder(), Config{
		Mode: plan.ModeChained, TotalPages: 5, MaxWidth: 2, Events: rec,
	})

	require.NoError(t, r.Run(context.Background()))
	assert.NotContains(t, rec.completedIndices(), 2)
	assert.Len(t, rec.pages, 4)
}

func TestRun_ChainedBuildErrorIsSkip(t *testing.T) {
	rec := &recorder{}
	builder := BuildFunc(func(index int, refs []int) ([]transform.Part, error) {
		if index == 0 {
			return nil, errors.New("undecodable file")
		}
		return []transform.Part{transform.TextPart(strconv.Itoa(index))}, nil
	})
	r := New(okSubmit(t), builder, Config{
		Mode: plan.ModeChained, TotalPages: 3, MaxWidth: 2, Events: rec,
	})

	require.NoError(t, r.Run(context.Background()))
	assert.ElementsMatch(t, []int{1, 2}, rec.completedIndices())
}

func TestRun_FlatFixedBatches(t *testing.T) {
	rec := &recorder{}
	builder := newRefRecorder()
	r := New(okSubmit(t), builder, Config{
		Mode: plan.ModeFlat, TotalPages: 10, MaxWidth: 3, Events: rec,
	})

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, []int{3, 3, 3, 1}, rec.batchSizes())
	assert.Len(t, rec.pages, 10)
	for idx, refs := range builder.refs {
		assert.Empty(t, refs, "page %d: flat mode has no references", idx)
	}
}

func TestRun_FlatErrorAbortsRun(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	submit := SubmitFunc(func(ctx context.Context, parts []transform.Part, resolution, requestID string) ([]transform.Image, error) {
		idx := pageIndex(t, parts)
		if idx == 4 {
			return nil, boom
		}
		return []transform.Image{{Data: []byte{byte(idx)}, MediaType: "image/png"}}, nil
	})
	r := New(submit, newRefRecorder(), Config{
		Mode: plan.ModeFlat, TotalPages: 10, MaxWidth: 3, Events: rec,
	})

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "page 4")

	// The failing batch settles, then the run stops: no third batch.
	assert.Equal(t, []int{3, 3}, rec.batchSizes())
	// Batch-mates that succeeded still delivered their notifications.
	assert.Subset(t, rec.completedIndices(), []int{3, 5})
	assert.NotContains(t, rec.completedIndices(), 4)
}

func TestRun_FlatEmptyResultAbortsRun(t *testing.T) {
	submit := SubmitFunc(func(ctx context.Context, parts []transform.Part, resolution, requestID string) ([]transform.Image, error) {
		if pageIndex(t, parts) == 1 {
			return nil, nil
		}
		return []transform.Image{{Data: []byte{1}, MediaType: "image/png"}}, nil
	})
	r := New(submit, newRefRecorder(), Config{
		Mode: plan.ModeFlat, TotalPages: 4, MaxWidth: 2,
	})

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image")
}

// Completion order within a batch is arbitrary; the reference window of
// the following batch must still be in ascending page order.
func TestRun_RegistrySortedDespiteCompletionOrder(t *testing.T) {
	rec := &recorder{}
	builder := newRefRecorder()
	page3Notified := make(chan struct{})
	events := hookEvents{recorder: rec, onPage: func(res Result) {
		if res.Index == 3 {
			close(page3Notified)
		}
	}}
	submit := SubmitFunc(func(ctx context.Context, parts []transform.Part, resolution, requestID string) ([]transform.Image, error) {
		idx := pageIndex(t, parts)
		if idx == 2 {
			// Hold page 2 until page 3's completion has been delivered.
			<-page3Notified
		}
		return []transform.Image{{Data: []byte{byte(idx)}, MediaType: "image/png"}}, nil
	})
	r := New(submit, builder, Config{
		Mode: plan.ModeChained, TotalPages: 6, MaxWidth: 4, Events: events,
	})

	require.NoError(t, r.Run(context.Background()))

	// Pages 2 and 3 share a batch and completed out of order.
	assert.Equal(t, []int{1, 1, 2, 2}, rec.batchSizes())
	completedOrder := rec.completedIndices()
	pos2, pos3 := indexOf(completedOrder, 2), indexOf(completedOrder, 3)
	assert.Less(t, pos3, pos2, "page 3 streamed its completion before page 2")

	assert.Equal(t, []int{0, 1, 2, 3}, builder.refs[4], "window re-sorted ascending")
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	submit := SubmitFunc(func(ctx context.Context, parts []transform.Part, resolution, requestID string) ([]transform.Image, error) {
		cancel()
		return nil, ctx.Err()
	})
	r := New(submit, newRefRecorder(), Config{
		Mode: plan.ModeChained, TotalPages: 5, MaxWidth: 2,
	})

	err := r.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ZeroPages(t *testing.T) {
	rec := &recorder{}
	r := New(okSubmit(t), newRefRecorder(), Config{
		Mode: plan.ModeChained, TotalPages: 0, MaxWidth: 4, Events: rec,
	})
	require.NoError(t, r.Run(context.Background()))
	assert.Empty(t, rec.batches)
}

func seq(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
