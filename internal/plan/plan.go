package plan

// Package plan computes batch membership and reference windows for
// sequential-batch page transformation runs.

// Mode selects how batch widths are computed.
type Mode int

const (
	// ModeChained ramps batch width with the number of completed pages,
	// so every in-flight page has reference material to lean on.
	ModeChained Mode = iota
	// ModeFlat uses the full configured width from the first batch on.
	ModeFlat
)

func (m Mode) String() string {
	switch m {
	case ModeChained:
		return "chained"
	case ModeFlat:
		return "flat"
	default:
		return "unknown"
	}
}

// Input carries the counters a plan is derived from. Completed is the
// registry of successfully finished page indices, in reference order.
type Input struct {
	TotalPages int
	MaxWidth   int
	Completed  []int
	Ordinal    int // 1-based batch number
	Cursor     int // next unprocessed page index
}

// Batch describes one round of work: the contiguous run of pages to
// process and the reference pages every request in the batch embeds.
type Batch struct {
	Ordinal          int
	PageIndices      []int
	ReferenceIndices []int
}

// Next computes the batch for the given counters. It is pure: identical
// inputs always produce identical output, and it never fails.
func Next(mode Mode, in Input) Batch {
	count := width(mode, in)
	if remaining := in.TotalPages - in.Cursor; count > remaining {
		count = remaining
	}
	if count < 0 {
		count = 0
	}

	pages := make([]int, count)
	for i := range pages {
		pages[i] = in.Cursor + i
	}

	return Batch{
		Ordinal:          in.Ordinal,
		PageIndices:      pages,
		ReferenceIndices: referenceWindow(mode, in),
	}
}

// width returns the unclamped batch width for the mode.
//
// Chained mode processes exactly one page first to seed the reference
// chain, then grows by at most one slot per round, never exceeding the
// configured cap or the number of references available.
func width(mode Mode, in Input) int {
	if mode == ModeFlat {
		return in.MaxWidth
	}
	if in.Ordinal <= 1 {
		return 1
	}
	w := in.Ordinal
	if in.MaxWidth < w {
		w = in.MaxWidth
	}
	if c := len(in.Completed); c < w {
		w = c
	}
	// A run where every page so far failed leaves the registry empty;
	// still advance one page per round so the cursor always reaches the
	// end of the input.
	if w < 1 {
		w = 1
	}
	return w
}

// referenceWindow returns the last min(MaxWidth, len(Completed)) entries
// of the completed registry. Flat mode carries no references.
func referenceWindow(mode Mode, in Input) []int {
	if mode == ModeFlat {
		return nil
	}
	k := in.MaxWidth
	if len(in.Completed) < k {
		k = len(in.Completed)
	}
	if k <= 0 {
		return nil
	}
	window := make([]int, k)
	copy(window, in.Completed[len(in.Completed)-k:])
	return window
}
