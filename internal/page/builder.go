package page

import (
	"fmt"

	"github.com/MeKo-Tech/inkshift/internal/transform"
)

// Resolver returns the already-produced output of a completed page, or
// false when no output was captured for that index (failed or skipped
// pages). Implementations must be safe for concurrent use.
type Resolver func(index int) (transform.Image, bool)

// Builder assembles the ordered content sequence for one target page.
// Files are loaded lazily so a bad file fails only its own request.
type Builder struct {
	Paths []string
	// MaxDimension caps page size before submission. 0 keeps the original.
	MaxDimension int
	// Resolve supplies reference image bytes. Nil when the mode carries
	// no references.
	Resolve Resolver
	// Instruction produces the trailing instruction text, given the
	// number of references actually attached and the target's metadata.
	Instruction func(refCount int, meta Metadata) string
}

// Build loads the target page and assembles its request parts: labeled
// reference images in the given order (absent ones skipped silently),
// then the labeled target image, then the instruction text last.
func (b *Builder) Build(index int, refs []int) ([]transform.Part, error) {
	if index < 0 || index >= len(b.Paths) {
		return nil, fmt.Errorf("page: index %d out of range [0,%d)", index, len(b.Paths))
	}

	target, err := Load(b.Paths[index])
	if err != nil {
		return nil, err
	}
	if err := target.FitWithin(b.MaxDimension); err != nil {
		return nil, err
	}

	parts := make([]transform.Part, 0, 2*len(refs)+3)
	refCount := 0
	if b.Resolve != nil {
		for _, ref := range refs {
			img, ok := b.Resolve(ref)
			if !ok {
				continue
			}
			parts = append(parts, transform.TextPart(fmt.Sprintf("Reference: previously processed page %d.", ref+1)))
			parts = append(parts, transform.ImagePart(img.Data, img.MediaType))
			refCount++
		}
	}

	parts = append(parts, transform.TextPart(fmt.Sprintf("Page %d to process:", index+1)))
	parts = append(parts, transform.ImagePart(target.Data, target.MediaType))
	parts = append(parts, transform.TextPart(b.Instruction(refCount, target.Meta)))
	return parts, nil
}
