package prompt

// Package prompt builds the instruction text appended to each request.

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// supportedRatios are the aspect ratios the image service accepts.
var supportedRatios = []struct {
	name  string
	value float64
}{
	{"1:1", 1.0},
	{"2:3", 2.0 / 3.0},
	{"3:2", 3.0 / 2.0},
	{"3:4", 3.0 / 4.0},
	{"4:3", 4.0 / 3.0},
	{"4:5", 4.0 / 5.0},
	{"5:4", 5.0 / 4.0},
	{"9:16", 9.0 / 16.0},
	{"16:9", 16.0 / 9.0},
	{"21:9", 21.0 / 9.0},
}

// AspectRatio maps a width/height ratio to the closest supported ratio
// string. Non-positive ratios fall back to 1:1.
func AspectRatio(ratio float64) string {
	if ratio <= 0 {
		return "1:1"
	}
	best := supportedRatios[0].name
	bestDist := math.Inf(1)
	for _, r := range supportedRatios {
		d := math.Abs(math.Log(ratio / r.value))
		if d < bestDist {
			bestDist = d
			best = r.name
		}
	}
	return best
}

// Colorize returns the colorization instruction for a page with
// refCount reference images attached and the given aspect ratio.
func Colorize(refCount int, ratio float64) string {
	base := "Colorize this black-and-white comic page in vibrant, natural full color. " +
		"Preserve every line, screentone, panel border and piece of text exactly as drawn; " +
		"change nothing but the coloring."
	if refCount > 0 {
		base = fmt.Sprintf(
			"Colorize this black-and-white comic page in vibrant, natural full color. "+
				"The %d reference image(s) above are previously colorized pages of the same work: "+
				"keep character colors, clothing, hair and overall palette consistent with them. "+
				"Preserve every line, screentone, panel border and piece of text exactly as drawn; "+
				"change nothing but the coloring.", refCount)
	}
	return fmt.Sprintf("%s Output a single %s image of the full page.", base, AspectRatio(ratio))
}

// Translate returns the translation instruction for the given language
// pair.
func Translate(from, to language.Tag) string {
	names := display.English.Languages()
	return fmt.Sprintf(
		"Translate all text on this comic page from %s to %s. "+
			"Replace the text inside speech bubbles, captions and sound effects with the translation, "+
			"matching the original lettering style and keeping the artwork untouched. "+
			"Output a single image of the full page.",
		names.Name(from), names.Name(to))
}
