// Package transcript cleans up the raw segment stream of a speech engine before
// it is rendered as subtitles.
package transcript

import (
	"iter"
	"sort"
	"strings"

	"github.com/forPelevin/subcut/internal/types"
)

// Normalize stable-sorts segments by start and collapses runs of consecutive
// segments with identical text, keeping the last one of each run. The input
// slice is not modified.
func Normalize(segs []types.Segment) []types.Segment {
	if len(segs) == 0 {
		return nil
	}
	sorted := append([]types.Segment(nil), segs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	// Some models repeat one utterance across spuriously split segments; the
	// last copy carries the timing that lines up with the audio.
	kept := make([]types.Segment, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		if i == len(sorted)-1 || sorted[i].Text != sorted[i+1].Text {
			kept = append(kept, sorted[i])
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}

// Suppress reports whether text looks like a descriptive caption (music cues,
// bracketed sound descriptions) rather than speech.
func Suppress(text string) bool {
	return strings.Contains(text, "♪ ♪") || strings.ContainsAny(text, "()[]")
}

// Collect drains an engine sequence in arrival order. Unless includeSDH is set,
// descriptive captions are dropped as they arrive. The first error stops
// collection and is returned with the segments gathered so far.
func Collect(seq iter.Seq2[types.Segment, error], includeSDH bool) ([]types.Segment, error) {
	var out []types.Segment
	for seg, err := range seq {
		if err != nil {
			return out, err
		}
		if !includeSDH && Suppress(seg.Text) {
			continue
		}
		out = append(out, seg)
	}
	return out, nil
}
