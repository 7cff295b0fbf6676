// Package edl reads commercial-break edit decision lists and turns them into
// the ranges of the source that survive the cut.
package edl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/forPelevin/subcut/internal/types"
)

// EndPadding is added to every entry's end to cover detector imprecision.
const EndPadding = 1.0

var ErrMalformed = errors.New("malformed edl")

// Parse reads "start end [type]" lines in seconds. Blank lines and lines
// starting with '#' are ignored.
func Parse(r io.Reader) ([]types.EDLEntry, error) {
	sc := bufio.NewScanner(r)
	var (
		out   []types.EDLEntry
		lineN int
	)
	for sc.Scan() {
		lineN++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(line)
		if len(f) < 2 {
			return nil, fmt.Errorf("%w: line %d: want \"start end [type]\", got %q", ErrMalformed, lineN, line)
		}
		start, err := strconv.ParseFloat(f[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: start %q", ErrMalformed, lineN, f[0])
		}
		end, err := strconv.ParseFloat(f[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: end %q", ErrMalformed, lineN, f[1])
		}
		if start < 0 || end < start {
			return nil, fmt.Errorf("%w: line %d: bad range %s..%s", ErrMalformed, lineN, f[0], f[1])
		}
		out = append(out, types.EDLEntry{StartSec: start, EndSec: end})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read edl: %w", err)
	}
	return out, nil
}

// Load parses the EDL file at path.
func Load(path string) ([]types.EDLEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open edl: %w", err)
	}
	defer f.Close()
	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Adjust pads each entry's end by EndPadding and keeps only entries that start
// after lead and end before duration-end. The input is not modified.
func Adjust(entries []types.EDLEntry, duration, lead, end float64) []types.EDLEntry {
	out := make([]types.EDLEntry, 0, len(entries))
	for _, e := range entries {
		e.EndSec += EndPadding
		if e.StartSec > lead && e.EndSec < duration-end {
			out = append(out, e)
		}
	}
	return out
}

// Plan returns the ranges of [0, duration] that remain once every entry is
// excised: N+1 ranges for N disjoint entries. Entries are taken in start
// order; overlapping entries merge and empty ranges are dropped.
func Plan(entries []types.EDLEntry, duration float64) []types.TimeRange {
	sorted := append([]types.EDLEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartSec < sorted[j].StartSec })

	var (
		out    []types.TimeRange
		cursor float64
	)
	for _, e := range sorted {
		if e.StartSec > cursor {
			out = append(out, types.TimeRange{Start: cursor, End: e.StartSec})
		}
		if e.EndSec > cursor {
			cursor = e.EndSec
		}
	}
	if duration > cursor || len(out) == 0 {
		out = append(out, types.TimeRange{Start: cursor, End: duration})
	}
	return out
}

// Kept sums the lengths of ranges.
func Kept(ranges []types.TimeRange) float64 {
	var total float64
	for _, r := range ranges {
		total += r.Length()
	}
	return total
}
