package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/forPelevin/subcut/internal/domain/timecode"
	"github.com/forPelevin/subcut/internal/types"
)

// MaxLineLen is the widest line a cue may carry, in characters.
const MaxLineLen = 42

// BuildCues numbers and wraps segments. Segments whose start and end render to
// the same timecode, or whose text is blank, produce no cue and do not consume
// an index.
func BuildCues(segs []types.Segment) []types.Cue {
	cues := make([]types.Cue, 0, len(segs))
	for _, s := range segs {
		if timecode.Format(s.Start) == timecode.Format(s.End) || strings.TrimSpace(s.Text) == "" {
			continue
		}
		cues = append(cues, types.Cue{
			Index: len(cues) + 1,
			Start: s.Start,
			End:   s.End,
			Lines: Wrap(s.Text),
		})
	}
	return cues
}

// Wrap splits text into lines of at most MaxLineLen characters, breaking at the
// last whitespace that keeps the line within the limit. A run with no such
// whitespace is hard-broken at MaxLineLen characters.
func Wrap(text string) []string {
	rs := []rune(strings.TrimSpace(text))
	var lines []string
	push := func(r []rune) {
		if l := strings.TrimSpace(string(r)); l != "" {
			lines = append(lines, l)
		}
	}
	for len(rs) > MaxLineLen {
		cut := lastSpace(rs[:MaxLineLen])
		if cut <= 0 {
			push(rs[:MaxLineLen])
			rs = rs[MaxLineLen:]
			continue
		}
		push(rs[:cut])
		rs = []rune(strings.TrimLeftFunc(string(rs[cut+1:]), unicode.IsSpace))
	}
	push(rs)
	return lines
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if unicode.IsSpace(rs[i]) {
			return i
		}
	}
	return -1
}

// RenderSRT writes cues in SubRip layout.
func RenderSRT(cues []types.Cue) string {
	var b strings.Builder
	for _, c := range cues {
		b.WriteString(strconv.Itoa(c.Index))
		b.WriteString("\n")
		b.WriteString(timecode.Format(c.Start))
		b.WriteString(" --> ")
		b.WriteString(timecode.Format(c.End))
		b.WriteString("\n")
		for _, l := range c.Lines {
			b.WriteString(l)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WriteSRT renders segs to path and returns the number of cues written.
func WriteSRT(path string, segs []types.Segment) (int, error) {
	cues := BuildCues(segs)
	if err := os.WriteFile(path, []byte(RenderSRT(cues)), 0o644); err != nil {
		return 0, fmt.Errorf("write srt: %w", err)
	}
	return len(cues), nil
}

// ParseSRT reads SubRip cues. Blank-line separated blocks are expected to hold
// an index line, a timing line and zero or more text lines.
func ParseSRT(r io.Reader) ([]types.Cue, error) {
	sc := bufio.NewScanner(r)
	var (
		cues  []types.Cue
		block []string
		lineN int
	)
	flush := func() error {
		defer func() { block = block[:0] }()
		if len(block) == 0 {
			return nil
		}
		if len(block) < 2 {
			return fmt.Errorf("srt line %d: incomplete cue", lineN)
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(block[0]), "\ufeff"))
		if err != nil {
			return fmt.Errorf("srt line %d: bad index %q", lineN, block[0])
		}
		parts := strings.Split(block[1], "-->")
		if len(parts) != 2 {
			return fmt.Errorf("srt line %d: bad timing %q", lineN, block[1])
		}
		start, err := timecode.Parse(parts[0])
		if err != nil {
			return fmt.Errorf("srt line %d: %w", lineN, err)
		}
		end, err := timecode.Parse(parts[1])
		if err != nil {
			return fmt.Errorf("srt line %d: %w", lineN, err)
		}
		cues = append(cues, types.Cue{
			Index: idx,
			Start: start,
			End:   end,
			Lines: append([]string(nil), block[2:]...),
		})
		return nil
	}
	for sc.Scan() {
		lineN++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cues, nil
}

// CountSRTCues parses the file at path and returns its cue count.
func CountSRTCues(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("read srt: %w", err)
	}
	defer f.Close()
	cues, err := ParseSRT(f)
	if err != nil {
		return 0, err
	}
	return len(cues), nil
}
