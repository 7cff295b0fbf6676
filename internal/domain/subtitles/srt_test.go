package subtitles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/subcut/internal/types"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"short", "Hello there.", []string{"Hello there."}},
		{"exactly limit", strings.Repeat("a", 42), []string{strings.Repeat("a", 42)}},
		{
			"breaks at last space",
			"The quick brown fox jumps over the lazy dog and keeps running far away",
			[]string{"The quick brown fox jumps over the lazy", "dog and keeps running far away"},
		},
		{
			"space right after limit",
			strings.Repeat("b", 42) + " tail",
			[]string{strings.Repeat("b", 42), "tail"},
		},
		{
			"space at limit loses to earlier space",
			strings.Repeat("x", 38) + " yyy zzz",
			[]string{strings.Repeat("x", 38), "yyy zzz"},
		},
		{"trims", "   padded   ", []string{"padded"}},
		{"collapses double space at break", strings.Repeat("c", 40) + "  next word", []string{strings.Repeat("c", 40), "next word"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Wrap(tt.in))
		})
	}
}

func TestWrap_NoWhitespaceHardBreaks(t *testing.T) {
	in := strings.Repeat("x", 85)
	got := Wrap(in)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 42)
	assert.Len(t, got[1], 42)
	assert.Len(t, got[2], 1)
	assert.Equal(t, in, strings.Join(got, ""))
}

func TestWrap_LinesNeverExceedLimit(t *testing.T) {
	inputs := []string{
		strings.Repeat("word ", 50),
		strings.Repeat("longerwordthanusual ", 12),
		"a " + strings.Repeat("z", 100) + " b",
		"Привет мир, это длинная строка субтитров, которая должна переноситься правильно",
	}
	for _, in := range inputs {
		for _, l := range Wrap(in) {
			assert.LessOrEqual(t, len([]rune(l)), MaxLineLen, l)
			assert.Equal(t, strings.TrimSpace(l), l)
		}
	}
}

func TestBuildCues_SkipsEmptyAndZeroLength(t *testing.T) {
	segs := []types.Segment{
		{Start: 0, End: ms(1000), Text: "first"},
		{Start: ms(1000), End: ms(1000), Text: "zero length"},
		{Start: ms(1000), End: ms(1000) + 500*time.Microsecond, Text: "same rendered ms"},
		{Start: ms(2000), End: ms(3000), Text: "   "},
		{Start: ms(3000), End: ms(4000), Text: "second"},
	}
	cues := BuildCues(segs)
	require.Len(t, cues, 2)
	assert.Equal(t, 1, cues[0].Index)
	assert.Equal(t, 2, cues[1].Index)
	assert.Equal(t, []string{"second"}, cues[1].Lines)
}

func TestRenderSRT_Layout(t *testing.T) {
	cues := BuildCues([]types.Segment{
		{Start: ms(1500), End: ms(3250), Text: " Hello world "},
		{Start: ms(61_000), End: ms(62_001), Text: "Bye"},
	})
	want := "1\n00:00:01,500 --> 00:00:03,250\nHello world\n\n" +
		"2\n00:01:01,000 --> 00:01:02,001\nBye\n\n"
	assert.Equal(t, want, RenderSRT(cues))
}

func TestWriteSRT_RoundTrip(t *testing.T) {
	segs := []types.Segment{
		{Start: ms(0), End: ms(1234), Text: "A short line."},
		{Start: ms(1234), End: ms(5678), Text: "A much longer utterance that will certainly need to be wrapped across lines."},
		{Start: ms(3_600_001), End: ms(3_601_999), Text: "  late  "},
	}
	path := filepath.Join(t.TempDir(), "out.srt")
	n, err := WriteSRT(path, segs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cues, err := ParseSRT(f)
	require.NoError(t, err)
	require.Len(t, cues, len(segs))

	for i, c := range cues {
		assert.Equal(t, i+1, c.Index)
		assert.Equal(t, segs[i].Start, c.Start)
		assert.Equal(t, segs[i].End, c.End)
		assert.Equal(t, strings.Join(strings.Fields(segs[i].Text), " "), strings.Join(c.Lines, " "))
	}

	count, err := CountSRTCues(path)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestParseSRT_Errors(t *testing.T) {
	_, err := ParseSRT(strings.NewReader("x\n00:00:00,000 --> 00:00:01,000\nhi\n"))
	assert.Error(t, err)
	_, err = ParseSRT(strings.NewReader("1\n00:00:00,000 00:00:01,000\nhi\n"))
	assert.Error(t, err)
	cues, err := ParseSRT(strings.NewReader("\ufeff1\r\n00:00:00,000 --> 00:00:01,000\r\nhi\r\n"))
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, []string{"hi"}, cues[0].Lines)
}
