package edl

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/subcut/internal/types"
)

func TestParse(t *testing.T) {
	in := `# comskip output
12.5	60.25	0

1800 1805
 3000   3100  0
`
	got, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []types.EDLEntry{
		{StartSec: 12.5, EndSec: 60.25},
		{StartSec: 1800, EndSec: 1805},
		{StartSec: 3000, EndSec: 3100},
	}, got)
}

func TestParse_Malformed(t *testing.T) {
	tests := map[string]string{
		"single field": "10\n",
		"not a number": "10 abc\n",
		"reversed":     "10 5\n",
		"negative":     "-1 5\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader("1 2\n" + in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show.edl")
	require.NoError(t, os.WriteFile(path, []byte("1800 1805 0\n"), 0o644))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []types.EDLEntry{{StartSec: 1800, EndSec: 1805}}, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.edl"))
	assert.Error(t, err)
}

func TestAdjust_PadsAndFilters(t *testing.T) {
	in := []types.EDLEntry{
		{StartSec: 5, EndSec: 30},      // starts inside lead
		{StartSec: 10, EndSec: 40},     // start equal to lead is not after it
		{StartSec: 1800, EndSec: 1805}, // kept
		{StartSec: 3500, EndSec: 3589}, // padded end 3590 is not below 3590
		{StartSec: 3500, EndSec: 3588}, // kept
	}
	got := Adjust(in, 3600, 10, 10)
	assert.Equal(t, []types.EDLEntry{
		{StartSec: 1800, EndSec: 1806},
		{StartSec: 3500, EndSec: 3589},
	}, got)
	assert.Equal(t, 1805.0, in[2].EndSec, "input must not be modified")
}

func TestAdjust_RetainedEntriesStayInsideBounds(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		duration := 600 + r.Float64()*7200
		lead, end := r.Float64()*60, r.Float64()*60
		var in []types.EDLEntry
		for j := 0; j < 8; j++ {
			s := r.Float64() * duration
			in = append(in, types.EDLEntry{StartSec: s, EndSec: s + r.Float64()*240})
		}
		for _, e := range Adjust(in, duration, lead, end) {
			assert.Greater(t, e.StartSec, lead)
			assert.Less(t, e.EndSec, duration-end)
		}
	}
}

func TestPlan_OneEntry(t *testing.T) {
	got := Plan([]types.EDLEntry{{StartSec: 1800, EndSec: 1806}}, 3600)
	assert.Equal(t, []types.TimeRange{{Start: 0, End: 1800}, {Start: 1806, End: 3600}}, got)
	assert.Equal(t, 3594.0, Kept(got))
}

func TestPlan_Empty(t *testing.T) {
	assert.Equal(t, []types.TimeRange{{Start: 0, End: 3600}}, Plan(nil, 3600))
}

func TestPlan_PartitionsTimeline(t *testing.T) {
	entries := []types.EDLEntry{
		{StartSec: 900, EndSec: 1021},
		{StartSec: 120, EndSec: 241},
		{StartSec: 2400, EndSec: 2581},
	}
	duration := 3000.0
	got := Plan(entries, duration)
	require.Len(t, got, len(entries)+1)

	assert.Equal(t, 0.0, got[0].Start)
	assert.Equal(t, duration, got[len(got)-1].End)
	cut := 0.0
	for i, e := range []types.EDLEntry{entries[1], entries[0], entries[2]} {
		assert.Equal(t, e.StartSec, got[i].End, "range %d must end at the cut", i)
		assert.Equal(t, e.EndSec, got[i+1].Start, "range %d must resume after the cut", i+1)
		cut += e.EndSec - e.StartSec
	}
	assert.InDelta(t, duration-cut, Kept(got), 1e-9)
}

func TestPlan_MergesOverlaps(t *testing.T) {
	got := Plan([]types.EDLEntry{{StartSec: 100, EndSec: 200}, {StartSec: 150, EndSec: 250}}, 1000)
	assert.Equal(t, []types.TimeRange{{Start: 0, End: 100}, {Start: 250, End: 1000}}, got)
}
