package timecode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00,000"},
		{61*time.Second + 234*time.Millisecond, "00:01:01,234"},
		{25*time.Hour + 999*time.Millisecond, "25:00:00,999"},
		{1500 * time.Microsecond, "00:00:00,001"},
		{-time.Second, "00:00:00,000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("01:02:03,456")
	require.NoError(t, err)
	assert.Equal(t, time.Hour+2*time.Minute+3*time.Second+456*time.Millisecond, got)

	got, err = Parse(" 00:00:01.500 ")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, got)

	for _, bad := range []string{"", "00:00:01", "00:01,000", "aa:00:00,000", "00:61:00,000"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, ms := range []int64{0, 1, 999, 1000, 59_999, 3_599_999, 86_400_123} {
		d := time.Duration(ms) * time.Millisecond
		got, err := Parse(Format(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

func TestArg(t *testing.T) {
	assert.Equal(t, "10", Arg(10))
	assert.Equal(t, "3574", Arg(3600-6-20))
	assert.Equal(t, "12.5", Arg(12.5))
	assert.Equal(t, "0", Arg(0))
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("01:00:00.00")
	require.NoError(t, err)
	assert.Equal(t, 3600.0, got)

	got, err = ParseClock("00:22:41.52")
	require.NoError(t, err)
	assert.InDelta(t, 1361.52, got, 1e-9)

	_, err = ParseClock("N/A")
	assert.Error(t, err)
}

func TestFromSeconds(t *testing.T) {
	assert.Equal(t, 1234*time.Millisecond, FromSeconds(1.2344))
	assert.Equal(t, 1235*time.Millisecond, FromSeconds(1.2346))
}
