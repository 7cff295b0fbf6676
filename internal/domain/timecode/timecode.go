// Package timecode converts between durations and the SRT time syntax.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Format renders d as HH:MM:SS,mmm. Sub-millisecond precision is truncated and
// negative values clamp to zero.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int64(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int64(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int64(d / time.Second)
	d -= time.Duration(s) * time.Second
	ms := int64(d / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// Parse reads HH:MM:SS,mmm. A period is accepted in place of the comma.
func Parse(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(parts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	h, errH := strconv.Atoi(hms[0])
	m, errM := strconv.Atoi(hms[1])
	s, errS := strconv.Atoi(hms[2])
	ms, errMS := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if m > 59 || s > 59 || ms > 999 || h < 0 || m < 0 || s < 0 || ms < 0 {
		return 0, fmt.Errorf("timestamp out of range %q", value)
	}
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// FromSeconds converts fractional seconds, rounding to the nearest millisecond.
func FromSeconds(sec float64) time.Duration {
	return time.Duration(math.Round(sec*1000)) * time.Millisecond
}

// Arg renders seconds for a transcoder command line using the shortest exact
// decimal form ("10", "1806", "12.5").
func Arg(sec float64) string {
	return strconv.FormatFloat(sec, 'f', -1, 64)
}

// ParseClock reads the HH:MM:SS.xx clock printed by ffmpeg's probe banner and
// returns seconds.
func ParseClock(value string) (float64, error) {
	value = strings.TrimSpace(value)
	hms := strings.Split(value, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid clock %q", value)
	}
	h, errH := strconv.Atoi(hms[0])
	m, errM := strconv.Atoi(hms[1])
	s, errS := strconv.ParseFloat(hms[2], 64)
	if errH != nil || errM != nil || errS != nil {
		return 0, fmt.Errorf("invalid clock %q", value)
	}
	return float64(h*3600+m*60) + s, nil
}
