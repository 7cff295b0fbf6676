package ffmpeg

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/forPelevin/subcut/internal/domain/timecode"
	"github.com/forPelevin/subcut/internal/types"
)

var (
	durationRe  = regexp.MustCompile(`Duration:\s*(\d+:\d{2}:\d{2}(?:\.\d+)?)`)
	bitrateRe   = regexp.MustCompile(`bitrate:\s*([\d.]+)\s*kb/s`)
	containerRe = regexp.MustCompile(`Input #0,\s*(.+?),\s*from\s`)
)

// ParseProbe reads duration, average bitrate and container kind from the
// banner ffmpeg prints for "-i <file>". Fields it cannot find stay zero.
func ParseProbe(out string) types.MediaInfo {
	var info types.MediaInfo
	if m := durationRe.FindStringSubmatch(out); m != nil {
		if sec, err := timecode.ParseClock(m[1]); err == nil {
			info.Duration = sec
		}
	}
	if m := bitrateRe.FindStringSubmatch(out); m != nil {
		if kbps, err := strconv.ParseFloat(m[1], 64); err == nil {
			info.BitrateKbps = kbps
		}
	}
	if m := containerRe.FindStringSubmatch(out); m != nil {
		info.Container = strings.TrimSpace(m[1])
	}
	return info
}
