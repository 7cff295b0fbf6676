package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forPelevin/subcut/internal/tempfiles"
	"github.com/forPelevin/subcut/internal/types"
)

var ErrNotRepairable = errors.New("audio decode failure is not repairable")

// repairMarker is the transcoder message that a re-encode of the audio track
// fixes. Anything else, including input that is not media at all, is terminal.
const repairMarker = "media type is invalid"

// IsRepairable classifies transcoder output from a failed audio decode.
func IsRepairable(output string) bool {
	return strings.Contains(strings.ToLower(output), repairMarker)
}

// decodeOutput prefers the complete transcoder output over the error text,
// which adapters may truncate.
func decodeOutput(err error) string {
	var full interface{ Output() string }
	if errors.As(err, &full) {
		return full.Output()
	}
	return err.Error()
}

var matroskaExts = map[string]struct{}{
	".mkv":  {},
	".mk3d": {},
	".mka":  {},
	".webm": {},
}

// IsMatroska uses the probed container when there is one and the file
// extension otherwise.
func IsMatroska(info types.MediaInfo, path string) bool {
	if info.Container != "" {
		return strings.Contains(strings.ToLower(info.Container), "matroska")
	}
	_, ok := matroskaExts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ExtractAudio writes a 16 kHz PCM wave of video next to it and returns its
// path. Matroska sources are demuxed to mp4 first. A repairable decode failure
// is retried once on a copy of the source with re-encoded audio.
func (u Usecase) ExtractAudio(ctx context.Context, temp *tempfiles.Manifest, video string, attemptRepair bool, repairTool string) (string, error) {
	info, err := u.d.Video.Probe(ctx, video)
	if err != nil {
		return "", err
	}

	work := video
	if IsMatroska(info, video) {
		demuxed := temp.Track(tempfiles.Path(video, "demux", ".mp4"))
		defer temp.Release(demuxed)
		u.log.Debug().Str("container", info.Container).Str("out", demuxed).Msg("demuxing matroska source")
		if err := u.d.Video.Demux(ctx, video, demuxed); err != nil {
			return "", err
		}
		work = demuxed
	}

	wav := temp.Track(tempfiles.Path(video, "", ".wav"))
	err = u.d.Video.ExtractAudio(ctx, work, wav)
	if err == nil {
		return wav, nil
	}
	if !IsRepairable(decodeOutput(err)) {
		return "", fmt.Errorf("%w: %w", ErrNotRepairable, err)
	}
	if !attemptRepair || repairTool == "" {
		return "", fmt.Errorf("repair disabled: %w", err)
	}

	repaired := temp.Track(tempfiles.Path(video, "repaired", ".mp4"))
	defer temp.Release(repaired)
	u.log.Warn().Str("out", repaired).Msg("audio decode failed, re-encoding audio track")
	if err := u.d.Video.RepairAudio(ctx, repairTool, video, repaired); err != nil {
		return "", err
	}
	if err := u.d.Video.ExtractAudio(ctx, repaired, wav); err != nil {
		return "", fmt.Errorf("after repair: %w", err)
	}
	return wav, nil
}
