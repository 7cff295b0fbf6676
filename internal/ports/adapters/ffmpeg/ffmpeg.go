package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/forPelevin/subcut/internal/domain/timecode"
	"github.com/forPelevin/subcut/internal/types"
)

// tailBytes bounds how much transcoder output is carried in an error.
const tailBytes = 4096

type runner func(ctx context.Context, bin string, args ...string) ([]byte, error)

type Adapter struct {
	ffmpeg string
	run    runner
}

func New(ffmpegPath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Adapter{ffmpeg: ffmpegPath, run: combinedOutput}
}

func combinedOutput(ctx context.Context, bin string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, bin, args...).CombinedOutput()
}

// Error is a failed ffmpeg invocation. Its message carries only the tail of
// the output; Output returns all of it.
type Error struct {
	Op     string
	Err    error
	output []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("ffmpeg %s: %v\n%s", e.Op, e.Err, tail(e.output))
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Output() string { return string(e.output) }

func (a *Adapter) invoke(ctx context.Context, op string, bin string, args []string) error {
	b, err := a.run(ctx, bin, args...)
	if err != nil {
		return &Error{Op: op, Err: err, output: b}
	}
	return nil
}

// Probe runs "ffmpeg -i" without an output and parses the banner. ffmpeg exits
// non-zero in that mode, so only a failure to start the process is an error.
func (a *Adapter) Probe(ctx context.Context, path string) (types.MediaInfo, error) {
	b, err := a.run(ctx, a.ffmpeg, "-hide_banner", "-i", path)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return types.MediaInfo{Path: path}, fmt.Errorf("ffmpeg probe: %w", err)
		}
	}
	info := ParseProbe(string(b))
	info.Path = path
	return info, nil
}

func (a *Adapter) Demux(ctx context.Context, in, outMP4 string) error {
	return a.invoke(ctx, "demux", a.ffmpeg, demuxArgs(in, outMP4))
}

func (a *Adapter) ExtractAudio(ctx context.Context, in, outWav string) error {
	return a.invoke(ctx, "extract audio", a.ffmpeg, extractAudioArgs(in, outWav))
}

func (a *Adapter) RepairAudio(ctx context.Context, tool, in, out string) error {
	if tool == "" {
		tool = a.ffmpeg
	}
	return a.invoke(ctx, "repair audio", tool, repairArgs(in, out))
}

func (a *Adapter) Segment(ctx context.Context, in string, r types.TimeRange, out string) error {
	return a.invoke(ctx, "segment", a.ffmpeg, segmentArgs(in, r, out))
}

func (a *Adapter) FadeOut(ctx context.Context, in string, start float64, bitrateKbps int, out string) error {
	return a.invoke(ctx, "fade", a.ffmpeg, fadeOutArgs(in, start, bitrateKbps, out))
}

func (a *Adapter) Concat(ctx context.Context, listFile, out string) error {
	return a.invoke(ctx, "concat", a.ffmpeg, concatArgs(listFile, out))
}

func (a *Adapter) Trim(ctx context.Context, in string, start, length float64, out string) error {
	return a.invoke(ctx, "trim", a.ffmpeg, trimArgs(in, start, length, out))
}

func (a *Adapter) Mux(ctx context.Context, req types.MuxRequest) error {
	return a.invoke(ctx, "merge", a.ffmpeg, muxArgs(req))
}

func demuxArgs(in, out string) []string {
	return []string{
		"-y",
		"-i", in,
		"-map", "0:v:0",
		"-map", "0:a:0",
		"-c", "copy",
		out,
	}
}

// extractAudioArgs resamples to 16 kHz PCM and keeps the source channel count.
func extractAudioArgs(in, out string) []string {
	return []string{
		"-y",
		"-i", in,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-f", "wav",
		out,
	}
}

func repairArgs(in, out string) []string {
	return []string{
		"-y",
		"-i", in,
		"-map", "0:v?",
		"-map", "0:a?",
		"-c:v", "copy",
		"-c:a", "aac",
		out,
	}
}

// segmentArgs drops SEI units (type 6) so embedded captions do not survive the
// cut.
func segmentArgs(in string, r types.TimeRange, out string) []string {
	return []string{
		"-y",
		"-i", in,
		"-ss", timecode.Arg(r.Start),
		"-to", timecode.Arg(r.End),
		"-bsf:v", "filter_units=remove_types=6",
		"-c", "copy",
		out,
	}
}

func fadeOutArgs(in string, start float64, bitrateKbps int, out string) []string {
	args := []string{
		"-y",
		"-i", in,
		"-vf", "fade=t=out:st=" + timecode.Arg(start) + ":d=2",
	}
	if bitrateKbps > 0 {
		args = append(args, "-b:v", strconv.Itoa(bitrateKbps)+"k")
	}
	return append(args, "-c:a", "copy", out)
}

func concatArgs(list, out string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c", "copy",
		out,
	}
}

func trimArgs(in string, start, length float64, out string) []string {
	return []string{
		"-y",
		"-i", in,
		"-ss", timecode.Arg(start),
		"-t", timecode.Arg(length),
		"-c", "copy",
		out,
	}
}

func muxArgs(req types.MuxRequest) []string {
	codec := req.SubtitleCodec
	if codec == "" {
		codec = "srt"
	}
	return []string{
		"-y",
		"-i", req.Video,
		"-i", req.Subtitles,
		"-map", "0:v?",
		"-map", "0:a?",
		"-map", "1:0",
		"-c", "copy",
		"-c:s", codec,
		"-metadata:s:s:0", "language=" + req.SubtitleLang,
		"-metadata:s:a:0", "language=" + req.AudioLang,
		req.Out,
	}
}

func tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > tailBytes {
		s = "..." + s[len(s)-tailBytes:]
	}
	return s
}
