package ports

import (
	"context"
	"iter"
	"time"

	"github.com/forPelevin/subcut/internal/types"
)

// VideoTool is the transcoder. Probe never fails on unparseable output; the
// missing fields are left zero.
type VideoTool interface {
	Probe(ctx context.Context, path string) (types.MediaInfo, error)
	Demux(ctx context.Context, in, outMP4 string) error
	ExtractAudio(ctx context.Context, in, outWav string) error
	// RepairAudio re-encodes the audio of in with the transcoder binary at
	// tool, copying video.
	RepairAudio(ctx context.Context, tool, in, out string) error
	Segment(ctx context.Context, in string, r types.TimeRange, out string) error
	FadeOut(ctx context.Context, in string, start float64, bitrateKbps int, out string) error
	Concat(ctx context.Context, listFile, out string) error
	Trim(ctx context.Context, in string, start, length float64, out string) error
	Mux(ctx context.Context, req types.MuxRequest) error
}

// ASR yields segments in arrival order. The sequence stops after the first
// error.
type ASR interface {
	Transcribe(ctx context.Context, req types.TranscribeRequest) iter.Seq2[types.Segment, error]
}

// LanguageDetector reports the spoken language of a wave file as an ISO 639-1
// code, listening to window starting at offset.
type LanguageDetector interface {
	DetectLanguage(ctx context.Context, wav, model string, offset, window time.Duration) (string, error)
}
