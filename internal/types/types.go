package types

import "time"

// Segment is one timed utterance emitted by a speech engine.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type Transcript struct {
	Language string
	Segments []Segment
}

// Cue is a numbered subtitle entry after filtering and wrapping.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Lines []string
}

// EDLEntry is a region, in seconds, to excise from the source.
type EDLEntry struct {
	StartSec float64
	EndSec   float64
}

// TimeRange is a half-open span of the source timeline in seconds.
type TimeRange struct {
	Start float64
	End   float64
}

func (r TimeRange) Length() float64 { return r.End - r.Start }

// MediaInfo is what a textual probe could recover about an asset. Zero values
// mean the field was missing or unparseable.
type MediaInfo struct {
	Path        string
	Duration    float64
	Container   string
	BitrateKbps float64
}

type TranscribeRequest struct {
	Audio     string
	Model     string
	Language  string
	Translate bool
	// OutPrefix is where engines that write files put their output.
	OutPrefix string
}

type MuxRequest struct {
	Video         string
	Subtitles     string
	SubtitleCodec string
	SubtitleLang  string
	AudioLang     string
	Out           string
}

type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StageWarn    StageStatus = "warn"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

type StageReport struct {
	Name    string
	Elapsed time.Duration
	Status  StageStatus
	Detail  string
}
