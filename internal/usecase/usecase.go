package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	xlang "golang.org/x/text/language"

	"github.com/forPelevin/subcut/internal/ports"
	"github.com/forPelevin/subcut/internal/tempfiles"
	"github.com/forPelevin/subcut/internal/types"
)

type Deps struct {
	Video ports.VideoTool
	ASR   ports.ASR
	// Detector is optional; without it an unhinted audio track is tagged und.
	Detector ports.LanguageDetector
}

type Usecase struct {
	d   Deps
	log zerolog.Logger
}

func New(d Deps, log zerolog.Logger) Usecase { return Usecase{d: d, log: log} }

type Input struct {
	Source string

	// RemoveCommercials runs the cut stages over EDL before transcription. An
	// empty EDL still re-encodes and trims the program.
	RemoveCommercials bool
	EDL               []types.EDLEntry
	LeadSeconds       float64
	EndSeconds        float64

	Model     string
	Language  xlang.Tag
	Translate bool
	SDH       bool
	SubFormat string
	NoMerge   bool

	Repair     bool
	RepairTool string

	// Strict turns transcoder failures in the cut and merge stages into
	// errors instead of warnings.
	Strict bool

	// Temp collects intermediates. When nil, Run keeps its own and cleans it
	// up before returning.
	Temp *tempfiles.Manifest
}

type Result struct {
	// Program is the video the subtitles are timed against.
	Program      string
	Subtitles    string
	Merged       string
	Cues         int
	SubtitleLang string
	AudioLang    string
	Stages       []types.StageReport
}

// run carries the state of one invocation.
type run struct {
	u      Usecase
	in     Input
	temp   *tempfiles.Manifest
	log    zerolog.Logger
	warned bool
	res    Result
}

// Run executes the pipeline: optional commercial removal, audio extraction,
// transcription, subtitle rendering and container merge. Stage reports are
// returned with the error when a stage fails.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	r := &run{u: u, in: in, temp: in.Temp, log: u.log}
	if r.temp == nil {
		r.temp = tempfiles.New(u.log, false)
		defer r.temp.Cleanup()
	}

	r.res.Program = in.Source
	if in.RemoveCommercials {
		final, err := r.removeCommercials(ctx)
		if err != nil {
			return r.res, err
		}
		r.res.Program = final
	}

	var wav string
	if err := r.stage("audio", func() (string, error) {
		var err error
		wav, err = u.ExtractAudio(ctx, r.temp, r.res.Program, in.Repair, in.RepairTool)
		return wav, err
	}); err != nil {
		return r.res, err
	}

	if err := r.transcribeAndWrite(ctx, wav); err != nil {
		return r.res, err
	}

	if in.NoMerge {
		r.temp.Promote(r.res.Subtitles)
		if r.res.Program != in.Source {
			r.temp.Promote(r.res.Program)
		}
		return r.res, nil
	}
	if err := r.merge(ctx, wav); err != nil {
		return r.res, err
	}
	return r.res, nil
}

// stage times fn and records its outcome.
func (r *run) stage(name string, fn func() (string, error)) error {
	start := time.Now()
	r.warned = false
	log := r.log.With().Str("stage", name).Logger()
	log.Info().Msg("stage started")

	detail, err := fn()
	rep := types.StageReport{Name: name, Elapsed: time.Since(start), Status: types.StageOK, Detail: detail}
	switch {
	case err != nil:
		rep.Status = types.StageFailed
		rep.Detail = firstLine(err.Error())
		log.Error().Err(err).Dur("elapsed", rep.Elapsed).Msg("stage failed")
	case r.warned:
		rep.Status = types.StageWarn
		log.Warn().Dur("elapsed", rep.Elapsed).Str("detail", detail).Msg("stage finished with warnings")
	default:
		log.Info().Dur("elapsed", rep.Elapsed).Str("detail", detail).Msg("stage finished")
	}
	r.res.Stages = append(r.res.Stages, rep)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// skip records a stage that did not run.
func (r *run) skip(name, why string) {
	r.res.Stages = append(r.res.Stages, types.StageReport{Name: name, Status: types.StageSkipped, Detail: why})
}

// tolerate logs a transcoder failure and carries on, unless the run is
// strict.
func (r *run) tolerate(err error) error {
	if err == nil {
		return nil
	}
	if r.in.Strict {
		return err
	}
	r.warned = true
	r.log.Warn().Err(err).Msg("transcoder reported a failure, continuing")
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
