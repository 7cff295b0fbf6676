package usecase

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	xlang "golang.org/x/text/language"

	"github.com/forPelevin/subcut/internal/domain/subtitles"
	"github.com/forPelevin/subcut/internal/domain/transcript"
	"github.com/forPelevin/subcut/internal/language"
	"github.com/forPelevin/subcut/internal/tempfiles"
	"github.com/forPelevin/subcut/internal/types"
)

// Long recordings are sampled away from their intro for language detection.
const (
	detectSkipAfter = 660 * time.Second
	detectOffset    = 600 * time.Second
	detectWindow    = 60 * time.Second
)

// SubtitlePath names the subtitle file for source: <base>_<lang>.<format>, or
// <base>.<format> without a language hint.
func SubtitlePath(source string, lang xlang.Tag, format string) string {
	if format == "" {
		format = "srt"
	}
	base := tempfiles.Base(source)
	if code := language.Code(lang); code != "" {
		base += "_" + code
	}
	return base + "." + strings.ToLower(format)
}

// MergedPath is the container holding video, audio and subtitles.
func MergedPath(source string) string {
	return tempfiles.Base(source) + "_subs.mkv"
}

func (r *run) transcribeAndWrite(ctx context.Context, wav string) error {
	var segs []types.Segment
	if err := r.stage("transcribe", func() (string, error) {
		prefix := tempfiles.Path(r.in.Source, "transcript", "")
		// File-writing engines put their output at <prefix>.json.
		r.temp.Track(prefix + ".json")
		req := types.TranscribeRequest{
			Audio:     wav,
			Model:     r.in.Model,
			Language:  language.Code(r.in.Language),
			Translate: r.in.Translate,
			OutPrefix: prefix,
		}
		r.log.Info().
			Str("language", language.Name(r.in.Language)).
			Bool("translate", r.in.Translate).
			Bool("sdh", r.in.SDH).
			Msg("transcribing")
		raw, err := transcript.Collect(r.u.d.ASR.Transcribe(ctx, req), r.in.SDH)
		if err != nil {
			return "", err
		}
		segs = transcript.Normalize(raw)
		return fmt.Sprintf("%d segments, %d after dedupe", len(raw), len(segs)), nil
	}); err != nil {
		return err
	}

	return r.stage("subtitles", func() (string, error) {
		path := SubtitlePath(r.in.Source, r.in.Language, r.in.SubFormat)
		if !r.in.NoMerge {
			r.temp.Track(path)
		}
		n, err := writeSubtitles(path, r.in.SubFormat, segs)
		if err != nil {
			return "", err
		}
		r.res.Subtitles = path
		r.res.Cues = n
		return fmt.Sprintf("%d cues", n), nil
	})
}

func writeSubtitles(path, format string, segs []types.Segment) (int, error) {
	if strings.EqualFold(format, "ass") {
		cues := subtitles.BuildCues(segs)
		if err := os.WriteFile(path, []byte(subtitles.RenderASS(cues)), 0o644); err != nil {
			return 0, fmt.Errorf("write ass: %w", err)
		}
		return len(cues), nil
	}
	return subtitles.WriteSRT(path, segs)
}

func (r *run) merge(ctx context.Context, wav string) error {
	detected := ""
	switch {
	case r.in.Language != xlang.Und:
		r.skip("language", "hint given")
	case r.u.d.Detector == nil:
		r.skip("language", "engine cannot detect")
	default:
		if err := r.stage("language", func() (string, error) {
			detected = r.detectLanguage(ctx, wav)
			if detected == "" {
				return "undetermined", nil
			}
			return detected, nil
		}); err != nil {
			return err
		}
	}

	r.res.SubtitleLang = language.SubtitleISO3(r.in.Language, r.in.Translate)
	r.res.AudioLang = language.AudioISO3(r.in.Language, detected)

	return r.stage("merge", func() (string, error) {
		out := MergedPath(r.in.Source)
		codec := "srt"
		if strings.EqualFold(r.in.SubFormat, "ass") {
			codec = "ass"
		}
		muxErr := r.u.d.Video.Mux(ctx, types.MuxRequest{
			Video:         r.res.Program,
			Subtitles:     r.res.Subtitles,
			SubtitleCodec: codec,
			SubtitleLang:  r.res.SubtitleLang,
			AudioLang:     r.res.AudioLang,
			Out:           out,
		})
		if err := r.tolerate(muxErr); err != nil {
			return "", err
		}
		if muxErr != nil {
			r.temp.Promote(r.res.Subtitles)
			return "merge failed, subtitles kept", nil
		}
		r.res.Merged = out
		return fmt.Sprintf("subs=%s audio=%s", r.res.SubtitleLang, r.res.AudioLang), nil
	})
}

// detectLanguage never fails the run; an unknown language is tagged und.
func (r *run) detectLanguage(ctx context.Context, wav string) string {
	var offset, window time.Duration
	if info, err := r.u.d.Video.Probe(ctx, wav); err == nil &&
		time.Duration(info.Duration*float64(time.Second)) > detectSkipAfter {
		offset, window = detectOffset, detectWindow
	}
	code, err := r.u.d.Detector.DetectLanguage(ctx, wav, r.in.Model, offset, window)
	if err != nil {
		r.warned = true
		r.log.Warn().Err(err).Msg("language detection failed")
		return ""
	}
	return code
}
