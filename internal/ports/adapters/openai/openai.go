// Package openai transcribes audio through the hosted Whisper API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"regexp"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/forPelevin/subcut/internal/domain/timecode"
	"github.com/forPelevin/subcut/internal/types"
)

const (
	DefaultModel = "whisper-1"

	// MaxUploadBytes is the API's request size limit for audio files.
	MaxUploadBytes = 25 << 20
)

var ErrTooLarge = errors.New("audio exceeds upload limit")

// call sends one audio file and returns the raw verbose_json body.
type call func(ctx context.Context, audio io.Reader, req types.TranscribeRequest) (string, error)

type Adapter struct {
	key  string
	send call
}

func New(apiKey, baseURL string) *Adapter {
	client := sdk.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(normalizeBaseURL(baseURL)+"/"),
	)
	return &Adapter{key: apiKey, send: func(ctx context.Context, audio io.Reader, req types.TranscribeRequest) (string, error) {
		model := sdk.AudioModel(req.Model)
		if req.Model == "" {
			model = sdk.AudioModelWhisper1
		}
		if req.Translate {
			res, err := client.Audio.Translations.New(ctx, sdk.AudioTranslationNewParams{
				File:           audio,
				Model:          model,
				ResponseFormat: sdk.AudioTranslationNewParamsResponseFormatVerboseJSON,
			})
			if err != nil {
				return "", err
			}
			return res.RawJSON(), nil
		}
		params := sdk.AudioTranscriptionNewParams{
			File:           audio,
			Model:          model,
			ResponseFormat: sdk.AudioResponseFormatVerboseJSON,
		}
		if req.Language != "" {
			params.Language = sdk.String(req.Language)
		}
		res, err := client.Audio.Transcriptions.New(ctx, params)
		if err != nil {
			return "", err
		}
		return res.RawJSON(), nil
	}}
}

func (a *Adapter) Transcribe(ctx context.Context, req types.TranscribeRequest) iter.Seq2[types.Segment, error] {
	return func(yield func(types.Segment, error) bool) {
		segs, err := a.transcribe(ctx, req)
		if err != nil {
			yield(types.Segment{}, err)
			return
		}
		for _, s := range segs {
			if !yield(s, nil) {
				return
			}
		}
	}
}

func (a *Adapter) transcribe(ctx context.Context, req types.TranscribeRequest) ([]types.Segment, error) {
	f, err := os.Open(req.Audio)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	if st.Size() > MaxUploadBytes {
		return nil, fmt.Errorf("openai transcription: %w (%d > %d bytes)", ErrTooLarge, st.Size(), MaxUploadBytes)
	}

	raw, err := a.send(ctx, f, req)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %s", truncate(redactSecrets(err.Error(), a.key), 400))
	}
	return parseSegments(raw)
}

// parseSegments reads segments.#.{start,end,text} (seconds) from a verbose_json
// body. A body without segments becomes one segment spanning its duration.
func parseSegments(raw string) ([]types.Segment, error) {
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("openai transcription: invalid JSON response: %q", truncate(raw, 200))
	}
	res := gjson.Parse(raw)
	var out []types.Segment
	res.Get("segments").ForEach(func(_, v gjson.Result) bool {
		out = append(out, types.Segment{
			Start: timecode.FromSeconds(v.Get("start").Float()),
			End:   timecode.FromSeconds(v.Get("end").Float()),
			Text:  strings.TrimSpace(v.Get("text").String()),
		})
		return true
	})
	if len(out) == 0 {
		if text := strings.TrimSpace(res.Get("text").String()); text != "" {
			out = append(out, types.Segment{
				End:  timecode.FromSeconds(res.Get("duration").Float()),
				Text: text,
			})
		}
	}
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
