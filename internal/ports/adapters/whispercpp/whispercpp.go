package whispercpp

import (
	"context"
	"fmt"
	"iter"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/forPelevin/subcut/internal/types"
)

const DefaultBin = "whisper-cli"

type runner func(ctx context.Context, bin string, args ...string) ([]byte, error)

type Adapter struct {
	bin string
	run runner
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = DefaultBin
	}
	return &Adapter{
		bin: binPath,
		run: func(ctx context.Context, bin string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, bin, args...).CombinedOutput()
		},
	}
}

// Transcribe runs the CLI with JSON output to req.OutPrefix+".json" and yields
// the segments it wrote.
func (a *Adapter) Transcribe(ctx context.Context, req types.TranscribeRequest) iter.Seq2[types.Segment, error] {
	return func(yield func(types.Segment, error) bool) {
		b, err := a.run(ctx, a.bin, transcribeArgs(req)...)
		if err != nil {
			yield(types.Segment{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b)))
			return
		}
		jb, err := os.ReadFile(JSONPath(req.OutPrefix))
		if err != nil {
			yield(types.Segment{}, fmt.Errorf("whisper.cpp output: %w", err))
			return
		}
		if !gjson.ValidBytes(jb) {
			yield(types.Segment{}, fmt.Errorf("whisper.cpp output: invalid JSON in %s", JSONPath(req.OutPrefix)))
			return
		}
		for _, s := range parseTranscription(jb) {
			if !yield(s, nil) {
				return
			}
		}
	}
}

// JSONPath is where the CLI writes its "-oj" output for prefix.
func JSONPath(prefix string) string { return prefix + ".json" }

func transcribeArgs(req types.TranscribeRequest) []string {
	lang := req.Language
	if lang == "" {
		lang = "auto"
	}
	args := []string{
		"-m", req.Model,
		"-f", req.Audio,
		"-oj",
		"-of", req.OutPrefix,
		"-l", lang,
	}
	if req.Translate {
		args = append(args, "-tr")
	}
	return args
}

// parseTranscription reads transcription[].offsets.{from,to} (milliseconds)
// and text.
func parseTranscription(b []byte) []types.Segment {
	var out []types.Segment
	gjson.GetBytes(b, "transcription").ForEach(func(_, v gjson.Result) bool {
		out = append(out, types.Segment{
			Start: time.Duration(v.Get("offsets.from").Int()) * time.Millisecond,
			End:   time.Duration(v.Get("offsets.to").Int()) * time.Millisecond,
			Text:  strings.TrimSpace(v.Get("text").String()),
		})
		return true
	})
	return out
}

var detectedRe = regexp.MustCompile(`auto-detected language:\s*([a-z]{2,3})`)

// DetectLanguage runs only the language detection pass over window of audio
// starting at offset. A zero window listens to the whole file.
func (a *Adapter) DetectLanguage(ctx context.Context, wav, model string, offset, window time.Duration) (string, error) {
	b, err := a.run(ctx, a.bin, detectArgs(wav, model, offset, window)...)
	if err != nil {
		return "", fmt.Errorf("whisper.cpp detect language: %w\n%s", err, string(b))
	}
	m := detectedRe.FindSubmatch(b)
	if m == nil {
		return "", fmt.Errorf("whisper.cpp detect language: no language reported")
	}
	return string(m[1]), nil
}

func detectArgs(wav, model string, offset, window time.Duration) []string {
	args := []string{"-m", model, "-f", wav, "-l", "auto"}
	if offset > 0 {
		args = append(args, "-ot", strconv.FormatInt(offset.Milliseconds(), 10))
	}
	if window > 0 {
		args = append(args, "-d", strconv.FormatInt(window.Milliseconds(), 10))
	}
	return append(args, "-dl")
}
