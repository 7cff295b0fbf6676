// Package pipeline wires configuration, adapters and the run lock around a
// single usecase run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog"

	"github.com/forPelevin/subcut/internal/config"
	"github.com/forPelevin/subcut/internal/deps"
	"github.com/forPelevin/subcut/internal/domain/edl"
	"github.com/forPelevin/subcut/internal/language"
	"github.com/forPelevin/subcut/internal/models"
	"github.com/forPelevin/subcut/internal/ports"
	"github.com/forPelevin/subcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/subcut/internal/ports/adapters/openai"
	"github.com/forPelevin/subcut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/subcut/internal/tempfiles"
	"github.com/forPelevin/subcut/internal/types"
	"github.com/forPelevin/subcut/internal/usecase"
)

// ErrBusy is returned when another run holds the lock for the same source.
var ErrBusy = errors.New("another subcut run is working on this file")

type Config struct {
	Input   string
	EDLPath string

	Settings      config.Config
	ForceDownload bool

	Log zerolog.Logger
	// Progress receives the model download bar; nil disables it.
	Progress io.Writer
	// Report receives the stage table at the end of the run; nil disables it.
	Report io.Writer

	// checkBinaries is swapped by tests that must not depend on installed tools.
	checkBinaries func([]deps.Requirement) []deps.Status
}

// Requirements lists the external programs a run with s needs.
func Requirements(s config.Config) []deps.Requirement {
	reqs := []deps.Requirement{
		{Name: "ffmpeg", Command: s.FFmpegPath, Description: "probe, cut, audio extraction and merge"},
	}
	if s.Engine == config.EngineWhisperCPP {
		reqs = append(reqs, deps.Requirement{
			Name: "whisper.cpp", Command: s.WhisperBin, Description: "local transcription",
		})
	}
	if s.Repair && s.RepairTool != "" && s.RepairTool != s.FFmpegPath {
		reqs = append(reqs, deps.Requirement{
			Name: "repair tool", Command: s.RepairTool, Description: "audio re-encode on decode errors", Optional: true,
		})
	}
	return reqs
}

// Validate runs the preflight checks. Nothing is written before it passes.
func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	st, err := os.Stat(c.Input)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if !st.Mode().IsRegular() {
		return fmt.Errorf("input %s is not a regular file", c.Input)
	}
	if c.EDLPath != "" {
		if _, err := os.Stat(c.EDLPath); err != nil {
			return fmt.Errorf("stat edl: %w", err)
		}
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if c.Settings.Engine == config.EngineOpenAI {
		if err := openai.ValidateBaseURL(c.Settings.OpenAIBaseURL, c.Settings.OpenAIAllowedHosts); err != nil {
			return err
		}
	}
	check := c.checkBinaries
	if check == nil {
		check = deps.CheckBinaries
	}
	return deps.Missing(check(Requirements(c.Settings)))
}

// LockPath is the per-source run lock.
func LockPath(input string) string {
	return tempfiles.Base(input) + "_subcut.lock"
}

// Run executes one subtitle run for cfg.Input.
func Run(ctx context.Context, cfg Config) (usecase.Result, error) {
	s := cfg.Settings

	lockPath := LockPath(cfg.Input)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return usecase.Result{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return usecase.Result{}, fmt.Errorf("%w (%s)", ErrBusy, lockPath)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
	}()

	log := cfg.Log.With().Str("run", uuid.NewString()).Logger()
	log.Info().
		Str("input", cfg.Input).
		Str("engine", s.Engine).
		Str("model", s.Model).
		Bool("cut", cfg.EDLPath != "").
		Msg("run started")

	temp := tempfiles.New(log, s.KeepTemp)
	defer temp.Cleanup()

	lang, err := language.Resolve(s.Language)
	if err != nil {
		return usecase.Result{}, err
	}

	var entries []types.EDLEntry
	if cfg.EDLPath != "" {
		entries, err = edl.Load(cfg.EDLPath)
		if err != nil {
			return usecase.Result{}, err
		}
		log.Info().Str("edl", cfg.EDLPath).Int("entries", len(entries)).Msg("edl loaded")
	}

	d, model, err := buildDeps(ctx, cfg, log)
	if err != nil {
		return usecase.Result{}, err
	}

	repairTool := s.RepairTool
	if repairTool == "" {
		repairTool = s.FFmpegPath
	}

	start := time.Now()
	res, err := usecase.New(d, log).Run(ctx, usecase.Input{
		Source:            cfg.Input,
		RemoveCommercials: cfg.EDLPath != "",
		EDL:               entries,
		LeadSeconds:       s.LeadSeconds,
		EndSeconds:        s.EndSeconds,
		Model:             model,
		Language:          lang,
		Translate:         s.Translate,
		SDH:               s.SDH,
		SubFormat:         strings.ToLower(s.SubFormat),
		NoMerge:           s.NoMerge,
		Repair:            s.Repair,
		RepairTool:        repairTool,
		Strict:            s.Strict,
		Temp:              temp,
	})
	if cfg.Report != nil && len(res.Stages) > 0 {
		fmt.Fprintln(cfg.Report, RenderStages(res.Stages))
	}
	if err != nil {
		return res, err
	}

	ev := log.Info().Dur("elapsed", time.Since(start)).Int("cues", res.Cues)
	if res.Merged != "" {
		ev = ev.Str("output", res.Merged)
	} else {
		ev = ev.Str("subtitles", res.Subtitles)
		if res.Program != cfg.Input {
			ev = ev.Str("program", res.Program)
		}
	}
	ev.Msg("run finished")
	return res, nil
}

// buildDeps picks the adapters for the configured engine and resolves the
// model argument they expect.
func buildDeps(ctx context.Context, cfg Config, log zerolog.Logger) (usecase.Deps, string, error) {
	s := cfg.Settings
	d := usecase.Deps{Video: ffmpeg.New(s.FFmpegPath)}

	switch s.Engine {
	case config.EngineOpenAI:
		model := s.OpenAIModel
		if model == "" {
			model = openai.DefaultModel
		}
		d.ASR = openai.New(s.OpenAIAPIKey, s.OpenAIBaseURL)
		return d, model, nil
	default:
		tier, err := models.ParseTier(s.Model)
		if err != nil {
			return d, "", err
		}
		store := models.Store{Dir: s.ModelDir, BaseURL: s.ModelBaseURL, Progress: cfg.Progress}
		path, downloaded, err := store.Ensure(ctx, tier, cfg.ForceDownload)
		if err != nil {
			return d, "", err
		}
		if downloaded {
			log.Info().Str("model", path).Msg("model downloaded")
		}
		w := whispercpp.New(s.WhisperBin)
		d.ASR = w
		d.Detector = w
		return d, path, nil
	}
}

// RenderStages renders the per-stage report as a table.
func RenderStages(stages []types.StageReport) string {
	rows := make([][]string, 0, len(stages))
	var total time.Duration
	for _, s := range stages {
		total += s.Elapsed
		rows = append(rows, []string{s.Name, string(s.Status), formatElapsed(s.Elapsed), s.Detail})
	}
	return RenderTable(
		[]string{"Stage", "Status", "Elapsed", "Detail"},
		rows,
		[]string{"", "", formatElapsed(total), ""},
		[]text.Align{text.AlignLeft, text.AlignLeft, text.AlignRight, text.AlignLeft},
	)
}

// RenderTable draws rows with an optional footer. Short rows are padded.
func RenderTable(headers []string, rows [][]string, footer []string, aligns []text.Align) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, columns))
	for _, row := range rows {
		tw.AppendRow(toRow(row, columns))
	}
	if footer != nil {
		tw.AppendFooter(toRow(footer, columns))
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func toRow(cells []string, columns int) table.Row {
	r := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		if i < len(cells) {
			r[i] = cells[i]
		} else {
			r[i] = ""
		}
	}
	return r
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(10 * time.Millisecond).String()
}

// DefaultLogPath is the run log used when none is configured.
func DefaultLogPath(input string) string {
	return filepath.Join(filepath.Dir(input), "subcut.log")
}

var (
	_ ports.VideoTool        = (*ffmpeg.Adapter)(nil)
	_ ports.ASR              = (*whispercpp.Adapter)(nil)
	_ ports.LanguageDetector = (*whispercpp.Adapter)(nil)
	_ ports.ASR              = (*openai.Adapter)(nil)
)
