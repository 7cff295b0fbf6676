package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forPelevin/subcut/internal/config"
	"github.com/forPelevin/subcut/internal/models"
)

func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "subcut <input>",
		Short: "Generate subtitles for a recording, optionally cutting commercials first",
		Long: "subcut transcribes a video with whisper.cpp (or the OpenAI audio API), writes SRT or ASS\n" +
			"subtitles and merges them into an mkv. With --edl the listed commercial breaks are cut\n" +
			"out first and the subtitles are timed against the trimmed program.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.PersistentFlags().String("config", "", "Config file (default "+config.DefaultPath()+")")

	f := root.Flags()
	f.String("edl", "", "Commercial list (start end [type] per line); enables commercial removal")
	f.Float64("lead", 0, "Seconds to trim from the start of the program")
	f.Float64("end", 0, "Seconds to trim from the end of the program")
	f.String("model", string(models.Base), "Model tier: tiny, base, small, medium, large")
	f.String("language", "", "Spoken language hint (en, eng, English); empty auto-detects")
	f.Bool("translate", false, "Translate speech to English subtitles")
	f.Bool("sdh", false, "Keep descriptive captions such as [MUSIC]")
	f.String("sub-format", config.FormatSRT, "Subtitle format: srt or ass")
	f.Bool("no-merge", false, "Keep the subtitle file instead of merging into an mkv")
	f.Bool("repair", true, "Re-encode the audio once when it cannot be decoded")
	f.String("repair-tool", "", "ffmpeg binary used for audio repair (default: --ffmpeg)")
	f.Bool("force-download", false, "Download the model again even when cached")
	f.Bool("keep-temp", false, "Keep intermediate files")
	f.Bool("strict", false, "Fail on transcoder errors in the cut and merge stages")
	f.String("engine", config.EngineWhisperCPP, "Speech engine: whispercpp or openai")
	f.String("ffmpeg", "ffmpeg", "ffmpeg binary")
	f.String("whisper-bin", "whisper-cli", "whisper.cpp CLI binary")
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	f.String("log-file", "", "Run log (default subcut.log next to the input)")

	// Hidden tuning flag
	f.String("model-dir", "", "Model cache directory")
	_ = f.MarkHidden("model-dir")

	root.AddCommand(newModelsCommand(), newDoctorCommand(), newCleanCommand())
	return root
}

// loadSettings reads the layered configuration and applies the flags the user
// set explicitly on cmd.
func loadSettings(cmd *cobra.Command) (config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	s, used, err := config.Load(path)
	if err != nil {
		return config.Config{}, "", err
	}
	applyFlags(cmd, &s)
	return s, used, nil
}

func applyFlags(cmd *cobra.Command, s *config.Config) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Lookup(name) != nil && f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if f.Lookup(name) != nil && f.Changed(name) {
			*dst, _ = f.GetBool(name)
		}
	}
	float := func(name string, dst *float64) {
		if f.Lookup(name) != nil && f.Changed(name) {
			*dst, _ = f.GetFloat64(name)
		}
	}

	float("lead", &s.LeadSeconds)
	float("end", &s.EndSeconds)
	str("model", &s.Model)
	str("model-dir", &s.ModelDir)
	str("language", &s.Language)
	boolean("translate", &s.Translate)
	boolean("sdh", &s.SDH)
	str("sub-format", &s.SubFormat)
	boolean("no-merge", &s.NoMerge)
	boolean("repair", &s.Repair)
	str("repair-tool", &s.RepairTool)
	boolean("keep-temp", &s.KeepTemp)
	boolean("strict", &s.Strict)
	str("engine", &s.Engine)
	str("ffmpeg", &s.FFmpegPath)
	str("whisper-bin", &s.WhisperBin)
	str("log-level", &s.LogLevel)
	str("log-file", &s.LogFile)
}
