package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/forPelevin/subcut/internal/logging"
	"github.com/forPelevin/subcut/internal/pipeline"
)

func run(cmd *cobra.Command, input string) error {
	settings, used, err := loadSettings(cmd)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	edlPath, _ := cmd.Flags().GetString("edl")
	force, _ := cmd.Flags().GetBool("force-download")

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	if edlPath != "" {
		if edlPath, err = filepath.Abs(edlPath); err != nil {
			return err
		}
	}

	cfg := pipeline.Config{
		Input:         absIn,
		EDLPath:       edlPath,
		Settings:      settings,
		ForceDownload: force,
		Report:        cmd.OutOrStdout(),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logPath := settings.LogFile
	if logPath == "" {
		logPath = pipeline.DefaultLogPath(absIn)
	}
	var file io.Writer
	lf, logErr := logging.OpenRunLog(logPath)
	if logErr == nil {
		defer lf.Close()
		file = lf
	}
	stderr := cmd.ErrOrStderr()
	cfg.Log = logging.New(stderr, file, settings.LogLevel)
	if logErr != nil {
		cfg.Log.Warn().Err(logErr).Msg("run log disabled")
	}
	if used != "" {
		cfg.Log.Debug().Str("config", used).Msg("config file loaded")
	}
	if logging.IsTerminal(stderr) {
		cfg.Progress = stderr
	}

	if _, err := pipeline.Run(cmd.Context(), cfg); err != nil {
		// Main prints the error on the console; the run log gets its own copy.
		if file != nil {
			zerolog.New(file).With().Timestamp().Logger().Error().Err(err).Msg("run failed")
		}
		return err
	}
	return nil
}
