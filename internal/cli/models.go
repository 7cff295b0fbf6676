package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/forPelevin/subcut/internal/config"
	"github.com/forPelevin/subcut/internal/logging"
	"github.com/forPelevin/subcut/internal/models"
	"github.com/forPelevin/subcut/internal/pipeline"
)

func newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List model tiers and their cache status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, _, err := loadSettings(cmd)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), modelsTable(modelStore(cmd, settings)))
			return nil
		},
	}
	cmd.AddCommand(newModelsPullCommand())
	return cmd
}

func newModelsPullCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull <tier>",
		Short: "Download a model tier into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := models.ParseTier(args[0])
			if err != nil {
				return err
			}
			settings, _, err := loadSettings(cmd)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			force, _ := cmd.Flags().GetBool("force")
			path, downloaded, err := modelStore(cmd, settings).Ensure(cmd.Context(), tier, force)
			if err != nil {
				return err
			}
			if downloaded {
				fmt.Fprintf(cmd.OutOrStdout(), "downloaded %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already cached at %s\n", tier, path)
			}
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Download again even when cached")
	return cmd
}

func modelStore(cmd *cobra.Command, s config.Config) models.Store {
	store := models.Store{Dir: s.ModelDir, BaseURL: s.ModelBaseURL}
	if logging.IsTerminal(cmd.ErrOrStderr()) {
		store.Progress = cmd.ErrOrStderr()
	}
	return store
}

func modelsTable(store models.Store) string {
	rows := make([][]string, 0, len(models.Tiers))
	for _, t := range models.Tiers {
		cached, size := store.Cached(t)
		status, sz := "-", "-"
		if cached {
			status = "cached"
			sz = humanBytes(size)
		}
		rows = append(rows, []string{string(t), t.FileName(), status, sz})
	}
	return pipeline.RenderTable(
		[]string{"Tier", "File", "Status", "Size"},
		rows,
		nil,
		[]text.Align{text.AlignLeft, text.AlignLeft, text.AlignLeft, text.AlignRight},
	) + "\n" + store.Dir
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
