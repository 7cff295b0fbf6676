package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/subcut/internal/config"
	"github.com/forPelevin/subcut/internal/deps"
	"github.com/forPelevin/subcut/internal/models"
	"github.com/forPelevin/subcut/internal/pipeline"
)

func newDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and the model cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, used, err := loadSettings(cmd)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			statuses := deps.CheckBinaries(pipeline.Requirements(settings))
			fmt.Fprintln(cmd.OutOrStdout(), doctorTable(statuses, settings))
			if used != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "config: %s\n", used)
			}
			if err := settings.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			return deps.Missing(statuses)
		},
	}
}

func doctorTable(statuses []deps.Status, s config.Config) string {
	rows := make([][]string, 0, len(statuses)+1)
	for _, st := range statuses {
		state, detail := "ok", st.Path
		switch {
		case !st.Available && st.Optional:
			state, detail = "optional", st.Detail
		case !st.Available:
			state, detail = "missing", st.Detail
		}
		rows = append(rows, []string{st.Name, st.Command, state, detail})
	}

	if s.Engine == config.EngineWhisperCPP {
		store := models.Store{Dir: s.ModelDir}
		state, detail := "missing", "downloaded on first run"
		if tier, err := models.ParseTier(s.Model); err == nil {
			if ok, _ := store.Cached(tier); ok {
				state, detail = "ok", store.Path(tier)
			}
			rows = append(rows, []string{"model", string(tier), state, detail})
		}
	}
	return pipeline.RenderTable([]string{"Check", "Command", "State", "Detail"}, rows, nil, nil)
}
