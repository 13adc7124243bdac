package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/buildflow/internal/domain"
	"github.com/shaiso/buildflow/internal/repo"
)

// NewHistoryCmd создаёт группу команд чтения журнала сборок.
func NewHistoryCmd(app *App) *cobra.Command {
	var target string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, closeJournal, err := app.journal(cmd.Context())
			if err != nil {
				return err
			}
			defer closeJournal()

			filter := repo.RunFilter{Target: target, Limit: limit}
			if status != "" {
				filter.Status = domain.ParseRunStatus(strings.ToUpper(status))
			}

			runs, err := j.Recent(cmd.Context(), filter)
			if err != nil {
				return err
			}

			headers := []string{"ID", "TARGET", "STATUS", "FAILED TASK", "DURATION", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID.String(),
					r.Target,
					string(r.Status),
					orDash(r.FailedTask),
					formatDuration(r.Duration()),
					formatTime(&r.CreatedAt),
				}
			}

			app.output().Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Filter by target")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")

	cmd.AddCommand(newHistoryShowCmd(app))

	return cmd
}

func newHistoryShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show a run and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}

			j, closeJournal, err := app.journal(cmd.Context())
			if err != nil {
				return err
			}
			defer closeJournal()

			run, err := j.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := app.output()
			if out.jsonMode {
				out.JSON(run)
				return nil
			}

			out.Line("Run:      %s", run.ID)
			out.Line("Target:   %s", run.Target)
			out.Line("Status:   %s", run.Status)
			out.Line("Started:  %s", formatTime(run.StartedAt))
			out.Line("Finished: %s", formatTime(run.FinishedAt))
			if run.Error != "" {
				out.Line("Error:    %s", run.Error)
			}
			for _, name := range sortedKeys(run.Params) {
				out.Line("Param:    %s=%s", name, run.Params[name])
			}
			out.Line("")

			out.Table(taskHeaders, taskRows(run.Tasks))
			return nil
		},
	}
}
