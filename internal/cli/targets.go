package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/buildflow/internal/build"
	"github.com/shaiso/buildflow/internal/orchestrator"
)

// NewTargetsCmd создаёт команду списка targets.
func NewTargetsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List pipeline targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, orch, err := app.pipeline(versionOverride{})
			if err != nil {
				return err
			}

			targets := orch.Targets()
			headers := []string{"TARGET", "DEPENDS ON", "DESCRIPTION"}
			rows := make([][]string, len(targets))
			for i, t := range targets {
				name := t.Name
				if strings.EqualFold(name, build.DefaultTarget) {
					name += " (default)"
				}
				rows[i] = []string{name, orDash(strings.Join(t.DependsOn, ", ")), t.Description}
			}

			app.output().Print(headers, rows, targets)
			return nil
		},
	}
}

// NewGraphCmd создаёт команду вывода плана выполнения.
func NewGraphCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "graph [TARGET]",
		Short: "Print the execution plan for TARGET (default: " + build.DefaultTarget + ")",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := build.DefaultTarget
			if len(args) == 1 {
				target = args[0]
			}

			_, orch, err := app.pipeline(versionOverride{})
			if err != nil {
				return err
			}

			plan, err := orch.Plan(target)
			if err != nil {
				return err
			}
			printPlan(app.output(), plan)
			return nil
		},
	}
}

// printPlan выводит план выполнения.
func printPlan(out *Output, plan []orchestrator.PlanEntry) {
	headers := []string{"#", "TASK", "DEPENDS ON", "REQUIRES", "CONDITIONAL"}
	rows := make([][]string, len(plan))
	for i, e := range plan {
		conditional := "no"
		if e.Guarded {
			conditional = "yes"
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			e.Name,
			orDash(strings.Join(e.DependsOn, ", ")),
			orDash(strings.Join(e.Requires, ", ")),
			conditional,
		}
	}
	out.Print(headers, rows, plan)
}
