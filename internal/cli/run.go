package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/buildflow/internal/build"
	"github.com/shaiso/buildflow/internal/config"
	"github.com/shaiso/buildflow/internal/domain"
	"github.com/shaiso/buildflow/internal/mq"
	"github.com/shaiso/buildflow/internal/orchestrator"
	"github.com/shaiso/buildflow/internal/telemetry"
)

// metricsPushTimeout — максимальное время отправки метрик в Pushgateway.
const metricsPushTimeout = 10 * time.Second

// NewRunCmd создаёт команду запуска пайплайна.
//
// Каждый параметр сборки доступен как флаг (--nuget-api-key KEY),
// как переменная окружения (NUGET_API_KEY) и как --param key=value.
func NewRunCmd(app *App) *cobra.Command {
	var assignments []string
	var dryRun bool
	var override versionOverride

	decls := build.Parameters(app.host())

	cmd := &cobra.Command{
		Use:   "run [TARGET]",
		Short: "Run the pipeline up to TARGET (default: " + build.DefaultTarget + ")",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := build.DefaultTarget
			if len(args) == 1 {
				target = args[0]
			}

			flags, err := collectParams(cmd, decls, assignments)
			if err != nil {
				return err
			}

			if dryRun {
				_, orch, err := app.pipeline(override)
				if err != nil {
					return err
				}
				plan, err := orch.Plan(target)
				if err != nil {
					return err
				}
				printPlan(app.output(), plan)
				return nil
			}

			return runPipeline(cmd.Context(), app, target, flags, decls, override)
		},
	}

	for _, d := range decls {
		usage := d.Description
		if d.Default != "" && !d.Bool {
			usage += fmt.Sprintf(" (default %q)", d.Default)
		}
		usage += " [env " + config.EnvName(d.Name) + "]"

		if d.Bool {
			cmd.Flags().Bool(d.Name, false, usage)
		} else {
			cmd.Flags().String(d.Name, "", usage)
		}
	}

	cmd.Flags().StringArrayVar(&assignments, "param", nil, "Set a parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the execution plan without running it")
	cmd.Flags().StringVar(&override.Version, "version-override", "", "Use a fixed version instead of GitVersion")
	cmd.Flags().StringVar(&override.Branch, "branch", "", "Branch name reported with --version-override")

	return cmd
}

// collectParams собирает значения параметров из командной строки.
// Именованные флаги перекрывают --param.
func collectParams(cmd *cobra.Command, decls []config.ParamDecl, assignments []string) (map[string]string, error) {
	values := make(map[string]string)

	for _, a := range assignments {
		key, value, err := config.ParseAssignment(a)
		if err != nil {
			return nil, err
		}
		values[key] = value
	}

	for _, d := range decls {
		if !cmd.Flags().Changed(d.Name) {
			continue
		}
		if d.Bool {
			v, err := cmd.Flags().GetBool(d.Name)
			if err != nil {
				return nil, err
			}
			values[d.Name] = strconv.FormatBool(v)
			continue
		}
		v, err := cmd.Flags().GetString(d.Name)
		if err != nil {
			return nil, err
		}
		values[d.Name] = v
	}

	return values, nil
}

// runPipeline выполняет run с подключёнными наблюдателями.
func runPipeline(ctx context.Context, app *App, target string, flags map[string]string, decls []config.ParamDecl, override versionOverride) error {
	logger := app.Logger
	out := app.output()

	metrics := telemetry.NewMetrics()
	observers := []orchestrator.Observer{metrics}

	if app.OpenJournal != nil || app.DBURL != "" {
		j, closeJournal, err := app.journal(ctx)
		if err != nil {
			logger.Warn("run journal not available", "error", err)
		} else {
			defer closeJournal()
			observers = append(observers, j)
		}
	}

	if app.RabbitMQURL != "" {
		conn, err := app.events(ctx, "buildflow-run", false)
		if err != nil {
			logger.Warn("RabbitMQ not available, events disabled", "error", err)
		} else {
			defer conn.Close()
			observers = append(observers, mq.NewEventPublisher(mq.NewPublisher(conn, logger), logger))
		}
	}

	cfg, orch, err := app.pipeline(override, observers...)
	if err != nil {
		return err
	}

	params, err := config.Resolve(decls, config.Sources{
		File:  cfg.Parameters,
		Env:   app.Env,
		Flags: flags,
	})
	if err != nil {
		return err
	}

	run, runErr := orch.Run(telemetry.WithLogger(ctx, logger), target, params)

	if app.PushgatewayURL != "" && run != nil {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsPushTimeout)
		if err := metrics.Push(pushCtx, app.PushgatewayURL, run); err != nil {
			logger.Warn("failed to push metrics", "error", err)
		}
		cancel()
	}

	if run != nil {
		printRun(out, run)
	}
	return runErr
}

// taskHeaders — заголовки таблицы задач run.
var taskHeaders = []string{"#", "TASK", "STATUS", "DURATION", "NOTE"}

// taskRows форматирует записи о задачах для таблицы.
func taskRows(tasks []*domain.TaskRecord) [][]string {
	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		note := t.SkipReason
		if t.Error != "" {
			note = t.Error
		}
		rows[i] = []string{
			strconv.Itoa(t.Position + 1),
			t.Task,
			string(t.Status),
			formatDuration(t.Duration()),
			orDash(note),
		}
	}
	return rows
}

// printRun выводит итог run: таблицу задач или run целиком в JSON.
func printRun(out *Output, run *domain.Run) {
	out.Print(taskHeaders, taskRows(run.Tasks), run)
	if !out.jsonMode {
		out.Line("\nrun %s %s %s in %s", run.ID, run.Target, run.Status, formatDuration(run.Duration()))
	}
}
