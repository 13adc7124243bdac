package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/buildflow/internal/domain"
	"github.com/shaiso/buildflow/internal/engine"
	"github.com/shaiso/buildflow/internal/telemetry"
)

// Orchestrator выполняет target пайплайна и его транзитивные зависимости.
//
// Orchestrator строится один раз при старте процесса; между вызовами Run
// он не хранит состояния. Execution record создаётся заново на каждый Run.
type Orchestrator struct {
	dag       *engine.DAG
	observers Observers
	logger    *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Tasks — определения задач пайплайна.
	Tasks []domain.TaskDef

	// Observers — наблюдатели за ходом run (опционально).
	Observers []Observer

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger
}

// New валидирует определения задач и создаёт Orchestrator.
//
// Цикл в зависимостях возвращает ошибку, для которой
// errors.Is(err, ErrCycleDetected) == true.
func New(cfg Config) (*Orchestrator, error) {
	dag, err := engine.BuildDAG(cfg.Tasks)
	if err != nil {
		return nil, fmt.Errorf("build pipeline graph: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		dag:       dag,
		observers: Observers(cfg.Observers),
		logger:    logger,
	}, nil
}

// Run выполняет target вместе с его зависимостями.
//
// До первого action для всего плана:
//  1. guard: false — задача будет пропущена (SKIPPED), зависимые продолжают
//  2. обязательные параметры задач, не пропущенных guard'ом: отсутствие — ErrMissingParameter
//  3. checks тех же задач: невыполненное требование — ErrRequirementNotMet
//
// Затем задачи выполняются по порядку; ошибка action — ErrActionFailed
// с исходной причиной. Первая ошибка останавливает run. Возвращаемый Run
// заполнен и при ошибке (кроме ErrUnknownTarget, когда run не создаётся).
func (o *Orchestrator) Run(ctx context.Context, target string, params domain.Params) (*domain.Run, error) {
	plan, err := o.dag.Closure(target)
	if err != nil {
		return nil, err
	}

	root := plan[len(plan)-1]
	run := domain.NewRun(root.Name(), params)
	rc := domain.NewRunContext(run.ID, run.Target, params)
	state := NewRunState(run, plan)

	logger := telemetry.WithTarget(telemetry.WithRunID(o.logger, run.ID.String()), run.Target)
	ctx = telemetry.WithLogger(ctx, logger)

	run.MarkRunning()
	logger.Info("run started", "plan", planNames(plan), "params", params)
	o.observers.RunStarted(ctx, run)

	skipped, position, err := preflight(plan, rc)
	if err != nil {
		node := plan[position]
		taskCtx := telemetry.WithLogger(ctx, telemetry.WithTask(logger, node.Name()))
		o.fail(taskCtx, state, state.Begin(node, position), err)
		return o.finishFailed(ctx, run, node, err)
	}

	for position, node := range plan {
		if err := o.executeTask(ctx, state, rc, node, position, skipped[node.ID]); err != nil {
			return o.finishFailed(ctx, run, node, err)
		}
	}

	run.MarkSucceeded()
	stats := state.Stats()
	logger.Info("run succeeded",
		"succeeded", stats.SucceededTasks,
		"skipped", stats.SkippedTasks,
		"duration", run.Duration(),
	)
	o.observers.RunFinished(ctx, run)

	return run, nil
}

// finishFailed завершает run ошибкой задачи node.
func (o *Orchestrator) finishFailed(ctx context.Context, run *domain.Run, node *engine.Node, err error) (*domain.Run, error) {
	run.MarkFailed(node.Name(), err.Error())
	telemetry.FromContext(ctx).Error("run failed",
		"task", node.Name(),
		"error", err,
		"duration", run.Duration(),
	)
	o.observers.RunFinished(ctx, run)
	return run, err
}

// preflight вычисляет guards и проверяет требования всех задач плана,
// которые будут выполнены. Guards и checks видят только RunContext,
// поэтому их результат известен до первого action.
// При ошибке возвращает позицию задачи в плане.
func preflight(plan []*engine.Node, rc *domain.RunContext) (map[string]bool, int, error) {
	skipped := make(map[string]bool)
	for position, node := range plan {
		def := node.Task
		if def.OnlyWhen != nil && !def.OnlyWhen(rc) {
			skipped[node.ID] = true
			continue
		}
		if err := verify(def, rc); err != nil {
			return nil, position, err
		}
	}
	return skipped, 0, nil
}

// executeTask обрабатывает одну задачу плана.
func (o *Orchestrator) executeTask(ctx context.Context, state *RunState, rc *domain.RunContext, node *engine.Node, position int, skip bool) error {
	// Отмена проверяется только между задачами
	if err := ctx.Err(); err != nil {
		return NewTaskError(node.Name(), ErrRunCancelled, "", err)
	}

	record := state.Begin(node, position)
	if record == nil {
		// Уже обработана в этом run
		return nil
	}

	def := node.Task
	logger := telemetry.WithTask(telemetry.FromContext(ctx), def.Name)
	ctx = telemetry.WithLogger(ctx, logger)

	if skip {
		record.MarkSkipped("guard returned false")
		logger.Info("task skipped", "reason", record.SkipReason)
		o.observers.TaskFinished(ctx, state.Run, record)
		return nil
	}

	logger.Info("task started", "position", position+1, "of", len(state.Plan))

	if err := invoke(ctx, def, rc); err != nil {
		return o.fail(ctx, state, record, NewTaskError(def.Name, ErrActionFailed, "", err))
	}

	record.MarkSucceeded()
	logger.Info("task succeeded", "duration", record.Duration().Round(time.Millisecond))
	o.observers.TaskFinished(ctx, state.Run, record)

	return nil
}

// fail помечает задачу как упавшую и уведомляет наблюдателей.
func (o *Orchestrator) fail(ctx context.Context, state *RunState, record *domain.TaskRecord, err error) error {
	record.MarkFailed(err.Error())
	telemetry.FromContext(ctx).Error("task failed", "error", err)
	o.observers.TaskFinished(ctx, state.Run, record)
	return err
}

// verify проверяет обязательные параметры и требования задачи.
func verify(def *domain.TaskDef, rc *domain.RunContext) error {
	for _, param := range def.Requires {
		if !rc.Params.Has(param) {
			return NewTaskError(def.Name, ErrMissingParameter, domain.NormalizeParamName(param), nil)
		}
	}

	for _, check := range def.Checks {
		if check.Fn != nil && !check.Fn(rc) {
			return NewTaskError(def.Name, ErrRequirementNotMet, check.Name, nil)
		}
	}

	return nil
}

// invoke вызывает action задачи, превращая panic в ошибку.
func invoke(ctx context.Context, def *domain.TaskDef, rc *domain.RunContext) (err error) {
	if def.Action == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return def.Action(ctx, rc)
}

// PlanEntry — задача плана для вывода без выполнения.
type PlanEntry struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty"`
	Requires    []string `json:"requires,omitempty"`
	Guarded     bool     `json:"guarded,omitempty"`
}

// Plan возвращает задачи, которые выполнит Run(target), в порядке выполнения.
func (o *Orchestrator) Plan(target string) ([]PlanEntry, error) {
	plan, err := o.dag.Closure(target)
	if err != nil {
		return nil, err
	}

	entries := make([]PlanEntry, len(plan))
	for i, node := range plan {
		entries[i] = newPlanEntry(node)
	}
	return entries, nil
}

// Targets возвращает задачи, доступные для запуска, в порядке объявления.
func (o *Orchestrator) Targets() []PlanEntry {
	listed := o.dag.Listed()
	entries := make([]PlanEntry, len(listed))
	for i, node := range listed {
		entries[i] = newPlanEntry(node)
	}
	return entries
}

// HasTarget проверяет, объявлена ли задача.
func (o *Orchestrator) HasTarget(name string) bool {
	return o.dag.GetNode(name) != nil
}

func newPlanEntry(node *engine.Node) PlanEntry {
	deps := make([]string, len(node.DependsOn))
	for i, dep := range node.DependsOn {
		deps[i] = dep.Name()
	}
	return PlanEntry{
		Name:        node.Name(),
		Description: node.Task.Description,
		DependsOn:   deps,
		Requires:    node.Task.Requires,
		Guarded:     node.Task.OnlyWhen != nil,
	}
}

func planNames(plan []*engine.Node) []string {
	out := make([]string, len(plan))
	for i, node := range plan {
		out[i] = node.Name()
	}
	return out
}
