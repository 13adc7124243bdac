package repo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/buildflow/internal/domain"
)

// journalTimeout — максимальное время одной записи в журнал.
const journalTimeout = 5 * time.Second

// RunStore — хранилище runs (RunRepo).
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	List(ctx context.Context, filter RunFilter) ([]domain.Run, error)
}

// TaskStore — хранилище записей о задачах (TaskRepo).
type TaskStore interface {
	Save(ctx context.Context, task *domain.TaskRecord) error
	ListByRunID(ctx context.Context, runID uuid.UUID) ([]*domain.TaskRecord, error)
}

// Journal записывает ход run в БД.
//
// Реализует orchestrator.Observer. Ошибки записи логируются:
// недоступная БД не должна ломать сборку.
type Journal struct {
	runs   RunStore
	tasks  TaskStore
	logger *slog.Logger
}

// NewJournal создаёт Journal.
func NewJournal(runs RunStore, tasks TaskStore, logger *slog.Logger) *Journal {
	return &Journal{runs: runs, tasks: tasks, logger: logger}
}

// RunStarted реализует orchestrator.Observer.
func (j *Journal) RunStarted(ctx context.Context, run *domain.Run) {
	ctx, cancel := j.context(ctx)
	defer cancel()

	if err := j.runs.Create(ctx, run); err != nil {
		j.logger.Warn("failed to journal run", "run_id", run.ID, "error", err)
	}
}

// TaskFinished реализует orchestrator.Observer.
func (j *Journal) TaskFinished(ctx context.Context, run *domain.Run, task *domain.TaskRecord) {
	ctx, cancel := j.context(ctx)
	defer cancel()

	if err := j.tasks.Save(ctx, task); err != nil {
		j.logger.Warn("failed to journal task", "run_id", run.ID, "task", task.Task, "error", err)
	}
}

// RunFinished реализует orchestrator.Observer.
func (j *Journal) RunFinished(ctx context.Context, run *domain.Run) {
	ctx, cancel := j.context(ctx)
	defer cancel()

	if err := j.runs.Update(ctx, run); err != nil {
		j.logger.Warn("failed to journal run result", "run_id", run.ID, "error", err)
	}
}

// Recent возвращает последние runs.
func (j *Journal) Recent(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	return j.runs.List(ctx, filter)
}

// Get возвращает run вместе с записями о задачах.
func (j *Journal) Get(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	run, err := j.runs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	tasks, err := j.tasks.ListByRunID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	run.Tasks = tasks
	return run, nil
}

// context отвязывает запись от отмены run: итог run пишется и после Ctrl+C.
func (j *Journal) context(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
}
