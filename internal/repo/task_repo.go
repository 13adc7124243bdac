package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/buildflow/internal/domain"
)

// TaskRepo — хранилище записей о задачах.
type TaskRepo struct {
	pool *pgxpool.Pool
}

// NewTaskRepo создаёт TaskRepo.
func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// taskRow — строка таблицы task_records.
type taskRow struct {
	RunID      uuid.UUID         `db:"run_id"`
	Task       string            `db:"task"`
	Position   int               `db:"position"`
	Status     domain.TaskStatus `db:"status"`
	StartedAt  *time.Time        `db:"started_at"`
	FinishedAt *time.Time        `db:"finished_at"`
	SkipReason *string           `db:"skip_reason"`
	Error      *string           `db:"error"`
}

func (t taskRow) toDomain() *domain.TaskRecord {
	return &domain.TaskRecord{
		RunID:      t.RunID,
		Task:       t.Task,
		Position:   t.Position,
		Status:     t.Status,
		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
		SkipReason: deref(t.SkipReason),
		Error:      deref(t.Error),
	}
}

// Save вставляет запись или обновляет существующую (run_id, task).
func (r *TaskRepo) Save(ctx context.Context, task *domain.TaskRecord) error {
	const query = `
		INSERT INTO task_records (run_id, task, position, status, started_at, finished_at, skip_reason, error)
		VALUES (@run_id, @task, @position, @status, @started_at, @finished_at, @skip_reason, @error)
		ON CONFLICT (run_id, task) DO UPDATE
		SET status = EXCLUDED.status,
		    finished_at = EXCLUDED.finished_at,
		    skip_reason = EXCLUDED.skip_reason,
		    error = EXCLUDED.error`

	_, err := r.pool.Exec(ctx, query, pgx.NamedArgs{
		"run_id":      task.RunID,
		"task":        task.Task,
		"position":    task.Position,
		"status":      task.Status,
		"started_at":  task.StartedAt,
		"finished_at": task.FinishedAt,
		"skip_reason": nullString(task.SkipReason),
		"error":       nullString(task.Error),
	})
	if err != nil {
		return fmt.Errorf("save task %s of run %s: %w", task.Task, task.RunID, err)
	}
	return nil
}

// ListByRunID возвращает записи о задачах run в порядке выполнения.
func (r *TaskRepo) ListByRunID(ctx context.Context, runID uuid.UUID) ([]*domain.TaskRecord, error) {
	const query = `
		SELECT run_id, task, position, status, started_at, finished_at, skip_reason, error
		FROM task_records
		WHERE run_id = $1
		ORDER BY position`

	rows, _ := r.pool.Query(ctx, query, runID)
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.TaskRecord, error) {
		t, err := pgx.RowToStructByName[taskRow](row)
		if err != nil {
			return nil, err
		}
		return t.toDomain(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks of run %s: %w", runID, err)
	}
	return tasks, nil
}
