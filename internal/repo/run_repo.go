package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/buildflow/internal/domain"
)

// defaultRunLimit — размер выборки List без явного Limit.
const defaultRunLimit = 20

// RunRepo — хранилище runs в PostgreSQL.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// runRow — строка таблицы runs. Поля сопоставляются по тегу db.
type runRow struct {
	ID         uuid.UUID         `db:"id"`
	Target     string            `db:"target"`
	Status     domain.RunStatus  `db:"status"`
	Params     map[string]string `db:"params"`
	StartedAt  *time.Time        `db:"started_at"`
	FinishedAt *time.Time        `db:"finished_at"`
	FailedTask *string           `db:"failed_task"`
	Error      *string           `db:"error"`
	CreatedAt  time.Time         `db:"created_at"`
}

func (r runRow) toDomain() domain.Run {
	return domain.Run{
		ID:         r.ID,
		Target:     r.Target,
		Status:     r.Status,
		Params:     r.Params,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		FailedTask: deref(r.FailedTask),
		Error:      deref(r.Error),
		CreatedAt:  r.CreatedAt,
	}
}

// runArgs — именованные параметры запроса для run.
func runArgs(run *domain.Run) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":          run.ID,
		"target":      run.Target,
		"status":      run.Status,
		"params":      run.Params,
		"started_at":  run.StartedAt,
		"finished_at": run.FinishedAt,
		"failed_task": nullString(run.FailedTask),
		"error":       nullString(run.Error),
		"created_at":  run.CreatedAt,
	}
}

const selectRuns = `
	SELECT id, target, status, params, started_at, finished_at, failed_task, error, created_at
	FROM runs`

// Create сохраняет новый run.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	const query = `
		INSERT INTO runs (id, target, status, params, started_at, finished_at, failed_task, error, created_at)
		VALUES (@id, @target, @status, @params, @started_at, @finished_at, @failed_task, @error, @created_at)`

	if _, err := r.pool.Exec(ctx, query, runArgs(run)); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// Update записывает статус и итог run.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	const query = `
		UPDATE runs
		SET status = @status,
		    started_at = @started_at,
		    finished_at = @finished_at,
		    failed_task = @failed_task,
		    error = @error
		WHERE id = @id`

	tag, err := r.pool.Exec(ctx, query, runArgs(run))
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает run без задач.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	rows, _ := r.pool.Query(ctx, selectRuns+` WHERE id = $1`, id)
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[runRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	run := row.toDomain()
	return &run, nil
}

// RunFilter — фильтр для List. Пустые поля не ограничивают выборку.
type RunFilter struct {
	Target string
	Status domain.RunStatus
	Limit  int
	Offset int
}

// List возвращает runs от новых к старым.
// Target сравнивается без учёта регистра, как имена задач.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}

	query := selectRuns + `
		WHERE (@target::text IS NULL OR lower(target) = lower(@target))
		  AND (@status::text IS NULL OR status = @status)
		ORDER BY created_at DESC
		LIMIT @limit OFFSET @offset`

	rows, _ := r.pool.Query(ctx, query, pgx.NamedArgs{
		"target": nullString(filter.Target),
		"status": nullString(string(filter.Status)),
		"limit":  limit,
		"offset": filter.Offset,
	})
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Run, error) {
		r, err := pgx.RowToStructByName[runRow](row)
		return r.toDomain(), err
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// nullString возвращает nil для пустой строки (NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
