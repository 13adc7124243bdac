package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — один запуск пайплайна для запрошенного target.
//
// Run создаётся оркестратором на каждый вызов и выбрасывается
// при выходе процесса (если не включён журнал в PostgreSQL).
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Target — запрошенная задача.
	Target string `json:"target"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Params — параметры запуска; секреты уже замаскированы.
	Params map[string]string `json:"params,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения (успешного или с ошибкой).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED.
	Error string `json:"error,omitempty"`

	// FailedTask — имя задачи, на которой run остановился.
	FailedTask string `json:"failed_task,omitempty"`

	// Tasks — записи о задачах в порядке выполнения.
	Tasks []*TaskRecord `json:"tasks,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в статусе PENDING.
func NewRun(target string, params Params) *Run {
	return &Run{
		ID:        uuid.New(),
		Target:    target,
		Status:    RunStatusPending,
		Params:    params.Redacted(),
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED.
func (r *Run) MarkSucceeded() {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
}

// MarkFailed переводит run в статус FAILED.
func (r *Run) MarkFailed(task, err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.FailedTask = task
	r.Error = err
}

// Executed возвращает имена задач, не пропущенных guard'ом, в порядке выполнения.
func (r *Run) Executed() []string {
	names := make([]string, 0, len(r.Tasks))
	for _, t := range r.Tasks {
		if t.Status == TaskStatusSucceeded || t.Status == TaskStatusFailed {
			names = append(names, t.Task)
		}
	}
	return names
}

// Count возвращает количество задач с указанным статусом.
func (r *Run) Count(status TaskStatus) int {
	n := 0
	for _, t := range r.Tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}
