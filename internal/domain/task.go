package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action — побочное действие задачи (очистка, вызов toolchain, публикация).
// Ошибка останавливает run.
type Action func(ctx context.Context, rc *RunContext) error

// Guard — предикат "выполнять только если". false — задача пропускается без ошибки.
type Guard func(rc *RunContext) bool

// Check — именованное требование, проверяемое перед action.
//
// Например: "configuration is Release".
type Check struct {
	// Name — описание требования для сообщения об ошибке.
	Name string

	// Fn — возвращает true, если требование выполнено.
	Fn func(rc *RunContext) bool
}

// TaskDef — определение задачи пайплайна.
//
// Задачи объявляются один раз при старте процесса и не хранят
// состояния между запусками.
type TaskDef struct {
	// Name — уникальное имя задачи (регистр не учитывается при поиске).
	Name string

	// Description — человекочитаемое описание для списка targets.
	Description string

	// DependsOn — задачи, которые должны завершиться до этой (в порядке объявления).
	DependsOn []string

	// DependentFor — обратные рёбра: эта задача выполняется перед указанными,
	// если они попали в план.
	DependentFor []string

	// OnlyWhen — guard задачи (опционально).
	OnlyWhen Guard

	// Requires — обязательные параметры. Пустое значение считается отсутствующим.
	Requires []string

	// Checks — дополнительные требования к Run Context.
	Checks []Check

	// Unlisted — скрыть задачу из списка targets.
	Unlisted bool

	// Action — действие задачи. Nil допустим для агрегирующих задач.
	Action Action
}

// TaskRecord — запись о выполнении задачи в рамках run.
type TaskRecord struct {
	// RunID — ссылка на родительский run.
	RunID uuid.UUID `json:"run_id"`

	// Task — имя задачи.
	Task string `json:"task"`

	// Position — порядковый номер задачи в плане (начиная с 0).
	Position int `json:"position"`

	// Status — итоговый статус.
	Status TaskStatus `json:"status"`

	// StartedAt — время начала обработки задачи.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// SkipReason — почему задача пропущена.
	SkipReason string `json:"skip_reason,omitempty"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`
}

// NewTaskRecord создаёт запись в статусе RUNNING.
func NewTaskRecord(runID uuid.UUID, task string, position int) *TaskRecord {
	now := time.Now()
	return &TaskRecord{
		RunID:     runID,
		Task:      task,
		Position:  position,
		Status:    TaskStatusRunning,
		StartedAt: &now,
	}
}

// Duration возвращает продолжительность выполнения.
func (t *TaskRecord) Duration() time.Duration {
	if t.StartedAt == nil || t.FinishedAt == nil {
		return 0
	}
	return t.FinishedAt.Sub(*t.StartedAt)
}

// MarkSucceeded переводит задачу в SUCCEEDED.
func (t *TaskRecord) MarkSucceeded() {
	now := time.Now()
	t.Status = TaskStatusSucceeded
	t.FinishedAt = &now
}

// MarkSkipped переводит задачу в SKIPPED с причиной.
func (t *TaskRecord) MarkSkipped(reason string) {
	now := time.Now()
	t.Status = TaskStatusSkipped
	t.FinishedAt = &now
	t.SkipReason = reason
}

// MarkFailed переводит задачу в FAILED с ошибкой.
func (t *TaskRecord) MarkFailed(err string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.FinishedAt = &now
	t.Error = err
}
