package orchestrator

import (
	"errors"

	"github.com/shaiso/buildflow/internal/engine"
)

// Ошибки оркестратора.
var (
	// ErrUnknownTarget — запрошенный target не объявлен.
	ErrUnknownTarget = engine.ErrUnknownTarget

	// ErrCycleDetected — в определении пайплайна есть цикл.
	// Возвращается из New, до выполнения любого action.
	ErrCycleDetected = engine.ErrCyclicDependency

	// ErrMissingParameter — не задан обязательный параметр задачи.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrRequirementNotMet — не выполнено требование (Check) задачи.
	ErrRequirementNotMet = errors.New("requirement not met")

	// ErrActionFailed — action задачи вернул ошибку.
	ErrActionFailed = errors.New("action failed")

	// ErrRunCancelled — контекст отменён между задачами.
	ErrRunCancelled = errors.New("run cancelled")
)

// TaskError — ошибка, остановившая run, с именем задачи-источника.
//
// errors.Is срабатывает и для Kind (ErrMissingParameter, ErrActionFailed, ...),
// и для исходной причины Err.
type TaskError struct {
	Task   string // имя задачи
	Kind   error  // категория ошибки
	Detail string // параметр или требование, если применимо
	Err    error  // исходная причина
}

// Error реализует интерфейс error.
func (e *TaskError) Error() string {
	msg := "task " + e.Task + ": " + e.Kind.Error()
	if e.Detail != "" {
		msg += " " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap возвращает категорию и исходную причину.
func (e *TaskError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewTaskError создаёт TaskError.
func NewTaskError(task string, kind error, detail string, err error) *TaskError {
	return &TaskError{
		Task:   task,
		Kind:   kind,
		Detail: detail,
		Err:    err,
	}
}

// FailedTask возвращает имя задачи, вызвавшей ошибку, если она известна.
func FailedTask(err error) (string, bool) {
	var taskErr *TaskError
	if errors.As(err, &taskErr) {
		return taskErr.Task, true
	}
	return "", false
}
