package engine

import "errors"

// Ошибки валидации определения пайплайна.
var (
	// ErrEmptyTasks — пайплайн не содержит задач.
	ErrEmptyTasks = errors.New("pipeline has no tasks")

	// ErrEmptyTaskName — задача не имеет имени.
	ErrEmptyTaskName = errors.New("task has empty name")

	// ErrDuplicateTaskName — несколько задач с одинаковым именем.
	ErrDuplicateTaskName = errors.New("duplicate task name")

	// ErrMissingDependency — задача ссылается на несуществующую задачу.
	ErrMissingDependency = errors.New("task references unknown task")

	// ErrCyclicDependency — обнаружен цикл в зависимостях (включая зависимость от самой себя).
	ErrCyclicDependency = errors.New("cyclic dependency detected")
)

// Ошибки обхода графа.
var (
	// ErrUnknownTarget — запрошенный target не объявлен в пайплайне.
	ErrUnknownTarget = errors.New("unknown target")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Task    string // имя задачи, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Task != "" {
		return "task " + e.Task + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(task, field, message string, err error) *ValidationError {
	return &ValidationError{
		Task:    task,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
