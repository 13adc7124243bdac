package engine

import (
	"fmt"
	"strings"

	"github.com/shaiso/buildflow/internal/domain"
)

// Key нормализует имя задачи для поиска: регистр не учитывается.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate выполняет валидацию определений задач.
//
// Проверяет:
// - Наличие задач
// - Непустые и уникальные имена
// - Отсутствие зависимости задачи от самой себя
// - Существование всех задач из DependsOn и DependentFor
//
// Циклы длиннее одного ребра обнаруживаются при построении DAG.
func Validate(defs []domain.TaskDef) error {
	if len(defs) == 0 {
		return ErrEmptyTasks
	}

	names := make(map[string]bool, len(defs))

	for i := range defs {
		if err := ValidateTask(&defs[i], names); err != nil {
			return err
		}
	}

	return validateReferences(defs, names)
}

// ValidateTask валидирует одну задачу.
// names — уже встреченные имена задач (для проверки уникальности).
func ValidateTask(def *domain.TaskDef, names map[string]bool) error {
	key := Key(def.Name)

	if key == "" {
		return NewValidationError("", "name", "task has empty name", ErrEmptyTaskName)
	}

	if names[key] {
		return NewValidationError(def.Name, "name",
			fmt.Sprintf("duplicate task name: %s", def.Name), ErrDuplicateTaskName)
	}
	names[key] = true

	for _, dep := range def.DependsOn {
		if Key(dep) == key {
			return NewValidationError(def.Name, "depends_on",
				"task depends on itself", ErrCyclicDependency)
		}
	}
	for _, dep := range def.DependentFor {
		if Key(dep) == key {
			return NewValidationError(def.Name, "dependent_for",
				"task is dependent for itself", ErrCyclicDependency)
		}
	}

	return nil
}

// validateReferences проверяет, что все ссылки указывают на объявленные задачи.
func validateReferences(defs []domain.TaskDef, names map[string]bool) error {
	for i := range defs {
		def := &defs[i]

		for _, dep := range def.DependsOn {
			if !names[Key(dep)] {
				return NewValidationError(def.Name, "depends_on",
					fmt.Sprintf("depends on unknown task: %s", dep), ErrMissingDependency)
			}
		}

		for _, dep := range def.DependentFor {
			if !names[Key(dep)] {
				return NewValidationError(def.Name, "dependent_for",
					fmt.Sprintf("dependent for unknown task: %s", dep), ErrMissingDependency)
			}
		}
	}

	return nil
}
