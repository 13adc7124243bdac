package orchestrator

import (
	"github.com/google/uuid"
	"github.com/shaiso/buildflow/internal/domain"
	"github.com/shaiso/buildflow/internal/engine"
)

// RunState — execution record одного run.
//
// RunState создаётся на каждый вызов Run и выбрасывается после него.
// Не потокобезопасен: принадлежит одному вызову Run.
//
// Содержит:
//   - Run с записями о задачах
//   - План (замыкание зависимостей target)
//   - Множество уже обработанных задач
type RunState struct {
	// Run — запись о запуске.
	Run *domain.Run

	// Plan — задачи в порядке выполнения.
	Plan []*engine.Node

	// executed — обработанные задачи (ID узла → запись).
	executed map[string]*domain.TaskRecord
}

// NewRunState создаёт новый RunState.
func NewRunState(run *domain.Run, plan []*engine.Node) *RunState {
	return &RunState{
		Run:      run,
		Plan:     plan,
		executed: make(map[string]*domain.TaskRecord, len(plan)),
	}
}

// Begin регистрирует начало обработки задачи.
// Возвращает nil, если задача уже обрабатывалась в этом run.
func (s *RunState) Begin(node *engine.Node, position int) *domain.TaskRecord {
	if _, ok := s.executed[node.ID]; ok {
		return nil
	}

	record := domain.NewTaskRecord(s.Run.ID, node.Name(), position)
	s.executed[node.ID] = record
	s.Run.Tasks = append(s.Run.Tasks, record)

	return record
}

// IsExecuted проверяет, обрабатывалась ли задача.
func (s *RunState) IsExecuted(id string) bool {
	_, ok := s.executed[id]
	return ok
}

// Record возвращает запись о задаче.
func (s *RunState) Record(id string) *domain.TaskRecord {
	return s.executed[id]
}

// RunID возвращает ID run.
func (s *RunState) RunID() uuid.UUID {
	return s.Run.ID
}

// Stats возвращает статистику выполнения.
func (s *RunState) Stats() RunStats {
	stats := RunStats{TotalTasks: len(s.Plan)}
	for _, record := range s.Run.Tasks {
		switch record.Status {
		case domain.TaskStatusSucceeded:
			stats.SucceededTasks++
		case domain.TaskStatusSkipped:
			stats.SkippedTasks++
		case domain.TaskStatusFailed:
			stats.FailedTasks++
		}
	}
	stats.PendingTasks = stats.TotalTasks - stats.SucceededTasks - stats.SkippedTasks - stats.FailedTasks
	return stats
}

// RunStats — статистика выполнения run.
type RunStats struct {
	TotalTasks     int
	SucceededTasks int
	SkippedTasks   int
	FailedTasks    int
	PendingTasks   int
}
