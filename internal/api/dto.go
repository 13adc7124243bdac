package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/buildflow/internal/domain"
	"github.com/shaiso/buildflow/internal/orchestrator"
)

// Run DTOs

// RunResponse — ответ с run.
type RunResponse struct {
	ID         uuid.UUID         `json:"id"`
	Target     string            `json:"target"`
	Status     domain.RunStatus  `json:"status"`
	Params     map[string]string `json:"params,omitempty"`
	FailedTask string            `json:"failed_task,omitempty"`
	Error      string            `json:"error,omitempty"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	CreatedAt  time.Time         `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
// Параметры в журнале уже замаскированы.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:         r.ID,
		Target:     r.Target,
		Status:     r.Status,
		Params:     r.Params,
		FailedTask: r.FailedTask,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.Duration().Milliseconds(),
		CreatedAt:  r.CreatedAt,
	}
}

// RunDetailResponse — run вместе с задачами.
type RunDetailResponse struct {
	RunResponse
	Tasks []TaskResponse `json:"tasks"`
}

// Task DTOs

// TaskResponse — ответ с записью о задаче.
type TaskResponse struct {
	RunID      uuid.UUID         `json:"run_id"`
	Task       string            `json:"task"`
	Position   int               `json:"position"`
	Status     domain.TaskStatus `json:"status"`
	SkipReason string            `json:"skip_reason,omitempty"`
	Error      string            `json:"error,omitempty"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

// TaskFromDomain конвертирует domain.TaskRecord в TaskResponse.
func TaskFromDomain(t *domain.TaskRecord) TaskResponse {
	return TaskResponse{
		RunID:      t.RunID,
		Task:       t.Task,
		Position:   t.Position,
		Status:     t.Status,
		SkipReason: t.SkipReason,
		Error:      t.Error,
		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
		DurationMs: t.Duration().Milliseconds(),
	}
}

// Target DTOs

// TargetResponse — задача пайплайна.
type TargetResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	DependsOn   []string `json:"depends_on"`
	Requires    []string `json:"requires"`
	Conditional bool     `json:"conditional"`
}

// TargetFromPlan конвертирует orchestrator.PlanEntry в TargetResponse.
func TargetFromPlan(e orchestrator.PlanEntry) TargetResponse {
	resp := TargetResponse{
		Name:        e.Name,
		Description: e.Description,
		DependsOn:   e.DependsOn,
		Requires:    e.Requires,
		Conditional: e.Guarded,
	}
	if resp.DependsOn == nil {
		resp.DependsOn = []string{}
	}
	if resp.Requires == nil {
		resp.Requires = []string{}
	}
	return resp
}
