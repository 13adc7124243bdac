package api

import (
	"errors"
	"net/http"

	"github.com/shaiso/buildflow/internal/orchestrator"
)

// ListTargets возвращает targets, доступные для запуска.
// GET /api/v1/targets
func (h *Handler) ListTargets(w http.ResponseWriter, r *http.Request) {
	targets := h.pipeline.Targets()

	result := make([]TargetResponse, len(targets))
	for i, t := range targets {
		result[i] = TargetFromPlan(t)
	}

	writeList(w, result, len(result))
}

// GetPlan возвращает план выполнения target.
// GET /api/v1/targets/{name}/plan
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.pipeline.Plan(r.PathValue("name"))
	if errors.Is(err, orchestrator.ErrUnknownTarget) {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeInternal(w, r, h.logger, err)
		return
	}

	result := make([]TargetResponse, len(plan))
	for i, e := range plan {
		result[i] = TargetFromPlan(e)
	}

	writeList(w, result, len(result))
}
