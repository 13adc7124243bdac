package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/buildflow/internal/domain"
	"github.com/shaiso/buildflow/internal/repo"
)

// defaultListLimit — размер страницы по умолчанию.
const defaultListLimit = 50

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?target=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w, r) {
		return
	}

	filter := repo.RunFilter{
		Target: r.URL.Query().Get("target"),
		Limit:  parseInt(r.URL.Query().Get("limit"), defaultListLimit),
		Offset: parseInt(r.URL.Query().Get("offset"), 0),
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.ParseRunStatus(strings.ToUpper(status))
	}

	runs, err := h.runs.Recent(r.Context(), filter)
	if writeLookupError(w, r, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	writeList(w, result, len(result))
}

// GetRun возвращает run по ID вместе с задачами.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	writeData(w, RunDetailResponse{
		RunResponse: RunFromDomain(*run),
		Tasks:       tasksFromDomain(run.Tasks),
	})
}

// ListRunTasks возвращает задачи run.
// GET /api/v1/runs/{id}/tasks
func (h *Handler) ListRunTasks(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	result := tasksFromDomain(run.Tasks)
	writeList(w, result, len(result))
}

// loadRun читает run из пути запроса и пишет ответ с ошибкой, если не удалось.
func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (*domain.Run, bool) {
	if !h.journalEnabled(w, r) {
		return nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid run id")
		return nil, false
	}

	run, err := h.runs.Get(r.Context(), id)
	if writeLookupError(w, r, h.logger, err, "run not found") {
		return nil, false
	}
	return run, true
}

func (h *Handler) journalEnabled(w http.ResponseWriter, r *http.Request) bool {
	if h.runs == nil {
		writeError(w, r, http.StatusServiceUnavailable, "run journal is disabled")
		return false
	}
	return true
}

func tasksFromDomain(tasks []*domain.TaskRecord) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = TaskFromDomain(t)
	}
	return result
}

// parseInt парсит неотрицательное число с дефолтным значением.
func parseInt(s string, defaultVal int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
