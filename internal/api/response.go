package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/buildflow/internal/repo"
)

// ErrorCode — машиночитаемый код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnavailable   ErrorCode = "UNAVAILABLE"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// errorCodes сопоставляет HTTP статус и код ошибки.
var errorCodes = map[int]ErrorCode{
	http.StatusBadRequest:         ErrCodeBadRequest,
	http.StatusNotFound:           ErrCodeNotFound,
	http.StatusServiceUnavailable: ErrCodeUnavailable,
}

// ErrorResponse — тело ответа с ошибкой.
//
//	{"error": {"code": "NOT_FOUND", "message": "run not found", "request_id": "..."}}
type ErrorResponse struct {
	Error struct {
		Code      ErrorCode `json:"code"`
		Message   string    `json:"message"`
		RequestID string    `json:"request_id,omitempty"`
	} `json:"error"`
}

// DataResponse — тело ответа с одним объектом.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — тело ответа со списком. Total есть всегда, даже для пустого списка.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, DataResponse{Data: v})
}

func writeList(w http.ResponseWriter, items any, total int) {
	writeJSON(w, http.StatusOK, ListResponse{Data: items, Total: total})
}

// writeError пишет ошибку; код выводится из статуса.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	code, ok := errorCodes[status]
	if !ok {
		code = ErrCodeInternalError
	}

	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.RequestID = RequestIDFrom(r.Context())
	writeJSON(w, status, resp)
}

// writeInternal логирует err и отвечает 500 без подробностей.
func writeInternal(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.Error("request failed",
		"request_id", RequestIDFrom(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, r, http.StatusInternalServerError, "internal server error")
}

// writeLookupError отвечает на ошибку чтения журнала.
// Возвращает false, если err == nil и обработка запроса продолжается.
func writeLookupError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, notFound string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, r, http.StatusNotFound, notFound)
	default:
		writeInternal(w, r, logger, err)
	}
	return true
}
