package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/buildflow/internal/domain"
	"github.com/shaiso/buildflow/internal/orchestrator"
	"github.com/shaiso/buildflow/internal/repo"
)

// RunReader — чтение журнала сборок (repo.Journal).
type RunReader interface {
	Recent(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Run, error)
}

// PlanReader — описание пайплайна (orchestrator.Orchestrator).
type PlanReader interface {
	Targets() []orchestrator.PlanEntry
	Plan(target string) ([]orchestrator.PlanEntry, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	runs     RunReader
	pipeline PlanReader
	logger   *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Runs — журнал; nil — маршруты /runs отвечают 503.
	Runs     RunReader
	Pipeline PlanReader
	Logger   *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		runs:     cfg.Runs,
		pipeline: cfg.Pipeline,
		logger:   cfg.Logger,
	}
}
