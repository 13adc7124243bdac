package orchestrator

import (
	"context"

	"github.com/shaiso/buildflow/internal/domain"
)

// Observer получает уведомления о ходе run.
//
// Реализации: telemetry.Metrics, repo.Journal, mq.EventPublisher.
// Вызовы синхронные; ошибки наблюдателя не влияют на run —
// реализация сама логирует их.
type Observer interface {
	RunStarted(ctx context.Context, run *domain.Run)
	TaskFinished(ctx context.Context, run *domain.Run, task *domain.TaskRecord)
	RunFinished(ctx context.Context, run *domain.Run)
}

// Observers рассылает уведомления всем наблюдателям по порядку.
type Observers []Observer

// RunStarted реализует Observer.
func (o Observers) RunStarted(ctx context.Context, run *domain.Run) {
	for _, obs := range o {
		obs.RunStarted(ctx, run)
	}
}

// TaskFinished реализует Observer.
func (o Observers) TaskFinished(ctx context.Context, run *domain.Run, task *domain.TaskRecord) {
	for _, obs := range o {
		obs.TaskFinished(ctx, run, task)
	}
}

// RunFinished реализует Observer.
func (o Observers) RunFinished(ctx context.Context, run *domain.Run) {
	for _, obs := range o {
		obs.RunFinished(ctx, run)
	}
}
