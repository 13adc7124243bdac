package mq

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/buildflow/internal/domain"
)

// publishTimeout — максимальное время публикации одного события.
const publishTimeout = 5 * time.Second

// RunPayload — payload событий run.started и run.finished.
type RunPayload struct {
	RunID      uuid.UUID         `json:"run_id"`
	Target     string            `json:"target"`
	Status     string            `json:"status"`
	Params     map[string]string `json:"params,omitempty"`
	FailedTask string            `json:"failed_task,omitempty"`
	Error      string            `json:"error,omitempty"`
	DurationMs int64             `json:"duration_ms,omitempty"`
}

// TaskPayload — payload события task.finished.
type TaskPayload struct {
	RunID      uuid.UUID `json:"run_id"`
	Task       string    `json:"task"`
	Position   int       `json:"position"`
	Status     string    `json:"status"`
	SkipReason string    `json:"skip_reason,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

// NewRunPayload создаёт payload из run. Параметры уже замаскированы в run.
func NewRunPayload(run *domain.Run) RunPayload {
	return RunPayload{
		RunID:      run.ID,
		Target:     run.Target,
		Status:     string(run.Status),
		Params:     run.Params,
		FailedTask: run.FailedTask,
		Error:      run.Error,
		DurationMs: run.Duration().Milliseconds(),
	}
}

// NewTaskPayload создаёт payload из записи о задаче.
func NewTaskPayload(task *domain.TaskRecord) TaskPayload {
	return TaskPayload{
		RunID:      task.RunID,
		Task:       task.Task,
		Position:   task.Position,
		Status:     string(task.Status),
		SkipReason: task.SkipReason,
		Error:      task.Error,
		DurationMs: task.Duration().Milliseconds(),
	}
}

// MessagePublisher — то, что умеет публиковать сообщения (Publisher).
type MessagePublisher interface {
	Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error
}

// EventPublisher публикует события хода run в ExchangeEvents.
//
// Реализует orchestrator.Observer. Ошибка публикации логируется
// и не влияет на сборку.
type EventPublisher struct {
	publisher MessagePublisher
	logger    *slog.Logger
}

// NewEventPublisher создаёт EventPublisher.
func NewEventPublisher(publisher MessagePublisher, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{publisher: publisher, logger: logger}
}

// RunStarted реализует orchestrator.Observer.
func (e *EventPublisher) RunStarted(ctx context.Context, run *domain.Run) {
	e.publish(ctx, MessageTypeRunStarted, NewRunPayload(run))
}

// TaskFinished реализует orchestrator.Observer.
func (e *EventPublisher) TaskFinished(ctx context.Context, run *domain.Run, task *domain.TaskRecord) {
	e.publish(ctx, MessageTypeTaskFinished, NewTaskPayload(task))
}

// RunFinished реализует orchestrator.Observer.
func (e *EventPublisher) RunFinished(ctx context.Context, run *domain.Run) {
	e.publish(ctx, MessageTypeRunFinished, NewRunPayload(run))
}

func (e *EventPublisher) publish(ctx context.Context, msgType MessageType, payload any) {
	// Событие о завершении публикуется и после отмены run
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	msg := NewMessage(msgType, payload)
	if err := e.publisher.Publish(ctx, ExchangeEvents, RoutingKey(msgType), msg); err != nil {
		e.logger.Warn("failed to publish event", "type", msgType, "error", err)
	}
}
