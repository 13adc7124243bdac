package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// errDeliveriesClosed — брокер закрыл канал доставки.
var errDeliveriesClosed = errors.New("deliveries channel closed")

// Handler обрабатывает одно событие. Ошибка логируется,
// потребление продолжается.
type Handler func(ctx context.Context, msg *Message) error

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	// Declare объявляет очередь и возвращает её имя. Вызывается
	// при каждой подписке: эксклюзивная очередь исчезает вместе
	// с соединением.
	Declare func(ch *amqp.Channel) (string, error)

	// Handler — обработчик событий.
	Handler Handler
}

// Consumer читает события из временной очереди наблюдателя.
//
// Сообщения подтверждаются автоматически: события transient,
// повторная доставка наблюдателю не нужна.
type Consumer struct {
	conn    *Connection
	logger  *slog.Logger
	declare func(ch *amqp.Channel) (string, error)
	handler Handler
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	return &Consumer{
		conn:    conn,
		logger:  logger,
		declare: cfg.Declare,
		handler: cfg.Handler,
	}
}

// Start подписывается на очередь и блокируется до отмены ctx.
//
// Если соединение создано с Reconnect, после разрыва Consumer
// ждёт переподключения и подписывается заново. Иначе разрыв
// возвращается как ошибка.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		queue, deliveries, err := c.subscribe()
		if err == nil {
			c.logger.Debug("consumer subscribed", "queue", queue)
			err = c.drain(ctx, deliveries)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !c.conn.cfg.Reconnect {
			return err
		}

		c.logger.Warn("consumer interrupted, waiting for reconnect", "error", err)
		if err := c.awaitReconnect(ctx); err != nil {
			return err
		}
	}
}

// subscribe объявляет очередь и начинает потребление.
func (c *Consumer) subscribe() (string, <-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil || ch.IsClosed() {
		return "", nil, ErrNoChannel
	}

	queue, err := c.declare(ch)
	if err != nil {
		return "", nil, err
	}

	// consumer tag генерирует библиотека, auto-ack
	deliveries, err := ch.Consume(queue, "", true, true, false, false, nil)
	if err != nil {
		return "", nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return queue, deliveries, nil
}

// drain передаёт сообщения обработчику до закрытия канала или отмены ctx.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			c.handle(ctx, d.Body)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) {
	msg, err := Decode(body)
	if err != nil {
		c.logger.Warn("dropping malformed message", "error", err, "body", string(body))
		return
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Warn("event handler failed", "message_id", msg.ID, "type", msg.Type, "error", err)
	}
}

// awaitReconnect ждёт сигнала о переподключении.
func (c *Consumer) awaitReconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.Done():
		return ErrNoChannel
	case <-c.conn.Reconnected():
		return nil
	}
}
