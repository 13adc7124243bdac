package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// ExchangeEvents — topic exchange событий сборки.
const ExchangeEvents Exchange = "buildflow.events"

// Routing keys совпадают с типами сообщений.
const (
	RoutingKeyRunStarted   RoutingKey = RoutingKey(MessageTypeRunStarted)
	RoutingKeyTaskFinished RoutingKey = RoutingKey(MessageTypeTaskFinished)
	RoutingKeyRunFinished  RoutingKey = RoutingKey(MessageTypeRunFinished)

	// RoutingKeyAll — все события (для watch).
	RoutingKeyAll RoutingKey = "#"
)

// SetupTopology объявляет exchange событий.
// Идемпотентна: повторный вызов с теми же параметрами ничего не меняет.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, declareExchange)
}

func declareExchange(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		string(ExchangeEvents), // name
		"topic",                // type
		true,                   // durable
		false,                  // auto-deleted
		false,                  // internal
		false,                  // no-wait
		nil,                    // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
	}
	return nil
}

// WatchQueue возвращает функцию объявления временной очереди наблюдателя.
//
// Очередь эксклюзивная и удаляется при отключении: каждый watch
// получает свою копию событий. Пустой filter — все события.
func WatchQueue(filter RoutingKey) func(ch *amqp.Channel) (string, error) {
	if filter == "" {
		filter = RoutingKeyAll
	}

	return func(ch *amqp.Channel) (string, error) {
		if err := declareExchange(ch); err != nil {
			return "", err
		}

		q, err := ch.QueueDeclare(
			"",    // name (генерирует сервер)
			false, // durable
			true,  // delete when unused
			true,  // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return "", fmt.Errorf("declare watch queue: %w", err)
		}

		if err := ch.QueueBind(q.Name, string(filter), string(ExchangeEvents), false, nil); err != nil {
			return "", fmt.Errorf("bind queue %s to %s: %w", q.Name, ExchangeEvents, err)
		}

		return q.Name, nil
	}
}
