// Package mq публикует события сборки в RabbitMQ и читает их для watch.
//
// Структура:
//   - connection.go — соединение с RabbitMQ; reconnect только для watch
//   - topology.go   — exchange событий и временные очереди наблюдателей
//   - message.go    — формат сообщения, Decode и ParsePayload
//   - publisher.go  — публикация сообщений
//   - events.go     — payload событий и EventPublisher (наблюдатель за run)
//   - consumer.go   — потребление событий для watch
//
// Типы сообщений (они же routing keys):
//   - run.started    — run начат
//   - task.finished  — задача завершена (SUCCEEDED, SKIPPED или FAILED)
//   - run.finished   — run завершён
//
// Exchange:
//   - buildflow.events (topic)
package mq
