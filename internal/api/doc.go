// Package api содержит HTTP API только для чтения: журнал сборок и
// описание пайплайна.
//
// Структура:
//   - handler.go        — Handler с DI (журнал, пайплайн, logger)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — middleware (request id, logging, recovery)
//   - response.go       — унифицированные JSON-ответы и обработка ошибок
//   - dto.go            — Data Transfer Objects
//   - run_handler.go    — обработчики для /runs
//   - target_handler.go — обработчики для /targets
//
// Запуск сборок через API не предусмотрен: run выполняется CLI.
package api
