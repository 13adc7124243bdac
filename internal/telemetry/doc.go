// Package telemetry обеспечивает наблюдаемость сборки.
//
// Включает:
//   - logging.go — structured logging через slog, логгер передаётся в context
//   - metrics.go — Prometheus метрики run и задач
//
// Метрики отправляются в Pushgateway (PUSHGATEWAY_URL) по завершении run;
// команда watch дополнительно отдаёт их на /metrics.
package telemetry
