// Package cli реализует команды buildflow.
//
// # Команды
//
//   - run [TARGET]: выполнить пайплайн до TARGET (по умолчанию Push)
//   - targets: список targets
//   - graph [TARGET]: план выполнения без запуска
//   - history, history show RUN_ID: журнал сборок из PostgreSQL
//   - watch: поток событий сборок из RabbitMQ
//   - serve: HTTP API только для чтения (журнал и план)
//
// # Зависимости
//
// App собирает зависимости команд: конфигурацию из .buildflow/parameters.yaml,
// toolchain (dotnet), versioner (dotnet-gitversion) и наблюдателей run.
// Наблюдатели подключаются по переменным окружения:
//
//	DB_URL           — журнал сборок (repo.Journal)
//	RABBITMQ_URL     — события сборок (mq.EventPublisher)
//	PUSHGATEWAY_URL  — метрики run (telemetry.Metrics)
//
// Недоступный сервис не ломает сборку: наблюдатель отключается
// с предупреждением в логе.
//
// # Output
//
// Таблицы (text/tabwriter) по умолчанию, JSON с флагом --json.
// Данные выводятся в stdout, лог и сообщения об ошибках в stderr:
//
//	buildflow graph --json | jq '.[].name'
package cli
