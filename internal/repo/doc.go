// Package repo хранит журнал сборок в PostgreSQL.
//
// Журнал включается переменной DB_URL. Таблицы runs и task_records
// создаются Migrate при первом подключении.
package repo
