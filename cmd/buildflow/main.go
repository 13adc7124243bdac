// buildflow — сборка, тестирование, упаковка и публикация .NET библиотеки.
//
// Использование:
//
//	buildflow [--root DIR] [--json] <command> [flags]
//
// Команды:
//
//	run       Выполнить пайплайн до target
//	targets   Список targets
//	graph     План выполнения
//	history   Журнал сборок (DB_URL)
//	watch     События сборок (RABBITMQ_URL)
//	serve     HTTP API журнала и плана
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/buildflow/internal/cli"
	"github.com/shaiso/buildflow/internal/mq"
	"github.com/shaiso/buildflow/internal/repo"
	"github.com/shaiso/buildflow/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()

	// graceful shutdown: текущая задача доработает, следующие не начнутся
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := &cli.App{
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		Env:            os.LookupEnv,
		Logger:         logger,
		DBURL:          repo.URL(),
		RabbitMQURL:    mq.URL(),
		PushgatewayURL: telemetry.PushURL(),
	}

	if err := cli.NewRootCmd(app, version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
