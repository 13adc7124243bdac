package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shaiso/buildflow/internal/build"
	"github.com/shaiso/buildflow/internal/config"
	"github.com/shaiso/buildflow/internal/mq"
	"github.com/shaiso/buildflow/internal/orchestrator"
	"github.com/shaiso/buildflow/internal/repo"
	"github.com/shaiso/buildflow/internal/toolchain"
	"github.com/shaiso/buildflow/internal/versioning"
)

// Ошибки CLI.
var (
	// ErrJournalDisabled — журнал не настроен (нет DB_URL).
	ErrJournalDisabled = errors.New("run journal is disabled: set DB_URL")

	// ErrEventsDisabled — RabbitMQ не настроен (нет RABBITMQ_URL).
	ErrEventsDisabled = errors.New("pipeline events are disabled: set RABBITMQ_URL")
)

// App — общие зависимости команд.
//
// Поля RootDir и JSON заполняются persistent-флагами корневой команды,
// поэтому команды читают их только внутри RunE.
type App struct {
	// RootDir — корень репозитория собираемого проекта.
	RootDir string

	// JSON — вывод данных в JSON.
	JSON bool

	Stdout io.Writer
	Stderr io.Writer

	// Env — источник переменных окружения для параметров и определения CI.
	Env config.LookupEnv

	Logger *slog.Logger

	// DBURL, RabbitMQURL, PushgatewayURL — адреса внешних сервисов.
	// Пустой адрес отключает соответствующий наблюдатель.
	DBURL          string
	RabbitMQURL    string
	PushgatewayURL string

	// Toolchain и Versioner; nil — dotnet и dotnet-gitversion.
	Toolchain toolchain.Toolchain
	Versioner versioning.Versioner

	// OpenJournal открывает журнал; nil — PostgreSQL по DBURL.
	OpenJournal func(ctx context.Context) (*repo.Journal, func(), error)
}

// output создаёт Output по текущим флагам.
func (a *App) output() *Output {
	return NewOutput(a.JSON, a.Stdout, a.Stderr)
}

// host определяет среду выполнения.
func (a *App) host() config.Host {
	return config.DetectHost(a.Env)
}

// versionOverride — фиксированная версия вместо GitVersion.
type versionOverride struct {
	Version string
	Branch  string
}

// pipeline загружает конфигурацию и собирает пайплайн с оркестратором.
func (a *App) pipeline(override versionOverride, observers ...orchestrator.Observer) (*config.Config, *orchestrator.Orchestrator, error) {
	cfg, err := config.Load(a.RootDir)
	if err != nil {
		return nil, nil, err
	}

	tools := a.Toolchain
	if tools == nil {
		tools = toolchain.NewDotNet(toolchain.NewExecRunner(), "dotnet", cfg.RootDir)
	}

	versioner := a.Versioner
	if override.Version != "" {
		static, err := versioning.NewStatic(override.Version, override.Branch)
		if err != nil {
			return nil, nil, err
		}
		versioner = static
	}
	if versioner == nil {
		versioner = versioning.NewGitVersion(toolchain.NewExecRunner(), versioning.GitVersionConfig{
			Dir: cfg.RootDir,
		})
	}

	p := build.New(build.Options{
		Config:    cfg,
		Toolchain: tools,
		Versioner: versioner,
	})

	orch, err := orchestrator.New(orchestrator.Config{
		Tasks:     p.Tasks(),
		Observers: observers,
		Logger:    a.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, orch, nil
}

// journal открывает журнал сборок.
func (a *App) journal(ctx context.Context) (*repo.Journal, func(), error) {
	if a.OpenJournal != nil {
		return a.OpenJournal(ctx)
	}
	if a.DBURL == "" {
		return nil, nil, ErrJournalDisabled
	}

	pool, err := repo.NewPool(ctx, a.DBURL)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	j := repo.NewJournal(repo.NewRunRepo(pool), repo.NewTaskRepo(pool), a.Logger)
	return j, pool.Close, nil
}

// events подключается к RabbitMQ и объявляет exchange событий.
// name попадает в management UI брокера, reconnect нужен долгоживущим командам.
func (a *App) events(ctx context.Context, name string, reconnect bool) (*mq.Connection, error) {
	if a.RabbitMQURL == "" {
		return nil, ErrEventsDisabled
	}

	conn, err := mq.NewConnection(mq.ConnectionConfig{
		URL:       a.RabbitMQURL,
		Name:      name,
		Reconnect: reconnect,
	}, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
