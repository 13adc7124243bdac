package build

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shaiso/buildflow/internal/config"
	"github.com/shaiso/buildflow/internal/domain"
	"github.com/shaiso/buildflow/internal/toolchain"
	"github.com/shaiso/buildflow/internal/versioning"
)

// Имена задач пайплайна.
const (
	TaskPrint   = "Print"
	TaskClean   = "Clean"
	TaskRestore = "Restore"
	TaskCompile = "Compile"
	TaskTest    = "Test"
	TaskPack    = "Pack"
	TaskPush    = "Push"
)

// DefaultTarget — target, если он не указан при запуске.
const DefaultTarget = TaskPush

// Pipeline — пайплайн упаковки .NET библиотеки.
//
// Pipeline не хранит параметров запуска: всё, что зависит от запуска,
// приходит через domain.RunContext. Версия вычисляется один раз
// при первом обращении.
type Pipeline struct {
	cfg       *config.Config
	tools     toolchain.Toolchain
	versioner versioning.Versioner

	mu      sync.Mutex
	version *domain.Version
}

// Options — зависимости Pipeline.
type Options struct {
	Config    *config.Config
	Toolchain toolchain.Toolchain
	Versioner versioning.Versioner
}

// New создаёт Pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{
		cfg:       opts.Config,
		tools:     opts.Toolchain,
		versioner: opts.Versioner,
	}
}

// Tasks возвращает определения задач в порядке объявления.
func (p *Pipeline) Tasks() []domain.TaskDef {
	return []domain.TaskDef{
		{
			Name:         TaskPrint,
			Description:  "Print release notes and computed version",
			DependentFor: []string{TaskClean},
			Action:       p.print,
		},
		{
			Name:        TaskClean,
			Description: "Delete bin/obj directories and empty the artifacts directory",
			Unlisted:    true,
			Action:      p.clean,
		},
		{
			Name:        TaskRestore,
			Description: "Restore solution dependencies",
			DependsOn:   []string{TaskClean},
			Action:      p.restore,
		},
		{
			Name:        TaskCompile,
			Description: "Compile library and tests for every target framework",
			DependsOn:   []string{TaskRestore},
			Action:      p.compile,
		},
		{
			Name:        TaskTest,
			Description: "Run unit tests",
			DependsOn:   []string{TaskCompile},
			Action:      p.test,
		},
		{
			Name:        TaskPack,
			Description: "Pack the library into a NuGet package",
			DependsOn:   []string{TaskTest},
			Action:      p.pack,
		},
		{
			Name:        TaskPush,
			Description: "Publish packages to NuGet feeds",
			DependsOn:   []string{TaskPack},
			OnlyWhen:    isServerBuild,
			Requires:    []string{ParamNugetAPIKey, ParamNugetAPIURL},
			Checks: []domain.Check{
				{Name: "configuration is Release", Fn: isRelease},
			},
			Action: p.push,
		},
	}
}

// Version возвращает версию сборки, вычисляя её при первом вызове.
func (p *Pipeline) Version(ctx context.Context) (*domain.Version, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.version != nil {
		return p.version, nil
	}
	if p.versioner == nil {
		return nil, fmt.Errorf("compute version: no versioner configured")
	}

	v, err := p.versioner.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute version: %w", err)
	}
	p.version = v
	return v, nil
}

func isServerBuild(rc *domain.RunContext) bool {
	return rc.Params.Bool(ParamServerBuild)
}

func isRelease(rc *domain.RunContext) bool {
	return strings.EqualFold(rc.Params.Value(ParamConfiguration), "Release")
}
