package toolchain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Toolchain — операции внешнего toolchain, нужные пайплайну.
//
// Одна операция — один метод; пайплайн тестируется с фейковой реализацией.
type Toolchain interface {
	Restore(ctx context.Context, opts RestoreOptions) error
	Publish(ctx context.Context, opts PublishOptions) error
	Test(ctx context.Context, opts TestOptions) error
	Pack(ctx context.Context, opts PackOptions) error
	Push(ctx context.Context, opts PushOptions) error
}

// RestoreOptions — параметры восстановления зависимостей.
type RestoreOptions struct {
	Project             string
	IgnoreFailedSources bool
}

// PublishOptions — параметры компиляции одного проекта под один framework.
type PublishOptions struct {
	Project              string
	Framework            string
	Configuration        string
	Copyright            string
	AssemblyVersion      string
	FileVersion          string
	Version              string
	InformationalVersion string
}

// TestOptions — параметры запуска тестов.
type TestOptions struct {
	Project       string
	Configuration string
	NoBuild       bool
}

// PackOptions — параметры упаковки NuGet пакета.
type PackOptions struct {
	Project        string
	Configuration  string
	OutputDir      string
	NoBuild        bool
	NoRestore      bool
	NoDependencies bool

	PackageID                string
	Title                    string
	Version                  string
	Description              string
	Authors                  string
	Copyright                string
	ReleaseNotes             string
	ProjectURL               string
	License                  string
	Tags                     string
	Readme                   string
	Icon                     string
	RequireLicenseAcceptance bool

	RepositoryType   string
	RepositoryURL    string
	RepositoryBranch string
	RepositoryCommit string
}

// PushOptions — параметры публикации одного пакета.
type PushOptions struct {
	Package string
	Source  string
	APIKey  string
}

// DotNet — Toolchain поверх dotnet CLI.
type DotNet struct {
	runner Runner
	binary string
	dir    string
}

// NewDotNet создаёт DotNet.
// binary — путь к dotnet (пусто — "dotnet" из PATH), dir — рабочая директория.
func NewDotNet(runner Runner, binary, dir string) *DotNet {
	if binary == "" {
		binary = "dotnet"
	}
	return &DotNet{runner: runner, binary: binary, dir: dir}
}

// Restore выполняет dotnet restore.
func (d *DotNet) Restore(ctx context.Context, opts RestoreOptions) error {
	args := []string{"restore", opts.Project}
	if opts.IgnoreFailedSources {
		args = append(args, "--ignore-failed-sources")
	}
	return d.run(ctx, args)
}

// Publish выполняет dotnet publish для одного проекта и framework.
func (d *DotNet) Publish(ctx context.Context, opts PublishOptions) error {
	args := []string{"publish", opts.Project}
	args = appendFlag(args, "--configuration", opts.Configuration)
	args = appendFlag(args, "--framework", opts.Framework)
	args = appendProperty(args, "Copyright", opts.Copyright)
	args = appendProperty(args, "AssemblyVersion", opts.AssemblyVersion)
	args = appendProperty(args, "FileVersion", opts.FileVersion)
	args = appendProperty(args, "Version", opts.Version)
	args = appendProperty(args, "InformationalVersion", opts.InformationalVersion)
	return d.run(ctx, args)
}

// Test выполняет dotnet test.
func (d *DotNet) Test(ctx context.Context, opts TestOptions) error {
	args := []string{"test", opts.Project}
	args = appendFlag(args, "--configuration", opts.Configuration)
	if opts.NoBuild {
		args = append(args, "--no-build")
	}
	return d.run(ctx, args)
}

// Pack выполняет dotnet pack.
func (d *DotNet) Pack(ctx context.Context, opts PackOptions) error {
	args := []string{"pack", opts.Project}
	args = appendFlag(args, "--configuration", opts.Configuration)
	args = appendFlag(args, "--output", opts.OutputDir)
	if opts.NoBuild {
		args = append(args, "--no-build")
	}
	if opts.NoRestore {
		args = append(args, "--no-restore")
	}
	if opts.NoDependencies {
		args = append(args, "--no-dependencies")
	}

	args = appendProperty(args, "PackageId", opts.PackageID)
	args = appendProperty(args, "Title", opts.Title)
	args = appendProperty(args, "Version", opts.Version)
	args = appendProperty(args, "Description", opts.Description)
	args = appendProperty(args, "Authors", opts.Authors)
	args = appendProperty(args, "Copyright", opts.Copyright)
	args = appendProperty(args, "PackageReleaseNotes", opts.ReleaseNotes)
	args = appendProperty(args, "PackageProjectUrl", opts.ProjectURL)
	args = appendProperty(args, "PackageLicenseExpression", opts.License)
	args = appendProperty(args, "PackageTags", opts.Tags)
	args = appendProperty(args, "PackageReadmeFile", opts.Readme)
	args = appendProperty(args, "PackageIcon", opts.Icon)
	args = appendProperty(args, "PackageRequireLicenseAcceptance", strconv.FormatBool(opts.RequireLicenseAcceptance))
	args = appendProperty(args, "RepositoryType", opts.RepositoryType)
	args = appendProperty(args, "RepositoryUrl", opts.RepositoryURL)
	args = appendProperty(args, "RepositoryBranch", opts.RepositoryBranch)
	args = appendProperty(args, "RepositoryCommit", opts.RepositoryCommit)
	return d.run(ctx, args)
}

// Push выполняет dotnet nuget push для одного пакета.
func (d *DotNet) Push(ctx context.Context, opts PushOptions) error {
	args := []string{"nuget", "push", opts.Package}
	args = appendFlag(args, "--source", opts.Source)
	args = appendFlag(args, "--api-key", opts.APIKey)
	return d.run(ctx, args)
}

func (d *DotNet) run(ctx context.Context, args []string) error {
	cmd := Command{Name: d.binary, Args: args, Dir: d.dir}
	if _, err := d.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("dotnet %s: %w", args[0], err)
	}
	return nil
}

func appendFlag(args []string, flag, value string) []string {
	if value == "" {
		return args
	}
	return append(args, flag, value)
}

// appendProperty добавляет MSBuild свойство -p:Name=Value.
func appendProperty(args []string, name, value string) []string {
	if value == "" {
		return args
	}
	return append(args, "-p:"+name+"="+EscapeProperty(value))
}

// propertyEscaper экранирует символы, которые MSBuild трактует как разделители.
var propertyEscaper = strings.NewReplacer(
	"%", "%25",
	";", "%3B",
	",", "%2C",
)

// EscapeProperty экранирует значение MSBuild свойства.
func EscapeProperty(value string) string {
	return propertyEscaper.Replace(value)
}
