package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Dir — директория конфигурации в корне репозитория.
	Dir = ".buildflow"

	// FileName — файл параметров внутри Dir.
	FileName = "parameters.yaml"

	// DefaultArtifactsDir — директория пакетов по умолчанию.
	DefaultArtifactsDir = "artifacts"

	// DefaultTrunkBranch — основная ветка по умолчанию.
	DefaultTrunkBranch = "main"
)

// ErrInvalidConfig — файл конфигурации не прошёл проверку.
var ErrInvalidConfig = errors.New("invalid config")

// ProjectConfig — раскладка .NET решения.
type ProjectConfig struct {
	// Solution — файл решения (.sln) для restore.
	Solution string `yaml:"solution"`

	// Library — файл проекта библиотеки (.csproj).
	Library string `yaml:"library"`

	// Tests — файл проекта тестов (.csproj).
	Tests string `yaml:"tests"`

	// Artifacts — директория для .nupkg.
	Artifacts string `yaml:"artifacts"`

	// TrunkBranch — ветка, с которой выпускаются публичные релизы.
	TrunkBranch string `yaml:"trunk_branch"`

	// Frameworks — target frameworks; пусто — читаются из .csproj.
	Frameworks []string `yaml:"frameworks,omitempty"`
}

// PackageConfig — метаданные NuGet пакета.
type PackageConfig struct {
	ID            string `yaml:"id"`
	Title         string `yaml:"title,omitempty"`
	Description   string `yaml:"description,omitempty"`
	Authors       string `yaml:"authors,omitempty"`
	Copyright     string `yaml:"copyright,omitempty"`
	ProjectURL    string `yaml:"project_url,omitempty"`
	RepositoryURL string `yaml:"repository_url,omitempty"`
	License       string `yaml:"license,omitempty"`
	Tags          string `yaml:"tags,omitempty"`
	Readme        string `yaml:"readme,omitempty"`
	Icon          string `yaml:"icon,omitempty"`
}

// File — содержимое .buildflow/parameters.yaml.
type File struct {
	Version    int               `yaml:"version"`
	Project    ProjectConfig     `yaml:"project"`
	Package    PackageConfig     `yaml:"package"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

// Config — конфигурация сборки.
type Config struct {
	// RootDir — корень репозитория (абсолютный путь).
	RootDir string

	File
}

// Load читает конфигурацию из rootDir/.buildflow/parameters.yaml.
// Отсутствующий файл не ошибка: используются значения по умолчанию.
func Load(rootDir string) (*Config, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve root: %w", err)
	}

	cfg := &Config{RootDir: root, File: defaultFile()}

	path := cfg.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.File = *parsed
	return cfg, nil
}

// Parse разбирает содержимое файла параметров и применяет значения по умолчанию.
func Parse(data []byte) (*File, error) {
	f := defaultFile()
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	f.applyDefaults()
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Path возвращает путь к файлу параметров.
func (c *Config) Path() string {
	return filepath.Join(c.RootDir, Dir, FileName)
}

// Abs возвращает путь относительно корня репозитория.
// Пустой путь остаётся пустым.
func (c *Config) Abs(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.RootDir, path)
}

// ArtifactsDir возвращает абсолютный путь к директории пакетов.
func (c *Config) ArtifactsDir() string {
	return c.Abs(c.Project.Artifacts)
}

func defaultFile() File {
	return File{
		Version: 1,
		Project: ProjectConfig{
			Artifacts:   DefaultArtifactsDir,
			TrunkBranch: DefaultTrunkBranch,
		},
	}
}

func (f *File) applyDefaults() {
	if f.Version == 0 {
		f.Version = 1
	}
	f.Project.Artifacts = strings.TrimSpace(f.Project.Artifacts)
	if f.Project.Artifacts == "" {
		f.Project.Artifacts = DefaultArtifactsDir
	}
	f.Project.TrunkBranch = strings.TrimSpace(f.Project.TrunkBranch)
	if f.Project.TrunkBranch == "" {
		f.Project.TrunkBranch = DefaultTrunkBranch
	}
	if f.Package.Title == "" {
		f.Package.Title = f.Package.ID
	}
}

func (f *File) validate() error {
	if f.Version != 1 {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidConfig, f.Version)
	}
	if filepath.IsAbs(f.Project.Artifacts) {
		return fmt.Errorf("%w: project.artifacts must be relative to the repository root", ErrInvalidConfig)
	}
	for _, fw := range f.Project.Frameworks {
		if strings.TrimSpace(fw) == "" {
			return fmt.Errorf("%w: project.frameworks contains an empty entry", ErrInvalidConfig)
		}
	}
	return nil
}
