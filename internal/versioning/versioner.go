package versioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shaiso/buildflow/internal/domain"
	"github.com/shaiso/buildflow/internal/toolchain"
)

// ErrInvalidVersion — versioner вернул версию без обязательных полей.
var ErrInvalidVersion = errors.New("invalid version output")

// Versioner вычисляет версию сборки.
type Versioner interface {
	Version(ctx context.Context) (*domain.Version, error)
}

// GitVersion — Versioner поверх dotnet-gitversion.
type GitVersion struct {
	runner  toolchain.Runner
	binary  string
	dir     string
	noFetch bool
}

// GitVersionConfig — конфигурация GitVersion.
type GitVersionConfig struct {
	// Binary — исполняемый файл (пусто — "dotnet-gitversion").
	Binary string

	// Dir — корень репозитория.
	Dir string

	// NoFetch — не обращаться к remote.
	NoFetch bool
}

// NewGitVersion создаёт GitVersion.
func NewGitVersion(runner toolchain.Runner, cfg GitVersionConfig) *GitVersion {
	binary := cfg.Binary
	if binary == "" {
		binary = "dotnet-gitversion"
	}
	return &GitVersion{
		runner:  runner,
		binary:  binary,
		dir:     cfg.Dir,
		noFetch: cfg.NoFetch,
	}
}

// Version запускает dotnet-gitversion и разбирает его JSON вывод.
func (g *GitVersion) Version(ctx context.Context) (*domain.Version, error) {
	args := []string{"/output", "json"}
	if g.noFetch {
		args = append(args, "/nofetch")
	}

	out, err := g.runner.Run(ctx, toolchain.Command{
		Name:  g.binary,
		Args:  args,
		Dir:   g.dir,
		Quiet: true,
	})
	if err != nil {
		return nil, fmt.Errorf("run gitversion: %w", err)
	}

	return Parse(out)
}

// gitVersionOutput — переменные GitVersion, используемые сборкой.
//
// NuGetVersionV2 присутствует в старых версиях GitVersion;
// в новых его нет, и NuGet версия совпадает с SemVer.
type gitVersionOutput struct {
	MajorMinorPatch      string `json:"MajorMinorPatch"`
	SemVer               string `json:"SemVer"`
	NuGetVersionV2       string `json:"NuGetVersionV2"`
	NuGetVersion         string `json:"NuGetVersion"`
	AssemblySemFileVer   string `json:"AssemblySemFileVer"`
	InformationalVersion string `json:"InformationalVersion"`
	PreReleaseLabel      string `json:"PreReleaseLabel"`
	PreReleaseTag        string `json:"PreReleaseTag"`
	BranchName           string `json:"BranchName"`
	Sha                  string `json:"Sha"`
}

// Parse разбирает JSON вывод GitVersion.
//
// Перед JSON допускается произвольный текст (предупреждения GitVersion).
func Parse(out []byte) (*domain.Version, error) {
	start := strings.IndexByte(string(out), '{')
	if start < 0 {
		return nil, fmt.Errorf("%w: no JSON object in output", ErrInvalidVersion)
	}

	var raw gitVersionOutput
	if err := json.Unmarshal(out[start:], &raw); err != nil {
		return nil, fmt.Errorf("decode gitversion output: %w", err)
	}

	v := &domain.Version{
		MajorMinorPatch:      raw.MajorMinorPatch,
		SemVer:               raw.SemVer,
		NuGetVersion:         firstNonEmpty(raw.NuGetVersionV2, raw.NuGetVersion, raw.SemVer),
		AssemblySemFileVer:   raw.AssemblySemFileVer,
		InformationalVersion: raw.InformationalVersion,
		PreReleaseLabel:      firstNonEmpty(raw.PreReleaseLabel, preReleaseLabel(raw.PreReleaseTag)),
		BranchName:           raw.BranchName,
		Sha:                  raw.Sha,
	}

	if err := Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate проверяет обязательные поля версии.
func Validate(v *domain.Version) error {
	if v == nil {
		return fmt.Errorf("%w: nil version", ErrInvalidVersion)
	}
	if v.MajorMinorPatch == "" {
		return fmt.Errorf("%w: MajorMinorPatch is empty", ErrInvalidVersion)
	}
	if v.NuGetVersion == "" {
		return fmt.Errorf("%w: NuGetVersion is empty", ErrInvalidVersion)
	}
	return nil
}

// preReleaseLabel извлекает метку из тега "beta.3" → "beta".
func preReleaseLabel(tag string) string {
	label, _, _ := strings.Cut(tag, ".")
	return label
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Static — Versioner с фиксированной версией.
type Static struct {
	v domain.Version
}

// NewStatic создаёт Static из строки версии вида "1.2.3" или "1.2.3-beta.1".
func NewStatic(version, branch string) (*Static, error) {
	version = strings.TrimSpace(version)
	core, pre, _ := strings.Cut(version, "-")

	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q is not MAJOR.MINOR.PATCH", ErrInvalidVersion, version)
	}
	for _, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return nil, fmt.Errorf("%w: %q is not MAJOR.MINOR.PATCH", ErrInvalidVersion, version)
		}
	}

	return &Static{v: domain.Version{
		MajorMinorPatch:      core,
		SemVer:               version,
		NuGetVersion:         version,
		AssemblySemFileVer:   core + ".0",
		InformationalVersion: version,
		PreReleaseLabel:      preReleaseLabel(pre),
		BranchName:           branch,
	}}, nil
}

// Version реализует Versioner.
func (s *Static) Version(ctx context.Context) (*domain.Version, error) {
	v := s.v
	return &v, nil
}
