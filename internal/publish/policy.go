package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shaiso/buildflow/internal/domain"
	"github.com/shaiso/buildflow/internal/telemetry"
)

// SymbolsSuffix — окончание имени пакета с отладочными символами.
// Такие пакеты никогда не публикуются.
const SymbolsSuffix = "symbols.nupkg"

// DefaultTrunkBranch — основная ветка по умолчанию.
const DefaultTrunkBranch = "main"

// Ошибки публикации.
var (
	// ErrNoArtifacts — нечего публиковать.
	ErrNoArtifacts = errors.New("no artifacts to publish")

	// ErrMissingDestination — у назначения не задан URL или API-ключ.
	ErrMissingDestination = errors.New("destination not configured")
)

// Destination — NuGet feed для публикации.
type Destination struct {
	// Name — имя назначения для логов ("primary", "nuget.org").
	Name string

	// URL — адрес feed.
	URL string

	// APIKey — ключ публикации. Не логируется.
	APIKey string
}

// Configured возвращает true, если заданы URL и ключ.
func (d Destination) Configured() bool {
	return strings.TrimSpace(d.URL) != "" && strings.TrimSpace(d.APIKey) != ""
}

// Pusher публикует один пакет в одно назначение.
type Pusher interface {
	Push(ctx context.Context, artifact string, dest Destination) error
}

// Policy — правила условной публикации.
//
// На основной ветке без pre-release метки пакеты публикуются сначала
// во вторичный публичный feed (Secondary), затем в основной (Primary).
// Во всех остальных случаях — только в Primary.
type Policy struct {
	// TrunkBranch — основная ветка; пусто — DefaultTrunkBranch.
	TrunkBranch string

	// Primary — основной feed, публикация всегда.
	Primary Destination

	// Secondary — публичный feed (nuget.org), только для релизов с trunk.
	Secondary Destination
}

// Pass — один проход публикации: назначение и пакеты.
type Pass struct {
	Destination Destination
	Artifacts   []string
}

// IsTrunk сравнивает ветку с основной без учёта регистра.
func IsTrunk(branch, trunk string) bool {
	if trunk == "" {
		trunk = DefaultTrunkBranch
	}
	return strings.EqualFold(strings.TrimSpace(branch), trunk)
}

// IsPublicRelease возвращает true для версии с основной ветки без pre-release метки.
func (p Policy) IsPublicRelease(v *domain.Version) bool {
	if v == nil {
		return false
	}
	return IsTrunk(v.BranchName, p.TrunkBranch) && strings.TrimSpace(v.PreReleaseLabel) == ""
}

// FilterSymbols убирает пакеты с отладочными символами, сохраняя порядок.
func FilterSymbols(artifacts []string) []string {
	out := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		if strings.HasSuffix(a, SymbolsSuffix) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Plan вычисляет проходы публикации.
//
// Пустой список пакетов — ErrNoArtifacts (проверяется до фильтрации символов).
func (p Policy) Plan(artifacts []string, v *domain.Version) ([]Pass, error) {
	if len(artifacts) == 0 {
		return nil, ErrNoArtifacts
	}

	packages := FilterSymbols(artifacts)
	passes := make([]Pass, 0, 2)

	if p.IsPublicRelease(v) {
		if !p.Secondary.Configured() {
			return nil, fmt.Errorf("%w: %s", ErrMissingDestination, p.Secondary.Name)
		}
		passes = append(passes, Pass{Destination: p.Secondary, Artifacts: packages})
	}

	if !p.Primary.Configured() {
		return nil, fmt.Errorf("%w: %s", ErrMissingDestination, p.Primary.Name)
	}
	passes = append(passes, Pass{Destination: p.Primary, Artifacts: packages})

	return passes, nil
}

// Result — итог публикации.
type Result struct {
	Passes []Pass
	Pushed int
}

// Publish выполняет проходы публикации по порядку.
// Первая ошибка Pusher останавливает публикацию.
func (p Policy) Publish(ctx context.Context, pusher Pusher, artifacts []string, v *domain.Version) (*Result, error) {
	passes, err := p.Plan(artifacts, v)
	if err != nil {
		return nil, err
	}

	logger := telemetry.FromContext(ctx)
	result := &Result{Passes: passes}

	for _, pass := range passes {
		logger.Info("publishing packages",
			"destination", pass.Destination.Name,
			"url", pass.Destination.URL,
			"count", len(pass.Artifacts),
		)
		for _, artifact := range pass.Artifacts {
			if err := pusher.Push(ctx, artifact, pass.Destination); err != nil {
				return result, fmt.Errorf("push %s to %s: %w", filepath.Base(artifact), pass.Destination.Name, err)
			}
			result.Pushed++
		}
	}

	return result, nil
}
