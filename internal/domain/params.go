package domain

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RedactedValue — чем заменяются значения секретных параметров в логах и журнале.
const RedactedValue = "[REDACTED]"

// Params — неизменяемый набор параметров запуска.
//
// Имена нормализуются через NormalizeParamName: регистр не учитывается,
// '_' эквивалентно '-'.
type Params struct {
	values  map[string]string
	secrets map[string]bool
}

// NewParams создаёт Params. Map копируется, дальнейшие изменения исходной map не видны.
func NewParams(values map[string]string, secrets ...string) Params {
	p := Params{
		values:  make(map[string]string, len(values)),
		secrets: make(map[string]bool, len(secrets)),
	}
	for k, v := range values {
		p.values[NormalizeParamName(k)] = v
	}
	for _, s := range secrets {
		p.secrets[NormalizeParamName(s)] = true
	}
	return p
}

// NormalizeParamName приводит имя параметра к виду kebab-case в нижнем регистре.
//
//	NUGET_API_KEY → nuget-api-key
//	nuget-api-key → nuget-api-key
func NormalizeParamName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, "-")
	name = strings.ReplaceAll(name, "_", "-")
	return strings.ToLower(name)
}

// Get возвращает значение параметра.
func (p Params) Get(name string) (string, bool) {
	v, ok := p.values[NormalizeParamName(name)]
	return v, ok
}

// Value возвращает значение параметра или пустую строку.
func (p Params) Value(name string) string {
	v, _ := p.Get(name)
	return v
}

// Has возвращает true, если параметр задан и не пустой.
func (p Params) Has(name string) bool {
	v, ok := p.Get(name)
	return ok && strings.TrimSpace(v) != ""
}

// Bool интерпретирует параметр как булев флаг. Нераспознанное значение — false.
func (p Params) Bool(name string) bool {
	v, ok := p.Get(name)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

// IsSecret возвращает true, если параметр помечен как секретный.
func (p Params) IsSecret(name string) bool {
	return p.secrets[NormalizeParamName(name)]
}

// Names возвращает отсортированные имена параметров.
func (p Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Redacted возвращает копию значений с замаскированными секретами.
func (p Params) Redacted() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		if p.secrets[k] && v != "" {
			v = RedactedValue
		}
		out[k] = v
	}
	return out
}

// LogValue реализует slog.LogValuer: секреты никогда не попадают в лог.
func (p Params) LogValue() slog.Value {
	redacted := p.Redacted()
	attrs := make([]slog.Attr, 0, len(redacted))
	for _, name := range p.Names() {
		attrs = append(attrs, slog.String(name, redacted[name]))
	}
	return slog.GroupValue(attrs...)
}

// RunContext — неизменяемый контекст одного запуска пайплайна.
//
// Передаётся в каждый guard, check и action вместо глобального состояния.
type RunContext struct {
	// RunID — идентификатор run.
	RunID uuid.UUID

	// Target — запрошенная задача.
	Target string

	// Params — параметры запуска.
	Params Params

	// StartedAt — время старта run.
	StartedAt time.Time
}

// NewRunContext создаёт контекст запуска.
func NewRunContext(runID uuid.UUID, target string, params Params) *RunContext {
	return &RunContext{
		RunID:     runID,
		Target:    target,
		Params:    params,
		StartedAt: time.Now(),
	}
}
