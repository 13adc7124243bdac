package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shaiso/buildflow/internal/domain"
)

// ErrUnknownParameter — параметр не объявлен пайплайном.
var ErrUnknownParameter = errors.New("unknown parameter")

// ParamDecl — объявление параметра сборки.
type ParamDecl struct {
	// Name — имя в kebab-case ("nuget-api-key").
	Name string

	// Description — текст для --help.
	Description string

	// Default — значение по умолчанию.
	Default string

	// Secret — значение маскируется в логах и журнале.
	Secret bool

	// Bool — флаг без значения (--ignore-failed-sources).
	Bool bool
}

// EnvName возвращает имя переменной окружения для параметра:
// nuget-api-key → NUGET_API_KEY.
func EnvName(param string) string {
	return strings.ToUpper(strings.ReplaceAll(domain.NormalizeParamName(param), "-", "_"))
}

// LookupEnv — источник переменных окружения.
type LookupEnv func(key string) (string, bool)

// Sources — источники значений параметров по возрастанию приоритета
// (после значений по умолчанию).
type Sources struct {
	// File — параметры из .buildflow/parameters.yaml.
	File map[string]string

	// Env — переменные окружения (nil — os.LookupEnv).
	Env LookupEnv

	// Flags — значения из командной строки.
	Flags map[string]string
}

// Resolve собирает параметры запуска.
//
// Приоритет: флаги > окружение > файл > значение по умолчанию.
// Имена из файла и флагов, не объявленные в decls, — ErrUnknownParameter.
func Resolve(decls []ParamDecl, src Sources) (domain.Params, error) {
	env := src.Env
	if env == nil {
		env = os.LookupEnv
	}

	declared := make(map[string]ParamDecl, len(decls))
	for _, d := range decls {
		declared[domain.NormalizeParamName(d.Name)] = d
	}

	if err := checkDeclared(declared, src.File, "parameters file"); err != nil {
		return domain.Params{}, err
	}
	if err := checkDeclared(declared, src.Flags, "command line"); err != nil {
		return domain.Params{}, err
	}

	file := normalize(src.File)
	flags := normalize(src.Flags)

	values := make(map[string]string, len(decls))
	var secrets []string

	for name, d := range declared {
		if d.Secret {
			secrets = append(secrets, name)
		}

		value, ok := d.Default, d.Default != ""
		if v, found := file[name]; found {
			value, ok = v, true
		}
		if v, found := env(EnvName(name)); found {
			value, ok = v, true
		}
		if v, found := flags[name]; found {
			value, ok = v, true
		}

		if ok {
			values[name] = value
		}
	}

	return domain.NewParams(values, secrets...), nil
}

// ParseAssignment разбирает "key=value" из --param.
func ParseAssignment(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = domain.NormalizeParamName(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid parameter %q: expected key=value", s)
	}
	return key, value, nil
}

func checkDeclared(declared map[string]ParamDecl, values map[string]string, source string) error {
	var unknown []string
	for k := range values {
		if _, ok := declared[domain.NormalizeParamName(k)]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%w in %s: %s", ErrUnknownParameter, source, strings.Join(unknown, ", "))
}

func normalize(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[domain.NormalizeParamName(k)] = v
	}
	return out
}
