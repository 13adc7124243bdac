package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/shaiso/buildflow/internal/telemetry"
)

// ErrCommandFailed — внешняя команда завершилась с ненулевым кодом.
var ErrCommandFailed = errors.New("command failed")

// ExitError — ошибка завершения внешней команды.
type ExitError struct {
	Command  string // команда с замаскированными секретами
	ExitCode int
	Err      error
}

// Error реализует интерфейс error.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit code %d", e.Command, e.ExitCode)
}

// Unwrap возвращает ErrCommandFailed и исходную ошибку.
func (e *ExitError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCommandFailed}
	}
	return []error{ErrCommandFailed, e.Err}
}

// secretFlags — флаги, значение которых не выводится в логи.
var secretFlags = map[string]bool{
	"--api-key": true,
	"-k":        true,
}

// Command — вызов внешней программы.
type Command struct {
	// Name — исполняемый файл ("dotnet").
	Name string

	// Args — аргументы.
	Args []string

	// Dir — рабочая директория (пусто — текущая).
	Dir string

	// Quiet — не выводить stdout в лог (вывод только захватывается).
	Quiet bool
}

// String возвращает командную строку с замаскированными секретами.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for i, arg := range c.Args {
		if i > 0 && secretFlags[c.Args[i-1]] {
			arg = "***"
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Runner запускает внешние команды.
//
// Run возвращает захваченный stdout. Ненулевой код возврата —
// ошибка, для которой errors.Is(err, ErrCommandFailed) == true.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner — Runner поверх os/exec.
//
// Вывод команды построчно пишется в логгер из контекста:
// stdout — INFO, stderr — WARN.
type ExecRunner struct{}

// NewExecRunner создаёт ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run реализует Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) ([]byte, error) {
	logger := telemetry.FromContext(ctx).With("tool", cmd.Name)
	logger.Info("exec", "command", cmd.String())

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	var stdout bytes.Buffer
	stdoutLog := newLineLogger(logger, slog.LevelInfo)
	stderrLog := newLineLogger(logger, slog.LevelWarn)
	defer stdoutLog.Close()
	defer stderrLog.Close()

	if cmd.Quiet {
		c.Stdout = &stdout
	} else {
		c.Stdout = io.MultiWriter(&stdout, stdoutLog)
	}
	c.Stderr = stderrLog

	err := c.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), &ExitError{Command: cmd.String(), ExitCode: exitErr.ExitCode()}
	}
	return stdout.Bytes(), &ExitError{Command: cmd.String(), ExitCode: -1, Err: err}
}

// lineLogger пишет вывод процесса в slog построчно.
type lineLogger struct {
	mu     sync.Mutex
	logger *slog.Logger
	level  slog.Level
	buf    []byte
}

func newLineLogger(logger *slog.Logger, level slog.Level) *lineLogger {
	return &lineLogger{logger: logger, level: level}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		l.emit(l.buf[:i])
		l.buf = l.buf[i+1:]
	}
	return len(p), nil
}

// Close сбрасывает незавершённую строку.
func (l *lineLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.buf) > 0 {
		l.emit(l.buf)
		l.buf = nil
	}
	return nil
}

func (l *lineLogger) emit(line []byte) {
	text := strings.TrimRight(string(line), "\r")
	if strings.TrimSpace(text) == "" {
		return
	}
	l.logger.Log(context.Background(), l.level, text)
}
