package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/buildflow/internal/config"
	"github.com/shaiso/buildflow/internal/domain"
	"github.com/shaiso/buildflow/internal/mq"
	"github.com/shaiso/buildflow/internal/orchestrator"
	"github.com/shaiso/buildflow/internal/repo"
	"github.com/shaiso/buildflow/internal/toolchain"
	"github.com/shaiso/buildflow/internal/versioning"
)

const parametersYAML = `version: 1
project:
  solution: src/Lib.sln
  library: src/Lib/Lib.csproj
  tests: src/Lib.Tests/Lib.Tests.csproj
  frameworks: [net8.0]
package:
  id: Lib
  authors: Team
parameters:
  nuget-api-url: https://feed.example.com/v3/index.json
`

// fakeToolchain записывает вызовы и создаёт пакет при Pack.
type fakeToolchain struct {
	calls  []string
	pushes []toolchain.PushOptions
}

func (f *fakeToolchain) Restore(ctx context.Context, opts toolchain.RestoreOptions) error {
	f.calls = append(f.calls, "restore")
	return nil
}

func (f *fakeToolchain) Publish(ctx context.Context, opts toolchain.PublishOptions) error {
	f.calls = append(f.calls, "publish "+opts.Framework)
	return nil
}

func (f *fakeToolchain) Test(ctx context.Context, opts toolchain.TestOptions) error {
	f.calls = append(f.calls, "test")
	return nil
}

func (f *fakeToolchain) Pack(ctx context.Context, opts toolchain.PackOptions) error {
	f.calls = append(f.calls, "pack")
	return os.WriteFile(filepath.Join(opts.OutputDir, "Lib."+opts.Version+".nupkg"), []byte("pkg"), 0o644)
}

func (f *fakeToolchain) Push(ctx context.Context, opts toolchain.PushOptions) error {
	f.calls = append(f.calls, "push "+opts.Source)
	f.pushes = append(f.pushes, opts)
	return nil
}

// memoryRuns и memoryTasks — журнал в памяти.
type memoryRuns struct {
	runs map[uuid.UUID]domain.Run
}

func (m *memoryRuns) Create(ctx context.Context, run *domain.Run) error {
	m.runs[run.ID] = *run
	return nil
}

func (m *memoryRuns) Update(ctx context.Context, run *domain.Run) error {
	m.runs[run.ID] = *run
	return nil
}

func (m *memoryRuns) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	run.Tasks = nil
	return &run, nil
}

func (m *memoryRuns) List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error) {
	var out []domain.Run
	for _, r := range m.runs {
		if filter.Target != "" && !strings.EqualFold(r.Target, filter.Target) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type memoryTasks struct {
	tasks map[uuid.UUID][]*domain.TaskRecord
}

func (m *memoryTasks) Save(ctx context.Context, task *domain.TaskRecord) error {
	copied := *task
	m.tasks[task.RunID] = append(m.tasks[task.RunID], &copied)
	return nil
}

func (m *memoryTasks) ListByRunID(ctx context.Context, runID uuid.UUID) ([]*domain.TaskRecord, error) {
	return m.tasks[runID], nil
}

type testApp struct {
	app    *App
	root   string
	tools  *fakeToolchain
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	runs   *memoryRuns
}

func newTestApp(t *testing.T, env map[string]string, withJournal bool) *testApp {
	t.Helper()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, config.Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, config.Dir, config.FileName), []byte(parametersYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	static, err := versioning.NewStatic("1.4.0", "main")
	if err != nil {
		t.Fatal(err)
	}

	ta := &testApp{
		root:   root,
		tools:  &fakeToolchain{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ta.app = &App{
		RootDir: root,
		Stdout:  ta.stdout,
		Stderr:  ta.stderr,
		Env: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
		Logger:    logger,
		Toolchain: ta.tools,
		Versioner: static,
	}

	if withJournal {
		ta.runs = &memoryRuns{runs: make(map[uuid.UUID]domain.Run)}
		tasks := &memoryTasks{tasks: make(map[uuid.UUID][]*domain.TaskRecord)}
		ta.app.OpenJournal = func(ctx context.Context) (*repo.Journal, func(), error) {
			return repo.NewJournal(ta.runs, tasks, logger), func() {}, nil
		}
	}

	return ta
}

func (ta *testApp) execute(args ...string) error {
	root := NewRootCmd(ta.app, "test")
	root.SetArgs(append(args, "--root", ta.root))
	return root.Execute()
}

func TestRootCmd_KeepsAppDefaults(t *testing.T) {
	ta := newTestApp(t, nil, false)

	cmd := NewRootCmd(ta.app, "test")
	if ta.app.RootDir != ta.root {
		t.Fatalf("defining flags should not reset RootDir, got %q", ta.app.RootDir)
	}

	cmd.SetArgs([]string{"targets"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ta.app.RootDir != ta.root {
		t.Errorf("RootDir without --root should stay %q, got %q", ta.root, ta.app.RootDir)
	}
	if !strings.Contains(ta.stdout.String(), "Push") {
		t.Errorf("targets should be listed, got:\n%s", ta.stdout.String())
	}
}

func TestRootCmd_RootFlagOverridesApp(t *testing.T) {
	ta := newTestApp(t, nil, false)
	other := t.TempDir()

	cmd := NewRootCmd(ta.app, "test")
	cmd.SetArgs([]string{"targets", "--root", other})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ta.app.RootDir != other {
		t.Errorf("expected RootDir %q from --root, got %q", other, ta.app.RootDir)
	}
}

func TestRun_LocalBuildSkipsPush(t *testing.T) {
	ta := newTestApp(t, nil, false)

	if err := ta.execute("run"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "restore,publish net8.0,publish net8.0,test,pack"
	if got := strings.Join(ta.tools.calls, ","); got != want {
		t.Errorf("expected calls %q, got %q", want, got)
	}

	out := ta.stdout.String()
	if !strings.Contains(out, "Push") || !strings.Contains(out, "SKIPPED") {
		t.Errorf("summary should show skipped Push, got:\n%s", out)
	}
	if !strings.Contains(out, "SUCCEEDED in") {
		t.Errorf("summary should show run status, got:\n%s", out)
	}
}

func TestRun_ServerBuildPushesFromEnv(t *testing.T) {
	ta := newTestApp(t, map[string]string{
		"TF_BUILD":          "True",
		"NUGET_API_KEY":     "feed-key",
		"NUGET_ORG_API_KEY": "org-key",
	}, false)

	if err := ta.execute("run", "push"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ta.tools.pushes) != 2 {
		t.Fatalf("trunk release should be pushed to both feeds, got %+v", ta.tools.pushes)
	}
	if ta.tools.pushes[1].Source != "https://feed.example.com/v3/index.json" || ta.tools.pushes[1].APIKey != "feed-key" {
		t.Errorf("unexpected primary push %+v", ta.tools.pushes[1])
	}
}

func TestRun_MissingParameterFails(t *testing.T) {
	ta := newTestApp(t, map[string]string{"CI": "true"}, false)

	err := ta.execute("run", "Push")
	if !errors.Is(err, orchestrator.ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}
	if err.Error() != "task Push: missing required parameter nuget-api-key" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if len(ta.tools.calls) != 0 {
		t.Errorf("no toolchain command should run, got %v", ta.tools.calls)
	}
}

func TestRun_FlagOverridesFile(t *testing.T) {
	ta := newTestApp(t, map[string]string{"CI": "true"}, false)

	err := ta.execute("run", "Push",
		"--nuget-api-key", "k",
		"--nuget-api-url", "https://other.example.com/index.json",
		"--version-override", "2.0.0-beta.1",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ta.tools.pushes) != 1 {
		t.Fatalf("pre-release should be pushed once, got %+v", ta.tools.pushes)
	}
	if ta.tools.pushes[0].Source != "https://other.example.com/index.json" {
		t.Errorf("flag should override file value, got %q", ta.tools.pushes[0].Source)
	}
}

func TestRun_ParamAssignment(t *testing.T) {
	ta := newTestApp(t, nil, false)

	err := ta.execute("run", "Print", "--param", "release-notes=Fixed things")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ta.tools.calls) != 0 {
		t.Errorf("Print should not call the toolchain, got %v", ta.tools.calls)
	}
}

func TestRun_UnknownParameter(t *testing.T) {
	ta := newTestApp(t, nil, false)

	err := ta.execute("run", "--param", "no-such=1")
	if !errors.Is(err, config.ErrUnknownParameter) {
		t.Fatalf("expected ErrUnknownParameter, got %v", err)
	}
}

func TestRun_UnknownTarget(t *testing.T) {
	ta := newTestApp(t, nil, false)

	err := ta.execute("run", "Deploy")
	if !errors.Is(err, orchestrator.ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget, got %v", err)
	}
	if len(ta.tools.calls) != 0 {
		t.Error("no task should run")
	}
}

func TestRun_DryRun(t *testing.T) {
	ta := newTestApp(t, nil, false)

	if err := ta.execute("run", "pack", "--dry-run", "--json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ta.tools.calls) != 0 {
		t.Errorf("dry run should not call the toolchain, got %v", ta.tools.calls)
	}

	var plan []orchestrator.PlanEntry
	if err := json.Unmarshal(ta.stdout.Bytes(), &plan); err != nil {
		t.Fatalf("output should be JSON: %v\n%s", err, ta.stdout.String())
	}
	var names []string
	for _, e := range plan {
		names = append(names, e.Name)
	}
	if got := strings.Join(names, ","); got != "Print,Clean,Restore,Compile,Test,Pack" {
		t.Errorf("unexpected plan %s", got)
	}
}

func TestRun_JournalRecordsRun(t *testing.T) {
	ta := newTestApp(t, nil, true)

	if err := ta.execute("run", "Test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ta.runs.runs) != 1 {
		t.Fatalf("expected one journaled run, got %d", len(ta.runs.runs))
	}

	var id uuid.UUID
	for k, r := range ta.runs.runs {
		id = k
		if r.Status != domain.RunStatusSucceeded {
			t.Errorf("expected SUCCEEDED, got %s", r.Status)
		}
	}

	ta.stdout.Reset()
	if err := ta.execute("history"); err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(ta.stdout.String(), id.String()) {
		t.Errorf("history should list run %s, got:\n%s", id, ta.stdout.String())
	}

	ta.stdout.Reset()
	if err := ta.execute("history", "show", id.String()); err != nil {
		t.Fatalf("history show: %v", err)
	}
	out := ta.stdout.String()
	for _, task := range []string{"Print", "Clean", "Restore", "Compile", "Test"} {
		if !strings.Contains(out, task) {
			t.Errorf("history show should list task %s, got:\n%s", task, out)
		}
	}
}

func TestHistory_Disabled(t *testing.T) {
	ta := newTestApp(t, nil, false)

	err := ta.execute("history")
	if !errors.Is(err, ErrJournalDisabled) {
		t.Fatalf("expected ErrJournalDisabled, got %v", err)
	}
}

func TestHistory_InvalidRunID(t *testing.T) {
	ta := newTestApp(t, nil, true)

	if err := ta.execute("history", "show", "not-a-uuid"); err == nil {
		t.Fatal("expected error for invalid run id")
	}
}

func TestWatch_Disabled(t *testing.T) {
	ta := newTestApp(t, nil, false)

	err := ta.execute("watch")
	if !errors.Is(err, ErrEventsDisabled) {
		t.Fatalf("expected ErrEventsDisabled, got %v", err)
	}
}

func TestTargets_HidesClean(t *testing.T) {
	ta := newTestApp(t, nil, false)

	if err := ta.execute("targets"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := ta.stdout.String()
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Clean") {
			t.Errorf("Clean should not be listed, got:\n%s", out)
		}
	}
	if !strings.Contains(out, "Push (default)") {
		t.Errorf("Push should be marked as default, got:\n%s", out)
	}
}

func TestGraph(t *testing.T) {
	ta := newTestApp(t, nil, false)

	if err := ta.execute("graph", "compile"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(ta.stdout.String()), "\n")
	// заголовок, разделитель, Print, Clean, Restore, Compile
	if len(lines) != 6 {
		t.Fatalf("expected 4 plan rows, got:\n%s", ta.stdout.String())
	}
	if !strings.Contains(lines[5], "Compile") {
		t.Errorf("Compile should be last, got %q", lines[5])
	}
}

func TestFormatEvent(t *testing.T) {
	msg, err := mq.Decode(mustJSON(t, mq.NewMessage(mq.MessageTypeTaskFinished, mq.TaskPayload{
		RunID:      uuid.New(),
		Task:       "Push",
		Status:     string(domain.TaskStatusSkipped),
		SkipReason: "guard returned false",
	})))
	if err != nil {
		t.Fatal(err)
	}

	line, status, err := formatEvent(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != "SKIPPED" {
		t.Errorf("expected SKIPPED, got %s", status)
	}
	if !strings.Contains(line, "task=Push") || !strings.Contains(line, `note="guard returned false"`) {
		t.Errorf("unexpected line %q", line)
	}
}

func TestFormatEvent_RunFinished(t *testing.T) {
	msg, err := mq.Decode(mustJSON(t, mq.NewMessage(mq.MessageTypeRunFinished, mq.RunPayload{
		RunID:      uuid.New(),
		Target:     "Push",
		Status:     string(domain.RunStatusFailed),
		FailedTask: "Test",
		DurationMs: 1500,
	})))
	if err != nil {
		t.Fatal(err)
	}

	line, status, err := formatEvent(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != "FAILED" || !strings.Contains(line, "failed_task=Test") || !strings.Contains(line, "duration=1.5s") {
		t.Errorf("unexpected line %q (status %s)", line, status)
	}
}

func TestFormatEvent_UnknownType(t *testing.T) {
	_, _, err := formatEvent(&mq.Message{Type: "flow.created", Timestamp: time.Now()})
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "-"},
		{1234 * time.Microsecond, "1ms"},
		{1540 * time.Millisecond, "1.5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
