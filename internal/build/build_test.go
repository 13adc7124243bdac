package build

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaiso/buildflow/internal/config"
	"github.com/shaiso/buildflow/internal/domain"
	"github.com/shaiso/buildflow/internal/orchestrator"
	"github.com/shaiso/buildflow/internal/publish"
	"github.com/shaiso/buildflow/internal/toolchain"
	"github.com/shaiso/buildflow/internal/versioning"
)

// fakeToolchain записывает вызовы и создаёт пакеты при Pack.
type fakeToolchain struct {
	calls    []string
	pushes   []toolchain.PushOptions
	packs    []toolchain.PackOptions
	packages []string
	failTest bool
}

func (f *fakeToolchain) Restore(ctx context.Context, opts toolchain.RestoreOptions) error {
	f.calls = append(f.calls, "restore")
	return nil
}

func (f *fakeToolchain) Publish(ctx context.Context, opts toolchain.PublishOptions) error {
	f.calls = append(f.calls, "publish "+filepath.Base(opts.Project)+" "+opts.Framework)
	return nil
}

func (f *fakeToolchain) Test(ctx context.Context, opts toolchain.TestOptions) error {
	f.calls = append(f.calls, "test")
	if f.failTest {
		return &toolchain.ExitError{Command: "dotnet test", ExitCode: 1}
	}
	return nil
}

func (f *fakeToolchain) Pack(ctx context.Context, opts toolchain.PackOptions) error {
	f.calls = append(f.calls, "pack")
	f.packs = append(f.packs, opts)
	for _, name := range f.packages {
		if err := os.WriteFile(filepath.Join(opts.OutputDir, name), []byte("pkg"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeToolchain) Push(ctx context.Context, opts toolchain.PushOptions) error {
	f.calls = append(f.calls, "push "+filepath.Base(opts.Package)+" "+opts.Source)
	f.pushes = append(f.pushes, opts)
	return nil
}

type fixture struct {
	root  string
	cfg   *config.Config
	tools *fakeToolchain
	orch  *orchestrator.Orchestrator
}

func newFixture(t *testing.T, version, branch string) *fixture {
	t.Helper()

	root := t.TempDir()
	for _, dir := range []string{
		"src/Lib/bin/Debug",
		"src/Lib/obj",
		"src/Lib/Rules/obj",
		"src/Lib.Tests/bin",
		"artifacts/old",
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &config.Config{
		RootDir: root,
		File: config.File{
			Version: 1,
			Project: config.ProjectConfig{
				Solution:    "src/Lib.sln",
				Library:     "src/Lib/Lib.csproj",
				Tests:       "src/Lib.Tests/Lib.Tests.csproj",
				Artifacts:   "artifacts",
				TrunkBranch: "main",
				Frameworks:  []string{"net6.0", "net8.0"},
			},
			Package: config.PackageConfig{ID: "Lib", Title: "Lib", Authors: "Team"},
		},
	}

	static, err := versioning.NewStatic(version, branch)
	if err != nil {
		t.Fatal(err)
	}

	tools := &fakeToolchain{packages: []string{"Lib." + version + ".nupkg", "Lib." + version + ".symbols.nupkg"}}
	pipeline := New(Options{Config: cfg, Toolchain: tools, Versioner: static})

	orch, err := orchestrator.New(orchestrator.Config{
		Tasks:  pipeline.Tasks(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("pipeline should be a valid graph: %v", err)
	}

	return &fixture{root: root, cfg: cfg, tools: tools, orch: orch}
}

func params(t *testing.T, host config.Host, flags map[string]string) domain.Params {
	t.Helper()
	p, err := config.Resolve(Parameters(host), config.Sources{
		Env:   func(string) (string, bool) { return "", false },
		Flags: flags,
	})
	if err != nil {
		t.Fatalf("resolve params: %v", err)
	}
	return p
}

var (
	local  = config.Host{Name: "local"}
	server = config.Host{Name: "ci", Server: true}
)

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestPipeline_Plan(t *testing.T) {
	f := newFixture(t, "1.0.0", "main")

	plan, err := f.orch.Plan(DefaultTarget)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make([]string, len(plan))
	for i, e := range plan {
		got[i] = e.Name
	}
	if strings.Join(got, ",") != "Print,Clean,Restore,Compile,Test,Pack,Push" {
		t.Errorf("unexpected plan %v", got)
	}

	for _, target := range f.orch.Targets() {
		if target.Name == TaskClean {
			t.Error("Clean should be unlisted")
		}
	}
}

func TestPipeline_LocalBuildSkipsPush(t *testing.T) {
	f := newFixture(t, "1.0.0", "main")

	run, err := f.orch.Run(context.Background(), "push", params(t, local, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"restore",
		"publish Lib.csproj net6.0",
		"publish Lib.csproj net8.0",
		"publish Lib.Tests.csproj net6.0",
		"publish Lib.Tests.csproj net8.0",
		"test",
		"pack",
	}
	if strings.Join(f.tools.calls, "|") != strings.Join(want, "|") {
		t.Errorf("unexpected toolchain calls:\n got %v\nwant %v", f.tools.calls, want)
	}

	if run.Count(domain.TaskStatusSkipped) != 1 || run.Tasks[len(run.Tasks)-1].Status != domain.TaskStatusSkipped {
		t.Error("Push should be skipped on a local build")
	}

	for _, dir := range []string{"src/Lib/bin", "src/Lib/obj", "src/Lib/Rules/obj", "src/Lib.Tests/bin", "artifacts/old"} {
		if exists(filepath.Join(f.root, dir)) {
			t.Errorf("%s should be deleted by Clean", dir)
		}
	}
	if !exists(filepath.Join(f.root, "src/Lib/Rules")) {
		t.Error("non-output directories must survive Clean")
	}

	pack := f.tools.packs[0]
	if pack.Version != "1.0.0" || pack.RepositoryBranch != "main" || pack.Configuration != "Debug" {
		t.Errorf("unexpected pack options %+v", pack)
	}
	if pack.OutputDir != filepath.Join(f.root, "artifacts") {
		t.Errorf("unexpected output dir %s", pack.OutputDir)
	}
}

func TestPipeline_TrunkReleasePushesTwice(t *testing.T) {
	f := newFixture(t, "1.0.0", "main")

	_, err := f.orch.Run(context.Background(), "Push", params(t, server, map[string]string{
		ParamNugetAPIURL:    "https://feed",
		ParamNugetAPIKey:    "k1",
		ParamNugetOrgAPIKey: "k2",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.tools.pushes) != 2 {
		t.Fatalf("expected 2 pushes, got %v", f.tools.calls)
	}
	if f.tools.pushes[0].Source != NugetOrgURL || f.tools.pushes[0].APIKey != "k2" {
		t.Errorf("first push should go to nuget.org, got %+v", f.tools.pushes[0])
	}
	if f.tools.pushes[1].Source != "https://feed" || f.tools.pushes[1].APIKey != "k1" {
		t.Errorf("second push should go to primary, got %+v", f.tools.pushes[1])
	}
	for _, p := range f.tools.pushes {
		if strings.HasSuffix(p.Package, publish.SymbolsSuffix) {
			t.Errorf("symbols package pushed: %s", p.Package)
		}
	}
}

func TestPipeline_PreReleasePushesOnce(t *testing.T) {
	f := newFixture(t, "1.1.0-beta.2", "main")

	_, err := f.orch.Run(context.Background(), "Push", params(t, server, map[string]string{
		ParamNugetAPIURL: "https://feed",
		ParamNugetAPIKey: "k1",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.tools.pushes) != 1 || f.tools.pushes[0].Source != "https://feed" {
		t.Errorf("expected single push to primary, got %v", f.tools.calls)
	}
}

func TestPipeline_PushRequiresAPIKey(t *testing.T) {
	f := newFixture(t, "1.0.0", "develop")

	run, err := f.orch.Run(context.Background(), "Push", params(t, server, map[string]string{
		ParamNugetAPIURL: "https://feed",
	}))
	if !errors.Is(err, orchestrator.ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}
	if !strings.Contains(err.Error(), ParamNugetAPIKey) {
		t.Errorf("error should name the parameter: %v", err)
	}
	if run.FailedTask != TaskPush {
		t.Errorf("expected Push to fail, got %q", run.FailedTask)
	}
	if len(f.tools.calls) != 0 {
		t.Errorf("nothing should be built before the missing key is reported, got %v", f.tools.calls)
	}
}

func TestPipeline_PushRequiresRelease(t *testing.T) {
	f := newFixture(t, "1.0.0", "develop")

	_, err := f.orch.Run(context.Background(), "Push", params(t, server, map[string]string{
		ParamConfiguration: "Debug",
		ParamNugetAPIURL:   "https://feed",
		ParamNugetAPIKey:   "k1",
	}))
	if !errors.Is(err, orchestrator.ErrRequirementNotMet) {
		t.Fatalf("expected ErrRequirementNotMet, got %v", err)
	}
}

func TestPipeline_NoArtifacts(t *testing.T) {
	f := newFixture(t, "1.0.0", "develop")
	f.tools.packages = nil

	_, err := f.orch.Run(context.Background(), "Push", params(t, server, map[string]string{
		ParamNugetAPIURL: "https://feed",
		ParamNugetAPIKey: "k1",
	}))
	if !errors.Is(err, publish.ErrNoArtifacts) {
		t.Fatalf("expected ErrNoArtifacts, got %v", err)
	}
	if !errors.Is(err, orchestrator.ErrActionFailed) {
		t.Errorf("expected ErrActionFailed, got %v", err)
	}
	if len(f.tools.pushes) != 0 {
		t.Error("nothing should be pushed")
	}
}

func TestPipeline_TrunkReleaseWithoutPublicKey(t *testing.T) {
	f := newFixture(t, "1.0.0", "main")

	_, err := f.orch.Run(context.Background(), "Push", params(t, server, map[string]string{
		ParamNugetAPIURL: "https://feed",
		ParamNugetAPIKey: "k1",
	}))
	if !errors.Is(err, publish.ErrMissingDestination) {
		t.Fatalf("expected ErrMissingDestination, got %v", err)
	}
	if len(f.tools.pushes) != 0 {
		t.Error("nothing should be pushed")
	}
}

func TestPipeline_ToolFailureStopsRun(t *testing.T) {
	f := newFixture(t, "1.0.0", "main")
	f.tools.failTest = true

	run, err := f.orch.Run(context.Background(), "Pack", params(t, local, nil))
	if !errors.Is(err, toolchain.ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
	if task, _ := orchestrator.FailedTask(err); task != TaskTest {
		t.Errorf("expected Test to fail, got %q", task)
	}
	if run.Status != domain.RunStatusFailed {
		t.Errorf("expected FAILED, got %s", run.Status)
	}
	for _, c := range f.tools.calls {
		if c == "pack" {
			t.Error("Pack must not run after Test failed")
		}
	}
}

func TestPipeline_FrameworksFromProjectFile(t *testing.T) {
	f := newFixture(t, "1.0.0", "main")
	f.cfg.Project.Frameworks = nil

	write := func(rel, fw string) {
		content := "<Project><PropertyGroup><TargetFramework>" + fw + "</TargetFramework></PropertyGroup></Project>"
		if err := os.WriteFile(filepath.Join(f.root, rel), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("src/Lib/Lib.csproj", "netstandard2.0")
	write("src/Lib.Tests/Lib.Tests.csproj", "net8.0")

	if _, err := f.orch.Run(context.Background(), "Compile", params(t, local, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "restore|publish Lib.csproj netstandard2.0|publish Lib.Tests.csproj net8.0"
	if got := strings.Join(f.tools.calls, "|"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestPipeline_VersionComputedOnce(t *testing.T) {
	counter := &countingVersioner{}
	p := New(Options{Versioner: counter})

	for i := 0; i < 3; i++ {
		if _, err := p.Version(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if counter.calls != 1 {
		t.Errorf("expected 1 versioner call, got %d", counter.calls)
	}
}

type countingVersioner struct {
	calls int
}

func (c *countingVersioner) Version(ctx context.Context) (*domain.Version, error) {
	c.calls++
	return &domain.Version{MajorMinorPatch: "1.0.0", NuGetVersion: "1.0.0"}, nil
}

func TestDeleteBuildOutputs(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"bin", "a/obj/x", "a/b/bin", "a/binary", "src"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := DeleteBuildOutputs(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(removed) != 3 {
		t.Errorf("expected 3 removed directories, got %v", removed)
	}
	if !exists(filepath.Join(root, "a/binary")) || !exists(filepath.Join(root, "src")) {
		t.Error("unrelated directories must be kept")
	}

	removed, err = DeleteBuildOutputs(filepath.Join(root, "missing"))
	if err != nil || len(removed) != 0 {
		t.Errorf("missing root should be a no-op, got %v %v", removed, err)
	}
}

func TestEnsureCleanDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")

	if err := EnsureCleanDirectory(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists(dir) {
		t.Fatal("directory should be created")
	}

	if err := os.WriteFile(filepath.Join(dir, "a.nupkg"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureCleanDirectory(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("directory should be empty, got %d entries", len(entries))
	}
}
