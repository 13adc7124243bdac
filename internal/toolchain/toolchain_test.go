package toolchain

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaiso/buildflow/internal/telemetry"
)

// fakeRunner запоминает команды вместо запуска.
type fakeRunner struct {
	commands []Command
	err      error
	stdout   []byte
}

func (f *fakeRunner) Run(ctx context.Context, cmd Command) ([]byte, error) {
	f.commands = append(f.commands, cmd)
	return f.stdout, f.err
}

func (f *fakeRunner) last(t *testing.T) Command {
	t.Helper()
	if len(f.commands) == 0 {
		t.Fatal("no commands recorded")
	}
	return f.commands[len(f.commands)-1]
}

func hasArgs(args []string, want ...string) bool {
	joined := "\x00" + strings.Join(args, "\x00") + "\x00"
	return strings.Contains(joined, "\x00"+strings.Join(want, "\x00")+"\x00")
}

func TestDotNet_Restore(t *testing.T) {
	runner := &fakeRunner{}
	d := NewDotNet(runner, "", "/repo")

	if err := d.Restore(context.Background(), RestoreOptions{Project: "Lib.sln", IgnoreFailedSources: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cmd := runner.last(t)
	if cmd.Name != "dotnet" || cmd.Dir != "/repo" {
		t.Errorf("unexpected command %s in %s", cmd.Name, cmd.Dir)
	}
	if !hasArgs(cmd.Args, "restore", "Lib.sln", "--ignore-failed-sources") {
		t.Errorf("unexpected args %v", cmd.Args)
	}

	_ = d.Restore(context.Background(), RestoreOptions{Project: "Lib.sln"})
	for _, a := range runner.last(t).Args {
		if a == "--ignore-failed-sources" {
			t.Error("flag should be omitted when disabled")
		}
	}
}

func TestDotNet_Publish(t *testing.T) {
	runner := &fakeRunner{}
	d := NewDotNet(runner, "dotnet", "")

	err := d.Publish(context.Background(), PublishOptions{
		Project:              "src/Lib/Lib.csproj",
		Framework:            "net8.0",
		Configuration:        "Release",
		AssemblyVersion:      "1.2.3.0",
		FileVersion:          "1.2.3",
		Version:              "1.2.3-beta.1",
		InformationalVersion: "1.2.3-beta.1+Branch.main.Sha.abc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := runner.last(t).Args
	checks := [][]string{
		{"publish", "src/Lib/Lib.csproj"},
		{"--configuration", "Release"},
		{"--framework", "net8.0"},
		{"-p:AssemblyVersion=1.2.3.0"},
		{"-p:FileVersion=1.2.3"},
		{"-p:Version=1.2.3-beta.1"},
	}
	for _, want := range checks {
		if !hasArgs(args, want...) {
			t.Errorf("expected %v in %v", want, args)
		}
	}
	for _, a := range args {
		if strings.HasPrefix(a, "-p:Copyright") {
			t.Error("empty property should be omitted")
		}
	}
}

func TestDotNet_TestNoBuild(t *testing.T) {
	runner := &fakeRunner{}
	d := NewDotNet(runner, "", "")

	_ = d.Test(context.Background(), TestOptions{Project: "Lib.Tests.csproj", Configuration: "Debug", NoBuild: true})

	if !hasArgs(runner.last(t).Args, "test", "Lib.Tests.csproj", "--configuration", "Debug", "--no-build") {
		t.Errorf("unexpected args %v", runner.last(t).Args)
	}
}

func TestDotNet_Pack(t *testing.T) {
	runner := &fakeRunner{}
	d := NewDotNet(runner, "", "")

	err := d.Pack(context.Background(), PackOptions{
		Project:        "Lib.csproj",
		Configuration:  "Release",
		OutputDir:      "artifacts",
		NoBuild:        true,
		NoRestore:      true,
		NoDependencies: true,
		PackageID:      "Lib",
		Version:        "2.0.0",
		Tags:           "validation;rules",
		Authors:        "A, B",
		RepositoryType: "git",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := runner.last(t).Args
	checks := [][]string{
		{"pack", "Lib.csproj"},
		{"--output", "artifacts"},
		{"--no-build"},
		{"--no-restore"},
		{"--no-dependencies"},
		{"-p:PackageId=Lib"},
		{"-p:PackageTags=validation%3Brules"},
		{"-p:Authors=A%2C B"},
		{"-p:PackageRequireLicenseAcceptance=false"},
		{"-p:RepositoryType=git"},
	}
	for _, want := range checks {
		if !hasArgs(args, want...) {
			t.Errorf("expected %v in %v", want, args)
		}
	}
}

func TestDotNet_PushMasksKey(t *testing.T) {
	runner := &fakeRunner{}
	d := NewDotNet(runner, "", "")

	_ = d.Push(context.Background(), PushOptions{Package: "a.nupkg", Source: "https://feed", APIKey: "s3cr3t"})

	cmd := runner.last(t)
	if !hasArgs(cmd.Args, "nuget", "push", "a.nupkg", "--source", "https://feed", "--api-key", "s3cr3t") {
		t.Errorf("unexpected args %v", cmd.Args)
	}
	if strings.Contains(cmd.String(), "s3cr3t") {
		t.Errorf("api key leaked: %s", cmd.String())
	}
	if !strings.Contains(cmd.String(), "--api-key ***") {
		t.Errorf("expected masked key: %s", cmd.String())
	}
}

func TestDotNet_WrapsRunnerError(t *testing.T) {
	runner := &fakeRunner{err: &ExitError{Command: "dotnet test", ExitCode: 1}}
	d := NewDotNet(runner, "", "")

	err := d.Test(context.Background(), TestOptions{Project: "x"})
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode != 1 {
		t.Errorf("expected exit code 1, got %v", err)
	}
}

func TestExecRunner(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	var buf bytes.Buffer
	logger := telemetry.NewLogger(&buf, slog.LevelInfo, "text")
	ctx := telemetry.WithLogger(context.Background(), logger)
	r := NewExecRunner()

	out, err := r.Run(ctx, Command{Name: sh, Args: []string{"-c", "echo hello; echo oops >&2"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Errorf("expected captured stdout, got %q", out)
	}
	if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "oops") {
		t.Errorf("expected output lines in log: %s", buf.String())
	}

	_, err = r.Run(ctx, Command{Name: sh, Args: []string{"-c", "exit 3"}})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %v", err)
	}
	if !errors.Is(err, ErrCommandFailed) {
		t.Error("expected ErrCommandFailed")
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewExecRunner()
	_, err := r.Run(context.Background(), Command{Name: "buildflow-no-such-binary"})
	if !errors.Is(err, ErrCommandFailed) {
		t.Errorf("expected ErrCommandFailed, got %v", err)
	}
}

func TestParseTargetFrameworks(t *testing.T) {
	tests := []struct {
		name    string
		project string
		want    string
		wantErr bool
	}{
		{
			name:    "single",
			project: `<Project Sdk="Microsoft.NET.Sdk"><PropertyGroup><TargetFramework>net8.0</TargetFramework></PropertyGroup></Project>`,
			want:    "net8.0",
		},
		{
			name:    "multiple",
			project: `<Project><PropertyGroup><TargetFrameworks>net6.0; net8.0;netstandard2.0</TargetFrameworks></PropertyGroup></Project>`,
			want:    "net6.0,net8.0,netstandard2.0",
		},
		{
			name: "several groups with duplicate",
			project: `<Project>
				<PropertyGroup><TargetFramework>net8.0</TargetFramework></PropertyGroup>
				<PropertyGroup><TargetFrameworks>net8.0;net9.0</TargetFrameworks></PropertyGroup>
			</Project>`,
			want: "net8.0,net9.0",
		},
		{
			name:    "none",
			project: `<Project><PropertyGroup><Nullable>enable</Nullable></PropertyGroup></Project>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTargetFrameworks([]byte(tt.project))
			if tt.wantErr {
				if !errors.Is(err, ErrNoTargetFramework) {
					t.Errorf("expected ErrNoTargetFramework, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(got, ",") != tt.want {
				t.Errorf("expected %s, got %v", tt.want, got)
			}
		})
	}
}

func TestTargetFrameworks_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Lib.csproj")
	content := `<Project><PropertyGroup><TargetFramework>net8.0</TargetFramework></PropertyGroup></Project>`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := TargetFrameworks(path)
	if err != nil || len(got) != 1 || got[0] != "net8.0" {
		t.Errorf("expected [net8.0], got %v (%v)", got, err)
	}

	if _, err := TargetFrameworks(filepath.Join(t.TempDir(), "missing.csproj")); err == nil {
		t.Error("expected error for missing file")
	}
}
