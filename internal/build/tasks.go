package build

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/shaiso/buildflow/internal/domain"
	"github.com/shaiso/buildflow/internal/publish"
	"github.com/shaiso/buildflow/internal/telemetry"
	"github.com/shaiso/buildflow/internal/toolchain"
)

// unknownLabel выводится вместо отсутствующей pre-release метки.
const unknownLabel = "????"

func (p *Pipeline) print(ctx context.Context, rc *domain.RunContext) error {
	v, err := p.Version(ctx)
	if err != nil {
		return err
	}

	label := v.PreReleaseLabel
	if label == "" {
		label = unknownLabel
	}

	logger := telemetry.FromContext(ctx)
	logger.Info("release notes", "value", rc.Params.Value(ParamReleaseNotes))
	logger.Info("root directory", "value", p.cfg.RootDir)
	logger.Info("major minor patch", "value", v.MajorMinorPatch)
	logger.Info("nuget version", "value", v.NuGetVersion)
	logger.Info("pre-release label", "value", label)
	return nil
}

func (p *Pipeline) clean(ctx context.Context, rc *domain.RunContext) error {
	logger := telemetry.FromContext(ctx)

	for _, project := range []string{p.cfg.Project.Library, p.cfg.Project.Tests} {
		if project == "" {
			continue
		}
		removed, err := DeleteBuildOutputs(filepath.Dir(p.cfg.Abs(project)))
		if err != nil {
			return err
		}
		for _, dir := range removed {
			logger.Debug("deleted directory", "path", dir)
		}
		logger.Info("cleaned project", "project", project, "deleted", len(removed))
	}

	return EnsureCleanDirectory(p.cfg.ArtifactsDir())
}

func (p *Pipeline) restore(ctx context.Context, rc *domain.RunContext) error {
	return p.tools.Restore(ctx, toolchain.RestoreOptions{
		Project:             p.cfg.Abs(p.cfg.Project.Solution),
		IgnoreFailedSources: rc.Params.Bool(ParamIgnoreFailedSources),
	})
}

func (p *Pipeline) compile(ctx context.Context, rc *domain.RunContext) error {
	v, err := p.Version(ctx)
	if err != nil {
		return err
	}

	for _, project := range []string{p.cfg.Project.Library, p.cfg.Project.Tests} {
		path := p.cfg.Abs(project)
		frameworks, err := p.frameworks(path)
		if err != nil {
			return err
		}

		for _, fw := range frameworks {
			err := p.tools.Publish(ctx, toolchain.PublishOptions{
				Project:              path,
				Framework:            fw,
				Configuration:        rc.Params.Value(ParamConfiguration),
				Copyright:            p.cfg.Package.Copyright,
				AssemblyVersion:      v.AssemblySemFileVer,
				FileVersion:          v.MajorMinorPatch,
				Version:              v.NuGetVersion,
				InformationalVersion: v.InformationalVersion,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// frameworks возвращает target frameworks проекта: из конфигурации
// или из файла проекта.
func (p *Pipeline) frameworks(project string) ([]string, error) {
	if len(p.cfg.Project.Frameworks) > 0 {
		return p.cfg.Project.Frameworks, nil
	}
	frameworks, err := toolchain.TargetFrameworks(project)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(project), err)
	}
	return frameworks, nil
}

func (p *Pipeline) test(ctx context.Context, rc *domain.RunContext) error {
	return p.tools.Test(ctx, toolchain.TestOptions{
		Project:       p.cfg.Abs(p.cfg.Project.Tests),
		Configuration: rc.Params.Value(ParamConfiguration),
		NoBuild:       true,
	})
}

func (p *Pipeline) pack(ctx context.Context, rc *domain.RunContext) error {
	v, err := p.Version(ctx)
	if err != nil {
		return err
	}

	pkg := p.cfg.Package
	return p.tools.Pack(ctx, toolchain.PackOptions{
		Project:          p.cfg.Abs(p.cfg.Project.Library),
		Configuration:    rc.Params.Value(ParamConfiguration),
		OutputDir:        p.cfg.ArtifactsDir(),
		NoBuild:          true,
		NoRestore:        true,
		NoDependencies:   true,
		PackageID:        pkg.ID,
		Title:            pkg.Title,
		Version:          v.NuGetVersion,
		Description:      pkg.Description,
		Authors:          pkg.Authors,
		Copyright:        pkg.Copyright,
		ReleaseNotes:     rc.Params.Value(ParamReleaseNotes),
		ProjectURL:       pkg.ProjectURL,
		License:          pkg.License,
		Tags:             pkg.Tags,
		Readme:           pkg.Readme,
		Icon:             pkg.Icon,
		RepositoryType:   "git",
		RepositoryURL:    pkg.RepositoryURL,
		RepositoryBranch: v.BranchName,
		RepositoryCommit: v.Sha,
	})
}

func (p *Pipeline) push(ctx context.Context, rc *domain.RunContext) error {
	v, err := p.Version(ctx)
	if err != nil {
		return err
	}

	artifacts, err := filepath.Glob(filepath.Join(p.cfg.ArtifactsDir(), "*.nupkg"))
	if err != nil {
		return fmt.Errorf("glob artifacts: %w", err)
	}
	sort.Strings(artifacts)

	policy := publish.Policy{
		TrunkBranch: p.cfg.Project.TrunkBranch,
		Primary: publish.Destination{
			Name:   "primary",
			URL:    rc.Params.Value(ParamNugetAPIURL),
			APIKey: rc.Params.Value(ParamNugetAPIKey),
		},
		Secondary: publish.Destination{
			Name:   "nuget.org",
			URL:    rc.Params.Value(ParamNugetOrgAPIURL),
			APIKey: rc.Params.Value(ParamNugetOrgAPIKey),
		},
	}

	result, err := policy.Publish(ctx, toolchainPusher{tools: p.tools}, artifacts, v)
	if err != nil {
		return err
	}

	telemetry.FromContext(ctx).Info("packages published",
		"passes", len(result.Passes),
		"pushed", result.Pushed,
		"public_release", policy.IsPublicRelease(v),
	)
	return nil
}

// toolchainPusher публикует пакеты через Toolchain.
type toolchainPusher struct {
	tools toolchain.Toolchain
}

func (t toolchainPusher) Push(ctx context.Context, artifact string, dest publish.Destination) error {
	return t.tools.Push(ctx, toolchain.PushOptions{
		Package: artifact,
		Source:  dest.URL,
		APIKey:  dest.APIKey,
	})
}
