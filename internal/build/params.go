package build

import (
	"strconv"

	"github.com/shaiso/buildflow/internal/config"
)

// Имена параметров сборки.
const (
	ParamConfiguration       = "configuration"
	ParamIgnoreFailedSources = "ignore-failed-sources"
	ParamReleaseNotes        = "release-notes"
	ParamNugetAPIURL         = "nuget-api-url"
	ParamNugetAPIKey         = "nuget-api-key"
	ParamNugetOrgAPIURL      = "nuget-org-api-url"
	ParamNugetOrgAPIKey      = "nuget-org-api-key"
	ParamServerBuild         = "is-server-build"
)

// NugetOrgURL — публичный feed по умолчанию.
const NugetOrgURL = "https://api.nuget.org/v3/index.json"

// Parameters возвращает объявления параметров пайплайна.
// Значения по умолчанию зависят от среды: Release и is-server-build на CI.
func Parameters(host config.Host) []config.ParamDecl {
	return []config.ParamDecl{
		{
			Name:        ParamConfiguration,
			Description: "Configuration to build: Debug (local) or Release (server)",
			Default:     host.DefaultConfiguration(),
		},
		{
			Name:        ParamIgnoreFailedSources,
			Description: "Ignore unreachable package sources during restore",
			Bool:        true,
		},
		{
			Name:        ParamReleaseNotes,
			Description: "Release notes embedded into the package",
		},
		{
			Name:        ParamNugetAPIURL,
			Description: "Primary NuGet feed URL",
		},
		{
			Name:        ParamNugetAPIKey,
			Description: "Primary NuGet feed API key",
			Secret:      true,
		},
		{
			Name:        ParamNugetOrgAPIURL,
			Description: "Public NuGet feed URL used for releases from the trunk branch",
			Default:     NugetOrgURL,
		},
		{
			Name:        ParamNugetOrgAPIKey,
			Description: "Public NuGet feed API key",
			Secret:      true,
		},
		{
			Name:        ParamServerBuild,
			Description: "Treat the run as a CI server build (detected automatically)",
			Default:     strconv.FormatBool(host.Server),
			Bool:        true,
		},
	}
}
