package domain

// Version — переменные версии, вычисленные по истории git (GitVersion).
type Version struct {
	// MajorMinorPatch — "1.4.2".
	MajorMinorPatch string `json:"MajorMinorPatch"`

	// SemVer — полная семантическая версия, например "1.4.2-beta.3".
	SemVer string `json:"SemVer"`

	// NuGetVersion — версия пакета NuGet.
	NuGetVersion string `json:"NuGetVersion"`

	// AssemblySemFileVer — версия файла сборки, "1.4.2.0".
	AssemblySemFileVer string `json:"AssemblySemFileVer"`

	// InformationalVersion — версия с метаданными ветки и коммита.
	InformationalVersion string `json:"InformationalVersion"`

	// PreReleaseLabel — метка pre-release ("beta", "alpha"); пустая для релиза.
	PreReleaseLabel string `json:"PreReleaseLabel"`

	// BranchName — текущая ветка.
	BranchName string `json:"BranchName"`

	// Sha — полный хэш коммита.
	Sha string `json:"Sha"`
}

// IsPreRelease возвращает true, если у версии есть метка pre-release.
func (v *Version) IsPreRelease() bool {
	return v != nil && v.PreReleaseLabel != ""
}
