package toolchain

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoTargetFramework — в файле проекта не указан target framework.
var ErrNoTargetFramework = errors.New("project has no target framework")

// projectFile — часть .csproj, нужная для выбора framework.
type projectFile struct {
	PropertyGroups []struct {
		TargetFramework  string `xml:"TargetFramework"`
		TargetFrameworks string `xml:"TargetFrameworks"`
	} `xml:"PropertyGroup"`
}

// TargetFrameworks читает target frameworks из файла проекта (.csproj).
//
// Поддерживаются <TargetFramework> и <TargetFrameworks> (через ';').
// Порядок сохраняется, дубликаты удаляются.
func TargetFrameworks(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	return ParseTargetFrameworks(data)
}

// ParseTargetFrameworks разбирает содержимое файла проекта.
func ParseTargetFrameworks(data []byte) ([]string, error) {
	var proj projectFile
	if err := xml.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}

	seen := make(map[string]bool)
	var out []string
	add := func(fw string) {
		fw = strings.TrimSpace(fw)
		if fw == "" || seen[fw] {
			return
		}
		seen[fw] = true
		out = append(out, fw)
	}

	for _, pg := range proj.PropertyGroups {
		add(pg.TargetFramework)
		for _, fw := range strings.Split(pg.TargetFrameworks, ";") {
			add(fw)
		}
	}

	if len(out) == 0 {
		return nil, ErrNoTargetFramework
	}
	return out, nil
}
