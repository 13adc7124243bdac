package config

import "strings"

// Host — среда, в которой запущена сборка.
type Host struct {
	// Name — "local", "azure-pipelines", "github-actions" или "ci".
	Name string

	// Server — сборка на CI сервере.
	Server bool
}

// DetectHost определяет среду по переменным окружения CI систем.
func DetectHost(env LookupEnv) Host {
	if isSet(env, "TF_BUILD") {
		return Host{Name: "azure-pipelines", Server: true}
	}
	if isSet(env, "GITHUB_ACTIONS") {
		return Host{Name: "github-actions", Server: true}
	}
	if isSet(env, "CI") {
		return Host{Name: "ci", Server: true}
	}
	return Host{Name: "local"}
}

// DefaultConfiguration — Debug локально, Release на сервере.
func (h Host) DefaultConfiguration() string {
	if h.Server {
		return "Release"
	}
	return "Debug"
}

func isSet(env LookupEnv, key string) bool {
	v, ok := env(key)
	if !ok {
		return false
	}
	v = strings.TrimSpace(strings.ToLower(v))
	return v != "" && v != "false" && v != "0"
}
