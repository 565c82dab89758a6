package config

import (
	"os"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
	environmentStaging     = "staging"
)

const defaultConfigPath = "config/config.yml"

var environmentAliases = map[string]string{
	"prod": environmentProduction,
	"stag": environmentStaging,
}

var envConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
	environmentStaging:    "config/config.staging.yml",
}

// AppEnvironment reads the application environment from APP_ENV, normalising
// common aliases and defaulting to development.
func AppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// ResolveConfigPath selects an environment specific configuration file when
// the caller left the path at its default and one exists for the current
// environment. An explicit non-default path always wins.
func ResolveConfigPath(path string) string {
	if path == "" {
		path = defaultConfigPath
	}
	if path != defaultConfigPath {
		return path
	}
	if envPath, ok := envConfigPaths[AppEnvironment()]; ok {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	return path
}
