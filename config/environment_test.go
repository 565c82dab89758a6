package config

import "testing"

func TestAppEnvironment(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"", "development"},
		{"production", "production"},
		{"prod", "production"},
		{"stag", "staging"},
		{"  Production ", "production"},
		{"custom", "custom"},
	}

	for _, tt := range tests {
		t.Run("env="+tt.env, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.env)
			if got := AppEnvironment(); got != tt.want {
				t.Errorf("AppEnvironment() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveConfigPathExplicitWins(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	if got := ResolveConfigPath("custom/config.yml"); got != "custom/config.yml" {
		t.Errorf("explicit path must win, got %s", got)
	}
}

func TestResolveConfigPathDefault(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	// No config/config.production.yml in the test working directory, so the
	// default path stands.
	if got := ResolveConfigPath(""); got != defaultConfigPath {
		t.Errorf("ResolveConfigPath(\"\") = %s, want %s", got, defaultConfigPath)
	}
}
