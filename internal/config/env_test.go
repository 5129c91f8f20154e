package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDebugFromEnv tests truthy and falsy debug values.
func TestDebugFromEnv(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		value    string
		expected bool
	}{
		{"", false},
		{"0", false},
		{"false", false},
		{"nope", false},
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{" yes ", true},
		{"on", true},
	}

	for _, tc := range testCases {
		t.Run("value="+tc.value, func(t *testing.T) {
			t.Parallel()
			getenv := func(key string) string {
				if key == EnvDebug {
					return tc.value
				}
				return ""
			}
			if got := DebugFromEnv(getenv); got != tc.expected {
				t.Errorf("DebugFromEnv(%q) = %v, expected %v", tc.value, got, tc.expected)
			}
		})
	}
}

// TestLoadDotEnv tests .env loading. Not parallel: it mutates the process environment.
func TestLoadDotEnv(t *testing.T) {
	t.Run("missing files are ignored", func(t *testing.T) {
		if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("loads variables without overriding existing ones", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		content := "SPECVALIDATE_TEST_NEW=from-file\nSPECVALIDATE_TEST_SET=from-file\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write .env: %v", err)
		}

		t.Setenv("SPECVALIDATE_TEST_SET", "from-env")
		t.Setenv("SPECVALIDATE_TEST_NEW", "")
		if err := os.Unsetenv("SPECVALIDATE_TEST_NEW"); err != nil {
			t.Fatalf("failed to unset: %v", err)
		}

		if err := LoadDotEnv(path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := os.Getenv("SPECVALIDATE_TEST_NEW"); got != "from-file" {
			t.Errorf("expected from-file, got %q", got)
		}
		if got := os.Getenv("SPECVALIDATE_TEST_SET"); got != "from-env" {
			t.Errorf("expected existing value to win, got %q", got)
		}
	})
}
