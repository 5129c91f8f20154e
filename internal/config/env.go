package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvDebug is the environment variable that enables debug mode.
const EnvDebug = "SPECVALIDATE_DEBUG"

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the process
// environment. Variables that are already set are not overwritten, and
// missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// DebugFromEnv reports whether debug mode is enabled by the environment.
// getenv is usually os.Getenv; tests pass a map lookup.
func DebugFromEnv(getenv func(string) string) bool {
	if getenv == nil {
		getenv = os.Getenv
	}
	switch strings.ToLower(strings.TrimSpace(getenv(EnvDebug))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
