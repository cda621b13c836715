package voicestage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

func resolveEnvPath(flagVal, configDir string) string {
	if flagVal != "" {
		return flagVal
	}
	if v := os.Getenv("VOICESTAGE_ENV"); v != "" {
		return v
	}
	dir := strings.TrimSpace(configDir)
	if dir == "" || dir == "." {
		return ".env"
	}
	return filepath.Join(dir, ".env")
}

// loadDotEnv loads path into the process environment. Variables already set
// win; a missing file is not an error.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		if !os.IsNotExist(err) {
			appLog.Warn().Err(err).Str("path", path).Msg("load .env failed")
		}
		return
	}
	appLog.Debug().Str("path", path).Msg("loaded .env")
}

// ensureEnv seeds path with defaults for every key missing from both the
// file and the process environment, so a fresh install has a template to
// fill in, and exports the resulting values where the environment is empty.
func ensureEnv(path string, defaults map[string]string) {
	existing, err := godotenv.Read(path)
	if err != nil {
		existing = map[string]string{}
	}
	changed := false

	for k, v := range defaults {
		if strings.TrimSpace(existing[k]) == "" {
			if envVal, ok := os.LookupEnv(k); ok && strings.TrimSpace(envVal) != "" {
				existing[k] = envVal
			} else {
				existing[k] = v
			}
			changed = true
		}

		if envVal, ok := os.LookupEnv(k); !ok || strings.TrimSpace(envVal) == "" {
			_ = os.Setenv(k, existing[k])
		}
	}

	if changed {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0755)
		}
		if err := godotenv.Write(existing, path); err != nil {
			appLog.Warn().Err(err).Str("path", path).Msg("write .env failed")
		}
	}
}
