package voicestage

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	defaultModel       = "models/gemini-2.5-flash-native-audio-preview-12-2025"
	defaultLocation    = "us-central1"
	defaultLogMaxBytes = 10 * 1024 * 1024
	sampleRateHz       = 24000
	channels           = 1
	bitsPerSample      = 16
	maxTextLen         = 10000
	artifactExt        = "wav"
	scriptExt          = ".txt"
)

// Config is the immutable runtime configuration, resolved once at startup
// and passed into the orchestrator and server explicitly.
type Config struct {
	APIKey    string `env:"GEMINI_API_KEY"`
	ProjectID string `env:"GCP_PROJECT_ID"`
	Location  string `env:"GCP_LOCATION"`
	Model     string `env:"GEMINI_MODEL"`
	Port      string `env:"VOICESTAGE_PORT"`
	OutputDir string `env:"VOICESTAGE_OUTPUT_DIR"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment failed: %w", err)
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "your_api_key_here" {
		cfg.APIKey = ""
	}
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Location == "" {
		cfg.Location = defaultLocation
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir()
	}
	return cfg, nil
}

// validateProvider is the fatal check behind the Initializing Provider
// stage: without credentials no per-line attempt may happen.
func (c Config) validateProvider() error {
	if c.APIKey == "" && c.ProjectID == "" {
		return errors.New("configuration error: GEMINI_API_KEY or GCP_PROJECT_ID must be set in the environment")
	}
	return nil
}

// defaultOutputDir picks the workspace location. The Cloud Run filesystem
// is read-only except under /tmp; K_SERVICE marks that environment.
func defaultOutputDir() string {
	if os.Getenv("K_SERVICE") != "" {
		return "/tmp/voice_overs"
	}
	return "voice_overs"
}

func (c Config) listenAddr() (string, error) {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	for _, ch := range port {
		if ch < '0' || ch > '9' {
			return "", fmt.Errorf("invalid VOICESTAGE_PORT: %s", port)
		}
	}
	if port == "0" {
		return "", fmt.Errorf("invalid VOICESTAGE_PORT: %s", port)
	}
	return ":" + port, nil
}
