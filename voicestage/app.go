package voicestage

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	envPath   string
	configDir string
	logPath   string
	logLevel  string
}

func Run() {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "voicestage",
		Short:         "Voice-over production tool for character scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLogLevel(flags.logLevel)
			if err != nil {
				return err
			}
			return initLogger(flags.logPath, level)
		},
	}
	root.PersistentFlags().StringVar(&flags.envPath, "env", "", "path to .env file")
	root.PersistentFlags().StringVar(&flags.configDir, "config", ".", "config directory for Voices.json")
	root.PersistentFlags().StringVar(&flags.logPath, "log", "", "log file path")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level: debug|info|warn|error")

	root.AddCommand(newServeCmd(flags), newRunCmd(flags), newClearCmd(flags))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bootstrap(flags *rootFlags) (Config, *Registry, *Workspace, error) {
	envPath := resolveEnvPath(flags.envPath, flags.configDir)
	loadDotEnv(envPath)
	ensureEnv(envPath, map[string]string{
		"GEMINI_API_KEY":  "your_api_key_here",
		"GEMINI_MODEL":    defaultModel,
		"VOICESTAGE_PORT": "8080",
	})

	cfg, err := loadConfig()
	if err != nil {
		return Config{}, nil, nil, err
	}

	registry, source, err := loadRegistry(flags.configDir)
	if err != nil {
		return Config{}, nil, nil, fmt.Errorf("load voices failed: %w", err)
	}
	appLog.Info().Str("source", source).Int("characters", registry.Len()).Msg("cast loaded")

	ws := NewWorkspace(cfg.OutputDir)
	if err := ws.Ensure(); err != nil {
		return Config{}, nil, nil, err
	}
	return cfg, registry, ws, nil
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, registry, ws, err := bootstrap(flags)
			if err != nil {
				return err
			}
			addr, err := cfg.listenAddr()
			if err != nil {
				return err
			}
			srv := NewServer(cfg, registry, ws, newGeminiSynthesizer)
			fmt.Printf("Voicestage starting on %s\n", addr)
			fmt.Printf("Characters configured: %d\n", registry.Len())
			appLog.Info().Str("addr", addr).Msg("server starting")
			server := &http.Server{
				Addr:              addr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
				// A batch is one provider call per line, sequential, so
				// responses can take far longer than a normal request.
				WriteTimeout: 10 * time.Minute,
				IdleTimeout:  60 * time.Second,
			}
			return server.ListenAndServe()
		},
	}
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.txt>",
		Short: "Generate voice-over clips for a script file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, registry, ws, err := bootstrap(flags)
			if err != nil {
				return err
			}
			script, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script failed: %w", err)
			}
			orch := NewOrchestrator(cfg, registry, ws, newGeminiSynthesizer)
			result, err := orch.Run(cmd.Context(), filepath.Base(args[0]), script)
			if err != nil {
				return err
			}
			fmt.Println(result.Summary())
			if len(result.Errors) > 0 {
				fmt.Println("\nErrors:")
				for _, e := range result.Errors {
					fmt.Println("  " + e)
				}
			}
			for _, a := range result.Artifacts {
				fmt.Println(filepath.Join(ws.Dir(), a.Filename))
			}
			return nil
		},
	}
}

func newClearCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every generated clip in the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadDotEnv(resolveEnvPath(flags.envPath, flags.configDir))
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			deleted, err := NewWorkspace(cfg.OutputDir).Clear()
			if errors.Is(err, errWorkspaceMissing) {
				fmt.Println("Output directory does not exist.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Cleared %d files.\n", deleted)
			return nil
		},
	}
}
