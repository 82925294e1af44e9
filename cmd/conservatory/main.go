// conservatory is a voice-first living-collection tracker: dictated
// observations become structured journal events, new species are enriched
// through a cached provider pipeline, and the ecosystem engine scores the
// resulting habitats.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"conservatory/internal/config"
	"conservatory/internal/logging"
)

var (
	cfgPath string
	dataDir string
	verbose bool
	apiKey  string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "conservatory",
	Short: "conservatory - a field journal for aquariums and terrariums",
	Long: `conservatory keeps a living-collection journal out of spoken observations.

Transcripts are parsed into structured intents, committed as immutable
domain events, and every new species runs through an enrichment pipeline:
local library, GBIF taxonomy, Wikipedia, iNaturalist, and an AI-written
discovery narrative, cached with a 90-day TTL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if apiKey != "" {
			cfg.LLM.APIKey = apiKey
		}
		if verbose {
			cfg.Logging.Debug = true
		}
		if err := logging.Initialize(cfg.DataDir, logging.Settings{
			Debug:      cfg.Logging.Debug,
			Level:      cfg.Logging.Level,
			JSONFormat: cfg.Logging.JSONFormat,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			logger.Warn("debug logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "Config file path")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.conservatory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "LLM API key (or set GEMINI_API_KEY / OPENAI_API_KEY)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(compatCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(statusCmd)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "conservatory.yaml"
	}
	return home + "/.conservatory/config.yaml"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
