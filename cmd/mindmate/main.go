package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mindmate/internal/config"
	"mindmate/internal/logging"
)

const version = "1.0.0"

var (
	// Global flags
	verbose    bool
	configPath string
	kbDir      string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mindmate",
	Short: "Mindmate - AI mental wellness companion",
	Long: `Mindmate is a terminal mental wellness companion.

Each conversation turn runs through a fixed pipeline: an input guard screens
for crisis language before anything else, relevant therapeutic concepts are
retrieved from a local knowledge base, and the companion's reply is grounded
in a running session journal and a per-turn steering directive.

Sessions are ephemeral: nothing persists unless you export it.

Run without arguments to start a chat session.`,
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

		workspace, _ := os.Getwd()
		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mindmate %s\n", version)
	},
}

// configCmd shows the effective configuration. Credentials are shown as
// fingerprints only.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("config file:     %s\n", resolveConfigPath())
		fmt.Printf("base url:        %s\n", cfg.LLM.BaseURL)
		fmt.Printf("chat model:      %s\n", cfg.LLM.ChatModel)
		fmt.Printf("classify model:  %s\n", cfg.LLM.ClassifyModel)
		fmt.Printf("insight model:   %s\n", cfg.LLM.InsightModel)
		fmt.Printf("api key:         %s\n", config.KeyFingerprint(cfg.LLM.APIKey))
		fmt.Printf("fallback key:    %s\n", config.KeyFingerprint(cfg.LLM.FallbackAPIKey))
		fmt.Printf("embedding:       %s\n", cfg.Embedding.Provider)
		fmt.Printf("kb dir:          %s\n", cfg.Knowledge.DataDir)
		fmt.Printf("top k:           %d\n", cfg.Knowledge.TopK)
		fmt.Printf("history window:  %d\n", cfg.Chat.HistoryWindow)
		return nil
	},
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "mindmate.yaml"
	}
	return filepath.Join(home, ".mindmate", "config.yaml")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	if kbDir != "" {
		cfg.Knowledge.DataDir = kbDir
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.mindmate/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&kbDir, "kb-dir", "", "knowledge base directory override")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(kbCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
