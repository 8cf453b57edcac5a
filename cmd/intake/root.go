package main

import (
	"github.com/spf13/cobra"

	"intake-chatbot/internal/config"
)

var (
	configPath  string
	envFile     string
	provider    string
	model       string
	kbPath      string
	outDir      string
	metricsAddr string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Medical intake chatbot",
	Long: `intake walks a patient through a short symptom interview, matches the
answers against a knowledge base of common cases and escalates anything it
does not recognise to a language model. A PDF prescription can be issued at
the end of each case.`,
	SilenceUsage: true,
	RunE:         runChat,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive intake session (default)",
	RunE:  runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().StringVar(&kbPath, "kb", "", "knowledge base YAML (default: built-in)")

	for _, fs := range []*cobra.Command{rootCmd, chatCmd} {
		fs.Flags().StringVar(&provider, "provider", "", "llm provider: gemini or openai")
		fs.Flags().StringVar(&model, "model", "", "llm model name")
		fs.Flags().StringVar(&outDir, "out-dir", "", "prescription output directory (default: ~/Downloads)")
		fs.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for /metrics and /healthz")
		fs.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	}

	rootCmd.AddCommand(chatCmd, kbCmd, casesCmd)
}

// loadConfig resolves configuration from the config file, dotenv, the
// environment and finally the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.SetProvider(provider)
	}
	if flags.Changed("model") {
		cfg.LLM.Model = model
	}
	if flags.Changed("kb") {
		cfg.KnowledgeBase.Path = kbPath
	}
	if flags.Changed("out-dir") {
		cfg.Prescription.OutputDir = outDir
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
}
