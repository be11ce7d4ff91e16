package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/cram/internal/logging"
	"github.com/ppiankov/cram/internal/model"
)

const version = "cram v0.1.0"

var (
	cfgFile  string
	verbose  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "cram",
	Short: "cram - conflict risk analysis for Sudan",
	Long: `cram runs a staged conflict-risk analysis for a region of Sudan:
it retrieves recent events, classifies the short-term trend, projects
intervention scenarios, checks the outputs for consistency and writes a
situation brief.

Low-confidence results are flagged for human approval. Every run is
appended to an audit log.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.cram/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig locates the config file; values are resolved by LoadConfig
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.cram")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setup resolves configuration and the application logger for a command
func setup() (*model.Config, *app, error) {
	cfg, err := LoadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	if verbose && logLevel == "" {
		cfg.Log.Level = "debug"
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("configuration loaded",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("retrieval", cfg.Retrieval.Backend),
		zap.String("config_file", viper.ConfigFileUsed()),
	)
	return cfg, newApp(cfg, logger), nil
}
