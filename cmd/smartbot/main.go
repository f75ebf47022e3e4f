// Package main provides the SmartBot command: the analysis API server and its
// operator tools.
package main

import (
	"fmt"
	"os"

	"github.com/Rauan228/HackNU2/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configPath string
	// flags is the viper instance command flags are bound to.
	flags = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "smartbot",
	Short: "SmartBot application analysis engine",
	Long: `SmartBot evaluates job applications against the vacancy, asks the candidate
clarifying questions about the gaps it finds and produces a scored report for
the employer.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (values can be overridden by env and flags)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	mustBind("log.debug", rootCmd.PersistentFlags().Lookup("debug"))
	mustBind("log.json", rootCmd.PersistentFlags().Lookup("log-json"))
}

// loadConfig reads the config file, the environment and any bound flags.
func loadConfig() (*config.Config, error) {
	return config.LoadWith(flags, configPath)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
