// Package main is the entry point for the study-finder service and CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// @title Study Finder API
// @version 1.0
// @description Recommends German university study programs within a monthly budget
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /

var rootCmd = &cobra.Command{
	Use:   "study-finder",
	Short: "Recommend study programs in Germany within a monthly budget",
	Long: `study-finder searches a university program directory for degree programs
matching a student's interests and degree level, reads monthly costs from the
result snippets and keeps the programs that fit the budget.

Configuration comes from environment variables (and an optional .env file).
A YAML config file and command-line flags override them.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./study-finder.yaml or ~/.config/study-finder/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("provider", "", "search provider: duckduckgo or tavily")
	rootCmd.PersistentFlags().StringSlice("domains", nil, "directory domains to restrict the search to")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("search.provider", rootCmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("search.domains", rootCmd.PersistentFlags().Lookup("domains"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("study-finder")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "study-finder"))
		}
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
