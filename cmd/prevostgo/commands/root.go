// Package commands implements the CLI commands for prevostgo.
package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prevostgo/prevostgo/internal/logger"
	"github.com/prevostgo/prevostgo/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "prevostgo",
	Version: version.Version,
	Short:   "Luxury coach inventory ingestion pipeline",
	Long: `Prevostgo ingests third-party marketplace listings for luxury
coaches from a listing page, normalizes them into typed inventory
records, and reconciles them against the store.

Examples:
  # One ingestion run against the configured source
  prevostgo scrape

  # Parse only, without detail-page enrichment or a database
  prevostgo scrape --enrich none --dry-run

  # Run the HTTP trigger surface with a 6h re-scrape schedule
  prevostgo serve --addr :8080 --interval 6h`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("log_json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.prevostgo.yaml)")
	rootCmd.PersistentFlags().String("database-url", "", "postgres DSN (or DATABASE_URL env)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("database_url", rootCmd.PersistentFlags().Lookup("database-url"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))

	rootCmd.SetVersionTemplate(version.Full() + "\n")
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".prevostgo")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PREVOSTGO")
	viper.AutomaticEnv()

	// The deploy platform provides the database DSN under this name.
	_ = viper.BindEnv("database_url", "DATABASE_URL")

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
