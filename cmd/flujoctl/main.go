// Command flujoctl computes flow views and forecasts from the terminal,
// imports record batches and manages the SQLite schema.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"flujo/internal/backend"
	"flujo/internal/cli"
	"flujo/internal/config"
	applog "flujo/internal/log"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "flujoctl",
		Short: "Cash flow views and forecasts from the command line",
		Long: `flujoctl reads the same record store as the flujo server. It renders
flow views and yearly forecasts, exports tables to CSV or Google Sheets,
imports record batches and applies database migrations.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	// Set by initConfig before any command runs.
	appConfig *config.Config
	logger    *applog.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./flujo.yaml or $HOME/.config/flujo/flujo.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().String("backend", "", fmt.Sprintf("record store (%s)", strings.Join(backend.GetBackendTypeStrings(), ", ")))
	rootCmd.PersistentFlags().String("data-dir", "", "directory with the JSON seed files of the memory store")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("sqlite_db_path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(flowCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(batchesCmd())
	rootCmd.AddCommand(migrateCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.config/flujo")
		}
		viper.SetConfigName("flujo")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FLUJO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := config.Load()
	applyOverrides(cfg, viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return err
	}

	appConfig = cfg
	logger = cli.SetupLogger(cfg, os.Stderr)
	return nil
}

// applyOverrides lays the values found in the config file, FLUJO_* variables
// and flags over the environment configuration.
func applyOverrides(cfg *config.Config, v *viper.Viper) {
	for key, dst := range map[string]*string{
		"backend":                 &cfg.DataBackend,
		"data_dir":                &cfg.DataDir,
		"sqlite_db_path":          &cfg.SQLiteDBPath,
		"amqp_url":                &cfg.AMQPURL,
		"google.spreadsheet_id":   &cfg.GoogleSpreadsheetID,
		"google.sheet_name":       &cfg.GoogleSheetName,
		"google.credentials_file": &cfg.GoogleCredentialsFile,
		"flow.amount":             &cfg.AmountField,
		"flow.start":              &cfg.RangeStart,
		"flow.end":                &cfg.RangeEnd,
		"log.level":               &cfg.LogLevel,
		"log.format":              &cfg.LogFormat,
	} {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
	if v.IsSet("flow.excluded_categories") {
		cfg.ExcludedCategoryIDs = v.GetStringSlice("flow.excluded_categories")
	}
	if v.IsSet("flow.seed") {
		cfg.ForecastSeed = v.GetInt64("flow.seed")
	}
	if v.IsSet("flow.max_buckets") {
		cfg.MaxBuckets = v.GetInt("flow.max_buckets")
	}
}
