package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buyawarranty/warranty-quote/internal/config"
)

var (
	cfg *config.Config

	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "warranty",
	Short:        "Vehicle warranty quoting engine",
	Long:         "Prices warranty plans from the base price table, vehicle category, add-ons and multi-year discounts, finalizes checkout pricing and audits it.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cfgFile, logLevel)
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

// setup loads configuration, applies flag overrides and installs the logger.
func setup(path, level string) error {
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if level != "" {
		c.Log.Level = level
	}
	if err := config.InitLogger(c.Log); err != nil {
		return err
	}
	cfg = c

	zap.L().Debug("warranty: configuration loaded",
		zap.String("config_file", path),
		zap.String("store", cfg.Store.Driver),
		zap.String("pricing_source", cfg.Pricing.Source),
	)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
