package commands

import (
	"fmt"
	"os"
	"time"

	"GTAASentinel/internal/collector"
	"GTAASentinel/internal/config"
	"GTAASentinel/internal/host"
	"GTAASentinel/internal/logger"
	"GTAASentinel/internal/portfolio"
	"GTAASentinel/internal/strategy"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "GTAA trend-following allocation sentinel",
	Long: `GTAA Sentinel tracks a basket of ETFs against their 200-day moving average,
scores their momentum and publishes a monthly target allocation.

Examples:
  sentinel run
  sentinel evaluate --dry-run
  sentinel replay --from 2020-01-01`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", defaultConfig, "config file")
}

// app is the configuration shared by all commands.
type app struct {
	cfg *config.Config
	loc *time.Location
	log zerolog.Logger
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if sum, err := portfolio.CheckWeights(cfg.Strategy.Weights); err != nil {
		log.Warn().Err(err).Float64("sum", sum).Msg("static weights do not sum to 1.0")
	}
	return &app{cfg: cfg, loc: loc, log: log}, nil
}

func (a *app) fetcher() collector.Fetcher {
	if a.cfg.DataSource.BaseURL != "" {
		return collector.NewVsTraderFetcher(a.cfg.DataSource.BaseURL, a.cfg.DataSource.APIKey, a.cfg.Proxy)
	}
	return collector.NewYahooFetcher(a.cfg.Proxy)
}

func (a *app) collector() *collector.Collector {
	f := a.fetcher()
	a.log.Info().Str("source", f.Name()).Msg("data source selected")
	return collector.NewCollector(f, a.loc, a.cfg.DataSource.RatePerSecond, a.log)
}

func settingsFrom(cfg *config.Config, loc *time.Location) host.Settings {
	return host.Settings{
		Weights:   cfg.Strategy.Weights,
		SMALength: cfg.Strategy.SMALength,
		Generator: strategy.GeneratorConfig{
			DefensiveAsset: cfg.Strategy.DefensiveAsset,
			Mode:           strategy.Mode(cfg.Strategy.Mode),
			TopN:           cfg.Strategy.TopN,
			StalePolicy:    strategy.StalePolicy(cfg.Strategy.StalePolicy),
		},
		CashBuffer: *cfg.Portfolio.CashBuffer,
		Cadence:    portfolio.CadenceFor(cfg.Portfolio.Rebalance),
		Location:   loc,
	}
}
