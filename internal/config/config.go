package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Strategy struct {
		Weights        map[string]float64 `yaml:"weights"`
		SMALength      int                `yaml:"sma_length"`
		DefensiveAsset string             `yaml:"defensive_asset"`
		Mode           string             `yaml:"mode"`
		TopN           int                `yaml:"top_n"`
		StalePolicy    string             `yaml:"stale_policy"`
	} `yaml:"strategy"`
	Portfolio struct {
		CashBuffer *float64 `yaml:"cash_buffer"`
		Rebalance  string   `yaml:"rebalance"`
	} `yaml:"portfolio"`
	Market struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"market"`
	DataSource struct {
		BaseURL       string  `yaml:"base_url"`
		APIKey        string  `yaml:"api_key"`
		RatePerSecond float64 `yaml:"rate_per_second"`
	} `yaml:"data_source"`
	Schedule struct {
		DailyCron  string `yaml:"daily_cron"`
		ReportCron string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	StateFile string `yaml:"state_file"`
	API       struct {
		Listen string `yaml:"listen"`
	} `yaml:"api"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// DefaultWeights is the GTAA(13) basket.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"VLUE": 0.05, // US large value
		"MTUM": 0.05, // US large momentum
		"VBR":  0.05, // US small cap value
		"XSMO": 0.05, // US small cap momentum
		"EFA":  0.10, // foreign developed
		"VWO":  0.10, // foreign emerging
		"IEF":  0.05, // US 7-10y treasuries
		"TLT":  0.05, // US 20y+ treasuries
		"LQD":  0.05, // US corporate bonds
		"BWX":  0.05, // foreign government bonds
		"DBC":  0.10, // commodities
		"GLD":  0.10, // gold
		"VNQ":  0.20, // REITs
	}
}

// Load reads .env, then config from a YAML file, then applies environment variable overrides
// and defaults.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("STRATEGY_MODE"); v != "" {
		cfg.Strategy.Mode = v
	}
	if v := os.Getenv("SMA_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Strategy.SMALength = n
		}
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.StateFile = v
	}
	if v := os.Getenv("API_LISTEN"); v != "" {
		cfg.API.Listen = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Strategy.Weights) == 0 {
		c.Strategy.Weights = DefaultWeights()
	}
	if c.Strategy.SMALength == 0 {
		c.Strategy.SMALength = 200
	}
	if c.Strategy.DefensiveAsset == "" {
		c.Strategy.DefensiveAsset = "IEF"
	}
	if c.Strategy.Mode == "" {
		c.Strategy.Mode = "trend"
	}
	if c.Strategy.TopN == 0 {
		c.Strategy.TopN = 6
	}
	if c.Strategy.StalePolicy == "" {
		c.Strategy.StalePolicy = "carry"
	}
	if c.Portfolio.CashBuffer == nil {
		buf := 0.02
		c.Portfolio.CashBuffer = &buf
	}
	if c.Portfolio.Rebalance == "" {
		c.Portfolio.Rebalance = "month_end"
	}
	if c.Market.Timezone == "" {
		c.Market.Timezone = "America/New_York"
	}
	if c.DataSource.RatePerSecond == 0 {
		c.DataSource.RatePerSecond = 2
	}
	if c.Schedule.DailyCron == "" {
		// Tuesday to Saturday morning, after the previous session has closed
		c.Schedule.DailyCron = "0 0 7 * * 2-6"
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 0 9 1 * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/gtaa_sentinel.db"
	}
	if c.StateFile == "" {
		c.StateFile = "data/strategy_state.json"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if len(c.Strategy.Weights) == 0 {
		return fmt.Errorf("strategy.weights is required")
	}
	for symbol, w := range c.Strategy.Weights {
		if w < 0 {
			return fmt.Errorf("strategy.weights[%s] must not be negative", symbol)
		}
	}
	if c.Strategy.SMALength <= 0 {
		return fmt.Errorf("strategy.sma_length must be positive")
	}
	if c.Strategy.DefensiveAsset == "" {
		return fmt.Errorf("strategy.defensive_asset is required")
	}
	switch c.Strategy.Mode {
	case "trend", "ranked":
	default:
		return fmt.Errorf("strategy.mode must be trend or ranked, got %q", c.Strategy.Mode)
	}
	if c.Strategy.TopN <= 0 {
		return fmt.Errorf("strategy.top_n must be positive")
	}
	switch c.Strategy.StalePolicy {
	case "carry", "skip":
	default:
		return fmt.Errorf("strategy.stale_policy must be carry or skip, got %q", c.Strategy.StalePolicy)
	}
	if b := *c.Portfolio.CashBuffer; b < 0 || b >= 1 {
		return fmt.Errorf("portfolio.cash_buffer must be in [0, 1)")
	}
	switch c.Portfolio.Rebalance {
	case "month_end", "day_end":
	default:
		return fmt.Errorf("portfolio.rebalance must be month_end or day_end, got %q", c.Portfolio.Rebalance)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Location returns the market time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Market.Timezone)
	if err != nil {
		return nil, fmt.Errorf("market.timezone: %w", err)
	}
	return loc, nil
}

// Symbols returns the configured universe, including the defensive asset.
func (c *Config) Symbols() []string {
	out := make([]string, 0, len(c.Strategy.Weights)+1)
	seen := make(map[string]bool)
	for symbol := range c.Strategy.Weights {
		out = append(out, symbol)
		seen[symbol] = true
	}
	if !seen[c.Strategy.DefensiveAsset] {
		out = append(out, c.Strategy.DefensiveAsset)
	}
	return out
}
