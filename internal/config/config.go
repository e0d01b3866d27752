package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Data     DataConfig     `mapstructure:"data"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Weather  WeatherConfig  `mapstructure:"weather"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DataConfig selects where historical records come from
type DataConfig struct {
	Source  string `mapstructure:"source"` // "csv" or "sqlite"
	CSVPath string `mapstructure:"csv_path"`
	DBPath  string `mapstructure:"db_path"`
}

// AnalysisConfig holds summarizer and worker pool settings
type AnalysisConfig struct {
	WindowSize int `mapstructure:"window_size"`
	Workers    int `mapstructure:"workers"`
}

// WeatherConfig holds live-weather provider configuration
type WeatherConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	Listen         bool          `mapstructure:"listen"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// ChartConfig controls PNG rendering
type ChartConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	OutputDir string `mapstructure:"output_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path uses defaults and the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// TEMPWATCH_WEATHER_API_KEY overrides weather.api_key, etc.
	v.SetEnvPrefix("TEMPWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("data.source", "csv")
	v.SetDefault("data.csv_path", "./data/temperature_data.csv")
	v.SetDefault("data.db_path", "./data/records.db")

	v.SetDefault("analysis.window_size", 30)
	v.SetDefault("analysis.workers", 5)

	v.SetDefault("weather.base_url", "https://api.openweathermap.org")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.timeout", "10s")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.listen", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("chart.enabled", true)
	v.SetDefault("chart.output_dir", "./charts")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	switch c.Data.Source {
	case "csv":
		if c.Data.CSVPath == "" {
			return fmt.Errorf("data.csv_path is required when data.source is csv")
		}
	case "sqlite":
		if c.Data.DBPath == "" {
			return fmt.Errorf("data.db_path is required when data.source is sqlite")
		}
	default:
		return fmt.Errorf("data.source must be one of: csv, sqlite")
	}

	if c.Analysis.WindowSize < 1 {
		return fmt.Errorf("analysis.window_size must be at least 1")
	}
	if c.Analysis.Workers < 1 || c.Analysis.Workers > 64 {
		return fmt.Errorf("analysis.workers must be between 1 and 64")
	}

	if c.Weather.BaseURL == "" {
		return fmt.Errorf("weather.base_url is required")
	}
	if c.Weather.Timeout < 100*time.Millisecond {
		return fmt.Errorf("weather.timeout must be at least 100ms")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Telegram.Listen && !c.Telegram.Enabled {
		return fmt.Errorf("telegram.listen requires telegram.enabled")
	}

	if c.Chart.Enabled && c.Chart.OutputDir == "" {
		return fmt.Errorf("chart.output_dir is required when charts are enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
