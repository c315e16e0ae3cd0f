package configuration

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvConfigPath     = "FYERS_CONFIG_PATH"
	DefaultConfigPath = "./config/config.json"

	DefaultTimezone = "Asia/Kolkata"
)

// Config struct to hold the configuration data
type Config struct {
	GlobalSettings    GlobalSettings    `mapstructure:"global_settings" json:"global_settings"`
	Fyers             Fyers             `mapstructure:"fyers" json:"fyers"`
	Telegram          Telegram          `mapstructure:"telegram" json:"telegram"`
	History           History           `mapstructure:"history" json:"history"`
	Retry             Retry             `mapstructure:"retry" json:"retry"`
	Database          Database          `mapstructure:"database" json:"database"`
	Logging           Logging           `mapstructure:"logging" json:"logging"`
	RabbitMQ          RabbitMQ          `mapstructure:"rabbitmq" json:"rabbitmq"`
	SchedulerSettings SchedulerSettings `mapstructure:"scheduler_settings" json:"scheduler_settings"`
}

type GlobalSettings struct {
	AppName  string `mapstructure:"app_name" json:"app_name"`
	Version  string `mapstructure:"version" json:"version"`
	Timezone string `mapstructure:"timezone" json:"timezone"`
}

// Fyers holds the broker credentials and endpoints. Secrets usually come from the environment.
type Fyers struct {
	AppID                 string `mapstructure:"app_id" json:"app_id"`
	AppType               string `mapstructure:"app_type" json:"app_type"`
	SecretKey             string `mapstructure:"secret_key" json:"secret_key"`
	FyersID               string `mapstructure:"fyers_id" json:"fyers_id"`
	TOTPKey               string `mapstructure:"totp_key" json:"totp_key"`
	UserPin               string `mapstructure:"userpin" json:"userpin"`
	RedirectURI           string `mapstructure:"redirect_uri" json:"redirect_uri"`
	LoginBaseURL          string `mapstructure:"login_base_url" json:"login_base_url"`
	APIBaseURL            string `mapstructure:"api_base_url" json:"api_base_url"`
	DataBaseURL           string `mapstructure:"data_base_url" json:"data_base_url"`
	SessionDir            string `mapstructure:"session_dir" json:"session_dir"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" json:"request_timeout_seconds"`
	RateLimitPerSecond    int    `mapstructure:"rate_limit_per_second" json:"rate_limit_per_second"`
	RateLimitPerMinute    int    `mapstructure:"rate_limit_per_minute" json:"rate_limit_per_minute"`
}

type Telegram struct {
	BotToken string `mapstructure:"bot_token" json:"bot_token"`
	ChatID   string `mapstructure:"chat_id" json:"chat_id"`
	BaseURL  string `mapstructure:"base_url" json:"base_url"`
	// UseMQ routes notifications through RabbitMQ to the relay instead of calling Telegram directly.
	UseMQ bool `mapstructure:"use_mq" json:"use_mq"`
}

type History struct {
	Resolution          string   `mapstructure:"resolution" json:"resolution"`
	StartDate           string   `mapstructure:"start_date" json:"start_date"`
	DailyMaxSpanDays    int      `mapstructure:"daily_max_span_days" json:"daily_max_span_days"`
	IntradayMaxSpanDays int      `mapstructure:"intraday_max_span_days" json:"intraday_max_span_days"`
	Workers             int      `mapstructure:"workers" json:"workers"`
	CacheSize           int      `mapstructure:"cache_size" json:"cache_size"`
	Continuous          bool     `mapstructure:"continuous" json:"continuous"`
	Symbols             []string `mapstructure:"symbols" json:"symbols"`
	SymbolMasterURL     string   `mapstructure:"symbol_master_url" json:"symbol_master_url"`
	IndexURL            string   `mapstructure:"index_url" json:"index_url"`
	ParquetPath         string   `mapstructure:"parquet_path" json:"parquet_path"`
}

type RetrySettings struct {
	MaxAttempts         int     `mapstructure:"max_attempts" json:"max_attempts"`
	InitialDelaySeconds float64 `mapstructure:"initial_delay_seconds" json:"initial_delay_seconds"`
	BackoffFactor       float64 `mapstructure:"backoff_factor" json:"backoff_factor"`
}

// InitialDelay converts the configured seconds to a duration.
func (r RetrySettings) InitialDelay() time.Duration {
	return time.Duration(r.InitialDelaySeconds * float64(time.Second))
}

type Retry struct {
	Login  RetrySettings `mapstructure:"login" json:"login"`
	Fetch  RetrySettings `mapstructure:"fetch" json:"fetch"`
	Scrape RetrySettings `mapstructure:"scrape" json:"scrape"`
}

type Database struct {
	Type string `mapstructure:"type" json:"type"`
	Path string `mapstructure:"path" json:"path"`
}

type Logging struct {
	Level         string `mapstructure:"level" json:"level"`   // debug, info, warn, error
	Format        string `mapstructure:"format" json:"format"` // text or json
	FilePath      string `mapstructure:"file_path" json:"file_path"`
	RotationSize  int    `mapstructure:"rotation_size" json:"rotation_size"` // in MB
	MaxBackups    int    `mapstructure:"max_backups" json:"max_backups"`
	ConsoleOutput bool   `mapstructure:"console_output" json:"console_output"`
}

type RabbitMQ struct {
	Host        string        `mapstructure:"host" json:"host"`
	Port        int           `mapstructure:"port" json:"port"`
	Username    string        `mapstructure:"username" json:"username"`
	Password    string        `mapstructure:"password" json:"password"`
	VirtualHost string        `mapstructure:"virtual_host" json:"virtual_host"`
	Queues      []QueueConfig `mapstructure:"queues" json:"queues"`
}

type QueueConfig struct {
	Name       string `mapstructure:"name" json:"name"`
	Durable    bool   `mapstructure:"durable" json:"durable"`
	AutoDelete bool   `mapstructure:"auto_delete" json:"auto_delete"`
}

// SchedulerSettings holds the daily job times as HH:MM in Timezone.
type SchedulerSettings struct {
	Enabled            bool   `mapstructure:"enabled" json:"enabled"`
	Timezone           string `mapstructure:"timezone" json:"timezone"`
	SessionRefreshTime string `mapstructure:"session_refresh_time" json:"session_refresh_time"`
	HistoryUpdateTime  string `mapstructure:"history_update_time" json:"history_update_time"`
}

// ConfigPath returns the config file location from FYERS_CONFIG_PATH, or the default.
func ConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigPath
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("global_settings.app_name", "fyersbot")
	v.SetDefault("global_settings.version", "1.0.0")
	v.SetDefault("global_settings.timezone", DefaultTimezone)

	v.SetDefault("fyers.redirect_uri", "https://trade.fyers.in/api-login/redirect-uri/index.html")
	v.SetDefault("fyers.login_base_url", "https://api-t2.fyers.in/vagator/v2")
	v.SetDefault("fyers.api_base_url", "https://api-t1.fyers.in/api/v3")
	v.SetDefault("fyers.data_base_url", "https://api-t1.fyers.in/data")
	v.SetDefault("fyers.session_dir", "./data/session")
	v.SetDefault("fyers.request_timeout_seconds", 5)
	v.SetDefault("fyers.rate_limit_per_second", 10)
	v.SetDefault("fyers.rate_limit_per_minute", 200)

	v.SetDefault("telegram.base_url", "https://api.telegram.org")

	v.SetDefault("history.resolution", "D")
	v.SetDefault("history.start_date", "2010-01-01")
	v.SetDefault("history.daily_max_span_days", 365)
	v.SetDefault("history.intraday_max_span_days", 100)
	v.SetDefault("history.workers", 5)
	v.SetDefault("history.cache_size", 100)
	v.SetDefault("history.symbol_master_url", "https://public.fyers.in/sym_details/NSE_CM.csv")
	v.SetDefault("history.index_url", "https://archives.nseindia.com/content/indices/ind_nifty500list.csv")
	v.SetDefault("history.parquet_path", "./data/ohlc_data.parquet.gzip")

	v.SetDefault("retry.login.max_attempts", 3)
	v.SetDefault("retry.login.initial_delay_seconds", 3)
	v.SetDefault("retry.login.backoff_factor", 2)
	v.SetDefault("retry.fetch.max_attempts", 5)
	v.SetDefault("retry.fetch.initial_delay_seconds", 2)
	v.SetDefault("retry.fetch.backoff_factor", 2)
	v.SetDefault("retry.scrape.max_attempts", 5)
	v.SetDefault("retry.scrape.initial_delay_seconds", 2)
	v.SetDefault("retry.scrape.backoff_factor", 3)

	v.SetDefault("database.type", "duckdb")
	v.SetDefault("database.path", "./data/market.duckdb")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file_path", "./log")
	v.SetDefault("logging.rotation_size", 2)
	v.SetDefault("logging.max_backups", 30)
	v.SetDefault("logging.console_output", true)

	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.username", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.virtual_host", "/")

	v.SetDefault("scheduler_settings.enabled", true)
	v.SetDefault("scheduler_settings.timezone", DefaultTimezone)
	v.SetDefault("scheduler_settings.session_refresh_time", "08:45")
	v.SetDefault("scheduler_settings.history_update_time", "16:15")
}

// envBindings maps config keys to environment variables, upper-case first, then the
// lower-case names used by older deployments.
var envBindings = map[string][]string{
	"fyers.app_id":       {"FYERS_APP_ID", "fyers_app_id"},
	"fyers.app_type":     {"FYERS_APP_TYPE", "fyers_app_type"},
	"fyers.secret_key":   {"FYERS_SECRET_KEY", "fyers_secret_key"},
	"fyers.fyers_id":     {"FYERS_ID", "fyers_id"},
	"fyers.totp_key":     {"FYERS_TOTP_KEY", "fyers_totp_key"},
	"fyers.userpin":      {"FYERS_USERPIN", "fyers_userpin"},
	"telegram.bot_token": {"TELEGRAM_BOT_TOKEN", "telegram_bot_token"},
	"telegram.chat_id":   {"TELEGRAM_CHAT_ID", "telegram_chat_id"},
	"rabbitmq.password":  {"FYERS_RABBITMQ_PASSWORD"},
	"database.path":      {"FYERS_DATABASE_PATH"},
	"logging.level":      {"FYERS_LOG_LEVEL"},
}

// LoadConfig reads the JSON file at filePath, applies defaults and lets the environment
// override secrets. A missing file is tolerated; a malformed one is not.
func LoadConfig(filePath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to unmarshal config JSON: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &config, nil
}

func parseClock(value string) error {
	_, err := time.Parse("15:04", value)
	return err
}

func validateRetry(name string, r RetrySettings) error {
	if r.MaxAttempts < 0 {
		return fmt.Errorf("retry.%s.max_attempts cannot be negative", name)
	}
	if r.InitialDelaySeconds <= 0 {
		return fmt.Errorf("retry.%s.initial_delay_seconds must be positive", name)
	}
	if r.BackoffFactor <= 1 {
		return fmt.Errorf("retry.%s.backoff_factor must be greater than 1", name)
	}
	return nil
}

// ValidateConfig checks the settings every binary needs. Broker credentials are checked
// separately when a login is attempted.
func (c *Config) ValidateConfig() error {
	if c.GlobalSettings.AppName == "" {
		return fmt.Errorf("global_settings.app_name is required")
	}
	if _, err := time.LoadLocation(c.GlobalSettings.Timezone); err != nil {
		return fmt.Errorf("global_settings.timezone is invalid: %s, error: %w", c.GlobalSettings.Timezone, err)
	}

	if c.Fyers.LoginBaseURL == "" || c.Fyers.APIBaseURL == "" || c.Fyers.DataBaseURL == "" {
		return fmt.Errorf("fyers.login_base_url, fyers.api_base_url and fyers.data_base_url are required")
	}
	if c.Fyers.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("fyers.request_timeout_seconds must be positive")
	}

	if c.History.Resolution == "" {
		return fmt.Errorf("history.resolution is required")
	}
	if _, err := time.Parse("2006-01-02", c.History.StartDate); err != nil {
		return fmt.Errorf("history.start_date is invalid: %s", c.History.StartDate)
	}
	if c.History.DailyMaxSpanDays <= 0 {
		return fmt.Errorf("history.daily_max_span_days must be positive")
	}
	if c.History.IntradayMaxSpanDays <= 0 {
		return fmt.Errorf("history.intraday_max_span_days must be positive")
	}
	if c.History.Workers <= 0 {
		return fmt.Errorf("history.workers must be positive")
	}
	if c.History.CacheSize <= 0 {
		return fmt.Errorf("history.cache_size must be positive")
	}

	if err := validateRetry("login", c.Retry.Login); err != nil {
		return err
	}
	if err := validateRetry("fetch", c.Retry.Fetch); err != nil {
		return err
	}
	if err := validateRetry("scrape", c.Retry.Scrape); err != nil {
		return err
	}

	if c.Database.Type != "duckdb" {
		return fmt.Errorf("database.type is invalid: %s", c.Database.Type)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level is required")
	}
	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	levelIsValid := false
	for _, level := range validLogLevels {
		if strings.ToLower(c.Logging.Level) == level {
			levelIsValid = true
			break
		}
	}
	if !levelIsValid {
		return fmt.Errorf("logging.level is invalid: %s", c.Logging.Level)
	}
	if f := strings.ToLower(c.Logging.Format); f != "" && f != "text" && f != "json" {
		return fmt.Errorf("logging.format is invalid: %s", c.Logging.Format)
	}
	if c.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path is required")
	}
	if c.Logging.RotationSize <= 0 {
		return fmt.Errorf("logging.rotation_size must be positive")
	}
	if c.Logging.MaxBackups < 0 {
		return fmt.Errorf("logging.max_backups cannot be negative")
	}

	if c.Telegram.UseMQ {
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq.host is required")
		}
		if c.RabbitMQ.Port <= 0 {
			return fmt.Errorf("rabbitmq.port must be positive")
		}
		if c.RabbitMQ.Username == "" {
			return fmt.Errorf("rabbitmq.username is required")
		}
	}
	for _, q := range c.RabbitMQ.Queues {
		if q.Name == "" {
			return fmt.Errorf("rabbitmq.queues.name is required")
		}
	}

	if c.SchedulerSettings.Enabled {
		if c.SchedulerSettings.Timezone == "" {
			return fmt.Errorf("scheduler_settings.timezone is required when scheduler is enabled")
		}
		if _, err := time.LoadLocation(c.SchedulerSettings.Timezone); err != nil {
			return fmt.Errorf("scheduler_settings.timezone is invalid: %s, error: %w", c.SchedulerSettings.Timezone, err)
		}
		if err := parseClock(c.SchedulerSettings.SessionRefreshTime); err != nil {
			return fmt.Errorf("scheduler_settings.session_refresh_time is invalid: %s", c.SchedulerSettings.SessionRefreshTime)
		}
		if err := parseClock(c.SchedulerSettings.HistoryUpdateTime); err != nil {
			return fmt.Errorf("scheduler_settings.history_update_time is invalid: %s", c.SchedulerSettings.HistoryUpdateTime)
		}
	}

	return nil
}

// GetConfigValue retrieves a configuration value using a dot-separated key of JSON names,
// e.g. "history.workers" or "rabbitmq.queues.0.name".
func (c *Config) GetConfigValue(key string) (interface{}, error) {
	currentValue := reflect.ValueOf(c).Elem()

	for _, part := range strings.Split(key, ".") {
		if index, err := strconv.Atoi(part); err == nil {
			if currentValue.Kind() != reflect.Slice {
				return nil, fmt.Errorf("key part '%s' is an index but not a slice in key '%s'", part, key)
			}
			if index < 0 || index >= currentValue.Len() {
				return nil, fmt.Errorf("index out of range for key part '%s' in key '%s'", part, key)
			}
			currentValue = currentValue.Index(index)
			continue
		}

		if currentValue.Kind() != reflect.Struct {
			return nil, fmt.Errorf("key part '%s' is not a struct in key '%s'", part, key)
		}
		field, ok := fieldByTag(currentValue, part)
		if !ok {
			return nil, fmt.Errorf("key part '%s' not found in key '%s'", part, key)
		}
		currentValue = field
	}
	return currentValue.Interface(), nil
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("json"), ",")[0]
		if tag == name || strings.EqualFold(f.Name, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}
