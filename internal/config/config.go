package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Asia/Taipei"

	configPathEnv         = "TRENDSCAN_CONFIG"
	geminiAPIKeyEnv       = "GEMINI_API_KEY"
	modelNameEnv          = "MODEL_NAME"
	targetProductEnv      = "TARGET_PRODUCT"
	productDescriptionEnv = "PRODUCT_DESCRIPTION"
	scoreThresholdEnv     = "SCORE_THRESHOLD"
	concurrencyEnv        = "CONCURRENCY"
	databaseDSNEnv        = "DATABASE_DSN"
	telegramTokenEnv      = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv     = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Feed          FeedConfig         `yaml:"feed"`
	Collector     CollectorConfig    `yaml:"collector"`
	Analyzer      AnalyzerConfig     `yaml:"analyzer"`
	Database      DatabaseConfig     `yaml:"database"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// FeedConfig describes the upstream rolling-feed endpoints.
type FeedConfig struct {
	ListURL               string   `yaml:"listUrl"`
	RollURL               string   `yaml:"rollUrl"`
	ExcludedTags          []string `yaml:"excludedTags"`
	RequestTimeoutSeconds int      `yaml:"requestTimeoutSeconds"`
}

// RequestTimeout resolves the per-request HTTP timeout.
func (f FeedConfig) RequestTimeout() time.Duration {
	if f.RequestTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(f.RequestTimeoutSeconds) * time.Second
}

// CollectorConfig controls artifact placement.
type CollectorConfig struct {
	DataDir string `yaml:"dataDir"`
	Source  string `yaml:"source"`
}

// AnalyzerConfig carries the scoring-pipeline settings. APIKey comes
// from the environment only and is never written to the YAML file.
type AnalyzerConfig struct {
	TargetProduct      string  `yaml:"targetProduct"`
	ProductDescription string  `yaml:"productDescription"`
	ScoreThreshold     float64 `yaml:"scoreThreshold"`
	Concurrency        int     `yaml:"concurrency"`
	Model              string  `yaml:"model"`
	CallTimeoutSeconds int     `yaml:"callTimeoutSeconds"`
	APIKey             string  `yaml:"-"`
}

// CallTimeout resolves the per-LLM-call timeout.
func (a AnalyzerConfig) CallTimeout() time.Duration {
	if a.CallTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(a.CallTimeoutSeconds) * time.Second
}

// DatabaseConfig describes the optional run-history Postgres.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig defines when the daily pipeline runs.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Analyzer.APIKey = v
	}
	if v := os.Getenv(modelNameEnv); v != "" {
		c.Analyzer.Model = v
	}
	if v := os.Getenv(targetProductEnv); v != "" {
		c.Analyzer.TargetProduct = v
	}
	if v := os.Getenv(productDescriptionEnv); v != "" {
		c.Analyzer.ProductDescription = v
	}
	if v := os.Getenv(scoreThresholdEnv); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			c.Analyzer.ScoreThreshold = parsed
		}
	}
	if v := os.Getenv(concurrencyEnv); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.Analyzer.Concurrency = parsed
		}
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Feed.ListURL != "" {
		base.Feed.ListURL = override.Feed.ListURL
	}
	if override.Feed.RollURL != "" {
		base.Feed.RollURL = override.Feed.RollURL
	}
	if len(override.Feed.ExcludedTags) > 0 {
		base.Feed.ExcludedTags = override.Feed.ExcludedTags
	}
	if override.Feed.RequestTimeoutSeconds > 0 {
		base.Feed.RequestTimeoutSeconds = override.Feed.RequestTimeoutSeconds
	}

	if override.Collector.DataDir != "" {
		base.Collector.DataDir = override.Collector.DataDir
	}
	if override.Collector.Source != "" {
		base.Collector.Source = override.Collector.Source
	}

	if override.Analyzer.TargetProduct != "" {
		base.Analyzer.TargetProduct = override.Analyzer.TargetProduct
	}
	if override.Analyzer.ProductDescription != "" {
		base.Analyzer.ProductDescription = override.Analyzer.ProductDescription
	}
	if override.Analyzer.ScoreThreshold > 0 {
		base.Analyzer.ScoreThreshold = override.Analyzer.ScoreThreshold
	}
	if override.Analyzer.Concurrency > 0 {
		base.Analyzer.Concurrency = override.Analyzer.Concurrency
	}
	if override.Analyzer.Model != "" {
		base.Analyzer.Model = override.Analyzer.Model
	}
	if override.Analyzer.CallTimeoutSeconds > 0 {
		base.Analyzer.CallTimeoutSeconds = override.Analyzer.CallTimeoutSeconds
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Feed: FeedConfig{
			ListURL:               "https://www.ettoday.net/news/news-list.htm",
			RollURL:               "https://www.ettoday.net/show_roll.php",
			RequestTimeoutSeconds: 15,
		},
		Collector: CollectorConfig{DataDir: "data", Source: "ettoday"},
		Analyzer: AnalyzerConfig{
			TargetProduct:      "手搖飲",
			ProductDescription: "手搖飲料品牌，產品包含珍珠奶茶、水果茶等",
			ScoreThreshold:     0.6,
			Concurrency:        10,
			Model:              "gemini-2.5-flash-lite",
			CallTimeoutSeconds: 60,
		},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
	}
}
