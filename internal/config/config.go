package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"CryptoBoard/internal/model"
	"CryptoBoard/internal/projector"
)

// Config holds all application configuration.
type Config struct {
	Source struct {
		URL        string `yaml:"url"`
		TimeoutSec int    `yaml:"timeout_sec"`
		FieldMap   string `yaml:"field_map"`
	} `yaml:"source"`
	Cache struct {
		// TTLSec 0 keeps the listing until explicitly invalidated.
		TTLSec *int `yaml:"ttl_sec"`
	} `yaml:"cache"`
	Board struct {
		Unit    string   `yaml:"unit"`
		TopN    int      `yaml:"top_n"`
		Symbols []string `yaml:"symbols"`
		Sort    string   `yaml:"sort"`
		Chart   string   `yaml:"chart"`
	} `yaml:"board"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		Retries     int    `yaml:"retries"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
		MaxAge int    `yaml:"max_age"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// DefaultPath is used when neither -config nor CONFIG_PATH is given.
const DefaultPath = "configs/config.yaml"

// Path resolves the config file location from the flag value and CONFIG_PATH.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// LoadEnv loads a .env file into the environment when one exists.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
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

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyEnv() error {
	envString("BOARD_SOURCE_URL", &c.Source.URL)
	envString("BOARD_UNIT", &c.Board.Unit)
	envString("BOARD_SORT", &c.Board.Sort)
	envString("BOARD_FIELD_MAP", &c.Source.FieldMap)
	envString("BOARD_REFRESH_CRON", &c.Schedule.RefreshCron)
	envString("SQLITE_PATH", &c.Database.SQLitePath)
	envString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	envString("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	envString("HTTPS_PROXY", &c.Proxy)
	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)
	envString("LOG_OUTPUT", &c.Log.Output)

	if v := os.Getenv("BOARD_SYMBOLS"); v != "" {
		c.Board.Symbols = SplitSymbols(v)
	}
	if err := envInt("BOARD_TIMEOUT_SEC", &c.Source.TimeoutSec); err != nil {
		return err
	}
	if err := envInt("BOARD_TOP_N", &c.Board.TopN); err != nil {
		return err
	}
	if v := os.Getenv("BOARD_CACHE_TTL_SEC"); v != "" {
		ttl := 0
		if err := envInt("BOARD_CACHE_TTL_SEC", &ttl); err != nil {
			return err
		}
		c.Cache.TTLSec = &ttl
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Source.URL == "" {
		c.Source.URL = "https://coinmarketcap.com"
	}
	if c.Source.TimeoutSec == 0 {
		c.Source.TimeoutSec = 5
	}
	if c.Source.FieldMap == "" {
		c.Source.FieldMap = string(projector.ModeStatic)
	}
	if c.Cache.TTLSec == nil {
		ttl := 300
		c.Cache.TTLSec = &ttl
	}
	if c.Board.Unit == "" {
		c.Board.Unit = string(model.UnitUSD)
	}
	if c.Board.TopN == 0 {
		c.Board.TopN = 50
	}
	if c.Board.Sort == "" {
		c.Board.Sort = "none"
	}
	if c.Board.Chart == "" {
		c.Board.Chart = string(model.Horizon7d)
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 */5 * * * *"
	}
	if c.Schedule.Retries == 0 {
		c.Schedule.Retries = 3
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stderr"
	}
}

// SplitSymbols parses a comma separated symbol list.
func SplitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SortHorizon returns the sort horizon, or "" when sorting is off.
func (c *Config) SortHorizon() (model.Horizon, error) {
	if c.Board.Sort == "" || strings.EqualFold(c.Board.Sort, "none") {
		return "", nil
	}
	return model.ParseHorizon(c.Board.Sort)
}

// TelegramEnabled reports whether push and chat commands are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if c.Source.TimeoutSec <= 0 {
		return fmt.Errorf("source.timeout_sec must be positive")
	}
	if _, err := projector.ParseMode(c.Source.FieldMap); err != nil {
		return fmt.Errorf("source.field_map: %w", err)
	}
	if c.Cache.TTLSec != nil && *c.Cache.TTLSec < 0 {
		return fmt.Errorf("cache.ttl_sec must not be negative")
	}
	if _, err := model.ParseUnit(c.Board.Unit); err != nil {
		return fmt.Errorf("board.unit: %w", err)
	}
	if c.Board.TopN < 1 {
		return fmt.Errorf("board.top_n must be at least 1")
	}
	if _, err := c.SortHorizon(); err != nil {
		return fmt.Errorf("board.sort: %w", err)
	}
	if _, err := model.ParseHorizon(c.Board.Chart); err != nil {
		return fmt.Errorf("board.chart: %w", err)
	}
	if _, err := cronParser.Parse(c.Schedule.RefreshCron); err != nil {
		return fmt.Errorf("schedule.refresh_cron: %w", err)
	}
	if c.Schedule.Retries < 1 {
		return fmt.Errorf("schedule.retries must be at least 1")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
