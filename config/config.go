package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/suwandre/arbwatch/internal/exchange"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	SinkCSV      = "csv"
	SinkPostgres = "postgres"
	SinkS3       = "s3"
)

type Config struct {
	Symbol          string                 `toml:"symbol"`
	PollInterval    Duration               `toml:"poll_interval"`
	VenueTimeout    Duration               `toml:"venue_timeout"`
	Capital         float64                `toml:"capital"`
	DefaultMakerFee float64                `toml:"default_maker_fee"`
	DefaultTakerFee float64                `toml:"default_taker_fee"`
	Exchanges       []string               `toml:"exchanges"`
	Credentials     map[string]Credentials `toml:"credentials"`
	// Zero keeps fetched fee schedules for the life of the process.
	FeeRefresh Duration `toml:"fee_refresh"`

	History HistoryConfig `toml:"history"`
	Redis   RedisConfig   `toml:"redis"`

	AppPort      string `toml:"app_port"`
	StreamPort   string `toml:"stream_port"`
	LogLevel     string `toml:"log_level"`
	ConsoleTable bool   `toml:"console_table"`
}

type Credentials struct {
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
}

type HistoryConfig struct {
	Sinks       []string `toml:"sinks"`
	CSVPath     string   `toml:"csv_path"`
	PostgresDSN string   `toml:"postgres_dsn"`
	S3          S3Config `toml:"s3"`
}

type S3Config struct {
	Bucket         string `toml:"bucket"`
	Region         string `toml:"region"`
	Endpoint       string `toml:"endpoint"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Channel  string `toml:"channel"`
}

// Duration decodes TOML strings such as "10s" or "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Defaults() Config {
	return Config{
		Symbol:          "ETH/BRL",
		PollInterval:    Duration{10 * time.Second},
		VenueTimeout:    Duration{8 * time.Second},
		Capital:         5000,
		DefaultMakerFee: 0.0002,
		DefaultTakerFee: 0.0003,
		Exchanges:       []string{"okx", "mercado", "novadax", "binance", "kucoin"},
		Credentials:     map[string]Credentials{},
		History: HistoryConfig{
			Sinks:   []string{SinkCSV},
			CSVPath: "arbitrage_history.csv",
			S3:      S3Config{Prefix: "opportunities"},
		},
		Redis:        RedisConfig{Channel: "arbwatch:rounds"},
		AppPort:      "3000",
		StreamPort:   "3001",
		LogLevel:     "info",
		ConsoleTable: true,
	}
}

// Load layers, in order: built-in defaults, the TOML file at path (skipped
// when path is empty), a .env file if present, then environment variables.
// The result has not been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, reading from environment directly")
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	cfg.Exchanges = normalizeList(cfg.Exchanges)
	cfg.History.Sinks = normalizeList(cfg.History.Sinks)

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	e := &envReader{}

	cfg.Symbol = getEnv("SYMBOL", cfg.Symbol)
	e.duration(&cfg.PollInterval, "POLL_INTERVAL")
	e.duration(&cfg.VenueTimeout, "VENUE_TIMEOUT")
	e.float(&cfg.Capital, "CAPITAL")
	e.float(&cfg.DefaultMakerFee, "DEFAULT_MAKER_FEE")
	e.float(&cfg.DefaultTakerFee, "DEFAULT_TAKER_FEE")
	e.list(&cfg.Exchanges, "EXCHANGES")
	e.duration(&cfg.FeeRefresh, "FEE_REFRESH")

	if cfg.Credentials == nil {
		cfg.Credentials = map[string]Credentials{}
	}
	for _, name := range exchange.Names() {
		if !exchange.UsesCredentials(name) {
			continue
		}
		prefix := strings.ToUpper(name)
		creds := cfg.Credentials[name]
		creds.APIKey = getEnv(prefix+"_API_KEY", creds.APIKey)
		creds.APISecret = getEnv(prefix+"_API_SECRET", creds.APISecret)
		if creds.APIKey != "" || creds.APISecret != "" {
			cfg.Credentials[name] = creds
		}
	}

	e.list(&cfg.History.Sinks, "HISTORY_SINKS")
	cfg.History.CSVPath = getEnv("HISTORY_CSV_PATH", cfg.History.CSVPath)
	cfg.History.PostgresDSN = getEnv("POSTGRES_DSN", cfg.History.PostgresDSN)

	s3 := &cfg.History.S3
	s3.Bucket = getEnv("S3_BUCKET", s3.Bucket)
	s3.Region = getEnv("S3_REGION", s3.Region)
	s3.Endpoint = getEnv("S3_ENDPOINT", s3.Endpoint)
	s3.Prefix = getEnv("S3_PREFIX", s3.Prefix)
	s3.AccessKey = getEnv("S3_ACCESS_KEY", s3.AccessKey)
	s3.SecretKey = getEnv("S3_SECRET_KEY", s3.SecretKey)
	e.bool(&s3.ForcePathStyle, "S3_FORCE_PATH_STYLE")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	e.int(&cfg.Redis.DB, "REDIS_DB")
	cfg.Redis.Channel = getEnv("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.AppPort = getEnv("APP_PORT", cfg.AppPort)
	cfg.StreamPort = getEnv("STREAM_PORT", cfg.StreamPort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	e.bool(&cfg.ConsoleTable, "CONSOLE_TABLE")

	return errors.Join(e.errs...)
}

// Validate reports every problem at once; each is wrapped with ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if _, _, err := exchange.SplitSymbol(c.Symbol); err != nil {
		invalid("symbol: %v", err)
	}
	if c.PollInterval.Duration <= 0 {
		invalid("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.VenueTimeout.Duration <= 0 {
		invalid("venue_timeout must be positive, got %s", c.VenueTimeout)
	}
	if c.FeeRefresh.Duration < 0 {
		invalid("fee_refresh must not be negative, got %s", c.FeeRefresh)
	}
	if !(c.Capital > 0) || math.IsInf(c.Capital, 0) {
		invalid("capital must be positive, got %v", c.Capital)
	}
	if !validFee(c.DefaultMakerFee) {
		invalid("default_maker_fee must be in [0,1), got %v", c.DefaultMakerFee)
	}
	if !validFee(c.DefaultTakerFee) {
		invalid("default_taker_fee must be in [0,1), got %v", c.DefaultTakerFee)
	}

	if len(c.Exchanges) == 0 {
		invalid("at least one exchange is required")
	}
	seen := make(map[string]bool, len(c.Exchanges))
	for _, name := range c.Exchanges {
		if !exchange.Supported(name) {
			invalid("unknown exchange %q (supported: %s)", name, strings.Join(exchange.Names(), ", "))
		}
		if seen[name] {
			invalid("exchange %q listed twice", name)
		}
		seen[name] = true
	}

	for venue := range c.Credentials {
		if !exchange.UsesCredentials(venue) {
			invalid("credentials configured for %q, which has no authenticated endpoint", venue)
		}
	}

	for _, sink := range c.History.Sinks {
		switch sink {
		case SinkCSV:
			if c.History.CSVPath == "" {
				invalid("csv history sink needs csv_path")
			}
		case SinkPostgres:
			if c.History.PostgresDSN == "" {
				invalid("postgres history sink needs postgres_dsn")
			}
		case SinkS3:
			if c.History.S3.Bucket == "" || c.History.S3.Region == "" {
				invalid("s3 history sink needs bucket and region")
			}
		default:
			invalid("unknown history sink %q", sink)
		}
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		invalid("log_level: %v", err)
	}

	return errors.Join(errs...)
}

// CredentialsFor returns the API credentials configured for a venue, if any.
func (c *Config) CredentialsFor(venue string) exchange.Credentials {
	creds := c.Credentials[venue]
	return exchange.Credentials{APIKey: creds.APIKey, APISecret: creds.APISecret}
}

func validFee(f float64) bool {
	return f >= 0 && f < 1
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// envReader applies typed overrides and collects malformed values.
type envReader struct {
	errs []error
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, value, err))
}

func (e *envReader) float(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) int(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) bool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		dst.Duration = d
	}
}

func (e *envReader) list(dst *[]string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.Split(v, ",")
	}
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}
