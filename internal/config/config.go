package config

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/addrenrich/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Input   InputConfig   `yaml:"input" mapstructure:"input"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// InputConfig describes the registry file format.
type InputConfig struct {
	Source    string `yaml:"source" mapstructure:"source"`
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
	Encoding  string `yaml:"encoding" mapstructure:"encoding"`
}

// DelimiterRune returns the field delimiter as a rune (';' if unset).
func (i InputConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(i.Delimiter)
	if r == utf8.RuneError {
		return ';'
	}
	return r
}

// GeocodeConfig configures the geocoding endpoint and the run-wide ceilings.
type GeocodeConfig struct {
	Endpoint    string        `yaml:"endpoint" mapstructure:"endpoint"`
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit   int           `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateWindow  time.Duration `yaml:"rate_window" mapstructure:"rate_window"`
	Burst       int           `yaml:"burst" mapstructure:"burst"`
	Cooldown    time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	CachePath   string        `yaml:"cache_path" mapstructure:"cache_path"`
}

// Limits converts the ceilings to resilience settings.
func (g GeocodeConfig) Limits() resilience.LimitsConfig {
	return resilience.LimitsConfig{
		Concurrency: g.Concurrency,
		RateLimit:   g.RateLimit,
		RateWindow:  g.RateWindow,
		Burst:       g.Burst,
		Cooldown:    g.Cooldown,
	}
}

// BatchConfig configures batching.
type BatchConfig struct {
	Size int `yaml:"size" mapstructure:"size"`
}

// OutputConfig configures where the GeoJSON file is written.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// FetchConfig configures input downloads.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// MetricsConfig configures the optional metrics endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADDRENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.source", "Post_Adressdaten20170425.csv")
	v.SetDefault("input.delimiter", ";")
	v.SetDefault("input.encoding", "iso-8859-1")
	v.SetDefault("geocode.endpoint", "http://localhost:5000/api/geo")
	v.SetDefault("geocode.concurrency", 252)
	v.SetDefault("geocode.rate_limit", 80)
	v.SetDefault("geocode.rate_window", "1s")
	v.SetDefault("geocode.burst", 1)
	v.SetDefault("geocode.cooldown", "5s")
	v.SetDefault("geocode.timeout", "30s")
	v.SetDefault("geocode.cache_path", "")
	v.SetDefault("batch.size", 50000)
	v.SetDefault("output.dir", "")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.temp_dir", "")
	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the values an enrichment run depends on.
func (c *Config) Validate() error {
	var problems []string
	if c.Geocode.Endpoint == "" {
		problems = append(problems, "geocode.endpoint is required")
	}
	if c.Geocode.Concurrency <= 0 {
		problems = append(problems, "geocode.concurrency must be > 0")
	}
	if c.Geocode.RateLimit <= 0 {
		problems = append(problems, "geocode.rate_limit must be > 0")
	}
	if c.Geocode.RateWindow <= 0 {
		problems = append(problems, "geocode.rate_window must be > 0")
	}
	if c.Geocode.Burst <= 0 {
		problems = append(problems, "geocode.burst must be > 0")
	}
	if c.Geocode.Cooldown < 0 {
		problems = append(problems, "geocode.cooldown must be >= 0")
	}
	if c.Geocode.Timeout < 0 {
		problems = append(problems, "geocode.timeout must be >= 0")
	}
	if c.Batch.Size <= 0 {
		problems = append(problems, "batch.size must be > 0")
	}
	if utf8.RuneCountInString(c.Input.Delimiter) != 1 {
		problems = append(problems, "input.delimiter must be a single character")
	}
	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
