// Package config provides configuration management for the abstract word statistics tool.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/helixir/abstract-wordstats/internal/domain"
	"github.com/helixir/abstract-wordstats/internal/wordstats"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "WORDSTATS"

// DefaultQuery is the PubMed search term harvested when none is configured.
const DefaultQuery = `("Urology"[MeSH Terms] OR "Urology"[All Fields])`

// Config holds all configuration for the tool.
type Config struct {
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// PubMed contains E-utilities client settings.
	PubMed PubMedConfig `mapstructure:"pubmed"`
	// Harvest contains the download query and its paging settings.
	Harvest HarvestConfig `mapstructure:"harvest"`
	// Analysis contains word counting options.
	Analysis AnalysisConfig `mapstructure:"analysis"`
	// Storage selects where harvested articles are kept.
	Storage StorageConfig `mapstructure:"storage"`
	// Output contains result export settings.
	Output OutputConfig `mapstructure:"output"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	// Format is the log format (json, console, auto).
	Format string `mapstructure:"format" validate:"oneof=json console pretty auto"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output" validate:"oneof=stdout stderr"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled serves metrics over HTTP while a command runs.
	Enabled bool `mapstructure:"enabled"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace" validate:"required"`
	// Address is the listen address of the metrics endpoint.
	Address string `mapstructure:"address" validate:"required_if=Enabled true"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path" validate:"startswith=/"`
	// TextfilePath, when set, receives a snapshot of all metrics when a command ends.
	TextfilePath string `mapstructure:"textfile_path"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host" validate:"required"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (loaded from WORDSTATS_DATABASE_PASSWORD only).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name" validate:"required"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns" validate:"gtefield=MinConns"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns" validate:"min=0"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path" validate:"required"`
	// MigrationAutoRun applies pending migrations before the postgres store is used.
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
	// StatementCacheCapacity is the size of the prepared statement cache.
	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// PubMedConfig holds NCBI E-utilities client settings.
type PubMedConfig struct {
	// BaseURL is the E-utilities base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// APIKey is the NCBI API key (loaded from WORDSTATS_PUBMED_API_KEY only).
	APIKey string `mapstructure:"-"`
	// Email identifies the caller to NCBI.
	Email string `mapstructure:"email" validate:"omitempty,email"`
	// Tool identifies the calling software to NCBI.
	Tool string `mapstructure:"tool"`
	// Timeout is the timeout for a single API call.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// RateLimit is the maximum requests per second. Zero uses the NCBI limit for
	// the configured API key.
	RateLimit float64 `mapstructure:"rate_limit" validate:"min=0"`
	// MaxRetries is the number of retries of a failed request.
	MaxRetries int `mapstructure:"max_retries" validate:"min=1,max=20"`
	// RetryDelay is the delay before the first retry; later retries double it.
	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
	// MaxRetryDelay caps the delay between retries.
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay" validate:"gtefield=RetryDelay"`
}

// HarvestConfig holds the download settings.
type HarvestConfig struct {
	// Query is the PubMed search term, restricted per month during the harvest.
	Query string `mapstructure:"query" validate:"required"`
	// StartYear is the first publication year harvested.
	StartYear int `mapstructure:"start_year" validate:"min=1"`
	// EndYear is the last publication year harvested.
	EndYear int `mapstructure:"end_year" validate:"gtefield=StartYear"`
	// MaxPerQuery is the largest result set a single monthly query may return.
	MaxPerQuery int `mapstructure:"max_per_query" validate:"min=1,max=9999"`
	// ChunkSize is the number of PMIDs fetched per efetch call.
	ChunkSize int `mapstructure:"chunk_size" validate:"min=1,max=10000"`
	// Concurrency is the number of efetch calls in flight.
	Concurrency int `mapstructure:"concurrency" validate:"min=1,max=16"`
	// MaxAttempts bounds the attempts of one monthly query.
	MaxAttempts int `mapstructure:"max_attempts" validate:"min=1"`
	// InitialInterval is the first backoff interval between query attempts.
	InitialInterval time.Duration `mapstructure:"initial_interval" validate:"gt=0"`
	// MaxInterval caps the backoff interval between query attempts.
	MaxInterval time.Duration `mapstructure:"max_interval" validate:"gtefield=InitialInterval"`
}

// AnalysisConfig holds word counting options.
type AnalysisConfig struct {
	// WordsWeWant restricts the counted words. Empty counts every word.
	WordsWeWant []string `mapstructure:"words_we_want"`
	// WordsWeDontWant are removed before counting.
	WordsWeDontWant []string `mapstructure:"words_we_dont_want"`
	// DefaultStopwords adds the built-in stopword list to WordsWeDontWant.
	DefaultStopwords bool `mapstructure:"default_stopwords"`
	// FilterNumbers drops purely numeric tokens.
	FilterNumbers bool `mapstructure:"filter_numbers"`
	// YearWordMode also exports every retained (year, word) pair.
	YearWordMode bool `mapstructure:"year_word_mode"`
	// MinYear is the earliest accepted publication year.
	MinYear int `mapstructure:"min_year" validate:"min=0"`
	// MaxYear is the latest accepted publication year.
	MaxYear int `mapstructure:"max_year" validate:"gtefield=MinYear"`
}

// StorageConfig selects the article store.
type StorageConfig struct {
	// Backend is csv or postgres.
	Backend string `mapstructure:"backend" validate:"oneof=csv postgres"`
	// CSVPath is the dataset file of the csv backend.
	CSVPath string `mapstructure:"csv_path" validate:"required_if=Backend csv"`
}

// OutputConfig holds export settings.
type OutputConfig struct {
	// Dir is the directory receiving the result files.
	Dir string `mapstructure:"dir" validate:"required"`
	// Overwrite allows writing into an existing directory.
	Overwrite bool `mapstructure:"overwrite"`
	// BOM prefixes CSV files with a UTF-8 byte order mark.
	BOM bool `mapstructure:"bom"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// Options converts the analysis settings into analyzer options.
func (c *AnalysisConfig) Options() wordstats.Options {
	exclude := make([]string, 0, len(c.WordsWeDontWant))
	if c.DefaultStopwords {
		exclude = append(exclude, wordstats.DefaultStopwords()...)
	}
	exclude = append(exclude, c.WordsWeDontWant...)

	return wordstats.Options{
		WordsWeWant:     c.WordsWeWant,
		WordsWeDontWant: exclude,
		FilterNumbers:   c.FilterNumbers,
		YearWordMode:    c.YearWordMode,
	}
}

// YearBounds returns the accepted publication year range.
func (c *AnalysisConfig) YearBounds() wordstats.YearBounds {
	return wordstats.YearBounds{Min: c.MinYear, Max: c.MaxYear}
}

// Load loads configuration from environment variables and config files.
// When configFile is non-empty it is read instead of searching the default paths,
// and it must exist.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/abstract-wordstats")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found is OK, we'll use env vars and defaults
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.PubMed.APIKey = os.Getenv(EnvPrefix + "_PUBMED_API_KEY")
	cfg.Database.Password = os.Getenv(EnvPrefix + "_DATABASE_PASSWORD")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "auto")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "wordstats")
	v.SetDefault("metrics.address", ":9091")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.textfile_path", "")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wordstats")
	v.SetDefault("database.name", "abstract_wordstats")
	// Default to "require" for production security. Use WORDSTATS_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)
	v.SetDefault("database.statement_cache_capacity", 512)

	// PubMed defaults. The API key is loaded exclusively from the environment (see loadSecrets).
	v.SetDefault("pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("pubmed.email", "")
	v.SetDefault("pubmed.tool", "abstract-wordstats")
	v.SetDefault("pubmed.timeout", "60s")
	v.SetDefault("pubmed.rate_limit", 0)
	v.SetDefault("pubmed.max_retries", 5)
	v.SetDefault("pubmed.retry_delay", "2s")
	v.SetDefault("pubmed.max_retry_delay", "1m")

	// Harvest defaults
	v.SetDefault("harvest.query", DefaultQuery)
	v.SetDefault("harvest.start_year", wordstats.DefaultMinYear)
	v.SetDefault("harvest.end_year", wordstats.DefaultMaxYear)
	v.SetDefault("harvest.max_per_query", 9999) // esearch cannot page past 9999 records
	v.SetDefault("harvest.chunk_size", 500)
	v.SetDefault("harvest.concurrency", 2)
	v.SetDefault("harvest.max_attempts", 15)
	v.SetDefault("harvest.initial_interval", "15s")
	v.SetDefault("harvest.max_interval", "5m")

	// Analysis defaults
	v.SetDefault("analysis.words_we_want", []string{})
	v.SetDefault("analysis.words_we_dont_want", []string{})
	v.SetDefault("analysis.default_stopwords", true)
	v.SetDefault("analysis.filter_numbers", true)
	v.SetDefault("analysis.year_word_mode", false)
	v.SetDefault("analysis.min_year", wordstats.DefaultMinYear)
	v.SetDefault("analysis.max_year", wordstats.DefaultMaxYear)

	// Storage defaults
	v.SetDefault("storage.backend", string(domain.StorageBackendCSV))
	v.SetDefault("storage.csv_path", "data/articles.csv")

	// Output defaults
	v.SetDefault("output.dir", "Output")
	v.SetDefault("output.overwrite", false)
	v.SetDefault("output.bom", true)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their configuration key rather than the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate validates the configuration. Every failure is a *domain.ConfigError.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return domain.NewConfigError(configKey(fe.Namespace()),
				fmt.Sprintf("invalid value %v (failed %q)", fe.Value(), fieldRule(fe)))
		}
		return domain.NewConfigError("config", err.Error())
	}

	// The word lists are compared after tokenization, which struct tags cannot express.
	if _, err := wordstats.NewAnalyzer(c.Analysis.Options()); err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			return domain.NewConfigError("analysis."+cfgErr.Key, cfgErr.Message)
		}
		return err
	}

	return nil
}

// configKey strips the root struct name from a validator namespace.
func configKey(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldRule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
