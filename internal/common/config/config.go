package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Catalog       CatalogConfig           `mapstructure:"catalog"`
	Scoring       ScoringConfig           `mapstructure:"scoring"`
	Profile       ProfileConfig           `mapstructure:"profile"`
	Registry      RegistryConfig          `mapstructure:"registry"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Server        ServerConfig            `mapstructure:"server"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Configured reports whether enough is set to attempt a connection.
func (p PostgresConfig) Configured() bool {
	return p.Host != "" && p.Database != ""
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// GetAddresses merges URL and Addresses into one list.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- Catalog ---

const (
	CatalogBackendFile          = "file"
	CatalogBackendPostgres      = "postgres"
	CatalogBackendElasticsearch = "elasticsearch"
)

// CatalogConfig selects where university records come from.
type CatalogConfig struct {
	Primary  string `mapstructure:"primary"`
	Fallback string `mapstructure:"fallback"`
	// FilePath points at a JSON or YAML catalog.
	FilePath  string `mapstructure:"file_path"`
	Index     string `mapstructure:"index"`
	Table     string `mapstructure:"table"`
	CacheSize int    `mapstructure:"cache_size"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds

	Breaker BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxRequests         uint32 `mapstructure:"max_requests"`
	Interval            int    `mapstructure:"interval"` // milliseconds
	Timeout             int    `mapstructure:"timeout"`  // milliseconds
	ConsecutiveFailures uint32 `mapstructure:"consecutive_failures"`
}

// --- Scoring ---

type WeightsConfig struct {
	Admission float64 `mapstructure:"admission"`
	Cost      float64 `mapstructure:"cost"`
	Field     float64 `mapstructure:"field"`
	Country   float64 `mapstructure:"country"`
	Ranking   float64 `mapstructure:"ranking"`
}

// Sum of all weights.
func (w WeightsConfig) Sum() float64 {
	return w.Admission + w.Cost + w.Field + w.Country + w.Ranking
}

type NoiseConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	StdDev  float64 `mapstructure:"stddev"`
	Seed    int64   `mapstructure:"seed"`
}

// LinearModelConfig holds the coefficients of the statistical admission estimator.
type LinearModelConfig struct {
	Intercept    float64   `mapstructure:"intercept"`
	Coefficients []float64 `mapstructure:"coefficients"`
}

type ScoringConfig struct {
	Weights               WeightsConfig      `mapstructure:"weights"`
	InflationRate         float64            `mapstructure:"inflation_rate"` // percent
	ProjectionYears       int                `mapstructure:"projection_years"`
	HighCostCountry       string             `mapstructure:"high_cost_country"`
	HealthInsuranceHigh   float64            `mapstructure:"health_insurance_high"`
	HealthInsuranceLow    float64            `mapstructure:"health_insurance_low"`
	VisaFee               float64            `mapstructure:"visa_fee"`
	DefaultApplicationFee float64            `mapstructure:"default_application_fee"`
	AidMultiplier         float64            `mapstructure:"aid_multiplier"`
	ExchangeRates         map[string]float64 `mapstructure:"exchange_rates"`
	Concurrency           int                `mapstructure:"concurrency"`
	SlowThreshold         int                `mapstructure:"slow_threshold"` // milliseconds
	MaxResults            int                `mapstructure:"max_results"`
	Estimator             string             `mapstructure:"estimator"`
	Linear                LinearModelConfig  `mapstructure:"linear"`
	Noise                 NoiseConfig        `mapstructure:"noise"`
}

// --- Profile store ---

type ProfileConfig struct {
	CacheTTL int    `mapstructure:"cache_ttl"` // seconds
	Table    string `mapstructure:"table"`
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// NotificationConfig holds settings for the digest and event publishers.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"ses"`
}

type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
