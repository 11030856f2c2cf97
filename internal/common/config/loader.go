package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml over it and applies
// environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // the environment overlay is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	// CATALOG_PRIMARY overrides catalog.primary and so on
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found walking from the working directory to the module root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders left in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills credentials from conventional variable names when the file left
// them blank.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty := func(dst *string, envKey string) {
		if *dst == "" {
			if val := os.Getenv(envKey); val != "" {
				*dst = val
			}
		}
	}

	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
	setIfEmpty(&cfg.Database.Elasticsearch.Password, "ELASTICSEARCH_PASSWORD")
	setIfEmpty(&cfg.Notifications.AWS.Region, "AWS_REGION")
	setIfEmpty(&cfg.Notifications.SNS.TopicARN, "RECOMMENDATIONS_TOPIC_ARN")
}

// DefaultExchangeRates are USD-based conversion rates.
func DefaultExchangeRates() map[string]float64 {
	return map[string]float64{
		"USD": 1.0,
		"EUR": 0.85,
		"GBP": 0.73,
		"CAD": 1.25,
		"AUD": 1.35,
		"INR": 83.0,
		"JPY": 110.0,
		"CNY": 6.5,
	}
}

// DefaultScoring returns the scoring section with every default applied.
func DefaultScoring() ScoringConfig {
	var s ScoringConfig
	applyScoringDefaults(&s)
	return s
}

func applyScoringDefaults(s *ScoringConfig) {
	if s.Weights.Sum() == 0 {
		s.Weights = WeightsConfig{Admission: 0.35, Cost: 0.25, Field: 0.20, Country: 0.15, Ranking: 0.05}
	}
	if s.InflationRate == 0 {
		s.InflationRate = 3.0
	}
	if s.ProjectionYears == 0 {
		s.ProjectionYears = 4
	}
	if s.HighCostCountry == "" {
		s.HighCostCountry = "USA"
	}
	if s.HealthInsuranceHigh == 0 {
		s.HealthInsuranceHigh = 2000
	}
	if s.HealthInsuranceLow == 0 {
		s.HealthInsuranceLow = 1000
	}
	if s.VisaFee == 0 {
		s.VisaFee = 500
	}
	if s.DefaultApplicationFee == 0 {
		s.DefaultApplicationFee = 100
	}
	if s.AidMultiplier == 0 {
		s.AidMultiplier = 0.3
	}
	if len(s.ExchangeRates) == 0 {
		s.ExchangeRates = DefaultExchangeRates()
	}
	if s.Concurrency == 0 {
		s.Concurrency = 8
	}
	if s.SlowThreshold == 0 {
		s.SlowThreshold = 500
	}
	if s.MaxResults == 0 {
		s.MaxResults = 10
	}
	if s.Estimator == "" {
		s.Estimator = "rule"
	}
	if s.Noise.StdDev == 0 {
		s.Noise.StdDev = 0.05
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "study-abroad-engine"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Catalog.Primary == "" {
		cfg.Catalog.Primary = CatalogBackendFile
	}
	if cfg.Catalog.FilePath == "" {
		cfg.Catalog.FilePath = "data/universities.json"
	}
	if cfg.Catalog.Index == "" {
		cfg.Catalog.Index = "universities"
	}
	if cfg.Catalog.Table == "" {
		cfg.Catalog.Table = "universities"
	}
	if cfg.Catalog.CacheSize == 0 {
		cfg.Catalog.CacheSize = 1024
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = 5000
	}
	if cfg.Catalog.Breaker.MaxRequests == 0 {
		cfg.Catalog.Breaker.MaxRequests = 1
	}
	if cfg.Catalog.Breaker.Interval == 0 {
		cfg.Catalog.Breaker.Interval = 60000
	}
	if cfg.Catalog.Breaker.Timeout == 0 {
		cfg.Catalog.Breaker.Timeout = 30000
	}
	if cfg.Catalog.Breaker.ConsecutiveFailures == 0 {
		cfg.Catalog.Breaker.ConsecutiveFailures = 5
	}

	applyScoringDefaults(&cfg.Scoring)

	if cfg.Profile.CacheTTL == 0 {
		cfg.Profile.CacheTTL = 3600
	}
	if cfg.Profile.Table == "" {
		cfg.Profile.Table = "student_profiles"
	}
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/activity-registry.json"
	}

	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = "us-east-1"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
	if cfg.Observability.SampleRatio == 0 {
		cfg.Observability.SampleRatio = 1.0
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

func validCatalogBackend(name string) bool {
	switch name {
	case CatalogBackendFile, CatalogBackendPostgres, CatalogBackendElasticsearch:
		return true
	}
	return false
}

// backendConfigured checks that the connection settings a catalog backend needs are present.
func backendConfigured(cfg *Config, backend string) error {
	switch backend {
	case CatalogBackendFile:
		if cfg.Catalog.FilePath == "" {
			return fmt.Errorf("catalog.file_path is required for the file backend")
		}
	case CatalogBackendPostgres:
		if !cfg.Database.Postgres.Configured() {
			return fmt.Errorf("database.postgres.host and database are required for the postgres backend")
		}
	case CatalogBackendElasticsearch:
		if len(cfg.Database.Elasticsearch.GetAddresses()) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses or url is required for the elasticsearch backend")
		}
	}
	return nil
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if !validCatalogBackend(cfg.Catalog.Primary) {
		return fmt.Errorf("catalog.primary %q is not one of file, postgres, elasticsearch", cfg.Catalog.Primary)
	}
	if err := backendConfigured(cfg, cfg.Catalog.Primary); err != nil {
		return err
	}
	if cfg.Catalog.Fallback != "" {
		if !validCatalogBackend(cfg.Catalog.Fallback) {
			return fmt.Errorf("catalog.fallback %q is not one of file, postgres, elasticsearch", cfg.Catalog.Fallback)
		}
		if cfg.Catalog.Fallback == cfg.Catalog.Primary {
			return fmt.Errorf("catalog.fallback must differ from catalog.primary")
		}
		if err := backendConfigured(cfg, cfg.Catalog.Fallback); err != nil {
			return err
		}
	}

	return ValidateScoring(cfg.Scoring)
}

// ValidateScoring rejects weights and rates the engine cannot score with.
func ValidateScoring(s ScoringConfig) error {
	w := s.Weights
	for name, val := range map[string]float64{
		"admission": w.Admission, "cost": w.Cost, "field": w.Field, "country": w.Country, "ranking": w.Ranking,
	} {
		if val < 0 {
			return fmt.Errorf("scoring.weights.%s must be non-negative", name)
		}
	}
	if math.Abs(w.Sum()-1.0) > 1e-9 {
		return fmt.Errorf("scoring.weights must sum to 1, got %.6f", w.Sum())
	}
	if s.InflationRate < 0 {
		return fmt.Errorf("scoring.inflation_rate must be non-negative")
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("scoring.concurrency must be at least 1")
	}
	switch s.Estimator {
	case "rule":
	case "linear":
		if len(s.Linear.Coefficients) != LinearFeatureCount {
			return fmt.Errorf("scoring.linear.coefficients must have %d entries, got %d",
				LinearFeatureCount, len(s.Linear.Coefficients))
		}
	default:
		return fmt.Errorf("scoring.estimator %q is not one of rule, linear", s.Estimator)
	}
	for code, rate := range s.ExchangeRates {
		if rate <= 0 {
			return fmt.Errorf("scoring.exchange_rates.%s must be positive", code)
		}
	}
	return nil
}

// LinearFeatureCount is the length of the statistical estimator's feature vector.
const LinearFeatureCount = 8

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
