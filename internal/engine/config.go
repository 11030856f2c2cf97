package engine

import (
	"time"

	"study-abroad-engine/internal/common/config"
	"study-abroad-engine/internal/common/country"
)

// Weights of the five criteria in the overall score. They sum to 1.
type Weights struct {
	Admission float64 `json:"admissionProbability"`
	Cost      float64 `json:"costFit"`
	Field     float64 `json:"fieldMatch"`
	Country   float64 `json:"countryPreference"`
	Ranking   float64 `json:"ranking"`
}

// Config is the immutable scoring configuration shared by every request.
type Config struct {
	Weights               Weights
	InflationRate         float64 // percent per year
	ProjectionYears       int
	HighCostCountry       string
	HealthInsuranceHigh   float64
	HealthInsuranceLow    float64
	VisaFee               float64
	DefaultApplicationFee float64
	AidMultiplier         float64
	ExchangeRates         map[string]float64
	Concurrency           int
	SlowThreshold         time.Duration
	Countries             *country.Matcher
}

// NewConfig converts the scoring section of the application config.
func NewConfig(s config.ScoringConfig) Config {
	rates := make(map[string]float64, len(s.ExchangeRates))
	for code, rate := range s.ExchangeRates {
		rates[code] = rate
	}
	return Config{
		Weights: Weights{
			Admission: s.Weights.Admission,
			Cost:      s.Weights.Cost,
			Field:     s.Weights.Field,
			Country:   s.Weights.Country,
			Ranking:   s.Weights.Ranking,
		},
		InflationRate:         s.InflationRate,
		ProjectionYears:       s.ProjectionYears,
		HighCostCountry:       s.HighCostCountry,
		HealthInsuranceHigh:   s.HealthInsuranceHigh,
		HealthInsuranceLow:    s.HealthInsuranceLow,
		VisaFee:               s.VisaFee,
		DefaultApplicationFee: s.DefaultApplicationFee,
		AidMultiplier:         s.AidMultiplier,
		ExchangeRates:         rates,
		Concurrency:           s.Concurrency,
		SlowThreshold:         config.GetDuration(s.SlowThreshold),
		Countries:             country.Default(),
	}
}

// DefaultConfig returns the built-in scoring defaults.
func DefaultConfig() Config {
	return NewConfig(config.DefaultScoring())
}
