package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"study-abroad-engine/internal/models"
)

// ErrInvalidRecord marks a catalog record that cannot be scored.
var ErrInvalidRecord = errors.New("invalid university record")

// Affordability classes of the total annual cost against the student's budget.
const (
	AffordabilityVeryAffordable = "very_affordable"
	AffordabilityAffordable     = "affordable"
	AffordabilitySlightlyOver   = "slightly_over_budget"
	AffordabilityOverBudget     = "over_budget"
	AffordabilityUnknown        = "unknown"
)

const (
	booksRate    = 0.02
	personalRate = 0.15
	slightlyOver = 1.1
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"CAD": "C$",
	"AUD": "A$",
	"INR": "₹",
	"JPY": "¥",
	"CNY": "¥",
}

// CostEfficiency holds ratios used to compare universities on cost.
type CostEfficiency struct {
	CostPerRankingPoint  float64 `json:"costPerRankingPoint"`
	TuitionToLivingRatio float64 `json:"tuitionToLivingRatio"`
	// TotalCostPercentile is relative to the other candidates of the same request.
	TotalCostPercentile float64 `json:"totalCostPercentile"`
}

// CostShares splits the annual cost into percentages.
type CostShares struct {
	TuitionPercentage float64 `json:"tuitionPercentage"`
	LivingPercentage  float64 `json:"livingPercentage"`
	OtherPercentage   float64 `json:"otherPercentage"`
}

type CurrencyAmount struct {
	Symbol          string  `json:"symbol"`
	Rate            float64 `json:"rate"`
	TuitionFee      float64 `json:"tuitionFee"`
	LivingCost      float64 `json:"livingCost"`
	TotalAnnualCost float64 `json:"totalAnnualCost"`
}

// CostBreakdown is every cost figure derived for one student and university pair.
type CostBreakdown struct {
	TuitionFee              float64                   `json:"tuitionFee"`
	LivingCost              float64                   `json:"livingCost"`
	ApplicationFee          float64                   `json:"applicationFee"`
	OtherFees               float64                   `json:"otherFees"`
	BooksSupplies           float64                   `json:"booksSupplies"`
	PersonalExpenses        float64                   `json:"personalExpenses"`
	HealthInsurance         float64                   `json:"healthInsurance"`
	VisaFee                 float64                   `json:"visaFee"`
	TotalAnnualCost         float64                   `json:"totalAnnualCost"`
	OneTimeCosts            float64                   `json:"oneTimeCosts"`
	ProgramCost2Years       float64                   `json:"totalProgramCost2Years"`
	ProgramCost4Years       float64                   `json:"totalProgramCost4Years"`
	InflationAdjusted2Years float64                   `json:"inflationAdjusted2Years"`
	InflationAdjusted4Years float64                   `json:"inflationAdjusted4Years"`
	Affordability           string                    `json:"affordabilityStatus"`
	BudgetDifference        float64                   `json:"budgetDifference"`
	Efficiency              CostEfficiency            `json:"costEfficiency"`
	Shares                  CostShares                `json:"costAnalysis"`
	FinancialAid            FinancialAid              `json:"financialAidPotential"`
	Currencies              map[string]CurrencyAmount `json:"currencyBreakdown"`
}

// OtherAnnualCosts is everything in the annual cost besides tuition and living.
func (b CostBreakdown) OtherAnnualCosts() float64 {
	return b.OtherFees + b.BooksSupplies + b.PersonalExpenses + b.HealthInsurance
}

func validateCosts(u models.University) error {
	for name, v := range map[string]float64{
		"tuition_fee":     u.TuitionFee,
		"living_cost":     u.LivingCost,
		"application_fee": u.ApplicationFee,
		"other_fees":      u.OtherFees,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: university %d has %s=%v", ErrInvalidRecord, u.ID, name, v)
		}
	}
	return nil
}

// Classify places an annual cost against a budget range.
func Classify(annual, budgetMin, budgetMax float64) string {
	switch {
	case budgetMax <= 0:
		return AffordabilityUnknown
	case annual <= budgetMin:
		return AffordabilityVeryAffordable
	case annual <= budgetMax:
		return AffordabilityAffordable
	case annual <= budgetMax*slightlyOver:
		return AffordabilitySlightlyOver
	default:
		return AffordabilityOverBudget
	}
}

// CostBreakdown computes the cost figures for one university. It fails only for records
// whose cost fields are negative or not finite.
func (e *Engine) CostBreakdown(p models.StudentProfile, u models.University) (CostBreakdown, error) {
	if err := validateCosts(u); err != nil {
		return CostBreakdown{}, err
	}

	appFee := u.ApplicationFee
	if appFee == 0 {
		appFee = e.cfg.DefaultApplicationFee
	}

	health := e.cfg.HealthInsuranceLow
	if e.cfg.Countries.Same(u.Country, e.cfg.HighCostCountry) {
		health = e.cfg.HealthInsuranceHigh
	}

	visa := 0.0
	if !e.cfg.Countries.Same(u.Country, p.HomeCountry) {
		visa = e.cfg.VisaFee
	}

	b := CostBreakdown{
		TuitionFee:       u.TuitionFee,
		LivingCost:       u.LivingCost,
		ApplicationFee:   appFee,
		OtherFees:        u.OtherFees,
		BooksSupplies:    round(u.TuitionFee*booksRate, 2),
		PersonalExpenses: round(u.LivingCost*personalRate, 2),
		HealthInsurance:  health,
		VisaFee:          visa,
	}
	b.TotalAnnualCost = round(b.TuitionFee+b.LivingCost+b.OtherAnnualCosts(), 2)
	b.OneTimeCosts = round(b.ApplicationFee+b.VisaFee, 2)
	b.ProgramCost2Years = round(b.TotalAnnualCost*2+b.OneTimeCosts, 2)
	b.ProgramCost4Years = round(b.TotalAnnualCost*4+b.OneTimeCosts, 2)
	b.InflationAdjusted2Years = round(inflatedSum(b.TotalAnnualCost, 2, e.cfg.InflationRate), 2)
	b.InflationAdjusted4Years = round(inflatedSum(b.TotalAnnualCost, 4, e.cfg.InflationRate), 2)

	b.Affordability = Classify(b.TotalAnnualCost, p.BudgetMin, p.BudgetMax)
	if p.HasBudget() {
		b.BudgetDifference = round(b.TotalAnnualCost-p.BudgetMax, 2)
	}

	b.Efficiency = costEfficiency(b, u)
	b.Shares = costShares(b)
	b.FinancialAid = e.financialAid(p, u)
	b.Currencies = e.currencyBreakdown(b)
	return b, nil
}

func costEfficiency(b CostBreakdown, u models.University) CostEfficiency {
	ranking := u.Ranking
	if ranking <= 0 {
		ranking = 500
	}
	return CostEfficiency{
		CostPerRankingPoint:  round(b.TotalAnnualCost/math.Max(1, float64(1000-ranking)), 2),
		TuitionToLivingRatio: round(b.TuitionFee/math.Max(1, b.LivingCost), 3),
	}
}

func costShares(b CostBreakdown) CostShares {
	if b.TotalAnnualCost <= 0 {
		return CostShares{}
	}
	pct := func(v float64) float64 { return round(v/b.TotalAnnualCost*100, 1) }
	return CostShares{
		TuitionPercentage: pct(b.TuitionFee),
		LivingPercentage:  pct(b.LivingCost),
		OtherPercentage:   pct(b.OtherAnnualCosts()),
	}
}

func (e *Engine) currencyBreakdown(b CostBreakdown) map[string]CurrencyAmount {
	out := make(map[string]CurrencyAmount, len(e.cfg.ExchangeRates))
	for code, rate := range e.cfg.ExchangeRates {
		symbol, ok := currencySymbols[code]
		if !ok {
			symbol = code
		}
		out[code] = CurrencyAmount{
			Symbol:          symbol,
			Rate:            rate,
			TuitionFee:      round(b.TuitionFee*rate, 2),
			LivingCost:      round(b.LivingCost*rate, 2),
			TotalAnnualCost: round(b.TotalAnnualCost*rate, 2),
		}
	}
	return out
}

// InflationMultiplier is the factor applied to costs in the given 1-based year.
func InflationMultiplier(year int, ratePercent float64) float64 {
	return math.Pow(1+ratePercent/100, float64(year-1))
}

func inflatedSum(annual float64, years int, ratePercent float64) float64 {
	total := 0.0
	for y := 1; y <= years; y++ {
		total += annual * InflationMultiplier(y, ratePercent)
	}
	return total
}

// YearProjection is the projected cost of one program year.
type YearProjection struct {
	Year                int     `json:"year"`
	AnnualCost          float64 `json:"annualCost"`
	CumulativeCost      float64 `json:"cumulativeCost"`
	InflationMultiplier float64 `json:"inflationMultiplier"`
	Tuition             float64 `json:"tuition"`
	Living              float64 `json:"living"`
	Other               float64 `json:"other"`
}

// Project inflates the annual cost year by year. The cumulative cost starts from the
// one-time costs. Non-positive years fall back to the configured default; the rate is
// used as given.
func (e *Engine) Project(b CostBreakdown, years int, ratePercent float64) []YearProjection {
	if years <= 0 {
		years = e.cfg.ProjectionYears
	}

	out := make([]YearProjection, 0, years)
	cumulative := b.OneTimeCosts
	for y := 1; y <= years; y++ {
		m := InflationMultiplier(y, ratePercent)
		annual := b.TotalAnnualCost * m
		cumulative += annual
		out = append(out, YearProjection{
			Year:                y,
			AnnualCost:          round(annual, 2),
			CumulativeCost:      round(cumulative, 2),
			InflationMultiplier: round(m, 3),
			Tuition:             round(b.TuitionFee*m, 2),
			Living:              round(b.LivingCost*m, 2),
			Other:               round(b.OtherAnnualCosts()*m, 2),
		})
	}
	return out
}

// CostPercentiles maps each cost to (position of its first occurrence in ascending order + 1)
// divided by the set size, as a percentage. Equal costs share a percentile.
func CostPercentiles(costs []float64) []float64 {
	if len(costs) == 0 {
		return nil
	}
	sorted := append([]float64(nil), costs...)
	sort.Float64s(sorted)

	n := float64(len(sorted))
	out := make([]float64, len(costs))
	for i, c := range costs {
		idx := sort.SearchFloat64s(sorted, c)
		out[i] = round(float64(idx+1)/n*100, 1)
	}
	return out
}
