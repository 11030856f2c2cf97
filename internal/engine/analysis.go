package engine

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/stat"

	"study-abroad-engine/internal/models"
)

// ErrBudgetRequired is returned by the affordability analysis when the profile has no budget.
var ErrBudgetRequired = errors.New("budget required for affordability analysis")

// Cost analysis kinds.
const (
	AnalysisComparison    = "comparison"
	AnalysisTrends        = "trends"
	AnalysisAffordability = "affordability"
)

const (
	budgetStatusAffordable = "affordable"
	budgetStatusOver       = "over_budget"
)

// ============================================================================
// Single-university cost trend
// ============================================================================

type YearBudget struct {
	Year        int     `json:"year"`
	BudgetGap   float64 `json:"budgetGap"`
	Status      string  `json:"affordabilityStatus"`
	Utilization float64 `json:"budgetUtilization"`
}

// CostTrendReport projects one university's cost over a program.
type CostTrendReport struct {
	UniversityID      int64            `json:"universityId"`
	UniversityName    string           `json:"universityName"`
	Years             int              `json:"years"`
	InflationRate     float64          `json:"inflationRate"`
	BaseCosts         CostBreakdown    `json:"baseCosts"`
	Projections       []YearProjection `json:"projections"`
	BudgetAnalysis    []YearBudget     `json:"budgetAnalysis"`
	TotalProgramCost  float64          `json:"totalProgramCost"`
	AverageAnnualCost float64          `json:"averageAnnualCost"`
	InflationImpact   float64          `json:"inflationImpact"`
}

// CostTrends builds the year-by-year projection for one university. years <= 0 and a nil
// rate fall back to the configured defaults; a zero rate projects flat costs.
func (e *Engine) CostTrends(p models.StudentProfile, u models.University, years int, rate *float64) (*CostTrendReport, error) {
	if years <= 0 {
		years = e.cfg.ProjectionYears
	}
	ratePercent := e.cfg.InflationRate
	if rate != nil {
		ratePercent = *rate
	}

	b, err := e.CostBreakdown(p, u)
	if err != nil {
		return nil, err
	}
	projections := e.Project(b, years, ratePercent)

	budget := make([]YearBudget, 0, len(projections))
	if p.HasBudget() {
		for _, pr := range projections {
			gap := pr.AnnualCost - p.BudgetMax
			status := budgetStatusAffordable
			if gap > 0 {
				status = budgetStatusOver
			}
			budget = append(budget, YearBudget{
				Year:        pr.Year,
				BudgetGap:   round(gap, 2),
				Status:      status,
				Utilization: round(pr.AnnualCost/p.BudgetMax*100, 1),
			})
		}
	}

	// Uses the unrounded running sum so the identities hold to the cent.
	cumulative := b.OneTimeCosts + inflatedSum(b.TotalAnnualCost, years, ratePercent)

	return &CostTrendReport{
		UniversityID:      u.ID,
		UniversityName:    u.Name,
		Years:             years,
		InflationRate:     ratePercent,
		BaseCosts:         b,
		Projections:       projections,
		BudgetAnalysis:    budget,
		TotalProgramCost:  round(cumulative, 2),
		AverageAnnualCost: round(cumulative/float64(years), 2),
		InflationImpact:   round(cumulative-(b.TotalAnnualCost*float64(years)+b.OneTimeCosts), 2),
	}, nil
}

// ============================================================================
// Multi-university cost analysis
// ============================================================================

type CostRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
}

type CostDistribution struct {
	Q1  float64 `json:"q1"`
	Q2  float64 `json:"q2"`
	Q3  float64 `json:"q3"`
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
}

type UtilizationRange struct {
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// BudgetFit is nil in a report when the profile carries no budget.
type BudgetFit struct {
	Total        int              `json:"totalUniversities"`
	WithinBudget int              `json:"withinBudget"`
	OverBudget   int              `json:"overBudget"`
	Utilization  UtilizationRange `json:"budgetUtilization"`
}

type CostComparisonRow struct {
	UniversityID     int64      `json:"universityId"`
	UniversityName   string     `json:"universityName"`
	Country          string     `json:"country"`
	TotalAnnualCost  float64    `json:"totalAnnualCost"`
	CostPercentile   float64    `json:"costPercentile"`
	Affordability    string     `json:"affordabilityStatus"`
	BudgetDifference float64    `json:"budgetDifference"`
	Shares           CostShares `json:"costBreakdown"`
}

type CostComparison struct {
	TotalUniversities int                 `json:"totalUniversities"`
	CostRange         CostRange           `json:"costRange"`
	Universities      []CostComparisonRow `json:"universities"`
	Distribution      CostDistribution    `json:"costDistribution"`
	BudgetFit         *BudgetFit          `json:"budgetAnalysis,omitempty"`
}

type InflationImpact struct {
	TwoYears  float64 `json:"twoYears"`
	FourYears float64 `json:"fourYears"`
}

type UniversityTrend struct {
	UniversityID    int64           `json:"universityId"`
	UniversityName  string          `json:"universityName"`
	BaseCost        float64         `json:"baseCost"`
	Adjusted2Years  float64         `json:"inflationAdjusted2Years"`
	Adjusted4Years  float64         `json:"inflationAdjusted4Years"`
	InflationImpact InflationImpact `json:"inflationImpact"`
}

type ComparativeTrends struct {
	InflationImpact2Years []float64 `json:"inflationImpact2Years"`
	InflationImpact4Years []float64 `json:"inflationImpact4Years"`
}

type CostTrendsAnalysis struct {
	Universities []UniversityTrend `json:"universities"`
	Comparative  ComparativeTrends `json:"comparativeTrends"`
}

type BudgetInfo struct {
	Max float64 `json:"maxBudget"`
	Min float64 `json:"minBudget"`
}

type AffordabilityRow struct {
	UniversityID     int64        `json:"universityId"`
	UniversityName   string       `json:"universityName"`
	TotalCost        float64      `json:"totalCost"`
	Affordability    string       `json:"affordabilityStatus"`
	BudgetDifference float64      `json:"budgetDifference"`
	FinancialAid     FinancialAid `json:"financialAidPotential"`
	CostAfterAid     float64      `json:"costAfterAid"`
}

type AffordabilityAnalysis struct {
	Budget       BudgetInfo         `json:"budgetInfo"`
	Summary      map[string]int     `json:"affordabilitySummary"`
	Universities []AffordabilityRow `json:"universities"`
}

// CostAnalysisReport holds exactly one of the three analyses, picked by AnalysisType.
type CostAnalysisReport struct {
	AnalysisType  string                 `json:"analysisType"`
	Comparison    *CostComparison        `json:"comparison,omitempty"`
	Trends        *CostTrendsAnalysis    `json:"trends,omitempty"`
	Affordability *AffordabilityAnalysis `json:"affordability,omitempty"`
	Skipped       []SkippedCandidate     `json:"skipped,omitempty"`
}

// NormalizeAnalysisType maps unknown kinds to a comparison.
func NormalizeAnalysisType(kind string) string {
	switch kind {
	case AnalysisTrends, AnalysisAffordability:
		return kind
	default:
		return AnalysisComparison
	}
}

// CostAnalysis analyses the cost of every university given. Records that cannot be costed
// are skipped; an empty input yields an empty analysis.
func (e *Engine) CostAnalysis(p models.StudentProfile, universities []models.University, kind string) (*CostAnalysisReport, error) {
	kind = NormalizeAnalysisType(kind)
	if kind == AnalysisAffordability && !p.HasBudget() {
		return nil, ErrBudgetRequired
	}

	report := &CostAnalysisReport{AnalysisType: kind}
	recs := make([]Recommendation, 0, len(universities))
	for _, u := range universities {
		rec, err := e.Evaluate(p, u)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedCandidate{UniversityID: u.ID, Name: u.Name, Reason: err.Error()})
			e.logger.Warn("candidate skipped", map[string]interface{}{
				"universityId": u.ID,
				"error":        err.Error(),
			})
			continue
		}
		recs = append(recs, rec)
	}

	costs := make([]float64, len(recs))
	for i := range recs {
		costs[i] = recs[i].Costs.TotalAnnualCost
	}
	for i, pct := range CostPercentiles(costs) {
		recs[i].Costs.Efficiency.TotalCostPercentile = pct
	}

	switch kind {
	case AnalysisTrends:
		report.Trends = trendsAnalysis(recs)
	case AnalysisAffordability:
		report.Affordability = affordabilityAnalysis(p, recs)
	default:
		report.Comparison = comparisonAnalysis(p, recs, costs)
	}
	return report, nil
}

func comparisonAnalysis(p models.StudentProfile, recs []Recommendation, costs []float64) *CostComparison {
	c := &CostComparison{
		TotalUniversities: len(recs),
		Universities:      make([]CostComparisonRow, 0, len(recs)),
	}
	for _, r := range recs {
		c.Universities = append(c.Universities, CostComparisonRow{
			UniversityID:     r.UniversityID,
			UniversityName:   r.UniversityName,
			Country:          r.Country,
			TotalAnnualCost:  r.Costs.TotalAnnualCost,
			CostPercentile:   r.Costs.Efficiency.TotalCostPercentile,
			Affordability:    r.Costs.Affordability,
			BudgetDifference: r.Costs.BudgetDifference,
			Shares:           r.Costs.Shares,
		})
	}
	if len(costs) == 0 {
		return c
	}

	sorted := append([]float64(nil), costs...)
	sort.Float64s(sorted)
	c.CostRange = CostRange{
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		Average: round(stat.Mean(sorted, nil), 2),
		Median:  round(median(sorted), 2),
	}
	c.Distribution = distribution(sorted)
	c.BudgetFit = budgetFit(p, sorted)
	return c
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func distribution(sorted []float64) CostDistribution {
	q := func(p float64) float64 {
		return round(stat.Quantile(p, stat.Empirical, sorted, nil), 2)
	}
	return CostDistribution{
		Q1:  q(0.25),
		Q2:  q(0.5),
		Q3:  q(0.75),
		P10: q(0.10),
		P25: q(0.25),
		P75: q(0.75),
		P90: q(0.90),
	}
}

func budgetFit(p models.StudentProfile, sorted []float64) *BudgetFit {
	if !p.HasBudget() {
		return nil
	}
	within := 0
	for _, c := range sorted {
		if c <= p.BudgetMax {
			within++
		}
	}
	util := func(v float64) float64 { return round(v/p.BudgetMax*100, 1) }
	return &BudgetFit{
		Total:        len(sorted),
		WithinBudget: within,
		OverBudget:   len(sorted) - within,
		Utilization: UtilizationRange{
			Average: util(stat.Mean(sorted, nil)),
			Min:     util(sorted[0]),
			Max:     util(sorted[len(sorted)-1]),
		},
	}
}

func trendsAnalysis(recs []Recommendation) *CostTrendsAnalysis {
	t := &CostTrendsAnalysis{
		Universities: make([]UniversityTrend, 0, len(recs)),
		Comparative: ComparativeTrends{
			InflationImpact2Years: make([]float64, 0, len(recs)),
			InflationImpact4Years: make([]float64, 0, len(recs)),
		},
	}
	for _, r := range recs {
		c := r.Costs
		impact := InflationImpact{
			TwoYears:  round(c.InflationAdjusted2Years-c.TotalAnnualCost*2, 2),
			FourYears: round(c.InflationAdjusted4Years-c.TotalAnnualCost*4, 2),
		}
		t.Universities = append(t.Universities, UniversityTrend{
			UniversityID:    r.UniversityID,
			UniversityName:  r.UniversityName,
			BaseCost:        c.TotalAnnualCost,
			Adjusted2Years:  c.InflationAdjusted2Years,
			Adjusted4Years:  c.InflationAdjusted4Years,
			InflationImpact: impact,
		})
		t.Comparative.InflationImpact2Years = append(t.Comparative.InflationImpact2Years, impact.TwoYears)
		t.Comparative.InflationImpact4Years = append(t.Comparative.InflationImpact4Years, impact.FourYears)
	}
	return t
}

func affordabilityAnalysis(p models.StudentProfile, recs []Recommendation) *AffordabilityAnalysis {
	a := &AffordabilityAnalysis{
		Budget: BudgetInfo{Max: p.BudgetMax, Min: p.BudgetMin},
		Summary: map[string]int{
			AffordabilityVeryAffordable: 0,
			AffordabilityAffordable:     0,
			AffordabilitySlightlyOver:   0,
			AffordabilityOverBudget:     0,
		},
		Universities: make([]AffordabilityRow, 0, len(recs)),
	}
	for _, r := range recs {
		c := r.Costs
		a.Summary[c.Affordability]++
		a.Universities = append(a.Universities, AffordabilityRow{
			UniversityID:     r.UniversityID,
			UniversityName:   r.UniversityName,
			TotalCost:        c.TotalAnnualCost,
			Affordability:    c.Affordability,
			BudgetDifference: c.BudgetDifference,
			FinancialAid:     c.FinancialAid,
			CostAfterAid:     round(c.TotalAnnualCost-c.FinancialAid.EstimatedAmount, 2),
		})
	}
	return a
}
