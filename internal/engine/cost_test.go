package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostBreakdown_ReferenceUniversity(t *testing.T) {
	e := newTestEngine(t)

	b, err := e.CostBreakdown(sampleProfile(), sampleUniversity())
	require.NoError(t, err)

	assert.Equal(t, 600.0, b.BooksSupplies)
	assert.Equal(t, 2250.0, b.PersonalExpenses)
	assert.Equal(t, 2000.0, b.HealthInsurance)
	assert.Equal(t, 500.0, b.VisaFee)
	assert.Equal(t, 100.0, b.ApplicationFee, "zero application fee uses the default")
	assert.Equal(t, 50850.0, b.TotalAnnualCost)
	assert.Equal(t, 600.0, b.OneTimeCosts)
	assert.Equal(t, 102300.0, b.ProgramCost2Years)
	assert.Equal(t, 204000.0, b.ProgramCost4Years)
	assert.InDelta(t, 103225.5, b.InflationAdjusted2Years, 1e-6)

	assert.Equal(t, AffordabilityAffordable, b.Affordability)
	assert.Equal(t, -9150.0, b.BudgetDifference)

	assert.Equal(t, 52.97, b.Efficiency.CostPerRankingPoint)
	assert.Equal(t, 2.0, b.Efficiency.TuitionToLivingRatio)
	assert.Equal(t, CostShares{TuitionPercentage: 59.0, LivingPercentage: 29.5, OtherPercentage: 11.5}, b.Shares)

	assert.Equal(t, 0.85, b.FinancialAid.PotentialScore)
	assert.InDelta(t, 7650, b.FinancialAid.EstimatedAmount, 1e-6)
	assert.Equal(t, "high", b.FinancialAid.Likelihood)
	assert.Equal(t, []string{
		"Merit-based Aid",
		"Teaching Assistantship",
		"STEM Scholarship",
		"International Student Aid",
	}, b.FinancialAid.ScholarshipTypes)

	inr := b.Currencies["INR"]
	assert.Equal(t, "₹", inr.Symbol)
	assert.InDelta(t, 50850*83.0, inr.TotalAnnualCost, 1e-6)
}

func TestCostBreakdown_TotalHasNoHiddenTerms(t *testing.T) {
	e := newTestEngine(t)

	for _, u := range catalogFixture() {
		b, err := e.CostBreakdown(sampleProfile(), u)
		require.NoError(t, err)
		sum := b.TuitionFee + b.LivingCost + b.OtherFees + b.BooksSupplies + b.PersonalExpenses + b.HealthInsurance
		assert.InDelta(t, sum, b.TotalAnnualCost, 1e-6, u.Name)
	}
}

func TestCostBreakdown_CountryDependentFees(t *testing.T) {
	e := newTestEngine(t)

	domestic := sampleProfile()
	domestic.HomeCountry = "United States"
	b, err := e.CostBreakdown(domestic, sampleUniversity())
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.VisaFee)
	assert.NotContains(t, b.FinancialAid.ScholarshipTypes, "International Student Aid")

	canada := sampleUniversity()
	canada.Country = "Canada"
	b, err = e.CostBreakdown(sampleProfile(), canada)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, b.HealthInsurance)
	assert.Equal(t, 500.0, b.VisaFee)
}

func TestCostBreakdown_InvalidRecord(t *testing.T) {
	e := newTestEngine(t)

	for _, mutate := range []func(*float64){
		func(v *float64) { *v = -1 },
		func(v *float64) { *v = math.NaN() },
		func(v *float64) { *v = math.Inf(1) },
	} {
		u := sampleUniversity()
		mutate(&u.TuitionFee)
		_, err := e.CostBreakdown(sampleProfile(), u)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidRecord))
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, AffordabilityUnknown, Classify(50000, 30000, 0))
	assert.Equal(t, AffordabilityVeryAffordable, Classify(30000, 30000, 60000))
	assert.Equal(t, AffordabilityAffordable, Classify(60000, 30000, 60000))
	assert.Equal(t, AffordabilitySlightlyOver, Classify(66000, 30000, 60000))
	assert.Equal(t, AffordabilityOverBudget, Classify(66001, 30000, 60000))
}

func TestProject_CumulativeIdentity(t *testing.T) {
	e := newTestEngine(t)
	b, err := e.CostBreakdown(sampleProfile(), sampleUniversity())
	require.NoError(t, err)

	projections := e.Project(b, 5, 4)
	require.Len(t, projections, 5)

	annualSum := 0.0
	for i, p := range projections {
		assert.Equal(t, i+1, p.Year)
		m := math.Pow(1.04, float64(i))
		annualSum += b.TotalAnnualCost * m
		assert.InDelta(t, b.OneTimeCosts+annualSum, p.CumulativeCost, 0.01)
		assert.InDelta(t, p.Tuition+p.Living+p.Other, p.AnnualCost, 0.03)
	}
	assert.Equal(t, 1.0, projections[0].InflationMultiplier)
	assert.Equal(t, b.TotalAnnualCost, projections[0].AnnualCost)
}

func TestProject_DefaultsYearsZeroRateIsFlat(t *testing.T) {
	e := newTestEngine(t)
	b, err := e.CostBreakdown(sampleProfile(), sampleUniversity())
	require.NoError(t, err)

	projections := e.Project(b, 0, 0)
	require.Len(t, projections, 4)
	for _, p := range projections {
		assert.Equal(t, 1.0, p.InflationMultiplier)
		assert.Equal(t, b.TotalAnnualCost, p.AnnualCost)
	}
}

func TestCostPercentiles(t *testing.T) {
	assert.Nil(t, CostPercentiles(nil))
	assert.Equal(t, []float64{100, 25, 75, 25}, CostPercentiles([]float64{30, 10, 20, 10}))
	assert.Equal(t, []float64{100}, CostPercentiles([]float64{42}))
	assert.Equal(t, []float64{33.3, 66.7, 100}, CostPercentiles([]float64{1, 2, 3}))
}
