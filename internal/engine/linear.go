package engine

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"study-abroad-engine/internal/common/config"
	"study-abroad-engine/internal/models"
)

const defaultModelRanking = 100

// LinearEstimator is a logistic model over normalized academic features. Its coefficients
// come from configuration; there is no training step.
type LinearEstimator struct {
	intercept float64
	weights   *mat.VecDense
}

func NewLinearEstimator(intercept float64, coefficients []float64) (*LinearEstimator, error) {
	if len(coefficients) != config.LinearFeatureCount {
		return nil, fmt.Errorf("linear estimator needs %d coefficients, got %d",
			config.LinearFeatureCount, len(coefficients))
	}
	w := make([]float64, len(coefficients))
	copy(w, coefficients)
	return &LinearEstimator{intercept: intercept, weights: mat.NewVecDense(len(w), w)}, nil
}

// Features returns the model inputs in coefficient order: cgpa, gre, english, the three
// student-minus-requirement gaps, acceptance rate and inverse ranking.
func Features(p models.StudentProfile, u models.University) []float64 {
	in := resolveInputs(p, u)

	gap := func(value, requirement, scale float64) float64 {
		if requirement <= 0 {
			return 0
		}
		return (value - requirement) / scale
	}

	ranking := u.Ranking
	if ranking <= 0 {
		ranking = defaultModelRanking
	}

	return []float64{
		Normalize01(in.cgpa, CGPAScale),
		Normalize01(in.gre, GREScale),
		Normalize01(in.english, EnglishScale),
		gap(in.cgpa, in.minCGPA, CGPAScale),
		gap(in.gre, in.minGRE, GREScale),
		gap(in.english, in.minEnglish, EnglishScale),
		acceptanceRate(u),
		1.0 / float64(ranking+1),
	}
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func (e *LinearEstimator) Estimate(p models.StudentProfile, u models.University) (AdmissionEstimate, error) {
	x := mat.NewVecDense(config.LinearFeatureCount, Features(p, u))
	z := e.intercept + mat.Dot(e.weights, x)
	if math.IsNaN(z) {
		return AdmissionEstimate{}, fmt.Errorf("linear estimator produced NaN for university %d", u.ID)
	}

	rc := checkRequirements(resolveInputs(p, u))
	return finishEstimate(sigmoid(z), p, u, rc), nil
}
