package engine

import (
	"study-abroad-engine/internal/models"
)

// Admission categories, from most to least likely.
const (
	CategoryVeryHigh = "Very High"
	CategoryHigh     = "High"
	CategoryModerate = "Moderate"
	CategoryLow      = "Low"
	CategoryVeryLow  = "Very Low"
)

const (
	minProbability = 0.01
	maxProbability = 0.99

	defaultAcceptanceRate = 0.5

	// scores this close to a threshold count as reaching it
	epsilon = 1e-9
)

// RequirementCheck records which minimum requirements the student meets. A requirement the
// university does not state is met vacuously.
type RequirementCheck struct {
	CGPA    bool `json:"cgpa"`
	GRE     bool `json:"gre"`
	English bool `json:"english"`
	All     bool `json:"all"`
}

// AdmissionEstimate is the outcome of an admission estimate for one university.
type AdmissionEstimate struct {
	Probability float64          `json:"probability"`
	Confidence  float64          `json:"confidence"`
	Category    string           `json:"category"`
	Meets       RequirementCheck `json:"meetsMinimumRequirements"`
}

// Estimator estimates how likely a student is to be admitted to a university.
// Implementations must be safe for concurrent use.
type Estimator interface {
	Estimate(profile models.StudentProfile, university models.University) (AdmissionEstimate, error)
}

// RuleEstimator is the deterministic reference estimator.
type RuleEstimator struct{}

func NewRuleEstimator() *RuleEstimator {
	return &RuleEstimator{}
}

// academicInputs are the sanitized scores both estimators work from.
type academicInputs struct {
	cgpa, minCGPA       float64
	gre, minGRE         float64
	english, minEnglish float64
}

func resolveInputs(p models.StudentProfile, u models.University) academicInputs {
	return academicInputs{
		cgpa:       sanitize(p.CGPA),
		minCGPA:    sanitize(u.MinCGPA),
		gre:        float64(sanitizeInt(p.GRE)),
		minGRE:     float64(sanitizeInt(u.MinGRE)),
		english:    ResolveEnglish(p.IELTS, p.TOEFL),
		minEnglish: ResolveEnglish(u.MinIELTS, u.MinTOEFL),
	}
}

func atLeast(value, threshold float64) bool {
	return value >= threshold-epsilon
}

func meets(value, requirement float64) bool {
	return requirement <= 0 || atLeast(value, requirement)
}

func checkRequirements(in academicInputs) RequirementCheck {
	rc := RequirementCheck{
		CGPA:    meets(in.cgpa, in.minCGPA),
		GRE:     meets(in.gre, in.minGRE),
		English: meets(in.english, in.minEnglish),
	}
	rc.All = rc.CGPA && rc.GRE && rc.English
	return rc
}

func requirementMultiplier(rc RequirementCheck) float64 {
	switch {
	case rc.All:
		return 1.0
	case rc.CGPA && rc.GRE:
		return 0.7
	case rc.CGPA || rc.GRE:
		return 0.4
	default:
		return 0.02
	}
}

// competitionMultiplier discounts highly ranked universities. An unknown ranking is not discounted.
func competitionMultiplier(ranking int) float64 {
	switch {
	case ranking <= 0:
		return 1.0
	case ranking <= 10:
		return 0.3
	case ranking <= 50:
		return 0.6
	case ranking <= 100:
		return 0.8
	default:
		return 1.0
	}
}

// tier is one step of a bonus table: a student at least offset above the requirement earns bonus.
type tier struct {
	offset float64
	bonus  float64
}

var (
	cgpaTiers    = []tier{{0.4, 0.15}, {0.2, 0.08}, {0, 0}, {-0.2, -0.10}}
	cgpaFloor    = -0.20
	greTiers     = []tier{{25, 0.10}, {10, 0.05}, {0, 0}, {-15, -0.08}}
	greFloor     = -0.15
	englishTiers = []tier{{1.0, 0.05}, {0.5, 0.02}, {0, 0}}
	englishFloor = -0.10
)

func tieredBonus(value, requirement float64, tiers []tier, floor float64) float64 {
	if requirement <= 0 {
		return 0
	}
	for _, t := range tiers {
		if atLeast(value, requirement+t.offset) {
			return t.bonus
		}
	}
	return floor
}

func performanceBonus(in academicInputs) float64 {
	return tieredBonus(in.cgpa, in.minCGPA, cgpaTiers, cgpaFloor) +
		tieredBonus(in.gre, in.minGRE, greTiers, greFloor) +
		tieredBonus(in.english, in.minEnglish, englishTiers, englishFloor)
}

func acceptanceRate(u models.University) float64 {
	rate := sanitize(u.AcceptanceRate)
	if rate == 0 {
		return defaultAcceptanceRate
	}
	return clamp(rate, 0, 1)
}

// Confidence reflects how much of the data the estimate depends on was actually present.
func Confidence(p models.StudentProfile, u models.University) float64 {
	c := 0.8
	if sanitize(p.CGPA) == 0 {
		c -= 0.1
	}
	if p.GRE <= 0 {
		c -= 0.1
	}
	if sanitize(p.IELTS) == 0 && p.TOEFL <= 0 {
		c -= 0.1
	}
	if sanitize(u.MinCGPA) == 0 {
		c -= 0.05
	}
	if u.MinGRE <= 0 {
		c -= 0.05
	}
	if sanitize(u.MinIELTS) == 0 && u.MinTOEFL <= 0 {
		c -= 0.05
	}
	return round(clamp(c, 0.5, 1), 3)
}

// Category labels a probability.
func Category(probability float64) string {
	switch {
	case probability >= 0.8:
		return CategoryVeryHigh
	case probability >= 0.6:
		return CategoryHigh
	case probability >= 0.4:
		return CategoryModerate
	case probability >= 0.2:
		return CategoryLow
	default:
		return CategoryVeryLow
	}
}

// finishEstimate clamps and rounds a raw probability and fills the derived fields.
func finishEstimate(raw float64, p models.StudentProfile, u models.University, rc RequirementCheck) AdmissionEstimate {
	prob := round(clamp(raw, minProbability, maxProbability), 3)
	return AdmissionEstimate{
		Probability: prob,
		Confidence:  Confidence(p, u),
		Category:    Category(prob),
		Meets:       rc,
	}
}

func (e *RuleEstimator) Estimate(p models.StudentProfile, u models.University) (AdmissionEstimate, error) {
	in := resolveInputs(p, u)
	rc := checkRequirements(in)

	raw := acceptanceRate(u)*requirementMultiplier(rc)*competitionMultiplier(u.Ranking) + performanceBonus(in)
	return finishEstimate(raw, p, u, rc), nil
}
