package engine

import (
	"strings"

	"study-abroad-engine/internal/models"
)

// Criterion names, used as keys in explanations and factor breakdowns.
const (
	CriterionAdmission = "admissionProbability"
	CriterionCost      = "costFit"
	CriterionField     = "fieldMatch"
	CriterionCountry   = "countryPreference"
	CriterionRanking   = "ranking"
)

const neutralScore = 0.5

// ScoreSet holds the five criterion scores and their weighted combination, all in [0,1].
type ScoreSet struct {
	AdmissionProbability float64 `json:"admissionProbability"`
	AdmissionConfidence  float64 `json:"admissionConfidence"`
	AdmissionCategory    string  `json:"admissionCategory"`
	CostFit              float64 `json:"costFit"`
	FieldMatch           float64 `json:"fieldMatch"`
	CountryPreference    float64 `json:"countryPreference"`
	Ranking              float64 `json:"ranking"`
	Overall              float64 `json:"overallScore"`
}

// Score computes the criterion scores of one university for the profile. An estimator
// failure degrades the admission score to a neutral estimate instead of failing.
func (e *Engine) Score(p models.StudentProfile, u models.University) ScoreSet {
	est, err := e.estimator.Estimate(p, u)
	if err != nil {
		e.logger.Warn("admission estimate failed, using neutral estimate", map[string]interface{}{
			"universityId": u.ID,
			"error":        err.Error(),
		})
		est = AdmissionEstimate{Probability: neutralScore, Confidence: neutralScore, Category: CategoryModerate}
	}

	s := ScoreSet{
		AdmissionProbability: est.Probability,
		AdmissionConfidence:  est.Confidence,
		AdmissionCategory:    est.Category,
		CostFit:              round(CostFit(u.HeadlineCost(), p.BudgetMin, p.BudgetMax), 3),
		FieldMatch:           FieldMatch(p.FieldOfStudy, u.Fields),
		CountryPreference:    e.CountryPreference(p.PreferredCountries, u.Country),
		Ranking:              RankingScore(u.Ranking),
	}
	s.Overall = round(e.Overall(s), 3)
	return s
}

// Overall is the weighted sum of the criterion scores, clamped to [0,1].
func (e *Engine) Overall(s ScoreSet) float64 {
	w := e.cfg.Weights
	total := s.AdmissionProbability*w.Admission +
		s.CostFit*w.Cost +
		s.FieldMatch*w.Field +
		s.CountryPreference*w.Country +
		s.Ranking*w.Ranking
	return clamp(total, 0, 1)
}

// CostFit scores a cost against the budget range. Without a budget the score is neutral.
func CostFit(cost, budgetMin, budgetMax float64) float64 {
	if budgetMax <= 0 {
		return neutralScore
	}
	switch {
	case cost <= budgetMin:
		return 1.0
	case cost <= budgetMax:
		fit := 1 - (cost-budgetMin)/(budgetMax-budgetMin)
		if fit < 0.3 {
			return 0.3
		}
		return fit
	default:
		over := (cost - budgetMax) / budgetMax
		if over > 0.7 {
			over = 0.7
		}
		return clamp(0.3-over, 0, 1)
	}
}

// FieldMatch compares the student's field with the university's fields: 1.0 when one
// contains the other, 0.7 when a keyword longer than two letters appears in a field, else 0.2.
func FieldMatch(studentField string, fields []string) float64 {
	sf := strings.ToLower(strings.TrimSpace(studentField))

	lowered := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			lowered = append(lowered, f)
		}
	}
	if sf == "" || len(lowered) == 0 {
		return neutralScore
	}

	for _, f := range lowered {
		if strings.Contains(f, sf) || strings.Contains(sf, f) {
			return 1.0
		}
	}
	for _, kw := range strings.Fields(sf) {
		if len(kw) <= 2 {
			continue
		}
		for _, f := range lowered {
			if strings.Contains(f, kw) {
				return 0.7
			}
		}
	}
	return 0.2
}

// CountryPreference is 1.0 when the country matches a preference, 0.1 when it matches none
// and neutral when there are no preferences.
func (e *Engine) CountryPreference(prefs []string, country string) float64 {
	if len(prefs) == 0 {
		return neutralScore
	}
	if e.cfg.Countries.MatchAny(prefs, country) {
		return 1.0
	}
	return 0.1
}

// RankingScore buckets a global ranking. Unknown rankings are neutral.
func RankingScore(ranking int) float64 {
	switch {
	case ranking <= 0:
		return neutralScore
	case ranking <= 10:
		return 1.0
	case ranking <= 50:
		return 0.8
	case ranking <= 100:
		return 0.6
	case ranking <= 200:
		return 0.4
	case ranking <= 500:
		return 0.2
	default:
		return 0.1
	}
}
