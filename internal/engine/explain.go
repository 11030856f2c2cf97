package engine

import (
	"fmt"

	"study-abroad-engine/internal/models"
)

// Explain turns a score set into rationale lines. The order is fixed: admission, cost,
// field, country, ranking, CGPA.
func Explain(s ScoreSet, p models.StudentProfile, u models.University) []string {
	lines := []string{
		fmt.Sprintf("%s admission probability (%.1f%%)", s.AdmissionCategory, s.AdmissionProbability*100),
	}

	switch {
	case s.CostFit >= 0.8:
		lines = append(lines, "Excellent cost fit within your budget")
	case s.CostFit >= 0.5:
		lines = append(lines, "Good cost fit for your budget range")
	case s.CostFit >= 0.3:
		lines = append(lines, "Moderate cost fit, slightly above preferred budget")
	default:
		lines = append(lines, "High cost relative to your budget")
	}

	switch {
	case s.FieldMatch >= 0.8:
		lines = append(lines, "Strong match with your field of study")
	case s.FieldMatch >= 0.5:
		lines = append(lines, "Good academic program alignment")
	case s.FieldMatch >= 0.3:
		lines = append(lines, "Some relevant programs available")
	}

	switch {
	case s.CountryPreference >= 0.8:
		lines = append(lines, "Located in your preferred country")
	case s.CountryPreference < 0.3:
		lines = append(lines, "Different from your preferred countries")
	}

	switch {
	case u.Ranking <= 0:
	case u.Ranking <= 50:
		lines = append(lines, fmt.Sprintf("Highly ranked institution (#%d globally)", u.Ranking))
	case u.Ranking <= 200:
		lines = append(lines, fmt.Sprintf("Well-regarded university (#%d globally)", u.Ranking))
	}

	if minCGPA := sanitize(u.MinCGPA); minCGPA > 0 {
		cgpa := sanitize(p.CGPA)
		switch {
		case atLeast(cgpa, minCGPA+0.2):
			lines = append(lines, "Your CGPA exceeds requirements")
		case atLeast(cgpa, minCGPA):
			lines = append(lines, "Your CGPA meets requirements")
		default:
			lines = append(lines, "CGPA below stated requirements")
		}
	}

	return lines
}

// Factor describes one criterion's contribution to the overall score.
type Factor struct {
	Score       float64 `json:"score"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// Factors breaks the overall score down by criterion.
func (e *Engine) Factors(s ScoreSet) map[string]Factor {
	w := e.cfg.Weights
	return map[string]Factor{
		CriterionAdmission: {s.AdmissionProbability, w.Admission, "Likelihood of admission based on your academic profile"},
		CriterionCost:      {s.CostFit, w.Cost, "How well the costs align with your budget"},
		CriterionField:     {s.FieldMatch, w.Field, "Alignment with your field of study"},
		CriterionCountry:   {s.CountryPreference, w.Country, "Match with your preferred countries"},
		CriterionRanking:   {s.Ranking, w.Ranking, "University global ranking and reputation"},
	}
}
