package engine

import (
	"strings"

	"study-abroad-engine/internal/models"
)

const maxScholarships = 4

// FinancialAid is a heuristic estimate of the aid a student might receive.
type FinancialAid struct {
	PotentialScore   float64  `json:"potentialScore"`
	EstimatedAmount  float64  `json:"estimatedAidAmount"`
	Likelihood       string   `json:"aidLikelihood"`
	ScholarshipTypes []string `json:"scholarshipTypes"`
}

func academicStrength(p models.StudentProfile) float64 {
	s := 0.0
	switch cgpa := sanitize(p.CGPA); {
	case atLeast(cgpa, 3.7):
		s += 0.4
	case atLeast(cgpa, 3.3):
		s += 0.2
	}
	switch {
	case p.GRE >= 320:
		s += 0.3
	case p.GRE >= 300:
		s += 0.15
	}
	return s
}

// generosity assumes better ranked universities fund more students.
func generosity(ranking int) float64 {
	switch {
	case ranking > 0 && ranking <= 50:
		return 0.5
	case ranking > 0 && ranking <= 200:
		return 0.4
	default:
		return 0.3
	}
}

func aidLikelihood(potential float64) string {
	switch {
	case potential >= 0.7:
		return "high"
	case potential >= 0.4:
		return "moderate"
	default:
		return "low"
	}
}

func (e *Engine) financialAid(p models.StudentProfile, u models.University) FinancialAid {
	potential := round(clamp(academicStrength(p)+generosity(u.Ranking), 0, 1), 2)
	return FinancialAid{
		PotentialScore:   potential,
		EstimatedAmount:  round(u.TuitionFee*potential*e.cfg.AidMultiplier, 2),
		Likelihood:       aidLikelihood(potential),
		ScholarshipTypes: e.scholarships(p, u),
	}
}

// scholarships lists the scholarship kinds the profile plausibly qualifies for, at most four.
func (e *Engine) scholarships(p models.StudentProfile, u models.University) []string {
	var out []string
	cgpa := sanitize(p.CGPA)
	if atLeast(cgpa, 3.8) {
		out = append(out, "Academic Excellence Scholarship")
	}
	if atLeast(cgpa, 3.5) {
		out = append(out, "Merit-based Aid")
	}
	if p.GRE >= 325 {
		out = append(out, "Graduate Research Assistantship")
	}
	if p.GRE >= 315 {
		out = append(out, "Teaching Assistantship")
	}

	field := strings.ToLower(p.FieldOfStudy)
	if strings.Contains(field, "engineering") || strings.Contains(field, "computer") {
		out = append(out, "STEM Scholarship")
	}
	if strings.Contains(field, "business") {
		out = append(out, "Business School Fellowship")
	}
	if !e.cfg.Countries.Same(p.HomeCountry, u.Country) {
		out = append(out, "International Student Aid")
	}

	if len(out) > maxScholarships {
		out = out[:maxScholarships]
	}
	return out
}
