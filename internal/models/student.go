package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StudentProfile is the academic and financial profile a recommendation is computed for.
// Zero GRE, IELTS and TOEFL values mean the score was not provided.
type StudentProfile struct {
	UserID             string      `json:"userId,omitempty"`
	Name               string      `json:"name,omitempty"`
	Email              string      `json:"email,omitempty" validate:"omitempty,email"`
	CGPA               float64     `json:"cgpa" validate:"gte=0,lte=4"`
	GRE                int         `json:"greScore" validate:"omitempty,gte=260,lte=340"`
	IELTS              float64     `json:"ieltsScore" validate:"gte=0,lte=9"`
	TOEFL              int         `json:"toeflScore" validate:"gte=0,lte=120"`
	FieldOfStudy       string      `json:"fieldOfStudy"`
	PreferredCountries CountryList `json:"preferredCountries"`
	BudgetMin          float64     `json:"budgetMin" validate:"gte=0"`
	BudgetMax          float64     `json:"budgetMax" validate:"gte=0"`
	HomeCountry        string      `json:"homeCountry"`
}

// HasBudget reports whether the student stated an upper budget.
func (p StudentProfile) HasBudget() bool {
	return p.BudgetMax > 0
}

// CountryList accepts either a JSON array of names or a single comma-delimited string.
type CountryList []string

func (c *CountryList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*c = nil
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("preferred countries: %w", err)
		}
		*c = cleanCountries(items)
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("preferred countries must be a list or a comma-separated string: %w", err)
	}
	*c = ParseCountryList(joined)
	return nil
}

// ParseCountryList splits a comma-delimited list, dropping blanks.
func ParseCountryList(s string) CountryList {
	return cleanCountries(strings.Split(s, ","))
}

func cleanCountries(items []string) CountryList {
	out := make(CountryList, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
