package projectcosttrends

import (
	"study-abroad-engine/internal/engine"
	"study-abroad-engine/internal/models"
)

type Input struct {
	UserID         string                 `json:"userId,omitempty"`
	StudentProfile *models.StudentProfile `json:"studentProfile,omitempty"`
	UniversityID   int64                  `json:"universityId"`
	Years          int                    `json:"years,omitempty"`
	InflationRate  *float64               `json:"inflationRate,omitempty"` // percent; nil uses the configured rate
}

type Output struct {
	*engine.CostTrendReport
}
