package analyzecosts

import (
	"study-abroad-engine/internal/engine"
	"study-abroad-engine/internal/models"
)

type Input struct {
	UserID         string                 `json:"userId,omitempty"`
	StudentProfile *models.StudentProfile `json:"studentProfile,omitempty"`
	UniversityIDs  []int64                `json:"universityIds"`
	AnalysisType   string                 `json:"analysisType,omitempty"`
}

type Output struct {
	*engine.CostAnalysisReport
}
