package explainrecommendation

import (
	"study-abroad-engine/internal/models"
	"study-abroad-engine/internal/service"
)

type Input struct {
	UserID         string                 `json:"userId,omitempty"`
	StudentProfile *models.StudentProfile `json:"studentProfile,omitempty"`
	UniversityID   int64                  `json:"universityId"`
}

type Output struct {
	*service.ExplanationResult
}
