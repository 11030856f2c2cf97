package predictbatchadmission

import (
	"study-abroad-engine/internal/models"
	"study-abroad-engine/internal/service"
)

type Input struct {
	UserID         string                 `json:"userId,omitempty"`
	StudentProfile *models.StudentProfile `json:"studentProfile,omitempty"`
	UniversityIDs  []int64                `json:"universityIds"`
}

// Output lists one prediction per requested id, in request order. Failed items carry an
// errorCode instead of failing the job.
type Output struct {
	BatchID     string                    `json:"batchId"`
	Predictions []service.AdmissionResult `json:"predictions"`
	Total       int                       `json:"total"`
	Succeeded   int                       `json:"succeeded"`
	Failed      int                       `json:"failed"`
}
