package resolvestudentprofile

import "study-abroad-engine/internal/models"

type Input struct {
	UserID string `json:"userId"`
}

type Output struct {
	StudentProfile models.StudentProfile `json:"studentProfile"`
}
