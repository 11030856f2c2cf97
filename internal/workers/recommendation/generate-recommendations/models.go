package generaterecommendations

import (
	"study-abroad-engine/internal/catalog"
	"study-abroad-engine/internal/models"
	"study-abroad-engine/internal/service"
)

type Input struct {
	UserID         string                 `json:"userId,omitempty"`
	StudentProfile *models.StudentProfile `json:"studentProfile,omitempty"`
	Filters        *catalog.Filter        `json:"filters,omitempty"`
	MaxResults     int                    `json:"maxResults,omitempty"`
	PublishEvent   bool                   `json:"publishEvent,omitempty"`
}

type Output struct {
	*service.RecommendationResult
	EventID     string `json:"eventId,omitempty"`
	EventStatus string `json:"eventStatus,omitempty"`
}
