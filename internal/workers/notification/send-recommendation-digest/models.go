package sendrecommendationdigest

import "study-abroad-engine/internal/engine"

type Input struct {
	UserID          string                  `json:"userId,omitempty"`
	Email           string                  `json:"email,omitempty"`
	StudentName     string                  `json:"studentName,omitempty"`
	Recommendations []engine.Recommendation `json:"recommendations"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	MessageID      string `json:"messageId,omitempty"`
	Status         string `json:"status"`
	Sent           bool   `json:"sent"`
	Items          int    `json:"items"`
}
