package searchuniversities

import (
	"study-abroad-engine/internal/catalog"
	"study-abroad-engine/internal/models"
)

type Input struct {
	Query   string          `json:"query,omitempty"`
	Filters *catalog.Filter `json:"filters,omitempty"`
	Limit   int             `json:"limit,omitempty"`
}

type Output struct {
	Universities []models.University `json:"universities"`
	Total        int                 `json:"total"`
	Returned     int                 `json:"returned"`
	Truncated    bool                `json:"truncated"`
}
