// Package catalog serves university records from a file, PostgreSQL or Elasticsearch.
//
// Every backend implements Provider and applies the same Filter semantics, so callers never
// branch on where the records live.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"study-abroad-engine/internal/models"
)

var (
	ErrNotFound      = errors.New("university not found")
	ErrInvalidFilter = errors.New("invalid catalog filter")
	ErrInvalidRecord = errors.New("invalid catalog record")
)

// Provider is a read-only university catalog.
type Provider interface {
	GetByID(ctx context.Context, id int64) (*models.University, error)
	// Search matches text case-insensitively against name and city.
	Search(ctx context.Context, text string) ([]models.University, error)
	Filter(ctx context.Context, f Filter) ([]models.University, error)
}

// Named reports the backend behind a provider, for logs and errors.
type Named interface {
	Name() string
}

// BackendName returns p's backend name, or "catalog" when it does not report one.
func BackendName(p Provider) string {
	if n, ok := p.(Named); ok {
		return n.Name()
	}
	return "catalog"
}

func matchesText(u models.University, text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(u.Name), text) ||
		strings.Contains(strings.ToLower(u.City), text)
}

// ValidateRecord rejects records the engine cannot score.
func ValidateRecord(u models.University) error {
	switch {
	case u.ID <= 0:
		return fmt.Errorf("%w: university %d: id must be positive", ErrInvalidRecord, u.ID)
	case strings.TrimSpace(u.Name) == "":
		return fmt.Errorf("%w: university %d: name is required", ErrInvalidRecord, u.ID)
	case strings.TrimSpace(u.Country) == "":
		return fmt.Errorf("%w: university %d: country is required", ErrInvalidRecord, u.ID)
	case u.TuitionFee < 0 || u.LivingCost < 0 || u.ApplicationFee < 0 || u.OtherFees < 0:
		return fmt.Errorf("%w: university %d: costs must not be negative", ErrInvalidRecord, u.ID)
	case u.AcceptanceRate < 0 || u.AcceptanceRate > 1:
		return fmt.Errorf("%w: university %d: acceptance_rate must be within [0,1]", ErrInvalidRecord, u.ID)
	case u.Ranking < 0:
		return fmt.Errorf("%w: university %d: ranking must not be negative", ErrInvalidRecord, u.ID)
	}
	return nil
}
