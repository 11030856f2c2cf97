// Package workertest holds the fixtures the job worker tests share.
package workertest

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"

	"study-abroad-engine/internal/catalog"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/engine"
	"study-abroad-engine/internal/models"
	"study-abroad-engine/internal/profile"
	"study-abroad-engine/internal/service"
	"study-abroad-engine/pkg/registry"
)

func Universities() []models.University {
	return []models.University{
		{ID: 1, Name: "Northfield Institute", Country: "USA", City: "Boston", MinCGPA: 3.0, MinGRE: 300, MinIELTS: 6.5,
			AcceptanceRate: 0.3, Ranking: 40, TuitionFee: 30000, LivingCost: 15000, OtherFees: 1000,
			Fields: []string{"Computer Science", "Data Science"}, Type: "Private"},
		{ID: 2, Name: "Harbor State University", Country: "USA", City: "Seattle", MinCGPA: 3.6, MinGRE: 320, MinIELTS: 7.0,
			AcceptanceRate: 0.1, Ranking: 5, TuitionFee: 50000, LivingCost: 20000,
			Fields: []string{"Computer Science", "Engineering"}, Type: "Public"},
		{ID: 3, Name: "Maple Leaf University", Country: "Canada", City: "Toronto", MinCGPA: 3.2, MinIELTS: 6.5,
			AcceptanceRate: 0.5, Ranking: 60, TuitionFee: 25000, LivingCost: 12000,
			Fields: []string{"Computer Science", "Business"}, Type: "Public"},
		{ID: 4, Name: "Southern Cross College", Country: "Australia", City: "Sydney", MinCGPA: 2.8,
			AcceptanceRate: 0.6, Ranking: 150, TuitionFee: 20000, LivingCost: 15000,
			Fields: []string{"Business"}, Type: "Public"},
	}
}

// Student is a profile that prefers the USA and has a 30k-60k budget.
func Student() models.StudentProfile {
	return models.StudentProfile{
		UserID:             "u-1",
		Name:               "Asha",
		Email:              "asha@example.com",
		CGPA:               3.5,
		GRE:                320,
		IELTS:              7.0,
		FieldOfStudy:       "Computer Science",
		PreferredCountries: models.CountryList{"USA"},
		BudgetMin:          30000,
		BudgetMax:          60000,
	}
}

// Service ranks over Universities with the default engine.
func Service(t testing.TB) *service.RecommendationService {
	return ServiceWith(t, catalog.NewStaticProvider(Universities()))
}

func ServiceWith(t testing.TB, cat catalog.Provider) *service.RecommendationService {
	t.Helper()
	log := logger.NewTestLogger(t)
	return service.New(engine.New(engine.DefaultConfig(), nil, log), cat, log)
}

// Profiles is an in-memory profile source keyed by user id.
type Profiles map[string]models.StudentProfile

func (p Profiles) Get(_ context.Context, userID string) (*models.StudentProfile, error) {
	sp, ok := p[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", profile.ErrNotFound, userID)
	}
	return &sp, nil
}

// StoredProfiles holds Student under its user id.
func StoredProfiles() Profiles {
	s := Student()
	return Profiles{s.UserID: s}
}

// Registry loads configs/activity-registry.json from the module root.
func Registry(t testing.TB) *registry.ActivityRegistry {
	t.Helper()
	_, file, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(file), "..", "..", "..", "configs", "activity-registry.json")
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		t.Fatalf("load activity registry: %v", err)
	}
	return reg
}
