package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"study-abroad-engine/internal/models"
)

// Recommendation is one ranked university with everything computed for it.
type Recommendation struct {
	Rank           int               `json:"rank"`
	UniversityID   int64             `json:"universityId"`
	UniversityName string            `json:"universityName"`
	Country        string            `json:"country"`
	City           string            `json:"city,omitempty"`
	Scores         ScoreSet          `json:"scores"`
	Costs          CostBreakdown     `json:"costBreakdown"`
	Explanation    []string          `json:"explanation"`
	University     models.University `json:"universityData"`
}

// SkippedCandidate records a university that could not be scored.
type SkippedCandidate struct {
	UniversityID int64  `json:"universityId"`
	Name         string `json:"universityName"`
	Reason       string `json:"reason"`
}

// RankResult is the outcome of ranking one candidate set.
type RankResult struct {
	Recommendations []Recommendation `json:"recommendations"`
	// Considered counts the candidates that were scored successfully.
	Considered           int                `json:"totalUniversitiesConsidered"`
	Skipped              []SkippedCandidate `json:"skipped,omitempty"`
	CountryFilterApplied bool               `json:"countryFilterApplied"`
}

// Evaluate scores, costs and explains a single university. The cost percentile is left at
// zero because it only has meaning within a set.
func (e *Engine) Evaluate(p models.StudentProfile, u models.University) (rec Recommendation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: university %d: panic: %v", ErrInvalidRecord, u.ID, r)
		}
	}()

	costs, err := e.CostBreakdown(p, u)
	if err != nil {
		return Recommendation{}, err
	}
	scores := e.Score(p, u)
	if math.IsNaN(scores.Overall) {
		return Recommendation{}, fmt.Errorf("%w: university %d scored NaN", ErrInvalidRecord, u.ID)
	}

	return Recommendation{
		UniversityID:   u.ID,
		UniversityName: u.Name,
		Country:        u.Country,
		City:           u.City,
		Scores:         scores,
		Costs:          costs,
		Explanation:    Explain(scores, p, u),
		University:     u,
	}, nil
}

// FilterByCountry keeps the candidates in one of the preferred countries. The filter is
// advisory: with no preferences, or when nothing matches, every candidate is kept.
func (e *Engine) FilterByCountry(prefs []string, candidates []models.University) ([]models.University, bool) {
	if len(prefs) == 0 {
		return candidates, false
	}
	filtered := make([]models.University, 0, len(candidates))
	for _, u := range candidates {
		if e.cfg.Countries.MatchAny(prefs, u.Country) {
			filtered = append(filtered, u)
		}
	}
	if len(filtered) == 0 {
		return candidates, false
	}
	return filtered, true
}

type slot struct {
	rec Recommendation
	err error
}

// Rank scores every candidate concurrently and returns them best first. Candidates that fail
// are skipped and reported; only a cancelled context fails the whole batch. maxResults <= 0
// keeps every scored candidate.
func (e *Engine) Rank(ctx context.Context, p models.StudentProfile, candidates []models.University, maxResults int) (*RankResult, error) {
	start := time.Now()

	pool, filtered := e.FilterByCountry(p.PreferredCountries, candidates)
	slots := make([]slot, len(pool))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i := range pool {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := e.Evaluate(p, pool[i])
			slots[i] = slot{rec: rec, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &RankResult{CountryFilterApplied: filtered}
	recs := make([]Recommendation, 0, len(pool))
	for i, s := range slots {
		if s.err != nil {
			result.Skipped = append(result.Skipped, SkippedCandidate{
				UniversityID: pool[i].ID,
				Name:         pool[i].Name,
				Reason:       s.err.Error(),
			})
			e.logger.Warn("candidate skipped", map[string]interface{}{
				"universityId": pool[i].ID,
				"error":        s.err.Error(),
			})
			continue
		}
		recs = append(recs, s.rec)
	}
	result.Considered = len(recs)

	costs := make([]float64, len(recs))
	for i := range recs {
		costs[i] = recs[i].Costs.TotalAnnualCost
	}
	for i, pct := range CostPercentiles(costs) {
		recs[i].Costs.Efficiency.TotalCostPercentile = pct
	}

	SortRecommendations(recs)
	if maxResults > 0 && len(recs) > maxResults {
		recs = recs[:maxResults]
	}
	for i := range recs {
		recs[i].Rank = i + 1
	}
	result.Recommendations = recs

	duration := time.Since(start)
	fields := map[string]interface{}{
		"inputCount":   len(candidates),
		"scoredCount":  result.Considered,
		"skippedCount": len(result.Skipped),
		"outputCount":  len(recs),
		"durationMs":   duration.Milliseconds(),
	}
	e.logger.Info("ranking completed", fields)
	if e.cfg.SlowThreshold > 0 && duration > e.cfg.SlowThreshold {
		e.logger.Warn("ranking exceeded slow threshold", fields)
	}

	return result, nil
}

func rankingOrder(r int) int {
	if r <= 0 {
		return math.MaxInt
	}
	return r
}

// SortRecommendations orders by overall score descending, then global ranking ascending with
// unranked universities last, then name, then id.
func SortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Scores.Overall != b.Scores.Overall {
			return a.Scores.Overall > b.Scores.Overall
		}
		ra, rb := rankingOrder(a.University.Ranking), rankingOrder(b.University.Ranking)
		if ra != rb {
			return ra < rb
		}
		if a.UniversityName != b.UniversityName {
			return a.UniversityName < b.UniversityName
		}
		return a.UniversityID < b.UniversityID
	})
}
