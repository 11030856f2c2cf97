package engine

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

const topN = 5

type CountStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type ScoreRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Summary aggregates a list of recommendations.
type Summary struct {
	TotalRecommendations        int         `json:"totalRecommendations"`
	AverageScore                float64     `json:"averageScore"`
	AverageAdmissionProbability float64     `json:"averageAdmissionProbability"`
	ScoreRange                  ScoreRange  `json:"scoreRange"`
	TopCountries                []CountStat `json:"topCountries"`
	TopFields                   []CountStat `json:"topFields"`
}

// Summarize returns nil for an empty list.
func Summarize(recs []Recommendation) *Summary {
	if len(recs) == 0 {
		return nil
	}

	scores := make([]float64, len(recs))
	probs := make([]float64, len(recs))
	countries := make(map[string]int)
	fields := make(map[string]int)
	for i, r := range recs {
		scores[i] = r.Scores.Overall
		probs[i] = r.Scores.AdmissionProbability
		countries[r.Country]++
		for _, f := range r.University.Fields {
			fields[f]++
		}
	}

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	return &Summary{
		TotalRecommendations:        len(recs),
		AverageScore:                round(stat.Mean(scores, nil), 3),
		AverageAdmissionProbability: round(stat.Mean(probs, nil), 3),
		ScoreRange: ScoreRange{
			Min: round(sorted[0], 3),
			Max: round(sorted[len(sorted)-1], 3),
		},
		TopCountries: topCounts(countries, topN),
		TopFields:    topCounts(fields, topN),
	}
}

// topCounts returns the n most frequent names, ties broken alphabetically.
func topCounts(counts map[string]int, n int) []CountStat {
	out := make([]CountStat, 0, len(counts))
	for name, c := range counts {
		out = append(out, CountStat{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
