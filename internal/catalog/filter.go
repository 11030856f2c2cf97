package catalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"study-abroad-engine/internal/common/country"
	"study-abroad-engine/internal/models"
)

// Filter narrows the catalog. Zero values are unset. The Max* requirement bounds are
// admissibility filters: a university passes when its stated minimum is at or below the bound.
type Filter struct {
	Countries         models.CountryList `json:"countries,omitempty"`
	Fields            []string           `json:"fields,omitempty"`
	MinTuition        float64            `json:"minTuition,omitempty"`
	MaxTuition        float64            `json:"maxTuition,omitempty"`
	MaxBudget         float64            `json:"maxBudget,omitempty"`
	MaxCGPA           float64            `json:"maxCgpa,omitempty"`
	MaxGRE            int                `json:"maxGre,omitempty"`
	MaxIELTS          float64            `json:"maxIelts,omitempty"`
	MaxTOEFL          int                `json:"maxToefl,omitempty"`
	Type              string             `json:"type,omitempty"`
	MinRanking        int                `json:"minRanking,omitempty"`
	MaxRanking        int                `json:"maxRanking,omitempty"`
	MinAcceptanceRate float64            `json:"minAcceptanceRate,omitempty"`
	MaxAcceptanceRate float64            `json:"maxAcceptanceRate,omitempty"`
	// Expression is a CEL boolean over `university`, e.g. `university.tuition_fee < 40000.0`.
	Expression string `json:"expression,omitempty"`
}

// IsZero reports whether the filter selects the whole catalog.
func (f Filter) IsZero() bool {
	return len(f.Countries) == 0 && len(f.Fields) == 0 && f.MinTuition == 0 && f.MaxTuition == 0 &&
		f.MaxBudget == 0 && f.MaxCGPA == 0 && f.MaxGRE == 0 && f.MaxIELTS == 0 && f.MaxTOEFL == 0 &&
		f.Type == "" && f.MinRanking == 0 && f.MaxRanking == 0 &&
		f.MinAcceptanceRate == 0 && f.MaxAcceptanceRate == 0 && strings.TrimSpace(f.Expression) == ""
}

// Validate rejects negative bounds and inverted ranges.
func (f Filter) Validate() error {
	if f.MinTuition < 0 || f.MaxTuition < 0 || f.MaxBudget < 0 || f.MaxCGPA < 0 || f.MaxGRE < 0 ||
		f.MaxIELTS < 0 || f.MaxTOEFL < 0 || f.MinRanking < 0 || f.MaxRanking < 0 ||
		f.MinAcceptanceRate < 0 || f.MaxAcceptanceRate < 0 {
		return fmt.Errorf("%w: bounds must not be negative", ErrInvalidFilter)
	}
	if f.MaxTuition > 0 && f.MinTuition > f.MaxTuition {
		return fmt.Errorf("%w: minTuition %.0f exceeds maxTuition %.0f", ErrInvalidFilter, f.MinTuition, f.MaxTuition)
	}
	if f.MaxRanking > 0 && f.MinRanking > f.MaxRanking {
		return fmt.Errorf("%w: minRanking %d exceeds maxRanking %d", ErrInvalidFilter, f.MinRanking, f.MaxRanking)
	}
	if f.MinAcceptanceRate > 1 || f.MaxAcceptanceRate > 1 {
		return fmt.Errorf("%w: acceptance rate bounds must be within [0,1]", ErrInvalidFilter)
	}
	if f.MaxAcceptanceRate > 0 && f.MinAcceptanceRate > f.MaxAcceptanceRate {
		return fmt.Errorf("%w: minAcceptanceRate exceeds maxAcceptanceRate", ErrInvalidFilter)
	}
	return nil
}

// Predicate is a compiled filter.
type Predicate func(models.University) bool

var (
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("university", cel.DynType),
			cel.CrossTypeNumericComparisons(true),
		)
	})
	return celEnv, celEnvErr
}

// Compile validates f and builds its predicate. The CEL expression is compiled once here.
func (f Filter) Compile() (Predicate, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var prg cel.Program
	if expr := strings.TrimSpace(f.Expression); expr != "" {
		env, err := getCELEnv()
		if err != nil {
			return nil, fmt.Errorf("cel environment: %w", err)
		}
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("%w: expression: %v", ErrInvalidFilter, issues.Err())
		}
		prg, err = env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("%w: expression: %v", ErrInvalidFilter, err)
		}
	}

	matcher := country.Default()
	return func(u models.University) bool {
		if !f.matchesFields(u, matcher) {
			return false
		}
		if prg == nil {
			return true
		}
		out, _, err := prg.Eval(map[string]interface{}{"university": celInput(u)})
		if err != nil {
			return false
		}
		ok, isBool := out.Value().(bool)
		return isBool && ok
	}, nil
}

// Matches applies f to a single record. An invalid filter matches nothing.
func (f Filter) Matches(u models.University) bool {
	pred, err := f.Compile()
	if err != nil {
		return false
	}
	return pred(u)
}

// Apply returns the records of universities that pass f, in input order.
func (f Filter) Apply(universities []models.University) ([]models.University, error) {
	pred, err := f.Compile()
	if err != nil {
		return nil, err
	}
	out := make([]models.University, 0, len(universities))
	for _, u := range universities {
		if pred(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f Filter) matchesFields(u models.University, matcher *country.Matcher) bool {
	if len(f.Countries) > 0 && !matcher.MatchAny(f.Countries, u.Country) {
		return false
	}
	if len(f.Fields) > 0 && !offersAny(u.Fields, f.Fields) {
		return false
	}
	if f.MinTuition > 0 && u.TuitionFee < f.MinTuition {
		return false
	}
	if f.MaxTuition > 0 && u.TuitionFee > f.MaxTuition {
		return false
	}
	if f.MaxBudget > 0 && u.HeadlineCost() > f.MaxBudget {
		return false
	}
	if f.MaxCGPA > 0 && u.MinCGPA > f.MaxCGPA {
		return false
	}
	if f.MaxGRE > 0 && u.MinGRE > f.MaxGRE {
		return false
	}
	if f.MaxIELTS > 0 && u.MinIELTS > f.MaxIELTS {
		return false
	}
	if f.MaxTOEFL > 0 && u.MinTOEFL > f.MaxTOEFL {
		return false
	}
	if f.Type != "" && !strings.EqualFold(strings.TrimSpace(f.Type), strings.TrimSpace(u.Type)) {
		return false
	}
	// unranked universities never satisfy a ranking bound
	if (f.MinRanking > 0 || f.MaxRanking > 0) && u.Ranking == 0 {
		return false
	}
	if f.MinRanking > 0 && u.Ranking < f.MinRanking {
		return false
	}
	if f.MaxRanking > 0 && u.Ranking > f.MaxRanking {
		return false
	}
	if f.MinAcceptanceRate > 0 && u.AcceptanceRate < f.MinAcceptanceRate {
		return false
	}
	if f.MaxAcceptanceRate > 0 && u.AcceptanceRate > f.MaxAcceptanceRate {
		return false
	}
	return true
}

// offersAny matches wanted fields against offered ones by case-insensitive containment.
func offersAny(offered, wanted []string) bool {
	for _, w := range wanted {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		for _, o := range offered {
			o = strings.ToLower(strings.TrimSpace(o))
			if o != "" && (strings.Contains(o, w) || strings.Contains(w, o)) {
				return true
			}
		}
	}
	return false
}

func celInput(u models.University) map[string]interface{} {
	fields := make([]string, len(u.Fields))
	copy(fields, u.Fields)
	return map[string]interface{}{
		"id":              u.ID,
		"name":            u.Name,
		"country":         u.Country,
		"city":            u.City,
		"min_cgpa":        u.MinCGPA,
		"min_gre":         int64(u.MinGRE),
		"min_ielts":       u.MinIELTS,
		"min_toefl":       int64(u.MinTOEFL),
		"acceptance_rate": u.AcceptanceRate,
		"ranking":         int64(u.Ranking),
		"tuition_fee":     u.TuitionFee,
		"living_cost":     u.LivingCost,
		"application_fee": u.ApplicationFee,
		"other_fees":      u.OtherFees,
		"fields":          fields,
		"type":            u.Type,
	}
}
