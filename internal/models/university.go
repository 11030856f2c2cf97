package models

// University is one catalog record. Zero requirement, acceptance-rate and ranking values mean
// the value is unknown.
type University struct {
	ID             int64    `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Country        string   `json:"country" yaml:"country"`
	City           string   `json:"city,omitempty" yaml:"city"`
	MinCGPA        float64  `json:"min_cgpa" yaml:"min_cgpa"`
	MinGRE         int      `json:"min_gre" yaml:"min_gre"`
	MinIELTS       float64  `json:"min_ielts" yaml:"min_ielts"`
	MinTOEFL       int      `json:"min_toefl" yaml:"min_toefl"`
	AcceptanceRate float64  `json:"acceptance_rate" yaml:"acceptance_rate"`
	Ranking        int      `json:"ranking" yaml:"ranking"`
	TuitionFee     float64  `json:"tuition_fee" yaml:"tuition_fee"`
	LivingCost     float64  `json:"living_cost" yaml:"living_cost"`
	ApplicationFee float64  `json:"application_fee" yaml:"application_fee"`
	OtherFees      float64  `json:"other_fees" yaml:"other_fees"`
	Fields         []string `json:"fields" yaml:"fields"`
	Type           string   `json:"type,omitempty" yaml:"type"`
}

const (
	UniversityTypePublic  = "Public"
	UniversityTypePrivate = "Private"
)

// Clone returns a copy that shares no slices with u.
func (u University) Clone() University {
	u.Fields = append(u.Fields[:0:0], u.Fields...)
	return u
}

// HeadlineCost is tuition plus living cost, the figure budgets are compared against.
func (u University) HeadlineCost() float64 {
	return u.TuitionFee + u.LivingCost
}
