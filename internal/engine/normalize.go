package engine

import "math"

// Scale maxima used to normalize academic scores into [0,1].
const (
	CGPAScale    = 4.0
	GREScale     = 340.0
	EnglishScale = 9.0
)

type toeflBand struct {
	min   int
	ielts float64
}

// toeflBands is ordered from the highest band down.
var toeflBands = []toeflBand{
	{118, 9.0},
	{115, 8.5},
	{110, 8.0},
	{102, 7.5},
	{94, 7.0},
	{79, 6.5},
	{60, 6.0},
	{46, 5.5},
}

// ToeflToIelts maps a TOEFL iBT score onto the IELTS band it is equivalent to.
func ToeflToIelts(toefl int) float64 {
	for _, band := range toeflBands {
		if toefl >= band.min {
			return band.ielts
		}
	}
	return 5.0
}

// ResolveEnglish picks the authoritative English score on the IELTS scale. TOEFL is
// converted only when no IELTS score is present. The same rule applies to requirements.
func ResolveEnglish(ielts float64, toefl int) float64 {
	ielts = sanitize(ielts)
	if toefl > 0 && ielts == 0 {
		return ToeflToIelts(toefl)
	}
	return ielts
}

// Normalize01 divides value by scaleMax and clamps the result into [0,1].
func Normalize01(value, scaleMax float64) float64 {
	if scaleMax <= 0 {
		return 0
	}
	return clamp(sanitize(value)/scaleMax, 0, 1)
}

// sanitize treats NaN, infinities and negatives as absent.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func sanitizeInt(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
