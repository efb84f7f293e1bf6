package patterns

// Grade classifies option premium richness relative to realized volatility.
type Grade string

const (
	GradeA Grade = "A" // expensive: high IV rank, IV well above RV
	GradeB Grade = "B" // rich
	GradeC Grade = "C" // cheap: IV below RV
	GradeD Grade = "D" // fairly priced
	GradeF Grade = "F" // ambiguous: neither clearly cheap nor clearly rich
)

// ThetaGrade grades premium richness from implied vol, realized vol, and
// the IV percentile rank. This is a fixed decision table, not a continuous
// score; downstream alerting keys off the grade boundary, so the thresholds
// are load-bearing constants.
func ThetaGrade(impliedVol, realizedVol, ivRank float64) Grade {
	if impliedVol <= 0 || realizedVol <= 0 {
		return GradeF
	}
	ratio := impliedVol / realizedVol

	switch {
	case ivRank > 70 && ratio > 1.5:
		return GradeA
	case ivRank > 50 && ratio > 1.2:
		return GradeB
	case ratio < 0.9:
		return GradeC
	case ratio >= 0.9 && ratio <= 1.2:
		return GradeD
	default:
		return GradeF
	}
}
