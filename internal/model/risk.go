package model

// RiskLevel is the ordinal flood risk band derived from a probability.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMild   RiskLevel = "MILD"
	RiskHigh   RiskLevel = "HIGH"
	RiskSevere RiskLevel = "SEVERE"
)

// Classification thresholds. Bands are left-inclusive: [0, Mild) is LOW,
// [Mild, High) is MILD, [High, Severe) is HIGH, [Severe, 1] is SEVERE.
const (
	ThresholdMild   = 0.4
	ThresholdHigh   = 0.6
	ThresholdSevere = 0.8
)

// Qualifying reports whether the level is high enough to trigger alerts.
func (l RiskLevel) Qualifying() bool {
	return l == RiskHigh || l == RiskSevere
}

// rank orders the bands so callers can compare severity.
func (l RiskLevel) rank() int {
	switch l {
	case RiskLow:
		return 0
	case RiskMild:
		return 1
	case RiskHigh:
		return 2
	case RiskSevere:
		return 3
	}
	return -1
}

// AtLeast reports whether l is as severe as other.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.rank() >= other.rank()
}

// ClampProbability squeezes p into [0, 1]. It is the single clamping policy
// applied immediately before classification on every path; values outside the
// unit interval can only come from a misbehaving external model.
func ClampProbability(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// ClassifyRisk maps a probability to its risk band. Pure and total on [0, 1];
// inputs outside the range are clamped first.
func ClassifyRisk(p float64) RiskLevel {
	p = ClampProbability(p)
	switch {
	case p >= ThresholdSevere:
		return RiskSevere
	case p >= ThresholdHigh:
		return RiskHigh
	case p >= ThresholdMild:
		return RiskMild
	default:
		return RiskLow
	}
}
