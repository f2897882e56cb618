package model

// RiskLevel is a coarse band over a 0..100 risk scale.
type RiskLevel string

const (
	LevelSafe     RiskLevel = "safe"
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
)

// LevelFor maps a 0..100 score to its band.
func LevelFor(score float64) RiskLevel {
	switch {
	case score <= 10:
		return LevelSafe
	case score <= 30:
		return LevelLow
	case score <= 55:
		return LevelMedium
	case score <= 75:
		return LevelHigh
	default:
		return LevelCritical
	}
}
