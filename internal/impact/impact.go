// Package impact turns the pledge total into the figures shown next to the
// lungs illustration.
package impact

import "math"

const (
	LivesPerPledge = 3
	DaysPerPledge  = 30

	// FullAt is the pledge total at which the lungs are drawn full.
	FullAt = 200
)

const (
	StatusAtRisk    = "At Risk"
	StatusGood      = "Good"
	StatusBetter    = "Better"
	StatusExcellent = "Excellent"
	StatusMaximum   = "Maximum Health"
)

type Stats struct {
	Pledges         int64   `json:"pledges"`
	LivesImpacted   int64   `json:"lives_impacted"`
	TobaccoFreeDays int64   `json:"tobacco_free_days"`
	FillLevel       float64 `json:"fill_level"`
	FillPercentage  int     `json:"fill_percentage"`
	HealthStatus    string  `json:"health_status"`
}

func For(pledges int64) Stats {
	if pledges < 0 {
		pledges = 0
	}

	level := FillLevel(pledges)

	return Stats{
		Pledges:         pledges,
		LivesImpacted:   pledges * LivesPerPledge,
		TobaccoFreeDays: pledges * DaysPerPledge,
		FillLevel:       level,
		FillPercentage:  int(math.Round(level * 100)),
		HealthStatus:    HealthStatus(level),
	}
}

// FillLevel is the share of the lungs drawn filled, capped at 1.
func FillLevel(pledges int64) float64 {
	return math.Min(float64(pledges)/FullAt, 1)
}

func HealthStatus(level float64) string {
	switch {
	case level < 0.25:
		return StatusAtRisk
	case level < 0.5:
		return StatusGood
	case level < 0.75:
		return StatusBetter
	case level < 1:
		return StatusExcellent
	default:
		return StatusMaximum
	}
}
