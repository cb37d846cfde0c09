package domain

import "fmt"

const (
	ImpactLow  = "Low Impact"
	ImpactHigh = "High Impact"

	// lowImpactBelow is the intensity under which a report counts as low impact.
	lowImpactBelow = 1.0
)

// ImpactOf returns the badge shown next to a report.
func ImpactOf(intensity float64) string {
	if intensity < lowImpactBelow {
		return ImpactLow
	}
	return ImpactHigh
}

// Summary holds the dashboard KPIs. AverageIntensity is nil with no reports.
type Summary struct {
	Count            int      `json:"count"`
	AverageIntensity *float64 `json:"average_intensity"`
}

func Summarize(reports []Report) Summary {
	s := Summary{Count: len(reports)}
	if len(reports) == 0 {
		return s
	}
	var sum float64
	for _, r := range reports {
		sum += r.Intensity
	}
	avg := sum / float64(len(reports))
	s.AverageIntensity = &avg
	return s
}

// FormatAverage renders the average with three decimals, or "--" when empty.
func (s Summary) FormatAverage() string {
	if s.AverageIntensity == nil {
		return "--"
	}
	return fmt.Sprintf("%.3f", *s.AverageIntensity)
}
