package dataset

import "fmt"

// InsightStatus grades an insight.
type InsightStatus string

const (
	InsightNormal   InsightStatus = "normal"
	InsightWarning  InsightStatus = "warning"
	InsightCritical InsightStatus = "critical"
)

const (
	pressureWarnThreshold    = 10.0
	temperatureCritThreshold = 200.0
)

// Insight is a short observation derived from a summary.
type Insight struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      InsightStatus `json:"status"`
}

// Insights derives the dashboard insight cards from a summary. A nil summary
// yields no insights.
func Insights(s *Summary) []Insight {
	if s == nil {
		return nil
	}

	insights := make([]Insight, 0, 3)
	if s.AveragePressure > pressureWarnThreshold {
		insights = append(insights, Insight{
			Title:       "High Pressure Detected",
			Description: fmt.Sprintf("Average pressure of %.2f PSI exceeds normal operating range. Consider inspection.", s.AveragePressure),
			Status:      InsightWarning,
		})
	}

	if s.AverageTemperature > temperatureCritThreshold {
		insights = append(insights, Insight{
			Title:       "Elevated Temperature",
			Description: fmt.Sprintf("System running at %.2f°F. Monitor for thermal stress.", s.AverageTemperature),
			Status:      InsightCritical,
		})
	} else {
		insights = append(insights, Insight{
			Title:       "Temperature Normal",
			Description: "All equipment operating within safe temperature ranges.",
			Status:      InsightNormal,
		})
	}

	insights = append(insights, Insight{
		Title:       "Equipment Fleet Status",
		Description: fmt.Sprintf("%d pieces of equipment actively monitored. All systems operational.", s.TotalEquipment),
		Status:      InsightNormal,
	})
	return insights
}
