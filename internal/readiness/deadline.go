package readiness

import (
	"fmt"
	"math"
	"time"

	"releasecompass/internal/domain"
)

type DeadlineRecommendation struct {
	MilestoneID     string `json:"milestone_id"`
	MilestoneKey    string `json:"milestone_key"`
	MilestoneName   string `json:"milestone_name"`
	RecommendedDate string `json:"recommended_date" format:"date-time"`
	ActualDate      string `json:"actual_date" format:"date-time"`
	DaysDifference  int    `json:"days_difference"`
	BufferDays      int    `json:"buffer_days"`
	RiskLevel       string `json:"risk_level" enum:"safe,tight,risky,critical"`
	Rationale       string `json:"rationale,omitempty"`
}

type DeadlineAnalysis struct {
	Milestones    []DeadlineRecommendation `json:"milestones"`
	OverallRisk   string                   `json:"overall_risk" enum:"safe,tight,risky,critical"`
	HasConflicts  bool                     `json:"has_conflicts"`
	ConflictCount int                      `json:"conflict_count"`
}

var riskRank = map[string]int{"safe": 0, "tight": 1, "risky": 2, "critical": 3}

// AnalyzeDeadlines scores each milestone's actual due date against the
// recommended date derived from the release date and the milestone's
// catalog offset. The overall risk is the worst per-milestone tier; any
// milestone at risky or worse counts as a scheduling conflict.
func AnalyzeDeadlines(milestones []domain.Milestone, releaseDate time.Time, recommendedFor func(key string) (time.Time, int, bool), tightDays int) DeadlineAnalysis {
	out := DeadlineAnalysis{
		Milestones:  make([]DeadlineRecommendation, 0, len(milestones)),
		OverallRisk: "safe",
	}
	for _, m := range milestones {
		recommended, buffer, ok := recommendedFor(m.Key)
		if !ok {
			continue
		}
		actual, err := time.Parse(time.RFC3339, m.DueDate)
		if err != nil {
			continue
		}
		diff := daysBetween(recommended, actual)
		risk := classifyRisk(diff, tightDays)
		rec := DeadlineRecommendation{
			MilestoneID:     m.ID,
			MilestoneKey:    m.Key,
			MilestoneName:   m.Name,
			RecommendedDate: recommended.Format(time.RFC3339),
			ActualDate:      actual.Format(time.RFC3339),
			DaysDifference:  diff,
			BufferDays:      buffer,
			RiskLevel:       risk,
			Rationale:       riskRationale(risk, diff),
		}
		out.Milestones = append(out.Milestones, rec)
		if riskRank[risk] > riskRank[out.OverallRisk] {
			out.OverallRisk = risk
		}
		if riskRank[risk] >= riskRank["risky"] {
			out.ConflictCount++
		}
	}
	out.HasConflicts = out.ConflictCount > 0
	return out
}

// classifyRisk buckets the gap between actual and recommended due dates.
// Positive diff means the milestone is scheduled later than recommended.
func classifyRisk(diff, tightDays int) string {
	switch {
	case diff <= -tightDays:
		return "safe"
	case diff <= 0:
		return "tight"
	case diff <= tightDays:
		return "risky"
	default:
		return "critical"
	}
}

func riskRationale(risk string, diff int) string {
	switch risk {
	case "safe":
		return ""
	case "tight":
		return "due date leaves little slack before the recommended deadline"
	case "risky":
		return fmt.Sprintf("due date is %d days past the recommended deadline", diff)
	default:
		return fmt.Sprintf("due date is %d days past the recommended deadline; downstream milestones are at risk", diff)
	}
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}
