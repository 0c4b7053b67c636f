package readiness

import (
	"fmt"

	"releasecompass/internal/domain"
)

type CategoryBreakdown struct {
	Category             string  `json:"category"`
	Spent                float64 `json:"spent"`
	RecommendedAmount    float64 `json:"recommended_amount"`
	PercentOfTotal       float64 `json:"percent_of_total"`
	PercentOfRecommended float64 `json:"percent_of_recommended"`
	Status               string  `json:"status" enum:"under,on-track,warning,critical"`
}

type BudgetAlert struct {
	Category    string  `json:"category"`
	Severity    string  `json:"severity" enum:"warning,critical"`
	Spent       float64 `json:"spent"`
	Recommended float64 `json:"recommended"`
	Message     string  `json:"message"`
}

type BudgetSummary struct {
	TotalBudget float64             `json:"total_budget"`
	TotalSpent  float64             `json:"total_spent"`
	Remaining   float64             `json:"remaining"`
	Categories  []CategoryBreakdown `json:"categories"`
	Alerts      []BudgetAlert       `json:"alerts"`
}

// AnalyzeBudget compares per-category spend against the recommended
// allocation fractions of the total budget. Categories are reported in the
// canonical order so output is deterministic. A category whose recommended
// amount is zero reports 0% of recommended rather than dividing by zero.
func AnalyzeBudget(total float64, spend map[string]float64, fractions map[string]float64, warnThreshold, critThreshold float64) BudgetSummary {
	sum := BudgetSummary{
		TotalBudget: total,
		Categories:  make([]CategoryBreakdown, 0, len(domain.BudgetCategories)),
		Alerts:      []BudgetAlert{},
	}
	for _, cat := range domain.BudgetCategories {
		spent := spend[cat]
		recommended := total * fractions[cat]
		sum.TotalSpent += spent
		cb := CategoryBreakdown{
			Category:          cat,
			Spent:             spent,
			RecommendedAmount: recommended,
		}
		if total > 0 {
			cb.PercentOfTotal = spent / total * 100
		}
		if recommended > 0 {
			cb.PercentOfRecommended = spent / recommended * 100
		}
		cb.Status = categoryStatus(spent, recommended, warnThreshold, critThreshold)
		sum.Categories = append(sum.Categories, cb)
		if alert, ok := categoryAlert(cb, critThreshold); ok {
			sum.Alerts = append(sum.Alerts, alert)
		}
	}
	sum.Remaining = sum.TotalBudget - sum.TotalSpent
	return sum
}

func categoryStatus(spent, recommended, warnThreshold, critThreshold float64) string {
	if spent == 0 {
		return "under"
	}
	if recommended == 0 {
		return "on-track"
	}
	ratio := spent / recommended
	switch {
	case ratio <= warnThreshold:
		return "on-track"
	case ratio <= critThreshold:
		return "warning"
	default:
		return "critical"
	}
}

func categoryAlert(cb CategoryBreakdown, critThreshold float64) (BudgetAlert, bool) {
	switch cb.Status {
	case "warning":
		return BudgetAlert{
			Category:    cb.Category,
			Severity:    "warning",
			Spent:       cb.Spent,
			Recommended: cb.RecommendedAmount,
			Message:     fmt.Sprintf("%s spend is %.0f%% of the recommended allocation", cb.Category, cb.PercentOfRecommended),
		}, true
	case "critical":
		return BudgetAlert{
			Category:    cb.Category,
			Severity:    "critical",
			Spent:       cb.Spent,
			Recommended: cb.RecommendedAmount,
			Message:     fmt.Sprintf("%s spend exceeds %.0f%% of the recommended allocation", cb.Category, critThreshold*100),
		}, true
	default:
		return BudgetAlert{}, false
	}
}
