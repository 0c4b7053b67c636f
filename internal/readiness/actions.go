package readiness

import (
	"fmt"
	"sort"
	"time"

	"releasecompass/internal/domain"
)

type ActionItem struct {
	ID          string `json:"id"`
	Type        string `json:"type" enum:"overdue_milestone,missing_proof,unacknowledged_notes,quota_incomplete,budget_overrun"`
	Severity    string `json:"severity" enum:"low,medium,high"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Dismissible bool   `json:"dismissible"`
}

// ActionFacts is the snapshot the action feed is built from.
type ActionFacts struct {
	ProjectID    string
	Now          time.Time
	Milestones   []domain.Milestone
	Quotas       map[string]QuotaStatus // keyed by milestone id
	ProofCounts  map[string]int         // attached content items per milestone id
	UnackedFiles []domain.File
	Alerts       []BudgetAlert
}

var severityRank = map[string]int{"high": 0, "medium": 1, "low": 2}

var actionTypeRank = map[string]int{
	"overdue_milestone":    0,
	"missing_proof":        1,
	"unacknowledged_notes": 2,
	"quota_incomplete":     3,
	"budget_overrun":       4,
}

// BuildActions assembles the prioritized to-do feed. Ordering is severity
// first, then a fixed type priority, then title, so the feed is stable
// across calls on the same facts.
func BuildActions(f ActionFacts) []ActionItem {
	items := []ActionItem{}

	for _, m := range f.Milestones {
		if m.Status == domain.MilestoneComplete {
			continue
		}
		due, err := time.Parse(time.RFC3339, m.DueDate)
		if err != nil {
			continue
		}
		if due.Before(f.Now) {
			sev := "medium"
			if m.BlocksRelease {
				sev = "high"
			}
			items = append(items, ActionItem{
				ID:          "overdue:" + m.ID,
				Type:        "overdue_milestone",
				Severity:    sev,
				Title:       fmt.Sprintf("%s is overdue", m.Name),
				Description: fmt.Sprintf("due %s, %d days ago", due.Format("2006-01-02"), daysBetween(due, f.Now)),
				URL:         milestoneURL(f.ProjectID, m.ID),
				Dismissible: false,
			})
		}
		if m.ProofRequired && m.BlocksRelease && f.ProofCounts[m.ID] == 0 {
			items = append(items, ActionItem{
				ID:          "proof:" + m.ID,
				Type:        "missing_proof",
				Severity:    "high",
				Title:       fmt.Sprintf("%s has no proof attached", m.Name),
				Description: "attach at least one content item documenting the work before completion",
				URL:         milestoneURL(f.ProjectID, m.ID),
				Dismissible: false,
			})
		}
		if q, ok := f.Quotas[m.ID]; ok && !q.QuotaMet {
			items = append(items, ActionItem{
				ID:          "quota:" + m.ID,
				Type:        "quota_incomplete",
				Severity:    quotaSeverity(due, f.Now),
				Title:       fmt.Sprintf("%s content quota unmet", m.Name),
				Description: q.Message,
				URL:         milestoneURL(f.ProjectID, m.ID),
				Dismissible: true,
			})
		}
	}

	if len(f.UnackedFiles) > 0 {
		items = append(items, ActionItem{
			ID:          "notes:" + f.ProjectID,
			Type:        "unacknowledged_notes",
			Severity:    "high",
			Title:       fmt.Sprintf("%d file(s) have unacknowledged notes", len(f.UnackedFiles)),
			Description: "the uploader must acknowledge reviewer feedback before release",
			URL:         fmt.Sprintf("/projects/%s/files", f.ProjectID),
			Dismissible: false,
		})
	}

	for _, a := range f.Alerts {
		if a.Severity != "critical" {
			continue
		}
		items = append(items, ActionItem{
			ID:          "budget:" + f.ProjectID,
			Type:        "budget_overrun",
			Severity:    "high",
			Title:       "budget category critically over allocation",
			Description: a.Message,
			URL:         fmt.Sprintf("/projects/%s/budget/summary", f.ProjectID),
			Dismissible: true,
		})
		break
	}

	sort.SliceStable(items, func(i, j int) bool {
		if severityRank[items[i].Severity] != severityRank[items[j].Severity] {
			return severityRank[items[i].Severity] < severityRank[items[j].Severity]
		}
		if actionTypeRank[items[i].Type] != actionTypeRank[items[j].Type] {
			return actionTypeRank[items[i].Type] < actionTypeRank[items[j].Type]
		}
		return items[i].Title < items[j].Title
	})
	return items
}

// quotaSeverity escalates quota reminders as the milestone due date nears.
func quotaSeverity(due, now time.Time) string {
	days := daysBetween(now, due)
	switch {
	case days <= 3:
		return "high"
	case days <= 7:
		return "medium"
	default:
		return "low"
	}
}

func milestoneURL(projectID, milestoneID string) string {
	return fmt.Sprintf("/projects/%s/milestones/%s", projectID, milestoneID)
}
