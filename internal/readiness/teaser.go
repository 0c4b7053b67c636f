package readiness

import (
	"fmt"
	"time"
)

type TeaserStatus struct {
	Posted      int    `json:"posted"`
	Required    int    `json:"required"`
	Missing     int    `json:"missing"`
	Met         bool   `json:"met"`
	WindowStart string `json:"window_start" format:"date-time"`
	WindowEnd   string `json:"window_end" format:"date-time"`
}

// EvaluateTeasers checks the promotional-post count against the fixed
// minimum and reports the recommended posting window.
func EvaluateTeasers(posted, required int, releaseDate time.Time, openDays, closeDays int) TeaserStatus {
	start, end := PostingWindow(releaseDate, openDays, closeDays)
	missing := required - posted
	if missing < 0 {
		missing = 0
	}
	return TeaserStatus{
		Posted:      posted,
		Required:    required,
		Missing:     missing,
		Met:         posted >= required,
		WindowStart: start.Format(time.RFC3339),
		WindowEnd:   end.Format(time.RFC3339),
	}
}

// PostingWindow returns the optimal teaser window relative to release date.
func PostingWindow(releaseDate time.Time, openDays, closeDays int) (time.Time, time.Time) {
	return releaseDate.AddDate(0, 0, -openDays), releaseDate.AddDate(0, 0, -closeDays)
}

// ClassifyPostTiming labels a teaser's posting date as early, optimal, or
// late relative to the recommended window. The label is advisory only; posts
// outside the window are never rejected.
func ClassifyPostTiming(postedAt, releaseDate time.Time, openDays, closeDays int) (string, string) {
	start, end := PostingWindow(releaseDate, openDays, closeDays)
	switch {
	case postedAt.Before(start):
		return "early", fmt.Sprintf("posted more than %d days before release; hype may fade before release day", openDays)
	case postedAt.After(end):
		return "late", fmt.Sprintf("posted less than %d days before release; algorithms need lead time to pick it up", closeDays)
	default:
		return "optimal", ""
	}
}
