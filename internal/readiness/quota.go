// Package readiness holds the pure decision functions behind the release
// tracker: content quotas, note acknowledgment, teaser requirements, budget
// allocation scoring, deadline risk, the cleared-for-release verdict, and the
// action feed. Every function is a function of (facts, configuration) only;
// reading those facts from the store is the engine's job.
package readiness

import (
	"fmt"

	"releasecompass/internal/domain"
)

type RequirementStatus struct {
	ContentType string `json:"content_type"`
	Required    int    `json:"required"`
	Actual      int    `json:"actual"`
	Missing     int    `json:"missing"`
	Met         bool   `json:"met"`
}

type QuotaStatus struct {
	QuotaMet     bool                `json:"quota_met"`
	Requirements []RequirementStatus `json:"requirements"`
	Message      string              `json:"message,omitempty"`
}

// EvaluateQuota scores actual content counts against a milestone's declared
// requirements. A milestone with no requirements is satisfied by definition.
func EvaluateQuota(reqs []domain.ContentRequirement, counts map[string]int) QuotaStatus {
	if len(reqs) == 0 {
		return QuotaStatus{
			QuotaMet:     true,
			Requirements: []RequirementStatus{},
			Message:      "no requirements",
		}
	}
	out := QuotaStatus{QuotaMet: true, Requirements: make([]RequirementStatus, 0, len(reqs))}
	for _, req := range reqs {
		actual := counts[req.ContentType]
		missing := req.MinCount - actual
		if missing < 0 {
			missing = 0
		}
		rs := RequirementStatus{
			ContentType: req.ContentType,
			Required:    req.MinCount,
			Actual:      actual,
			Missing:     missing,
			Met:         actual >= req.MinCount,
		}
		if !rs.Met {
			out.QuotaMet = false
		}
		out.Requirements = append(out.Requirements, rs)
	}
	if !out.QuotaMet {
		out.Message = quotaMessage(out.Requirements)
	}
	return out
}

func quotaMessage(reqs []RequirementStatus) string {
	for _, r := range reqs {
		if !r.Met {
			return fmt.Sprintf("missing %d %s", r.Missing, r.ContentType)
		}
	}
	return ""
}
