package readiness

import (
	"fmt"

	"releasecompass/internal/domain"
)

type MissingRequirements struct {
	Milestones []string `json:"milestones"`
	Files      []string `json:"files"`
	Budget     []string `json:"budget"`
	Legal      []string `json:"legal"`
}

type ClearedStatus struct {
	Cleared bool                `json:"cleared"`
	Reasons []string            `json:"reasons"`
	Missing MissingRequirements `json:"missing_requirements"`
}

// ReleaseFacts is everything the cleared-for-release verdict consumes,
// gathered by the engine in a single pass over the store.
type ReleaseFacts struct {
	Milestones      []domain.Milestone
	Master          *domain.File
	MasterMetadata  *domain.MasterMetadata
	MasterNoteCount int
	HasArtwork      bool
	HasContracts    bool
	TotalBudget     float64
	TotalSpent      float64
}

// EvaluateRelease renders the cleared-for-release verdict. Unlike the
// milestone completion gate, which fails fast on the first unmet
// precondition, this aggregator is exhaustive: every blocking problem is
// collected so the team sees the full remaining checklist at once.
func EvaluateRelease(f ReleaseFacts, validGenre func(string) bool) ClearedStatus {
	out := ClearedStatus{
		Missing: MissingRequirements{
			Milestones: []string{},
			Files:      []string{},
			Budget:     []string{},
			Legal:      []string{},
		},
	}

	// Every milestone gates the release here, blocking or not.
	for _, m := range f.Milestones {
		if m.Status != domain.MilestoneComplete {
			out.Missing.Milestones = append(out.Missing.Milestones, m.Key)
			out.Reasons = append(out.Reasons, fmt.Sprintf("milestone not complete: %s", m.Name))
		}
	}

	if f.Master == nil {
		out.Missing.Files = append(out.Missing.Files, "master")
		out.Reasons = append(out.Reasons, "master file not uploaded")
	} else {
		notes := EvaluateNotes(f.Master, f.MasterNoteCount)
		if notes.HasUnacknowledged {
			out.Missing.Files = append(out.Missing.Files, "master")
			out.Reasons = append(out.Reasons, "master file has unacknowledged notes")
		}
		for _, p := range MetadataProblems(f.MasterMetadata, validGenre) {
			out.Missing.Files = append(out.Missing.Files, "master_metadata")
			out.Reasons = append(out.Reasons, "master metadata: "+p)
		}
	}

	if !f.HasArtwork {
		out.Missing.Files = append(out.Missing.Files, "artwork")
		out.Reasons = append(out.Reasons, "final artwork not uploaded")
	}
	if !f.HasContracts {
		out.Missing.Legal = append(out.Missing.Legal, "contracts")
		out.Reasons = append(out.Reasons, "signed contracts not uploaded")
	}

	if f.TotalBudget > 0 && f.TotalSpent > f.TotalBudget {
		out.Missing.Budget = append(out.Missing.Budget, "total")
		out.Reasons = append(out.Reasons, fmt.Sprintf("spend %.2f exceeds total budget %.2f", f.TotalSpent, f.TotalBudget))
	}

	if len(out.Reasons) == 0 {
		out.Cleared = true
		out.Reasons = []string{"all release requirements satisfied"}
	}
	return out
}
