package engine

import (
	"context"
	"time"

	"releasecompass/internal/domain"
	"releasecompass/internal/readiness"
	"releasecompass/internal/repo"
)

// MilestoneQuota evaluates one milestone's content quota.
func (e Engine) MilestoneQuota(ctx context.Context, milestoneID string) (readiness.QuotaStatus, error) {
	m, err := e.Repo.GetMilestone(ctx, milestoneID)
	if err != nil {
		return readiness.QuotaStatus{}, err
	}
	reqs, err := e.Repo.ListContentRequirements(ctx, m.ID)
	if err != nil {
		return readiness.QuotaStatus{}, err
	}
	counts, err := e.Repo.CountContentByType(ctx, m.ID)
	if err != nil {
		return readiness.QuotaStatus{}, err
	}
	return readiness.EvaluateQuota(reqs, counts), nil
}

// ProjectReadiness renders the exhaustive cleared-for-release verdict.
func (e Engine) ProjectReadiness(ctx context.Context, projectID string) (readiness.ClearedStatus, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return readiness.ClearedStatus{}, err
	}
	cfg, err := e.projectConfig(ctx, p.ID)
	if err != nil {
		return readiness.ClearedStatus{}, err
	}
	milestones, err := e.Repo.ListMilestones(ctx, p.ID)
	if err != nil {
		return readiness.ClearedStatus{}, err
	}

	facts := readiness.ReleaseFacts{
		Milestones:  milestones,
		TotalBudget: p.TotalBudget,
	}

	master, err := e.Repo.LatestFileByType(ctx, p.ID, "master")
	switch err {
	case nil:
		facts.Master = &master
		facts.MasterMetadata = parseMasterMetadata(&master)
		noteCount, err := e.Repo.CountFileNotes(ctx, master.ID)
		if err != nil {
			return readiness.ClearedStatus{}, err
		}
		facts.MasterNoteCount = noteCount
	case repo.ErrNotFound:
	default:
		return readiness.ClearedStatus{}, err
	}

	if _, err := e.Repo.LatestFileByType(ctx, p.ID, "artwork"); err == nil {
		facts.HasArtwork = true
	} else if err != repo.ErrNotFound {
		return readiness.ClearedStatus{}, err
	}
	if _, err := e.Repo.LatestFileByType(ctx, p.ID, "contracts"); err == nil {
		facts.HasContracts = true
	} else if err != repo.ErrNotFound {
		return readiness.ClearedStatus{}, err
	}

	spent, err := e.Repo.TotalSpend(ctx, p.ID)
	if err != nil {
		return readiness.ClearedStatus{}, err
	}
	facts.TotalSpent = spent

	return readiness.EvaluateRelease(facts, cfg.ValidGenre), nil
}

// BudgetSummary breaks down spend per category against the recommended
// allocation, including threshold alerts.
func (e Engine) BudgetSummary(ctx context.Context, projectID string) (readiness.BudgetSummary, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return readiness.BudgetSummary{}, err
	}
	cfg, err := e.projectConfig(ctx, p.ID)
	if err != nil {
		return readiness.BudgetSummary{}, err
	}
	spend, err := e.Repo.SumSpendByCategory(ctx, p.ID)
	if err != nil {
		return readiness.BudgetSummary{}, err
	}
	return readiness.AnalyzeBudget(p.TotalBudget, spend, cfg.Budget.RecommendedFractions,
		cfg.Budget.WarningThreshold, cfg.Budget.CriticalThreshold), nil
}

// DeadlineAnalysis scores every milestone's schedule against the
// recommended dates derived from the release date.
func (e Engine) DeadlineAnalysis(ctx context.Context, projectID string) (readiness.DeadlineAnalysis, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return readiness.DeadlineAnalysis{}, err
	}
	cfg, err := e.projectConfig(ctx, p.ID)
	if err != nil {
		return readiness.DeadlineAnalysis{}, err
	}
	releaseDate, err := time.Parse(time.RFC3339, p.ReleaseDate)
	if err != nil {
		return readiness.DeadlineAnalysis{}, err
	}
	milestones, err := e.Repo.ListMilestones(ctx, p.ID)
	if err != nil {
		return readiness.DeadlineAnalysis{}, err
	}
	recommendedFor := func(key string) (time.Time, int, bool) {
		tpl := cfg.Template(key)
		if tpl == nil {
			return time.Time{}, 0, false
		}
		return releaseDate.AddDate(0, 0, -tpl.DaysBeforeRelease), cfg.BufferDaysFor(key), true
	}
	return readiness.AnalyzeDeadlines(milestones, releaseDate, recommendedFor, cfg.Deadlines.TightBufferDays), nil
}

// TeaserStatus reports progress toward the teaser minimum and the
// recommended posting window.
func (e Engine) TeaserStatus(ctx context.Context, projectID string) (readiness.TeaserStatus, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return readiness.TeaserStatus{}, err
	}
	cfg, err := e.projectConfig(ctx, p.ID)
	if err != nil {
		return readiness.TeaserStatus{}, err
	}
	releaseDate, err := time.Parse(time.RFC3339, p.ReleaseDate)
	if err != nil {
		return readiness.TeaserStatus{}, err
	}
	posted, err := e.Repo.CountTeaserPosts(ctx, p.ID)
	if err != nil {
		return readiness.TeaserStatus{}, err
	}
	return readiness.EvaluateTeasers(posted, cfg.Teasers.MinimumPosts, releaseDate,
		cfg.Teasers.WindowOpenDays, cfg.Teasers.WindowCloseDays), nil
}

// ActionItems assembles the prioritized to-do feed for a project.
func (e Engine) ActionItems(ctx context.Context, projectID string) ([]readiness.ActionItem, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	milestones, err := e.Repo.ListMilestones(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	quotas := map[string]readiness.QuotaStatus{}
	for _, m := range milestones {
		if m.Status == domain.MilestoneComplete {
			continue
		}
		reqs, err := e.Repo.ListContentRequirements(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		counts, err := e.Repo.CountContentByType(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		quotas[m.ID] = readiness.EvaluateQuota(reqs, counts)
	}

	proofCounts, err := e.Repo.CountContentByMilestone(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	unacked, err := e.Repo.ListFilesWithUnackedNotes(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	budget, err := e.BudgetSummary(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	return readiness.BuildActions(readiness.ActionFacts{
		ProjectID:    p.ID,
		Now:          e.now().UTC(),
		Milestones:   milestones,
		Quotas:       quotas,
		ProofCounts:  proofCounts,
		UnackedFiles: unacked,
		Alerts:       budget.Alerts,
	}), nil
}
