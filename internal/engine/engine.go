// Package engine implements the write side of the release tracker: project
// setup, milestone transitions, evidence registration, and the completion
// gates. Decision logic lives in internal/readiness; the engine reads facts,
// applies the verdicts, and records every mutation in one transaction
// together with its audit event.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"releasecompass/internal/config"
	"releasecompass/internal/domain"
	"releasecompass/internal/events"
	"releasecompass/internal/readiness"
	"releasecompass/internal/repo"
	"releasecompass/internal/storage"
)

type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Storage storage.Store
	Config  *config.Config
	Now     func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:      db,
		Repo:    repo.Repo{DB: db},
		Events:  events.Writer{DB: db},
		Storage: storage.NoopStore{},
		Config:  cfg,
		Now:     time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// projectConfig resolves the per-project catalog, preferring the stored
// copy over the engine-level default.
func (e Engine) projectConfig(ctx context.Context, projectID string) (*config.Config, error) {
	cfg, err := e.Repo.GetProjectConfig(ctx, projectID)
	if err == nil {
		return cfg, nil
	}
	if err != repo.ErrNotFound {
		return nil, err
	}
	if e.Config != nil {
		return e.Config, nil
	}
	return config.Default(projectID), nil
}

// ProjectCreateOptions are parameters for creating a release project.
type ProjectCreateOptions struct {
	ID          string
	ArtistName  string
	Title       string
	ReleaseType string
	ReleaseDate string
	TotalBudget float64
	Config      *config.Config
	ClientID    string
}

// CreateProject creates the project and instantiates the full milestone
// catalog with due dates derived from the release date, each milestone
// carrying its content requirements.
func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, []domain.Milestone, error) {
	if opts.ArtistName == "" {
		return domain.Project{}, nil, ValidationError{Field: "artist_name", Message: "required"}
	}
	if opts.Title == "" {
		return domain.Project{}, nil, ValidationError{Field: "title", Message: "required"}
	}
	if !domain.ValidReleaseType(opts.ReleaseType) {
		return domain.Project{}, nil, ValidationError{Field: "release_type", Message: fmt.Sprintf("must be one of %v", domain.ReleaseTypes)}
	}
	releaseDate, err := time.Parse(time.RFC3339, opts.ReleaseDate)
	if err != nil {
		return domain.Project{}, nil, ValidationError{Field: "release_date", Message: "must be RFC3339"}
	}
	if !releaseDate.After(e.now()) {
		return domain.Project{}, nil, ValidationError{Field: "release_date", Message: "must be in the future"}
	}
	if opts.TotalBudget <= 0 {
		return domain.Project{}, nil, ValidationError{Field: "total_budget", Message: "must be positive"}
	}

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default(id)
	}
	cfg.Project.ID = id
	if err := cfg.Validate(); err != nil {
		return domain.Project{}, nil, ValidationError{Field: "config", Message: err.Error()}
	}

	now := e.now().UTC().Format(time.RFC3339)
	p := domain.Project{
		ID:          id,
		ArtistName:  opts.ArtistName,
		Title:       opts.Title,
		ReleaseType: opts.ReleaseType,
		ReleaseDate: releaseDate.UTC().Format(time.RFC3339),
		TotalBudget: opts.TotalBudget,
		CreatedBy:   opts.ClientID,
		CreatedAt:   now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, nil, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, nil, fmt.Errorf("insert project: %w", err)
	}
	if err := e.Repo.UpsertProjectConfigTx(ctx, tx, p.ID, cfg); err != nil {
		return domain.Project{}, nil, fmt.Errorf("insert project config: %w", err)
	}

	var milestones []domain.Milestone
	for _, tpl := range cfg.Milestones.Templates {
		m := domain.Milestone{
			ID:            uuid.NewString(),
			ProjectID:     p.ID,
			Key:           tpl.Key,
			Name:          tpl.Name,
			Description:   tpl.Description,
			DueDate:       releaseDate.AddDate(0, 0, -tpl.DaysBeforeRelease).UTC().Format(time.RFC3339),
			Status:        domain.MilestonePending,
			BlocksRelease: tpl.BlocksRelease,
			ProofRequired: tpl.ProofRequired,
			TeaserGate:    tpl.TeaserGate,
			CreatedAt:     now,
		}
		if err := e.Repo.InsertMilestone(ctx, tx, m); err != nil {
			return domain.Project{}, nil, fmt.Errorf("insert milestone %s: %w", tpl.Key, err)
		}
		for _, req := range tpl.Requirements {
			cr := domain.ContentRequirement{
				ID:          uuid.NewString(),
				MilestoneID: m.ID,
				ContentType: req.ContentType,
				MinCount:    req.MinCount,
			}
			if err := e.Repo.InsertContentRequirement(ctx, tx, cr); err != nil {
				return domain.Project{}, nil, fmt.Errorf("insert requirement: %w", err)
			}
		}
		milestones = append(milestones, m)
	}

	if err := e.Events.Append(ctx, tx, "project.create", p.ID, "project", p.ID, opts.ClientID,
		events.EventPayload{"title": p.Title, "release_date": p.ReleaseDate, "milestones": len(milestones)}); err != nil {
		return domain.Project{}, nil, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, nil, err
	}
	return p, milestones, nil
}

// StartMilestone moves a pending milestone into in_progress.
func (e Engine) StartMilestone(ctx context.Context, milestoneID, clientID string) (domain.Milestone, error) {
	m, err := e.Repo.GetMilestone(ctx, milestoneID)
	if err != nil {
		return domain.Milestone{}, err
	}
	if m.Status != domain.MilestonePending {
		return domain.Milestone{}, PreconditionError{
			Code:    "invalid_transition",
			Message: fmt.Sprintf("milestone is %s, only pending milestones can be started", m.Status),
			Details: map[string]any{"status": m.Status},
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Milestone{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateMilestoneStatus(ctx, tx, m.ID, domain.MilestoneInProgress); err != nil {
		return domain.Milestone{}, err
	}
	if err := e.Events.Append(ctx, tx, "milestone.start", m.ProjectID, "milestone", m.ID, clientID,
		events.EventPayload{"key": m.Key}); err != nil {
		return domain.Milestone{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Milestone{}, err
	}
	m.Status = domain.MilestoneInProgress
	return m, nil
}

// masterMilestoneKey is the milestone whose completion requires a master
// file to exist. Unacknowledged notes on the latest master block every
// milestone, not just this one: open mastering feedback invalidates all
// downstream work.
const masterMilestoneKey = "mastering_complete"

// CompleteMilestone runs the completion gate and, when every precondition
// holds, flips the milestone atomically. The gate fails fast: the first
// unmet precondition is returned and later checks are not evaluated.
func (e Engine) CompleteMilestone(ctx context.Context, milestoneID, clientID string) (domain.Milestone, error) {
	m, err := e.Repo.GetMilestone(ctx, milestoneID)
	if err != nil {
		return domain.Milestone{}, err
	}
	if m.Status == domain.MilestoneComplete {
		return domain.Milestone{}, PreconditionError{
			Code:    "already_complete",
			Message: "milestone is already complete",
		}
	}
	cfg, err := e.projectConfig(ctx, m.ProjectID)
	if err != nil {
		return domain.Milestone{}, err
	}
	if err := e.checkCompletionGate(ctx, m, cfg); err != nil {
		return domain.Milestone{}, err
	}

	completedAt := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Milestone{}, err
	}
	defer tx.Rollback()
	flipped, err := e.Repo.MarkMilestoneComplete(ctx, tx, m.ID, completedAt)
	if err != nil {
		return domain.Milestone{}, err
	}
	if !flipped {
		// Lost a race with a concurrent completion.
		return domain.Milestone{}, PreconditionError{
			Code:    "already_complete",
			Message: "milestone is already complete",
		}
	}
	if err := e.Events.Append(ctx, tx, "milestone.complete", m.ProjectID, "milestone", m.ID, clientID,
		events.EventPayload{"key": m.Key, "completed_at": completedAt}); err != nil {
		return domain.Milestone{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Milestone{}, err
	}
	m.Status = domain.MilestoneComplete
	m.CompletedAt = &completedAt
	return m, nil
}

func (e Engine) checkCompletionGate(ctx context.Context, m domain.Milestone, cfg *config.Config) error {
	reqs, err := e.Repo.ListContentRequirements(ctx, m.ID)
	if err != nil {
		return err
	}
	counts, err := e.Repo.CountContentByType(ctx, m.ID)
	if err != nil {
		return err
	}
	quota := readiness.EvaluateQuota(reqs, counts)
	if !quota.QuotaMet {
		return PreconditionError{
			Code:    "quota_unmet",
			Message: "content quota not met: " + quota.Message,
			Details: map[string]any{"requirements": quota.Requirements},
		}
	}

	if m.ProofRequired {
		attached := 0
		for _, n := range counts {
			attached += n
		}
		if attached == 0 {
			return PreconditionError{
				Code:    "proof_missing",
				Message: "at least one content item documenting the work must be attached",
			}
		}
	}

	master, err := e.Repo.LatestFileByType(ctx, m.ProjectID, "master")
	switch {
	case err == repo.ErrNotFound:
		if m.Key == masterMilestoneKey {
			return PreconditionError{
				Code:    "master_missing",
				Message: "a master file must be uploaded before mastering can be completed",
			}
		}
	case err != nil:
		return err
	default:
		noteCount, err := e.Repo.CountFileNotes(ctx, master.ID)
		if err != nil {
			return err
		}
		notes := readiness.EvaluateNotes(&master, noteCount)
		if notes.HasUnacknowledged {
			return PreconditionError{
				Code:    "notes_unacknowledged",
				Message: "the latest master file has unacknowledged notes",
				Details: map[string]any{"file_id": master.ID, "note_count": noteCount},
			}
		}
	}

	if m.TeaserGate {
		posted, err := e.Repo.CountTeaserPosts(ctx, m.ProjectID)
		if err != nil {
			return err
		}
		if posted < cfg.Teasers.MinimumPosts {
			return PreconditionError{
				Code:    "teaser_minimum_unmet",
				Message: fmt.Sprintf("%d teaser posts required, %d posted", cfg.Teasers.MinimumPosts, posted),
				Details: map[string]any{"posted": posted, "required": cfg.Teasers.MinimumPosts},
			}
		}
	}
	return nil
}

// UpdateMilestoneDueDate reschedules a milestone. Any date is accepted; the
// deadline analyzer reports the risk of the new schedule instead of this
// operation rejecting it.
func (e Engine) UpdateMilestoneDueDate(ctx context.Context, milestoneID, dueDate, clientID string) (domain.Milestone, error) {
	parsed, err := time.Parse(time.RFC3339, dueDate)
	if err != nil {
		return domain.Milestone{}, ValidationError{Field: "due_date", Message: "must be RFC3339"}
	}
	m, err := e.Repo.GetMilestone(ctx, milestoneID)
	if err != nil {
		return domain.Milestone{}, err
	}
	if m.Status == domain.MilestoneComplete {
		return domain.Milestone{}, PreconditionError{
			Code:    "already_complete",
			Message: "completed milestones cannot be rescheduled",
		}
	}
	normalized := parsed.UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Milestone{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateMilestoneDueDate(ctx, tx, m.ID, normalized); err != nil {
		return domain.Milestone{}, err
	}
	if err := e.Events.Append(ctx, tx, "milestone.reschedule", m.ProjectID, "milestone", m.ID, clientID,
		events.EventPayload{"key": m.Key, "from": m.DueDate, "to": normalized}); err != nil {
		return domain.Milestone{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Milestone{}, err
	}
	m.DueDate = normalized
	return m, nil
}
