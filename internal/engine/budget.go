package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"releasecompass/internal/domain"
	"releasecompass/internal/events"
	"releasecompass/internal/readiness"
)

// BudgetItemOptions are parameters for recording spend.
type BudgetItemOptions struct {
	ProjectID     string
	Category      string
	Description   string
	Amount        float64
	ReceiptFileID string
	ClientID      string
}

// AddBudgetItem records spend against a category. Every entry must point at
// an uploaded receipt file; spend without evidence is refused.
func (e Engine) AddBudgetItem(ctx context.Context, opts BudgetItemOptions) (domain.BudgetItem, error) {
	if !domain.ValidBudgetCategory(opts.Category) {
		return domain.BudgetItem{}, ValidationError{Field: "category", Message: fmt.Sprintf("must be one of %v", domain.BudgetCategories)}
	}
	if opts.Amount <= 0 {
		return domain.BudgetItem{}, ValidationError{Field: "amount", Message: "must be positive"}
	}
	if opts.ReceiptFileID == "" {
		return domain.BudgetItem{}, PreconditionError{
			Code:    "receipt_required",
			Message: "a receipt file must be attached to every budget entry",
		}
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.BudgetItem{}, err
	}
	receipt, err := e.Repo.GetFile(ctx, opts.ReceiptFileID)
	if err != nil {
		return domain.BudgetItem{}, err
	}
	if receipt.ProjectID != opts.ProjectID {
		return domain.BudgetItem{}, ValidationError{Field: "receipt_file_id", Message: "receipt belongs to a different project"}
	}
	if receipt.FileType != "receipts" {
		return domain.BudgetItem{}, PreconditionError{
			Code:    "receipt_required",
			Message: fmt.Sprintf("referenced file is %s, not a receipt", receipt.FileType),
			Details: map[string]any{"file_id": receipt.ID, "file_type": receipt.FileType},
		}
	}

	b := domain.BudgetItem{
		ID:             uuid.NewString(),
		ProjectID:      opts.ProjectID,
		Category:       opts.Category,
		Description:    opts.Description,
		Amount:         opts.Amount,
		ReceiptFileID:  receipt.ID,
		ApprovalStatus: "pending",
		CreatedBy:      opts.ClientID,
		CreatedAt:      e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.BudgetItem{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertBudgetItem(ctx, tx, b); err != nil {
		return domain.BudgetItem{}, fmt.Errorf("insert budget item: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "budget.add", b.ProjectID, "budget_item", b.ID, opts.ClientID,
		events.EventPayload{"category": b.Category, "amount": b.Amount}); err != nil {
		return domain.BudgetItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.BudgetItem{}, err
	}
	return b, nil
}

// TeaserPostOptions are parameters for logging a teaser post.
type TeaserPostOptions struct {
	ProjectID       string
	Platform        string
	PostURL         string
	SnippetDuration int
	SongSection     string
	PostedAt        string
	HasPresaveLink  bool
	ClientID        string
}

// TeaserPostResult pairs the stored post with the advisory timing
// classification. Out-of-window posts are stored and advised on, never
// rejected.
type TeaserPostResult struct {
	Post     domain.TeaserPost `json:"post"`
	Timing   string            `json:"timing" enum:"early,optimal,late"`
	Advisory string            `json:"advisory,omitempty"`
}

// AddTeaserPost logs a promotional post for the teaser campaign.
func (e Engine) AddTeaserPost(ctx context.Context, opts TeaserPostOptions) (TeaserPostResult, error) {
	if !domain.ValidTeaserPlatform(opts.Platform) {
		return TeaserPostResult{}, ValidationError{Field: "platform", Message: fmt.Sprintf("must be one of %v", domain.TeaserPlatforms)}
	}
	if opts.PostURL == "" {
		return TeaserPostResult{}, ValidationError{Field: "post_url", Message: "required"}
	}
	if opts.SnippetDuration < 5 || opts.SnippetDuration > 60 {
		return TeaserPostResult{}, ValidationError{Field: "snippet_duration", Message: "must be between 5 and 60 seconds"}
	}
	postedAt := e.now().UTC()
	if opts.PostedAt != "" {
		parsed, err := time.Parse(time.RFC3339, opts.PostedAt)
		if err != nil {
			return TeaserPostResult{}, ValidationError{Field: "posted_at", Message: "must be RFC3339"}
		}
		postedAt = parsed.UTC()
	}
	p, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return TeaserPostResult{}, err
	}
	releaseDate, err := time.Parse(time.RFC3339, p.ReleaseDate)
	if err != nil {
		return TeaserPostResult{}, fmt.Errorf("stored release date unparseable: %w", err)
	}
	cfg, err := e.projectConfig(ctx, p.ID)
	if err != nil {
		return TeaserPostResult{}, err
	}

	post := domain.TeaserPost{
		ID:              uuid.NewString(),
		ProjectID:       p.ID,
		Platform:        opts.Platform,
		PostURL:         opts.PostURL,
		SnippetDuration: opts.SnippetDuration,
		SongSection:     opts.SongSection,
		PostedAt:        postedAt.Format(time.RFC3339),
		HasPresaveLink:  opts.HasPresaveLink,
		CreatedBy:       opts.ClientID,
		CreatedAt:       e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return TeaserPostResult{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTeaserPost(ctx, tx, post); err != nil {
		return TeaserPostResult{}, fmt.Errorf("insert teaser post: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "teaser.add", p.ID, "teaser_post", post.ID, opts.ClientID,
		events.EventPayload{"platform": post.Platform}); err != nil {
		return TeaserPostResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return TeaserPostResult{}, err
	}

	timing, advisory := readiness.ClassifyPostTiming(postedAt, releaseDate, cfg.Teasers.WindowOpenDays, cfg.Teasers.WindowCloseDays)
	return TeaserPostResult{Post: post, Timing: timing, Advisory: advisory}, nil
}

// TeaserMetrics carries refreshed engagement counts for a post.
type TeaserMetrics struct {
	Views    int64 `json:"views" minimum:"0"`
	Likes    int64 `json:"likes" minimum:"0"`
	Shares   int64 `json:"shares" minimum:"0"`
	Comments int64 `json:"comments" minimum:"0"`
}

// UpdateTeaserMetrics replaces the engagement counters on a post.
func (e Engine) UpdateTeaserMetrics(ctx context.Context, postID string, m TeaserMetrics, clientID string) (domain.TeaserPost, error) {
	if m.Views < 0 || m.Likes < 0 || m.Shares < 0 || m.Comments < 0 {
		return domain.TeaserPost{}, ValidationError{Field: "metrics", Message: "counts must be non-negative"}
	}
	post, err := e.Repo.GetTeaserPost(ctx, postID)
	if err != nil {
		return domain.TeaserPost{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TeaserPost{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTeaserMetrics(ctx, tx, post.ID, m.Views, m.Likes, m.Shares, m.Comments); err != nil {
		return domain.TeaserPost{}, err
	}
	if err := e.Events.Append(ctx, tx, "teaser.metrics", post.ProjectID, "teaser_post", post.ID, clientID,
		events.EventPayload{"views": m.Views, "likes": m.Likes}); err != nil {
		return domain.TeaserPost{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.TeaserPost{}, err
	}
	post.Views, post.Likes, post.Shares, post.Comments = m.Views, m.Likes, m.Shares, m.Comments
	return post, nil
}
