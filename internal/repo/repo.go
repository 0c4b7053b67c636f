package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"releasecompass/internal/config"
	"releasecompass/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO projects(id,artist_name,title,release_type,release_date,total_budget,created_by,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		p.ID, p.ArtistName, p.Title, p.ReleaseType, p.ReleaseDate, p.TotalBudget, p.CreatedBy, p.CreatedAt)
	return err
}

func scanProject(row *sql.Row) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.ArtistName, &p.Title, &p.ReleaseType, &p.ReleaseDate, &p.TotalBudget, &p.CreatedBy, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return scanProject(r.DB.QueryRowContext(ctx, `SELECT id,artist_name,title,release_type,release_date,total_budget,created_by,created_at FROM projects WHERE id=?`, id))
}

func (r Repo) SingleProject(ctx context.Context) (domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,artist_name,title,release_type,release_date,total_budget,created_by,created_at FROM projects`)
	if err != nil {
		return domain.Project{}, err
	}
	defer rows.Close()
	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.ArtistName, &p.Title, &p.ReleaseType, &p.ReleaseDate, &p.TotalBudget, &p.CreatedBy, &p.CreatedAt); err != nil {
			return domain.Project{}, err
		}
		projects = append(projects, p)
	}
	if len(projects) == 0 {
		return domain.Project{}, ErrNotFound
	}
	if len(projects) > 1 {
		return domain.Project{}, fmt.Errorf("multiple projects exist; specify --project")
	}
	return projects[0], nil
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,artist_name,title,release_type,release_date,total_budget,created_by,created_at FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.ArtistName, &p.Title, &p.ReleaseType, &p.ReleaseDate, &p.TotalBudget, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

func (r Repo) UpsertProjectConfig(ctx context.Context, projectID string, cfg *config.Config) error {
	return upsertProjectConfig(ctx, r.DB, nil, projectID, cfg)
}

func (r Repo) UpsertProjectConfigTx(ctx context.Context, tx *sql.Tx, projectID string, cfg *config.Config) error {
	return upsertProjectConfig(ctx, nil, tx, projectID, cfg)
}

func upsertProjectConfig(ctx context.Context, db *sql.DB, tx *sql.Tx, projectID string, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config nil")
	}
	cfg.Project.ID = projectID
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	exec := func(query string, args ...any) (sql.Result, error) {
		if tx != nil {
			return tx.ExecContext(ctx, query, args...)
		}
		return db.ExecContext(ctx, query, args...)
	}
	_, err = exec(`INSERT INTO project_configs(project_id,config_json,created_at,updated_at) VALUES (?,?,?,?)
ON CONFLICT(project_id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`, projectID, string(payload), now, now)
	return err
}

func (r Repo) GetProjectConfig(ctx context.Context, projectID string) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_json FROM project_configs WHERE project_id=?`, projectID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, err
	}
	if cfg.Project.ID == "" {
		cfg.Project.ID = projectID
	}
	return &cfg, cfg.Validate()
}

func (r Repo) InsertMilestone(ctx context.Context, tx *sql.Tx, m domain.Milestone) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO milestones(id,project_id,key,name,description,due_date,status,blocks_release,proof_required,teaser_gate,completed_at,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.ProjectID, m.Key, m.Name, nullable(m.Description), m.DueDate, m.Status,
		boolToInt(m.BlocksRelease), boolToInt(m.ProofRequired), boolToInt(m.TeaserGate),
		nullableStringPtr(m.CompletedAt), m.CreatedAt)
	return err
}

const milestoneCols = `id,project_id,key,name,COALESCE(description,'') AS description,due_date,status,blocks_release,proof_required,teaser_gate,completed_at,created_at`

func scanMilestone(scan func(dest ...any) error) (domain.Milestone, error) {
	var m domain.Milestone
	var completedAt sql.NullString
	err := scan(&m.ID, &m.ProjectID, &m.Key, &m.Name, &m.Description, &m.DueDate, &m.Status,
		&m.BlocksRelease, &m.ProofRequired, &m.TeaserGate, &completedAt, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if completedAt.Valid {
		m.CompletedAt = &completedAt.String
	}
	return m, err
}

func (r Repo) GetMilestone(ctx context.Context, id string) (domain.Milestone, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+milestoneCols+` FROM milestones WHERE id=?`, id)
	return scanMilestone(row.Scan)
}

func (r Repo) GetMilestoneByKey(ctx context.Context, projectID, key string) (domain.Milestone, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+milestoneCols+` FROM milestones WHERE project_id=? AND key=?`, projectID, key)
	return scanMilestone(row.Scan)
}

func (r Repo) ListMilestones(ctx context.Context, projectID string) ([]domain.Milestone, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+milestoneCols+` FROM milestones WHERE project_id=? ORDER BY due_date, key`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, nil
}

func (r Repo) UpdateMilestoneStatus(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE milestones SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkMilestoneComplete flips the status atomically. It reports false when
// the milestone was already complete, so a double completion never
// overwrites the original completion timestamp.
func (r Repo) MarkMilestoneComplete(ctx context.Context, tx *sql.Tx, id, completedAt string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE milestones SET status=?, completed_at=? WHERE id=? AND status!=?`,
		domain.MilestoneComplete, completedAt, id, domain.MilestoneComplete)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r Repo) UpdateMilestoneDueDate(ctx context.Context, tx *sql.Tx, id, dueDate string) error {
	res, err := tx.ExecContext(ctx, `UPDATE milestones SET due_date=? WHERE id=?`, dueDate, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertContentRequirement(ctx context.Context, tx *sql.Tx, cr domain.ContentRequirement) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO content_requirements(id,milestone_id,content_type,min_count) VALUES (?,?,?,?)`,
		cr.ID, cr.MilestoneID, cr.ContentType, cr.MinCount)
	return err
}

func (r Repo) ListContentRequirements(ctx context.Context, milestoneID string) ([]domain.ContentRequirement, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,milestone_id,content_type,min_count FROM content_requirements WHERE milestone_id=? ORDER BY content_type`, milestoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ContentRequirement
	for rows.Next() {
		var cr domain.ContentRequirement
		if err := rows.Scan(&cr.ID, &cr.MilestoneID, &cr.ContentType, &cr.MinCount); err != nil {
			return nil, err
		}
		res = append(res, cr)
	}
	return res, nil
}
