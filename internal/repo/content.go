package repo

import (
	"context"
	"database/sql"

	"releasecompass/internal/domain"
)

func (r Repo) InsertContentItem(ctx context.Context, tx *sql.Tx, ci domain.ContentItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO content_items(id,project_id,milestone_id,content_type,capture_context,storage_key,caption,uploaded_by,created_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		ci.ID, ci.ProjectID, nullableStringPtr(ci.MilestoneID), ci.ContentType, nullable(ci.CaptureContext),
		ci.StorageKey, nullable(ci.Caption), ci.UploadedBy, ci.CreatedAt)
	return err
}

const contentItemCols = `id,project_id,milestone_id,content_type,COALESCE(capture_context,'') AS capture_context,storage_key,COALESCE(caption,'') AS caption,uploaded_by,created_at`

func scanContentItem(scan func(dest ...any) error) (domain.ContentItem, error) {
	var ci domain.ContentItem
	var milestoneID sql.NullString
	err := scan(&ci.ID, &ci.ProjectID, &milestoneID, &ci.ContentType, &ci.CaptureContext,
		&ci.StorageKey, &ci.Caption, &ci.UploadedBy, &ci.CreatedAt)
	if err == sql.ErrNoRows {
		return ci, ErrNotFound
	}
	if milestoneID.Valid {
		ci.MilestoneID = &milestoneID.String
	}
	return ci, err
}

func (r Repo) GetContentItem(ctx context.Context, id string) (domain.ContentItem, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+contentItemCols+` FROM content_items WHERE id=?`, id)
	return scanContentItem(row.Scan)
}

func (r Repo) ListContentItems(ctx context.Context, projectID string) ([]domain.ContentItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+contentItemCols+` FROM content_items WHERE project_id=? ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ContentItem
	for rows.Next() {
		ci, err := scanContentItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, ci)
	}
	return res, nil
}

func (r Repo) UpdateContentItemMilestone(ctx context.Context, tx *sql.Tx, id string, milestoneID *string) error {
	res, err := tx.ExecContext(ctx, `UPDATE content_items SET milestone_id=? WHERE id=?`, nullableStringPtr(milestoneID), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountContentByType tallies attached content per type for one milestone.
func (r Repo) CountContentByType(ctx context.Context, milestoneID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT content_type, COUNT(*) FROM content_items WHERE milestone_id=? GROUP BY content_type`, milestoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var ct string
		var n int
		if err := rows.Scan(&ct, &n); err != nil {
			return nil, err
		}
		counts[ct] = n
	}
	return counts, nil
}

// CountContentByMilestone tallies attached content per milestone across a
// project, for the action feed's proof check.
func (r Repo) CountContentByMilestone(ctx context.Context, projectID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT milestone_id, COUNT(*) FROM content_items WHERE project_id=? AND milestone_id IS NOT NULL GROUP BY milestone_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, nil
}
