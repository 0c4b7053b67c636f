package repo

import (
	"context"
	"database/sql"

	"releasecompass/internal/domain"
)

func (r Repo) InsertTeaserPost(ctx context.Context, tx *sql.Tx, p domain.TeaserPost) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO teaser_posts(id,project_id,platform,post_url,snippet_duration,song_section,posted_at,has_presave_link,views,likes,shares,comments,created_by,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.ProjectID, p.Platform, p.PostURL, p.SnippetDuration, nullable(p.SongSection), p.PostedAt,
		boolToInt(p.HasPresaveLink), p.Views, p.Likes, p.Shares, p.Comments, p.CreatedBy, p.CreatedAt)
	return err
}

const teaserPostCols = `id,project_id,platform,post_url,snippet_duration,COALESCE(song_section,'') AS song_section,posted_at,has_presave_link,views,likes,shares,comments,created_by,created_at`

func scanTeaserPost(scan func(dest ...any) error) (domain.TeaserPost, error) {
	var p domain.TeaserPost
	err := scan(&p.ID, &p.ProjectID, &p.Platform, &p.PostURL, &p.SnippetDuration, &p.SongSection,
		&p.PostedAt, &p.HasPresaveLink, &p.Views, &p.Likes, &p.Shares, &p.Comments, &p.CreatedBy, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) GetTeaserPost(ctx context.Context, id string) (domain.TeaserPost, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+teaserPostCols+` FROM teaser_posts WHERE id=?`, id)
	return scanTeaserPost(row.Scan)
}

func (r Repo) ListTeaserPosts(ctx context.Context, projectID string) ([]domain.TeaserPost, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+teaserPostCols+` FROM teaser_posts WHERE project_id=? ORDER BY posted_at, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TeaserPost
	for rows.Next() {
		p, err := scanTeaserPost(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

func (r Repo) CountTeaserPosts(ctx context.Context, projectID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM teaser_posts WHERE project_id=?`, projectID).Scan(&n)
	return n, err
}

func (r Repo) UpdateTeaserMetrics(ctx context.Context, tx *sql.Tx, id string, views, likes, shares, comments int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE teaser_posts SET views=?, likes=?, shares=?, comments=? WHERE id=?`,
		views, likes, shares, comments, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
