package repo

import (
	"context"
	"database/sql"

	"releasecompass/internal/domain"
)

func (r Repo) InsertFile(ctx context.Context, tx *sql.Tx, f domain.File) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO files(id,project_id,file_type,storage_key,uploaded_by,uploaded_at,notes_acknowledged,acknowledged_by,acknowledged_at,metadata_json,metadata_complete)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		f.ID, f.ProjectID, f.FileType, f.StorageKey, f.UploadedBy, f.UploadedAt,
		boolToInt(f.NotesAcknowledged), nullableStringPtr(f.AcknowledgedBy), nullableStringPtr(f.AcknowledgedAt),
		nullableStringPtr(f.MetadataJSON), boolToInt(f.MetadataComplete))
	return err
}

const fileCols = `id,project_id,file_type,storage_key,uploaded_by,uploaded_at,notes_acknowledged,acknowledged_by,acknowledged_at,metadata_json,metadata_complete`

func scanFile(scan func(dest ...any) error) (domain.File, error) {
	var f domain.File
	var ackBy, ackAt, metadata sql.NullString
	err := scan(&f.ID, &f.ProjectID, &f.FileType, &f.StorageKey, &f.UploadedBy, &f.UploadedAt,
		&f.NotesAcknowledged, &ackBy, &ackAt, &metadata, &f.MetadataComplete)
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	if ackBy.Valid {
		f.AcknowledgedBy = &ackBy.String
	}
	if ackAt.Valid {
		f.AcknowledgedAt = &ackAt.String
	}
	if metadata.Valid {
		f.MetadataJSON = &metadata.String
	}
	return f, err
}

func (r Repo) GetFile(ctx context.Context, id string) (domain.File, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+fileCols+` FROM files WHERE id=?`, id)
	return scanFile(row.Scan)
}

// LatestFileByType returns the most recently uploaded file of a type. The
// latest upload is the one release checks consult; older versions stay on
// record but no longer gate anything.
func (r Repo) LatestFileByType(ctx context.Context, projectID, fileType string) (domain.File, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+fileCols+` FROM files WHERE project_id=? AND file_type=? ORDER BY uploaded_at DESC, id DESC LIMIT 1`, projectID, fileType)
	return scanFile(row.Scan)
}

func (r Repo) ListFiles(ctx context.Context, projectID string) ([]domain.File, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+fileCols+` FROM files WHERE project_id=? ORDER BY uploaded_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.File
	for rows.Next() {
		f, err := scanFile(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, nil
}

// ListFilesWithUnackedNotes returns files carrying at least one note whose
// acknowledgment flag is unset.
func (r Repo) ListFilesWithUnackedNotes(ctx context.Context, projectID string) ([]domain.File, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+fileCols+` FROM files
WHERE project_id=? AND notes_acknowledged=0 AND EXISTS (SELECT 1 FROM file_notes WHERE file_id=files.id)
ORDER BY uploaded_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.File
	for rows.Next() {
		f, err := scanFile(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, nil
}

func (r Repo) SetFileMetadata(ctx context.Context, tx *sql.Tx, id, metadataJSON string, complete bool) error {
	res, err := tx.ExecContext(ctx, `UPDATE files SET metadata_json=?, metadata_complete=? WHERE id=?`,
		metadataJSON, boolToInt(complete), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertFileNote(ctx context.Context, tx *sql.Tx, n domain.FileNote) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO file_notes(id,file_id,timestamp,text,author,created_at) VALUES (?,?,?,?,?,?)`,
		n.ID, n.FileID, n.Timestamp, n.Text, n.Author, n.CreatedAt)
	if err != nil {
		return err
	}
	// A fresh note reopens the feedback loop on an already-acknowledged file.
	_, err = tx.ExecContext(ctx, `UPDATE files SET notes_acknowledged=0, acknowledged_by=NULL, acknowledged_at=NULL WHERE id=?`, n.FileID)
	return err
}

func (r Repo) ListFileNotes(ctx context.Context, fileID string) ([]domain.FileNote, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,file_id,timestamp,text,author,created_at FROM file_notes WHERE file_id=? ORDER BY timestamp, id`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.FileNote
	for rows.Next() {
		var n domain.FileNote
		if err := rows.Scan(&n.ID, &n.FileID, &n.Timestamp, &n.Text, &n.Author, &n.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, nil
}

func (r Repo) CountFileNotes(ctx context.Context, fileID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM file_notes WHERE file_id=?`, fileID).Scan(&n)
	return n, err
}

// AcknowledgeFileNotes sets the acknowledgment flag. It reports false when
// the flag was already set, so redundant acknowledgments can be rejected
// without a prior read.
func (r Repo) AcknowledgeFileNotes(ctx context.Context, tx *sql.Tx, id, clientID, ackAt string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE files SET notes_acknowledged=1, acknowledged_by=?, acknowledged_at=? WHERE id=? AND notes_acknowledged=0`,
		clientID, ackAt, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
