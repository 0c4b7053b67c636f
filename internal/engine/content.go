package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"releasecompass/internal/domain"
	"releasecompass/internal/events"
	"releasecompass/internal/readiness"
	"releasecompass/internal/storage"
)

// ContentItemOptions are parameters for registering a content item.
type ContentItemOptions struct {
	ProjectID      string
	MilestoneID    string
	ContentType    string
	CaptureContext string
	StorageKey     string
	Caption        string
	ClientID       string
}

// AddContentItem registers a captured asset and optionally attaches it to a
// milestone. Only attached items count toward that milestone's quota.
func (e Engine) AddContentItem(ctx context.Context, opts ContentItemOptions) (domain.ContentItem, error) {
	if !domain.ValidContentType(opts.ContentType) {
		return domain.ContentItem{}, ValidationError{Field: "content_type", Message: fmt.Sprintf("must be one of %v", domain.ContentTypes)}
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.ContentItem{}, err
	}
	var milestoneID *string
	if opts.MilestoneID != "" {
		m, err := e.Repo.GetMilestone(ctx, opts.MilestoneID)
		if err != nil {
			return domain.ContentItem{}, err
		}
		if m.ProjectID != opts.ProjectID {
			return domain.ContentItem{}, ValidationError{Field: "milestone_id", Message: "milestone belongs to a different project"}
		}
		milestoneID = &m.ID
	}

	id := uuid.NewString()
	key := opts.StorageKey
	if key == "" {
		key = storage.ContentKey(opts.ProjectID, id)
	}
	ci := domain.ContentItem{
		ID:             id,
		ProjectID:      opts.ProjectID,
		MilestoneID:    milestoneID,
		ContentType:    opts.ContentType,
		CaptureContext: opts.CaptureContext,
		StorageKey:     key,
		Caption:        opts.Caption,
		UploadedBy:     opts.ClientID,
		CreatedAt:      e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ContentItem{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertContentItem(ctx, tx, ci); err != nil {
		return domain.ContentItem{}, fmt.Errorf("insert content item: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "content.add", ci.ProjectID, "content_item", ci.ID, opts.ClientID,
		events.EventPayload{"content_type": ci.ContentType, "milestone_id": opts.MilestoneID}); err != nil {
		return domain.ContentItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ContentItem{}, err
	}
	return ci, nil
}

// ReassignContentItem moves an item to another milestone, or detaches it
// when milestoneID is empty. Quota counts follow the item immediately.
func (e Engine) ReassignContentItem(ctx context.Context, itemID, milestoneID, clientID string) (domain.ContentItem, error) {
	ci, err := e.Repo.GetContentItem(ctx, itemID)
	if err != nil {
		return domain.ContentItem{}, err
	}
	var target *string
	if milestoneID != "" {
		m, err := e.Repo.GetMilestone(ctx, milestoneID)
		if err != nil {
			return domain.ContentItem{}, err
		}
		if m.ProjectID != ci.ProjectID {
			return domain.ContentItem{}, ValidationError{Field: "milestone_id", Message: "milestone belongs to a different project"}
		}
		target = &m.ID
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ContentItem{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateContentItemMilestone(ctx, tx, ci.ID, target); err != nil {
		return domain.ContentItem{}, err
	}
	if err := e.Events.Append(ctx, tx, "content.reassign", ci.ProjectID, "content_item", ci.ID, clientID,
		events.EventPayload{"to_milestone": milestoneID}); err != nil {
		return domain.ContentItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ContentItem{}, err
	}
	ci.MilestoneID = target
	return ci, nil
}

// FileRegisterOptions are parameters for registering an uploaded file.
type FileRegisterOptions struct {
	ProjectID  string
	FileType   string
	StorageKey string
	ClientID   string
}

// RegisterFile records an uploaded deliverable. Each upload is a new
// version; release checks always consult the latest upload of a type.
func (e Engine) RegisterFile(ctx context.Context, opts FileRegisterOptions) (domain.File, error) {
	if !domain.ValidFileType(opts.FileType) {
		return domain.File{}, ValidationError{Field: "file_type", Message: fmt.Sprintf("must be one of %v", domain.FileTypes)}
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.File{}, err
	}
	id := uuid.NewString()
	key := opts.StorageKey
	if key == "" {
		key = storage.FileKey(opts.ProjectID, id)
	}
	f := domain.File{
		ID:         id,
		ProjectID:  opts.ProjectID,
		FileType:   opts.FileType,
		StorageKey: key,
		UploadedBy: opts.ClientID,
		UploadedAt: e.now().UTC().Format(time.RFC3339),
		// No notes yet, so nothing awaits acknowledgment.
		NotesAcknowledged: true,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.File{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertFile(ctx, tx, f); err != nil {
		return domain.File{}, fmt.Errorf("insert file: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "file.register", f.ProjectID, "file", f.ID, opts.ClientID,
		events.EventPayload{"file_type": f.FileType}); err != nil {
		return domain.File{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.File{}, err
	}
	return f, nil
}

// SetFileMetadata validates and stores distribution metadata on a master
// file. Invalid metadata is rejected outright; nothing partial is stored.
func (e Engine) SetFileMetadata(ctx context.Context, fileID string, md domain.MasterMetadata, clientID string) (domain.File, error) {
	f, err := e.Repo.GetFile(ctx, fileID)
	if err != nil {
		return domain.File{}, err
	}
	if f.FileType != "master" {
		return domain.File{}, ValidationError{Field: "file_id", Message: "metadata applies to master files only"}
	}
	cfg, err := e.projectConfig(ctx, f.ProjectID)
	if err != nil {
		return domain.File{}, err
	}
	if problems := readiness.MetadataProblems(&md, cfg.ValidGenre); len(problems) > 0 {
		return domain.File{}, ValidationError{Field: "metadata", Message: problems[0]}
	}
	payload, err := json.Marshal(md)
	if err != nil {
		return domain.File{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.File{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.SetFileMetadata(ctx, tx, f.ID, string(payload), true); err != nil {
		return domain.File{}, err
	}
	if err := e.Events.Append(ctx, tx, "file.metadata", f.ProjectID, "file", f.ID, clientID,
		events.EventPayload{"isrc": md.ISRC, "genre": md.Genre}); err != nil {
		return domain.File{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.File{}, err
	}
	raw := string(payload)
	f.MetadataJSON = &raw
	f.MetadataComplete = true
	return f, nil
}

// AddFileNote records timestamped reviewer feedback on a file and reopens
// the acknowledgment loop on the file.
func (e Engine) AddFileNote(ctx context.Context, fileID string, timestamp float64, text, clientID string) (domain.FileNote, error) {
	if text == "" {
		return domain.FileNote{}, ValidationError{Field: "text", Message: "required"}
	}
	if timestamp < 0 {
		return domain.FileNote{}, ValidationError{Field: "timestamp", Message: "must be >= 0"}
	}
	f, err := e.Repo.GetFile(ctx, fileID)
	if err != nil {
		return domain.FileNote{}, err
	}
	n := domain.FileNote{
		ID:        uuid.NewString(),
		FileID:    f.ID,
		Timestamp: timestamp,
		Text:      text,
		Author:    clientID,
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.FileNote{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertFileNote(ctx, tx, n); err != nil {
		return domain.FileNote{}, fmt.Errorf("insert file note: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "file.note", f.ProjectID, "file", f.ID, clientID,
		events.EventPayload{"timestamp": timestamp}); err != nil {
		return domain.FileNote{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.FileNote{}, err
	}
	return n, nil
}

// AcknowledgeFileNotes marks reviewer feedback as seen. Only the uploader
// may acknowledge, there must be something to acknowledge, and a redundant
// acknowledgment is rejected rather than silently absorbed.
func (e Engine) AcknowledgeFileNotes(ctx context.Context, fileID, clientID string) (domain.File, error) {
	f, err := e.Repo.GetFile(ctx, fileID)
	if err != nil {
		return domain.File{}, err
	}
	if f.UploadedBy != clientID {
		return domain.File{}, ForbiddenError{Message: "only the uploader may acknowledge notes"}
	}
	noteCount, err := e.Repo.CountFileNotes(ctx, f.ID)
	if err != nil {
		return domain.File{}, err
	}
	if noteCount == 0 {
		return domain.File{}, PreconditionError{
			Code:    "no_notes",
			Message: "file has no notes to acknowledge",
		}
	}
	ackAt := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.File{}, err
	}
	defer tx.Rollback()
	flipped, err := e.Repo.AcknowledgeFileNotes(ctx, tx, f.ID, clientID, ackAt)
	if err != nil {
		return domain.File{}, err
	}
	if !flipped {
		return domain.File{}, PreconditionError{
			Code:    "already_acknowledged",
			Message: "notes are already acknowledged",
		}
	}
	if err := e.Events.Append(ctx, tx, "file.acknowledge", f.ProjectID, "file", f.ID, clientID,
		events.EventPayload{"note_count": noteCount}); err != nil {
		return domain.File{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.File{}, err
	}
	f.NotesAcknowledged = true
	f.AcknowledgedBy = &clientID
	f.AcknowledgedAt = &ackAt
	return f, nil
}

// parseMasterMetadata decodes stored metadata. A malformed stored payload
// is treated as absent so a corrupt row degrades to "metadata not set"
// instead of failing the evaluation.
func parseMasterMetadata(f *domain.File) *domain.MasterMetadata {
	if f == nil || f.MetadataJSON == nil {
		return nil
	}
	var md domain.MasterMetadata
	if err := json.Unmarshal([]byte(*f.MetadataJSON), &md); err != nil {
		return nil
	}
	return &md
}

// FileDownloadURL returns a pre-signed download URL for a stored file.
func (e Engine) FileDownloadURL(ctx context.Context, fileID string) (string, time.Time, error) {
	f, err := e.Repo.GetFile(ctx, fileID)
	if err != nil {
		return "", time.Time{}, err
	}
	return e.Storage.PresignedGetURL(ctx, f.StorageKey)
}

// FileUploadURL returns a pre-signed upload URL for a registered file's key.
func (e Engine) FileUploadURL(ctx context.Context, fileID string) (string, time.Time, error) {
	f, err := e.Repo.GetFile(ctx, fileID)
	if err != nil {
		return "", time.Time{}, err
	}
	return e.Storage.PresignedPutURL(ctx, f.StorageKey)
}
