package readiness

import "releasecompass/internal/domain"

type NoteStatus struct {
	FileID            string `json:"file_id,omitempty"`
	NoteCount         int    `json:"note_count"`
	Acknowledged      bool   `json:"acknowledged"`
	HasUnacknowledged bool   `json:"has_unacknowledged"`
}

// EvaluateNotes decides whether mastering feedback is outstanding on a file.
// The gate is binary: at least one note and an unset acknowledgment flag
// means feedback is pending, regardless of how many earlier notes were
// already acknowledged. A nil file (no master uploaded yet) blocks nothing.
func EvaluateNotes(file *domain.File, noteCount int) NoteStatus {
	if file == nil {
		return NoteStatus{Acknowledged: true}
	}
	return NoteStatus{
		FileID:            file.ID,
		NoteCount:         noteCount,
		Acknowledged:      file.NotesAcknowledged,
		HasUnacknowledged: noteCount > 0 && !file.NotesAcknowledged,
	}
}
