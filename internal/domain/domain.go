package domain

type Project struct {
	ID          string  `json:"id"`
	ArtistName  string  `json:"artist_name"`
	Title       string  `json:"title"`
	ReleaseType string  `json:"release_type" enum:"single,ep,album"`
	ReleaseDate string  `json:"release_date" format:"date-time"`
	TotalBudget float64 `json:"total_budget"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
}

type Milestone struct {
	ID            string  `json:"id"`
	ProjectID     string  `json:"project_id"`
	Key           string  `json:"key"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	DueDate       string  `json:"due_date" format:"date-time"`
	Status        string  `json:"status" enum:"pending,in_progress,complete"`
	BlocksRelease bool    `json:"blocks_release"`
	ProofRequired bool    `json:"proof_required"`
	TeaserGate    bool    `json:"teaser_gate"`
	CompletedAt   *string `json:"completed_at,omitempty" format:"date-time"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

type ContentRequirement struct {
	ID          string `json:"id"`
	MilestoneID string `json:"milestone_id"`
	ContentType string `json:"content_type" enum:"photo,short_video,long_video,voice_memo,live_performance,team_meeting"`
	MinCount    int    `json:"min_count"`
}

type ContentItem struct {
	ID             string  `json:"id"`
	ProjectID      string  `json:"project_id"`
	MilestoneID    *string `json:"milestone_id,omitempty"`
	ContentType    string  `json:"content_type" enum:"photo,short_video,long_video,voice_memo,live_performance,team_meeting"`
	CaptureContext string  `json:"capture_context,omitempty"`
	StorageKey     string  `json:"storage_key"`
	Caption        string  `json:"caption,omitempty"`
	UploadedBy     string  `json:"uploaded_by"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
}

type File struct {
	ID                string  `json:"id"`
	ProjectID         string  `json:"project_id"`
	FileType          string  `json:"file_type" enum:"master,stems,artwork,contracts,receipts"`
	StorageKey        string  `json:"storage_key"`
	UploadedBy        string  `json:"uploaded_by"`
	UploadedAt        string  `json:"uploaded_at" format:"date-time"`
	NotesAcknowledged bool    `json:"notes_acknowledged"`
	AcknowledgedBy    *string `json:"acknowledged_by,omitempty"`
	AcknowledgedAt    *string `json:"acknowledged_at,omitempty" format:"date-time"`
	MetadataJSON      *string `json:"metadata_json,omitempty"`
	MetadataComplete  bool    `json:"metadata_complete"`
}

// MasterMetadata is the parsed form of File.MetadataJSON for master files.
// Explicit is a pointer so an absent flag is distinguishable from false.
type MasterMetadata struct {
	ISRC     string `json:"isrc"`
	Genre    string `json:"genre"`
	Explicit *bool  `json:"explicit"`
}

type FileNote struct {
	ID        string  `json:"id"`
	FileID    string  `json:"file_id"`
	Timestamp float64 `json:"timestamp"`
	Text      string  `json:"text"`
	Author    string  `json:"author"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type BudgetItem struct {
	ID             string  `json:"id"`
	ProjectID      string  `json:"project_id"`
	Category       string  `json:"category" enum:"production,marketing,content_creation,distribution,admin,contingency"`
	Description    string  `json:"description,omitempty"`
	Amount         float64 `json:"amount"`
	ReceiptFileID  string  `json:"receipt_file_id"`
	ApprovalStatus string  `json:"approval_status" enum:"pending,approved,rejected"`
	CreatedBy      string  `json:"created_by"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
}

type TeaserPost struct {
	ID              string `json:"id"`
	ProjectID       string `json:"project_id"`
	Platform        string `json:"platform" enum:"tiktok,instagram,youtube,twitter,facebook"`
	PostURL         string `json:"post_url"`
	SnippetDuration int    `json:"snippet_duration"`
	SongSection     string `json:"song_section,omitempty"`
	PostedAt        string `json:"posted_at" format:"date-time"`
	HasPresaveLink  bool   `json:"has_presave_link"`
	Views           int64  `json:"views"`
	Likes           int64  `json:"likes"`
	Shares          int64  `json:"shares"`
	Comments        int64  `json:"comments"`
	CreatedBy       string `json:"created_by"`
	CreatedAt       string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ClientID   string `json:"client_id"`
	Payload    string `json:"payload_json"`
}
