package releasecompasssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal ReleaseCompass HTTP API client.
type Client struct {
	BaseURL     string
	ProjectID   string
	ClientID    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, projectID string) *Client {
	return &Client{
		BaseURL:   baseURL,
		ProjectID: projectID,
		Timeout:   10 * time.Second,
	}
}

// Project represents the API project model (partial).
type Project struct {
	ID          string  `json:"id"`
	ArtistName  string  `json:"artist_name"`
	Title       string  `json:"title"`
	ReleaseType string  `json:"release_type"`
	ReleaseDate string  `json:"release_date"`
	TotalBudget float64 `json:"total_budget"`
}

// Milestone represents a catalog milestone.
type Milestone struct {
	ID            string  `json:"id"`
	ProjectID     string  `json:"project_id"`
	Key           string  `json:"key"`
	Name          string  `json:"name"`
	DueDate       string  `json:"due_date"`
	Status        string  `json:"status"`
	BlocksRelease bool    `json:"blocks_release"`
	CompletedAt   *string `json:"completed_at,omitempty"`
}

// File represents an uploaded deliverable.
type File struct {
	ID                string `json:"id"`
	ProjectID         string `json:"project_id"`
	FileType          string `json:"file_type"`
	StorageKey        string `json:"storage_key"`
	UploadedBy        string `json:"uploaded_by"`
	UploadedAt        string `json:"uploaded_at"`
	NotesAcknowledged bool   `json:"notes_acknowledged"`
}

// ClearedStatus is the cleared-for-release verdict.
type ClearedStatus struct {
	Cleared bool     `json:"cleared"`
	Reasons []string `json:"reasons"`
}

// ActionItem is one entry of the prioritized to-do feed.
type ActionItem struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Dismissible bool   `json:"dismissible"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateProject creates a release project with its milestone catalog.
func (c *Client) CreateProject(ctx context.Context, artist, title, releaseType, releaseDate string, totalBudget float64) (Project, error) {
	body := map[string]any{
		"artist_name":  artist,
		"title":        title,
		"release_type": releaseType,
		"release_date": releaseDate,
		"total_budget": totalBudget,
	}
	var resp struct {
		Project Project `json:"project"`
	}
	err := c.do(ctx, http.MethodPost, "v0/projects", body, &resp)
	return resp.Project, err
}

// Milestones lists the project's milestones.
func (c *Client) Milestones(ctx context.Context) ([]Milestone, error) {
	var resp []Milestone
	err := c.do(ctx, http.MethodGet, c.projectPath("milestones"), nil, &resp)
	return resp, err
}

// StartMilestone moves a pending milestone into progress.
func (c *Client) StartMilestone(ctx context.Context, milestoneID string) (Milestone, error) {
	var resp Milestone
	endpoint := fmt.Sprintf("v0/milestones/%s/start", url.PathEscape(milestoneID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// CompleteMilestone runs the completion gate on a milestone.
func (c *Client) CompleteMilestone(ctx context.Context, milestoneID string) (Milestone, error) {
	var resp Milestone
	endpoint := fmt.Sprintf("v0/milestones/%s/complete", url.PathEscape(milestoneID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// AddContentItem registers a captured asset, optionally against a milestone.
func (c *Client) AddContentItem(ctx context.Context, milestoneID, contentType, captureContext string) (map[string]any, error) {
	body := map[string]any{
		"milestone_id":    milestoneID,
		"content_type":    contentType,
		"capture_context": captureContext,
	}
	var resp map[string]any
	err := c.do(ctx, http.MethodPost, c.projectPath("content"), body, &resp)
	return resp, err
}

// RegisterFile records an uploaded deliverable.
func (c *Client) RegisterFile(ctx context.Context, fileType, storageKey string) (File, error) {
	body := map[string]any{
		"file_type":   fileType,
		"storage_key": storageKey,
	}
	var resp File
	err := c.do(ctx, http.MethodPost, c.projectPath("files"), body, &resp)
	return resp, err
}

// AddFileNote leaves timestamped feedback on a file.
func (c *Client) AddFileNote(ctx context.Context, fileID string, timestamp float64, text string) (map[string]any, error) {
	body := map[string]any{
		"timestamp": timestamp,
		"text":      text,
	}
	var resp map[string]any
	endpoint := fmt.Sprintf("v0/files/%s/notes", url.PathEscape(fileID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// AcknowledgeFileNotes marks a file's notes as seen by the uploader.
func (c *Client) AcknowledgeFileNotes(ctx context.Context, fileID string) (File, error) {
	var resp File
	endpoint := fmt.Sprintf("v0/files/%s/acknowledge", url.PathEscape(fileID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// AddBudgetItem records spend against a category.
func (c *Client) AddBudgetItem(ctx context.Context, category, description string, amount float64, receiptFileID string) (map[string]any, error) {
	body := map[string]any{
		"category":        category,
		"description":     description,
		"amount":          amount,
		"receipt_file_id": receiptFileID,
	}
	var resp map[string]any
	err := c.do(ctx, http.MethodPost, c.projectPath("budget"), body, &resp)
	return resp, err
}

// AddTeaserPost logs a promotional post for the teaser campaign.
func (c *Client) AddTeaserPost(ctx context.Context, platform, postURL string, snippetDuration int) (map[string]any, error) {
	body := map[string]any{
		"platform":         platform,
		"post_url":         postURL,
		"snippet_duration": snippetDuration,
	}
	var resp map[string]any
	err := c.do(ctx, http.MethodPost, c.projectPath("teasers"), body, &resp)
	return resp, err
}

// Readiness returns the cleared-for-release verdict.
func (c *Client) Readiness(ctx context.Context) (ClearedStatus, error) {
	var resp ClearedStatus
	err := c.do(ctx, http.MethodGet, c.projectPath("readiness"), nil, &resp)
	return resp, err
}

// Actions returns the prioritized to-do feed.
func (c *Client) Actions(ctx context.Context) ([]ActionItem, error) {
	var resp []ActionItem
	err := c.do(ctx, http.MethodGet, c.projectPath("actions"), nil, &resp)
	return resp, err
}

// Events returns recent events, oldest first when after is set.
func (c *Client) Events(ctx context.Context, after int64, limit int) ([]Event, error) {
	endpoint := c.projectPath("events")
	params := url.Values{}
	if after > 0 {
		params.Set("after", fmt.Sprintf("%d", after))
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ClientID != "":
		req.Header.Set("X-Client-Id", c.ClientID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) projectPath(p string) string {
	project := url.PathEscape(c.ProjectID)
	return fmt.Sprintf("v0/projects/%s/%s", project, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
