package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"releasecompass/internal/domain"
	"releasecompass/internal/engine"
	"releasecompass/internal/storage"
)

// SignedURL is a pre-signed object-storage URL with its expiry.
type SignedURL struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at" format:"date-time"`
}

func registerFiles(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "file-register",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/files",
		Summary:       "Register uploaded file",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      struct {
			FileType   string `json:"file_type" enum:"master,stems,artwork,contracts,receipts"`
			StorageKey string `json:"storage_key,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.File `json:"body"`
	}, error) {
		clientID, authErr := clientIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f, err := e.RegisterFile(ctx, engine.FileRegisterOptions{
			ProjectID:  input.ProjectID,
			FileType:   input.Body.FileType,
			StorageKey: input.Body.StorageKey,
			ClientID:   clientID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.File `json:"body"`
		}{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "file-list",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/files",
		Summary:     "List files",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []domain.File `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListFiles(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.File{}
		}
		return &struct {
			Body []domain.File `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "file-get",
		Method:      http.MethodGet,
		Path:        "/files/{file_id}",
		Summary:     "Get file",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FileID string `path:"file_id"`
	}) (*struct {
		Body domain.File `json:"body"`
	}, error) {
		f, err := e.Repo.GetFile(ctx, input.FileID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.File `json:"body"`
		}{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "file-download-url",
		Method:      http.MethodGet,
		Path:        "/files/{file_id}/download",
		Summary:     "Pre-signed download URL",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		FileID string `path:"file_id"`
	}) (*struct {
		Body SignedURL `json:"body"`
	}, error) {
		url, expiry, err := e.FileDownloadURL(ctx, input.FileID)
		if errors.Is(err, storage.ErrNotConfigured) {
			return nil, newAPIError(http.StatusConflict, "storage_not_configured", "object storage is not configured", nil)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SignedURL `json:"body"`
		}{Body: SignedURL{URL: url, ExpiresAt: expiry.UTC().Format(time.RFC3339)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "file-set-metadata",
		Method:      http.MethodPut,
		Path:        "/files/{file_id}/metadata",
		Summary:     "Set master metadata",
		Description: "Validates ISRC format, configured genre, and the explicit flag. Invalid metadata is rejected; nothing partial is stored.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FileID string `path:"file_id"`
		Body   struct {
			ISRC     string `json:"isrc"`
			Genre    string `json:"genre"`
			Explicit *bool  `json:"explicit"`
		} `json:"body"`
	}) (*struct {
		Body domain.File `json:"body"`
	}, error) {
		clientID, authErr := clientIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f, err := e.SetFileMetadata(ctx, input.FileID, domain.MasterMetadata{
			ISRC:     input.Body.ISRC,
			Genre:    input.Body.Genre,
			Explicit: input.Body.Explicit,
		}, clientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.File `json:"body"`
		}{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "file-note-add",
		Method:        http.MethodPost,
		Path:          "/files/{file_id}/notes",
		Summary:       "Add timestamped note",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FileID string `path:"file_id"`
		Body   struct {
			Timestamp float64 `json:"timestamp" minimum:"0"`
			Text      string  `json:"text" minLength:"1"`
		} `json:"body"`
	}) (*struct {
		Body domain.FileNote `json:"body"`
	}, error) {
		clientID, authErr := clientIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := e.AddFileNote(ctx, input.FileID, input.Body.Timestamp, input.Body.Text, clientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FileNote `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "file-note-list",
		Method:      http.MethodGet,
		Path:        "/files/{file_id}/notes",
		Summary:     "List notes",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FileID string `path:"file_id"`
	}) (*struct {
		Body []domain.FileNote `json:"body"`
	}, error) {
		if _, err := e.Repo.GetFile(ctx, input.FileID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListFileNotes(ctx, input.FileID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.FileNote{}
		}
		return &struct {
			Body []domain.FileNote `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "file-acknowledge",
		Method:      http.MethodPost,
		Path:        "/files/{file_id}/acknowledge",
		Summary:     "Acknowledge notes",
		Description: "Only the uploader may acknowledge; a redundant acknowledgment is rejected.",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		FileID string `path:"file_id"`
	}) (*struct {
		Body domain.File `json:"body"`
	}, error) {
		clientID, authErr := clientIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f, err := e.AcknowledgeFileNotes(ctx, input.FileID, clientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.File `json:"body"`
		}{Body: f}, nil
	})
}
