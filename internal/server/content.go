package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"releasecompass/internal/domain"
	"releasecompass/internal/engine"
)

func registerContent(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "content-add",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/content",
		Summary:       "Register content item",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      struct {
			MilestoneID    string `json:"milestone_id,omitempty"`
			ContentType    string `json:"content_type" enum:"photo,short_video,long_video,voice_memo,live_performance,team_meeting"`
			CaptureContext string `json:"capture_context,omitempty"`
			StorageKey     string `json:"storage_key,omitempty"`
			Caption        string `json:"caption,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.ContentItem `json:"body"`
	}, error) {
		clientID, authErr := clientIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ci, err := e.AddContentItem(ctx, engine.ContentItemOptions{
			ProjectID:      input.ProjectID,
			MilestoneID:    input.Body.MilestoneID,
			ContentType:    input.Body.ContentType,
			CaptureContext: input.Body.CaptureContext,
			StorageKey:     input.Body.StorageKey,
			Caption:        input.Body.Caption,
			ClientID:       clientID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ContentItem `json:"body"`
		}{Body: ci}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "content-list",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/content",
		Summary:     "List content items",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []domain.ContentItem `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListContentItems(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.ContentItem{}
		}
		return &struct {
			Body []domain.ContentItem `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "content-reassign",
		Method:      http.MethodPost,
		Path:        "/content/{item_id}/reassign",
		Summary:     "Reassign content item",
		Description: "Moves the item to another milestone, or detaches it when milestone_id is empty.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ItemID string `path:"item_id"`
		Body   struct {
			MilestoneID string `json:"milestone_id,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.ContentItem `json:"body"`
	}, error) {
		clientID, authErr := clientIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ci, err := e.ReassignContentItem(ctx, input.ItemID, input.Body.MilestoneID, clientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ContentItem `json:"body"`
		}{Body: ci}, nil
	})
}
