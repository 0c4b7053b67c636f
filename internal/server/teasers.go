package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"releasecompass/internal/domain"
	"releasecompass/internal/engine"
	"releasecompass/internal/readiness"
)

func registerTeasers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "teaser-add",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/teasers",
		Summary:       "Log teaser post",
		Description:   "Posts outside the recommended window are stored with an advisory, never rejected.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      struct {
			Platform        string `json:"platform" enum:"tiktok,instagram,youtube,twitter,facebook"`
			PostURL         string `json:"post_url" minLength:"1"`
			SnippetDuration int    `json:"snippet_duration" minimum:"5" maximum:"60"`
			SongSection     string `json:"song_section,omitempty"`
			PostedAt        string `json:"posted_at,omitempty" format:"date-time"`
			HasPresaveLink  bool   `json:"has_presave_link,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body engine.TeaserPostResult `json:"body"`
	}, error) {
		clientID, authErr := clientIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.AddTeaserPost(ctx, engine.TeaserPostOptions{
			ProjectID:       input.ProjectID,
			Platform:        input.Body.Platform,
			PostURL:         input.Body.PostURL,
			SnippetDuration: input.Body.SnippetDuration,
			SongSection:     input.Body.SongSection,
			PostedAt:        input.Body.PostedAt,
			HasPresaveLink:  input.Body.HasPresaveLink,
			ClientID:        clientID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.TeaserPostResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "teaser-list",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/teasers",
		Summary:     "List teaser posts",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []domain.TeaserPost `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListTeaserPosts(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.TeaserPost{}
		}
		return &struct {
			Body []domain.TeaserPost `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "teaser-status",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/teasers/status",
		Summary:     "Teaser campaign status",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body readiness.TeaserStatus `json:"body"`
	}, error) {
		st, err := e.TeaserStatus(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body readiness.TeaserStatus `json:"body"`
		}{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "teaser-metrics",
		Method:      http.MethodPut,
		Path:        "/teasers/{post_id}/metrics",
		Summary:     "Update engagement metrics",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PostID string                `path:"post_id"`
		Body   engine.TeaserMetrics `json:"body"`
	}) (*struct {
		Body domain.TeaserPost `json:"body"`
	}, error) {
		clientID, authErr := clientIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		post, err := e.UpdateTeaserMetrics(ctx, input.PostID, input.Body, clientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TeaserPost `json:"body"`
		}{Body: post}, nil
	})
}
