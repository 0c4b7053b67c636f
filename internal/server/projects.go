package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"releasecompass/internal/domain"
	"releasecompass/internal/engine"
	"releasecompass/internal/readiness"
)

// ProjectCreated pairs the project with its instantiated milestone catalog.
type ProjectCreated struct {
	Project    domain.Project     `json:"project"`
	Milestones []domain.Milestone `json:"milestones"`
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "project-create",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create release project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body struct {
			ArtistName  string  `json:"artist_name" minLength:"1"`
			Title       string  `json:"title" minLength:"1"`
			ReleaseType string  `json:"release_type" enum:"single,ep,album"`
			ReleaseDate string  `json:"release_date" format:"date-time"`
			TotalBudget float64 `json:"total_budget"`
		} `json:"body"`
	}) (*struct {
		Body ProjectCreated `json:"body"`
	}, error) {
		clientID, authErr := clientIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, milestones, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
			ArtistName:  input.Body.ArtistName,
			Title:       input.Body.Title,
			ReleaseType: input.Body.ReleaseType,
			ReleaseDate: input.Body.ReleaseDate,
			TotalBudget: input.Body.TotalBudget,
			ClientID:    clientID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectCreated `json:"body"`
		}{Body: ProjectCreated{Project: p, Milestones: milestones}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-list",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		items, err := e.Repo.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Project{}
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-get",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		p, err := e.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-readiness",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/readiness",
		Summary:     "Cleared-for-release verdict",
		Description: "Exhaustive readiness check: every blocking problem is reported, not just the first.",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body readiness.ClearedStatus `json:"body"`
	}, error) {
		status, err := e.ProjectReadiness(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body readiness.ClearedStatus `json:"body"`
		}{Body: status}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-deadlines",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/deadlines",
		Summary:     "Deadline risk analysis",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body readiness.DeadlineAnalysis `json:"body"`
	}, error) {
		analysis, err := e.DeadlineAnalysis(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body readiness.DeadlineAnalysis `json:"body"`
		}{Body: analysis}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-actions",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/actions",
		Summary:     "Prioritized action feed",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []readiness.ActionItem `json:"body"`
	}, error) {
		items, err := e.ActionItems(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []readiness.ActionItem `json:"body"`
		}{Body: items}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "project-events",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/events",
		Summary:     "Audit log",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		After     int64  `query:"after" minimum:"0"`
		Limit     int    `query:"limit" minimum:"1" maximum:"500"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		var (
			items []domain.Event
			err   error
		)
		if input.After > 0 {
			items, err = e.Repo.EventsAfter(ctx, input.ProjectID, input.After, input.Limit)
		} else {
			items, err = e.Repo.LatestEvents(ctx, input.ProjectID, input.Limit)
		}
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Event{}
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}
