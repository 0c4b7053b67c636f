package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"releasecompass/internal/domain"
	"releasecompass/internal/engine"
	"releasecompass/internal/readiness"
)

func registerMilestones(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "milestone-list",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/milestones",
		Summary:     "List milestones",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []domain.Milestone `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListMilestones(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Milestone{}
		}
		return &struct {
			Body []domain.Milestone `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "milestone-get",
		Method:      http.MethodGet,
		Path:        "/milestones/{milestone_id}",
		Summary:     "Get milestone",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MilestoneID string `path:"milestone_id"`
	}) (*struct {
		Body domain.Milestone `json:"body"`
	}, error) {
		m, err := e.Repo.GetMilestone(ctx, input.MilestoneID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Milestone `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "milestone-quota",
		Method:      http.MethodGet,
		Path:        "/milestones/{milestone_id}/quota",
		Summary:     "Content quota status",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MilestoneID string `path:"milestone_id"`
	}) (*struct {
		Body readiness.QuotaStatus `json:"body"`
	}, error) {
		status, err := e.MilestoneQuota(ctx, input.MilestoneID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body readiness.QuotaStatus `json:"body"`
		}{Body: status}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "milestone-start",
		Method:      http.MethodPost,
		Path:        "/milestones/{milestone_id}/start",
		Summary:     "Start milestone",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		MilestoneID string `path:"milestone_id"`
	}) (*struct {
		Body domain.Milestone `json:"body"`
	}, error) {
		clientID, authErr := clientIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.StartMilestone(ctx, input.MilestoneID, clientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Milestone `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "milestone-complete",
		Method:      http.MethodPost,
		Path:        "/milestones/{milestone_id}/complete",
		Summary:     "Complete milestone",
		Description: "Runs the completion gate. The first unmet precondition is returned as a 422 with a stable code.",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		MilestoneID string `path:"milestone_id"`
	}) (*struct {
		Body domain.Milestone `json:"body"`
	}, error) {
		clientID, authErr := clientIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.CompleteMilestone(ctx, input.MilestoneID, clientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Milestone `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "milestone-reschedule",
		Method:      http.MethodPatch,
		Path:        "/milestones/{milestone_id}/due-date",
		Summary:     "Reschedule milestone",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		MilestoneID string `path:"milestone_id"`
		Body        struct {
			DueDate string `json:"due_date" format:"date-time"`
		} `json:"body"`
	}) (*struct {
		Body domain.Milestone `json:"body"`
	}, error) {
		clientID, authErr := clientIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.UpdateMilestoneDueDate(ctx, input.MilestoneID, input.Body.DueDate, clientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Milestone `json:"body"`
		}{Body: m}, nil
	})
}
