package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"releasecompass/internal/domain"
	"releasecompass/internal/engine"
	"releasecompass/internal/readiness"
)

func registerBudget(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "budget-add",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/budget",
		Summary:       "Record spend",
		Description:   "Every entry must reference an uploaded receipt file.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      struct {
			Category      string  `json:"category" enum:"production,marketing,content_creation,distribution,admin,contingency"`
			Description   string  `json:"description,omitempty"`
			Amount        float64 `json:"amount"`
			ReceiptFileID string  `json:"receipt_file_id"`
		} `json:"body"`
	}) (*struct {
		Body domain.BudgetItem `json:"body"`
	}, error) {
		clientID, authErr := clientIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		item, err := e.AddBudgetItem(ctx, engine.BudgetItemOptions{
			ProjectID:     input.ProjectID,
			Category:      input.Body.Category,
			Description:   input.Body.Description,
			Amount:        input.Body.Amount,
			ReceiptFileID: input.Body.ReceiptFileID,
			ClientID:      clientID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.BudgetItem `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "budget-list",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/budget",
		Summary:     "List budget items",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []domain.BudgetItem `json:"body"`
	}, error) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListBudgetItems(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.BudgetItem{}
		}
		return &struct {
			Body []domain.BudgetItem `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "budget-summary",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/budget/summary",
		Summary:     "Budget summary",
		Description: "Per-category spend against the recommended allocation, with threshold alerts.",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body readiness.BudgetSummary `json:"body"`
	}, error) {
		sum, err := e.BudgetSummary(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body readiness.BudgetSummary `json:"body"`
		}{Body: sum}, nil
	})
}
