package repo

import (
	"context"
	"database/sql"

	"releasecompass/internal/domain"
)

func (r Repo) InsertBudgetItem(ctx context.Context, tx *sql.Tx, b domain.BudgetItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO budget_items(id,project_id,category,description,amount,receipt_file_id,approval_status,created_by,created_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		b.ID, b.ProjectID, b.Category, nullable(b.Description), b.Amount, b.ReceiptFileID, b.ApprovalStatus, b.CreatedBy, b.CreatedAt)
	return err
}

const budgetItemCols = `id,project_id,category,COALESCE(description,'') AS description,amount,receipt_file_id,approval_status,created_by,created_at`

func (r Repo) GetBudgetItem(ctx context.Context, id string) (domain.BudgetItem, error) {
	var b domain.BudgetItem
	err := r.DB.QueryRowContext(ctx, `SELECT `+budgetItemCols+` FROM budget_items WHERE id=?`, id).
		Scan(&b.ID, &b.ProjectID, &b.Category, &b.Description, &b.Amount, &b.ReceiptFileID, &b.ApprovalStatus, &b.CreatedBy, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	return b, err
}

func (r Repo) ListBudgetItems(ctx context.Context, projectID string) ([]domain.BudgetItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+budgetItemCols+` FROM budget_items WHERE project_id=? ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.BudgetItem
	for rows.Next() {
		var b domain.BudgetItem
		if err := rows.Scan(&b.ID, &b.ProjectID, &b.Category, &b.Description, &b.Amount, &b.ReceiptFileID, &b.ApprovalStatus, &b.CreatedBy, &b.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, nil
}

// SumSpendByCategory totals recorded spend per category for a project.
func (r Repo) SumSpendByCategory(ctx context.Context, projectID string) (map[string]float64, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT category, SUM(amount) FROM budget_items WHERE project_id=? GROUP BY category`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	spend := map[string]float64{}
	for rows.Next() {
		var cat string
		var total float64
		if err := rows.Scan(&cat, &total); err != nil {
			return nil, err
		}
		spend[cat] = total
	}
	return spend, nil
}

func (r Repo) TotalSpend(ctx context.Context, projectID string) (float64, error) {
	var total sql.NullFloat64
	err := r.DB.QueryRowContext(ctx, `SELECT SUM(amount) FROM budget_items WHERE project_id=?`, projectID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}
