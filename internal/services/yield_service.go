package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// YieldService derives yield percentages from persisted dividends and
// investments. Read-only; feeds the reporting layer.
type YieldService struct {
	db                   *sql.DB
	managementFeePercent float64
}

func NewYieldService(db *sql.DB, managementFeePercent float64) *YieldService {
	return &YieldService{
		db:                   db,
		managementFeePercent: managementFeePercent,
	}
}

type YieldSummary struct {
	ProjectID             string  `json:"project_id"`
	TotalInvestedCents    int64   `json:"total_invested_cents"`
	TotalDistributedCents int64   `json:"total_distributed_cents"`
	GrossYieldPercent     float64 `json:"gross_yield_percent"`
	NetYieldPercent       float64 `json:"net_yield_percent"`
}

// ProjectYield aggregates yield for one project. Returns zero percentages
// rather than dividing by zero when nothing has been invested.
func (s *YieldService) ProjectYield(ctx context.Context, projectID string) (*YieldSummary, error) {
	summary := &YieldSummary{ProjectID: projectID}

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM investments
		WHERE project_id = $1 AND status != $2`, projectID, "CANCELLED").Scan(&summary.TotalInvestedCents)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(p.amount_cents), 0)
		FROM dividend_payments p
		INNER JOIN dividends d ON d.id = p.dividend_id
		WHERE d.project_id = $1`, projectID).Scan(&summary.TotalDistributedCents)
	if err != nil {
		return nil, err
	}

	summary.GrossYieldPercent, summary.NetYieldPercent = s.percentages(summary.TotalDistributedCents, summary.TotalInvestedCents)
	return summary, nil
}

// UserYield aggregates yield across all of one user's holdings.
func (s *YieldService) UserYield(ctx context.Context, userID string) (*YieldSummary, error) {
	summary := &YieldSummary{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM investments
		WHERE user_id = $1 AND status != $2`, userID, "CANCELLED").Scan(&summary.TotalInvestedCents)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM dividend_payments
		WHERE user_id = $1`, userID).Scan(&summary.TotalDistributedCents)
	if err != nil {
		return nil, err
	}

	summary.GrossYieldPercent, summary.NetYieldPercent = s.percentages(summary.TotalDistributedCents, summary.TotalInvestedCents)
	return summary, nil
}

func (s *YieldService) percentages(distributed, invested int64) (gross, net float64) {
	if invested == 0 {
		return 0, 0
	}
	gross = float64(distributed) / float64(invested) * 100
	net = gross * (1 - s.managementFeePercent/100)
	return gross, net
}

// GetProjectYield serves yield figures for a project
// @Summary Get project yield
// @Tags yield
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} YieldSummary
// @Failure 500 {object} map[string]string
// @Router /projects/{projectId}/yield [get]
func (s *YieldService) GetProjectYield(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")

	summary, err := s.ProjectYield(r.Context(), projectID)
	if err != nil {
		http.Error(w, "Failed to compute yield", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// GetUserYield serves yield figures for the authenticated user
// @Summary Get user yield
// @Tags yield
// @Produce json
// @Success 200 {object} YieldSummary
// @Failure 500 {object} map[string]string
// @Router /yield [get]
func (s *YieldService) GetUserYield(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	summary, err := s.UserYield(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to compute yield", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
