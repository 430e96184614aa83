package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/brickvest/backend/internal/audit"
	"github.com/brickvest/backend/internal/models"
)

// InvestmentService settles investment purchases: one wallet debit, one
// investment row and one shares_sold increment per purchase, all inside a
// single database transaction. The wallet row lock is always acquired before
// the project row lock.
type InvestmentService struct {
	db        *sql.DB
	redis     *redis.Client
	wallets   *WalletService
	audit     audit.Sink
	validator *ValidationHelper
}

func NewInvestmentService(db *sql.DB, redisClient *redis.Client, wallets *WalletService, sink audit.Sink) *InvestmentService {
	if sink == nil {
		sink = audit.NewLogger()
	}
	return &InvestmentService{
		db:        db,
		redis:     redisClient,
		wallets:   wallets,
		audit:     sink,
		validator: NewValidationHelper(),
	}
}

// Settle executes one investor's purchase. Preconditions are checked before
// any mutation and reported together; on success the debit, the investment
// row and the shares_sold increment commit as one unit or not at all.
func (s *InvestmentService) Settle(ctx context.Context, userID, projectID string, amountCents int64) (*models.Investment, error) {
	return s.settle(ctx, userID, projectID, amountCents, audit.Context{UserID: userID})
}

func (s *InvestmentService) settle(ctx context.Context, userID, projectID string, amountCents int64, actor audit.Context) (*models.Investment, error) {
	project, err := s.fetchProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	wallet, err := s.wallets.GetWalletByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if reasons := s.checkPreconditions(ctx, userID, project, wallet, amountCents); len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}

	// Share price never changes after listing, so the share count is fixed
	// here; only availability is re-checked under the project lock.
	shares := NewShareCalculator(project).SharesForAmount(amountCents)
	investment := &models.Investment{
		ID:          uuid.NewString(),
		UserID:      userID,
		ProjectID:   projectID,
		AmountCents: amountCents,
		SharesCount: shares,
		Status:      models.InvestmentStatusInProgress,
		InvestedAt:  time.Now(),
	}
	reference := "INV-" + investment.ID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.createInvestment(tx, investment); err != nil {
		s.audit.LogError(actor, reference, err)
		return nil, err
	}

	// Wallet lock first, then project lock. DebitTx acquires the wallet
	// lock and re-checks the balance while holding it.
	entry, err := s.wallets.DebitTx(tx, wallet.ID, amountCents, models.TransactionTypeInvestment, reference, &investment.ID)
	if err != nil {
		s.audit.LogError(actor, reference, err)
		return nil, err
	}

	locked, err := s.lockProject(tx, projectID)
	if err != nil {
		s.audit.LogError(actor, reference, err)
		return nil, err
	}

	// A settlement that was valid before waiting on the lock may overshoot
	// once it holds it; reject instead of overselling.
	if shares > NewShareCalculator(locked).AvailableShares() {
		return nil, ErrInsufficientShares
	}

	sharesSold := locked.SharesSold + shares
	status := locked.Status
	if sharesSold >= locked.TotalShares {
		status = models.ProjectStatusFullyFunded
	}

	if err := s.updateProjectShares(tx, projectID, sharesSold, status, locked.Version); err != nil {
		s.audit.LogError(actor, reference, err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.audit.LogError(actor, reference, err)
		return nil, err
	}

	s.audit.LogTransaction(actor, models.TransactionTypeInvestment, reference, wallet.ID,
		entry.AmountCents, entry.BalanceAfterCents+amountCents, entry.BalanceAfterCents)

	if status == models.ProjectStatusFullyFunded && locked.Status != models.ProjectStatusFullyFunded {
		s.audit.LogProjectFunded(projectID, sharesSold, locked.TotalShares)
		s.publishProjectFunded(projectID, sharesSold)
	}

	log.Printf("[SETTLEMENT] Investment %s settled: user=%s project=%s amount=%d shares=%d",
		investment.ID, userID, projectID, amountCents, shares)
	return investment, nil
}

func (s *InvestmentService) checkPreconditions(ctx context.Context, userID string, project *models.InvestmentProject, wallet *models.Wallet, amountCents int64) []string {
	var reasons []string

	if amountCents <= 0 {
		reasons = append(reasons, "investment amount must be positive")
	}

	if project.Status != models.ProjectStatusOpen {
		reasons = append(reasons, "project is not open for investment")
	}

	now := time.Now()
	if now.Before(project.FundingStartDate) {
		reasons = append(reasons, "project funding window has not started")
	}
	if now.After(project.FundingEndDate) {
		reasons = append(reasons, "project funding window has closed")
	}

	kycStatus, err := s.fetchKYCStatus(ctx, userID)
	if err != nil || kycStatus != models.KYCStatusVerified {
		reasons = append(reasons, "user KYC is not verified")
	}

	if wallet.BalanceCents < amountCents {
		reasons = append(reasons, "wallet balance does not cover the investment amount")
	}

	reasons = append(reasons, NewShareCalculator(project).ValidateAmount(amountCents)...)
	return reasons
}

func (s *InvestmentService) fetchProject(ctx context.Context, projectID string) (*models.InvestmentProject, error) {
	var project models.InvestmentProject
	err := s.db.QueryRowContext(ctx, `
		SELECT id, share_price_cents, total_shares, shares_sold, min_investment_cents, max_investment_cents,
		       funding_start_date, funding_end_date, status, version
		FROM investment_projects
		WHERE id = $1`, projectID).Scan(
		&project.ID, &project.SharePriceCents, &project.TotalShares, &project.SharesSold,
		&project.MinInvestmentCents, &project.MaxInvestmentCents, &project.FundingStartDate,
		&project.FundingEndDate, &project.Status, &project.Version)

	if err == sql.ErrNoRows {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *InvestmentService) lockProject(tx *sql.Tx, projectID string) (*models.InvestmentProject, error) {
	var project models.InvestmentProject
	err := tx.QueryRow(`
		SELECT id, share_price_cents, total_shares, shares_sold, min_investment_cents, max_investment_cents,
		       funding_start_date, funding_end_date, status, version
		FROM investment_projects
		WHERE id = $1
		FOR UPDATE`, projectID).Scan(
		&project.ID, &project.SharePriceCents, &project.TotalShares, &project.SharesSold,
		&project.MinInvestmentCents, &project.MaxInvestmentCents, &project.FundingStartDate,
		&project.FundingEndDate, &project.Status, &project.Version)

	if err == sql.ErrNoRows {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *InvestmentService) fetchKYCStatus(ctx context.Context, userID string) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT kyc_status FROM users WHERE id = $1`, userID).Scan(&status)
	return status, err
}

func (s *InvestmentService) createInvestment(tx *sql.Tx, investment *models.Investment) error {
	_, err := tx.Exec(`
		INSERT INTO investments (id, user_id, project_id, amount_cents, shares_count, status, invested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		investment.ID, investment.UserID, investment.ProjectID, investment.AmountCents,
		investment.SharesCount, investment.Status, investment.InvestedAt)
	return err
}

func (s *InvestmentService) updateProjectShares(tx *sql.Tx, projectID string, sharesSold int64, status string, version int) error {
	result, err := tx.Exec(`
		UPDATE investment_projects
		SET shares_sold = $1, status = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5`,
		sharesSold, status, time.Now(), projectID, version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		log.Printf("[SETTLEMENT] Optimistic lock failed for project %s", projectID)
		return ErrConcurrencyConflict
	}

	return nil
}

func (s *InvestmentService) publishProjectFunded(projectID string, sharesSold int64) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(map[string]any{
		"event":       "PROJECT_FUNDED",
		"project_id":  projectID,
		"shares_sold": sharesSold,
		"occurred_at": time.Now(),
	})
	if err != nil {
		return
	}

	if err := s.redis.RPush(context.Background(), "project_events", data).Err(); err != nil {
		log.Printf("[SETTLEMENT] Failed to publish funded event for project %s: %v", projectID, err)
	}
}

// CreateInvestment handles investment settlement requests
// @Summary Invest in a project
// @Description Debit the investor's wallet and allocate project shares atomically
// @Tags investments
// @Accept json
// @Produce json
// @Param investment body object{projectId=string,amountCents=int64} true "Investment request"
// @Success 201 {object} models.Investment
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} map[string]string
// @Router /investments [post]
func (s *InvestmentService) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		ProjectID   string `json:"projectId" validate:"required"`
		AmountCents int64  `json:"amountCents" validate:"required,gt=0"`
	}

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	actor := audit.Context{UserID: userID, IPAddress: clientIP(r), UserAgent: r.UserAgent()}
	investment, err := s.settle(r.Context(), userID, req.ProjectID, req.AmountCents, actor)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success":    true,
		"investment": investment,
	})
}

// GetInvestment retrieves a specific investment
// @Summary Get investment by ID
// @Tags investments
// @Produce json
// @Param investmentId path string true "Investment ID"
// @Success 200 {object} models.Investment
// @Failure 404 {object} map[string]string
// @Router /investments/{investmentId} [get]
func (s *InvestmentService) GetInvestment(w http.ResponseWriter, r *http.Request) {
	investmentID := chi.URLParam(r, "investmentId")

	var investment models.Investment
	err := s.db.QueryRow(`
		SELECT id, user_id, project_id, amount_cents, shares_count, status, invested_at
		FROM investments
		WHERE id = $1`, investmentID).Scan(
		&investment.ID, &investment.UserID, &investment.ProjectID, &investment.AmountCents,
		&investment.SharesCount, &investment.Status, &investment.InvestedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Investment not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to fetch investment", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(investment)
}

// ListInvestments retrieves the authenticated user's investments
// @Summary List investments
// @Tags investments
// @Produce json
// @Success 200 {object} object{investments=[]models.Investment,count=int}
// @Failure 500 {object} map[string]string
// @Router /investments [get]
func (s *InvestmentService) ListInvestments(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, project_id, amount_cents, shares_count, status, invested_at
		FROM investments
		WHERE user_id = $1
		ORDER BY invested_at DESC
		LIMIT 50`, userID)
	if err != nil {
		http.Error(w, "Failed to fetch investments", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	investments := []models.Investment{}
	for rows.Next() {
		var investment models.Investment
		err := rows.Scan(&investment.ID, &investment.UserID, &investment.ProjectID,
			&investment.AmountCents, &investment.SharesCount, &investment.Status, &investment.InvestedAt)
		if err != nil {
			http.Error(w, "Failed to fetch investments", http.StatusInternalServerError)
			return
		}
		investments = append(investments, investment)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"investments": investments,
		"count":       len(investments),
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.Split(forwarded, ",")[0]
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
