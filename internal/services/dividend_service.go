package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/brickvest/backend/internal/audit"
	"github.com/brickvest/backend/internal/models"
)

const dividendLockPrefix = "dividend_lock:"

// DividendService distributes a fixed pool pro-rata to every active investor
// of a project. The dividend row, all payment rows and all wallet credits
// commit as one unit; a redis lock keeps distributions for the same project
// from running concurrently.
type DividendService struct {
	db        *sql.DB
	redis     *redis.Client
	wallets   *WalletService
	audit     audit.Sink
	validator *ValidationHelper
	lockTTL   time.Duration
}

func NewDividendService(db *sql.DB, redisClient *redis.Client, wallets *WalletService, sink audit.Sink, lockTTL time.Duration) *DividendService {
	if sink == nil {
		sink = audit.NewLogger()
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &DividendService{
		db:        db,
		redis:     redisClient,
		wallets:   wallets,
		audit:     sink,
		validator: NewValidationHelper(),
		lockTTL:   lockTTL,
	}
}

// Distribute pays totalAmountCents to all active investors of the project,
// floor(total/sharesSold) cents per share. The division remainder is not
// credited to anyone; it is reported on the returned dividend.
func (s *DividendService) Distribute(ctx context.Context, projectID string, totalAmountCents int64, periodStart, periodEnd time.Time) (*models.Dividend, error) {
	return s.distribute(ctx, projectID, totalAmountCents, periodStart, periodEnd, audit.Context{UserID: "system"})
}

func (s *DividendService) distribute(ctx context.Context, projectID string, totalAmountCents int64, periodStart, periodEnd time.Time, actor audit.Context) (*models.Dividend, error) {
	var reasons []string
	if totalAmountCents <= 0 {
		reasons = append(reasons, "total amount must be positive")
	}
	if !periodStart.Before(periodEnd) {
		reasons = append(reasons, "period start must be before period end")
	}
	if len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}

	release, err := s.acquireDistributionLock(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	project, err := s.lockProject(tx, projectID)
	if err != nil {
		return nil, err
	}

	if project.SharesSold <= 0 {
		return nil, &ValidationError{Reasons: []string{"project has no shares sold"}}
	}

	dividend := &models.Dividend{
		ID:                  uuid.NewString(),
		ProjectID:           projectID,
		TotalAmountCents:    totalAmountCents,
		AmountPerShareCents: totalAmountCents / project.SharesSold,
		RemainderCents:      totalAmountCents % project.SharesSold,
		DistributionDate:    time.Now(),
		PeriodStart:         periodStart,
		PeriodEnd:           periodEnd,
		Status:              models.DividendStatusDistributed,
	}

	if err := s.createDividend(tx, dividend); err != nil {
		return nil, err
	}

	recipients, err := s.fetchActiveInvestments(tx, projectID)
	if err != nil {
		return nil, err
	}

	// Wallet locks are taken in ascending investment id order; combined with
	// the per-project redis lock this keeps overlapping distributions from
	// deadlocking each other.
	credited := make([]creditedPayment, 0, len(recipients))
	for _, recipient := range recipients {
		payment := &models.DividendPayment{
			DividendID:   dividend.ID,
			InvestmentID: recipient.InvestmentID,
			UserID:       recipient.UserID,
			AmountCents:  recipient.SharesCount * dividend.AmountPerShareCents,
			SharesCount:  recipient.SharesCount,
			Status:       "PAID",
			PaidAt:       time.Now(),
		}

		if err := s.createPayment(tx, payment); err != nil {
			return nil, fmt.Errorf("recording payment for investment %s: %w", recipient.InvestmentID, err)
		}

		if payment.AmountCents == 0 {
			continue
		}

		reference := fmt.Sprintf("DIV-%s-%s", dividend.ID, recipient.InvestmentID)
		entry, err := s.wallets.CreditTx(tx, recipient.WalletID, payment.AmountCents,
			models.TransactionTypeDividend, reference, &recipient.InvestmentID)
		if err != nil {
			s.audit.LogError(actor, reference, err)
			return nil, fmt.Errorf("crediting investment %s: %w", recipient.InvestmentID, err)
		}
		credited = append(credited, creditedPayment{walletID: recipient.WalletID, reference: reference, entry: entry})
	}

	if err := tx.Commit(); err != nil {
		s.audit.LogError(actor, "DIV-"+dividend.ID, err)
		return nil, err
	}

	for _, c := range credited {
		s.audit.LogTransaction(actor, models.TransactionTypeDividend, c.reference, c.walletID,
			c.entry.AmountCents, c.entry.BalanceAfterCents-c.entry.AmountCents, c.entry.BalanceAfterCents)
	}

	log.Printf("[DIVIDEND] Distributed %d cents across %d investments for project %s (per share: %d, remainder: %d)",
		totalAmountCents, len(recipients), projectID, dividend.AmountPerShareCents, dividend.RemainderCents)
	return dividend, nil
}

type creditedPayment struct {
	walletID  string
	reference string
	entry     *models.WalletTransaction
}

type dividendRecipient struct {
	InvestmentID string
	UserID       string
	WalletID     string
	SharesCount  int64
}

func (s *DividendService) acquireDistributionLock(ctx context.Context, projectID string) (func(), error) {
	if s.redis == nil {
		return func() {}, nil
	}

	key := dividendLockPrefix + projectID
	acquired, err := s.redis.SetNX(ctx, key, "locked", s.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrDistributionInProgress
	}

	return func() {
		if err := s.redis.Del(context.Background(), key).Err(); err != nil {
			log.Printf("[DIVIDEND] Failed to release distribution lock for project %s: %v", projectID, err)
		}
	}, nil
}

func (s *DividendService) lockProject(tx *sql.Tx, projectID string) (*models.InvestmentProject, error) {
	var project models.InvestmentProject
	err := tx.QueryRow(`
		SELECT id, share_price_cents, total_shares, shares_sold, status, version
		FROM investment_projects
		WHERE id = $1
		FOR UPDATE`, projectID).Scan(
		&project.ID, &project.SharePriceCents, &project.TotalShares,
		&project.SharesSold, &project.Status, &project.Version)

	if err == sql.ErrNoRows {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *DividendService) createDividend(tx *sql.Tx, dividend *models.Dividend) error {
	_, err := tx.Exec(`
		INSERT INTO dividends (id, project_id, total_amount_cents, amount_per_share_cents, remainder_cents, distribution_date, period_start, period_end, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		dividend.ID, dividend.ProjectID, dividend.TotalAmountCents, dividend.AmountPerShareCents,
		dividend.RemainderCents, dividend.DistributionDate, dividend.PeriodStart, dividend.PeriodEnd, dividend.Status)
	return err
}

func (s *DividendService) fetchActiveInvestments(tx *sql.Tx, projectID string) ([]dividendRecipient, error) {
	rows, err := tx.Query(`
		SELECT i.id, i.user_id, w.id, i.shares_count
		FROM investments i
		INNER JOIN wallets w ON w.user_id = i.user_id
		WHERE i.project_id = $1 AND i.status IN ($2, $3)
		ORDER BY i.id ASC`,
		projectID, models.InvestmentStatusConfirmed, models.InvestmentStatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []dividendRecipient{}
	for rows.Next() {
		var r dividendRecipient
		if err := rows.Scan(&r.InvestmentID, &r.UserID, &r.WalletID, &r.SharesCount); err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}

	return recipients, rows.Err()
}

func (s *DividendService) createPayment(tx *sql.Tx, payment *models.DividendPayment) error {
	_, err := tx.Exec(`
		INSERT INTO dividend_payments (dividend_id, investment_id, user_id, amount_cents, shares_count, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		payment.DividendID, payment.InvestmentID, payment.UserID, payment.AmountCents,
		payment.SharesCount, payment.Status, payment.PaidAt)
	return err
}

// DistributeDividend handles dividend distribution requests
// @Summary Distribute a dividend
// @Description Pay a fixed pool pro-rata to all active investors of a project
// @Tags dividends
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param dividend body object{totalAmountCents=int64,periodStart=string,periodEnd=string} true "Distribution request"
// @Success 201 {object} models.Dividend
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} map[string]string
// @Router /projects/{projectId}/dividends [post]
func (s *DividendService) DistributeDividend(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	projectID := chi.URLParam(r, "projectId")

	var req struct {
		TotalAmountCents int64     `json:"totalAmountCents" validate:"required,gt=0"`
		PeriodStart      time.Time `json:"periodStart" validate:"required"`
		PeriodEnd        time.Time `json:"periodEnd" validate:"required"`
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
	dividend, err := s.distribute(r.Context(), projectID, req.TotalAmountCents, req.PeriodStart, req.PeriodEnd, actor)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success":  true,
		"dividend": dividend,
	})
}

// ListProjectDividends retrieves past distributions for a project
// @Summary List project dividends
// @Tags dividends
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} object{dividends=[]models.Dividend,count=int}
// @Failure 500 {object} map[string]string
// @Router /projects/{projectId}/dividends [get]
func (s *DividendService) ListProjectDividends(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")

	rows, err := s.db.Query(`
		SELECT id, project_id, total_amount_cents, amount_per_share_cents, remainder_cents, distribution_date, period_start, period_end, status
		FROM dividends
		WHERE project_id = $1
		ORDER BY distribution_date DESC`, projectID)
	if err != nil {
		http.Error(w, "Failed to fetch dividends", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	dividends := []models.Dividend{}
	for rows.Next() {
		var dividend models.Dividend
		err := rows.Scan(&dividend.ID, &dividend.ProjectID, &dividend.TotalAmountCents,
			&dividend.AmountPerShareCents, &dividend.RemainderCents, &dividend.DistributionDate,
			&dividend.PeriodStart, &dividend.PeriodEnd, &dividend.Status)
		if err != nil {
			http.Error(w, "Failed to fetch dividends", http.StatusInternalServerError)
			return
		}
		dividends = append(dividends, dividend)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"dividends": dividends,
		"count":     len(dividends),
	})
}
