package services

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/brickvest/backend/internal/audit"
)

// DepositFunds handles wallet deposit requests
// @Summary Deposit funds
// @Description Credit already-cleared funds to the authenticated user's wallet
// @Tags wallets
// @Accept json
// @Produce json
// @Param deposit body object{amountCents=int64,reference=string} true "Deposit request"
// @Success 201 {object} models.WalletTransaction
// @Failure 400 {object} ErrorResponse
// @Router /wallet/deposit [post]
func (s *WalletService) DepositFunds(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, false)
}

// WithdrawFunds handles wallet withdrawal requests
// @Summary Withdraw funds
// @Description Debit the authenticated user's wallet; fails without a ledger row if the balance cannot cover it
// @Tags wallets
// @Accept json
// @Produce json
// @Param withdrawal body object{amountCents=int64,reference=string} true "Withdrawal request"
// @Success 201 {object} models.WalletTransaction
// @Failure 400 {object} ErrorResponse
// @Router /wallet/withdraw [post]
func (s *WalletService) WithdrawFunds(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, true)
}

func (s *WalletService) handleMutation(w http.ResponseWriter, r *http.Request, withdraw bool) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		AmountCents int64  `json:"amountCents" validate:"required,gt=0"`
		Reference   string `json:"reference" validate:"omitempty,max=64"`
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

	if err := NewValidationHelper().ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	wallet, err := s.GetWalletByUser(r.Context(), userID)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	reference := req.Reference
	actor := audit.Context{UserID: userID, IPAddress: clientIP(r), UserAgent: r.UserAgent()}

	var entry any
	if withdraw {
		if reference == "" {
			reference = "WDR-" + uuid.NewString()
		}
		entry, err = s.Withdraw(r.Context(), wallet.ID, req.AmountCents, reference, actor)
	} else {
		if reference == "" {
			reference = "DEP-" + uuid.NewString()
		}
		entry, err = s.Deposit(r.Context(), wallet.ID, req.AmountCents, reference, actor)
	}
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"transaction": entry,
	})
}

// GetBalance serves the authenticated user's wallet
// @Summary Get wallet balance
// @Tags wallets
// @Produce json
// @Success 200 {object} models.Wallet
// @Failure 404 {object} map[string]string
// @Router /wallet [get]
func (s *WalletService) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	wallet, err := s.GetWalletByUser(r.Context(), userID)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wallet)
}

// RecentTransactions serves the newest ledger entries for the user's wallet
// @Summary List wallet transactions
// @Tags wallets
// @Produce json
// @Param limit query int false "Number of transactions to return (default: 50, max: 100)"
// @Success 200 {object} object{transactions=[]models.WalletTransaction,count=int}
// @Failure 500 {object} map[string]string
// @Router /wallet/transactions [get]
func (s *WalletService) RecentTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	wallet, err := s.GetWalletByUser(r.Context(), userID)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	transactions, err := s.ListTransactions(r.Context(), wallet.ID, limit)
	if err != nil {
		http.Error(w, "Failed to fetch transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}
