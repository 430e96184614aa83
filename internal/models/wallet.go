package models

import (
	"time"
)

// Wallet is the per-user custodial balance, in integer cents.
type Wallet struct {
	ID                  string    `json:"id" db:"id"`
	UserID              string    `json:"user_id" db:"user_id"`
	BalanceCents        int64     `json:"balance_cents" db:"balance_cents"`
	TotalDepositedCents int64     `json:"total_deposited_cents" db:"total_deposited_cents"`
	TotalWithdrawnCents int64     `json:"total_withdrawn_cents" db:"total_withdrawn_cents"`
	Currency            string    `json:"currency" db:"currency"`
	Version             int       `json:"version" db:"version"` // for optimistic locking
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// Transaction types recorded in the wallet ledger.
const (
	TransactionTypeDeposit    = "DEPOSIT"
	TransactionTypeWithdrawal = "WITHDRAWAL"
	TransactionTypeInvestment = "INVESTMENT"
	TransactionTypeDividend   = "DIVIDEND"
)

// WalletTransaction is an immutable, append-only ledger entry. The wallet's
// current balance must always equal BalanceAfterCents of its newest entry.
type WalletTransaction struct {
	ID                int       `json:"id" db:"id"`
	WalletID          string    `json:"wallet_id" db:"wallet_id"`
	InvestmentID      *string   `json:"investment_id,omitempty" db:"investment_id"`
	TransactionType   string    `json:"transaction_type" db:"transaction_type"`
	AmountCents       int64     `json:"amount_cents" db:"amount_cents"` // signed: negative for debits
	BalanceAfterCents int64     `json:"balance_after_cents" db:"balance_after_cents"`
	Status            string    `json:"status" db:"status"`
	Reference         string    `json:"reference" db:"reference"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
