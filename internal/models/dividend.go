package models

import (
	"time"
)

// Dividend statuses.
const (
	DividendStatusPlanned     = "PLANNED"
	DividendStatusDistributed = "DISTRIBUTED"
	DividendStatusCancelled   = "CANCELLED"
)

// Dividend is one pro-rata distribution of a fixed pool for a project/period.
// AmountPerShareCents is total/sharesSold with floor division; the remainder
// stays undistributed and is reported in RemainderCents.
type Dividend struct {
	ID                  string    `json:"id" db:"id"`
	ProjectID           string    `json:"project_id" db:"project_id"`
	TotalAmountCents    int64     `json:"total_amount_cents" db:"total_amount_cents"`
	AmountPerShareCents int64     `json:"amount_per_share_cents" db:"amount_per_share_cents"`
	RemainderCents      int64     `json:"remainder_cents" db:"remainder_cents"`
	DistributionDate    time.Time `json:"distribution_date" db:"distribution_date"`
	PeriodStart         time.Time `json:"period_start" db:"period_start"`
	PeriodEnd           time.Time `json:"period_end" db:"period_end"`
	Status              string    `json:"status" db:"status"`
}

// DividendPayment is one payout row per active investment, immutable once
// created. SharesCount snapshots the holding at distribution time.
type DividendPayment struct {
	ID           int       `json:"id" db:"id"`
	DividendID   string    `json:"dividend_id" db:"dividend_id"`
	InvestmentID string    `json:"investment_id" db:"investment_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	AmountCents  int64     `json:"amount_cents" db:"amount_cents"`
	SharesCount  int64     `json:"shares_count" db:"shares_count"`
	Status       string    `json:"status" db:"status"`
	PaidAt       time.Time `json:"paid_at" db:"paid_at"`
}
