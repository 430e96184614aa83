package models

import (
	"time"
)

// Project statuses relevant to settlement.
const (
	ProjectStatusOpen        = "OPEN"
	ProjectStatusFullyFunded = "FULLY_FUNDED"
	ProjectStatusClosed      = "CLOSED"
)

// InvestmentProject carries the pricing and funding state the engine consumes.
// SharesSold is mutated only by settlement, under a row lock.
type InvestmentProject struct {
	ID                 string    `json:"id" db:"id"`
	Title              string    `json:"title" db:"title"`
	SharePriceCents    int64     `json:"share_price_cents" db:"share_price_cents"`
	TotalShares        int64     `json:"total_shares" db:"total_shares"`
	SharesSold         int64     `json:"shares_sold" db:"shares_sold"`
	MinInvestmentCents int64     `json:"min_investment_cents" db:"min_investment_cents"`
	MaxInvestmentCents *int64    `json:"max_investment_cents,omitempty" db:"max_investment_cents"`
	FundingStartDate   time.Time `json:"funding_start_date" db:"funding_start_date"`
	FundingEndDate     time.Time `json:"funding_end_date" db:"funding_end_date"`
	Status             string    `json:"status" db:"status"`
	Version            int       `json:"version" db:"version"` // for optimistic locking
}

// Investment statuses.
const (
	InvestmentStatusInProgress = "IN_PROGRESS"
	InvestmentStatusConfirmed  = "CONFIRMED"
	InvestmentStatusClosed     = "CLOSED"
	InvestmentStatusCancelled  = "CANCELLED"
)

// Investment is one purchase event. Amount and share count are immutable
// after creation; only status transitions afterwards.
type Investment struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	ProjectID   string    `json:"project_id" db:"project_id"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	SharesCount int64     `json:"shares_count" db:"shares_count"`
	Status      string    `json:"status" db:"status"`
	InvestedAt  time.Time `json:"invested_at" db:"invested_at"`
}
