package models

import "time"

// KYC statuses consumed by settlement preconditions.
const (
	KYCStatusPending  = "PENDING"
	KYCStatusVerified = "VERIFIED"
	KYCStatusRejected = "REJECTED"
)

// User is the slice of the account entity the engine reads. Registration,
// authentication and KYC review live in the application layer.
type User struct {
	ID        string     `json:"id" example:"1"`
	Email     string     `json:"email" example:"user@example.com"`
	FirstName string     `json:"first_name" example:"John"`
	LastName  string     `json:"last_name" example:"Doe"`
	KYCStatus string     `json:"kyc_status" example:"VERIFIED"`
	WalletID  string     `json:"wallet_id"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
