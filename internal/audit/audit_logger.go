package audit

import (
	"encoding/json"
	"log"
	"time"
)

// Context identifies who initiated a ledger operation. It is passed
// explicitly into every balance-changing call; there is no ambient
// current-user state.
type Context struct {
	UserID    string `json:"user_id"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"event_type"`
	Reference   string    `json:"reference"`
	WalletID    string    `json:"wallet_id,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	BeforeCents int64     `json:"before_cents"`
	AfterCents  int64     `json:"after_cents"`
	Status      string    `json:"status"`
	Initiator   Context   `json:"initiator"`
	Details     any       `json:"details,omitempty"`
}

// Sink receives audit events for every ledger mutation. The default
// implementation writes JSON lines to the process log; production swaps in
// the platform audit pipeline.
type Sink interface {
	LogTransaction(ctx Context, action, reference, walletID string, amount, before, after int64)
	LogProjectFunded(projectID string, sharesSold, totalShares int64)
	LogError(ctx Context, reference string, err error)
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogTransaction(ctx Context, action, reference, walletID string, amount, before, after int64) {
	event := Event{
		Timestamp:   time.Now(),
		EventType:   action,
		Reference:   reference,
		WalletID:    walletID,
		AmountCents: amount,
		BeforeCents: before,
		AfterCents:  after,
		Status:      "SUCCESS",
		Initiator:   ctx,
	}
	a.log(event)
}

func (a *Logger) LogProjectFunded(projectID string, sharesSold, totalShares int64) {
	event := Event{
		Timestamp: time.Now(),
		EventType: "PROJECT_FUNDED",
		Status:    "SUCCESS",
		Details: map[string]any{
			"project_id":   projectID,
			"shares_sold":  sharesSold,
			"total_shares": totalShares,
		},
	}
	a.log(event)
}

func (a *Logger) LogError(ctx Context, reference string, err error) {
	event := Event{
		Timestamp: time.Now(),
		EventType: "ERROR",
		Reference: reference,
		Status:    "FAILED",
		Initiator: ctx,
		Details:   map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
