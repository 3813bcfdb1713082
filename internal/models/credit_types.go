package models

import "time"

// Refund statuses for the 'credit_refunds' outbox table.
const (
	RefundPending = "pending"
	RefundApplied = "applied"
)

// CreditRefund is the model for the 'credit_refunds' table.
// A row is appended when an immediate compensation increment fails, so
// the owed credits survive a crash instead of being silently lost. The
// background worker applies pending rows and marks them 'applied'.
type CreditRefund struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"userId" db:"user_id"`
	Amount    int64      `json:"amount" db:"amount"`
	Reason    string     `json:"reason" db:"reason"`
	Status    string     `json:"status" db:"status"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	AppliedAt *time.Time `json:"appliedAt,omitempty" db:"applied_at"`
}
