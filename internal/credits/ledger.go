// Package credits owns the per-user credit balance. Every balance
// mutation in the application goes through the Ledger, which performs a
// single atomic read-modify-write at the database so two concurrent
// reservations cannot both succeed on one reservation's worth of credit.
package credits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"
)

// DefaultReservation is the fixed credit cost of one generation call.
const DefaultReservation = 200

var (
	// ErrInsufficientCredits means the balance was lower than the
	// requested reservation. Nothing was deducted.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrUserNotFound means the user row does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Ledger reads and mutates user credit balances.
type Ledger struct {
	DB *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{DB: db}
}

// Reserve deducts amount from the user's balance and returns the
// remaining credits. The deduction is one conditional UPDATE, so the
// insufficient-funds guard and the decrement are atomic: under
// concurrent requests at most one reservation wins the last credits.
// Both statements run in one transaction; the UPDATE holds the row
// lock until commit, so the follow-up read reports exactly the
// post-decrement balance with no other request's mutations mixed in.
func (l *Ledger) Reserve(ctx context.Context, userID, amount int64) (int64, error) {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("reserve credits: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET credits = credits - ? WHERE id = ? AND credits >= ?",
		amount, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("reserve credits: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reserve credits: %w", err)
	}

	if affected == 0 {
		// The guard rejected the update: either the user does not
		// exist, or the balance is too low. Tell them apart.
		var balance int64
		err := tx.QueryRowContext(ctx, "SELECT credits FROM users WHERE id = ?", userID).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("reserve credits: %w", err)
		}
		return 0, ErrInsufficientCredits
	}

	var remaining int64
	if err := tx.QueryRowContext(ctx, "SELECT credits FROM users WHERE id = ?", userID).Scan(&remaining); err != nil {
		return 0, fmt.Errorf("reserve credits: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("reserve credits: %w", err)
	}

	log.Printf("Deducted %d credits from user %d. Remaining: %d", amount, userID, remaining)
	return remaining, nil
}

// Refund adds amount back to the user's balance. Used only to
// compensate a reservation whose downstream call failed.
func (l *Ledger) Refund(ctx context.Context, userID, amount int64) error {
	res, err := l.DB.ExecContext(ctx,
		"UPDATE users SET credits = credits + ? WHERE id = ?", amount, userID)
	if err != nil {
		return fmt.Errorf("refund credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("refund credits: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RefundOrQueue compensates a failed reservation. It tries the
// immediate increment first; if that fails it durably records the owed
// amount in the credit_refunds outbox so the background worker can
// apply it later. The caller never sees the failure either way: the
// user already has their generation error, and the owed credits are
// the server's problem to settle.
func (l *Ledger) RefundOrQueue(ctx context.Context, userID, amount int64, reason string) {
	// The request context is often already dead here (the backend call
	// fails when the caller disconnects mid-inference), and it must not
	// take the compensation down with it. Detach before touching the DB.
	ctx = context.WithoutCancel(ctx)

	err := l.Refund(ctx, userID, amount)
	if err == nil {
		return
	}
	log.Printf("Warning: immediate refund of %d credits for user %d failed: %v. Queueing.", amount, userID, err)

	_, qErr := l.DB.ExecContext(ctx,
		"INSERT INTO credit_refunds (user_id, amount, reason, status, created_at) VALUES (?, ?, ?, ?, ?)",
		userID, amount, reason, "pending", time.Now())
	if qErr != nil {
		// Both the increment and the outbox write failed. This is the
		// one remaining path where credits can be lost.
		log.Printf("ERROR: refund of %d credits for user %d could not be queued: %v", amount, userID, qErr)
	}
}

// Balance returns the user's current credit balance.
func (l *Ledger) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := l.DB.QueryRowContext(ctx, "SELECT credits FROM users WHERE id = ?", userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

// ProcessPendingRefunds applies queued refunds, oldest first. It is
// called periodically by the background worker; each applied row is
// marked so a refund is never applied twice. Rows whose increment still
// fails stay pending for the next run.
func (l *Ledger) ProcessPendingRefunds(ctx context.Context) (int, error) {
	rows, err := l.DB.QueryContext(ctx,
		"SELECT id, user_id, amount FROM credit_refunds WHERE status = ? ORDER BY id LIMIT 50", "pending")
	if err != nil {
		return 0, fmt.Errorf("list pending refunds: %w", err)
	}
	defer rows.Close()

	type pending struct {
		id, userID, amount int64
	}
	var queue []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.userID, &p.amount); err != nil {
			return 0, fmt.Errorf("scan pending refund: %w", err)
		}
		queue = append(queue, p)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("list pending refunds: %w", err)
	}

	applied := 0
	for _, p := range queue {
		if err := l.Refund(ctx, p.userID, p.amount); err != nil {
			log.Printf("Warning: queued refund %d (user %d, %d credits) still failing: %v", p.id, p.userID, p.amount, err)
			continue
		}
		if _, err := l.DB.ExecContext(ctx,
			"UPDATE credit_refunds SET status = ?, applied_at = ? WHERE id = ?",
			"applied", time.Now(), p.id); err != nil {
			// The increment landed but the bookkeeping didn't; flag it
			// loudly since a retry would double-refund.
			log.Printf("ERROR: refund %d applied but could not be marked: %v", p.id, err)
			continue
		}
		applied++
	}
	return applied, nil
}
