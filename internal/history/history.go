// Package history records completed generations and serves the recent
// history list, with storage keys resolved to temporary signed URLs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/voxcraft/voxcraft-golang/internal/models"
	"github.com/voxcraft/voxcraft-golang/internal/storage"
)

// recentLimit is how many clips the history list returns per service.
const recentLimit = 10

// URLSigner resolves a storage key to a time-limited retrieval URL.
// Satisfied by *storage.Presigner.
type URLSigner interface {
	PresignedURL(ctx context.Context, key string, opts ...storage.Option) (string, error)
}

// Item is one row of the history list, ready for display.
type Item struct {
	ID       int64              `json:"id"`
	Title    string             `json:"title"`
	Voice    *string            `json:"voice"`
	AudioURL *string            `json:"audioUrl"` // nil when URL signing failed
	Time     string             `json:"time"`
	Date     string             `json:"date"`
	Service  models.ServiceKind `json:"service"`
}

// Recorder appends and lists generated-audio-clip records.
type Recorder struct {
	DB     *sql.DB
	Signer URLSigner
}

func NewRecorder(db *sql.DB, signer URLSigner) *Recorder {
	return &Recorder{DB: db, Signer: signer}
}

// Save appends one immutable history row with a server-assigned
// creation timestamp. Rows are never updated or deleted afterwards.
func (r *Recorder) Save(ctx context.Context, userID int64, text string, voice *string, s3Key string, service models.ServiceKind) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO generated_audio_clips (user_id, text, voice, s3_key, service, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		userID, text, voice, s3Key, string(service), time.Now())
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// List returns the user's most recent clips for one service, newest
// first. Each storage key is resolved to a fresh presigned URL; if the
// signing fails the item is still returned with a nil URL rather than
// failing the whole list.
func (r *Recorder) List(ctx context.Context, userID int64, service models.ServiceKind) ([]Item, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, text, voice, s3_key, created_at FROM generated_audio_clips WHERE user_id = ? AND service = ? AND s3_key <> '' ORDER BY created_at DESC LIMIT ?",
		userID, string(service), recentLimit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			id        int64
			text      string
			voice     sql.NullString
			s3Key     string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &text, &voice, &s3Key, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		var voicePtr *string
		if voice.Valid {
			voicePtr = &voice.String
		}

		var audioURL *string
		url, err := r.Signer.PresignedURL(ctx, s3Key)
		if err != nil {
			// Degrade gracefully: the clip stays listed, just unplayable.
			log.Printf("Warning: could not presign %q: %v", s3Key, err)
		} else {
			audioURL = &url
		}

		items = append(items, Item{
			ID:       id,
			Title:    DeriveTitle(service, text, voicePtr),
			Voice:    voicePtr,
			AudioURL: audioURL,
			Time:     FormatTime(createdAt),
			Date:     FormatDate(createdAt),
			Service:  service,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return items, nil
}
