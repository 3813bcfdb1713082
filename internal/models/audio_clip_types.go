package models

import "time"

// GeneratedAudioClip is the model for the 'generated_audio_clips' table.
// One row is appended per successful generation and never updated or
// deleted afterwards. S3Key is the opaque storage key of the artifact;
// it is resolved to a temporary signed URL only when the history is read.
type GeneratedAudioClip struct {
	ID        int64       `json:"id" db:"id"`
	UserID    int64       `json:"userId" db:"user_id"`
	Text      string      `json:"text" db:"text"`
	Voice     *string     `json:"voice,omitempty" db:"voice"` // nil for services without a target voice
	S3Key     string      `json:"s3Key" db:"s3_key"`
	Service   ServiceKind `json:"service" db:"service"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}
