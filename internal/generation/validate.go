package generation

import (
	"errors"
	"strings"

	"github.com/voxcraft/voxcraft-golang/internal/models"
)

// Input ceilings, enforced before any credit or network activity.
const (
	// MaxTextLength is the speech-synthesis text ceiling. The UI stops
	// at 1000 characters; the server accepts up to 2000 so API callers
	// get the real limit.
	MaxTextLength = 2000
	// MaxSourceFileBytes is the voice-conversion upload ceiling (10 MiB).
	MaxSourceFileBytes = 10 * 1024 * 1024
	// MaxGenerationSeconds is the music/sound-effect duration ceiling.
	MaxGenerationSeconds = 30.0
)

// Validation errors. These fail a request before the ledger or any
// backend is touched, so they never need compensation.
var (
	ErrNoText          = errors.New("no text provided")
	ErrTextTooLong     = errors.New("text length exceeds 2000 characters")
	ErrInvalidVoice    = errors.New("invalid voice")
	ErrFileTooLarge    = errors.New("file too large (max 10MB)")
	ErrInvalidFileType = errors.New("invalid file type, only MP3 and WAV files are supported")
	ErrNoPrompt        = errors.New("no prompt provided")
	ErrDurationTooLong = errors.New("maximum duration is 30 seconds")
	ErrNoAudioFile     = errors.New("no audio file provided")
)

// ErrNoAudioURL is the "call returned but produced nothing usable"
// failure: a 2xx backend reply that lacks the artifact URL. It happens
// after the reservation, so unlike validation errors it is compensated.
var ErrNoAudioURL = errors.New("no audio URL received from server")

var validationErrors = []error{
	ErrNoText, ErrTextTooLong, ErrInvalidVoice,
	ErrFileTooLarge, ErrInvalidFileType,
	ErrNoPrompt, ErrDurationTooLong, ErrNoAudioFile,
}

// IsValidationError reports whether err is a bad-input error (one that
// had no side effects).
func IsValidationError(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func isValidVoice(v string) bool {
	return models.IsValidVoice(v)
}

// allowedSourceTypes are the accepted voice-conversion upload MIME types.
var allowedSourceTypes = map[string]bool{
	"audio/mp3":  true,
	"audio/wav":  true,
	"audio/mpeg": true,
}

func validateSpeechInput(text, voice string) error {
	if strings.TrimSpace(text) == "" {
		return ErrNoText
	}
	if len([]rune(text)) > MaxTextLength {
		return ErrTextTooLong
	}
	if !isValidVoice(voice) {
		return ErrInvalidVoice
	}
	return nil
}

func validateConversionInput(upload *AudioUpload, targetVoice string) error {
	if upload == nil || upload.Data == nil {
		return ErrNoAudioFile
	}
	if upload.Size > MaxSourceFileBytes {
		return ErrFileTooLarge
	}
	if !allowedSourceTypes[upload.MIMEType] {
		return ErrInvalidFileType
	}
	if !isValidVoice(targetVoice) {
		return ErrInvalidVoice
	}
	return nil
}

func validateGenerationInput(prompt string, duration float64) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrNoPrompt
	}
	if duration > MaxGenerationSeconds {
		return ErrDurationTooLong
	}
	return nil
}

// Speech-to-text deliberately checks only that a file is present: the
// original pipeline has no size or MIME ceiling on this path, and we
// preserve that asymmetry rather than quietly tightening the contract.
func validateTranscriptionInput(upload *AudioUpload) error {
	if upload == nil || upload.Data == nil {
		return ErrNoAudioFile
	}
	return nil
}
