// Package generation orchestrates the credit-metered generation
// workflow. Every operation follows the same shape: validate the input,
// reserve credits, make exactly one backend call, then either record
// the result in history or refund the reservation. An operation either
// succeeds completely or fails with the balance restored.
package generation

import (
	"context"
	"io"
	"log"

	"github.com/voxcraft/voxcraft-golang/internal/credits"
	"github.com/voxcraft/voxcraft-golang/internal/inference"
	"github.com/voxcraft/voxcraft-golang/internal/models"
)

// CreditLedger is the slice of the credit ledger the orchestrator needs.
type CreditLedger interface {
	Reserve(ctx context.Context, userID, amount int64) (int64, error)
	RefundOrQueue(ctx context.Context, userID, amount int64, reason string)
}

// Backend is the slice of the inference client the orchestrator needs.
type Backend interface {
	GenerateSpeech(ctx context.Context, text, voice string) (*inference.GenerationResponse, error)
	ConvertVoice(ctx context.Context, filename string, source io.Reader, targetVoice string) (*inference.GenerationResponse, error)
	GenerateAudio(ctx context.Context, prompt string, duration float64) (*inference.GenerationResponse, error)
	Transcribe(ctx context.Context, filename string, audio io.Reader) (*inference.TranscriptionResponse, error)
}

// HistoryStore records completed generations.
type HistoryStore interface {
	Save(ctx context.Context, userID int64, text string, voice *string, s3Key string, service models.ServiceKind) error
}

// Service is the generation orchestrator.
type Service struct {
	Ledger  CreditLedger
	Backend Backend
	History HistoryStore

	// Cost is the credits reserved per call; zero means the default.
	Cost int64
}

func NewService(ledger CreditLedger, backend Backend, history HistoryStore) *Service {
	return &Service{Ledger: ledger, Backend: backend, History: history}
}

func (s *Service) cost() int64 {
	if s.Cost > 0 {
		return s.Cost
	}
	return credits.DefaultReservation
}

// AudioUpload is an uploaded audio file, as received from the request.
type AudioUpload struct {
	Filename string
	Size     int64
	MIMEType string
	Data     io.Reader
}

// SpeechResult is a successful text-to-speech generation.
type SpeechResult struct {
	AudioURL         string `json:"audioUrl"`
	S3Key            string `json:"s3Key"`
	AudioID          string `json:"audioId"`
	RemainingCredits int64  `json:"remainingCredits"`
}

// AudioResult is a successful music / sound-effect generation.
type AudioResult struct {
	AudioURL         string  `json:"audioUrl"`
	S3Key            string  `json:"s3Key"`
	AudioID          string  `json:"audioId"`
	Duration         float64 `json:"duration"`
	SampleRate       int     `json:"sampleRate"`
	RemainingCredits int64   `json:"remainingCredits"`
}

// ConversionResult is a successful voice-to-voice conversion.
type ConversionResult struct {
	AudioURL         string  `json:"audioUrl"`
	S3Key            string  `json:"s3Key"`
	AudioID          string  `json:"audioId"`
	SourceDuration   float64 `json:"sourceDuration"`
	SampleRate       int     `json:"sampleRate"`
	TargetVoice      string  `json:"targetVoice"`
	RemainingCredits int64   `json:"remainingCredits"`
}

// TranscriptionResult is a successful speech-to-text run.
type TranscriptionResult struct {
	Text             string  `json:"text"`
	Language         string  `json:"language"`
	Duration         float64 `json:"duration"`
	RemainingCredits int64   `json:"remainingCredits"`
}

// GenerateSpeech synthesizes speech from text with one of the allowed
// voices.
func (s *Service) GenerateSpeech(ctx context.Context, userID int64, text, voice string) (*SpeechResult, error) {
	if err := validateSpeechInput(text, voice); err != nil {
		return nil, err
	}

	remaining, err := s.Ledger.Reserve(ctx, userID, s.cost())
	if err != nil {
		return nil, err
	}

	resp, err := s.Backend.GenerateSpeech(ctx, text, voice)
	if err != nil {
		s.Ledger.RefundOrQueue(ctx, userID, s.cost(), "styletts2 call failed")
		return nil, err
	}
	if resp.AudioURL == "" {
		s.Ledger.RefundOrQueue(ctx, userID, s.cost(), "styletts2 returned no audio URL")
		return nil, ErrNoAudioURL
	}

	s.record(ctx, userID, text, &voice, resp.S3Key, models.ServiceStyleTTS2)

	return &SpeechResult{
		AudioURL:         resp.AudioURL,
		S3Key:            resp.S3Key,
		AudioID:          resp.AudioID,
		RemainingCredits: remaining,
	}, nil
}

// ConvertVoice re-voices an uploaded clip as the target voice.
func (s *Service) ConvertVoice(ctx context.Context, userID int64, upload *AudioUpload, targetVoice string) (*ConversionResult, error) {
	if err := validateConversionInput(upload, targetVoice); err != nil {
		return nil, err
	}

	remaining, err := s.Ledger.Reserve(ctx, userID, s.cost())
	if err != nil {
		return nil, err
	}

	resp, err := s.Backend.ConvertVoice(ctx, upload.Filename, upload.Data, targetVoice)
	if err != nil {
		s.Ledger.RefundOrQueue(ctx, userID, s.cost(), "seedvc call failed")
		return nil, err
	}
	if resp.AudioURL == "" {
		s.Ledger.RefundOrQueue(ctx, userID, s.cost(), "seedvc returned no audio URL")
		return nil, ErrNoAudioURL
	}

	s.record(ctx, userID, "Voice conversion to "+targetVoice, &targetVoice, resp.S3Key, models.ServiceSeedVC)

	return &ConversionResult{
		AudioURL:         resp.AudioURL,
		S3Key:            resp.S3Key,
		AudioID:          resp.AudioID,
		SourceDuration:   resp.SourceDuration,
		SampleRate:       resp.SampleRate,
		TargetVoice:      resp.TargetVoice,
		RemainingCredits: remaining,
	}, nil
}

// GenerateAudio produces music or a sound effect from a prompt.
func (s *Service) GenerateAudio(ctx context.Context, userID int64, prompt string, duration float64) (*AudioResult, error) {
	if err := validateGenerationInput(prompt, duration); err != nil {
		return nil, err
	}

	remaining, err := s.Ledger.Reserve(ctx, userID, s.cost())
	if err != nil {
		return nil, err
	}

	resp, err := s.Backend.GenerateAudio(ctx, prompt, duration)
	if err != nil {
		s.Ledger.RefundOrQueue(ctx, userID, s.cost(), "make-an-audio call failed")
		return nil, err
	}
	if resp.AudioURL == "" {
		s.Ledger.RefundOrQueue(ctx, userID, s.cost(), "make-an-audio returned no audio URL")
		return nil, ErrNoAudioURL
	}

	s.record(ctx, userID, prompt, nil, resp.S3Key, models.ServiceMakeAnAudio)

	return &AudioResult{
		AudioURL:         resp.AudioURL,
		S3Key:            resp.S3Key,
		AudioID:          resp.AudioID,
		Duration:         resp.Duration,
		SampleRate:       resp.SampleRate,
		RemainingCredits: remaining,
	}, nil
}

// Transcribe runs speech-to-text on an uploaded clip. Nothing is stored
// for transcriptions: there is no artifact, hence no storage key and
// no history row.
func (s *Service) Transcribe(ctx context.Context, userID int64, upload *AudioUpload) (*TranscriptionResult, error) {
	if err := validateTranscriptionInput(upload); err != nil {
		return nil, err
	}

	remaining, err := s.Ledger.Reserve(ctx, userID, s.cost())
	if err != nil {
		return nil, err
	}

	resp, err := s.Backend.Transcribe(ctx, upload.Filename, upload.Data)
	if err != nil {
		s.Ledger.RefundOrQueue(ctx, userID, s.cost(), "whisper call failed")
		return nil, err
	}

	text := resp.Text
	if text == "" {
		text = "No transcription available"
	}

	return &TranscriptionResult{
		Text:             text,
		Language:         resp.Language,
		Duration:         resp.Duration,
		RemainingCredits: remaining,
	}, nil
}

// record writes the history row for a successful generation. The user
// already has their audio at this point, so a history failure is logged
// instead of failing the request.
func (s *Service) record(ctx context.Context, userID int64, text string, voice *string, s3Key string, service models.ServiceKind) {
	if err := s.History.Save(ctx, userID, text, voice, s3Key, service); err != nil {
		log.Printf("Warning: failed to save history for user %d (%s): %v", userID, service, err)
	}
}
