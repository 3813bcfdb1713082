package config

import (
	"fmt"
	"os"
	"strings"
)

// Config collects every externally supplied setting the server needs.
// Values come from the environment (a .env file is loaded by main before
// this runs), so deployments configure the binary the same way locally
// and in production.
type Config struct {
	// Database
	DBDSN string

	// Inference backends
	StyleTTS2URL   string
	SeedVCURL      string
	MakeAnAudioURL string
	WhisperURL     string
	BackendAPIKey  string // shared bearer credential for all four backends

	// Object storage (signed URL issuance)
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Bucket           string

	// Server
	Port string
}

// Load reads the configuration from the environment. Every backend URL,
// the bearer credential and the storage settings are required; missing
// values are reported together so a broken deployment fails loudly once.
func Load() (*Config, error) {
	cfg := &Config{
		DBDSN:              os.Getenv("DB_DSN"),
		StyleTTS2URL:       os.Getenv("STYLETTS2_API_ROUTE"),
		SeedVCURL:          os.Getenv("SEED_VC_API_ROUTE"),
		MakeAnAudioURL:     os.Getenv("MAKE_AN_AUDIO_API_ROUTE"),
		WhisperURL:         os.Getenv("WHISPER_API_ROUTE"),
		BackendAPIKey:      os.Getenv("BACKEND_API_KEY"),
		AWSRegion:          os.Getenv("AWS_REGION"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		S3Bucket:           os.Getenv("S3_BUCKET_NAME"),
		Port:               os.Getenv("PORT"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	var missing []string
	required := []struct {
		name, value string
	}{
		{"DB_DSN", cfg.DBDSN},
		{"STYLETTS2_API_ROUTE", cfg.StyleTTS2URL},
		{"SEED_VC_API_ROUTE", cfg.SeedVCURL},
		{"MAKE_AN_AUDIO_API_ROUTE", cfg.MakeAnAudioURL},
		{"WHISPER_API_ROUTE", cfg.WhisperURL},
		{"BACKEND_API_KEY", cfg.BackendAPIKey},
		{"AWS_REGION", cfg.AWSRegion},
		{"AWS_ACCESS_KEY_ID", cfg.AWSAccessKeyID},
		{"AWS_SECRET_ACCESS_KEY", cfg.AWSSecretAccessKey},
		{"S3_BUCKET_NAME", cfg.S3Bucket},
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}
