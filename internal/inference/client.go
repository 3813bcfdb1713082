// Package inference is the HTTP client for the four external
// model-serving backends: StyleTTS2 (text-to-speech), Seed-VC
// (voice conversion), Make-An-Audio (music / sound effects) and
// Whisper (speech-to-text). All four speak the same dialect: POST with
// a shared bearer credential, JSON or multipart body, JSON reply.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DefaultTimeout bounds every backend call. Model inference is slow but
// a hung backend must not pin a request forever.
const DefaultTimeout = 60 * time.Second

// Config carries the endpoint base URLs and the shared credential.
type Config struct {
	StyleTTS2URL   string
	SeedVCURL      string
	MakeAnAudioURL string
	WhisperURL     string
	APIKey         string
	Timeout        time.Duration
}

// Client calls the inference backends. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// NewClient creates a backend client with connection pooling.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		cfg: cfg,
	}
}

// GenerationResponse is the success body shared by the three
// audio-producing backends. Fields a given service does not fill are
// left at their zero value.
type GenerationResponse struct {
	AudioURL       string  `json:"audio_url"`
	S3Key          string  `json:"s3_key"`
	AudioID        string  `json:"audio_id"`
	Duration       float64 `json:"duration"`
	SampleRate     int     `json:"sample_rate"`
	SourceDuration float64 `json:"source_duration"`
	TargetVoice    string  `json:"target_voice"`
}

// TranscriptionResponse is the Whisper success body.
type TranscriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// GenerateSpeech synthesizes text with the given target voice.
func (c *Client) GenerateSpeech(ctx context.Context, text, voice string) (*GenerationResponse, error) {
	body := map[string]interface{}{
		"text":         text,
		"target_voice": voice,
	}
	var out GenerationResponse
	if err := c.postJSON(ctx, c.cfg.StyleTTS2URL+"/generate", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConvertVoice re-voices the uploaded source audio as targetVoice.
func (c *Client) ConvertVoice(ctx context.Context, filename string, source io.Reader, targetVoice string) (*GenerationResponse, error) {
	body, contentType, err := multipartBody("source_audio", filename, source,
		map[string]string{"target_voice": targetVoice})
	if err != nil {
		return nil, err
	}
	var out GenerationResponse
	if err := c.post(ctx, c.cfg.SeedVCURL+"/convert", contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateAudio produces music or a sound effect from a text prompt.
// Guidance scale and temperature are fixed; the backend exposes them
// but the product does not.
func (c *Client) GenerateAudio(ctx context.Context, prompt string, duration float64) (*GenerationResponse, error) {
	body := map[string]interface{}{
		"prompt":         prompt,
		"duration":       duration,
		"guidance_scale": 3.0,
		"temperature":    1.0,
	}
	var out GenerationResponse
	if err := c.postJSON(ctx, c.cfg.MakeAnAudioURL+"/generate", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transcribe runs speech-to-text over the uploaded audio.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (*TranscriptionResponse, error) {
	body, contentType, err := multipartBody("audio", filename, audio, nil)
	if err != nil {
		return nil, err
	}
	var out TranscriptionResponse
	if err := c.post(ctx, c.cfg.WhisperURL+"/transcribe", contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// postJSON marshals body and posts it as application/json.
func (c *Client) postJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.post(ctx, url, "application/json", bytes.NewReader(encoded), out)
}

// post issues one authenticated POST and decodes the JSON reply into
// out. Non-2xx replies become an *APIError carrying the backend's own
// error detail.
func (c *Client) post(ctx context.Context, url, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(resp.Body)
		return newAPIError(resp.StatusCode, errBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

// multipartBody builds a multipart/form-data body with one file part
// and optional extra string fields.
func multipartBody(field, filename string, file io.Reader, extra map[string]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy upload: %w", err)
	}
	for name, value := range extra {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write form field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
