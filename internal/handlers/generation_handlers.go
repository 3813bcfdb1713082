package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/voxcraft/voxcraft-golang/internal/credits"
	"github.com/voxcraft/voxcraft-golang/internal/generation"
	"github.com/voxcraft/voxcraft-golang/internal/inference"
)

// statusForError maps the orchestrator's error taxonomy onto HTTP
// statuses. Everything it returns is safe to show the user.
func statusForError(err error) int {
	switch {
	case generation.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, credits.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, credits.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, generation.ErrNoAudioURL), inference.IsAPIError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GenerateSpeechInput is the text-to-speech request body.
type GenerateSpeechInput struct {
	Text  string `json:"text" binding:"required"`
	Voice string `json:"voice" binding:"required"`
}

// GenerateSpeech is the handler for POST /v1/speech/generate.
func (h *Handlers) GenerateSpeech(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input GenerateSpeechInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Generator.GenerateSpeech(c.Request.Context(), userID, input.Text, input.Voice)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ConvertVoice is the handler for POST /v1/voice/convert. The request
// is multipart: a 'source_audio' file plus a 'target_voice' field.
func (h *Handlers) ConvertVoice(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	fileHeader, err := c.FormFile("source_audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file uploaded"})
		return
	}
	targetVoice := c.PostForm("target_voice")

	upload, file, err := openUpload(fileHeader)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	result, err := h.Generator.ConvertVoice(c.Request.Context(), userID, upload, targetVoice)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GenerateAudioInput is the music / sound-effect request body.
type GenerateAudioInput struct {
	Prompt   string  `json:"prompt" binding:"required"`
	Duration float64 `json:"duration"`
}

// defaultGenerationSeconds is used when the caller leaves duration out.
const defaultGenerationSeconds = 8.0

// GenerateAudio is the handler for POST /v1/audio/generate.
func (h *Handlers) GenerateAudio(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input GenerateAudioInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Duration == 0 {
		input.Duration = defaultGenerationSeconds
	}

	result, err := h.Generator.GenerateAudio(c.Request.Context(), userID, input.Prompt, input.Duration)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// TranscribeAudio is the handler for POST /v1/speech/transcribe. The
// request is multipart with a single 'audio' file.
func (h *Handlers) TranscribeAudio(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file uploaded"})
		return
	}

	upload, file, err := openUpload(fileHeader)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	result, err := h.Generator.Transcribe(c.Request.Context(), userID, upload)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// openUpload adapts a multipart file header into the orchestrator's
// upload type. The caller owns closing the returned file.
func openUpload(header *multipart.FileHeader) (*generation.AudioUpload, multipart.File, error) {
	file, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	// Recorded blobs arrive without a usable filename; the backends
	// want one in the multipart part, so mint something unique.
	filename := header.Filename
	if filename == "" || filename == "blob" {
		filename = "upload-" + uuid.New().String()
	}
	upload := &generation.AudioUpload{
		Filename: filename,
		Size:     header.Size,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     file,
	}
	return upload, file, nil
}
