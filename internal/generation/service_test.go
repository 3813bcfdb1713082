package generation

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxcraft/voxcraft-golang/internal/credits"
	"github.com/voxcraft/voxcraft-golang/internal/inference"
	"github.com/voxcraft/voxcraft-golang/internal/models"
)

// fakeLedger is an in-memory credit balance.
type fakeLedger struct {
	balance      int64
	reserveCalls int
	refundCalls  int
	refundErr    error // simulate a broken refund path
	queued       int64 // credits that went to the outbox
}

func (f *fakeLedger) Reserve(_ context.Context, _ int64, amount int64) (int64, error) {
	f.reserveCalls++
	if f.balance < amount {
		return 0, credits.ErrInsufficientCredits
	}
	f.balance -= amount
	return f.balance, nil
}

func (f *fakeLedger) RefundOrQueue(_ context.Context, _ int64, amount int64, _ string) {
	f.refundCalls++
	if f.refundErr != nil {
		f.queued += amount
		return
	}
	f.balance += amount
}

// fakeBackend returns canned responses.
type fakeBackend struct {
	genResp    *inference.GenerationResponse
	transResp  *inference.TranscriptionResponse
	err        error
	calls      int
	lastPrompt string
	lastVoice  string
}

func (f *fakeBackend) GenerateSpeech(_ context.Context, text, voice string) (*inference.GenerationResponse, error) {
	f.calls++
	f.lastPrompt, f.lastVoice = text, voice
	return f.genResp, f.err
}

func (f *fakeBackend) ConvertVoice(_ context.Context, _ string, _ io.Reader, voice string) (*inference.GenerationResponse, error) {
	f.calls++
	f.lastVoice = voice
	return f.genResp, f.err
}

func (f *fakeBackend) GenerateAudio(_ context.Context, prompt string, _ float64) (*inference.GenerationResponse, error) {
	f.calls++
	f.lastPrompt = prompt
	return f.genResp, f.err
}

func (f *fakeBackend) Transcribe(_ context.Context, _ string, _ io.Reader) (*inference.TranscriptionResponse, error) {
	f.calls++
	return f.transResp, f.err
}

type savedClip struct {
	userID  int64
	text    string
	voice   *string
	s3Key   string
	service models.ServiceKind
}

type fakeHistory struct {
	saved []savedClip
	err   error
}

func (f *fakeHistory) Save(_ context.Context, userID int64, text string, voice *string, s3Key string, service models.ServiceKind) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, savedClip{userID, text, voice, s3Key, service})
	return nil
}

func newTestService(ledger *fakeLedger, backend *fakeBackend, hist *fakeHistory) *Service {
	return NewService(ledger, backend, hist)
}

func okResponse() *inference.GenerationResponse {
	return &inference.GenerationResponse{
		AudioURL:   "https://cdn.example.com/audio.wav",
		S3Key:      "clips/abc123.wav",
		AudioID:    "aud_1",
		Duration:   8.0,
		SampleRate: 44100,
	}
}

func upload(size int64, mime string) *AudioUpload {
	return &AudioUpload{
		Filename: "clip.wav",
		Size:     size,
		MIMEType: mime,
		Data:     bytes.NewReader([]byte("riff")),
	}
}

func TestGenerateSpeech_Success(t *testing.T) {
	ledger := &fakeLedger{balance: 500}
	backend := &fakeBackend{genResp: okResponse()}
	hist := &fakeHistory{}
	svc := newTestService(ledger, backend, hist)

	result, err := svc.GenerateSpeech(context.Background(), 1, "Hello there", "narrator")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/audio.wav", result.AudioURL)
	assert.Equal(t, "clips/abc123.wav", result.S3Key)
	assert.Equal(t, int64(300), result.RemainingCredits)
	assert.Equal(t, int64(300), ledger.balance)

	// Exactly one history row, referencing the backend's storage key.
	require.Len(t, hist.saved, 1)
	assert.Equal(t, "clips/abc123.wav", hist.saved[0].s3Key)
	assert.Equal(t, models.ServiceStyleTTS2, hist.saved[0].service)
	require.NotNil(t, hist.saved[0].voice)
	assert.Equal(t, "narrator", *hist.saved[0].voice)
}

func TestGenerateSpeech_TextBoundary(t *testing.T) {
	// Exactly 2000 characters is accepted; 2001 is rejected with no
	// side effects at all.
	ledger := &fakeLedger{balance: 1000}
	backend := &fakeBackend{genResp: okResponse()}
	svc := newTestService(ledger, backend, &fakeHistory{})

	_, err := svc.GenerateSpeech(context.Background(), 1, strings.Repeat("a", 2000), "narrator")
	require.NoError(t, err)

	before := ledger.balance
	_, err = svc.GenerateSpeech(context.Background(), 1, strings.Repeat("a", 2001), "narrator")
	require.ErrorIs(t, err, ErrTextTooLong)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, before, ledger.balance)
	assert.Equal(t, 1, backend.calls)
}

func TestGenerateSpeech_InvalidVoice(t *testing.T) {
	ledger := &fakeLedger{balance: 500}
	backend := &fakeBackend{genResp: okResponse()}
	svc := newTestService(ledger, backend, &fakeHistory{})

	_, err := svc.GenerateSpeech(context.Background(), 1, "Hello", "robot")
	require.ErrorIs(t, err, ErrInvalidVoice)
	assert.Zero(t, ledger.reserveCalls)
	assert.Zero(t, backend.calls)
}

func TestGenerateSpeech_InsufficientCredits(t *testing.T) {
	// Balance 150 cannot cover the 200-credit reservation: the request
	// fails, the balance is untouched and no backend call is made.
	ledger := &fakeLedger{balance: 150}
	backend := &fakeBackend{genResp: okResponse()}
	svc := newTestService(ledger, backend, &fakeHistory{})

	_, err := svc.GenerateSpeech(context.Background(), 1, "Hello", "angry")
	require.ErrorIs(t, err, credits.ErrInsufficientCredits)
	assert.Equal(t, int64(150), ledger.balance)
	assert.Zero(t, backend.calls)
}

func TestGenerateSpeech_UpstreamFailureRefunds(t *testing.T) {
	ledger := &fakeLedger{balance: 500}
	backend := &fakeBackend{err: &inference.APIError{StatusCode: 500, Message: "model crashed"}}
	hist := &fakeHistory{}
	svc := newTestService(ledger, backend, hist)

	_, err := svc.GenerateSpeech(context.Background(), 1, "Hello", "women")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")

	// Net credit effect is zero.
	assert.Equal(t, int64(500), ledger.balance)
	assert.Equal(t, 1, ledger.refundCalls)
	assert.Empty(t, hist.saved)
}

func TestGenerateSpeech_MissingAudioURLRefunds(t *testing.T) {
	// A 2xx reply without an artifact URL is a failure and must still
	// trigger compensation.
	ledger := &fakeLedger{balance: 500}
	backend := &fakeBackend{genResp: &inference.GenerationResponse{S3Key: "k"}}
	svc := newTestService(ledger, backend, &fakeHistory{})

	_, err := svc.GenerateSpeech(context.Background(), 1, "Hello", "women")
	require.ErrorIs(t, err, ErrNoAudioURL)
	assert.Equal(t, int64(500), ledger.balance)
}

func TestGenerateSpeech_BrokenRefundGoesToOutbox(t *testing.T) {
	// The immediate-refund path used to be fire-and-forget: if the
	// increment failed the credits were simply gone. Now they land in
	// the outbox instead. The user-visible error is unchanged.
	ledger := &fakeLedger{balance: 500, refundErr: errors.New("db down")}
	backend := &fakeBackend{err: &inference.APIError{StatusCode: 502, Message: "bad gateway"}}
	svc := newTestService(ledger, backend, &fakeHistory{})

	_, err := svc.GenerateSpeech(context.Background(), 1, "Hello", "women")
	require.Error(t, err)
	assert.Equal(t, int64(300), ledger.balance) // increment did not land...
	assert.Equal(t, int64(200), ledger.queued)  // ...but the debt is recorded
}

func TestGenerateSpeech_HistoryFailureDoesNotFailRequest(t *testing.T) {
	ledger := &fakeLedger{balance: 500}
	backend := &fakeBackend{genResp: okResponse()}
	hist := &fakeHistory{err: errors.New("insert failed")}
	svc := newTestService(ledger, backend, hist)

	result, err := svc.GenerateSpeech(context.Background(), 1, "Hello", "women")
	require.NoError(t, err)
	assert.Equal(t, int64(300), result.RemainingCredits)
}

func TestConvertVoice_FileBoundary(t *testing.T) {
	ledger := &fakeLedger{balance: 1000}
	backend := &fakeBackend{genResp: okResponse()}
	svc := newTestService(ledger, backend, &fakeHistory{})

	// Exactly 10MB passes validation.
	_, err := svc.ConvertVoice(context.Background(), 1, upload(10*1024*1024, "audio/wav"), "narrator")
	require.NoError(t, err)

	// One byte over is rejected before any side effect.
	reserves := ledger.reserveCalls
	_, err = svc.ConvertVoice(context.Background(), 1, upload(10*1024*1024+1, "audio/wav"), "narrator")
	require.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, reserves, ledger.reserveCalls)
}

func TestConvertVoice_RejectsBadMIMEType(t *testing.T) {
	svc := newTestService(&fakeLedger{balance: 500}, &fakeBackend{}, &fakeHistory{})

	_, err := svc.ConvertVoice(context.Background(), 1, upload(100, "audio/flac"), "narrator")
	require.ErrorIs(t, err, ErrInvalidFileType)
}

func TestConvertVoice_UpstreamFailureRefunds(t *testing.T) {
	// Balance 500, conversion fails upstream with a 500: the balance
	// comes back to 500 and the error carries the backend's detail.
	ledger := &fakeLedger{balance: 500}
	backend := &fakeBackend{err: &inference.APIError{StatusCode: 500, Message: "CUDA out of memory"}}
	svc := newTestService(ledger, backend, &fakeHistory{})

	_, err := svc.ConvertVoice(context.Background(), 1, upload(1024, "audio/mpeg"), "angry")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CUDA out of memory")
	assert.Equal(t, int64(500), ledger.balance)
}

func TestConvertVoice_HistoryRow(t *testing.T) {
	ledger := &fakeLedger{balance: 500}
	resp := okResponse()
	resp.TargetVoice = "narrator"
	resp.SourceDuration = 12.5
	hist := &fakeHistory{}
	svc := newTestService(ledger, &fakeBackend{genResp: resp}, hist)

	result, err := svc.ConvertVoice(context.Background(), 1, upload(1024, "audio/wav"), "narrator")
	require.NoError(t, err)
	assert.Equal(t, "narrator", result.TargetVoice)
	assert.Equal(t, 12.5, result.SourceDuration)

	require.Len(t, hist.saved, 1)
	assert.Equal(t, "Voice conversion to narrator", hist.saved[0].text)
	assert.Equal(t, models.ServiceSeedVC, hist.saved[0].service)
}

func TestGenerateAudio_Scenario(t *testing.T) {
	// Scenario from the workflow contract: balance 500, prompt
	// "Upbeat EDM", duration 8.0. The reservation drops the balance to
	// 300, the backend returns a valid artifact, one history row is
	// written for the music service.
	ledger := &fakeLedger{balance: 500}
	backend := &fakeBackend{genResp: okResponse()}
	hist := &fakeHistory{}
	svc := newTestService(ledger, backend, hist)

	result, err := svc.GenerateAudio(context.Background(), 1, "Upbeat EDM", 8.0)
	require.NoError(t, err)

	assert.Equal(t, int64(300), ledger.balance)
	assert.Equal(t, int64(300), result.RemainingCredits)
	assert.Equal(t, "https://cdn.example.com/audio.wav", result.AudioURL)
	assert.Equal(t, 44100, result.SampleRate)

	require.Len(t, hist.saved, 1)
	assert.Equal(t, models.ServiceMakeAnAudio, hist.saved[0].service)
	assert.Equal(t, "Upbeat EDM", hist.saved[0].text)
	assert.Nil(t, hist.saved[0].voice)
}

func TestGenerateAudio_DurationCeiling(t *testing.T) {
	ledger := &fakeLedger{balance: 500}
	svc := newTestService(ledger, &fakeBackend{genResp: okResponse()}, &fakeHistory{})

	_, err := svc.GenerateAudio(context.Background(), 1, "rain", 30.0)
	require.NoError(t, err)

	_, err = svc.GenerateAudio(context.Background(), 1, "rain", 30.5)
	require.ErrorIs(t, err, ErrDurationTooLong)
}

func TestGenerateAudio_EmptyPrompt(t *testing.T) {
	svc := newTestService(&fakeLedger{balance: 500}, &fakeBackend{}, &fakeHistory{})

	_, err := svc.GenerateAudio(context.Background(), 1, "   ", 8.0)
	require.ErrorIs(t, err, ErrNoPrompt)
}

func TestTranscribe_Success(t *testing.T) {
	ledger := &fakeLedger{balance: 500}
	backend := &fakeBackend{transResp: &inference.TranscriptionResponse{
		Text: "hello world", Language: "en", Duration: 3.2,
	}}
	hist := &fakeHistory{}
	svc := newTestService(ledger, backend, hist)

	result, err := svc.Transcribe(context.Background(), 1, upload(1024, "audio/webm"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Text)
	assert.Equal(t, "en", result.Language)
	assert.Equal(t, int64(300), result.RemainingCredits)

	// Transcriptions store no artifact, so no history row.
	assert.Empty(t, hist.saved)
}

func TestTranscribe_EmptyTextFallback(t *testing.T) {
	backend := &fakeBackend{transResp: &inference.TranscriptionResponse{}}
	svc := newTestService(&fakeLedger{balance: 500}, backend, &fakeHistory{})

	result, err := svc.Transcribe(context.Background(), 1, upload(1024, "audio/webm"))
	require.NoError(t, err)
	assert.Equal(t, "No transcription available", result.Text)
}

func TestTranscribe_FailureRefunds(t *testing.T) {
	ledger := &fakeLedger{balance: 500}
	backend := &fakeBackend{err: &inference.APIError{StatusCode: 503, Message: "overloaded"}}
	svc := newTestService(ledger, backend, &fakeHistory{})

	_, err := svc.Transcribe(context.Background(), 1, upload(1024, "audio/webm"))
	require.Error(t, err)
	assert.Equal(t, int64(500), ledger.balance)
}

func TestTranscribe_RequiresFile(t *testing.T) {
	svc := newTestService(&fakeLedger{balance: 500}, &fakeBackend{}, &fakeHistory{})

	_, err := svc.Transcribe(context.Background(), 1, nil)
	require.ErrorIs(t, err, ErrNoAudioFile)
}
