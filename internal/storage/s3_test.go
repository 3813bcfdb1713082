package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Presigning is pure local signing, so these tests run without any AWS
// endpoint: a URL comes back signed or the call errors.

func newTestPresigner(t *testing.T) *Presigner {
	t.Helper()
	p, err := NewPresigner(context.Background(), Config{
		Region:          "us-east-1",
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
		Bucket:          "voxcraft-audio",
	})
	require.NoError(t, err)
	return p
}

func TestPresignedURL_DefaultExpiry(t *testing.T) {
	p := newTestPresigner(t)

	signed, err := p.PresignedURL(context.Background(), "clips/abc.wav")
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)

	assert.True(t, strings.Contains(parsed.Host, "voxcraft-audio"))
	assert.True(t, strings.HasSuffix(parsed.Path, "/clips/abc.wav"))
	assert.Equal(t, "3600", parsed.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
}

func TestPresignedURL_WithExpiry(t *testing.T) {
	p := newTestPresigner(t)

	signed, err := p.PresignedURL(context.Background(), "clips/abc.wav", WithExpiry(5*time.Minute))
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "300", parsed.Query().Get("X-Amz-Expires"))
}

func TestPresignedURL_WithBucket(t *testing.T) {
	p := newTestPresigner(t)

	signed, err := p.PresignedURL(context.Background(), "clips/abc.wav", WithBucket("other-bucket"))
	require.NoError(t, err)
	assert.Contains(t, signed, "other-bucket")
}

func TestPresignedURL_RepeatableAndStateless(t *testing.T) {
	p := newTestPresigner(t)

	first, err := p.PresignedURL(context.Background(), "clips/abc.wav")
	require.NoError(t, err)
	second, err := p.PresignedURL(context.Background(), "clips/abc.wav")
	require.NoError(t, err)

	// Both signatures are valid URLs for the same object; they may or
	// may not be byte-identical depending on the signing timestamp.
	for _, signed := range []string{first, second} {
		parsed, err := url.Parse(signed)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(parsed.Path, "/clips/abc.wav"))
	}
}
