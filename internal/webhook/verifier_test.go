package webhook

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	svix "github.com/svix/svix-webhooks/go"
)

const testSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

func signedHeaders(t *testing.T, body []byte) http.Header {
	t.Helper()
	wh, err := svix.NewWebhook(testSecret)
	require.NoError(t, err)

	msgID := "msg_test"
	ts := time.Now()
	sig, err := wh.Sign(msgID, ts, body)
	require.NoError(t, err)

	h := http.Header{}
	h.Set("svix-id", msgID)
	h.Set("svix-timestamp", strconv.FormatInt(ts.Unix(), 10))
	h.Set("svix-signature", sig)
	return h
}

func TestVerify_NotConfiguredFailsClosed(t *testing.T) {
	v, err := NewVerifier("")
	require.NoError(t, err)

	body := []byte(`{"type":"user.created"}`)
	err = v.Verify(body, signedHeaders(t, body))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestVerify_MissingSignatureHeader(t *testing.T) {
	v, err := NewVerifier(testSecret)
	require.NoError(t, err)

	err = v.Verify([]byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestVerify_GarbageSignature(t *testing.T) {
	v, err := NewVerifier(testSecret)
	require.NoError(t, err)

	h := http.Header{}
	h.Set("svix-id", "msg_test")
	h.Set("svix-timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	h.Set("svix-signature", "v1,"+base64.StdEncoding.EncodeToString([]byte("garbage")))

	err = v.Verify([]byte(`{}`), h)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_TamperedBody(t *testing.T) {
	v, err := NewVerifier(testSecret)
	require.NoError(t, err)

	body := []byte(`{"type":"user.created","data":{"id":"r1"}}`)
	headers := signedHeaders(t, body)

	tampered := []byte(`{"type":"user.created","data":{"id":"r2"}}`)
	err = v.Verify(tampered, headers)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_ValidSignature(t *testing.T) {
	v, err := NewVerifier(testSecret)
	require.NoError(t, err)

	body := []byte(`{"type":"user.created","data":{"id":"r1"}}`)
	assert.NoError(t, v.Verify(body, signedHeaders(t, body)))
}
