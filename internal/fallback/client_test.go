package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/api/v1/", APIKey: "sk-test", Timeout: 2 * time.Second})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestComplete_SendsPromptAndReturnsFirstChoice(t *testing.T) {
	var got sentRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{"choices":[{"index":0,"message":{"role":"assistant","content":"  Suhu ideal 24°C  "}},{"index":1,"message":{"role":"assistant","content":"ignored"}}]}`)
	})

	reply, err := c.Complete(context.Background(), "Berapa suhu ideal tomat?")
	require.NoError(t, err)
	assert.Equal(t, "Suhu ideal 24°C", reply)

	assert.Equal(t, defaultModel, got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "Berapa suhu ideal tomat?", got.Messages[0].Content)
}

func TestComplete_NoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"choices":[]}`)
	})

	reply, err := c.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestComplete_PaymentRequired(t *testing.T) {
	cases := map[string]string{
		"error body": `{"error":{"message":"Insufficient credits","code":402}}`,
		"empty body": ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusPaymentRequired, body)
			})

			_, err := c.Complete(context.Background(), "hello")
			assert.ErrorIs(t, err, ErrQuotaExceeded)
		})
	}
}

func TestComplete_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"error":{"message":"upstream down","type":"server_error"}}`)
	})

	_, err := c.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.False(t, errors.Is(err, ErrQuotaExceeded))
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestComplete_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `<html>`)
	})

	_, err := c.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestComplete_CancelledWhileRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL, RatePerMinute: 1})
	_, err := c.Complete(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, "second")
	assert.Error(t, err)
}
