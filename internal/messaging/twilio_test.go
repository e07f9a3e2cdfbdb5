package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwilioClient_Send(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "whatsapp:+14155238886", r.PostForm.Get("From"))
		assert.Equal(t, "whatsapp:+628123", r.PostForm.Get("To"))
		assert.Equal(t, "💧 Pompa air dinyalakan!", r.PostForm.Get("Body"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewTwilioClient(TwilioOptions{
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "whatsapp:+14155238886",
		BaseURL:    srv.URL + "/",
	})
	require.NoError(t, c.Send(context.Background(), "whatsapp:+628123", "💧 Pompa air dinyalakan!"))
	assert.True(t, called)
}

func TestTwilioClient_SendErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	}))
	defer srv.Close()

	c := NewTwilioClient(TwilioOptions{AccountSID: "AC1", AuthToken: "t", From: "whatsapp:+1", BaseURL: srv.URL})
	err := c.Send(context.Background(), "bogus", "hi")
	require.ErrorIs(t, err, ErrSendFailed)
	assert.Contains(t, err.Error(), "21211")
	assert.Contains(t, err.Error(), "HTTP 400")
}

func TestTwilioClient_CanceledContext(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewTwilioClient(TwilioOptions{AccountSID: "AC1", AuthToken: "t", From: "whatsapp:+1", BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Send(ctx, "whatsapp:+628123", "hi"), context.Canceled)
	assert.False(t, called)
}

func TestRebaseTransport(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	target, err := url.Parse(srv.URL + "/proxy")
	require.NoError(t, err)
	hc := &http.Client{Transport: &rebaseTransport{target: target, next: http.DefaultTransport}}

	resp, err := hc.Get("https://api.twilio.com/2010-04-01/Accounts/AC1/Messages.json")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/proxy/2010-04-01/Accounts/AC1/Messages.json", gotPath)
}

func TestTwilioClient_NotConfigured(t *testing.T) {
	c := NewTwilioClient(TwilioOptions{})
	assert.ErrorIs(t, c.Send(context.Background(), "whatsapp:+1", "hi"), ErrNotConfigured)
}
