// Package messaging delivers replies to chat users through Twilio's
// Messages API.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var (
	ErrNotConfigured = errors.New("twilio credentials not configured")
	ErrSendFailed    = errors.New("twilio send failed")
)

const (
	defaultBaseURL = "https://api.twilio.com"
	sendTimeout    = 15 * time.Second
)

// Sender delivers one text message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

type TwilioOptions struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string // overrides https://api.twilio.com, e.g. for a proxy
}

type TwilioClient struct {
	rest       *twilio.RestClient
	configured bool
	from       string
}

var _ Sender = (*TwilioClient)(nil)

func NewTwilioClient(opts TwilioOptions) *TwilioClient {
	httpClient := &http.Client{Timeout: sendTimeout}
	if base := strings.TrimRight(opts.BaseURL, "/"); base != "" && base != defaultBaseURL {
		if target, err := url.Parse(base); err == nil && target.Host != "" {
			httpClient.Transport = &rebaseTransport{target: target, next: http.DefaultTransport}
		}
	}

	cl := &twclient.Client{
		Credentials: twclient.NewCredentials(opts.AccountSID, opts.AuthToken),
		HTTPClient:  httpClient,
	}
	cl.SetAccountSid(opts.AccountSID)

	return &TwilioClient{
		rest:       twilio.NewRestClientWithParams(twilio.ClientParams{Client: cl}),
		configured: opts.AccountSID != "" && opts.AuthToken != "" && opts.From != "",
		from:       opts.From,
	}
}

// Send posts body to to, using the configured sender address as From.
func (c *TwilioClient) Send(ctx context.Context, to, body string) error {
	if !c.configured {
		return ErrNotConfigured
	}
	// The SDK call takes no context; honour cancellation before sending.
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twapi.CreateMessageParams{}
	params.SetFrom(c.from)
	params.SetTo(to)
	params.SetBody(body)

	if _, err := c.rest.Api.CreateMessage(params); err != nil {
		var restErr *twclient.TwilioRestError
		if errors.As(err, &restErr) {
			return fmt.Errorf("%w: HTTP %d: %d %s", ErrSendFailed, restErr.Status, restErr.Code, restErr.Message)
		}
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

// rebaseTransport sends SDK requests to another scheme and host.
type rebaseTransport struct {
	target *url.URL
	next   http.RoundTripper
}

func (t *rebaseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = t.target.Scheme
	r.URL.Host = t.target.Host
	r.URL.Path = t.target.Path + req.URL.Path
	r.Host = t.target.Host
	return t.next.RoundTrip(r)
}
