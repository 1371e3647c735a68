// Package mailer provides a client for the send-email relay endpoint.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Kind selects the relay message type.
type Kind string

const (
	KindCertificate Kind = "certificate"
	KindCredentials Kind = "credentials"
)

// Message is one email to dispatch through the relay. AttachmentURL is
// mandatory for certificate kind; the relay fetches and attaches the PDF.
type Message struct {
	To            string `json:"to"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	AttachmentURL string `json:"attachmentUrl,omitempty"`
	Kind          Kind   `json:"type"`
}

// Client defines the email dispatch operation. A failed send is reported to
// the caller and nothing more; it never invalidates work already done.
type Client interface {
	Send(ctx context.Context, msg Message, tokens json.RawMessage) error
}

// relayRequest is the wire payload of the relay endpoint.
type relayRequest struct {
	To            string          `json:"to"`
	Subject       string          `json:"subject"`
	Body          string          `json:"body"`
	AttachmentURL string          `json:"attachmentUrl,omitempty"`
	Tokens        json.RawMessage `json:"tokens"`
	Type          Kind            `json:"type"`
}

type relayResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Option configures the mailer client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	relayURL string
	http     *http.Client
}

// NewClient creates a mailer client for the given relay base URL.
func NewClient(relayURL string, opts ...Option) Client {
	c := &httpClient{
		relayURL: relayURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Send(ctx context.Context, msg Message, tokens json.RawMessage) error {
	if msg.Kind == "" {
		msg.Kind = KindCertificate
	}
	if msg.Kind == KindCertificate && msg.AttachmentURL == "" {
		return eris.New("mailer: attachment url required for certificate email")
	}
	if len(tokens) == 0 {
		return eris.New("mailer: auth tokens required")
	}

	body, err := json.Marshal(relayRequest{
		To:            msg.To,
		Subject:       msg.Subject,
		Body:          msg.Body,
		AttachmentURL: msg.AttachmentURL,
		Tokens:        tokens,
		Type:          msg.Kind,
	})
	if err != nil {
		return eris.Wrap(err, "mailer: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL+"/api/send-email", bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "mailer: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "mailer: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "mailer: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		var relay relayResponse
		if json.Unmarshal(respBody, &relay) == nil && relay.Error != "" {
			return eris.Errorf("mailer: relay status %d: %s", resp.StatusCode, relay.Error)
		}
		return eris.Errorf("mailer: relay status %d", resp.StatusCode)
	}

	return nil
}
