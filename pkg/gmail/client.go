// Package gmail sends mail through the Gmail REST API using a caller-supplied
// OAuth access token. Messages are assembled as raw RFC 822 payloads and
// base64url-encoded the way the API expects.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultSendURL is the Gmail API send endpoint for the token's own mailbox.
const DefaultSendURL = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"

// Client defines the Gmail send operations.
type Client interface {
	// SendText sends a plain-text message.
	SendText(ctx context.Context, accessToken, to, subject, body string) error
	// SendCertificate fetches the PDF at attachmentURL and sends it as a
	// binary MIME part alongside the plain-text body.
	SendCertificate(ctx context.Context, accessToken, to, subject, body, attachmentURL string) error
}

// Option configures the Gmail client.
type Option func(*httpClient)

// WithSendURL sets a custom send endpoint (for testing).
func WithSendURL(url string) Option {
	return func(c *httpClient) {
		c.sendURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	sendURL string
	http    *http.Client
}

// NewClient creates a Gmail send client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		sendURL: DefaultSendURL,
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

func (c *httpClient) SendText(ctx context.Context, accessToken, to, subject, body string) error {
	return c.send(ctx, accessToken, textMessage(to, subject, body))
}

func (c *httpClient) SendCertificate(ctx context.Context, accessToken, to, subject, body, attachmentURL string) error {
	pdf, err := c.fetchAttachment(ctx, attachmentURL)
	if err != nil {
		return err
	}
	return c.send(ctx, accessToken, attachmentMessage(to, subject, body, pdf))
}

func (c *httpClient) fetchAttachment(ctx context.Context, attachmentURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachmentURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gmail: create attachment request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "gmail: fetch attachment")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("gmail: attachment fetch status %d from %s", resp.StatusCode, attachmentURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gmail: read attachment body")
	}

	return data, nil
}

func (c *httpClient) send(ctx context.Context, accessToken string, message []byte) error {
	payload, err := json.Marshal(map[string]string{"raw": encodeRaw(message)})
	if err != nil {
		return eris.Wrap(err, "gmail: marshal send request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "gmail: create send request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "gmail: send request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return eris.Errorf("gmail: send status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// encodeRaw encodes the message the way the Gmail API expects: URL-safe
// base64 with padding stripped.
func encodeRaw(message []byte) string {
	return base64.RawURLEncoding.EncodeToString(message)
}

// textMessage builds a plain-text RFC 822 message.
func textMessage(to, subject, body string) []byte {
	lines := []string{
		`Content-Type: text/plain; charset="UTF-8"`,
		"MIME-Version: 1.0",
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}
	return []byte(strings.Join(lines, "\n"))
}

// attachmentMessage builds a multipart message with a text part and a PDF
// attachment part.
func attachmentMessage(to, subject, body string, pdf []byte) []byte {
	lines := []string{
		`Content-Type: multipart/mixed; boundary="boundary"`,
		"MIME-Version: 1.0",
		"To: " + to,
		"Subject: " + subject,
		"",
		"--boundary",
		`Content-Type: text/plain; charset="UTF-8"`,
		"MIME-Version: 1.0",
		"Content-Transfer-Encoding: 7bit",
		"",
		body,
		"",
		"--boundary",
		"Content-Type: application/pdf",
		"MIME-Version: 1.0",
		"Content-Transfer-Encoding: base64",
		`Content-Disposition: attachment; filename="certificate.pdf"`,
		"",
		base64.StdEncoding.EncodeToString(pdf),
		"",
		"--boundary--",
	}
	return []byte(strings.Join(lines, "\n"))
}
