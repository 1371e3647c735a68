// Package generator provides a client for the remote certificate and
// credential generation endpoints.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the remote generation operations. Each call issues exactly
// one request; retry policy, if any, belongs to the caller and here is none.
type Client interface {
	// GenerateCertificate converts a name into a certificate PDF URL.
	GenerateCertificate(ctx context.Context, name string) (string, error)
	// GenerateCredentials signs up a Swayam account and returns the password.
	GenerateCredentials(ctx context.Context, name, email, phone string) (string, error)
}

// certificateRequest is the wire payload for certificate generation.
type certificateRequest struct {
	Name string `json:"name"`
}

// credentialRequest is the wire payload for credential generation.
type credentialRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// response covers both endpoints: exactly one of URL, Password or Error is
// populated by the upstream service.
type response struct {
	URL      string       `json:"url"`
	Password string       `json:"password"`
	Error    *errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Option configures the generator client.
type Option func(*httpClient)

// WithCertificateURL sets a custom certificate endpoint (for testing).
func WithCertificateURL(url string) Option {
	return func(c *httpClient) {
		c.certURL = url
	}
}

// WithCredentialURL sets a custom credential endpoint (for testing).
func WithCredentialURL(url string) Option {
	return func(c *httpClient) {
		c.credURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	certURL string
	credURL string
	http    *http.Client
}

// NewClient creates a generation client for the given endpoints.
func NewClient(certURL, credURL string, opts ...Option) Client {
	c := &httpClient{
		certURL: certURL,
		credURL: credURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
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

func (c *httpClient) GenerateCertificate(ctx context.Context, name string) (string, error) {
	resp, err := c.post(ctx, c.certURL, certificateRequest{Name: name})
	if err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", eris.New("generator: response missing url")
	}
	return resp.URL, nil
}

func (c *httpClient) GenerateCredentials(ctx context.Context, name, email, phone string) (string, error) {
	resp, err := c.post(ctx, c.credURL, credentialRequest{Name: name, Email: email, Phone: phone})
	if err != nil {
		return "", err
	}
	if resp.Password == "" {
		return "", eris.New("generator: response missing password")
	}
	return resp.Password, nil
}

// post issues a single JSON POST and decodes the shared response shape.
// An error payload in a 200 body is surfaced with the upstream message
// verbatim so the caller can record it per row.
func (c *httpClient) post(ctx context.Context, endpoint string, payload any) (*response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "generator: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "generator: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "generator: request failed")
	}
	defer httpResp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "generator: read response body")
	}

	var result response
	if jsonErr := json.Unmarshal(respBody, &result); jsonErr != nil {
		if httpResp.StatusCode != http.StatusOK {
			return nil, eris.Errorf("generator: unexpected status %d: %s", httpResp.StatusCode, string(respBody))
		}
		return nil, eris.Wrap(jsonErr, "generator: unmarshal response")
	}

	if result.Error != nil {
		return nil, eris.New(result.Error.Message)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("generator: unexpected status %d", httpResp.StatusCode)
	}

	return &result, nil
}
