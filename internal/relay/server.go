// Package relay exposes the same-origin HTTP endpoints the batch tooling
// depends on: a send-email endpoint that turns relay requests into Gmail API
// calls, and a PDF retrieval proxy for artifact hosts that disallow direct
// cross-origin requests.
package relay

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/choicecert/certmill/pkg/gmail"
)

// maxProxyBytes caps a single proxied artifact. Certificates are small; a
// response this large means we are proxying the wrong thing.
const maxProxyBytes = 32 << 20

// Server holds the relay dependencies.
type Server struct {
	gmail   gmail.Client
	fetch   *http.Client
	limiter *rate.Limiter
}

// Option configures the server.
type Option func(*Server)

// WithFetchClient sets the HTTP client used for proxied artifact fetches.
func WithFetchClient(hc *http.Client) Option {
	return func(s *Server) {
		s.fetch = hc
	}
}

// WithFetchLimit overrides the pacing applied to proxied fetches.
func WithFetchLimit(l *rate.Limiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// NewServer creates a relay server backed by the given Gmail client.
func NewServer(g gmail.Client, opts ...Option) *Server {
	s := &Server{
		gmail: g,
		fetch: &http.Client{Timeout: 60 * time.Second},
		// The artifact host throttles aggressively; pace proxied fetches.
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/api/send-email", s.handleSendEmail)
	r.Post("/api/proxy-pdf", s.handleProxyPDF)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sendEmailRequest mirrors the relay wire format used by the mailer client.
type sendEmailRequest struct {
	To            string          `json:"to"`
	Subject       string          `json:"subject"`
	Body          string          `json:"body"`
	AttachmentURL string          `json:"attachmentUrl"`
	Tokens        json.RawMessage `json:"tokens"`
	Type          string          `json:"type"`
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.To == "" {
		writeError(w, http.StatusBadRequest, "to is required")
		return
	}

	accessToken := extractAccessToken(req.Tokens)
	if accessToken == "" {
		writeError(w, http.StatusUnauthorized, "missing access token")
		return
	}

	var err error
	switch req.Type {
	case "credentials":
		err = s.gmail.SendText(r.Context(), accessToken, req.To, req.Subject, req.Body)
	default:
		if req.AttachmentURL == "" {
			writeError(w, http.StatusBadRequest, "attachmentUrl is required")
			return
		}
		err = s.gmail.SendCertificate(r.Context(), accessToken, req.To, req.Subject, req.Body, req.AttachmentURL)
	}
	if err != nil {
		zap.L().Error("relay: send failed",
			zap.String("to", req.To),
			zap.String("type", req.Type),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	zap.L().Info("relay: email sent",
		zap.String("to", req.To),
		zap.String("type", req.Type),
	)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type proxyRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleProxyPDF(w http.ResponseWriter, r *http.Request) {
	var req proxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if err := s.limiter.Wait(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "fetch rate limit wait aborted")
		return
	}

	upstream, err := http.NewRequestWithContext(r.Context(), http.MethodGet, req.URL, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url")
		return
	}

	resp, err := s.fetch.Do(upstream)
	if err != nil {
		zap.L().Warn("relay: proxy fetch failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		zap.L().Warn("relay: proxy upstream status",
			zap.String("url", req.URL),
			zap.Int("status", resp.StatusCode),
		)
		writeError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, io.LimitReader(resp.Body, maxProxyBytes)); err != nil {
		zap.L().Warn("relay: proxy copy interrupted", zap.String("url", req.URL), zap.Error(err))
	}
}

// extractAccessToken pulls the OAuth access token out of the opaque token
// blob the browser extension hands over.
func extractAccessToken(tokens json.RawMessage) string {
	if len(tokens) == 0 {
		return ""
	}
	var t struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(tokens, &t); err != nil {
		return ""
	}
	return t.AccessToken
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
