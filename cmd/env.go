package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/choicecert/certmill/internal/history"
	"github.com/choicecert/certmill/pkg/generator"
	"github.com/choicecert/certmill/pkg/mailer"
	"github.com/choicecert/certmill/pkg/proxy"
)

// env bundles the clients a command needs, built from config.
type env struct {
	Generator generator.Client
	Mailer    mailer.Client
	Proxy     proxy.Client
	History   history.Store
}

func initEnv(ctx context.Context) (*env, error) {
	hc := &http.Client{Timeout: time.Duration(cfg.Generator.TimeoutSecs) * time.Second}

	st, err := history.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "init history store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	return &env{
		Generator: generator.NewClient(cfg.Generator.CertificateURL, cfg.Generator.CredentialURL, generator.WithHTTPClient(hc)),
		Mailer:    mailer.NewClient(cfg.Mail.RelayURL),
		Proxy:     proxy.NewClient(cfg.Proxy.BaseURL),
		History:   st,
	}, nil
}

func (e *env) Close() {
	_ = e.History.Close()
}

// loadTokens reads the Gmail OAuth token blob from disk. An empty path means
// delivery is disabled and nil tokens are returned without error.
func loadTokens(path string) (json.RawMessage, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read token file %s", path)
	}
	if !json.Valid(data) {
		return nil, eris.Errorf("token file %s is not valid JSON", path)
	}

	return json.RawMessage(data), nil
}
