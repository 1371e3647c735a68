package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTokens(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"ya29.test"}`), 0o600))

	tokens, err := loadTokens(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"access_token":"ya29.test"}`, string(tokens))
}

func TestLoadTokens_EmptyPathDisablesDelivery(t *testing.T) {
	t.Parallel()

	tokens, err := loadTokens("")
	require.NoError(t, err)
	assert.Nil(t, tokens)
}

func TestLoadTokens_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := loadTokens(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadTokens_InvalidJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := loadTokens(path)
	assert.Error(t, err)
}

func TestRootCommandRegistry(t *testing.T) {
	t.Parallel()

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"generate", "credentials", "bulk", "history", "serve"} {
		assert.True(t, names[want], "command %q not registered", want)
	}
}
