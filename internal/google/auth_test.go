package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
)

func TestOAuthConfigFromExplicitCredentials(t *testing.T) {
	config, err := OAuthConfig("client-id", "client-secret", "does-not-matter.json")
	require.NoError(t, err)

	assert.Equal(t, "client-id", config.ClientID)
	assert.Equal(t, "client-secret", config.ClientSecret)
	assert.Equal(t, []string{calendar.CalendarReadonlyScope}, config.Scopes)
}

func TestOAuthConfigMissingSecretFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "credentials.json")

	_, err := OAuthConfig("", "", missing)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoClientSecret)
}

func TestOAuthConfigMalformedSecretFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err := OAuthConfig("", "", path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoClientSecret)
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).UTC(),
	}

	require.NoError(t, SaveToken(path, token))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "token file must be owner-only")

	loaded, err := TokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, token.AccessToken, loaded.AccessToken)
	assert.Equal(t, token.RefreshToken, loaded.RefreshToken)
	assert.WithinDuration(t, token.Expiry, loaded.Expiry, time.Second)
}

func TestObtainReturnsStoredUnexpiredToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	stored := &oauth2.Token{
		AccessToken: "still-good",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}
	require.NoError(t, SaveToken(path, stored))

	config, err := OAuthConfig("id", "secret", "")
	require.NoError(t, err)

	// No network and no consent input should be needed.
	token, err := Obtain(context.Background(), config, path, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "still-good", token.AccessToken)
}

func TestObtainEmptyConsentCodeIsAuthError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	config, err := OAuthConfig("id", "secret", "")
	require.NoError(t, err)

	_, err = Obtain(context.Background(), config, path, strings.NewReader("\n"))
	require.Error(t, err)

	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr), "expected AuthError, got %v", err)

	// Denied consent must not persist partial state.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no token file should be written on denied consent")
}

func TestObtainCorruptTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0600))

	config, err := OAuthConfig("id", "secret", "")
	require.NoError(t, err)

	_, err = Obtain(context.Background(), config, path, strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not load token")
}
