package google

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// ErrNoClientSecret is returned when neither environment variables nor
// the client secret file provide OAuth client credentials.
var ErrNoClientSecret = errors.New("no OAuth client credentials: set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET or provide a client secret file")

// AuthError indicates the delegated authorization flow failed: consent
// was denied, the code exchange was rejected, or a revoked refresh
// token could not be replaced.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("authorization failed: %v", e.Err) }

func (e *AuthError) Unwrap() error { return e.Err }

// OAuthConfig builds the OAuth2 config for read-only calendar access.
// An explicit client id/secret pair takes precedence; otherwise the
// client secret file at secretPath is parsed. Fails before any network
// call when neither is usable.
func OAuthConfig(clientID, clientSecret, secretPath string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(secretPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w (looked for %s)", ErrNoClientSecret, secretPath)
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file %s: %w", secretPath, err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // desktop app flow
	return config, nil
}

// Obtain returns a usable token, persisting any refreshed or newly
// consented credential at tokenPath. A stored unexpired token is
// returned unchanged; an expired one is refreshed transparently. When
// no stored credential is usable the interactive consent flow runs,
// reading the authorization code from consent.
func Obtain(ctx context.Context, config *oauth2.Config, tokenPath string, consent io.Reader) (*oauth2.Token, error) {
	token, err := TokenFromFile(tokenPath)
	if err == nil {
		if token.Valid() {
			return token, nil
		}
		if token.RefreshToken != "" {
			refreshed, refreshErr := config.TokenSource(ctx, token).Token()
			if refreshErr == nil {
				if err := SaveToken(tokenPath, refreshed); err != nil {
					return nil, fmt.Errorf("failed to save refreshed token: %w", err)
				}
				return refreshed, nil
			}
			// Refresh token revoked or endpoint unreachable; fall
			// through to interactive consent.
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load token from %s: %w", tokenPath, err)
	}

	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the "+
		"authorization code:\n%v\n", authURL)
	fmt.Print("Enter Authorization Code: ")

	code, err := readAuthCode(consent)
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	token, err = config.Exchange(ctx, code)
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	if err := SaveToken(tokenPath, token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	return token, nil
}

func readAuthCode(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	code := strings.TrimSpace(line)
	if code == "" {
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read authorization code: %w", err)
		}
		return "", errors.New("empty authorization code")
	}
	return code, nil
}

// SaveToken persists a token at path with owner-only permissions. The
// file holds the access and refresh tokens and must never be shared.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// TokenFromFile loads a previously persisted token.
func TokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
