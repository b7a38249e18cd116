package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"osmedit/internal/config"
	"osmedit/internal/logging"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// OAuth endpoints per environment. The dev sandbox has its own identity
// provider; tokens are not interchangeable with production.
const (
	prodAuthURL  = "https://www.openstreetmap.org/oauth2/authorize"
	prodTokenURL = "https://www.openstreetmap.org/oauth2/token"
	devAuthURL   = "https://master.apis.dev.openstreetmap.org/oauth2/authorize"
	devTokenURL  = "https://master.apis.dev.openstreetmap.org/oauth2/token"

	oauthScopes = "read_prefs write_api write_notes"
)

const (
	keyringAccessToken  = "access_token"
	keyringRefreshToken = "refresh_token"
)

// TokenStore persists OAuth tokens in the system keyring with a JSON file
// fallback for environments without one (headless servers, CI).
type TokenStore struct {
	service  string
	filePath string
	logger   *logging.AppLogger
}

func NewTokenStore(cfg *config.Config, logger *logging.AppLogger) *TokenStore {
	file := ".osm_token_prod.json"
	if cfg.UseDevAPI {
		file = ".osm_token_dev.json"
	}
	return &TokenStore{service: cfg.KeyringService(), filePath: file, logger: logger}
}

// Save writes the token to the keyring and the backup file. Keyring failure
// is downgraded to a log entry as long as the file write succeeds.
func (ts *TokenStore) Save(tok *oauth2.Token) error {
	if err := keyring.Set(ts.service, keyringAccessToken, tok.AccessToken); err != nil {
		ts.logger.Warn("Failed to store access token in keyring, relying on token file", "error", err)
	} else if tok.RefreshToken != "" {
		if err := keyring.Set(ts.service, keyringRefreshToken, tok.RefreshToken); err != nil {
			ts.logger.Warn("Failed to store refresh token in keyring", "error", err)
		}
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(ts.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Load returns the saved token. The file is preferred because it carries the
// expiry; the keyring only holds the raw token strings.
func (ts *TokenStore) Load() (*oauth2.Token, error) {
	if data, err := os.ReadFile(ts.filePath); err == nil {
		var tok oauth2.Token
		if err := json.Unmarshal(data, &tok); err == nil && tok.AccessToken != "" {
			return &tok, nil
		}
	}

	access, err := keyring.Get(ts.service, keyringAccessToken)
	if err != nil {
		return nil, fmt.Errorf("no saved token: %w", err)
	}
	tok := &oauth2.Token{AccessToken: access}
	if refresh, err := keyring.Get(ts.service, keyringRefreshToken); err == nil {
		tok.RefreshToken = refresh
	}
	return tok, nil
}

// Clear removes saved credentials from both stores.
func (ts *TokenStore) Clear() error {
	_ = keyring.Delete(ts.service, keyringAccessToken)
	_ = keyring.Delete(ts.service, keyringRefreshToken)
	if err := os.Remove(ts.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// Authenticator drives the OAuth 2.0 authorization-code flow against the OSM
// identity provider. The protocol is fully delegated to golang.org/x/oauth2.
type Authenticator struct {
	cfg    *config.Config
	oauth  *oauth2.Config
	store  *TokenStore
	logger *logging.AppLogger
}

func NewAuthenticator(cfg *config.Config, logger *logging.AppLogger) *Authenticator {
	authURL, tokenURL := prodAuthURL, prodTokenURL
	if cfg.UseDevAPI {
		authURL, tokenURL = devAuthURL, devTokenURL
	}
	return &Authenticator{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURI,
			Scopes:       []string{oauthScopes},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		store:  NewTokenStore(cfg, logger),
		logger: logger,
	}
}

// AuthorizationURL returns the URL the user must visit to authorize the
// client.
func (a *Authenticator) AuthorizationURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token and persists it.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	if err := a.store.Save(tok); err != nil {
		return nil, err
	}
	a.logger.Info("OAuth token saved", "service", a.store.service)
	return tok, nil
}

// HTTPClient returns an http.Client that authenticates requests with the
// saved token, refreshing it as needed. Returns an error when no token is
// saved.
func (a *Authenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	tok, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, a.oauth.TokenSource(ctx, tok)), nil
}

// HasToken reports whether credentials are saved for the active
// environment.
func (a *Authenticator) HasToken() bool {
	_, err := a.store.Load()
	return err == nil
}

// Store exposes the token store, mainly for the auth CLI commands.
func (a *Authenticator) Store() *TokenStore {
	return a.store
}
