package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/shared"
	"golang.org/x/oauth2"
)

const (
	defaultExpiresIn = 3600 * time.Second
	expiryMargin     = 60 * time.Second
)

// Consent drives the interactive part of the flow: it sends the user to authURL and returns the URL the
// authorization server redirected back to.
type Consent interface {
	Authorize(ctx context.Context, authURL string) (redirectURL string, err error)
}

// ConsentFunc adapts a function to [Consent].
type ConsentFunc func(ctx context.Context, authURL string) (string, error)

func (f ConsentFunc) Authorize(ctx context.Context, authURL string) (string, error) {
	return f(ctx, authURL)
}

// Options configures an [Authenticator].
type Options struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	AuthURL     string
	TokenURL    string

	Store      Store
	Consent    Consent
	HTTPClient *http.Client
	Logger     *log.Logger
	Now        func() time.Time
}

// Authenticator obtains and refreshes Spotify credentials for a public (secretless) client.
type Authenticator struct {
	config  *oauth2.Config
	store   Store
	consent Consent
	client  *http.Client
	logger  *log.Logger
	now     func() time.Time
}

// NewAuthenticator creates an [Authenticator]. Store defaults to a [MemoryStore].
func NewAuthenticator(opts Options) *Authenticator {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Authenticator{
		config: &oauth2.Config{
			ClientID:    opts.ClientID,
			RedirectURL: opts.RedirectURI,
			Scopes:      opts.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:   opts.Store,
		consent: opts.Consent,
		client:  opts.HTTPClient,
		logger:  shared.WithLogger(opts.Logger, "component", "auth"),
		now:     opts.Now,
	}
}

// Store returns the credential store the authenticator writes to.
func (a *Authenticator) Store() Store {
	return a.store
}

// AuthCodeURL builds the authorization request for the given state and S256 challenge.
//
// Scopes are space separated and encoded as %20.
func (a *Authenticator) AuthCodeURL(state, challenge string) string {
	u := a.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("show_dialog", "true"),
	)
	// url.Values encodes spaces as "+" and literal pluses as "%2B"
	return strings.ReplaceAll(u, "+", "%20")
}

// Authenticate runs the full interactive flow and persists the resulting credential.
//
// Any stored credential is cleared first, so a failed attempt leaves the store empty.
func (a *Authenticator) Authenticate(ctx context.Context) (*models.Credential, error) {
	if a.consent == nil {
		return nil, fmt.Errorf("%w: no consent handler configured", shared.ErrAuthRejected)
	}

	if err := a.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear stored credential: %w", err)
	}

	session, err := NewPKCESession()
	if err != nil {
		return nil, err
	}
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	a.logger.Debug("requesting authorization", "redirect_uri", a.config.RedirectURL)
	redirect, err := a.consent.Authorize(ctx, a.AuthCodeURL(state, session.Challenge))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthRejected, err)
	}

	code, err := parseRedirect(redirect, state)
	if err != nil {
		return nil, err
	}

	tok, err := a.config.Exchange(a.clientContext(ctx), code, oauth2.VerifierOption(session.Verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrTokenExchangeFailed, describeTokenError(err))
	}

	cred := a.credential(tok, "")
	if err := a.store.Set(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	a.logger.Info("authenticated", "expires_at", time.UnixMilli(cred.ExpiresAt).Format(time.RFC3339))
	return &cred, nil
}

// Refresh exchanges refreshToken for a new access token and persists the result.
//
// The previous refresh token is kept when the response carries none.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*models.Credential, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, shared.ErrNoRefreshToken)
	}

	tok, err := a.config.TokenSource(a.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrRefreshFailed, describeTokenError(err))
	}

	cred := a.credential(tok, refreshToken)
	if err := a.store.Set(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	a.logger.Debug("access token refreshed")
	return &cred, nil
}

// ValidToken returns a usable access token, refreshing when the stored one has expired.
//
// Returns "" when no credential is stored or the refresh fails; the failure is logged, never returned.
func (a *Authenticator) ValidToken(ctx context.Context) string {
	cred, err := a.store.Get(ctx)
	if err != nil {
		a.logger.Warn("failed to read credential", "error", err)
		return ""
	}
	if cred == nil {
		return ""
	}

	if cred.Usable(a.now()) {
		return cred.AccessToken
	}
	if cred.RefreshToken == "" {
		return ""
	}

	refreshed, err := a.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		a.logger.Warn("refresh failed", "error", err)
		return ""
	}
	return refreshed.AccessToken
}

// Logout removes the stored credential.
func (a *Authenticator) Logout(ctx context.Context) error {
	return a.store.Clear(ctx)
}

func (a *Authenticator) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.client)
}

// credential converts a token response. ExpiresAt = now + expires_in - 60s, expires_in defaulting to an hour.
func (a *Authenticator) credential(tok *oauth2.Token, previousRefresh string) models.Credential {
	ttl := expiresIn(tok)
	if ttl <= 0 {
		ttl = defaultExpiresIn
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}

	return models.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    a.now().Add(ttl - expiryMargin).UnixMilli(),
	}
}

// expiresIn reads the raw expires_in field; JSON bodies decode it as float64, form bodies as string.
func expiresIn(tok *oauth2.Token) time.Duration {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return time.Duration(n) * time.Second
	default:
		return 0
	}
}

// parseRedirect checks the callback URL and returns the authorization code.
func parseRedirect(redirect, state string) (string, error) {
	u, err := url.Parse(redirect)
	if err != nil {
		return "", fmt.Errorf("%w: malformed redirect: %v", shared.ErrAuthRejected, err)
	}
	q := u.Query()

	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("%w: %s", shared.ErrAuthRejected, e)
	}
	if q.Get("state") != state {
		return "", fmt.Errorf("%w: state mismatch", shared.ErrAuthRejected)
	}

	code := q.Get("code")
	if code == "" {
		return "", shared.ErrMissingCode
	}
	return code, nil
}

// describeTokenError prefers the endpoint's error_description, then its error code.
func describeTokenError(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorDescription != "" {
			return re.ErrorDescription
		}
		if re.ErrorCode != "" {
			return re.ErrorCode
		}
		if re.Response != nil {
			return re.Response.Status
		}
	}
	return err.Error()
}
