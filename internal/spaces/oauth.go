// Package spaces holds what the Google connectors share: the OAuth flow
// and token persistence.
package spaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"

	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/logging"
)

// GoogleProvider is the credential key for the Google token
const GoogleProvider = "google"

// ReadonlyScopes cover /schedule and /inbox
var ReadonlyScopes = []string{
	calendar.CalendarReadonlyScope,
	gmail.GmailReadonlyScope,
}

// TokenStore persists serialized tokens by provider
type TokenStore interface {
	Store(provider, tokenType string, data []byte, expiresAt *time.Time) error
	Get(provider string) ([]byte, error)
}

// OAuthConfig holds Google OAuth client settings
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// OAuth handles the Google authorization flow
type OAuth struct {
	config *oauth2.Config
	store  TokenStore
}

// NewOAuth creates an OAuth helper; no scopes means ReadonlyScopes
func NewOAuth(cfg OAuthConfig, store TokenStore) *OAuth {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = ReadonlyScopes
	}
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		store: store,
	}
}

// AuthURL returns the URL for user authorization
func (o *OAuth) AuthURL(state string) string {
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and saves it
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %w", core.ErrUpstreamFailure, err)
	}
	if err := o.SaveToken(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// SaveToken stores the token
func (o *OAuth) SaveToken(tok *oauth2.Token) error {
	data, err := TokenToJSON(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	var expires *time.Time
	if !tok.Expiry.IsZero() {
		expires = &tok.Expiry
	}
	if err := o.store.Store(GoogleProvider, tok.TokenType, data, expires); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// LoadToken returns the stored token, or core.ErrNotConfigured when the
// user has not authorized yet
func (o *OAuth) LoadToken() (*oauth2.Token, error) {
	data, err := o.store.Get(GoogleProvider)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: google account not linked", core.ErrNotConfigured)
	}
	return TokenFromJSON(data)
}

// HTTPClient returns a client authorized with the stored token.
// Refreshed tokens are written back to the store.
func (o *OAuth) HTTPClient(ctx context.Context) (*http.Client, error) {
	tok, err := o.LoadToken()
	if err != nil {
		return nil, err
	}
	src := &savingSource{base: o.config.TokenSource(ctx, tok), oauth: o, last: tok.AccessToken}
	return oauth2.NewClient(ctx, src), nil
}

// savingSource persists every new access token it hands out
type savingSource struct {
	base  oauth2.TokenSource
	oauth *OAuth

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token: %w", core.ErrUpstreamFailure, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.oauth.SaveToken(tok); err != nil {
			logging.Warn("Refreshed Google token not saved: %v", err)
		}
	}
	return tok, nil
}

// RunFlow performs the authorization with a local callback listener on
// addr and prints the URL to out.
func (o *OAuth) RunFlow(ctx context.Context, addr string, out io.Writer) (*oauth2.Token, error) {
	state := fmt.Sprintf("lifeos-%d", time.Now().UnixNano())

	srv := NewLocalAuthServer(state)
	if err := srv.Start(addr); err != nil {
		return nil, fmt.Errorf("start auth server: %w", err)
	}
	defer srv.Stop(context.Background())

	fmt.Fprintf(out, "\nOpen this URL in your browser to link Google:\n\n%s\n\n", o.AuthURL(state))
	fmt.Fprintln(out, "Waiting for authorization...")

	code, err := srv.WaitForCode(ctx, 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	return o.Exchange(ctx, code)
}

// LocalAuthServer receives the OAuth redirect
type LocalAuthServer struct {
	state    string
	server   *http.Server
	codeChan chan string
	errChan  chan error
}

// NewLocalAuthServer creates a callback server expecting state
func NewLocalAuthServer(state string) *LocalAuthServer {
	return &LocalAuthServer{
		state:    state,
		codeChan: make(chan string, 1),
		errChan:  make(chan error, 1),
	}
}

// Handler returns the callback handler
func (s *LocalAuthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", s.handleCallback)
	return mux
}

// Start listens on addr in the background
func (s *LocalAuthServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.fail(err)
		}
	}()
	return nil
}

// WaitForCode blocks until the callback arrives
func (s *LocalAuthServer) WaitForCode(ctx context.Context, timeout time.Duration) (string, error) {
	select {
	case code := <-s.codeChan:
		return code, nil
	case err := <-s.errChan:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(timeout):
		return "", fmt.Errorf("no callback received within %v", timeout)
	}
}

// Stop shuts the server down
func (s *LocalAuthServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *LocalAuthServer) fail(err error) {
	select {
	case s.errChan <- err:
	default:
	}
}

func (s *LocalAuthServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("state") != s.state {
		s.fail(errors.New("state mismatch"))
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		msg := q.Get("error")
		if msg == "" {
			msg = "unknown error"
		}
		s.fail(fmt.Errorf("oauth error: %s", msg))
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	select {
	case s.codeChan <- code:
	default:
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html><html><head><title>Life OS</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
<h1>Google подключен</h1><p>Окно можно закрыть.</p></body></html>`)
}

// TokenToJSON serializes a token to JSON
func TokenToJSON(token *oauth2.Token) ([]byte, error) {
	return json.Marshal(token)
}

// TokenFromJSON deserializes a token from JSON
func TokenFromJSON(data []byte) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &token, nil
}
