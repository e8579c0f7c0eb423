package spaces

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/storage"
)

func testStore(t *testing.T) *storage.CredentialStore {
	t.Helper()
	db, err := storage.Open(storage.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return storage.NewCredentialStore(db)
}

func TestAuthURL(t *testing.T) {
	o := NewOAuth(OAuthConfig{
		ClientID:    "client-123",
		RedirectURL: "http://localhost:8085/oauth/callback",
	}, testStore(t))

	u, err := url.Parse(o.AuthURL("state-1"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "client-123" || q.Get("state") != "state-1" {
		t.Errorf("query = %v", q)
	}
	if q.Get("access_type") != "offline" || q.Get("prompt") != "consent" {
		t.Errorf("offline consent not requested: %v", q)
	}
	for _, scope := range ReadonlyScopes {
		if !strings.Contains(q.Get("scope"), scope) {
			t.Errorf("scope %q missing from %q", scope, q.Get("scope"))
		}
	}
}

func TestTokenPersistence(t *testing.T) {
	o := NewOAuth(OAuthConfig{ClientID: "c"}, testStore(t))

	_, err := o.LoadToken()
	if !errors.Is(err, core.ErrNotConfigured) {
		t.Fatalf("got %v, want ErrNotConfigured", err)
	}

	expiry := time.Date(2024, 1, 15, 15, 30, 0, 0, time.UTC)
	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: expiry}
	if err := o.SaveToken(want); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	got, err := o.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if got.AccessToken != "access" || got.RefreshToken != "refresh" || !got.Expiry.Equal(expiry) {
		t.Errorf("got %+v", got)
	}
}

func TestHTTPClientRequiresToken(t *testing.T) {
	o := NewOAuth(OAuthConfig{ClientID: "c"}, testStore(t))
	if _, err := o.HTTPClient(context.Background()); !errors.Is(err, core.ErrNotConfigured) {
		t.Errorf("got %v, want ErrNotConfigured", err)
	}
}

func TestLocalAuthServerCallback(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
		wantErr  bool
	}{
		{"success", "state=abc&code=the-code", "the-code", false},
		{"state mismatch", "state=other&code=the-code", "", true},
		{"denied", "state=abc&error=access_denied", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewLocalAuthServer("abc")
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/callback?"+tt.query, nil))

			code, err := s.WaitForCode(context.Background(), time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
			if tt.wantErr && rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d", rec.Code)
			}
		})
	}
}
