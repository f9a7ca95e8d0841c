package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/afterword/vaultword/internal/common"
)

func TestHTTPVerifier_ResolvesAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("unexpected apikey header %q", got)
		}
		w.Write([]byte(`{"id":"acct-1"}`))
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "anon-key", time.Second)
	got, err := v.VerifyCredential(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("VerifyCredential error: %v", err)
	}
	if got != "acct-1" {
		t.Fatalf("expected acct-1, got %q", got)
	}
}

func TestHTTPVerifier_RejectedCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "anon-key", time.Second)
	_, err := v.VerifyCredential(context.Background(), "bad-token")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestHTTPVerifier_EmptyAccountID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "anon-key", time.Second)
	_, err := v.VerifyCredential(context.Background(), "tok")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestHTTPVerifier_ProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "anon-key", time.Second)
	_, err := v.VerifyCredential(context.Background(), "tok")
	if !errors.Is(err, common.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestHTTPVerifier_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "anon-key", 20*time.Millisecond)
	_, err := v.VerifyCredential(context.Background(), "tok")
	if !errors.Is(err, common.ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
}
