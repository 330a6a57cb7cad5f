package credentials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStatic_Credential(t *testing.T) {
	t.Parallel()

	cred, err := Static{Token: "api-key", Model: "models/m"}.Credential(context.Background())
	if err != nil {
		t.Fatalf("Credential error: %v", err)
	}
	if cred.Token != "api-key" || cred.Model != "models/m" {
		t.Fatalf("cred=%+v", cred)
	}
	if cred.Ephemeral {
		t.Fatal("static credentials must be reusable")
	}

	if _, err := (Static{}).Credential(context.Background()); err == nil {
		t.Fatal("empty static token must error")
	}
}

func TestHTTPSource_FetchesEphemeralToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/token" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok-abc","model":"models/live","expiresAt":"` +
			time.Now().Add(30*time.Minute).Format(time.RFC3339) + `"}`))
	}))
	t.Cleanup(server.Close)

	source := NewHTTPSource(server.URL, nil)
	cred, err := source.Credential(context.Background())
	if err != nil {
		t.Fatalf("Credential error: %v", err)
	}
	if cred.Token != "tok-abc" || cred.Model != "models/live" {
		t.Fatalf("cred=%+v", cred)
	}
	if !cred.Ephemeral {
		t.Fatal("minted tokens must be marked ephemeral")
	}
}

func TestHTTPSource_ServerErrorSurfaces(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "signing key missing", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	if _, err := NewHTTPSource(server.URL, nil).Credential(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestHTTPSource_EmptyTokenRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token":"","model":"models/live"}`))
	}))
	t.Cleanup(server.Close)

	if _, err := NewHTTPSource(server.URL, nil).Credential(context.Background()); err == nil {
		t.Fatal("expected error for empty token")
	}
}
