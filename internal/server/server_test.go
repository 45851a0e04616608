package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charismamove/apiserver/config"
	"github.com/charismamove/apiserver/internal/auth"
	"github.com/charismamove/apiserver/internal/handlers"
	"github.com/charismamove/apiserver/internal/services"
)

func newTestRouter() http.Handler {
	svc := handlers.Services{
		Auth: services.NewAuthService(nil, auth.NewIssuer("secret", time.Hour)),
	}
	return NewRouter(config.CORSConfig{Origins: []string{"https://app.example.com"}}, svc)
}

func TestRouterOperationalEndpoints(t *testing.T) {
	srv := httptest.NewServer(newTestRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "charisma_move_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}

	resp, err = http.Get(srv.URL + "/api/bookings")
	if err != nil {
		t.Fatalf("bookings: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected protected route to require a token, got %d", resp.StatusCode)
	}
}

func TestRouterCORS(t *testing.T) {
	srv := httptest.NewServer(newTestRouter())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/bookings", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}

	req, _ = http.NewRequest(http.MethodOptions, srv.URL+"/api/bookings", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin for a foreign site %q", got)
	}
}
