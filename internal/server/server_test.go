package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/melon/internal/shared"
)

func TestBasicRouter(t *testing.T) {
	t.Run("method filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle("get", "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "pong")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
			t.Errorf("GET /ping = %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST /ping = %d, want 405", rec.Code)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if got := strings.Join(order, ","); got != "first,second,handler" {
			t.Errorf("order = %s", got)
		}
	})
}

func TestCallbackHandler(t *testing.T) {
	t.Run("captures first callback", func(t *testing.T) {
		h := NewCallbackHandler("http://127.0.0.1:3000", "/callback")
		router := NewBasicRouter()
		router.Handler(h)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=xyz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Authorization Complete") {
			t.Errorf("unexpected page: %s", rec.Body.String())
		}

		select {
		case got := <-h.Result():
			if got != "http://127.0.0.1:3000/callback?code=abc&state=xyz" {
				t.Errorf("captured %q", got)
			}
		default:
			t.Fatal("expected a captured URL")
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=again", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("second callback = %d, want 400", rec.Code)
		}
	})

	t.Run("declined", func(t *testing.T) {
		h := NewCallbackHandler("http://127.0.0.1:3000", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied", nil))
		if !strings.Contains(rec.Body.String(), "Authorization Declined") {
			t.Errorf("unexpected page: %s", rec.Body.String())
		}
		if got := <-h.Result(); !strings.HasSuffix(got, "?error=access_denied") {
			t.Errorf("captured %q", got)
		}
	})
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestLoopbackConsent(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("returns callback URL", func(t *testing.T) {
		addr := freeAddr(t)
		consent := &LoopbackConsent{
			RedirectURI: "http://" + addr + "/callback",
			Logger:      logger,
			Open: func(authURL string) error {
				if authURL != "https://accounts.example.com/authorize?x=1" {
					t.Errorf("unexpected auth URL %s", authURL)
				}
				go func() {
					resp, err := http.Get("http://" + addr + "/callback?code=abc&state=s")
					if err == nil {
						resp.Body.Close()
					}
				}()
				return nil
			},
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		got, err := consent.Authorize(ctx, "https://accounts.example.com/authorize?x=1")
		if err != nil {
			t.Fatalf("Authorize() error = %v", err)
		}
		if got != "http://"+addr+"/callback?code=abc&state=s" {
			t.Errorf("Authorize() = %q", got)
		}
	})

	t.Run("prints URL when browser fails", func(t *testing.T) {
		var prompt strings.Builder
		consent := &LoopbackConsent{
			RedirectURI: "http://" + freeAddr(t) + "/callback",
			Logger:      logger,
			Prompt:      &prompt,
			Open:        func(string) error { return errors.New("no display") },
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if _, err := consent.Authorize(ctx, "https://accounts.example.com/authorize"); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(prompt.String(), "https://accounts.example.com/authorize") {
			t.Errorf("expected URL in prompt, got %q", prompt.String())
		}
	})

	t.Run("invalid redirect", func(t *testing.T) {
		consent := &LoopbackConsent{RedirectURI: "not a url", Logger: logger}
		if _, err := consent.Authorize(context.Background(), "x"); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
