package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melon/internal/shared"
)

// LoopbackConsent satisfies auth.Consent by listening on the redirect URI's host and port.
type LoopbackConsent struct {
	RedirectURI string
	// Open presents the authorization URL to the user. Defaults to [shared.OpenBrowser].
	Open func(url string) error
	// Prompt receives the authorization URL when the browser cannot be opened. Defaults to stderr.
	Prompt io.Writer
	Logger *log.Logger
}

// Authorize serves exactly one callback and returns its full URL.
func (c *LoopbackConsent) Authorize(ctx context.Context, authURL string) (string, error) {
	redirect, err := url.Parse(c.RedirectURI)
	if err != nil || redirect.Host == "" {
		return "", fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, c.RedirectURI)
	}

	logger := c.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	open := c.Open
	if open == nil {
		open = shared.OpenBrowser
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	handler := NewCallbackHandler(redirect.Scheme+"://"+redirect.Host, redirect.Path)
	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handler(handler)

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("callback server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("waiting for authorization", "callback", redirect.Host+redirect.Path)
	if err := open(authURL); err != nil {
		logger.Warn("could not open browser, visit the URL manually", "error", err)
		prompt := c.Prompt
		if prompt == nil {
			prompt = os.Stderr
		}
		fmt.Fprintf(prompt, "\n%s\n\n", authURL)
	}

	select {
	case u := <-handler.Result():
		return u, nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", shared.ErrTimeout, ctx.Err())
	}
}
