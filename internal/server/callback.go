package server

import (
	"fmt"
	"net/http"
	"sync"
)

// CallbackHandler captures the first authorization redirect it receives.
type CallbackHandler struct {
	path   string
	base   string
	result chan string
	once   sync.Once
	mu     sync.Mutex
	hit    bool
}

// NewCallbackHandler creates a handler for path. base (scheme://host:port) is prefixed to the captured request URI.
func NewCallbackHandler(base, path string) *CallbackHandler {
	if path == "" {
		path = "/"
	}
	return &CallbackHandler{path: path, base: base, result: make(chan string, 1)}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP records the full callback URL and shows a page telling the user to return to the terminal.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	h.send(h.base + r.URL.RequestURI())

	title, message := "Authorization Complete", "You can close this window and return to the terminal."
	if r.URL.Query().Get("error") != "" {
		title, message = "Authorization Declined", "melon was not granted access. You can close this window."
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, callbackPage, title, title, message)
}

func (h *CallbackHandler) send(u string) {
	h.once.Do(func() {
		h.result <- u
		close(h.result)
	})
}

// Result receives exactly one callback URL and is then closed.
func (h *CallbackHandler) Result() <-chan string {
	return h.result
}

const callbackPage = `<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #fdf2f4; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #e2445c; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>🍉 %s</h1>
        <p>%s</p>
    </div>
</body>
</html>
`
