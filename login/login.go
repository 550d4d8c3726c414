// Package login runs the browser-based account handshake. It opens the
// relay's login page with a local redirect, waits for the browser to hit
// the one-shot callback listener with a token, and hands the token back
// for validation and persistence.
package login

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// openBrowser is swapped out in tests.
var openBrowser = openInBrowser

// OpenBrowser opens url in the user's default browser.
func OpenBrowser(url string) error { return openBrowser(url) }

const callbackPage = `<!DOCTYPE html>
<html><body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h2>Signed in</h2>
<p>You can close this window and return to Chotto Voice.</p>
</body></html>`

// Flow opens the browser and blocks until the user completes the login
// or ctx expires. Returns the account token.
func Flow(ctx context.Context, relayBaseURL string) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("starting callback listener: %w", err)
	}
	defer ln.Close()

	tokens := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, callbackPage)
		select {
		case tokens <- token:
		default:
		}
	})

	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	redirect := fmt.Sprintf("http://%s/callback", ln.Addr().String())
	authURL := fmt.Sprintf("%s/login?redirect_uri=%s", relayBaseURL, url.QueryEscape(redirect))
	if err := openBrowser(authURL); err != nil {
		return "", fmt.Errorf("opening browser: %w", err)
	}

	select {
	case token := <-tokens:
		return token, nil
	case <-ctx.Done():
		return "", fmt.Errorf("login not completed: %w", ctx.Err())
	}
}
