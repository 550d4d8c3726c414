package login

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

// stubBrowser captures the auth URL instead of opening anything.
func stubBrowser(t *testing.T) <-chan string {
	t.Helper()
	urls := make(chan string, 1)
	orig := openBrowser
	openBrowser = func(u string) error {
		urls <- u
		return nil
	}
	t.Cleanup(func() { openBrowser = orig })
	return urls
}

func TestFlowDeliversToken(t *testing.T) {
	urls := stubBrowser(t)

	done := make(chan struct{})
	var token string
	var flowErr error
	go func() {
		defer close(done)
		token, flowErr = Flow(context.Background(), "https://relay.example")
	}()

	authURL := <-urls
	if !strings.HasPrefix(authURL, "https://relay.example/login?redirect_uri=") {
		t.Fatalf("auth URL = %q", authURL)
	}

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatal(err)
	}
	redirect := parsed.Query().Get("redirect_uri")
	if redirect == "" {
		t.Fatal("missing redirect_uri")
	}

	// Simulate the browser hitting the callback after login.
	resp, err := http.Get(redirect + "?token=tok-abc")
	if err != nil {
		t.Fatalf("callback request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("callback status = %d", resp.StatusCode)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("flow did not finish")
	}
	if flowErr != nil {
		t.Fatalf("Flow: %v", flowErr)
	}
	if token != "tok-abc" {
		t.Errorf("token = %q", token)
	}
}

func TestFlowRejectsMissingToken(t *testing.T) {
	urls := stubBrowser(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := Flow(ctx, "https://relay.example")
		done <- err
	}()

	authURL := <-urls
	parsed, _ := url.Parse(authURL)
	redirect := parsed.Query().Get("redirect_uri")

	resp, err := http.Get(redirect)
	if err != nil {
		t.Fatalf("callback request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	// The flow keeps waiting until cancelled.
	cancel()
	if err := <-done; err == nil {
		t.Error("expected error after cancel")
	}
}

func TestFlowTimesOut(t *testing.T) {
	stubBrowser(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if _, err := Flow(ctx, "https://relay.example"); err == nil {
		t.Error("expected timeout error")
	}
}
