// Package relay talks to the hosted backend that fronts speech and LLM
// providers for users without their own API keys. All requests carry the
// account's bearer token; usage is metered in credits.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://api.chottovoice.app"

// APIError is a non-2xx response from the relay.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("relay returned %d: %s", e.Status, e.Message)
}

// Client is a thin HTTP client for the relay API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// BaseURL returns the relay endpoint this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// SetToken replaces the bearer token, e.g. after a fresh login.
func (c *Client) SetToken(token string) { c.token = token }

// Account describes the logged-in user.
type Account struct {
	Email   string  `json:"email"`
	Plan    string  `json:"plan"`
	Credits float64 `json:"credits"`
}

// LoginWithToken validates a token obtained from the browser login flow
// and returns the account it belongs to.
func (c *Client) LoginWithToken(ctx context.Context, token string) (*Account, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, err
	}
	var acct Account
	if err := c.doJSON(ctx, "POST", "/api/login_with_token", bytes.NewReader(body), "application/json", &acct); err != nil {
		return nil, err
	}
	c.token = token
	return &acct, nil
}

// Me returns the current account.
func (c *Client) Me(ctx context.Context) (*Account, error) {
	var acct Account
	if err := c.doJSON(ctx, "GET", "/api/me", nil, "", &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Credits returns the remaining credit balance.
func (c *Client) Credits(ctx context.Context) (float64, error) {
	var resp struct {
		Credits float64 `json:"credits"`
	}
	if err := c.doJSON(ctx, "GET", "/api/credits", nil, "", &resp); err != nil {
		return 0, err
	}
	return resp.Credits, nil
}

// Package is a purchasable credit bundle.
type Package struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Credits    float64 `json:"credits"`
	PriceCents int     `json:"price_cents"`
}

func (c *Client) Packages(ctx context.Context) ([]Package, error) {
	var resp struct {
		Packages []Package `json:"packages"`
	}
	if err := c.doJSON(ctx, "GET", "/api/packages", nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Packages, nil
}

// Checkout starts a purchase for the given package and returns the URL
// to open in the user's browser.
func (c *Client) Checkout(ctx context.Context, packageID string) (string, error) {
	body, err := json.Marshal(map[string]string{"package_id": packageID})
	if err != nil {
		return "", err
	}
	var resp struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if err := c.doJSON(ctx, "POST", "/api/checkout", bytes.NewReader(body), "application/json", &resp); err != nil {
		return "", err
	}
	return resp.CheckoutURL, nil
}

// VerifyPayment polls a checkout session and reports whether it has been
// paid, returning the new balance when it has.
func (c *Client) VerifyPayment(ctx context.Context, sessionID string) (paid bool, credits float64, err error) {
	body, err := json.Marshal(map[string]string{"session_id": sessionID})
	if err != nil {
		return false, 0, err
	}
	var resp struct {
		Paid    bool    `json:"paid"`
		Credits float64 `json:"credits"`
	}
	if err := c.doJSON(ctx, "POST", "/api/verify_payment", bytes.NewReader(body), "application/json", &resp); err != nil {
		return false, 0, err
	}
	return resp.Paid, resp.Credits, nil
}

// TranscribeResult is the relay's answer to a transcription request.
type TranscribeResult struct {
	Text             string  `json:"text"`
	DurationSeconds  float64 `json:"duration_seconds"`
	CreditsRemaining float64 `json:"credits_remaining"`
}

// Transcribe uploads an encoded recording and returns its transcript.
// A 402 APIError means the account is out of credits.
func (c *Client) Transcribe(ctx context.Context, audioData []byte, format, language string) (*TranscribeResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "audio."+format)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, err
	}
	if language != "" {
		writer.WriteField("language", language)
	}
	writer.Close()

	var result TranscribeResult
	if err := c.doJSON(ctx, "POST", "/api/transcribe", &buf, writer.FormDataContentType(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: apiMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding relay response: %w", err)
	}
	return nil
}

// apiMessage pulls the "detail" or "error" field out of an error body,
// falling back to the raw text.
func apiMessage(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
