package transcriber

import (
	"context"
	"errors"

	"github.com/halz/chotto-voice/relay"
)

// Relay transcribes through the hosted backend, metered in credits.
type Relay struct {
	client *relay.Client
	lang   string
}

func NewRelay(baseURL, token string) *Relay {
	return &Relay{client: relay.NewClient(baseURL, token)}
}

func (r *Relay) Name() string { return "relay" }

func (r *Relay) SetLanguage(lang string) { r.lang = lang }

func (r *Relay) GetLanguage() string { return r.lang }

func (r *Relay) Transcribe(ctx context.Context, audioData []byte, format string) (*Result, error) {
	res, err := r.client.Transcribe(ctx, audioData, format, r.lang)
	if err != nil {
		var apiErr *relay.APIError
		if errors.As(err, &apiErr) {
			return nil, classifyStatus("relay", apiErr.Status, []byte(apiErr.Message))
		}
		return nil, classifyTransport("relay", err)
	}
	return &Result{
		Text:             res.Text,
		Duration:         res.DurationSeconds,
		CreditsRemaining: res.CreditsRemaining,
	}, nil
}
