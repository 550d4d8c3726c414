package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type Groq struct {
	baseTranscriber
	apiKey string
	model  string
}

func NewGroq(apiKey string) *Groq {
	return &Groq{
		baseTranscriber: baseTranscriber{
			client: NewTracedClient(),
			apiURL: "https://api.groq.com/openai/v1/audio/transcriptions",
		},
		apiKey: apiKey,
		model:  "whisper-large-v3-turbo",
	}
}

func (g *Groq) Name() string { return "groq" }

type groqResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

func (g *Groq) Transcribe(ctx context.Context, audioData []byte, format string) (*Result, error) {
	body, contentType, err := buildMultipart(audioData, format, g.model, "verbose_json", g.lang)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.apiURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, classifyTransport("groq", err)
	}
	if resp.StatusCode != 200 {
		return nil, classifyStatus("groq", resp.StatusCode, resp.Body)
	}

	var gResp groqResponse
	if err := json.Unmarshal(resp.Body, &gResp); err != nil {
		return nil, fmt.Errorf("%w: groq response parse error: %v", ErrProvider, err)
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")

	return &Result{
		Text:             gResp.Text,
		Duration:         gResp.Duration,
		Metrics:          resp.Metrics,
		RateLimit:        remaining + "/" + limit,
		CreditsRemaining: -1,
	}, nil
}
