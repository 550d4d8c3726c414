package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
)

type OpenAI struct {
	baseTranscriber
	apiKey string
	model  string
}

func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{
		baseTranscriber: baseTranscriber{
			client: NewTracedClient(),
			apiURL: "https://api.openai.com/v1/audio/transcriptions",
		},
		apiKey: apiKey,
		model:  "gpt-4o-transcribe",
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Transcribe(ctx context.Context, audioData []byte, format string) (*Result, error) {
	body, contentType, err := buildMultipart(audioData, format, o.model, "json", o.lang)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.apiURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, classifyTransport("openai", err)
	}
	if resp.StatusCode != 200 {
		return nil, classifyStatus("openai", resp.StatusCode, resp.Body)
	}

	var oResp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(resp.Body, &oResp); err != nil {
		return nil, fmt.Errorf("%w: openai response parse error: %v", ErrProvider, err)
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")

	return &Result{
		Text:             oResp.Text,
		Metrics:          resp.Metrics,
		RateLimit:        remaining + "/" + limit,
		CreditsRemaining: -1,
	}, nil
}

// buildMultipart assembles the multipart form shared by the OpenAI style
// transcription endpoints.
func buildMultipart(audioData []byte, format, model, responseFormat, lang string) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+format)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, "", err
	}

	writer.WriteField("model", model)
	writer.WriteField("response_format", responseFormat)
	if lang != "" {
		writer.WriteField("language", lang)
	}
	writer.Close()
	return &body, writer.FormDataContentType(), nil
}
