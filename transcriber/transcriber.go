// Package transcriber turns recorded audio into text through a
// speech-to-text provider. Providers take the complete encoded recording
// in one call; there is no streaming path.
package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// NetworkMetrics breaks down where time went during a provider request.
type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

// Result is a completed transcription.
type Result struct {
	Text      string
	Duration  float64
	Metrics   *NetworkMetrics
	RateLimit string

	// CreditsRemaining is set by providers that meter usage; -1 means
	// the provider does not report it.
	CreditsRemaining float64
}

// Transcriber converts an encoded audio recording to text. Implementations
// must be safe for use from a single worker goroutine at a time.
type Transcriber interface {
	Name() string
	SetLanguage(lang string)
	GetLanguage() string

	// Transcribe sends the full recording and blocks until the provider
	// responds or ctx is done. format is the container name ("wav", "flac").
	Transcribe(ctx context.Context, audioData []byte, format string) (*Result, error)
}

type baseTranscriber struct {
	client *TracedClient
	apiURL string
	lang   string
}

func (b *baseTranscriber) SetLanguage(lang string) { b.lang = lang }

func (b *baseTranscriber) GetLanguage() string { return b.lang }

// New builds the provider named in cfg. Supported providers are "relay",
// "openai" and "groq".
func New(cfg Config) (Transcriber, error) {
	var t Transcriber
	switch cfg.Provider {
	case "relay":
		if cfg.Token == "" {
			return nil, fmt.Errorf("relay transcription requires a login token")
		}
		t = NewRelay(cfg.BaseURL, cfg.Token)
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai transcription requires an API key")
		}
		t = NewOpenAI(cfg.APIKey)
	case "groq":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("groq transcription requires an API key")
		}
		t = NewGroq(cfg.APIKey)
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Provider)
	}
	if cfg.Language != "" {
		t.SetLanguage(cfg.Language)
	}
	return t, nil
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider string
	APIKey   string
	Token    string
	BaseURL  string
	Language string
}
