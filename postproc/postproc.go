// Package postproc reshapes raw transcripts with an LLM before they are
// injected. Cleanup mode strips filler and fixes punctuation without
// changing meaning; instruct mode treats the transcript as an instruction
// and returns its result.
package postproc

import (
	"context"
	"fmt"
)

type Mode string

const (
	ModeCleanup  Mode = "cleanup"
	ModeInstruct Mode = "instruct"
)

const cleanupPrompt = `You clean up raw speech-to-text transcripts. Remove filler words, false starts and repeated words, fix punctuation and obvious transcription mistakes, and keep the speaker's wording and meaning intact. Reply with the cleaned text only, no commentary.`

const instructPrompt = `The transcript you receive is a spoken instruction. Carry it out and reply with the resulting text only, no commentary and no surrounding quotes.`

// systemPrompt returns the system prompt for a mode, preferring a
// user-supplied override.
func systemPrompt(mode Mode, override string) string {
	if override != "" {
		return override
	}
	if mode == ModeInstruct {
		return instructPrompt
	}
	return cleanupPrompt
}

// Processor rewrites a transcript. A failed Process call is not fatal to
// a dictation; callers fall back to the raw transcript.
type Processor interface {
	Name() string
	Process(ctx context.Context, transcript string, mode Mode) (string, error)
}

// Config selects and parameterizes a post-processing provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string

	// Prompt overrides the built-in system prompt when set.
	Prompt string
}

// New builds the provider named in cfg. Supported providers are "openai"
// and "anthropic"; an empty provider disables post-processing and
// returns nil.
func New(cfg Config) (Processor, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai post-processing requires an API key")
		}
		return NewOpenAI(cfg), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic post-processing requires an API key")
		}
		return NewAnthropic(cfg), nil
	default:
		return nil, fmt.Errorf("unknown post-processing provider %q", cfg.Provider)
	}
}
