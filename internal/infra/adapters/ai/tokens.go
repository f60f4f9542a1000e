package ai

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
)

// TokenCounter estimates prompt sizes with the cl100k_base BPE. When the
// encoding cannot be loaded (offline), it falls back to one token per four runes.
type TokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	log  zerolog.Logger
	load func() (*tiktoken.Tiktoken, error)
}

func NewTokenCounter(logger *zerolog.Logger) *TokenCounter {
	return &TokenCounter{
		log:  logger.With().Str("component", "TokenCounter").Logger(),
		load: func() (*tiktoken.Tiktoken, error) { return tiktoken.GetEncoding("cl100k_base") },
	}
}

// Count returns the estimated token count of text. model is accepted for
// per-model encodings; every supported model currently shares cl100k_base.
func (t *TokenCounter) Count(model, text string) int {
	if t == nil {
		return estimate(text)
	}
	t.once.Do(func() {
		if t.load == nil {
			return
		}
		enc, err := t.load()
		if err != nil {
			t.log.Warn().Err(err).Msg("tiktoken encoding unavailable; using rune estimate")
			return
		}
		t.enc = enc
	})
	if t.enc == nil {
		return estimate(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

func estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
