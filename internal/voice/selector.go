// Package voice classifies chunk text by script and assigns synthesis voices.
package voice

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dgnsrekt/speakeasy/internal/ttypes"
	"golang.org/x/text/language"
)

// DefaultScript is the regional script used when none is configured.
const DefaultScript = "Devanagari"

// Pair maps the two script classes to voices. It is injected from
// configuration so one orchestrator can serve any locale pair.
type Pair struct {
	RegionalVoice  string
	RegionalLocale string
	DefaultVoice   string
	DefaultLocale  string

	// Script is a Unicode script name from unicode.Scripts, e.g. "Devanagari".
	Script string
}

// Selector tags chunks with a voice and locale.
type Selector struct {
	pair  Pair
	table *unicode.RangeTable
}

// NewSelector validates the pair and resolves its script range.
func NewSelector(p Pair) (*Selector, error) {
	if strings.TrimSpace(p.Script) == "" {
		p.Script = DefaultScript
	}
	table, ok := unicode.Scripts[p.Script]
	if !ok {
		return nil, fmt.Errorf("unknown unicode script %q", p.Script)
	}
	if p.RegionalVoice == "" || p.DefaultVoice == "" {
		return nil, fmt.Errorf("both regional and default voices are required")
	}

	var err error
	if p.RegionalLocale, err = canonicalLocale(p.RegionalLocale); err != nil {
		return nil, fmt.Errorf("regional locale: %w", err)
	}
	if p.DefaultLocale, err = canonicalLocale(p.DefaultLocale); err != nil {
		return nil, fmt.Errorf("default locale: %w", err)
	}

	return &Selector{pair: p, table: table}, nil
}

// Pair returns the resolved voice pair.
func (s *Selector) Pair() Pair {
	return s.pair
}

// IsRegional reports whether text contains any rune of the regional script.
func (s *Selector) IsRegional(text string) bool {
	for _, r := range text {
		if unicode.Is(s.table, r) {
			return true
		}
	}
	return false
}

// Assign tags each text with its classification, voice and locale,
// preserving order.
func (s *Selector) Assign(texts []string) []ttypes.Chunk {
	if len(texts) == 0 {
		return nil
	}
	chunks := make([]ttypes.Chunk, 0, len(texts))
	for i, text := range texts {
		c := ttypes.Chunk{
			Index:   i,
			Text:    text,
			VoiceID: s.pair.DefaultVoice,
			Locale:  s.pair.DefaultLocale,
		}
		if s.IsRegional(text) {
			c.Regional = true
			c.VoiceID = s.pair.RegionalVoice
			c.Locale = s.pair.RegionalLocale
		}
		chunks = append(chunks, c)
	}
	return chunks
}

func canonicalLocale(tag string) (string, error) {
	if strings.TrimSpace(tag) == "" {
		return "", nil
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("invalid locale %q: %w", tag, err)
	}
	return t.String(), nil
}
