// Package segment splits text into bounded, speakable chunks.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChars is the chunk length used when none is configured.
const DefaultMaxChars = 240

// Normalize collapses every run of whitespace to a single space and trims
// the result.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Split produces an ordered list of chunks, each at most maxChars runes,
// that together cover the normalized text. Sentences are kept whole when
// they fit; longer sentences are split on word boundaries. Empty or
// whitespace-only input yields nil.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	if runeLen(normalized) <= maxChars {
		return []string{normalized}
	}

	p := packer{max: maxChars}
	for _, sentence := range sentences(normalized) {
		if runeLen(sentence) <= maxChars {
			p.add(sentence)
			continue
		}
		for _, word := range strings.Fields(sentence) {
			if runeLen(word) <= maxChars {
				p.add(word)
				continue
			}
			// a single word longer than a chunk is the only thing we cut
			for _, piece := range hardSplit(word, maxChars) {
				p.add(piece)
			}
		}
	}
	return p.finish()
}

// packer greedily joins units with single spaces, flushing whenever the
// next unit would not fit.
type packer struct {
	max     int
	chunks  []string
	current strings.Builder
	length  int
}

func (p *packer) add(unit string) {
	n := runeLen(unit)
	if p.length > 0 && p.length+1+n > p.max {
		p.flush()
	}
	if p.length > 0 {
		p.current.WriteByte(' ')
		p.length++
	}
	p.current.WriteString(unit)
	p.length += n
}

func (p *packer) flush() {
	if p.length == 0 {
		return
	}
	p.chunks = append(p.chunks, p.current.String())
	p.current.Reset()
	p.length = 0
}

func (p *packer) finish() []string {
	p.flush()
	return p.chunks
}

// sentences splits normalized text after every run of sentence terminators.
// Terminators stay attached to their sentence.
func sentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		// swallow "?!" and "..." runs
		for i+1 < len(runes) && isTerminator(runes[i+1]) {
			i++
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func hardSplit(word string, max int) []string {
	var out []string
	runes := []rune(word)
	for len(runes) > max {
		out = append(out, string(runes[:max]))
		runes = runes[max:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
