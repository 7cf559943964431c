package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/dgnsrekt/speakeasy/internal/ttypes"
)

// voiceIDFields are tried in order to find an entry's identifier.
var voiceIDFields = []string{"id", "voice_id", "voiceId", "voice", "code", "name", "short_name", "ShortName"}

// Voices lists the voice identifiers the endpoint supports. The response
// may be an array or an object with a "voices" array; entries may be
// strings or objects.
func (b *Backend) Voices(ctx context.Context) ([]string, error) {
	data, err := b.fetch(ctx, b.endpoint(b.cfg.VoicesPath, url.Values{}))
	if err != nil {
		return nil, err
	}
	ids, err := ParseVoices(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ttypes.ErrNetwork, err)
	}
	return ids, nil
}

// ParseVoices extracts voice identifiers from a voice list payload,
// dropping entries without one and repeats.
func ParseVoices(data []byte) ([]string, error) {
	data = bytes.TrimSpace(data)

	var entries []json.RawMessage
	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Voices []json.RawMessage `json:"voices"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("parse voice list: %w", err)
		}
		entries = wrapper.Voices
	} else if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse voice list: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	ids := make([]string, 0, len(entries))
	for _, raw := range entries {
		id := voiceID(raw)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func voiceID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for _, field := range voiceIDFields {
		if v, ok := obj[field].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
