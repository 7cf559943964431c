package local

import (
	"context"
	"errors"
	"os/exec"
	"reflect"
	"testing"

	"github.com/dgnsrekt/speakeasy/internal/ttypes"
)

func lookPathFor(available ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, a := range available {
			if a == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", exec.ErrNotFound
	}
}

func TestProbeOrder(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		want      string
	}{
		{"Prefers espeak-ng", []string{"say", "espeak-ng", "espeak"}, "espeak-ng"},
		{"Falls back to espeak", []string{"spd-say", "espeak"}, "espeak"},
		{"macOS say", []string{"say"}, "say"},
		{"speech-dispatcher", []string{"spd-say"}, "spd-say"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &CommandSynthesizer{lookPath: lookPathFor(tt.available...)}
			if err := s.Probe(); err != nil {
				t.Fatalf("Probe() error = %v", err)
			}
			if got := s.Name(); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProbeUnsupported(t *testing.T) {
	s := &CommandSynthesizer{lookPath: lookPathFor()}
	if err := s.Probe(); !errors.Is(err, ttypes.ErrUnsupported) {
		t.Fatalf("Probe() error = %v, want %v", err, ttypes.ErrUnsupported)
	}
	if _, err := s.Speak(context.Background(), "hi", "", ""); !errors.Is(err, ttypes.ErrUnsupported) {
		t.Errorf("Speak() error = %v, want %v", err, ttypes.ErrUnsupported)
	}
	if s.Name() != "" {
		t.Error("Name() should be empty when nothing was found")
	}
}

func TestEngineArgs(t *testing.T) {
	tests := []struct {
		name  string
		build func(voice, lang string, rate int) []string
		voice string
		lang  string
		rate  int
		want  []string
	}{
		{"espeak voice wins", espeakArgs, "en-us", "en", 0, []string{"--stdin", "-v", "en-us"}},
		{"espeak locale", espeakArgs, "", "hi", 160, []string{"--stdin", "-v", "hi", "-s", "160"}},
		{"espeak bare", espeakArgs, "", "", 0, []string{"--stdin"}},
		{"say ignores locale", sayArgs, "", "en", 0, []string{"-f", "-"}},
		{"say voice", sayArgs, "Lekha", "hi", 180, []string{"-f", "-", "-v", "Lekha", "-r", "180"}},
		{"spd-say", spdArgs, "female1", "hi", 175, []string{"-e", "-w", "-l", "hi", "-y", "female1", "-r", "0"}},
		{"spd-say clamps", spdArgs, "", "", 1000, []string{"-e", "-w", "-r", "100"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build(tt.voice, tt.lang, tt.rate); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("args = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBaseLanguage(t *testing.T) {
	tests := map[string]string{
		"":      "",
		"hi-IN": "hi",
		"en-US": "en",
		"EN":    "en",
	}
	for in, want := range tests {
		if got := baseLanguage(in); got != want {
			t.Errorf("baseLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
