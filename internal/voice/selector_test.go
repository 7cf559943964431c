package voice

import "testing"

func testPair() Pair {
	return Pair{
		RegionalVoice:  "hi-IN-SwaraNeural",
		RegionalLocale: "hi-in",
		DefaultVoice:   "en-US-AriaNeural",
		DefaultLocale:  "en-US",
	}
}

func TestNewSelector(t *testing.T) {
	s, err := NewSelector(testPair())
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}
	p := s.Pair()
	if p.Script != DefaultScript {
		t.Errorf("Script = %q, want %q", p.Script, DefaultScript)
	}
	if p.RegionalLocale != "hi-IN" {
		t.Errorf("RegionalLocale = %q, want canonical %q", p.RegionalLocale, "hi-IN")
	}

	bad := testPair()
	bad.Script = "Klingon"
	if _, err := NewSelector(bad); err == nil {
		t.Error("expected error for unknown script")
	}

	bad = testPair()
	bad.DefaultLocale = "not a locale!"
	if _, err := NewSelector(bad); err == nil {
		t.Error("expected error for invalid locale")
	}

	bad = testPair()
	bad.RegionalVoice = ""
	if _, err := NewSelector(bad); err == nil {
		t.Error("expected error for missing voice")
	}
}

func TestAssign(t *testing.T) {
	s, err := NewSelector(testPair())
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}

	chunks := s.Assign([]string{"Hello there.", "नमस्ते दुनिया", "Mixed नमस्ते text"})
	if len(chunks) != 3 {
		t.Fatalf("Assign() returned %d chunks, want 3", len(chunks))
	}

	want := []struct {
		regional bool
		voice    string
		locale   string
	}{
		{false, "en-US-AriaNeural", "en-US"},
		{true, "hi-IN-SwaraNeural", "hi-IN"},
		{true, "hi-IN-SwaraNeural", "hi-IN"},
	}
	for i, w := range want {
		c := chunks[i]
		if c.Index != i {
			t.Errorf("chunk %d Index = %d", i, c.Index)
		}
		if c.Regional != w.regional || c.VoiceID != w.voice || c.Locale != w.locale {
			t.Errorf("chunk %d = %+v, want regional=%v voice=%s locale=%s", i, c, w.regional, w.voice, w.locale)
		}
	}

	if got := s.Assign(nil); got != nil {
		t.Errorf("Assign(nil) = %v, want nil", got)
	}
}

func TestOtherScript(t *testing.T) {
	p := testPair()
	p.Script = "Tamil"
	s, err := NewSelector(p)
	if err != nil {
		t.Fatalf("NewSelector() error = %v", err)
	}
	if !s.IsRegional("வணக்கம்") {
		t.Error("expected Tamil text to be regional")
	}
	if s.IsRegional("नमस्ते") {
		t.Error("Devanagari must not match a Tamil selector")
	}
}
