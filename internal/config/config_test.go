package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Playback.ChunkTimeout != 3*time.Second {
		t.Errorf("ChunkTimeout = %v, want 3s", cfg.Playback.ChunkTimeout)
	}
	if cfg.Playback.ColdStartWindow != 5*time.Minute {
		t.Errorf("ColdStartWindow = %v, want 5m", cfg.Playback.ColdStartWindow)
	}
	if cfg.Playback.WarmupWindow != 10*time.Second {
		t.Errorf("WarmupWindow = %v, want 10s", cfg.Playback.WarmupWindow)
	}
	if cfg.Playback.MaxChunkChars != 240 {
		t.Errorf("MaxChunkChars = %d, want 240", cfg.Playback.MaxChunkChars)
	}
	if cfg.Playback.PreferLocalOnColdStart {
		t.Error("PreferLocalOnColdStart should be off by default")
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled by default")
	}
}

func TestDefaultIgnoresEnvironment(t *testing.T) {
	t.Setenv("SPEAKEASY_PLAYBACK_MAX_CHUNK_CHARS", "99")

	if got := Default().Playback.MaxChunkChars; got != 240 {
		t.Errorf("Default() MaxChunkChars = %d, want 240", got)
	}
}

func TestEnvNamesMatchTags(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(Config) bool
	}{
		{"cloud.base_url", "https://tts.example.com", func(c Config) bool { return c.Cloud.BaseURL == "https://tts.example.com" }},
		{"cloud.requests_per_minute", "30", func(c Config) bool { return c.Cloud.RequestsPerMinute == 30 }},
		{"local.voice", "Lekha", func(c Config) bool { return c.Local.Voice == "Lekha" }},
		{"voices.default_locale", "en-GB", func(c Config) bool { return c.Voices.DefaultLocale == "en-GB" }},
		{"playback.chunk_timeout", "5s", func(c Config) bool { return c.Playback.ChunkTimeout == 5*time.Second }},
		{"playback.prefer_local_on_cold_start", "true", func(c Config) bool { return c.Playback.PreferLocalOnColdStart }},
		{"audio.volume", "0.5", func(c Config) bool { return c.Audio.Volume == 0.5 }},
		{"cache.ttl", "1h", func(c Config) bool { return c.Cache.TTL == time.Hour }},
		{"debug", "true", func(c Config) bool { return c.Debug }},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(EnvName(tt.key), tt.value)
			cfg, err := FromEnv()
			if err != nil {
				t.Fatalf("FromEnv() error = %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("%s=%s not applied", EnvName(tt.key), tt.value)
			}
		})
	}
}

func TestEnvName(t *testing.T) {
	tests := map[string]string{
		"debug":                  "SPEAKEASY_DEBUG",
		"cloud.base_url":         "SPEAKEASY_CLOUD_BASE_URL",
		"playback.warmup_window": "SPEAKEASY_PLAYBACK_WARMUP_WINDOW",
	}
	for key, want := range tests {
		if got := EnvName(key); got != want {
			t.Errorf("EnvName(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"relative base url", func(c *Config) { c.Cloud.BaseURL = "localhost:5050" }, "base_url must be"},
		{"ftp base url", func(c *Config) { c.Cloud.BaseURL = "ftp://example.com" }, "base_url must be"},
		{"synth path without slash", func(c *Config) { c.Cloud.SynthPath = "tts" }, "paths must start"},
		{"short warmup timeout", func(c *Config) { c.Cloud.WarmupTimeout = time.Millisecond }, "warmup_timeout"},
		{"negative rate limit", func(c *Config) { c.Cloud.RequestsPerMinute = -1 }, "requests_per_minute"},
		{"local rate too high", func(c *Config) { c.Local.Rate = 1000 }, "rate must be between"},
		{"unknown script", func(c *Config) { c.Voices.Script = "Klingon" }, "unknown unicode script"},
		{"bad locale", func(c *Config) { c.Voices.DefaultLocale = "not a locale!" }, "default locale"},
		{"missing voice", func(c *Config) { c.Voices.Regional = "" }, "voices are required"},
		{"tiny chunk timeout", func(c *Config) { c.Playback.ChunkTimeout = time.Millisecond }, "chunk_timeout"},
		{"zero cold window", func(c *Config) { c.Playback.ColdStartWindow = 0 }, "cold_start_window"},
		{"tiny chunks", func(c *Config) { c.Playback.MaxChunkChars = 4 }, "max_chunk_chars"},
		{"odd sample rate", func(c *Config) { c.Audio.SampleRate = 12345 }, "sample rate"},
		{"loud volume", func(c *Config) { c.Audio.Volume = 3 }, "volume"},
		{"negative cache size", func(c *Config) { c.Cache.MemoryMB = -1 }, "cannot be negative"},
		{"compression out of range", func(c *Config) { c.Cache.CompressionLevel = 30 }, "compression_level"},
		{"disabled cache skips checks", func(c *Config) {
			c.Cache.Enabled = false
			c.Cache.CompressionLevel = 30
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestValidateExpandsCacheDir(t *testing.T) {
	home, err := homedir.Dir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	cfg := Default()
	cfg.Cache.Dir = "~/speakeasy-cache"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if want := filepath.Join(home, "speakeasy-cache"); cfg.Cache.Dir != want {
		t.Errorf("Cache.Dir = %q, want %q", cfg.Cache.Dir, want)
	}
}

const sampleYAML = `
cloud:
  base_url: "https://tts.example.com"
  requests_per_minute: 60
playback:
  chunk_timeout: "4s"
  prefer_local_on_cold_start: true
voices:
  regional: "ta-IN-PallaviNeural"
  regional_locale: "ta-IN"
  script: "Tamil"
cache:
  memory_mb: 8
`

func loadYAML(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(doc)); err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	return v
}

func TestLoadFromViper(t *testing.T) {
	cfg, err := LoadFromViper(loadYAML(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromViper() error = %v", err)
	}

	if cfg.Cloud.BaseURL != "https://tts.example.com" {
		t.Errorf("BaseURL = %q", cfg.Cloud.BaseURL)
	}
	if cfg.Cloud.RequestsPerMinute != 60 {
		t.Errorf("RequestsPerMinute = %d, want 60", cfg.Cloud.RequestsPerMinute)
	}
	if cfg.Playback.ChunkTimeout != 4*time.Second {
		t.Errorf("ChunkTimeout = %v, want 4s", cfg.Playback.ChunkTimeout)
	}
	if !cfg.Playback.PreferLocalOnColdStart {
		t.Error("PreferLocalOnColdStart not loaded")
	}
	if cfg.Voices.Script != "Tamil" || cfg.Voices.RegionalLocale != "ta-IN" {
		t.Errorf("voices = %+v", cfg.Voices)
	}
	if cfg.Cache.MemoryMB != 8 {
		t.Errorf("MemoryMB = %d, want 8", cfg.Cache.MemoryMB)
	}
	// untouched keys keep their defaults
	if cfg.Playback.MaxChunkChars != 240 {
		t.Errorf("MaxChunkChars = %d, want default 240", cfg.Playback.MaxChunkChars)
	}
	if cfg.Cloud.SynthPath != "/tts" {
		t.Errorf("SynthPath = %q, want default", cfg.Cloud.SynthPath)
	}
}

func TestEnvironmentBeatsConfigFile(t *testing.T) {
	t.Setenv("SPEAKEASY_PLAYBACK_CHUNK_TIMEOUT", "7s")

	cfg, err := LoadFromViper(loadYAML(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromViper() error = %v", err)
	}
	if cfg.Playback.ChunkTimeout != 7*time.Second {
		t.Errorf("ChunkTimeout = %v, want env value 7s", cfg.Playback.ChunkTimeout)
	}
	if cfg.Cloud.BaseURL != "https://tts.example.com" {
		t.Errorf("BaseURL = %q, want file value", cfg.Cloud.BaseURL)
	}
}

func TestLoadFromViperRejectsInvalid(t *testing.T) {
	_, err := LoadFromViper(loadYAML(t, "audio:\n  sample_rate: 12345\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("LoadFromViper() error = %v, want invalid configuration", err)
	}
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	if got := v.GetDuration("playback.cold_start_window"); got != 5*time.Minute {
		t.Errorf("cold_start_window default = %v, want 5m", got)
	}
	if got := v.GetString("cloud.base_url"); got != Default().Cloud.BaseURL {
		t.Errorf("base_url default = %q", got)
	}
}

func TestDerivedConfigs(t *testing.T) {
	cfg := Default()
	cfg.Local.Voice = "Lekha"
	cfg.Cache.MemoryMB = 1
	cfg.Cache.DiskMB = 2

	opts := cfg.Orchestrator()
	if opts.LocalVoice != "Lekha" || opts.ChunkTimeout != 3*time.Second || opts.MaxChunkChars != 240 {
		t.Errorf("Orchestrator() = %+v", opts)
	}

	cc := cfg.CacheStore("/tmp/fallback")
	if cc.Dir != "/tmp/fallback" {
		t.Errorf("CacheStore().Dir = %q, want fallback", cc.Dir)
	}
	if cc.MemoryCapacity != 1<<20 || cc.DiskCapacity != 2<<20 {
		t.Errorf("capacities = %d/%d", cc.MemoryCapacity, cc.DiskCapacity)
	}

	cfg.Cache.Enabled = false
	cc = cfg.CacheStore("/tmp/fallback")
	if cc.MemoryCapacity != 0 || cc.DiskCapacity != 0 {
		t.Error("disabled cache should have no capacity")
	}

	if f := cfg.Format(); f.SampleRate != 24000 || f.Channels != 1 {
		t.Errorf("Format() = %+v", f)
	}
	if p := cfg.VoicePair(); p.DefaultVoice != "en-IN-NeerjaNeural" || p.Script != "Devanagari" {
		t.Errorf("VoicePair() = %+v", p)
	}
}
