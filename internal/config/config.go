// Package config holds speakeasy's configuration: defaults from struct
// tags, values from the config file, and SPEAKEASY_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dgnsrekt/speakeasy/internal/audio"
	"github.com/dgnsrekt/speakeasy/internal/cache"
	"github.com/dgnsrekt/speakeasy/internal/cloud"
	"github.com/dgnsrekt/speakeasy/internal/orchestrator"
	"github.com/dgnsrekt/speakeasy/internal/pcm"
	"github.com/dgnsrekt/speakeasy/internal/voice"
	"github.com/mitchellh/go-homedir"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "SPEAKEASY_"

// Config is the complete speakeasy configuration.
type Config struct {
	Cloud    CloudConfig    `yaml:"cloud" envPrefix:"CLOUD_"`
	Local    LocalConfig    `yaml:"local" envPrefix:"LOCAL_"`
	Voices   VoiceConfig    `yaml:"voices" envPrefix:"VOICES_"`
	Playback PlaybackConfig `yaml:"playback" envPrefix:"PLAYBACK_"`
	Audio    AudioConfig    `yaml:"audio" envPrefix:"AUDIO_"`
	Cache    CacheConfig    `yaml:"cache" envPrefix:"CACHE_"`
	Debug    bool           `yaml:"debug" env:"DEBUG" envDefault:"false"`
}

// CloudConfig describes the remote TTS endpoint.
type CloudConfig struct {
	BaseURL           string        `yaml:"base_url" env:"BASE_URL" envDefault:"http://localhost:5050"`
	SynthPath         string        `yaml:"synth_path" env:"SYNTH_PATH" envDefault:"/tts"`
	VoicesPath        string        `yaml:"voices_path" env:"VOICES_PATH" envDefault:"/voices"`
	WarmupText        string        `yaml:"warmup_text" env:"WARMUP_TEXT" envDefault:"warmup"`
	WarmupTimeout     time.Duration `yaml:"warmup_timeout" env:"WARMUP_TIMEOUT" envDefault:"30s"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" envDefault:"60s"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"REQUESTS_PER_MINUTE" envDefault:"0"`
}

// LocalConfig tunes the on-device synthesizer. Voice overrides every
// chunk; the per-script voices apply otherwise, and empty values let the
// engine pick a voice from the chunk locale.
type LocalConfig struct {
	Voice         string `yaml:"voice" env:"VOICE"`
	RegionalVoice string `yaml:"regional_voice" env:"REGIONAL_VOICE"`
	DefaultVoice  string `yaml:"default_voice" env:"DEFAULT_VOICE"`
	Rate          int    `yaml:"rate" env:"RATE" envDefault:"0"`
}

// VoiceConfig is the script-based voice pair.
type VoiceConfig struct {
	Regional       string `yaml:"regional" env:"REGIONAL" envDefault:"hi-IN-SwaraNeural"`
	RegionalLocale string `yaml:"regional_locale" env:"REGIONAL_LOCALE" envDefault:"hi-IN"`
	Default        string `yaml:"default" env:"DEFAULT" envDefault:"en-IN-NeerjaNeural"`
	DefaultLocale  string `yaml:"default_locale" env:"DEFAULT_LOCALE" envDefault:"en-IN"`
	Script         string `yaml:"script" env:"SCRIPT" envDefault:"Devanagari"`
}

// PlaybackConfig tunes the orchestrator.
type PlaybackConfig struct {
	ChunkTimeout           time.Duration `yaml:"chunk_timeout" env:"CHUNK_TIMEOUT" envDefault:"3s"`
	ColdStartWindow        time.Duration `yaml:"cold_start_window" env:"COLD_START_WINDOW" envDefault:"5m"`
	WarmupWindow           time.Duration `yaml:"warmup_window" env:"WARMUP_WINDOW" envDefault:"10s"`
	MaxChunkChars          int           `yaml:"max_chunk_chars" env:"MAX_CHUNK_CHARS" envDefault:"240"`
	PreferLocalOnColdStart bool          `yaml:"prefer_local_on_cold_start" env:"PREFER_LOCAL_ON_COLD_START" envDefault:"false"`
}

// AudioConfig is the output device format.
type AudioConfig struct {
	SampleRate int     `yaml:"sample_rate" env:"SAMPLE_RATE" envDefault:"24000"`
	Volume     float64 `yaml:"volume" env:"VOLUME" envDefault:"1.0"`
}

// CacheConfig sizes the audio cache. Sizes are in megabytes.
type CacheConfig struct {
	Enabled          bool          `yaml:"enabled" env:"ENABLED" envDefault:"true"`
	Dir              string        `yaml:"dir" env:"DIR"`
	MemoryMB         int           `yaml:"memory_mb" env:"MEMORY_MB" envDefault:"32"`
	DiskMB           int           `yaml:"disk_mb" env:"DISK_MB" envDefault:"256"`
	TTL              time.Duration `yaml:"ttl" env:"TTL" envDefault:"168h"`
	CompressionLevel int           `yaml:"compression_level" env:"COMPRESSION_LEVEL" envDefault:"3"`
}

// Default returns the configuration defined by the envDefault tags alone.
func Default() Config {
	var cfg Config
	// an empty environment only fails on malformed tags
	_ = env.ParseWithOptions(&cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: map[string]string{},
	})
	return cfg
}

// FromEnv returns the defaults overridden by SPEAKEASY_* variables.
func FromEnv() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: EnvPrefix})
	if err != nil {
		return cfg, fmt.Errorf("error parsing environment: %w", err)
	}
	return cfg, nil
}

// Validate checks every section and normalizes paths.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Cloud.validate(); err != nil {
		errs = append(errs, fmt.Errorf("cloud: %w", err))
	}
	if c.Local.Rate < 0 || c.Local.Rate > 600 {
		errs = append(errs, fmt.Errorf("local: rate must be between 0 and 600 words per minute, got %d", c.Local.Rate))
	}
	if _, err := voice.NewSelector(c.VoicePair()); err != nil {
		errs = append(errs, fmt.Errorf("voices: %w", err))
	}
	if err := c.Playback.validate(); err != nil {
		errs = append(errs, fmt.Errorf("playback: %w", err))
	}
	if err := c.PlayerConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}
	if err := c.Cache.validate(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	return errors.Join(errs...)
}

func (c *CloudConfig) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	for _, p := range []string{c.SynthPath, c.VoicesPath} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("paths must start with '/', got %q", p)
		}
	}
	if c.WarmupTimeout < time.Second {
		return fmt.Errorf("warmup_timeout must be at least 1s, got %v", c.WarmupTimeout)
	}
	if c.RequestTimeout < time.Second {
		return fmt.Errorf("request_timeout must be at least 1s, got %v", c.RequestTimeout)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute cannot be negative, got %d", c.RequestsPerMinute)
	}
	return nil
}

func (p *PlaybackConfig) validate() error {
	if p.ChunkTimeout < 100*time.Millisecond || p.ChunkTimeout > time.Minute {
		return fmt.Errorf("chunk_timeout must be between 100ms and 1m, got %v", p.ChunkTimeout)
	}
	if p.ColdStartWindow <= 0 {
		return fmt.Errorf("cold_start_window must be positive, got %v", p.ColdStartWindow)
	}
	if p.WarmupWindow <= 0 {
		return fmt.Errorf("warmup_window must be positive, got %v", p.WarmupWindow)
	}
	if p.MaxChunkChars < 16 || p.MaxChunkChars > 5000 {
		return fmt.Errorf("max_chunk_chars must be between 16 and 5000, got %d", p.MaxChunkChars)
	}
	return nil
}

func (c *CacheConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MemoryMB < 0 || c.DiskMB < 0 {
		return fmt.Errorf("sizes cannot be negative")
	}
	if c.DiskMB > 10000 {
		return fmt.Errorf("disk_mb must be at most 10000, got %d", c.DiskMB)
	}
	if c.TTL < 0 {
		return fmt.Errorf("ttl cannot be negative, got %v", c.TTL)
	}
	if c.CompressionLevel < 1 || c.CompressionLevel > 22 {
		return fmt.Errorf("compression_level must be between 1 and 22, got %d", c.CompressionLevel)
	}
	dir, err := homedir.Expand(c.Dir)
	if err != nil {
		return fmt.Errorf("dir: %w", err)
	}
	c.Dir = dir
	return nil
}

// VoicePair returns the selector configuration.
func (c Config) VoicePair() voice.Pair {
	return voice.Pair{
		RegionalVoice:  c.Voices.Regional,
		RegionalLocale: c.Voices.RegionalLocale,
		DefaultVoice:   c.Voices.Default,
		DefaultLocale:  c.Voices.DefaultLocale,
		Script:         c.Voices.Script,
	}
}

// CloudBackend returns the cloud backend configuration.
func (c Config) CloudBackend() cloud.Config {
	return cloud.Config{
		BaseURL:           c.Cloud.BaseURL,
		SynthPath:         c.Cloud.SynthPath,
		VoicesPath:        c.Cloud.VoicesPath,
		WarmupText:        c.Cloud.WarmupText,
		WarmupTimeout:     c.Cloud.WarmupTimeout,
		RequestsPerMinute: c.Cloud.RequestsPerMinute,
	}
}

// PlayerConfig returns the audio device configuration.
func (c Config) PlayerConfig() audio.PlayerConfig {
	pc := audio.DefaultPlayerConfig()
	pc.SampleRate = c.Audio.SampleRate
	pc.Volume = c.Audio.Volume
	return pc
}

// Format returns the PCM format the cloud payloads are decoded into.
func (c Config) Format() pcm.Format {
	pc := c.PlayerConfig()
	return pcm.Format{SampleRate: pc.SampleRate, Channels: pc.Channels}
}

// CacheStore returns the cache configuration rooted at fallbackDir when no
// directory is configured.
func (c Config) CacheStore(fallbackDir string) cache.Config {
	dir := c.Cache.Dir
	if dir == "" {
		dir = fallbackDir
	}
	cc := cache.DefaultConfig(dir)
	cc.MemoryCapacity = int64(c.Cache.MemoryMB) << 20
	cc.DiskCapacity = int64(c.Cache.DiskMB) << 20
	cc.TTL = c.Cache.TTL
	cc.CompressionLevel = c.Cache.CompressionLevel
	if !c.Cache.Enabled {
		cc.MemoryCapacity = 0
		cc.DiskCapacity = 0
	}
	return cc
}

// Orchestrator returns the default per-utterance options.
func (c Config) Orchestrator() orchestrator.Options {
	return orchestrator.Options{
		LocalVoice:             c.Local.Voice,
		ChunkTimeout:           c.Playback.ChunkTimeout,
		ColdStartWindow:        c.Playback.ColdStartWindow,
		WarmupWindow:           c.Playback.WarmupWindow,
		MaxChunkChars:          c.Playback.MaxChunkChars,
		PreferLocalOnColdStart: c.Playback.PreferLocalOnColdStart,
	}
}
