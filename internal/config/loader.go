package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// binding ties a config file key to its Config field.
type binding struct {
	key string
	get func(Config) any
	set func(*Config, *viper.Viper, string)
}

func str(field func(*Config) *string) binding {
	return binding{
		get: func(c Config) any { return *field(&c) },
		set: func(c *Config, v *viper.Viper, k string) { *field(c) = v.GetString(k) },
	}
}

func integer(field func(*Config) *int) binding {
	return binding{
		get: func(c Config) any { return *field(&c) },
		set: func(c *Config, v *viper.Viper, k string) { *field(c) = v.GetInt(k) },
	}
}

func float(field func(*Config) *float64) binding {
	return binding{
		get: func(c Config) any { return *field(&c) },
		set: func(c *Config, v *viper.Viper, k string) { *field(c) = v.GetFloat64(k) },
	}
}

func boolean(field func(*Config) *bool) binding {
	return binding{
		get: func(c Config) any { return *field(&c) },
		set: func(c *Config, v *viper.Viper, k string) { *field(c) = v.GetBool(k) },
	}
}

func duration(field func(*Config) *time.Duration) binding {
	return binding{
		get: func(c Config) any { return field(&c).String() },
		set: func(c *Config, v *viper.Viper, k string) { *field(c) = v.GetDuration(k) },
	}
}

func bind(key string, b binding) binding {
	b.key = key
	return b
}

var bindings = []binding{
	bind("cloud.base_url", str(func(c *Config) *string { return &c.Cloud.BaseURL })),
	bind("cloud.synth_path", str(func(c *Config) *string { return &c.Cloud.SynthPath })),
	bind("cloud.voices_path", str(func(c *Config) *string { return &c.Cloud.VoicesPath })),
	bind("cloud.warmup_text", str(func(c *Config) *string { return &c.Cloud.WarmupText })),
	bind("cloud.warmup_timeout", duration(func(c *Config) *time.Duration { return &c.Cloud.WarmupTimeout })),
	bind("cloud.request_timeout", duration(func(c *Config) *time.Duration { return &c.Cloud.RequestTimeout })),
	bind("cloud.requests_per_minute", integer(func(c *Config) *int { return &c.Cloud.RequestsPerMinute })),

	bind("local.voice", str(func(c *Config) *string { return &c.Local.Voice })),
	bind("local.regional_voice", str(func(c *Config) *string { return &c.Local.RegionalVoice })),
	bind("local.default_voice", str(func(c *Config) *string { return &c.Local.DefaultVoice })),
	bind("local.rate", integer(func(c *Config) *int { return &c.Local.Rate })),

	bind("voices.regional", str(func(c *Config) *string { return &c.Voices.Regional })),
	bind("voices.regional_locale", str(func(c *Config) *string { return &c.Voices.RegionalLocale })),
	bind("voices.default", str(func(c *Config) *string { return &c.Voices.Default })),
	bind("voices.default_locale", str(func(c *Config) *string { return &c.Voices.DefaultLocale })),
	bind("voices.script", str(func(c *Config) *string { return &c.Voices.Script })),

	bind("playback.chunk_timeout", duration(func(c *Config) *time.Duration { return &c.Playback.ChunkTimeout })),
	bind("playback.cold_start_window", duration(func(c *Config) *time.Duration { return &c.Playback.ColdStartWindow })),
	bind("playback.warmup_window", duration(func(c *Config) *time.Duration { return &c.Playback.WarmupWindow })),
	bind("playback.max_chunk_chars", integer(func(c *Config) *int { return &c.Playback.MaxChunkChars })),
	bind("playback.prefer_local_on_cold_start", boolean(func(c *Config) *bool { return &c.Playback.PreferLocalOnColdStart })),

	bind("audio.sample_rate", integer(func(c *Config) *int { return &c.Audio.SampleRate })),
	bind("audio.volume", float(func(c *Config) *float64 { return &c.Audio.Volume })),

	bind("cache.enabled", boolean(func(c *Config) *bool { return &c.Cache.Enabled })),
	bind("cache.dir", str(func(c *Config) *string { return &c.Cache.Dir })),
	bind("cache.memory_mb", integer(func(c *Config) *int { return &c.Cache.MemoryMB })),
	bind("cache.disk_mb", integer(func(c *Config) *int { return &c.Cache.DiskMB })),
	bind("cache.ttl", duration(func(c *Config) *time.Duration { return &c.Cache.TTL })),
	bind("cache.compression_level", integer(func(c *Config) *int { return &c.Cache.CompressionLevel })),

	bind("debug", boolean(func(c *Config) *bool { return &c.Debug })),
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadFromViper builds the configuration. Precedence, lowest first:
// defaults, values set in v, SPEAKEASY_* environment variables.
func LoadFromViper(v *viper.Viper) (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return cfg, err
	}

	for _, b := range bindings {
		if !v.IsSet(b.key) {
			continue
		}
		if _, ok := os.LookupEnv(EnvName(b.key)); ok {
			continue
		}
		b.set(&cfg, v, b.key)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()
	for _, b := range bindings {
		v.SetDefault(b.key, b.get(defaults))
	}
}
