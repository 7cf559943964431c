package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/speakeasy/internal/audio"
	"github.com/dgnsrekt/speakeasy/internal/cache"
	"github.com/dgnsrekt/speakeasy/internal/cloud"
	"github.com/dgnsrekt/speakeasy/internal/config"
	"github.com/dgnsrekt/speakeasy/internal/local"
	"github.com/dgnsrekt/speakeasy/internal/orchestrator"
	"github.com/dgnsrekt/speakeasy/internal/voice"
	gap "github.com/muesli/go-app-paths"
)

// app wires the backends behind one orchestrator.
type app struct {
	player *audio.Player
	store  *cache.Store
	cloud  *cloud.Backend
	local  *local.Backend
	orch   *orchestrator.Orchestrator
}

func defaultCacheDir() (string, error) {
	dir, err := gap.NewScope(gap.User, "speakeasy").CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return dir, nil
}

func openCache(cfg config.Config) (*cache.Store, error) {
	dir, err := defaultCacheDir()
	if err != nil {
		return nil, err
	}
	return cache.Open(cfg.CacheStore(dir), log.Default().WithPrefix("cache"))
}

// newCloudOnly builds a cloud backend that never plays audio, for the
// voices and warmup commands.
func newCloudOnly(cfg config.Config) (*cloud.Backend, error) {
	return cloud.New(cfg.CloudBackend(), nil, cfg.Format(),
		cloud.WithHTTPClient(&http.Client{Timeout: cfg.Cloud.RequestTimeout}),
		cloud.WithLogger(log.Default().WithPrefix("cloud")),
	)
}

func newApp(cfg config.Config) (*app, error) {
	selector, err := voice.NewSelector(cfg.VoicePair())
	if err != nil {
		return nil, fmt.Errorf("invalid voices: %w", err)
	}

	player, err := audio.NewPlayer(cfg.PlayerConfig())
	if err != nil {
		return nil, fmt.Errorf("unable to open audio device: %w", err)
	}

	store, err := openCache(cfg)
	if err != nil {
		// playback works without a cache
		log.Warn("Audio cache disabled", "err", err)
		store = nil
	}

	cb, err := cloud.New(cfg.CloudBackend(), player, cfg.Format(),
		cloud.WithHTTPClient(&http.Client{Timeout: cfg.Cloud.RequestTimeout}),
		cloud.WithCache(store),
		cloud.WithLogger(log.Default().WithPrefix("cloud")),
	)
	if err != nil {
		_ = player.Close()
		return nil, err
	}

	synth := local.NewCommandSynthesizer(cfg.Local.Rate)
	if err := synth.Probe(); err != nil {
		log.Warn("No local synthesizer found, cloud only", "err", err)
	} else {
		log.Debug("Local synthesizer", "engine", synth.Name())
	}
	lb := local.New(synth,
		local.WithVoices(local.Voices{Regional: cfg.Local.RegionalVoice, Default: cfg.Local.DefaultVoice}),
		local.WithLogger(log.Default().WithPrefix("local")),
	)

	orch := orchestrator.New(cb, lb, selector, cfg.Orchestrator(),
		orchestrator.WithLogger(log.Default().WithPrefix("orchestrator")),
	)

	return &app{player: player, store: store, cloud: cb, local: lb, orch: orch}, nil
}

// Close stops playback and releases the device and cache.
func (a *app) Close() error {
	a.orch.Stop()
	return errors.Join(a.store.Close(), a.player.Close())
}
