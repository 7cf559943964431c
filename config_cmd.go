package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# cloud TTS endpoint
cloud:
  base_url: "http://localhost:5050"
  synth_path: "/tts"
  voices_path: "/voices"
  # text sent to wake a cold endpoint
  warmup_text: "warmup"
  warmup_timeout: "30s"
  request_timeout: "60s"
  # 0 disables rate limiting
  requests_per_minute: 0

# local synthesizer, the first of espeak-ng, espeak, say and spd-say found
local:
  # voice for every chunk, overrides the two below
  voice: ""
  regional_voice: ""
  default_voice: ""
  # words per minute, 0 keeps the engine default
  rate: 0

# cloud voices, chosen per chunk by script
voices:
  regional: "hi-IN-SwaraNeural"
  regional_locale: "hi-IN"
  default: "en-IN-NeerjaNeural"
  default_locale: "en-IN"
  script: "Devanagari"

playback:
  # give up on the cloud if the first chunk takes longer than this
  chunk_timeout: "3s"
  cold_start_window: "5m"
  warmup_window: "10s"
  max_chunk_chars: 240
  # start locally while the cloud is cold
  prefer_local_on_cold_start: false

audio:
  sample_rate: 24000
  volume: 1.0

cache:
  enabled: true
  # dir: "~/.cache/speakeasy"
  memory_mb: 32
  disk_mb: 256
  ttl: "168h"
  compression_level: 3

debug: false
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the speakeasy config file",
	Long:    paragraph(fmt.Sprintf("\n%s the speakeasy config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("speakeasy config\nspeakeasy config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Speakeasy", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
