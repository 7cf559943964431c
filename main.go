// Package main provides the entry point for the speakeasy CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/speakeasy/internal/config"
	"github.com/dgnsrekt/speakeasy/internal/orchestrator"
	"github.com/dgnsrekt/speakeasy/internal/ttypes"
	"github.com/dgnsrekt/speakeasy/ui"
	gap "github.com/muesli/go-app-paths"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile    string
	markdown      bool
	fromClipboard bool
	watch         bool
	voiceOverride string
	preferLocal   bool
	chunkTimeout  time.Duration
	maxChars      int
	plain         bool
	debug         bool

	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "speakeasy [TEXT|FILE|-]",
		Short: "Speak text aloud, cloud first with a local fallback",
		Long: paragraph(
			fmt.Sprintf("\nSpeak text aloud through a cloud TTS endpoint, %s when it is slow or down.", keyword("falling back to the local synthesizer")),
		),
		Example: paragraph("speakeasy \"Hello there\"\nspeakeasy README.md --markdown\ncat notes.txt | speakeasy\nspeakeasy --clipboard --prefer-local"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
		RunE: execute,
	}
)

// loadConfig reads the config file and environment, then applies flags.
func loadConfig(cmd *cobra.Command) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	var err error
	cfg, err = config.LoadFromViper(viper.GetViper())
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("voice") {
		cfg.Local.Voice = voiceOverride
	}
	if flags.Changed("prefer-local") {
		cfg.Playback.PreferLocalOnColdStart = preferLocal
	}
	if flags.Changed("timeout") {
		cfg.Playback.ChunkTimeout = chunkTimeout
	}
	if flags.Changed("max-chars") {
		cfg.Playback.MaxChunkChars = maxChars
	}
	if flags.Changed("debug") {
		cfg.Debug = debug
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	setLogLevel(cfg.Debug)
	log.Debug("Configuration loaded", "file", viper.ConfigFileUsed(), "cloud", cfg.Cloud.BaseURL)
	return nil
}

func execute(cmd *cobra.Command, args []string) error {
	src, err := readSource(args, fromClipboard)
	if err != nil {
		return err
	}
	if watch && src.path == "" {
		return errors.New("--watch needs a FILE argument")
	}

	text := src.text
	if markdown || isMarkdownFile(src.path) {
		text = stripMarkdown(text)
	}
	if !watch && strings.TrimSpace(text) == "" {
		return errors.New("nothing to speak")
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("Shutdown failed", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		if !term.IsTerminal(int(os.Stderr.Fd())) {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
		return runPlain(ctx, a.orch, src, text)
	}
	return runTUI(ctx, a, src, text)
}

func runTUI(ctx context.Context, a *app, src *source, text string) error {
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	uiCfg.Options = cfg.Orchestrator()
	uiCfg.Watch = watch

	p := ui.NewProgram(a.orch, text, uiCfg)
	if watch {
		go func() {
			err := watchFile(ctx, src.path, func(text string) {
				p.Send(ui.SpeakMsg{Text: text})
			})
			if err != nil {
				log.Error("Watch failed", "path", src.path, "err", err)
			}
		}()
	}

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return ui.Err(final)
}

// speaker is the part of the orchestrator plain mode drives.
type speaker interface {
	Speak(text string, opts orchestrator.Options)
	Wait(ctx context.Context) error
	Stop()
}

// runPlain speaks without a TUI, reporting events on stderr.
func runPlain(ctx context.Context, sp speaker, src *source, text string) error {
	events := make(chan ttypes.Event, 16)
	opts := cfg.Orchestrator()
	opts.Listener = func(ev ttypes.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	// finished is closed once a non-watch utterance has fully ended; events
	// is never closed because a live session may still deliver to it.
	finished := make(chan struct{})
	speak := func(text string) {
		sp.Speak(text, opts)
		if !watch {
			go func() {
				if sp.Wait(ctx) == nil {
					close(finished)
				}
			}()
		}
	}
	speak(text)

	if watch {
		go func() {
			err := watchFile(ctx, src.path, speak)
			if err != nil {
				log.Error("Watch failed", "path", src.path, "err", err)
			}
		}()
	}

	var last error
	handle := func(ev ttypes.Event) {
		reportEvent(ev)
		if ev.Type == ttypes.EventError {
			last = ev.Err
		}
	}
	for {
		select {
		case ev := <-events:
			handle(ev)
		case <-finished:
			// the session emitted everything before it ended
			for {
				select {
				case ev := <-events:
					handle(ev)
				default:
					return last
				}
			}
		case <-ctx.Done():
			sp.Stop()
			return nil
		}
	}
}

func reportEvent(ev ttypes.Event) {
	switch ev.Type {
	case ttypes.EventStart:
		fmt.Fprintln(os.Stderr, faint("speaking via "+ev.Mode.String()))
	case ttypes.EventPause, ttypes.EventResume:
		fmt.Fprintln(os.Stderr, faint(ev.Type.String()))
	case ttypes.EventEnd:
		fmt.Fprintln(os.Stderr, faint("done"))
	case ttypes.EventError:
		fmt.Fprintln(os.Stderr, failure(fmt.Sprintf("%s playback failed: %v", ev.Mode, ev.Err)))
	}
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	defaults := config.Default()
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug logs")
	rootCmd.Flags().BoolVarP(&markdown, "markdown", "m", false, "strip markdown before speaking")
	rootCmd.Flags().BoolVarP(&fromClipboard, "clipboard", "c", false, "speak the clipboard contents")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "speak FILE again whenever it changes")
	rootCmd.Flags().StringVar(&voiceOverride, "voice", "", "local voice for every chunk")
	rootCmd.Flags().BoolVar(&preferLocal, "prefer-local", defaults.Playback.PreferLocalOnColdStart, "start locally while the cloud is cold")
	rootCmd.Flags().DurationVarP(&chunkTimeout, "timeout", "t", defaults.Playback.ChunkTimeout, "per-chunk cloud timeout")
	rootCmd.Flags().IntVar(&maxChars, "max-chars", defaults.Playback.MaxChunkChars, "maximum characters per chunk")
	rootCmd.Flags().BoolVarP(&plain, "plain", "p", false, "print events instead of showing the status line")

	rootCmd.AddCommand(configCmd, manCmd, voicesCmd, warmupCmd, cacheCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	config.SetDefaults(viper.GetViper())

	scope := gap.NewScope(gap.User, "speakeasy")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "speakeasy")}, dirs...)
	}

	if c := os.Getenv("SPEAKEASY_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("speakeasy")
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "speakeasy.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
