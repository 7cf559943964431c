package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dgnsrekt/speakeasy/internal/segment"
	"golang.org/x/term"
)

var markdownExtensions = []string{".md", ".markdown", ".mdown", ".mkd", ".mkdn"}

// source is the text to speak and, for files, where it came from.
type source struct {
	text string
	path string
}

// readSource resolves the text from the clipboard, stdin, a file or the
// argument itself, in that order.
func readSource(args []string, fromClipboard bool) (*source, error) {
	if fromClipboard {
		text, err := clipboard.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("unable to read clipboard: %w", err)
		}
		return &source{text: text}, nil
	}

	var arg string
	if len(args) > 0 {
		arg = args[0]
	}

	// from stdin
	if arg == "-" || (arg == "" && !term.IsTerminal(int(os.Stdin.Fd()))) {
		return readFrom(os.Stdin, "")
	}
	if arg == "" {
		return nil, errors.New("nothing to speak: pass TEXT, a FILE or pipe to stdin")
	}

	st, err := os.Stat(arg)
	if err != nil {
		// not a file, speak the argument
		return &source{text: arg}, nil
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", arg)
	}
	return readFile(arg)
}

func readFile(path string) (*source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return readFrom(f, abs)
}

func readFrom(r io.Reader, path string) (*source, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read from reader: %w", err)
	}
	return &source{text: string(b), path: path}, nil
}

func isMarkdownFile(path string) bool {
	if path == "" {
		return false
	}
	return slices.Contains(markdownExtensions, strings.ToLower(filepath.Ext(path)))
}

func stripMarkdown(text string) string {
	return segment.StripMarkdown(text)
}
