// Package report renders a scan summary for humans and machines.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/ppiankov/subwatch/internal/scan"
)

// Format names accepted by New.
const (
	FormatTerminal = "terminal"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Formatter writes a formatted summary to w.
type Formatter interface {
	Format(w io.Writer, sum scan.Summary) error
}

// Options holds presentation settings shared by formatters.
type Options struct {
	BaseURL string // prefix for permalinks
	Color   bool   // ANSI colors, terminal only
	Width   int    // title column width, terminal only
}

// New returns the formatter for name.
func New(name string, opts Options) (Formatter, error) {
	switch name {
	case "", FormatTerminal:
		return NewTerminal(opts), nil
	case FormatJSON:
		return NewJSON(opts), nil
	case FormatMarkdown:
		return NewMarkdown(opts), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want terminal, json or markdown)", name)
	}
}

func postURL(base, permalink string) string {
	if base == "" {
		base = "https://reddit.com"
	}
	return base + permalink
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(100 * time.Millisecond).String()
}
