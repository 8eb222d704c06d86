package report

import (
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"

	"github.com/ppiankov/subwatch/internal/scan"
)

const defaultWidth = 72

// TerminalFormatter formats a summary for terminal output.
type TerminalFormatter struct {
	opts Options
}

// NewTerminal creates a terminal formatter.
func NewTerminal(opts Options) *TerminalFormatter {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	return &TerminalFormatter{opts: opts}
}

// Format writes the summary to w.
func (f *TerminalFormatter) Format(w io.Writer, sum scan.Summary) error {
	header := fmt.Sprintf("subwatch — %d/%d sources, %d posts, %d new, %d matches",
		sum.SourcesProcessed, sum.SourcesTotal, sum.PostsFetched, sum.PostsNew, sum.Matches)
	fmt.Fprintln(w, f.bold(header))
	fmt.Fprintln(w)

	if len(sum.Matched) > 0 {
		fmt.Fprintln(w, f.green(f.bold(fmt.Sprintf("--- Matches (%d) ---", len(sum.Matched)))))
		fmt.Fprintln(w)
		for _, p := range sum.Matched {
			title := runewidth.Truncate(p.Title, f.opts.Width, "…")
			fmt.Fprintf(w, "  %s %s\n", f.bold("r/"+p.Subreddit), title)
			fmt.Fprintf(w, "      %s\n", f.dim(postURL(f.opts.BaseURL, p.Permalink)))
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "No new matches.")
		fmt.Fprintln(w)
	}

	if len(sum.Failures) > 0 {
		fmt.Fprintln(w, f.red(f.bold(fmt.Sprintf("--- Failures (%d) ---", len(sum.Failures)))))
		fmt.Fprintln(w)
		for _, fl := range sum.Failures {
			fmt.Fprintf(w, "  r/%s: %v\n", fl.Source, fl.Err)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Notifications: %d sent, %d skipped, %d failed\n", sum.Notified, sum.NotifySkipped, sum.NotifyFailed)
	if sum.SourcesSkipped > 0 {
		fmt.Fprintln(w, f.yellow(fmt.Sprintf("Interrupted: %d sources not scanned", sum.SourcesSkipped)))
	}
	if sum.DedupLoadErr != nil {
		fmt.Fprintln(w, f.yellow(fmt.Sprintf("Dedup state unreadable, started empty: %v", sum.DedupLoadErr)))
	}
	if sum.DedupSaveErr != nil {
		fmt.Fprintln(w, f.red(fmt.Sprintf("Dedup state not saved: %v", sum.DedupSaveErr)))
	}
	fmt.Fprintln(w, f.dim(fmt.Sprintf("Seen: %d posts | run %s in %s", sum.SeenTotal, sum.RunID, formatDuration(sum.Duration()))))
	return nil
}

// ANSI helpers, no-op when color is off.

func (f *TerminalFormatter) wrap(code, s string) string {
	if !f.opts.Color {
		return s
	}
	return code + s + "\033[0m"
}

func (f *TerminalFormatter) bold(s string) string   { return f.wrap("\033[1m", s) }
func (f *TerminalFormatter) green(s string) string  { return f.wrap("\033[32m", s) }
func (f *TerminalFormatter) yellow(s string) string { return f.wrap("\033[33m", s) }
func (f *TerminalFormatter) red(s string) string    { return f.wrap("\033[31m", s) }
func (f *TerminalFormatter) dim(s string) string    { return f.wrap("\033[2m", s) }
