package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ppiankov/subwatch/internal/config"
	"github.com/ppiankov/subwatch/internal/report"
	"github.com/ppiankov/subwatch/internal/scan"
)

var (
	scanFormat  string
	scanLimit   int
	scanEvery   string
	scanNoColor bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Check every configured subreddit once and notify on new matches",
	RunE:  scanAction,
}

func init() {
	scanCmd.Flags().StringVar(&scanFormat, "format", report.FormatTerminal, "summary format: terminal, json, markdown")
	scanCmd.Flags().IntVar(&scanLimit, "limit", 0, "posts per subreddit (overrides reddit.limit)")
	scanCmd.Flags().StringVar(&scanEvery, "every", "", "repeat the scan at this interval until interrupted (e.g. 15m)")
	scanCmd.Flags().BoolVar(&scanNoColor, "no-color", false, "disable ANSI colors")
}

// scanOnceAction is swapped in tests.
var scanOnceAction = scanOnce

func scanAction(cmd *cobra.Command, _ []string) error {
	every, err := parseScanEvery(scanEvery)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if every == 0 {
		return scanOnceAction(ctx)
	}
	return scanLoop(ctx, every, scanOnceAction)
}

func parseScanEvery(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid --every: %w", err)
	}
	if d <= 0 {
		return 0, errors.New("invalid --every: must be positive")
	}
	return d, nil
}

// scanLoop runs fn, then waits every before the next run. Each run is an
// independent batch; a failed run is reported and the loop continues.
func scanLoop(ctx context.Context, every time.Duration, fn func(context.Context) error) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil {
			fmt.Printf("warning: %v\n", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func scanOnce(ctx context.Context) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	formatter, err := report.New(scanFormat, report.Options{
		BaseURL: cfg.Notify.BaseURL,
		Color:   !scanNoColor && isTerminal(os.Stdout),
	})
	if err != nil {
		return err
	}

	criteria, err := cfg.Criteria()
	if err != nil {
		return err
	}

	client, err := newFeedClient(cfg)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}
	if !notifier.Enabled() {
		log.Warn("no Discord webhook configured, matches will not be sent", "env", cfg.Notify.WebhookURLEnv)
	}

	limit := cfg.Reddit.Limit
	if scanLimit > 0 {
		limit = scanLimit
	}

	engine, err := scan.New(scan.Options{
		Sources:  criteria,
		Limit:    limit,
		Client:   client,
		Store:    st,
		Notifier: notifier,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	sum := engine.Run(ctx)
	if err := formatter.Format(os.Stdout, sum); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if !sum.OK() {
		return fmt.Errorf("scan finished with errors: %w", sum.Err())
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
