package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/subwatch/internal/config"
	"github.com/ppiankov/subwatch/internal/source"
)

var doctorPing bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, credentials and dedup state",
	RunE:  doctorAction,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorPing, "ping", false, "send a test message to the Discord webhook")
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printCheck(false, "config directory %s", configDir)
		ok = false
	} else {
		printCheck(true, "config directory %s", configDir)
	}

	// Config file
	cfg, err := config.Load(configDir)
	if err != nil {
		printCheck(false, "config: %v", err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(true, "config %s (%d sources, client %s)", cfg.Path, len(cfg.Sources), cfg.Reddit.Client)

	// Feed client
	if _, err := newFeedClient(cfg); err != nil {
		if errors.Is(err, source.ErrMissingCredentials) {
			printCheck(false, "reddit credentials: set %s and %s", cfg.Reddit.ClientIDEnv, cfg.Reddit.ClientSecretEnv)
		} else {
			printCheck(false, "reddit client: %v", err)
		}
		ok = false
	} else if cfg.Reddit.Client == source.ModeOAuth {
		printCheck(true, "reddit credentials")
	} else {
		printInfo("reddit client %s needs no credentials", cfg.Reddit.Client)
	}
	if cfg.Reddit.Client == source.ModeRSS {
		for _, s := range cfg.Sources {
			if s.Flair != "" {
				printInfo("r/%s: feeds carry no flair, flair %q will never match", s.Subreddit, s.Flair)
			}
		}
	}

	// Webhook
	notifier, err := newNotifier(cfg, nil)
	switch {
	case err != nil:
		printCheck(false, "notifier: %v", err)
		ok = false
	case !notifier.Enabled():
		printInfo("%s not set, matches will be logged but not sent", cfg.Notify.WebhookURLEnv)
	case doctorPing:
		if err := notifier.Test(ctx); err != nil {
			printCheck(false, "discord webhook: %v", err)
			ok = false
		} else {
			printCheck(true, "discord webhook (test message sent)")
		}
	default:
		printCheck(true, "discord webhook configured")
	}

	// Dedup state
	st, err := openStore(ctx, cfg)
	if err != nil {
		printCheck(false, "dedup store: %v", err)
		ok = false
	} else {
		defer func() { _ = st.Close() }()
		seen, err := st.Load(ctx)
		if err != nil {
			printCheck(false, "dedup state %s: %v (next scan starts empty)", cfg.Storage.Backend, err)
			ok = false
		} else {
			printCheck(true, "dedup state %s (%d posts%s)", cfg.Storage.Backend, seen.Len(), freshness(seen.UpdatedAt))
		}
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func freshness(updated time.Time) string {
	if updated.IsZero() {
		return ""
	}
	return fmt.Sprintf(", updated %s ago", time.Since(updated).Round(time.Second))
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("[INFO] %s\n", fmt.Sprintf(format, args...))
}
