package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ppiankov/subwatch/internal/config"
	"github.com/ppiankov/subwatch/internal/logger"
	"github.com/ppiankov/subwatch/internal/notify"
	"github.com/ppiankov/subwatch/internal/source"
	"github.com/ppiankov/subwatch/internal/store"
)

func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	log, closer, err := logger.New(logger.Options{
		Level:  level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return log, closer, nil
}

func newFeedClient(cfg *config.Config) (source.Client, error) {
	rc := cfg.Reddit
	if rc.Client == source.ModeRSS {
		return source.NewRSS(rc.UserAgent, rc.BaseURL, rc.RequestDelay.Duration), nil
	}
	client, err := source.NewReddit(source.RedditOptions{
		Mode:         rc.Client,
		ClientID:     rc.ClientID,
		ClientSecret: rc.ClientSecret,
		UserAgent:    rc.UserAgent,
		RequestDelay: rc.RequestDelay.Duration,
		BaseURL:      rc.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create reddit client: %w", err)
	}
	return client, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	st, err := store.Open(ctx, store.Options{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		DSN:     cfg.Storage.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func newNotifier(cfg *config.Config, log *slog.Logger) (*notify.Dispatcher, error) {
	d, err := notify.New(notify.Options{
		WebhookURL:   cfg.Notify.WebhookURL,
		ExcerptLimit: cfg.Notify.ExcerptLimit,
		BaseURL:      cfg.Notify.BaseURL,
		Content:      cfg.Notify.Content,
		Footer:       cfg.Notify.Footer,
		Redact:       cfg.Notify.Redact,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("create notifier: %w", err)
	}
	return d, nil
}
