// Package scan runs one batch pass over the configured subreddits.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/subwatch/internal/match"
	"github.com/ppiankov/subwatch/internal/notify"
	"github.com/ppiankov/subwatch/internal/source"
	"github.com/ppiankov/subwatch/internal/store"
)

// DefaultLimit is the number of newest posts fetched per source.
const DefaultLimit = source.DefaultLimit

// Notifier delivers a notification for a matched post.
type Notifier interface {
	Dispatch(ctx context.Context, post source.Post) (notify.Status, error)
}

// Options holds the collaborators for a run. They are not modified.
type Options struct {
	Sources  []match.Criteria
	Limit    int
	Client   source.Client
	Store    store.Backend
	Notifier Notifier
	Logger   *slog.Logger
	Now      func() time.Time
}

// Engine processes each source in order against a single dedup set.
type Engine struct {
	opts Options
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Client == nil {
		return nil, errors.New("feed client is required")
	}
	if opts.Store == nil {
		return nil, errors.New("dedup store is required")
	}
	if opts.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{opts: opts}, nil
}

// Run performs one scan. It never returns early without saving dedup
// state; problems are reported in the Summary.
func (e *Engine) Run(ctx context.Context) Summary {
	log := e.opts.Logger
	sum := Summary{
		RunID:        uuid.NewString(),
		StartedAt:    e.opts.Now().UTC(),
		SourcesTotal: len(e.opts.Sources),
	}
	log = log.With("run_id", sum.RunID)

	seen, err := e.opts.Store.Load(ctx)
	if err != nil {
		log.Error("failed to load dedup state, starting empty", "error", err)
		sum.DedupLoadErr = err
		seen = store.NewSeen()
	}
	log.Info("scan started", "sources", len(e.opts.Sources), "seen", seen.Len())

	for i, c := range e.opts.Sources {
		if ctx.Err() != nil {
			sum.SourcesSkipped = len(e.opts.Sources) - i
			log.Warn("scan interrupted", "skipped_sources", sum.SourcesSkipped, "error", ctx.Err())
			break
		}

		stats, err := e.processSource(ctx, log, c, seen)
		sum.add(stats)
		if err != nil {
			sum.SourcesFailed++
			sum.Failures = append(sum.Failures, SourceFailure{Source: c.Source, Err: err})
			log.Error("source failed", "subreddit", c.Source, "error", err)
			continue
		}
		sum.SourcesProcessed++
	}

	seen.UpdatedAt = e.opts.Now().UTC()
	if err := e.opts.Store.Save(context.WithoutCancel(ctx), seen); err != nil {
		log.Error("failed to save dedup state", "error", err)
		sum.DedupSaveErr = err
	}
	sum.SeenTotal = seen.Len()
	sum.FinishedAt = e.opts.Now().UTC()

	log.Info("scan finished",
		"processed", sum.SourcesProcessed,
		"failed", sum.SourcesFailed,
		"new", sum.PostsNew,
		"matches", sum.Matches,
		"notified", sum.Notified,
		"seen", sum.SeenTotal,
	)
	return sum
}

type sourceStats struct {
	fetched       int
	fresh         int
	matched       []source.Post
	notified      int
	notifySkipped int
	notifyFailed  int
}

// processSource handles one subreddit. A panic anywhere in the source is
// recovered and reported as a failure with a correlation id.
func (e *Engine) processSource(ctx context.Context, log *slog.Logger, c match.Criteria, seen *store.Seen) (stats sourceStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			log.Error("source panic",
				"subreddit", c.Source,
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("source panic (correlation_id: %s)", correlationID)
		}
	}()

	log = log.With("subreddit", c.Source)
	log.Info("checking subreddit", "criteria", c.Describe())

	posts, err := e.opts.Client.Fetch(ctx, c.Source, e.opts.Limit)
	if err != nil {
		return stats, fmt.Errorf("fetch posts: %w", err)
	}
	stats.fetched = len(posts)

	for _, post := range posts {
		if ctx.Err() != nil {
			log.Warn("source interrupted", "error", ctx.Err())
			return stats, nil
		}
		if seen.Contains(post.ID) {
			continue
		}
		// Marked before evaluation so a failed dispatch is not retried on
		// the next run.
		seen.MarkSeen(post.ID)
		stats.fresh++

		if !match.Matches(post, c) {
			continue
		}
		stats.matched = append(stats.matched, post)
		log.Info("match found", "post", post.ID, "title", post.Title, "url", post.Permalink)

		status, derr := e.opts.Notifier.Dispatch(ctx, post)
		switch status {
		case notify.Delivered:
			stats.notified++
		case notify.Skipped:
			stats.notifySkipped++
		default:
			stats.notifyFailed++
			log.Warn("notification not delivered", "post", post.ID, "error", derr)
		}
	}
	return stats, nil
}
