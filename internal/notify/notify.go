// Package notify delivers match notifications to Discord.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/subwatch/internal/source"
)

// Status is the outcome of a single dispatch.
type Status int

const (
	Delivered Status = iota
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Transport sends a rendered message somewhere.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// Options configures a Dispatcher.
type Options struct {
	WebhookURL   string
	ExcerptLimit int
	BaseURL      string
	Content      string
	Footer       string
	Redact       []string
	Logger       *slog.Logger
}

// Dispatcher formats posts and hands them to a Transport. A Dispatcher
// without a transport skips every post.
type Dispatcher struct {
	formatter Formatter
	transport Transport
	logger    *slog.Logger
}

// New builds a Dispatcher posting to opts.WebhookURL. An empty URL yields a
// dispatcher that reports every post as Skipped.
func New(opts Options) (*Dispatcher, error) {
	patterns, err := CompileRedact(opts.Redact)
	if err != nil {
		return nil, err
	}

	var transport Transport
	if url := strings.TrimSpace(opts.WebhookURL); url != "" {
		transport = NewDiscordWebhook(url)
	}

	d := NewWithTransport(transport, Formatter{
		ExcerptLimit: opts.ExcerptLimit,
		BaseURL:      opts.BaseURL,
		Content:      opts.Content,
		Footer:       opts.Footer,
		Redact:       patterns,
	}, opts.Logger)
	return d, nil
}

// NewWithTransport builds a Dispatcher around an existing transport.
func NewWithTransport(t Transport, f Formatter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{formatter: f, transport: t, logger: logger}
}

// Enabled reports whether a transport is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.transport != nil
}

// BuildMessage renders post without sending it.
func (d *Dispatcher) BuildMessage(post source.Post) Message {
	return d.formatter.BuildMessage(post)
}

// Dispatch sends one notification for post. The returned error is for
// reporting only; callers must not retry.
func (d *Dispatcher) Dispatch(ctx context.Context, post source.Post) (status Status, err error) {
	if !d.Enabled() {
		d.logger.Debug("no webhook configured, skipping notification", "post", post.ID)
		return Skipped, nil
	}

	defer func() {
		if r := recover(); r != nil {
			status = Failed
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()

	if err := d.transport.Deliver(ctx, d.formatter.BuildMessage(post)); err != nil {
		d.logger.Warn("notification failed", "post", post.ID, "title", post.Title, "error", err)
		return Failed, fmt.Errorf("deliver %s: %w", post.ID, err)
	}
	d.logger.Info("notification sent", "post", post.ID, "title", post.Title)
	return Delivered, nil
}

// ErrNotConfigured is returned by Test when no webhook is set.
var ErrNotConfigured = errors.New("webhook not configured")

// Test sends a canned message through the transport.
func (d *Dispatcher) Test(ctx context.Context) error {
	if !d.Enabled() {
		return ErrNotConfigured
	}
	return d.transport.Deliver(ctx, Message{
		Content: "subwatch webhook test",
		Embeds:  []Embed{},
	})
}
