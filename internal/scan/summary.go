package scan

import (
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/subwatch/internal/source"
)

// SourceFailure records why a source could not be processed.
type SourceFailure struct {
	Source string
	Err    error
}

// Summary describes the outcome of one run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	SourcesTotal     int
	SourcesProcessed int
	SourcesFailed    int
	SourcesSkipped   int

	PostsFetched  int
	PostsNew      int
	Matches       int
	Notified      int
	NotifySkipped int
	NotifyFailed  int
	SeenTotal     int

	DedupLoadErr error
	DedupSaveErr error
	Failures     []SourceFailure
	Matched      []source.Post
}

func (s *Summary) add(st sourceStats) {
	s.PostsFetched += st.fetched
	s.PostsNew += st.fresh
	s.Matches += len(st.matched)
	s.Matched = append(s.Matched, st.matched...)
	s.Notified += st.notified
	s.NotifySkipped += st.notifySkipped
	s.NotifyFailed += st.notifyFailed
}

// Duration returns the wall time of the run.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// OK reports whether the run finished without any failure.
func (s Summary) OK() bool {
	return s.Err() == nil
}

// Err joins every failure recorded during the run.
func (s Summary) Err() error {
	var errs []error
	if s.DedupLoadErr != nil {
		errs = append(errs, fmt.Errorf("load dedup state: %w", s.DedupLoadErr))
	}
	for _, f := range s.Failures {
		errs = append(errs, fmt.Errorf("r/%s: %w", f.Source, f.Err))
	}
	if s.NotifyFailed > 0 {
		errs = append(errs, fmt.Errorf("%d notification(s) failed", s.NotifyFailed))
	}
	if s.DedupSaveErr != nil {
		errs = append(errs, fmt.Errorf("save dedup state: %w", s.DedupSaveErr))
	}
	return errors.Join(errs...)
}
