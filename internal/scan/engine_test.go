package scan

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/subwatch/internal/match"
	"github.com/ppiankov/subwatch/internal/notify"
	"github.com/ppiankov/subwatch/internal/source"
	"github.com/ppiankov/subwatch/internal/store"
)

type fakeClient struct {
	posts  map[string][]source.Post
	errs   map[string]error
	panics map[string]bool
	calls  []string
	limits []int
	onCall func(sub string)
}

func (f *fakeClient) Fetch(_ context.Context, sub string, limit int) ([]source.Post, error) {
	f.calls = append(f.calls, sub)
	f.limits = append(f.limits, limit)
	if f.onCall != nil {
		f.onCall(sub)
	}
	if f.panics[sub] {
		panic("fetch exploded")
	}
	if err := f.errs[sub]; err != nil {
		return nil, err
	}
	return f.posts[sub], nil
}

type memStore struct {
	ids     []string
	loadErr error
	saveErr error
	saves   int
	saved   *store.Seen
}

func (m *memStore) Load(_ context.Context) (*store.Seen, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return store.NewSeen(m.ids...), nil
}

func (m *memStore) Save(_ context.Context, seen *store.Seen) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = seen
	m.ids = seen.IDs()
	return nil
}

func (m *memStore) Close() error { return nil }

type fakeNotifier struct {
	status notify.Status
	err    error
	sent   []string
}

func (f *fakeNotifier) Dispatch(_ context.Context, post source.Post) (notify.Status, error) {
	f.sent = append(f.sent, post.ID)
	return f.status, f.err
}

func giveaway(sub, id string) source.Post {
	return source.Post{ID: id, Subreddit: sub, Title: "Shiny giveaway " + id}
}

func chatter(sub, id string) source.Post {
	return source.Post{ID: id, Subreddit: sub, Title: "Just chatting " + id}
}

func keyword(sub string) match.Criteria {
	return match.Criteria{Source: sub, Predicate: match.Generic{Keyword: "giveaway"}}
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(opts)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without client")
	}
	if _, err := New(Options{Client: &fakeClient{}}); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := New(Options{Client: &fakeClient{}, Store: &memStore{}}); err == nil {
		t.Fatal("expected error without notifier")
	}
}

func TestRun_BasicFlow(t *testing.T) {
	client := &fakeClient{posts: map[string][]source.Post{
		"a": {giveaway("a", "1"), chatter("a", "2")},
		"b": {giveaway("b", "3")},
	}}
	st := &memStore{ids: []string{"3"}}
	n := &fakeNotifier{status: notify.Delivered}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sum := newEngine(t, Options{
		Sources:  []match.Criteria{keyword("a"), keyword("b")},
		Client:   client,
		Store:    st,
		Notifier: n,
		Now:      func() time.Time { return fixed },
	}).Run(context.Background())

	if !sum.OK() {
		t.Fatalf("unexpected failure: %v", sum.Err())
	}
	if sum.RunID == "" {
		t.Error("missing run id")
	}
	if !slices.Equal(client.calls, []string{"a", "b"}) {
		t.Errorf("fetch order = %v", client.calls)
	}
	if client.limits[0] != DefaultLimit {
		t.Errorf("limit = %d, want %d", client.limits[0], DefaultLimit)
	}
	if sum.SourcesProcessed != 2 || sum.PostsFetched != 3 || sum.PostsNew != 2 {
		t.Errorf("counts = %+v", sum)
	}
	if sum.Matches != 1 || sum.Notified != 1 || !slices.Equal(n.sent, []string{"1"}) {
		t.Errorf("matches = %d notified = %d sent = %v", sum.Matches, sum.Notified, n.sent)
	}
	if st.saves != 1 {
		t.Errorf("saves = %d, want 1", st.saves)
	}
	if !slices.Equal(st.ids, []string{"1", "2", "3"}) {
		t.Errorf("saved ids = %v", st.ids)
	}
	if !st.saved.UpdatedAt.Equal(fixed) {
		t.Errorf("updated = %v", st.saved.UpdatedAt)
	}
	if sum.SeenTotal != 3 {
		t.Errorf("seen total = %d", sum.SeenTotal)
	}
}

func TestRun_Idempotent(t *testing.T) {
	client := &fakeClient{posts: map[string][]source.Post{
		"a": {giveaway("a", "1"), giveaway("a", "2")},
	}}
	st := &memStore{}
	n := &fakeNotifier{status: notify.Delivered}
	e := newEngine(t, Options{Sources: []match.Criteria{keyword("a")}, Client: client, Store: st, Notifier: n})

	first := e.Run(context.Background())
	second := e.Run(context.Background())

	if first.Notified != 2 {
		t.Fatalf("first run notified %d", first.Notified)
	}
	if second.Notified != 0 || second.PostsNew != 0 {
		t.Fatalf("second run notified %d new %d", second.Notified, second.PostsNew)
	}
	if len(n.sent) != 2 {
		t.Fatalf("sent = %v", n.sent)
	}
}

func TestRun_SamePostTwiceInOneRun(t *testing.T) {
	p := giveaway("a", "dup")
	client := &fakeClient{posts: map[string][]source.Post{
		"a": {p, p},
		"b": {p},
	}}
	n := &fakeNotifier{status: notify.Delivered}
	sum := newEngine(t, Options{
		Sources:  []match.Criteria{keyword("a"), keyword("b")},
		Client:   client,
		Store:    &memStore{},
		Notifier: n,
	}).Run(context.Background())

	if len(n.sent) != 1 || sum.PostsNew != 1 {
		t.Fatalf("sent = %v new = %d", n.sent, sum.PostsNew)
	}
}

func TestRun_NonMatchingPostsStillMarkedSeen(t *testing.T) {
	client := &fakeClient{posts: map[string][]source.Post{"a": {chatter("a", "x")}}}
	st := &memStore{}
	sum := newEngine(t, Options{
		Sources:  []match.Criteria{keyword("a")},
		Client:   client,
		Store:    st,
		Notifier: &fakeNotifier{},
	}).Run(context.Background())

	if sum.Matches != 0 {
		t.Fatalf("matches = %d", sum.Matches)
	}
	if !slices.Equal(st.ids, []string{"x"}) {
		t.Fatalf("saved ids = %v", st.ids)
	}
}

func TestRun_SourceFailureIsolated(t *testing.T) {
	client := &fakeClient{
		posts: map[string][]source.Post{
			"ok1": {giveaway("ok1", "1")},
			"ok2": {giveaway("ok2", "2")},
		},
		errs: map[string]error{"bad": errors.New("status 404")},
	}
	st := &memStore{}
	n := &fakeNotifier{status: notify.Delivered}
	sum := newEngine(t, Options{
		Sources:  []match.Criteria{keyword("ok1"), keyword("bad"), keyword("ok2")},
		Client:   client,
		Store:    st,
		Notifier: n,
	}).Run(context.Background())

	if sum.OK() {
		t.Fatal("expected run to report failure")
	}
	if sum.SourcesFailed != 1 || sum.SourcesProcessed != 2 {
		t.Fatalf("failed = %d processed = %d", sum.SourcesFailed, sum.SourcesProcessed)
	}
	if len(sum.Failures) != 1 || sum.Failures[0].Source != "bad" {
		t.Fatalf("failures = %+v", sum.Failures)
	}
	if !slices.Equal(n.sent, []string{"1", "2"}) {
		t.Fatalf("sent = %v", n.sent)
	}
	if st.saves != 1 || !slices.Equal(st.ids, []string{"1", "2"}) {
		t.Fatalf("saves = %d ids = %v", st.saves, st.ids)
	}
	if !strings.Contains(sum.Err().Error(), "r/bad") {
		t.Fatalf("err = %v", sum.Err())
	}
}

func TestRun_PanicIsolated(t *testing.T) {
	client := &fakeClient{
		posts:  map[string][]source.Post{"ok": {giveaway("ok", "1")}},
		panics: map[string]bool{"boom": true},
	}
	n := &fakeNotifier{status: notify.Delivered}
	sum := newEngine(t, Options{
		Sources:  []match.Criteria{keyword("boom"), keyword("ok")},
		Client:   client,
		Store:    &memStore{},
		Notifier: n,
	}).Run(context.Background())

	if sum.SourcesFailed != 1 || sum.SourcesProcessed != 1 {
		t.Fatalf("failed = %d processed = %d", sum.SourcesFailed, sum.SourcesProcessed)
	}
	if !strings.Contains(sum.Failures[0].Err.Error(), "correlation_id") {
		t.Fatalf("err = %v", sum.Failures[0].Err)
	}
	if len(n.sent) != 1 {
		t.Fatalf("sent = %v", n.sent)
	}
}

func TestRun_DispatchFailureNotRetried(t *testing.T) {
	client := &fakeClient{posts: map[string][]source.Post{"a": {giveaway("a", "1")}}}
	st := &memStore{}
	n := &fakeNotifier{status: notify.Failed, err: errors.New("webhook 500")}
	e := newEngine(t, Options{Sources: []match.Criteria{keyword("a")}, Client: client, Store: st, Notifier: n})

	sum := e.Run(context.Background())
	if sum.NotifyFailed != 1 || sum.OK() {
		t.Fatalf("notify failed = %d ok = %v", sum.NotifyFailed, sum.OK())
	}
	if !slices.Equal(st.ids, []string{"1"}) {
		t.Fatalf("failed post must still be marked seen: %v", st.ids)
	}

	sum = e.Run(context.Background())
	if len(n.sent) != 1 || sum.NotifyFailed != 0 {
		t.Fatalf("dispatch retried: sent = %v", n.sent)
	}
}

func TestRun_NotifySkipped(t *testing.T) {
	client := &fakeClient{posts: map[string][]source.Post{"a": {giveaway("a", "1")}}}
	sum := newEngine(t, Options{
		Sources:  []match.Criteria{keyword("a")},
		Client:   client,
		Store:    &memStore{},
		Notifier: &fakeNotifier{status: notify.Skipped},
	}).Run(context.Background())

	if sum.NotifySkipped != 1 || sum.Matches != 1 || !sum.OK() {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestRun_DedupLoadFailureDegrades(t *testing.T) {
	client := &fakeClient{posts: map[string][]source.Post{"a": {giveaway("a", "1")}}}
	st := &memStore{ids: []string{"1"}, loadErr: errors.New("corrupt")}
	n := &fakeNotifier{status: notify.Delivered}
	sum := newEngine(t, Options{
		Sources:  []match.Criteria{keyword("a")},
		Client:   client,
		Store:    st,
		Notifier: n,
	}).Run(context.Background())

	if sum.DedupLoadErr == nil || sum.OK() {
		t.Fatal("expected dedup load error in summary")
	}
	if len(n.sent) != 1 {
		t.Fatalf("empty state should renotify: sent = %v", n.sent)
	}
	if st.saves != 1 {
		t.Fatalf("saves = %d", st.saves)
	}
}

func TestRun_DedupSaveFailure(t *testing.T) {
	client := &fakeClient{posts: map[string][]source.Post{"a": {giveaway("a", "1")}}}
	st := &memStore{saveErr: errors.New("disk full")}
	sum := newEngine(t, Options{
		Sources:  []match.Criteria{keyword("a")},
		Client:   client,
		Store:    st,
		Notifier: &fakeNotifier{status: notify.Delivered},
	}).Run(context.Background())

	if sum.DedupSaveErr == nil || sum.OK() {
		t.Fatal("expected dedup save error in summary")
	}
	if sum.Notified != 1 {
		t.Fatalf("notified = %d", sum.Notified)
	}
}

func TestRun_CancelledStillSaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &fakeClient{
		posts: map[string][]source.Post{
			"a": {giveaway("a", "1")},
			"b": {giveaway("b", "2")},
			"c": {giveaway("c", "3")},
		},
		onCall: func(sub string) {
			if sub == "a" {
				cancel()
			}
		},
	}
	st := &memStore{}
	sum := newEngine(t, Options{
		Sources:  []match.Criteria{keyword("a"), keyword("b"), keyword("c")},
		Client:   client,
		Store:    st,
		Notifier: &fakeNotifier{status: notify.Delivered},
	}).Run(ctx)

	if !slices.Equal(client.calls, []string{"a"}) {
		t.Fatalf("calls = %v", client.calls)
	}
	if sum.SourcesSkipped != 2 {
		t.Fatalf("skipped = %d", sum.SourcesSkipped)
	}
	if st.saves != 1 {
		t.Fatalf("saves = %d, want 1", st.saves)
	}
}

func TestRun_NoSources(t *testing.T) {
	st := &memStore{}
	sum := newEngine(t, Options{Client: &fakeClient{}, Store: st, Notifier: &fakeNotifier{}}).Run(context.Background())
	if !sum.OK() || st.saves != 1 || sum.SourcesTotal != 0 {
		t.Fatalf("summary = %+v saves = %d", sum, st.saves)
	}
}

func TestRun_CustomLimit(t *testing.T) {
	client := &fakeClient{}
	newEngine(t, Options{
		Sources:  []match.Criteria{keyword("a")},
		Limit:    25,
		Client:   client,
		Store:    &memStore{},
		Notifier: &fakeNotifier{},
	}).Run(context.Background())
	if client.limits[0] != 25 {
		t.Fatalf("limit = %d", client.limits[0])
	}
}
