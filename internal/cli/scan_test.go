package cli

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func TestParseScanEvery(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty", input: "", want: 0},
		{name: "valid duration", input: "15m", want: 15 * time.Minute},
		{name: "parse error", input: "abc", wantErr: true},
		{name: "zero duration", input: "0s", wantErr: true},
		{name: "negative duration", input: "-1m", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseScanEvery(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func stubScanOnce(t *testing.T, fn func(context.Context) error) {
	t.Helper()
	oldEvery := scanEvery
	oldOnce := scanOnceAction
	t.Cleanup(func() {
		scanEvery = oldEvery
		scanOnceAction = oldOnce
	})
	scanOnceAction = fn
}

func TestScanActionRunsOnceWithoutEvery(t *testing.T) {
	calls := 0
	stubScanOnce(t, func(context.Context) error {
		calls++
		return nil
	})
	scanEvery = ""

	if err := scanAction(&cobra.Command{}, nil); err != nil {
		t.Fatalf("scanAction failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("scan called %d times, want 1", calls)
	}
}

func TestScanActionReturnsRunError(t *testing.T) {
	stubScanOnce(t, func(context.Context) error { return errors.New("source failed") })
	scanEvery = ""

	if err := scanAction(&cobra.Command{}, nil); err == nil {
		t.Fatal("expected error from a failed run")
	}
}

func TestScanActionEveryImmediateThenInterval(t *testing.T) {
	interval := 80 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var times []time.Time
	stubScanOnce(t, func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		times = append(times, time.Now())
		if len(times) >= 2 {
			cancel()
		}
		return errors.New("runs keep going after a failure")
	})
	scanEvery = interval.String()

	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	start := time.Now()

	var err error
	_, _ = captureStdout(t, func() error {
		err = scanAction(cmd, nil)
		return nil
	})
	if err != nil {
		t.Fatalf("scanAction failed: %v", err)
	}

	mu.Lock()
	got := append([]time.Time(nil), times...)
	mu.Unlock()

	if len(got) < 2 {
		t.Fatalf("scan called %d times, want at least 2", len(got))
	}
	if firstDelay := got[0].Sub(start); firstDelay >= interval {
		t.Fatalf("first run delayed by %v, want less than %v", firstDelay, interval)
	}
	minGap := interval - 10*time.Millisecond
	if gap := got[1].Sub(got[0]); gap < minGap {
		t.Fatalf("interval gap too short: got %v, want at least %v", gap, minGap)
	}
}

func TestScanLoopStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	calls := 0
	start := time.Now()
	err := scanLoop(ctx, 10*time.Second, func(context.Context) error {
		calls++
		cancel()
		return nil
	})
	if err != nil {
		t.Fatalf("scanLoop failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("scan called %d times, want 1", calls)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("loop shutdown took too long: %v", elapsed)
	}
}
