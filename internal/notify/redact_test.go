package notify

import "testing"

func TestCompileRedact_Empty(t *testing.T) {
	patterns, err := CompileRedact(nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("got %d patterns, want 0", len(patterns))
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		text     string
		want     string
	}{
		{"single", []string{`(?i)discord:\s*\S+`}, "Add me Discord: ash#1234 thanks", "Add me [REDACTED] thanks"},
		{"multiple patterns", []string{`(?i)ign`, `\d{4}-\d{4}-\d{4}`}, "IGN Ash, code 1234-5678-9012", "[REDACTED] Ash, code [REDACTED]"},
		{"repeated match", []string{`(?i)secret`}, "secret and Secret", "[REDACTED] and [REDACTED]"},
		{"no match", []string{`token`}, "nothing here", "nothing here"},
		{"no patterns", nil, "unchanged", "unchanged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patterns, err := CompileRedact(tt.patterns)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if got := redact(tt.text, patterns); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
