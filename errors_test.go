package tome

import (
	"errors"
	"testing"
	"time"
)

func TestErrHTTP_Error(t *testing.T) {
	err := &ErrHTTP{Status: 429, Body: "slow down"}
	want := "http 429: slow down"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestErrSourceExists_Error(t *testing.T) {
	var err error = &ErrSourceExists{Source: "paper.md"}
	var target *ErrSourceExists
	if !errors.As(err, &target) {
		t.Fatal("errors.As failed")
	}
	if target.Source != "paper.md" {
		t.Errorf("Source = %q, want %q", target.Source, "paper.md")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := ParseRetryAfter(tt.in); got != tt.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRetryAfter_HTTPDate(t *testing.T) {
	future := time.Now().Add(30 * time.Second).UTC().Format(time.RFC1123)
	got := ParseRetryAfter(future)
	if got <= 0 || got > 31*time.Second {
		t.Errorf("ParseRetryAfter(date) = %v, want ~30s", got)
	}

	past := time.Now().Add(-time.Minute).UTC().Format(time.RFC1123)
	if got := ParseRetryAfter(past); got != 0 {
		t.Errorf("ParseRetryAfter(past date) = %v, want 0", got)
	}
}
