package cache

import (
	"testing"
	"time"
)

func TestFreshTTL(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		mode Freshness
		ts   int64
		want bool
	}{
		{
			name: "within ttl",
			mode: TTL(time.Minute),
			ts:   now.Add(-59 * time.Second).Unix(),
			want: true,
		},
		{
			name: "at ttl boundary",
			mode: TTL(time.Minute),
			ts:   now.Add(-time.Minute).Unix(),
			want: false,
		},
		{
			name: "past ttl",
			mode: TTL(time.Minute),
			ts:   now.Add(-2 * time.Minute).Unix(),
			want: false,
		},
		{
			name: "zero ttl never fresh",
			mode: TTL(0),
			ts:   now.Unix(),
			want: false,
		},
		{
			name: "negative ttl never fresh",
			mode: TTL(-time.Minute),
			ts:   now.Unix(),
			want: false,
		},
		{
			name: "nanosecond negative ttl never fresh",
			mode: TTL(-time.Nanosecond),
			ts:   now.Add(-365 * 24 * time.Hour).Unix(),
			want: false,
		},
		{
			name: "two nanosecond negative ttl never fresh",
			mode: TTL(-2 * time.Nanosecond),
			ts:   now.Unix(),
			want: false,
		},
		{
			name: "missing timestamp",
			mode: TTL(time.Hour),
			ts:   0,
			want: false,
		},
		{
			name: "until cleared ignores age",
			mode: UntilCleared,
			ts:   now.Add(-365 * 24 * time.Hour).Unix(),
			want: true,
		},
		{
			name: "until cleared still needs a timestamp",
			mode: UntilCleared,
			ts:   0,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fresh(tt.mode, tt.ts, now); got != tt.want {
				t.Errorf("fresh(%v, %d) = %v, want %v", tt.mode, tt.ts, got, tt.want)
			}
		})
	}
}

func TestTTLClampsToZero(t *testing.T) {
	// Freshness(-1) and Freshness(-2) are reserved, so the durations that
	// would land on them clamp to zero like every other non-positive value.
	for _, d := range []time.Duration{0, -time.Nanosecond, -2 * time.Nanosecond, -time.Hour} {
		if got := TTL(d); got != 0 {
			t.Errorf("TTL(%v) = %v, want 0", d, got)
		}
	}
}

func TestFreshSameDay(t *testing.T) {
	tests := []struct {
		name  string
		saved time.Time
		now   time.Time
		want  bool
	}{
		{
			name:  "same instant",
			saved: time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local),
			now:   time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local),
			want:  true,
		},
		{
			name:  "same day hours apart",
			saved: time.Date(2025, 6, 15, 0, 0, 1, 0, time.Local),
			now:   time.Date(2025, 6, 15, 23, 59, 59, 0, time.Local),
			want:  true,
		},
		{
			name:  "crosses midnight",
			saved: time.Date(2025, 6, 15, 23, 59, 59, 0, time.Local),
			now:   time.Date(2025, 6, 16, 0, 0, 1, 0, time.Local),
			want:  false,
		},
		{
			name:  "crosses month",
			saved: time.Date(2025, 6, 30, 12, 0, 0, 0, time.Local),
			now:   time.Date(2025, 7, 1, 12, 0, 0, 0, time.Local),
			want:  false,
		},
		{
			name:  "same date a year later",
			saved: time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local),
			now:   time.Date(2026, 6, 15, 12, 0, 0, 0, time.Local),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fresh(SameDay, tt.saved.Unix(), tt.now); got != tt.want {
				t.Errorf("fresh(SameDay, %v, %v) = %v, want %v", tt.saved, tt.now, got, tt.want)
			}
		})
	}
}

func TestFreshnessString(t *testing.T) {
	if got := UntilCleared.String(); got != "until-cleared" {
		t.Errorf("UntilCleared.String() = %v, want until-cleared", got)
	}
	if got := SameDay.String(); got != "same-day" {
		t.Errorf("SameDay.String() = %v, want same-day", got)
	}
	if got := TTL(90 * time.Second).String(); got != "1m30s" {
		t.Errorf("TTL(90s).String() = %v, want 1m30s", got)
	}
}
