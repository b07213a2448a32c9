package cli

import (
	"testing"
	"time"
)

func TestResolveTrim(t *testing.T) {
	testCases := []struct {
		name                 string
		start, end, duration float64
		wantStart, wantEnd   float64
	}{
		{"defaults on long track", 0, 0, 180, 0, 60},
		{"defaults on short track", 0, 0, 45, 0, 45},
		{"explicit window", 30, 90, 180, 30, 90},
		{"default end follows start", 100, 0, 180, 100, 160},
		{"end past duration", 20, 500, 180, 20, 180},
		{"too short extends end", 30, 35, 180, 30, 40},
		{"too short at tail pulls start", 175, 178, 180, 170, 180},
		{"start past duration", 500, 0, 180, 170, 180},
		{"end before start", 50, 20, 180, 50, 60},
		{"negative start", -5, 30, 180, 0, 30},
		{"track shorter than minimum", 2, 5, 8, 0, 8},
		{"empty track", 0, 0, 0, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gotStart, gotEnd := ResolveTrim(tc.start, tc.end, tc.duration)
			if gotStart != tc.wantStart || gotEnd != tc.wantEnd {
				t.Errorf("ResolveTrim(%v, %v, %v) = (%v, %v), want (%v, %v)",
					tc.start, tc.end, tc.duration, gotStart, gotEnd, tc.wantStart, tc.wantEnd)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	testCases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tc := range testCases {
		if got := FormatBytes(tc.in); got != tc.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(250 * time.Millisecond); got != "250ms" {
		t.Errorf("FormatDuration(250ms) = %q", got)
	}
	if got := FormatDuration(1500 * time.Millisecond); got != "1.5s" {
		t.Errorf("FormatDuration(1.5s) = %q", got)
	}
}
