package utils

import "testing"

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00"},
		{45, "00:45"},
		{75, "01:15"},
		{3599, "59:59"},
		{3600, "01:00:00"},
		{3725, "01:02:05"},
	}
	for _, c := range cases {
		if got := FormatTimestamp(c.seconds); got != c.want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 3); got != "hel" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("hello", 10); got != "hello" {
		t.Fatalf("Truncate should not pad: %q", got)
	}
	if got := Truncate("hello", 0); got != "hello" {
		t.Fatalf("Truncate with n<=0 should return input: %q", got)
	}
}
