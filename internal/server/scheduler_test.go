package server

import (
	"testing"
	"time"
)

func TestIsDueNeverRan(t *testing.T) {
	for _, spec := range []string{"@daily", "@hourly", "0 3 * * *", "not-a-cron"} {
		if !isDue(spec, nil) {
			t.Fatalf("spec %q with no prior run should be due", spec)
		}
	}
}

func TestIsDueDaily(t *testing.T) {
	recent := time.Now().Add(-2 * time.Hour)
	if isDue("@daily", &recent) {
		t.Fatalf("@daily should not fire 2h after the last run")
	}
	old := time.Now().Add(-25 * time.Hour)
	if !isDue("@daily", &old) {
		t.Fatalf("@daily should fire 25h after the last run")
	}
}

func TestIsDueHourly(t *testing.T) {
	recent := time.Now().Add(-10 * time.Minute)
	if isDue("@hourly", &recent) {
		t.Fatalf("@hourly should not fire 10m after the last run")
	}
	old := time.Now().Add(-61 * time.Minute)
	if !isDue("@hourly", &old) {
		t.Fatalf("@hourly should fire 61m after the last run")
	}
}

func TestIsDueCronExpression(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	if !isDue("0 3 * * *", &old) {
		t.Fatalf("daily cron should fire when the last run is two days old")
	}
	justNow := time.Now().Add(-time.Minute)
	if isDue("0 3 * * *", &justNow) && time.Now().Hour() != 3 {
		t.Fatalf("daily cron should not fire a minute after the last run")
	}
}
