package formatter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/krux/aws-analysis-tools/pkg/stats"
)

func TestPrintEventsTableEmpty(t *testing.T) {
	var out bytes.Buffer
	PrintEventsTable(&out, nil, time.Now(), 0)
	if out.String() != "No scheduled maintenance events found.\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestPrintEventsTable(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []EventRow{
		{Zone: "us-east-1a", Name: "later", InstanceID: "i-2", Code: "system-reboot", Description: "scheduled reboot", NotBefore: now.Add(48 * time.Hour)},
		{Zone: "us-east-1b", InstanceID: "i-1", Code: "instance-stop", Description: "The instance is running on degraded hardware and will be stopped", NotBefore: now.Add(-time.Hour)},
	}

	var out bytes.Buffer
	PrintEventsTable(&out, rows, now, 1500*time.Millisecond)
	got := out.String()

	for _, want := range []string{
		"Scan time: 2030-01-01 00:00:00 (completed in 1.50 seconds)",
		"<unnamed>", "open-ended", "1 hour ago", "2 days from now", "Total:",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "stopped") {
		t.Errorf("expected long description to be truncated:\n%s", got)
	}
	if strings.Index(got, "i-1") > strings.Index(got, "i-2") {
		t.Errorf("expected soonest event first:\n%s", got)
	}
	if rows[0].InstanceID != "i-2" {
		t.Error("expected caller's rows to be left unsorted")
	}
}

func TestPrintEventsSummary(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []EventRow{
		{NotBefore: now.Add(-time.Hour)},
		{NotBefore: now.Add(3 * time.Hour)},
		{NotBefore: now.Add(90 * 24 * time.Hour)},
	}
	var out bytes.Buffer
	PrintEventsSummary(&out, rows, now)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := map[string]string{
		"Already started": "1",
		"Within 1 day":    "1",
		"2-5 days":        "0",
		"6-30 days":       "0",
		"Over 30 days":    "1",
	}
	found := 0
	for _, line := range lines {
		for label, count := range want {
			if strings.HasPrefix(line, label) {
				found++
				if fields := strings.Fields(line); fields[len(fields)-1] != count {
					t.Errorf("%s: got %q, want %s", label, line, count)
				}
			}
		}
	}
	if found != len(want) {
		t.Fatalf("expected %d summary rows, got:\n%s", len(want), out.String())
	}
}

func TestPrintEventStats(t *testing.T) {
	counters := stats.New()
	for i := 0; i < 1200; i++ {
		counters.Incr("event.us-east-1.system-reboot")
	}
	counters.Incr("event.eu-west-1.instance-retirement")

	var out bytes.Buffer
	PrintEventStats(&out, counters)
	got := out.String()

	for _, want := range []string{"## Event Statistics", "US East (N. Virginia)", "1,200", "1,201", "instance-retirement"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
	if strings.Index(got, "eu-west-1") > strings.Index(got, "us-east-1") {
		t.Errorf("expected rows in key order:\n%s", got)
	}
}

func TestPrintEventStatsEmpty(t *testing.T) {
	var out bytes.Buffer
	PrintEventStats(&out, stats.New())
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"this is too long", 10, "this is..."},
		{"서버점검예정", 8, "서버..."},
		{"abc", 2, ".."},
	}
	for _, test := range tests {
		if got := Truncate(test.in, test.width); got != test.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", test.in, test.width, got, test.want)
		}
	}
}
