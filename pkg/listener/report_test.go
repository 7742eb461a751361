package listener

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestReportEmpty(t *testing.T) {
	var out bytes.Buffer
	l := NewReportListener(&out, WithReportClock(fixedClock))
	if err := l.HandleComplete(context.Background()); err != nil {
		t.Fatalf("HandleComplete: %v", err)
	}
	if got := out.String(); got != "No scheduled maintenance events found.\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestReportPrintsEvents(t *testing.T) {
	var out bytes.Buffer
	l := NewReportListener(&out, WithReportClock(fixedClock))

	ctx := context.Background()
	_ = l.HandleEvent(ctx, testInstance(), eventIn(72*time.Hour))
	unnamed := testInstance()
	unnamed.Name = ""
	_ = l.HandleEvent(ctx, unnamed, eventIn(2*time.Hour))
	if err := l.HandleComplete(ctx); err != nil {
		t.Fatalf("HandleComplete: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"ZONE", "INSTANCE ID", "web-1.example.net", "<unnamed>",
		"2030-01-04T00:00:00Z", "3 days from now", "2 hours from now",
		"## Scheduled Events Summary", "## Event Statistics", "system-reboot",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in report:\n%s", want, got)
		}
	}
	// soonest first
	if strings.Index(got, "<unnamed>") > strings.Index(got, "web-1.example.net") {
		t.Errorf("expected events sorted by start:\n%s", got)
	}
}
