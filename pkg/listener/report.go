package listener

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/krux/aws-analysis-tools/internal/models"
	"github.com/krux/aws-analysis-tools/pkg/formatter"
	"github.com/krux/aws-analysis-tools/pkg/stats"
)

// ReportListener prints every event found as a table once the check completes
type ReportListener struct {
	out     io.Writer
	now     func() time.Time
	started time.Time
	stats   *stats.Counters
	rows    []formatter.EventRow
}

// ReportOption configures a ReportListener
type ReportOption func(*ReportListener)

// WithReportClock sets the clock used for relative start times and scan duration
func WithReportClock(now func() time.Time) ReportOption {
	return func(l *ReportListener) {
		l.now = now
	}
}

// NewReportListener creates a report listener writing to out, or stdout when nil
func NewReportListener(out io.Writer, opts ...ReportOption) *ReportListener {
	if out == nil {
		out = os.Stdout
	}
	l := &ReportListener{
		out:   out,
		now:   time.Now,
		stats: stats.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.started = l.now()
	return l
}

// Name implements checker.Named
func (l *ReportListener) Name() string { return "report" }

// HandleEvent buffers the event for the report
func (l *ReportListener) HandleEvent(_ context.Context, instance models.Instance, event models.MaintenanceEvent) error {
	l.stats.Incr(StatKey(instance.Region, event.Code))
	l.rows = append(l.rows, formatter.EventRow{
		Region:      instance.Region,
		Zone:        instance.Placement,
		Name:        instance.Name,
		InstanceID:  instance.ID,
		Code:        event.Code,
		Description: event.Description,
		NotBefore:   event.NotBefore,
		NotAfter:    event.NotAfter,
	})
	return nil
}

// HandleComplete prints the events table, the start time summary and the counters
func (l *ReportListener) HandleComplete(_ context.Context) error {
	now := l.now()
	formatter.PrintEventsTable(l.out, l.rows, now, now.Sub(l.started))
	formatter.PrintEventsSummary(l.out, l.rows, now)
	formatter.PrintEventStats(l.out, l.stats)
	l.rows = nil
	return nil
}
