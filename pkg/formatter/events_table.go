package formatter

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/krux/aws-analysis-tools/pkg/utils"
)

// maxDescriptionWidth keeps long AWS event descriptions from stretching the table
const maxDescriptionWidth = 60

// EventRow is one line of the events table
type EventRow struct {
	Region      string
	Zone        string
	Name        string
	InstanceID  string
	Code        string
	Description string
	NotBefore   time.Time
	NotAfter    *time.Time
}

// PrintEventsTable prints the scheduled events, soonest first
func PrintEventsTable(w io.Writer, rows []EventRow, scanTime time.Time, scanDuration time.Duration) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No scheduled maintenance events found.")
		return
	}

	sorted := make([]EventRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NotBefore.Before(sorted[j].NotBefore)
	})

	// kubectl style
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	printTimestamp(tw, scanTime, scanDuration)

	fmt.Fprintln(tw, "ZONE\tNAME\tINSTANCE ID\tCODE\tDESCRIPTION\tSTART\tEND\tSTARTS")
	for _, row := range sorted {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Zone,
			getInstanceName(row.Name),
			row.InstanceID,
			row.Code,
			Truncate(row.Description, maxDescriptionWidth),
			utils.FormatEventTime(row.NotBefore),
			utils.FormatEventEnd(row.NotAfter),
			humanize.RelTime(row.NotBefore, scanTime, "ago", "from now"),
		)
	}
	fmt.Fprintf(tw, "Total:\t\t%d\n", len(sorted))

	tw.Flush()
}

// getInstanceName returns a formatted instance name or <unnamed> if empty
func getInstanceName(name string) string {
	if name == "" {
		return "<unnamed>"
	}
	return name
}

// PrintEventsSummary groups the events by how soon they start
func PrintEventsSummary(w io.Writer, rows []EventRow, now time.Time) {
	if len(rows) == 0 {
		return
	}

	keys := []string{"Already started", "Within 1 day", "2-5 days", "6-30 days", "Over 30 days"}
	ranges := make(map[string]int, len(keys))

	for _, row := range rows {
		until := row.NotBefore.Sub(now)
		switch {
		case until <= 0:
			ranges["Already started"]++
		case until <= 24*time.Hour:
			ranges["Within 1 day"]++
		case until <= 5*24*time.Hour:
			ranges["2-5 days"]++
		case until <= 30*24*time.Hour:
			ranges["6-30 days"]++
		default:
			ranges["Over 30 days"]++
		}
	}

	fmt.Fprintln(w, "\n## Scheduled Events Summary")

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTS\tEVENT COUNT")
	for _, key := range keys {
		fmt.Fprintf(tw, "%s\t%d\n", key, ranges[key])
	}
	tw.Flush()
}

// printTimestamp prints the scan timestamp and duration
func printTimestamp(w io.Writer, scanTime time.Time, scanDuration time.Duration) {
	fmt.Fprintf(w, "Scan time: %s (completed in %.2f seconds)\n",
		scanTime.Format("2006-01-02 15:04:05"),
		scanDuration.Seconds())
}
