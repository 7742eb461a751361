package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/krux/aws-analysis-tools/pkg/stats"
	"github.com/krux/aws-analysis-tools/pkg/utils"
)

// PrintEventStats prints the event counters, one row per region and event code
func PrintEventStats(w io.Writer, counters *stats.Counters) {
	keys := counters.Keys()
	if len(keys) == 0 {
		return
	}

	fmt.Fprintln(w, "\n## Event Statistics")

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tLOCATION\tCODE\tEVENTS")

	total := 0
	for _, key := range keys {
		count := counters.Get(key)
		total += count

		region, code := splitStatKey(key)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", region, utils.GetRegionDescriptiveName(region), code, humanize.Comma(int64(count)))
	}
	fmt.Fprintf(tw, "Total:\t\t\t%s\n", humanize.Comma(int64(total)))

	tw.Flush()
}

// splitStatKey splits event.{region}.{code}. Keys in any other shape are
// shown whole in the region column.
func splitStatKey(key string) (string, string) {
	parts := strings.SplitN(key, ".", 3)
	if len(parts) != 3 || parts[0] != "event" {
		return key, ""
	}
	return parts[1], parts[2]
}
