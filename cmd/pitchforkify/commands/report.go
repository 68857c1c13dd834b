package commands

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
)

func renderReports(w io.Writer, reports []domain.PageReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Page", "Discovered", "Inserted", "Updated", "Skipped", "Failed", "Throttled", "Duration"})

	var total domain.PageReport
	for _, r := range reports {
		t.AppendRow(table.Row{r.Page, r.Discovered, r.Inserted, r.Updated, r.Skipped, r.Failed, r.ThrottleRetries, r.Duration.Round(time.Millisecond)})
		total.Discovered += r.Discovered
		total.Inserted += r.Inserted
		total.Updated += r.Updated
		total.Skipped += r.Skipped
		total.Failed += r.Failed
		total.ThrottleRetries += r.ThrottleRetries
		total.Duration += r.Duration
	}
	if len(reports) > 1 {
		t.AppendFooter(table.Row{"Total", total.Discovered, total.Inserted, total.Updated, total.Skipped, total.Failed, total.ThrottleRetries, total.Duration.Round(time.Millisecond)})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}
