package ui

import (
	"fmt"
	"io"
	"time"

	"igsaved/pkg/models"
)

// Printer renders per-post progress lines to a writer. It is the plain
// (non-TUI) presentation shell for a backup run.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Consume drains the event stream until it closes, printing one line per
// processed post.
func (p *Printer) Consume(events <-chan models.ProgressEvent) {
	count := 0
	for ev := range events {
		count++
		p.printEvent(count, ev)
	}
}

func (p *Printer) printEvent(n int, ev models.ProgressEvent) {
	label := fmt.Sprintf("[%4d] %-8s %s", n, ev.Kind.String(), ev.PK)
	switch ev.Status {
	case models.OutcomeSuccess:
		fmt.Fprintf(p.out, "%s %s\n", Green("✓"), label)
	case models.OutcomePartial:
		fmt.Fprintf(p.out, "%s %s %s\n", Yellow("~"), label, Dim("(partial)"))
	default:
		detail := ""
		if ev.Err != nil {
			detail = " " + Dim(ev.Err.Error())
		}
		fmt.Fprintf(p.out, "%s %s%s\n", Red("✗"), label, detail)
	}
}

// PrintSummary renders the final run accounting.
func (p *Printer) PrintSummary(summary *models.Summary, elapsed time.Duration) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, Cyan("Backup complete"))
	fmt.Fprintf(p.out, "  %s %d\n", Cyan("New downloads:"), summary.NewDownloads())
	if summary.Partial > 0 {
		fmt.Fprintf(p.out, "  %s %d\n", Yellow("Partial:"), summary.Partial)
	}
	fmt.Fprintf(p.out, "  %s %d\n", Cyan("Skipped (already saved):"), summary.Skipped)
	fmt.Fprintf(p.out, "  %s %d\n", Cyan("Failed:"), summary.Failed)
	fmt.Fprintf(p.out, "  %s %s\n", Cyan("Elapsed:"), elapsed.Round(time.Second))
}

// PrintCollections renders a collection listing as an aligned table.
func PrintCollections(out io.Writer, collections []models.Collection) {
	if len(collections) == 0 {
		fmt.Fprintln(out, Dim("No collections found."))
		return
	}
	fmt.Fprintf(out, "%-20s %-30s %s\n", Cyan("ID"), Cyan("NAME"), Cyan("POSTS"))
	for _, c := range collections {
		fmt.Fprintf(out, "%-20s %-30s %d\n", c.ID, c.Name, c.MediaCount)
	}
}
