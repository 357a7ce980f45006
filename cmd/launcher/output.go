package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/defistate/token-launcher-go/events"
	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/store"
	"github.com/defistate/token-launcher-go/web"
)

// --- VISUAL CONSTANTS ---
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[37m"
)

// header prints a styled section header
func header(w io.Writer, title string) {
	fmt.Fprintln(w, "\n"+Bold+Cyan+":: "+title+" ::"+Reset)
}

func statusColor(status launch.Status) string {
	switch status {
	case launch.StatusCompleted:
		return Green
	case launch.StatusPartiallyCompleted:
		return Yellow
	default:
		return Red
	}
}

func outcomeColor(status launch.OutcomeStatus) string {
	switch status {
	case launch.OutcomeSuccess:
		return Green
	case launch.OutcomeSkipped:
		return Gray
	default:
		return Red
	}
}

// printEvent renders one progress event as a console line.
func printEvent(w io.Writer, e events.Event) {
	switch e.Type {
	case events.StateChangedEvent:
		fmt.Fprintf(w, "%s» %s%s\n", Cyan, e.State, Reset)
	case events.StageSubmittedEvent:
		fmt.Fprintf(w, "  %s%-16s%s submitted %s\n", Bold, e.Stage, Reset, e.TxHash.Hex())
	case events.StageFinishedEvent:
		o := e.Outcome
		line := fmt.Sprintf("  %s%-16s%s %s%s%s", Bold, e.Stage, Reset, outcomeColor(o.Status), o.Status, Reset)
		if o.Kind != "" {
			line += fmt.Sprintf(" %s: %s", o.Kind, o.Detail)
		}
		fmt.Fprintln(w, line)
	}
}

// printResult renders the summary of a sealed result.
func printResult(w io.Writer, res *launch.WorkflowResult) {
	header(w, "Launch "+res.RequestID)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Status\t%s%s%s\n", statusColor(res.Status), res.Status, Reset)
	fmt.Fprintf(tw, "Run\t%s\n", res.RunID)
	if res.Deployment != nil {
		fmt.Fprintf(tw, "Token\t%s\n", res.Deployment.DeployedAddress.Hex())
		fmt.Fprintf(tw, "Deploy tx\t%s\n", res.Deployment.TransactionHash.Hex())
	}
	if res.PoolKey != nil {
		fmt.Fprintf(tw, "Pool key\t%s\n", res.PoolKey.String())
	}
	if res.PoolID != nil {
		fmt.Fprintf(tw, "Pool id\t%s\n", res.PoolID.String())
	}
	if f := res.Failure; f != nil {
		fmt.Fprintf(tw, "Failed stage\t%s\n", f.Stage)
		fmt.Fprintf(tw, "Kind\t%s\n", f.Kind)
		if f.Cause != "" {
			fmt.Fprintf(tw, "Cause\t%s\n", f.Cause)
		}
		fmt.Fprintf(tw, "Detail\t%s\n", f.Detail)
		for _, fe := range f.Fields {
			fmt.Fprintf(tw, "  %s\t%s\n", fe.Field, fe.Message)
		}
		fmt.Fprintf(tw, "Guidance\t%s\n", f.Guidance)
	}
	tw.Flush()
}

// printHistory renders persisted records and the per-stage summary.
func printHistory(w io.Writer, requestID string, records []store.Record) {
	summary := web.NewLaunchHistoryResponse(requestID, records)

	header(w, "Stages")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tSTATUS\tTX\tBLOCK\tREVERTS")
	for _, stage := range launch.Stages {
		s := summary.Stages[stage]
		tx := "-"
		if s.TxHash != nil {
			tx = s.TxHash.Hex()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", stage, s.Status, tx, s.BlockNumber, s.Reverted)
	}
	tw.Flush()

	header(w, "Records")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDED\tSTAGE\tPHASE\tTX")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.RecordedAt.Format("2006-01-02 15:04:05"), r.Stage, r.Phase, r.TxHash.Hex())
	}
	tw.Flush()
}
