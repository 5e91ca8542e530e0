package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"m365console/internal/monitor"
	"m365console/internal/remediation"
	"m365console/internal/session"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, report monitor.FaultReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tSTATUS\tMESSAGE")
	for _, c := range report.Checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, status, c.Message)
	}
	tw.Flush()

	if report.Passed() {
		fmt.Fprintln(w, "\nAll checks passed.")
	} else {
		fmt.Fprintf(w, "\n%d of %d checks failed.\n", len(report.Failures()), len(report.Checks))
	}
}

func printOutcome(w io.Writer, out remediation.RepairOutcome) {
	result := "faults remain"
	if out.Success {
		result = "healthy"
	}
	fmt.Fprintf(w, "Repair tier %s: %s\n", out.Tier, result)
	for _, err := range out.Errors {
		fmt.Fprintf(w, "  - %v\n", err)
	}
	if !out.Success {
		fmt.Fprintf(w, "Still failing: %s\n", strings.Join(out.After.FailedNames(), ", "))
	}
}

func printSession(w io.Writer, s remediation.RepairSession) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "State:\t%s\n", s.StateLabel())
	fmt.Fprintf(tw, "Consecutive failures:\t%d\n", s.ConsecutiveFailures)
	fmt.Fprintf(tw, "Repair attempts:\t%d/%d\n", s.TotalAttempts, s.MaxRepairAttempts)
	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(tw, "Updated:\t%s\n", s.UpdatedAt.Format(time.RFC3339))
	}
	if s.LastReport != nil {
		failing := "none"
		if names := s.LastReport.FailedNames(); len(names) > 0 {
			failing = strings.Join(names, ", ")
		}
		fmt.Fprintf(tw, "Failing checks:\t%s\n", failing)
	}
	tw.Flush()

	if len(s.History) == 0 {
		return
	}
	fmt.Fprintln(w, "\nHistory:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTIER\tRESULT\tFORCED")
	for _, h := range s.History {
		result := "failure"
		if h.Success {
			result = "success"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", h.Timestamp.Format(time.RFC3339), h.Tier, result, h.Forced)
	}
	tw.Flush()
}

func printStates(w io.Writer, states []session.ConnectionState) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tSTATUS\tCREDENTIAL\tRETRIES\tERROR")
	for _, s := range states {
		kind := string(s.CredentialKind)
		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ServiceID, s.Status, kind, s.RetryCount, s.LastError)
	}
	tw.Flush()
}
