// Package report formats dispatch and inventory results for display and export.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"adfleet/internal/directory"
	"adfleet/internal/dispatch"
)

// maxOutputDisplay bounds the output column in interactive tables.
// Exports are never truncated.
const maxOutputDisplay = 200

var (
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
)

// WriteRound renders the outcome table for one dispatch round, stable by
// target name, with a success summary line.
func WriteRound(w io.Writer, round *dispatch.Round) error {
	outcomes := append([]dispatchOutcome(nil), toDispatchOutcomes(round)...)
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].name < outcomes[j].name
	})

	fmt.Fprintf(w, "Command execution results: %s\n", round.Command)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPUTER\tSTATUS\tOUTPUT")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.name, o.status, Truncate(o.output, maxOutputDisplay))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write results table: %w", err)
	}

	successes, _ := round.Counts()
	fmt.Fprintf(w, "Summary: %d/%d computers completed successfully\n", successes, len(round.Targets))
	return nil
}

type dispatchOutcome struct {
	name   string
	status string
	output string
}

func toDispatchOutcomes(round *dispatch.Round) []dispatchOutcome {
	out := make([]dispatchOutcome, 0, len(round.Outcomes))
	for _, o := range round.Outcomes {
		status := o.Status.String()
		if o.OK() {
			status = successColor.Sprint(status)
		} else {
			status = failureColor.Sprint(status)
		}
		out = append(out, dispatchOutcome{name: o.TargetName, status: status, output: o.Output})
	}
	return out
}

// Truncate bounds s to max runes, collapsing newlines so one row stays one
// line, and appends an ellipsis when anything was cut.
func Truncate(s string, max int) string {
	s = strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", " "), "\n", " ")
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// WriteComputers renders the computer inventory table
func WriteComputers(w io.Writer, computers []directory.Computer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPUTER\tDNS HOSTNAME\tOS\tOS VERSION")
	for _, c := range computers {
		hostname := c.DNSHostName
		if hostname == "" {
			hostname = "N/A"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, hostname, c.OS, c.OSVersion)
	}
	return tw.Flush()
}

// WriteUsers renders the user inventory table
func WriteUsers(w io.Writer, users []directory.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSAM ACCOUNT\tMAIL\tUPN")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.CommonName, u.SAMAccountName, u.Mail, u.UserPrincipalName)
	}
	return tw.Flush()
}

// WriteOUs renders the organizational unit table
func WriteOUs(w io.Writer, ous []directory.OU) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tOU\tDISTINGUISHED NAME")
	for i, ou := range ous {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, ou.Name, ou.DN)
	}
	return tw.Flush()
}
