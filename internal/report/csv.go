package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"adfleet/internal/directory"
	"adfleet/internal/dispatch"
)

// timestampLayout matches the operation-tag_timestamp export naming
const timestampLayout = "20060102_150405"

// ExportCSV writes headers and rows to <dir>/<tag>_<timestamp>.csv and
// returns the path. Row data is written in full; truncation is display-only.
func ExportCSV(dir, tag string, headers []string, rows [][]string) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("no data to export")
	}

	filename := fmt.Sprintf("%s_%s.csv", tag, time.Now().Format(timestampLayout))
	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return "", fmt.Errorf("failed to write export headers: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to write export rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export: %w", err)
	}
	return path, nil
}

// RoundRows projects a dispatch round into export rows, one per outcome,
// stable column set.
func RoundRows(round *dispatch.Round) ([]string, [][]string) {
	headers := []string{"Computer", "Status", "Output"}
	rows := make([][]string, 0, len(round.Outcomes))
	for _, o := range round.Outcomes {
		rows = append(rows, []string{o.TargetName, o.Status.String(), o.Output})
	}
	return headers, rows
}

// UserRows projects user records into export rows
func UserRows(users []directory.User) ([]string, [][]string) {
	headers := []string{"DistinguishedName", "CommonName", "Email", "UserPrincipalName", "SAMAccountName", "WhenCreated", "WhenChanged"}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.DN, u.CommonName, u.Mail, u.UserPrincipalName, u.SAMAccountName, u.WhenCreated, u.WhenChanged})
	}
	return headers, rows
}

// ComputerRows projects computer records into export rows
func ComputerRows(computers []directory.Computer) ([]string, [][]string) {
	headers := []string{"DistinguishedName", "ComputerName", "DNSHostName", "OperatingSystem", "OSVersion", "WhenCreated", "WhenChanged"}
	rows := make([][]string, 0, len(computers))
	for _, c := range computers {
		rows = append(rows, []string{c.DN, c.Name, c.DNSHostName, c.OS, c.OSVersion, c.WhenCreated, c.WhenChanged})
	}
	return headers, rows
}

// DCProbeRow is one domain-controller connectivity result
type DCProbeRow struct {
	Name     string
	Hostname string
	Status   string
}

// DCProbeRows projects connectivity test results into export rows
func DCProbeRows(probes []DCProbeRow) ([]string, [][]string) {
	headers := []string{"DomainController", "DNSHostName", "ConnectionStatus"}
	rows := make([][]string, 0, len(probes))
	for _, p := range probes {
		rows = append(rows, []string{p.Name, p.Hostname, p.Status})
	}
	return headers, rows
}
