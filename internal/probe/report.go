package probe

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Print writes a per-user table followed by a summary line.
func (r *Report) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tSTATUS\tTITLES\tIDENTICAL\tWITHIN_N\tLATENCY_MS\tDETAIL")
	for _, res := range r.Results {
		detail := res.Error
		if detail == "" && len(res.Titles) > 0 {
			detail = res.Titles[0]
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%t\t%t\t%.2f\t%s\n",
			res.User, res.Status, len(res.Titles), res.Identical, res.WithinN, res.LatencyMs, truncate(detail, 48))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}

	verdict := "PASS"
	if !r.Passed() {
		verdict = "FAIL"
	}
	_, err := fmt.Fprintf(w, "\nrun %s: %s ok=%d not_found=%d failed=%d violations=%d in %s\n",
		r.RunID, verdict, r.OK, r.NotFound, r.Failed, r.Violation, r.Duration.Round(1e6))
	return err
}

// Save writes the report as indented JSON to path.
func (r *Report) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\t", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
