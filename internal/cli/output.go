// Package cli provides output helpers for the montero command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/montero/internal/autocomplete"
	"github.com/hyperjump/montero/internal/importer"
	"github.com/hyperjump/montero/internal/models"
	"github.com/hyperjump/montero/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q (use text or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// LookupResult is the outcome of running the autocomplete engine once.
type LookupResult struct {
	State         autocomplete.State `json:"state"`
	Message       string             `json:"message,omitempty"`
	Fields        map[string]string  `json:"fields"`
	Autocompleted []string           `json:"autocompleted"`
	Locked        []string           `json:"locked"`
}

// NewLookupResult collects the filled fields of form, skipping skip (the
// identifier inputs).
func NewLookupResult(state autocomplete.State, form *autocomplete.MemoryForm, autocompleted []string, message string, skip ...string) *LookupResult {
	res := &LookupResult{
		State:         state,
		Message:       message,
		Fields:        map[string]string{},
		Autocompleted: autocompleted,
		Locked:        []string{},
	}
	if res.Autocompleted == nil {
		res.Autocompleted = []string{}
	}
	ignored := map[string]bool{}
	for _, s := range skip {
		ignored[strings.TrimPrefix(s, "#")] = true
	}
	for _, f := range form.Fields() {
		if ignored[f.ID] {
			continue
		}
		if f.Value != "" {
			res.Fields[f.ID] = f.Value
		}
		if f.ReadOnly {
			res.Locked = append(res.Locked, f.ID)
		}
	}
	return res
}

// NewFormLookupResult reads the given selectors back from form. It serves
// forms that cannot list their fields, such as a browser page.
func NewFormLookupResult(state autocomplete.State, form autocomplete.FieldAccessor, selectors []string, autocompleted []string, message string) *LookupResult {
	res := &LookupResult{
		State:         state,
		Message:       message,
		Fields:        map[string]string{},
		Autocompleted: autocompleted,
		Locked:        []string{},
	}
	if res.Autocompleted == nil {
		res.Autocompleted = []string{}
	}
	for _, sel := range selectors {
		id := strings.TrimPrefix(sel, "#")
		if v, ok := form.Value(sel); ok && v != "" {
			res.Fields[id] = v
		}
		if form.Locked(sel) {
			res.Locked = append(res.Locked, id)
		}
	}
	return res
}

// WriteLookup writes a lookup result to w in the given format.
func WriteLookup(w io.Writer, res *LookupResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "State: %s\n", res.State)
	if res.Message != "" {
		fmt.Fprintf(w, "Message: %s\n", res.Message)
	}
	if len(res.Fields) == 0 {
		return nil
	}
	locked := map[string]bool{}
	for _, id := range res.Locked {
		locked[id] = true
	}
	fmt.Fprintln(w)
	for _, id := range sortedKeys(res.Fields) {
		mark := ""
		if locked[id] {
			mark = " (locked)"
		}
		fmt.Fprintf(w, "  %-24s %s%s\n", id, res.Fields[id], mark)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteCases writes a case list.
func WriteCases(w io.Writer, cases []*models.Case, format OutputFormat) error {
	if format == OutputJSON {
		if cases == nil {
			cases = []*models.Case{}
		}
		return writeJSON(w, cases)
	}
	if len(cases) == 0 {
		fmt.Fprintln(w, "No cases.")
		return nil
	}
	for _, c := range cases {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d | %s | %s | %s\n", c.ID, c.Status,
			models.OptionText(models.Priorities, c.Priority), c.UpdateDate)
		fmt.Fprintf(w, "Client: %s | Employee: %s | Assigned: %s\n", c.Client, c.Employee(), c.AssignedTo)
		fmt.Fprintf(w, "Subject: %s\n", c.Subject)
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(c.Description, 200))
		fmt.Fprintln(w)
	}
	return nil
}

// WriteStats writes dashboard counters.
func WriteStats(w io.Writer, stats models.CaseStats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintf(w, "Total: %d | Critical: %d | Today: %d | Resolved: %d (%s)\n",
		stats.Total, stats.Critical, stats.Today, stats.Resolved, stats.ResolvedRate)
	return nil
}

// WriteImportReport writes the outcome of a workbook import.
func WriteImportReport(w io.Writer, report *importer.Report, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Imported %s (batch %s): %d usuarios, %d empresas\n",
		report.File, report.BatchID, report.Usuarios, report.Empresas)
	for _, s := range report.Skipped {
		fmt.Fprintf(w, "  skipped %s row %d: %s\n", s.Sheet, s.Row, s.Reason)
	}
	if len(report.UnknownColumns) > 0 {
		fmt.Fprintf(w, "  unknown columns: %s\n", strings.Join(report.UnknownColumns, ", "))
	}
	return nil
}
