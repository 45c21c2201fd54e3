// Package reporter renders reconciliation reports for consumers. The summary
// counters (matched count, total count, match rate) are derived here, on the
// consumer side; the core produces only the report sections.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"bank-reconciliation-core/internal/models"
)

// Format selects the report encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
)

// ReportConfig holds rendering options.
type ReportConfig struct {
	Format Format `json:"format" mapstructure:"format"`

	// IncludeTransactions lists every statement row in console output, not
	// just the anomaly sections. CSV rows are the transactions, and JSON
	// always carries the full report, so only console honors it.
	IncludeTransactions bool `json:"include_transactions" mapstructure:"include_transactions"`

	// CSVHeaders emits a header row in CSV output.
	CSVHeaders bool `json:"csv_headers" mapstructure:"csv_headers"`

	// CSVDelimiter separates CSV fields.
	CSVDelimiter rune `json:"-" mapstructure:"-"`
}

// DefaultReportConfig returns the standard console rendering options.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:              FormatConsole,
		IncludeTransactions: true,
		CSVHeaders:          true,
		CSVDelimiter:        ',',
	}
}

// Validate checks the configuration.
func (rc *ReportConfig) Validate() error {
	switch rc.Format {
	case FormatConsole, FormatJSON, FormatCSV:
	default:
		return fmt.Errorf("invalid report format: %s", rc.Format)
	}

	if rc.CSVDelimiter == 0 {
		return fmt.Errorf("csv delimiter cannot be empty")
	}

	return nil
}

// Summary holds the counters consumers display next to a report.
type Summary struct {
	TotalCount   int     `json:"totalCount"`
	MatchedCount int     `json:"matchedCount"`
	MatchRate    float64 `json:"matchRate"`
}

// Summarize derives the summary counters from a report. The match rate is
// matched over total, and zero for an empty statement.
func Summarize(report *models.ReconciliationReport) Summary {
	summary := Summary{
		TotalCount: len(report.MatchedTransactions),
	}

	for _, txn := range report.MatchedTransactions {
		if txn.Matched {
			summary.MatchedCount++
		}
	}

	if summary.TotalCount > 0 {
		summary.MatchRate = float64(summary.MatchedCount) / float64(summary.TotalCount)
	}

	return summary
}

// Reporter renders reports according to its configuration.
type Reporter struct {
	config *ReportConfig
}

// New creates a reporter. A nil configuration selects the default.
func New(config *ReportConfig) (*Reporter, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &Reporter{config: config}, nil
}

// Write renders the report to the writer in the configured format.
func (r *Reporter) Write(w io.Writer, report *models.ReconciliationReport) error {
	switch r.config.Format {
	case FormatJSON:
		return r.writeJSON(w, report)
	case FormatCSV:
		return r.writeCSV(w, report)
	default:
		return r.writeConsole(w, report)
	}
}

// jsonReport is the JSON envelope: the derived summary plus the full report.
type jsonReport struct {
	Summary Summary                      `json:"summary"`
	Report  *models.ReconciliationReport `json:"report"`
}

func (r *Reporter) writeJSON(w io.Writer, report *models.ReconciliationReport) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonReport{
		Summary: Summarize(report),
		Report:  report,
	})
}

func (r *Reporter) writeConsole(w io.Writer, report *models.ReconciliationReport) error {
	summary := Summarize(report)

	fmt.Fprintf(w, "Reconciliation Summary\n")
	fmt.Fprintf(w, "======================\n")
	fmt.Fprintf(w, "Transactions: %d\n", summary.TotalCount)
	fmt.Fprintf(w, "Matched:      %d (%.1f%%)\n", summary.MatchedCount, summary.MatchRate*100)
	fmt.Fprintf(w, "Duplicates:           %d\n", len(report.Duplicates))
	fmt.Fprintf(w, "Missing entries:      %d\n", len(report.MissingEntries))
	fmt.Fprintf(w, "Amount discrepancies: %d\n", len(report.AmountDiscrepancies))

	if r.config.IncludeTransactions && len(report.MatchedTransactions) > 0 {
		fmt.Fprintf(w, "\nTransactions\n")
		for _, txn := range report.MatchedTransactions {
			status := "unmatched"
			if txn.Matched {
				status = "matched -> " + txn.MatchedEntryID
			}
			fmt.Fprintf(w, "  %-10s %s  %12s  %-30s %s\n",
				txn.ID, formatDate(txn), txn.Amount.StringFixed(2), clip(txn.Description, 30), status)
		}
	}

	if len(report.Duplicates) > 0 {
		fmt.Fprintf(w, "\nDuplicate statement rows (advisory, first occurrence kept)\n")
		for _, txn := range report.Duplicates {
			fmt.Fprintf(w, "  %-10s %s  %12s  %s\n",
				txn.ID, formatDate(txn), txn.Amount.StringFixed(2), txn.Description)
		}
	}

	if len(report.MissingEntries) > 0 {
		fmt.Fprintf(w, "\nLedger entries with no bank transaction\n")
		for _, entry := range report.MissingEntries {
			fmt.Fprintf(w, "  %-10s %s  %12s  %s / %s\n",
				entry.ID, entry.Date.Format("2006-01-02"), entry.Amount.StringFixed(2),
				entry.DebitAccount, entry.CreditAccount)
		}
	}

	if len(report.AmountDiscrepancies) > 0 {
		fmt.Fprintf(w, "\nAmount discrepancies among matched pairs\n")
		for _, disc := range report.AmountDiscrepancies {
			fmt.Fprintf(w, "  %s vs %s: difference %s\n",
				disc.Transaction.ID, disc.Entry.ID, disc.Difference.StringFixed(2))
		}
	}

	return nil
}

func (r *Reporter) writeCSV(w io.Writer, report *models.ReconciliationReport) error {
	writer := csv.NewWriter(w)
	writer.Comma = r.config.CSVDelimiter

	duplicate := make(map[string]bool, len(report.Duplicates))
	for _, txn := range report.Duplicates {
		duplicate[txn.ID] = true
	}

	if r.config.CSVHeaders {
		header := []string{"id", "date", "description", "amount", "balance", "matched", "matched_entry_id", "duplicate"}
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("writing csv header: %w", err)
		}
	}

	for _, txn := range report.MatchedTransactions {
		record := []string{
			txn.ID,
			formatDate(txn),
			txn.Description,
			txn.Amount.String(),
			txn.Balance.String(),
			strconv.FormatBool(txn.Matched),
			txn.MatchedEntryID,
			strconv.FormatBool(duplicate[txn.ID]),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatDate(txn *models.BankTransaction) string {
	if !txn.HasValidDate() {
		return "          "
	}
	return txn.Date.Format("2006-01-02")
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
