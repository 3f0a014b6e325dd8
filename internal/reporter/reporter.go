// Package reporter renders audit reports and import results.
//
// Supported output formats:
//   - Console: tabular output with colored status badges for terminals
//   - JSON: structured data for programmatic consumption
//   - CSV: one row per audited record for spreadsheet applications
//
// Example usage:
//
//	gen, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatJSON})
//	err = gen.GenerateAuditReport(report, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"unicode/utf8"

	"lottery-reconciliation-service/internal/auditor"
	"lottery-reconciliation-service/internal/ledger"
	"lottery-reconciliation-service/internal/models"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Console formatting options
	UseColors           bool `json:"use_colors"`
	MaxDescriptionWidth int  `json:"max_description_width"`

	// MaskPhones hides the last four digits, for listings shown to players.
	MaskPhones bool `json:"mask_phones"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:              FormatConsole,
		UseColors:           true,
		MaxDescriptionWidth: 40,
		CSVDelimiter:        ',',
		CSVHeaders:          true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxDescriptionWidth < 10 {
		return fmt.Errorf("description width must be at least 10 characters, got %d", c.MaxDescriptionWidth)
	}
	if c.Format == FormatCSV && (c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n') {
		return fmt.Errorf("invalid CSV delimiter %q", c.CSVDelimiter)
	}
	return nil
}

// ReportGenerator renders reports in the configured format
type ReportGenerator struct {
	config *ReportConfig
	badges *badgeSet
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if config.MaxDescriptionWidth == 0 {
		config.MaxDescriptionWidth = 40
	}
	if config.CSVDelimiter == 0 {
		config.CSVDelimiter = ','
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
		badges: newBadgeSet(config.UseColors),
	}, nil
}

// GenerateAuditReport writes an audit report
func (rg *ReportGenerator) GenerateAuditReport(report *auditor.Report, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("audit report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.auditConsole(report, writer)
	case FormatJSON:
		return writeJSON(writer, rg.auditView(report))
	case FormatCSV:
		return rg.auditCSV(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// GenerateImportReport writes the outcome of an import
func (rg *ReportGenerator) GenerateImportReport(result *models.MergeResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("import result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.importConsole(result, writer)
	case FormatJSON:
		return writeJSON(writer, result)
	case FormatCSV:
		return rg.importCSV(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// entryView is the flat rendering of one audited record.
type entryView struct {
	Line           int     `json:"line"`
	Classification string  `json:"classification"`
	TxID           *string `json:"tx_id"`
	Phone          *string `json:"phone"`
	Amount         *string `json:"amount"`
	LotteryID      *string `json:"lottery_id"`
	OccurredAt     *string `json:"occurred_at"`
	Description    string  `json:"description"`
}

type auditView struct {
	TotalRows      int         `json:"total_rows"`
	MatchedCount   int         `json:"matched_count"`
	DistinctPhones int         `json:"distinct_phones"`
	Fee            *string     `json:"fee"`
	Dedupe         string      `json:"dedupe"`
	Entries        []entryView `json:"entries"`
}

func (rg *ReportGenerator) auditView(report *auditor.Report) *auditView {
	view := &auditView{
		TotalRows:      report.TotalRows,
		MatchedCount:   report.MatchedCount,
		DistinctPhones: report.DistinctPhones,
		Dedupe:         report.Dedupe,
		Entries:        make([]entryView, 0, len(report.Entries)),
	}
	if report.Fee.Valid {
		fee := report.Fee.Decimal.String()
		view.Fee = &fee
	}
	for i, e := range report.Entries {
		view.Entries = append(view.Entries, rg.entry(i, e))
	}
	return view
}

func (rg *ReportGenerator) entry(index int, e *auditor.Entry) entryView {
	rec := e.Record
	v := entryView{
		Line:           index + 1,
		Classification: e.Classification.String(),
	}
	if rec == nil {
		return v
	}
	if rec.Line > 0 {
		v.Line = rec.Line
	}
	v.TxID = rec.TxID
	v.Phone = rg.phone(rec.Phone)
	v.LotteryID = rec.LotteryID
	v.Description = rec.Description
	if rec.Amount.Valid {
		s := rec.Amount.Decimal.String()
		v.Amount = &s
	}
	if rec.OccurredAt != nil {
		s := models.FormatTimestamp(*rec.OccurredAt)
		v.OccurredAt = &s
	}
	return v
}

func (rg *ReportGenerator) phone(p *string) *string {
	if p == nil || !rg.config.MaskPhones {
		return p
	}
	masked := ledger.MaskPhone(*p)
	return &masked
}

func (rg *ReportGenerator) auditConsole(report *auditor.Report, writer io.Writer) error {
	fee := "none"
	if report.Fee.Valid {
		fee = FormatAmount(report.Fee.Decimal)
	}

	fmt.Fprintf(writer, "AUDIT REPORT\n")
	fmt.Fprintf(writer, "Fee: %s   Dedupe: %s\n", fee, report.Dedupe)
	fmt.Fprintf(writer, "Rows: %d   Matched: %d   Distinct phones: %d\n",
		report.TotalRows, report.MatchedCount, report.DistinctPhones)
	counts := report.CountBy()
	fmt.Fprintf(writer, "Shown: %d   Wrong amount: %d   Unmatched: %d\n\n",
		len(report.Entries), counts[models.ClassificationWrongAmount], counts[models.ClassificationUnmatched])

	if len(report.Entries) == 0 {
		fmt.Fprintf(writer, "No entries to show\n")
		return nil
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tSTATUS\tPHONE\tAMOUNT\tLOTTERY\tTX ID\tOCCURRED\tDESCRIPTION")
	for i, e := range report.Entries {
		v := rg.entry(i, e)
		amount := "-"
		if e.Record != nil && e.Record.Amount.Valid {
			amount = FormatAmount(e.Record.Amount.Decimal)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.Line,
			rg.badges.render(e.Classification),
			orDash(v.Phone),
			amount,
			orDash(v.LotteryID),
			orDash(v.TxID),
			orDash(v.OccurredAt),
			truncate(v.Description, rg.config.MaxDescriptionWidth),
		)
	}
	return tw.Flush()
}

func (rg *ReportGenerator) auditCSV(report *auditor.Report, writer io.Writer) error {
	w := csv.NewWriter(writer)
	w.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		headers := []string{"line", "classification", "phone", "amount", "lottery_id", "tx_id", "occurred_at", "description"}
		if err := w.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for i, e := range report.Entries {
		v := rg.entry(i, e)
		record := []string{
			strconv.Itoa(v.Line),
			v.Classification,
			deref(v.Phone),
			deref(v.Amount),
			deref(v.LotteryID),
			deref(v.TxID),
			deref(v.OccurredAt),
			v.Description,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func (rg *ReportGenerator) importConsole(result *models.MergeResult, writer io.Writer) error {
	fmt.Fprintf(writer, "IMPORT RESULT\n")
	if result.BatchID != "" {
		fmt.Fprintf(writer, "Batch: %s\n", result.BatchID)
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Inserted:\t%d\n", result.Inserted)
	fmt.Fprintf(tw, "Skipped:\t%d\n", result.Skipped)
	if result.Failed > 0 {
		fmt.Fprintf(tw, "Failed:\t%s\n", rg.badges.warn(strconv.Itoa(result.Failed)))
	}
	fmt.Fprintf(tw, "Total:\t%d\n", result.Total)
	return tw.Flush()
}

func (rg *ReportGenerator) importCSV(result *models.MergeResult, writer io.Writer) error {
	w := csv.NewWriter(writer)
	w.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := w.Write([]string{"inserted", "skipped", "failed", "total", "batch_id"}); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}
	if err := w.Write([]string{
		strconv.Itoa(result.Inserted),
		strconv.Itoa(result.Skipped),
		strconv.Itoa(result.Failed),
		strconv.Itoa(result.Total),
		result.BatchID,
	}); err != nil {
		return fmt.Errorf("failed to write CSV record: %w", err)
	}

	w.Flush()
	return w.Error()
}

func writeJSON(writer io.Writer, v interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-1]) + "…"
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
