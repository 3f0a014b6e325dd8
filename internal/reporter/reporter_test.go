package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"lottery-reconciliation-service/internal/auditor"
	"lottery-reconciliation-service/internal/models"
	"lottery-reconciliation-service/pkg/logger"
)

func sampleReport() *auditor.Report {
	occurred := time.Date(2026, 1, 12, 23, 26, 56, 0, time.UTC)
	records := []*models.CandidateRecord{
		{
			TxID:        models.StringPtr("5890791"),
			OccurredAt:  &occurred,
			Amount:      decimal.NewNullDecimal(decimal.NewFromInt(50000)),
			Phone:       models.StringPtr("99112233"),
			LotteryID:   models.StringPtr("L200"),
			Description: "99112233 L200 ticket",
			Line:        1,
		},
		{
			Amount:      decimal.NewNullDecimal(decimal.NewFromInt(30000)),
			Phone:       models.StringPtr("95975944"),
			Description: "95975944",
			Line:        2,
		},
		{
			TxID:        models.StringPtr("5890767"),
			Amount:      decimal.NewNullDecimal(decimal.NewFromInt(50000)),
			Description: "no phone here",
			Line:        3,
		},
	}
	return auditor.Audit(records, auditor.Options{
		Fee:    decimal.NewNullDecimal(decimal.NewFromInt(50000)),
		Dedupe: auditor.DedupeOff,
	})
}

func TestNewReportGenerator(t *testing.T) {
	tests := []struct {
		name        string
		config      *ReportConfig
		expectError bool
	}{
		{"default config", nil, false},
		{"valid config", DefaultReportConfig(), false},
		{"invalid format", &ReportConfig{Format: "xml"}, true},
		{"description width too small", &ReportConfig{Format: FormatConsole, MaxDescriptionWidth: 5}, true},
		{"quote delimiter", &ReportConfig{Format: FormatCSV, CSVDelimiter: '"'}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(tt.config)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if generator.config == nil {
				t.Error("expected configuration to be set")
			}
		})
	}
}

func TestGenerateAuditReport_Console(t *testing.T) {
	gen, err := NewReportGenerator(&ReportConfig{Format: FormatConsole})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := gen.GenerateAuditReport(sampleReport(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"AUDIT REPORT",
		"Fee: 50,000",
		"Rows: 3   Matched: 1   Distinct phones: 2",
		"Shown: 3   Wrong amount: 1   Unmatched: 1",
		"LINE",
		"Matched",
		"Wrong amount",
		"Unmatched",
		"99112233",
		"2026-01-12T23:26:56.000Z",
		"50,000",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected console output to contain %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("expected no escape codes with colors disabled")
	}
}

func TestGenerateAuditReport_ConsoleEmpty(t *testing.T) {
	gen, _ := NewReportGenerator(&ReportConfig{Format: FormatConsole})
	var buf bytes.Buffer
	report := auditor.Audit(nil, auditor.Options{})
	if err := gen.GenerateAuditReport(report, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No entries to show") {
		t.Errorf("expected empty notice, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "Fee: none") {
		t.Errorf("expected missing fee to render as none, got %q", buf.String())
	}
}

func TestGenerateAuditReport_JSON(t *testing.T) {
	gen, _ := NewReportGenerator(&ReportConfig{Format: FormatJSON})
	var buf bytes.Buffer
	if err := gen.GenerateAuditReport(sampleReport(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got auditView
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if got.TotalRows != 3 || got.MatchedCount != 1 || got.DistinctPhones != 2 {
		t.Errorf("unexpected counts: %+v", got)
	}
	if got.Fee == nil || *got.Fee != "50000" {
		t.Errorf("expected fee 50000, got %v", got.Fee)
	}
	if len(got.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got.Entries))
	}

	first := got.Entries[0]
	if first.Classification != "Matched" || first.Line != 1 {
		t.Errorf("unexpected first entry: %+v", first)
	}
	if first.Amount == nil || *first.Amount != "50000" {
		t.Errorf("expected amount 50000, got %v", first.Amount)
	}
	if first.OccurredAt == nil || *first.OccurredAt != "2026-01-12T23:26:56.000Z" {
		t.Errorf("unexpected timestamp %v", first.OccurredAt)
	}
	if got.Entries[2].Phone != nil {
		t.Errorf("expected null phone, got %v", *got.Entries[2].Phone)
	}
	if !strings.Contains(buf.String(), `"phone": null`) {
		t.Error("expected absent fields to encode as null")
	}
}

func TestGenerateAuditReport_CSV(t *testing.T) {
	tests := []struct {
		name      string
		headers   bool
		delimiter rune
		wantRows  int
	}{
		{"with headers", true, ',', 4},
		{"without headers", false, ',', 3},
		{"semicolon", true, ';', 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := NewReportGenerator(&ReportConfig{
				Format:       FormatCSV,
				CSVHeaders:   tt.headers,
				CSVDelimiter: tt.delimiter,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var buf bytes.Buffer
			if err := gen.GenerateAuditReport(sampleReport(), &buf); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			r := csv.NewReader(&buf)
			r.Comma = tt.delimiter
			rows, err := r.ReadAll()
			if err != nil {
				t.Fatalf("invalid CSV output: %v", err)
			}
			if len(rows) != tt.wantRows {
				t.Fatalf("expected %d rows, got %d", tt.wantRows, len(rows))
			}
			if tt.headers && rows[0][1] != "classification" {
				t.Errorf("unexpected header %v", rows[0])
			}
			last := rows[len(rows)-1]
			if last[1] != "Unmatched" || last[2] != "" || last[5] != "5890767" {
				t.Errorf("unexpected last row %v", last)
			}
		})
	}
}

func TestMaskPhones(t *testing.T) {
	gen, _ := NewReportGenerator(&ReportConfig{Format: FormatJSON, MaskPhones: true})
	var buf bytes.Buffer
	if err := gen.GenerateAuditReport(sampleReport(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), `"99112233"`) {
		t.Error("expected phone to be masked")
	}
	if !strings.Contains(buf.String(), `"9911****"`) {
		t.Errorf("expected masked phone, got %s", buf.String())
	}
}

func TestGenerateImportReport(t *testing.T) {
	result := &models.MergeResult{Inserted: 2, Skipped: 1, Failed: 1, Total: 4, BatchID: "batch-1"}

	tests := []struct {
		format OutputFormat
		want   []string
	}{
		{FormatConsole, []string{"IMPORT RESULT", "Batch: batch-1", "Inserted:", "Failed:", "Total:"}},
		{FormatJSON, []string{`"inserted": 2`, `"skipped": 1`, `"failed": 1`, `"total": 4`}},
		{FormatCSV, []string{"inserted,skipped,failed,total,batch_id", "2,1,1,4,batch-1"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			gen, err := NewReportGenerator(&ReportConfig{Format: tt.format, CSVHeaders: true})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var buf bytes.Buffer
			if err := gen.GenerateImportReport(result, &buf); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("expected output to contain %q\n%s", want, buf.String())
				}
			}
		})
	}

	gen, _ := NewReportGenerator(nil)
	if err := gen.GenerateImportReport(nil, &bytes.Buffer{}); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"50000", "50,000"},
		{"1500000.5", "1,500,000.50"},
		{"-1234", "-1,234"},
		{"999", "999"},
		{"1000", "1,000"},
		{"12.345", "12.35"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FormatAmount(decimal.RequireFromString(tt.in)); got != tt.want {
				t.Errorf("FormatAmount(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("unexpected %q", got)
	}
	if got := truncate("Гүйлгээний утга урт", 6); got != "Гүйлг…" {
		t.Errorf("expected rune-aware truncation, got %q", got)
	}
}

func TestBadgesWithColors(t *testing.T) {
	b := newBadgeSet(true)
	got := b.render(models.ClassificationMatched)
	if !strings.Contains(got, "\x1b[") || !strings.Contains(got, "Matched") {
		t.Errorf("expected colored badge, got %q", got)
	}
	if plain := newBadgeSet(false).render(models.ClassificationUnmatched); plain != "Unmatched" {
		t.Errorf("expected plain badge, got %q", plain)
	}
}

func TestSafeReportGenerator(t *testing.T) {
	if _, err := NewSafeReportGenerator(&ReportConfig{Format: "xml"}, logger.Discard()); err == nil {
		t.Error("expected configuration error")
	}

	gen, err := NewSafeReportGenerator(&ReportConfig{Format: FormatJSON}, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("audit report", func(t *testing.T) {
		var buf bytes.Buffer
		if err := gen.Generate(sampleReport(), &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !json.Valid(buf.Bytes()) {
			t.Errorf("expected valid JSON, got %s", buf.String())
		}
	})

	t.Run("import result", func(t *testing.T) {
		var buf bytes.Buffer
		if err := gen.Generate(&models.MergeResult{Inserted: 1, Total: 1}, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"inserted": 1`) {
			t.Errorf("unexpected output %s", buf.String())
		}
	})

	t.Run("rejects bad inputs", func(t *testing.T) {
		cases := []struct {
			name   string
			result interface{}
			w      *bytes.Buffer
		}{
			{"nil writer", sampleReport(), nil},
			{"nil report", (*auditor.Report)(nil), &bytes.Buffer{}},
			{"unknown type", "report", &bytes.Buffer{}},
		}
		for _, c := range cases {
			var err error
			if c.w == nil {
				err = gen.Generate(c.result, nil)
			} else {
				err = gen.Generate(c.result, c.w)
			}
			if err == nil {
				t.Errorf("%s: expected error", c.name)
			}
		}
	})

	t.Run("write failure", func(t *testing.T) {
		if err := gen.Generate(sampleReport(), failingWriter{}); err == nil {
			t.Error("expected write error to surface")
		}
	})
}

func TestBackupPath(t *testing.T) {
	if got := backupPath("/tmp/report.csv"); got != "/tmp/report_backup.csv" {
		t.Errorf("unexpected backup path %q", got)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, bytes.ErrTooLarge
}
