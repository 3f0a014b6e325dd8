package auditor

import (
	"github.com/shopspring/decimal"

	"lottery-reconciliation-service/internal/models"
)

// Entry pairs a record with its verdict.
type Entry struct {
	Record         *models.CandidateRecord `json:"record"`
	Classification models.Classification   `json:"classification"`
}

// Report is the outcome of one Audit call.
type Report struct {
	Entries []*Entry `json:"entries"`

	// TotalRows counts the input before deduplication.
	TotalRows int `json:"total_rows"`
	// MatchedCount and DistinctPhones count the deduplicated set, before
	// the matched-only filter.
	MatchedCount   int `json:"matched_count"`
	DistinctPhones int `json:"distinct_phones"`

	Fee    decimal.NullDecimal `json:"fee"`
	Dedupe string              `json:"dedupe"`
}

// Classify returns the verdict for one record. A record without a phone
// cannot be attributed to a player and is Unmatched.
func Classify(rec *models.CandidateRecord, fee decimal.NullDecimal) models.Classification {
	if rec == nil || !rec.HasPhone() {
		return models.ClassificationUnmatched
	}
	if !fee.Valid {
		return models.ClassificationMatched
	}
	if rec.Amount.Valid && rec.Amount.Decimal.Sub(fee.Decimal).Abs().LessThan(amountTolerance) {
		return models.ClassificationMatched
	}
	return models.ClassificationWrongAmount
}

// Dedupe collapses records per mode. DedupeLatest keeps the last record
// for each phone in first-seen phone order, then the phone-less records
// in input order.
func Dedupe(records []*models.CandidateRecord, mode DedupeMode) []*models.CandidateRecord {
	if mode != DedupeLatest {
		out := make([]*models.CandidateRecord, len(records))
		copy(out, records)
		return out
	}
	return NewPhoneIndex(records).Records()
}

// Audit deduplicates, classifies and counts records.
func Audit(records []*models.CandidateRecord, opts Options) *Report {
	report := &Report{
		Entries:   make([]*Entry, 0, len(records)),
		TotalRows: len(records),
		Fee:       opts.Fee,
		Dedupe:    opts.Dedupe.String(),
	}

	deduped := Dedupe(records, opts.Dedupe)
	report.DistinctPhones = len(NewPhoneIndex(deduped).Phones())

	for _, rec := range deduped {
		class := Classify(rec, opts.Fee)
		if class == models.ClassificationMatched {
			report.MatchedCount++
		} else if opts.OnlyMatched {
			continue
		}
		report.Entries = append(report.Entries, &Entry{Record: rec, Classification: class})
	}

	return report
}

// CountBy tallies entries per classification
func (r *Report) CountBy() map[models.Classification]int {
	counts := make(map[models.Classification]int, 3)
	for _, e := range r.Entries {
		counts[e.Classification]++
	}
	return counts
}
