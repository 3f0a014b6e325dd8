package auditor

import (
	"lottery-reconciliation-service/internal/models"
)

// PhoneIndex remembers the last record seen for each phone and the order
// in which phones first appeared.
type PhoneIndex struct {
	order   []string
	latest  map[string]*models.CandidateRecord
	noPhone []*models.CandidateRecord
}

// NewPhoneIndex indexes records in input order
func NewPhoneIndex(records []*models.CandidateRecord) *PhoneIndex {
	idx := &PhoneIndex{latest: make(map[string]*models.CandidateRecord)}
	for _, rec := range records {
		idx.Add(rec)
	}
	return idx
}

// Add indexes one record. A later record for a known phone replaces the
// earlier one but keeps the phone's original position.
func (idx *PhoneIndex) Add(rec *models.CandidateRecord) {
	if rec == nil {
		return
	}
	if !rec.HasPhone() {
		idx.noPhone = append(idx.noPhone, rec)
		return
	}
	phone := *rec.Phone
	if _, seen := idx.latest[phone]; !seen {
		idx.order = append(idx.order, phone)
	}
	idx.latest[phone] = rec
}

// Phones returns the distinct phones in first-seen order
func (idx *PhoneIndex) Phones() []string {
	out := make([]string, len(idx.order))
	copy(out, idx.order)
	return out
}

// Records returns one record per phone in first-seen order, followed by
// every phone-less record in input order.
func (idx *PhoneIndex) Records() []*models.CandidateRecord {
	out := make([]*models.CandidateRecord, 0, len(idx.order)+len(idx.noPhone))
	for _, phone := range idx.order {
		out = append(out, idx.latest[phone])
	}
	return append(out, idx.noPhone...)
}
