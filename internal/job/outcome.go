// Package job defines the per-URL outcome produced by the scrape pipeline and
// the JSON artifact format it is persisted in.
package job

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Section is one titled block of the job description.
type Section struct {
	Header  string `json:"header"`
	Content string `json:"content"`
}

// Record holds the fields extracted from a single job posting page. Optional
// fields are nil when the page did not contain the corresponding element.
type Record struct {
	CompanyName    *string   `json:"Company_Name"`
	CompanyLogoURL *string   `json:"Company_Logo_Url"`
	JobURL         string    `json:"Job_URL"`
	Title          *string   `json:"Job_Title"`
	Location       *string   `json:"Job_Location"`
	EmploymentType *string   `json:"Job_Status"`
	Domain         *string   `json:"Job_Domain"`
	Salary         *string   `json:"Job_Salary"`
	Details        []Section `json:"Job_Details"`
	LastUpdated    *string   `json:"Last_Updated"`
}

// Outcome is the result for one input URL: either an accepted Record or a
// rejection reason. The zero value is not a valid Outcome.
type Outcome struct {
	record   Record
	reason   string
	rejected bool
}

// Accepted wraps a successfully extracted record.
func Accepted(rec Record) Outcome {
	if rec.Details == nil {
		rec.Details = []Section{}
	}
	return Outcome{record: rec}
}

// Rejected builds an outcome carrying only the rejection reason.
func Rejected(reason string) Outcome {
	return Outcome{reason: reason, rejected: true}
}

// IsRejected reports whether the outcome is a rejection.
func (o Outcome) IsRejected() bool {
	return o.rejected
}

// Record returns the extracted record and true for accepted outcomes.
func (o Outcome) Record() (Record, bool) {
	if o.rejected {
		return Record{}, false
	}
	return o.record, true
}

// RejectReason returns the rejection reason and true for rejected outcomes.
func (o Outcome) RejectReason() (string, bool) {
	if !o.rejected {
		return "", false
	}
	return o.reason, true
}

type acceptedWire struct {
	Record
	RejectReason *string `json:"reject_reason"`
}

type rejectedWire struct {
	RejectReason string `json:"reject_reason"`
}

// MarshalJSON writes the full record with a null reject_reason for accepted
// outcomes and a reject_reason-only object for rejections.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.rejected {
		return marshalRaw(rejectedWire{RejectReason: o.reason})
	}
	rec := o.record
	if rec.Details == nil {
		rec.Details = []Section{}
	}
	return marshalRaw(acceptedWire{Record: rec})
}

// marshalRaw is json.Marshal without HTML escaping; the outer encoder cannot
// undo escapes already applied inside a Marshaler.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON uses reject_reason as the discriminant.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var wire acceptedWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode outcome: %w", err)
	}
	if wire.RejectReason != nil {
		if *wire.RejectReason == "" {
			return errors.New("decode outcome: empty reject_reason")
		}
		*o = Rejected(*wire.RejectReason)
		return nil
	}
	*o = Accepted(wire.Record)
	return nil
}

// Tally counts accepted and rejected outcomes.
func Tally(outcomes []Outcome) (accepted, rejected int) {
	for _, o := range outcomes {
		if o.rejected {
			rejected++
			continue
		}
		accepted++
	}
	return accepted, rejected
}
