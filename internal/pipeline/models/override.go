package models

import (
	"time"

	id "tiergate/pkg/domain"
)

// OverrideRequest is the caller's escalation request.
type OverrideRequest struct {
	Justification string   `json:"justification"`
	Approvers     []string `json:"approvers"`
	Circumstances string   `json:"circumstances,omitempty"`
}

// OverrideRecord records an approved emergency escalation. Immutable once created.
type OverrideRecord struct {
	ID            id.OverrideID `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	ResultID      id.ResultID   `json:"result_id"`
	Justification string        `json:"justification"`
	Approvers     []string      `json:"approvers"`
	Circumstances string        `json:"circumstances,omitempty"`
	Approved      bool          `json:"approved"`
	Retention     time.Duration `json:"retention"`
}

// Clone returns a copy of the record.
func (o *OverrideRecord) Clone() *OverrideRecord {
	if o == nil {
		return nil
	}
	c := *o
	c.Approvers = append([]string(nil), o.Approvers...)
	return &c
}
