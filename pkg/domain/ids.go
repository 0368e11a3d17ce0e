// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "tiergate/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing ActionID where ResultID is expected.
type (
	ActionID   uuid.UUID
	ResultID   uuid.UUID
	OverrideID uuid.UUID
	EntryID    uuid.UUID
)

// ContinuationToken identifies a suspended pipeline run awaiting re-invocation.
type ContinuationToken string

// New functions - generate fresh identifiers.

func NewActionID() ActionID     { return ActionID(uuid.New()) }
func NewResultID() ResultID     { return ResultID(uuid.New()) }
func NewOverrideID() OverrideID { return OverrideID(uuid.New()) }
func NewEntryID() EntryID       { return EntryID(uuid.New()) }

func NewContinuationToken() ContinuationToken {
	return ContinuationToken("ct_" + uuid.NewString())
}

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseActionID(s string) (ActionID, error) {
	id, err := parseUUID(s, "action ID")
	return ActionID(id), err
}

func ParseResultID(s string) (ResultID, error) {
	id, err := parseUUID(s, "result ID")
	return ResultID(id), err
}

func ParseEntryID(s string) (EntryID, error) {
	id, err := parseUUID(s, "audit entry ID")
	return EntryID(id), err
}

func ParseContinuationToken(s string) (ContinuationToken, error) {
	if len(s) <= len("ct_") || s[:3] != "ct_" {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid continuation token format")
	}
	if _, err := uuid.Parse(s[3:]); err != nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid continuation token format")
	}
	return ContinuationToken(s), nil
}

// String methods - for logging and debugging.

func (id ActionID) String() string          { return uuid.UUID(id).String() }
func (id ResultID) String() string          { return uuid.UUID(id).String() }
func (id OverrideID) String() string        { return uuid.UUID(id).String() }
func (id EntryID) String() string           { return uuid.UUID(id).String() }
func (t ContinuationToken) String() string { return string(t) }

// IsNil checks - used for service-layer validation.

func (id ActionID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id ResultID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id OverrideID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (t ContinuationToken) IsNil() bool { return t == "" }

// Text marshaling keeps IDs readable in JSON snapshots and API responses.

func (id ActionID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id ResultID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id OverrideID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id EntryID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

func (id *ActionID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ResultID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *OverrideID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EntryID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }

// parseUUID is the shared validation logic. Nil UUIDs are rejected so a
// zero-valued identifier never reaches a store lookup.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, label+" cannot be nil")
	}
	return id, nil
}
