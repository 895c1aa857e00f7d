// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	dErrors "satsvault/pkg/domain-errors"
)

// OwnerID is the opaque identity partitioning all records. It is assigned by the
// external identity collaborator and never parsed or interpreted here.
type OwnerID string

// RecordID identifies a quote, proof, or transaction record. Unique per owner
// and kind; the value is caller-supplied (e.g. a mint's quote id).
type RecordID string

// maxIDLength bounds caller-supplied identifiers so they stay index-friendly.
const maxIDLength = 256

// ParseOwnerID validates an owner identifier at a trust boundary.
func ParseOwnerID(s string) (OwnerID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "owner ID cannot be empty")
	}
	if len(s) > maxIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "owner ID too long")
	}
	return OwnerID(s), nil
}

// ParseRecordID validates a record identifier at a trust boundary.
func ParseRecordID(s string) (RecordID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "record ID cannot be empty")
	}
	if len(s) > maxIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "record ID too long")
	}
	return RecordID(s), nil
}

// String methods - for logging and debugging.

func (id OwnerID) String() string  { return string(id) }
func (id RecordID) String() string { return string(id) }

// IsNil checks - used for service-layer validation.

func (id OwnerID) IsNil() bool  { return id == "" }
func (id RecordID) IsNil() bool { return id == "" }
