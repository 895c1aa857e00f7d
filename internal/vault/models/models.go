package models

import (
	"time"

	id "satsvault/pkg/domain"
	dErrors "satsvault/pkg/domain-errors"
)

// Kind enumerates the payload-bearing record kinds.
type Kind string

const (
	KindMintQuote   Kind = "mint_quote"
	KindMeltQuote   Kind = "melt_quote"
	KindProof       Kind = "proof"
	KindTransaction Kind = "transaction"
)

// ValidKinds is the single source of truth for record kinds.
var ValidKinds = map[Kind]bool{
	KindMintQuote:   true,
	KindMeltQuote:   true,
	KindProof:       true,
	KindTransaction: true,
}

// IsValid checks if the kind is one of the supported enum values.
func (k Kind) IsValid() bool {
	return ValidKinds[k]
}

// Ciphertext is an opaque encrypted payload. The store persists and returns it
// without ever holding a typed view of the plaintext; only the envelope in
// vault/crypto can produce or open one.
type Ciphertext []byte

// Record is a single owner-partitioned vault entry.
//
// # Scoping Invariant
//
// A RecordID is ALWAYS scoped by (OwnerID, Kind). All queries include the
// owner, so a record belonging to someone else is indistinguishable from an
// absent one. OwnerID and CreatedAt are immutable after creation; State moves
// only through the transition tables in states.go; UpdatedAt reflects the last
// effective mutation.
type Record struct {
	OwnerID   id.OwnerID
	Kind      Kind
	ID        id.RecordID
	State     State // empty for transactions, which have no lifecycle
	Payload   Ciphertext
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord creates a Record with domain invariant checks.
func NewRecord(ownerID id.OwnerID, kind Kind, recordID id.RecordID, state State, payload Ciphertext, now time.Time) (*Record, error) {
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "owner ID required")
	}
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid record kind")
	}
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "record ID required")
	}
	if len(payload) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payload required")
	}
	if kind == KindTransaction {
		if state != "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "transactions carry no state")
		}
	} else if !ValidState(kind, state) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid state for kind")
	}
	if now.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "creation time required")
	}
	return &Record{
		OwnerID:   ownerID,
		Kind:      kind,
		ID:        recordID,
		State:     state,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// WalletMetadata is the singleton per-owner configuration record. Mint URLs
// are not sensitive and are stored in the clear.
type WalletMetadata struct {
	OwnerID        id.OwnerID
	MintURLs       []string
	DefaultMintURL string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ListFilter narrows ListByState to a creation-time range.
type ListFilter struct {
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// Matches reports whether a record falls inside the filter's time range.
func (f *ListFilter) Matches(rec *Record) bool {
	if f == nil {
		return true
	}
	if f.CreatedAfter != nil && !rec.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !rec.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

// Page is one page of ListByState results, ordered by CreatedAt ascending.
// NextCursor is empty when the partition is exhausted.
type Page struct {
	Records    []*Record
	NextCursor string
}
