package store

import (
	"context"
	"time"

	"satsvault/internal/vault/models"
	id "satsvault/pkg/domain"
)

// Store persists vault records, partitioned by owner.
//
// Error Contract:
// All store methods follow this error pattern:
//   - Return sentinel.ErrNotFound when the record does not exist under the
//     given owner. A record owned by someone else is indistinguishable from an
//     absent one; the owner is part of every lookup key.
//   - Return sentinel.ErrAlreadyExists on duplicate (owner, kind, id) creates.
//   - Return sentinel.ErrConflict when a conditional write observes a state
//     other than the expected one.
//   - Return wrapped errors with context for infrastructure failures.
//
// Atomicity Contract:
// Create and Transition commit the record and its (state, createdAt) secondary
// index entry as one unit; a reader never observes a record whose index entry
// reflects a different state.
type Store interface {
	// Create inserts a new record, stamping nothing: the caller sets all
	// fields including CreatedAt/UpdatedAt from the request-scoped clock.
	Create(ctx context.Context, rec *models.Record) error

	// Get returns the record for (owner, kind, id).
	Get(ctx context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID) (*models.Record, error)

	// ListByState pages through one (owner, kind, state) partition in
	// ascending (CreatedAt, ID) order. Records of other owners or states are
	// never scanned.
	ListByState(ctx context.Context, ownerID id.OwnerID, kind models.Kind, state models.State, filter *models.ListFilter, limit int, cursor *models.Cursor) (*models.Page, error)

	// Transition conditionally moves the record from expected to target,
	// bumping UpdatedAt to at and swapping the secondary index entry in the
	// same atomic step. The legality of the move is the caller's concern;
	// this is purely the optimistic conditional write.
	Transition(ctx context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID, expected, target models.State, at time.Time) (*models.Record, error)

	// UpdatePayload replaces the opaque payload without touching state,
	// bumping UpdatedAt to at. Used for re-encryption under key rotation.
	UpdatePayload(ctx context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID, payload models.Ciphertext, at time.Time) (*models.Record, error)

	// GetMetadata returns the owner's singleton wallet metadata.
	GetMetadata(ctx context.Context, ownerID id.OwnerID) (*models.WalletMetadata, error)

	// PutMetadata upserts the owner's wallet metadata as provided.
	PutMetadata(ctx context.Context, meta *models.WalletMetadata) error

	// DeleteOwner removes every record and index entry for the owner.
	// Owner-initiated purge; retention policy lives upstream.
	DeleteOwner(ctx context.Context, ownerID id.OwnerID) error
}
