package testutil

import (
	"time"

	"satsvault/internal/vault/models"
	id "satsvault/pkg/domain"
)

// TestIDs provides convenient pre-generated IDs for tests.
// Use these for deterministic test data.
var TestIDs = struct {
	Owner1 id.OwnerID
	Owner2 id.OwnerID
	Quote1 id.RecordID
	Quote2 id.RecordID
	Proof1 id.RecordID
	Tx1    id.RecordID
}{
	Owner1: "owner-11111111",
	Owner2: "owner-22222222",
	Quote1: "quote-0001",
	Quote2: "quote-0002",
	Proof1: "proof-0001",
	Tx1:    "tx-0001",
}

// TestTime is a fixed reference instant for deterministic fixtures.
var TestTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// RecordBuilder provides a fluent interface for building test records.
type RecordBuilder struct {
	rec models.Record
}

// NewRecord starts a builder with sensible defaults: owner-1's unpaid mint
// quote created at TestTime.
func NewRecord() *RecordBuilder {
	return &RecordBuilder{rec: models.Record{
		OwnerID:   TestIDs.Owner1,
		Kind:      models.KindMintQuote,
		ID:        TestIDs.Quote1,
		State:     models.StateUnpaid,
		Payload:   models.Ciphertext("test-ciphertext"),
		CreatedAt: TestTime,
		UpdatedAt: TestTime,
	}}
}

func (b *RecordBuilder) WithOwner(owner id.OwnerID) *RecordBuilder {
	b.rec.OwnerID = owner
	return b
}

func (b *RecordBuilder) WithKind(kind models.Kind) *RecordBuilder {
	b.rec.Kind = kind
	return b
}

func (b *RecordBuilder) WithID(recordID id.RecordID) *RecordBuilder {
	b.rec.ID = recordID
	return b
}

func (b *RecordBuilder) WithState(state models.State) *RecordBuilder {
	b.rec.State = state
	return b
}

func (b *RecordBuilder) WithPayload(payload models.Ciphertext) *RecordBuilder {
	b.rec.Payload = payload
	return b
}

func (b *RecordBuilder) CreatedAt(at time.Time) *RecordBuilder {
	b.rec.CreatedAt = at
	b.rec.UpdatedAt = at
	return b
}

// Build returns a copy of the assembled record.
func (b *RecordBuilder) Build() *models.Record {
	rec := b.rec
	rec.Payload = append(models.Ciphertext(nil), b.rec.Payload...)
	return &rec
}
