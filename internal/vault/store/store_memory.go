package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"satsvault/internal/sentinel"
	"satsvault/internal/vault/models"
	id "satsvault/pkg/domain"
)

// recordKey addresses a record inside an owner partition.
type recordKey struct {
	kind models.Kind
	id   id.RecordID
}

// indexKey addresses one (kind, state) index partition.
type indexKey struct {
	kind  models.Kind
	state models.State
}

// indexEntry is one secondary index row: the (createdAt, id) position of a
// record inside its state partition. Payloads never appear here.
type indexEntry struct {
	createdAt time.Time
	id        id.RecordID
}

// ownerPartition holds one owner's records, index, and metadata.
type ownerPartition struct {
	records  map[recordKey]*models.Record
	index    map[indexKey][]indexEntry
	metadata *models.WalletMetadata
}

// InMemoryStore keeps the full vault in process memory. It backs unit tests
// and the dev environment, and doubles as the reference implementation for
// the index-consistency contract: every mutation swaps primary record and
// index entry under one lock acquisition.
type InMemoryStore struct {
	mu     sync.RWMutex
	owners map[id.OwnerID]*ownerPartition
}

// NewInMemory constructs an empty in-memory vault store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{owners: make(map[id.OwnerID]*ownerPartition)}
}

func (s *InMemoryStore) partition(ownerID id.OwnerID) *ownerPartition {
	p, ok := s.owners[ownerID]
	if !ok {
		p = &ownerPartition{
			records: make(map[recordKey]*models.Record),
			index:   make(map[indexKey][]indexEntry),
		}
		s.owners[ownerID] = p
	}
	return p
}

func (s *InMemoryStore) Create(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.partition(rec.OwnerID)
	key := recordKey{kind: rec.Kind, id: rec.ID}
	if _, exists := p.records[key]; exists {
		return sentinel.ErrAlreadyExists
	}

	copyRec := cloneRecord(rec)
	p.records[key] = copyRec
	// Transactions index under their empty state so the append-only ledger
	// stays listable in creation order.
	p.insertIndex(indexKey{kind: rec.Kind, state: rec.State}, indexEntry{createdAt: rec.CreatedAt, id: rec.ID})
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.owners[ownerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec, ok := p.records[recordKey{kind: kind, id: recordID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *InMemoryStore) ListByState(_ context.Context, ownerID id.OwnerID, kind models.Kind, state models.State, filter *models.ListFilter, limit int, cursor *models.Cursor) (*models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page := &models.Page{}
	p, ok := s.owners[ownerID]
	if !ok {
		return page, nil
	}

	entries := p.index[indexKey{kind: kind, state: state}]
	for _, entry := range entries {
		rec := p.records[recordKey{kind: kind, id: entry.id}]
		if rec == nil || rec.State != state {
			// The index is swapped atomically with every state write, so a
			// mismatch here is a broken invariant, not a race.
			return nil, sentinel.ErrUnavailable
		}
		if !cursor.After(rec) {
			continue
		}
		if !filter.Matches(rec) {
			continue
		}
		if limit > 0 && len(page.Records) == limit {
			next := models.Cursor{CreatedAt: page.Records[limit-1].CreatedAt, ID: page.Records[limit-1].ID}
			page.NextCursor = next.Encode()
			return page, nil
		}
		page.Records = append(page.Records, cloneRecord(rec))
	}
	return page, nil
}

func (s *InMemoryStore) Transition(_ context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID, expected, target models.State, at time.Time) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.owners[ownerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec, ok := p.records[recordKey{kind: kind, id: recordID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if rec.State != expected {
		return nil, sentinel.ErrConflict
	}

	// Old index entry out, new one in, state write — all under the same lock
	// acquisition so no reader observes a stale pairing.
	p.removeIndex(indexKey{kind: kind, state: expected}, rec.ID)
	rec.State = target
	rec.UpdatedAt = at
	p.insertIndex(indexKey{kind: kind, state: target}, indexEntry{createdAt: rec.CreatedAt, id: rec.ID})

	return cloneRecord(rec), nil
}

func (s *InMemoryStore) UpdatePayload(_ context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID, payload models.Ciphertext, at time.Time) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.owners[ownerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec, ok := p.records[recordKey{kind: kind, id: recordID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	rec.Payload = append(models.Ciphertext(nil), payload...)
	rec.UpdatedAt = at
	return cloneRecord(rec), nil
}

func (s *InMemoryStore) GetMetadata(_ context.Context, ownerID id.OwnerID) (*models.WalletMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.owners[ownerID]
	if !ok || p.metadata == nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneMetadata(p.metadata), nil
}

func (s *InMemoryStore) PutMetadata(_ context.Context, meta *models.WalletMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.partition(meta.OwnerID)
	p.metadata = cloneMetadata(meta)
	return nil
}

func (s *InMemoryStore) DeleteOwner(_ context.Context, ownerID id.OwnerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.owners, ownerID)
	return nil
}

// insertIndex keeps each index partition sorted by (createdAt, id).
func (p *ownerPartition) insertIndex(key indexKey, entry indexEntry) {
	entries := p.index[key]
	pos := sort.Search(len(entries), func(i int) bool {
		if !entries[i].createdAt.Equal(entry.createdAt) {
			return entries[i].createdAt.After(entry.createdAt)
		}
		return entries[i].id > entry.id
	})
	entries = append(entries, indexEntry{})
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = entry
	p.index[key] = entries
}

func (p *ownerPartition) removeIndex(key indexKey, recordID id.RecordID) {
	entries := p.index[key]
	for i, entry := range entries {
		if entry.id == recordID {
			p.index[key] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

func cloneRecord(rec *models.Record) *models.Record {
	copyRec := *rec
	copyRec.Payload = append(models.Ciphertext(nil), rec.Payload...)
	return &copyRec
}

func cloneMetadata(meta *models.WalletMetadata) *models.WalletMetadata {
	copyMeta := *meta
	copyMeta.MintURLs = append([]string(nil), meta.MintURLs...)
	return &copyMeta
}
