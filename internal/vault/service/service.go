package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"satsvault/internal/audit"
	"satsvault/internal/sentinel"
	"satsvault/internal/vault/metrics"
	"satsvault/internal/vault/models"
	"satsvault/internal/vault/store"
	"satsvault/internal/vault/tracer"
	id "satsvault/pkg/domain"
	dErrors "satsvault/pkg/domain-errors"
	"satsvault/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

// Store is the persistence dependency; see store.Store for the full contract.
type Store = store.Store

// Envelope is the encryption boundary dependency.
// Error Contract:
//   - Open returns sentinel.ErrDecryptFailed for any unreadable blob.
type Envelope interface {
	Seal(ownerID id.OwnerID, plaintext []byte) (models.Ciphertext, error)
	Open(ownerID id.OwnerID, blob models.Ciphertext) ([]byte, error)
}

// RecordView is a record as handed back to callers: payload decrypted in
// memory, never persisted that way.
type RecordView struct {
	Kind      models.Kind
	ID        id.RecordID
	State     models.State
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PageView is one decrypted page of ListByState results.
type PageView struct {
	Records    []*RecordView
	NextCursor string
}

// MetadataView is the owner's wallet metadata.
type MetadataView struct {
	MintURLs       []string
	DefaultMintURL string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const defaultListLimit = 100

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer sets the tracer instance for the service.
func WithTracer(t *tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithListLimit caps ListByState page sizes.
func WithListLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.listLimit = limit
		}
	}
}

// Service is the vault's operation surface. Every method is scoped by the
// caller-asserted owner identity: creation stamps it, and all reads and
// mutations are keyed by it, so a foreign record is indistinguishable from an
// absent one. Payloads cross the envelope exactly once in each direction.
type Service struct {
	store     Store
	envelope  Envelope
	auditor   *audit.Publisher
	metrics   *metrics.Metrics
	tracer    *tracer.Tracer
	logger    *slog.Logger
	listLimit int
}

// NewService wires the vault service.
func NewService(st Store, envelope Envelope, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:     st,
		envelope:  envelope,
		auditor:   auditor,
		logger:    logger,
		listLimit: defaultListLimit,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.tracer == nil {
		svc.tracer = tracer.New()
	}
	return svc
}

// CreateMintQuote stores a new encrypted mint quote. An empty initial state
// defaults to UNPAID.
func (s *Service) CreateMintQuote(ctx context.Context, ownerID id.OwnerID, quoteID id.RecordID, plaintext []byte, initial models.State) (*RecordView, error) {
	return s.create(ctx, ownerID, models.KindMintQuote, quoteID, plaintext, initial)
}

// CreateMeltQuote stores a new encrypted melt quote. An empty initial state
// defaults to UNPAID.
func (s *Service) CreateMeltQuote(ctx context.Context, ownerID id.OwnerID, quoteID id.RecordID, plaintext []byte, initial models.State) (*RecordView, error) {
	return s.create(ctx, ownerID, models.KindMeltQuote, quoteID, plaintext, initial)
}

// CreateProof stores a new encrypted token proof. An empty initial state
// defaults to UNSPENT.
func (s *Service) CreateProof(ctx context.Context, ownerID id.OwnerID, proofID id.RecordID, plaintext []byte, initial models.State) (*RecordView, error) {
	return s.create(ctx, ownerID, models.KindProof, proofID, plaintext, initial)
}

// RecordTransaction appends an immutable encrypted transaction entry.
func (s *Service) RecordTransaction(ctx context.Context, ownerID id.OwnerID, txID id.RecordID, plaintext []byte) (*RecordView, error) {
	return s.create(ctx, ownerID, models.KindTransaction, txID, plaintext, "")
}

func (s *Service) create(ctx context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID, plaintext []byte, initial models.State) (*RecordView, error) {
	ctx, span := s.tracer.Start(ctx, "vault.create", "kind", string(kind))
	var err error
	defer func() { span.End(err) }()

	if err = requireOwner(ownerID); err != nil {
		return nil, err
	}
	if initial == "" {
		initial = models.InitialState(kind)
	}
	if len(plaintext) == 0 {
		err = dErrors.New(dErrors.CodeInvalidInput, "payload must not be empty")
		return nil, err
	}

	blob, sealErr := s.envelope.Seal(ownerID, plaintext)
	if sealErr != nil {
		err = dErrors.Wrap(sealErr, dErrors.CodeInternal, "failed to seal payload")
		return nil, err
	}

	now := requestcontext.Now(ctx)
	rec, recErr := models.NewRecord(ownerID, kind, recordID, initial, blob, now)
	if recErr != nil {
		err = recErr
		return nil, err
	}

	start := time.Now()
	if storeErr := s.store.Create(ctx, rec); storeErr != nil {
		err = s.translateStoreErr(storeErr, kind, "failed to create record")
		return nil, err
	}
	s.observeStore("create", start)

	if s.metrics != nil {
		s.metrics.IncrementRecordsCreated(string(kind))
	}
	s.publishAudit(ctx, audit.Event{
		OwnerID:  ownerID,
		Action:   audit.ActionRecordCreated,
		Kind:     kind,
		RecordID: recordID,
		ToState:  initial,
	})
	s.logger.InfoContext(ctx, "record created",
		"owner_id", ownerID.String(),
		"kind", string(kind),
		"record_id", recordID.String(),
		"state", string(initial),
	)

	return &RecordView{
		Kind:      kind,
		ID:        recordID,
		State:     initial,
		Payload:   plaintext,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// TransitionState requests a lifecycle move to target. Legality is checked
// against the transition tables before any write; the write itself is
// conditional on the observed state, so a concurrent transition surfaces as
// CodeConflict and the caller retries with fresh state. Re-requesting the
// current state is an idempotent no-op that does not touch UpdatedAt.
func (s *Service) TransitionState(ctx context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID, target models.State) (*RecordView, error) {
	ctx, span := s.tracer.Start(ctx, "vault.transition", "kind", string(kind), "target", string(target))
	var err error
	defer func() { span.End(err) }()

	if err = requireOwner(ownerID); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		err = dErrors.New(dErrors.CodeInvalidInput, "invalid record kind")
		return nil, err
	}

	start := time.Now()
	rec, getErr := s.store.Get(ctx, ownerID, kind, recordID)
	if getErr != nil {
		err = s.translateStoreErr(getErr, kind, "failed to read record")
		return nil, err
	}
	s.observeStore("get", start)

	next, noop, trErr := models.Transition(kind, rec.State, target)
	if trErr != nil {
		if dErrors.HasCode(trErr, dErrors.CodeIllegalTransition) && s.metrics != nil {
			s.metrics.IncrementIllegalTransitions(string(kind))
		}
		err = trErr
		return nil, err
	}
	if noop {
		return s.view(ctx, rec, kind)
	}

	now := requestcontext.Now(ctx)
	start = time.Now()
	updated, upErr := s.store.Transition(ctx, ownerID, kind, recordID, rec.State, next, now)
	if upErr != nil {
		if errors.Is(upErr, sentinel.ErrConflict) && s.metrics != nil {
			s.metrics.IncrementConflicts(string(kind))
		}
		err = s.translateStoreErr(upErr, kind, "failed to apply transition")
		return nil, err
	}
	s.observeStore("transition", start)

	if s.metrics != nil {
		s.metrics.IncrementTransitions(string(kind), string(next))
	}
	s.publishAudit(ctx, audit.Event{
		OwnerID:   ownerID,
		Action:    audit.ActionStateTransition,
		Kind:      kind,
		RecordID:  recordID,
		FromState: rec.State,
		ToState:   next,
	})
	s.logger.InfoContext(ctx, "state transition applied",
		"owner_id", ownerID.String(),
		"kind", string(kind),
		"record_id", recordID.String(),
		"from", string(rec.State),
		"to", string(next),
	)

	return s.view(ctx, updated, kind)
}

// GetRecord fetches and decrypts one record.
func (s *Service) GetRecord(ctx context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID) (*RecordView, error) {
	ctx, span := s.tracer.Start(ctx, "vault.get", "kind", string(kind))
	var err error
	defer func() { span.End(err) }()

	if err = requireOwner(ownerID); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		err = dErrors.New(dErrors.CodeInvalidInput, "invalid record kind")
		return nil, err
	}

	start := time.Now()
	rec, getErr := s.store.Get(ctx, ownerID, kind, recordID)
	if getErr != nil {
		err = s.translateStoreErr(getErr, kind, "failed to read record")
		return nil, err
	}
	s.observeStore("get", start)

	view, viewErr := s.view(ctx, rec, kind)
	if viewErr != nil {
		err = viewErr
		return nil, err
	}
	return view, nil
}

// ListByState pages through one state partition in creation order, decrypting
// each payload on the way out.
func (s *Service) ListByState(ctx context.Context, ownerID id.OwnerID, kind models.Kind, state models.State, filter *models.ListFilter, limit int, cursorToken string) (*PageView, error) {
	ctx, span := s.tracer.Start(ctx, "vault.list", "kind", string(kind), "state", string(state))
	var err error
	defer func() { span.End(err) }()

	if err = requireOwner(ownerID); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		err = dErrors.New(dErrors.CodeInvalidInput, "invalid record kind")
		return nil, err
	}
	if kind == models.KindTransaction {
		if state != "" {
			err = dErrors.New(dErrors.CodeInvalidInput, "transactions carry no state")
			return nil, err
		}
	} else if !models.ValidState(kind, state) {
		err = dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("state %s is not valid for %s", state, kind))
		return nil, err
	}
	if limit <= 0 || limit > s.listLimit {
		limit = s.listLimit
	}
	cursor, curErr := models.DecodeCursor(cursorToken)
	if curErr != nil {
		err = curErr
		return nil, err
	}

	start := time.Now()
	page, listErr := s.store.ListByState(ctx, ownerID, kind, state, filter, limit, cursor)
	if listErr != nil {
		err = s.translateStoreErr(listErr, kind, "failed to list records")
		return nil, err
	}
	s.observeStore("list", start)
	if s.metrics != nil {
		s.metrics.ListPageSize.Observe(float64(len(page.Records)))
	}

	out := &PageView{NextCursor: page.NextCursor}
	for _, rec := range page.Records {
		view, viewErr := s.view(ctx, rec, kind)
		if viewErr != nil {
			err = viewErr
			return nil, err
		}
		out.Records = append(out.Records, view)
	}
	return out, nil
}

// UpdatePayload re-encrypts a record's payload in place, leaving its state
// untouched. This is the key-rotation path: the caller decrypted under the
// old key material and submits fresh plaintext to be sealed under the new.
func (s *Service) UpdatePayload(ctx context.Context, ownerID id.OwnerID, kind models.Kind, recordID id.RecordID, plaintext []byte) (*RecordView, error) {
	ctx, span := s.tracer.Start(ctx, "vault.update_payload", "kind", string(kind))
	var err error
	defer func() { span.End(err) }()

	if err = requireOwner(ownerID); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		err = dErrors.New(dErrors.CodeInvalidInput, "invalid record kind")
		return nil, err
	}
	if len(plaintext) == 0 {
		err = dErrors.New(dErrors.CodeInvalidInput, "payload must not be empty")
		return nil, err
	}

	blob, sealErr := s.envelope.Seal(ownerID, plaintext)
	if sealErr != nil {
		err = dErrors.Wrap(sealErr, dErrors.CodeInternal, "failed to seal payload")
		return nil, err
	}

	now := requestcontext.Now(ctx)
	start := time.Now()
	rec, upErr := s.store.UpdatePayload(ctx, ownerID, kind, recordID, blob, now)
	if upErr != nil {
		err = s.translateStoreErr(upErr, kind, "failed to update payload")
		return nil, err
	}
	s.observeStore("update_payload", start)

	if s.metrics != nil {
		s.metrics.PayloadsReEncrypted.WithLabelValues(string(kind)).Inc()
	}
	s.publishAudit(ctx, audit.Event{
		OwnerID:  ownerID,
		Action:   audit.ActionPayloadRotated,
		Kind:     kind,
		RecordID: recordID,
	})

	return &RecordView{
		Kind:      kind,
		ID:        recordID,
		State:     rec.State,
		Payload:   plaintext,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// GetOrInitMetadata returns the owner's wallet metadata, creating the empty
// singleton on first access.
func (s *Service) GetOrInitMetadata(ctx context.Context, ownerID id.OwnerID) (*MetadataView, error) {
	ctx, span := s.tracer.Start(ctx, "vault.metadata")
	var err error
	defer func() { span.End(err) }()

	if err = requireOwner(ownerID); err != nil {
		return nil, err
	}

	meta, getErr := s.store.GetMetadata(ctx, ownerID)
	if getErr == nil {
		return metadataView(meta), nil
	}
	if !errors.Is(getErr, sentinel.ErrNotFound) {
		err = dErrors.Wrap(getErr, dErrors.CodeInternal, "failed to read metadata")
		return nil, err
	}

	now := requestcontext.Now(ctx)
	meta = &models.WalletMetadata{OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	if putErr := s.store.PutMetadata(ctx, meta); putErr != nil {
		err = dErrors.Wrap(putErr, dErrors.CodeInternal, "failed to initialize metadata")
		return nil, err
	}
	return metadataView(meta), nil
}

// SetMetadata replaces the owner's mint URL bookkeeping.
func (s *Service) SetMetadata(ctx context.Context, ownerID id.OwnerID, mintURLs []string, defaultMintURL string) (*MetadataView, error) {
	ctx, span := s.tracer.Start(ctx, "vault.metadata_set")
	var err error
	defer func() { span.End(err) }()

	if err = requireOwner(ownerID); err != nil {
		return nil, err
	}
	if defaultMintURL != "" && !containsString(mintURLs, defaultMintURL) {
		err = dErrors.New(dErrors.CodeInvalidInput, "default mint URL must be one of the mint URLs")
		return nil, err
	}

	now := requestcontext.Now(ctx)
	createdAt := now
	if existing, getErr := s.store.GetMetadata(ctx, ownerID); getErr == nil {
		createdAt = existing.CreatedAt
	} else if !errors.Is(getErr, sentinel.ErrNotFound) {
		err = dErrors.Wrap(getErr, dErrors.CodeInternal, "failed to read metadata")
		return nil, err
	}

	meta := &models.WalletMetadata{
		OwnerID:        ownerID,
		MintURLs:       mintURLs,
		DefaultMintURL: defaultMintURL,
		CreatedAt:      createdAt,
		UpdatedAt:      now,
	}
	if putErr := s.store.PutMetadata(ctx, meta); putErr != nil {
		err = dErrors.Wrap(putErr, dErrors.CodeInternal, "failed to store metadata")
		return nil, err
	}

	s.publishAudit(ctx, audit.Event{OwnerID: ownerID, Action: audit.ActionMetadataUpdated})
	return metadataView(meta), nil
}

// PurgeOwner removes every record for the owner. This is the explicit
// owner-initiated purge; nothing else ever deletes records.
func (s *Service) PurgeOwner(ctx context.Context, ownerID id.OwnerID) error {
	ctx, span := s.tracer.Start(ctx, "vault.purge")
	var err error
	defer func() { span.End(err) }()

	if err = requireOwner(ownerID); err != nil {
		return err
	}
	if delErr := s.store.DeleteOwner(ctx, ownerID); delErr != nil {
		err = dErrors.Wrap(delErr, dErrors.CodeInternal, "failed to purge owner")
		return err
	}
	if s.metrics != nil {
		s.metrics.OwnersPurged.Inc()
	}
	s.publishAudit(ctx, audit.Event{OwnerID: ownerID, Action: audit.ActionOwnerPurged})
	s.logger.InfoContext(ctx, "owner purged", "owner_id", ownerID.String())
	return nil
}

// view decrypts a stored record for the caller. Decryption failures indicate
// key desync or corruption; they are audited and surfaced, never swallowed.
func (s *Service) view(ctx context.Context, rec *models.Record, kind models.Kind) (*RecordView, error) {
	plaintext, openErr := s.envelope.Open(rec.OwnerID, rec.Payload)
	if openErr != nil {
		if errors.Is(openErr, sentinel.ErrDecryptFailed) {
			if s.metrics != nil {
				s.metrics.IncrementDecryptFailures(string(kind))
			}
			s.publishAudit(ctx, audit.Event{
				OwnerID:  rec.OwnerID,
				Action:   audit.ActionDecryptFailed,
				Kind:     kind,
				RecordID: rec.ID,
			})
			s.logger.ErrorContext(ctx, "payload decryption failed",
				"owner_id", rec.OwnerID.String(),
				"kind", string(kind),
				"record_id", rec.ID.String(),
			)
			return nil, dErrors.Wrap(openErr, dErrors.CodeDecryptionFailure, "payload unreadable under owner key")
		}
		return nil, dErrors.Wrap(openErr, dErrors.CodeInternal, "failed to open payload")
	}
	return &RecordView{
		Kind:      kind,
		ID:        rec.ID,
		State:     rec.State,
		Payload:   plaintext,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (s *Service) translateStoreErr(err error, kind models.Kind, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "record not found")
	case errors.Is(err, sentinel.ErrAlreadyExists):
		return dErrors.Wrap(err, dErrors.CodeAlreadyExists, fmt.Sprintf("%s already exists", kind))
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "record state changed concurrently, retry with fresh state")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func (s *Service) publishAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit event",
			"error", err,
			"action", string(event.Action),
		)
	}
}

func (s *Service) observeStore(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOperation(operation, time.Since(start))
	}
}

func requireOwner(ownerID id.OwnerID) error {
	if ownerID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "missing owner context")
	}
	return nil
}

func metadataView(meta *models.WalletMetadata) *MetadataView {
	return &MetadataView{
		MintURLs:       meta.MintURLs,
		DefaultMintURL: meta.DefaultMintURL,
		CreatedAt:      meta.CreatedAt,
		UpdatedAt:      meta.UpdatedAt,
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
