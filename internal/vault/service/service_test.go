package service

// Unit tests for the vault service.
//
// These tests pin the boundaries a handler test cannot reach:
// - error translation from store sentinels to domain codes
// - transition legality checks happening before any conditional write
// - the idempotent no-op path (no store write, no UpdatedAt refresh)
// - decryption failures surfacing as decryption_failure, never as plaintext
//
// Store-level behavior (index consistency, pagination, owner isolation) is
// covered by the store suites against the in-memory implementation.

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"satsvault/internal/audit"
	"satsvault/internal/sentinel"
	"satsvault/internal/vault/crypto"
	"satsvault/internal/vault/models"
	"satsvault/internal/vault/service/mocks"
	id "satsvault/pkg/domain"
	dErrors "satsvault/pkg/domain-errors"
	"satsvault/pkg/requestcontext"
	"satsvault/pkg/testutil"
)

const testOwner = id.OwnerID("owner-1")

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	mockStore  *mocks.MockStore
	envelope   *crypto.Envelope
	auditStore *audit.InMemoryStore
	service    *Service
	now        time.Time
	ctx        context.Context
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)

	env, err := crypto.NewEnvelope(bytes.Repeat([]byte{0x11}, 32))
	s.Require().NoError(err)
	s.envelope = env

	s.auditStore = audit.NewInMemoryStore()
	s.service = NewService(
		s.mockStore,
		s.envelope,
		audit.NewPublisher(s.auditStore),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	s.now = time.Date(2026, 6, 15, 9, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

// sealed encrypts a payload the way the service would have at create time.
func (s *ServiceSuite) sealed(owner id.OwnerID, plaintext []byte) models.Ciphertext {
	blob, err := s.envelope.Seal(owner, plaintext)
	s.Require().NoError(err)
	return blob
}

func (s *ServiceSuite) storedRecord(kind models.Kind, recordID id.RecordID, state models.State, plaintext []byte) *models.Record {
	return testutil.NewRecord().
		WithOwner(testOwner).
		WithKind(kind).
		WithID(recordID).
		WithState(state).
		WithPayload(s.sealed(testOwner, plaintext)).
		CreatedAt(s.now.Add(-time.Hour)).
		Build()
}

func (s *ServiceSuite) lastAuditAction() audit.Action {
	events := s.auditStore.Events()
	s.Require().NotEmpty(events)
	return events[len(events)-1].Action
}

// =============================================================================
// Create - Validation & Error Translation
// =============================================================================

func (s *ServiceSuite) TestCreate_ValidationErrors() {
	s.T().Run("missing owner returns CodeUnauthorized", func(t *testing.T) {
		_, err := s.service.CreateMintQuote(s.ctx, "", "q1", []byte("payload"), "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.T().Run("empty payload returns CodeInvalidInput", func(t *testing.T) {
		_, err := s.service.CreateProof(s.ctx, testOwner, "p1", nil, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.T().Run("state from another kind returns CodeInvalidInput", func(t *testing.T) {
		_, err := s.service.CreateMintQuote(s.ctx, testOwner, "q1", []byte("payload"), models.StateUnspent)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestCreate_DefaultsToInitialState() {
	var created *models.Record
	s.mockStore.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *models.Record) error {
			created = rec
			return nil
		})

	view, err := s.service.CreateProof(s.ctx, testOwner, "p1", []byte(`{"secret":"s"}`), "")
	s.Require().NoError(err)

	s.Equal(models.StateUnspent, view.State)
	s.Equal(models.StateUnspent, created.State)
	s.Equal(s.now, created.CreatedAt)
	s.Equal(s.now, created.UpdatedAt)
	s.Equal([]byte(`{"secret":"s"}`), view.Payload)
	s.Equal(audit.ActionRecordCreated, s.lastAuditAction())
}

func (s *ServiceSuite) TestCreate_PayloadSealedBeforeStore() {
	plaintext := []byte(`{"quote":"lnbc1..."}`)
	s.mockStore.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *models.Record) error {
			assert.NotContains(s.T(), string(rec.Payload), `lnbc1`, "store must only ever see ciphertext")
			opened, err := s.envelope.Open(testOwner, rec.Payload)
			require.NoError(s.T(), err)
			assert.Equal(s.T(), plaintext, opened)
			return nil
		})

	_, err := s.service.CreateMintQuote(s.ctx, testOwner, "q1", plaintext, "")
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestCreate_ErrorTranslation() {
	s.T().Run("duplicate returns CodeAlreadyExists", func(t *testing.T) {
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyExists)
		_, err := s.service.CreateMintQuote(s.ctx, testOwner, "q1", []byte("p"), "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	})

	s.T().Run("unknown store error returns CodeInternal", func(t *testing.T) {
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(assert.AnError)
		_, err := s.service.RecordTransaction(s.ctx, testOwner, "t1", []byte("p"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

// =============================================================================
// TransitionState - Legality, Idempotence, Conflict
// =============================================================================

// TestTransition_MintQuoteLifecycle walks a mint quote through its full legal
// path: UNPAID -> PAID -> ISSUED.
func (s *ServiceSuite) TestTransition_MintQuoteLifecycle() {
	rec := s.storedRecord(models.KindMintQuote, "q1", models.StateUnpaid, []byte("p"))

	paid := *rec
	paid.State = models.StatePaid
	paid.UpdatedAt = s.now
	s.mockStore.EXPECT().Get(gomock.Any(), testOwner, models.KindMintQuote, id.RecordID("q1")).Return(rec, nil)
	s.mockStore.EXPECT().
		Transition(gomock.Any(), testOwner, models.KindMintQuote, id.RecordID("q1"), models.StateUnpaid, models.StatePaid, s.now).
		Return(&paid, nil)

	view, err := s.service.TransitionState(s.ctx, testOwner, models.KindMintQuote, "q1", models.StatePaid)
	s.Require().NoError(err)
	s.Equal(models.StatePaid, view.State)
	s.Equal(audit.ActionStateTransition, s.lastAuditAction())

	issued := paid
	issued.State = models.StateIssued
	s.mockStore.EXPECT().Get(gomock.Any(), testOwner, models.KindMintQuote, id.RecordID("q1")).Return(&paid, nil)
	s.mockStore.EXPECT().
		Transition(gomock.Any(), testOwner, models.KindMintQuote, id.RecordID("q1"), models.StatePaid, models.StateIssued, s.now).
		Return(&issued, nil)

	view, err = s.service.TransitionState(s.ctx, testOwner, models.KindMintQuote, "q1", models.StateIssued)
	s.Require().NoError(err)
	s.Equal(models.StateIssued, view.State)
}

// TestTransition_SkippingAStepIsIllegal verifies UNPAID -> ISSUED is rejected
// before any write, leaving the record untouched.
func (s *ServiceSuite) TestTransition_SkippingAStepIsIllegal() {
	rec := s.storedRecord(models.KindMintQuote, "q2", models.StateUnpaid, []byte("p"))
	s.mockStore.EXPECT().Get(gomock.Any(), testOwner, models.KindMintQuote, id.RecordID("q2")).Return(rec, nil)
	// No Transition expectation: an illegal request must never reach the store.

	_, err := s.service.TransitionState(s.ctx, testOwner, models.KindMintQuote, "q2", models.StateIssued)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
}

// TestTransition_IdempotentNoop verifies re-requesting the current state reads
// but never writes, and hands back the stored UpdatedAt unrefreshed.
func (s *ServiceSuite) TestTransition_IdempotentNoop() {
	rec := s.storedRecord(models.KindMintQuote, "q1", models.StatePaid, []byte("p"))
	s.mockStore.EXPECT().Get(gomock.Any(), testOwner, models.KindMintQuote, id.RecordID("q1")).Return(rec, nil)

	view, err := s.service.TransitionState(s.ctx, testOwner, models.KindMintQuote, "q1", models.StatePaid)
	s.Require().NoError(err)
	s.Equal(models.StatePaid, view.State)
	s.Equal(rec.UpdatedAt, view.UpdatedAt, "no-op must not refresh UpdatedAt")
}

func (s *ServiceSuite) TestTransition_TerminalStateRejectsFurtherMoves() {
	rec := s.storedRecord(models.KindProof, "p1", models.StateSpent, []byte("p"))
	s.mockStore.EXPECT().Get(gomock.Any(), testOwner, models.KindProof, id.RecordID("p1")).Return(rec, nil)

	_, err := s.service.TransitionState(s.ctx, testOwner, models.KindProof, "p1", models.StateUnspent)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
}

func (s *ServiceSuite) TestTransition_TransactionsHaveNoStateMachine() {
	rec := s.storedRecord(models.KindTransaction, "t1", "", []byte("p"))
	s.mockStore.EXPECT().Get(gomock.Any(), testOwner, models.KindTransaction, id.RecordID("t1")).Return(rec, nil)

	_, err := s.service.TransitionState(s.ctx, testOwner, models.KindTransaction, "t1", models.StatePaid)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
}

// TestTransition_ConcurrentChangeSurfacesConflict verifies a lost conditional
// write maps to CodeConflict so the caller retries with fresh state.
func (s *ServiceSuite) TestTransition_ConcurrentChangeSurfacesConflict() {
	rec := s.storedRecord(models.KindProof, "p1", models.StateReserved, []byte("p"))
	s.mockStore.EXPECT().Get(gomock.Any(), testOwner, models.KindProof, id.RecordID("p1")).Return(rec, nil)
	s.mockStore.EXPECT().
		Transition(gomock.Any(), testOwner, models.KindProof, id.RecordID("p1"), models.StateReserved, models.StateUnspent, s.now).
		Return(nil, sentinel.ErrConflict)

	_, err := s.service.TransitionState(s.ctx, testOwner, models.KindProof, "p1", models.StateUnspent)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestTransition_AbsentRecordIsNotFound() {
	s.mockStore.EXPECT().Get(gomock.Any(), testOwner, models.KindMeltQuote, id.RecordID("missing")).Return(nil, sentinel.ErrNotFound)

	_, err := s.service.TransitionState(s.ctx, testOwner, models.KindMeltQuote, "missing", models.StatePending)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// =============================================================================
// GetRecord & ListByState
// =============================================================================

func (s *ServiceSuite) TestGetRecord_DecryptsPayload() {
	plaintext := []byte(`{"proof":"data"}`)
	rec := s.storedRecord(models.KindProof, "p1", models.StateUnspent, plaintext)
	s.mockStore.EXPECT().Get(gomock.Any(), testOwner, models.KindProof, id.RecordID("p1")).Return(rec, nil)

	view, err := s.service.GetRecord(s.ctx, testOwner, models.KindProof, "p1")
	s.Require().NoError(err)
	s.Equal(plaintext, view.Payload)
}

// TestGetRecord_UnreadablePayload verifies corrupted ciphertext surfaces as
// decryption_failure with an audit trail, never as garbage plaintext.
func (s *ServiceSuite) TestGetRecord_UnreadablePayload() {
	rec := s.storedRecord(models.KindProof, "p1", models.StateUnspent, []byte("p"))
	rec.Payload[len(rec.Payload)-1] ^= 0x01
	s.mockStore.EXPECT().Get(gomock.Any(), testOwner, models.KindProof, id.RecordID("p1")).Return(rec, nil)

	_, err := s.service.GetRecord(s.ctx, testOwner, models.KindProof, "p1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDecryptionFailure))
	s.Equal(audit.ActionDecryptFailed, s.lastAuditAction())
}

func (s *ServiceSuite) TestListByState_ValidationErrors() {
	s.T().Run("state from another kind", func(t *testing.T) {
		_, err := s.service.ListByState(s.ctx, testOwner, models.KindMintQuote, models.StateUnspent, nil, 10, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.T().Run("transactions take no state", func(t *testing.T) {
		_, err := s.service.ListByState(s.ctx, testOwner, models.KindTransaction, models.StatePaid, nil, 10, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.T().Run("garbage cursor", func(t *testing.T) {
		_, err := s.service.ListByState(s.ctx, testOwner, models.KindProof, models.StateUnspent, nil, 10, "not-a-cursor")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestListByState_DecryptsEachRecord() {
	recA := s.storedRecord(models.KindProof, "p1", models.StateUnspent, []byte("a"))
	recB := s.storedRecord(models.KindProof, "p2", models.StateUnspent, []byte("b"))
	s.mockStore.EXPECT().
		ListByState(gomock.Any(), testOwner, models.KindProof, models.StateUnspent, nil, 2, nil).
		Return(&models.Page{Records: []*models.Record{recA, recB}, NextCursor: "next-token"}, nil)

	page, err := s.service.ListByState(s.ctx, testOwner, models.KindProof, models.StateUnspent, nil, 2, "")
	s.Require().NoError(err)
	s.Require().Len(page.Records, 2)
	s.Equal([]byte("a"), page.Records[0].Payload)
	s.Equal([]byte("b"), page.Records[1].Payload)
	s.Equal("next-token", page.NextCursor)
}

func (s *ServiceSuite) TestListByState_ClampsLimit() {
	s.mockStore.EXPECT().
		ListByState(gomock.Any(), testOwner, models.KindProof, models.StateUnspent, nil, defaultListLimit, nil).
		Return(&models.Page{}, nil).
		Times(2)

	_, err := s.service.ListByState(s.ctx, testOwner, models.KindProof, models.StateUnspent, nil, 0, "")
	s.Require().NoError(err)
	_, err = s.service.ListByState(s.ctx, testOwner, models.KindProof, models.StateUnspent, nil, defaultListLimit+500, "")
	s.Require().NoError(err)
}

// =============================================================================
// UpdatePayload
// =============================================================================

func (s *ServiceSuite) TestUpdatePayload_StateUntouched() {
	fresh := []byte(`{"rotated":true}`)
	s.mockStore.EXPECT().
		UpdatePayload(gomock.Any(), testOwner, models.KindProof, id.RecordID("p1"), gomock.Any(), s.now).
		DoAndReturn(func(_ context.Context, owner id.OwnerID, _ models.Kind, recordID id.RecordID, blob models.Ciphertext, at time.Time) (*models.Record, error) {
			opened, err := s.envelope.Open(owner, blob)
			require.NoError(s.T(), err)
			assert.Equal(s.T(), fresh, opened)
			return &models.Record{
				OwnerID: owner, Kind: models.KindProof, ID: recordID,
				State: models.StateReserved, Payload: blob,
				CreatedAt: s.now.Add(-time.Hour), UpdatedAt: at,
			}, nil
		})

	view, err := s.service.UpdatePayload(s.ctx, testOwner, models.KindProof, "p1", fresh)
	s.Require().NoError(err)
	s.Equal(models.StateReserved, view.State, "re-encryption must not move the state machine")
	s.Equal(fresh, view.Payload)
	s.Equal(audit.ActionPayloadRotated, s.lastAuditAction())
}

// =============================================================================
// Metadata & Purge
// =============================================================================

func (s *ServiceSuite) TestGetOrInitMetadata_InitializesOnFirstAccess() {
	s.mockStore.EXPECT().GetMetadata(gomock.Any(), testOwner).Return(nil, sentinel.ErrNotFound)
	s.mockStore.EXPECT().
		PutMetadata(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, meta *models.WalletMetadata) error {
			assert.Equal(s.T(), testOwner, meta.OwnerID)
			assert.Empty(s.T(), meta.MintURLs)
			assert.Equal(s.T(), s.now, meta.CreatedAt)
			return nil
		})

	view, err := s.service.GetOrInitMetadata(s.ctx, testOwner)
	s.Require().NoError(err)
	s.Empty(view.MintURLs)
}

func (s *ServiceSuite) TestSetMetadata_DefaultMustBeKnown() {
	_, err := s.service.SetMetadata(s.ctx, testOwner, []string{"https://mint.a"}, "https://mint.b")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestSetMetadata_PreservesCreatedAt() {
	origin := s.now.Add(-48 * time.Hour)
	s.mockStore.EXPECT().GetMetadata(gomock.Any(), testOwner).
		Return(&models.WalletMetadata{OwnerID: testOwner, CreatedAt: origin, UpdatedAt: origin}, nil)
	s.mockStore.EXPECT().
		PutMetadata(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, meta *models.WalletMetadata) error {
			assert.Equal(s.T(), origin, meta.CreatedAt)
			assert.Equal(s.T(), s.now, meta.UpdatedAt)
			return nil
		})

	view, err := s.service.SetMetadata(s.ctx, testOwner, []string{"https://mint.a"}, "https://mint.a")
	s.Require().NoError(err)
	s.Equal("https://mint.a", view.DefaultMintURL)
	s.Equal(audit.ActionMetadataUpdated, s.lastAuditAction())
}

func (s *ServiceSuite) TestPurgeOwner() {
	s.mockStore.EXPECT().DeleteOwner(gomock.Any(), testOwner).Return(nil)

	s.Require().NoError(s.service.PurgeOwner(s.ctx, testOwner))
	s.Equal(audit.ActionOwnerPurged, s.lastAuditAction())

	s.Require().Error(s.service.PurgeOwner(s.ctx, ""))
}
