package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "satsvault/pkg/domain"
	dErrors "satsvault/pkg/domain-errors"
)

type ModelsSuite struct {
	suite.Suite
	now time.Time
}

func (s *ModelsSuite) SetupTest() {
	s.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestModelsSuite(t *testing.T) {
	suite.Run(t, new(ModelsSuite))
}

func (s *ModelsSuite) TestNewRecordStampsTimestamps() {
	rec, err := NewRecord("owner-1", KindMintQuote, "q1", StateUnpaid, Ciphertext("blob"), s.now)
	s.Require().NoError(err)
	s.Equal(s.now, rec.CreatedAt)
	s.Equal(s.now, rec.UpdatedAt)
}

func (s *ModelsSuite) TestNewRecordInvariants() {
	cases := []struct {
		name  string
		owner string
		kind  Kind
		id    string
		state State
		blob  Ciphertext
		code  dErrors.Code
	}{
		{"missing owner", "", KindProof, "p1", StateUnspent, Ciphertext("x"), dErrors.CodeUnauthorized},
		{"bad kind", "o", "banana", "p1", StateUnspent, Ciphertext("x"), dErrors.CodeInvalidInput},
		{"missing id", "o", KindProof, "", StateUnspent, Ciphertext("x"), dErrors.CodeInvalidInput},
		{"empty payload", "o", KindProof, "p1", StateUnspent, nil, dErrors.CodeInvalidInput},
		{"state from wrong kind", "o", KindProof, "p1", StateIssued, Ciphertext("x"), dErrors.CodeInvalidInput},
		{"transaction with state", "o", KindTransaction, "t1", StateUnpaid, Ciphertext("x"), dErrors.CodeInvalidInput},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := NewRecord(id.OwnerID(tc.owner), tc.kind, id.RecordID(tc.id), tc.state, tc.blob, s.now)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tc.code))
		})
	}
}

func (s *ModelsSuite) TestListFilterTimeRange() {
	rec := &Record{CreatedAt: s.now}

	after := s.now.Add(-time.Hour)
	before := s.now.Add(time.Hour)
	s.True((&ListFilter{CreatedAfter: &after, CreatedBefore: &before}).Matches(rec))
	s.True((*ListFilter)(nil).Matches(rec))

	s.False((&ListFilter{CreatedAfter: &s.now}).Matches(rec), "CreatedAfter is exclusive")
	s.False((&ListFilter{CreatedBefore: &s.now}).Matches(rec), "CreatedBefore is exclusive")
}
