package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: these are core error primitives used at every trust boundary.
// Unit tests ensure invariants like "wrapped domain errors preserve original code"
// and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "record not found"}
		s.Equal("record not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeConflict}
		s.Equal("conflict", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	inner := errors.New("driver failure")
	err := Wrap(inner, CodeInternal, "store write failed")
	s.ErrorIs(err, inner)
}

func (s *DomainErrorsSuite) TestWrapPreservesExistingCode() {
	base := New(CodeIllegalTransition, "SPENT is terminal")
	wrapped := Wrap(base, CodeInternal, "transition rejected")
	s.True(HasCode(wrapped, CodeIllegalTransition))
	s.False(HasCode(wrapped, CodeInternal))
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	a := New(CodeDecryptionFailure, "payload unreadable")
	b := New(CodeDecryptionFailure, "different message")
	s.ErrorIs(a, b)
	s.NotErrorIs(a, New(CodeNotFound, "x"))
}

func (s *DomainErrorsSuite) TestHasCode() {
	s.Run("matches domain error code", func() {
		s.True(HasCode(New(CodeAlreadyExists, "dup"), CodeAlreadyExists))
	})

	s.Run("rejects plain errors", func() {
		s.False(HasCode(errors.New("plain"), CodeAlreadyExists))
	})

	s.Run("sees through wrapping", func() {
		err := Wrap(New(CodeConflict, "state changed"), CodeInternal, "retry")
		s.True(HasCode(err, CodeConflict))
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeNotFound, CodeOf(New(CodeNotFound, "")))
	s.Equal(CodeInternal, CodeOf(errors.New("plain")))
	s.Equal(CodeInternal, CodeOf(nil))
}
