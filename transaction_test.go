package janode

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/meetecho/janode-sub000/internal/log"
)

type TransactionManagerSuite struct {
	suite.Suite
	tm *transactionManager
}

func TestTransactionManagerSuite(t *testing.T) {
	suite.Run(t, new(TransactionManagerSuite))
}

func (s *TransactionManagerSuite) SetupTest() {
	s.tm = newTransactionManager(log.NewNop())
}

func (s *TransactionManagerSuite) TestCreateRejectsDuplicateID() {
	s.Require().NoError(s.tm.create("1", "owner", "create", nil, nil))
	err := s.tm.create("1", "owner", "create", nil, nil)
	s.Require().Error(err)
	s.ErrorIs(err, ErrDuplicateTransaction)
}

func (s *TransactionManagerSuite) TestCloseWithSuccessInvokesResolve() {
	var got frame
	s.Require().NoError(s.tm.create("1", "owner", "create", func(f frame) { got = f }, nil))
	s.tm.closeWithSuccess("1", "owner", frame{"ok": true})
	s.Equal(frame{"ok": true}, got)
	s.False(s.tm.has("1"))
}

func (s *TransactionManagerSuite) TestCloseWithErrorInvokesReject() {
	var got error
	s.Require().NoError(s.tm.create("1", "owner", "create", nil, func(err error) { got = err }))
	boom := errlibTestErr{}
	s.tm.closeWithError("1", "owner", boom)
	s.Equal(boom, got)
}

// TestDoubleCloseIsNoop is invariant P1: the resolver/rejecter fires at
// most once per transaction id.
func (s *TransactionManagerSuite) TestDoubleCloseIsNoop() {
	calls := 0
	s.Require().NoError(s.tm.create("1", "owner", "create", func(frame) { calls++ }, nil))
	s.tm.closeWithSuccess("1", "owner", frame{})
	s.tm.closeWithSuccess("1", "owner", frame{})
	s.Equal(1, calls)
}

// TestOwnershipMismatchIsSilentlyIgnored: an entity that does not own a
// transaction cannot close it.
func (s *TransactionManagerSuite) TestOwnershipMismatchIsSilentlyIgnored() {
	calls := 0
	s.Require().NoError(s.tm.create("1", "owner-a", "create", func(frame) { calls++ }, nil))
	s.tm.closeWithSuccess("1", "owner-b", frame{})
	s.Equal(0, calls)
	s.True(s.tm.has("1"))
}

func (s *TransactionManagerSuite) TestCloseAllWithErrorFiltersByOwner() {
	var aErr, bErr error
	s.Require().NoError(s.tm.create("a", "owner-a", "create", nil, func(err error) { aErr = err }))
	s.Require().NoError(s.tm.create("b", "owner-b", "create", nil, func(err error) { bErr = err }))

	boom := errlibTestErr{}
	s.tm.closeAllWithError("owner-a", boom)

	s.Equal(boom, aErr)
	s.Nil(bErr)
	s.Equal(1, s.tm.size())
}

func (s *TransactionManagerSuite) TestNextIDIsUniqueAcrossCalls() {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := s.tm.nextID()
		s.False(seen[id], "id %s repeated", id)
		seen[id] = true
	}
}

type errlibTestErr struct{}

func (errlibTestErr) Error() string { return "boom" }
