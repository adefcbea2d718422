package lock_test

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	suitelib "github.com/stretchr/testify/suite"

	"github.com/srg/blelock/internal/lock"
)

type RouterTestSuite struct {
	suitelib.Suite

	router  *lock.Router
	status  []string
	logs    []string
	pending *lock.Reassembler
}

func (suite *RouterTestSuite) SetupTest() {
	suite.status = nil
	suite.logs = nil

	logger, _ := test.NewNullLogger()
	statusReg := lock.NewRegistry()
	statusReg.Add(func(text string) { suite.status = append(suite.status, text) })
	suite.pending = lock.NewReassembler(func(text string) { suite.logs = append(suite.logs, text) })

	suite.router = lock.NewRouter(logger, statusReg, suite.pending)
	suite.router.SetHandleMap(map[uint16]string{
		12: lock.UnlockUUID,
		14: lock.StatusUUID,
		17: lock.LogUUID,
	})
}

// framed prepends the three-byte header the lock puts on every payload
func framed(text string) []byte {
	return append([]byte{0xAA, 0xBB, 0xCC}, []byte(text)...)
}

func (suite *RouterTestSuite) TestStatusDispatch() {
	// GOAL: Verify status events reach status listeners with the header
	// stripped
	//
	// TEST SCENARIO: Event on the status handle → listener receives the
	// text after the header

	suite.router.OnEvent(14, framed("UNLOCKED"))

	suite.Equal([]string{"UNLOCKED"}, suite.status)
	suite.Empty(suite.logs)
}

func (suite *RouterTestSuite) TestLogDispatch() {
	// GOAL: Verify log events feed the reassembler and emit on the
	// sentinel

	suite.router.OnEvent(17, framed("entry one\n"))
	suite.router.OnEvent(17, framed("entry two\n"))
	suite.Empty(suite.logs, "nothing emits before the sentinel")

	suite.router.OnEvent(17, framed(lock.LogSentinel))

	suite.Equal([]string{"entry one\nentry two\n"}, suite.logs)
	suite.Empty(suite.status)
}

func (suite *RouterTestSuite) TestUnknownHandleDropped() {
	// GOAL: Verify events from unmapped handles are dropped silently

	suite.router.OnEvent(99, framed("noise"))

	suite.Empty(suite.status)
	suite.Empty(suite.logs)
	suite.Empty(suite.pending.Pending())
}

func (suite *RouterTestSuite) TestTruncatedPayloadDropped() {
	// GOAL: Verify payloads shorter than the framing header never reach
	// listeners

	suite.router.OnEvent(14, []byte{0xAA})
	suite.router.OnEvent(14, []byte{})
	suite.router.OnEvent(17, []byte{0xAA, 0xBB})

	suite.Empty(suite.status)
	suite.Empty(suite.pending.Pending())
}

func (suite *RouterTestSuite) TestHeaderOnlyPayloadIsEmptyText() {
	// GOAL: Verify an exactly-header-length payload dispatches empty
	// text rather than being dropped

	suite.router.OnEvent(14, []byte{0xAA, 0xBB, 0xCC})

	suite.Equal([]string{""}, suite.status)
}

func (suite *RouterTestSuite) TestUnlockHandleEventDropped() {
	// GOAL: Verify events on a known but non-notifying characteristic
	// are dropped

	suite.router.OnEvent(12, framed("???"))

	suite.Empty(suite.status)
	suite.Empty(suite.logs)
}

func (suite *RouterTestSuite) TestHandleMapReplacement() {
	// GOAL: Verify SetHandleMap replaces routing wholesale
	//
	// TEST SCENARIO: Rebuild moves status to a new handle → old handle
	// drops → new handle routes

	suite.router.SetHandleMap(map[uint16]string{24: lock.StatusUUID})

	suite.router.OnEvent(14, framed("stale"))
	suite.router.OnEvent(24, framed("fresh"))

	suite.Equal([]string{"fresh"}, suite.status)
}

func TestRouterTestSuite(t *testing.T) {
	suitelib.Run(t, new(RouterTestSuite))
}
