package lock_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	suitelib "github.com/stretchr/testify/suite"

	"github.com/srg/blelock/internal/gatt"
	"github.com/srg/blelock/internal/lock"
	"github.com/srg/blelock/internal/testutils"
)

// SessionTestSuite drives a session against a scripted transport laid
// out like the reference lock peripheral:
//
//	service F001, handles 10..19
//	  F002 Unlock      decl 11, value 12, WRITE
//	  F003 Lock Status decl 13, value 14, READ|NOTIFY,   CCCD 15
//	  F004 Lock Log    decl 16, value 17, READ|INDICATE, CCCD 18
type SessionTestSuite struct {
	suitelib.Suite

	transport *testutils.FakeTransport
	logger    *logrus.Logger
	session   *lock.Session
}

func (suite *SessionTestSuite) SetupTest() {
	suite.transport = testutils.NewFakeTransport().
		AddService("F001", 10, 19).
		AddCharacteristic("F002", gatt.PropWrite, 11, 12, nil).
		AddCharacteristic("F003", gatt.PropRead|gatt.PropNotify, 13, 14, framed("LOCKED")).
		AddCharacteristic("F004", gatt.PropRead|gatt.PropIndicate, 16, 17, framed("old entry\n")).
		SetHandleValue(15, []byte{0x00, 0x00}).
		SetHandleValue(18, []byte{0x00, 0x00})

	suite.logger, _ = test.NewNullLogger()
	suite.session = lock.NewSession(suite.transport, suite.logger)

	suite.Require().NoError(suite.session.Connect(context.Background()))
}

func (suite *SessionTestSuite) TearDownTest() {
	_ = suite.session.Disconnect()
}

func (suite *SessionTestSuite) TestConnectBuildsProfile() {
	// GOAL: Verify connecting reconstructs the full lock profile and
	// subscribes both CCCDs
	//
	// TEST SCENARIO: Connect → one service with three characteristics →
	// notify CCCD written 0x0001, indicate CCCD written 0x0002

	services := suite.session.Services()
	suite.Require().Len(services, 1)
	suite.Equal("F001", services[0].UUID)
	suite.Require().Len(services[0].Characteristics, 3)
	suite.Empty(suite.session.Unexplained(), "the reference layout MUST leave nothing unexplained")

	notifyWrites := suite.transport.WritesTo(15)
	suite.Require().Len(notifyWrites, 1, "status CCCD MUST be written exactly once")
	suite.Equal([]byte{0x01, 0x00}, notifyWrites[0].Data)

	indicateWrites := suite.transport.WritesTo(18)
	suite.Require().Len(indicateWrites, 1, "log CCCD MUST be written exactly once")
	suite.Equal([]byte{0x02, 0x00}, indicateWrites[0].Data)
}

func (suite *SessionTestSuite) TestWriteSecret() {
	// GOAL: Verify the secret goes to the Unlock value handle

	suite.Require().NoError(suite.session.WriteSecret([]byte("s3cret")))

	writes := suite.transport.WritesTo(12)
	suite.Require().Len(writes, 1)
	suite.Equal([]byte("s3cret"), writes[0].Data)
}

func (suite *SessionTestSuite) TestWriteSecretWithoutUnlockCharacteristic() {
	// GOAL: Verify a peripheral without the Unlock characteristic is
	// rejected with a typed error

	transport := testutils.NewFakeTransport().
		AddService("F001", 10, 15).
		AddCharacteristic("F003", gatt.PropRead|gatt.PropNotify, 11, 12, framed("LOCKED"))
	logger, _ := test.NewNullLogger()
	sess := lock.NewSession(transport, logger)
	suite.Require().NoError(sess.Connect(context.Background()))
	defer func() { _ = sess.Disconnect() }()

	err := sess.WriteSecret([]byte("s3cret"))

	var kindErr *lock.ErrKindNotPresent
	suite.Require().ErrorAs(err, &kindErr)
	suite.Equal(lock.KindUnlock, kindErr.Kind)
}

func (suite *SessionTestSuite) TestDirectReads() {
	// GOAL: Verify direct reads strip the framing header

	status, err := suite.session.ReadStatus()
	suite.Require().NoError(err)
	suite.Equal("LOCKED", status)

	fragment, err := suite.session.ReadLogFragment()
	suite.Require().NoError(err)
	suite.Equal("old entry\n", fragment)
}

func (suite *SessionTestSuite) TestStatusNotificationRouting() {
	// GOAL: Verify a notification on the status value handle reaches
	// status listeners with the header stripped

	var got []string
	suite.session.OnStatus(func(text string) { got = append(got, text) })

	suite.transport.Notify(14, framed("UNLOCKED"))

	suite.Equal([]string{"UNLOCKED"}, got)
}

func (suite *SessionTestSuite) TestLogReassemblyOverIndications() {
	// GOAL: Verify fragmented log indications are reassembled and
	// delivered once the sentinel arrives

	var got []string
	suite.session.OnLog(func(text string) { got = append(got, text) })

	suite.transport.Indicate(17, framed("2026-08-01 unlocked\n"))
	suite.transport.Indicate(17, framed("2026-08-02 jammed\n"))
	suite.Empty(got, "nothing delivers before the sentinel")

	suite.transport.Indicate(17, framed(lock.LogSentinel))

	suite.Equal([]string{"2026-08-01 unlocked\n2026-08-02 jammed\n"}, got)
}

func (suite *SessionTestSuite) TestListenerRemoval() {
	// GOAL: Verify removed listeners stop receiving events

	var calls int
	id := suite.session.OnStatus(func(string) { calls++ })

	suite.transport.Notify(14, framed("one"))
	suite.session.RemoveStatusListener(id)
	suite.transport.Notify(14, framed("two"))

	suite.Equal(1, calls)
}

func (suite *SessionTestSuite) TestUnroutableEventsAreDropped() {
	// GOAL: Verify noise never panics the dispatch path

	suite.transport.Notify(99, framed("noise")) // unmapped handle
	suite.transport.Notify(14, []byte{0x01})    // truncated payload
	suite.transport.Notify(12, framed("write")) // non-notifying characteristic

	status, err := suite.session.ReadStatus()
	suite.Require().NoError(err)
	suite.Equal("LOCKED", status, "session MUST stay usable")
}

func (suite *SessionTestSuite) TestDisconnectClearsSubscriptions() {
	// GOAL: Verify teardown unsubscribes every CCCD before dropping the
	// connection, and is idempotent
	//
	// TEST SCENARIO: Disconnect → zero writes to both CCCDs → transport
	// disconnected → second Disconnect performs no further writes

	suite.Require().NoError(suite.session.Disconnect())

	notifyWrites := suite.transport.WritesTo(15)
	suite.Require().Len(notifyWrites, 2, "subscribe then unsubscribe")
	suite.Equal([]byte{0x00, 0x00}, notifyWrites[1].Data)

	indicateWrites := suite.transport.WritesTo(18)
	suite.Require().Len(indicateWrites, 2)
	suite.Equal([]byte{0x00, 0x00}, indicateWrites[1].Data)

	suite.Equal(1, suite.transport.Disconnects)
	suite.False(suite.transport.Connected())

	suite.Require().NoError(suite.session.Disconnect())
	suite.Len(suite.transport.WritesTo(15), 2, "second disconnect MUST NOT write again")
}

func (suite *SessionTestSuite) TestRediscoveryRebuildsRouting() {
	// GOAL: Verify a second discovery pass keeps routing coherent
	//
	// TEST SCENARIO: QueryPeripheral again → maps rebuilt wholesale →
	// events still route, CCCDs not rewritten

	suite.Require().NoError(suite.session.QueryPeripheral())

	suite.Len(suite.transport.WritesTo(15), 1, "already-subscribed CCCD MUST NOT be rewritten")

	var got []string
	suite.session.OnStatus(func(text string) { got = append(got, text) })
	suite.transport.Notify(14, framed("UNLOCKED"))
	suite.Equal([]string{"UNLOCKED"}, got)
}

func TestSessionTestSuite(t *testing.T) {
	suitelib.Run(t, new(SessionTestSuite))
}
