package gatt_test

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	suitelib "github.com/stretchr/testify/suite"

	"github.com/srg/blelock/internal/gatt"
	"github.com/srg/blelock/internal/testutils"
)

type CCCDTestSuite struct {
	suitelib.Suite

	transport *testutils.FakeTransport
	logger    *logrus.Logger
	manager   *gatt.CCCDManager
}

func (suite *CCCDTestSuite) SetupTest() {
	suite.transport = testutils.NewFakeTransport()
	suite.logger, _ = test.NewNullLogger()
	suite.manager = gatt.NewCCCDManager(suite.transport, suite.logger)
}

func (suite *CCCDTestSuite) TestSubscribe() {
	// GOAL: Verify the subscribe flow writes the correct bits exactly
	// once and confirms with a read

	suite.Run("notify parent writes 0x0001", func() {
		// TEST SCENARIO: Zeroed CCCD, notify parent → one little-endian
		// write of 0x0001 → one confirmation read → subscribed

		suite.SetupTest()
		suite.transport.SetHandleValue(15, []byte{0x00, 0x00})
		d := &gatt.Descriptor{Handle: 15, Value: []byte{0x00, 0x00}}

		suite.manager.Subscribe(d, gatt.PropRead|gatt.PropNotify)

		writes := suite.transport.WritesTo(15)
		suite.Require().Len(writes, 1, "exactly one write MUST happen")
		suite.Equal([]byte{0x01, 0x00}, writes[0].Data)
		suite.Equal(1, suite.transport.ReadsOf(15), "exactly one confirmation read MUST happen")
		suite.True(d.Subscribed)
		suite.Equal([]byte{0x01, 0x00}, d.Value, "cached value MUST reflect the confirmation read")
	})

	suite.Run("indicate parent writes 0x0002", func() {
		suite.SetupTest()
		suite.transport.SetHandleValue(18, []byte{0x00, 0x00})
		d := &gatt.Descriptor{Handle: 18, Value: []byte{0x00, 0x00}}

		suite.manager.Subscribe(d, gatt.PropIndicate)

		writes := suite.transport.WritesTo(18)
		suite.Require().Len(writes, 1)
		suite.Equal([]byte{0x02, 0x00}, writes[0].Data)
		suite.True(d.Subscribed)
	})

	suite.Run("notify and indicate parent writes 0x0003", func() {
		suite.SetupTest()
		suite.transport.SetHandleValue(15, []byte{0x00, 0x00})
		d := &gatt.Descriptor{Handle: 15, Value: []byte{0x00, 0x00}}

		suite.manager.Subscribe(d, gatt.PropNotify|gatt.PropIndicate)

		writes := suite.transport.WritesTo(15)
		suite.Require().Len(writes, 1)
		suite.Equal([]byte{0x03, 0x00}, writes[0].Data)
	})

	suite.Run("already subscribed performs no write", func() {
		// TEST SCENARIO: Cached value non-zero → no transport traffic →
		// marked subscribed

		suite.SetupTest()
		d := &gatt.Descriptor{Handle: 15, Value: []byte{0x01, 0x00}}

		suite.manager.Subscribe(d, gatt.PropNotify)

		suite.Empty(suite.transport.WritesTo(15), "no write MUST happen when already configured")
		suite.Zero(suite.transport.ReadsOf(15))
		suite.True(d.Subscribed)
	})

	suite.Run("write failure keeps state and does not propagate", func() {
		suite.SetupTest()
		suite.transport.SetHandleValue(15, []byte{0x00, 0x00})
		suite.transport.FailWrites[15] = errors.New("att error")
		d := &gatt.Descriptor{Handle: 15, Value: []byte{0x00, 0x00}}

		suite.manager.Subscribe(d, gatt.PropNotify)

		suite.False(d.Subscribed, "failed subscribe MUST leave the descriptor unsubscribed")
		suite.Zero(suite.transport.ReadsOf(15), "no confirmation read after a failed write")
	})
}

func (suite *CCCDTestSuite) TestMaybeSubscribe() {
	// GOAL: Verify the CCCD heuristic gates the subscribe flow

	suite.Run("skips parent without notify or indicate", func() {
		suite.SetupTest()
		d := &gatt.Descriptor{Handle: 15, Value: []byte{0x00, 0x00}}

		suite.manager.MaybeSubscribe(d, gatt.PropRead|gatt.PropWrite)

		suite.Empty(suite.transport.WritesTo(15))
	})

	suite.Run("skips descriptor value of wrong length", func() {
		suite.SetupTest()
		d := &gatt.Descriptor{Handle: 15, Value: []byte{0x00}}

		suite.manager.MaybeSubscribe(d, gatt.PropNotify)

		suite.Empty(suite.transport.WritesTo(15))
	})
}

func (suite *CCCDTestSuite) TestUnsubscribe() {
	// GOAL: Verify unsubscribe writes zero only when currently
	// subscribed

	suite.Run("subscribed descriptor is cleared", func() {
		// TEST SCENARIO: Non-zero cached value → zero write → re-read →
		// unsubscribed

		suite.SetupTest()
		suite.transport.SetHandleValue(15, []byte{0x01, 0x00})
		d := &gatt.Descriptor{Handle: 15, Value: []byte{0x01, 0x00}, Subscribed: true}

		suite.manager.Unsubscribe(d)

		writes := suite.transport.WritesTo(15)
		suite.Require().Len(writes, 1)
		suite.Equal([]byte{0x00, 0x00}, writes[0].Data)
		suite.False(d.Subscribed)
	})

	suite.Run("second unsubscribe performs no write", func() {
		// TEST SCENARIO: Unsubscribe twice in a row → at most one write

		suite.SetupTest()
		suite.transport.SetHandleValue(15, []byte{0x01, 0x00})
		d := &gatt.Descriptor{Handle: 15, Value: []byte{0x01, 0x00}}

		suite.manager.Unsubscribe(d)
		suite.manager.Unsubscribe(d)

		suite.Len(suite.transport.WritesTo(15), 1, "the second call MUST observe zero and skip the write")
	})

	suite.Run("zeroed descriptor is left alone", func() {
		suite.SetupTest()
		d := &gatt.Descriptor{Handle: 15, Value: []byte{0x00, 0x00}}

		suite.manager.Unsubscribe(d)

		suite.Empty(suite.transport.WritesTo(15))
	})
}

func TestCCCDTestSuite(t *testing.T) {
	suitelib.Run(t, new(CCCDTestSuite))
}
