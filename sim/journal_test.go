package sim

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogJournal_WritesLogLineAtInfo(t *testing.T) {
	// GIVEN a LogJournal over a test logger
	logger, hook := logtest.NewNullLogger()
	j := &LogJournal{Logger: logger}

	// WHEN an order is opened and filled
	order := newTestOrder()
	NewOrderEvent(testDay(4), order, j)
	NewFillEvent(testDay(4), order, j)

	// THEN each event produced one info entry carrying its journal line
	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, "ORDER #7 OPENED ON 2016-01-04 00:00:00: BTO 2 SPX160115C02000000 @ 12.50", entries[0].Message)
	assert.Equal(t, "ORDER #7 FILLED ON 2016-01-04 00:00:00: BTO 2 SPX160115C02000000 @ 12.50", entries[1].Message)
}

func TestNopJournal_Discards(t *testing.T) {
	assert.NotPanics(t, func() {
		NewRejectedEvent(testDay(4), newTestOrder(), NopJournal{})
	})
}
