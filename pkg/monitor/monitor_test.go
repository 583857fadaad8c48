package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingKeepsNewestInOrder(t *testing.T) {
	m := New(3, 0)
	for _, kind := range []string{"a", "b", "c", "d"} {
		m.Record(Event{Stage: StageInbound, Kind: kind, Status: StatusOK})
	}

	stats := m.GetStats()
	assert.EqualValues(t, 4, stats.TotalInbound)
	require.Len(t, stats.RecentEvents, 3)
	assert.Equal(t, "b", stats.RecentEvents[0].Kind)
	assert.Equal(t, "d", stats.RecentEvents[2].Kind)
}

func TestCounters(t *testing.T) {
	m := New(10, 0)
	m.Record(Event{Stage: StageOutbound, Status: StatusOK})
	m.Record(Event{Stage: StageOutbound, Status: StatusError, Error: "gateway 503"})
	m.Record(Event{Stage: StageJob, Status: StatusError})

	stats := m.GetStats()
	assert.EqualValues(t, 1, stats.TotalOutbound)
	assert.EqualValues(t, 1, stats.TotalJobs)
	assert.EqualValues(t, 2, stats.TotalErrors)
}

func TestTTLHidesOldEvents(t *testing.T) {
	m := New(10, time.Minute)
	m.Record(Event{Stage: StageInbound, Timestamp: time.Now().UTC().Add(-time.Hour)})
	m.Record(Event{Stage: StageInbound})

	assert.Len(t, m.GetStats().RecentEvents, 1)
}
