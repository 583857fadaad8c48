package monitor

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Pipeline stages.
const (
	StageInbound  = "inbound"
	StageOutbound = "outbound"
	StageJob      = "job"
)

// Event statuses.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	TenantID   string            `json:"tenant_id,omitempty"`
	InstanceID string            `json:"instance_id,omitempty"`
	Stage      string            `json:"stage"`
	Kind       string            `json:"kind"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	DurationMs int64             `json:"duration_ms,omitempty"`
}

type Stats struct {
	TotalInbound  int64   `json:"total_inbound"`
	TotalOutbound int64   `json:"total_outbound"`
	TotalJobs     int64   `json:"total_jobs"`
	TotalErrors   int64   `json:"total_errors"`
	RecentEvents  []Event `json:"recent_events"`
}

// Monitor keeps process-local counters and a ring of the latest events. It
// is a live view for operators, not an audit trail.
type Monitor struct {
	ttl time.Duration

	eventsMu sync.Mutex
	events   []Event
	idx      int
	count    int

	totalInbound  int64
	totalOutbound int64
	totalJobs     int64
	totalErrors   int64
}

func New(size int, ttl time.Duration) *Monitor {
	if size <= 0 {
		size = 200
	}
	return &Monitor{events: make([]Event, size), ttl: ttl}
}

func (m *Monitor) Record(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	switch e.Stage {
	case StageInbound:
		atomic.AddInt64(&m.totalInbound, 1)
	case StageOutbound:
		if e.Status == StatusOK {
			atomic.AddInt64(&m.totalOutbound, 1)
		}
	case StageJob:
		atomic.AddInt64(&m.totalJobs, 1)
	}
	if e.Status == StatusError {
		atomic.AddInt64(&m.totalErrors, 1)
	}

	m.eventsMu.Lock()
	m.events[m.idx] = e
	m.idx = (m.idx + 1) % len(m.events)
	if m.count < len(m.events) {
		m.count++
	}
	m.eventsMu.Unlock()
}

// GetStats returns the counters and the buffered events, oldest first.
// Events older than the TTL are left out.
func (m *Monitor) GetStats() Stats {
	m.eventsMu.Lock()
	defer m.eventsMu.Unlock()

	res := make([]Event, 0, m.count)
	var cutoff time.Time
	if m.ttl > 0 {
		cutoff = time.Now().UTC().Add(-m.ttl)
	}
	start := (m.idx - m.count) % len(m.events)
	if start < 0 {
		start += len(m.events)
	}
	for i := 0; i < m.count; i++ {
		e := m.events[(start+i)%len(m.events)]
		if !cutoff.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		res = append(res, e)
	}

	return Stats{
		TotalInbound:  atomic.LoadInt64(&m.totalInbound),
		TotalOutbound: atomic.LoadInt64(&m.totalOutbound),
		TotalJobs:     atomic.LoadInt64(&m.totalJobs),
		TotalErrors:   atomic.LoadInt64(&m.totalErrors),
		RecentEvents:  res,
	}
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		return def
	}
	return time.Duration(sec) * time.Second
}

var defaultMonitor = New(envInt("MONITOR_BUFFER", 200), envDuration("MONITOR_TTL", 0))

func Record(e Event) {
	defaultMonitor.Record(e)
}

func GetStats() Stats {
	return defaultMonitor.GetStats()
}
