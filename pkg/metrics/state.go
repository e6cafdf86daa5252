package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// OriginState is a point-in-time view of one origin's lock manager.
type OriginState struct {
	Origin           string `json:"origin"`
	ActiveOperations int    `json:"active_operations"`
	LockedEntries    int    `json:"locked_entries"`
	TrackedEntries   int    `json:"tracked_entries"`
	ReservedPaths    int    `json:"reserved_paths"`
	Granted          uint64 `json:"granted"`
	Denied           uint64 `json:"denied"`
	Settled          uint64 `json:"settled"`
	Aborted          uint64 `json:"aborted"`
}

// OriginStateSource supplies origin snapshots, sorted by origin name.
type OriginStateSource interface {
	OriginStates() []OriginState
}

var (
	stateMu     sync.RWMutex
	stateSource OriginStateSource
)

// SetOriginStateSource sets where the origin state collector reads from.
// nil detaches the current source.
func SetOriginStateSource(src OriginStateSource) {
	stateMu.Lock()
	defer stateMu.Unlock()
	stateSource = src
}

func currentOriginStates() []OriginState {
	stateMu.RLock()
	src := stateSource
	stateMu.RUnlock()

	if src == nil {
		return nil
	}
	return src.OriginStates()
}

// originStateCollector reads the Entry Table size of every origin at scrape
// time. Counters and gauges updated on every lock event live in LockMetrics.
type originStateCollector struct {
	tracked  *prometheus.Desc
	reserved *prometheus.Desc
}

func newOriginStateCollector() *originStateCollector {
	return &originStateCollector{
		tracked: prometheus.NewDesc(
			"sandboxfs_origin_tracked_entries",
			"Entry Table rows per origin, including unlocked ancestors of locked entries",
			[]string{"origin"}, nil,
		),
		reserved: prometheus.NewDesc(
			"sandboxfs_origin_reserved_paths",
			"Move destinations reserved before they exist",
			[]string{"origin"}, nil,
		),
	}
}

func (c *originStateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tracked
	ch <- c.reserved
}

func (c *originStateCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range currentOriginStates() {
		ch <- prometheus.MustNewConstMetric(c.tracked, prometheus.GaugeValue, float64(s.TrackedEntries), s.Origin)
		ch <- prometheus.MustNewConstMetric(c.reserved, prometheus.GaugeValue, float64(s.ReservedPaths), s.Origin)
	}
}
