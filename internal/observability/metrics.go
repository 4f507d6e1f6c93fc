package observability

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	started       time.Time
	requestCount  map[string]int64
	errorCount    map[string]int64
	totalDuration map[string]time.Duration
}

// RouteStat summarizes one method/route/status combination.
type RouteStat struct {
	Method        string `json:"method"`
	Path          string `json:"path"`
	Status        int    `json:"status"`
	Count         int64  `json:"count"`
	AvgDurationMs int64  `json:"avgDurationMs"`
}

// ErrorStat counts one error code on a route.
type ErrorStat struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Code   string `json:"code"`
	Count  int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	UptimeSeconds int64       `json:"uptimeSeconds"`
	Requests      []RouteStat `json:"requests"`
	Errors        []ErrorStat `json:"errors"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		started:       time.Now(),
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		totalDuration: make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for requests. Path should be the route
// template so ids do not explode the key space.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, strconv.Itoa(status))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.totalDuration[key] += duration
}

// RecordError increments error counters. Path follows the same rule as in
// RecordRequest.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := pathKey(path, method, code)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Snapshot copies the counters, sorted by key.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
		Requests:      make([]RouteStat, 0, len(m.requestCount)),
		Errors:        make([]ErrorStat, 0, len(m.errorCount)),
	}
	for _, key := range sortedKeys(m.requestCount) {
		path, method, suffix := splitKey(key)
		status, _ := strconv.Atoi(suffix)
		count := m.requestCount[key]
		snap.Requests = append(snap.Requests, RouteStat{
			Method:        method,
			Path:          path,
			Status:        status,
			Count:         count,
			AvgDurationMs: (m.totalDuration[key] / time.Duration(count)).Milliseconds(),
		})
	}
	for _, key := range sortedKeys(m.errorCount) {
		path, method, code := splitKey(key)
		snap.Errors = append(snap.Errors, ErrorStat{Method: method, Path: path, Code: code, Count: m.errorCount[key]})
	}
	return snap
}

const keySep = "|"

func pathKey(path, method, suffix string) string {
	return path + keySep + method + keySep + suffix
}

func splitKey(key string) (path, method, suffix string) {
	parts := strings.SplitN(key, keySep, 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
