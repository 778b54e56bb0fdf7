package store

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/edgesentinel/edge-sentinel/internal/models"
)

const (
	// maxAlerts caps the live, queryable alert list (newest first).
	maxAlerts = 1000
	// historyCapacity caps the FIFO history buffer used for the
	// 24-hour histogram. Oldest entries are evicted first.
	historyCapacity = 1000
)

var (
	ErrNotFound        = errors.New("alert not found")
	ErrInvalidStatus   = errors.New("invalid status value")
	ErrInvalidSeverity = errors.New("invalid severity value")
	ErrDuplicateID     = errors.New("duplicate alert id")
	ErrMissingField    = errors.New("missing required field")
)

// severityWeights drive the dashboard security score.
var severityWeights = map[string]int{
	models.SeverityLow:      1,
	models.SeverityMedium:   3,
	models.SeverityHigh:     5,
	models.SeverityCritical: 10,
}

// AlertStore owns the live alert list and the bounded history buffer.
// All access goes through the store; both structures are updated
// atomically relative to concurrent readers. Readers always receive
// copies, so a returned alert never aliases store state and can be
// serialized without holding the lock.
type AlertStore struct {
	mu      sync.RWMutex
	alerts  []*models.Alert // newest first
	history []*models.Alert // oldest first
	byID    map[string]*models.Alert
}

// NewAlertStore creates an empty store.
func NewAlertStore() *AlertStore {
	return &AlertStore{
		alerts:  make([]*models.Alert, 0, maxAlerts),
		history: make([]*models.Alert, 0, historyCapacity),
		byID:    make(map[string]*models.Alert),
	}
}

// Ingest validates and stores an alert. The alert is prepended to the
// live list and appended to the history buffer. Validation failures are
// client errors and leave the store unchanged.
func (s *AlertStore) Ingest(alert *models.Alert) error {
	if alert.ID == "" {
		return fmt.Errorf("%w: id", ErrMissingField)
	}
	if alert.ThreatType == "" {
		return fmt.Errorf("%w: threat_type", ErrMissingField)
	}
	if alert.Severity == "" {
		return fmt.Errorf("%w: severity", ErrMissingField)
	}
	if alert.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp", ErrMissingField)
	}
	if !models.ValidSeverity(alert.Severity) {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, alert.Severity)
	}
	if alert.Status == "" {
		alert.Status = models.StatusOpen
	} else if !models.ValidStatus(alert.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, alert.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[alert.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, alert.ID)
	}

	// The store keeps its own copy so the caller's alert never aliases
	// store state.
	stored := *alert

	// Prepend to the live list, evicting the oldest when over capacity.
	s.alerts = append(s.alerts, nil)
	copy(s.alerts[1:], s.alerts)
	s.alerts[0] = &stored
	if len(s.alerts) > maxAlerts {
		evicted := s.alerts[len(s.alerts)-1]
		s.alerts = s.alerts[:len(s.alerts)-1]
		delete(s.byID, evicted.ID)
	}
	s.byID[stored.ID] = &stored

	// Append to history, oldest evicted first.
	if len(s.history) >= historyCapacity {
		s.history = s.history[1:]
	}
	s.history = append(s.history, &stored)

	return nil
}

// UpdateStatus mutates an alert's status under the lock and returns a
// copy of the updated alert so the caller can re-broadcast it.
func (s *AlertStore) UpdateStatus(id, status string) (models.Alert, error) {
	if !models.ValidStatus(status) {
		return models.Alert{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.byID[id]
	if !ok {
		return models.Alert{}, ErrNotFound
	}
	alert.Status = status
	return *alert, nil
}

// Get returns a copy of the alert with the given id.
func (s *AlertStore) Get(id string) (models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alert, ok := s.byID[id]
	if !ok {
		return models.Alert{}, ErrNotFound
	}
	return *alert, nil
}

// Query filters the live list by optional severity and status, then
// paginates. Newest-first order is preserved.
func (s *AlertStore) Query(limit, offset int, severity, status string) []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make([]models.Alert, 0, len(s.alerts))
	for _, alert := range s.alerts {
		if severity != "" && alert.Severity != severity {
			continue
		}
		if status != "" && alert.Status != status {
			continue
		}
		filtered = append(filtered, *alert)
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(filtered) {
		return []models.Alert{}
	}
	end := offset + limit
	if limit <= 0 || end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end]
}

// Recent returns copies of up to n of the newest alerts, for the
// initial WebSocket snapshot.
func (s *AlertStore) Recent(n int) []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.alerts) {
		n = len(s.alerts)
	}
	out := make([]models.Alert, n)
	for i := 0; i < n; i++ {
		out[i] = *s.alerts[i]
	}
	return out
}

// Len returns the number of alerts in the live list.
func (s *AlertStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// HistoryLen returns the current history buffer length.
func (s *AlertStore) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Summary computes the aggregate dashboard statistics as of now:
// per-severity open counts, the weighted security score, and an hourly
// histogram over the trailing 24 hours from the history buffer.
func (s *AlertStore) Summary(now time.Time) models.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	severityCounts := map[string]int{
		models.SeverityLow:      0,
		models.SeverityMedium:   0,
		models.SeverityHigh:     0,
		models.SeverityCritical: 0,
	}
	open := 0
	for _, alert := range s.alerts {
		if alert.Status != models.StatusOpen {
			continue
		}
		open++
		severityCounts[alert.Severity]++
	}

	weighted := 0
	for severity, count := range severityCounts {
		weighted += count * severityWeights[severity]
	}
	score := 100 - weighted*2
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	windowStart := now.Add(-24 * time.Hour)
	byHour := make([]models.HourBucket, 0, 24)
	for i := 0; i < 24; i++ {
		bucketStart := windowStart.Add(time.Duration(i) * time.Hour)
		bucketEnd := bucketStart.Add(time.Hour)

		count := 0
		for _, alert := range s.history {
			if !alert.Timestamp.Before(bucketStart) && alert.Timestamp.Before(bucketEnd) {
				count++
			}
		}
		byHour = append(byHour, models.HourBucket{
			Hour:  now.Add(-time.Duration(24-i) * time.Hour).Hour(),
			Count: count,
		})
	}

	return models.Summary{
		TotalAlerts:    len(s.alerts),
		OpenAlerts:     open,
		CriticalAlerts: severityCounts[models.SeverityCritical],
		SecurityScore:  score,
		SeverityCounts: severityCounts,
		AlertsByHour:   byHour,
	}
}

// ThreatDistribution counts alerts per threat type with integer
// percentages, sorted by count descending.
func (s *AlertStore) ThreatDistribution() []models.ThreatTypeCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, alert := range s.alerts {
		threatType := alert.ThreatType
		if threatType == "" {
			threatType = "Unknown"
		}
		counts[threatType]++
	}

	total := len(s.alerts)
	if total == 0 {
		total = 1
	}

	out := make([]models.ThreatTypeCount, 0, len(counts))
	for threatType, count := range counts {
		out = append(out, models.ThreatTypeCount{
			Type:       threatType,
			Count:      count,
			Percentage: int(math.Round(float64(count) / float64(total) * 100)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}
