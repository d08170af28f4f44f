// Package stats tracks operator-facing service statistics per month and
// persists them to a JSON file.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// MonthlyStats are the counters for one month.
type MonthlyStats struct {
	AnalysisRequests   int       `json:"analysis_requests"`
	CompetitorRequests int       `json:"competitor_requests"`
	UpdateRequests     int       `json:"update_requests"`
	ErrorCount         int       `json:"error_count"`
	TotalDurationMs    float64   `json:"-"`
	RequestCount       int       `json:"-"`
	AverageDurationMs  float64   `json:"average_duration_ms"`
	LastUpdated        time.Time `json:"last_updated"`
}

// Storage handles persistent storage of statistics.
type Storage struct {
	mutex       sync.RWMutex
	stats       map[string]*MonthlyStats // key: "YYYY-MM"
	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
}

// NewStorage creates a statistics storage instance under dataDir.
func NewStorage(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		filePath:    filepath.Join(dataDir, "stats.json"),
		writeBuffer: make(chan struct{}, 1),
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	go s.backgroundWriter()
	return s, nil
}

func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return json.Unmarshal(data, &s.stats)
}

func (s *Storage) save() error {
	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

func (s *Storage) backgroundWriter() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
			s.save()
		case <-ticker.C:
			s.save()
		}
	}
}

func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
		// Write already pending.
	}
}

func currentMonth() string {
	return time.Now().Format("2006-01")
}

// RequestKind labels which endpoint a tracked request hit.
type RequestKind int

const (
	KindAnalysis RequestKind = iota
	KindCompetitor
	KindUpdate
)

// Track records one request of the given kind.
func (s *Storage) Track(kind RequestKind, durationMs float64, hasError bool) {
	month := currentMonth()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	m, exists := s.stats[month]
	if !exists {
		m = &MonthlyStats{}
		s.stats[month] = m
	}

	switch kind {
	case KindAnalysis:
		m.AnalysisRequests++
	case KindCompetitor:
		m.CompetitorRequests++
	case KindUpdate:
		m.UpdateRequests++
	}
	if hasError {
		m.ErrorCount++
	}
	m.TotalDurationMs += durationMs
	m.RequestCount++
	m.AverageDurationMs = m.TotalDurationMs / float64(m.RequestCount)
	m.LastUpdated = time.Now()

	if time.Since(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = time.Now()
	}
}

// GetCurrentStats returns statistics for the current month.
func (s *Storage) GetCurrentStats() MonthlyStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if m, exists := s.stats[currentMonth()]; exists {
		return *m
	}
	return MonthlyStats{}
}

// GetAllMonths returns the months with statistics, newest first.
func (s *Storage) GetAllMonths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months := make([]string, 0, len(s.stats))
	for month := range s.stats {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}

// Cleanup keeps only the current and previous month.
func (s *Storage) Cleanup() {
	now := time.Now()
	keep := map[string]bool{
		now.Format("2006-01"):                  true,
		now.AddDate(0, -1, 0).Format("2006-01"): true,
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key := range s.stats {
		if !keep[key] {
			delete(s.stats, key)
		}
	}
	s.requestWrite()
}

// Shutdown flushes pending statistics to disk.
func (s *Storage) Shutdown() error {
	return s.save()
}
