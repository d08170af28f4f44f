package stats

import (
	"sync"
	"testing"
	"time"
)

func TestTrack(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	s.Track(KindAnalysis, 120, false)
	s.Track(KindAnalysis, 80, true)
	s.Track(KindCompetitor, 300, false)
	s.Track(KindUpdate, 40, false)

	m := s.GetCurrentStats()
	if m.AnalysisRequests != 2 {
		t.Errorf("expected 2 analysis requests, got %d", m.AnalysisRequests)
	}
	if m.CompetitorRequests != 1 {
		t.Errorf("expected 1 competitor request, got %d", m.CompetitorRequests)
	}
	if m.UpdateRequests != 1 {
		t.Errorf("expected 1 update request, got %d", m.UpdateRequests)
	}
	if m.ErrorCount != 1 {
		t.Errorf("expected 1 error, got %d", m.ErrorCount)
	}
	// (120 + 80 + 300 + 40) / 4
	if m.AverageDurationMs != 135 {
		t.Errorf("expected average 135ms, got %f", m.AverageDurationMs)
	}
}

func TestPersistence(t *testing.T) {
	tempDir := t.TempDir()

	s, err := NewStorage(tempDir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	s.Track(KindAnalysis, 100, false)
	if err := s.Shutdown(); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	reloaded, err := NewStorage(tempDir)
	if err != nil {
		t.Fatalf("failed to reopen storage: %v", err)
	}
	if m := reloaded.GetCurrentStats(); m.AnalysisRequests != 1 {
		t.Errorf("expected persisted counter, got %d", m.AnalysisRequests)
	}
}

func TestCleanup(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	now := time.Now()
	s.mutex.Lock()
	s.stats[now.Format("2006-01")] = &MonthlyStats{AnalysisRequests: 1}
	s.stats[now.AddDate(0, -1, 0).Format("2006-01")] = &MonthlyStats{AnalysisRequests: 2}
	s.stats[now.AddDate(0, -4, 0).Format("2006-01")] = &MonthlyStats{AnalysisRequests: 3}
	s.mutex.Unlock()

	s.Cleanup()

	months := s.GetAllMonths()
	if len(months) != 2 {
		t.Fatalf("expected 2 months after cleanup, got %d: %v", len(months), months)
	}
	if months[0] != now.Format("2006-01") {
		t.Errorf("expected newest month first, got %v", months)
	}
}

func TestConcurrentTracking(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Track(KindAnalysis, 10, false)
		}()
	}
	wg.Wait()

	if m := s.GetCurrentStats(); m.AnalysisRequests != 50 {
		t.Errorf("expected 50 tracked requests, got %d", m.AnalysisRequests)
	}
}
