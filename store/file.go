package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Mediabooster-Norge/Analyse-sub000/ai"
	"github.com/Mediabooster-Norge/Analyse-sub000/analyzer"
)

// FileStore is a single-node Store backed by one JSON file. Writes go to a
// temp file first and are renamed into place, so a crash mid-write never
// corrupts the store. A background writer batches disk writes.
type FileStore struct {
	mutex       sync.RWMutex
	analyses    map[string]*StoredAnalysis
	usage       map[string]int // "<account>:<YYYY-MM>" -> count
	filePath    string
	writeBuffer chan struct{}
}

type fileState struct {
	Analyses map[string]*StoredAnalysis `json:"analyses"`
	Usage    map[string]int             `json:"usage"`
}

func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &FileStore{
		analyses:    make(map[string]*StoredAnalysis),
		usage:       make(map[string]int),
		filePath:    filepath.Join(dataDir, "analyses.json"),
		writeBuffer: make(chan struct{}, 1),
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load store: %w", err)
	}

	go s.backgroundWriter()
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if state.Analyses != nil {
		s.analyses = state.Analyses
	}
	if state.Usage != nil {
		s.usage = state.Usage
	}
	return nil
}

func (s *FileStore) save() error {
	s.mutex.RLock()
	data, err := json.Marshal(fileState{Analyses: s.analyses, Usage: s.usage})
	s.mutex.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("rename temporary file: %w", err)
	}
	return nil
}

func (s *FileStore) backgroundWriter() {
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

func (s *FileStore) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
		// Write already pending.
	}
}

// cloneAnalysis deep-copies through JSON so callers never share pointers
// with the record the store owns. A shallow copy would let a caller mutate
// Result or Competitors through the returned pointer, outside the mutex.
func cloneAnalysis(a *StoredAnalysis) (*StoredAnalysis, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("clone analysis %s: %w", a.ID, err)
	}
	var copied StoredAnalysis
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("clone analysis %s: %w", a.ID, err)
	}
	return &copied, nil
}

func (s *FileStore) PutAnalysis(_ context.Context, a *StoredAnalysis) error {
	copied, err := cloneAnalysis(a)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	s.analyses[copied.ID] = copied
	s.mutex.Unlock()

	s.requestWrite()
	return nil
}

func (s *FileStore) GetAnalysis(_ context.Context, id string) (*StoredAnalysis, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	a, exists := s.analyses[id]
	if !exists {
		return nil, ErrNotFound
	}
	return cloneAnalysis(a)
}

func (s *FileStore) ApplyCompetitorUpdate(_ context.Context, id string, competitors []analyzer.CompetitorEntry, usage ai.Usage, premium bool) (*StoredAnalysis, error) {
	return s.apply(id, premium,
		func(a *StoredAnalysis) *int { return &a.Quota.RemainingCompetitorUpdates },
		func(a *StoredAnalysis) {
			a.Competitors = competitors
			a.Result.Usage.Add(usage)
		})
}

func (s *FileStore) ApplyKeywordUpdate(_ context.Context, id string, keywords []ai.KeywordMetric, usage ai.Usage, premium bool) (*StoredAnalysis, error) {
	return s.apply(id, premium,
		func(a *StoredAnalysis) *int { return &a.Quota.RemainingKeywordUpdates },
		func(a *StoredAnalysis) {
			a.Result.KeywordMarket = keywords
			a.Result.Usage.Add(usage)
		})
}

// apply mutates the analysis and decrements the selected counter under one
// lock section, which is the file-store equivalent of the redis script.
func (s *FileStore) apply(id string, premium bool, counter func(*StoredAnalysis) *int, mutate func(*StoredAnalysis)) (*StoredAnalysis, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	a, exists := s.analyses[id]
	if !exists {
		return nil, ErrNotFound
	}
	remaining := counter(a)
	if !premium && *remaining <= 0 {
		return nil, ErrQuotaExceeded
	}

	mutate(a)
	*remaining--
	a.UpdatedAt = time.Now().UTC()

	// The mutation may have installed caller-owned slices; keep a private
	// clone in the store and hand the mutated record back to the caller.
	copied, err := cloneAnalysis(a)
	if err != nil {
		return nil, err
	}
	s.analyses[id] = copied

	s.requestWrite()
	return a, nil
}

func (s *FileStore) IncrMonthlyAnalyses(_ context.Context, accountID string) (int, error) {
	key := monthlyUsageKey(accountID)

	s.mutex.Lock()
	s.usage[key]++
	count := s.usage[key]
	s.mutex.Unlock()

	s.requestWrite()
	return count, nil
}

func (s *FileStore) DecrMonthlyAnalyses(_ context.Context, accountID string) error {
	key := monthlyUsageKey(accountID)

	s.mutex.Lock()
	if s.usage[key] > 0 {
		s.usage[key]--
	}
	s.mutex.Unlock()

	s.requestWrite()
	return nil
}

func monthlyUsageKey(accountID string) string {
	return accountID + ":" + time.Now().UTC().Format("2006-01")
}

// Shutdown flushes pending writes to disk. The background writer batches
// writes, so exit paths must call this or lose the most recent updates.
func (s *FileStore) Shutdown() error {
	return s.save()
}
