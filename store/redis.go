package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mediabooster-Norge/Analyse-sub000/ai"
	"github.com/Mediabooster-Norge/Analyse-sub000/analyzer"
)

// Key layout: the analysis document is one JSON value, the two quota
// counters are separate integer keys so they can be decremented atomically,
// and monthly usage is a counter per account and month.
const (
	analysisKeyFmt       = "analysis:%s"
	competitorQuotaFmt   = "quota:competitors:%s"
	keywordQuotaFmt      = "quota:keywords:%s"
	monthlyUsageFmt      = "usage:%s:%s"
	monthlyUsageRetainer = 62 * 24 * time.Hour
)

// applyScript persists the updated analysis document and decrements the
// quota counter in one atomic step. Returns the remaining quota, -1 when the
// quota is exhausted for a non-premium account, -2 when the analysis is gone.
var applyScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -2
end
local remaining = tonumber(redis.call('GET', KEYS[2]) or '0')
if ARGV[1] == '0' and remaining <= 0 then
  return -1
end
redis.call('SET', KEYS[1], ARGV[2])
return redis.call('DECR', KEYS[2])
`)

// RedisStore persists analyses in redis.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) PutAnalysis(ctx context.Context, a *StoredAnalysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(analysisKeyFmt, a.ID), data, 0)
	pipe.Set(ctx, fmt.Sprintf(competitorQuotaFmt, a.ID), a.Quota.RemainingCompetitorUpdates, 0)
	pipe.Set(ctx, fmt.Sprintf(keywordQuotaFmt, a.ID), a.Quota.RemainingKeywordUpdates, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store analysis %s: %w", a.ID, err)
	}
	return nil
}

func (s *RedisStore) GetAnalysis(ctx context.Context, id string) (*StoredAnalysis, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(analysisKeyFmt, id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load analysis %s: %w", id, err)
	}

	var a StoredAnalysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", id, err)
	}

	// The counter keys are authoritative; the document carries a snapshot.
	if comp, err := s.client.Get(ctx, fmt.Sprintf(competitorQuotaFmt, id)).Int(); err == nil {
		a.Quota.RemainingCompetitorUpdates = comp
	}
	if kw, err := s.client.Get(ctx, fmt.Sprintf(keywordQuotaFmt, id)).Int(); err == nil {
		a.Quota.RemainingKeywordUpdates = kw
	}
	return &a, nil
}

func (s *RedisStore) ApplyCompetitorUpdate(ctx context.Context, id string, competitors []analyzer.CompetitorEntry, usage ai.Usage, premium bool) (*StoredAnalysis, error) {
	return s.apply(ctx, id, fmt.Sprintf(competitorQuotaFmt, id), premium, func(a *StoredAnalysis) {
		a.Competitors = competitors
		a.Result.Usage.Add(usage)
		a.Quota.RemainingCompetitorUpdates--
	})
}

func (s *RedisStore) ApplyKeywordUpdate(ctx context.Context, id string, keywords []ai.KeywordMetric, usage ai.Usage, premium bool) (*StoredAnalysis, error) {
	return s.apply(ctx, id, fmt.Sprintf(keywordQuotaFmt, id), premium, func(a *StoredAnalysis) {
		a.Result.KeywordMarket = keywords
		a.Result.Usage.Add(usage)
		a.Quota.RemainingKeywordUpdates--
	})
}

// maxApplyRetries bounds the optimistic retry loop when concurrent updates
// touch the same analysis document.
const maxApplyRetries = 5

// apply reads the document, applies the mutation and writes it back with the
// quota decrement. The read-modify-write runs under WATCH on the document
// key: a concurrent update to the same analysis (say a competitor and a
// keyword update racing) aborts the transaction and the mutation is replayed
// against the fresh document instead of clobbering it.
func (s *RedisStore) apply(ctx context.Context, id, quotaKey string, premium bool, mutate func(*StoredAnalysis)) (*StoredAnalysis, error) {
	analysisKey := fmt.Sprintf(analysisKeyFmt, id)
	premiumArg := "0"
	if premium {
		premiumArg = "1"
	}

	var applied *StoredAnalysis
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, analysisKey).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load analysis %s: %w", id, err)
		}
		var current StoredAnalysis
		if err := json.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("decode analysis %s: %w", id, err)
		}
		if comp, err := tx.Get(ctx, fmt.Sprintf(competitorQuotaFmt, id)).Int(); err == nil {
			current.Quota.RemainingCompetitorUpdates = comp
		}
		if kw, err := tx.Get(ctx, fmt.Sprintf(keywordQuotaFmt, id)).Int(); err == nil {
			current.Quota.RemainingKeywordUpdates = kw
		}

		mutate(&current)
		current.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(&current)
		if err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}

		var run *redis.Cmd
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			run = applyScript.Eval(ctx, pipe, []string{analysisKey, quotaKey}, premiumArg, string(payload))
			return nil
		}); err != nil {
			return err
		}
		remaining, err := run.Int()
		if err != nil {
			return fmt.Errorf("apply update %s: %w", id, err)
		}
		switch remaining {
		case -1:
			return ErrQuotaExceeded
		case -2:
			return ErrNotFound
		}
		applied = &current
		return nil
	}

	for i := 0; i < maxApplyRetries; i++ {
		err := s.client.Watch(ctx, txf, analysisKey)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return applied, nil
	}
	return nil, fmt.Errorf("apply update %s: too many conflicting writes", id)
}

func (s *RedisStore) IncrMonthlyAnalyses(ctx context.Context, accountID string) (int, error) {
	key := fmt.Sprintf(monthlyUsageFmt, accountID, time.Now().UTC().Format("2006-01"))
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("bump monthly usage %s: %w", accountID, err)
	}
	// Counters expire once the month they cover is out of scope.
	s.client.Expire(ctx, key, monthlyUsageRetainer)
	return int(count), nil
}

func (s *RedisStore) DecrMonthlyAnalyses(ctx context.Context, accountID string) error {
	key := fmt.Sprintf(monthlyUsageFmt, accountID, time.Now().UTC().Format("2006-01"))
	if err := s.client.Decr(ctx, key).Err(); err != nil {
		return fmt.Errorf("refund monthly usage %s: %w", accountID, err)
	}
	return nil
}
