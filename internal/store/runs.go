package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Run states mirror the pipeline state machine.
const (
	RunStateInit    = "init"
	RunStateSelect  = "select"
	RunStateConvert = "convert"
	RunStatePlan    = "plan"
	RunStateDone    = "done"
	RunStateFailed  = "failed"
)

// RunStatus is the externally visible progress of one pipeline invocation.
type RunStatus struct {
	RunID        string    `json:"run_id"`
	UserID       string    `json:"user_id"`
	State        string    `json:"state"`
	Error        string    `json:"error,omitempty"`
	SelectorFile string    `json:"selector_file,omitempty"`
	PlannerFile  string    `json:"planner_file,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RunStatusStore persists run progress for later lookup.
type RunStatusStore interface {
	SaveRun(ctx context.Context, status RunStatus) error
	GetRun(ctx context.Context, runID string) (RunStatus, bool, error)
}

const runKeyPrefix = "run:"

// runStatusTTL keeps finished runs queryable for a day.
const runStatusTTL = 24 * time.Hour

// RedisRunStore stores run statuses as JSON values in Redis.
type RedisRunStore struct {
	client *redis.Client
}

// NewRedisRunStore connects to Redis and verifies the connection.
func NewRedisRunStore(ctx context.Context, host, port, password string, db int, timeout time.Duration) (*RedisRunStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", host, port),
		DialTimeout: timeout,
		Password:    password,
		DB:          db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisRunStore{client: client}, nil
}

func (r *RedisRunStore) SaveRun(ctx context.Context, status RunStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, runKeyPrefix+status.RunID, data, runStatusTTL).Err()
}

func (r *RedisRunStore) GetRun(ctx context.Context, runID string) (RunStatus, bool, error) {
	val, err := r.client.Get(ctx, runKeyPrefix+runID).Result()
	if errors.Is(err, redis.Nil) {
		return RunStatus{}, false, nil
	}
	if err != nil {
		return RunStatus{}, false, err
	}
	var status RunStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return RunStatus{}, false, err
	}
	return status, true, nil
}

// MemoryRunStore is the fallback used when Redis is not configured.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]RunStatus
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]RunStatus)}
}

func (m *MemoryRunStore) SaveRun(_ context.Context, status RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[status.RunID] = status
	return nil
}

func (m *MemoryRunStore) GetRun(_ context.Context, runID string) (RunStatus, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.runs[runID]
	return status, ok, nil
}
