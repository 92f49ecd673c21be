package session

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/your-org/todostack/internal/clock"
)

const (
	defaultShardCount      = 16
	defaultLifetime        = 2 * time.Hour
	defaultCleanupInterval = 1 * time.Minute
)

// storeShard is a single shard of the store with its own lock
type storeShard struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// Store is an in-memory, sharded session table. An entry expires once it
// has not been saved for longer than the lifetime.
type Store struct {
	shards          []*storeShard
	shardCount      int
	lifetime        time.Duration
	cleanupInterval time.Duration
	clock           clock.Clock

	cleanupWorkerRunning bool
	cleanupWorkerMu      sync.Mutex
	cleanupWorkerStop    chan struct{}
	cleanupWorkerWg      sync.WaitGroup
}

// NewStore creates a store. Non-positive arguments select defaults.
func NewStore(shardCount int, lifetime, cleanupInterval time.Duration, clk clock.Clock) *Store {
	if shardCount < 1 {
		shardCount = defaultShardCount
	}
	if lifetime <= 0 {
		lifetime = defaultLifetime
	}
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	if clk == nil {
		clk = clock.Real{}
	}

	shards := make([]*storeShard, shardCount)
	for i := range shards {
		shards[i] = &storeShard{sessions: make(map[string]Session)}
	}

	return &Store{
		shards:            shards,
		shardCount:        shardCount,
		lifetime:          lifetime,
		cleanupInterval:   cleanupInterval,
		clock:             clk,
		cleanupWorkerStop: make(chan struct{}),
	}
}

// getShard picks the shard for id using FNV-1a
func (s *Store) getShard(id string) *storeShard {
	hash := fnv.New32a()
	hash.Write([]byte(id))
	return s.shards[hash.Sum32()%uint32(s.shardCount)]
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.LastSeen) > s.lifetime
}

// Get returns a copy of the session stored under id
func (s *Store) Get(ctx context.Context, id string) (*Session, bool) {
	if id == "" || ctx.Err() != nil {
		return nil, false
	}

	shard := s.getShard(id)
	shard.mu.RLock()
	sess, ok := shard.sessions[id]
	shard.mu.RUnlock()

	if !ok || s.expired(&sess, s.clock.Now()) {
		return nil, false
	}
	return &sess, true
}

// Save stores a copy of sess and stamps LastSeen
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sess.LastSeen = s.clock.Now()
	shard := s.getShard(sess.ID)
	shard.mu.Lock()
	shard.sessions[sess.ID] = *sess
	shard.mu.Unlock()
	return nil
}

// Update overwrites an existing live session and stamps LastSeen. It
// reports false without storing anything when id is no longer present,
// so a stale copy cannot bring back a deleted session.
func (s *Store) Update(ctx context.Context, sess *Session) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	now := s.clock.Now()
	shard := s.getShard(sess.ID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	current, ok := shard.sessions[sess.ID]
	if !ok || s.expired(&current, now) {
		return false, nil
	}
	sess.LastSeen = now
	shard.sessions[sess.ID] = *sess
	return true, nil
}

// Delete removes the session stored under id
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	shard := s.getShard(id)
	shard.mu.Lock()
	delete(shard.sessions, id)
	shard.mu.Unlock()
	return nil
}

// CleanExpired removes expired sessions and returns how many were dropped
func (s *Store) CleanExpired(ctx context.Context) (int, error) {
	removed := 0
	now := s.clock.Now()
	for _, shard := range s.shards {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		shard.mu.Lock()
		for id, sess := range shard.sessions {
			if s.expired(&sess, now) {
				delete(shard.sessions, id)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included
func (s *Store) Len() int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		total += len(shard.sessions)
		shard.mu.RUnlock()
	}
	return total
}

// StartCleanupWorker starts a goroutine that periodically drops expired sessions
func (s *Store) StartCleanupWorker() {
	s.cleanupWorkerMu.Lock()
	defer s.cleanupWorkerMu.Unlock()

	if s.cleanupWorkerRunning {
		return
	}

	s.cleanupWorkerRunning = true
	s.cleanupWorkerStop = make(chan struct{})

	s.cleanupWorkerWg.Add(1)
	go s.cleanupWorker()
}

// StopCleanupWorker stops the cleanup goroutine and waits for it
func (s *Store) StopCleanupWorker() {
	s.cleanupWorkerMu.Lock()
	defer s.cleanupWorkerMu.Unlock()

	if !s.cleanupWorkerRunning {
		return
	}

	close(s.cleanupWorkerStop)
	s.cleanupWorkerWg.Wait()
	s.cleanupWorkerRunning = false
}

func (s *Store) cleanupWorker() {
	defer s.cleanupWorkerWg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.cleanupWorkerStop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, _ = s.CleanExpired(ctx)
			cancel()
		}
	}
}
