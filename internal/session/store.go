package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps sessions keyed by chat user id.
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Put(ctx context.Context, userID int64, s *Session) error
	Delete(ctx context.Context, userID int64) error
	// List returns the live sessions keyed by user id.
	List(ctx context.Context) (map[int64]*Session, error)
}

type MemoryStore struct {
	mu  sync.Mutex
	m   map[int64]*Session
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[int64]*Session), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if sess.Expired(s.now()) {
		delete(s.m, userID)
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

// Put returns ErrExpired for a session whose token has already expired.
func (s *MemoryStore) Put(_ context.Context, userID int64, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.Expired(s.now()) {
		return ErrExpired
	}
	cp := *sess
	s.m[userID] = &cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
	return nil
}

func (s *MemoryStore) List(_ context.Context) (map[int64]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := make(map[int64]*Session, len(s.m))
	for userID, sess := range s.m {
		if sess.Expired(now) {
			delete(s.m, userID)
			continue
		}
		cp := *sess
		out[userID] = &cp
	}
	return out, nil
}

// RedisStore persists sessions as JSON with a TTL so logins survive restarts.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

const redisKeyPrefix = "clinicdesk:session:"

func redisKey(userID int64) string {
	return fmt.Sprintf("%s%d", redisKeyPrefix, userID)
}

func (s *RedisStore) Get(ctx context.Context, userID int64) (*Session, error) {
	data, err := s.rdb.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s.decode(data)
}

func (s *RedisStore) decode(data []byte) (*Session, error) {
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Put stores the session until the configured TTL or the token expiry,
// whichever comes first. It returns ErrExpired when the token expiry has
// already passed.
func (s *RedisStore) Put(ctx context.Context, userID int64, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := s.ttl
	if !sess.ExpiresAt.IsZero() {
		left := sess.ExpiresAt.Sub(s.now())
		if left <= 0 {
			return ErrExpired
		}
		if ttl <= 0 || left < ttl {
			ttl = left
		}
	}
	if err := s.rdb.Set(ctx, redisKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List scans the session keys. Entries that vanish or expire during the scan
// are skipped.
func (s *RedisStore) List(ctx context.Context) (map[int64]*Session, error) {
	out := make(map[int64]*Session)
	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		userID, err := strconv.ParseInt(strings.TrimPrefix(key, redisKeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		data, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		sess, err := s.decode(data)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[userID] = sess
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return out, nil
}
