package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis transport failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned by Get for an unknown or already-destroyed session.
var ErrNotFound = errors.New("session not found")

// Store is a Redis-backed session store. Each session is a single key holding
// the encoded blob; a per-subject set indexes session IDs for logout-all.
//
// Key layout:
//
//	<prefix>:s:<sessionID>   encoded Session, expires with the retention TTL
//	<prefix>:u:<subjectID>   set of session IDs
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client. prefix
// namespaces every key.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "aa"
	}
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) subjectKey(subjectID string) string {
	return s.prefix + ":u:" + subjectID
}

// Save writes sess under sess.ID in one MULTI/EXEC so a reader never sees the
// index without the blob. ttl bounds how long Redis retains the record.
//
//	Performance: 1 round trip (SET + SADD + EXPIRE in a transaction).
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session id is required")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be > 0")
	}

	data, err := Encode(sess)
	if err != nil {
		return err
	}

	sessionKey := s.key(sess.ID)
	subjectKey := s.subjectKey(sess.SubjectID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey, data, ttl)
		pipe.SAdd(ctx, subjectKey, sess.ID)
		pipe.Expire(ctx, subjectKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Replace destroys the session priorID (if any) and writes sess in a single
// MULTI/EXEC. A guard therefore observes either the prior session or the new
// one, never neither and never both. An empty priorID behaves like Save.
//
//	Performance: GET (prior) + 1 transaction.
func (s *Store) Replace(ctx context.Context, priorID string, sess *Session, ttl time.Duration) error {
	if priorID == "" || (sess != nil && priorID == sess.ID) {
		return s.Save(ctx, sess, ttl)
	}
	if sess == nil || sess.ID == "" {
		return errors.New("session id is required")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be > 0")
	}

	data, err := Encode(sess)
	if err != nil {
		return err
	}

	priorKey := s.key(priorID)
	var priorSubjectKey string
	prior, err := s.redis.Get(ctx, priorKey).Bytes()
	switch {
	case err == nil:
		if old, decodeErr := Decode(prior); decodeErr == nil {
			priorSubjectKey = s.subjectKey(old.SubjectID)
		}
	case errors.Is(err, redis.Nil):
	default:
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessionKey := s.key(sess.ID)
	subjectKey := s.subjectKey(sess.SubjectID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, priorKey)
		if priorSubjectKey != "" {
			pipe.SRem(ctx, priorSubjectKey, priorID)
		}
		pipe.Set(ctx, sessionKey, data, ttl)
		pipe.SAdd(ctx, subjectKey, sess.ID)
		pipe.Expire(ctx, subjectKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get retrieves a session by ID. Returns [ErrNotFound] when the key is absent.
// Get never mutates state; expiry policy belongs to the caller.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}

	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.ID = sessionID

	return sess, nil
}

// Delete removes a session and its index entry. Deleting a missing session is
// not an error.
//
//	Performance: GET + one transaction (DEL + SREM).
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var subjectKey string
	if sess, decodeErr := Decode(data); decodeErr == nil {
		subjectKey = s.subjectKey(sess.SubjectID)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if subjectKey != "" {
			pipe.SRem(ctx, subjectKey, sessionID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// DeleteAllForSubject removes every indexed session of a subject.
//
// The set read and the deletes are separate round trips; a session created in
// between survives and is caught by its own TTL or the next call.
func (s *Store) DeleteAllForSubject(ctx context.Context, subjectID string) error {
	subjectKey := s.subjectKey(subjectID)

	sessionIDs, err := s.redis.SMembers(ctx, subjectKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessionKeys := make([]string, 0, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		sessionKeys = append(sessionKeys, s.key(sessionID))
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(sessionKeys) > 0 {
			pipe.Del(ctx, sessionKeys...)
		}
		pipe.Del(ctx, subjectKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// ActiveSessionIDs returns the indexed session IDs of a subject. Entries may
// outlive their blob until the index itself expires.
func (s *Store) ActiveSessionIDs(ctx context.Context, subjectID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.subjectKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
