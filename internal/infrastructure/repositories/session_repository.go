package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "fittrack:session:"

// sessionRecord is the Redis hash layout of a session
type sessionRecord struct {
	UserID      uint  `redis:"user_id"`
	OTPVerified bool  `redis:"otp_verified"`
	CreatedAt   int64 `redis:"created_at"`
	ExpiresAt   int64 `redis:"expires_at"`
}

// SessionRepositoryImpl implements domain.SessionRepository with one Redis
// hash per session. The key lives no longer than the session itself.
type SessionRepositoryImpl struct {
	client *redis.Client
	maxTTL time.Duration
	now    func() time.Time
}

// NewSessionRepository creates a session store; maxTTL caps every key
func NewSessionRepository(client *redis.Client, maxTTL time.Duration) *SessionRepositoryImpl {
	return &SessionRepositoryImpl{client: client, maxTTL: maxTTL, now: time.Now}
}

// WithClock replaces the time source, used by tests
func (r *SessionRepositoryImpl) WithClock(now func() time.Time) *SessionRepositoryImpl {
	r.now = now
	return r
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

// Create implements domain.SessionRepository
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *domain.Session) error {
	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return domain.ErrSessionExpired
	}
	if r.maxTTL > 0 && ttl > r.maxTTL {
		ttl = r.maxTTL
	}

	key := sessionKey(session.ID)
	rec := sessionRecord{
		UserID:      session.UserID,
		OTPVerified: session.OTPVerified,
		CreatedAt:   session.CreatedAt.Unix(),
		ExpiresAt:   session.ExpiresAt.Unix(),
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, rec)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// FindByID implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	key := sessionKey(sessionID)
	res := r.client.HGetAll(ctx, key)
	fields, err := res.Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	var rec sessionRecord
	if err := res.Scan(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	session := &domain.Session{
		ID:          sessionID,
		UserID:      rec.UserID,
		OTPVerified: rec.OTPVerified,
		CreatedAt:   time.Unix(rec.CreatedAt, 0),
		ExpiresAt:   time.Unix(rec.ExpiresAt, 0),
	}
	if !session.ExpiresAt.After(r.now()) {
		r.client.Del(ctx, key)
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// Delete implements domain.SessionRepository
func (r *SessionRepositoryImpl) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, sessionKey(sessionID)).Err()
}
