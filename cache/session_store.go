package cache

import (
	"context"
	"time"
)

// SessionStore keeps admin session tokens in Redis with a TTL matching their expiry.
type SessionStore struct {
	client RedisClient
	prefix string
}

// NewSessionStore creates a Redis session store.
func NewSessionStore(client RedisClient) *SessionStore {
	return &SessionStore{client: client, prefix: "admin_session:"}
}

func (s *SessionStore) Save(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.prefix+token, expiresAt.UTC().Format(time.RFC3339), ttl).Err()
}

func (s *SessionStore) Valid(ctx context.Context, token string, now time.Time) (bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+token).Result()
	if err != nil {
		if isNil(err) {
			return false, nil
		}
		return false, err
	}

	expiresAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false, nil
	}
	return now.Before(expiresAt), nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.prefix+token).Err()
}
