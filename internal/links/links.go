// Package links manages the temporary tokens a client uses to reach a
// conference. Tokens live in redis with a TTL mirroring the conference's
// LinkExpiresAt, so expiry needs no sweeper.
package links

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"conference-engine/internal/common/errors"
	"conference-engine/internal/common/logger"
)

const keyPrefix = "conference:link:"

// Link is one issued client link.
type Link struct {
	Token        string    `json:"token"`
	URL          string    `json:"url"`
	ConferenceID string    `json:"conferenceId"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Manager issues and resolves client link tokens.
type Manager struct {
	client  *redis.Client
	ttl     time.Duration
	baseURL string
	logger  logger.Logger
}

func NewManager(client *redis.Client, ttl time.Duration, baseURL string, log logger.Logger) *Manager {
	return &Manager{
		client:  client,
		ttl:     ttl,
		baseURL: baseURL,
		logger:  log.WithFields(map[string]interface{}{"component": "links"}),
	}
}

// Issue creates a fresh token for a conference. Issuing again for the
// same conference yields an independent token; old ones stay valid until
// they expire or are revoked.
func (m *Manager) Issue(ctx context.Context, conferenceID string) (*Link, error) {
	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(m.ttl)

	if err := m.client.Set(ctx, keyPrefix+token, conferenceID, m.ttl).Err(); err != nil {
		return nil, errors.NewInternalError(err)
	}

	m.logger.Info("client link issued", map[string]interface{}{
		"conferenceId": conferenceID,
		"expiresAt":    expiresAt,
	})

	return &Link{
		Token:        token,
		URL:          fmt.Sprintf("%s/c/%s", m.baseURL, token),
		ConferenceID: conferenceID,
		ExpiresAt:    expiresAt,
	}, nil
}

// Resolve maps a token back to its conference id. Unknown and expired
// tokens are indistinguishable by design.
func (m *Manager) Resolve(ctx context.Context, token string) (string, error) {
	conferenceID, err := m.client.Get(ctx, keyPrefix+token).Result()
	if err == redis.Nil {
		return "", errors.NewLinkExpiredError(token)
	}
	if err != nil {
		return "", errors.NewInternalError(err)
	}
	return conferenceID, nil
}

// Revoke invalidates a token before its natural expiry.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if err := m.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

// ExpiresIn returns the remaining lifetime of a token, zero when the
// token is gone.
func (m *Manager) ExpiresIn(ctx context.Context, token string) (time.Duration, error) {
	ttl, err := m.client.TTL(ctx, keyPrefix+token).Result()
	if err != nil {
		return 0, errors.NewInternalError(err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
