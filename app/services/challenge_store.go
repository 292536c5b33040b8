package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/elby-ai/elby-backend/utils"
)

// TwoFactorChallenge is a short-lived record created after password
// verification for an account with two-factor enabled. The login is not
// complete until the challenge is answered with a valid code.
type TwoFactorChallenge struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChallengeStore holds pending two-factor challenges. Entries expire on
// their own so an abandoned login leaves nothing behind.
type ChallengeStore interface {
	Create(ctx context.Context, userID uint) (*TwoFactorChallenge, error)
	Get(ctx context.Context, challengeID string) (*TwoFactorChallenge, error)
	Delete(ctx context.Context, challengeID string) error
}

const challengeKeyPrefix = "twofa:challenge:"

// RedisChallengeStore keeps challenges in Redis with a TTL.
type RedisChallengeStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisChallengeStore(client *redis.Client, ttl time.Duration) ChallengeStore {
	if ttl <= 0 {
		ttl = utils.TwoFactorChallengeTTL
	}
	return &RedisChallengeStore{client: client, ttl: ttl}
}

func (s *RedisChallengeStore) Create(ctx context.Context, userID uint) (*TwoFactorChallenge, error) {
	challenge := &TwoFactorChallenge{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: utils.UTCNow(),
	}

	payload, err := json.Marshal(challenge)
	if err != nil {
		return nil, fmt.Errorf("failed to encode challenge: %w", err)
	}

	if err := s.client.Set(ctx, challengeKeyPrefix+challenge.ID, payload, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}
	return challenge, nil
}

func (s *RedisChallengeStore) Get(ctx context.Context, challengeID string) (*TwoFactorChallenge, error) {
	payload, err := s.client.Get(ctx, challengeKeyPrefix+challengeID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	var challenge TwoFactorChallenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}
	return &challenge, nil
}

func (s *RedisChallengeStore) Delete(ctx context.Context, challengeID string) error {
	if err := s.client.Del(ctx, challengeKeyPrefix+challengeID).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

// MemoryChallengeStore keeps challenges in process memory. Used in tests and
// single-instance deployments without Redis.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	challenges map[string]*TwoFactorChallenge
}

func NewMemoryChallengeStore(ttl time.Duration) *MemoryChallengeStore {
	if ttl <= 0 {
		ttl = utils.TwoFactorChallengeTTL
	}
	return &MemoryChallengeStore{
		ttl:        ttl,
		challenges: make(map[string]*TwoFactorChallenge),
	}
}

func (s *MemoryChallengeStore) Create(ctx context.Context, userID uint) (*TwoFactorChallenge, error) {
	challenge := &TwoFactorChallenge{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: utils.UTCNow(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.challenges[challenge.ID] = challenge
	return challenge, nil
}

func (s *MemoryChallengeStore) Get(ctx context.Context, challengeID string) (*TwoFactorChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[challengeID]
	if !ok {
		return nil, nil
	}
	if utils.UTCNow().Sub(challenge.CreatedAt) > s.ttl {
		delete(s.challenges, challengeID)
		return nil, nil
	}
	return challenge, nil
}

func (s *MemoryChallengeStore) Delete(ctx context.Context, challengeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, challengeID)
	return nil
}

func (s *MemoryChallengeStore) pruneLocked() {
	now := utils.UTCNow()
	for id, challenge := range s.challenges {
		if now.Sub(challenge.CreatedAt) > s.ttl {
			delete(s.challenges, id)
		}
	}
}
