package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInvalidRefreshToken indicates token not found or expired.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrRefreshTokenReplay indicates reuse of an already-rotated token.
	ErrRefreshTokenReplay = errors.New("refresh token replay detected")
)

// RefreshTokenStore persists refresh tokens for rotation + replay
// detection. A token belongs to a family; presenting a stale member of
// the family revokes the whole family.
type RefreshTokenStore interface {
	NewToken(userID string, ttl time.Duration) (string, error)
	RotateToken(token string, ttl time.Duration) (userID string, newToken string, err error)
	DeleteToken(token string) error
}

type refreshFamily struct {
	userID      string
	currentHash string
	expiry      time.Time
}

// MemoryRefreshTokenStore keeps refresh token families in memory.
type MemoryRefreshTokenStore struct {
	mu          sync.Mutex
	families    map[string]refreshFamily // familyID -> family
	tokenFamily map[string]string        // tokenHash -> familyID
}

// NewMemoryRefreshTokenStore constructs an in-memory refresh token store.
func NewMemoryRefreshTokenStore() *MemoryRefreshTokenStore {
	return &MemoryRefreshTokenStore{
		families:    make(map[string]refreshFamily),
		tokenFamily: make(map[string]string),
	}
}

// NewToken issues and stores a new refresh token family.
func (s *MemoryRefreshTokenStore) NewToken(userID string, ttl time.Duration) (string, error) {
	token, err := randomToken(32)
	if err != nil {
		return "", err
	}
	familyID, err := randomToken(16)
	if err != nil {
		return "", err
	}
	hash := tokenHash(token)
	s.mu.Lock()
	s.families[familyID] = refreshFamily{
		userID:      userID,
		currentHash: hash,
		expiry:      time.Now().UTC().Add(ttl),
	}
	s.tokenFamily[hash] = familyID
	s.mu.Unlock()
	return token, nil
}

// RotateToken validates token and issues a new token in the same family.
func (s *MemoryRefreshTokenStore) RotateToken(token string, ttl time.Duration) (string, string, error) {
	hash := tokenHash(token)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	familyID, ok := s.tokenFamily[hash]
	if !ok {
		return "", "", ErrInvalidRefreshToken
	}
	family, ok := s.families[familyID]
	if !ok || now.After(family.expiry) {
		s.revokeFamilyLocked(familyID)
		return "", "", ErrInvalidRefreshToken
	}
	if family.currentHash != hash {
		// Reuse of a rotated token: revoke the whole family.
		s.revokeFamilyLocked(familyID)
		return "", "", ErrRefreshTokenReplay
	}
	newToken, err := randomToken(32)
	if err != nil {
		return "", "", err
	}
	family.currentHash = tokenHash(newToken)
	family.expiry = now.Add(ttl)
	s.families[familyID] = family
	s.tokenFamily[family.currentHash] = familyID
	return family.userID, newToken, nil
}

// DeleteToken revokes the family containing this token.
func (s *MemoryRefreshTokenStore) DeleteToken(token string) error {
	hash := tokenHash(token)
	s.mu.Lock()
	if familyID, ok := s.tokenFamily[hash]; ok {
		s.revokeFamilyLocked(familyID)
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryRefreshTokenStore) revokeFamilyLocked(familyID string) {
	for h, fam := range s.tokenFamily {
		if fam == familyID {
			delete(s.tokenFamily, h)
		}
	}
	delete(s.families, familyID)
}

// RedisRefreshTokenStore stores refresh token families in Redis.
type RedisRefreshTokenStore struct {
	client *redis.Client
}

// NewRedisRefreshTokenStore builds a Redis-backed refresh token store.
func NewRedisRefreshTokenStore(addr, password string) *RedisRefreshTokenStore {
	return &RedisRefreshTokenStore{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
	}
}

// NewToken issues and stores a new refresh token family.
func (s *RedisRefreshTokenStore) NewToken(userID string, ttl time.Duration) (string, error) {
	token, err := randomToken(32)
	if err != nil {
		return "", err
	}
	familyID, err := randomToken(16)
	if err != nil {
		return "", err
	}
	hash := tokenHash(token)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tokenKey(hash), familyID, ttl)
	pipe.HSet(ctx, familyKey(familyID), map[string]any{
		"userId":      userID,
		"currentHash": hash,
	})
	pipe.Expire(ctx, familyKey(familyID), ttl)
	pipe.SAdd(ctx, familyTokensKey(familyID), hash)
	pipe.Expire(ctx, familyTokensKey(familyID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

// RotateToken validates token and issues a new token in the same family.
// The family hash is read under WATCH so two concurrent rotations cannot
// both succeed.
func (s *RedisRefreshTokenStore) RotateToken(token string, ttl time.Duration) (string, string, error) {
	hash := tokenHash(token)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	for {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		familyID, err := s.client.Get(ctx, tokenKey(hash)).Result()
		if err == redis.Nil {
			return "", "", ErrInvalidRefreshToken
		}
		if err != nil {
			return "", "", err
		}

		var (
			userID       string
			newToken     string
			shouldRevoke bool
		)
		err = s.client.Watch(ctx, func(tx *redis.Tx) error {
			family, err := tx.HGetAll(ctx, familyKey(familyID)).Result()
			if err != nil {
				return err
			}
			userID = family["userId"]
			currentHash := family["currentHash"]
			if userID == "" || currentHash == "" {
				shouldRevoke = true
				return ErrInvalidRefreshToken
			}
			if currentHash != hash {
				shouldRevoke = true
				return ErrRefreshTokenReplay
			}
			newToken, err = randomToken(32)
			if err != nil {
				return err
			}
			newHash := tokenHash(newToken)
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, tokenKey(newHash), familyID, ttl)
				pipe.HSet(ctx, familyKey(familyID), map[string]any{
					"userId":      userID,
					"currentHash": newHash,
				})
				pipe.Expire(ctx, familyKey(familyID), ttl)
				pipe.SAdd(ctx, familyTokensKey(familyID), newHash)
				pipe.Expire(ctx, familyTokensKey(familyID), ttl)
				return nil
			})
			return err
		}, familyKey(familyID))

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if shouldRevoke {
				_ = s.revokeFamily(ctx, familyID)
			}
			if errors.Is(err, ErrRefreshTokenReplay) || errors.Is(err, ErrInvalidRefreshToken) {
				return "", "", err
			}
			return "", "", err
		}
		return userID, newToken, nil
	}
}

// DeleteToken revokes the entire family containing this token.
func (s *RedisRefreshTokenStore) DeleteToken(token string) error {
	hash := tokenHash(token)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	familyID, err := s.client.Get(ctx, tokenKey(hash)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	return s.revokeFamily(ctx, familyID)
}

func (s *RedisRefreshTokenStore) revokeFamily(ctx context.Context, familyID string) error {
	hashes, err := s.client.SMembers(ctx, familyTokensKey(familyID)).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	pipe := s.client.TxPipeline()
	for _, h := range hashes {
		pipe.Del(ctx, tokenKey(h))
	}
	pipe.Del(ctx, familyTokensKey(familyID))
	pipe.Del(ctx, familyKey(familyID))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func tokenKey(hash string) string {
	return fmt.Sprintf("refresh:token:%s", hash)
}

func familyKey(familyID string) string {
	return fmt.Sprintf("refresh:family:%s", familyID)
}

func familyTokensKey(familyID string) string {
	return fmt.Sprintf("refresh:family_tokens:%s", familyID)
}
