package auth

import (
	"context"
	"time"
)

// TokenStore persists bearer tokens. The postgres implementation keeps at
// most one active token per user by revoking the rest inside Rotate.
// Rotate and RevokeAllForUser report the hashes they revoked so the
// caller can drop any cached identities keyed by them.
type TokenStore interface {
	Rotate(ctx context.Context, row Token) (revokedHashes []string, err error)
	GetIdentityByHash(ctx context.Context, hash string, now time.Time) (Identity, error)
	RevokeAllForUser(ctx context.Context, userID string) (revokedHashes []string, err error)
}

// IdentityCache is an optional read-through cache keyed by token hash.
// A nil cache is valid and means every lookup hits the store.
type IdentityCache interface {
	Get(ctx context.Context, tokenHash string) (Identity, bool)
	Set(ctx context.Context, tokenHash string, id Identity)
	Delete(ctx context.Context, tokenHash string)
}

type Service struct {
	mgr   *Manager
	store TokenStore
	cache IdentityCache
}

func NewService(mgr *Manager, store TokenStore, cache IdentityCache) *Service {
	return &Service{
		mgr:   mgr,
		store: store,
		cache: cache,
	}
}

// Issue rotates the user's bearer token: any previously active token is
// revoked, evicted from the cache and a fresh one stored. The raw secret
// is returned exactly once.
func (s *Service) Issue(ctx context.Context, userID string) (string, error) {
	raw, row, err := s.mgr.NewToken(userID)

	if err != nil {
		return "", err
	}

	revoked, err := s.store.Rotate(ctx, row)

	if err != nil {
		return "", err
	}

	s.evict(ctx, revoked)

	return raw, nil
}

// Authenticate resolves a presented bearer secret to an identity, or
// ErrInvalidToken. Expiry and revocation are enforced by the store query.
func (s *Service) Authenticate(ctx context.Context, raw string) (Identity, error) {
	hash := s.mgr.HashToken(raw)

	if s.cache != nil {
		if id, ok := s.cache.Get(ctx, hash); ok {
			return id, nil
		}
	}

	id, err := s.store.GetIdentityByHash(ctx, hash, time.Now().UTC())

	if err != nil {
		return Identity{}, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, hash, id)
	}

	return id, nil
}

// RevokeForUser kills every live token for a user, e.g. when the account
// is deleted. Cached identities for the revoked tokens are dropped so the
// revocation takes effect immediately, not after the cache TTL.
func (s *Service) RevokeForUser(ctx context.Context, userID string) error {
	revoked, err := s.store.RevokeAllForUser(ctx, userID)

	if err != nil {
		return err
	}

	s.evict(ctx, revoked)

	return nil
}

func (s *Service) evict(ctx context.Context, hashes []string) {
	if s.cache == nil {
		return
	}

	for _, h := range hashes {
		s.cache.Delete(ctx, h)
	}
}
