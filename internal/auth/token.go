package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/carehub/patienthub/internal/domain/user"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Token is the stored form of a bearer credential. Only the HMAC hash of
// the raw secret is persisted; the raw value exists once, in the issue
// response.
type Token struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Identity is what a valid bearer token resolves to.
type Identity struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Role   user.Role `json:"role"`
}

type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// NewToken mints a fresh opaque bearer secret plus its storage row.
func (m *Manager) NewToken(userID string) (raw string, row Token, err error) {
	buf := make([]byte, 32)

	_, err = rand.Read(buf)
	if err != nil {
		return "", Token{}, err
	}

	raw = hex.EncodeToString(buf)
	now := time.Now().UTC()

	row = Token{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: m.HashToken(raw),
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}

	return raw, row, nil
}

// Deterministic HMAC hash (server-side pepper = token secret bytes).
// Store this in DB, never the raw token.
func (m *Manager) HashToken(raw string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
