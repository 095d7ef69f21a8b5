package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/carehub/patienthub/internal/auth"
	"github.com/carehub/patienthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TokensRepo implements auth.TokenStore on postgres.
type TokensRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *TokensRepo {
	return &TokensRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *TokensRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Rotate revokes every live token for the row's user and inserts the new
// one, in a single transaction. This is what keeps the one-active-token
// invariant under concurrent logins. The hashes of the revoked tokens are
// returned for cache eviction.
func (r *TokensRepo) Rotate(ctx context.Context, row auth.Token) ([]string, error) {
	var revoked []string

	err := r.observe("tokens.rotate", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		revoked, err = revokeLiveTokens(ctx, tx, row.UserID)

		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO auth_tokens (id, user_id, token_hash, expires_at, revoked_at, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.CreatedAt)

		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})

	if err != nil {
		return nil, err
	}

	return revoked, nil
}

func revokeLiveTokens(ctx context.Context, q querier, userID string) ([]string, error) {
	rows, err := q.Query(ctx, `
		UPDATE auth_tokens
		SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL
		RETURNING token_hash
	`, userID)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var hashes []string

	for rows.Next() {
		var h string

		if err := rows.Scan(&h); err != nil {
			return nil, err
		}

		hashes = append(hashes, h)
	}

	return hashes, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// GetIdentityByHash resolves a token hash to the owning user, enforcing
// expiry, revocation and the active flag in the query itself.
func (r *TokensRepo) GetIdentityByHash(ctx context.Context, hash string, now time.Time) (auth.Identity, error) {
	var id auth.Identity

	err := r.observe("tokens.get_identity_by_hash", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT u.id, u.email, u.name, u.role
			FROM auth_tokens t
			JOIN users u ON u.id = t.user_id
			WHERE t.token_hash = $1
			  AND t.revoked_at IS NULL
			  AND t.expires_at > $2
			  AND u.active
		`, hash, now).Scan(&id.UserID, &id.Email, &id.Name, &id.Role)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.Identity{}, auth.ErrInvalidToken
		}

		return auth.Identity{}, err
	}

	return id, nil
}

func (r *TokensRepo) RevokeAllForUser(ctx context.Context, userID string) ([]string, error) {
	var revoked []string

	err := r.observe("tokens.revoke_all_for_user", func() error {
		var e error
		revoked, e = revokeLiveTokens(ctx, r.pool, userID)
		return e
	})

	if err != nil {
		return nil, err
	}

	return revoked, nil
}
