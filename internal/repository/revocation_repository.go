package repository

import (
	"context"
	"time"
)

// RevocationRepository is the durable revocation store, used when revoked
// sessions must survive a redis flush.
type RevocationRepository struct {
	db      DB
	timeout time.Duration
}

func NewRevocationRepository(db DB, timeout time.Duration) *RevocationRepository {
	return &RevocationRepository{db: db, timeout: timeout}
}

func (r *RevocationRepository) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	const query = `
		INSERT INTO revoked_tokens (token_id, expires_at, revoked_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (token_id) DO NOTHING
	`
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx, query, tokenID, expiresAt)
	return classify("revoke token", err)
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1 AND expires_at > NOW())`
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var revoked bool
	if err := r.db.QueryRow(ctx, query, tokenID).Scan(&revoked); err != nil {
		return false, classify("check revocation", err)
	}
	return revoked, nil
}

func (r *RevocationRepository) Prune(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, classify("prune revocations", err)
	}
	return int(cmd.RowsAffected()), nil
}
