// Package session issues, verifies and revokes signed session tokens.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lgcms/internal/apperr"
	"lgcms/internal/metrics"
	"lgcms/internal/models"
	"lgcms/internal/revocation"
	"lgcms/internal/security"
)

type Reason string

const (
	ReasonValid     Reason = "valid"
	ReasonMalformed Reason = "malformed"
	ReasonExpired   Reason = "expired"
	ReasonRevoked   Reason = "revoked"
)

type Token struct {
	Raw       string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Result struct {
	Reason    Reason
	Identity  models.Identity
	TokenID   string
	ExpiresAt time.Time
}

func (r Result) Valid() bool { return r.Reason == ReasonValid }

// Err converts a failed verification into the error returned to callers.
func (r Result) Err() error {
	switch r.Reason {
	case ReasonValid:
		return nil
	case ReasonExpired:
		return apperr.New(apperr.KindExpiredToken, "Session expired, please login again")
	case ReasonRevoked:
		return apperr.New(apperr.KindRevokedToken, "Token is no longer valid, please login again")
	default:
		return apperr.New(apperr.KindMalformedToken, "Invalid token")
	}
}

type Authority struct {
	secret      string
	ttl         time.Duration
	revocations revocation.Store
	metrics     *metrics.Metrics
	log         zerolog.Logger
	now         func() time.Time
}

func NewAuthority(secret string, ttl time.Duration, revocations revocation.Store, m *metrics.Metrics, log zerolog.Logger) *Authority {
	return &Authority{
		secret:      secret,
		ttl:         ttl,
		revocations: revocations,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

func (a *Authority) WithClock(now func() time.Time) *Authority {
	a.now = now
	return a
}

func (a *Authority) TTL() time.Duration { return a.ttl }

func (a *Authority) Issue(identity models.Identity) (Token, error) {
	if identity.ID == "" || !identity.Role.Valid() {
		return Token{}, fmt.Errorf("issue token: invalid identity %q/%q", identity.ID, identity.Role)
	}

	issuedAt := a.now()
	tokenID := uuid.NewString()
	raw, err := security.GenerateSessionToken(a.secret, identity.ID, string(identity.Role), identity.Name, tokenID, issuedAt, a.ttl)
	if err != nil {
		return Token{}, err
	}

	return Token{
		Raw:       raw,
		ID:        tokenID,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(a.ttl),
	}, nil
}

// Verify checks the signature, then the expiry, then the revocation store.
// A token failing verification is reported through Result.Reason; the error
// is only set when the revocation store could not be consulted, in which
// case the token is never treated as valid.
func (a *Authority) Verify(ctx context.Context, raw string) (Result, error) {
	claims, err := security.ParseSessionToken(raw, a.secret, a.now())
	if err != nil {
		reason := ReasonMalformed
		if errors.Is(err, security.ErrTokenExpired) {
			reason = ReasonExpired
		}
		a.metrics.SessionChecked(string(reason))
		return Result{Reason: reason}, nil
	}

	role, ok := models.ParseRole(claims.Role)
	if !ok {
		a.metrics.SessionChecked(string(ReasonMalformed))
		return Result{Reason: ReasonMalformed}, nil
	}

	result := Result{
		Reason:    ReasonValid,
		Identity:  models.Identity{ID: claims.UserID, Role: role, Name: claims.Name},
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}

	revoked, err := a.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		a.metrics.SessionChecked("store_error")
		return Result{}, apperr.StoreUnavailable(err)
	}
	if revoked {
		result.Reason = ReasonRevoked
	}

	a.metrics.SessionChecked(string(result.Reason))
	return result, nil
}

// Revoke blacklists the token until its own expiry. Revoking an already
// expired or already revoked token succeeds without doing anything.
func (a *Authority) Revoke(ctx context.Context, raw string) error {
	claims, err := security.ParseSessionToken(raw, a.secret, a.now())
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil
		}
		return apperr.Wrap(apperr.KindMalformedToken, "Invalid token", err)
	}

	if err := a.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return apperr.StoreUnavailable(err)
	}

	a.log.Debug().
		Str("user_id", claims.UserID).
		Str("token_id", claims.ID).
		Time("expires_at", claims.ExpiresAt.Time).
		Msg("session revoked")
	return nil
}

// Prune drops revocation entries for tokens that expired on their own.
func (a *Authority) Prune(ctx context.Context) (int, error) {
	return a.revocations.Prune(ctx, a.now())
}
