package credential

import (
	"context"
	"fmt"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/livequery/errors"
)

// CheckOptions control Check.
type CheckOptions struct {
	// AllowAnonymous accepts an absent token.
	AllowAnonymous bool
	// Leeway tolerates clock skew when comparing the expiry.
	Leeway time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Check verifies that token is usable. An absent token fails unless
// anonymous access is allowed. A JWT whose exp claim has passed fails with
// TOKEN_EXPIRED. Signatures are not verified; opaque tokens pass as is.
func Check(token string, opts CheckOptions) error {
	if token == "" {
		if opts.AllowAnonymous {
			return nil
		}
		return errors.Auth("no credential available", nil)
	}

	exp, ok, err := Expiry(token)
	if err != nil {
		return errors.Auth("credential is not a well-formed JWT", err)
	}
	if !ok {
		return nil
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	if now().After(exp.Add(opts.Leeway)) {
		return errors.TokenExpired().WithDetail("expired_at", exp.UTC().Format(time.RFC3339))
	}
	return nil
}

// Expiry returns the exp claim of a JWT without verifying its signature.
// ok is false for opaque tokens and for JWTs without an expiry.
func Expiry(token string) (exp time.Time, ok bool, err error) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false, nil
	}
	claims := gojwt.MapClaims{}
	if _, _, err := gojwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("parse token: %w", err)
	}
	date, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read exp claim: %w", err)
	}
	if date == nil {
		return time.Time{}, false, nil
	}
	return date.Time, true, nil
}

// Fetch obtains a token from provider and checks it. Provider failures are
// reported as AUTH_FAILED.
func Fetch(ctx context.Context, provider TokenProvider, fetch FetchOptions, check CheckOptions) (string, error) {
	if provider == nil {
		return "", Check("", check)
	}
	token, err := provider.FetchToken(ctx, fetch)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Auth("credential retrieval failed", err)
	}
	token = strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")
	if err := Check(token, check); err != nil {
		return "", err
	}
	return token, nil
}
