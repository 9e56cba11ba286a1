// Package credential defines how the transport obtains the bearer token
// attached to each operation, and the checks applied before it is used.
//
// Token storage and refresh belong to the provider; the transport only asks
// for a token when an operation is subscribed.
package credential

import (
	"context"
	"os"
	"strings"
)

// FetchOptions are passed to a TokenProvider on every fetch.
type FetchOptions struct {
	// Template names the token template to issue, for providers that mint
	// audience-specific tokens.
	Template string
}

// TokenProvider returns the current token. An empty string means no
// credential is available.
type TokenProvider interface {
	FetchToken(ctx context.Context, opts FetchOptions) (string, error)
}

// TokenFunc adapts an ordinary function to the TokenProvider interface.
type TokenFunc func(ctx context.Context, opts FetchOptions) (string, error)

// FetchToken implements TokenProvider.
func (f TokenFunc) FetchToken(ctx context.Context, opts FetchOptions) (string, error) {
	return f(ctx, opts)
}

// Static returns a provider that always yields token.
func Static(token string) TokenProvider {
	token = strings.TrimSpace(token)
	return TokenFunc(func(context.Context, FetchOptions) (string, error) {
		return token, nil
	})
}

// Env returns a provider that reads the token from an environment variable
// on every fetch.
func Env(name string) TokenProvider {
	return TokenFunc(func(context.Context, FetchOptions) (string, error) {
		return strings.TrimSpace(os.Getenv(name)), nil
	})
}
