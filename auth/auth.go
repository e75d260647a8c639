// Package auth authenticates Flight hosts by bearer token.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

var (
	// ErrInvalidAuthHeader is returned when the authorization header is malformed.
	ErrInvalidAuthHeader = errors.New("authorization header must use Bearer scheme")
	// ErrTokenIsEmpty is returned when the bearer token is missing or empty.
	ErrTokenIsEmpty = errors.New("authorization token is empty")
	// ErrUnauthenticated is returned when authentication fails.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Authenticator validates bearer tokens and returns user identity.
// Implementations MUST be goroutine-safe.
type Authenticator interface {
	// Authenticate validates a bearer token and returns user identity.
	// Identity string is used for logging.
	Authenticate(ctx context.Context, token string) (identity string, err error)
}

// noAuthenticator is an Authenticator that allows all requests.
type noAuthenticator struct{}

// NoAuth returns an Authenticator that allows all requests.
// Useful for development/testing. DO NOT use in production.
func NoAuth() Authenticator {
	return &noAuthenticator{}
}

// Authenticate implements Authenticator for noAuthenticator.
// Always returns "anonymous" as the identity.
func (n *noAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	return "anonymous", nil
}

// bearerAuthenticator wraps a user-provided validation function.
type bearerAuthenticator struct {
	validateFunc func(token string) (identity string, err error)
}

// BearerAuth creates an Authenticator from a validation function.
//
// Example:
//
//	auth := BearerAuth(func(token string) (string, error) {
//	    user, err := validateWithMyBackend(token)
//	    if err != nil {
//	        return "", err
//	    }
//	    return user.ID, nil
//	})
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return &bearerAuthenticator{
		validateFunc: validateFunc,
	}
}

// Authenticate implements Authenticator for bearerAuthenticator.
func (b *bearerAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	return b.validateFunc(token)
}

// StaticTokens returns an Authenticator accepting a fixed set of tokens,
// each mapped to an identity. Tokens are compared in constant time.
func StaticTokens(tokens map[string]string) Authenticator {
	cp := make(map[string]string, len(tokens))
	for token, identity := range tokens {
		cp[token] = identity
	}
	return BearerAuth(func(token string) (string, error) {
		identity := ""
		found := 0
		for known, id := range cp {
			if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
				identity = id
				found = 1
			}
		}
		if found == 0 {
			return "", ErrUnauthenticated
		}
		return identity, nil
	})
}
