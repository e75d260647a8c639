package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// HeaderAuthorization is the gRPC metadata header carrying the bearer token.
const HeaderAuthorization = "authorization"

const bearerScheme = "Bearer "

type identityKey struct{}

// WithIdentity returns a context carrying the caller identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller identity, or "" for requests served
// without an authenticator. Sessions are owned by this identity.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey{}).(string)
	return identity
}

// TokenFromAuthorizationHeader parses a "Bearer <token>" header value.
func TokenFromAuthorizationHeader(header string) (string, error) {
	token, ok := strings.CutPrefix(header, bearerScheme)
	if !ok {
		return "", ErrInvalidAuthHeader
	}
	if token == "" {
		return "", ErrTokenIsEmpty
	}
	return token, nil
}

// Authenticate resolves the caller of an incoming request from its
// authorization metadata and returns a context carrying the identity.
// Failures are Unauthenticated status errors. A nil authenticator admits
// every caller with an empty identity.
func Authenticate(ctx context.Context, a Authenticator) (context.Context, error) {
	if a == nil {
		return ctx, nil
	}

	md, _ := metadata.FromIncomingContext(ctx)
	headers := md.Get(HeaderAuthorization)
	if len(headers) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing bearer token")
	}
	token, err := TokenFromAuthorizationHeader(headers[0])
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	identity, err := a.Authenticate(ctx, token)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}
	return WithIdentity(ctx, identity), nil
}
