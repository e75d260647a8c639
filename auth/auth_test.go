package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TestNoAuth tests the NoAuth authenticator.
func TestNoAuth(t *testing.T) {
	identity, err := NoAuth().Authenticate(context.Background(), "")
	if err != nil {
		t.Errorf("NoAuth should never return error, got: %v", err)
	}
	if identity != "anonymous" {
		t.Errorf("Expected identity 'anonymous', got '%s'", identity)
	}
}

// TestBearerAuthErrorPropagation tests that errors from validation function are propagated.
func TestBearerAuthErrorPropagation(t *testing.T) {
	customError := errors.New("custom validation error")

	auth := BearerAuth(func(token string) (string, error) {
		return "", customError
	})

	if _, err := auth.Authenticate(context.Background(), "token"); err != customError {
		t.Errorf("Expected custom error, got: %v", err)
	}
}

func TestStaticTokens(t *testing.T) {
	tokens := map[string]string{"secret-1": "alice", "secret-2": "bob"}
	auth := StaticTokens(tokens)

	// Later changes to the caller's map are not observed.
	tokens["secret-3"] = "mallory"

	tests := []struct {
		token    string
		identity string
		wantErr  bool
	}{
		{"secret-1", "alice", false},
		{"secret-2", "bob", false},
		{"secret-3", "", true},
		{"secret", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		identity, err := auth.Authenticate(context.Background(), tt.token)
		if tt.wantErr {
			if !errors.Is(err, ErrUnauthenticated) {
				t.Errorf("token %q: expected ErrUnauthenticated, got %v", tt.token, err)
			}
			continue
		}
		if err != nil || identity != tt.identity {
			t.Errorf("token %q: got %q, %v; want %q", tt.token, identity, err, tt.identity)
		}
	}
}

// TestStaticTokensConcurrency tests that StaticTokens is goroutine-safe.
func TestStaticTokensConcurrency(t *testing.T) {
	auth := StaticTokens(map[string]string{"valid": "user"})

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := auth.Authenticate(context.Background(), "valid"); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent authentication error: %v", err)
	}
}

func TestTokenFromAuthorizationHeader(t *testing.T) {
	token, err := TokenFromAuthorizationHeader("Bearer abc")
	if err != nil || token != "abc" {
		t.Errorf("Expected abc, got %q, %v", token, err)
	}
	if _, err := TokenFromAuthorizationHeader("Basic abc"); !errors.Is(err, ErrInvalidAuthHeader) {
		t.Errorf("Expected ErrInvalidAuthHeader, got %v", err)
	}
	if _, err := TokenFromAuthorizationHeader("Bearer "); !errors.Is(err, ErrTokenIsEmpty) {
		t.Errorf("Expected ErrTokenIsEmpty, got %v", err)
	}
}

func TestUnaryServerInterceptor(t *testing.T) {
	interceptor := UnaryServerInterceptor(StaticTokens(map[string]string{"good": "alice"}))

	handler := func(ctx context.Context, req any) (any, error) {
		return IdentityFromContext(ctx), nil
	}

	tests := []struct {
		name     string
		header   string
		wantCode codes.Code
		identity string
	}{
		{"valid token", "Bearer good", codes.OK, "alice"},
		{"wrong token", "Bearer bad", codes.Unauthenticated, ""},
		{"wrong scheme", "Basic good", codes.Unauthenticated, ""},
		{"missing header", "", codes.Unauthenticated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := metadata.MD{}
			if tt.header != "" {
				md.Set(HeaderAuthorization, tt.header)
			}
			ctx := metadata.NewIncomingContext(context.Background(), md)

			resp, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/test"}, handler)
			if status.Code(err) != tt.wantCode {
				t.Fatalf("Expected code %v, got %v", tt.wantCode, err)
			}
			if err == nil && resp.(string) != tt.identity {
				t.Errorf("Expected identity %q, got %q", tt.identity, resp)
			}
		})
	}
}

func TestInterceptorWithoutAuthenticator(t *testing.T) {
	interceptor := UnaryServerInterceptor(nil)

	called := false
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		called = true
		return nil, nil
	})
	if err != nil || !called {
		t.Errorf("Expected pass-through, got called=%v err=%v", called, err)
	}
}

// contextStream is a grpc.ServerStream that only serves a context.
type contextStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *contextStream) Context() context.Context { return s.ctx }

func TestStreamServerInterceptor(t *testing.T) {
	interceptor := StreamServerInterceptor(StaticTokens(map[string]string{"good": "alice"}))

	tests := []struct {
		name     string
		header   string
		wantCode codes.Code
	}{
		{"valid token", "Bearer good", codes.OK},
		{"wrong token", "Bearer bad", codes.Unauthenticated},
		{"missing header", "", codes.Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := metadata.MD{}
			if tt.header != "" {
				md.Set(HeaderAuthorization, tt.header)
			}
			ss := &contextStream{ctx: metadata.NewIncomingContext(context.Background(), md)}

			var identity string
			err := interceptor(nil, ss, &grpc.StreamServerInfo{FullMethod: "/test"}, func(srv any, stream grpc.ServerStream) error {
				identity = IdentityFromContext(stream.Context())
				return nil
			})
			if status.Code(err) != tt.wantCode {
				t.Fatalf("Expected code %v, got %v", tt.wantCode, err)
			}
			if err == nil && identity != "alice" {
				t.Errorf("Expected identity alice in handler, got %q", identity)
			}
		})
	}
}

func TestAuthenticateWithoutMetadata(t *testing.T) {
	ctx, err := Authenticate(context.Background(), nil)
	if err != nil || IdentityFromContext(ctx) != "" {
		t.Errorf("Expected anonymous pass-through, got %q, %v", IdentityFromContext(ctx), err)
	}

	_, err = Authenticate(context.Background(), NoAuth())
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("Expected Unauthenticated without metadata, got %v", err)
	}
}
