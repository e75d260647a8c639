package flight

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/framebind/binding"
)

// callStatus converts an error returned by Session.Invoke into a gRPC status.
// A fault becomes Aborted so hosts can tell an abrupt failure of one call
// from a rejected request.
func callStatus(err error) error {
	var fault *binding.Fault
	var argErr *binding.ArgumentError

	switch {
	case errors.As(err, &fault):
		return status.Error(codes.Aborted, fault.Error())
	case errors.As(err, &argErr):
		return status.Error(codes.InvalidArgument, argErr.Error())
	case errors.Is(err, binding.ErrUnknownEntry):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, binding.ErrSessionClosed):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Errorf(codes.Internal, "call failed: %v", err)
}

func sessionStatus(err error) error {
	if errors.Is(err, ErrSessionNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Errorf(codes.Internal, "session: %v", err)
}
