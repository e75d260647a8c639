package flight

import (
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/framebind/auth"
	"github.com/hugr-lab/framebind/value"
)

// Session management actions. They are handled by the server itself and
// never reach the binding.
const (
	// ActionSessionOpen starts a session; the result body is its id.
	ActionSessionOpen = "session_open"
	// ActionSessionClose closes the session named by the session header and
	// releases its handles.
	ActionSessionClose = "session_close"
)

// DoAction runs one entry point, or one of the session actions.
//
// The session is selected by the framebind-session header. The action body
// is an envelope holding the msgpack-encoded argument list; an empty body
// means no arguments. Exactly one result is sent on success.
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	name := action.GetType()
	caller := auth.IdentityFromContext(ctx)

	s.logger.Debug("DoAction called",
		"type", name,
		"body_size", len(action.GetBody()),
		"session", SessionIDFromContext(ctx),
		"trace_id", TraceIDFromContext(ctx),
		"identity", caller,
	)

	switch name {
	case ActionSessionOpen:
		id := s.sessions.open(caller)
		s.logger.Info("Session opened", "session", id, "identity", caller)
		return stream.Send(&flight.Result{Body: []byte(id)})

	case ActionSessionClose:
		id := SessionIDFromContext(ctx)
		if id == "" {
			return status.Error(codes.InvalidArgument, "session_close requires the "+HeaderSession+" header")
		}
		if !s.sessions.close(id, caller) {
			return sessionStatus(ErrSessionNotFound)
		}
		s.logger.Info("Session closed", "session", id)
		return stream.Send(&flight.Result{})
	}

	sess, err := s.sessions.get(SessionIDFromContext(ctx), caller)
	if err != nil {
		return sessionStatus(err)
	}

	payload, err := s.codec.Open(action.GetBody())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid action body: %v", err)
	}
	args, err := value.UnmarshalArgs(payload)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid arguments: %v", err)
	}

	result, err := sess.Invoke(ctx, name, args)
	if err != nil {
		s.logger.Debug("Entry point failed", "type", name, "error", err)
		return callStatus(err)
	}

	data, err := value.Marshal(result)
	if err != nil {
		s.logger.Error("Failed to encode result", "type", name, "error", err)
		return status.Errorf(codes.Internal, "failed to encode result: %v", err)
	}
	body, err := s.codec.Seal(data)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to seal result: %v", err)
	}

	return stream.Send(&flight.Result{Body: body})
}

// ListActions lists every entry point plus the session actions.
func (s *Server) ListActions(_ *flight.Empty, stream flight.FlightService_ListActionsServer) error {
	actions := []*flight.ActionType{
		{Type: ActionSessionOpen, Description: "Open a session; returns its id"},
		{Type: ActionSessionClose, Description: "Close the session named by the " + HeaderSession + " header"},
	}
	for _, e := range s.binding.Entries() {
		actions = append(actions, &flight.ActionType{
			Type:        e.Name,
			Description: e.Description,
		})
	}

	for _, a := range actions {
		if err := stream.Send(a); err != nil {
			return err
		}
	}
	return nil
}
