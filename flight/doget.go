package flight

import (
	"errors"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/framebind/auth"
	"github.com/hugr-lab/framebind/handle"
)

// batchRows is the number of rows per streamed record batch.
const batchRows = 64 * 1024

// DoGet collects the lazy frame named by the ticket and streams it as Arrow
// record batches.
//
// The ticket must be encoded using EncodeTicket. The frame is executed on
// every DoGet; nothing is cached between requests.
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	s.logger.Debug("DoGet called", "ticket_size", len(ticket.GetTicket()))

	ticketData, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		s.logger.Error("Failed to decode ticket", "error", err)
		return status.Errorf(codes.InvalidArgument, "invalid ticket: %v", err)
	}

	sess, err := s.sessions.get(ticketData.Session, auth.IdentityFromContext(ctx))
	if err != nil {
		return sessionStatus(err)
	}

	frame, err := sess.LazyFrame(ticketData.Handle)
	switch {
	case errors.Is(err, handle.ErrNotFound):
		return status.Errorf(codes.NotFound, "lazy frame %d not found", ticketData.Handle)
	case err != nil:
		return status.Errorf(codes.InvalidArgument, "invalid ticket: %v", err)
	}

	record, err := frame.Collect(ctx)
	if err != nil {
		s.logger.Error("Collect failed",
			"session", ticketData.Session,
			"handle", ticketData.Handle,
			"error", err,
		)
		return status.Errorf(codes.Internal, "collect: %v", err)
	}
	defer record.Release()

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(record.Schema()), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	rows := record.NumRows()
	batchCount := 0
	for offset := int64(0); offset < rows || batchCount == 0; offset += batchRows {
		select {
		case <-ctx.Done():
			s.logger.Debug("DoGet cancelled by client",
				"handle", ticketData.Handle,
				"batches_sent", batchCount,
			)
			return status.Error(codes.Canceled, "request cancelled")
		default:
		}

		end := min(offset+batchRows, rows)
		batch := record.NewSlice(offset, end)
		err := writer.Write(batch)
		batch.Release()
		if err != nil {
			s.logger.Error("Failed to write record batch",
				"handle", ticketData.Handle,
				"batch", batchCount,
				"error", err,
			)
			return status.Errorf(codes.Internal, "failed to write batch %d: %v", batchCount, err)
		}
		batchCount++
	}

	s.logger.Debug("DoGet completed successfully",
		"handle", ticketData.Handle,
		"batches_sent", batchCount,
		"total_rows", rows,
	)

	return nil
}
