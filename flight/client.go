package flight

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/metadata"

	"github.com/hugr-lab/framebind/internal/serialize"
	"github.com/hugr-lab/framebind/value"
)

// Client is the host side of the Flight transport: it encodes calls the way
// the server expects and decodes their results.
type Client struct {
	client  flight.Client
	codec   *serialize.Codec
	session string
	token   string
}

// NewClient wraps a Flight client. Request bodies longer than
// compressThreshold bytes are compressed; zero uses the default threshold.
func NewClient(client flight.Client, compressThreshold int) (*Client, error) {
	codec, err := serialize.NewCodec(compressThreshold)
	if err != nil {
		return nil, err
	}
	return &Client{client: client, codec: codec}, nil
}

// WithSession returns a client bound to the given session id.
func (c *Client) WithSession(id string) *Client {
	cp := *c
	cp.session = id
	return &cp
}

// WithToken returns a client sending the given bearer token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Session returns the bound session id, empty for the default session.
func (c *Client) Session() string {
	return c.session
}

// OpenSession opens a new session and returns a client bound to it.
func (c *Client) OpenSession(ctx context.Context) (*Client, error) {
	res, err := c.action(ctx, ActionSessionOpen, nil)
	if err != nil {
		return nil, err
	}
	return c.WithSession(string(res.GetBody())), nil
}

// CloseSession closes the bound session.
func (c *Client) CloseSession(ctx context.Context) error {
	if c.session == "" {
		return errors.New("client has no session")
	}
	_, err := c.action(ctx, ActionSessionClose, nil)
	return err
}

// Call invokes an entry point. Errors are gRPC status errors; use
// status.Code to tell a fault (Aborted) from a rejected call.
func (c *Client) Call(ctx context.Context, name string, args ...value.Value) (value.Value, error) {
	payload, err := value.MarshalArgs(args)
	if err != nil {
		return value.Value{}, err
	}
	body, err := c.codec.Seal(payload)
	if err != nil {
		return value.Value{}, err
	}

	res, err := c.action(ctx, name, body)
	if err != nil {
		return value.Value{}, err
	}

	data, err := c.codec.Open(res.GetBody())
	if err != nil {
		return value.Value{}, err
	}
	return value.Unmarshal(data)
}

// Collect executes the lazy frame behind token and returns its rows. The
// caller must Release the table.
func (c *Client) Collect(ctx context.Context, token value.Value) (arrow.Table, error) {
	ticket, err := EncodeTicket(c.session, token)
	if err != nil {
		return nil, err
	}

	stream, err := c.client.DoGet(c.outgoing(ctx), &flight.Ticket{Ticket: ticket})
	if err != nil {
		return nil, err
	}
	reader, err := flight.NewRecordReader(stream)
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	var records []arrow.Record
	defer func() {
		for _, r := range records {
			r.Release()
		}
	}()
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		records = append(records, rec)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	return array.NewTableFromRecords(reader.Schema(), records), nil
}

// Close releases the client's codec. The wrapped Flight client is left open.
func (c *Client) Close() error {
	return c.codec.Close()
}

func (c *Client) action(ctx context.Context, name string, body []byte) (*flight.Result, error) {
	// Only the first result is read; cancel releases the stream.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.client.DoAction(c.outgoing(ctx), &flight.Action{Type: name, Body: body})
	if err != nil {
		return nil, err
	}
	return stream.Recv()
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	var kv []string
	if c.session != "" {
		kv = append(kv, HeaderSession, c.session)
	}
	if c.token != "" {
		kv = append(kv, "authorization", "Bearer "+c.token)
	}
	if len(kv) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}
