package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrEmptyQuery is returned by Execute for blank query text.
	ErrEmptyQuery = errors.New("empty query")

	// ErrNotQuery is returned by Execute for text that is not exactly one
	// SELECT statement.
	ErrNotQuery = errors.New("not a single query statement")
)

// SQLContext maps table names to lazy frames and turns SQL text into new
// frames over them. SQLContext is not safe for concurrent use; wrap it in a
// shared.Ref when several references mutate it.
type SQLContext struct {
	engine *Engine
	tables map[string]*LazyFrame
}

// NewSQLContext returns an empty context.
func (e *Engine) NewSQLContext() SQLContext {
	return SQLContext{
		engine: e,
		tables: make(map[string]*LazyFrame),
	}
}

// Tables returns the registered names, sorted.
func (c *SQLContext) Tables() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register binds name to frame, replacing any previous binding.
func (c *SQLContext) Register(name string, frame *LazyFrame) {
	c.tables[name] = frame
}

// Unregister removes name. Missing names are ignored.
func (c *SQLContext) Unregister(name string) {
	delete(c.tables, name)
}

// Execute plans query against the registered tables and returns a new frame.
// The registered tables are captured at call time. The text must parse as
// exactly one SELECT statement; nothing else reaches the database. The
// planned query is then prepared so unknown tables or columns fail here.
func (c *SQLContext) Execute(ctx context.Context, query string) (*LazyFrame, error) {
	q := strings.TrimSpace(query)
	q = strings.TrimSpace(strings.TrimRight(q, ";"))
	if q == "" {
		return nil, ErrEmptyQuery
	}
	if err := c.engine.checkQuery(ctx, q); err != nil {
		return nil, err
	}

	// The newline keeps a trailing line comment from swallowing the paren.
	frame := &LazyFrame{
		engine: c.engine,
		query:  "SELECT * FROM (" + q + "\n) AS q",
		inputs: sortedInputs(c.tables),
	}

	stmt, err := c.engine.db.PrepareContext(ctx, frame.SQL())
	if err != nil {
		return nil, fmt.Errorf("sql: %w", err)
	}
	stmt.Close()

	c.engine.logger.Debug("SQL query planned",
		"tables", len(frame.inputs),
		"query_len", len(q),
	)

	return frame, nil
}

// parsedSQL is the envelope json_serialize_sql returns.
type parsedSQL struct {
	Error        bool              `json:"error"`
	ErrorType    string            `json:"error_type"`
	ErrorMessage string            `json:"error_message"`
	Statements   []json.RawMessage `json:"statements"`
}

// checkQuery parses q without running it. json_serialize_sql only accepts
// SELECT statements, and the query text travels as a bound parameter.
func (e *Engine) checkQuery(ctx context.Context, q string) error {
	var raw string
	err := e.db.QueryRowContext(ctx, "SELECT CAST(json_serialize_sql(?::VARCHAR) AS VARCHAR)", q).Scan(&raw)
	if err != nil {
		return fmt.Errorf("sql: %w", err)
	}

	var parsed parsedSQL
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return fmt.Errorf("sql: decode parse result: %w", err)
	}
	if parsed.Error {
		if parsed.ErrorType == "parser" {
			return fmt.Errorf("sql: %s", parsed.ErrorMessage)
		}
		return fmt.Errorf("%w: %s", ErrNotQuery, parsed.ErrorMessage)
	}
	if n := len(parsed.Statements); n != 1 {
		return fmt.Errorf("%w: got %d statements", ErrNotQuery, n)
	}
	return nil
}

// Close drops every registration.
func (c *SQLContext) Close() {
	clear(c.tables)
}
