package binding

import (
	"errors"

	"cloud.google.com/go/civil"

	"github.com/hugr-lab/framebind/engine"
	"github.com/hugr-lab/framebind/shared"
	"github.com/hugr-lab/framebind/value"
)

// Handle kinds issued by the entry points.
const (
	kindSchema     = "schema"
	kindDate       = "date"
	kindDatetime   = "datetime"
	kindLazy       = "lazy"
	kindSQLContext = "sql_context"
)

// sqlContext is the native value behind an sql_context handle. Clones share
// one cell.
type sqlContext = *shared.Ref[engine.SQLContext]

type entry struct {
	name        string
	description string
	arity       int
	stateful    bool
	fn          func(c *Call) (value.Value, error)
}

func builtinEntries() []*entry {
	return []*entry{
		{name: "schema_create", arity: 1, fn: schemaCreate,
			description: "Build a schema from a list of (name, dtype) pairs"},
		{name: "schema_fields", arity: 1, fn: schemaFields,
			description: "List a schema's (name, dtype) pairs in order"},
		{name: "int_double", arity: 1, fn: intDouble,
			description: "Double an integer, rejecting overflow"},
		{name: "fault_inject", arity: 1, fn: faultInject,
			description: "Abort the call with the given message"},
		{name: "fill_null_roundtrip", arity: 1, fn: fillNullRoundtrip,
			description: "Decode and re-encode a fill-null strategy"},
		{name: "date_new", arity: 3, fn: dateNew,
			description: "Construct a date, None if invalid"},
		{name: "date_to_datetime", arity: 1, fn: dateToDatetime,
			description: "Datetime at midnight of a date"},
		{name: "date_format", arity: 1, fn: dateFormat,
			description: "Render a date as YYYY-MM-DD"},
		{name: "datetime_format", arity: 1, fn: datetimeFormat,
			description: "Render a datetime as YYYY-MM-DDTHH:MM:SS"},
		{name: "lazy_scan_parquet", arity: 1, fn: lazyScanParquet,
			description: "Lazily scan a Parquet file"},
		{name: "lazy_diagram", arity: 1, fn: lazyDiagram,
			description: "Render a lazy frame's query plan"},
		{name: "lazy_schema", arity: 1, fn: lazySchema,
			description: "Resolve a lazy frame's output schema"},
		{name: "sql_context_new", arity: 0, fn: sqlContextNew,
			description: "Create an empty SQL context"},
		{name: "sql_context_clone", arity: 1, fn: sqlContextClone,
			description: "Another reference to the same SQL context"},
		{name: "sql_context_tables", arity: 1, fn: sqlContextTables,
			description: "List registered table names, sorted"},
		{name: "sql_context_register", arity: 3, stateful: true, fn: sqlContextRegister,
			description: "Register a lazy frame under a name"},
		{name: "sql_context_unregister", arity: 2, stateful: true, fn: sqlContextUnregister,
			description: "Remove a registered name"},
		{name: "sql_context_execute", arity: 2, stateful: true, fn: sqlContextExecute,
			description: "Plan a query over the registered frames"},
		{name: "handle_drop", arity: 1, fn: handleDrop,
			description: "Release a handle"},
	}
}

func schemaCreate(c *Call) (value.Value, error) {
	fields, err := value.DecodeList(c.Arg(0), decodeField)
	if err != nil {
		return value.Value{}, c.argError(0, err)
	}
	schema, err := engine.NewSchema(fields)
	if err != nil {
		return value.Value{}, c.argError(0, err)
	}
	return give(c, kindSchema, schema, nil)
}

func schemaFields(c *Call) (value.Value, error) {
	h, err := arg[*engine.Schema](c, 0, kindSchema)
	if err != nil {
		return value.Value{}, err
	}
	return value.ListOf(h.Value().Fields(), encodeField), nil
}

func intDouble(c *Call) (value.Value, error) {
	n, err := c.Int(0)
	if err != nil {
		return value.Value{}, err
	}
	r, err := engine.Double(n)
	if err != nil {
		return value.Value{}, c.argError(0, err)
	}
	return c.Result(r)
}

func faultInject(c *Call) (value.Value, error) {
	msg, err := c.String(0)
	if err != nil {
		return value.Value{}, err
	}
	panic(msg)
}

func fillNullRoundtrip(c *Call) (value.Value, error) {
	policy := c.session.binding.policy
	s, err := decodeFillNull(c.Arg(0), policy)
	if err != nil {
		return value.Value{}, c.argError(0, err)
	}
	out, err := encodeFillNull(s, policy)
	if err != nil {
		return value.Value{}, c.argError(0, err)
	}
	return out, nil
}

func dateNew(c *Call) (value.Value, error) {
	var ymd [3]int64
	for i := range ymd {
		n, err := c.Int(i)
		if err != nil {
			return value.Value{}, err
		}
		ymd[i] = n
	}

	// Components outside int32 are never a real date.
	for _, n := range ymd {
		if n < -1<<31 || n > 1<<31-1 {
			return value.None(), nil
		}
	}

	d, ok := engine.NewDate(int(ymd[0]), int(ymd[1]), int(ymd[2]))
	if !ok {
		return value.None(), nil
	}
	token, err := give(c, kindDate, d, nil)
	if err != nil {
		return value.Value{}, err
	}
	return value.Some(token), nil
}

func dateToDatetime(c *Call) (value.Value, error) {
	h, err := arg[civil.Date](c, 0, kindDate)
	if err != nil {
		return value.Value{}, err
	}
	dt, ok := engine.AtMidnight(h.Value())
	if !ok {
		return value.None(), nil
	}
	token, err := give(c, kindDatetime, dt, nil)
	if err != nil {
		return value.Value{}, err
	}
	return value.Some(token), nil
}

func dateFormat(c *Call) (value.Value, error) {
	h, err := arg[civil.Date](c, 0, kindDate)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(h.Value().String()), nil
}

func datetimeFormat(c *Call) (value.Value, error) {
	h, err := arg[civil.DateTime](c, 0, kindDatetime)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(h.Value().String()), nil
}

func lazyScanParquet(c *Call) (value.Value, error) {
	path, err := c.Bytes(0)
	if err != nil {
		return value.Value{}, err
	}
	frame, err := c.session.binding.engine.ScanParquet(c.Context(), string(path))
	if err != nil {
		return value.Err(err.Error()), nil
	}
	return okHandle(give(c, kindLazy, frame, nil))
}

func lazyDiagram(c *Call) (value.Value, error) {
	h, err := arg[*engine.LazyFrame](c, 0, kindLazy)
	if err != nil {
		return value.Value{}, err
	}
	diagram, err := h.Value().Diagram(c.Context())
	return value.ResultOf(diagram, err, value.String), nil
}

func lazySchema(c *Call) (value.Value, error) {
	h, err := arg[*engine.LazyFrame](c, 0, kindLazy)
	if err != nil {
		return value.Value{}, err
	}
	schema, err := h.Value().Schema(c.Context())
	if err != nil {
		return value.Err(err.Error()), nil
	}
	return okHandle(give(c, kindSchema, schema, nil))
}

func sqlContextNew(c *Call) (value.Value, error) {
	ref := shared.New(c.session.binding.engine.NewSQLContext(), func(sc *engine.SQLContext) {
		sc.Close()
	})
	return give(c, kindSQLContext, ref, releaseRef)
}

func sqlContextClone(c *Call) (value.Value, error) {
	h, err := arg[sqlContext](c, 0, kindSQLContext)
	if err != nil {
		return value.Value{}, err
	}
	ref, err := h.Value().Clone()
	if err != nil {
		panic(err)
	}
	return give(c, kindSQLContext, ref, releaseRef)
}

func sqlContextTables(c *Call) (value.Value, error) {
	h, err := arg[sqlContext](c, 0, kindSQLContext)
	if err != nil {
		return value.Value{}, err
	}
	var names []string
	mustBorrow(h.Value().Borrow(func(sc *engine.SQLContext) error {
		names = sc.Tables()
		return nil
	}))
	return value.ListOf(names, value.String), nil
}

func sqlContextRegister(c *Call) (value.Value, error) {
	h, err := arg[sqlContext](c, 0, kindSQLContext)
	if err != nil {
		return value.Value{}, err
	}
	name, err := c.String(1)
	if err != nil {
		return value.Value{}, err
	}
	frame, err := arg[*engine.LazyFrame](c, 2, kindLazy)
	if err != nil {
		return value.Value{}, err
	}
	mustBorrow(h.Value().BorrowMut(func(sc *engine.SQLContext) error {
		sc.Register(name, frame.Value())
		return nil
	}))
	return value.Unit(), nil
}

func sqlContextUnregister(c *Call) (value.Value, error) {
	h, err := arg[sqlContext](c, 0, kindSQLContext)
	if err != nil {
		return value.Value{}, err
	}
	name, err := c.String(1)
	if err != nil {
		return value.Value{}, err
	}
	mustBorrow(h.Value().BorrowMut(func(sc *engine.SQLContext) error {
		sc.Unregister(name)
		return nil
	}))
	return value.Unit(), nil
}

func sqlContextExecute(c *Call) (value.Value, error) {
	h, err := arg[sqlContext](c, 0, kindSQLContext)
	if err != nil {
		return value.Value{}, err
	}
	query, err := c.String(1)
	if err != nil {
		return value.Value{}, err
	}

	var frame *engine.LazyFrame
	err = h.Value().BorrowMut(func(sc *engine.SQLContext) error {
		var err error
		frame, err = sc.Execute(c.Context(), query)
		return err
	})
	if err != nil {
		return value.Err(err.Error()), nil
	}
	return okHandle(give(c, kindLazy, frame, nil))
}

func handleDrop(c *Call) (value.Value, error) {
	kind, id, err := c.Arg(0).Token()
	if err != nil {
		return value.Value{}, c.argError(0, err)
	}
	owned, ok := c.session.handles.Get(id)
	if !ok {
		return value.Bool(false), nil
	}
	if owned.Kind() != kind {
		return value.Value{}, c.argError(0, errors.New("token kind does not match handle"))
	}
	return value.Bool(c.session.handles.Drop(id)), nil
}

// okHandle wraps a freshly issued token in an Ok result.
func okHandle(token value.Value, err error) (value.Value, error) {
	if err != nil {
		return value.Value{}, err
	}
	return value.Ok(token), nil
}

func releaseRef(ref sqlContext) {
	ref.Release()
}

// mustBorrow turns a borrow conflict on a context into a fault. Entry points
// whose result has no failure side cannot report it any other way.
func mustBorrow(err error) {
	if err != nil {
		panic(err)
	}
}
