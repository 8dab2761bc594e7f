package dialect

// TransportKind distinguishes the two supported transport variants.
type TransportKind string

const (
	// TransportODBC is the text-payload transport; errors arrive in the payload.
	TransportODBC TransportKind = "odbc"

	// TransportJDBC is the driver-based transport; errors are raised natively.
	TransportJDBC TransportKind = "jdbc"
)

// DefaultSchema is the server's default schema.
const DefaultSchema = "public"

// Context is the per-connection dialect configuration.
// It is immutable after construction.
type Context struct {
	transport     TransportKind
	defaultSchema string
}

// New creates a Context. An empty schema means DefaultSchema.
func New(kind TransportKind, defaultSchema string) Context {
	if defaultSchema == "" {
		defaultSchema = DefaultSchema
	}
	return Context{transport: kind, defaultSchema: defaultSchema}
}

// Transport returns the transport kind the connection was opened with.
func (c Context) Transport() TransportKind {
	return c.transport
}

// DefaultSchema returns the schema that is omitted from qualified names.
func (c Context) DefaultSchema() string {
	if c.defaultSchema == "" {
		return DefaultSchema
	}
	return c.defaultSchema
}
