package workflow

// TraceContext carries optional distributed-tracing identifiers alongside
// a message as it moves through the graph. The runtime never interprets
// these fields itself; it only threads them through so a host-side
// OTelEmitter (workflow/emit) can correlate spans across executor hops.
type TraceContext struct {
	TraceID string
	SpanID  string
}

// Envelope is the typed carrier of a message moving along an edge (spec
// §3: "Message envelope"). DeclaredType is preserved independently of the
// dynamic Go type of Message so that routing decisions survive a
// checkpoint round-trip through an opaque container.
type Envelope struct {
	Message      any
	DeclaredType TypeID
	Trace        *TraceContext
}

// newEnvelope builds an Envelope, defaulting DeclaredType to the runtime
// type of value when declared is empty (spec §4.1: "declared type defaults
// to runtime type").
func newEnvelope(value any, declared TypeID) Envelope {
	if declared == "" {
		declared = typeIDOf(value)
	}
	return Envelope{Message: value, DeclaredType: declared}
}

// Composite is the message a FanIn edge releases once every source in its
// set has delivered (spec §4.2). SourceIDs and Messages are parallel
// slices ordered by the fan-in edge's source registration order.
type Composite struct {
	SourceIDs []string
	Messages  []any
}
