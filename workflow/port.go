package workflow

import "reflect"

// PortDescriptor names a boundary through which the workflow exchanges a
// request/response pair with the host (spec §3: "Request Port"). The
// reflect.Type fields back assignable-from validation of host-posted
// responses (spec §4.4); they are unexported to keep the descriptor
// trivially comparable/printable from the outside while still letting
// NewPortDescriptor populate them from a generic instantiation.
type PortDescriptor struct {
	PortID       string
	RequestType  TypeID
	ResponseType TypeID

	requestRType  reflect.Type
	responseRType reflect.Type
}

// NewPortDescriptor builds a PortDescriptor for a port whose host-facing
// request payload has static type Req and whose response payload has
// static type Resp.
func NewPortDescriptor[Req, Resp any](portID string) PortDescriptor {
	return PortDescriptor{
		PortID:        portID,
		RequestType:   typeID[Req](),
		ResponseType:  typeID[Resp](),
		requestRType:  reflectTypeOf[Req](),
		responseRType: reflectTypeOf[Resp](),
	}
}

// ExternalRequest is what a RequestInputExecutor surfaces to the host when
// a handler calls BoundContext.PostRequest (spec §4.4).
type ExternalRequest struct {
	RequestID   string
	PortID      string
	Payload     any
	RequestType TypeID
}

// ExternalResponse is enqueued by the host (via RunHandle.Respond) to
// satisfy a previously surfaced ExternalRequest. RequestID disambiguates
// among multiple outstanding requests on the same port; when empty, the
// response is matched to the oldest outstanding request on PortID (FIFO),
// per spec §4.4's port-keyed model.
type ExternalResponse struct {
	RequestID string
	PortID    string
	Data      any
}

// requestInputState is the per-port bookkeeping a RequestInputExecutor
// keeps in RunnerContext: its descriptor and its outstanding requests in
// FIFO order. Responses not yet matched are queued on the runnerContext,
// not here.
type requestInputState struct {
	descriptor PortDescriptor
	// outstanding is ordered oldest-first.
	outstanding []ExternalRequest
}
