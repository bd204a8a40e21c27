package workflow

import "context"

// RequestInputExecutor is the built-in executor backing a Request Port
// (spec §4.4). It accepts either a raw payload matching its port's
// declared request type — which it wraps into an ExternalRequest, posts
// to the run for host visibility, and forwards downstream unchanged so
// other executors may observe that a request is outstanding — or an
// ExternalResponse, which it unwraps and forwards as the port's declared
// response type.
type RequestInputExecutor struct {
	id   string
	port PortDescriptor
}

// NewRequestInputExecutor constructs the built-in request/response
// boundary executor for port.
func NewRequestInputExecutor(id string, port PortDescriptor) *RequestInputExecutor {
	return &RequestInputExecutor{id: id, port: port}
}

func (e *RequestInputExecutor) ID() string { return e.id }

// Port returns the descriptor this executor was built for.
func (e *RequestInputExecutor) Port() PortDescriptor { return e.port }

func (e *RequestInputExecutor) CanHandle(t TypeID) bool {
	return t == e.port.RequestType || t == typeID[ExternalResponse]()
}

func (e *RequestInputExecutor) IsOutputProducing() bool { return false }

func (e *RequestInputExecutor) Execute(ctx context.Context, msg any, declaredType TypeID, bc BoundContext) (any, error) {
	if resp, ok := msg.(ExternalResponse); ok {
		bc.SendMessage(resp.Data, e.port.ResponseType)
		return nil, nil
	}

	reqID, err := bc.PostRequest(e.port.PortID, msg)
	if err != nil {
		return nil, err
	}
	bc.SendMessage(ExternalRequest{
		RequestID:   reqID,
		PortID:      e.port.PortID,
		Payload:     msg,
		RequestType: e.port.RequestType,
	}, typeID[ExternalRequest]())
	return nil, nil
}
