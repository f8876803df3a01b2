package ctxutil

import "context"

type traceDataKey struct{}

// TraceData carries the correlation ids minted (or propagated) for a request.
// The request logger and the X-Trace-Id/X-Request-Id response headers both
// read from it, so a worker's report of a failed completion can be tied back
// to the exact request.
type TraceData struct {
	TraceID   string
	RequestID string
}

// WithTraceData returns a context carrying td. Attached once per request by
// the trace-context middleware.
func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

// GetTraceData returns the request's TraceData, or nil outside a request.
func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}
