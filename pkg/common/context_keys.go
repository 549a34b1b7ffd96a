package common

type contextKey string

const (
	TraceIdKey              contextKey = "trace_id"
	RouteContextKey         contextKey = "route"
	UpstreamEventContextKey contextKey = "upstream_event"
	UpstreamErrorContextKey contextKey = "upstream_error"
	LatencyContextKey       contextKey = "__execution_time"
)
