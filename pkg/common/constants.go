package common

import "time"

const (
	DefaultUpstreamBaseURL = "https://api.chucknorris.io"
	DefaultRandomPath      = "/jokes/random"
	DefaultSearchPath      = "/jokes/search"
	DefaultSearchParam     = "query"
	DefaultUpstreamTimeout = 10 * time.Second

	SearchQueryParam = "query"

	TraceIDHeader = "X-Trace-Id"

	RouteRandom = "random"
	RouteSearch = "search"
)
