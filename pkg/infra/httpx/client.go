package httpx

import (
	"errors"
	"net/http"
)

// ErrTimeout is returned when a request does not complete before its
// context deadline or the client timeout.
var ErrTimeout = errors.New("http request timed out")

type Client interface {
	Do(req *http.Request) (*http.Response, error)
}
