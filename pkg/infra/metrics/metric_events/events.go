package metric_events

import (
	"net/url"
	"strconv"
	"time"
)

const TraceType = "trace"

type Event struct {
	TraceID        string            `json:"trace_id"`
	Type           string            `json:"type"`
	Route          string            `json:"route"`
	Path           string            `json:"path"`
	Query          string            `json:"query,omitempty"`
	StartTimestamp int64             `json:"start_timestamp"`
	EndTimestamp   int64             `json:"end_timestamp"`
	Latency        int64             `json:"latency"`
	IP             string            `json:"user_ip,omitempty"`
	Params         map[string]string `json:"params,omitempty"`

	Method          string              `json:"method,omitempty"`
	Error           string              `json:"error,omitempty"`
	ErrorKind       string              `json:"error_kind,omitempty"`
	Locale          string              `json:"locale,omitempty"`
	Device          string              `json:"device,omitempty"`
	Os              string              `json:"os,omitempty"`
	Browser         string              `json:"browser,omitempty"`
	Upstream        *UpstreamEvent      `json:"upstream,omitempty"`
	RequestHeaders  map[string][]string `json:"request_headers,omitempty"`
	ResponseHeaders map[string][]string `json:"response_headers,omitempty"`
	StatusCode      int                 `json:"status_code"`
}

type UpstreamEvent struct {
	Operation  string      `json:"operation"`
	Target     TargetEvent `json:"target"`
	StatusCode int         `json:"status_code,omitempty"`
	Latency    int64       `json:"latency"`
}

type TargetEvent struct {
	Path     string `json:"path,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Protocol string `json:"protocol,omitempty"`
}

func NewTraceEvent() *Event {
	return &Event{
		Type:           TraceType,
		StartTimestamp: time.Now().Unix(),
	}
}

// NewUpstreamEvent describes a call to rawURL. An unparsable URL leaves
// the target empty.
func NewUpstreamEvent(operation, rawURL string, statusCode int, latency time.Duration) *UpstreamEvent {
	evt := &UpstreamEvent{
		Operation:  operation,
		StatusCode: statusCode,
		Latency:    latency.Milliseconds(),
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return evt
	}
	evt.Target = TargetEvent{
		Path:     u.Path,
		Host:     u.Hostname(),
		Protocol: u.Scheme,
	}
	if port, err := strconv.Atoi(u.Port()); err == nil {
		evt.Target.Port = port
	} else if u.Scheme == "https" {
		evt.Target.Port = 443
	} else if u.Scheme == "http" {
		evt.Target.Port = 80
	}
	return evt
}

func (evt *Event) IsTypeTrace() bool {
	return evt.Type == TraceType
}

func (evt *Event) HasError() bool {
	return evt.Error != ""
}
