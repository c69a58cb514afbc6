package webclient

import (
	"net/http"
	"time"
)

// Request is one outgoing call. An empty Method means GET.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response carries the fully read body, already transcoded to UTF-8 for
// textual content.
type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}

// OK reports a 200 answer.
func (r *Response) OK() bool { return r != nil && r.StatusCode == http.StatusOK }

// Text returns the body as a string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}
