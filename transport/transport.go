// Package transport performs the network calls behind the gateway.
//
// A Transport returns a Response for every status code it receives; turning
// non-2xx statuses into failures is the caller's job. Errors are reserved for
// calls that produced no response at all.
package transport

import (
	"context"
	"net/http"
	"net/url"
)

type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string // sent when Body is non-empty
	Accept      string
	Header      http.Header
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status <= 299 }

type Transport interface {
	Perform(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a plain function to Transport.
type Func func(ctx context.Context, req *Request) (*Response, error)

func (f Func) Perform(ctx context.Context, req *Request) (*Response, error) { return f(ctx, req) }
