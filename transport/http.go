package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/netgate/failure"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultSendTimeout    = 10 * time.Second
	defaultReceiveTimeout = 30 * time.Second
	defaultMaxBody        = 10 << 20

	HeaderRequestID = "X-Request-Id"
)

var (
	ErrNoBaseURL    = errors.New("transport: base URL is required")
	ErrBodyTooLarge = errors.New("transport: response body too large")
)

type HTTPOptions struct {
	BaseURL string // scheme://host[:port][/prefix]

	ConnectTimeout time.Duration // 0 => 5s
	SendTimeout    time.Duration // per write; 0 => 10s
	ReceiveTimeout time.Duration // per read; 0 => 30s

	UserAgent    string
	MaxBodyBytes int64 // 0 => 10 MiB

	Credentials Credentials // optional

	// RequestID generates the X-Request-Id header; nil => random UUIDv4.
	RequestID func() string
}

// HTTP is a Transport over net/http with per-phase timeouts.
type HTTP struct {
	base      *url.URL
	client    *http.Client
	userAgent string
	maxBody   int64
	creds     Credentials
	requestID func() string
}

var _ Transport = (*HTTP)(nil)

func NewHTTP(opts HTTPOptions) (*HTTP, error) {
	if opts.BaseURL == "" {
		return nil, ErrNoBaseURL
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("transport: unsupported scheme %q", base.Scheme)
	}

	connect := coalesce(opts.ConnectTimeout, defaultConnectTimeout)
	send := coalesce(opts.SendTimeout, defaultSendTimeout)
	receive := coalesce(opts.ReceiveTimeout, defaultReceiveTimeout)

	rt := http.DefaultTransport.(*http.Transport).Clone()
	rt.DialContext = dialer(connect, send, receive)
	rt.TLSHandshakeTimeout = connect

	h := &HTTP{
		base:      base,
		client:    &http.Client{Transport: rt},
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
		creds:     opts.Credentials,
		requestID: opts.RequestID,
	}
	if h.maxBody <= 0 {
		h.maxBody = defaultMaxBody
	}
	if h.requestID == nil {
		h.requestID = uuid.NewString
	}
	return h, nil
}

func (h *HTTP) Perform(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, h.resolve(req), body)
	if err != nil {
		return nil, err
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if len(req.Body) > 0 && req.ContentType != "" {
		hreq.Header.Set("Content-Type", req.ContentType)
	}
	if req.Accept != "" {
		hreq.Header.Set("Accept", req.Accept)
	}
	if h.userAgent != "" {
		hreq.Header.Set("User-Agent", h.userAgent)
	}
	if hreq.Header.Get(HeaderRequestID) == "" {
		hreq.Header.Set(HeaderRequestID, h.requestID())
	}
	if h.creds != nil {
		auth, err := h.creds.Authorization(ctx)
		if err != nil {
			return nil, fmt.Errorf("transport: credentials: %w", err)
		}
		if auth != "" {
			hreq.Header.Set("Authorization", auth)
		}
	}

	resp, err := h.client.Do(hreq)
	if err != nil {
		return nil, receiveTimeout(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody+1))
	if err != nil {
		return nil, receiveTimeout(err)
	}
	if int64(len(b)) > h.maxBody {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, h.maxBody)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: b}, nil
}

// CloseIdle drops pooled keep-alive connections.
func (h *HTTP) CloseIdle() { h.client.CloseIdleConnections() }

func (h *HTTP) resolve(req *Request) string {
	u := *h.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(req.Path, "/")
	u.RawPath = ""
	u.RawQuery = req.Query.Encode()
	return u.String()
}

// receiveTimeout tags deadline errors that lost their phase on the way up
// through net/http.
func receiveTimeout(err error) error {
	var te *failure.TimeoutError
	if errors.As(err, &te) || !errors.Is(err, os.ErrDeadlineExceeded) {
		return err
	}
	return &failure.TimeoutError{Phase: failure.PhaseReceive, Err: err}
}

func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
