package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/unkn0wn-root/netgate/failure"
)

// deadlineConn applies the send timeout to each Write and the receive
// timeout to each Read. A successful Write also restarts the read deadline so
// a read already blocked on an idle connection measures from the request.
type deadlineConn struct {
	net.Conn
	send    time.Duration
	receive time.Duration
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if c.send > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(c.send))
	}
	n, err := c.Conn.Write(b)
	if err != nil {
		return n, phaseErr(failure.PhaseSend, err)
	}
	if c.receive > 0 {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.receive))
	}
	return n, nil
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if c.receive > 0 {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.receive))
	}
	n, err := c.Conn.Read(b)
	if err != nil {
		return n, phaseErr(failure.PhaseReceive, err)
	}
	return n, nil
}

func phaseErr(p failure.Phase, err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return &failure.TimeoutError{Phase: p, Err: err}
	}
	return err
}

func dialer(connect, send, receive time.Duration) func(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			var ne net.Error
			// a parent ctx deadline is the caller's timeout, not the connect phase
			if errors.As(err, &ne) && ne.Timeout() && ctx.Err() == nil {
				return nil, &failure.TimeoutError{Phase: failure.PhaseConnect, Err: err}
			}
			return nil, err
		}
		if send <= 0 && receive <= 0 {
			return conn, nil
		}
		return &deadlineConn{Conn: conn, send: send, receive: receive}, nil
	}
}
