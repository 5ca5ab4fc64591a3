package seqproto

import (
	"context"
	"net"
	"sync"
)

// Client issues requests over one connection. Requests are serialized.
type Client struct {
	mu   sync.Mutex
	conn *Conn
}

func NewClient(nc net.Conn) *Client {
	return &Client{conn: NewConn(nc)}
}

func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(nc), nil
}

func (c *Client) roundTrip(ctx context.Context, tp MessageType, body []byte) (MessageType, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// zero deadline when ctx has none
	deadline, _ := ctx.Deadline()
	if err := c.conn.nc.SetDeadline(deadline); err != nil {
		return 0, nil, err
	}

	if err := c.conn.send(tp, body); err != nil {
		return 0, nil, err
	}
	rtp, rbody, err := c.conn.DecodeMessage()
	if err != nil {
		return 0, nil, err
	}
	if rtp == Error {
		return 0, nil, DecodeError(rbody)
	}
	return rtp, rbody, nil
}

func (c *Client) value(ctx context.Context, tp MessageType, name string) (int64, error) {
	rtp, body, err := c.roundTrip(ctx, tp, []byte(name))
	if err != nil {
		return 0, err
	}
	if rtp != Value {
		return 0, protocolError("unexpected %s reply to %s", rtp, tp)
	}
	return DecodeValue(body)
}

func (c *Client) ok(ctx context.Context, tp MessageType, body string) error {
	rtp, _, err := c.roundTrip(ctx, tp, []byte(body))
	if err != nil {
		return err
	}
	if rtp != Ok {
		return protocolError("unexpected %s reply to %s", rtp, tp)
	}
	return nil
}

func (c *Client) CreateSequence(ctx context.Context, stmt string) error {
	return c.ok(ctx, Create, stmt)
}

func (c *Client) DropSequence(ctx context.Context, name string) error {
	return c.ok(ctx, Drop, name)
}

func (c *Client) NextVal(ctx context.Context, name string) (int64, error) {
	return c.value(ctx, NextVal, name)
}

func (c *Client) CurrVal(ctx context.Context, name string) (int64, error) {
	return c.value(ctx, CurrentVal, name)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
