package seqproto

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/pg-sharding/seqmgr/pkg/models/seqerror"
)

type MessageType byte

// requests
const (
	Create     = MessageType(26)
	CurrentVal = MessageType(27)
	NextVal    = MessageType(28)
	Drop       = MessageType(29)
)

// replies
const (
	Value = MessageType('V')
	Ok    = MessageType('O')
	Error = MessageType('E')
)

const (
	headerLen  = 5
	MaxBodyLen = 64 << 10
)

func (t MessageType) String() string {
	switch t {
	case Create:
		return "Create"
	case CurrentVal:
		return "CurrentVal"
	case NextVal:
		return "NextVal"
	case Drop:
		return "Drop"
	case Value:
		return "Value"
	case Ok:
		return "Ok"
	case Error:
		return "Error"
	}
	return fmt.Sprintf("MessageType(%d)", byte(t))
}

func (t MessageType) IsRequest() bool {
	return t >= Create && t <= Drop
}

func protocolError(format string, a ...any) error {
	return seqerror.Newf(seqerror.SEQ_PROTOCOL_ERROR, format, a...)
}

// WriteFrame writes [type:1][len:4 BE][body].
func WriteFrame(w io.Writer, tp MessageType, body []byte) error {
	if len(body) > MaxBodyLen {
		return protocolError("message body of %d bytes exceeds %d", len(body), MaxBodyLen)
	}
	buf := make([]byte, headerLen+len(body))
	buf[0] = byte(tp)
	binary.BigEndian.PutUint32(buf[1:headerLen], uint32(len(body)))
	copy(buf[headerLen:], body)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame. io.EOF is returned as is when the peer closed
// the stream between frames.
func ReadFrame(r io.Reader) (MessageType, []byte, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:1]); err != nil {
		return 0, nil, err
	}
	if _, err := io.ReadFull(r, hdr[1:]); err != nil {
		return 0, nil, protocolError("truncated frame header: %v", err)
	}

	n := binary.BigEndian.Uint32(hdr[1:])
	if n > MaxBodyLen {
		return 0, nil, protocolError("message body of %d bytes exceeds %d", n, MaxBodyLen)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, protocolError("truncated frame body: %v", err)
	}
	return MessageType(hdr[0]), body, nil
}

func EncodeValue(v int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(v))
}

func DecodeValue(body []byte) (int64, error) {
	if len(body) != 8 {
		return 0, protocolError("value reply of %d bytes, expected 8", len(body))
	}
	return int64(binary.BigEndian.Uint64(body)), nil
}

// EncodeError renders err as code\x00message.
func EncodeError(err error) []byte {
	msg := err.Error()
	var se *seqerror.SeqError
	if errors.As(err, &se) && se.Err != nil {
		msg = se.Err.Error()
	}
	body := append([]byte(seqerror.Code(err)), 0)
	return append(body, msg...)
}

func DecodeError(body []byte) error {
	code, msg, ok := bytes.Cut(body, []byte{0})
	if !ok || len(code) == 0 {
		return protocolError("malformed error reply")
	}
	return seqerror.New(string(code), string(msg))
}

// NetProtoInteractor is the server side of one client connection.
type NetProtoInteractor interface {
	/* type, body, error if any */
	DecodeMessage() (MessageType, []byte, error)

	SendValue(v int64) error
	SendOk() error
	SendError(err error) error

	Close() error
}

type Conn struct {
	mu sync.Mutex
	nc net.Conn
	r  *bufio.Reader
	w  *bufio.Writer
}

var _ NetProtoInteractor = &Conn{}

func NewConn(nc net.Conn) *Conn {
	return &Conn{
		nc: nc,
		r:  bufio.NewReader(nc),
		w:  bufio.NewWriter(nc),
	}
}

// DecodeMessage implements NetProtoInteractor.
func (c *Conn) DecodeMessage() (MessageType, []byte, error) {
	return ReadFrame(c.r)
}

func (c *Conn) send(tp MessageType, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := WriteFrame(c.w, tp, body); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Conn) SendValue(v int64) error {
	return c.send(Value, EncodeValue(v))
}

func (c *Conn) SendOk() error {
	return c.send(Ok, nil)
}

func (c *Conn) SendError(err error) error {
	return c.send(Error, EncodeError(err))
}

func (c *Conn) NetConn() net.Conn {
	return c.nc
}

func (c *Conn) Close() error {
	return c.nc.Close()
}
