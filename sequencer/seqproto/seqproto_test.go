package seqproto_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pg-sharding/seqmgr/pkg/models/seqerror"
	"github.com/pg-sharding/seqmgr/sequencer/seqproto"
)

func TestFrameLayout(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	assert.NoError(seqproto.WriteFrame(&buf, seqproto.NextVal, []byte("s1")))
	assert.Equal([]byte{28, 0, 0, 0, 2, 's', '1'}, buf.Bytes())

	tp, body, err := seqproto.ReadFrame(&buf)
	assert.NoError(err)
	assert.Equal(seqproto.NextVal, tp)
	assert.Equal([]byte("s1"), body)

	_, _, err = seqproto.ReadFrame(&buf)
	assert.ErrorIs(err, io.EOF)
}

func TestReadFrameErrors(t *testing.T) {
	for name, raw := range map[string][]byte{
		"truncated header": {28, 0, 0},
		"truncated body":   {28, 0, 0, 0, 5, 'a'},
		"oversized body":   {26, 0, 1, 0, 1},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := seqproto.ReadFrame(bytes.NewReader(raw))
			assert.True(t, seqerror.HasCode(err, seqerror.SEQ_PROTOCOL_ERROR), "got %v", err)
		})
	}

	err := seqproto.WriteFrame(io.Discard, seqproto.Create, make([]byte, seqproto.MaxBodyLen+1))
	assert.True(t, seqerror.HasCode(err, seqerror.SEQ_PROTOCOL_ERROR))
}

func TestValueEncoding(t *testing.T) {
	assert := assert.New(t)

	for _, v := range []int64{0, -1, 99, math.MaxInt64, math.MinInt64} {
		got, err := seqproto.DecodeValue(seqproto.EncodeValue(v))
		assert.NoError(err)
		assert.Equal(v, got)
	}

	_, err := seqproto.DecodeValue([]byte{1, 2})
	assert.True(seqerror.HasCode(err, seqerror.SEQ_PROTOCOL_ERROR))
}

func TestErrorEncoding(t *testing.T) {
	assert := assert.New(t)

	body := seqproto.EncodeError(seqerror.New(seqerror.SEQ_EXHAUSTED, "reached maximum"))
	assert.Equal([]byte("SEQEX\x00reached maximum"), body)

	err := seqproto.DecodeError(body)
	assert.True(seqerror.HasCode(err, seqerror.SEQ_EXHAUSTED))
	assert.Equal(seqerror.New(seqerror.SEQ_EXHAUSTED, "reached maximum").Error(), err.Error())

	err = seqproto.DecodeError(seqproto.EncodeError(errors.New("disk on fire")))
	assert.True(seqerror.HasCode(err, seqerror.SEQ_UNEXPECTED))
	assert.Contains(err.Error(), "disk on fire")

	err = seqproto.DecodeError([]byte("no separator"))
	assert.True(seqerror.HasCode(err, seqerror.SEQ_PROTOCOL_ERROR))
}

func TestClientOverPipe(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()

	cli, srv := net.Pipe()
	client := seqproto.NewClient(cli)
	defer client.Close()

	server := seqproto.NewConn(srv)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer server.Close()
		for {
			tp, body, err := server.DecodeMessage()
			if err != nil {
				return
			}
			switch tp {
			case seqproto.NextVal:
				_ = server.SendValue(int64(len(body)))
			case seqproto.Create:
				_ = server.SendOk()
			case seqproto.Drop:
				_ = server.SendError(seqerror.Newf(seqerror.SEQ_NOT_FOUND, "sequence %q does not exist", body))
			default:
				_ = server.SendOk()
			}
		}
	}()

	v, err := client.NextVal(ctx, "abc")
	assert.NoError(err)
	assert.Equal(int64(3), v)

	assert.NoError(client.CreateSequence(ctx, "create sequence abc"))

	err = client.DropSequence(ctx, "abc")
	assert.True(seqerror.HasCode(err, seqerror.SEQ_NOT_FOUND))

	_, err = client.CurrVal(ctx, "abc")
	assert.True(seqerror.HasCode(err, seqerror.SEQ_PROTOCOL_ERROR), "Ok is not a valid reply to CurrentVal")

	require.NoError(t, client.Close())
	<-done
}

func TestMessageTypeString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("NextVal", seqproto.NextVal.String())
	assert.Equal("MessageType(1)", seqproto.MessageType(1).String())
	assert.True(seqproto.Drop.IsRequest())
	assert.False(seqproto.Value.IsRequest())
}
