package app

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/google/uuid"
	reuse "github.com/libp2p/go-reuseport"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/pg-sharding/seqmgr/pkg/config"
	"github.com/pg-sharding/seqmgr/pkg/models/seqerror"
	"github.com/pg-sharding/seqmgr/pkg/models/sequences"
	"github.com/pg-sharding/seqmgr/pkg/seqlog"
	"github.com/pg-sharding/seqmgr/sequencer/seqproto"
)

type App struct {
	mgr sequences.SequenceMgr
	cfg *config.Sequencer

	active *atomic.Int64
	served *atomic.Uint64
}

func NewApp(mgr sequences.SequenceMgr, cfg *config.Sequencer) *App {
	return &App{
		mgr:    mgr,
		cfg:    cfg,
		active: atomic.NewInt64(0),
		served: atomic.NewUint64(0),
	}
}

// ActiveConnections is the number of clients currently connected.
func (app *App) ActiveConnections() int64 {
	return app.active.Load()
}

// ServedRequests counts requests answered since start, errors included.
func (app *App) ServedRequests() uint64 {
	return app.served.Load()
}

func (app *App) Listen() (net.Listener, error) {
	if app.cfg.ReusePort {
		return reuse.Listen("tcp", app.cfg.ListenAddr)
	}
	return net.Listen("tcp", app.cfg.ListenAddr)
}

func (app *App) ServeSequencer(ctx context.Context) error {
	listener, err := app.Listen()
	if err != nil {
		return err
	}

	seqlog.Zero.Info().
		Str("address", listener.Addr().String()).
		Bool("reuse port", app.cfg.ReusePort).
		Msg("sequencer is ready")
	return app.Serve(ctx, listener)
}

// Serve accepts clients on listener until ctx is cancelled, then closes the
// listener and every open connection and waits for their handlers.
func (app *App) Serve(ctx context.Context, listener net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		_ = listener.Close()
		return nil
	})

	g.Go(func() error {
		for {
			nc, err := listener.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			g.Go(func() error {
				app.serveConn(gctx, nc)
				return nil
			})
		}
	})

	err := g.Wait()
	seqlog.Zero.Info().Uint64("served", app.served.Load()).Msg("sequencer stopped")
	return err
}

func (app *App) serveConn(ctx context.Context, nc net.Conn) {
	sid := uuid.New()
	conn := seqproto.NewConn(nc)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()
	defer func() {
		_ = conn.Close()
	}()

	n := app.active.Inc()
	defer app.active.Dec()

	seqlog.Zero.Info().
		Str("session", sid.String()).
		Str("remote", nc.RemoteAddr().String()).
		Int64("active", n).
		Msg("client connected")

	for {
		tp, body, err := conn.DecodeMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				seqlog.Zero.Info().Str("session", sid.String()).Msg("client disconnected")
				return
			}
			seqlog.Zero.Error().Str("session", sid.String()).Err(err).Msg("failed to decode message")
			if seqerror.HasCode(err, seqerror.SEQ_PROTOCOL_ERROR) {
				_ = conn.SendError(err)
			}
			return
		}

		if err := app.dispatch(ctx, sid, conn, tp, body); err != nil {
			seqlog.Zero.Error().Str("session", sid.String()).Err(err).Msg("failed to send reply")
			return
		}
		app.served.Inc()

		if !tp.IsRequest() {
			return
		}
	}
}

func (app *App) dispatch(ctx context.Context, sid uuid.UUID, conn seqproto.NetProtoInteractor, tp seqproto.MessageType, body []byte) error {
	arg := string(body)
	seqlog.Zero.Debug().
		Str("session", sid.String()).
		Str("type", tp.String()).
		Str("arg", arg).
		Msg("received request")

	reply := func(err error) error {
		if err != nil {
			if seqerror.IsTransient(err) {
				seqlog.Zero.Warn().Str("session", sid.String()).Str("type", tp.String()).Bool("transient", true).Err(err).Msg("request failed, client may retry")
			} else {
				seqlog.Zero.Info().Str("session", sid.String()).Str("type", tp.String()).Err(err).Msg("request failed")
			}
			return conn.SendError(err)
		}
		return conn.SendOk()
	}
	value := func(v int64, err error) error {
		if err != nil {
			return reply(err)
		}
		return conn.SendValue(v)
	}

	switch tp {
	case seqproto.Create:
		return reply(app.mgr.CreateSequence(ctx, arg))
	case seqproto.Drop:
		return reply(app.mgr.DropSequence(ctx, arg))
	case seqproto.NextVal:
		return value(app.mgr.NextVal(ctx, arg))
	case seqproto.CurrentVal:
		return value(app.mgr.CurrVal(ctx, arg))
	default:
		return conn.SendError(seqerror.Newf(seqerror.SEQ_PROTOCOL_ERROR, "unexpected message %s", tp))
	}
}
