package initdb

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/pg-sharding/seqmgr/pkg/config"
	"github.com/pg-sharding/seqmgr/pkg/coord"
	"github.com/pg-sharding/seqmgr/pkg/models/seqerror"
	"github.com/pg-sharding/seqmgr/pkg/models/sequences"
	"github.com/pg-sharding/seqmgr/pkg/seqlog"
	"github.com/pg-sharding/seqmgr/pkg/seqparser"
	"github.com/pg-sharding/seqmgr/qdb"
	"github.com/pg-sharding/seqmgr/qdb/ops"
	qlog "github.com/pg-sharding/seqmgr/qdb/qlog/provider"
)

// Bootstrap creates the system catalog and the object id sequence. Running it
// against an initialized catalog is a no-op.
func Bootstrap(ctx context.Context, db qdb.QDB) error {
	if err := db.CreateTable(ctx, sequences.CatalogTable()); err != nil {
		return errors.Wrap(err, "create sequence catalog")
	}

	floor := int64(0)
	objectID, err := (&sequences.Params{
		Name:       sequences.ObjectIDSequence,
		StartValue: 0,
		Increment:  1,
		MinValue:   &floor,
	}).Validate()
	if err != nil {
		return err
	}

	err = ops.CreateSequenceWithChecks(ctx, db, objectID)
	switch {
	case err == nil:
		seqlog.Zero.Info().Str("table", sequences.SequenceTable).Msg("sequence catalog initialized")
	case seqerror.HasCode(err, seqerror.SEQ_DUPLICATE_NAME):
		seqlog.Zero.Debug().Str("table", sequences.SequenceTable).Msg("sequence catalog already initialized")
	default:
		return errors.Wrap(err, "create object id sequence")
	}
	return nil
}

// ProcessQueryInit applies one journaled statement. Statements already
// reflected in the catalog are skipped.
func ProcessQueryInit(ctx context.Context, mgr sequences.SequenceMgr, q string) error {
	tstmt, err := seqparser.ParseStatement(q)
	if err != nil {
		return err
	}

	switch stmt := tstmt.(type) {
	case *seqparser.CreateSequence:
		err = mgr.CreateSequence(ctx, q)
		if seqerror.HasCode(err, seqerror.SEQ_DUPLICATE_NAME) {
			seqlog.Zero.Debug().Str("sequence", stmt.Params.Name).Msg("replay: sequence exists, skipping")
			return nil
		}
		return err
	case *seqparser.DropSequence:
		err = mgr.DropSequence(ctx, stmt.Name)
		if seqerror.HasCode(err, seqerror.SEQ_NOT_FOUND) {
			seqlog.Zero.Debug().Str("sequence", stmt.Name).Msg("replay: sequence absent, skipping")
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown init statement %T", stmt)
	}
}

// ReplayFile runs every statement of a journal or init file through mgr.
func ReplayFile(ctx context.Context, mgr sequences.SequenceMgr, fname string) error {
	qs, err := qlog.NewLocalQlog(fname).Recover(ctx)
	if err != nil {
		return errors.Wrapf(err, "read %s", fname)
	}
	for _, q := range qs {
		if err := ProcessQueryInit(ctx, mgr, q); err != nil {
			return errors.Wrapf(err, "%s: %q", fname, q)
		}
	}
	seqlog.Zero.Info().Str("file", fname).Int("statements", len(qs)).Msg("replayed init file")
	return nil
}

// Engine owns the catalog storage and the sequence manager serving it.
type Engine struct {
	db  qdb.QDB
	mgr *coord.LocalSequenceMgr
}

// Open connects the configured storage, bootstraps the catalog and replays
// init files followed by the journal.
func Open(ctx context.Context, cfg *config.Sequencer) (*Engine, error) {
	db, err := qdb.NewQDB(ctx, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s qdb", cfg.QdbType)
	}

	e, err := NewEngine(ctx, db, cfg)
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			seqlog.Zero.Error().Err(cerr).Msg("failed to close qdb")
		}
		return nil, err
	}
	return e, nil
}

func NewEngine(ctx context.Context, db qdb.QDB, cfg *config.Sequencer) (*Engine, error) {
	if err := Bootstrap(ctx, db); err != nil {
		return nil, err
	}

	// the journal only rebuilds a catalog that lost its contents
	names, err := ops.SequenceNames(ctx, db)
	if err != nil {
		return nil, err
	}
	replayJournal := len(names) <= 1

	// replayed statements must not be journaled again
	replay := coord.NewLocalSequenceMgr(db, coord.WithNextValRetries(cfg.NextValRetries))
	for _, file := range cfg.InitSQL {
		if err := ReplayFile(ctx, replay, file); err != nil {
			return nil, err
		}
	}

	opts := []coord.Option{coord.WithNextValRetries(cfg.NextValRetries)}
	if cfg.QlogPath != "" {
		if replayJournal {
			if err := ReplayFile(ctx, replay, cfg.QlogPath); err != nil {
				return nil, err
			}
		} else {
			seqlog.Zero.Info().Str("file", cfg.QlogPath).Int("sequences", len(names)).Msg("catalog is not empty, skipping qlog replay")
		}
		opts = append(opts, coord.WithQlog(qlog.NewLocalQlog(cfg.QlogPath)))
	}

	return &Engine{
		db:  db,
		mgr: coord.NewLocalSequenceMgr(db, opts...),
	}, nil
}

func (e *Engine) DB() qdb.QDB {
	return e.db
}

func (e *Engine) Mgr() *coord.LocalSequenceMgr {
	return e.mgr
}

func (e *Engine) Close() error {
	return e.db.Close()
}
