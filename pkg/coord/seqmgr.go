package coord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spaolacci/murmur3"

	"github.com/pg-sharding/seqmgr/pkg/config"
	"github.com/pg-sharding/seqmgr/pkg/models/seqerror"
	"github.com/pg-sharding/seqmgr/pkg/models/sequences"
	"github.com/pg-sharding/seqmgr/pkg/seqlog"
	"github.com/pg-sharding/seqmgr/pkg/seqparser"
	"github.com/pg-sharding/seqmgr/qdb"
	"github.com/pg-sharding/seqmgr/qdb/ops"
	"github.com/pg-sharding/seqmgr/qdb/qlog"
)

const lockStripes = 64

var errStaleValue = errors.New("current value changed concurrently")

type Option func(*LocalSequenceMgr)

// WithQlog journals every successful CREATE and DROP to q.
func WithQlog(q qlog.Qlog) Option {
	return func(m *LocalSequenceMgr) {
		m.qlog = q
	}
}

// WithNextValRetries bounds the compare-and-update retries of NextVal.
func WithNextValRetries(n int) Option {
	return func(m *LocalSequenceMgr) {
		if n > 0 {
			m.retries = uint64(n)
		}
	}
}

func WithRetryBackoff(d time.Duration) Option {
	return func(m *LocalSequenceMgr) {
		if d > 0 {
			m.backoff = d
		}
	}
}

// LocalSequenceMgr serves sequences stored in a catalog QDB. Calls for the
// same name are serialized in-process; writers in other processes are
// handled by compare-and-update on current_value.
type LocalSequenceMgr struct {
	db      qdb.QDB
	qlog    qlog.Qlog
	retries uint64
	backoff time.Duration

	locks [lockStripes]sync.Mutex
}

var _ sequences.SequenceMgr = &LocalSequenceMgr{}

func NewLocalSequenceMgr(db qdb.QDB, opts ...Option) *LocalSequenceMgr {
	m := &LocalSequenceMgr{
		db:      db,
		retries: config.DefaultNextValRetries,
		backoff: 2 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// stripe hashes through the streaming digest; murmur3.Sum32 walks the input
// with uintptr arithmetic that checkptr rejects under -race.
func stripe(name string) uint32 {
	h := murmur3.New32()
	_, _ = h.Write([]byte(name))
	return h.Sum32() % lockStripes
}

func (m *LocalSequenceMgr) lock(name string) func() {
	mu := &m.locks[stripe(name)]
	mu.Lock()
	return mu.Unlock
}

// CreateSequence parses, validates and stores a CREATE SEQUENCE statement.
func (m *LocalSequenceMgr) CreateSequence(ctx context.Context, stmt string) error {
	params, err := seqparser.Parse(stmt)
	if err != nil {
		return err
	}
	seq, err := params.Validate()
	if err != nil {
		return err
	}
	if seq.Name == sequences.ObjectIDSequence {
		return seqerror.Newf(seqerror.SEQ_INVALID_PARAMETERS, "sequence name %q is reserved", seq.Name)
	}

	if _, err := ops.GetSequence(ctx, m.db, seq.Name); err == nil {
		return seqerror.Newf(seqerror.SEQ_DUPLICATE_NAME, "sequence %q already exists", seq.Name)
	} else if !seqerror.HasCode(err, seqerror.SEQ_NOT_FOUND) {
		return err
	}

	// the object id is taken before the name lock: both may share a stripe
	id, err := m.NextObjectID(ctx)
	if err != nil {
		return fmt.Errorf("allocate object id: %w", err)
	}
	seq.ObjID = id

	unlock := m.lock(seq.Name)
	defer unlock()

	seqlog.Zero.Info().
		Str("sequence", seq.Name).
		Int64("obj id", seq.ObjID).
		Int64("start", seq.StartValue).
		Int64("increment", seq.Increment).
		Int64("min", seq.MinValue).
		Int64("max", seq.MaxValue).
		Bool("cycle", seq.Cycle).
		Msg("creating sequence")

	if err := ops.CreateSequenceWithChecks(ctx, m.db, seq); err != nil {
		return err
	}

	// journaled under the name lock so a concurrent DROP is recorded after it
	if m.qlog != nil {
		if err := m.qlog.DumpQuery(ctx, stmt); err != nil {
			seqlog.Zero.Error().Err(err).Str("sequence", seq.Name).Msg("failed to journal create sequence")
		}
	}
	return nil
}

// NextObjectID hands out the next catalog object id.
func (m *LocalSequenceMgr) NextObjectID(ctx context.Context) (int64, error) {
	return m.NextVal(ctx, sequences.ObjectIDSequence)
}

// NextVal advances the named sequence and returns the new value. An
// exhausted sequence is left unchanged.
func (m *LocalSequenceMgr) NextVal(ctx context.Context, seqName string) (int64, error) {
	unlock := m.lock(seqName)
	defer unlock()

	b := retry.WithMaxRetries(m.retries, retry.NewConstant(m.backoff))
	value, err := retry.DoValue(ctx, b, func(ctx context.Context) (int64, error) {
		seq, err := ops.GetSequence(ctx, m.db, seqName)
		if err != nil {
			return 0, err
		}

		v, next, err := seq.Advance()
		if err != nil {
			return 0, err
		}

		swapped, err := ops.CompareAndUpdateSequenceValue(ctx, m.db, seqName, seq.CurrentValue, next.CurrentValue)
		if err != nil {
			return 0, err
		}
		if !swapped {
			seqlog.Zero.Debug().Str("sequence", seqName).Int64("expected", seq.CurrentValue).Msg("nextval: lost update race, retrying")
			return 0, retry.RetryableError(errStaleValue)
		}
		return v, nil
	})

	if errors.Is(err, errStaleValue) {
		return 0, seqerror.Newf(seqerror.SEQ_CONTENTION,
			"nextval: sequence %q changed concurrently %d times in a row", seqName, m.retries+1)
	}
	if err != nil {
		return 0, err
	}

	seqlog.Zero.Debug().Str("sequence", seqName).Int64("value", value).Msg("nextval")
	return value, nil
}

// CurrVal returns the last value handed out, or the start value if NextVal
// was never called.
func (m *LocalSequenceMgr) CurrVal(ctx context.Context, seqName string) (int64, error) {
	seq, err := ops.GetSequence(ctx, m.db, seqName)
	if err != nil {
		return 0, err
	}
	return seq.CurrentValue, nil
}

func (m *LocalSequenceMgr) GetSequence(ctx context.Context, seqName string) (*sequences.Sequence, error) {
	return ops.GetSequence(ctx, m.db, seqName)
}

func (m *LocalSequenceMgr) ListSequences(ctx context.Context) ([]string, error) {
	return ops.SequenceNames(ctx, m.db)
}

func (m *LocalSequenceMgr) DropSequence(ctx context.Context, name string) error {
	unlock := m.lock(name)
	defer unlock()

	if err := ops.DropSequence(ctx, m.db, name); err != nil {
		return err
	}
	seqlog.Zero.Info().Str("sequence", name).Msg("sequence dropped")

	if m.qlog != nil {
		if err := m.qlog.DumpQuery(ctx, "DROP SEQUENCE "+name); err != nil {
			seqlog.Zero.Error().Err(err).Str("sequence", name).Msg("failed to journal drop sequence")
		}
	}
	return nil
}
