package ops

import (
	"context"
	"fmt"

	"github.com/pg-sharding/seqmgr/pkg/models/seqerror"
	"github.com/pg-sharding/seqmgr/pkg/models/sequences"
	"github.com/pg-sharding/seqmgr/pkg/seqlog"
	"github.com/pg-sharding/seqmgr/qdb"
)

func notFound(name string) error {
	return seqerror.Newf(seqerror.SEQ_NOT_FOUND, "sequence %q does not exist", name)
}

// CreateSequenceWithChecks stores a new sequence row. The insert is atomic on
// the sequence name, so of two racing creators exactly one succeeds.
func CreateSequenceWithChecks(ctx context.Context, db qdb.QDB, seq *sequences.Sequence) error {
	if err := seq.Check(); err != nil {
		return err
	}

	inserted, err := db.InsertRow(ctx, sequences.SequenceTable, sequences.SequenceToDB(seq))
	if err != nil {
		return err
	}
	if !inserted {
		return seqerror.Newf(seqerror.SEQ_DUPLICATE_NAME, "sequence %q already exists", seq.Name)
	}

	seqlog.Zero.Debug().Str("sequence", seq.Name).Int64("obj id", seq.ObjID).Msg("sequence created")
	return nil
}

func GetSequence(ctx context.Context, db qdb.QDB, name string) (*sequences.Sequence, error) {
	row, found, err := db.FindRow(ctx, sequences.SequenceTable, sequences.ColName, qdb.TextValue(name))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFound(name)
	}
	return sequences.SequenceFromDB(row)
}

func ListSequences(ctx context.Context, db qdb.QDB) ([]*sequences.Sequence, error) {
	rows, err := db.ListRows(ctx, sequences.SequenceTable)
	if err != nil {
		return nil, err
	}

	ret := make([]*sequences.Sequence, 0, len(rows))
	for _, row := range rows {
		seq, err := sequences.SequenceFromDB(row)
		if err != nil {
			return nil, err
		}
		ret = append(ret, seq)
	}
	return ret, nil
}

// UpdateSequenceValue unconditionally rewrites current_value.
func UpdateSequenceValue(ctx context.Context, db qdb.QDB, name string, value int64) error {
	updated, err := db.UpdateRow(ctx, sequences.SequenceTable, sequences.ColName, qdb.TextValue(name),
		qdb.Row{sequences.ColCurrentValue: qdb.IntValue(value)})
	if err != nil {
		return err
	}
	if !updated {
		return notFound(name)
	}
	return nil
}

// CompareAndUpdateSequenceValue sets current_value to `to` only if it still
// equals `from`, and reports false when another writer got there first.
func CompareAndUpdateSequenceValue(ctx context.Context, db qdb.QDB, name string, from, to int64) (bool, error) {
	swapped, err := db.CompareAndSwapRow(ctx, sequences.SequenceTable, qdb.TextValue(name),
		qdb.Row{sequences.ColCurrentValue: qdb.IntValue(from)},
		qdb.Row{sequences.ColCurrentValue: qdb.IntValue(to)})
	if err != nil {
		return false, err
	}
	if swapped {
		return true, nil
	}

	if _, found, err := db.FindRow(ctx, sequences.SequenceTable, sequences.ColName, qdb.TextValue(name)); err != nil {
		return false, err
	} else if !found {
		return false, notFound(name)
	}
	return false, nil
}

func DropSequence(ctx context.Context, db qdb.QDB, name string) error {
	if name == sequences.ObjectIDSequence {
		return seqerror.Newf(seqerror.SEQ_INVALID_PARAMETERS, "sequence %q is reserved", name)
	}

	deleted, err := db.DeleteRow(ctx, sequences.SequenceTable, sequences.ColName, qdb.TextValue(name))
	if err != nil {
		return err
	}
	if !deleted {
		return notFound(name)
	}
	return nil
}

// SequenceNames lists sequence names in catalog order.
func SequenceNames(ctx context.Context, db qdb.QDB) ([]string, error) {
	seqs, err := ListSequences(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	ret := make([]string, 0, len(seqs))
	for _, s := range seqs {
		ret = append(ret, s.Name)
	}
	return ret, nil
}
