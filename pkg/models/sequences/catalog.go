package sequences

import (
	"errors"

	"github.com/pg-sharding/seqmgr/pkg/models/seqerror"
	"github.com/pg-sharding/seqmgr/qdb"
)

// SequenceTable is the catalog table holding one row per sequence.
const SequenceTable = "sys_sequences"

const (
	ColObjID        = "obj_id"
	ColName         = "name"
	ColStartValue   = "start_value"
	ColIncrement    = "increment"
	ColMinValue     = "min_value"
	ColMaxValue     = "max_value"
	ColCycle        = "cycle"
	ColCurrentValue = "current_value"
)

func CatalogTable() *qdb.Table {
	return qdb.NewTable(SequenceTable, ColName,
		qdb.Column{Name: ColObjID, Type: qdb.ColumnTypeInteger},
		qdb.Column{Name: ColName, Type: qdb.ColumnTypeVarchar},
		qdb.Column{Name: ColStartValue, Type: qdb.ColumnTypeInteger},
		qdb.Column{Name: ColIncrement, Type: qdb.ColumnTypeInteger},
		qdb.Column{Name: ColMinValue, Type: qdb.ColumnTypeInteger},
		qdb.Column{Name: ColMaxValue, Type: qdb.ColumnTypeInteger},
		qdb.Column{Name: ColCycle, Type: qdb.ColumnTypeInteger},
		qdb.Column{Name: ColCurrentValue, Type: qdb.ColumnTypeInteger},
	)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func SequenceToDB(s *Sequence) qdb.Row {
	return qdb.Row{
		ColObjID:        qdb.IntValue(s.ObjID),
		ColName:         qdb.TextValue(s.Name),
		ColStartValue:   qdb.IntValue(s.StartValue),
		ColIncrement:    qdb.IntValue(s.Increment),
		ColMinValue:     qdb.IntValue(s.MinValue),
		ColMaxValue:     qdb.IntValue(s.MaxValue),
		ColCycle:        qdb.IntValue(boolToInt(s.Cycle)),
		ColCurrentValue: qdb.IntValue(s.CurrentValue),
	}
}

// SequenceFromDB decodes a catalog row and checks the stored invariants.
func SequenceFromDB(row qdb.Row) (*Sequence, error) {
	intCol := func(name string) (int64, error) {
		v, ok := row[name]
		if !ok || v.Type != qdb.ColumnTypeInteger {
			return 0, seqerror.Newf(seqerror.SEQ_CORRUPT_ROW, "sequence row: integer column %s is missing", name)
		}
		return v.Int, nil
	}

	name, ok := row[ColName]
	if !ok || name.Type != qdb.ColumnTypeVarchar {
		return nil, seqerror.New(seqerror.SEQ_CORRUPT_ROW, "sequence row: varchar column name is missing")
	}

	s := &Sequence{Name: name.Text}
	var cycle int64
	for _, f := range []struct {
		col string
		dst *int64
	}{
		{ColObjID, &s.ObjID},
		{ColStartValue, &s.StartValue},
		{ColIncrement, &s.Increment},
		{ColMinValue, &s.MinValue},
		{ColMaxValue, &s.MaxValue},
		{ColCycle, &cycle},
		{ColCurrentValue, &s.CurrentValue},
	} {
		v, err := intCol(f.col)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	s.Cycle = cycle != 0

	if err := s.Check(); err != nil {
		var se *seqerror.SeqError
		if errors.As(err, &se) {
			err = se.Err
		}
		return nil, seqerror.Newf(seqerror.SEQ_CORRUPT_ROW, "sequence row %q: %s", s.Name, err)
	}
	return s, nil
}
