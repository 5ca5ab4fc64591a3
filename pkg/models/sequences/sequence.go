package sequences

import (
	"math"

	"github.com/pg-sharding/seqmgr/pkg/models/seqerror"
)

const (
	DefaultStartValue = int64(1)
	DefaultIncrement  = int64(1)

	// ObjectIDSequence is the reserved sequence handing out catalog object ids.
	ObjectIDSequence = "objectID"
)

// Params is a parsed CREATE SEQUENCE statement. Nil bounds were not given
// explicitly and are derived from the direction by Validate.
type Params struct {
	Name       string
	StartValue int64
	Increment  int64
	MinValue   *int64
	MaxValue   *int64
	Cycle      bool
}

func NewParams(name string) *Params {
	return &Params{
		Name:       name,
		StartValue: DefaultStartValue,
		Increment:  DefaultIncrement,
	}
}

// Sequence is one row of the sequence catalog.
type Sequence struct {
	ObjID        int64
	Name         string
	StartValue   int64
	Increment    int64
	MinValue     int64
	MaxValue     int64
	Cycle        bool
	CurrentValue int64
}

func invalid(format string, a ...any) error {
	return seqerror.Newf(seqerror.SEQ_INVALID_PARAMETERS, format, a...)
}

// Validate fills the default bounds and checks the sequence invariants.
// An ascending sequence defaults to [start, MaxInt64], a descending one to
// [MinInt64, start].
func (p *Params) Validate() (*Sequence, error) {
	if p.Increment == 0 {
		return nil, invalid("increment is zero")
	}

	seq := &Sequence{
		Name:         p.Name,
		StartValue:   p.StartValue,
		Increment:    p.Increment,
		Cycle:        p.Cycle,
		CurrentValue: p.StartValue,
	}

	if p.Increment > 0 {
		seq.MinValue, seq.MaxValue = p.StartValue, math.MaxInt64
	} else {
		seq.MinValue, seq.MaxValue = math.MinInt64, p.StartValue
	}
	if p.MinValue != nil {
		seq.MinValue = *p.MinValue
	}
	if p.MaxValue != nil {
		seq.MaxValue = *p.MaxValue
	}

	if err := seq.checkBounds(); err != nil {
		return nil, err
	}
	if seq.Name == "" {
		return nil, invalid("sequence name is empty")
	}
	return seq, nil
}

func (s *Sequence) checkBounds() error {
	if s.MinValue > s.MaxValue {
		return invalid("min value %d is greater than max value %d", s.MinValue, s.MaxValue)
	}
	if s.StartValue < s.MinValue || s.StartValue > s.MaxValue {
		return invalid("start value %d outside [%d,%d]", s.StartValue, s.MinValue, s.MaxValue)
	}
	return nil
}

// Check verifies the invariants a stored sequence must hold.
func (s *Sequence) Check() error {
	if s.Name == "" {
		return invalid("sequence name is empty")
	}
	if s.Increment == 0 {
		return invalid("increment is zero")
	}
	if err := s.checkBounds(); err != nil {
		return err
	}
	if s.CurrentValue < s.MinValue || s.CurrentValue > s.MaxValue {
		return invalid("current value %d outside [%d,%d]", s.CurrentValue, s.MinValue, s.MaxValue)
	}
	return nil
}

func (s *Sequence) Ascending() bool {
	return s.Increment > 0
}

func absUint64(v int64) uint64 {
	if v >= 0 {
		return uint64(v)
	}
	return uint64(-(v + 1)) + 1
}

// Advance computes the value following CurrentValue and returns it together
// with an updated copy of s. The receiver is left untouched; persisting the
// copy is up to the caller.
func (s *Sequence) Advance() (int64, *Sequence, error) {
	if s.CurrentValue < s.MinValue || s.CurrentValue > s.MaxValue {
		return 0, nil, seqerror.Newf(seqerror.SEQ_CORRUPT_ROW,
			"sequence %q current value %d outside [%d,%d]", s.Name, s.CurrentValue, s.MinValue, s.MaxValue)
	}

	step := absUint64(s.Increment)
	var candidate int64

	if s.Ascending() {
		// distance to the bound fits uint64 even when it overflows int64
		if step > uint64(s.MaxValue)-uint64(s.CurrentValue) {
			if !s.Cycle {
				return 0, nil, seqerror.Newf(seqerror.SEQ_EXHAUSTED,
					"nextval: reached maximum value of sequence %q (%d)", s.Name, s.MaxValue)
			}
			candidate = s.MinValue
		} else {
			candidate = s.CurrentValue + s.Increment
		}
	} else {
		if step > uint64(s.CurrentValue)-uint64(s.MinValue) {
			if !s.Cycle {
				return 0, nil, seqerror.Newf(seqerror.SEQ_EXHAUSTED,
					"nextval: reached minimum value of sequence %q (%d)", s.Name, s.MinValue)
			}
			candidate = s.MaxValue
		} else {
			candidate = s.CurrentValue + s.Increment
		}
	}

	next := *s
	next.CurrentValue = candidate
	return candidate, &next, nil
}
