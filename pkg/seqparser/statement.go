package seqparser

import (
	"github.com/pg-sharding/seqmgr/pkg/models/sequences"
)

type Statement interface {
	iStatement()
}

type CreateSequence struct {
	Params *sequences.Params
}

type DropSequence struct {
	Name string
}

func (*CreateSequence) iStatement() {}
func (*DropSequence) iStatement()   {}

// ParseStatement accepts the catalog statements the journal may hold:
// CREATE SEQUENCE and DROP SEQUENCE <name>.
func ParseStatement(stmt string) (Statement, error) {
	l := newLexer(stmt)

	switch l.peek().upper() {
	case "CREATE":
		p, err := Parse(stmt)
		if err != nil {
			return nil, err
		}
		return &CreateSequence{Params: p}, nil
	case "DROP":
		l.next()
		if !l.accept("SEQUENCE") {
			return nil, parseError("expected SEQUENCE, got %s", l.peek())
		}
		name := l.next()
		if name.kind == tokEOF || isKeyword(name.text) {
			return nil, parseError("expected sequence name, got %s", name)
		}
		if t := l.peek(); t.kind != tokEOF {
			return nil, parseError("unexpected %s after sequence name", t)
		}
		return &DropSequence{Name: name.text}, nil
	default:
		return nil, parseError("expected CREATE or DROP, got %s", l.peek())
	}
}
