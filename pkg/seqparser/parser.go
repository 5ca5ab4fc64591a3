package seqparser

import (
	"strconv"
	"strings"

	"github.com/pg-sharding/seqmgr/pkg/models/seqerror"
	"github.com/pg-sharding/seqmgr/pkg/models/sequences"
)

type clauseFamily string

const (
	familyStart     = clauseFamily("START")
	familyIncrement = clauseFamily("INCREMENT")
	familyMinValue  = clauseFamily("MINVALUE")
	familyMaxValue  = clauseFamily("MAXVALUE")
	familyCycle     = clauseFamily("CYCLE")
)

type clause struct {
	family clauseFamily
	apply  func(l *lexer, p *sequences.Params) error
}

var clauses = map[string]clause{
	"START": {familyStart, func(l *lexer, p *sequences.Params) error {
		l.accept("WITH")
		v, err := parseInt(l, "START")
		p.StartValue = v
		return err
	}},
	"INCREMENT": {familyIncrement, func(l *lexer, p *sequences.Params) error {
		l.accept("BY")
		v, err := parseInt(l, "INCREMENT")
		p.Increment = v
		return err
	}},
	"MINVALUE": {familyMinValue, func(l *lexer, p *sequences.Params) error {
		v, err := parseInt(l, "MINVALUE")
		p.MinValue = &v
		return err
	}},
	"MAXVALUE": {familyMaxValue, func(l *lexer, p *sequences.Params) error {
		v, err := parseInt(l, "MAXVALUE")
		p.MaxValue = &v
		return err
	}},
	"CYCLE": {familyCycle, func(l *lexer, p *sequences.Params) error {
		p.Cycle = true
		switch l.peek().upper() {
		case "1", "TRUE":
			l.next()
		case "0", "FALSE":
			l.next()
			p.Cycle = false
		}
		return nil
	}},
}

// negated forms following NO
var noClauses = map[string]clause{
	"MINVALUE": {familyMinValue, func(_ *lexer, p *sequences.Params) error {
		p.MinValue = nil
		return nil
	}},
	"MAXVALUE": {familyMaxValue, func(_ *lexer, p *sequences.Params) error {
		p.MaxValue = nil
		return nil
	}},
	"CYCLE": {familyCycle, func(_ *lexer, p *sequences.Params) error {
		p.Cycle = false
		return nil
	}},
}

func parseError(format string, a ...any) error {
	return seqerror.Newf(seqerror.SEQ_PARSE_ERROR, format, a...)
}

func parseInt(l *lexer, clause string) (int64, error) {
	t := l.next()
	if t.kind == tokEOF {
		return 0, parseError("%s expects an integer, got %s", clause, t)
	}
	v, err := strconv.ParseInt(t.text, 10, 64)
	if err != nil {
		return 0, parseError("%s expects a 64-bit integer, got %s", clause, t)
	}
	return v, nil
}

func isKeyword(word string) bool {
	kw := strings.ToUpper(word)
	if _, ok := clauses[kw]; ok {
		return true
	}
	switch kw {
	case "NO", "CREATE", "SEQUENCE":
		return true
	}
	return false
}

// Parse turns a CREATE SEQUENCE statement into unvalidated parameters.
// Clauses may come in any order, but each clause family at most once.
func Parse(stmt string) (*sequences.Params, error) {
	l := newLexer(stmt)

	if !l.accept("CREATE") {
		return nil, parseError("expected CREATE, got %s", l.peek())
	}
	if !l.accept("SEQUENCE") {
		return nil, parseError("expected SEQUENCE, got %s", l.peek())
	}

	name := l.next()
	if name.kind == tokEOF || isKeyword(name.text) {
		return nil, parseError("expected sequence name, got %s", name)
	}

	params := sequences.NewParams(name.text)
	seen := map[clauseFamily]struct{}{}

	for l.peek().kind != tokEOF {
		t := l.next()
		table := clauses
		kw := t.upper()
		if kw == "NO" {
			table = noClauses
			t = l.next()
			kw = t.upper()
			if t.kind == tokEOF {
				return nil, parseError("NO expects MINVALUE, MAXVALUE or CYCLE")
			}
		}

		c, ok := table[kw]
		if !ok {
			return nil, parseError("unexpected clause %s", t)
		}
		if _, dup := seen[c.family]; dup {
			return nil, parseError("conflicting or redundant %s clause", c.family)
		}
		seen[c.family] = struct{}{}

		if err := c.apply(l, params); err != nil {
			return nil, err
		}
	}

	return params, nil
}
