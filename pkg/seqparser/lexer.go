package seqparser

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// upper returns the keyword form of the token.
func (t token) upper() string {
	return strings.ToUpper(t.text)
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of statement"
	}
	return "\"" + t.text + "\""
}

// Lex splits a statement into whitespace separated tokens. Trailing
// semicolons are dropped.
func Lex(stmt string) []string {
	stmt = strings.TrimRightFunc(stmt, func(r rune) bool {
		return r == ';' || unicode.IsSpace(r)
	})
	return strings.Fields(stmt)
}

type lexer struct {
	toks []token
	pos  int
}

func newLexer(stmt string) *lexer {
	words := Lex(stmt)
	l := &lexer{toks: make([]token, 0, len(words)+1)}
	for i, w := range words {
		l.toks = append(l.toks, token{kind: tokWord, text: w, pos: i})
	}
	l.toks = append(l.toks, token{kind: tokEOF, pos: len(words)})
	return l
}

func (l *lexer) peek() token {
	return l.toks[l.pos]
}

func (l *lexer) next() token {
	t := l.toks[l.pos]
	if t.kind != tokEOF {
		l.pos++
	}
	return t
}

// accept consumes the next token when it is the given keyword.
func (l *lexer) accept(kw string) bool {
	t := l.peek()
	if t.kind == tokWord && t.upper() == kw {
		l.pos++
		return true
	}
	return false
}
