package qdb

import (
	"fmt"
	"strconv"
)

type ColumnType string

const (
	ColumnTypeInteger = ColumnType("integer")
	ColumnTypeVarchar = ColumnType("varchar")
)

// Value is a single typed catalog cell.
type Value struct {
	Type ColumnType `json:"type"`
	Int  int64      `json:"int,omitempty"`
	Text string     `json:"text,omitempty"`
}

func IntValue(v int64) Value {
	return Value{Type: ColumnTypeInteger, Int: v}
}

func TextValue(v string) Value {
	return Value{Type: ColumnTypeVarchar, Text: v}
}

func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ColumnTypeInteger:
		return v.Int == other.Int
	default:
		return v.Text == other.Text
	}
}

func (v Value) String() string {
	switch v.Type {
	case ColumnTypeInteger:
		return strconv.FormatInt(v.Int, 10)
	default:
		return v.Text
	}
}

// Row maps column names to values.
type Row map[string]Value

func (r Row) Copy() Row {
	ret := make(Row, len(r))
	for k, v := range r {
		ret[k] = v
	}
	return ret
}

// Matches reports whether every column of expected holds the same value in r.
func (r Row) Matches(expected Row) bool {
	for k, v := range expected {
		cur, ok := r[k]
		if !ok || !cur.Equal(v) {
			return false
		}
	}
	return true
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table describes a catalog table. Key names the column holding the unique
// row key; inserts are insert-if-absent on it.
type Table struct {
	Name    string   `json:"name"`
	Key     string   `json:"key"`
	Columns []Column `json:"columns"`
}

func NewTable(name, key string, columns ...Column) *Table {
	return &Table{
		Name:    name,
		Key:     key,
		Columns: columns,
	}
}

func (t *Table) column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// CheckRow verifies that row carries exactly the table's columns with the
// declared types.
func (t *Table) CheckRow(row Row) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("table %s expects %d columns, got %d", t.Name, len(t.Columns), len(row))
	}
	for _, c := range t.Columns {
		v, ok := row[c.Name]
		if !ok {
			return fmt.Errorf("table %s: missing column %s", t.Name, c.Name)
		}
		if v.Type != c.Type {
			return fmt.Errorf("table %s: column %s is %s, got %s", t.Name, c.Name, c.Type, v.Type)
		}
	}
	return nil
}

// CheckUpdate verifies that every column of an update is declared with a
// matching type and that the key column is left alone.
func (t *Table) CheckUpdate(update Row) error {
	for name, v := range update {
		if name == t.Key {
			return fmt.Errorf("table %s: key column %s cannot be updated", t.Name, name)
		}
		c, ok := t.column(name)
		if !ok {
			return fmt.Errorf("table %s: unknown column %s", t.Name, name)
		}
		if v.Type != c.Type {
			return fmt.Errorf("table %s: column %s is %s, got %s", t.Name, name, c.Type, v.Type)
		}
	}
	return nil
}

func (t *Table) KeyOf(row Row) string {
	return row[t.Key].String()
}
