package qdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"sync"

	"github.com/pg-sharding/seqmgr/pkg/seqlog"
)

type MemQDB struct {
	mu sync.RWMutex

	Tables map[string]*Table         `json:"tables"`
	Rows   map[string]map[string]Row `json:"rows"`

	backupPath string
}

var _ QDB = &MemQDB{}

func NewMemQDB(backupPath string) (*MemQDB, error) {
	return &MemQDB{
		Tables: map[string]*Table{},
		Rows:   map[string]map[string]Row{},

		backupPath: backupPath,
	}, nil
}

// RestoreQDB opens a MemQDB backed by the JSON file at backupPath, loading its
// state when the file exists. An empty path gives a purely in-memory catalog.
func RestoreQDB(backupPath string) (*MemQDB, error) {
	qdb, err := NewMemQDB(backupPath)
	if err != nil {
		return nil, err
	}
	if backupPath == "" {
		return qdb, nil
	}
	if _, err := os.Stat(backupPath); err != nil {
		seqlog.Zero.Info().Err(err).Msg("memqdb backup file not exists. Creating new one.")
		f, err := os.Create(backupPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return qdb, nil
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return qdb, nil
	}
	if err := json.Unmarshal(data, qdb); err != nil {
		return nil, err
	}
	for name := range qdb.Tables {
		if qdb.Rows[name] == nil {
			qdb.Rows[name] = map[string]Row{}
		}
	}

	seqlog.Zero.Debug().
		Str("path", backupPath).
		Int("tables", len(qdb.Tables)).
		Msg("memqdb: restored from backup")
	return qdb, nil
}

// DumpState writes the catalog to the backup file through a temporary file
// and a rename. Callers hold q.mu.
func (q *MemQDB) DumpState() error {
	if q.backupPath == "" {
		return nil
	}
	tmpPath := q.backupPath + ".tmp"

	state, err := json.MarshalIndent(q, "", "	")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmpPath, state, 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, q.backupPath)
}

// ==============================================================================
//                                   TABLES
// ==============================================================================

func (q *MemQDB) CreateTable(_ context.Context, t *Table) error {
	seqlog.Zero.Debug().Str("table", t.Name).Msg("memqdb: create table")
	q.mu.Lock()
	defer q.mu.Unlock()

	if prev, ok := q.Tables[t.Name]; ok {
		if reflect.DeepEqual(prev, t) {
			return nil
		}
		return fmt.Errorf("table %s already exists with a different definition", t.Name)
	}
	if _, ok := t.column(t.Key); !ok {
		return fmt.Errorf("table %s: key column %s is not declared", t.Name, t.Key)
	}

	return ExecuteCommands(q.DumpState, NewUpdateCommand(q.Tables, t.Name, t),
		NewUpdateCommand(q.Rows, t.Name, map[string]Row{}))
}

func (q *MemQDB) GetTable(_ context.Context, name string) (*Table, error) {
	seqlog.Zero.Debug().Str("table", name).Msg("memqdb: get table")
	q.mu.RLock()
	defer q.mu.RUnlock()

	t, ok := q.Tables[name]
	if !ok {
		return nil, unknownTable(name)
	}
	return t, nil
}

func (q *MemQDB) ListTables(_ context.Context) ([]*Table, error) {
	seqlog.Zero.Debug().Msg("memqdb: list tables")
	q.mu.RLock()
	defer q.mu.RUnlock()

	var ret []*Table
	for _, t := range q.Tables {
		ret = append(ret, t)
	}

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Name < ret[j].Name
	})

	return ret, nil
}

// ==============================================================================
//                                    ROWS
// ==============================================================================

func (q *MemQDB) InsertRow(_ context.Context, table string, row Row) (bool, error) {
	seqlog.Zero.Debug().Str("table", table).Interface("row", row).Msg("memqdb: insert row")
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.Tables[table]
	if !ok {
		return false, unknownTable(table)
	}
	if err := t.CheckRow(row); err != nil {
		return false, err
	}

	key := t.KeyOf(row)
	if _, ok := q.Rows[table][key]; ok {
		return false, nil
	}

	if err := ExecuteCommands(q.DumpState, NewUpdateCommand(q.Rows[table], key, row.Copy())); err != nil {
		return false, err
	}
	return true, nil
}

// matchingKeys returns the keys of rows whose field equals value, in key order.
// Callers hold q.mu.
func (q *MemQDB) matchingKeys(t *Table, field string, value Value) []string {
	rows := q.Rows[t.Name]
	if field == t.Key {
		if _, ok := rows[value.String()]; ok && rows[value.String()][field].Equal(value) {
			return []string{value.String()}
		}
		return nil
	}

	var keys []string
	for k, r := range rows {
		if v, ok := r[field]; ok && v.Equal(value) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (q *MemQDB) FindRow(_ context.Context, table string, field string, value Value) (Row, bool, error) {
	seqlog.Zero.Debug().Str("table", table).Str("field", field).Str("value", value.String()).Msg("memqdb: find row")
	q.mu.RLock()
	defer q.mu.RUnlock()

	t, ok := q.Tables[table]
	if !ok {
		return nil, false, unknownTable(table)
	}

	keys := q.matchingKeys(t, field, value)
	if len(keys) == 0 {
		return nil, false, nil
	}
	return q.Rows[table][keys[0]].Copy(), true, nil
}

func (q *MemQDB) UpdateRow(_ context.Context, table string, field string, value Value, updated Row) (bool, error) {
	seqlog.Zero.Debug().Str("table", table).Str("field", field).Interface("update", updated).Msg("memqdb: update row")
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.Tables[table]
	if !ok {
		return false, unknownTable(table)
	}
	if err := t.CheckUpdate(updated); err != nil {
		return false, err
	}

	keys := q.matchingKeys(t, field, value)
	if len(keys) == 0 {
		return false, nil
	}

	commands := make([]Command, 0, len(keys))
	for _, k := range keys {
		commands = append(commands, NewUpdateCommand(q.Rows[table], k, merge(q.Rows[table][k], updated)))
	}
	if err := ExecuteCommands(q.DumpState, commands...); err != nil {
		return false, err
	}
	return true, nil
}

func (q *MemQDB) CompareAndSwapRow(_ context.Context, table string, key Value, expected Row, updated Row) (bool, error) {
	seqlog.Zero.Debug().
		Str("table", table).
		Str("key", key.String()).
		Interface("expected", expected).
		Interface("update", updated).
		Msg("memqdb: compare and swap row")
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.Tables[table]
	if !ok {
		return false, unknownTable(table)
	}
	if err := t.CheckUpdate(updated); err != nil {
		return false, err
	}

	cur, ok := q.Rows[table][key.String()]
	if !ok || !cur.Matches(expected) {
		return false, nil
	}

	if err := ExecuteCommands(q.DumpState, NewUpdateCommand(q.Rows[table], key.String(), merge(cur, updated))); err != nil {
		return false, err
	}
	return true, nil
}

func (q *MemQDB) DeleteRow(_ context.Context, table string, field string, value Value) (bool, error) {
	seqlog.Zero.Debug().Str("table", table).Str("field", field).Str("value", value.String()).Msg("memqdb: delete row")
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.Tables[table]
	if !ok {
		return false, unknownTable(table)
	}

	keys := q.matchingKeys(t, field, value)
	if len(keys) == 0 {
		return false, nil
	}

	commands := make([]Command, 0, len(keys))
	for _, k := range keys {
		commands = append(commands, NewDeleteCommand(q.Rows[table], k))
	}
	if err := ExecuteCommands(q.DumpState, commands...); err != nil {
		return false, err
	}
	return true, nil
}

func (q *MemQDB) ListRows(_ context.Context, table string) ([]Row, error) {
	seqlog.Zero.Debug().Str("table", table).Msg("memqdb: list rows")
	q.mu.RLock()
	defer q.mu.RUnlock()

	if _, ok := q.Tables[table]; !ok {
		return nil, unknownTable(table)
	}

	keys := make([]string, 0, len(q.Rows[table]))
	for k := range q.Rows[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ret := make([]Row, 0, len(keys))
	for _, k := range keys {
		ret = append(ret, q.Rows[table][k].Copy())
	}
	return ret, nil
}

func (q *MemQDB) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.DumpState()
}

func merge(row Row, updated Row) Row {
	ret := row.Copy()
	for k, v := range updated {
		ret[k] = v
	}
	return ret
}
