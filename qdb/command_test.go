package qdb_test

import (
	"errors"
	"testing"

	"github.com/pg-sharding/seqmgr/qdb"
	"github.com/stretchr/testify/assert"
)

func TestExecuteCommandsUndoOnSaverFailure(t *testing.T) {
	assert := assert.New(t)

	m := map[string]int{"a": 1}
	err := qdb.ExecuteCommands(func() error { return errors.New("disk full") },
		qdb.NewUpdateCommand(m, "a", 2),
		qdb.NewUpdateCommand(m, "b", 3),
		qdb.NewDeleteCommand(m, "a"),
	)
	assert.EqualError(err, "disk full")
	assert.Equal(map[string]int{"a": 1}, m)
}

func TestExecuteCommandsApplies(t *testing.T) {
	assert := assert.New(t)

	m := map[string]int{"a": 1, "b": 2}
	saved := false
	err := qdb.ExecuteCommands(func() error {
		saved = true
		return nil
	}, qdb.NewDeleteCommand(m, "a"), qdb.NewUpdateCommand(m, "b", 5))
	assert.NoError(err)
	assert.True(saved)
	assert.Equal(map[string]int{"b": 5}, m)
}
