package qlog

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"

	"github.com/pg-sharding/seqmgr/pkg/seqlog"
	"github.com/pg-sharding/seqmgr/qdb/qlog"
)

type LocalQlog struct {
	mu    sync.Mutex
	fname string
}

var _ qlog.Qlog = &LocalQlog{}

func NewLocalQlog(fname string) *LocalQlog {
	return &LocalQlog{
		fname: fname,
	}
}

// DumpQuery appends one statement per line. Embedded newlines are folded
// into spaces so that Recover sees the statement as a single entry.
func (dw *LocalQlog) DumpQuery(ctx context.Context, q string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dw.mu.Lock()
	defer dw.mu.Unlock()

	file, err := os.OpenFile(dw.fname, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			seqlog.Zero.Error().Err(err).Str("file", dw.fname).Msg("failed to close qlog")
		}
	}(file)

	line := strings.Join(strings.Fields(q), " ")
	_, err = file.WriteString(line + "\n")
	return err
}

// Recover returns the journaled statements in order. A missing journal is
// treated as empty.
func (dw *LocalQlog) Recover(ctx context.Context) ([]string, error) {
	if _, err := os.Stat(dw.fname); os.IsNotExist(err) {
		seqlog.Zero.Debug().Str("file", dw.fname).Msg("qlog not found, nothing to recover")
		return nil, nil
	}

	seqlog.Zero.Info().Str("file", dw.fname).Msg("qlog found")
	file, err := os.Open(dw.fname)
	if err != nil {
		return nil, err
	}
	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			seqlog.Zero.Error().Err(err).Msg("")
		}
	}(file)

	scanner := bufio.NewScanner(file)
	scanner.Split(bufio.ScanLines)

	var queries []string
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		query := strings.TrimSpace(scanner.Text())
		if len(query) > 0 {
			queries = append(queries, query)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return queries, nil
}
