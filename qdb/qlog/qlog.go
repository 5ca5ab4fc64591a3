package qlog

import "context"

// Qlog journals catalog statements so they can be replayed on startup.
type Qlog interface {
	DumpQuery(ctx context.Context, q string) error
	Recover(ctx context.Context) ([]string, error)
}
