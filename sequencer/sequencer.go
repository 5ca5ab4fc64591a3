package sequencer

import "context"

// SeqAM is an access method bound to a single sequence.
type SeqAM interface {
	Read(ctx context.Context) (int64, error)
	NextVal(ctx context.Context) (int64, error)
}

type SeqState struct {
	Tag int64
}
