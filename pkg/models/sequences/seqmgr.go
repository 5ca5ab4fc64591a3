package sequences

import (
	"context"
)

type SequenceMgr interface {
	CreateSequence(ctx context.Context, stmt string) error
	ListSequences(ctx context.Context) ([]string, error)
	GetSequence(ctx context.Context, seqName string) (*Sequence, error)
	NextVal(ctx context.Context, seqName string) (int64, error)
	CurrVal(ctx context.Context, seqName string) (int64, error)

	DropSequence(ctx context.Context, name string) error
}
