package xqdbseq

import (
	"context"

	"github.com/pg-sharding/seqmgr/pkg/models/sequences"
	"github.com/pg-sharding/seqmgr/sequencer"
)

type XQDBSeq struct {
	mgr  sequences.SequenceMgr
	name string
}

// NextVal implements sequencer.SeqAM.
func (x *XQDBSeq) NextVal(ctx context.Context) (int64, error) {
	return x.mgr.NextVal(ctx, x.name)
}

// Read implements sequencer.SeqAM.
func (x *XQDBSeq) Read(ctx context.Context) (int64, error) {
	return x.mgr.CurrVal(ctx, x.name)
}

// State returns the last value handed out.
func (x *XQDBSeq) State(ctx context.Context) (sequencer.SeqState, error) {
	v, err := x.Read(ctx)
	return sequencer.SeqState{Tag: v}, err
}

func NewXQDBSeq(mgr sequences.SequenceMgr, name string) *XQDBSeq {
	return &XQDBSeq{
		name: name,
		mgr:  mgr,
	}
}

var _ sequencer.SeqAM = &XQDBSeq{}
