package qdb

import (
	"context"
	"fmt"

	"github.com/pg-sharding/seqmgr/pkg/config"
)

func NewQDB(ctx context.Context, cfg *config.Sequencer) (QDB, error) {
	switch cfg.QdbType {
	case config.QdbTypeEtcd:
		return NewEtcdQDB(cfg.QdbAddr)
	case config.QdbTypePostgres:
		return NewPgQDB(ctx, cfg.StorageConnString)
	case config.QdbTypeMem, "":
		return RestoreQDB(cfg.MemqdbBackupPath)
	default:
		return nil, fmt.Errorf("qdb implementation %s is invalid", cfg.QdbType)
	}
}
