package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pg-sharding/seqmgr/pkg/seqlog"
)

const (
	QdbTypeMem      = "mem"
	QdbTypeEtcd     = "etcd"
	QdbTypePostgres = "postgres"

	DefaultListenAddr     = "localhost:7010"
	DefaultNextValRetries = 5
)

var cfgSequencer Sequencer

type Sequencer struct {
	LogLevel    string `json:"log_level" toml:"log_level" yaml:"log_level"`
	LogFileName string `json:"log_filename" toml:"log_filename" yaml:"log_filename"`

	ListenAddr string `json:"listen_addr" toml:"listen_addr" yaml:"listen_addr"`
	ReusePort  bool   `json:"reuse_port" toml:"reuse_port" yaml:"reuse_port"`

	QdbType           string `json:"qdb_type" toml:"qdb_type" yaml:"qdb_type"`
	QdbAddr           string `json:"qdb_addr" toml:"qdb_addr" yaml:"qdb_addr"`
	StorageConnString string `json:"storage_connstring" toml:"storage_connstring" yaml:"storage_connstring"`
	MemqdbBackupPath  string `json:"memqdb_backup_path" toml:"memqdb_backup_path" yaml:"memqdb_backup_path"`

	// QlogPath is the journal of successfully executed DDL, replayed on start.
	QlogPath string   `json:"qlog_path" toml:"qlog_path" yaml:"qlog_path"`
	InitSQL  []string `json:"init_sql" toml:"init_sql" yaml:"init_sql"`

	NextValRetries int `json:"nextval_retries" toml:"nextval_retries" yaml:"nextval_retries"`
}

// ApplyDefaults fills zero-valued settings.
func (s *Sequencer) ApplyDefaults() {
	if s.ListenAddr == "" {
		s.ListenAddr = DefaultListenAddr
	}
	if s.QdbType == "" {
		s.QdbType = QdbTypeMem
	}
	if s.NextValRetries <= 0 {
		s.NextValRetries = DefaultNextValRetries
	}
}

func (s *Sequencer) Validate() error {
	switch s.QdbType {
	case QdbTypeMem:
		return nil
	case QdbTypeEtcd:
		if s.QdbAddr == "" {
			return fmt.Errorf("qdb_addr is required for qdb_type %q", s.QdbType)
		}
	case QdbTypePostgres:
		if s.StorageConnString == "" {
			return fmt.Errorf("storage_connstring is required for qdb_type %q", s.QdbType)
		}
	default:
		return fmt.Errorf("qdb implementation %s is invalid", s.QdbType)
	}
	return nil
}

func LoadSequencerCfg(cfgPath string) error {
	file, err := os.Open(cfgPath)
	if err != nil {
		return err
	}
	defer file.Close()

	var loaded Sequencer
	if err := initConfig(file, &loaded); err != nil {
		return err
	}
	loaded.ApplyDefaults()
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfgSequencer = loaded

	configBytes, err := json.MarshalIndent(&cfgSequencer, "", "  ")
	if err != nil {
		return err
	}

	seqlog.Zero.Info().RawJSON("config", configBytes).Msg("running config")
	return nil
}

func SequencerConfig() *Sequencer {
	return &cfgSequencer
}
