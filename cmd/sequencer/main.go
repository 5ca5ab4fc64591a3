package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pg-sharding/seqmgr/pkg"
	"github.com/pg-sharding/seqmgr/pkg/config"
	"github.com/pg-sharding/seqmgr/pkg/initdb"
	"github.com/pg-sharding/seqmgr/pkg/models/sequences"
	"github.com/pg-sharding/seqmgr/pkg/seqlog"
	"github.com/pg-sharding/seqmgr/qdb"
	"github.com/pg-sharding/seqmgr/sequencer/app"
	"github.com/pg-sharding/seqmgr/sequencer/seqproto"
)

var (
	rcfgPath   string
	serverAddr string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "seqmgr run --config `path-to-config`",
		Short: "seqmgr",
		Long:  "seqmgr: sequence object manager",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Version:       pkg.SeqmgrVersionRevision,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				return seqlog.UpdateZeroLogLevel(logLevel)
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rcfgPath, "config", "c", "/etc/seqmgr/sequencer.yaml", "path to sequencer config file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "override log level")

	for _, c := range []*cobra.Command{nextvalCmd, currvalCmd, dropCmd, execCmd} {
		c.Flags().StringVarP(&serverAddr, "addr", "a", "", "send the request to a running sequencer instead of opening the catalog")
	}

	rootCmd.AddCommand(runCmd, execCmd, nextvalCmd, currvalCmd, dropCmd, dumpCmd, versionCmd)
}

func loadConfig() (*config.Sequencer, error) {
	if err := config.LoadSequencerCfg(rcfgPath); err != nil {
		return nil, errors.Wrapf(err, "load config %s", rcfgPath)
	}
	cfg := config.SequencerConfig()

	seqlog.ReloadLogger(cfg.LogFileName)
	if logLevel == "" {
		if err := seqlog.UpdateZeroLogLevel(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// withEngine runs f against the locally configured catalog.
func withEngine(ctx context.Context, f func(e *initdb.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	e, err := initdb.Open(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "sequencer failed to start")
	}
	defer func() {
		if err := e.Close(); err != nil {
			seqlog.Zero.Error().Err(err).Msg("failed to close catalog")
		}
	}()
	return f(e)
}

// withClient runs f against a remote sequencer when --addr is set and
// against the local catalog otherwise.
func withClient(ctx context.Context, f func(c sequenceClient) error) error {
	if serverAddr != "" {
		cl, err := seqproto.Dial(ctx, serverAddr)
		if err != nil {
			return errors.Wrapf(err, "connect to %s", serverAddr)
		}
		defer cl.Close()
		return f(cl)
	}
	return withEngine(ctx, func(e *initdb.Engine) error {
		return f(e.Mgr())
	})
}

type sequenceClient interface {
	CreateSequence(ctx context.Context, stmt string) error
	NextVal(ctx context.Context, name string) (int64, error)
	CurrVal(ctx context.Context, name string) (int64, error)
	DropSequence(ctx context.Context, name string) error
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run sequencer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancelCtx := context.WithCancel(context.Background())
		defer cancelCtx()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

		go func() {
			for {
				s := <-sigs
				seqlog.Zero.Info().Str("signal", s.String()).Msg("received signal")

				switch s {
				case syscall.SIGHUP:
					seqlog.ReloadLogger(cfg.LogFileName)
				case syscall.SIGINT, syscall.SIGTERM:
					cancelCtx()
					return
				}
			}
		}()

		e, err := initdb.Open(ctx, cfg)
		if err != nil {
			return errors.Wrap(err, "sequencer failed to start")
		}
		defer func() {
			if err := e.Close(); err != nil {
				seqlog.Zero.Error().Err(err).Msg("failed to close catalog")
			}
		}()

		return app.NewApp(e.Mgr(), cfg).ServeSequencer(ctx)
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <statement>",
	Short: "execute a CREATE SEQUENCE statement",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stmt := strings.Join(args, " ")
		return withClient(cmd.Context(), func(c sequenceClient) error {
			if err := c.CreateSequence(cmd.Context(), stmt); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "CREATE SEQUENCE")
			return nil
		})
	},
}

var nextvalCmd = &cobra.Command{
	Use:   "nextval <name>",
	Short: "advance a sequence and print the new value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(c sequenceClient) error {
			v, err := c.NextVal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		})
	},
}

var currvalCmd = &cobra.Command{
	Use:   "currval <name>",
	Short: "print the current value of a sequence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(c sequenceClient) error {
			v, err := c.CurrVal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		})
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop <name>",
	Short: "drop a sequence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(c sequenceClient) error {
			if err := c.DropSequence(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "DROP SEQUENCE")
			return nil
		})
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump [table]",
	Short: "print the contents of a catalog table",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := sequences.SequenceTable
		if len(args) == 1 {
			table = args[0]
		}
		return withEngine(cmd.Context(), func(e *initdb.Engine) error {
			return qdb.DumpTable(cmd.Context(), e.DB(), table, cmd.OutOrStdout())
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "seqmgr", pkg.SeqmgrVersionRevision)
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		seqlog.Zero.Fatal().Err(err).Msg("")
	}
}
