package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/cloudbatch/batch"
	"github.com/kbukum/cloudbatch/logger"
	"github.com/kbukum/cloudbatch/multiplexer"
	"github.com/kbukum/cloudbatch/objectstore"
	"github.com/kbukum/cloudbatch/observability"
	"github.com/kbukum/cloudbatch/transport"
	"github.com/kbukum/cloudbatch/version"
)

func newRootCommand(out io.Writer) *cobra.Command {
	var o overrides

	root := &cobra.Command{
		Use:           "cloudbatch",
		Short:         "Run object-storage operations as concurrent batches",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVarP(&o.configFile, "config", "c", "", "config file (default: config.yml in the usual places)")
	flags.StringVar(&o.envFile, "env-file", "", ".env file to load (default: .env in the usual places)")
	flags.StringVar(&o.storageURL, "storage-url", "", "storage account URL")
	flags.StringVar(&o.cdnURL, "cdn-url", "", "CDN management URL")
	flags.StringVar(&o.token, "token", "", "auth token")
	flags.IntVarP(&o.maxParallel, "max-parallel", "p", 0, "requests in flight per stage (0 = all)")
	flags.BoolVarP(&o.debug, "debug", "d", false, "debug logging")
	flags.StringVarP(&o.output, "output", "o", outputText, "result format: text or json")

	root.AddCommand(
		newStatCommand(&o),
		newDeleteCommand(&o),
		newCopyCommand(&o, "copy", "Copy objects server side", (*objectstore.Client).CopyObject),
		newCopyCommand(&o, "move", "Move objects (copy, then delete the source)", (*objectstore.Client).MoveObject),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get())
		},
	}
}

// session is everything one batch command needs.
type session struct {
	store *objectstore.Client
	close func()
}

func openSession(ctx context.Context, o *overrides) (*session, error) {
	cfg, err := loadConfig(*o)
	if err != nil {
		return nil, err
	}

	logger.Init(cfg.Logging)
	logger.RegisterDefaults()
	log := logger.GetGlobalLogger()

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Observability, cfg.Name, version.Get().Short(), cfg.Environment)
	if err != nil {
		return nil, err
	}
	metrics, err := observability.NewBatchMetrics(observability.Meter(serviceName))
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, err
	}

	tc, err := transport.New(cfg.Storage)
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, err
	}
	store, err := objectstore.New(tc, objectstore.WithBatchOptions(
		batch.WithConfig(cfg.Batch),
		batch.WithMetrics(metrics),
	))
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, err
	}

	return &session{
		store: store,
		close: func() {
			if err := multiplexer.Shutdown(); err != nil {
				log.Warn("multiplexer shutdown", logger.Fields(logger.FieldError, err.Error()))
			}
			if err := shutdownTelemetry(context.Background()); err != nil {
				log.Warn("telemetry shutdown", logger.Fields(logger.FieldError, err.Error()))
			}
		},
	}, nil
}

// runBatch opens a session, builds one operation per job and executes
// them as a single batch. A build that fails part way returns the jobs it
// already built so their connections are released.
func runBatch(cmd *cobra.Command, o *overrides, build func(*objectstore.Client) ([]job, error)) error {
	if err := checkOutput(o.output); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, o)
	if err != nil {
		return err
	}
	defer s.close()

	jobs, err := build(s.store)
	if err != nil {
		objectstore.Discard(jobOperations(jobs)...)
		return err
	}
	if _, err := s.store.Run(ctx, jobOperations(jobs)...); err != nil {
		return err
	}
	return report(cmd.OutOrStdout(), o.output, jobs)
}
