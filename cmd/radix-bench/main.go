package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/audit"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/catalog"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/checkpoint"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/config"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/dataset"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/logging"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/metrics"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/report"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/storage"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/suite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("[main] Radix Bench %s (%s)", suite.Version, suite.GitSHA)

	cfg := config.MustLoad()

	// Logs go to stderr so the report on stdout stays machine-readable.
	logging.Setup(logging.Config{
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
		Output: os.Stderr,
	})

	if cfg.Metrics.Enabled {
		metrics.Init("")
		go func() {
			log.Printf("[metrics] listening on %s", cfg.Metrics.Address)
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				log.Printf("[metrics] server stopped: %v", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, cfg)
	interrupted := ctx.Err() != nil
	cancel()

	if err != nil {
		switch {
		case interrupted:
			log.Printf("[main] shutdown complete")
		case errors.Is(err, suite.ErrDatasetsFailed):
			log.Printf("[main] %v", err)
			os.Exit(1)
		default:
			log.Printf("[main] suite failed: %v", err)
			os.Exit(1)
		}
		return
	}

	log.Println("[main] radix bench stopped cleanly")
	time.Sleep(100 * time.Millisecond)
}

// run wires the suite and executes it. Every resource it opens is released
// before it returns, so main may exit with a status afterwards.
func run(ctx context.Context, cfg config.Config) error {
	src, err := dataset.NewSource(ctx, dataset.SourceConfig{
		Mode:          cfg.Dataset.Mode,
		Dir:           cfg.Dataset.Dir,
		BucketURL:     cfg.Dataset.BucketURL,
		Prefix:        cfg.Dataset.Prefix,
		Seed:          cfg.Dataset.Seed,
		MmapThreshold: cfg.Dataset.MmapThreshold,
	})
	if err != nil {
		return fmt.Errorf("create dataset source: %w", err)
	}
	defer src.Close()

	producer := suite.Producer()
	sinks := report.Multi{report.NewConsoleSink(os.Stdout, cfg.Report.Format, producer)}

	// The report store is shared by the blob sink and the sorted writer.
	var store *storage.Store
	if cfg.Report.BucketURL != "" {
		store, err = storage.Open(ctx, cfg.Report.BucketURL, cfg.Report.Prefix)
		if err != nil {
			return fmt.Errorf("open report bucket: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, report.NewBlobSink(store, cfg.Report.Parquet, producer))
	}

	var sorted *dataset.Writer
	if cfg.Report.WriteSorted {
		if store == nil {
			store, err = storage.NewLocalStore(cfg.Report.OutputDir, "")
			if err != nil {
				return fmt.Errorf("open output directory: %w", err)
			}
			defer store.Close()
		}
		sorted, err = dataset.NewWriter(store, false)
		if err != nil {
			return fmt.Errorf("create sorted writer: %w", err)
		}
		defer sorted.Close()
	}

	if cfg.Audit.Enabled {
		em, err := audit.NewEmitter(audit.Config{
			Enabled:  true,
			Dir:      cfg.Audit.Dir,
			Endpoint: cfg.Audit.Endpoint,
		}, producer)
		if err != nil {
			log.Printf("[main] WARNING: audit disabled: %v", err)
		} else {
			sinks = append(sinks, em)
		}
	}

	cat, err := catalog.NewWriter(catalog.Config{
		PostgresDSN: cfg.Catalog.PostgresDSN,
		Namespace:   cfg.Catalog.Namespace,
	})
	if err != nil {
		log.Printf("[main] WARNING: catalog disabled: %v", err)
	} else {
		sinks = append(sinks, catalog.NewSink(cat, producer.Version))
	}
	// Deferred after the store so sinks flush before it closes.
	defer sinks.Close()

	cp, err := checkpoint.NewManager(checkpoint.Config{
		Enabled: cfg.Checkpoint.Enabled,
		Dir:     cfg.Checkpoint.Dir,
	})
	if err != nil {
		log.Printf("[main] WARNING: checkpoint disabled: %v", err)
	}

	opts := suite.Options{
		Datasets:      cfg.Dataset.Names,
		Workers:       cfg.Sort.Workers,
		Trials:        cfg.Sort.Trials,
		MinMeasurable: cfg.Sort.MinMeasurable,
	}
	if sorted != nil {
		opts.SortedWriter = sorted
	}

	_, err = suite.New(opts, src, sinks, cp).Run(ctx)
	return err
}
