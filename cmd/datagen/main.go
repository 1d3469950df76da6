// Command datagen writes the preset datasets as space-separated text files
// to a local directory or a bucket, where radix-bench can read them.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/withObsrvr/obsrvr-radix-bench/internal/config"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/dataset"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/storage"
	"github.com/withObsrvr/obsrvr-radix-bench/internal/suite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("[datagen] Radix Bench datagen %s (%s)", suite.Version, suite.GitSHA)

	cfg := config.MustLoad()
	compress, _ := strconv.ParseBool(os.Getenv("DATAGEN_COMPRESS"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry, err := dataset.NewRegistry(dataset.DefaultPresets())
	if err != nil {
		log.Fatalf("[datagen] invalid presets: %v", err)
	}
	presets, err := registry.Select(cfg.Dataset.Names)
	if err != nil {
		log.Fatalf("[datagen] %v", err)
	}

	var store *storage.Store
	if cfg.Dataset.BucketURL != "" {
		store, err = storage.Open(ctx, cfg.Dataset.BucketURL, cfg.Dataset.Prefix)
	} else {
		store, err = storage.NewLocalStore(cfg.Dataset.Dir, cfg.Dataset.Prefix)
	}
	if err != nil {
		log.Fatalf("[datagen] failed to open output: %v", err)
	}
	defer store.Close()

	w, err := dataset.NewWriter(store, compress)
	if err != nil {
		log.Fatalf("[datagen] failed to create writer: %v", err)
	}
	defer w.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, p := range presets {
		g.Go(func() error {
			values := p.Generate(dataset.NewRand(cfg.Dataset.Seed, p.Name))
			key, err := w.Write(gctx, p.Name, values)
			if err != nil {
				return err
			}
			log.Printf("[datagen] wrote %d values to %s", len(values), store.URI(key))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("[datagen] %v", err)
	}
	log.Printf("[datagen] wrote %d datasets", len(presets))
}
