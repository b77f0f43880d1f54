// Command imatload bulk-loads an iMAT image-annotation dataset directory
// into Postgres: the xlsx label map plus the train and validation JSON
// documents, streamed through COPY.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"imatload/internal/config"
	"imatload/internal/errs"
	"imatload/internal/labelmap"
	"imatload/internal/loader"
	"imatload/internal/logging"
	"imatload/internal/metrics"
	"imatload/internal/metrics/prompush"
	"imatload/internal/schema"
	"imatload/internal/storage"
	"imatload/internal/storage/postgres"
)

// splits maps each dataset partition to its file inside the data directory.
var splits = []struct {
	name string
	file string
}{
	{"train", "train.json"},
	{"validation", "validation.json"},
}

// options holds the parsed command line.
type options struct {
	dir            string
	batchSize      int
	metricsBackend string
	pushGatewayURL string
	verbose        bool
}

func main() {
	var opts options

	flag.StringVar(&opts.dir, "dir", "imat", "path to the iMAT dataset directory")
	flag.IntVar(&opts.batchSize, "batch-size", config.DefaultBatchSize, "rows buffered per COPY flush")
	flag.StringVar(&opts.metricsBackend, "metrics-backend", "", "metrics backend to use (e.g. pushgateway, none)")
	flag.StringVar(&opts.pushGatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&opts.verbose, "v", false, "enable verbose logs")

	flag.Parse()

	os.Exit(realMain(opts))
}

// realMain carries the whole run and reports the exit code. Errors return
// instead of exiting so the deferred metrics flush and pool close run on the
// failure path too; the failure counters are exactly what an operator wants
// pushed.
func realMain(opts options) int {
	if err := logging.Init(logging.Config{Debug: opts.verbose}); err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		return 1
	}
	defer logging.Sync()

	initMetrics(opts.metricsBackend, opts.pushGatewayURL, opts.verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			logging.L().Warn("metrics flush", zap.Error(err))
		}
	}()

	cfg, err := config.Load(filepath.Join(opts.dir, ".env"))
	if err != nil {
		logging.L().Error("load config", zap.Error(err))
		return 1
	}
	cfg.BatchSize = opts.batchSize
	if err := cfg.Validate(); err != nil {
		logging.L().Error("config", zap.Error(err))
		return 1
	}

	ctx := context.Background()
	start := time.Now()

	repo, closeRepo, err := postgres.NewRepo(ctx, cfg.DSN())
	if err != nil {
		logging.L().Error("connect", zap.Error(err))
		return 1
	}
	defer closeRepo()

	if err := run(ctx, repo, opts.dir, cfg.BatchSize); err != nil {
		logging.L().Error("load failed",
			zap.String("class", errs.Class(err)),
			zap.Error(err))
		return 1
	}

	logging.L().Info("load completed",
		zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
	return 0
}

// run executes the full load: ensure schema, reload the label map, then load
// every split. Any error aborts the run; re-running converges because every
// step is idempotent.
func run(ctx context.Context, repo storage.Repository, dir string, batchSize int) error {
	start := time.Now()
	err := schema.Ensure(ctx, repo)
	metrics.RecordStep("schema", "", err, time.Since(start))
	if err != nil {
		return err
	}

	start = time.Now()
	_, err = labelmap.Load(ctx, repo, filepath.Join(dir, "label_map_228.xlsx"), batchSize)
	metrics.RecordStep("label_map", "", err, time.Since(start))
	if err != nil {
		return err
	}

	l := loader.New(repo, batchSize)
	for _, s := range splits {
		if err := l.LoadSplit(ctx, filepath.Join(dir, s.file), s.name); err != nil {
			return err
		}
	}
	return nil
}

// initMetrics decides the metrics backend: flag, then env, then disabled.
func initMetrics(backendFlg, gatewayFlg string, verbose bool) {
	backendName := backendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		gwURL := gatewayFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend("imatload", gwURL)
		if err != nil {
			logging.L().Warn("metrics backend init failed, using nop", zap.Error(err))
			return
		}
		logging.L().Info("metrics enabled",
			zap.String("backend", backendName),
			zap.String("url", gwURL))
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			logging.L().Debug("metrics disabled")
		}

	default:
		logging.L().Warn("unknown metrics backend, metrics disabled",
			zap.String("backend", backendName))
	}
}
