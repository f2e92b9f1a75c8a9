// cmd/goldenrecord/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"goldenrecord-engine/internal/common/cache"
	"goldenrecord-engine/internal/common/config"
	"goldenrecord-engine/internal/common/logger"
	"goldenrecord-engine/internal/common/observability"
	"goldenrecord-engine/internal/models"
	"goldenrecord-engine/internal/pipeline"
	"goldenrecord-engine/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	var (
		structurePath = flag.String("structure", "", "path to the structure document (required)")
		overlayPath   = flag.String("overlay", "", "path to the country overlay document")
		dataPath      = flag.String("data", "", "path to an instance data document")
		outDir        = flag.String("out", ".", "directory for generated artifacts")
		language      = flag.String("language", "", "requested label language, e.g. es")
		country       = flag.String("country", "", "requested label country, e.g. mx")
		targetCountry = flag.String("target-country", "", "restrict overlay merge to one country code")
		client        = flag.String("client", "", "client name recorded in the metadata")
		consultant    = flag.String("consultant", "", "consultant recorded in the metadata")
		split         = flag.Bool("split", false, "also produce per-group layout files")
		groupBy       = flag.String("group-by", "element", "layout grouping: element or country")
		policies      = flag.String("exclude", "", "comma-separated filter policies")
		categoriesRaw = flag.String("categories", "", "comma-separated category allowlist")
	)
	flag.Parse()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting golden record engine...")

	if *structurePath == "" {
		zapLog.Fatal("missing required -structure flag")
	}

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("goldenrecord")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Registry ---
	reg := registry.Default()
	if cfg.Pipeline.RegistryPath != "" {
		reg, err = registry.LoadRegistry(cfg.Pipeline.RegistryPath)
		if err != nil {
			zapLog.Fatal("registry load failed", zap.Error(err))
		}
		zapLog.Info("Registry loaded", zap.String("path", cfg.Pipeline.RegistryPath))
	}

	// --- Init artifact cache with retry ---
	var store *cache.Store
	if cfg.Cache.Enabled {
		err = retryWithBackoff(func() error {
			store = cache.New(cfg.Cache.Redis, time.Duration(cfg.Cache.TTLDays)*24*time.Hour)
			return store.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer store.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Metrics endpoint ---
	if cfg.Metrics.Enabled {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
				zapLog.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
		zapLog.Info("Metrics endpoint listening", zap.String("address", cfg.Metrics.Address))
	}

	in := pipeline.Input{Source: *structurePath}
	if in.Structure, err = os.ReadFile(*structurePath); err != nil {
		zapLog.Fatal("reading structure document failed", zap.Error(err))
	}
	if *overlayPath != "" {
		if in.Overlay, err = os.ReadFile(*overlayPath); err != nil {
			zapLog.Fatal("reading overlay document failed", zap.Error(err))
		}
	}
	if *dataPath != "" {
		if in.Data, err = os.ReadFile(*dataPath); err != nil {
			zapLog.Fatal("reading data document failed", zap.Error(err))
		}
	}

	opts := models.RunOptions{
		Language:      *language,
		Country:       *country,
		TargetCountry: *targetCountry,
		Client:        *client,
		Consultant:    *consultant,
		SourcePath:    *structurePath,
		SplitLayouts:  *split,
		GroupBy:       models.GroupPolicy(*groupBy),
	}
	for _, p := range splitList(*policies) {
		opts.Policies = append(opts.Policies, models.FilterPolicy(p))
	}
	for _, c := range splitList(*categoriesRaw) {
		opts.AllowCategories = append(opts.AllowCategories, models.Category(c))
	}

	p := pipeline.New(cfg, reg, log, obs, store)
	res, err := p.Run(ctx, in, opts)
	if err != nil {
		zapLog.Fatal("pipeline run failed", zap.Error(err))
	}

	if err := writeArtifacts(*outDir, res); err != nil {
		zapLog.Fatal("writing artifacts failed", zap.Error(err))
	}

	zapLog.Info("Artifacts written",
		zap.String("instance", res.Instance.ID),
		zap.Int("fields", len(res.Golden.TechnicalHeader)),
		zap.Int("rows", len(res.Golden.Rows)),
		zap.Int("diagnostics", len(res.Diagnostics)),
		zap.String("out", *outDir),
	)
}

func writeArtifacts(dir string, res *pipeline.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := "golden_record_" + res.Instance.ID
	if err := os.WriteFile(filepath.Join(dir, base+".csv"), res.GoldenCSV, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, base+"_metadata.json"), res.MetadataJSON, 0o644); err != nil {
		return err
	}
	if len(res.LayoutBundle) > 0 {
		if err := os.WriteFile(filepath.Join(dir, base+"_layouts.zip"), res.LayoutBundle, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
