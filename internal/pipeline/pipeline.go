// internal/pipeline/pipeline.go

// Package pipeline wires the transformation stages into one linear run:
// load, merge, normalize, process, resolve, generate, split. A run is
// stateless; everything it needs arrives as input bytes plus options, and the
// first fatal error aborts it. Non-fatal findings accumulate as diagnostics
// on the result.
package pipeline

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"goldenrecord-engine/internal/common/cache"
	"goldenrecord-engine/internal/common/config"
	"goldenrecord-engine/internal/common/errors"
	"goldenrecord-engine/internal/common/logger"
	"goldenrecord-engine/internal/common/metrics"
	"goldenrecord-engine/internal/common/observability"
	"goldenrecord-engine/internal/goldenrecord"
	"goldenrecord-engine/internal/models"
	"goldenrecord-engine/internal/parsing"
	"goldenrecord-engine/internal/splitter"
	"goldenrecord-engine/pkg/registry"
)

// Input carries the raw documents for one run. Structure is mandatory;
// Overlay and Data are optional.
type Input struct {
	Structure []byte
	Overlay   []byte
	Data      []byte
	Source    string
}

// Result is everything a run produces.
type Result struct {
	Instance     models.InstanceDescriptor
	Golden       *models.GoldenRecord
	GoldenCSV    []byte
	Metadata     *models.MetadataDocument
	MetadataJSON []byte
	Layouts      []splitter.Layout
	LayoutBundle []byte
	Diagnostics  []errors.Diagnostic
	FromCache    bool
}

// Pipeline holds the per-process collaborators. Runs share nothing else.
type Pipeline struct {
	cfg   *config.Config
	reg   *registry.FieldRegistry
	log   logger.Logger
	obs   *observability.Observability
	store *cache.Store
}

// New builds a pipeline. Registry and cache are optional: a nil registry
// falls back to the built-in one, a nil store disables caching. Config-level
// injected field overrides win over the registry's.
func New(cfg *config.Config, reg *registry.FieldRegistry, log logger.Logger, obs *observability.Observability, store *cache.Store) *Pipeline {
	if reg == nil {
		reg = registry.Default()
	}
	if len(cfg.Pipeline.InjectedFields) > 0 {
		reg.InjectedFields = cfg.Pipeline.InjectedFields
	}
	return &Pipeline{cfg: cfg, reg: reg, log: log, obs: obs, store: store}
}

// Run executes the full transformation. Context cancellation is honored
// between stages; a started stage always finishes.
func (p *Pipeline) Run(ctx context.Context, in Input, opts models.RunOptions) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := p.log.WithFields(map[string]interface{}{"run_id": runID, "source": in.Source})
	diags := errors.NewCollector(log)

	opts = p.applyDefaults(opts)

	res, err := p.run(ctx, in, opts, log, diags)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		if perr, ok := err.(*errors.PipelineError); ok {
			metrics.PipelineRunsFailed.WithLabelValues(perr.Stage, string(perr.Code)).Inc()
			log.Error("pipeline run failed", map[string]interface{}{
				"stage": perr.Stage,
				"code":  string(perr.Code),
				"error": perr.Message,
			})
		} else {
			metrics.PipelineRunsFailed.WithLabelValues("pipeline", "INTERNAL").Inc()
			log.WithError(err).Error("pipeline run failed", nil)
		}
	}
	metrics.PipelineRunsTotal.WithLabelValues(outcome).Inc()
	for _, d := range diags.All() {
		metrics.DiagnosticsTotal.WithLabelValues(string(d.Code)).Inc()
	}
	if p.obs != nil {
		p.obs.RecordRunProcessed(ctx, outcome)
		p.obs.RecordRunDuration(ctx, time.Since(start), outcome)
	}
	if err != nil {
		return nil, err
	}

	res.Diagnostics = diags.All()
	log.Info("pipeline run complete", map[string]interface{}{
		"fields":      len(res.Golden.TechnicalHeader),
		"rows":        len(res.Golden.Rows),
		"diagnostics": len(res.Diagnostics),
		"from_cache":  res.FromCache,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, in Input, opts models.RunOptions, log logger.Logger, diags *errors.Collector) (*Result, error) {
	contentHash := cacheKey(in, opts)

	// Cached artifacts only apply to structure-only runs; instance data
	// changes the rows, not just the structure.
	if p.store != nil && len(in.Data) == 0 {
		if entry, ok, err := p.store.Get(ctx, contentHash); err != nil {
			log.WithError(err).Warn("cache lookup failed, regenerating", nil)
		} else if ok && (!opts.SplitLayouts || len(entry.Layouts) > 0) {
			if res, err := p.resultFromCache(entry); err == nil {
				log.Info("serving cached artifacts", map[string]interface{}{
					"version": entry.VersionID,
					"hash":    contentHash,
				})
				return res, nil
			}
		}
	}

	structure, err := p.timedLoad(in.Structure, in.Source, "load")
	if err != nil {
		return nil, err
	}

	if len(in.Overlay) > 0 {
		overlay, err := p.timedLoad(in.Overlay, in.Source+":overlay", "load_overlay")
		if err != nil {
			return nil, err
		}
		done := p.stageTimer("merge")
		parsing.NewMerger(opts.TargetCountry).Merge(structure, overlay, diags)
		done()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := p.stageTimer("normalize")
	norm, err := parsing.NewNormalizer(p.cfg.Pipeline.RootMarker).Normalize(structure, diags)
	done()
	if err != nil {
		return nil, err
	}

	done = p.stageTimer("process")
	records := goldenrecord.NewProcessor(p.reg, log).Process(norm)
	done()

	done = p.stageTimer("resolve")
	resolver := goldenrecord.NewResolver(
		goldenrecord.NewCategorizer(p.reg),
		goldenrecord.NewLanguageResolver(opts.DefaultLanguage),
	)
	resolved, err := resolver.Resolve(records, opts, diags)
	done()
	if err != nil {
		return nil, err
	}

	var bindings []models.InstanceBinding
	if len(in.Data) > 0 {
		data, err := p.timedLoad(in.Data, in.Source+":data", "load_data")
		if err != nil {
			return nil, err
		}
		bindings = goldenrecord.ExtractBindings(data)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	instance := p.describeInstance(ctx, structure, opts)

	done = p.stageTimer("generate_csv")
	golden, csvPayload, err := goldenrecord.NewCSVGenerator(opts).Generate(resolved, bindings)
	done()
	if err != nil {
		return nil, err
	}
	metrics.FieldsEmitted.WithLabelValues("golden_record").Observe(float64(len(golden.TechnicalHeader)))

	done = p.stageTimer("generate_metadata")
	metaGen := goldenrecord.NewMetadataGenerator(p.reg)
	meta := metaGen.Build(instance, resolved)
	metaPayload, err := metaGen.Render(meta)
	done()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Instance:     instance,
		Golden:       golden,
		GoldenCSV:    csvPayload,
		Metadata:     meta,
		MetadataJSON: metaPayload,
	}

	if opts.SplitLayouts {
		done = p.stageTimer("split")
		layouts, err := splitter.NewSplitter(log).Split(golden, meta, opts.GroupBy)
		if err != nil {
			done()
			return nil, err
		}
		bundle, err := splitter.Bundle(layouts)
		done()
		if err != nil {
			return nil, err
		}
		res.Layouts = layouts
		res.LayoutBundle = bundle
	}

	if p.store != nil && len(in.Data) == 0 {
		entry := cache.Entry{
			VersionID:  instance.ID,
			Hash:       contentHash,
			Client:     opts.Client,
			Consultant: opts.Consultant,
			CreatedAt:  time.Now().UTC(),
			Metadata:   metaPayload,
			GoldenCSV:  csvPayload,
			Layouts:    res.LayoutBundle,
		}
		if err := p.store.Put(ctx, entry); err != nil {
			log.WithError(err).Warn("storing cache entry failed", nil)
		}
	}
	return res, nil
}

// cacheKey folds the run options into the document hash. Cached artifacts are
// only valid for a run that would regenerate them byte for byte, so every
// option that shapes the output participates in the key.
func cacheKey(in Input, opts models.RunOptions) string {
	payload := append(append([]byte{}, in.Structure...), in.Overlay...)
	payload = append(payload, []byte(optionsFingerprint(opts))...)
	return cache.ContentHash(payload)
}

func optionsFingerprint(opts models.RunOptions) string {
	policies := make([]string, len(opts.Policies))
	for i, pol := range opts.Policies {
		policies[i] = string(pol)
	}
	sort.Strings(policies)
	categories := make([]string, len(opts.AllowCategories))
	for i, c := range opts.AllowCategories {
		categories[i] = string(c)
	}
	sort.Strings(categories)

	return strings.Join([]string{
		opts.Language,
		opts.Country,
		opts.TargetCountry,
		opts.DefaultLanguage,
		string(opts.HeaderMode),
		opts.Encoding,
		string(opts.Delimiter),
		strings.Join(policies, ","),
		strings.Join(categories, ","),
		strconv.FormatBool(opts.SplitLayouts),
		string(opts.GroupBy),
		opts.Client,
		opts.Consultant,
		opts.SourcePath,
	}, "|")
}

// describeInstance allocates the run's version id, from the cache's per-day
// counter when available, a timestamp otherwise.
func (p *Pipeline) describeInstance(ctx context.Context, structure *parsing.Document, opts models.RunOptions) models.InstanceDescriptor {
	now := time.Now().UTC()
	id := now.Format("020106") + "_v1"
	if p.store != nil {
		allocated, err := p.store.NextVersionID(ctx, now)
		if err == nil {
			id = allocated
		}
	}
	return models.InstanceDescriptor{
		ID:               id,
		Client:           opts.Client,
		Consultant:       opts.Consultant,
		Date:             now.Format("2006-01-02"),
		StructureVersion: structure.Root.AttrDefault("version", ""),
		SourcePath:       opts.SourcePath,
	}
}

func (p *Pipeline) resultFromCache(entry *cache.Entry) (*Result, error) {
	meta, err := goldenrecord.ParseMetadata(entry.Metadata)
	if err != nil {
		return nil, err
	}
	return &Result{
		Instance: models.InstanceDescriptor{
			ID:         entry.VersionID,
			Client:     entry.Client,
			Consultant: entry.Consultant,
			Date:       entry.CreatedAt.Format("2006-01-02"),
		},
		Golden:       tableFromMetadata(meta),
		GoldenCSV:    entry.GoldenCSV,
		Metadata:     meta,
		MetadataJSON: entry.Metadata,
		LayoutBundle: entry.Layouts,
		FromCache:    true,
	}, nil
}

// tableFromMetadata rebuilds the headers of a cached structure-only run;
// such runs have no rows by definition.
func tableFromMetadata(meta *models.MetadataDocument) *models.GoldenRecord {
	table := &models.GoldenRecord{}
	for _, f := range meta.Fields {
		table.TechnicalHeader = append(table.TechnicalHeader, f.BusinessKey)
		table.DescriptiveHeader = append(table.DescriptiveHeader, f.Label)
	}
	return table
}

func (p *Pipeline) timedLoad(data []byte, source, stage string) (*parsing.Document, error) {
	done := p.stageTimer(stage)
	defer done()
	return parsing.Load(data, source, parsing.LoaderOptions{
		ExpansionFactor: p.cfg.Pipeline.ExpansionFactor,
	})
}

func (p *Pipeline) stageTimer(stage string) func() {
	start := time.Now()
	return func() {
		metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (p *Pipeline) applyDefaults(opts models.RunOptions) models.RunOptions {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = p.cfg.Pipeline.DefaultLanguage
	}
	if opts.Encoding == "" {
		opts.Encoding = p.cfg.Output.Encoding
	}
	if opts.HeaderMode == "" {
		opts.HeaderMode = models.HeaderMode(p.cfg.Output.HeaderMode)
	}
	if opts.Delimiter == 0 && p.cfg.Output.Delimiter != "" {
		opts.Delimiter = rune(p.cfg.Output.Delimiter[0])
	}
	return opts
}
