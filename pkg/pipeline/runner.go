package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cardcrop/pkg/assign"
	"github.com/matzehuels/cardcrop/pkg/cache"
	"github.com/matzehuels/cardcrop/pkg/document"
	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/observability"
	"github.com/matzehuels/cardcrop/pkg/preview"
)

// Runner encapsulates crop and preview execution with caching.
// Both CLI and API use it so caching and logging behave the same.
//
// The Runner keeps no per-run state. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache      cache.Cache
	Keyer      cache.Keyer
	Logger     *log.Logger
	Rasterizer preview.Rasterizer
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// Page rasters come from pdftoppm; replace Rasterizer to change that.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:      c,
		Keyer:      keyer,
		Logger:     logger,
		Rasterizer: preview.Poppler{},
	}
}

// Crop runs plan and materialize over a PDF held in memory. Results are
// cached by input hash and every option that changes the output;
// Result.CacheInfo reports a hit.
func (r *Runner) Crop(ctx context.Context, input []byte, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{InputHash: cache.Hash(input)}
	cacheKey := r.Keyer.CropKey(result.InputHash, opts.CropKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if out, err := decodeOutput(data); err == nil {
				observability.Cache().OnCacheHit(ctx, cacheKey)
				result.Output = out
				result.CacheInfo.CropHit = true
				result.Stats.OutputBytes = out.Size()
				r.Logger.Info("using cached crop", "mode", out.Mode, "artifacts", len(out.Artifacts))
				return result, nil
			}
			// Undecodable entries are recomputed.
		}
		observability.Cache().OnCacheMiss(ctx, cacheKey)
	}

	doc, err := document.OpenBytes(input)
	if err != nil {
		return nil, err
	}

	// Stage 1: Plan
	planStart := time.Now()
	plan, err := r.Plan(ctx, doc, opts)
	if err != nil {
		return nil, err
	}
	result.Plan = plan
	result.Stats.PlanTime = time.Since(planStart)
	result.Stats.Pages = len(plan.Pages)
	result.Stats.Placements = len(plan.Placements)

	r.Logger.Info("planned crop",
		"mode", plan.Mode,
		"pages", len(plan.Pages),
		"placements", len(plan.Placements),
		"duration", result.Stats.PlanTime)

	// Stage 2: Materialize
	cropStart := time.Now()
	out, err := r.Materialize(ctx, plan, doc.NewSink(plan.Mode))
	if err != nil {
		return nil, err
	}
	result.Output = out
	result.Stats.CropTime = time.Since(cropStart)
	result.Stats.OutputBytes = out.Size()

	r.Logger.Info("cropped cards",
		"artifacts", len(out.Artifacts),
		"bytes", result.Stats.OutputBytes,
		"duration", result.Stats.CropTime)

	if data, err := encodeOutput(out); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.CropTTL); err != nil {
			r.Logger.Warn("cache store failed", "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, cacheKey, len(data))
		}
	}

	return result, nil
}

// Plan computes every placement of a run without touching any sink. Pages
// before the starting page are skipped; a starting page past the end is
// clamped to the last page.
func (r *Runner) Plan(ctx context.Context, src document.Source, opts Options) (_ *Plan, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	count := src.PageCount()
	hooks := observability.Pipeline()
	hooks.OnPlanStart(ctx, count, opts.Mode().String())
	start := time.Now()
	plan := &Plan{Mode: opts.Mode()}
	defer func() {
		hooks.OnPlanComplete(ctx, len(plan.Pages), len(plan.Placements), time.Since(start), err)
	}()

	if count <= 0 {
		return nil, cerrors.New(cerrors.ErrCodeSource, "document has no pages")
	}

	first := min(opts.StartingPage, count) - 1
	if first != opts.StartingPage-1 {
		opts.Logger.Warn("starting page past end of document, using last page",
			"starting_page", opts.StartingPage, "pages", count)
	}
	plan.FirstPage = first

	cfg := opts.Grid()
	for index := first; index < count; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		size, err := src.PageSize(index)
		if err != nil {
			if cerrors.GetCode(err) != "" {
				return nil, err
			}
			return nil, cerrors.Wrap(cerrors.ErrCodeSource, err, "read size of page %d", index+1)
		}
		page, err := planPage(index, index-first, size, cfg, plan.Mode)
		if err != nil {
			return nil, err
		}
		plan.Pages = append(plan.Pages, page)
		plan.Placements = append(plan.Placements, page.Placements...)
		opts.Logger.Debug("planned page",
			"page", index+1,
			"width", size.Width,
			"height", size.Height,
			"cards", len(page.Cells))
	}
	return plan, nil
}

// Materialize hands every placement of plan to sink in order and finishes
// it. On any failure the sink is aborted; sink failures name the page, cell
// and slot that failed.
func (r *Runner) Materialize(ctx context.Context, plan *Plan, sink document.Sink) (_ *document.Output, err error) {
	hooks := observability.Pipeline()
	hooks.OnMaterializeStart(ctx, len(plan.Placements))
	start := time.Now()
	artifacts := 0
	defer func() {
		hooks.OnMaterializeComplete(ctx, artifacts, time.Since(start), err)
	}()

	page := -1
	for _, p := range plan.Placements {
		if p.SourcePage != page {
			if err := ctx.Err(); err != nil {
				sink.Abort()
				return nil, err
			}
			page = p.SourcePage
		}
		if err := sink.Materialize(ctx, p); err != nil {
			sink.Abort()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, cerrors.Wrap(cerrors.ErrCodeSink, err,
				"materialize page %d row %d col %d (%s)", p.SourcePage+1, p.Row, p.Col, p.Slot)
		}
	}

	out, err := sink.Finish(ctx)
	if err != nil {
		sink.Abort()
		if cerrors.GetCode(err) == "" && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = cerrors.Wrap(cerrors.ErrCodeSink, err, "finish output")
		}
		return nil, err
	}
	artifacts = len(out.Artifacts)

	for _, name := range out.Missing() {
		r.Logger.Warn("no cards assigned, skipping output", "artifact", name)
	}
	return out, nil
}

// Preview renders the grid overlay of one page as PNG or SVG.
func (r *Runner) Preview(ctx context.Context, input []byte, opts PreviewOptions) ([]byte, error) {
	data, _, err := r.PreviewWithCacheInfo(ctx, input, opts)
	return data, err
}

// PreviewWithCacheInfo renders a preview and reports whether it came from
// the cache.
func (r *Runner) PreviewWithCacheInfo(ctx context.Context, input []byte, opts PreviewOptions) (_ []byte, hit bool, err error) {
	r.applyLogger(&opts.Options)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	hooks := observability.Pipeline()
	hooks.OnPreviewStart(ctx, opts.Format)
	start := time.Now()
	defer func() {
		hooks.OnPreviewComplete(ctx, opts.Format, time.Since(start), err)
	}()

	cacheKey := r.Keyer.PreviewKey(cache.Hash(input), opts.PreviewKeyOpts())
	if !opts.Refresh {
		if data, ok, err := r.Cache.Get(ctx, cacheKey); err == nil && ok {
			observability.Cache().OnCacheHit(ctx, cacheKey)
			return data, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, cacheKey)
	}

	doc, err := document.OpenBytes(input)
	if err != nil {
		return nil, false, err
	}
	session, err := r.Session(ctx, doc, input, opts)
	if err != nil {
		return nil, false, err
	}

	data, err := RenderPreview(session, opts)
	if err != nil {
		return nil, false, err
	}

	if err := r.Cache.Set(ctx, cacheKey, data, cache.PreviewTTL); err == nil {
		observability.Cache().OnCacheSet(ctx, cacheKey, len(data))
	}
	return data, false, nil
}

// Session builds the preview session for opts.Page of src. When opts.Raster
// is set the page is rasterized as background; rasterizer failures are
// logged and leave a white page.
func (r *Runner) Session(ctx context.Context, src document.Source, input []byte, opts PreviewOptions) (preview.Session, error) {
	r.applyLogger(&opts.Options)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return preview.Session{}, err
	}

	count := src.PageCount()
	if count <= 0 {
		return preview.Session{}, cerrors.New(cerrors.ErrCodeSource, "document has no pages")
	}
	index := min(opts.Page, count) - 1
	size, err := src.PageSize(index)
	if err != nil {
		return preview.Session{}, err
	}

	s, err := preview.NewSession(size, opts.CanvasWidth, opts.CanvasHeight)
	if err != nil {
		return preview.Session{}, err
	}
	s = s.MoveLens(opts.LensX, opts.LensY)

	if opts.Raster && r.Rasterizer != nil && input != nil {
		img, err := r.Rasterizer.Rasterize(ctx, input, index, s.Width, s.Height)
		switch {
		case err == nil:
			s = s.WithBackground(img)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return preview.Session{}, err
		default:
			opts.Logger.Warn("page raster unavailable, previewing on white", "page", index+1, "error", err)
		}
	}
	return s, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// cachedOutput is the cache encoding of a document.Output; Artifact.Data is
// excluded from the public JSON form.
type cachedOutput struct {
	Mode      assign.Mode      `json:"mode"`
	Artifacts []cachedArtifact `json:"artifacts"`
}

type cachedArtifact struct {
	Name  string      `json:"name"`
	Slot  assign.Slot `json:"slot"`
	Pages int         `json:"pages"`
	Data  []byte      `json:"data"`
}

func encodeOutput(out *document.Output) ([]byte, error) {
	c := cachedOutput{Mode: out.Mode}
	for _, a := range out.Artifacts {
		c.Artifacts = append(c.Artifacts, cachedArtifact{Name: a.Name, Slot: a.Slot, Pages: a.Pages, Data: a.Data})
	}
	return json.Marshal(c)
}

func decodeOutput(data []byte) (*document.Output, error) {
	var c cachedOutput
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	out := &document.Output{Mode: c.Mode}
	for _, a := range c.Artifacts {
		if len(a.Data) == 0 {
			return nil, fmt.Errorf("cached artifact %s is empty", a.Name)
		}
		out.Artifacts = append(out.Artifacts, document.Artifact{Name: a.Name, Slot: a.Slot, Pages: a.Pages, Data: a.Data})
	}
	return out, nil
}
