package extractor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"expansion-evaluator/adapters"
	"expansion-evaluator/discovery"
	"expansion-evaluator/internal/types"
	"expansion-evaluator/knowledge"
	"expansion-evaluator/platform"
	"expansion-evaluator/utils"
)

const (
	timestampLayout = "2006-01-02 15:04:05"

	// inferencePlatform marks dynamic knowledge seeded from the domain name
	inferencePlatform = "blocked_site_inference"
	blockedPlatform   = "blocked"

	noEcommerceMessage = "No e-commerce products detected on this site"
)

// Queue accepts background retry jobs
type Queue interface {
	Enqueue(job types.BackgroundJob) bool
}

// Knowledge bundles the memory tiers consulted around a crawl
type Knowledge struct {
	Static    *knowledge.StaticKB
	Dynamic   *knowledge.DynamicKB
	Cache     *knowledge.ResultCache
	Inference *knowledge.Inference
}

// NewKnowledge builds every tier from config. A dynamic knowledge base that
// cannot be read starts empty.
func NewKnowledge(ctx context.Context, config *types.Config, logger types.Logger) (Knowledge, error) {
	static, err := knowledge.LoadStaticKB(config.Knowledge.StaticPath)
	if err != nil {
		return Knowledge{}, err
	}
	inference, err := knowledge.LoadInference(config.Knowledge.InferencePath)
	if err != nil {
		return Knowledge{}, err
	}

	repo := knowledge.NewFileRepository(config.Knowledge.DynamicPath)
	dynamic := knowledge.NewDynamicKB(repo, config.Knowledge.MaxAge, logger)
	if err := dynamic.Load(ctx); err != nil {
		logger.Warnf("Starting with an empty dynamic knowledge base at %s: %v", repo.Path(), err)
	}

	return Knowledge{
		Static:    static,
		Dynamic:   dynamic,
		Cache:     knowledge.NewResultCache(config.Cache.SuccessTTL, config.Cache.FailureTTL),
		Inference: inference,
	}, nil
}

// outcome records where a learned result came from
type outcome int

const (
	outcomeCrawled outcome = iota
	outcomeLearned
	outcomeStatic
	outcomeInferred
)

// pipeline is the crawl machinery bound to one fetcher
type pipeline struct {
	base       *adapters.BaseAdapter
	detector   *platform.Detector
	discoverer *discovery.Discoverer
}

// Orchestrator sequences the discovery strategies for a store and wraps
// them with the result cache and knowledge bases.
type Orchestrator struct {
	config     *types.Config
	logger     types.Logger
	kb         Knowledge
	pipeline   *pipeline
	background Queue
	group      singleflight.Group

	// Now is the clock used for freshness stamps
	Now func() time.Time
}

// NewOrchestrator creates an orchestrator crawling through fetcher
func NewOrchestrator(config *types.Config, fetcher utils.Fetcher, kb Knowledge, logger types.Logger) *Orchestrator {
	o := &Orchestrator{
		config: config,
		logger: logger,
		kb:     kb,
		Now:    time.Now,
	}
	o.pipeline = o.newPipeline(fetcher)
	return o
}

// SetBackground wires the background retry queue
func (o *Orchestrator) SetBackground(q Queue) {
	o.background = q
}

func (o *Orchestrator) newPipeline(fetcher utils.Fetcher) *pipeline {
	base := adapters.NewBaseAdapter(fetcher, o.config, o.logger)
	return &pipeline{
		base:       base,
		detector:   platform.NewDetector(fetcher, o.config, o.logger),
		discoverer: discovery.New(base, o.config, o.logger),
	}
}

// ExtractProductsFromStore is the entry point used by evaluation. It never
// fails: every outcome is a well formed result, and every result except a
// cancelled one is cached. Concurrent calls for the same store share one run.
func (o *Orchestrator) ExtractProductsFromStore(ctx context.Context, storeURL string, maxProducts int) types.ExtractionResult {
	key := storeURL + "|" + strconv.Itoa(maxProducts)
	ch := o.group.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := o.runContext(ctx)
		defer cancel()
		return o.extract(runCtx, storeURL, maxProducts), nil
	})

	select {
	case res := <-ch:
		result := res.Val.(types.ExtractionResult)
		result.Products = append([]types.Product{}, result.Products...)
		return result
	case <-ctx.Done():
		o.logger.Warnf("Stopped waiting for %s: %v", storeURL, ctx.Err())
		failed := types.NewFailureResult("Extraction cancelled", ctx.Err())
		failed.DataFreshness = "Error"
		return failed
	}
}

// runContext detaches a shared run from the caller that started it, so one
// caller giving up does not fail the others. The run is still bounded by
// the pipeline timeout.
func (o *Orchestrator) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if o.config.Timeouts.Pipeline > 0 {
		return context.WithTimeout(detached, o.config.Timeouts.Pipeline)
	}
	return context.WithCancel(detached)
}

func (o *Orchestrator) extract(ctx context.Context, storeURL string, maxProducts int) types.ExtractionResult {
	startTime := o.Now()
	o.logger.Infof("Extracting products from: %s", storeURL)

	if entry, err := o.kb.Cache.Get(storeURL); err == nil {
		return o.fromCache(entry)
	}

	result, source, err := o.learn(ctx, storeURL, maxProducts)
	now := o.Now().Format(timestampLayout)

	switch {
	case ctx.Err() != nil:
		o.logger.Warnf("Extraction of %s cancelled: %v", storeURL, ctx.Err())
		failed := types.NewFailureResult("Extraction cancelled", ctx.Err())
		failed.DataFreshness = "Error"
		return failed

	case err != nil:
		return o.afterFailure(ctx, storeURL, maxProducts, result, err)

	case len(result.Products) > 0:
		switch source {
		case outcomeStatic:
			return o.finishStatic(storeURL, result)
		case outcomeInferred:
			result.DataFreshness = "Inferred (background extraction queued)"
			result.ConfidenceScore = 0.4
			result.LastVerified = "Inferred data - not verified"
			o.kb.Cache.Put(storeURL, result, true, "Site blocking detected")
			return result
		case outcomeLearned:
			result.DataFreshness = "Dynamic knowledge base"
		default:
			result.DataFreshness = "Real-time"
			result.LastVerified = now
		}
		result.ConfidenceScore = 1.0
		o.kb.Cache.Put(storeURL, result, false, "")
		o.logger.Infof("Extracted %d products from %s in %v", len(result.Products), storeURL, o.Now().Sub(startTime))
		return result
	}

	// Reachable, but nothing found by the crawl
	if found, ok := o.simplifiedSearch(ctx, storeURL, maxProducts, result.PlatformDetected); ok {
		return found
	}
	if static, ok := o.kb.Static.Lookup(storeURL, maxProducts); ok {
		return o.finishStatic(storeURL, static)
	}

	if platform.Platform(result.PlatformDetected).Known() {
		o.logger.Warnf("Could not extract any real products from %s", storeURL)
		empty := types.NewSuccessResult(nil, "No real products found", result.PlatformDetected, 0)
		empty.ErrorMessage = "This site does not appear to sell e-commerce products"
		empty.DataFreshness = "Real-time (no products found)"
		empty.ConfidenceScore = 0.8
		empty.LastVerified = now
		o.kb.Cache.Put(storeURL, empty, true, "No products found")
		return empty
	}

	o.logger.Infof("Site %s identified as service-based - no products available", storeURL)
	result.DataFreshness = "Real-time"
	result.ConfidenceScore = 0.9
	result.LastVerified = now
	o.kb.Cache.Put(storeURL, result, false, "")
	return result
}

func (o *Orchestrator) simplifiedSearch(ctx context.Context, storeURL string, maxProducts int, platformName string) (types.ExtractionResult, bool) {
	products := o.pipeline.discoverer.SimplifiedSearch(ctx, storeURL, maxProducts)
	if len(products) == 0 {
		return types.ExtractionResult{}, false
	}
	o.logger.Infof("Simplified search found %d products", len(products))
	found := types.NewSuccessResult(types.DedupProducts(products), "Simplified Search", platformName, maxProducts)
	found.DataFreshness = "Real-time (simplified search)"
	found.ConfidenceScore = 0.7
	found.LastVerified = o.Now().Format(timestampLayout)
	o.kb.Cache.Put(storeURL, found, false, "")
	return found, true
}

// afterFailure handles a store that could not be crawled at all. An
// unreachable homepage still gets a simplified search, and known retailers
// are still answered from the static catalog.
func (o *Orchestrator) afterFailure(ctx context.Context, storeURL string, maxProducts int, result types.ExtractionResult, err error) types.ExtractionResult {
	if errors.Is(err, types.ErrStoreUnreachable) {
		if found, ok := o.simplifiedSearch(ctx, storeURL, maxProducts, ""); ok {
			return found
		}
	}
	if !errors.Is(err, types.ErrInvalidURL) {
		if static, ok := o.kb.Static.Lookup(storeURL, maxProducts); ok {
			return o.finishStatic(storeURL, static)
		}
	}

	o.logger.Errorf("Error extracting products from %s: %v", storeURL, err)
	failed := types.NewFailureResult("Extraction failed", err)
	if result.PlatformDetected == blockedPlatform {
		failed.ExtractionMethod = result.ExtractionMethod
		failed.PlatformDetected = blockedPlatform
	}
	failed.DataFreshness = "Error"
	failed.ConfidenceScore = 0
	failed.LastVerified = o.Now().Format(timestampLayout)
	o.kb.Cache.Put(storeURL, failed, true, err.Error())
	return failed
}

func (o *Orchestrator) finishStatic(storeURL string, result types.ExtractionResult) types.ExtractionResult {
	o.logger.Infof("Using static knowledge base for %s", storeURL)
	result.DataFreshness = "Static knowledge base"
	result.ConfidenceScore = 0.6
	result.LastVerified = "Static data - not verified"
	o.kb.Cache.Put(storeURL, result, false, "")
	return result
}

func (o *Orchestrator) fromCache(entry types.CacheEntry) types.ExtractionResult {
	result := entry.Result
	stamp := entry.Timestamp.Format(timestampLayout)
	if entry.IsFailure {
		o.logger.Infof("Using cached failure for %s: %s", entry.URL, entry.FailureReason)
		result.DataFreshness = "Cached failure from " + stamp
		result.ConfidenceScore = 0.3
		return result
	}
	o.logger.Infof("Using cached success for %s", entry.URL)
	result.DataFreshness = "Cached from " + stamp
	result.ConfidenceScore = 0.8
	result.LastVerified = stamp
	return result
}

// DiscoverAndLearnProducts answers from the dynamic knowledge base when the
// domain is known, and otherwise crawls the store and learns what it finds.
// A blocked store is answered from the static catalog or the domain
// inference table, and queued for a background retry.
func (o *Orchestrator) DiscoverAndLearnProducts(ctx context.Context, storeURL string, maxProducts int) (types.ExtractionResult, error) {
	result, _, err := o.learn(ctx, storeURL, maxProducts)
	return result, err
}

func (o *Orchestrator) learn(ctx context.Context, storeURL string, maxProducts int) (types.ExtractionResult, outcome, error) {
	if _, err := utils.BaseURL(storeURL); err != nil {
		return types.NewFailureResult("Invalid URL", err), outcomeCrawled, err
	}
	domain := utils.NormalizeDomain(storeURL)
	o.logger.Infof("Learning products from: %s", storeURL)

	if entry, err := o.kb.Dynamic.Get(ctx, storeURL); err == nil {
		o.logger.Infof("Using existing dynamic knowledge for %s", domain)
		result := types.NewSuccessResult(entry.Products, "Dynamic Knowledge Base - "+domain, entry.Platform, maxProducts)
		result.LastVerified = entry.LastUpdated.Format(timestampLayout)
		if entry.Platform == inferencePlatform {
			return result, outcomeInferred, nil
		}
		return result, outcomeLearned, nil
	}

	result, err := o.crawl(ctx, o.pipeline, storeURL, maxProducts)
	if err != nil {
		if utils.IsBlocked(err) {
			o.logger.Infof("Site %s appears to be blocking requests - attempting alternative learning strategies", storeURL)
			return o.handleBlocked(ctx, storeURL, maxProducts)
		}
		o.logger.Errorf("Error in discover and learn for %s: %v", storeURL, err)
		failed := types.NewFailureResult("Error", err)
		failed.DataFreshness = "Failed"
		return failed, outcomeCrawled, err
	}

	if len(result.Products) > 0 {
		platformName := result.PlatformDetected
		if platformName == "" {
			platformName = string(platform.Unknown)
		}
		if err := o.kb.Dynamic.Upsert(ctx, storeURL, result.Products, platformName, result.ExtractionMethod); err != nil {
			o.logger.Errorf("Could not store learned products for %s: %v", domain, err)
		}
		o.logger.Infof("Successfully learned %d real products from %s", len(result.Products), domain)
	}
	return result, outcomeCrawled, nil
}

func (o *Orchestrator) handleBlocked(ctx context.Context, storeURL string, maxProducts int) (types.ExtractionResult, outcome, error) {
	domain := utils.NormalizeDomain(storeURL)

	if static, ok := o.kb.Static.Lookup(storeURL, maxProducts); ok && len(static.Products) > 0 {
		o.logger.Infof("Found %s in static knowledge base - using existing data", domain)
		return static, outcomeStatic, nil
	}

	inferred := o.kb.Inference.Infer(storeURL)
	if len(inferred) == 0 {
		o.logger.Warnf("Could not automatically handle blocked site %s - requires manual knowledge base entry", domain)
		failed := types.NewFailureResult("Blocked Site - Manual Intervention Required",
			fmt.Errorf("site %s is blocking requests and requires manual knowledge base entry", domain))
		failed.PlatformDetected = blockedPlatform
		return failed, outcomeInferred, fmt.Errorf("%s: %w", domain, types.ErrNoProductsFound)
	}

	if err := o.kb.Dynamic.Upsert(ctx, storeURL, inferred, inferencePlatform, "Domain-based Product Inference"); err != nil {
		o.logger.Errorf("Could not store inferred products for %s: %v", domain, err)
	}
	o.QueueExtraction(storeURL, maxProducts, types.PriorityNormal, map[string]interface{}{
		"reason":            "blocked_site_fallback",
		"inferred_products": len(inferred),
	})
	o.logger.Infof("Created %d inferred products for blocked site %s", len(inferred), domain)

	result := types.NewSuccessResult(inferred, "Blocked Site - Domain Inference (Background job queued)", blockedPlatform, maxProducts)
	result.ErrorMessage = "Site blocking detected - using inferred product data, background extraction queued"
	return result, outcomeInferred, nil
}

// ExtractWith crawls storeURL through fetcher without consulting any cache
// or knowledge base. The background worker uses it to retry blocked stores.
func (o *Orchestrator) ExtractWith(ctx context.Context, fetcher utils.Fetcher, storeURL string, maxProducts int) (types.ExtractionResult, error) {
	return o.crawl(ctx, o.newPipeline(fetcher), storeURL, maxProducts)
}

// crawl runs platform extraction, sitemap discovery, link discovery and
// collection discovery in order, stopping once maxProducts are found. A
// homepage that fails without blocking skips platform extraction; the store
// is reported unreachable only when no other strategy finds anything.
func (o *Orchestrator) crawl(ctx context.Context, p *pipeline, storeURL string, maxProducts int) (types.ExtractionResult, error) {
	var homeErr error
	homepage, resp, err := p.base.GetDocument(ctx, storeURL, o.config.Timeouts.MainPage)
	if err != nil {
		if ctx.Err() != nil {
			return types.ExtractionResult{}, ctx.Err()
		}
		if utils.IsBlocked(err) {
			return types.ExtractionResult{}, err
		}
		o.logger.Warnf("Homepage of %s unavailable, continuing without it: %v", storeURL, err)
		homeErr = fmt.Errorf("%w: %v", types.ErrStoreUnreachable, err)
		homepage, resp = nil, nil
	}

	detected := p.detector.Classify(storeURL, resp)
	platformName := ""
	if detected.Known() {
		platformName = string(detected)
	}

	var products []types.Product
	var methods []string
	remaining := func() int { return maxProducts - len(products) }

	// Step 1: platform-specific extraction
	if detected.Known() {
		adapter := adapters.ForPlatform(detected, p.base)
		found, err := adapter.ExtractProducts(ctx, storeURL, homepage, maxProducts)
		if ctx.Err() != nil {
			return types.ExtractionResult{}, ctx.Err()
		}
		if err != nil {
			o.logger.Warnf("Platform extraction failed for %s: %v", storeURL, err)
		}
		if len(found) > 0 {
			products = append(products, found...)
			methods = append(methods, fmt.Sprintf("Platform-specific (%s)", detected))
			o.logger.Infof("Platform extraction found %d products", len(found))
		}
	}

	// Step 2: sitemap, trusting only a validated sample
	if remaining() > 0 {
		if found := p.discoverer.FromSitemap(ctx, storeURL, remaining()); len(found) > 0 {
			if validated := p.discoverer.ValidateSample(ctx, found); len(validated) > 0 {
				products = append(products, validated...)
				methods = append(methods, "Sitemap Analysis")
				o.logger.Infof("Sitemap analysis found %d validated products", len(validated))
			}
		}
		if ctx.Err() != nil {
			return types.ExtractionResult{}, ctx.Err()
		}
	}

	// Step 3: navigation and category links
	if remaining() > 0 {
		if found := p.discoverer.FromLinks(ctx, storeURL, homepage, remaining()); len(found) > 0 {
			products = append(products, found...)
			methods = append(methods, "Enhanced Link Discovery")
			o.logger.Infof("Link discovery found %d products", len(found))
		}
		if ctx.Err() != nil {
			return types.ExtractionResult{}, ctx.Err()
		}
	}

	// Step 4: collections with pagination
	if remaining() > 0 {
		if found := p.discoverer.Discover(ctx, storeURL, homepage, remaining()); len(found) > 0 {
			products = append(products, found...)
			methods = append(methods, "Universal Collection Discovery")
			o.logger.Infof("Universal collection discovery found %d products", len(found))
		}
		if ctx.Err() != nil {
			return types.ExtractionResult{}, ctx.Err()
		}
	}

	products = types.DedupProducts(products)
	if len(products) == 0 && homeErr != nil {
		return types.ExtractionResult{}, homeErr
	}
	if len(products) == 0 {
		o.logger.Infof("No real products discovered for %s", storeURL)
		result := types.NewSuccessResult(nil, "Real Discovery - No products found", platformName, 0)
		result.ErrorMessage = noEcommerceMessage
		return result, nil
	}

	method := "Real Discovery - " + strings.Join(methods, ", ")
	return types.NewSuccessResult(products, method, platformName, maxProducts), nil
}

// QueueExtraction asks the background worker to retry storeURL later. It
// reports whether a job was queued.
func (o *Orchestrator) QueueExtraction(storeURL string, maxProducts int, priority types.Priority, jobContext map[string]interface{}) bool {
	if o.background == nil {
		return false
	}
	return o.background.Enqueue(types.BackgroundJob{
		StoreURL:    storeURL,
		MaxProducts: maxProducts,
		Priority:    priority,
		Context:     jobContext,
	})
}
