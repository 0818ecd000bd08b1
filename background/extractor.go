// Package background retries blocked or failed stores on a single worker
// goroutine and upgrades the knowledge base when a retry succeeds.
package background

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/utils"
)

// Phase is reported by Status
const Phase = "Phase 1 - Basic Background Threading"

// Runner crawls a store through the given fetcher. It must not answer from
// any knowledge base, since those hold the inferred data being replaced.
type Runner interface {
	ExtractWith(ctx context.Context, fetcher utils.Fetcher, storeURL string, maxProducts int) (types.ExtractionResult, error)
}

// KnowledgeStore receives upgraded catalogs
type KnowledgeStore interface {
	Upsert(ctx context.Context, storeURL string, products []types.Product, platform, method string) error
}

// UpgradeRecorder audits successful upgrades
type UpgradeRecorder interface {
	Record(domain string, productCount int) error
}

// Strategy is one way of retrying a store
type Strategy struct {
	Name    string
	Fetcher utils.Fetcher
	// Wait is slept before the attempt
	Wait time.Duration
}

// Status is a snapshot of the worker
type Status struct {
	QueueSize        int    `json:"queue_size"`
	ProcessedDomains int    `json:"processed_domains"`
	WorkerRunning    bool   `json:"worker_running"`
	Phase            string `json:"phase"`
}

// Option configures an Extractor
type Option func(*Extractor)

// WithStrategies replaces the default retry strategies
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Extractor) {
		e.strategies = strategies
	}
}

// WithSleep replaces the interruptible sleep used for delays
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Extractor) {
		e.sleep = sleep
	}
}

// Extractor owns the retry queue and its worker
type Extractor struct {
	config     *types.Config
	runner     Runner
	kb         KnowledgeStore
	upgrades   UpgradeRecorder
	logger     types.Logger
	strategies []Strategy
	sleep      func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	queue     []types.BackgroundJob
	processed map[string]bool
	running   bool
	closed    bool
	cancel    context.CancelFunc

	signal chan struct{}
	done   chan struct{}
}

// New creates an Extractor. The worker does nothing until Start is called.
func New(config *types.Config, runner Runner, kb KnowledgeStore, upgrades UpgradeRecorder, logger types.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		config:    config,
		runner:    runner,
		kb:        kb,
		upgrades:  upgrades,
		logger:    logger,
		sleep:     utils.Sleep,
		processed: make(map[string]bool),
		signal:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	e.strategies = DefaultStrategies(config, logger)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultStrategies are mobile user agent, delayed retry, different headers
// and, when enabled, a headless browser.
func DefaultStrategies(config *types.Config, logger types.Logger) []Strategy {
	client := utils.NewHTTPClient(config, logger)
	mobileUA := config.MobileUserAgent
	if mobileUA == "" {
		mobileUA = types.DefaultMobileUserAgent
	}

	strategies := []Strategy{
		{Name: "Mobile User Agent", Fetcher: client.WithUserAgent(mobileUA)},
		{Name: "Delayed Retry", Fetcher: client, Wait: config.Background.RetryDelay},
		{Name: "Different Headers", Fetcher: client.WithHeaders(map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.5",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
		})},
	}
	if config.UseHeadlessBrowser {
		strategies = append(strategies, Strategy{Name: "Headless Browser", Fetcher: utils.NewBrowserClient(config, logger)})
	}
	return strategies
}

// Start launches the worker. Calling it again is a no-op.
func (e *Extractor) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running || e.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.running = true
	go e.worker(ctx)
	e.logger.Info("Background extraction worker started")
}

// Enqueue adds job to the queue. It returns false when the extractor is
// disabled or shut down, or when the job's domain was already queued.
func (e *Extractor) Enqueue(job types.BackgroundJob) bool {
	if !e.config.Background.Enabled {
		return false
	}
	if job.Domain == "" {
		job.Domain = utils.NormalizeDomain(job.StoreURL)
	}
	if job.Domain == "" {
		e.logger.Warnf("Refusing background job with invalid store url %q", job.StoreURL)
		return false
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Timestamp.IsZero() {
		job.Timestamp = time.Now()
	}
	if job.Priority == "" {
		job.Priority = types.PriorityNormal
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.logger.Debugf("Dropping background job for %s: %v", job.Domain, types.ErrQueueClosed)
		return false
	}
	if e.processed[job.Domain] {
		e.mu.Unlock()
		e.logger.Infof("Domain %s already queued/processed for background extraction", job.Domain)
		return false
	}
	e.processed[job.Domain] = true
	e.queue = append(e.queue, job)
	e.mu.Unlock()

	select {
	case e.signal <- struct{}{}:
	default:
	}
	e.logger.Infof("Queued %s for background product extraction (priority: %s)", job.Domain, job.Priority)
	return true
}

// Shutdown stops the worker and waits for it until ctx is done. Queued
// jobs that have not started are dropped.
func (e *Extractor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	running := e.running
	cancel := e.cancel
	e.mu.Unlock()

	if !running {
		return nil
	}
	cancel()

	select {
	case <-e.done:
		e.logger.Info("Background extraction worker shutdown")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports queue length and worker state
func (e *Extractor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		QueueSize:        len(e.queue),
		ProcessedDomains: len(e.processed),
		WorkerRunning:    e.running,
		Phase:            Phase,
	}
}

func (e *Extractor) next() (types.BackgroundJob, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return types.BackgroundJob{}, false
	}
	job := e.queue[0]
	e.queue = e.queue[1:]
	return job, true
}

func (e *Extractor) worker(ctx context.Context) {
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.done)
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		job, ok := e.next()
		if !ok {
			select {
			case <-e.signal:
				continue
			case <-ctx.Done():
				return
			}
		}
		e.process(ctx, job)
	}
}

func (e *Extractor) process(ctx context.Context, job types.BackgroundJob) {
	wait := Delay(job.Domain, job.Priority, e.config.Background)
	e.logger.Infof("Waiting %v before background extraction for %s", wait, job.Domain)
	if err := e.sleep(ctx, wait); err != nil {
		return
	}

	result, ok := e.tryStrategies(ctx, job)
	if !ok {
		e.logger.Warnf("Background extraction failed for %s - keeping inferred data", job.Domain)
		return
	}

	platform := result.PlatformDetected
	if platform == "" {
		platform = "background_extraction"
	}
	method := "Background Extraction - " + result.ExtractionMethod
	if err := e.kb.Upsert(ctx, job.StoreURL, result.Products, platform, method); err != nil {
		e.logger.Errorf("Background extraction for %s could not be stored: %v", job.Domain, err)
		return
	}
	e.logger.Infof("Background extraction succeeded for %s: %d products extracted", job.Domain, len(result.Products))

	if e.upgrades != nil {
		if err := e.upgrades.Record(job.Domain, len(result.Products)); err != nil {
			e.logger.Errorf("Error recording upgrade for %s: %v", job.Domain, err)
		}
	}
}

func (e *Extractor) tryStrategies(ctx context.Context, job types.BackgroundJob) (types.ExtractionResult, bool) {
	for _, strategy := range e.strategies {
		if strategy.Wait > 0 {
			if err := e.sleep(ctx, strategy.Wait); err != nil {
				return types.ExtractionResult{}, false
			}
		}
		e.logger.Infof("Trying %s for %s", strategy.Name, job.Domain)

		result, err := e.runner.ExtractWith(ctx, strategy.Fetcher, job.StoreURL, job.MaxProducts)
		if ctx.Err() != nil {
			return types.ExtractionResult{}, false
		}
		if err != nil {
			e.logger.Debugf("%s failed for %s: %v", strategy.Name, job.Domain, err)
			continue
		}
		if result.Success && len(result.Products) > 0 {
			e.logger.Infof("%s succeeded with %d products", strategy.Name, len(result.Products))
			return result, true
		}
	}
	return types.ExtractionResult{}, false
}
