package types

import "time"

// Config holds the configuration for extraction and evaluation
type Config struct {
	RequestDelay       time.Duration `mapstructure:"request_delay"`
	RequestJitter      time.Duration `mapstructure:"request_jitter"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second"`
	Burst              int           `mapstructure:"burst"`
	UseHeadlessBrowser bool          `mapstructure:"use_headless_browser"`
	UserAgents         []string      `mapstructure:"user_agents"`
	MobileUserAgent    string        `mapstructure:"mobile_user_agent"`
	LogLevel           string        `mapstructure:"log_level"`

	Timeouts   Timeouts         `mapstructure:"timeouts"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Knowledge  KnowledgeConfig  `mapstructure:"knowledge"`
	Discovery  DiscoveryConfig  `mapstructure:"discovery"`
	Background BackgroundConfig `mapstructure:"background"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Server     ServerConfig     `mapstructure:"server"`
}

// Timeouts per request class
type Timeouts struct {
	MainPage      time.Duration `mapstructure:"main_page"`
	Sitemap       time.Duration `mapstructure:"sitemap"`
	Secondary     time.Duration `mapstructure:"secondary"`
	ProductDetail time.Duration `mapstructure:"product_detail"`
	API           time.Duration `mapstructure:"api"`
	// Pipeline bounds one shared extraction run, independent of callers
	Pipeline      time.Duration `mapstructure:"pipeline"`
}

// CacheConfig controls the per-URL result cache
type CacheConfig struct {
	SuccessTTL time.Duration `mapstructure:"success_ttl"`
	FailureTTL time.Duration `mapstructure:"failure_ttl"`
}

// KnowledgeConfig controls the static and dynamic knowledge bases
type KnowledgeConfig struct {
	DynamicPath    string        `mapstructure:"dynamic_path"`
	UpgradeLogPath string        `mapstructure:"upgrade_log_path"`
	StaticPath     string        `mapstructure:"static_path"`
	InferencePath  string        `mapstructure:"inference_path"`
	MaxAge         time.Duration `mapstructure:"max_age"` // 0 keeps entries forever
}

// DiscoveryConfig bounds the crawl
type DiscoveryConfig struct {
	MaxCollections        int           `mapstructure:"max_collections"`
	ProductsPerCollection int           `mapstructure:"products_per_collection"`
	MaxPages              int           `mapstructure:"max_pages"`
	PageDelay             time.Duration `mapstructure:"page_delay"`
	SitemapSampleSize     int           `mapstructure:"sitemap_sample_size"`
	MaxValidated          int           `mapstructure:"max_validated"`
	MaxSubSitemaps        int           `mapstructure:"max_sub_sitemaps"`
	LinkCategories        int           `mapstructure:"link_categories"`
	ProductsPerCategory   int           `mapstructure:"products_per_category"`
	PriorityCollections   []string      `mapstructure:"priority_collections"`
	VerticalCollections   []string      `mapstructure:"vertical_collections"`
}

// BackgroundConfig controls the background re-extraction worker
type BackgroundConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	HighPriorityDelay time.Duration `mapstructure:"high_priority_delay"`
	NormalDelay       time.Duration `mapstructure:"normal_delay"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// EvaluationConfig controls product matching during qualification
type EvaluationConfig struct {
	MaxTargets     int     `mapstructure:"max_targets"`
	MaxProducts    int     `mapstructure:"max_products"`
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
	D2CRequired    int     `mapstructure:"d2c_required"`
	B2BRequired    int     `mapstructure:"b2b_required"`
	BrandFallback  bool    `mapstructure:"brand_fallback"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DefaultUserAgents is the desktop rotation pool
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/120.0",
}

// DefaultMobileUserAgent is used by the background mobile strategy
const DefaultMobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 14_7_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.2 Mobile/15E148 Safari/604.1"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		RequestDelay:       100 * time.Millisecond,
		RequestJitter:      400 * time.Millisecond,
		MaxRetries:         0,
		RequestsPerSecond:  5,
		Burst:              5,
		UseHeadlessBrowser: false,
		UserAgents:         append([]string(nil), DefaultUserAgents...),
		MobileUserAgent:    DefaultMobileUserAgent,
		LogLevel:           "info",
		Timeouts: Timeouts{
			MainPage:      15 * time.Second,
			Sitemap:       10 * time.Second,
			Secondary:     8 * time.Second,
			ProductDetail: 5 * time.Second,
			API:           8 * time.Second,
			Pipeline:      5 * time.Minute,
		},
		Cache: CacheConfig{
			SuccessTTL: 24 * time.Hour,
			FailureTTL: 2 * time.Hour,
		},
		Knowledge: KnowledgeConfig{
			DynamicPath:    "dynamic_knowledge_base.json",
			UpgradeLogPath: "background_upgrades.json",
		},
		Discovery: DiscoveryConfig{
			MaxCollections:        50,
			ProductsPerCollection: 20,
			MaxPages:              5,
			PageDelay:             500 * time.Millisecond,
			SitemapSampleSize:     5,
			MaxValidated:          10,
			MaxSubSitemaps:        5,
			LinkCategories:        5,
			ProductsPerCategory:   3,
			PriorityCollections:   []string{"intelligent-nutrients", "skincare"},
			VerticalCollections: []string{
				"intelligent-nutrients", "intelligent-nutrients-product-collection",
				"arete-product-collection", "o-m-product-collection", "oway-product-collection",
				"simply-organic-product-collection", "golden-hour-botanicals-product-collection",
				"juliart-product-collection", "haoma-product-collection", "myveg-hair-care-collection",
				"scalp-treatments", "hair-care", "skincare", "styling-products", "hair-treatment",
				"conditioner", "shampoo", "treatments", "best-sellers", "new-arrivals",
			},
		},
		Background: BackgroundConfig{
			Enabled:           true,
			HighPriorityDelay: 30 * time.Second,
			NormalDelay:       60 * time.Second,
			RetryDelay:        30 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Evaluation: EvaluationConfig{
			MaxTargets:     25,
			MaxProducts:    100,
			FuzzyThreshold: 0.9,
			D2CRequired:    3,
			B2BRequired:    2,
			BrandFallback:  false,
		},
		Server: ServerConfig{
			Port:           "8080",
			Environment:    "development",
			AllowedOrigins: []string{"*"},
		},
	}
}
