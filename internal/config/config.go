package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"expansion-evaluator/internal/types"
)

// Load loads configuration from environment variables and an optional config file
func Load() (*types.Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom loads configuration using the given viper instance
func LoadFrom(v *viper.Viper) (*types.Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("EXPANSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults mirrors types.DefaultConfig so every key is known to viper
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("request_delay", d.RequestDelay)
	v.SetDefault("request_jitter", d.RequestJitter)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("requests_per_second", d.RequestsPerSecond)
	v.SetDefault("burst", d.Burst)
	v.SetDefault("use_headless_browser", d.UseHeadlessBrowser)
	v.SetDefault("user_agents", d.UserAgents)
	v.SetDefault("mobile_user_agent", d.MobileUserAgent)
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("timeouts.main_page", d.Timeouts.MainPage)
	v.SetDefault("timeouts.sitemap", d.Timeouts.Sitemap)
	v.SetDefault("timeouts.secondary", d.Timeouts.Secondary)
	v.SetDefault("timeouts.product_detail", d.Timeouts.ProductDetail)
	v.SetDefault("timeouts.api", d.Timeouts.API)
	v.SetDefault("timeouts.pipeline", d.Timeouts.Pipeline)

	v.SetDefault("cache.success_ttl", d.Cache.SuccessTTL)
	v.SetDefault("cache.failure_ttl", d.Cache.FailureTTL)

	v.SetDefault("knowledge.dynamic_path", d.Knowledge.DynamicPath)
	v.SetDefault("knowledge.upgrade_log_path", d.Knowledge.UpgradeLogPath)
	v.SetDefault("knowledge.static_path", d.Knowledge.StaticPath)
	v.SetDefault("knowledge.inference_path", d.Knowledge.InferencePath)
	v.SetDefault("knowledge.max_age", d.Knowledge.MaxAge)

	v.SetDefault("discovery.max_collections", d.Discovery.MaxCollections)
	v.SetDefault("discovery.products_per_collection", d.Discovery.ProductsPerCollection)
	v.SetDefault("discovery.max_pages", d.Discovery.MaxPages)
	v.SetDefault("discovery.page_delay", d.Discovery.PageDelay)
	v.SetDefault("discovery.sitemap_sample_size", d.Discovery.SitemapSampleSize)
	v.SetDefault("discovery.max_validated", d.Discovery.MaxValidated)
	v.SetDefault("discovery.max_sub_sitemaps", d.Discovery.MaxSubSitemaps)
	v.SetDefault("discovery.link_categories", d.Discovery.LinkCategories)
	v.SetDefault("discovery.products_per_category", d.Discovery.ProductsPerCategory)
	v.SetDefault("discovery.priority_collections", d.Discovery.PriorityCollections)
	v.SetDefault("discovery.vertical_collections", d.Discovery.VerticalCollections)

	v.SetDefault("background.enabled", d.Background.Enabled)
	v.SetDefault("background.high_priority_delay", d.Background.HighPriorityDelay)
	v.SetDefault("background.normal_delay", d.Background.NormalDelay)
	v.SetDefault("background.retry_delay", d.Background.RetryDelay)
	v.SetDefault("background.shutdown_timeout", d.Background.ShutdownTimeout)

	v.SetDefault("evaluation.max_targets", d.Evaluation.MaxTargets)
	v.SetDefault("evaluation.max_products", d.Evaluation.MaxProducts)
	v.SetDefault("evaluation.fuzzy_threshold", d.Evaluation.FuzzyThreshold)
	v.SetDefault("evaluation.d2c_required", d.Evaluation.D2CRequired)
	v.SetDefault("evaluation.b2b_required", d.Evaluation.B2BRequired)
	v.SetDefault("evaluation.brand_fallback", d.Evaluation.BrandFallback)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.environment", d.Server.Environment)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
}

// validate validates the configuration
func validate(cfg *types.Config) error {
	if cfg.Cache.FailureTTL <= 0 || cfg.Cache.SuccessTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	if cfg.Evaluation.FuzzyThreshold <= 0 || cfg.Evaluation.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy threshold must be in (0, 1], got: %v", cfg.Evaluation.FuzzyThreshold)
	}

	if cfg.Discovery.MaxPages < 1 {
		return fmt.Errorf("discovery.max_pages must be at least 1")
	}

	if len(cfg.UserAgents) == 0 {
		return fmt.Errorf("at least one user agent is required")
	}

	if cfg.Knowledge.DynamicPath == "" {
		return fmt.Errorf("knowledge.dynamic_path is required (set EXPANSION_KNOWLEDGE_DYNAMIC_PATH)")
	}

	return nil
}
