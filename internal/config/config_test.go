package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expansion-evaluator/internal/types"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Cache.SuccessTTL)
	assert.Equal(t, 2*time.Hour, cfg.Cache.FailureTTL)
	assert.Equal(t, 15*time.Second, cfg.Timeouts.MainPage)
	assert.Equal(t, 5*time.Minute, cfg.Timeouts.Pipeline)
	assert.Equal(t, 0.9, cfg.Evaluation.FuzzyThreshold)
	assert.Equal(t, 5, cfg.Discovery.MaxPages)
	assert.Equal(t, "dynamic_knowledge_base.json", cfg.Knowledge.DynamicPath)
	assert.Len(t, cfg.UserAgents, len(types.DefaultUserAgents))
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("EXPANSION_CACHE_FAILURE_TTL", "30m")
	t.Setenv("EXPANSION_KNOWLEDGE_MAX_AGE", "168h")
	t.Setenv("EXPANSION_TIMEOUTS_PIPELINE", "90s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Cache.FailureTTL)
	assert.Equal(t, 168*time.Hour, cfg.Knowledge.MaxAge)
	assert.Equal(t, 90*time.Second, cfg.Timeouts.Pipeline)
}

func TestLoad_InvalidThreshold(t *testing.T) {
	chdir(t, t.TempDir())
	v := viper.New()
	v.Set("evaluation.fuzzy_threshold", 1.5)

	_, err := LoadFrom(v)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fuzzy threshold")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*types.Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*types.Config) {}},
		{name: "no user agents", mutate: func(c *types.Config) { c.UserAgents = nil }, wantErr: true},
		{name: "zero pages", mutate: func(c *types.Config) { c.Discovery.MaxPages = 0 }, wantErr: true},
		{name: "no kb path", mutate: func(c *types.Config) { c.Knowledge.DynamicPath = "" }, wantErr: true},
		{name: "zero failure ttl", mutate: func(c *types.Config) { c.Cache.FailureTTL = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.DefaultConfig()
			tt.mutate(cfg)
			err := validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir in Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
