package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SHORT_TERM_MEMORY_TTL", "")
	t.Setenv("RETRIEVAL_MODE", "")

	cfg := Load()

	assert.Equal(t, 3600, cfg.Memory.ShortTermTTL)
	assert.Equal(t, 2592000, cfg.Memory.LongTermTTL)
	assert.Equal(t, 30, cfg.Retrieval.AgentStepLimit)
	assert.Equal(t, 0.5, cfg.Retrieval.RerankScoreThreshold)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SHORT_TERM_MEMORY_TTL", "86400")
	t.Setenv("RETRIEVAL_MODE", "Sequential")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("UTILITY_LLM_TEMPERATURE", "0.25")
	t.Setenv("USER_CONTEXT_TOP_K", "not-a-number")

	cfg := Load()

	assert.Equal(t, 86400, cfg.Memory.ShortTermTTL)
	assert.Equal(t, "sequential", cfg.Retrieval.Mode)
	assert.True(t, cfg.App.OtelEnabled)
	assert.Equal(t, 0.25, cfg.Ai.UtilityTemperature)
	assert.Equal(t, 10, cfg.Retrieval.UserContextTopK)
}
