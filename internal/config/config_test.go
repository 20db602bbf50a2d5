package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
	assert.Equal(t, 5, cfg.MatchTopK)
	assert.Equal(t, 5, cfg.MatchPoolMultiplier)
	assert.Equal(t, 3, cfg.MenteeMaxActiveMentors)
	assert.True(t, cfg.FeedbackRequireAccepted)
	assert.False(t, cfg.UseOpenAI())
	assert.False(t, cfg.UseQdrant())
}

func Test_Load_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "b1:9092,b2:9092")
	t.Setenv("MATCH_POOL_MULTIPLIER", "3")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("QDRANT_URL", "http://localhost:6333")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.MatchPoolMultiplier)
	assert.True(t, cfg.UseOpenAI())
	assert.True(t, cfg.UseQdrant())
}

func Test_GetAIBackoffConfig_TestEnv(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := Load()
	require.NoError(t, err)

	maxElapsed, _, _, _ := cfg.GetAIBackoffConfig()
	assert.Less(t, maxElapsed.Seconds(), 5.0)
}
