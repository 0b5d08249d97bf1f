package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ofertas/internal/ratelimit/models"
)

func TestLoadPolicyFile(t *testing.T) {
	t.Run("decodes durations", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "limits.yaml")
		doc := "policies:\n  daily_offer:\n    max_attempts: 3\n    window: 10m\n    block: 1h\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

		policies, err := LoadPolicyFile(path)
		require.NoError(t, err)
		assert.Equal(t, Policy{MaxAttempts: 3, Window: 10 * time.Minute, Block: time.Hour}, policies[models.ActionDailyOffer])
	})

	t.Run("rejects invalid policy", func(t *testing.T) {
		_, err := ParsePolicies([]byte("policies:\n  daily_offer:\n    max_attempts: 0\n    window: 10m\n"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPolicyFile(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestRetentionCoversLongestWindowOrBlock(t *testing.T) {
	assert.Equal(t, time.Hour, Retention(DefaultPolicies(), models.DefaultGuards()))

	policies, err := ParsePolicies([]byte(`
policies:
  daily_offer:
    max_attempts: 10
    window: 6h
    block: 12h
`))
	require.NoError(t, err)
	merged := DefaultPolicies()
	for action, p := range policies {
		merged[action] = p
	}
	assert.Equal(t, 12*time.Hour, Retention(merged, models.DefaultGuards()))
}
