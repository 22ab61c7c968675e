package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubEnv(vals map[string]string) func(string) string {
	return func(key string) string { return vals[key] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(stubEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, uint(100), cfg.InstRatio)
	assert.False(t, cfg.Quiet)
}

func TestLoadConfigParsesInstRatio(t *testing.T) {
	cfg, err := LoadConfig(stubEnv(map[string]string{"AFL_INST_RATIO": "42"}))
	require.NoError(t, err)
	assert.Equal(t, uint(42), cfg.InstRatio)
}

func TestLoadConfigRejectsOutOfRangeInstRatio(t *testing.T) {
	_, err := LoadConfig(stubEnv(map[string]string{"AFL_INST_RATIO": "150"}))
	assert.Error(t, err)

	_, err = LoadConfig(stubEnv(map[string]string{"AFL_INST_RATIO": "0"}))
	assert.Error(t, err)

	_, err = LoadConfig(stubEnv(map[string]string{"AFL_INST_RATIO": "banana"}))
	assert.Error(t, err)
}

func TestValidateRejectsMapSizeTooLargeForUint32BitIndex(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MapSize = 1 << 30
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsDefaultMapSize(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFlags(t *testing.T) {
	cfg, err := LoadConfig(stubEnv(map[string]string{
		"AFL_QUIET":    "1",
		"AFL_HARDEN":   "1",
		"AFL_USE_ASAN": "1",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.Quiet)
	assert.True(t, cfg.Harden)
	assert.True(t, cfg.UseASAN)
	assert.False(t, cfg.UseMSAN)
}
