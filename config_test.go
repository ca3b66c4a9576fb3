package fluence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.GetBool(CfgOptimize, false))
	assert.Equal(t, 100000, cfg.GetInt(CfgTimeCheckInterval, -1))
	assert.False(t, cfg.GetBool(CfgTrace, true))
	assert.Equal(t, 4096, cfg.GetInt(CfgMaxCallDepth, -1))
}

func TestConfigFallsBackOnUnsetOrWrongKind(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 7, cfg.GetInt("nope", 7))
	assert.True(t, cfg.GetBool("nope", true))
	assert.Equal(t, "fallback", cfg.GetString("nope", "fallback"))
	assert.Nil(t, cfg.GetStringList("nope"))

	cfg.SetString(CfgLibraryAllowlist+".typo", "x")
	assert.Equal(t, 9, cfg.GetInt(CfgLibraryAllowlist+".typo", 9))
}

func TestConfigStringListIsCopiedOnSet(t *testing.T) {
	cfg := NewConfig()
	names := []string{"print", "len"}
	cfg.SetStringList(CfgLibraryAllowlist, names)
	names[0] = "mutated"
	assert.Equal(t, []string{"print", "len"}, cfg.GetStringList(CfgLibraryAllowlist))
}
