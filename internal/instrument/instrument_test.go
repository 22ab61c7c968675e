package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lafpass/internal/ir"
)

func buildModuleWithBlocks(labels ...string) *ir.Module {
	mod := ir.NewModule("m")
	fn := ir.NewFunction("f")
	mod.AddFunction(fn)
	for _, l := range labels {
		bb := fn.AppendBlock(l)
		bb.Terminator = &ir.ReturnInst{}
	}
	return mod
}

func TestRunDeclaresAllFourGlobals(t *testing.T) {
	mod := buildModuleWithBlocks("normal_basicblock.0")
	in, err := New(DefaultConfig())
	require.NoError(t, err)

	in.Run(mod)

	for _, name := range []string{"__afl_area_ptr", "__afl_laf_area_ptr", "__afl_prev_loc", "__laf_afl_prev_loc"} {
		_, ok := mod.Globals[name]
		assert.True(t, ok, name)
	}
}

func TestRunInstrumentsEachClassOnce(t *testing.T) {
	mod := buildModuleWithBlocks(
		"normal_basicblock.0",
		"strcmp.cmp_added.1",
		"inv_cmp.2",
		"NewDefault",
		"entry",
	)
	in, err := New(DefaultConfig())
	require.NoError(t, err)

	stats := in.Run(mod)

	assert.Equal(t, 1, stats.Normal)
	assert.Equal(t, 1, stats.LafStrcmp)
	assert.Equal(t, 1, stats.LafCompare)
	assert.Equal(t, 1, stats.LafSwitch)
}

func TestRunLeavesUnclassifiedBlocksUninstrumented(t *testing.T) {
	mod := buildModuleWithBlocks("entry")
	fn := mod.Functions[0]
	bb := fn.Blocks[0]

	in, err := New(DefaultConfig())
	require.NoError(t, err)
	in.Run(mod)

	assert.Empty(t, bb.Instructions)
}

func TestInstrumentedLoadsAndStoresAreTaggedNosanitize(t *testing.T) {
	mod := buildModuleWithBlocks("normal_basicblock.0")
	fn := mod.Functions[0]
	bb := fn.Blocks[0]

	in, err := New(DefaultConfig())
	require.NoError(t, err)
	in.Run(mod)

	require.NotEmpty(t, bb.Instructions)
	for _, inst := range bb.Instructions {
		switch inst.(type) {
		case *ir.LoadInst, *ir.StoreInst:
			assert.Contains(t, inst.Metadata(), "nosanitize")
		}
	}
}

func TestLowInstRatioSkipsMostBlocks(t *testing.T) {
	labels := make([]string, 200)
	for i := range labels {
		labels[i] = "normal_basicblock"
	}
	mod := buildModuleWithBlocks(labels...)

	cfg := DefaultConfig()
	cfg.InstRatio = 1
	in, err := New(cfg)
	require.NoError(t, err)

	stats := in.Run(mod)
	assert.Less(t, stats.Normal, 30, "a 1%% ratio over 200 blocks should instrument only a handful")
}

func TestFullInstRatioInstrumentsEveryBlock(t *testing.T) {
	mod := buildModuleWithBlocks("normal_basicblock.0", "normal_basicblock.1", "normal_basicblock.2")

	in, err := New(DefaultConfig())
	require.NoError(t, err)

	stats := in.Run(mod)
	assert.Equal(t, 3, stats.Normal)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MapSize = 3
	_, err := New(cfg)
	require.Error(t, err)
}

func TestModeLabel(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "non-hardened", cfg.ModeLabel())
	cfg.Harden = true
	assert.Equal(t, "hardened", cfg.ModeLabel())
	cfg.Harden = false
	cfg.UseASAN = true
	assert.Equal(t, "ASAN/MSAN", cfg.ModeLabel())
}
