package switchsplit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lafpass/internal/ir"
)

// buildSwitchFn builds: entry -> switch(x) { values[i]: case block i, default: deflt }
// every case block and deflt jump to merge, which has a phi collecting one
// value from each.
func buildSwitchFn(t *testing.T, values []uint64) (*ir.Function, *ir.BasicBlock, []*ir.BasicBlock, *ir.BasicBlock, *ir.PhiInst) {
	t.Helper()

	fn := ir.NewFunction("classify")
	entry := fn.AppendBlock("entry")
	merge := fn.AppendBlock("merge")
	deflt := fn.AppendBlock("deflt")

	cond := &ir.Value{Name: "x", Type: &ir.IntType{BitWidth: 32}}

	cases := make([]*ir.BasicBlock, len(values))
	caseEntries := make([]ir.CaseEntry, len(values))
	for i, v := range values {
		bb := fn.AppendBlock("case")
		bb.Terminator = &ir.JumpInst{Target: merge}
		cases[i] = bb
		caseEntries[i] = ir.CaseEntry{Value: ir.ConstInt(32, v), Successor: bb}
	}

	deflt.Terminator = &ir.JumpInst{Target: merge}

	entry.Terminator = &ir.SwitchInst{Condition: cond, Cases: caseEntries, Default: deflt}

	phi := ir.NewPhi(fn, "r", &ir.IntType{BitWidth: 32})
	for _, bb := range cases {
		phi.AddIncoming(ir.ConstInt(32, 1), bb)
	}
	phi.AddIncoming(ir.ConstInt(32, 0), deflt)
	merge.Instructions = append(merge.Instructions, phi)
	merge.Terminator = &ir.ReturnInst{Value: phi.Result()}

	return fn, entry, cases, deflt, phi
}

func TestSplitRewritesSwitchIntoByteTree(t *testing.T) {
	fn, entry, _, _, _ := buildSwitchFn(t, []uint64{0x0100, 0x0200, 0x0300})

	res, err := Split(fn)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SwitchesRewritten)

	_, isSwitch := entry.Terminator.(*ir.SwitchInst)
	assert.False(t, isSwitch, "entry's switch must be gone")
	jump, ok := entry.Terminator.(*ir.JumpInst)
	require.True(t, ok)
	assert.Equal(t, "NodeBlock", jump.Target.Label)
}

func TestSplitTagsUnmarkedBlocksNormal(t *testing.T) {
	fn, entry, cases, deflt, _ := buildSwitchFn(t, []uint64{1, 2})
	_, _ = cases, deflt

	_, err := Split(fn)
	require.NoError(t, err)

	assert.Equal(t, "normal_basicblock", entry.Label)
}

// buildSwitchFnWithDefaultPhi builds: entry -> switch(x) { 5: caseA, 6: caseB,
// default: deflt }, where deflt itself (the default successor, not some
// further-downstream merge block) carries a phi with two incoming pairs
// both from entry. splitOne's rewrite target is defaultDest.Phis(), so the
// phi has to live directly in the default block to be reachable at all; the
// duplicated entry->deflt incoming pair lets the test tell "only the first
// occurrence moved" apart from "every occurrence moved".
func buildSwitchFnWithDefaultPhi(t *testing.T, values []uint64) (*ir.Function, *ir.BasicBlock, *ir.BasicBlock, *ir.PhiInst) {
	t.Helper()

	fn := ir.NewFunction("classify")
	entry := fn.AppendBlock("entry")
	deflt := fn.AppendBlock("deflt")
	merge := fn.AppendBlock("merge")

	cond := &ir.Value{Name: "x", Type: &ir.IntType{BitWidth: 32}}

	caseEntries := make([]ir.CaseEntry, len(values))
	for i, v := range values {
		bb := fn.AppendBlock("case")
		bb.Terminator = &ir.JumpInst{Target: merge}
		caseEntries[i] = ir.CaseEntry{Value: ir.ConstInt(32, v), Successor: bb}
	}

	phi := ir.NewPhi(fn, "r", &ir.IntType{BitWidth: 32})
	phi.AddIncoming(ir.ConstInt(32, 0), entry)
	phi.AddIncoming(ir.ConstInt(32, 9), entry)
	deflt.Instructions = append(deflt.Instructions, phi)
	deflt.Terminator = &ir.JumpInst{Target: merge}

	entry.Terminator = &ir.SwitchInst{Condition: cond, Cases: caseEntries, Default: deflt}

	merge.Terminator = &ir.ReturnInst{}

	return fn, entry, deflt, phi
}

func TestSplitInsertsNewDefaultAndRewritesPhiFirstOccurrenceOnly(t *testing.T) {
	fn, entry, _, phi := buildSwitchFnWithDefaultPhi(t, []uint64{5, 6})

	_, err := Split(fn)
	require.NoError(t, err)

	require.True(t, fn.HasBlockNamed("NewDefault"))
	require.Len(t, phi.Incoming, 2)

	var sawNewDefault, sawOrigEntry int
	for _, in := range phi.Incoming {
		switch in.Block.Label {
		case "NewDefault":
			sawNewDefault++
		case entry.Label:
			sawOrigEntry++
		}
	}
	assert.Equal(t, 1, sawNewDefault, "only the first incoming pair from the switch block moves to NewDefault")
	assert.Equal(t, 1, sawOrigEntry, "the second incoming pair from the switch block is left untouched")
}

func TestSplitRejectsNonByteMultipleBitWidth(t *testing.T) {
	fn := ir.NewFunction("odd")
	entry := fn.AppendBlock("entry")
	deflt := fn.AppendBlock("deflt")
	caseA := fn.AppendBlock("caseA")
	deflt.Terminator = &ir.ReturnInst{}
	caseA.Terminator = &ir.ReturnInst{}

	cond := &ir.Value{Name: "x", Type: &ir.IntType{BitWidth: 12}}
	entry.Terminator = &ir.SwitchInst{
		Condition: cond,
		Cases:     []ir.CaseEntry{{Value: ir.ConstInt(12, 1), Successor: caseA}},
		Default:   deflt,
	}

	_, err := Split(fn)
	assert.Error(t, err)
}

func TestSplitLeavesNonSwitchFunctionsUntouched(t *testing.T) {
	fn := ir.NewFunction("plain")
	entry := fn.AppendBlock("entry")
	entry.Terminator = &ir.ReturnInst{}

	res, err := Split(fn)
	require.NoError(t, err)
	assert.Equal(t, 0, res.SwitchesRewritten)
}

func TestSplitModuleAggregatesAcrossFunctions(t *testing.T) {
	mod := ir.NewModule("m")
	fn1, _, _, _, _ := buildSwitchFn(t, []uint64{1, 2})
	fn2 := ir.NewFunction("noop")
	entry := fn2.AppendBlock("entry")
	entry.Terminator = &ir.ReturnInst{}

	mod.AddFunction(fn1)
	mod.AddFunction(fn2)

	changed, err := SplitModule(mod)
	require.NoError(t, err)
	assert.True(t, changed)
}
