package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareGlobalIsIdempotent(t *testing.T) {
	mod := NewModule("m")
	g1 := mod.DeclareGlobal("__afl_area_ptr", &PointerType{Elem: &IntType{BitWidth: 8}}, false)
	g2 := mod.DeclareGlobal("__afl_area_ptr", &PointerType{Elem: &IntType{BitWidth: 8}}, false)
	assert.Same(t, g1, g2)
	assert.Len(t, mod.Globals, 1)
}

func TestInsertBlockBeforePreservesOrder(t *testing.T) {
	fn := NewFunction("f")
	a := fn.AppendBlock("a")
	b := fn.AppendBlock("b")
	c := fn.AppendBlock("c")
	_ = a

	newDefault := fn.InsertBlockBefore("NewDefault", b)

	require.Len(t, fn.Blocks, 4)
	assert.Equal(t, []string{"a", "NewDefault", "b", "c"}, labels(fn))
	assert.Equal(t, newDefault, fn.Blocks[1])
	_ = c
}

func labels(fn *Function) []string {
	out := make([]string, len(fn.Blocks))
	for i, bb := range fn.Blocks {
		out[i] = bb.Label
	}
	return out
}

func TestPhiReplacesOnlyFirstOccurrence(t *testing.T) {
	fn := NewFunction("f")
	pred := fn.AppendBlock("pred")
	merge := fn.AppendBlock("merge")
	replacement := fn.AppendBlock("NodeBlock.0")

	phi := NewPhi(fn, "x", &IntType{BitWidth: 32})
	v1 := ConstInt(32, 1)
	v2 := ConstInt(32, 2)
	phi.AddIncoming(v1, pred)
	phi.AddIncoming(v2, pred)
	merge.Instructions = append(merge.Instructions, phi)

	ok := phi.ReplaceFirstIncomingBlock(pred, replacement)
	require.True(t, ok)

	assert.Equal(t, replacement, phi.Incoming[0].Block)
	assert.Equal(t, pred, phi.Incoming[1].Block, "second incoming from the same predecessor must stay untouched")
}

func TestClassifyBlock(t *testing.T) {
	cases := []struct {
		label string
		want  BlockClass
	}{
		{"entry", ClassUninstrumented},
		{"normal_basicblock.3", ClassNormal},
		{"strcmp.cmp_added.1", ClassLafStrcmp},
		{"inv_cmp.2", ClassLafCompare},
		{"injected.sign.4", ClassLafCompare},
		{"NewDefault", ClassLafSwitch},
		{"NodeBlock.5", ClassLafSwitch},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClassifyBlock(c.label), c.label)
	}
}

func TestVerifyCatchesBadPhiPredecessor(t *testing.T) {
	mod := NewModule("m")
	fn := NewFunction("f")
	mod.AddFunction(fn)

	entry := fn.AppendBlock("entry")
	other := fn.AppendBlock("other")
	merge := fn.AppendBlock("merge")

	entry.Terminator = &JumpInst{Target: merge}
	other.Terminator = &ReturnInst{}

	phi := NewPhi(fn, "x", &IntType{BitWidth: 32})
	phi.AddIncoming(ConstInt(32, 1), other)
	merge.Instructions = append(merge.Instructions, phi)
	merge.Terminator = &ReturnInst{}

	err := Verify(mod)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not branch here")
}
