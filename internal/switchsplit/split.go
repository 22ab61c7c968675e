// Package switchsplit shatters multi-byte integer switch statements into
// a tree of single-byte comparisons, so that byte-level coverage
// instrumentation downstream can see which bytes of a multi-byte
// comparison the fuzzer is getting right — the same trick laf-intel's
// split-switches-pass.so.cc performs on LLVM IR, expressed here over the
// in-process Module/Function/BasicBlock graph instead.
package switchsplit

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	ierrors "lafpass/internal/errors"
	"lafpass/internal/ir"
)

// caseExpr pairs one case constant with the block it jumps to.
type caseExpr struct {
	Val *ir.Value
	BB  *ir.BasicBlock
}

// Result summarizes the work Split performed on one function.
type Result struct {
	SwitchesRewritten int
}

// SplitModule runs Split over every function of mod, in declaration order,
// and reports whether any switch was rewritten.
func SplitModule(mod *ir.Module) (bool, error) {
	changed := false
	for _, fn := range mod.Functions {
		res, err := Split(fn)
		if err != nil {
			return changed, err
		}
		if res.SwitchesRewritten > 0 {
			changed = true
		}
	}
	return changed, nil
}

// Split finds every switch terminator in fn with at least one case and
// replaces it with a decision tree of single-byte comparisons. If no block
// of fn carries the "normal_basicblock" marker, every block of fn is
// renamed "normal_basicblock" first — mirroring the original pass's
// behavior of claiming such a function wholesale for edge coverage.
func Split(fn *ir.Function) (Result, error) {
	tagUnmarkedBlocks(fn)

	var switches []*ir.BasicBlock
	for _, bb := range fn.Blocks {
		sw, ok := bb.Terminator.(*ir.SwitchInst)
		if !ok {
			continue
		}
		if len(sw.Cases) < 1 {
			continue
		}
		switches = append(switches, bb)
	}

	res := Result{}
	for _, origBlock := range switches {
		if err := splitOne(fn, origBlock); err != nil {
			return res, err
		}
		res.SwitchesRewritten++
	}
	return res, nil
}

// tagUnmarkedBlocks renames every block in fn to "normal_basicblock" if,
// and only if, none of them already carry that marker — matching
// splitSwitches' is_add scan. Only the "normal_basicblock" marker is
// looked for: a function holding other markers (e.g. cmp_added blocks
// from comparison splitting) but no "normal_basicblock" block has all of
// its blocks renamed, those included.
func tagUnmarkedBlocks(fn *ir.Function) {
	for _, bb := range fn.Blocks {
		if ir.HasSubstring(bb.Label, "normal_basicblock") {
			return
		}
	}
	for _, bb := range fn.Blocks {
		bb.Label = "normal_basicblock"
	}
}

func splitOne(fn *ir.Function, origBlock *ir.BasicBlock) error {
	sw, ok := origBlock.Terminator.(*ir.SwitchInst)
	if !ok {
		return errors.WithStack(&ierrors.PassError{
			Code:     ierrors.ErrorNotASwitch,
			Function: fn.Name,
			Block:    origBlock.Label,
			Detail:   "splitOne called on a block whose terminator is not a switch",
		})
	}

	val := sw.Condition
	defaultDest := sw.Default

	cases := make([]caseExpr, len(sw.Cases))
	for i, c := range sw.Cases {
		cases[i] = caseExpr{Val: c.Value, BB: c.Successor}
	}

	bitWidth := cases[0].Val.Type.Bits()
	if bitWidth%8 != 0 {
		return errors.WithStack(&ir.IRStructuralError{
			Function: fn.Name,
			Block:    origBlock.Label,
			Detail:   fmt.Sprintf("switch condition bit-width %d is not a multiple of 8", bitWidth),
		})
	}
	bytesChecked := make([]bool, bitWidth/8)

	newDefault := fn.InsertBlockBefore("NewDefault", defaultDest)
	newDefault.Terminator = &ir.JumpInst{Target: defaultDest}
	rewritePhiFirstOccurrence(defaultDest, origBlock, newDefault)

	sc := &splitter{fn: fn}
	switchBlock := sc.convert(cases, bytesChecked, origBlock, newDefault, val)

	origBlock.Terminator = &ir.JumpInst{Target: switchBlock}

	return nil
}

// rewritePhiFirstOccurrence updates, in every leading phi of block, only
// the first incoming pair whose predecessor is `from`, to `to`. This is
// the Go-IR analogue of the original pass's "Only update the first
// occurence" phi-fixup loop, needed because a switch can legitimately have
// more than one case branching to the same successor (hence more than one
// incoming pair from the same predecessor), and only the occurrence tied
// to the edge actually being rerouted should move.
func rewritePhiFirstOccurrence(block, from, to *ir.BasicBlock) {
	for _, phi := range block.Phis() {
		phi.ReplaceFirstIncomingBlock(from, to)
	}
}

// splitter holds the shared state (fn, for fresh IDs and block creation)
// threaded through the recursive byte-tree construction.
type splitter struct {
	fn *ir.Function
}

// convert is the Go-IR analogue of switchConvert: pick the byte index with
// the fewest distinct values among the surviving cases, and either emit a
// direct equality check (when only one value remains at that index) or
// partition the cases around the median value at that index and recurse.
func (s *splitter) convert(cases []caseExpr, bytesChecked []bool, origBlock, newDefault *ir.BasicBlock, val *ir.Value) *ir.BasicBlock {
	bytesInValue := len(bytesChecked)
	byteSets := make([]map[uint8]struct{}, bytesInValue)
	for i := range byteSets {
		byteSets[i] = make(map[uint8]struct{})
	}

	for _, c := range cases {
		for i := 0; i < bytesInValue; i++ {
			b := uint8(c.Val.ConstUint >> (uint(i) * 8))
			byteSets[i][b] = struct{}{}
		}
	}

	smallestIndex := 0
	smallestSize := 257
	for i := 0; i < bytesInValue; i++ {
		if bytesChecked[i] {
			continue
		}
		if len(byteSets[i]) < smallestSize {
			smallestIndex = i
			smallestSize = len(byteSets[i])
		}
	}

	node := s.fn.AppendBlock("NodeBlock")
	b := ir.NewBuilder(s.fn, node)

	var shifted *ir.Value
	if bytesInValue*8 > 8 {
		shifted = b.ExtractByte("byte", val, smallestIndex)
	} else {
		shifted = b.Trunc("byte", &ir.IntType{BitWidth: 8}, val)
	}

	if smallestSize == 1 {
		var byteVal uint8
		for b := range byteSets[smallestIndex] {
			byteVal = b
		}

		cmp := b.ICmp("byteMatch", ir.PredEQ, shifted, ir.ConstInt(8, uint64(byteVal)))

		checked := append([]bool(nil), bytesChecked...)
		checked[smallestIndex] = true

		if allChecked(checked) {
			b.SetBranch(cmp, cases[0].BB, newDefault)
			rewritePhiFirstOccurrence(cases[0].BB, origBlock, node)
		} else {
			next := s.convert(cases, checked, origBlock, newDefault, val)
			b.SetBranch(cmp, next, newDefault)
		}
		return node
	}

	byteVector := make([]uint8, 0, len(byteSets[smallestIndex]))
	for b := range byteSets[smallestIndex] {
		byteVector = append(byteVector, b)
	}
	sort.Slice(byteVector, func(i, j int) bool { return byteVector[i] < byteVector[j] })
	pivot := byteVector[len(byteVector)/2]

	var lhs, rhs []caseExpr
	for _, c := range cases {
		byteAt := uint8(c.Val.ConstUint >> (uint(smallestIndex) * 8))
		if byteAt < pivot {
			lhs = append(lhs, c)
		} else {
			rhs = append(rhs, c)
		}
	}

	lbb := s.convert(lhs, bytesChecked, origBlock, newDefault, val)
	rbb := s.convert(rhs, bytesChecked, origBlock, newDefault, val)

	cmp := b.ICmp("byteMatch", ir.PredULT, shifted, ir.ConstInt(8, uint64(pivot)))
	b.SetBranch(cmp, lbb, rbb)

	return node
}

func allChecked(bs []bool) bool {
	for _, b := range bs {
		if !b {
			return false
		}
	}
	return true
}
