package ir

import (
	"fmt"

	"github.com/pkg/errors"
)

// IRStructuralError reports a module invariant violation: one discovered
// by Verify (a phi node whose incoming block is not a real predecessor, a
// block with no terminator), or a switch the splitter rejects because its
// case values' bit-width is not a multiple of 8.
type IRStructuralError struct {
	Function string
	Block    string
	Detail   string
}

func (e *IRStructuralError) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("ir: %s:%s: %s", e.Function, e.Block, e.Detail)
	}
	return fmt.Sprintf("ir: %s: %s", e.Function, e.Detail)
}

// Verify walks every function in the module and checks the structural
// invariants the switch splitter and coverage instrumenter both rely on:
// every block ends in exactly one terminator, and every phi incoming block
// is an actual predecessor (a block whose terminator lists it as a
// successor).
func Verify(mod *Module) error {
	for _, fn := range mod.Functions {
		if err := verifyFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

func verifyFunction(fn *Function) error {
	preds := predecessorSets(fn)

	for _, bb := range fn.Blocks {
		if bb.Terminator == nil {
			return errors.WithStack(&IRStructuralError{
				Function: fn.Name, Block: bb.Label,
				Detail: "block has no terminator",
			})
		}
		for _, phi := range bb.Phis() {
			for _, in := range phi.Incoming {
				if in.Block == nil {
					return errors.WithStack(&IRStructuralError{
						Function: fn.Name, Block: bb.Label,
						Detail: "phi incoming has a nil predecessor block",
					})
				}
				if _, ok := preds[bb][in.Block]; !ok {
					return errors.WithStack(&IRStructuralError{
						Function: fn.Name, Block: bb.Label,
						Detail: fmt.Sprintf("phi names %%%s as a predecessor, but it does not branch here", in.Block.Label),
					})
				}
			}
		}
	}
	return nil
}

func predecessorSets(fn *Function) map[*BasicBlock]map[*BasicBlock]struct{} {
	preds := make(map[*BasicBlock]map[*BasicBlock]struct{}, len(fn.Blocks))
	for _, bb := range fn.Blocks {
		preds[bb] = make(map[*BasicBlock]struct{})
	}
	for _, bb := range fn.Blocks {
		for _, succ := range bb.Successors() {
			if _, ok := preds[succ]; ok {
				preds[succ][bb] = struct{}{}
			}
		}
	}
	return preds
}
