package dsl

import (
	"fmt"

	"lafpass/internal/ir"
)

// Build converts a parsed ModuleSrc into an ir.Module. Blocks are created
// in two passes so that jump/switch targets can refer to blocks declared
// later in the same function, the way labels work in assembly.
func Build(src *ModuleSrc) (*ir.Module, error) {
	mod := ir.NewModule(src.Name)

	for _, fnSrc := range src.Functions {
		fn := ir.NewFunction(fnSrc.Name)
		mod.AddFunction(fn)

		byLabel := make(map[string]*ir.BasicBlock, len(fnSrc.Blocks))
		for _, bbSrc := range fnSrc.Blocks {
			if _, dup := byLabel[bbSrc.Label]; dup {
				return nil, fmt.Errorf("dsl: function %s: duplicate block label %q", fn.Name, bbSrc.Label)
			}
			byLabel[bbSrc.Label] = fn.AppendBlock(bbSrc.Label)
		}

		resolve := func(label string) (*ir.BasicBlock, error) {
			bb, ok := byLabel[label]
			if !ok {
				return nil, fmt.Errorf("dsl: function %s: undefined label %q", fn.Name, label)
			}
			return bb, nil
		}

		for _, bbSrc := range fnSrc.Blocks {
			bb := byLabel[bbSrc.Label]
			term, err := buildTerminator(bbSrc.Term, resolve)
			if err != nil {
				return nil, err
			}
			bb.Terminator = term
		}
	}

	return mod, nil
}

func buildTerminator(t *TermSrc, resolve func(string) (*ir.BasicBlock, error)) (ir.Terminator, error) {
	switch {
	case t.Jump != nil:
		target, err := resolve(t.Jump.Target)
		if err != nil {
			return nil, err
		}
		return &ir.JumpInst{Target: target}, nil

	case t.Return != nil:
		return &ir.ReturnInst{}, nil

	case t.Switch != nil:
		cond := &ir.Value{Name: t.Switch.Cond, Type: &ir.IntType{BitWidth: 32}}
		cases := make([]ir.CaseEntry, len(t.Switch.Cases))
		for i, c := range t.Switch.Cases {
			succ, err := resolve(c.Label)
			if err != nil {
				return nil, err
			}
			cases[i] = ir.CaseEntry{Value: ir.ConstInt(32, uint64(c.Value)), Successor: succ}
		}
		def, err := resolve(t.Switch.Default)
		if err != nil {
			return nil, err
		}
		return &ir.SwitchInst{Condition: cond, Cases: cases, Default: def}, nil

	default:
		return nil, fmt.Errorf("dsl: block has no recognized terminator")
	}
}
