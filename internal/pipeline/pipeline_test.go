package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lafpass/internal/instrument"
	"lafpass/internal/ir"
)

func TestRunEndToEndOverSwitchAndPlainBlocks(t *testing.T) {
	mod := ir.NewModule("m")
	fn := ir.NewFunction("classify")
	mod.AddFunction(fn)

	entry := fn.AppendBlock("entry")
	merge := fn.AppendBlock("merge")
	caseA := fn.AppendBlock("caseA")
	deflt := fn.AppendBlock("deflt")

	cond := &ir.Value{Name: "x", Type: &ir.IntType{BitWidth: 32}}
	caseA.Terminator = &ir.JumpInst{Target: merge}
	deflt.Terminator = &ir.JumpInst{Target: merge}
	entry.Terminator = &ir.SwitchInst{
		Condition: cond,
		Cases:     []ir.CaseEntry{{Value: ir.ConstInt(32, 7), Successor: caseA}},
		Default:   deflt,
	}
	merge.Terminator = &ir.ReturnInst{}

	var buf bytes.Buffer
	p := New(instrument.DefaultConfig(), &buf)

	report, err := p.Run(mod)
	require.NoError(t, err)

	assert.Greater(t, report.SwitchesRewritten, 0)
	assert.Greater(t, report.Stats.Normal+report.Stats.LafSwitch, 0)
	assert.NotEmpty(t, buf.String())
}

func TestRunIsQuiet(t *testing.T) {
	mod := ir.NewModule("m")
	fn := ir.NewFunction("f")
	mod.AddFunction(fn)
	entry := fn.AppendBlock("entry")
	entry.Terminator = &ir.ReturnInst{}

	cfg := instrument.DefaultConfig()
	cfg.Quiet = true

	var buf bytes.Buffer
	p := New(cfg, &buf)
	_, err := p.Run(mod)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}
