// Package pipeline orchestrates the two transformation passes — switch
// splitting, then coverage instrumentation — over a module, in the same
// order afl-clang-fast's pass pipeline runs them (split-switches-pass
// before afl-llvm-pass), and prints the same family of banners the two
// original passes print, merged into one run.
package pipeline

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"lafpass/internal/instrument"
	"lafpass/internal/ir"
	"lafpass/internal/switchsplit"
)

// Report summarizes one end-to-end run: how many switches were split and
// how many blocks of each class were instrumented.
type Report struct {
	SwitchesRewritten int
	Stats             instrument.Stats
}

// Pipeline runs the switch splitter followed by the coverage instrumenter
// over a Module, printing progress banners to Out unless cfg.Quiet.
type Pipeline struct {
	Cfg instrument.Config
	Out io.Writer
}

func New(cfg instrument.Config, out io.Writer) *Pipeline {
	return &Pipeline{Cfg: cfg, Out: out}
}

// Run executes both passes against mod in place and returns a Report.
func (p *Pipeline) Run(mod *ir.Module) (Report, error) {
	if !p.Cfg.Quiet {
		fmt.Fprintln(p.Out, color.CyanString("lafpass")+" "+color.New(color.Bold).Sprint("instrumentation pipeline"))
	}

	var switches int
	for _, fn := range mod.Functions {
		switches += countSwitchBlocksOf(fn)
	}

	changed, err := switchsplit.SplitModule(mod)
	if err != nil {
		return Report{}, err
	}
	report := Report{}
	if changed {
		report.SwitchesRewritten = switches
	}

	if err := ir.Verify(mod); err != nil {
		return report, err
	}

	in, err := instrument.New(p.Cfg)
	if err != nil {
		return report, err
	}
	report.Stats = in.Run(mod)

	if err := ir.Verify(mod); err != nil {
		return report, err
	}

	if !p.Cfg.Quiet {
		p.printSummary(report)
	}

	return report, nil
}

// countSwitchBlocksOf counts the blocks of fn ending in a switch with at
// least one case — the switches switchsplit.Split rewrites — purely for
// Report; it does not affect instrumentation, which reclassifies blocks
// for itself.
func countSwitchBlocksOf(fn *ir.Function) int {
	n := 0
	for _, bb := range fn.Blocks {
		if sw, ok := bb.Terminator.(*ir.SwitchInst); ok && len(sw.Cases) > 0 {
			n++
		}
	}
	return n
}

// printSummary mirrors the original passes' closing banner ordering:
// split_blocks, then strcmp_blocks, compare_blocks, switch_blocks, and
// finally either a "no instrumentation targets" warning or the
// instrumented-locations line naming the active mode and ratio.
func (p *Pipeline) printSummary(r Report) {
	ok := color.New(color.FgGreen).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	lafTotal := r.Stats.LafStrcmp + r.Stats.LafCompare + r.Stats.LafSwitch
	fmt.Fprintf(p.Out, "%s total %d split_blocks!\n", ok("[+]"), lafTotal)
	fmt.Fprintf(p.Out, "%s total %d strcmp_blocks!\n", ok("[+]"), r.Stats.LafStrcmp)
	fmt.Fprintf(p.Out, "%s total %d compare_blocks!\n", ok("[+]"), r.Stats.LafCompare)
	fmt.Fprintf(p.Out, "%s total %d switch_blocks!\n", ok("[+]"), r.Stats.LafSwitch)

	if r.Stats.Normal == 0 {
		fmt.Fprintf(p.Out, "%s No instrumentation targets found.\n", warn("[!]"))
		return
	}
	fmt.Fprintf(p.Out, "%s Instrumented %d locations (%s mode, ratio %d%%).\n",
		ok("[+]"), r.Stats.Normal, p.Cfg.ModeLabel(), p.Cfg.InstRatio)
}
