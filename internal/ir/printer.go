package ir

import (
	"fmt"
	"strings"
)

// Printer provides pretty-printing for IR modules.
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter creates a new IR printer.
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// Print returns the textual representation of an IR module.
func Print(mod *Module) string {
	p := NewPrinter()
	p.printModule(mod)
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) write(format string, args ...interface{}) {
	p.output.WriteString(fmt.Sprintf(format, args...))
}

func (p *Printer) printModule(mod *Module) {
	p.writeLine("; module %s", mod.Name)
	for _, name := range sortedGlobalNames(mod) {
		g := mod.Globals[name]
		tl := ""
		if g.ThreadLocal {
			tl = " thread_local"
		}
		p.writeLine("@%s = external%s global %s", g.Name, tl, g.Type)
	}
	for _, fn := range mod.Functions {
		p.printFunction(fn)
	}
}

func sortedGlobalNames(mod *Module) []string {
	names := make([]string, 0, len(mod.Globals))
	for name := range mod.Globals {
		names = append(names, name)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}

func (p *Printer) printFunction(fn *Function) {
	p.writeLine("")
	p.writeLine("define @%s {", fn.Name)
	p.indent++
	for _, bb := range fn.Blocks {
		p.printBlock(bb)
	}
	p.indent--
	p.writeLine("}")
}

func (p *Printer) printBlock(bb *BasicBlock) {
	p.writeLine("%s:", bb.Label)
	p.indent++
	for _, inst := range bb.Instructions {
		meta := ""
		if ms := inst.Metadata(); len(ms) > 0 {
			meta = " !" + strings.Join(ms, " !")
		}
		p.writeLine("%s%s", inst.String(), meta)
	}
	if bb.Terminator != nil {
		p.writeLine("%s", bb.Terminator.String())
	}
	p.indent--
}
