// Package ir implements the typed intermediate representation the
// instrumentation passes operate on: modules owning functions, functions
// owning basic blocks, basic blocks owning instructions.
package ir

import "fmt"

// Module is the root of the IR graph. It owns every Function and every
// module-level GlobalVariable declared in it.
type Module struct {
	Name      string
	Functions []*Function
	Globals   map[string]*GlobalVariable
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name, Globals: make(map[string]*GlobalVariable)}
}

// DeclareGlobal returns the existing global of that name if one was already
// declared, or creates and registers a new one. Declaration is therefore
// idempotent by name, which is what lets the coverage instrumenter run
// twice over the same module without redeclaring __afl_area_ptr et al.
func (m *Module) DeclareGlobal(name string, typ Type, threadLocal bool) *GlobalVariable {
	if g, ok := m.Globals[name]; ok {
		return g
	}
	g := &GlobalVariable{
		Name:        name,
		Type:        typ,
		Linkage:     LinkageExternal,
		ThreadLocal: threadLocal,
	}
	m.Globals[name] = g
	return g
}

func (m *Module) AddFunction(fn *Function) {
	m.Functions = append(m.Functions, fn)
}

// GlobalVariable models one of the four externally-linked symbols the
// coverage instrumenter introduces (§6 of the spec): the two shared-memory
// map pointers and the two thread-local "previous location" registers.
type GlobalVariable struct {
	Name        string
	Type        Type
	Linkage     Linkage
	ThreadLocal bool
}

type Linkage int

const (
	LinkageExternal Linkage = iota
	LinkageInternal
)

// Function is an ordered list of basic blocks.
type Function struct {
	Name   string
	Blocks []*BasicBlock

	nextValueID int
	nextInstID  int
	nextBlockID int
}

// NewFunction creates an empty function (no blocks).
func NewFunction(name string) *Function {
	return &Function{Name: name}
}

func (f *Function) freshValueID() int {
	f.nextValueID++
	return f.nextValueID
}

func (f *Function) freshInstID() int {
	f.nextInstID++
	return f.nextInstID
}

func (f *Function) freshBlockID() int {
	f.nextBlockID++
	return f.nextBlockID
}

// AppendBlock adds a new, empty block at the end of the function.
func (f *Function) AppendBlock(label string) *BasicBlock {
	bb := &BasicBlock{Label: label, Parent: f, id: f.freshBlockID()}
	f.Blocks = append(f.Blocks, bb)
	return bb
}

// InsertBlockBefore inserts a new, empty block immediately before "before"
// in the function's block order. It mirrors NewDefault->insertInto(F,
// Default) in the original LLVM pass: the new block's position in program
// order only matters for human-readable output, never for control flow,
// but the original keeps it adjacent to the block it precedes.
func (f *Function) InsertBlockBefore(label string, before *BasicBlock) *BasicBlock {
	bb := &BasicBlock{Label: label, Parent: f, id: f.freshBlockID()}
	idx := len(f.Blocks)
	for i, b := range f.Blocks {
		if b == before {
			idx = i
			break
		}
	}
	f.Blocks = append(f.Blocks, nil)
	copy(f.Blocks[idx+1:], f.Blocks[idx:])
	f.Blocks[idx] = bb
	return bb
}

// HasBlockNamed reports whether any block in the function carries exactly
// this label.
func (f *Function) HasBlockNamed(label string) bool {
	for _, bb := range f.Blocks {
		if bb.Label == label {
			return true
		}
	}
	return false
}

// BasicBlock is a maximal straight-line run of instructions ending in one
// terminator.
type BasicBlock struct {
	Label        string
	Instructions []Instruction
	Terminator   Terminator
	Parent       *Function

	id int
}

// FirstInsertionPoint returns the index of the first instruction at which
// new code may legally be inserted: after any leading PhiInst values, but
// before everything else (and before the terminator, which is never part
// of Instructions).
func (bb *BasicBlock) FirstInsertionPoint() int {
	i := 0
	for i < len(bb.Instructions) {
		if _, ok := bb.Instructions[i].(*PhiInst); !ok {
			break
		}
		i++
	}
	return i
}

// InsertAt splices inst into the instruction list at index idx.
func (bb *BasicBlock) InsertAt(idx int, inst Instruction) {
	bb.Instructions = append(bb.Instructions, nil)
	copy(bb.Instructions[idx+1:], bb.Instructions[idx:])
	bb.Instructions[idx] = inst
}

// InsertSliceAt splices a run of instructions into the block starting at
// idx, preserving their relative order.
func (bb *BasicBlock) InsertSliceAt(idx int, insts []Instruction) {
	merged := make([]Instruction, 0, len(bb.Instructions)+len(insts))
	merged = append(merged, bb.Instructions[:idx]...)
	merged = append(merged, insts...)
	merged = append(merged, bb.Instructions[idx:]...)
	bb.Instructions = merged
}

// Phis returns the leading PhiInst instructions of the block.
func (bb *BasicBlock) Phis() []*PhiInst {
	var phis []*PhiInst
	for _, inst := range bb.Instructions {
		p, ok := inst.(*PhiInst)
		if !ok {
			break
		}
		phis = append(phis, p)
	}
	return phis
}

// Successors derives the block's control-flow successors from its
// terminator. A block with no terminator yet (under construction) has none.
func (bb *BasicBlock) Successors() []*BasicBlock {
	if bb.Terminator == nil {
		return nil
	}
	return bb.Terminator.GetSuccessors()
}

// Value is an SSA-style value: at most one defining instruction (nil for
// constants and global references), and a list of uses recording every
// instruction that reads it.
type Value struct {
	ID   int
	Name string
	Type Type

	// IsConst marks a Value synthesized directly as an immediate (e.g. by
	// ConstInt), as opposed to one produced by an instruction's result.
	IsConst   bool
	ConstBits int
	ConstUint uint64

	IsGlobalRef bool
	Global      *GlobalVariable

	Uses []*Use
}

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.IsConst {
		return fmt.Sprintf("%s %d", v.Type, v.ConstUint)
	}
	if v.Name != "" {
		return "%" + v.Name
	}
	return fmt.Sprintf("%%v%d", v.ID)
}

func (v *Value) addUse(u *Use) {
	v.Uses = append(v.Uses, u)
}

// Use records one read of a Value by an instruction in a block; a purely
// bookkeeping, non-owning back-reference.
type Use struct {
	Value *Value
	User  Instruction
	Block *BasicBlock
}

// ConstInt creates an unbound, unowned constant integer value of the given
// bit width. It has no defining instruction, matching LLVM's ConstantInt,
// which is a Value, not an Instruction.
func ConstInt(bits int, val uint64) *Value {
	return &Value{
		Type:      &IntType{BitWidth: bits},
		IsConst:   true,
		ConstBits: bits,
		ConstUint: val,
	}
}

// GlobalRef returns the Value that refers to a GlobalVariable's address,
// for use as an instruction operand (e.g. the Address of a LoadInst).
func GlobalRef(g *GlobalVariable) *Value {
	return &Value{
		Name:        g.Name,
		Type:        g.Type,
		IsGlobalRef: true,
		Global:      g,
	}
}

// Type is the minimal type system the passes need: integers, pointers, and
// booleans (a 1-bit integer, matching LLVM's i1).
type Type interface {
	String() string
	Bits() int
}

type IntType struct{ BitWidth int }

func (t *IntType) String() string { return fmt.Sprintf("i%d", t.BitWidth) }
func (t *IntType) Bits() int      { return t.BitWidth }

func BoolType() *IntType { return &IntType{BitWidth: 1} }

type PointerType struct{ Elem Type }

func (t *PointerType) String() string { return t.Elem.String() + "*" }
func (t *PointerType) Bits() int      { return 64 }
