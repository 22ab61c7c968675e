package ir

import (
	"fmt"
	"strings"
)

// Instruction is anything that lives in a BasicBlock's straight-line body
// (never the terminator). Every concrete instruction records its own
// result Value (nil for instructions with no result, such as StoreInst)
// and the operand Values it reads.
type Instruction interface {
	ID() int
	Result() *Value
	Operands() []*Value
	Metadata() []string
	AddMetadata(string)
	String() string
}

// Terminator ends a BasicBlock and determines control flow.
type Terminator interface {
	GetSuccessors() []*BasicBlock
	String() string
}

type base struct {
	id       int
	result   *Value
	operands []*Value
	meta     []string
}

func newBase(fn *Function, result *Value, operands ...*Value) base {
	b := base{id: fn.freshInstID(), result: result, operands: operands}
	return b
}

func (b *base) ID() int             { return b.id }
func (b *base) Result() *Value      { return b.result }
func (b *base) Operands() []*Value  { return b.operands }
func (b *base) Metadata() []string  { return b.meta }
func (b *base) AddMetadata(m string) {
	b.meta = append(b.meta, m)
}

func recordUse(user Instruction, block *BasicBlock, v *Value) {
	if v == nil || v.IsConst || v.IsGlobalRef {
		return
	}
	v.addUse(&Use{Value: v, User: user, Block: block})
}

// PhiIncoming is one (value, predecessor) pair of a PhiInst. Incoming is
// kept as an ordered slice rather than a map: the switch splitter's phi
// rewrite only touches the first occurrence of a displaced predecessor,
// and a map could neither preserve duplicate incoming edges from the same
// predecessor nor give "first occurrence" a meaning at all.
type PhiIncoming struct {
	Value *Value
	Block *BasicBlock
}

// PhiInst selects among several incoming values depending on which
// predecessor block control arrived from. PhiInst instructions must be
// the leading instructions of a block.
type PhiInst struct {
	base
	Incoming []PhiIncoming
}

func NewPhi(fn *Function, name string, typ Type) *PhiInst {
	v := &Value{ID: fn.freshValueID(), Name: name, Type: typ}
	p := &PhiInst{base: newBase(fn, v)}
	v.Type = typ
	return p
}

// AddIncoming appends one more (value, predecessor) pair.
func (p *PhiInst) AddIncoming(val *Value, block *BasicBlock) {
	p.Incoming = append(p.Incoming, PhiIncoming{Value: val, Block: block})
	recordUse(p, block, val)
}

// ReplaceFirstIncomingBlock rewrites only the first incoming pair whose
// predecessor is `from`, to `to`. It reports whether a rewrite happened.
func (p *PhiInst) ReplaceFirstIncomingBlock(from, to *BasicBlock) bool {
	for i := range p.Incoming {
		if p.Incoming[i].Block == from {
			p.Incoming[i].Block = to
			return true
		}
	}
	return false
}

func (p *PhiInst) String() string {
	parts := make([]string, len(p.Incoming))
	for i, in := range p.Incoming {
		parts[i] = fmt.Sprintf("[%s, %%%s]", in.Value, in.Block.Label)
	}
	return fmt.Sprintf("%s = phi %s %s", p.result, p.result.Type, strings.Join(parts, ", "))
}

// LoadInst reads the value currently stored at Address.
type LoadInst struct {
	base
	Address *Value
}

func NewLoad(fn *Function, block *BasicBlock, name string, typ Type, addr *Value) *LoadInst {
	v := &Value{ID: fn.freshValueID(), Name: name, Type: typ}
	l := &LoadInst{base: newBase(fn, v, addr), Address: addr}
	recordUse(l, block, addr)
	return l
}

func (l *LoadInst) String() string {
	return fmt.Sprintf("%s = load %s, %s %s", l.result, l.result.Type, l.Address.Type, l.Address)
}

// StoreInst writes Value to Address. It has no result.
type StoreInst struct {
	base
	Address *Value
	Value   *Value
}

func NewStore(fn *Function, block *BasicBlock, addr, val *Value) *StoreInst {
	s := &StoreInst{base: newBase(fn, nil, addr, val), Address: addr, Value: val}
	recordUse(s, block, addr)
	recordUse(s, block, val)
	return s
}

func (s *StoreInst) String() string {
	return fmt.Sprintf("store %s %s, %s %s", s.Value.Type, s.Value, s.Address.Type, s.Address)
}

// BinOp enumerates the binary operators the passes need to emit.
type BinOp int

const (
	OpAdd BinOp = iota
	OpXor
	OpAnd
	OpOr
	OpShl
	OpLShr
)

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpXor:
		return "xor"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpShl:
		return "shl"
	case OpLShr:
		return "lshr"
	default:
		return "binop?"
	}
}

// BinaryInst is a two-operand arithmetic or bitwise instruction.
type BinaryInst struct {
	base
	Op          BinOp
	Left, Right *Value
}

func NewBinary(fn *Function, block *BasicBlock, name string, op BinOp, typ Type, lhs, rhs *Value) *BinaryInst {
	v := &Value{ID: fn.freshValueID(), Name: name, Type: typ}
	b := &BinaryInst{base: newBase(fn, v, lhs, rhs), Op: op, Left: lhs, Right: rhs}
	recordUse(b, block, lhs)
	recordUse(b, block, rhs)
	return b
}

func (b *BinaryInst) String() string {
	return fmt.Sprintf("%s = %s %s %s, %s", b.result, b.Op, b.Left.Type, b.Left, b.Right)
}

// ICmpPred enumerates the integer comparison predicates the passes need.
type ICmpPred int

const (
	PredEQ ICmpPred = iota
	PredNE
	PredULT
)

func (p ICmpPred) String() string {
	switch p {
	case PredEQ:
		return "eq"
	case PredNE:
		return "ne"
	case PredULT:
		return "ult"
	default:
		return "pred?"
	}
}

// ICmpInst compares two integer operands, producing a 1-bit result.
type ICmpInst struct {
	base
	Pred        ICmpPred
	Left, Right *Value
}

func NewICmp(fn *Function, block *BasicBlock, name string, pred ICmpPred, lhs, rhs *Value) *ICmpInst {
	v := &Value{ID: fn.freshValueID(), Name: name, Type: BoolType()}
	c := &ICmpInst{base: newBase(fn, v, lhs, rhs), Pred: pred, Left: lhs, Right: rhs}
	recordUse(c, block, lhs)
	recordUse(c, block, rhs)
	return c
}

func (c *ICmpInst) String() string {
	return fmt.Sprintf("%s = icmp %s %s %s, %s", c.result, c.Pred, c.Left.Type, c.Left, c.Right)
}

// TruncInst narrows an integer to a smaller bit width, e.g. extracting a
// single byte out of a 64-bit switch condition.
type TruncInst struct {
	base
	Value *Value
}

func NewTrunc(fn *Function, block *BasicBlock, name string, typ Type, val *Value) *TruncInst {
	v := &Value{ID: fn.freshValueID(), Name: name, Type: typ}
	t := &TruncInst{base: newBase(fn, v, val), Value: val}
	recordUse(t, block, val)
	return t
}

func (t *TruncInst) String() string {
	return fmt.Sprintf("%s = trunc %s %s to %s", t.result, t.Value.Type, t.Value, t.result.Type)
}

// LShrExtractInst extracts a byte out of a wider integer by logical
// shift-right followed by an implicit truncation to i8. It is kept as a
// single instruction (rather than BinaryInst+TruncInst) because every
// byte-extraction site in the switch splitter wants exactly this pair and
// nothing else; collapsing it removes a mechanical two-instruction dance
// from every call site.
type LShrExtractInst struct {
	base
	Value     *Value
	ByteIndex int
}

func NewLShrExtract(fn *Function, block *BasicBlock, name string, val *Value, byteIndex int) *LShrExtractInst {
	v := &Value{ID: fn.freshValueID(), Name: name, Type: &IntType{BitWidth: 8}}
	e := &LShrExtractInst{base: newBase(fn, v, val), Value: val, ByteIndex: byteIndex}
	recordUse(e, block, val)
	return e
}

func (e *LShrExtractInst) String() string {
	return fmt.Sprintf("%s = extractbyte %s %s, %d", e.result, e.Value.Type, e.Value, e.ByteIndex)
}

// GEPInst computes the address of one element of an array-typed global,
// the Go-IR equivalent of LLVM's getelementptr used throughout the
// coverage instrumenter to index into the edge/laf shared-memory maps.
type GEPInst struct {
	base
	Base  *Value
	Index *Value
}

func NewGEP(fn *Function, block *BasicBlock, name string, elemType Type, base_, index *Value) *GEPInst {
	v := &Value{ID: fn.freshValueID(), Name: name, Type: &PointerType{Elem: elemType}}
	g := &GEPInst{base: newBase(fn, v, base_, index), Base: base_, Index: index}
	recordUse(g, block, base_)
	recordUse(g, block, index)
	return g
}

func (g *GEPInst) String() string {
	return fmt.Sprintf("%s = getelementptr %s, %s %s, %s", g.result, g.result.Type, g.Base.Type, g.Base, g.Index)
}

// CallInst models an opaque call to an external runtime helper. Neither
// the switch splitter nor the coverage instrumenter emits one.
type CallInst struct {
	base
	Callee string
	Args   []*Value
}

func NewCall(fn *Function, block *BasicBlock, name string, typ Type, callee string, args ...*Value) *CallInst {
	var v *Value
	if typ != nil {
		v = &Value{ID: fn.freshValueID(), Name: name, Type: typ}
	}
	c := &CallInst{base: newBase(fn, v, args...), Callee: callee, Args: args}
	for _, a := range args {
		recordUse(c, block, a)
	}
	return c
}

func (c *CallInst) String() string {
	argStrs := make([]string, len(c.Args))
	for i, a := range c.Args {
		argStrs[i] = a.String()
	}
	if c.result != nil {
		return fmt.Sprintf("%s = call @%s(%s)", c.result, c.Callee, strings.Join(argStrs, ", "))
	}
	return fmt.Sprintf("call @%s(%s)", c.Callee, strings.Join(argStrs, ", "))
}

// CaseEntry is one value/successor pair of a SwitchInst.
type CaseEntry struct {
	Value     *Value
	Successor *BasicBlock
}

// SwitchInst is a multi-way branch on an integer Condition: control goes
// to the successor of the first matching CaseEntry, or to Default.
type SwitchInst struct {
	Condition *Value
	Cases     []CaseEntry
	Default   *BasicBlock
}

func (s *SwitchInst) GetSuccessors() []*BasicBlock {
	succs := make([]*BasicBlock, 0, len(s.Cases)+1)
	for _, c := range s.Cases {
		succs = append(succs, c.Successor)
	}
	succs = append(succs, s.Default)
	return succs
}

func (s *SwitchInst) String() string {
	parts := make([]string, len(s.Cases))
	for i, c := range s.Cases {
		parts[i] = fmt.Sprintf("%s, label %%%s", c.Value, c.Successor.Label)
	}
	return fmt.Sprintf("switch %s %s, label %%%s [ %s ]", s.Condition.Type, s.Condition, s.Default.Label, strings.Join(parts, "; "))
}

// BranchInst is a two-way conditional branch.
type BranchInst struct {
	Condition   *Value
	True, False *BasicBlock
}

func (b *BranchInst) GetSuccessors() []*BasicBlock { return []*BasicBlock{b.True, b.False} }

func (b *BranchInst) String() string {
	return fmt.Sprintf("br %s %s, label %%%s, label %%%s", b.Condition.Type, b.Condition, b.True.Label, b.False.Label)
}

// JumpInst is an unconditional branch.
type JumpInst struct {
	Target *BasicBlock
}

func (j *JumpInst) GetSuccessors() []*BasicBlock { return []*BasicBlock{j.Target} }
func (j *JumpInst) String() string               { return fmt.Sprintf("br label %%%s", j.Target.Label) }

// ReturnInst ends a function. Value is nil for a void return.
type ReturnInst struct {
	Value *Value
}

func (r *ReturnInst) GetSuccessors() []*BasicBlock { return nil }

func (r *ReturnInst) String() string {
	if r.Value == nil {
		return "ret void"
	}
	return fmt.Sprintf("ret %s %s", r.Value.Type, r.Value)
}
