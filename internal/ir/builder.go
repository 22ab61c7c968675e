package ir

// Builder offers fluent helpers for constructing a Function body, used by
// both the test suite and by the passes that synthesize new blocks
// (the switch splitter's byte-decision tree, the instrumenter's probes).
// It does not own the Function; it simply closes over one and its
// "current block" cursor.
type Builder struct {
	Fn      *Function
	Current *BasicBlock
}

// NewBuilder returns a Builder positioned at block bb of fn.
func NewBuilder(fn *Function, bb *BasicBlock) *Builder {
	return &Builder{Fn: fn, Current: bb}
}

// At repositions the builder's cursor without creating anything.
func (b *Builder) At(bb *BasicBlock) *Builder {
	b.Current = bb
	return b
}

func (b *Builder) emit(inst Instruction) Instruction {
	b.Current.Instructions = append(b.Current.Instructions, inst)
	return inst
}

// Load appends a LoadInst reading addr and returns its result value.
func (b *Builder) Load(name string, typ Type, addr *Value) *Value {
	l := NewLoad(b.Fn, b.Current, name, typ, addr)
	b.emit(l)
	return l.Result()
}

// Store appends a StoreInst writing val to addr.
func (b *Builder) Store(addr, val *Value) {
	b.emit(NewStore(b.Fn, b.Current, addr, val))
}

// Binary appends a BinaryInst and returns its result value.
func (b *Builder) Binary(name string, op BinOp, typ Type, lhs, rhs *Value) *Value {
	bi := NewBinary(b.Fn, b.Current, name, op, typ, lhs, rhs)
	b.emit(bi)
	return bi.Result()
}

// ICmp appends an ICmpInst and returns its 1-bit result value.
func (b *Builder) ICmp(name string, pred ICmpPred, lhs, rhs *Value) *Value {
	c := NewICmp(b.Fn, b.Current, name, pred, lhs, rhs)
	b.emit(c)
	return c.Result()
}

// Trunc appends a TruncInst and returns its result value.
func (b *Builder) Trunc(name string, typ Type, val *Value) *Value {
	t := NewTrunc(b.Fn, b.Current, name, typ, val)
	b.emit(t)
	return t.Result()
}

// ExtractByte appends an LShrExtractInst and returns its i8 result value.
func (b *Builder) ExtractByte(name string, val *Value, byteIndex int) *Value {
	e := NewLShrExtract(b.Fn, b.Current, name, val, byteIndex)
	b.emit(e)
	return e.Result()
}

// GEP appends a GEPInst and returns its pointer result value.
func (b *Builder) GEP(name string, elemType Type, base_, index *Value) *Value {
	g := NewGEP(b.Fn, b.Current, name, elemType, base_, index)
	b.emit(g)
	return g.Result()
}

// Phi appends a PhiInst (at the block's current insertion point, since
// phis must lead the block) and returns it for incoming-pair population.
func (b *Builder) Phi(name string, typ Type) *PhiInst {
	p := NewPhi(b.Fn, name, typ)
	idx := b.Current.FirstInsertionPoint()
	b.Current.InsertAt(idx, p)
	return p
}

// SetJump terminates the current block with an unconditional branch.
func (b *Builder) SetJump(target *BasicBlock) {
	b.Current.Terminator = &JumpInst{Target: target}
}

// SetBranch terminates the current block with a conditional branch.
func (b *Builder) SetBranch(cond *Value, ifTrue, ifFalse *BasicBlock) {
	b.Current.Terminator = &BranchInst{Condition: cond, True: ifTrue, False: ifFalse}
}

// SetSwitch terminates the current block with a switch instruction.
func (b *Builder) SetSwitch(cond *Value, cases []CaseEntry, def *BasicBlock) {
	b.Current.Terminator = &SwitchInst{Condition: cond, Cases: cases, Default: def}
}

// SetReturn terminates the current block with a return instruction.
func (b *Builder) SetReturn(val *Value) {
	b.Current.Terminator = &ReturnInst{Value: val}
}
