// Package instrument implements the coverage instrumenter: it walks every
// basic block of a Module and, depending on the block's name-derived
// classification, inserts either byte-level edge-coverage probes (the
// "edge map") or bit-level laf-intel comparison probes (the "laf map").
// It is the Go-IR analogue of afl-llvm-pass.so.cc.
package instrument

import (
	"lafpass/internal/ir"
	"lafpass/internal/rng"
)

const (
	// Tag bits the laf scheme ORs or ANDs into a block's edge ID to
	// distinguish which splitter produced the block, exactly as the
	// original pass's split_type switch does.
	tagStrcmp     = 0x40000
	tagCompare    = 0x20000
	maskCompare   = 0x3FFFF
	maskUntagged  = 0x1FFFF
	byteWidthMask = 0xFF
)

// Stats counts how many blocks of each kind were instrumented, mirroring
// the original pass's inst_blocks/strcmp_blocks/compare_blocks/
// switch_blocks counters printed in its closing banner. Skipped counts the
// blocks left alone, whether by the AFL_INST_RATIO draw or because their
// label matched no marker.
type Stats struct {
	Normal     int
	LafStrcmp  int
	LafCompare int
	LafSwitch  int
	Skipped    int
}

// Instrumenter holds the configuration and random source used to pick
// per-block location IDs. The module-level globals it needs are declared
// on the Module itself by each Run.
type Instrumenter struct {
	cfg    Config
	source rng.Source
}

// New creates an Instrumenter. If cfg.Validate fails, New returns the
// error instead of a usable Instrumenter.
func New(cfg Config) (*Instrumenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Instrumenter{cfg: cfg, source: rng.New(cfg.Seed)}, nil
}

// Run instruments every function of mod in place and returns the
// resulting Stats.
func (in *Instrumenter) Run(mod *ir.Module) Stats {
	areaPtr := mod.DeclareGlobal("__afl_area_ptr", &ir.PointerType{Elem: &ir.IntType{BitWidth: 8}}, false)
	lafAreaPtr := mod.DeclareGlobal("__afl_laf_area_ptr", &ir.PointerType{Elem: &ir.IntType{BitWidth: 8}}, false)
	prevLoc := mod.DeclareGlobal("__afl_prev_loc", &ir.IntType{BitWidth: 32}, true)
	prevLafLoc := mod.DeclareGlobal("__laf_afl_prev_loc", &ir.IntType{BitWidth: 32}, true)

	var stats Stats
	for _, fn := range mod.Functions {
		for _, bb := range fn.Blocks {
			if in.source.Intn(100) >= int(in.cfg.InstRatio) {
				stats.Skipped++
				continue
			}

			class := ir.ClassifyBlock(bb.Label)
			switch class {
			case ir.ClassNormal:
				in.instrumentEdge(fn, bb, areaPtr, prevLoc)
				stats.Normal++
			case ir.ClassLafStrcmp:
				in.instrumentLaf(fn, bb, lafAreaPtr, prevLafLoc, tagModeStrcmp)
				stats.LafStrcmp++
			case ir.ClassLafCompare:
				in.instrumentLaf(fn, bb, lafAreaPtr, prevLafLoc, tagModeCompare)
				stats.LafCompare++
			case ir.ClassLafSwitch:
				in.instrumentLaf(fn, bb, lafAreaPtr, prevLafLoc, tagModeSwitch)
				stats.LafSwitch++
			default:
				stats.Skipped++
			}
		}
	}
	return stats
}

// instrumentEdge inserts the classic AFL edge-coverage sequence at the
// block's first insertion point:
//
//	cur_loc      = random in [0, MapSize)
//	prev         = load prev_loc                  ; nosanitize
//	map          = load area_ptr                   ; nosanitize
//	idx          = map[prev ^ cur_loc]
//	counter      = load idx                        ; nosanitize
//	store idx, counter + 1                          ; nosanitize
//	store prev_loc, cur_loc >> 1                    ; nosanitize
func (in *Instrumenter) instrumentEdge(fn *ir.Function, bb *ir.BasicBlock, areaPtr, prevLoc *ir.GlobalVariable) {
	curLoc := uint64(in.source.Intn(int(in.cfg.MapSize)))

	insts := in.buildAt(fn, bb, func(b *ir.Builder) {
		prev := b.Load("prev_loc", &ir.IntType{BitWidth: 32}, ir.GlobalRef(prevLoc))
		mapPtr := b.Load("area_ptr", areaPtr.Type, ir.GlobalRef(areaPtr))
		xored := b.Binary("edge_id", ir.OpXor, &ir.IntType{BitWidth: 32}, prev, ir.ConstInt(32, curLoc))
		idx := b.GEP("map_idx", &ir.IntType{BitWidth: 8}, mapPtr, xored)

		counter := b.Load("counter", &ir.IntType{BitWidth: 8}, idx)
		incr := b.Binary("incr", ir.OpAdd, &ir.IntType{BitWidth: 8}, counter, ir.ConstInt(8, 1))
		b.Store(idx, incr)

		b.Store(ir.GlobalRef(prevLoc), ir.ConstInt(32, curLoc>>1))
	})
	tagAllNosanitize(insts)
}

type lafTagMode int

const (
	tagModeStrcmp lafTagMode = iota
	tagModeCompare
	tagModeSwitch
)

// instrumentLaf inserts the bit-level laf-map sequence:
//
//	block_id      = random in [0, MapSize*8)
//	prev          = load prev_laf_loc               ; nosanitize
//	map           = load laf_area_ptr                ; nosanitize
//	branch_id     = prev ^ block_id
//	branch_id_type= branch_id tagged per split mode (see tagBranchID)
//	byte_idx      = branch_id_type >> 3
//	bit_off       = branch_id & 0x7
//	idx           = map[byte_idx]
//	counter       = load idx                         ; nosanitize
//	store idx, counter | (1 << bit_off)              ; nosanitize
//	store prev_laf_loc, block_id >> 1                ; nosanitize
//
// The byte index is computed from the *tagged* branch_id, but the bit
// offset is computed from the *pre-tag* branch_id's low 3 bits — the
// original pass does this too (branch_id_low3 reads `branch_id`, not
// `branch_id_type`), so a block's tag can shift which byte of the laf map
// it lands in without ever changing which bit within that byte it sets.
// This looks like it could be a latent bug in the original, but it is
// faithfully reproduced rather than "fixed", since changing it would
// change which laf-map bits correlate with which comparison outcomes.
func (in *Instrumenter) instrumentLaf(fn *ir.Function, bb *ir.BasicBlock, lafAreaPtr, prevLafLoc *ir.GlobalVariable, mode lafTagMode) {
	blockID := uint64(in.source.Intn(int(in.cfg.MapSize) * 8))

	insts := in.buildAt(fn, bb, func(b *ir.Builder) {
		prev := b.Load("prev_laf_loc", &ir.IntType{BitWidth: 32}, ir.GlobalRef(prevLafLoc))
		mapPtr := b.Load("laf_area_ptr", lafAreaPtr.Type, ir.GlobalRef(lafAreaPtr))

		branchID := b.Binary("branch_id", ir.OpXor, &ir.IntType{BitWidth: 32}, prev, ir.ConstInt(32, blockID))
		branchIDType := tagBranchID(b, branchID, mode)

		byteIdx := b.Binary("byte_idx", ir.OpLShr, &ir.IntType{BitWidth: 32}, branchIDType, ir.ConstInt(32, 3))
		idx := b.GEP("laf_idx", &ir.IntType{BitWidth: 8}, mapPtr, byteIdx)

		bitOff := b.Binary("bit_off", ir.OpAnd, &ir.IntType{BitWidth: 8}, branchID, ir.ConstInt(8, 7))
		bitMask := b.Binary("bit_mask", ir.OpShl, &ir.IntType{BitWidth: 8}, ir.ConstInt(8, 1), bitOff)

		counter := b.Load("laf_counter", &ir.IntType{BitWidth: 8}, idx)
		incr := b.Binary("laf_incr", ir.OpOr, &ir.IntType{BitWidth: 8}, counter, bitMask)
		b.Store(idx, incr)

		b.Store(ir.GlobalRef(prevLafLoc), ir.ConstInt(32, blockID>>1))
	})
	tagAllNosanitize(insts)
}

// tagBranchID applies the per-split-mode bit manipulation the original
// pass performs before deriving a map index from branch_id:
//
//	strcmp:  branch_id | 0x40000
//	compare: (branch_id & 0x3FFFF) | 0x20000
//	switch:  branch_id & 0x1FFFF
func tagBranchID(b *ir.Builder, branchID *ir.Value, mode lafTagMode) *ir.Value {
	switch mode {
	case tagModeStrcmp:
		return b.Binary("branch_id_type", ir.OpOr, &ir.IntType{BitWidth: 32}, branchID, ir.ConstInt(32, tagStrcmp))
	case tagModeCompare:
		masked := b.Binary("branch_id_masked", ir.OpAnd, &ir.IntType{BitWidth: 32}, branchID, ir.ConstInt(32, maskCompare))
		return b.Binary("branch_id_type", ir.OpOr, &ir.IntType{BitWidth: 32}, masked, ir.ConstInt(32, tagCompare))
	default:
		return b.Binary("branch_id_type", ir.OpAnd, &ir.IntType{BitWidth: 32}, branchID, ir.ConstInt(32, maskUntagged))
	}
}

// buildAt runs fill with a Builder positioned at bb's first insertion
// point, then splices every instruction the callback appended there,
// returning the slice of instructions created so the caller can mark them
// nosanitize as a batch.
func (in *Instrumenter) buildAt(fn *ir.Function, bb *ir.BasicBlock, fill func(*ir.Builder)) []ir.Instruction {
	before := len(bb.Instructions)
	idx := bb.FirstInsertionPoint()

	scratch := &ir.BasicBlock{Label: bb.Label, Parent: fn}
	b := ir.NewBuilder(fn, scratch)
	fill(b)

	bb.InsertSliceAt(idx, scratch.Instructions)
	return bb.Instructions[idx : idx+(len(bb.Instructions)-before)]
}

// tagAllNosanitize marks every load/store instruction produced by an
// instrumentation probe with a "nosanitize" metadata marker, matching the
// original pass's blanket use of M.getMDKindID("nosanitize") on every load
// and store it inserts: the probes must not themselves be flagged by
// ASan/MSan as racy or uninitialized reads.
func tagAllNosanitize(insts []ir.Instruction) {
	for _, inst := range insts {
		switch inst.(type) {
		case *ir.LoadInst, *ir.StoreInst:
			inst.AddMetadata("nosanitize")
		}
	}
}
