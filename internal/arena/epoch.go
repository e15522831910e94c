// Package arena implements the two-generation epoch allocator that backs
// streaming render batches (spec.md §4.9, component C6): in streaming mode
// the parser buffers materialized Elements into the current epoch's Batch
// until a flush point (section-nesting depth returns to zero), hands the
// batch to the render sink, then closes it. The next Open of the same
// generation slot recycles its backing array once its previous tenant has
// been Released, bounding live memory to two generations of batches regardless
// of how large the template is.
//
// Modeled on jcorbin-soc's internal/scanio.ByteArena Take/PruneTo
// lifecycle, generalized from byte ranges handed out of one growing
// buffer to whole Element batches handed out of two alternating ones.
package arena

import "github.com/partario/mustache/internal/ast"

// Epoch hands out successive Batches, alternating between two backing
// generations so that at most two batches' worth of Elements are live at
// once during a streamed render.
type Epoch struct {
	gens [2]*generation
	cur  int
}

type generation struct {
	elems []ast.Element
	refs  int
}

// NewEpoch returns a ready-to-use epoch arena.
func NewEpoch() *Epoch {
	return &Epoch{gens: [2]*generation{{}, {}}}
}

// Batch is a single generation's open buffer, returned by Open for
// appending and frozen by Close.
type Batch struct {
	epoch    *Epoch
	gen      *generation
	released bool
}

// Open returns the current generation's batch for appending. If the slot
// is still referenced by an unreleased batch from two generations ago,
// Open allocates a fresh backing array rather than corrupt data the sink
// may still be reading — this only happens when the sink holds a batch
// open across more than one Advance, which a well-behaved streaming
// render never does.
func (e *Epoch) Open() *Batch {
	g := e.gens[e.cur]
	if g.refs != 0 {
		g = &generation{}
		e.gens[e.cur] = g
	} else {
		g.elems = g.elems[:0]
	}
	g.refs = 1
	return &Batch{epoch: e, gen: g}
}

// Append adds an Element to the batch.
func (b *Batch) Append(el ast.Element) {
	b.gen.elems = append(b.gen.elems, el)
}

// Len reports how many Elements have been appended so far.
func (b *Batch) Len() int { return len(b.gen.elems) }

// Elements returns the batch's contents so far. The slice is only valid
// until the batch is Released.
func (b *Batch) Elements() []ast.Element { return b.gen.elems }

// Close freezes the batch's contents and advances the epoch to the other
// generation, returning the frozen slice. The caller must call Release
// once done with the slice (typically once the streamed render callback
// for this batch returns), or the generation slot cannot be recycled the
// next time Open visits it.
func (b *Batch) Close() []ast.Element {
	out := b.gen.elems
	b.epoch.cur = 1 - b.epoch.cur
	return out
}

// Release drops the batch's reference, permitting Open to recycle its
// backing array the next time this generation slot comes around. Safe to
// call more than once; only the first call on a given Batch has an effect.
func (b *Batch) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.gen.refs > 0 {
		b.gen.refs--
	}
}
