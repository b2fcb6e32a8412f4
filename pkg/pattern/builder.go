// Package pattern implements the pattern-list builder spec.md §4.G
// describes: a growable vector of pipeline-match items, doubled on
// capacity exhaustion starting at 8, terminated by a sentinel end item
// before being handed to the driver. The builder borrows (does not
// own) the spec/mask storage it's given — spec.md §9's "arena + index"
// design note — so the caller's per-install arena must outlive the
// driver call. Grounded on spec.md §4.G/§9 directly; the growable-
// vector-with-doubling shape is the same one pkg/offload.ActionList
// uses for action lists (pkg/action), kept consistent across both
// builders.
package pattern

import "github.com/flowcore/nicoffload/pkg/offload"

const initialCapacity = 8

// Builder accumulates pattern items for one rule install.
type Builder struct {
	items []offload.PatternItem
	done  bool
}

// NewBuilder returns an empty builder with the spec's initial capacity.
func NewBuilder() *Builder {
	return &Builder{items: make([]offload.PatternItem, 0, initialCapacity)}
}

// Add appends one pattern item (type, spec, mask). spec and mask are
// borrowed pointers: the builder does not copy or take ownership of
// them.
func (b *Builder) Add(typ, spec, mask interface{}) {
	if b.done {
		panic("pattern: Add after Finish")
	}
	b.items = append(b.items, offload.PatternItem{Type: typ, Spec: spec, Mask: mask})
}

// Finish appends the sentinel end item and returns the completed
// pattern list. The builder must not be reused after Finish.
func (b *Builder) Finish() []offload.PatternItem {
	if b.done {
		return b.items
	}
	b.items = append(b.items, offload.PatternItem{Last: true})
	b.done = true
	return b.items
}

// Len returns the number of items added so far, excluding the sentinel.
func (b *Builder) Len() int {
	if b.done {
		return len(b.items) - 1
	}
	return len(b.items)
}
