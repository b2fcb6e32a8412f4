// Package action implements the action-list builder spec.md §4.G
// describes, mirroring pkg/pattern: a growable vector of
// (type, conf) items terminated by a sentinel before being handed to
// the driver.
package action

import "github.com/flowcore/nicoffload/pkg/offload"

const initialCapacity = 8

// Builder accumulates action items for one rule install.
type Builder struct {
	items []offload.ActionItem
	done  bool
}

// NewBuilder returns an empty builder with the spec's initial capacity.
func NewBuilder() *Builder {
	return &Builder{items: make([]offload.ActionItem, 0, initialCapacity)}
}

// Add appends one action item (type, conf). conf is a borrowed
// pointer, per spec.md §9's arena design note.
func (b *Builder) Add(typ, conf interface{}) {
	if b.done {
		panic("action: Add after Finish")
	}
	b.items = append(b.items, offload.ActionItem{Type: typ, Conf: conf})
}

// Finish appends the sentinel end item and returns the completed
// action list.
func (b *Builder) Finish() []offload.ActionItem {
	if b.done {
		return b.items
	}
	b.items = append(b.items, offload.ActionItem{Type: nil, Conf: nil})
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
