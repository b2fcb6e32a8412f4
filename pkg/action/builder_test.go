package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddAndFinishAppendsSentinel(t *testing.T) {
	b := NewBuilder()
	b.Add("count", nil)
	b.Add("port_id", 1)
	items := b.Finish()
	assert.Len(t, items, 3)
	assert.Nil(t, items[2].Type)
}

func TestAddAfterFinishPanics(t *testing.T) {
	b := NewBuilder()
	b.Finish()
	assert.Panics(t, func() { b.Add("count", nil) })
}
