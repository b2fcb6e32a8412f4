package epoch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferRunsOnlyAfterQuiescence(t *testing.T) {
	r := New()
	ran := false
	r.Defer(func() { ran = true })

	r.Tick()
	assert.False(t, ran, "must not run before the quiescence window elapses")
	assert.Equal(t, 1, r.Pending())

	r.Tick()
	assert.True(t, ran)
	assert.Equal(t, 0, r.Pending())
}

func TestDeferBatchesWithinSameTick(t *testing.T) {
	r := New()
	var order []int
	r.Defer(func() { order = append(order, 1) })
	r.Defer(func() { order = append(order, 2) })
	require.Equal(t, 2, r.Pending())

	r.Tick()
	r.Tick()
	assert.Equal(t, []int{1, 2}, order)
}

func TestRunAndStop(t *testing.T) {
	r := New()
	done := make(chan struct{})
	r.Defer(func() { close(done) })
	r.Run(1)
	<-done
	r.Stop()
}
