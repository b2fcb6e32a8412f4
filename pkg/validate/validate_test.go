package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowcore/nicoffload/pkg/offload"
)

func baseMatch() offload.Match {
	return offload.Match{Flow: offload.Flow{DlType: 0x0800, NwProto: 17}}
}

func TestValidMatchPasses(t *testing.T) {
	assert.NoError(t, Validate(baseMatch(), false))
}

func TestTunnelFieldRejectedWhenNotTunnel(t *testing.T) {
	m := baseMatch()
	m.Flow.TunnelID = 1
	assert.ErrorIs(t, Validate(m, false), offload.ErrUnsupported)
}

func TestTunnelFieldAllowedWhenTunnel(t *testing.T) {
	m := baseMatch()
	m.Flow.TunnelID = 1
	assert.NoError(t, Validate(m, true))
}

func TestIPv6Rejected(t *testing.T) {
	m := baseMatch()
	m.Flow.HasIPv6 = true
	assert.ErrorIs(t, Validate(m, false), offload.ErrUnsupported)
}

func TestCtStateEstablishedAllowed(t *testing.T) {
	m := baseMatch()
	m.Flow.CtState = offload.CtStateEstablished
	assert.NoError(t, Validate(m, false))
}

func TestCtStateBeyondEstablishedRejected(t *testing.T) {
	m := baseMatch()
	m.Flow.CtState = offload.CtStateEstablished | (1 << 1)
	assert.ErrorIs(t, Validate(m, false), offload.ErrUnsupported)
}

func TestMonotonicity(t *testing.T) {
	// Validator monotonicity (spec.md §8): adding unmasked (already-set
	// but previously-wildcarded) bits to a validated match must not make
	// it invalid, since the validator itself never inspects wildcards —
	// only the post-strip Flow values it's handed.
	m := baseMatch()
	require := assert.New(t)
	require.NoError(Validate(m, false))
	m.Flow.NwSrc = 0x0a000001
	require.NoError(Validate(m, false))
}

func TestEachRejectedFieldIndividually(t *testing.T) {
	cases := []func(*offload.Flow){
		func(f *offload.Flow) { f.Metadata = 1 },
		func(f *offload.Flow) { f.SkbPriority = 1 },
		func(f *offload.Flow) { f.PktMark = 1 },
		func(f *offload.Flow) { f.DpHash = 1 },
		func(f *offload.Flow) { f.ConjID = 1 },
		func(f *offload.Flow) { f.ActsetOutput = 1 },
		func(f *offload.Flow) { f.CtNwProto = 1 },
		func(f *offload.Flow) { f.CtZone = 1 },
		func(f *offload.Flow) { f.CtMark = 1 },
		func(f *offload.Flow) { f.CtLabel = offload.Label128{1} },
		func(f *offload.Flow) { f.CtTpSrc = 1 },
		func(f *offload.Flow) { f.CtTpDst = 1 },
		func(f *offload.Flow) { f.HasMPLS = true },
		func(f *offload.Flow) { f.HasND = true },
		func(f *offload.Flow) { f.HasNSH = true },
		func(f *offload.Flow) { f.HasARP = true },
		func(f *offload.Flow) { f.HasIGMP = true },
		func(f *offload.Flow) { f.NwFrag = 1 },
	}
	for _, mutate := range cases {
		m := baseMatch()
		mutate(&m.Flow)
		assert.ErrorIs(t, Validate(m, false), offload.ErrUnsupported)
	}
}
