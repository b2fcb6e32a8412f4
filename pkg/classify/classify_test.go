package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowcore/nicoffload/pkg/offload"
)

func TestMatchKindRecirc(t *testing.T) {
	m := offload.Match{Flow: offload.Flow{RecircID: 5}}
	assert.Equal(t, offload.MatchRecirc, MatchKind(m, false))
}

func TestMatchKindVportRoot(t *testing.T) {
	m := offload.Match{}
	assert.Equal(t, offload.MatchVportRoot, MatchKind(m, true))
}

func TestMatchKindRoot(t *testing.T) {
	m := offload.Match{}
	assert.Equal(t, offload.MatchRoot, MatchKind(m, false))
}

func TestActionKindTunnelPop(t *testing.T) {
	a := offload.ActionList{{Type: offload.ActionTypeTunnelPop}}
	assert.Equal(t, offload.ActionKindTunnelPop, ActionKind(a))
}

func TestActionKindCT(t *testing.T) {
	a := offload.ActionList{{Type: offload.ActionTypeCT}, {Type: offload.ActionTypeRecirc}}
	assert.Equal(t, offload.ActionKindCT, ActionKind(a))
}

func TestActionKindOutput(t *testing.T) {
	a := offload.ActionList{{Type: offload.ActionTypeOutput}}
	assert.Equal(t, offload.ActionKindOutput, ActionKind(a))
}

func TestValidateActionListRejectsNonFinalOutput(t *testing.T) {
	a := offload.ActionList{{Type: offload.ActionTypeOutput}, {Type: offload.ActionTypeCT}}
	err := ValidateActionList(a, offload.Match{}, false)
	assert.ErrorIs(t, err, offload.ErrUnsupported)
}

func TestValidateActionListRejectsTunnelPopWithOthers(t *testing.T) {
	a := offload.ActionList{{Type: offload.ActionTypeTunnelPop}, {Type: offload.ActionTypeOutput}}
	err := ValidateActionList(a, offload.Match{}, false)
	assert.ErrorIs(t, err, offload.ErrUnsupported)
}

func TestValidateActionListRejectsTunnelPopWithVirtualInPort(t *testing.T) {
	a := offload.ActionList{{Type: offload.ActionTypeTunnelPop}}
	err := ValidateActionList(a, offload.Match{}, true)
	assert.ErrorIs(t, err, offload.ErrUnsupported)
}

func TestValidateActionListRejectsRecircWithoutCT(t *testing.T) {
	a := offload.ActionList{{Type: offload.ActionTypeRecirc}}
	err := ValidateActionList(a, offload.Match{}, false)
	assert.ErrorIs(t, err, offload.ErrUnsupported)
}

func TestValidateActionListAllowsCTThenRecirc(t *testing.T) {
	a := offload.ActionList{{Type: offload.ActionTypeCT}, {Type: offload.ActionTypeRecirc}}
	assert.NoError(t, ValidateActionList(a, offload.Match{}, false))
}

func TestValidateActionListAllowsCloneTunnelPushOutput(t *testing.T) {
	a := offload.ActionList{{Type: offload.ActionTypeClone, Clone: []offload.Action{
		{Type: offload.ActionTypeTunnelPush},
		{Type: offload.ActionTypeOutput},
	}}}
	assert.NoError(t, ValidateActionList(a, offload.Match{}, false))
}

func TestValidateActionListRejectsEmpty(t *testing.T) {
	assert.ErrorIs(t, ValidateActionList(offload.ActionList{}, offload.Match{}, false), offload.ErrUnsupported)
}
