package offload_test

// Hand-written in the shape mockgen would generate for the Driver
// interface (the teacher's own rw_core/core/device tests construct
// mocks this way via gomock.Controller/EXPECT, e.g.
// NewMockInterContainerProxy in manager_test.go) — this repo carries no
// //go:generate harness, so the mock is written by hand rather than
// codegen'd.

import (
	"context"
	"reflect"

	"github.com/golang/mock/gomock"

	"github.com/flowcore/nicoffload/pkg/offload"
)

// MockDriver is a mock of the Driver interface.
type MockDriver struct {
	ctrl     *gomock.Controller
	recorder *MockDriverMockRecorder
}

// MockDriverMockRecorder is the mock recorder for MockDriver.
type MockDriverMockRecorder struct {
	mock *MockDriver
}

// NewMockDriver returns a new mock driver bound to ctrl.
func NewMockDriver(ctrl *gomock.Controller) *MockDriver {
	mock := &MockDriver{ctrl: ctrl}
	mock.recorder = &MockDriverMockRecorder{mock}
	return mock
}

// EXPECT returns the recorder used to set expectations.
func (m *MockDriver) EXPECT() *MockDriverMockRecorder {
	return m.recorder
}

func (m *MockDriver) RuleCreate(ctx context.Context, netdev offload.Netdev, attr offload.Attr, patterns []offload.PatternItem, actions []offload.ActionItem) (interface{}, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RuleCreate", ctx, netdev, attr, patterns, actions)
	ret0, _ := ret[0].(interface{})
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockDriverMockRecorder) RuleCreate(ctx, netdev, attr, patterns, actions interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RuleCreate", reflect.TypeOf((*MockDriver)(nil).RuleCreate), ctx, netdev, attr, patterns, actions)
}

func (m *MockDriver) RuleDestroy(ctx context.Context, netdev offload.Netdev, handle interface{}) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RuleDestroy", ctx, netdev, handle)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockDriverMockRecorder) RuleDestroy(ctx, netdev, handle interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RuleDestroy", reflect.TypeOf((*MockDriver)(nil).RuleDestroy), ctx, netdev, handle)
}
