// Hand-written mock of github.com/ironleaf/merklecore/node.Internal,
// following MockGen's naming and recorder conventions.

package mocks

import (
	reflect "reflect"

	gomock "github.com/golang/mock/gomock"

	node "github.com/ironleaf/merklecore/node"
	route "github.com/ironleaf/merklecore/route"
)

// MockInternal is a mock of the node.Internal interface, for tests that
// need to drive the hash engine or tree algorithms against controlled
// child shapes without constructing a full tree.
type MockInternal struct {
	ctrl     *gomock.Controller
	recorder *MockInternalMockRecorder
}

// MockInternalMockRecorder is the mock recorder for MockInternal.
type MockInternalMockRecorder struct {
	mock *MockInternal
}

// NewMockInternal creates a new mock instance.
func NewMockInternal(ctrl *gomock.Controller) *MockInternal {
	mock := &MockInternal{ctrl: ctrl}
	mock.recorder = &MockInternalMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockInternal) EXPECT() *MockInternalMockRecorder {
	return m.recorder
}

func (m *MockInternal) ClassID() node.ClassID {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ClassID")
	return ret[0].(node.ClassID)
}

func (mr *MockInternalMockRecorder) ClassID() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ClassID", reflect.TypeOf((*MockInternal)(nil).ClassID))
}

func (m *MockInternal) Version() node.Version {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Version")
	return ret[0].(node.Version)
}

func (mr *MockInternalMockRecorder) Version() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Version", reflect.TypeOf((*MockInternal)(nil).Version))
}

func (m *MockInternal) Hash() []byte {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Hash")
	return ret[0].([]byte)
}

func (mr *MockInternalMockRecorder) Hash() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Hash", reflect.TypeOf((*MockInternal)(nil).Hash))
}

func (m *MockInternal) SetHash(h []byte) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "SetHash", h)
}

func (mr *MockInternalMockRecorder) SetHash(h interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetHash", reflect.TypeOf((*MockInternal)(nil).SetHash), h)
}

func (m *MockInternal) Route() route.Route {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Route")
	return ret[0].(route.Route)
}

func (mr *MockInternalMockRecorder) Route() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Route", reflect.TypeOf((*MockInternal)(nil).Route))
}

func (m *MockInternal) SetRoute(r route.Route) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SetRoute", r)
	return ret[0].(error)
}

func (mr *MockInternalMockRecorder) SetRoute(r interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetRoute", reflect.TypeOf((*MockInternal)(nil).SetRoute), r)
}

func (m *MockInternal) Copy() (node.Node, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Copy")
	return ret[0].(node.Node), ret[1].(error)
}

func (mr *MockInternalMockRecorder) Copy() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Copy", reflect.TypeOf((*MockInternal)(nil).Copy))
}

func (m *MockInternal) Reserve() {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Reserve")
}

func (mr *MockInternalMockRecorder) Reserve() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Reserve", reflect.TypeOf((*MockInternal)(nil).Reserve))
}

func (m *MockInternal) Release() (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Release")
	return ret[0].(bool), ret[1].(error)
}

func (mr *MockInternalMockRecorder) Release() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Release", reflect.TypeOf((*MockInternal)(nil).Release))
}

func (m *MockInternal) RefCount() int32 {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RefCount")
	return ret[0].(int32)
}

func (mr *MockInternalMockRecorder) RefCount() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RefCount", reflect.TypeOf((*MockInternal)(nil).RefCount))
}

func (m *MockInternal) IsLeaf() bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IsLeaf")
	return ret[0].(bool)
}

func (mr *MockInternalMockRecorder) IsLeaf() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IsLeaf", reflect.TypeOf((*MockInternal)(nil).IsLeaf))
}

func (m *MockInternal) IsImmutable() bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IsImmutable")
	return ret[0].(bool)
}

func (mr *MockInternalMockRecorder) IsImmutable() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IsImmutable", reflect.TypeOf((*MockInternal)(nil).IsImmutable))
}

func (m *MockInternal) ChildCount() int {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ChildCount")
	return ret[0].(int)
}

func (mr *MockInternalMockRecorder) ChildCount() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ChildCount", reflect.TypeOf((*MockInternal)(nil).ChildCount))
}

func (m *MockInternal) GetChild(i int) node.Node {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetChild", i)
	return ret[0].(node.Node)
}

func (mr *MockInternalMockRecorder) GetChild(i interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetChild", reflect.TypeOf((*MockInternal)(nil).GetChild), i)
}

func (m *MockInternal) SetChild(i int, child node.Node, rt *route.Route) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SetChild", i, child, rt)
	return ret[0].(error)
}

func (mr *MockInternalMockRecorder) SetChild(i, child, rt interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetChild", reflect.TypeOf((*MockInternal)(nil).SetChild), i, child, rt)
}

func (m *MockInternal) ChildClassValid(i int, classID node.ClassID, version node.Version) bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ChildClassValid", i, classID, version)
	return ret[0].(bool)
}

func (mr *MockInternalMockRecorder) ChildClassValid(i, classID, version interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ChildClassValid", reflect.TypeOf((*MockInternal)(nil).ChildClassValid), i, classID, version)
}

func (m *MockInternal) Initialize() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Initialize")
	return ret[0].(error)
}

func (mr *MockInternalMockRecorder) Initialize() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Initialize", reflect.TypeOf((*MockInternal)(nil).Initialize))
}

func (m *MockInternal) CopyStrategy() node.CopyStrategy {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CopyStrategy")
	return ret[0].(node.CopyStrategy)
}

func (mr *MockInternalMockRecorder) CopyStrategy() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CopyStrategy", reflect.TypeOf((*MockInternal)(nil).CopyStrategy))
}

func (m *MockInternal) MinChildren() int {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MinChildren")
	return ret[0].(int)
}

func (mr *MockInternalMockRecorder) MinChildren() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MinChildren", reflect.TypeOf((*MockInternal)(nil).MinChildren))
}

func (m *MockInternal) MaxChildren() int {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MaxChildren")
	return ret[0].(int)
}

func (mr *MockInternalMockRecorder) MaxChildren() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MaxChildren", reflect.TypeOf((*MockInternal)(nil).MaxChildren))
}
