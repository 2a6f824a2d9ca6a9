// Hand-written gomock mock of the execer interface in audit.go, in the
// shape mockgen produces.

package audit

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/golang/mock/gomock"
)

// mockExecer is a mock of the execer interface.
type mockExecer struct {
	ctrl     *gomock.Controller
	recorder *mockExecerMockRecorder
}

// mockExecerMockRecorder is the mock recorder for mockExecer.
type mockExecerMockRecorder struct {
	mock *mockExecer
}

// newMockExecer creates a new mock instance.
func newMockExecer(ctrl *gomock.Controller) *mockExecer {
	mock := &mockExecer{ctrl: ctrl}
	mock.recorder = &mockExecerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *mockExecer) EXPECT() *mockExecerMockRecorder {
	return m.recorder
}

// ExecContext mocks base method.
func (m *mockExecer) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.ctrl.T.Helper()
	varargs := []interface{}{ctx, query}
	for _, a := range args {
		varargs = append(varargs, a)
	}
	ret := m.ctrl.Call(m, "ExecContext", varargs...)
	ret0, _ := ret[0].(sql.Result)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ExecContext indicates an expected call of ExecContext.
func (mr *mockExecerMockRecorder) ExecContext(ctx, query interface{}, args ...interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	varargs := append([]interface{}{ctx, query}, args...)
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ExecContext", reflect.TypeOf((*mockExecer)(nil).ExecContext), varargs...)
}
