package schema

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifyError(t *testing.T) {
	typed := &ErrInvalidInput{Msg: "table", Err: errors.New("empty")}

	assert.Nil(t, classifyError("op", nil))
	assert.Same(t, typed, classifyError("op", typed))

	assert.IsType(t, &ErrCancelled{}, classifyError("op", context.Canceled))
	assert.IsType(t, &ErrTimeout{}, classifyError("op", context.DeadlineExceeded))
	assert.IsType(t, &ErrTimeout{}, classifyError("op", timeoutErr{}))
	assert.IsType(t, &ErrDatabaseConnection{}, classifyError("op", driver.ErrBadConn))
	assert.IsType(t, &ErrDatabaseConnection{}, classifyError("op", &net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.IsType(t, &ErrQueryExecution{}, classifyError("op", errors.New("syntax error")))
}

func TestTypedErrorsUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	errs := []error{
		&ErrDatabaseConnection{Msg: "m", Err: cause},
		&ErrQueryExecution{Msg: "m", Err: cause},
		&ErrInvalidInput{Msg: "m", Err: cause},
		&ErrTimeout{Msg: "m", Err: cause},
		&ErrCancelled{Msg: "m", Err: cause},
	}
	for _, err := range errs {
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "m: root cause")
	}
}
