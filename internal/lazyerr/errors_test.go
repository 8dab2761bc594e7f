package lazyerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_Wrapped(t *testing.T) {
	err := fmt.Errorf("drop table: %w", NewTableNotFound("sales"))

	assert.True(t, Is(err, CodeTableNotFound))
	assert.True(t, IsTableNotFound(err))
	assert.False(t, IsQueryExecution(err))
	assert.Equal(t, CodeTableNotFound, CodeOf(err))
}

func TestIs_PlainError(t *testing.T) {
	err := errors.New("boom")

	assert.False(t, Is(err, CodeQueryExecution))
	assert.Equal(t, Code(""), CodeOf(err))
}

func TestError_Message(t *testing.T) {
	err := NewQueryExecution("SELECT 1", "ERROR 4566: Relation \"x\" does not exist")
	assert.Equal(t, "QUERY_EXECUTION_ERROR: ERROR 4566: Relation \"x\" does not exist", err.Error())
	assert.Equal(t, "SELECT 1", err.Details["sql"])

	wrapped := Wrap(CodeConnection, errors.New("refused"), "connect %s", "db1")
	assert.Equal(t, "CONNECTION_ERROR: connect db1: refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, wrapped.Err)
}

func TestNewInvalidIdentifier(t *testing.T) {
	err := NewInvalidIdentifier(42, "identifier must be a string")
	assert.True(t, Is(err, CodeInvalidIdentifier))
	assert.Contains(t, err.Error(), "42")
}
