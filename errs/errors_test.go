package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	withCause := Wrap(ErrKindTimeout, "upload stalled", errors.New("deadline exceeded"))
	assert.Equal(t, "[timeout] upload stalled: deadline exceeded", withCause.Error())

	noCause := New(ErrKindPathTraversal, "path escapes storage root")
	assert.Equal(t, "[path_traversal] path escapes storage root", noCause.Error())
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", New(ErrKindNotFound, "no such object"), IsNotFound},
		{"invalid input", New(ErrKindInvalidInput, "empty key"), IsInvalidInput},
		{"path traversal", New(ErrKindPathTraversal, "escapes root"), IsPathTraversal},
		{"timeout", New(ErrKindTimeout, "stalled"), IsTimeout},
		{"connection failed", New(ErrKindConnectionFailed, "unreachable"), IsConnectionFailed},
		{"permission denied", New(ErrKindPermissionDenied, "forbidden"), IsPermissionDenied},
		{"backend failed", New(ErrKindBackendFailed, "quota exceeded"), IsBackendFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(errors.New("plain error")))
		})
	}
}

func TestKindOf_WrappedChain(t *testing.T) {
	inner := New(ErrKindNotFound, "no such object")
	outer := fmt.Errorf("read failed: %w", inner)

	assert.Equal(t, ErrKindNotFound, KindOf(outer))
	assert.True(t, IsNotFound(outer))
}

func TestKindOf_Unknown(t *testing.T) {
	assert.Equal(t, ErrKindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, ErrKindUnknown, KindOf(nil))
}
