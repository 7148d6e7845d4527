package janode

import (
	"fmt"

	"github.com/meetecho/janode-sub000/internal/errlib"
)

// Error codes a caller can match with errors.Is(err, janode.ErrXxx).
const (
	ErrConfigInvalid        errlib.Code = "config_invalid"
	ErrAttemptLimitExceeded errlib.Code = "attempt_limit_exceeded"
	ErrConnectionClosed     errlib.Code = "connection_closed"
	ErrConnectionError      errlib.Code = "connection_error"
	ErrSessionDestroyed     errlib.Code = "session_destroyed"
	ErrHandleDetached       errlib.Code = "handle_detached"
	ErrUnexpectedResponse   errlib.Code = "unexpected_response"
	ErrTimeout              errlib.Code = "timeout"
	ErrInvalidArgument      errlib.Code = "invalid_argument"
	ErrAlreadyDetached      errlib.Code = "already_detached"
	ErrDuplicateTransaction errlib.Code = "duplicate_id"
	ErrUnmanagedEvent       errlib.Code = "unmanaged_event"
)

// JanusError is a definitive error reply from the Janus server
// (`{janus: "error", error: {code, reason}}`). It closes the transaction
// that triggered it; a plugindata.data error arriving as the reply to a
// transaction a Handle owns rejects that transaction with a *JanusError too.
type JanusError struct {
	Code   int
	Reason string
}

func (e *JanusError) Error() string {
	return fmt.Sprintf("janus_error(%d): %s", e.Code, e.Reason)
}

// Is lets errors.Is(err, janode.ErrJanus) classify any *JanusError.
func (e *JanusError) Is(target error) bool {
	_, ok := target.(*JanusError)
	return ok
}

// ErrJanus is a zero-value sentinel for errors.Is(err, janode.ErrJanus)
// classification; the concrete code/reason are on the *JanusError itself,
// retrievable with errors.As.
var ErrJanus = &JanusError{}
