package log

import (
	"go.uber.org/zap"
)

// Field is an alias for zap.Field to avoid importing zap in other packages.
// Trimmed to the four shapes this module's call sites actually log: a
// counter/attempt (Int), an endpoint or frame verb (String), a wrapped
// cause (Error), and a raw frame dump (Any) for the "dropping unroutable/
// unhandled ..." debug lines in connection.go, session.go and handle.go.
type Field = zap.Field

func Int(key string, val int) Field {
	return zap.Int(key, val)
}

func String(key string, val string) Field {
	return zap.String(key, val)
}

func Error(err error) Field {
	return zap.Error(err)
}

func Any(key string, val any) Field {
	return zap.Any(key, val)
}
