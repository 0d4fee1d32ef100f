package logger

import (
	"log/slog"
	"time"
)

// Provider records the provider key under "provider".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// Component records the emitting component under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// StatusCode records an upstream HTTP status under "status_code".
func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

// Duration records an elapsed duration under "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// AuthID records the authentication correlation identifier under "auth_id".
// If id is nil, it returns an empty Attr.
func AuthID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("auth_id", id)
}
