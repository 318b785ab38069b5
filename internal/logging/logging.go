package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation   = "operation"
	KeyCollection  = "collection"
	KeyComponent   = "component"
	KeyTool        = "tool"
	KeyService     = "service"
	KeySessionHash = "session_hash"
	KeyDuration    = "duration"
	KeyStatus      = "status"
	KeyError       = "error"
	KeyQuery       = "query"
	KeyPath        = "path"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithCollection returns a logger with the collection attribute set.
func WithCollection(logger *slog.Logger, collection string) *slog.Logger {
	return logger.With(slog.String(KeyCollection, collection))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Collection returns a slog attribute for the index collection name.
func Collection(name string) slog.Attr {
	return slog.String(KeyCollection, name)
}

// Component returns a slog attribute for a component path.
func Component(path string) slog.Attr {
	return slog.String(KeyComponent, path)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Service returns a slog attribute for the service name.
func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from
// output, so Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeSession returns a hashed representation of a session identifier for
// logging. Session IDs derive from bearer tokens on the HTTP transport and
// must never appear in logs verbatim; the hash still allows correlating
// entries belonging to one session.
func AnonymizeSession(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(sessionID))
	return "session:" + hex.EncodeToString(hash[:8])
}

// SessionHash returns a slog attribute with the anonymized session ID.
func SessionHash(sessionID string) slog.Attr {
	return slog.String(KeySessionHash, AnonymizeSession(sessionID))
}
