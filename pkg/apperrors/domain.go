package apperrors

import "net/http"

// Factories for the delivery core's error taxonomy. DuplicateSuppressed is
// deliberately absent: an idempotent no-op is a successful outcome, not an
// error, and is reported through DispatchResult instead.

// ErrNotFound converts a repository miss (gorm.ErrRecordNotFound and
// friends) into a 404 AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrStorageFailure marks persistence as unavailable or timed out. A write
// that fails this way must be retried or surfaced, never assumed to have
// partially applied.
func ErrStorageFailure(err error) *AppError {
	return Wrap(err, CodeStorageFailure, "storage", "Storage unavailable", http.StatusServiceUnavailable)
}

// ErrAuditWriteFailed is fatal for the privileged action being audited: an
// unaudited admin action is worse than a rejected one.
func ErrAuditWriteFailed(err error) *AppError {
	return Wrap(err, CodeAuditWriteFailed, "audit", "Audit log write failed", http.StatusInternalServerError)
}

func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)
