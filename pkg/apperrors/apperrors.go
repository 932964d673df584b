// Package apperrors defines the single error taxonomy used across the
// orchestrator: HTTP handlers translate an AppError into a response
// envelope, event handlers branch on its Kind to decide whether to
// acknowledge an event or let it redeliver.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies an AppError for status-code mapping, redelivery
// decisions, and safe external messaging.
type ErrorKind string

const (
	// KindValidation is a malformed or out-of-range request.
	KindValidation ErrorKind = "validation"
	// KindNotFound is a reference to an entity that does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindConflict is a state-machine transition rejected by an invariant
	// (e.g. a non-monotonic status update).
	KindConflict ErrorKind = "conflict"
	// KindUnauthorized is a missing or invalid caller identity.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindRateLimited is a request rejected by a process-local rate limiter.
	KindRateLimited ErrorKind = "rate_limited"
	// KindContentFiltered is a generation request rejected by a provider's
	// content safety filter.
	KindContentFiltered ErrorKind = "content_filtered"
	// KindModelNotFound is a reference to an unknown generation model.
	KindModelNotFound ErrorKind = "model_not_found"
	// KindInvalidPrompt is a prompt a generation provider could not parse.
	KindInvalidPrompt ErrorKind = "invalid_prompt"
	// KindTransient is a retryable failure: a timeout, a 5xx from a
	// downstream provider, a throttled AWS SDK call. Event handlers must
	// propagate these so the bus redelivers the event.
	KindTransient ErrorKind = "transient"
	// KindInternal is an unclassified failure.
	KindInternal ErrorKind = "internal"
)

// statusCodes maps each ErrorKind to its HTTP status.
var statusCodes = map[ErrorKind]int{
	KindValidation:      http.StatusBadRequest,
	KindInvalidPrompt:   http.StatusBadRequest,
	KindUnauthorized:    http.StatusUnauthorized,
	KindNotFound:        http.StatusNotFound,
	KindModelNotFound:   http.StatusNotFound,
	KindConflict:        http.StatusConflict,
	KindContentFiltered: http.StatusUnprocessableEntity,
	KindRateLimited:     http.StatusTooManyRequests,
	KindTransient:       http.StatusServiceUnavailable,
	KindInternal:        http.StatusInternalServerError,
}

// AppError is the module's single structured error type.
type AppError struct {
	Kind       ErrorKind
	Message    string
	Details    string
	StatusCode int
	Cause      error

	// Code is the opaque external error code returned in the HTTP error
	// envelope's "code" field (spec §6). Defaults to a generic per-Kind
	// code; call sites needing a specific one (STORY_NOT_FOUND,
	// EPISODE_ALREADY_EXISTS, ...) set it with WithCode.
	Code string

	// Context carries the extra context fields the HTTP error envelope
	// documents as "...contextFields" (spec §6), e.g. the conflicting
	// episode's id/number/status on a 409.
	Context map[string]any
}

// New creates an AppError with no underlying cause.
func New(kind ErrorKind, message string) *AppError {
	return &AppError{
		Kind:       kind,
		Message:    message,
		StatusCode: statusCodeFor(kind),
	}
}

// Newf creates an AppError with a formatted message.
func Newf(kind ErrorKind, format string, args ...any) *AppError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap creates an AppError that wraps an underlying cause.
func Wrap(cause error, kind ErrorKind, message string) *AppError {
	return &AppError{
		Kind:       kind,
		Message:    message,
		StatusCode: statusCodeFor(kind),
		Cause:      cause,
	}
}

// Wrapf creates a wrapped AppError with a formatted message.
func Wrapf(cause error, kind ErrorKind, format string, args ...any) *AppError {
	return Wrap(cause, kind, fmt.Sprintf(format, args...))
}

// WithDetails attaches additional, non-user-facing context and returns the
// same AppError (mutated in place) for chaining.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCode overrides the error's external code (default is a generic
// per-Kind code; see CodeFor).
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithContext attaches extra context fields to surface in the HTTP error
// envelope (spec §6 "...contextFields"), e.g. {episodeId, episodeNumber,
// status} on an EPISODE_ALREADY_EXISTS 409.
func (e *AppError) WithContext(ctx map[string]any) *AppError {
	e.Context = ctx
	return e
}

// WithDetailsf attaches formatted details.
func (e *AppError) WithDetailsf(format string, args ...any) *AppError {
	e.Details = fmt.Sprintf(format, args...)
	return e
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

func statusCodeFor(kind ErrorKind) int {
	if code, ok := statusCodes[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// Predefined constructors mirroring the module's most common error sites.

func NewValidationError(message string) *AppError {
	return New(KindValidation, message)
}

func NewNotFoundError(entity string) *AppError {
	return Newf(KindNotFound, "%s not found", entity)
}

func NewConflictError(message string) *AppError {
	return New(KindConflict, message)
}

func NewUnauthorizedError(message string) *AppError {
	return New(KindUnauthorized, message)
}

func NewRateLimitedError(message string) *AppError {
	return New(KindRateLimited, message)
}

func NewContentFilteredError(message string) *AppError {
	return New(KindContentFiltered, message)
}

func NewModelNotFoundError(model string) *AppError {
	return Newf(KindModelNotFound, "model %q not found", model)
}

func NewInvalidPromptError(message string) *AppError {
	return New(KindInvalidPrompt, message)
}

func NewTransientError(cause error, operation string) *AppError {
	return Wrapf(cause, KindTransient, "transient failure: %s", operation)
}

func NewInternalError(cause error, message string) *AppError {
	return Wrap(cause, KindInternal, message)
}

// IsKind reports whether err is an *AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// GetKind returns err's ErrorKind, or KindInternal if err is not an
// *AppError.
func GetKind(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// GetStatusCode returns the HTTP status to report for err.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// defaultCodes maps each ErrorKind to its generic external code (spec §6).
// Call sites that need a more specific code (STORY_NOT_FOUND,
// EPISODE_ALREADY_EXISTS, PREFERENCES_NOT_FOUND, ...) set one explicitly
// via WithCode; GetCode falls back to this table otherwise.
var defaultCodes = map[ErrorKind]string{
	KindValidation:      "VALIDATION_ERROR",
	KindNotFound:        "NOT_FOUND",
	KindConflict:        "CONFLICT",
	KindUnauthorized:    "UNAUTHORIZED",
	KindRateLimited:     "RATE_LIMIT_EXCEEDED",
	KindContentFiltered: "CONTENT_FILTERED",
	KindModelNotFound:   "MODEL_NOT_FOUND",
	KindInvalidPrompt:   "INVALID_PROMPT",
	KindTransient:       "SERVICE_UNAVAILABLE",
	KindInternal:        "INTERNAL_ERROR",
}

// GetCode returns err's external error code: the explicit Code set via
// WithCode if present, otherwise the generic per-Kind default.
func GetCode(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "INTERNAL_ERROR"
	}
	if appErr.Code != "" {
		return appErr.Code
	}
	if code, ok := defaultCodes[appErr.Kind]; ok {
		return code
	}
	return "INTERNAL_ERROR"
}

// GetContext returns err's attached context fields, or nil.
func GetContext(err error) map[string]any {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Context
	}
	return nil
}

// IsRetryable reports whether an event handler should let the bus redeliver
// the event that produced err, rather than acknowledging it as a permanent
// failure.
func IsRetryable(err error) bool {
	return GetKind(err) == KindTransient
}

// safeMessages holds the canned, non-leaky messages returned for error
// kinds whose real Message may carry internal detail.
var safeMessages = map[ErrorKind]string{
	KindNotFound:        "the requested resource was not found",
	KindUnauthorized:    "authentication failed",
	KindConflict:        "the request conflicts with the current state",
	KindContentFiltered: "the request was rejected by content safety filtering",
	KindModelNotFound:   "the requested generation model is unavailable",
	KindRateLimited:     "rate limit exceeded, try again later",
	KindTransient:       "a downstream service is temporarily unavailable",
	KindInternal:        "an internal error occurred",
}

// SafeErrorMessage returns a message safe to return to an external caller.
// Validation and invalid-prompt messages are passed through verbatim since
// they describe the caller's own input; every other kind is mapped to a
// generic, non-leaky message.
func SafeErrorMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "an unexpected error occurred"
	}
	switch appErr.Kind {
	case KindValidation, KindInvalidPrompt:
		return appErr.Message
	}
	if msg, ok := safeMessages[appErr.Kind]; ok {
		return msg
	}
	return "an internal error occurred"
}

// LogFields returns structured key/value pairs suitable for slog.
func LogFields(err error) map[string]any {
	fields := map[string]any{"error": err.Error()}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fields
	}

	fields["error_type"] = string(appErr.Kind)
	fields["status_code"] = appErr.StatusCode
	if appErr.Details != "" {
		fields["error_details"] = appErr.Details
	}
	if appErr.Cause != nil {
		fields["underlying_error"] = appErr.Cause.Error()
	}
	return fields
}

// Chain joins a sequence of errors (nil entries filtered out) into a single
// error whose message concatenates each, separated by " -> ". Returns nil
// if every entry is nil, and returns the sole error unwrapped if exactly
// one is non-nil.
func Chain(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}

	msgs := make([]string, len(nonNil))
	for i, err := range nonNil {
		msgs[i] = err.Error()
	}
	return errors.New(strings.Join(msgs, " -> "))
}
