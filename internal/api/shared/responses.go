package shared

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Envelope is the uniform wire shape for every endpoint. Error details never
// appear in Data; successes never carry Errors.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
	StatusCode int         `json:"statusCode"`
	Pagination *Pagination `json:"pagination,omitempty"`
	TraceID    string      `json:"traceId,omitempty"`
}

// Pagination carries the page metadata for list payloads.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// ResponseOption defines a function to customize response behavior.
type ResponseOption func(*responseOptions)

// responseOptions holds configurable options for error responses.
type responseOptions struct {
	elevateLogLevel bool
	retryAfter      string
}

// WithElevatedLogLevel returns a ResponseOption that raises 4xx errors to WARN
// level instead of the default DEBUG level. Use for important operational
// issues like rate limiting or repeated auth failures.
func WithElevatedLogLevel() ResponseOption {
	return func(opts *responseOptions) {
		opts.elevateLogLevel = true
	}
}

// WithRetryAfter returns a ResponseOption that sets the Retry-After header,
// expressed in whole seconds.
func WithRetryAfter(seconds int) ResponseOption {
	return func(opts *responseOptions) {
		opts.retryAfter = fmt.Sprintf("%d", seconds)
	}
}

// RespondWithData writes a success envelope with the given status and data.
func RespondWithData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeEnvelope(w, r, Envelope{
		Success:    true,
		Data:       data,
		StatusCode: status,
	})
}

// RespondWithMessage writes a success envelope carrying only a message.
func RespondWithMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeEnvelope(w, r, Envelope{
		Success:    true,
		Message:    message,
		StatusCode: status,
	})
}

// RespondWithPage writes a success envelope with data and pagination metadata.
func RespondWithPage(w http.ResponseWriter, r *http.Request, status int, data any, page Pagination) {
	writeEnvelope(w, r, Envelope{
		Success:    true,
		Data:       data,
		StatusCode: status,
		Pagination: &page,
	})
}

// RespondWithError writes an error envelope with the given status and message.
// Optional fieldErrors populate the envelope's errors list, used for
// field-level validation messages.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string, fieldErrors ...string) {
	traceID := GetTraceID(r.Context())

	slog.Debug("sending error response",
		"status_code", status,
		"message", message,
		"trace_id", traceID,
		"path", r.URL.Path,
		"method", r.Method)

	writeEnvelope(w, r, Envelope{
		Success:    false,
		Message:    message,
		Errors:     fieldErrors,
		StatusCode: status,
		TraceID:    traceID,
	})
}

// RespondWithErrorAndLog writes an error envelope and logs the underlying
// error. The raw error never reaches the client; only userMessage does.
//
// Log level strategy:
//   - 5xx errors: ERROR
//   - 429 Too Many Requests: WARN (operational concern)
//   - other 4xx: DEBUG, or WARN with WithElevatedLogLevel()
func RespondWithErrorAndLog(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	userMessage string,
	err error,
	opts ...ResponseOption,
) {
	traceID := GetTraceID(r.Context())

	logAttrs := []slog.Attr{
		slog.String("trace_id", traceID),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status_code", status),
		slog.String("user_message", userMessage),
	}
	if err != nil {
		logAttrs = append(logAttrs,
			slog.String("error", err.Error()),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}

	responseOpts := responseOptions{}
	for _, opt := range opts {
		opt(&responseOpts)
	}

	logLevel := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		logLevel = slog.LevelError
	} else if status == http.StatusTooManyRequests {
		logLevel = slog.LevelWarn
	} else if responseOpts.elevateLogLevel && status >= http.StatusBadRequest {
		logLevel = slog.LevelWarn
	}

	slog.LogAttrs(r.Context(), logLevel, "API error response", logAttrs...)

	if responseOpts.retryAfter != "" {
		w.Header().Set("Retry-After", responseOpts.retryAfter)
	}

	writeEnvelope(w, r, Envelope{
		Success:    false,
		Message:    userMessage,
		StatusCode: status,
		TraceID:    traceID,
	})
}

func writeEnvelope(w http.ResponseWriter, _ *http.Request, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.StatusCode)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}
