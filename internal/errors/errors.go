// Package errors provides enhanced error types with helpful context and suggestions
package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Query pipeline errors
	ErrCodeTranslationUnavailable ErrorCode = "TRANSLATION_UNAVAILABLE"
	ErrCodePromptBuilding         ErrorCode = "PROMPT_BUILD_FAILED"
	ErrCodeEmbeddingGeneration    ErrorCode = "EMBEDDING_GENERATION_FAILED"
	ErrCodeSafetyRejected         ErrorCode = "SAFETY_VALIDATION_REJECTED"
	ErrCodeQueryExecution         ErrorCode = "QUERY_EXECUTION_FAILED"

	// Safety rejection reasons
	ErrCodeMultiStatement   ErrorCode = "MULTI_STATEMENT"
	ErrCodeNotReadOnly      ErrorCode = "NOT_READ_ONLY"
	ErrCodeForbiddenKeyword ErrorCode = "FORBIDDEN_KEYWORD"
	ErrCodeUnknownTable     ErrorCode = "UNKNOWN_TABLE"
	ErrCodeEmptyQuery       ErrorCode = "EMPTY_QUERY"

	// Database errors
	ErrCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseQuery      ErrorCode = "DATABASE_QUERY_FAILED"

	// Authentication errors
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeTokenCreation      ErrorCode = "TOKEN_CREATION_FAILED"
	ErrCodeSessionCreation    ErrorCode = "SESSION_CREATION_FAILED"
	ErrCodeNotAuthenticated   ErrorCode = "NOT_AUTHENTICATED"
	ErrCodeInsufficientPerms  ErrorCode = "INSUFFICIENT_PERMISSIONS"

	// Input validation errors
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED_FIELD"

	// Cache errors
	ErrCodeCacheRead  ErrorCode = "CACHE_READ_FAILED"
	ErrCodeCacheWrite ErrorCode = "CACHE_WRITE_FAILED"
)

// EnhancedError represents an error with additional context and helpful information
type EnhancedError struct {
	Code          ErrorCode              `json:"code"`
	Message       string                 `json:"message"`
	Details       string                 `json:"details,omitempty"`
	Suggestion    string                 `json:"suggestion,omitempty"`
	Documentation string                 `json:"documentation,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Cause         error                  `json:"-"`
}

// Error implements the error interface
func (e *EnhancedError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))
	if e.Details != "" {
		sb.WriteString(fmt.Sprintf(": %s", e.Details))
	}
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(" (cause: %v)", e.Cause))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error chain unwrapping
func (e *EnhancedError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly error message with suggestions
func (e *EnhancedError) UserMessage() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString(fmt.Sprintf("\n\nDetails: %s", e.Details))
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n\nSuggestion: %s", e.Suggestion))
	}

	return sb.String()
}

// New creates a new EnhancedError
func New(code ErrorCode, message string) *EnhancedError {
	return &EnhancedError{
		Code:     code,
		Message:  message,
		Metadata: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with enhanced context
func Wrap(err error, code ErrorCode, message string) *EnhancedError {
	return &EnhancedError{
		Code:     code,
		Message:  message,
		Cause:    err,
		Metadata: make(map[string]interface{}),
	}
}

// WithDetails adds detailed information about the error
func (e *EnhancedError) WithDetails(details string) *EnhancedError {
	e.Details = details
	return e
}

// WithSuggestion adds a suggestion on how to fix the error
func (e *EnhancedError) WithSuggestion(suggestion string) *EnhancedError {
	e.Suggestion = suggestion
	return e
}

// WithMetadata adds additional metadata to the error
func (e *EnhancedError) WithMetadata(key string, value interface{}) *EnhancedError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Common error constructors with pre-configured messages

// NewTranslationUnavailableError creates an error for translator failures.
// These are soft failures: the resolver absorbs them and falls back to a
// curated query, so this error never reaches the end user.
func NewTranslationUnavailableError(err error) *EnhancedError {
	return Wrap(err, ErrCodeTranslationUnavailable, "SQL translation is unavailable").
		WithDetails("The AI translator could not convert the question into a query").
		WithSuggestion("A curated fallback query will be used instead.").
		WithMetadata("recoverable", true)
}

// NewSafetyRejectedError creates an error for candidate queries that failed the
// safety policy. The rejected SQL itself is deliberately not included: it is
// untrusted text and must not flow into logs or responses as if it were ours.
func NewSafetyRejectedError(reason ErrorCode) *EnhancedError {
	return New(ErrCodeSafetyRejected, "Generated query rejected by safety policy").
		WithDetails(fmt.Sprintf("Rejection reason: %s", reason)).
		WithSuggestion("A curated fallback query will be used instead.").
		WithMetadata("reason", string(reason)).
		WithMetadata("recoverable", true)
}

// NewEmbeddingGenerationError creates an error for embedding generation failures
func NewEmbeddingGenerationError(err error) *EnhancedError {
	return Wrap(err, ErrCodeEmbeddingGeneration, "Failed to generate question embedding").
		WithDetails("The similar-question lookup could not process this question").
		WithSuggestion("This is typically a temporary issue. Please try your question again in a moment.").
		WithMetadata("retryable", true)
}

// NewQueryExecutionError creates the single user-surfaced error of the
// pipeline. The message is generic on purpose; raw engine errors may leak
// schema or internal details and belong in logs only.
func NewQueryExecutionError(err error) *EnhancedError {
	return Wrap(err, ErrCodeQueryExecution, "The question could not be answered right now").
		WithDetails("Query execution against the sales dataset failed").
		WithSuggestion("Please try again, or rephrase the question. If the problem persists, contact support.").
		WithMetadata("retryable", true)
}

// NewInvalidCredentialsError creates an error for authentication failures
func NewInvalidCredentialsError() *EnhancedError {
	return New(ErrCodeInvalidCredentials, "Invalid username or password").
		WithDetails("Authentication failed with the provided credentials").
		WithSuggestion("Please check your username and password and try again.")
}

// NewTokenCreationError creates an error for token creation failures
func NewTokenCreationError(err error) *EnhancedError {
	return Wrap(err, ErrCodeTokenCreation, "Failed to create authentication token").
		WithDetails("The system was unable to generate an authentication token").
		WithSuggestion("This is an internal server error. Please try logging in again.").
		WithMetadata("retryable", true)
}

// NewNotAuthenticatedError creates an error for unauthenticated requests
func NewNotAuthenticatedError() *EnhancedError {
	return New(ErrCodeNotAuthenticated, "Authentication required").
		WithDetails("This endpoint requires authentication").
		WithSuggestion("Please log in using the /api/v1/auth/login endpoint, or include a valid API key in the 'X-API-Key' header.")
}

// NewInvalidInputError creates an error for invalid input
func NewInvalidInputError(field string, reason string) *EnhancedError {
	return New(ErrCodeInvalidInput, "Invalid input").
		WithDetails(fmt.Sprintf("Field '%s' is invalid: %s", field, reason)).
		WithSuggestion("Please check the API documentation for the expected format and try again.")
}

// NewDatabaseConnectionError creates an error for database connection failures
func NewDatabaseConnectionError(err error) *EnhancedError {
	return Wrap(err, ErrCodeDatabaseConnection, "Database connection failed").
		WithDetails("Unable to connect to the analytical store").
		WithSuggestion("This is an internal server error. The service may be experiencing issues. Please try again in a moment.").
		WithMetadata("retryable", true)
}

// NewDatabaseQueryError creates an error for database query failures
func NewDatabaseQueryError(err error, operation string) *EnhancedError {
	return Wrap(err, ErrCodeDatabaseQuery, "Database query failed").
		WithDetails(fmt.Sprintf("Failed to execute database operation: %s", operation)).
		WithSuggestion("This is an internal server error. If the problem persists, contact support.").
		WithMetadata("retryable", true)
}
