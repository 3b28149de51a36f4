// Package models defines the core data structures for reveal.
//
// It includes the user records and JSON envelopes served by the API, which are
// shared between the store and api modules.
package models

import "errors"

// Validation constants for input validation
const (
	// DefaultUserRole is assigned when a new user omits the role
	DefaultUserRole = "User"
	// DefaultGreetName is used by the greeting endpoint when no name is given
	DefaultGreetName = "Bạn"
)

// Error variables for better error handling and testability
var (
	ErrMissingName      = errors.New("name is required")
	ErrMissingEmail     = errors.New("email is required")
	ErrVisitorNotFound  = errors.New("visitor not found")
	ErrEmptyVisitorID   = errors.New("visitor id cannot be empty")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// User is one record of the fake user directory.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NewUserRequest is the body accepted by POST /users.
type NewUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Validate requires a name and an email and fills in the default role.
// Values are stored as given; the directory does not check email syntax.
func (r *NewUserRequest) Validate() error {
	if r.Name == "" {
		return ErrMissingName
	}
	if r.Email == "" {
		return ErrMissingEmail
	}
	if r.Role == "" {
		r.Role = DefaultUserRole
	}
	return nil
}

// SeedUsers returns the directory every fresh store starts with.
func SeedUsers() []User {
	return []User{
		{ID: 1, Name: "Nguyễn Văn A", Email: "vana@example.com", Role: "Admin"},
		{ID: 2, Name: "Trần Thị B", Email: "thib@example.com", Role: "User"},
		{ID: 3, Name: "Lê Văn C", Email: "vanc@example.com", Role: "User"},
		{ID: 4, Name: "Phạm Thị D", Email: "thid@example.com", Role: "Moderator"},
	}
}

// GreetResponse is returned by GET /greet.
type GreetResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Method    string `json:"method"`
}

// TimeResponse is returned by GET /time.
type TimeResponse struct {
	UTC         string `json:"utc"`
	Local       string `json:"local"`
	UnixSeconds int64  `json:"unixSeconds"`
	Formatted   string `json:"formatted"`
	ServerLabel string `json:"serverLabel"`
}

// API Response types for consistent JSON responses

// APIResponse is the success/data/error envelope used by the user and visitor endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Total   *int        `json:"total,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{}
}

// WithSuccess sets the success flag of the API response.
func (b *APIResponseBuilder) WithSuccess(ok bool) *APIResponseBuilder {
	b.response.Success = ok
	return b
}

// WithData sets the payload of the API response.
func (b *APIResponseBuilder) WithData(data interface{}) *APIResponseBuilder {
	b.response.Data = data
	return b
}

// WithTotal sets the item count of a list response.
func (b *APIResponseBuilder) WithTotal(total int) *APIResponseBuilder {
	b.response.Total = &total
	return b
}

// WithMessage sets the informational message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithError sets the error text of the API response.
func (b *APIResponseBuilder) WithError(message string) *APIResponseBuilder {
	b.response.Error = message
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Convenience functions for common response patterns

// Success creates a successful API response with optional data.
func Success(data interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithSuccess(true).
		WithData(data).
		Build()
}

// SuccessList creates a successful list response carrying its total.
func SuccessList(data interface{}, total int) APIResponse {
	return NewAPIResponseBuilder().
		WithSuccess(true).
		WithData(data).
		WithTotal(total).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional data.
func SuccessWithMessage(message string, data interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithSuccess(true).
		WithData(data).
		WithMessage(message).
		Build()
}

// Error creates a failed API response with an error text.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithSuccess(false).
		WithError(message).
		Build()
}
